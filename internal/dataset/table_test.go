package dataset

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTable(t *testing.T) {
	table := NewTable(
		[]string{" Qty ", "REGION", "docdate", "region"},
		[][]string{
			{"2", " north ", "2024-01-05"},
			{"1,200.5", "", "05-01-2024", "ignored"},
		},
	)

	assert.Equal(t, 2, table.Len())
	assert.Equal(t, []string{"qty", "region", "docdate", "region"}, table.Columns())
	assert.True(t, table.Has(ColQuantity))
	assert.Equal(t, []string{"brand"}, table.Missing(ColQuantity, ColBrand))

	region, ok := table.Text(0, ColRegion)
	require.True(t, ok)
	assert.Equal(t, "north", region, "cells are trimmed and the first duplicate header wins")

	_, ok = table.Text(1, ColRegion)
	assert.False(t, ok, "blank text is missing")

	qty, ok := table.Float(1, ColQuantity)
	require.True(t, ok)
	assert.InDelta(t, 1200.5, qty, 1e-9)

	_, ok = table.Float(0, ColBrand)
	assert.False(t, ok, "absent column")

	_, ok = table.Raw(5, ColQuantity)
	assert.False(t, ok, "out of range row")

	d0, ok := table.Date(0, ColDocumentDate)
	require.True(t, ok)
	d1, ok := table.Date(1, ColDocumentDate)
	require.True(t, ok)
	assert.Equal(t, d0, d1)
}

func TestParseFloat(t *testing.T) {
	tests := []struct {
		in     string
		want   float64
		wantOK bool
	}{
		{"10", 10, true},
		{" -3.5 ", -3.5, true},
		{"1,000", 1000, true},
		{"", 0, false},
		{"NULL", 0, false},
		{"NaN", 0, false},
		{"Inf", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseFloat(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.InDelta(t, tt.want, got, 1e-9)
			}
		})
	}
}

func TestParseDate(t *testing.T) {
	want := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		in     string
		wantOK bool
	}{
		{"iso", "2024-01-01", true},
		{"iso with time", "2024-01-01 13:45:00", true},
		{"rfc3339", "2024-01-01T08:00:00Z", true},
		{"day first", "01-01-2024", true},
		{"month first short year", "01-01-24", true},
		{"excel serial", "45292", true},
		{"excel serial with fraction", "45292.5", true},
		{"zero serial", "0", false},
		{"garbage", "yesterday", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseDate(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, want, got)
			}
		})
	}
}

func TestDistinct(t *testing.T) {
	tbl := NewTable(
		[]string{"Brand", "Region"},
		[][]string{{"ZOYA", "North"}, {" MIA ", ""}, {"ZOYA", "South"}, {"", "North"}},
	)

	assert.Equal(t, []string{"MIA", "ZOYA"}, tbl.Distinct(ColBrand))
	assert.Equal(t, []string{"North", "South"}, tbl.Distinct(ColRegion))
	assert.Nil(t, tbl.Distinct(ColCategory))
}
