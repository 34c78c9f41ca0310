package exporter

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatCell(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"MIA", "MIA"},
		{13.4, "13.40"},
		{float32(2.5), "2.50"},
		{-0.25, "-0.25"},
		{42, "42"},
		{int64(-7), "-7"},
		{true, "true"},
		{[]int{1}, "[1]"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatCell(tt.in))
	}
}

func TestWriteCSV(t *testing.T) {
	tests := []struct {
		name string
		opts WriteOptions
		want string
	}{
		{
			name: "header and rows",
			opts: WriteOptions{
				Headers: []string{"Brand", "Total_Discount", "Number_of_Transactions"},
				Records: [][]any{{"MIA", 50.0, 1}, {"ZOYA, Gold", 90.0, 1}},
			},
			want: "Brand,Total_Discount,Number_of_Transactions\nMIA,50.00,1\n\"ZOYA, Gold\",90.00,1\n",
		},
		{
			name: "bom prefix",
			opts: WriteOptions{Headers: []string{"a"}, BOMPrefix: true},
			want: "\xEF\xBB\xBFa\n",
		},
		{
			name: "no header",
			opts: WriteOptions{Records: [][]any{{1, 2}}},
			want: "1,2\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, WriteCSV(&buf, tt.opts))
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestWriteCSVPropagatesWriteErrors(t *testing.T) {
	err := WriteCSV(failingWriter{}, WriteOptions{Headers: []string{"a"}, BOMPrefix: true})
	assert.ErrorContains(t, err, "disk full")

	err = WriteCSV(failingWriter{}, WriteOptions{Headers: []string{"a"}})
	assert.ErrorContains(t, err, "disk full")
}
