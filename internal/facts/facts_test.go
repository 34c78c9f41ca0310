package facts

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/essai1415/discount-analysis-dashboard/internal/dataset"
)

func sampleTable() *dataset.Table {
	header := []string{
		"docdate", "brand", "region", "level", "year", "yearmonth", "month", "loccode", "rcluster", "bdisc",
		"totcategory", "totalecband", "clusterecband", "priceband", "amcb", "customerno",
		"qty", "value", "wt", "discount", "idisc", "obdisc", "ghsdisc", "mc", "goldprice", "stonevalue",
	}
	return dataset.NewTable(header, [][]string{
		{"2024-01-01", "MIA", "North", "L1", "2024", "2024-01", "Jan", "L01", "RC1", "B1", "Dia", "A", "A", "P1", "A(1-10%)", "C1",
			"1", "1000", "2", "10", "8", "2", "0", "100", "5000", "0"},
		{"2024-01-05", "MIA", "NA", "L1", "2024", "2024-01", "Jan", "L02", "NULL", "B1", "Gold", "A", "NIL", "P1", "A(1-10%)", "C2",
			"2", "2000", "4", "0", "0", "0", "0", "200", "5100", "0"},
		{"2024-01-10", "ZOYA", "South", "L2", "2024", "2024-01", "Jan", "L01", "RC2", "B2", "Dia", "B", "A", "P2", "B(11-14%)", "C1",
			"-1", "-1000", "2", "10", "8", "2", "0", "100", "5000", "0"},
		{"2024-02-01", "TANISHQ", "South", "L2", "2024", "2024-02", "Feb", "L03", "RC1", "B2", "Dia", "B", "B", "P1", "", "C3",
			"3", "4000", "6", "20", "20", "0", "0", "400", "5300", "5"},
	})
}

func factMap(f *Facts) map[string]any {
	out := make(map[string]any, len(f.HighLevel))
	for _, h := range f.HighLevel {
		out[h.Label] = h.Value
	}
	return out
}

func TestCompute(t *testing.T) {
	f, err := Compute(context.Background(), sampleTable(), Options{})
	require.NoError(t, err)

	assert.Equal(t, Overview{Rows: 4, Columns: 26}, f.Overview)
	assert.Equal(t, DefaultTrendMetric, f.Options.TrendMetric)
	assert.Equal(t, BusinessNotes, f.BusinessNotes)
	assert.Empty(t, f.Notices)

	t.Run("customer mix", func(t *testing.T) {
		require.NotNil(t, f.CustomerMix)
		assert.Equal(t, CustomerMix{Total: 4, New: 3, Repeat: 1, NewPct: 75, RepeatPct: 25}, *f.CustomerMix)
	})

	t.Run("high level", func(t *testing.T) {
		facts := factMap(f)
		assert.Len(t, f.HighLevel, len(highLevelFacts))
		assert.Equal(t, 3, facts["Unique Brands"])
		assert.Equal(t, 2, facts["Regions Covered"], "NA is a placeholder")
		assert.Equal(t, 2, facts["Retail Clusters"], "NULL is a placeholder")
		assert.Equal(t, 2, facts["AMCB Bands"], "blank cells are not counted")
		assert.Equal(t, 3, facts["Bill Discount Types"])
		assert.Equal(t, 3, facts["Unique Customers"])
		assert.Equal(t, "2024-01-01 to 2024-02-01", facts["Date Range"])
		assert.Equal(t, "Unique Brands", f.HighLevel[0].Label)
	})

	t.Run("core insights", func(t *testing.T) {
		require.NotNil(t, f.Core)
		assert.Equal(t, []Count{{"MIA", 2}, {"ZOYA", 1}, {"TANISHQ", 1}}, f.Core.TopBrands)
		assert.Equal(t, []Count{{"P1", 3}, {"P2", 1}}, f.Core.TopPriceBands)
		assert.Equal(t, "Jan", f.Core.BusiestMonth)
		assert.Equal(t, []Amount{{"South", 3000}, {"North", 1000}}, f.Core.TopRegions)
	})

	t.Run("missing placeholders", func(t *testing.T) {
		assert.Equal(t, []MissingCount{
			{Column: "region", Count: 1},
			{Column: "rcluster", Count: 1},
			{Column: "clusterecband", Count: 1},
			{Column: "amcb", Count: 1},
		}, f.Missing)
	})

	t.Run("numeric summary skips negative rows", func(t *testing.T) {
		require.Len(t, f.Numeric, len(dataset.NumericColumns))
		qty := f.Numeric[0]
		assert.Equal(t, "qty", qty.Column)
		assert.Equal(t, 3, qty.Count)
		assert.Equal(t, 1.0, qty.Min)
		assert.Equal(t, 2.0, qty.Mean)
		assert.Equal(t, 2.0, qty.Median)
		assert.Equal(t, 3.0, qty.Max)
	})

	t.Run("categorical summary", func(t *testing.T) {
		byColumn := make(map[string]CategoricalSummary)
		for _, c := range f.Categorical {
			byColumn[c.Column] = c
		}
		assert.Equal(t, CategoricalSummary{Column: "brand", Unique: 3, Top: "MIA", Freq: 2}, byColumn["brand"])
		assert.Equal(t, CategoricalSummary{Column: "amcb", Unique: 2, Top: "A(1-10%)", Freq: 2}, byColumn["amcb"])
		assert.Equal(t, CategoricalSummary{Column: "region", Unique: 2, Top: "South", Freq: 2}, byColumn["region"])
		assert.NotContains(t, byColumn, "year", "numeric columns are not categorical")
		assert.NotContains(t, byColumn, "docdate")

		last := f.Categorical[len(f.Categorical)-1]
		assert.Equal(t, CategoricalSummary{Column: "discount", Unique: 8, Top: "bdisc, idisc, ghsdisc, obdisc", Freq: 16}, last)
	})

	t.Run("trend", func(t *testing.T) {
		require.NotNil(t, f.Trend)
		assert.Equal(t, "qty", f.Trend.Metric)
		assert.Equal(t, []TrendPoint{
			{Date: "2024-01-01", Value: 1},
			{Date: "2024-01-05", Value: 2},
			{Date: "2024-01-10", Value: -1},
			{Date: "2024-02-01", Value: 3},
		}, f.Trend.Points)
	})
}

func TestComputeExcludeNegatives(t *testing.T) {
	f, err := Compute(context.Background(), sampleTable(), Options{ExcludeNegatives: true, TrendMetric: "value"})
	require.NoError(t, err)

	assert.Equal(t, 3, f.Overview.Rows)
	require.NotNil(t, f.CustomerMix)
	assert.Equal(t, 3, f.CustomerMix.New)
	assert.Equal(t, 0, f.CustomerMix.Repeat)
	assert.Equal(t, []Amount{{"South", 4000}, {"North", 1000}}, f.Core.TopRegions)

	require.NotNil(t, f.Trend)
	assert.Equal(t, "value", f.Trend.Metric)
	assert.Len(t, f.Trend.Points, 3)
}

func TestComputeUnknownMetric(t *testing.T) {
	_, err := Compute(context.Background(), sampleTable(), Options{TrendMetric: "brand"})
	assert.ErrorIs(t, err, ErrUnknownMetric)

	assert.True(t, ValidMetric("discount"))
	assert.False(t, ValidMetric("docdate"))
}

func TestComputeMissingColumnsBecomeNotices(t *testing.T) {
	tbl := dataset.NewTable([]string{"qty", "value"}, [][]string{{"1", "100"}, {"2", "200"}})

	f, err := Compute(context.Background(), tbl, Options{})
	require.NoError(t, err)

	assert.Nil(t, f.CustomerMix)
	assert.Nil(t, f.Core)
	assert.Nil(t, f.Trend)
	assert.Empty(t, f.HighLevel)
	assert.Contains(t, f.Notices, Notice{Section: "customer_mix", Message: "Customer or Date column missing."})
	assert.Contains(t, f.Notices, Notice{Section: "trend", Message: `Column "docdate" missing.`})
	assert.Contains(t, f.Notices, Notice{Section: "high_level", Message: `Unique Brands skipped: Column "brand" missing.`})

	require.Len(t, f.Numeric, 2, "available measures are still described")
	assert.Equal(t, 150.0, f.Numeric[1].Mean)
}

func TestComputeCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Compute(ctx, sampleTable(), Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestValueCounts(t *testing.T) {
	got := valueCounts([]string{"b", "a", "b", "c", "a", "b"})
	assert.Equal(t, []Count{{"b", 3}, {"a", 2}, {"c", 1}}, got)
	assert.Equal(t, []Count{{"b", 3}}, head(got, 1))
	assert.Empty(t, valueCounts(nil))
}
