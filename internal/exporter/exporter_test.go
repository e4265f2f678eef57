package exporter

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"enrollboard/internal/model"
)

func testReport() *model.Report {
	cols := []model.CentreColumn{
		{Header: "PR1", Centre: "PR1"},
		{Header: "TP", Centre: "TP"},
	}
	return &model.Report{
		RunID:         "run-1",
		GeneratedAt:   time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
		Source:        "https://sheets.example.test/export?format=csv",
		BaselineLabel: "AY2024",
		CurrentLabel:  "AY2025",
		Series: &model.Series{
			Columns: cols,
			Rows: []model.Row{
				{Date: "01/01", Values: []float64{10, 20}},
				{Date: "01/08", Values: []float64{15, 22}},
			},
		},
		Comparisons: []model.Comparison{
			{Centre: "PR1", Baseline: model.Float64Ptr(361), Latest: model.Float64Ptr(15), PercentChange: model.Float64Ptr(-95.84)},
			{Centre: "SN", Baseline: model.Float64Ptr(82)},
		},
		Growth: &model.Growth{
			Columns: cols,
			Rows: []model.GrowthRow{
				{Date: "01/01", Values: []*float64{nil, nil}},
				{Date: "01/08", Values: []*float64{model.Float64Ptr(50), model.Float64Ptr(10)}},
			},
		},
		Stats: model.CleanStats{RawRows: 3, HeaderLike: 1, Kept: 2, CentreColumns: 2},
	}
}

func exportAndReopen(t *testing.T, opts ExportOptions) *excelize.File {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, NewExporter("Enrollment Dashboard").Write(&buf, testReport(), opts))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func cellValue(t *testing.T, f *excelize.File, sheet, cell string) string {
	t.Helper()
	v, err := f.GetCellValue(sheet, cell, excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	return v
}

func TestExport_Sheets(t *testing.T) {
	t.Parallel()

	f := exportAndReopen(t, ExportOptions{})
	assert.Equal(t,
		[]string{SheetTrend, SheetComparison, SheetGrowth, SheetCharts, SheetInfo},
		f.GetSheetList())
}

func TestExport_TrendAndComparison(t *testing.T) {
	t.Parallel()

	f := exportAndReopen(t, ExportOptions{})

	// 表头与数据列对齐：B 列为 PR1，C 列为 TP，之后没有多余表头
	assert.Equal(t, "Date", cellValue(t, f, SheetTrend, "A1"))
	assert.Equal(t, "PR1", cellValue(t, f, SheetTrend, "B1"))
	assert.Equal(t, "TP", cellValue(t, f, SheetTrend, "C1"))
	assert.Empty(t, cellValue(t, f, SheetTrend, "D1"))
	assert.Equal(t, "10", cellValue(t, f, SheetTrend, "B2"))
	assert.Equal(t, "20", cellValue(t, f, SheetTrend, "C2"))
	assert.Equal(t, "01/08", cellValue(t, f, SheetTrend, "A3"))
	assert.Equal(t, "22", cellValue(t, f, SheetTrend, "C3"))

	assert.Equal(t, "AY2024", cellValue(t, f, SheetComparison, "B1"))
	assert.Equal(t, "AY2025", cellValue(t, f, SheetComparison, "C1"))
	assert.Equal(t, "-95.84", cellValue(t, f, SheetComparison, "D2"))

	// SN 无实时值：本年与变化率为空单元格
	assert.Equal(t, "SN", cellValue(t, f, SheetComparison, "A3"))
	assert.Equal(t, "82", cellValue(t, f, SheetComparison, "B3"))
	assert.Empty(t, cellValue(t, f, SheetComparison, "C3"))
	assert.Empty(t, cellValue(t, f, SheetComparison, "D3"))
}

func TestExport_GrowthFirstRowBlank(t *testing.T) {
	t.Parallel()

	f := exportAndReopen(t, ExportOptions{})
	assert.Empty(t, cellValue(t, f, SheetGrowth, "B2"))
	assert.Empty(t, cellValue(t, f, SheetGrowth, "C2"))
	assert.Equal(t, "50", cellValue(t, f, SheetGrowth, "B3"))
	assert.Equal(t, "10", cellValue(t, f, SheetGrowth, "C3"))
}

func TestExport_ChartsAndInfo(t *testing.T) {
	t.Parallel()

	f := exportAndReopen(t, ExportOptions{})
	for _, cell := range []string{"A1", "A25", "A49", "A73"} {
		pics, err := f.GetPictures(SheetCharts, cell)
		require.NoError(t, err)
		require.Len(t, pics, 1, cell)
		assert.NotEmpty(t, pics[0].File)
	}

	assert.Equal(t, "run-1", cellValue(t, f, SheetInfo, "B2"))
	assert.Equal(t, "2", cellValue(t, f, SheetInfo, "B6"))
}

func TestExport_SkipChartsAndProgress(t *testing.T) {
	t.Parallel()

	var events []ProgressEvent
	f := exportAndReopen(t, ExportOptions{
		SkipCharts: true,
		Progress:   func(e ProgressEvent) { events = append(events, e) },
	})
	assert.NotContains(t, f.GetSheetList(), SheetCharts)

	require.NotEmpty(t, events)
	for i := 1; i < len(events); i++ {
		assert.Greater(t, events[i].Percent, events[i-1].Percent)
	}
	assert.Equal(t, 100, events[len(events)-1].Percent)
}

func TestExport_IncompleteReport(t *testing.T) {
	t.Parallel()

	_, err := NewExporter("t").Export(&model.Report{}, ExportOptions{})
	assert.Error(t, err)
}

func TestRenderCharts_SkipsEmptyCharts(t *testing.T) {
	t.Parallel()

	r := testReport()
	r.Comparisons[0].PercentChange = nil
	r.Growth.Rows[1].Values = []*float64{nil, nil}

	images, err := renderCharts(r)
	require.NoError(t, err)
	require.Len(t, images, 2)
	assert.Equal(t, "Weekly Enrollment Trends", images[0].Title)
	assert.Equal(t, "Total Enrollments AY2024 vs AY2025", images[1].Title)
}

func TestValueRange(t *testing.T) {
	t.Parallel()

	r := valueRange([]float64{10, 20}, true)
	assert.Equal(t, 0.0, r.Min)
	assert.InDelta(t, 22.0, r.Max, 1e-9)

	r = valueRange([]float64{-50, -10}, true)
	assert.InDelta(t, -55.0, r.Min, 1e-9)
	assert.Equal(t, 0.0, r.Max)

	r = valueRange([]float64{5}, false)
	assert.Less(t, r.Min, 5.0)
	assert.Greater(t, r.Max, 5.0)
}

func TestFilename(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "enrollment-report-20250301-090000.xlsx", Filename(testReport()))
}
