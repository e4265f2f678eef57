package render

import (
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"enrollboard/internal/model"
)

// emptyPoint echarts 中表示缺失点的取值
const emptyPoint = "-"

func boolPtr(b bool) *bool { return &b }

func baseOptions(title, height string) []charts.GlobalOpts {
	return []charts.GlobalOpts{
		charts.WithInitializationOpts(opts.Initialization{
			Width:  "100%",
			Height: height,
		}),
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: boolPtr(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: boolPtr(true), Top: "bottom"}),
		charts.WithGridOpts(opts.Grid{
			ContainLabel: boolPtr(true),
			Left:         "3%",
			Right:        "4%",
			Bottom:       "12%",
		}),
	}
}

// TrendChart 各中心随日期变化的折线图
func TrendChart(r *model.Report) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(append(baseOptions("", "420px"),
		charts.WithXAxisOpts(opts.XAxis{Name: model.DateColumn}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Enrollments"}),
	)...)

	line.SetXAxis(r.Series.Dates())
	for i, col := range r.Series.Columns {
		values := r.Series.Column(i)
		data := make([]opts.LineData, len(values))
		for j, v := range values {
			data[j] = opts.LineData{Value: v}
		}
		line.AddSeries(col.Header, data,
			charts.WithLineChartOpts(opts.LineChart{ShowSymbol: boolPtr(true)}))
	}
	return line
}

// ComparisonChart 上年与本年总数的分组柱状图
func ComparisonChart(r *model.Report) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(append(baseOptions("", "380px"),
		charts.WithXAxisOpts(opts.XAxis{Name: "Centre"}),
	)...)

	centres := make([]string, len(r.Comparisons))
	baseline := make([]opts.BarData, len(r.Comparisons))
	latest := make([]opts.BarData, len(r.Comparisons))
	for i, c := range r.Comparisons {
		centres[i] = c.Centre
		baseline[i] = barValue(c.Baseline)
		latest[i] = barValue(c.Latest)
	}

	bar.SetXAxis(centres).
		AddSeries(r.BaselineLabel, baseline).
		AddSeries(r.CurrentLabel, latest)
	return bar
}

// PercentChangeChart 变化百分比柱状图，省略无定义的中心
func PercentChangeChart(r *model.Report) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(append(baseOptions("", "380px"),
		charts.WithXAxisOpts(opts.XAxis{Name: "Centre"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Percent Change"}),
	)...)

	changed := r.ChangedCentres()
	centres := make([]string, len(changed))
	data := make([]opts.BarData, len(changed))
	for i, c := range changed {
		centres[i] = c.Centre
		data[i] = opts.BarData{Value: *c.PercentChange}
	}

	bar.SetXAxis(centres).AddSeries("Percent Change", data)
	return bar
}

// GrowthChart 各中心环比增速折线图
func GrowthChart(r *model.Report) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(append(baseOptions("", "420px"),
		charts.WithXAxisOpts(opts.XAxis{Name: model.DateColumn}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Growth %"}),
	)...)

	dates := make([]string, len(r.Growth.Rows))
	for i, row := range r.Growth.Rows {
		dates[i] = row.Date
	}
	line.SetXAxis(dates)

	for j, col := range r.Growth.Columns {
		data := make([]opts.LineData, len(r.Growth.Rows))
		for i, row := range r.Growth.Rows {
			if v := row.Values[j]; v != nil {
				data[i] = opts.LineData{Value: roundForDisplay(*v)}
			} else {
				data[i] = opts.LineData{Value: emptyPoint}
			}
		}
		line.AddSeries(col.Header, data)
	}
	return line
}

func barValue(v *float64) opts.BarData {
	if v == nil {
		return opts.BarData{Value: emptyPoint}
	}
	return opts.BarData{Value: *v}
}

// roundForDisplay 图表提示框中保留 4 位小数
func roundForDisplay(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
