package exporter

import (
	"bytes"
	"fmt"
	"io"
	"math"

	"github.com/wcharczuk/go-chart/v2"

	"enrollboard/internal/model"
)

const (
	chartWidth    = 1000
	chartHeight   = 420
	barWidth      = 28
	maxDateLabels = 12
)

// pngRenderer chart.Chart 与 chart.BarChart 共有的渲染方法
type pngRenderer interface {
	Render(rp chart.RendererProvider, w io.Writer) error
}

// chartImage 渲染好的 PNG 图表
type chartImage struct {
	Title string
	PNG   []byte
}

// renderCharts 渲染与页面相同的四张图，没有数据的图被跳过
func renderCharts(r *model.Report) ([]chartImage, error) {
	builders := []struct {
		title string
		build func(*model.Report) (pngRenderer, bool)
	}{
		{"Weekly Enrollment Trends", trendLines},
		{fmt.Sprintf("Total Enrollments %s vs %s", r.BaselineLabel, r.CurrentLabel), comparisonBars},
		{"% Change in Enrollments", changeBars},
		{"Weekly Growth Rate Trends by Centre", growthLines},
	}

	var images []chartImage
	for _, b := range builders {
		c, ok := b.build(r)
		if !ok {
			continue
		}
		setTitle(c, b.title)

		var buf bytes.Buffer
		if err := c.Render(chart.PNG, &buf); err != nil {
			return nil, fmt.Errorf("渲染图表 %s 失败: %w", b.title, err)
		}
		images = append(images, chartImage{Title: b.title, PNG: buf.Bytes()})
	}
	return images, nil
}

func setTitle(c pngRenderer, title string) {
	switch v := c.(type) {
	case *chart.Chart:
		v.Title = title
	case *chart.BarChart:
		v.Title = title
	}
}

// ---------- 折线图 ----------

// lineSeries 一条折线；Values 中 nil 的点不绘制
type lineSeries struct {
	Name   string
	Values []*float64
}

func trendLines(r *model.Report) (pngRenderer, bool) {
	series := make([]lineSeries, len(r.Series.Columns))
	for i, col := range r.Series.Columns {
		values := r.Series.Column(i)
		ptrs := make([]*float64, len(values))
		for j := range values {
			ptrs[j] = &values[j]
		}
		series[i] = lineSeries{Name: col.Header, Values: ptrs}
	}
	return lineChart(r.Series.Dates(), series)
}

func growthLines(r *model.Report) (pngRenderer, bool) {
	dates := make([]string, len(r.Growth.Rows))
	for i, row := range r.Growth.Rows {
		dates[i] = row.Date
	}
	series := make([]lineSeries, len(r.Growth.Columns))
	for j, col := range r.Growth.Columns {
		values := make([]*float64, len(r.Growth.Rows))
		for i, row := range r.Growth.Rows {
			values[i] = row.Values[j]
		}
		series[j] = lineSeries{Name: col.Header, Values: values}
	}
	return lineChart(dates, series)
}

func lineChart(dates []string, series []lineSeries) (pngRenderer, bool) {
	var all []float64
	var rendered []chart.Series
	for i, s := range series {
		var xs, ys []float64
		for x, v := range s.Values {
			if v == nil {
				continue
			}
			xs = append(xs, float64(x))
			ys = append(ys, *v)
		}
		if len(xs) == 0 {
			continue
		}
		all = append(all, ys...)

		color := chart.GetDefaultColor(i)
		rendered = append(rendered, chart.ContinuousSeries{
			Name:    s.Name,
			XValues: xs,
			YValues: ys,
			Style: chart.Style{
				StrokeColor: color,
				StrokeWidth: 2,
				DotColor:    color,
				DotWidth:    3,
			},
		})
	}
	if len(rendered) == 0 {
		return nil, false
	}

	graph := &chart.Chart{
		Width:  chartWidth,
		Height: chartHeight,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20},
		},
		XAxis: chart.XAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: math.Max(float64(len(dates)-1), 1)},
			Ticks: dateTicks(dates),
		},
		YAxis: chart.YAxis{
			Range: valueRange(all, false),
		},
		Series: rendered,
	}
	graph.Elements = []chart.Renderable{chart.Legend(graph)}
	return graph, true
}

// dateTicks 日期过多时按间隔抽取标签
func dateTicks(dates []string) []chart.Tick {
	step := 1
	if len(dates) > maxDateLabels {
		step = (len(dates) + maxDateLabels - 1) / maxDateLabels
	}
	ticks := make([]chart.Tick, 0, len(dates)/step+1)
	for i := 0; i < len(dates); i += step {
		ticks = append(ticks, chart.Tick{Value: float64(i), Label: dates[i]})
	}
	return ticks
}

// ---------- 柱状图 ----------

func comparisonBars(r *model.Report) (pngRenderer, bool) {
	var bars []chart.Value
	for _, c := range r.Comparisons {
		if c.Baseline != nil {
			bars = append(bars, bar(c.Centre+" "+r.BaselineLabel, *c.Baseline, 0))
		}
		if c.Latest != nil {
			bars = append(bars, bar(c.Centre+" "+r.CurrentLabel, *c.Latest, 1))
		}
	}
	return barChart(bars)
}

func changeBars(r *model.Report) (pngRenderer, bool) {
	changed := r.ChangedCentres()
	bars := make([]chart.Value, len(changed))
	for i, c := range changed {
		bars[i] = bar(c.Centre, *c.PercentChange, 2)
	}
	return barChart(bars)
}

func bar(label string, v float64, colorIndex int) chart.Value {
	color := chart.GetDefaultColor(colorIndex)
	return chart.Value{
		Label: label,
		Value: v,
		Style: chart.Style{FillColor: color, StrokeColor: color},
	}
}

func barChart(bars []chart.Value) (pngRenderer, bool) {
	if len(bars) == 0 {
		return nil, false
	}
	values := make([]float64, len(bars))
	for i, b := range bars {
		values[i] = b.Value
	}

	return &chart.BarChart{
		Width:  max(chartWidth, len(bars)*(barWidth+20)+200),
		Height: chartHeight,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20},
		},
		BarWidth:     barWidth,
		UseBaseValue: true,
		BaseValue:    0,
		YAxis: chart.YAxis{
			Range: valueRange(values, true),
		},
		Bars: bars,
	}, true
}

// valueRange Y 轴范围，留 10% 边距；includeZero 时范围包含 0
func valueRange(values []float64, includeZero bool) *chart.ContinuousRange {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if includeZero {
		lo = math.Min(lo, 0)
		hi = math.Max(hi, 0)
	}
	if lo == hi {
		lo, hi = lo-1, hi+1
	}

	pad := (hi - lo) * 0.1
	lower, upper := lo-pad, hi+pad
	if includeZero && lo == 0 {
		lower = 0
	}
	if includeZero && hi == 0 {
		upper = 0
	}
	return &chart.ContinuousRange{Min: lower, Max: upper}
}
