package calculator

import (
	"errors"
	"math"

	"enrollboard/internal/model"
)

// ErrEmptySeries 序列为空，无法取最新行
var ErrEmptySeries = errors.New("series has no rows")

// PercentChange 计算变化百分比 (current - base) / base * 100
// base 为 0 或结果非有限值时返回 false
func PercentChange(current, base float64) (float64, bool) {
	if base == 0 {
		return 0, false
	}
	rate := (current - base) / base * 100
	if math.IsNaN(rate) || math.IsInf(rate, 0) {
		return 0, false
	}
	return rate, true
}

// Round2 保留两位小数
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Calculator 同比 / 环比计算器
type Calculator struct {
	baseline model.Baseline
}

// NewCalculator 创建计算器
func NewCalculator(baseline model.Baseline) *Calculator {
	return &Calculator{
		baseline: baseline,
	}
}

// Compare 以最新一行对比上年基准
//
// 每个基准中心一条记录（按基准顺序），之后追加未对应任何基准的实时列。
// 实时值缺失时变化百分比为空，不按 0 处理。
func (c *Calculator) Compare(series *model.Series) ([]model.Comparison, error) {
	latest, ok := series.Latest()
	if !ok {
		return nil, ErrEmptySeries
	}

	columnOf := resolveColumns(series.Columns)
	used := make(map[int]bool, len(columnOf))

	result := make([]model.Comparison, 0, len(c.baseline)+len(series.Columns))
	for _, entry := range c.baseline {
		cmp := model.Comparison{
			Centre:   entry.Centre,
			Baseline: model.Float64Ptr(entry.Total),
		}
		if idx, ok := columnOf[entry.Centre]; ok {
			used[idx] = true
			cmp.Latest = model.Float64Ptr(latest.Values[idx])
			if rate, ok := PercentChange(latest.Values[idx], entry.Total); ok {
				cmp.PercentChange = model.Float64Ptr(Round2(rate))
			}
		}
		result = append(result, cmp)
	}

	// 实时数据中存在、但基准中没有的中心
	for idx, col := range series.Columns {
		if used[idx] {
			continue
		}
		if _, inBaseline := c.baseline.Lookup(col.Centre); inBaseline {
			continue
		}
		if i, ok := columnOf[col.Centre]; !ok || i != idx {
			continue
		}
		result = append(result, model.Comparison{
			Centre: col.Centre,
			Latest: model.Float64Ptr(latest.Values[idx]),
		})
	}

	return result, nil
}

// resolveColumns 中心代码 -> 列下标
// 多列命中同一中心时，列名与代码完全相同者优先，否则取最左侧一列
func resolveColumns(columns []model.CentreColumn) map[string]int {
	out := make(map[string]int, len(columns))
	for i, col := range columns {
		prev, ok := out[col.Centre]
		if !ok {
			out[col.Centre] = i
			continue
		}
		if columns[prev].Header != col.Centre && col.Header == col.Centre {
			out[col.Centre] = i
		}
	}
	return out
}

// Growth 计算每个中心列的环比增速
// 第 0 行全部为空；上一期为 0 时该点为空
func (c *Calculator) Growth(series *model.Series) *model.Growth {
	growth := &model.Growth{
		Columns: series.Columns,
		Rows:    make([]model.GrowthRow, len(series.Rows)),
	}
	for i, row := range series.Rows {
		values := make([]*float64, len(row.Values))
		if i > 0 {
			prev := series.Rows[i-1]
			for j, v := range row.Values {
				if rate, ok := PercentChange(v, prev.Values[j]); ok {
					values[j] = model.Float64Ptr(rate)
				}
			}
		}
		growth.Rows[i] = model.GrowthRow{Date: row.Date, Values: values}
	}
	return growth
}
