package parser

import (
	"errors"

	"enrollboard/internal/model"
)

var (
	// ErrEmptyTable 表格没有表头
	ErrEmptyTable = errors.New("sheet has no header row")
	// ErrNoCentreColumns 没有任何列命中中心代码
	ErrNoCentreColumns = errors.New("no centre columns found in sheet header")
	// ErrNoRows 清洗后没有剩余数据行
	ErrNoRows = errors.New("no complete data rows left after cleaning")
)

// Cleaner 将原始表格清洗为 Series
type Cleaner struct {
	matcher *CentreMatcher
}

// NewCleaner 创建清洗器
func NewCleaner(matcher *CentreMatcher) *Cleaner {
	return &Cleaner{matcher: matcher}
}

// Clean 清洗原始表格，table[0] 为表头
//
// 首列视为日期列；日期为空或含 "date" 的行被丢弃；仅保留命中中心代码的列；
// 任一中心列无法解析为数值的行整行丢弃。列顺序与原表一致。
func (c *Cleaner) Clean(table [][]string) (*model.Series, model.CleanStats, error) {
	var stats model.CleanStats
	if len(table) == 0 || len(table[0]) == 0 {
		return nil, stats, ErrEmptyTable
	}

	headers := NormalizeHeaders(table[0])

	// 识别中心列（首列为日期列，不参与匹配）
	var columns []model.CentreColumn
	var indexes []int
	for i := 1; i < len(headers); i++ {
		centre, ok := c.matcher.Match(headers[i])
		if !ok {
			stats.IgnoredColumns++
			continue
		}
		columns = append(columns, model.CentreColumn{Header: headers[i], Centre: centre})
		indexes = append(indexes, i)
	}
	stats.CentreColumns = len(columns)
	if len(columns) == 0 {
		return nil, stats, ErrNoCentreColumns
	}

	series := &model.Series{Columns: columns}
	for _, record := range table[1:] {
		stats.RawRows++

		date := cellAt(record, 0)
		if IsMissing(date) {
			stats.MissingDate++
			continue
		}
		if IsHeaderLike(date) {
			stats.HeaderLike++
			continue
		}

		values := make([]float64, len(indexes))
		complete := true
		for j, idx := range indexes {
			v, ok := ParseNumber(cellAt(record, idx))
			if !ok {
				complete = false
				break
			}
			values[j] = v
		}
		if !complete {
			stats.Incomplete++
			continue
		}

		series.Rows = append(series.Rows, model.Row{Date: date, Values: values})
	}
	stats.Kept = len(series.Rows)

	if len(series.Rows) == 0 {
		return series, stats, ErrNoRows
	}
	return series, stats, nil
}

// cellAt 越界的单元格视为空
func cellAt(record []string, idx int) string {
	if idx < len(record) {
		return record[idx]
	}
	return ""
}
