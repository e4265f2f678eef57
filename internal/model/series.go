package model

// DateColumn 日期列的规范名称
const DateColumn = "Date"

// CentreColumn 中心数据列
type CentreColumn struct {
	Header string `json:"header"` // 清洗后的列名（保留原始写法，如 "PR1 (new)"）
	Centre string `json:"centre"` // 命中的中心代码（如 PR1）
}

// Row 一行数据：日期标签 + 各中心数值
type Row struct {
	Date   string    `json:"date"`   // 日期标签，原样保留
	Values []float64 `json:"values"` // 与 Series.Columns 一一对应
}

// Series 清洗后的时间序列
//
// 不变式：每一行日期非空，且每个中心列都有有效数值。
type Series struct {
	Columns []CentreColumn `json:"columns"`
	Rows    []Row          `json:"rows"`
}

// Len 行数
func (s *Series) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Rows)
}

// Headers 返回列名，首列为 Date
func (s *Series) Headers() []string {
	headers := make([]string, 0, len(s.Columns)+1)
	headers = append(headers, DateColumn)
	for _, col := range s.Columns {
		headers = append(headers, col.Header)
	}
	return headers
}

// Dates 返回全部日期标签
func (s *Series) Dates() []string {
	dates := make([]string, len(s.Rows))
	for i, row := range s.Rows {
		dates[i] = row.Date
	}
	return dates
}

// Column 返回第 idx 个中心列的全部数值
func (s *Series) Column(idx int) []float64 {
	values := make([]float64, len(s.Rows))
	for i, row := range s.Rows {
		values[i] = row.Values[idx]
	}
	return values
}

// Latest 返回最后一行
func (s *Series) Latest() (Row, bool) {
	if s.Len() == 0 {
		return Row{}, false
	}
	return s.Rows[len(s.Rows)-1], true
}

// GrowthRow 环比增速行；nil 表示无定义
type GrowthRow struct {
	Date   string     `json:"date"`
	Values []*float64 `json:"values"`
}

// Growth 与 Series 平行的增速序列
type Growth struct {
	Columns []CentreColumn `json:"columns"`
	Rows    []GrowthRow    `json:"rows"`
}

// Float64Ptr 返回 v 的指针
func Float64Ptr(v float64) *float64 {
	return &v
}
