package model

import "time"

// BaselineEntry 上年基准值
type BaselineEntry struct {
	Centre string  `json:"centre"`
	Total  float64 `json:"total"`
}

// Baseline 上年各中心总数，按配置顺序排列，运行期间只读
type Baseline []BaselineEntry

// Lookup 查找中心的基准值
func (b Baseline) Lookup(centre string) (float64, bool) {
	for _, e := range b {
		if e.Centre == centre {
			return e.Total, true
		}
	}
	return 0, false
}

// Centres 返回基准中的中心代码
func (b Baseline) Centres() []string {
	ids := make([]string, len(b))
	for i, e := range b {
		ids[i] = e.Centre
	}
	return ids
}

// Comparison 同比对比记录；nil 字段表示无定义
type Comparison struct {
	Centre        string   `json:"centre"`        // 中心代码
	Baseline      *float64 `json:"baseline"`      // 上年总数
	Latest        *float64 `json:"latest"`        // 本年最新值
	PercentChange *float64 `json:"percentChange"` // 变化百分比，保留两位小数
}

// Report 一次流水线运行的完整结果
type Report struct {
	RunID         string       `json:"runId"`
	GeneratedAt   time.Time    `json:"generatedAt"`
	Source        string       `json:"source"`
	BaselineLabel string       `json:"baselineLabel"` // 如 AY2024
	CurrentLabel  string       `json:"currentLabel"`  // 如 AY2025
	Series        *Series      `json:"series"`
	Comparisons   []Comparison `json:"comparisons"`
	Growth        *Growth      `json:"growth"`
	Stats         CleanStats   `json:"stats"`
}

// CleanStats 清洗统计
type CleanStats struct {
	RawRows        int `json:"rawRows"`        // 表头之外的原始行数
	MissingDate    int `json:"missingDate"`    // 日期为空被丢弃
	HeaderLike     int `json:"headerLike"`     // 日期含 "date" 被丢弃
	Incomplete     int `json:"incomplete"`     // 中心列存在缺失被丢弃
	Kept           int `json:"kept"`           // 保留行数
	CentreColumns  int `json:"centreColumns"`  // 命中的中心列数
	IgnoredColumns int `json:"ignoredColumns"` // 未命中而被忽略的列数
}

// ChangedCentres 返回有变化百分比的对比记录
func (r *Report) ChangedCentres() []Comparison {
	out := make([]Comparison, 0, len(r.Comparisons))
	for _, c := range r.Comparisons {
		if c.PercentChange != nil {
			out = append(out, c)
		}
	}
	return out
}
