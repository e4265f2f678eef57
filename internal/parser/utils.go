package parser

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// naTokens 读取 CSV 时视为缺失的单元格文本
var naTokens = map[string]struct{}{
	"":         {},
	"#N/A":     {},
	"#N/A N/A": {},
	"#NA":      {},
	"-1.#IND":  {},
	"-1.#QNAN": {},
	"-NaN":     {},
	"-nan":     {},
	"1.#IND":   {},
	"1.#QNAN":  {},
	"<NA>":     {},
	"N/A":      {},
	"NA":       {},
	"NULL":     {},
	"NaN":      {},
	"None":     {},
	"n/a":      {},
	"nan":      {},
	"null":     {},
}

// IsMissing 判断单元格是否为缺失值
func IsMissing(cell string) bool {
	_, ok := naTokens[cell]
	return ok
}

// ParseNumber 将单元格转为数值，无法解析或非有限值（NaN、±Inf）时返回 false
func ParseNumber(cell string) (float64, bool) {
	if IsMissing(cell) {
		return 0, false
	}
	s := strings.TrimSpace(cell)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// NormalizeHeaders 规范化表头
//
// 空表头命名为 "Unnamed: <列序号>"，重复表头依次追加 ".1"、".2" 后缀，
// 最后去除首尾空白。
func NormalizeHeaders(raw []string) []string {
	headers := make([]string, len(raw))
	used := make(map[string]bool, len(raw))
	counts := make(map[string]int, len(raw))

	for i, name := range raw {
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		if used[name] {
			base := name
			n := counts[base]
			for {
				n++
				candidate := fmt.Sprintf("%s.%d", base, n)
				if !used[candidate] {
					name = candidate
					break
				}
			}
			counts[base] = n
		}
		used[name] = true
		headers[i] = name
	}

	for i := range headers {
		headers[i] = strings.TrimSpace(headers[i])
	}
	return headers
}

// IsHeaderLike 判断日期单元格是否为混入数据区的重复表头
func IsHeaderLike(dateCell string) bool {
	return strings.Contains(strings.ToLower(dateCell), "date")
}
