package parser

import (
	"fmt"
	"regexp"
	"strings"
)

// MatchMode 中心列匹配方式
type MatchMode string

const (
	// MatchSubstring 列名（大写）包含代码即命中，"output" 也会命中 TP
	MatchSubstring MatchMode = "substring"
	// MatchWord 代码两侧必须是非字母数字字符或列名边界
	MatchWord MatchMode = "word"
)

// ParseMatchMode 解析匹配方式，空值视为 substring
func ParseMatchMode(s string) (MatchMode, error) {
	switch MatchMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", MatchSubstring:
		return MatchSubstring, nil
	case MatchWord:
		return MatchWord, nil
	}
	return "", fmt.Errorf("unknown centre match mode %q", s)
}

// CentreMatcher 根据中心代码识别数据列
type CentreMatcher struct {
	tokens   []string
	mode     MatchMode
	patterns []*regexp.Regexp
}

// NewCentreMatcher 创建匹配器，tokens 的顺序决定命中优先级
func NewCentreMatcher(tokens []string, mode MatchMode) (*CentreMatcher, error) {
	if len(tokens) == 0 {
		return nil, fmt.Errorf("no centre tokens configured")
	}
	m := &CentreMatcher{
		tokens: make([]string, 0, len(tokens)),
		mode:   mode,
	}
	for _, tok := range tokens {
		tok = strings.ToUpper(strings.TrimSpace(tok))
		if tok == "" {
			return nil, fmt.Errorf("empty centre token")
		}
		m.tokens = append(m.tokens, tok)
		if mode == MatchWord {
			m.patterns = append(m.patterns, regexp.MustCompile(`(^|[^A-Z0-9])`+regexp.QuoteMeta(tok)+`([^A-Z0-9]|$)`))
		}
	}
	return m, nil
}

// Tokens 返回规范化后的代码
func (m *CentreMatcher) Tokens() []string {
	return append([]string(nil), m.tokens...)
}

// Mode 返回匹配方式
func (m *CentreMatcher) Mode() MatchMode {
	return m.mode
}

// Match 返回列名命中的中心代码
func (m *CentreMatcher) Match(header string) (string, bool) {
	upper := strings.ToUpper(header)
	for i, tok := range m.tokens {
		if m.mode == MatchWord {
			if m.patterns[i].MatchString(upper) {
				return tok, true
			}
			continue
		}
		if strings.Contains(upper, tok) {
			return tok, true
		}
	}
	return "", false
}
