package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var defaultTokens = []string{"PR1", "PR2", "TP", "WD", "CCK", "JW", "OL"}

func TestCentreMatcher_Substring(t *testing.T) {
	t.Parallel()

	m, err := NewCentreMatcher(defaultTokens, MatchSubstring)
	require.NoError(t, err)

	tests := []struct {
		header string
		centre string
		ok     bool
	}{
		{"PR1", "PR1", true},
		{"PR1 (new)", "PR1", true},
		{"tp-extra", "TP", true},
		// 已知的过度匹配：子串模式下 output 也会命中 TP
		{"output", "TP", true},
		{"template", "", false},
		{"cck", "CCK", true},
		{"Total", "", false},
		{"SN", "", false},
	}
	for _, tt := range tests {
		centre, ok := m.Match(tt.header)
		assert.Equal(t, tt.ok, ok, "header %q", tt.header)
		assert.Equal(t, tt.centre, centre, "header %q", tt.header)
	}
}

func TestCentreMatcher_Word(t *testing.T) {
	t.Parallel()

	m, err := NewCentreMatcher(defaultTokens, MatchWord)
	require.NoError(t, err)

	centre, ok := m.Match("tp-extra")
	assert.True(t, ok)
	assert.Equal(t, "TP", centre)

	centre, ok = m.Match("PR1 (new)")
	assert.True(t, ok)
	assert.Equal(t, "PR1", centre)

	_, ok = m.Match("output")
	assert.False(t, ok)

	_, ok = m.Match("TPX")
	assert.False(t, ok)
}

func TestCentreMatcher_TokenOrderWins(t *testing.T) {
	t.Parallel()

	m, err := NewCentreMatcher([]string{"OL", "JW"}, MatchSubstring)
	require.NoError(t, err)

	centre, ok := m.Match("JW/OL combined")
	require.True(t, ok)
	assert.Equal(t, "OL", centre)
}

func TestNewCentreMatcher_Invalid(t *testing.T) {
	t.Parallel()

	_, err := NewCentreMatcher(nil, MatchSubstring)
	assert.Error(t, err)

	_, err = NewCentreMatcher([]string{"PR1", " "}, MatchSubstring)
	assert.Error(t, err)
}

func TestParseMatchMode(t *testing.T) {
	t.Parallel()

	mode, err := ParseMatchMode("")
	require.NoError(t, err)
	assert.Equal(t, MatchSubstring, mode)

	mode, err = ParseMatchMode("Word")
	require.NoError(t, err)
	assert.Equal(t, MatchWord, mode)

	_, err = ParseMatchMode("regex")
	assert.Error(t, err)
}
