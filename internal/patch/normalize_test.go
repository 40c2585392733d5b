package patch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "a\nb", "a\nb"},
		{"crlf", "a\r\nb", "a\nb"},
		{"lone cr", "a\rb", "a\nb"},
		{"tab", "\tx", "    x"},
		{"mixed", "\ta\r\n\tb", "    a\n    b"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestFindAnchorPlain(t *testing.T) {
	m, ok := findAnchor("hello world", "world")
	require.True(t, ok)
	assert.Equal(t, 6, m.start)
	assert.Equal(t, 11, m.end)
	assert.Equal(t, 1, m.count)
}

func TestFindAnchorAbsent(t *testing.T) {
	_, ok := findAnchor("hello", "nope")
	assert.False(t, ok)
}

func TestFindAnchorEmptySearch(t *testing.T) {
	_, ok := findAnchor("hello", "")
	assert.False(t, ok)
}

func TestFindAnchorTabsBeforeMatch(t *testing.T) {
	// Tabs preceding the match expand during normalization; the mapped span
	// must still cover the original bytes exactly.
	content := "\tindented\nplain target here"
	m, ok := findAnchor(content, "target")
	require.True(t, ok)
	assert.Equal(t, "target", content[m.start:m.end])
}

func TestFindAnchorTabInsideMatch(t *testing.T) {
	// A search written with spaces matches original text written with a tab.
	content := "def f():\n\treturn 1"
	m, ok := findAnchor(content, "    return 1")
	require.True(t, ok)
	assert.Equal(t, "\treturn 1", content[m.start:m.end])
}

func TestFindAnchorCRLFContent(t *testing.T) {
	content := "a\r\nb\r\nc"
	m, ok := findAnchor(content, "b\nc")
	require.True(t, ok)
	assert.Equal(t, "b\r\nc", content[m.start:m.end])
}

func TestFindAnchorCountsOccurrences(t *testing.T) {
	m, ok := findAnchor("ab ab ab", "ab")
	require.True(t, ok)
	assert.Equal(t, 0, m.start)
	assert.Equal(t, 3, m.count)
}
