package patch

import "strings"

const tabWidth = 4

// Normalize canonicalizes text for fuzzy comparison: CRLF and lone CR become
// LF, tabs expand to four spaces. It is used only to locate matches, never to
// produce output text.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\r':
			b.WriteByte('\n')
			if i+1 < len(s) && s[i+1] == '\n' {
				i++
			}
		case '\t':
			b.WriteString("    ")
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

// match describes where a normalized search hit maps back into the original,
// un-normalized text.
type match struct {
	start int // byte offset of the matched span in the original text
	end   int // byte offset just past the matched span
	count int // total occurrences of the search in the normalized text
}

// findAnchor locates the first occurrence of search within content, comparing
// both in normalized form. Offsets are mapped back to the original text
// through a per-byte origin table, so tabs and CRLF sequences before or
// inside the match do not skew the span. The second return is false when the
// anchor is absent.
func findAnchor(content, search string) (match, bool) {
	normSearch := Normalize(search)
	if normSearch == "" {
		return match{}, false
	}

	// Build the normalized content alongside a table mapping each normalized
	// byte to the offset of the original byte it came from.
	norm := make([]byte, 0, len(content))
	origin := make([]int, 0, len(content))
	for i := 0; i < len(content); i++ {
		switch content[i] {
		case '\r':
			norm = append(norm, '\n')
			origin = append(origin, i)
			if i+1 < len(content) && content[i+1] == '\n' {
				i++
			}
		case '\t':
			for j := 0; j < tabWidth; j++ {
				norm = append(norm, ' ')
				origin = append(origin, i)
			}
		default:
			norm = append(norm, content[i])
			origin = append(origin, i)
		}
	}

	normContent := string(norm)
	idx := strings.Index(normContent, normSearch)
	if idx < 0 {
		return match{}, false
	}

	m := match{
		start: origin[idx],
		count: strings.Count(normContent, normSearch),
	}
	endIdx := idx + len(normSearch)
	if endIdx < len(origin) {
		m.end = origin[endIdx]
	} else {
		m.end = len(content)
	}
	return m, true
}
