package urlmatcher

import "strings"

const upperHex = "0123456789ABCDEF"

// encodeURIComponent percent-encodes everything except A-Z a-z 0-9 - _ . ! ~ * ' ( ).
func encodeURIComponent(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperHex[c>>4])
		b.WriteByte(upperHex[c&15])
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return strings.IndexByte("-_.!~*'()", c) >= 0
}

// encodeDashes encodes an array element so that its dashes survive joining with "-".
func encodeDashes(s string) string {
	return strings.ReplaceAll(encodeURIComponent(s), "-", "%5C%2D")
}

// decodePathArray splits on dashes not preceded by a backslash and unescapes "\-".
func decodePathArray(s string) []any {
	var (
		out []any
		cur strings.Builder
	)
	flush := func() {
		out = append(out, strings.ReplaceAll(cur.String(), `\-`, "-"))
		cur.Reset()
	}
	for i := 0; i < len(s); i++ {
		if s[i] == '-' && (i == 0 || s[i-1] != '\\') {
			flush()
			continue
		}
		cur.WriteByte(s[i])
	}
	flush()
	return out
}
