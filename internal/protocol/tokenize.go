package protocol

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Tokenize splits a raw line into tokens.
//
// Whitespace outside double quotes separates tokens, quotes group and are
// removed, and a backslash takes the next character literally. A quoted
// empty string yields an empty token. Malformed input never fails: a
// trailing lone backslash is kept as a literal backslash and an unclosed
// quote extends to the end of the line. Bytes that are not valid UTF-8 are
// copied through unchanged.
func Tokenize(raw string) []string {
	var (
		tokens   []string
		cur      strings.Builder
		started  bool
		inQuotes bool
		escaped  bool
	)

	for i := 0; i < len(raw); {
		r, size := utf8.DecodeRuneInString(raw[i:])
		chunk := raw[i : i+size]
		i += size

		switch {
		case escaped:
			cur.WriteString(chunk)
			escaped = false
		case r == '\\':
			escaped = true
			started = true
		case r == '"':
			inQuotes = !inQuotes
			started = true
		case !inQuotes && unicode.IsSpace(r):
			if started {
				tokens = append(tokens, cur.String())
				cur.Reset()
				started = false
			}
		default:
			cur.WriteString(chunk)
			started = true
		}
	}

	if escaped {
		cur.WriteByte('\\')
	}
	if started {
		tokens = append(tokens, cur.String())
	}
	return tokens
}

// Quote returns tok in a form that Tokenize reads back as exactly one token
// equal to tok. Plain tokens are returned unchanged.
func Quote(tok string) string {
	if tok == "" {
		return `""`
	}
	if !needsQuoting(tok) {
		return tok
	}

	var b strings.Builder
	b.Grow(len(tok) + 2)
	b.WriteByte('"')
	for i := 0; i < len(tok); i++ {
		if c := tok[i]; c == '"' || c == '\\' {
			b.WriteByte('\\')
		}
		b.WriteByte(tok[i])
	}
	b.WriteByte('"')
	return b.String()
}

// Join quotes each token as needed and joins them with single spaces.
func Join(tokens ...string) string {
	quoted := make([]string, len(tokens))
	for i, t := range tokens {
		quoted[i] = Quote(t)
	}
	return strings.Join(quoted, " ")
}

func needsQuoting(tok string) bool {
	return strings.ContainsFunc(tok, func(r rune) bool {
		return r == '"' || r == '\\' || unicode.IsSpace(r)
	})
}
