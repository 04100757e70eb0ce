// Package format prepares outgoing message text.
package format

import (
	"strings"
	"unicode/utf8"
)

// MaxMessageLen is Telegram's limit for a text message, in characters.
const MaxMessageLen = 4096

// JoinBlocks concatenates blocks with sep into messages of at most limit
// characters. A block is never split unless it alone exceeds limit, in which
// case it is cut on rune boundaries. limit <= 0 means MaxMessageLen.
func JoinBlocks(blocks []string, sep string, limit int) []string {
	if limit <= 0 {
		limit = MaxMessageLen
	}
	var (
		out []string
		cur strings.Builder
		n   int
	)
	flush := func() {
		if cur.Len() > 0 {
			out = append(out, cur.String())
			cur.Reset()
			n = 0
		}
	}
	sepLen := utf8.RuneCountInString(sep)
	for _, b := range blocks {
		bl := utf8.RuneCountInString(b)
		if bl > limit {
			flush()
			out = append(out, cutRunes(b, limit)...)
			continue
		}
		if n > 0 && n+sepLen+bl > limit {
			flush()
		}
		if n > 0 {
			cur.WriteString(sep)
			n += sepLen
		}
		cur.WriteString(b)
		n += bl
	}
	flush()
	return out
}

func cutRunes(s string, limit int) []string {
	var out []string
	for s != "" {
		i, count := 0, 0
		for i < len(s) && count < limit {
			_, size := utf8.DecodeRuneInString(s[i:])
			i += size
			count++
		}
		out = append(out, s[:i])
		s = s[i:]
	}
	return out
}
