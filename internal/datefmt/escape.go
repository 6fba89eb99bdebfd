package datefmt

import (
	"strings"

	"cloudeng.io/datetime"
)

// EscapeLiteral rewrites a user pattern so that only recognized tokens and
// already bracketed runs are interpreted; every other run of characters is
// wrapped in brackets. Brackets and backslashes inside a wrapped run are
// escaped so the run cannot close early.
//
//	"[birthday]-YYYY"  -> "[birthday][-]YYYY"
//	"YYYY (农历)"       -> "YYYY[ (农历)]"
func EscapeLiteral(pattern string) string {
	var out, lit strings.Builder
	flush := func() {
		if lit.Len() == 0 {
			return
		}
		out.WriteByte('[')
		out.WriteString(lit.String())
		out.WriteByte(']')
		lit.Reset()
	}
	for i := 0; i < len(pattern); {
		if pattern[i] == '[' {
			if _, n, ok := scanLiteral(pattern[i:]); ok {
				flush()
				out.WriteString(pattern[i : i+n])
				i += n
				continue
			}
		}
		if tok := matchToken(pattern[i:]); tok != "" {
			flush()
			out.WriteString(tok)
			i += len(tok)
			continue
		}
		switch c := pattern[i]; c {
		case ']', '\\':
			lit.WriteByte('\\')
			lit.WriteByte(c)
		default:
			lit.WriteByte(c)
		}
		i++
	}
	flush()
	return out.String()
}

// Render escapes pattern and formats d through f. It is the entry point for
// output keys, output values and previews alike.
func Render(f Formatter, pattern string, d datetime.CalendarDate) (string, error) {
	return f.Format(EscapeLiteral(pattern), d)
}
