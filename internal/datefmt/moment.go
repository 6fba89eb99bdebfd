// Package datefmt formats calendar dates with moment-style patterns such as
// "YYYY-MM-DD" or "[birthday]-YYYY".
package datefmt

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"cloudeng.io/datetime"
	"github.com/nleeper/goment"
)

// ErrUnterminatedLiteral is returned for a pattern with an unclosed "[".
var ErrUnterminatedLiteral = errors.New("unterminated [ literal")

// Formatter renders a date through a pattern.
type Formatter interface {
	Format(pattern string, d datetime.CalendarDate) (string, error)
}

// Moment implements Formatter on goment with its English locale. Text inside
// [...] is copied verbatim; within it `\]` and `\\` escape. Each token is
// rendered by goment on its own. Dates carry no time of day, so time tokens
// render midnight in the local zone.
type Moment struct{}

// goment fills its token table on first use without a lock.
func init() {
	_, _ = goment.New()
}

// tokens is ordered longest first so that "MMMM" wins over "MM" and "M".
// It mirrors the tokens goment can format, plus the locale formats (L, LT...).
var tokens = []string{
	"YYYYYY",
	"YYYYY", "ggggg", "GGGGG",
	"YYYY", "MMMM", "DDDD", "DDDo", "dddd", "gggg", "GGGG", "zzzz", "LLLL", "llll",
	"MMM", "DDD", "ddd", "LTS", "LLL", "lll",
	"YY", "Mo", "MM", "Do", "DD", "dd", "do", "HH", "hh", "kk", "mm", "ss",
	"WW", "Wo", "ww", "wo", "Qo", "gg", "GG", "ZZ", "zz", "LT", "LL", "ll",
	"Y", "Q", "M", "D", "d", "e", "E", "w", "W", "H", "h", "k",
	"a", "A", "m", "s", "X", "x", "Z", "z", "L", "l",
}

// matchToken returns the longest token at the start of s, or "".
func matchToken(s string) string {
	for _, tok := range tokens {
		if strings.HasPrefix(s, tok) {
			return tok
		}
	}
	return ""
}

// scanLiteral reads a bracketed literal starting at s[0] == '['. It returns
// the unescaped text and the number of bytes consumed, or ok == false when
// the closing bracket is missing. Only `\]` and `\\` are escapes; any other
// backslash is kept.
func scanLiteral(s string) (text string, n int, ok bool) {
	var b strings.Builder
	for i := 1; i < len(s); i++ {
		switch c := s[i]; {
		case c == '\\' && i+1 < len(s) && (s[i+1] == ']' || s[i+1] == '\\'):
			i++
			b.WriteByte(s[i])
		case c == ']':
			return b.String(), i + 1, true
		default:
			b.WriteByte(c)
		}
	}
	return "", 0, false
}

func (Moment) Format(pattern string, d datetime.CalendarDate) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("format %q: %v", pattern, r)
		}
	}()
	g, err := goment.New(time.Date(d.Year(), time.Month(d.Month()), d.Day(), 0, 0, 0, 0, time.Local))
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for i := 0; i < len(pattern); {
		if pattern[i] == '[' {
			text, n, ok := scanLiteral(pattern[i:])
			if !ok {
				return "", fmt.Errorf("%w at offset %d", ErrUnterminatedLiteral, i)
			}
			b.WriteString(text)
			i += n
			continue
		}
		if tok := matchToken(pattern[i:]); tok != "" {
			b.WriteString(g.Format(tok))
			i += len(tok)
			continue
		}
		b.WriteByte(pattern[i])
		i++
	}
	return b.String(), nil
}
