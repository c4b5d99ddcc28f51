package sqlagent

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

var ErrUnsafeSQL = errors.New("unsafe sql")

var readOnlyStarts = map[string]bool{
	"SELECT": true, "WITH": true, "EXPLAIN": true, "SHOW": true, "VALUES": true, "TABLE": true,
}

var writeKeywords = map[string]bool{
	"INSERT": true, "UPDATE": true, "DELETE": true, "DROP": true, "ALTER": true, "TRUNCATE": true,
	"CREATE": true, "GRANT": true, "REVOKE": true, "MERGE": true, "COPY": true, "CALL": true, "DO": true,
}

// Guard vets generated SQL before execution. With ReadOnly set it admits a
// single read statement only; otherwise it only enforces a single statement.
type Guard struct {
	ReadOnly bool
}

func NewGuard(readOnly bool) *Guard {
	return &Guard{ReadOnly: readOnly}
}

func (g *Guard) Check(sql string) error {
	words, statements := scan(sql)
	if statements == 0 {
		return fmt.Errorf("%w: empty statement", ErrUnsafeSQL)
	}
	if statements > 1 {
		return fmt.Errorf("%w: multiple statements are not allowed", ErrUnsafeSQL)
	}
	if !g.ReadOnly {
		return nil
	}
	if len(words) == 0 {
		return fmt.Errorf("%w: not a query", ErrUnsafeSQL)
	}
	if !readOnlyStarts[words[0]] {
		return fmt.Errorf("%w: %s statements are not allowed in read-only mode", ErrUnsafeSQL, words[0])
	}
	for _, w := range words {
		if writeKeywords[w] {
			return fmt.Errorf("%w: %s is not allowed in read-only mode", ErrUnsafeSQL, w)
		}
	}
	return nil
}

// scan returns the upper-cased bare words of sql, skipping string literals,
// quoted identifiers and comments, plus the number of non-empty statements.
func scan(sql string) ([]string, int) {
	var (
		words      []string
		statements int
		hasContent bool
	)
	rs := []rune(sql)
	n := len(rs)
	for i := 0; i < n; {
		c := rs[i]
		switch {
		case c == '-' && i+1 < n && rs[i+1] == '-':
			for i < n && rs[i] != '\n' {
				i++
			}
		case c == '/' && i+1 < n && rs[i+1] == '*':
			i += 2
			for i < n && !(rs[i] == '*' && i+1 < n && rs[i+1] == '/') {
				i++
			}
			i += 2
		case c == '\'' || c == '"':
			hasContent = true
			i = skipQuoted(rs, i, c)
		case c == '$':
			hasContent = true
			i = skipDollar(rs, i)
		case c == ';':
			if hasContent {
				statements++
			}
			hasContent = false
			i++
		case isWordRune(c):
			start := i
			for i < n && isWordRune(rs[i]) {
				i++
			}
			hasContent = true
			word := strings.ToUpper(string(rs[start:i]))
			if word == "E" && i < n && rs[i] == '\'' {
				i = skipEscaped(rs, i)
				continue
			}
			words = append(words, word)
		case unicode.IsSpace(c):
			i++
		default:
			hasContent = true
			i++
		}
	}
	if hasContent {
		statements++
	}
	return words, statements
}

// skipQuoted advances past a quoted run starting at rs[i]; doubled quotes escape.
func skipQuoted(rs []rune, i int, q rune) int {
	i++
	for i < len(rs) {
		if rs[i] == q {
			if i+1 < len(rs) && rs[i+1] == q {
				i += 2
				continue
			}
			return i + 1
		}
		i++
	}
	return i
}

// skipEscaped advances past an E'...' body where backslash escapes the next
// rune, including a quote.
func skipEscaped(rs []rune, i int) int {
	i++
	for i < len(rs) {
		switch rs[i] {
		case '\\':
			i += 2
			continue
		case '\'':
			if i+1 < len(rs) && rs[i+1] == '\'' {
				i += 2
				continue
			}
			return i + 1
		}
		i++
	}
	return len(rs)
}

// skipDollar handles $tag$...$tag$ bodies and $1 style parameters.
func skipDollar(rs []rune, i int) int {
	j := i + 1
	for j < len(rs) && (isWordRune(rs[j]) && !unicode.IsDigit(rs[j]) || (j > i+1 && unicode.IsDigit(rs[j]))) {
		j++
	}
	if j >= len(rs) || rs[j] != '$' {
		for j < len(rs) && unicode.IsDigit(rs[j]) {
			j++
		}
		return j
	}
	tag := string(rs[i : j+1])
	rest := string(rs[j+1:])
	idx := strings.Index(rest, tag)
	if idx < 0 {
		return len(rs)
	}
	return j + 1 + len([]rune(rest[:idx])) + len([]rune(tag))
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
