// Package query evaluates the small filter and sort language used for sources
// that have no query engine of their own (files and REST APIs).
package query

import (
	"regexp"
	"strings"
	"unicode"
)

type Operator string

const (
	OpEq   Operator = "="
	OpNe   Operator = "!="
	OpGt   Operator = ">"
	OpLt   Operator = "<"
	OpGe   Operator = ">="
	OpLe   Operator = "<="
	OpLike Operator = "LIKE"
	OpIn   Operator = "IN"
)

// Condition is one field-operator-value clause.
type Condition struct {
	Field string
	Op    Operator
	Value string
	// Values holds the IN list.
	Values []string
	// Null is set when the literal is an unquoted NULL.
	Null bool

	pattern *regexp.Regexp
}

// Filter is a conjunction of conditions. Skipped lists fragments that could not be parsed;
// they impose no constraint.
type Filter struct {
	Conditions []Condition
	Skipped    []string
}

func (f Filter) Empty() bool { return len(f.Conditions) == 0 }

var fieldPattern = regexp.MustCompile(`^[A-Za-z_@$][\w.$@-]*`)

// symbolic operators, longest first
var symbolOps = []struct {
	text string
	op   Operator
}{
	{">=", OpGe},
	{"<=", OpLe},
	{"<>", OpNe},
	{"!=", OpNe},
	{"=", OpEq},
	{">", OpGt},
	{"<", OpLt},
}

// ParseWhere splits where on AND and parses every clause.
func ParseWhere(where string) Filter {
	var f Filter
	for _, frag := range splitAnd(where) {
		frag = strings.TrimSpace(frag)
		if frag == "" {
			continue
		}
		cond, ok := parseCondition(frag)
		if !ok {
			f.Skipped = append(f.Skipped, frag)
			continue
		}
		f.Conditions = append(f.Conditions, cond)
	}
	return f
}

// splitAnd splits on the AND keyword outside quotes and parentheses.
func splitAnd(s string) []string {
	var (
		parts []string
		start int
		quote rune
		depth int
	)
	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"':
			quote = r
		case r == '(':
			depth++
		case r == ')':
			if depth > 0 {
				depth--
			}
		case depth == 0 && isAndAt(runes, i):
			parts = append(parts, string(runes[start:i]))
			i += 2
			start = i + 1
		}
	}
	return append(parts, string(runes[start:]))
}

func isAndAt(runes []rune, i int) bool {
	if i+3 > len(runes) || !strings.EqualFold(string(runes[i:i+3]), "and") {
		return false
	}
	if i == 0 || !unicode.IsSpace(runes[i-1]) {
		return false
	}
	return i+3 < len(runes) && unicode.IsSpace(runes[i+3])
}

func parseCondition(frag string) (Condition, bool) {
	field := fieldPattern.FindString(frag)
	if field == "" {
		return Condition{}, false
	}
	rest := strings.TrimSpace(frag[len(field):])

	for _, so := range symbolOps {
		if strings.HasPrefix(rest, so.text) {
			return literalCondition(field, so.op, strings.TrimSpace(rest[len(so.text):]))
		}
	}

	upper := strings.ToUpper(rest)
	switch {
	case strings.HasPrefix(upper, "LIKE") && len(rest) > 4 && unicode.IsSpace(rune(rest[4])):
		cond, ok := literalCondition(field, OpLike, strings.TrimSpace(rest[4:]))
		if !ok || cond.Null {
			return Condition{}, false
		}
		cond.pattern = likePattern(cond.Value)
		return cond, true
	case strings.HasPrefix(upper, "IN"):
		list := strings.TrimSpace(rest[2:])
		if len(list) < 2 || list[0] != '(' || list[len(list)-1] != ')' {
			return Condition{}, false
		}
		values := splitList(list[1 : len(list)-1])
		if len(values) == 0 {
			return Condition{}, false
		}
		return Condition{Field: field, Op: OpIn, Values: values}, true
	}
	return Condition{}, false
}

func literalCondition(field string, op Operator, lit string) (Condition, bool) {
	if lit == "" {
		return Condition{}, false
	}
	if strings.EqualFold(lit, "null") {
		if op != OpEq && op != OpNe {
			return Condition{}, false
		}
		return Condition{Field: field, Op: op, Null: true}, true
	}
	return Condition{Field: field, Op: op, Value: unquote(lit)}, true
}

func unquote(s string) string {
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if (first == '\'' && last == '\'') || (first == '"' && last == '"') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// splitList splits a comma separated IN list, honoring quotes.
func splitList(s string) []string {
	var (
		out   []string
		cur   strings.Builder
		quote rune
	)
	flush := func() {
		item := strings.TrimSpace(cur.String())
		if item != "" {
			out = append(out, unquote(item))
		}
		cur.Reset()
	}
	for _, r := range s {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
			cur.WriteRune(r)
		case r == '\'' || r == '"':
			quote = r
			cur.WriteRune(r)
		case r == ',':
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return out
}

// likePattern turns a SQL LIKE pattern into an anchored, case-insensitive regexp.
func likePattern(p string) *regexp.Regexp {
	var b strings.Builder
	b.WriteString(`(?is)^`)
	for _, r := range p {
		switch r {
		case '%':
			b.WriteString(`.*`)
		case '_':
			b.WriteString(`.`)
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString(`$`)
	return regexp.MustCompile(b.String())
}
