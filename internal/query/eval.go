package query

import (
	"sort"
	"strconv"
	"strings"

	"dataport/internal/schema"
)

// Lookup resolves a possibly dotted field against a record. Flattened keys win;
// otherwise the path is walked into JSON values.
func Lookup(rec schema.Record, field string) schema.Value {
	if v, ok := rec[field]; ok {
		return v
	}
	parts := strings.Split(field, ".")
	for i := len(parts) - 1; i > 0; i-- {
		head := strings.Join(parts[:i], ".")
		v, ok := rec[head]
		if !ok {
			continue
		}
		if v.Kind != schema.KindJSON {
			return schema.Null()
		}
		inner, found := schema.Resolve(v.JSON, strings.Join(parts[i:], "."))
		if !found {
			return schema.Null()
		}
		return schema.FromNative(inner)
	}
	return schema.Null()
}

// Match reports whether rec satisfies every condition.
func (f Filter) Match(rec schema.Record) bool {
	for _, c := range f.Conditions {
		if !c.Match(Lookup(rec, c.Field)) {
			return false
		}
	}
	return true
}

func (c Condition) Match(v schema.Value) bool {
	if c.Null {
		if c.Op == OpEq {
			return v.IsNull()
		}
		return !v.IsNull()
	}
	if v.IsNull() {
		return false
	}

	switch c.Op {
	case OpLike:
		return c.pattern.MatchString(v.Text())
	case OpIn:
		for _, item := range c.Values {
			if cmp, ok := compareLiteral(v, item); ok && cmp == 0 {
				return true
			}
		}
		return false
	}

	cmp, ok := compareLiteral(v, c.Value)
	if !ok {
		return false
	}
	switch c.Op {
	case OpEq:
		return cmp == 0
	case OpNe:
		return cmp != 0
	case OpGt:
		return cmp > 0
	case OpLt:
		return cmp < 0
	case OpGe:
		return cmp >= 0
	case OpLe:
		return cmp <= 0
	}
	return false
}

// compareLiteral compares a value against a literal, coercing the literal to the value's kind.
func compareLiteral(v schema.Value, lit string) (int, bool) {
	switch v.Kind {
	case schema.KindNumber:
		if f, err := strconv.ParseFloat(strings.TrimSpace(lit), 64); err == nil {
			return compareFloat(v.Num, f), true
		}
	case schema.KindBool:
		if b, err := strconv.ParseBool(strings.TrimSpace(lit)); err == nil {
			return compareFloat(boolNum(v.Bool), boolNum(b)), true
		}
	case schema.KindDate:
		if t, ok := schema.CommonDate(lit); ok {
			return v.Time.Compare(t), true
		}
	case schema.KindString:
		if f, ok := v.Float(); ok {
			if g, err := strconv.ParseFloat(strings.TrimSpace(lit), 64); err == nil {
				return compareFloat(f, g), true
			}
		}
	}
	return strings.Compare(v.Text(), lit), true
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func boolNum(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// Order is a single-field sort.
type Order struct {
	Field string
	Desc  bool
}

// ParseOrderBy reads "field [ASC|DESC]". Only the first comma separated term is used.
func ParseOrderBy(s string) (Order, bool) {
	term := strings.TrimSpace(strings.SplitN(s, ",", 2)[0])
	if term == "" {
		return Order{}, false
	}
	fields := strings.Fields(term)
	o := Order{Field: unquote(fields[0])}
	if len(fields) > 1 && strings.EqualFold(fields[1], "desc") {
		o.Desc = true
	}
	return o, true
}

// Sort orders records in place, stably. Nulls go last in either direction.
func (o Order) Sort(records []schema.Record) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := Lookup(records[i], o.Field), Lookup(records[j], o.Field)
		switch {
		case a.IsNull() && b.IsNull():
			return false
		case a.IsNull():
			return false
		case b.IsNull():
			return true
		}
		cmp := CompareValues(a, b)
		if o.Desc {
			return cmp > 0
		}
		return cmp < 0
	})
}

// CompareValues orders two non-null values: numerically when both read as numbers,
// by time when both are dates, otherwise by text.
func CompareValues(a, b schema.Value) int {
	if a.Kind == schema.KindDate && b.Kind == schema.KindDate {
		return a.Time.Compare(b.Time)
	}
	if fa, ok := a.Float(); ok {
		if fb, ok := b.Float(); ok {
			return compareFloat(fa, fb)
		}
	}
	return strings.Compare(a.Text(), b.Text())
}
