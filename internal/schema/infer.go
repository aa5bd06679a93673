package schema

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	gojson "github.com/goccy/go-json"
)

// InferSampleSize is how many non-null values type inference looks at per column.
const InferSampleSize = 100

var nativeBuckets = []struct {
	mapped  MappedType
	needles []string
}{
	{TypeNumber, []string{"INT", "NUMBER", "NUMERIC", "DECIMAL", "FLOAT", "DOUBLE", "REAL", "MONEY", "SERIAL"}},
	{TypeBoolean, []string{"BOOL", "BIT"}},
	{TypeDate, []string{"DATE", "TIME"}},
	{TypeJSON, []string{"JSON"}},
	{TypeString, []string{"CHAR", "TEXT", "VARCHAR", "CLOB", "STRING"}},
	{TypeUnknown, []string{"BLOB", "BINARY", "RAW", "BYTEA", "IMAGE"}},
}

// MapNativeType buckets a native type name into a MappedType by substring.
// Names that match no bucket are treated as strings.
func MapNativeType(native string) MappedType {
	upper := strings.ToUpper(strings.TrimSpace(native))
	if upper == "" {
		return TypeUnknown
	}
	for _, b := range nativeBuckets {
		for _, n := range b.needles {
			if strings.Contains(upper, n) {
				return b.mapped
			}
		}
	}
	return TypeString
}

// DateDetector reports whether s reads as a date.
type DateDetector func(s string) (time.Time, bool)

var isoDatePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}([T ]\d{2}:\d{2}(:\d{2}(\.\d+)?)?(Z|[+-]\d{2}:?\d{2})?)?$`)

var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ISODate accepts ISO-8601 dates and timestamps.
func ISODate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if !isoDatePattern.MatchString(s) {
		return time.Time{}, false
	}
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

var (
	usDatePattern   = regexp.MustCompile(`^\d{2}/\d{2}/\d{4}$`)
	dashDatePattern = regexp.MustCompile(`^\d{2}-\d{2}-\d{4}$`)
)

// CommonDate accepts ISO dates plus MM/DD/YYYY and DD-MM-YYYY.
func CommonDate(s string) (time.Time, bool) {
	if t, ok := ISODate(s); ok {
		return t, true
	}
	s = strings.TrimSpace(s)
	switch {
	case usDatePattern.MatchString(s):
		t, err := time.Parse("01/02/2006", s)
		return t, err == nil
	case dashDatePattern.MatchString(s):
		t, err := time.Parse("02-01-2006", s)
		return t, err == nil
	}
	return time.Time{}, false
}

var numberPattern = regexp.MustCompile(`^[-+]?(\d+\.?\d*|\.\d+)([eE][-+]?\d+)?$`)

// Cast turns a raw text cell into a typed value: empty is null, then number, boolean, date, string.
// Integers with leading zeros stay strings so codes like 007 survive.
func Cast(raw string, detect DateDetector) Value {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Null()
	}
	if numberPattern.MatchString(s) && !hasLeadingZero(s) {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return NumberText(s, f)
		}
	}
	switch strings.ToLower(s) {
	case "true":
		return Bool(true)
	case "false":
		return Bool(false)
	}
	if detect != nil {
		if t, ok := detect(s); ok {
			return DateText(t, s)
		}
	}
	return String(raw)
}

func hasLeadingZero(s string) bool {
	s = strings.TrimLeft(s, "+-")
	return len(s) > 1 && s[0] == '0' && s[1] != '.'
}

// vote is what a single non-null value says about its column.
// Objects and arrays vote separately so a column mixing both still lands on json.
type vote string

const (
	voteObject vote = "object"
	voteArray  vote = "array"
)

func classify(v Value, detect DateDetector) vote {
	switch v.Kind {
	case KindNumber:
		return vote(TypeNumber)
	case KindBool:
		return vote(TypeBoolean)
	case KindDate:
		return vote(TypeDate)
	case KindJSON:
		if _, ok := v.JSON.([]any); ok {
			return voteArray
		}
		return voteObject
	case KindString:
		if detect != nil {
			if _, ok := detect(v.Str); ok {
				return vote(TypeDate)
			}
		}
		return jsonVote(v.Str)
	}
	return vote(TypeUnknown)
}

func jsonVote(s string) vote {
	s = strings.TrimSpace(s)
	if len(s) < 2 || !gojson.Valid([]byte(s)) {
		return vote(TypeString)
	}
	switch {
	case s[0] == '{' && s[len(s)-1] == '}':
		return voteObject
	case s[0] == '[' && s[len(s)-1] == ']':
		return voteArray
	}
	return vote(TypeString)
}

func (v vote) mapped() MappedType {
	if v == voteObject || v == voteArray {
		return TypeJSON
	}
	return MappedType(v)
}

// InferType picks the mapped type for a column from its values.
// Only the first InferSampleSize non-null values are considered; the result does not depend on their order.
func InferType(values []Value, detect DateDetector) MappedType {
	var (
		first   vote
		agree   = true
		allJSON = true
		seen    int
	)
	for _, v := range values {
		if v.IsNull() {
			continue
		}
		if seen == InferSampleSize {
			break
		}
		seen++

		t := classify(v, detect)
		if first == "" {
			first = t
		} else if t != first {
			agree = false
		}
		if t.mapped() != TypeJSON {
			allJSON = false
		}
	}

	switch {
	case seen == 0:
		return TypeUnknown
	case agree:
		return first.mapped()
	case allJSON:
		return TypeJSON
	default:
		return TypeString
	}
}

// InferColumns builds column descriptors for in-memory records.
// order fixes the column order; nullability is judged over every record.
func InferColumns(records []Record, order []string, detect DateDetector) []ColumnInfo {
	columns := make([]ColumnInfo, 0, len(order))
	for _, name := range order {
		col := ColumnInfo{Name: name, NativeType: KindNull.String()}
		values := make([]Value, 0, InferSampleSize)
		for _, rec := range records {
			v, ok := rec[name]
			if !ok || v.IsNull() {
				col.Nullable = true
				continue
			}
			if col.NativeType == KindNull.String() {
				col.NativeType = v.Kind.String()
			}
			if len(values) < InferSampleSize {
				values = append(values, v)
			}
			col.AddSample(v)
		}
		col.MappedType = InferType(values, detect)
		columns = append(columns, col)
	}
	return columns
}
