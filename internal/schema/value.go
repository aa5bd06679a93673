package schema

import (
	"database/sql/driver"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	gojson "github.com/goccy/go-json"
	"github.com/google/uuid"
)

// ValueKind tags the variant held by a Value.
type ValueKind uint8

const (
	KindNull ValueKind = iota
	KindBool
	KindNumber
	KindString
	KindDate
	KindJSON
)

func (k ValueKind) String() string {
	switch k {
	case KindBool:
		return "boolean"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindDate:
		return "date"
	case KindJSON:
		return "json"
	default:
		return "null"
	}
}

// Value is a loosely typed cell coming out of any source.
// Numbers and dates keep the text they were read from so they can be written back unchanged.
type Value struct {
	Kind ValueKind
	Bool bool
	Num  float64
	Str  string
	Time time.Time
	JSON any
}

func Null() Value { return Value{} }

func Bool(b bool) Value { return Value{Kind: KindBool, Bool: b} }

func Number(f float64) Value { return Value{Kind: KindNumber, Num: f} }

func String(s string) Value { return Value{Kind: KindString, Str: s} }

func JSON(v any) Value { return Value{Kind: KindJSON, JSON: v} }

func Date(t time.Time) Value { return Value{Kind: KindDate, Time: t} }

// DateText builds a date that renders as the original text.
func DateText(t time.Time, s string) Value { return Value{Kind: KindDate, Time: t, Str: s} }

// NumberText builds a number that renders as the original text.
func NumberText(s string, f float64) Value { return Value{Kind: KindNumber, Num: f, Str: s} }

func (v Value) IsNull() bool { return v.Kind == KindNull }

// Text renders the value the way it is compared and printed.
func (v Value) Text() string {
	switch v.Kind {
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindNumber:
		if v.Str != "" {
			return v.Str
		}
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case KindString:
		return v.Str
	case KindDate:
		if v.Str != "" {
			return v.Str
		}
		return v.Time.Format(time.RFC3339Nano)
	case KindJSON:
		b, err := gojson.Marshal(v.JSON)
		if err != nil {
			return fmt.Sprint(v.JSON)
		}
		return string(b)
	default:
		return ""
	}
}

func (v Value) String() string { return v.Text() }

// Float reports the numeric reading of the value, if it has one.
func (v Value) Float() (float64, bool) {
	switch v.Kind {
	case KindNumber:
		return v.Num, true
	case KindString:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64)
		return f, err == nil
	case KindBool:
		if v.Bool {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

// Interface returns the plain Go form used for JSON and YAML output.
func (v Value) Interface() any {
	switch v.Kind {
	case KindBool:
		return v.Bool
	case KindNumber:
		if v.Str != "" {
			return gojson.Number(v.Str)
		}
		return v.Num
	case KindString:
		return v.Str
	case KindDate:
		return v.Text()
	case KindJSON:
		return v.JSON
	default:
		return nil
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindNull:
		return []byte("null"), nil
	case KindNumber:
		if math.IsNaN(v.Num) || math.IsInf(v.Num, 0) {
			return []byte("null"), nil
		}
		return []byte(v.Text()), nil
	}
	return gojson.Marshal(v.Interface())
}

// FromNative converts a decoded or driver-returned value into a Value.
func FromNative(x any) Value {
	switch t := x.(type) {
	case nil:
		return Null()
	case Value:
		return t
	case bool:
		return Bool(t)
	case string:
		return String(t)
	case []byte:
		return String(string(t))
	case int:
		return NumberText(strconv.Itoa(t), float64(t))
	case int8:
		return NumberText(strconv.FormatInt(int64(t), 10), float64(t))
	case int16:
		return NumberText(strconv.FormatInt(int64(t), 10), float64(t))
	case int32:
		return NumberText(strconv.FormatInt(int64(t), 10), float64(t))
	case int64:
		return NumberText(strconv.FormatInt(t, 10), float64(t))
	case uint:
		return NumberText(strconv.FormatUint(uint64(t), 10), float64(t))
	case uint8:
		return NumberText(strconv.FormatUint(uint64(t), 10), float64(t))
	case uint16:
		return NumberText(strconv.FormatUint(uint64(t), 10), float64(t))
	case uint32:
		return NumberText(strconv.FormatUint(uint64(t), 10), float64(t))
	case uint64:
		return NumberText(strconv.FormatUint(t, 10), float64(t))
	case float32:
		return Number(float64(t))
	case float64:
		return Number(t)
	case gojson.Number:
		f, err := t.Float64()
		if err != nil {
			return String(string(t))
		}
		return NumberText(string(t), f)
	case time.Time:
		return Date(t)
	case [16]byte:
		return String(uuid.UUID(t).String())
	case *Object:
		return JSON(t.Native())
	case map[string]any, []any:
		return JSON(t)
	case driver.Valuer:
		inner, err := t.Value()
		if err != nil {
			return String(fmt.Sprint(x))
		}
		if _, again := inner.(driver.Valuer); again {
			return String(fmt.Sprint(inner))
		}
		return FromNative(inner)
	case fmt.Stringer:
		return String(t.String())
	default:
		return String(fmt.Sprint(x))
	}
}

// Record is one row keyed by column name.
type Record map[string]Value

// Get returns the value at name, or Null when absent.
func (r Record) Get(name string) Value {
	if v, ok := r[name]; ok {
		return v
	}
	return Null()
}

// Native converts the record into plain Go values.
func (r Record) Native() map[string]any {
	out := make(map[string]any, len(r))
	for k, v := range r {
		out[k] = v.Interface()
	}
	return out
}
