package relational

import (
	"bytes"
	"strconv"
	"strings"

	"dataport/internal/schema"
)

// normalize converts a driver value into a Value, using the column's mapped type to read
// values that drivers hand back as text.
func normalize(v any, mapped schema.MappedType) schema.Value {
	val := schema.FromNative(v)
	if val.Kind != schema.KindString {
		return val
	}
	s := strings.TrimSpace(val.Str)

	switch mapped {
	case schema.TypeNumber:
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return schema.NumberText(val.Str, f)
		}
	case schema.TypeBoolean:
		if b, err := strconv.ParseBool(s); err == nil {
			return schema.Bool(b)
		}
	case schema.TypeDate:
		if t, ok := schema.ISODate(s); ok {
			return schema.DateText(t, val.Str)
		}
	case schema.TypeJSON:
		if doc, err := schema.DecodeJSON(bytes.NewReader([]byte(s))); err == nil {
			return schema.FromNative(doc)
		}
	}
	return val
}

func text(v any) string {
	return schema.FromNative(v).Text()
}

func toInt64(v any) (int64, bool) {
	f, ok := schema.FromNative(v).Float()
	if !ok {
		return 0, false
	}
	return int64(f), true
}

func intPtr(v any) *int {
	n, ok := toInt64(v)
	if !ok {
		return nil
	}
	i := int(n)
	return &i
}

// isYes reads catalog nullability flags: YES/NO, Y/N.
func isYes(v any) bool {
	switch strings.ToUpper(strings.TrimSpace(text(v))) {
	case "YES", "Y", "TRUE", "1":
		return true
	}
	return false
}
