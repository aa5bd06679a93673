package connector

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"dataport/internal/schema"
)

type TransformType string

const (
	TransformNone      TransformType = "none"
	TransformTrim      TransformType = "trim"
	TransformLowercase TransformType = "lowercase"
	TransformUppercase TransformType = "uppercase"
	TransformNumber    TransformType = "number"
	TransformBoolean   TransformType = "boolean"
	TransformDate      TransformType = "date"
	TransformSplit     TransformType = "split"
)

// FieldTransform converts a source value before it is written to the target field.
type FieldTransform struct {
	Type TransformType `json:"type" yaml:"type" mapstructure:"type"`
	// Format is a Go time layout for date transforms; ISO-8601 is tried when empty.
	Format string `json:"format,omitempty" yaml:"format,omitempty" mapstructure:"format"`
	// Separator for split transforms, comma by default.
	Separator string `json:"separator,omitempty" yaml:"separator,omitempty" mapstructure:"separator"`
}

// FieldMapping maps one source field onto one target field.
type FieldMapping struct {
	SourceField  string          `json:"sourceField" yaml:"sourceField" mapstructure:"source"`
	TargetField  string          `json:"targetField" yaml:"targetField" mapstructure:"target"`
	Transform    *FieldTransform `json:"transform,omitempty" yaml:"transform,omitempty" mapstructure:"transform"`
	DefaultValue any             `json:"defaultValue,omitempty" yaml:"defaultValue,omitempty" mapstructure:"default"`
	IsRequired   bool            `json:"isRequired,omitempty" yaml:"isRequired,omitempty" mapstructure:"required"`
}

// ValidationError describes one rejected field of one row.
type ValidationError struct {
	Row     int    `json:"row"`
	Field   string `json:"field"`
	Value   any    `json:"value,omitempty"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("row %d, field %s: %s", e.Row, e.Field, e.Message)
}

// ApplyMappings builds the target record for rec. row is the 1-based row number used in errors.
// Missing or null source values take the default; a required field that ends up null is an error.
func ApplyMappings(row int, rec schema.Record, mappings []FieldMapping) (map[string]any, []ValidationError) {
	out := make(map[string]any, len(mappings))
	var errs []ValidationError

	for _, m := range mappings {
		v := rec.Get(m.SourceField)

		var value any
		if !v.IsNull() {
			converted, err := applyTransform(v, m.Transform)
			if err != nil {
				errs = append(errs, ValidationError{Row: row, Field: m.TargetField, Value: v.Interface(), Message: err.Error()})
				continue
			}
			value = converted
		}
		if value == nil {
			value = m.DefaultValue
		}
		if value == nil && m.IsRequired {
			errs = append(errs, ValidationError{Row: row, Field: m.TargetField, Message: "required field is empty"})
			continue
		}
		out[m.TargetField] = value
	}
	return out, errs
}

func applyTransform(v schema.Value, t *FieldTransform) (any, error) {
	if t == nil {
		return v.Interface(), nil
	}
	text := v.Text()

	switch t.Type {
	case "", TransformNone:
		return v.Interface(), nil
	case TransformTrim:
		return strings.TrimSpace(text), nil
	case TransformLowercase:
		return strings.ToLower(text), nil
	case TransformUppercase:
		return strings.ToUpper(text), nil
	case TransformNumber:
		if f, ok := v.Float(); ok {
			return f, nil
		}
		return nil, fmt.Errorf("%q is not a number", text)
	case TransformBoolean:
		if v.Kind == schema.KindBool {
			return v.Bool, nil
		}
		switch strings.ToLower(strings.TrimSpace(text)) {
		case "true", "yes", "y", "1":
			return true, nil
		case "false", "no", "n", "0":
			return false, nil
		}
		return nil, fmt.Errorf("%q is not a boolean", text)
	case TransformDate:
		if v.Kind == schema.KindDate {
			return v.Time, nil
		}
		if t.Format != "" {
			parsed, err := time.Parse(t.Format, strings.TrimSpace(text))
			if err != nil {
				return nil, fmt.Errorf("%q does not match date format %s", text, t.Format)
			}
			return parsed, nil
		}
		if parsed, ok := schema.CommonDate(text); ok {
			return parsed, nil
		}
		return nil, fmt.Errorf("%q is not a date", text)
	case TransformSplit:
		sep := t.Separator
		if sep == "" {
			sep = ","
		}
		parts := strings.Split(text, sep)
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out, nil
	}
	return nil, fmt.Errorf("unknown transform %s", strconv.Quote(string(t.Type)))
}
