package schema

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	gojson "github.com/goccy/go-json"
)

// Object is a document node that remembers the order its keys were seen in.
type Object struct {
	Keys   []string
	Fields map[string]any
}

func NewObject() *Object {
	return &Object{Fields: make(map[string]any)}
}

// Set stores value under key, keeping the first position of a repeated key.
func (o *Object) Set(key string, value any) {
	if _, exists := o.Fields[key]; !exists {
		o.Keys = append(o.Keys, key)
	}
	o.Fields[key] = value
}

func (o *Object) Get(key string) (any, bool) {
	v, ok := o.Fields[key]
	return v, ok
}

func (o *Object) Len() int { return len(o.Keys) }

// Native converts the object tree into plain maps and slices.
func (o *Object) Native() map[string]any {
	out := make(map[string]any, len(o.Keys))
	for _, k := range o.Keys {
		out[k] = nativeOf(o.Fields[k])
	}
	return out
}

func (o *Object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range o.Keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := gojson.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := gojson.Marshal(o.Fields[k])
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func nativeOf(v any) any {
	switch t := v.(type) {
	case *Object:
		return t.Native()
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = nativeOf(t[i])
		}
		return out
	default:
		return v
	}
}

// DecodeJSON parses a single JSON document keeping object key order.
// Numbers are returned as gojson.Number.
func DecodeJSON(r io.Reader) (any, error) {
	dec := gojson.NewDecoder(r)
	dec.UseNumber()

	doc, err := decodeValue(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("unexpected data after top-level value")
	}
	return doc, nil
}

func decodeValue(dec *gojson.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	delim, ok := tok.(gojson.Delim)
	if !ok {
		if f, isFloat := tok.(float64); isFloat {
			return gojson.Number(strconv.FormatFloat(f, 'f', -1, 64)), nil
		}
		return tok, nil
	}

	switch delim {
	case '{':
		obj := NewObject()
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, err
			}
			key, ok := keyTok.(string)
			if !ok {
				return nil, fmt.Errorf("expected object key, got %v", keyTok)
			}
			val, err := decodeValue(dec)
			if err != nil {
				return nil, err
			}
			obj.Set(key, val)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return obj, nil
	case '[':
		arr := []any{}
		for dec.More() {
			val, err := decodeValue(dec)
			if err != nil {
				return nil, err
			}
			arr = append(arr, val)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return arr, nil
	}
	return nil, fmt.Errorf("unexpected delimiter %q", rune(delim))
}

// Resolve walks a dot separated path through nested objects.
// Numeric segments index into arrays.
func Resolve(doc any, path string) (any, bool) {
	path = strings.TrimSpace(path)
	if path == "" || path == "$" {
		return doc, true
	}
	path = strings.TrimPrefix(path, "$.")

	cur := doc
	for _, seg := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case *Object:
			next, ok := node.Get(seg)
			if !ok {
				return nil, false
			}
			cur = next
		case map[string]any:
			next, ok := node[seg]
			if !ok {
				return nil, false
			}
			cur = next
		case []any:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			cur = node[idx]
		default:
			return nil, false
		}
	}
	return cur, true
}
