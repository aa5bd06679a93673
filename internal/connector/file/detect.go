package file

import (
	"dataport/internal/connector"
	"dataport/internal/schema"
)

// recordKeys are the property names tried first when looking for the record array.
var recordKeys = []string{"data", "items", "records", "results", "rows", "entries"}

// findRecords locates the record array in doc. With rootPath set the path must resolve;
// wrapSingle lets a path that resolves to one object stand for a single record.
// Without a path the array is auto-detected, descending nested levels into objects.
func findRecords(kind connector.SourceKind, doc any, rootPath string, nested int, wrapSingle bool) ([]any, string, error) {
	if rootPath != "" {
		node, ok := schema.Resolve(doc, rootPath)
		if !ok {
			return nil, "", connector.InvalidQuery(kind, "rootPath %q does not resolve in the document", rootPath)
		}
		switch n := node.(type) {
		case []any:
			return n, rootPath, nil
		case *schema.Object:
			if wrapSingle {
				return []any{n}, rootPath, nil
			}
		}
		return nil, "", connector.InvalidQuery(kind, "rootPath %q does not resolve to an array", rootPath)
	}

	if arr, path, ok := detectArray(doc, nested); ok {
		return arr, path, nil
	}
	return []any{doc}, "", nil
}

func detectArray(doc any, nested int) ([]any, string, bool) {
	switch n := doc.(type) {
	case []any:
		return n, "", true
	case *schema.Object:
		for _, key := range recordKeys {
			if arr, ok := n.Fields[key].([]any); ok {
				return arr, key, true
			}
		}
		for _, key := range n.Keys {
			if arr, ok := n.Fields[key].([]any); ok {
				return arr, key, true
			}
		}
		if nested <= 0 {
			return nil, "", false
		}
		for _, key := range n.Keys {
			child, ok := n.Fields[key].(*schema.Object)
			if !ok {
				continue
			}
			if arr, path, ok := detectArray(child, nested-1); ok {
				return arr, joinPath(key, path), true
			}
		}
	}
	return nil, "", false
}

func joinPath(head, tail string) string {
	if tail == "" {
		return head
	}
	return head + "." + tail
}

// collect flattens every element into a record. Elements that are not objects
// become a single "value" column.
func collect(items []any, cast func(string) schema.Value) *schema.Collector {
	c := schema.NewCollector()
	for _, item := range items {
		obj, ok := item.(*schema.Object)
		if !ok {
			obj = schema.NewObject()
			obj.Set("value", item)
		}
		c.Add(schema.Flatten(obj, flattenDepth), cast)
	}
	return c
}
