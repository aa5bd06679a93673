package connector

import (
	"fmt"
	"strings"

	"dataport/internal/schema"
)

// MapType buckets a native type name into the mapped type taxonomy.
func MapType(native string) schema.MappedType {
	return schema.MapNativeType(native)
}

// EscapeIdentifier double-quotes name, doubling embedded quotes.
func EscapeIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// EscapeQualified escapes each dot separated part of a possibly schema-qualified name.
func EscapeQualified(name string, escape func(string) string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = escape(p)
	}
	return strings.Join(parts, ".")
}

// BuildSelect assembles "SELECT cols FROM table [WHERE ..] [ORDER BY ..]" from opts.
// WHERE and ORDER BY are passed through verbatim. Pagination is left to the caller.
func BuildSelect(opts QueryOptions, escape func(string) string) string {
	if escape == nil {
		escape = EscapeIdentifier
	}

	cols := "*"
	if len(opts.Columns) > 0 {
		quoted := make([]string, len(opts.Columns))
		for i, c := range opts.Columns {
			quoted[i] = escape(c)
		}
		cols = strings.Join(quoted, ", ")
	}

	q := fmt.Sprintf("SELECT %s FROM %s", cols, EscapeQualified(opts.Table, escape))
	if w := strings.TrimSpace(opts.Where); w != "" {
		q += " WHERE " + w
	}
	if o := strings.TrimSpace(opts.OrderBy); o != "" {
		q += " ORDER BY " + o
	}
	return q
}
