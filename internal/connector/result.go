package connector

import (
	"strings"

	"dataport/internal/schema"
)

// DefaultPreviewRows is the row count Preview uses when none is given.
const DefaultPreviewRows = 100

// QueryOptions describes one read. Table and RawQuery are alternatives.
type QueryOptions struct {
	Table    string   `json:"table,omitempty"`
	RawQuery string   `json:"rawQuery,omitempty"`
	Columns  []string `json:"columns,omitempty"`
	// Where is a restricted predicate: field-operator-value clauses joined by AND.
	// Relational sources pass it to the server unchanged.
	Where   string `json:"where,omitempty"`
	OrderBy string `json:"orderBy,omitempty"`
	// Limit of 0 means no limit.
	Limit  int   `json:"limit,omitempty"`
	Offset int   `json:"offset,omitempty"`
	Params []any `json:"params,omitempty"`
}

// Target validates that the options name something to read.
func (o QueryOptions) Target(kind SourceKind) error {
	if strings.TrimSpace(o.Table) == "" && strings.TrimSpace(o.RawQuery) == "" {
		return InvalidQuery(kind, "either table or rawQuery must be provided")
	}
	return nil
}

// Result is one page of rows.
type Result struct {
	Rows    []schema.Record     `json:"rows"`
	Columns []schema.ColumnInfo `json:"columns"`
	// TotalRowCount is nil when the source cannot tell.
	TotalRowCount *int64 `json:"totalRowCount,omitempty"`
	HasMore       bool   `json:"hasMore"`
	NextOffset    *int   `json:"nextOffset,omitempty"`
	NextCursor    string `json:"nextCursor,omitempty"`
}

// NewPage builds a result for rows read at offset out of total matching rows.
func NewPage(rows []schema.Record, columns []schema.ColumnInfo, offset int, total int64) *Result {
	res := &Result{Rows: rows, Columns: columns, TotalRowCount: &total}
	if int64(offset+len(rows)) < total {
		res.HasMore = true
		next := offset + len(rows)
		res.NextOffset = &next
	}
	return res
}

// NewOpenPage builds a result when the total is unknown; hasMore is the caller's best guess.
func NewOpenPage(rows []schema.Record, columns []schema.ColumnInfo, offset int, hasMore bool) *Result {
	res := &Result{Rows: rows, Columns: columns, HasMore: hasMore}
	if hasMore {
		next := offset + len(rows)
		res.NextOffset = &next
	}
	return res
}

// ProjectColumns keeps the descriptors named in names, in that order.
// Unknown names get an unknown-typed placeholder. An empty names list returns columns unchanged.
func ProjectColumns(columns []schema.ColumnInfo, names []string) []schema.ColumnInfo {
	if len(names) == 0 {
		return columns
	}
	byName := make(map[string]schema.ColumnInfo, len(columns))
	for _, c := range columns {
		byName[c.Name] = c
	}
	out := make([]schema.ColumnInfo, 0, len(names))
	for _, n := range names {
		if c, ok := byName[n]; ok {
			out = append(out, c)
			continue
		}
		out = append(out, schema.ColumnInfo{Name: n, MappedType: schema.TypeUnknown, Nullable: true})
	}
	return out
}
