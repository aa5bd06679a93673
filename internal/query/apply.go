package query

import "dataport/internal/schema"

// Options is the part of a query the in-memory engine understands.
type Options struct {
	Where   string
	OrderBy string
	Limit   int
	Offset  int
	Columns []string
}

// Outcome is the page produced by Apply.
type Outcome struct {
	Rows []schema.Record
	// Total counts the rows that passed the filter, before pagination.
	Total int
	// Skipped lists WHERE fragments that were ignored.
	Skipped []string
}

// Apply filters, sorts, paginates and projects records, in that order.
// The input slice is not modified.
func Apply(records []schema.Record, opts Options) Outcome {
	filter := ParseWhere(opts.Where)

	matched := make([]schema.Record, 0, len(records))
	for _, rec := range records {
		if filter.Match(rec) {
			matched = append(matched, rec)
		}
	}

	if order, ok := ParseOrderBy(opts.OrderBy); ok {
		order.Sort(matched)
	}

	total := len(matched)
	page := Paginate(matched, opts.Offset, opts.Limit)

	return Outcome{
		Rows:    Project(page, opts.Columns),
		Total:   total,
		Skipped: filter.Skipped,
	}
}

// Paginate slices records to the window [offset, offset+limit). A limit of 0 means no limit.
func Paginate(records []schema.Record, offset, limit int) []schema.Record {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(records) {
		return []schema.Record{}
	}
	end := len(records)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return records[offset:end]
}

// Project keeps only the named columns. Missing columns come back as null.
func Project(records []schema.Record, columns []string) []schema.Record {
	if len(columns) == 0 {
		return records
	}
	out := make([]schema.Record, len(records))
	for i, rec := range records {
		p := make(schema.Record, len(columns))
		for _, c := range columns {
			p[c] = Lookup(rec, c)
		}
		out[i] = p
	}
	return out
}
