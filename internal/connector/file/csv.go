package file

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
	"unicode/utf8"

	"dataport/internal/connector"
	"dataport/internal/schema"
)

// CSV reads delimited text. Every cell is cast to a number, boolean or date when it looks like one.
type CSV struct {
	source
	cfg connector.CSVConfig
}

var _ connector.Connector = (*CSV)(nil)

func NewCSV(cfg connector.CSVConfig) *CSV {
	c := &CSV{
		source: newSource(connector.KindCSV, cfg.FilePath, cfg.Encoding),
		cfg:    cfg,
	}
	c.parse = c.parseCSV
	return c
}

func (c *CSV) hasHeader() bool {
	return c.cfg.HasHeader == nil || *c.cfg.HasHeader
}

func (c *CSV) delimiter() (rune, error) {
	return ParseDelimiter(c.cfg.Delimiter)
}

// ParseDelimiter reads a configured delimiter. Empty means comma; "tab" and `\t` mean a tab.
func ParseDelimiter(d string) (rune, error) {
	switch strings.ToLower(d) {
	case "":
		return ',', nil
	case "tab", `\t`:
		return '\t', nil
	}
	if utf8.RuneCountInString(d) != 1 {
		return 0, connector.InvalidConfig(connector.KindCSV, "delimiter must be a single character, got %q", d)
	}
	r, _ := utf8.DecodeRuneInString(d)
	if r == '"' || r == '\r' || r == '\n' {
		return 0, connector.InvalidConfig(connector.KindCSV, "delimiter %q is not allowed", d)
	}
	return r, nil
}

func (c *CSV) parseCSV(text []byte) (*dataset, error) {
	delim, err := c.delimiter()
	if err != nil {
		return nil, err
	}

	r := csv.NewReader(bytes.NewReader(text))
	r.Comma = delim
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}

	var header []string
	if c.hasHeader() && len(rows) > 0 {
		header = headerNames(rows[0])
		rows = rows[1:]
	} else {
		width := 0
		for _, row := range rows {
			width = max(width, len(row))
		}
		header = make([]string, width)
		for i := range header {
			header[i] = fmt.Sprintf("column_%d", i+1)
		}
	}

	records := make([]schema.Record, 0, len(rows))
	for _, row := range rows {
		rec := make(schema.Record, len(header))
		for i, name := range header {
			if i < len(row) {
				rec[name] = schema.Cast(row[i], schema.CommonDate)
			} else {
				rec[name] = schema.Null()
			}
		}
		records = append(records, rec)
	}

	return &dataset{
		records: records,
		columns: schema.InferColumns(records, header, schema.CommonDate),
	}, nil
}

// headerNames trims header cells, names blank ones by position and makes duplicates unique.
func headerNames(cells []string) []string {
	names := make([]string, len(cells))
	seen := make(map[string]int, len(cells))
	for i, cell := range cells {
		name := strings.TrimSpace(cell)
		if name == "" {
			name = fmt.Sprintf("column_%d", i+1)
		}
		if n := seen[name]; n > 0 {
			seen[name] = n + 1
			name = fmt.Sprintf("%s_%d", name, n+1)
		}
		seen[name]++
		names[i] = name
	}
	return names
}
