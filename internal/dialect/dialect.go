// Package dialect holds the SQL each relational source needs: catalog queries,
// identifier quoting, pagination and type mapping.
package dialect

import (
	"fmt"
	"strings"

	"dataport/internal/connector"
	"dataport/internal/schema"
)

// Dialect abstracts database-specific SQL.
//
// Catalog queries return rows of a fixed shape so one scanner serves every dialect:
//
//	TablesQuery:      name, schema, type ('BASE TABLE' or 'VIEW'), estimated rows (nullable)
//	ColumnsQuery:     name, native type, nullable flag, max length, precision, scale, primary key (0/1)
//	ForeignKeysQuery: table, column, referenced table, referenced column
type Dialect interface {
	Kind() connector.SourceKind

	// Metadata Queries (Schema Introspection)
	TablesQuery(schema string) (string, []any)
	ColumnsQuery(schema, table string) (string, []any)
	ForeignKeysQuery(schema string) (string, []any)
	VersionQuery() string
	UserQuery() string

	// DefaultSchema picks the schema catalog queries run against.
	DefaultSchema(cfg connector.DatabaseConfig) string
	Placeholder(index int) string // Returns ?, $1, :1, @p1
	EscapeIdentifier(name string) string

	// Paginate appends the dialect's row window to q. limit 0 means no limit.
	Paginate(q string, limit, offset int) string
	// CountQuery wraps q to count its rows.
	CountQuery(q string) string

	MapType(native string) schema.MappedType
}

// GetDialect returns the Dialect for a relational source kind.
func GetDialect(kind connector.SourceKind) (Dialect, bool) {
	switch kind {
	case connector.KindPostgres:
		return &PostgresDialect{}, true
	case connector.KindMySQL:
		return &MysqlDialect{}, true
	case connector.KindOracle:
		return &OracleDialect{}, true
	case connector.KindMSSQL:
		return &MSSQLDialect{}, true
	}
	return nil, false
}

// Ensure interface implementation
var _ Dialect = (*MysqlDialect)(nil)
var _ Dialect = (*PostgresDialect)(nil)
var _ Dialect = (*MSSQLDialect)(nil)
var _ Dialect = (*OracleDialect)(nil)

// Statements is the pair of SQL texts one query needs.
type Statements struct {
	Data  string
	Count string
	Args  []any
}

// Build turns query options into data and count statements.
// A raw query is used as is, minus trailing semicolons. A table query is assembled with
// escaped identifiers, qualified with schemaName when the table name carries no schema.
// WHERE and ORDER BY are passed through verbatim.
func Build(d Dialect, schemaName string, opts connector.QueryOptions) (Statements, error) {
	if raw := TrimStatement(opts.RawQuery); raw != "" {
		return Statements{
			Data:  d.Paginate(raw, opts.Limit, opts.Offset),
			Count: d.CountQuery(raw),
			Args:  opts.Params,
		}, nil
	}
	if strings.TrimSpace(opts.Table) == "" {
		return Statements{}, connector.InvalidQuery(d.Kind(), "either table or rawQuery must be provided")
	}

	table := strings.TrimSpace(opts.Table)
	if schemaName != "" && !strings.Contains(table, ".") {
		table = schemaName + "." + table
	}

	sel := opts
	sel.Table = table
	data := connector.BuildSelect(sel, d.EscapeIdentifier)

	count := fmt.Sprintf("SELECT COUNT(*) FROM %s", connector.EscapeQualified(table, d.EscapeIdentifier))
	if w := strings.TrimSpace(opts.Where); w != "" {
		count += " WHERE " + w
	}

	return Statements{
		Data:  d.Paginate(data, opts.Limit, opts.Offset),
		Count: count,
		Args:  opts.Params,
	}, nil
}

// TrimStatement drops surrounding whitespace and trailing semicolons.
func TrimStatement(q string) string {
	return strings.TrimRight(strings.TrimSpace(q), "; \t\r\n")
}

// baseType strips a parenthesized length or precision, e.g. varchar(20) -> varchar.
func baseType(native string) string {
	if i := strings.IndexByte(native, '('); i >= 0 {
		rest := ""
		if j := strings.IndexByte(native[i:], ')'); j >= 0 {
			rest = native[i+j+1:]
		}
		native = native[:i] + rest
	}
	return strings.TrimSpace(native)
}

// mapCommon applies the generic bucket mapping to the base type name, with the
// exceptions every dialect shares.
func mapCommon(native string) schema.MappedType {
	base := strings.ToUpper(baseType(native))
	if strings.HasPrefix(base, "INTERVAL") {
		return schema.TypeString
	}
	return connector.MapType(base)
}

func limitOffset(q string, limit, offset int) string {
	if limit > 0 {
		q += fmt.Sprintf(" LIMIT %d", limit)
	}
	if offset > 0 {
		q += fmt.Sprintf(" OFFSET %d", offset)
	}
	return q
}

func hasOrderBy(q string) bool {
	return strings.Contains(strings.ToUpper(q), "ORDER BY")
}
