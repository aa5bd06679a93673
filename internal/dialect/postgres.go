package dialect

import (
	"fmt"
	"strings"

	"dataport/internal/connector"
	"dataport/internal/schema"

	"github.com/lib/pq"
)

type PostgresDialect struct{}

func (d *PostgresDialect) Kind() connector.SourceKind { return connector.KindPostgres }

func (d *PostgresDialect) TablesQuery(schemaName string) (string, []any) {
	// reltuples is -1 until the table has been analyzed
	return `SELECT t.table_name, t.table_schema, t.table_type,
    CASE WHEN c.reltuples >= 0 THEN c.reltuples::bigint END AS estimated_rows
FROM information_schema.tables t
LEFT JOIN pg_catalog.pg_namespace n ON n.nspname = t.table_schema
LEFT JOIN pg_catalog.pg_class c ON c.relname = t.table_name AND c.relnamespace = n.oid
WHERE t.table_schema = $1 AND t.table_type IN ('BASE TABLE', 'VIEW')
ORDER BY t.table_name`, []any{schemaName}
}

func (d *PostgresDialect) ColumnsQuery(schemaName, table string) (string, []any) {
	// udt_name keeps array (_int4) and jsonb distinctions that data_type hides.
	return `SELECT
    c.column_name,
    c.udt_name,
    c.is_nullable,
    c.character_maximum_length,
    c.numeric_precision,
    c.numeric_scale,
    CASE WHEN pk.column_name IS NOT NULL THEN 1 ELSE 0 END AS is_pk
FROM information_schema.columns c
LEFT JOIN (
    SELECT kcu.table_name, kcu.column_name
    FROM information_schema.table_constraints tc
    JOIN information_schema.key_column_usage kcu
        ON tc.constraint_name = kcu.constraint_name AND tc.table_schema = kcu.table_schema
    WHERE tc.constraint_type = 'PRIMARY KEY' AND tc.table_schema = $1
) pk ON pk.table_name = c.table_name AND pk.column_name = c.column_name
WHERE c.table_schema = $1 AND c.table_name = $2
ORDER BY c.ordinal_position`, []any{schemaName, table}
}

func (d *PostgresDialect) ForeignKeysQuery(schemaName string) (string, []any) {
	return `SELECT kcu.table_name, kcu.column_name, ccu.table_name, ccu.column_name
FROM information_schema.table_constraints tc
JOIN information_schema.key_column_usage kcu
    ON tc.constraint_name = kcu.constraint_name AND tc.table_schema = kcu.table_schema
JOIN information_schema.constraint_column_usage ccu
    ON tc.constraint_name = ccu.constraint_name AND tc.table_schema = ccu.constraint_schema
WHERE tc.constraint_type = 'FOREIGN KEY' AND tc.table_schema = $1`, []any{schemaName}
}

func (d *PostgresDialect) VersionQuery() string { return "SELECT version()" }

func (d *PostgresDialect) UserQuery() string { return "SELECT current_user" }

func (d *PostgresDialect) DefaultSchema(cfg connector.DatabaseConfig) string {
	if cfg.Schema == "" {
		return "public"
	}
	return cfg.Schema
}

func (d *PostgresDialect) Placeholder(index int) string {
	return fmt.Sprintf("$%d", index+1)
}

func (d *PostgresDialect) EscapeIdentifier(name string) string {
	return pq.QuoteIdentifier(name)
}

func (d *PostgresDialect) Paginate(q string, limit, offset int) string {
	return limitOffset(q, limit, offset)
}

func (d *PostgresDialect) CountQuery(q string) string {
	return fmt.Sprintf("SELECT COUNT(*) FROM (%s) AS t", q)
}

func (d *PostgresDialect) MapType(native string) schema.MappedType {
	t := strings.ToLower(strings.TrimSpace(native))
	switch {
	case strings.HasPrefix(t, "_"), strings.HasSuffix(t, "[]"):
		return schema.TypeJSON
	case t == "bool":
		return schema.TypeBoolean
	case t == "oid", t == "xid":
		return schema.TypeNumber
	case t == "point", t == "uuid", t == "inet", t == "cidr", t == "tsvector":
		return schema.TypeString
	}
	return mapCommon(t)
}
