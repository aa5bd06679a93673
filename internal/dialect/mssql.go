package dialect

import (
	"fmt"
	"strings"

	"dataport/internal/connector"
	"dataport/internal/schema"
)

type MSSQLDialect struct{}

// MSSQL Driver (go-mssqldb) prefers @p1, @p2 named parameters over ?

func (d *MSSQLDialect) Kind() connector.SourceKind { return connector.KindMSSQL }

func (d *MSSQLDialect) TablesQuery(schemaName string) (string, []any) {
	return `
		SELECT
			t.TABLE_NAME,
			t.TABLE_SCHEMA,
			t.TABLE_TYPE,
			(SELECT SUM(p.rows) FROM sys.partitions p
			 WHERE p.object_id = OBJECT_ID(QUOTENAME(t.TABLE_SCHEMA) + '.' + QUOTENAME(t.TABLE_NAME))
			 AND p.index_id IN (0, 1)) AS ESTIMATED_ROWS
		FROM INFORMATION_SCHEMA.TABLES t
		WHERE t.TABLE_SCHEMA = @p1
		ORDER BY t.TABLE_NAME
	`, []any{schemaName}
}

func (d *MSSQLDialect) ColumnsQuery(schemaName, table string) (string, []any) {
	return `
		SELECT
			c.COLUMN_NAME,
			c.DATA_TYPE,
			c.IS_NULLABLE,
			c.CHARACTER_MAXIMUM_LENGTH,
			c.NUMERIC_PRECISION,
			c.NUMERIC_SCALE,
			CASE WHEN pk.COLUMN_NAME IS NOT NULL THEN 1 ELSE 0 END
		FROM INFORMATION_SCHEMA.COLUMNS c
		LEFT JOIN (
			SELECT kcu.TABLE_SCHEMA, kcu.TABLE_NAME, kcu.COLUMN_NAME
			FROM INFORMATION_SCHEMA.TABLE_CONSTRAINTS tc
			JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE kcu
				ON tc.CONSTRAINT_NAME = kcu.CONSTRAINT_NAME AND tc.TABLE_SCHEMA = kcu.TABLE_SCHEMA
			WHERE tc.CONSTRAINT_TYPE = 'PRIMARY KEY'
		) pk ON pk.TABLE_SCHEMA = c.TABLE_SCHEMA AND pk.TABLE_NAME = c.TABLE_NAME AND pk.COLUMN_NAME = c.COLUMN_NAME
		WHERE c.TABLE_SCHEMA = @p1 AND c.TABLE_NAME = @p2
		ORDER BY c.ORDINAL_POSITION
	`, []any{schemaName, table}
}

func (d *MSSQLDialect) ForeignKeysQuery(schemaName string) (string, []any) {
	return `SELECT KCU1.TABLE_NAME, KCU1.COLUMN_NAME, KCU2.TABLE_NAME AS REF_TABLE, KCU2.COLUMN_NAME AS REF_COLUMN FROM INFORMATION_SCHEMA.REFERENTIAL_CONSTRAINTS RC JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE KCU1 ON RC.CONSTRAINT_NAME = KCU1.CONSTRAINT_NAME JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE KCU2 ON RC.UNIQUE_CONSTRAINT_NAME = KCU2.CONSTRAINT_NAME AND KCU1.ORDINAL_POSITION = KCU2.ORDINAL_POSITION WHERE KCU1.TABLE_SCHEMA = @p1`, []any{schemaName}
}

func (d *MSSQLDialect) VersionQuery() string { return "SELECT @@VERSION" }

func (d *MSSQLDialect) UserQuery() string { return "SELECT SUSER_SNAME()" }

func (d *MSSQLDialect) DefaultSchema(cfg connector.DatabaseConfig) string {
	if cfg.Schema == "" {
		return "dbo"
	}
	return cfg.Schema
}

func (d *MSSQLDialect) Placeholder(index int) string {
	return fmt.Sprintf("@p%d", index+1)
}

func (d *MSSQLDialect) EscapeIdentifier(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}

// Paginate uses OFFSET/FETCH, which T-SQL only accepts after an ORDER BY.
func (d *MSSQLDialect) Paginate(q string, limit, offset int) string {
	if limit <= 0 && offset <= 0 {
		return q
	}
	if !hasOrderBy(q) {
		q += " ORDER BY (SELECT NULL)"
	}
	q += fmt.Sprintf(" OFFSET %d ROWS", max(offset, 0))
	if limit > 0 {
		q += fmt.Sprintf(" FETCH NEXT %d ROWS ONLY", limit)
	}
	return q
}

// CountQuery keeps an inner ORDER BY legal by giving it an OFFSET.
func (d *MSSQLDialect) CountQuery(q string) string {
	if hasOrderBy(q) && !strings.Contains(strings.ToUpper(q), "OFFSET") {
		q += " OFFSET 0 ROWS"
	}
	return fmt.Sprintf("SELECT COUNT(*) FROM (%s) AS t", q)
}

func (d *MSSQLDialect) MapType(native string) schema.MappedType {
	t := strings.ToLower(strings.TrimSpace(native))
	switch t {
	case "bit":
		return schema.TypeBoolean
	case "uniqueidentifier", "xml", "sql_variant", "hierarchyid":
		return schema.TypeString
	case "image", "timestamp", "rowversion":
		return schema.TypeUnknown
	}
	return mapCommon(t)
}
