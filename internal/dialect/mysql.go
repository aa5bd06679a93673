package dialect

import (
	"fmt"
	"strings"

	"dataport/internal/connector"
	"dataport/internal/schema"
)

type MysqlDialect struct{}

// mysqlMaxRows is the documented way to ask MySQL for an OFFSET without a LIMIT.
const mysqlMaxRows = "18446744073709551615"

func (d *MysqlDialect) Kind() connector.SourceKind { return connector.KindMySQL }

func (d *MysqlDialect) TablesQuery(schemaName string) (string, []any) {
	return `SELECT TABLE_NAME, TABLE_SCHEMA, TABLE_TYPE, TABLE_ROWS FROM information_schema.TABLES WHERE TABLE_SCHEMA = ? AND TABLE_TYPE IN ('BASE TABLE', 'VIEW') ORDER BY TABLE_NAME`, []any{schemaName}
}

func (d *MysqlDialect) ColumnsQuery(schemaName, table string) (string, []any) {
	return `SELECT COLUMN_NAME, COLUMN_TYPE, IS_NULLABLE, CHARACTER_MAXIMUM_LENGTH, NUMERIC_PRECISION, NUMERIC_SCALE, IF(COLUMN_KEY = 'PRI', 1, 0) FROM information_schema.COLUMNS WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ? ORDER BY ORDINAL_POSITION`, []any{schemaName, table}
}

func (d *MysqlDialect) ForeignKeysQuery(schemaName string) (string, []any) {
	return `SELECT TABLE_NAME, COLUMN_NAME, REFERENCED_TABLE_NAME, REFERENCED_COLUMN_NAME FROM information_schema.KEY_COLUMN_USAGE WHERE TABLE_SCHEMA = ? AND REFERENCED_TABLE_NAME IS NOT NULL`, []any{schemaName}
}

func (d *MysqlDialect) VersionQuery() string { return "SELECT VERSION()" }

func (d *MysqlDialect) UserQuery() string { return "SELECT CURRENT_USER()" }

// DefaultSchema is the database; MySQL has no separate schema level.
func (d *MysqlDialect) DefaultSchema(cfg connector.DatabaseConfig) string {
	if cfg.Schema != "" {
		return cfg.Schema
	}
	return cfg.Database
}

func (d *MysqlDialect) Placeholder(index int) string {
	return "?"
}

func (d *MysqlDialect) EscapeIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func (d *MysqlDialect) Paginate(q string, limit, offset int) string {
	if limit <= 0 && offset > 0 {
		return fmt.Sprintf("%s LIMIT %s OFFSET %d", q, mysqlMaxRows, offset)
	}
	return limitOffset(q, limit, offset)
}

func (d *MysqlDialect) CountQuery(q string) string {
	return fmt.Sprintf("SELECT COUNT(*) FROM (%s) AS t", q)
}

func (d *MysqlDialect) MapType(native string) schema.MappedType {
	t := strings.ToLower(strings.TrimSpace(native))
	switch {
	case strings.HasPrefix(t, "tinyint(1)"):
		return schema.TypeBoolean
	case strings.HasPrefix(t, "enum"), strings.HasPrefix(t, "set"):
		return schema.TypeString
	case t == "year":
		return schema.TypeNumber
	}
	return mapCommon(t)
}
