package dialect

import (
	"fmt"
	"strings"

	"dataport/internal/connector"
	"dataport/internal/schema"
)

type OracleDialect struct{}

func (d *OracleDialect) Kind() connector.SourceKind { return connector.KindOracle }

func (d *OracleDialect) TablesQuery(owner string) (string, []any) {
	// NUM_ROWS comes from the last statistics run and may be NULL.
	return `
SELECT t.TABLE_NAME, t.OWNER, 'BASE TABLE', t.NUM_ROWS
FROM ALL_TABLES t
WHERE t.OWNER = :1
UNION ALL
SELECT v.VIEW_NAME, v.OWNER, 'VIEW', NULL
FROM ALL_VIEWS v
WHERE v.OWNER = :2
ORDER BY 1`, []any{owner, owner}
}

func (d *OracleDialect) ColumnsQuery(owner, table string) (string, []any) {
	return `
SELECT
    c.COLUMN_NAME,
    c.DATA_TYPE,
    c.NULLABLE,
    c.CHAR_LENGTH,
    c.DATA_PRECISION,
    c.DATA_SCALE,
    CASE WHEN p.COLUMN_NAME IS NOT NULL THEN 1 ELSE 0 END
FROM ALL_TAB_COLUMNS c
LEFT JOIN (
    SELECT cc.OWNER, cc.TABLE_NAME, cc.COLUMN_NAME
    FROM ALL_CONS_COLUMNS cc
    JOIN ALL_CONSTRAINTS uc ON cc.CONSTRAINT_NAME = uc.CONSTRAINT_NAME AND cc.OWNER = uc.OWNER
    WHERE uc.CONSTRAINT_TYPE = 'P'
) p ON p.OWNER = c.OWNER AND p.TABLE_NAME = c.TABLE_NAME AND p.COLUMN_NAME = c.COLUMN_NAME
WHERE c.OWNER = :1 AND c.TABLE_NAME = :2
ORDER BY c.COLUMN_ID`, []any{owner, table}
}

func (d *OracleDialect) ForeignKeysQuery(owner string) (string, []any) {
	return `
SELECT
    c.TABLE_NAME,
    cc.COLUMN_NAME,
    r.TABLE_NAME AS REF_TABLE,
    rcc.COLUMN_NAME AS REF_COLUMN
FROM ALL_CONSTRAINTS c
JOIN ALL_CONS_COLUMNS cc
    ON c.CONSTRAINT_NAME = cc.CONSTRAINT_NAME
    AND c.OWNER = cc.OWNER
JOIN ALL_CONSTRAINTS r
    ON c.R_CONSTRAINT_NAME = r.CONSTRAINT_NAME
    AND c.R_OWNER = r.OWNER
JOIN ALL_CONS_COLUMNS rcc
    ON r.CONSTRAINT_NAME = rcc.CONSTRAINT_NAME
    AND r.OWNER = rcc.OWNER
    AND cc.POSITION = rcc.POSITION
WHERE c.CONSTRAINT_TYPE = 'R'
AND c.OWNER = :1`, []any{owner}
}

func (d *OracleDialect) VersionQuery() string {
	return "SELECT BANNER FROM v$version WHERE ROWNUM = 1"
}

func (d *OracleDialect) UserQuery() string { return "SELECT USER FROM DUAL" }

// DefaultSchema is the owner. Unquoted Oracle names are stored upper case.
func (d *OracleDialect) DefaultSchema(cfg connector.DatabaseConfig) string {
	if cfg.Schema != "" {
		return strings.ToUpper(cfg.Schema)
	}
	return strings.ToUpper(cfg.User)
}

func (d *OracleDialect) Placeholder(index int) string {
	// Oracle uses :1, :2, etc. (1-based index)
	return fmt.Sprintf(":%d", index+1)
}

func (d *OracleDialect) EscapeIdentifier(name string) string {
	return connector.EscapeIdentifier(name)
}

// Paginate uses the 12c row limiting clause.
func (d *OracleDialect) Paginate(q string, limit, offset int) string {
	if limit <= 0 && offset <= 0 {
		return q
	}
	q += fmt.Sprintf(" OFFSET %d ROWS", max(offset, 0))
	if limit > 0 {
		q += fmt.Sprintf(" FETCH NEXT %d ROWS ONLY", limit)
	}
	return q
}

// CountQuery omits AS; Oracle rejects it before a table alias.
func (d *OracleDialect) CountQuery(q string) string {
	return fmt.Sprintf("SELECT COUNT(*) FROM (%s) t", q)
}

func (d *OracleDialect) MapType(native string) schema.MappedType {
	t := strings.ToUpper(strings.TrimSpace(native))
	switch {
	case t == "ROWID", t == "UROWID":
		return schema.TypeString
	case strings.Contains(t, "RAW"), t == "BFILE":
		return schema.TypeUnknown
	}
	return mapCommon(t)
}
