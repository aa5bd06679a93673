package connector

import "strings"

// SourceKind names a supported origin of data.
type SourceKind string

const (
	KindCSV      SourceKind = "CSV"
	KindJSON     SourceKind = "JSON"
	KindXML      SourceKind = "XML"
	KindREST     SourceKind = "REST_API"
	KindPostgres SourceKind = "POSTGRESQL"
	KindMySQL    SourceKind = "MYSQL"
	KindOracle   SourceKind = "ORACLE_DB"
	KindMSSQL    SourceKind = "MSSQL"
)

// Kinds lists every source kind in a stable order.
var Kinds = []SourceKind{KindCSV, KindJSON, KindXML, KindREST, KindPostgres, KindMySQL, KindOracle, KindMSSQL}

var kindAliases = map[string]SourceKind{
	"csv":        KindCSV,
	"json":       KindJSON,
	"xml":        KindXML,
	"rest":       KindREST,
	"rest_api":   KindREST,
	"api":        KindREST,
	"postgres":   KindPostgres,
	"postgresql": KindPostgres,
	"mysql":      KindMySQL,
	"oracle":     KindOracle,
	"oracle_db":  KindOracle,
	"mssql":      KindMSSQL,
	"sqlserver":  KindMSSQL,
}

// ParseSourceKind accepts the canonical names case-insensitively plus a few common aliases.
func ParseSourceKind(s string) (SourceKind, bool) {
	k, ok := kindAliases[strings.ToLower(strings.TrimSpace(s))]
	return k, ok
}

func (k SourceKind) IsFile() bool {
	return k == KindCSV || k == KindJSON || k == KindXML
}

func (k SourceKind) IsRelational() bool {
	switch k {
	case KindPostgres, KindMySQL, KindOracle, KindMSSQL:
		return true
	}
	return false
}
