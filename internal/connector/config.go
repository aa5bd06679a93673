package connector

// ConnectionConfig is the per-kind connection settings. The set of variants is closed.
type ConnectionConfig interface {
	Kind() SourceKind
	isConnectionConfig()
}

// CSVConfig configures a delimited text file.
type CSVConfig struct {
	FilePath  string `json:"filePath,omitempty"`
	Encoding  string `json:"encoding,omitempty"`
	Delimiter string `json:"delimiter,omitempty"`
	// HasHeader defaults to true when unset.
	HasHeader *bool `json:"hasHeader,omitempty"`
}

type JSONConfig struct {
	FilePath string `json:"filePath,omitempty"`
	Encoding string `json:"encoding,omitempty"`
	RootPath string `json:"rootPath,omitempty"`
}

type XMLConfig struct {
	FilePath string `json:"filePath,omitempty"`
	Encoding string `json:"encoding,omitempty"`
	RootPath string `json:"rootPath,omitempty"`
}

// DatabaseConfig holds the settings every relational source shares.
type DatabaseConfig struct {
	Host     string `json:"host,omitempty"`
	Port     int    `json:"port,omitempty"`
	Database string `json:"database,omitempty"`
	User     string `json:"user,omitempty"`
	Password string `json:"password,omitempty"`
	Schema   string `json:"schema,omitempty"`
	SSL      bool   `json:"ssl,omitempty"`
}

type PostgresConfig struct {
	DatabaseConfig
}

type MySQLConfig struct {
	DatabaseConfig
}

type OracleConfig struct {
	DatabaseConfig
	// SID is used instead of Database (the service name) when set.
	SID string `json:"sid,omitempty"`
}

type MSSQLConfig struct {
	DatabaseConfig
	Instance string `json:"instance,omitempty"`
}

type AuthType string

const (
	AuthNone   AuthType = "none"
	AuthBasic  AuthType = "basic"
	AuthBearer AuthType = "bearer"
	AuthAPIKey AuthType = "api_key"
)

type AuthConfig struct {
	Type     AuthType `json:"type,omitempty"`
	Username string   `json:"username,omitempty"`
	Password string   `json:"password,omitempty"`
	Token    string   `json:"token,omitempty"`
	APIKey   string   `json:"apiKey,omitempty"`
	// HeaderName is the api_key header, X-API-Key by default.
	HeaderName string `json:"headerName,omitempty"`
}

type PaginationType string

const (
	PaginationNone   PaginationType = "none"
	PaginationOffset PaginationType = "offset"
	PaginationPage   PaginationType = "page"
	PaginationCursor PaginationType = "cursor"
)

type PaginationConfig struct {
	Type           PaginationType `json:"type,omitempty"`
	PageSize       int            `json:"pageSize,omitempty"`
	OffsetParam    string         `json:"offsetParam,omitempty"`
	LimitParam     string         `json:"limitParam,omitempty"`
	PageParam      string         `json:"pageParam,omitempty"`
	CursorParam    string         `json:"cursorParam,omitempty"`
	NextCursorPath string         `json:"nextCursorPath,omitempty"`
	// StartPage is the number of the first page, 1 by default.
	StartPage int `json:"startPage,omitempty"`
}

type RESTConfig struct {
	BaseURL     string            `json:"baseUrl,omitempty"`
	Endpoint    string            `json:"endpoint,omitempty"`
	Method      string            `json:"method,omitempty"`
	Headers     map[string]string `json:"headers,omitempty"`
	QueryParams map[string]string `json:"queryParams,omitempty"`
	Auth        AuthConfig        `json:"auth,omitempty"`
	Pagination  PaginationConfig  `json:"pagination,omitempty"`
	// RecordsPath points at the record array in the response body; auto-detected when empty.
	RecordsPath string `json:"recordsPath,omitempty"`
	// TotalPath points at the total record count in the response body, if the API reports one.
	TotalPath      string  `json:"totalPath,omitempty"`
	TimeoutSeconds int     `json:"timeoutSeconds,omitempty"`
	RateLimit      float64 `json:"rateLimit,omitempty"`
}

func (CSVConfig) Kind() SourceKind      { return KindCSV }
func (JSONConfig) Kind() SourceKind     { return KindJSON }
func (XMLConfig) Kind() SourceKind      { return KindXML }
func (RESTConfig) Kind() SourceKind     { return KindREST }
func (PostgresConfig) Kind() SourceKind { return KindPostgres }
func (MySQLConfig) Kind() SourceKind    { return KindMySQL }
func (OracleConfig) Kind() SourceKind   { return KindOracle }
func (MSSQLConfig) Kind() SourceKind    { return KindMSSQL }

func (CSVConfig) isConnectionConfig()      {}
func (JSONConfig) isConnectionConfig()     {}
func (XMLConfig) isConnectionConfig()      {}
func (RESTConfig) isConnectionConfig()     {}
func (PostgresConfig) isConnectionConfig() {}
func (MySQLConfig) isConnectionConfig()    {}
func (OracleConfig) isConnectionConfig()   {}
func (MSSQLConfig) isConnectionConfig()    {}

// NewConfig returns an empty config value for kind, ready to be decoded into.
func NewConfig(kind SourceKind) (ConnectionConfig, bool) {
	switch kind {
	case KindCSV:
		return &CSVConfig{}, true
	case KindJSON:
		return &JSONConfig{}, true
	case KindXML:
		return &XMLConfig{}, true
	case KindREST:
		return &RESTConfig{}, true
	case KindPostgres:
		return &PostgresConfig{}, true
	case KindMySQL:
		return &MySQLConfig{}, true
	case KindOracle:
		return &OracleConfig{}, true
	case KindMSSQL:
		return &MSSQLConfig{}, true
	}
	return nil, false
}

// Deref turns a pointer produced by NewConfig back into its value form.
func Deref(cfg ConnectionConfig) ConnectionConfig {
	switch c := cfg.(type) {
	case *CSVConfig:
		return *c
	case *JSONConfig:
		return *c
	case *XMLConfig:
		return *c
	case *RESTConfig:
		return *c
	case *PostgresConfig:
		return *c
	case *MySQLConfig:
		return *c
	case *OracleConfig:
		return *c
	case *MSSQLConfig:
		return *c
	}
	return cfg
}

// Database returns the shared relational settings of cfg, if it has any.
func Database(cfg ConnectionConfig) (DatabaseConfig, bool) {
	switch c := Deref(cfg).(type) {
	case PostgresConfig:
		return c.DatabaseConfig, true
	case MySQLConfig:
		return c.DatabaseConfig, true
	case OracleConfig:
		return c.DatabaseConfig, true
	case MSSQLConfig:
		return c.DatabaseConfig, true
	}
	return DatabaseConfig{}, false
}
