package factory

import (
	"fmt"
	"net/url"
	"strings"

	"dataport/internal/connector"
	"dataport/internal/connector/file"
)

// ValidationResult lists every problem found in a config, so all can be shown at once.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

type problems []string

func (p *problems) add(format string, args ...any) {
	*p = append(*p, fmt.Sprintf(format, args...))
}

func (p *problems) require(field, value string) {
	if strings.TrimSpace(value) == "" {
		p.add("%s is required", field)
	}
}

// ValidateConnectionConfig checks presence and shape of the fields kind needs.
// It never fails; problems are reported in the result.
func ValidateConnectionConfig(kind connector.SourceKind, cfg connector.ConnectionConfig) ValidationResult {
	var errs problems
	switch {
	case cfg == nil:
		errs.add("config is required")
	case connector.Deref(cfg).Kind() != kind:
		errs.add("config is for %s, not %s", connector.Deref(cfg).Kind(), kind)
	default:
		switch c := connector.Deref(cfg).(type) {
		case connector.CSVConfig:
			if _, err := file.ParseDelimiter(c.Delimiter); err != nil {
				errs.add("delimiter must be a single character other than a quote or newline")
			}
			validateEncoding(&errs, c.Encoding)
		case connector.JSONConfig:
			validateEncoding(&errs, c.Encoding)
		case connector.XMLConfig:
			validateEncoding(&errs, c.Encoding)
		case connector.RESTConfig:
			validateREST(&errs, c)
		case connector.PostgresConfig:
			validateDatabase(&errs, c.DatabaseConfig, true)
		case connector.MySQLConfig:
			validateDatabase(&errs, c.DatabaseConfig, true)
		case connector.OracleConfig:
			validateDatabase(&errs, c.DatabaseConfig, c.SID == "")
		case connector.MSSQLConfig:
			validateDatabase(&errs, c.DatabaseConfig, true)
		default:
			errs.add("unsupported source kind %s", kind)
		}
	}
	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

func validateEncoding(errs *problems, label string) {
	if !file.SupportedEncoding(label) {
		errs.add("encoding %q is not supported", label)
	}
}

// validateDatabase requires host, port, database, user and password. Oracle may name a SID
// instead of a database.
func validateDatabase(errs *problems, c connector.DatabaseConfig, needDatabase bool) {
	errs.require("host", c.Host)
	switch {
	case c.Port == 0:
		errs.add("port is required")
	case c.Port < 0 || c.Port > 65535:
		errs.add("port must be between 1 and 65535")
	}
	if needDatabase {
		errs.require("database", c.Database)
	}
	errs.require("user", c.User)
	errs.require("password", c.Password)
}

func validateREST(errs *problems, c connector.RESTConfig) {
	errs.require("baseUrl", c.BaseURL)
	if c.BaseURL != "" {
		u, err := url.Parse(c.BaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs.add("baseUrl must be an absolute http or https URL")
		}
	}
	errs.require("endpoint", c.Endpoint)

	switch c.Auth.Type {
	case "", connector.AuthNone:
	case connector.AuthBasic:
		errs.require("auth.username", c.Auth.Username)
	case connector.AuthBearer:
		errs.require("auth.token", c.Auth.Token)
	case connector.AuthAPIKey:
		errs.require("auth.apiKey", c.Auth.APIKey)
	default:
		errs.add("auth.type %q is not one of none, basic, bearer, api_key", c.Auth.Type)
	}

	p := c.Pagination
	switch p.Type {
	case "", connector.PaginationNone, connector.PaginationOffset, connector.PaginationPage, connector.PaginationCursor:
	default:
		errs.add("pagination.type %q is not one of none, offset, page, cursor", p.Type)
	}
	if p.PageSize < 0 {
		errs.add("pagination.pageSize must not be negative")
	}
	if c.TimeoutSeconds < 0 {
		errs.add("timeoutSeconds must not be negative")
	}
	if c.RateLimit < 0 {
		errs.add("rateLimit must not be negative")
	}
}
