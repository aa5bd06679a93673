//go:build !no_mssql

package drivers

import (
	"net"
	"net/url"
	"strconv"

	"dataport/internal/connector"

	_ "github.com/microsoft/go-mssqldb" // SQL Server Driver
)

func init() {
	defaultRegistry.Register(MSSQL{})
}

// MSSQL provides github.com/microsoft/go-mssqldb.
type MSSQL struct{}

func (MSSQL) Kind() connector.SourceKind { return connector.KindMSSQL }

func (MSSQL) DriverName() string { return "sqlserver" }

// DSN builds a sqlserver:// URL. A named instance replaces the port.
func (MSSQL) DSN(cfg connector.ConnectionConfig) (string, error) {
	c, ok := connector.Deref(cfg).(connector.MSSQLConfig)
	if !ok {
		return "", wrongConfig(connector.KindMSSQL, cfg)
	}

	u := &url.URL{
		Scheme: "sqlserver",
		User:   url.UserPassword(c.User, c.Password),
	}
	if c.Instance != "" {
		u.Host = c.Host
		u.Path = c.Instance
	} else {
		u.Host = net.JoinHostPort(c.Host, strconv.Itoa(portOr(c.Port, 1433)))
	}

	q := url.Values{}
	if c.Database != "" {
		q.Set("database", c.Database)
	}
	if c.SSL {
		q.Set("encrypt", "true")
	} else {
		q.Set("encrypt", "disable")
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
