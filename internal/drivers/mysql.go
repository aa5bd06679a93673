//go:build !no_mysql

package drivers

import (
	"net"
	"strconv"

	"dataport/internal/connector"

	"github.com/go-sql-driver/mysql"
)

func init() {
	defaultRegistry.Register(MySQL{})
}

// MySQL provides github.com/go-sql-driver/mysql.
type MySQL struct{}

func (MySQL) Kind() connector.SourceKind { return connector.KindMySQL }

func (MySQL) DriverName() string { return "mysql" }

func (MySQL) DSN(cfg connector.ConnectionConfig) (string, error) {
	c, ok := connector.Deref(cfg).(connector.MySQLConfig)
	if !ok {
		return "", wrongConfig(connector.KindMySQL, cfg)
	}

	mc := mysql.NewConfig()
	mc.User = c.User
	mc.Passwd = c.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(c.Host, strconv.Itoa(portOr(c.Port, 3306)))
	mc.DBName = c.Database
	mc.ParseTime = true
	if c.SSL {
		mc.TLSConfig = "true"
	}
	return mc.FormatDSN(), nil
}
