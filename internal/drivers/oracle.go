//go:build !no_oracle

package drivers

import (
	"dataport/internal/connector"

	go_ora "github.com/sijms/go-ora/v2"
)

func init() {
	defaultRegistry.Register(Oracle{})
}

// Oracle provides github.com/sijms/go-ora/v2, a pure Go driver that needs no client libraries.
type Oracle struct{}

func (Oracle) Kind() connector.SourceKind { return connector.KindOracle }

func (Oracle) DriverName() string { return "oracle" }

func (Oracle) DSN(cfg connector.ConnectionConfig) (string, error) {
	c, ok := connector.Deref(cfg).(connector.OracleConfig)
	if !ok {
		return "", wrongConfig(connector.KindOracle, cfg)
	}

	options := map[string]string{}
	service := c.Database
	if c.SID != "" {
		options["SID"] = c.SID
		service = ""
	}
	if c.SSL {
		options["SSL"] = "true"
	}
	if len(options) == 0 {
		options = nil
	}
	return go_ora.BuildUrl(c.Host, portOr(c.Port, 1521), service, c.User, c.Password, options), nil
}
