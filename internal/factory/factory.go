// Package factory creates connectors from a source kind and its configuration, and guards
// the crossing of configs into and out of storage.
package factory

import (
	"dataport/internal/connector"
	"dataport/internal/connector/file"
	"dataport/internal/connector/relational"
	"dataport/internal/connector/rest"
	"dataport/internal/drivers"
)

type constructor func(f *Factory, cfg connector.ConnectionConfig) connector.Connector

// constructors maps every kind to its connector. Relational kinds with optional drivers
// resolve the driver on Connect, so building one never fails for a missing package.
var constructors = map[connector.SourceKind]constructor{
	connector.KindCSV: func(_ *Factory, cfg connector.ConnectionConfig) connector.Connector {
		return file.NewCSV(cfg.(connector.CSVConfig))
	},
	connector.KindJSON: func(_ *Factory, cfg connector.ConnectionConfig) connector.Connector {
		return file.NewJSON(cfg.(connector.JSONConfig))
	},
	connector.KindXML: func(_ *Factory, cfg connector.ConnectionConfig) connector.Connector {
		return file.NewXML(cfg.(connector.XMLConfig))
	},
	connector.KindREST: func(f *Factory, cfg connector.ConnectionConfig) connector.Connector {
		return rest.New(cfg.(connector.RESTConfig), f.restOptions...)
	},
	connector.KindPostgres: func(_ *Factory, cfg connector.ConnectionConfig) connector.Connector {
		return relational.NewPostgres(cfg.(connector.PostgresConfig))
	},
	connector.KindMySQL: func(f *Factory, cfg connector.ConnectionConfig) connector.Connector {
		return relational.NewMySQL(cfg.(connector.MySQLConfig), f.drivers)
	},
	connector.KindOracle: func(f *Factory, cfg connector.ConnectionConfig) connector.Connector {
		return relational.NewOracle(cfg.(connector.OracleConfig), f.drivers)
	},
	connector.KindMSSQL: func(f *Factory, cfg connector.ConnectionConfig) connector.Connector {
		return relational.NewMSSQL(cfg.(connector.MSSQLConfig), f.drivers)
	},
}

type Factory struct {
	drivers     *drivers.Registry
	observer    connector.Observer
	restOptions []rest.Option
}

type Option func(*Factory)

// WithDrivers replaces the compiled-in driver registry.
func WithDrivers(reg *drivers.Registry) Option {
	return func(f *Factory) { f.drivers = reg }
}

// WithObserver attaches o to every connector the factory creates.
func WithObserver(o connector.Observer) Option {
	return func(f *Factory) { f.observer = o }
}

func WithRESTOptions(opts ...rest.Option) Option {
	return func(f *Factory) { f.restOptions = append(f.restOptions, opts...) }
}

func New(opts ...Option) *Factory {
	f := &Factory{drivers: drivers.Default()}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Create builds an unconnected connector for kind. cfg may be a value or a pointer to one.
func (f *Factory) Create(kind connector.SourceKind, cfg connector.ConnectionConfig) (connector.Connector, error) {
	build, ok := constructors[kind]
	if !ok {
		return nil, connector.UnsupportedSource(kind)
	}
	if cfg == nil {
		return nil, connector.InvalidConfig(kind, "config is required")
	}
	cfg = connector.Deref(cfg)
	if cfg.Kind() != kind {
		return nil, connector.InvalidConfig(kind, "config is for %s", cfg.Kind())
	}

	c := build(f, cfg)
	if f.observer != nil {
		if o, ok := c.(interface{ SetObserver(connector.Observer) }); ok {
			o.SetObserver(f.observer)
		}
	}
	return c, nil
}

// RequiresExternalPackage reports whether kind needs a driver that may be left out of the build.
func (f *Factory) RequiresExternalPackage(kind connector.SourceKind) bool {
	return drivers.Optional(kind)
}

// IsDependencyInstalled reports whether a connector of kind can connect in this build.
func (f *Factory) IsDependencyInstalled(kind connector.SourceKind) bool {
	if _, ok := constructors[kind]; !ok {
		return false
	}
	if !drivers.Optional(kind) {
		return true
	}
	return f.drivers.Installed(kind)
}

// SupportedKinds lists every kind Create accepts, installed or not.
func SupportedKinds() []connector.SourceKind {
	out := make([]connector.SourceKind, 0, len(connector.Kinds))
	for _, k := range connector.Kinds {
		if _, ok := constructors[k]; ok {
			out = append(out, k)
		}
	}
	return out
}
