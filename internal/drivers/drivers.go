// Package drivers tracks which optional database/sql drivers are compiled into the binary.
// Each driver registers itself from a file excluded by its build tag (no_mysql, no_oracle,
// no_mssql), so a build can leave any of them out and the matching source kind reports
// MissingDependency instead of failing at startup.
package drivers

import (
	"fmt"
	"sort"
	"sync"

	"dataport/internal/connector"
)

// Provider opens database/sql connections for one source kind.
type Provider interface {
	Kind() connector.SourceKind
	// DriverName is the name the driver registered with database/sql.
	DriverName() string
	DSN(cfg connector.ConnectionConfig) (string, error)
}

// Packages names the driver module each optional source kind needs.
var Packages = map[connector.SourceKind]string{
	connector.KindMySQL:  "github.com/go-sql-driver/mysql",
	connector.KindOracle: "github.com/sijms/go-ora/v2",
	connector.KindMSSQL:  "github.com/microsoft/go-mssqldb",
}

// Optional reports whether kind depends on a driver that may be left out of the build.
func Optional(kind connector.SourceKind) bool {
	_, ok := Packages[kind]
	return ok
}

type Registry struct {
	mu        sync.RWMutex
	providers map[connector.SourceKind]Provider
}

func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{providers: make(map[connector.SourceKind]Provider)}
	for _, p := range providers {
		r.Register(p)
	}
	return r
}

var defaultRegistry = NewRegistry()

// Default is the registry the compiled-in drivers add themselves to.
func Default() *Registry { return defaultRegistry }

func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Kind()] = p
}

// Lookup returns the provider for kind, or MissingDependency when none is compiled in.
func (r *Registry) Lookup(kind connector.SourceKind) (Provider, error) {
	r.mu.RLock()
	p, ok := r.providers[kind]
	r.mu.RUnlock()
	if !ok {
		pkg := Packages[kind]
		if pkg == "" {
			pkg = fmt.Sprintf("driver for %s", kind)
		}
		return nil, connector.MissingDependency(kind, pkg)
	}
	return p, nil
}

func (r *Registry) Installed(kind connector.SourceKind) bool {
	_, err := r.Lookup(kind)
	return err == nil
}

// Kinds lists the registered source kinds in name order.
func (r *Registry) Kinds() []connector.SourceKind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]connector.SourceKind, 0, len(r.providers))
	for k := range r.providers {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func portOr(port, fallback int) int {
	if port > 0 {
		return port
	}
	return fallback
}

func wrongConfig(kind connector.SourceKind, cfg connector.ConnectionConfig) error {
	return connector.InvalidConfig(kind, "unexpected config type %T", cfg)
}
