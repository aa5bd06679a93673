package cmd

import (
	"context"
	"fmt"
	"strings"

	"dataport/internal/connector"
	"dataport/internal/factory"
	"dataport/internal/secret"

	"github.com/spf13/viper"
)

// SourceConfig is one entry of the sources list. The connection settings live either in
// Config as plain keys or in Encrypted as produced by the encrypt command.
type SourceConfig struct {
	Name      string         `mapstructure:"name"`
	Kind      string         `mapstructure:"kind"`
	Active    bool           `mapstructure:"active"`
	Config    map[string]any `mapstructure:"config"`
	Encrypted string         `mapstructure:"encrypted"`
}

// GetActiveSource returns the source named by --source, or the active one.
func GetActiveSource() (*SourceConfig, error) {
	var configs []SourceConfig

	if err := viper.UnmarshalKey("sources", &configs); err != nil {
		return nil, fmt.Errorf("failed to parse sources config: %w", err)
	}

	if sourceName != "" {
		for i := range configs {
			if strings.EqualFold(configs[i].Name, sourceName) {
				return &configs[i], nil
			}
		}
		return nil, fmt.Errorf("source %q not found in config", sourceName)
	}

	var activeConfig *SourceConfig
	count := 0

	for i := range configs {
		if configs[i].Active {
			activeConfig = &configs[i]
			count++
		}
	}

	if count == 0 {
		return nil, fmt.Errorf("no active source found in config (set active: true)")
	}
	if count > 1 {
		return nil, fmt.Errorf("multiple active sources found (only one can be active)")
	}

	return activeConfig, nil
}

func (s *SourceConfig) SourceKind() (connector.SourceKind, error) {
	kind, ok := connector.ParseSourceKind(s.Kind)
	if !ok {
		return "", connector.UnsupportedSource(connector.SourceKind(s.Kind))
	}
	return kind, nil
}

// ConnectionConfig decodes the source settings, decrypting them when needed.
func (s *SourceConfig) ConnectionConfig() (connector.SourceKind, connector.ConnectionConfig, error) {
	kind, err := s.SourceKind()
	if err != nil {
		return "", nil, err
	}
	if s.Encrypted == "" {
		cfg, err := factory.ConfigFromMap(kind, s.Config)
		return kind, cfg, err
	}
	c, err := configCipher()
	if err != nil {
		return "", nil, err
	}
	cfg, err := factory.DecryptConnectionConfig(kind, s.Encrypted, c)
	return kind, cfg, err
}

func configCipher() (secret.Cipher, error) {
	key := viper.GetString("secret.key")
	if key == "" {
		return nil, fmt.Errorf("secret.key is required (via config or DATAPORT_SECRET_KEY)")
	}
	return secret.NewAESGCM(key)
}

// openSource validates the active source, creates its connector and connects it.
func openSource(ctx context.Context, f *factory.Factory) (connector.Connector, *SourceConfig, error) {
	src, err := GetActiveSource()
	if err != nil {
		return nil, nil, err
	}
	kind, cfg, err := src.ConnectionConfig()
	if err != nil {
		return nil, nil, err
	}
	if res := factory.ValidateConnectionConfig(kind, cfg); !res.Valid {
		return nil, nil, fmt.Errorf("invalid config for source %s: %s", src.Name, strings.Join(res.Errors, "; "))
	}

	c, err := f.Create(kind, cfg)
	if err != nil {
		return nil, nil, err
	}
	if err := c.Connect(ctx); err != nil {
		return nil, nil, err
	}
	return c, src, nil
}
