package factory

import (
	"fmt"
	"strings"

	"dataport/internal/connector"
	"dataport/internal/secret"

	gojson "github.com/goccy/go-json"
)

// ParseConfig decodes a JSON object into the config variant of kind.
func ParseConfig(kind connector.SourceKind, raw []byte) (connector.ConnectionConfig, error) {
	cfg, ok := connector.NewConfig(kind)
	if !ok {
		return nil, connector.UnsupportedSource(kind)
	}
	if err := gojson.Unmarshal(raw, cfg); err != nil {
		return nil, connector.InvalidConfig(kind, "decode config: %v", err)
	}
	return connector.Deref(cfg), nil
}

// ConfigFromMap converts a loosely typed settings map, as read from YAML, into a config.
func ConfigFromMap(kind connector.SourceKind, m map[string]any) (connector.ConnectionConfig, error) {
	raw, err := gojson.Marshal(m)
	if err != nil {
		return nil, connector.InvalidConfig(kind, "encode config: %v", err)
	}
	return ParseConfig(kind, raw)
}

// EncryptConnectionConfig serializes cfg and encrypts it for storage.
func EncryptConnectionConfig(cfg connector.ConnectionConfig, c secret.Cipher) (string, error) {
	if cfg == nil {
		return "", fmt.Errorf("encrypt config: config is nil")
	}
	raw, err := gojson.Marshal(connector.Deref(cfg))
	if err != nil {
		return "", fmt.Errorf("encrypt config: %w", err)
	}
	out, err := c.Encrypt(string(raw))
	if err != nil {
		return "", fmt.Errorf("encrypt config: %w", err)
	}
	return out, nil
}

// DecryptConnectionConfig reverses EncryptConnectionConfig. A stored value that is a plain
// JSON object predates encryption and is decoded as is.
func DecryptConnectionConfig(kind connector.SourceKind, stored string, c secret.Cipher) (connector.ConnectionConfig, error) {
	trimmed := strings.TrimSpace(stored)
	if strings.HasPrefix(trimmed, "{") {
		return ParseConfig(kind, []byte(trimmed))
	}
	plain, err := c.Decrypt(trimmed)
	if err != nil {
		return nil, fmt.Errorf("decrypt config: %w", err)
	}
	return ParseConfig(kind, []byte(plain))
}
