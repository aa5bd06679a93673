package cmd

import (
	"testing"

	"dataport/internal/connector"
	"dataport/internal/factory"
	"dataport/internal/secret"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withSources(t *testing.T, sources []map[string]any) {
	t.Helper()
	viper.Reset()
	viper.Set("sources", sources)
	t.Cleanup(func() {
		viper.Reset()
		sourceName = ""
	})
}

func TestGetActiveSource(t *testing.T) {
	withSources(t, []map[string]any{
		{"name": "leads", "kind": "csv", "config": map[string]any{"filePath": "leads.csv"}},
		{"name": "crm", "kind": "postgres", "active": true},
	})

	src, err := GetActiveSource()
	require.NoError(t, err)
	assert.Equal(t, "crm", src.Name)

	sourceName = "LEADS"
	src, err = GetActiveSource()
	require.NoError(t, err)
	kind, cfg, err := src.ConnectionConfig()
	require.NoError(t, err)
	assert.Equal(t, connector.KindCSV, kind)
	assert.Equal(t, "leads.csv", cfg.(connector.CSVConfig).FilePath)

	sourceName = "nope"
	_, err = GetActiveSource()
	assert.EqualError(t, err, `source "nope" not found in config`)
}

func TestGetActiveSourceNeedsExactlyOne(t *testing.T) {
	withSources(t, []map[string]any{{"name": "a", "kind": "csv"}})
	_, err := GetActiveSource()
	assert.EqualError(t, err, "no active source found in config (set active: true)")

	withSources(t, []map[string]any{
		{"name": "a", "kind": "csv", "active": true},
		{"name": "b", "kind": "json", "active": true},
	})
	_, err = GetActiveSource()
	assert.EqualError(t, err, "multiple active sources found (only one can be active)")
}

func TestEncryptedSourceConfig(t *testing.T) {
	c, err := secret.NewAESGCM("s3cret")
	require.NoError(t, err)
	want := connector.MySQLConfig{DatabaseConfig: connector.DatabaseConfig{
		Host: "db", Port: 3306, Database: "crm", User: "app", Password: "pw",
	}}
	stored, err := factory.EncryptConnectionConfig(want, c)
	require.NoError(t, err)

	withSources(t, []map[string]any{{"name": "crm", "kind": "mysql", "active": true, "encrypted": stored}})

	src, err := GetActiveSource()
	require.NoError(t, err)
	_, _, err = src.ConnectionConfig()
	assert.ErrorContains(t, err, "secret.key is required")

	viper.Set("secret.key", "s3cret")
	_, got, err := src.ConnectionConfig()
	require.NoError(t, err)
	assert.Equal(t, want, got)

	src.Kind = "mongodb"
	_, _, err = src.ConnectionConfig()
	assert.ErrorIs(t, err, connector.ErrUnsupportedSource)
}
