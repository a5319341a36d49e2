package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "scout_", cfg.Index.TablePrefix)
	assert.Equal(t, 3, cfg.Index.TransactionAttempts)
	assert.Equal(t, 100, cfg.Index.InsertChunkSize)
	assert.Equal(t, 1.0, cfg.Search.InverseDocumentFrequencyWeight)
	assert.Equal(t, 1.0, cfg.Search.TermFrequencyWeight)
	assert.Equal(t, 1.0, cfg.Search.TermDeviationWeight)
	assert.True(t, cfg.Search.WildcardLastToken)
	assert.False(t, cfg.Search.RequireMatchForAllTokens)
	assert.Equal(t, "english", cfg.Stemmer.Language)
	assert.False(t, cfg.Cache.Enabled)
}

func TestLoadFromYAMLFile(t *testing.T) {
	content := `
database:
  driver: sqlite
  path: /tmp/scout.db
index:
  tablePrefix: custom_
  transactionAttempts: 5
search:
  wildcardLastToken: false
  requireMatchForAllTokens: true
stemmer:
  language: german
cache:
  enabled: true
  ttl: 30s
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "/tmp/scout.db", cfg.Database.Path)
	assert.Equal(t, "custom_", cfg.Index.TablePrefix)
	assert.Equal(t, 5, cfg.Index.TransactionAttempts)
	assert.False(t, cfg.Search.WildcardLastToken)
	assert.True(t, cfg.Search.RequireMatchForAllTokens)
	assert.Equal(t, "german", cfg.Stemmer.Language)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, 30*time.Second, cfg.Cache.TTL)
	// Untouched sections keep their defaults.
	assert.Equal(t, 100, cfg.Index.InsertChunkSize)
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	t.Setenv("SCOUT_DB_DRIVER", "sqlite")
	t.Setenv("SCOUT_DB_PATH", "/tmp/env.db")
	t.Setenv("SCOUT_INDEX_TRANSACTION_ATTEMPTS", "7")
	t.Setenv("SCOUT_SEARCH_REQUIRE_ALL_TOKENS", "true")
	t.Setenv("SCOUT_STEMMER_LANGUAGE", "french")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "/tmp/env.db", cfg.Database.Path)
	assert.Equal(t, 7, cfg.Index.TransactionAttempts)
	assert.True(t, cfg.Search.RequireMatchForAllTokens)
	assert.Equal(t, "french", cfg.Stemmer.Language)
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Setenv("SCOUT_DB_DRIVER", "oracle")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database driver")
}

func TestLoadRejectsMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestDSN(t *testing.T) {
	pg := DatabaseConfig{
		Driver: "postgres", Host: "db", Port: 5433, User: "u",
		Password: "p", Database: "scout", SSLMode: "require",
	}
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=scout sslmode=require", pg.DSN())

	assert.Equal(t, ":memory:", DatabaseConfig{Driver: "sqlite"}.DSN())
	assert.Equal(t, "/data/scout.db", DatabaseConfig{Driver: "sqlite", Path: "/data/scout.db"}.DSN())
}
