package config

import (
	"errors"
	"os"
	"strings"

	"github.com/julianstephens/driftlog/internal/keyring"
	"github.com/julianstephens/driftlog/internal/logger"
)

// EnvDBConnection names the environment variable holding a PostgreSQL connection string.
const EnvDBConnection = "DRIFTLOG_DB_CONNECTION"

// DSNSource records where a connection string came from.
type DSNSource string

const (
	SourceNone    DSNSource = ""
	SourceConfig  DSNSource = "config"
	SourceEnv     DSNSource = "env"
	SourceKeyring DSNSource = "keyring"
)

// keyringLookup is replaced in tests.
var keyringLookup = keyring.GetConnectionString

// ResolveDSN returns the PostgreSQL connection string to use, checking the
// config file, then the environment, then the OS keyring. An empty result
// means the SQLite store at Database.Path.
func (c *Config) ResolveDSN() (string, DSNSource) {
	if dsn := strings.TrimSpace(c.Database.DSN); dsn != "" {
		return dsn, SourceConfig
	}
	if dsn := strings.TrimSpace(os.Getenv(EnvDBConnection)); dsn != "" {
		return dsn, SourceEnv
	}
	dsn, err := keyringLookup()
	switch {
	case err == nil && strings.TrimSpace(dsn) != "":
		return dsn, SourceKeyring
	case err != nil && !errors.Is(err, keyring.ErrNotFound):
		logger.Debug("Keyring lookup failed", "error", err)
	}
	return "", SourceNone
}
