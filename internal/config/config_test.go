package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, DriverMemory, cfg.Storage.Driver)
	assert.Equal(t, 10, cfg.Query.DefaultPageSize)
	assert.Equal(t, 500, cfg.Query.MaxPageSize)
	assert.Equal(t, 30*time.Second, cfg.Cache.TTL)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":9090"
  request_timeout: 3s
storage:
  driver: sqlite
  sqlite:
    path: /tmp/hosts.db
clusters:
  - name: dc1
    address: http://nomad:4646
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 3*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, 30*time.Second, cfg.Server.WriteTimeout, "untouched keys keep defaults")
	assert.Equal(t, DriverSQLite, cfg.Storage.Driver)
	assert.Equal(t, "/tmp/hosts.db", cfg.Storage.SQLite.Path)
	require.Len(t, cfg.Clusters, 1)
	assert.Equal(t, "dc1", cfg.Clusters[0].Name)
}

func TestLoadEnvironmentOverridesFile(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":9090"
logging:
  level: info
`)
	t.Setenv("HOSTDESK_SERVER__ADDR", ":7070")
	t.Setenv("HOSTDESK_LOGGING__LEVEL", "debug")
	t.Setenv("HOSTDESK_QUERY__MAX_PAGE_SIZE", "50")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.Server.Addr)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 50, cfg.Query.MaxPageSize)
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "server.addr", envKey("HOSTDESK_SERVER__ADDR"))
	assert.Equal(t, "storage.sqlite.path", envKey("HOSTDESK_STORAGE__SQLITE__PATH"))
	assert.Equal(t, "server.request_timeout", envKey("HOSTDESK_SERVER__REQUEST_TIMEOUT"))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "defaults are valid", mutate: func(c *Config) {}},
		{name: "empty addr", mutate: func(c *Config) { c.Server.Addr = "" }, wantErr: "server.addr"},
		{name: "bad log format", mutate: func(c *Config) { c.Logging.Format = "xml" }, wantErr: "logging.format"},
		{name: "unknown driver", mutate: func(c *Config) { c.Storage.Driver = "mongo" }, wantErr: "storage.driver"},
		{name: "etcd without endpoints", mutate: func(c *Config) { c.Storage.Driver = DriverEtcd }, wantErr: "endpoints"},
		{name: "sqlite without path", mutate: func(c *Config) {
			c.Storage.Driver = DriverSQLite
			c.Storage.SQLite.Path = ""
		}, wantErr: "sqlite.path"},
		{name: "default page size above max", mutate: func(c *Config) { c.Query.DefaultPageSize = 600 }, wantErr: "default_page_size"},
		{name: "sync without clusters", mutate: func(c *Config) { c.Sync.Enabled = true }, wantErr: "cluster"},
		{name: "cluster without address", mutate: func(c *Config) {
			c.Clusters = []ClusterConfig{{Name: "dc1"}}
		}, wantErr: "cluster[0].address"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
