package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	cfg := Default("Clínica Sorriso")
	cfg.Store.Driver = DriverPostgres
	cfg.Store.DSN = "postgres://localhost/clinicbooks"
	cfg.Server.CORSOrigins = []string{"http://localhost:3000"}

	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, Save(path, cfg))

	got, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "Clínica Sorriso", got.Practice.Name)
	assert.Equal(t, cfg.Practice.ClinicID, got.Practice.ClinicID)
	assert.Equal(t, DriverPostgres, got.Store.Driver)
	assert.Equal(t, cfg.Store.DSN, got.Store.DSN)
	assert.Equal(t, 5*time.Second, got.Store.Timeout)
	assert.Equal(t, 100*time.Millisecond, got.Store.InitialBackoff)
	assert.Equal(t, 3, got.Store.MaxAttempts)
	assert.Equal(t, ":8080", got.Server.Addr)
	assert.Equal(t, []string{"http://localhost:3000"}, got.Server.CORSOrigins)
	assert.Equal(t, 10, got.Admin.PageSize)
	assert.Equal(t, "info", got.Log.Level)
}

func TestDefaults(t *testing.T) {
	cfg := Default("Sorriso")

	assert.Equal(t, DriverFile, cfg.Store.Driver)
	assert.Equal(t, "data", cfg.Store.Dir)
	assert.Equal(t, "tax-parameters.yaml", cfg.Tax.ParametersFile)
	assert.Equal(t, 4, cfg.Admin.Concurrency)
	assert.NoError(t, cfg.Validate())

	p := cfg.RetryPolicy()
	assert.Equal(t, 5*time.Second, p.Timeout)
	assert.Equal(t, 3, p.MaxAttempts)
	assert.Equal(t, 2*time.Second, p.MaxInterval)
}

func TestLoadNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestYAMLFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, Save(path, Default("Sorriso")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	contents := string(data)

	assert.Contains(t, contents, "name: Sorriso")
	assert.Contains(t, contents, "driver: file")
	assert.Contains(t, contents, "timeout: 5s")
	assert.Contains(t, contents, "parameters_file: tax-parameters.yaml")
	assert.NotContains(t, contents, "dsn:")
}

func TestPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("practice:\n  name: Sorriso\nlog:\n  level: debug\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Sorriso", cfg.Practice.Name)
	assert.Equal(t, DriverFile, cfg.Store.Driver)
	assert.Equal(t, 10, cfg.Admin.PageSize)
	assert.Equal(t, zerolog.DebugLevel, cfg.LogLevel())
}

func TestEnvironmentOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, Save(path, Default("Sorriso")))

	t.Setenv("CLINICBOOKS_STORE_DRIVER", "postgres")
	t.Setenv("CLINICBOOKS_STORE_DSN", "postgres://db/clinicbooks")
	t.Setenv("CLINICBOOKS_STORE_TIMEOUT", "750ms")
	t.Setenv("CLINICBOOKS_ADMIN_PAGE_SIZE", "25")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DriverPostgres, cfg.Store.Driver)
	assert.Equal(t, "postgres://db/clinicbooks", cfg.Store.DSN)
	assert.Equal(t, 750*time.Millisecond, cfg.Store.Timeout)
	assert.Equal(t, 25, cfg.Admin.PageSize)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"unknown driver", "store:\n  driver: sqlite\n", "store.driver"},
		{"postgres without dsn", "store:\n  driver: postgres\n", "store.dsn"},
		{"page size", "admin:\n  page_size: 500\n", "admin.page_size"},
		{"log level", "log:\n  level: loud\n", "log.level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), FileName)
			require.NoError(t, os.WriteFile(path, []byte(tt.yaml), 0o644))
			_, err := Load(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestResolve(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	require.NoError(t, Save(path, Default("Sorriso")))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "data"), cfg.Resolve(cfg.Store.Dir))
	assert.Equal(t, "/abs/params.yaml", cfg.Resolve("/abs/params.yaml"))
	assert.Equal(t, "data", Default("x").Resolve("data"))
}
