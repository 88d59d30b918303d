package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, dir, name string, data map[string]any) string {
	t.Helper()
	if dir == "" {
		dir = t.TempDir()
	}
	if name == "" {
		name = "cfg.json"
	}
	path := filepath.Join(dir, name)
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	dir := t.TempDir()
	pathFlag := writeTempJSON(t, dir, "flag.json", map[string]any{
		"database_dsn":     "postgres://example/tt",
		"filestore_root":   "/srv/filestore",
		"blob_backend":     "s3",
		"simulator_path":   "/opt/nfmw-sim",
		"arbiter_workers":  8,
		"arbiter_timeout":  "90s",
		"s3_root_user":     "user",
		"s3_root_password": "password",
		"s3_bucket":        "bucket",
		"s3_region":        "region",
		"s3_base_endpoint": "base_endpoint",
	})

	t.Run("loads from json", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", pathFlag}

		cfg := &Config{}
		parseJson(cfg)

		assert.Equal(t, "postgres://example/tt", cfg.DatabaseDSN)
		assert.Equal(t, "/srv/filestore", cfg.FilestoreRoot)
		assert.Equal(t, "s3", cfg.BlobBackend)
		assert.Equal(t, "/opt/nfmw-sim", cfg.SimulatorPath)
		assert.Equal(t, 8, cfg.ArbiterWorkers)
		assert.Equal(t, 90*time.Second, cfg.ArbiterTimeout)
		assert.Equal(t, "user", cfg.S3RootUser)
		assert.Equal(t, "password", cfg.S3RootPassword)
		assert.Equal(t, "bucket", cfg.S3Bucket)
		assert.Equal(t, "region", cfg.S3Region)
		assert.Equal(t, "base_endpoint", cfg.S3BaseEndpoint)
	})

	t.Run("missing fields keep defaults", func(t *testing.T) {
		partial := writeTempJSON(t, dir, "partial.json", map[string]any{
			"database_dsn": "postgres://partial/tt",
		})
		os.Args = []string{"testbin", "-config", partial}

		cfg := &Config{}
		cfg.LoadDefaults()
		parseJson(cfg)

		assert.Equal(t, "postgres://partial/tt", cfg.DatabaseDSN)
		assert.Equal(t, "fs", cfg.BlobBackend)
		assert.Equal(t, 2, cfg.ArbiterWorkers)
		assert.Equal(t, 2*time.Minute, cfg.ArbiterTimeout)
	})

	t.Run("no config flag leaves config untouched", func(t *testing.T) {
		os.Args = []string{"testbin"}

		cfg := &Config{DatabaseDSN: "keep-me", ArbiterWorkers: 3}
		parseJson(cfg)

		assert.Equal(t, "keep-me", cfg.DatabaseDSN)
		assert.Equal(t, 3, cfg.ArbiterWorkers)
	})
}
