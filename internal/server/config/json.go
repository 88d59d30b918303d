package config

import (
	"encoding/json"
	"os"

	"github.com/nfmw/ttserver/internal/flagx"
	"github.com/nfmw/ttserver/internal/timex"
)

// JsonConfig is an intermediate DTO used only for reading JSON
// configuration files. It uses timex.Duration for interval fields, which
// allows parsing both string values such as "90s" and integer nanoseconds.
// After unmarshalling, its fields are copied into the runtime Config.
type JsonConfig struct {
	DatabaseDSN    string         `json:"database_dsn"`
	FilestoreRoot  string         `json:"filestore_root"`
	BlobBackend    string         `json:"blob_backend"`
	SimulatorPath  string         `json:"simulator_path"`
	ArbiterWorkers int            `json:"arbiter_workers"`
	ArbiterTimeout timex.Duration `json:"arbiter_timeout"`
	S3RootUser     string         `json:"s3_root_user"`
	S3RootPassword string         `json:"s3_root_password"`
	S3Bucket       string         `json:"s3_bucket"`
	S3Region       string         `json:"s3_region"`
	S3BaseEndpoint string         `json:"s3_base_endpoint"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance. The file path comes from the -c or -config command-line
// flags; if neither is set, no JSON file is loaded. Fields absent from the
// file keep their current (default) values. If the file cannot be read or
// contains invalid JSON, the function panics.
func parseJson(config *Config) {

	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	if c.DatabaseDSN != "" {
		config.DatabaseDSN = c.DatabaseDSN
	}
	if c.FilestoreRoot != "" {
		config.FilestoreRoot = c.FilestoreRoot
	}
	if c.BlobBackend != "" {
		config.BlobBackend = c.BlobBackend
	}
	if c.SimulatorPath != "" {
		config.SimulatorPath = c.SimulatorPath
	}
	if c.ArbiterWorkers > 0 {
		config.ArbiterWorkers = c.ArbiterWorkers
	}
	if c.ArbiterTimeout.Duration > 0 {
		config.ArbiterTimeout = c.ArbiterTimeout.Duration
	}
	if c.S3RootUser != "" {
		config.S3RootUser = c.S3RootUser
	}
	if c.S3RootPassword != "" {
		config.S3RootPassword = c.S3RootPassword
	}
	if c.S3Bucket != "" {
		config.S3Bucket = c.S3Bucket
	}
	if c.S3Region != "" {
		config.S3Region = c.S3Region
	}
	if c.S3BaseEndpoint != "" {
		config.S3BaseEndpoint = c.S3BaseEndpoint
	}
}
