package config

import (
	"flag"
	"os"
	"time"

	"github.com/nfmw/ttserver/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-d string   PostgreSQL DSN
//	-f string   filestore root directory (fs backend)
//	-o string   blob backend: "fs" or "s3"
//	-m string   path to the replay simulator binary
//	-w int      simulator worker capacity
//	-t int      simulator invocation timeout, seconds
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, avoiding collisions with other components.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-d", "-f", "-o", "-m", "-w", "-t", "-u", "-p", "-b", "-g", "-e"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.FilestoreRoot, "f", config.FilestoreRoot, "filestore root directory")
	fs.StringVar(&config.BlobBackend, "o", config.BlobBackend, "blob backend (fs or s3)")
	fs.StringVar(&config.SimulatorPath, "m", config.SimulatorPath, "replay simulator binary")
	fs.IntVar(&config.ArbiterWorkers, "w", config.ArbiterWorkers, "simulator worker capacity")

	arbiterTimeout := fs.Int("t", int(config.ArbiterTimeout.Seconds()), "simulator timeout (in seconds)")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.ArbiterTimeout = time.Duration(*arbiterTimeout) * time.Second
}
