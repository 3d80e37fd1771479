package config

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/alexflint/go-arg"
	"github.com/foiaio/foiadb/internal/version"
	"github.com/joho/godotenv"
)

// Config represents the configuration for the foiaexport tool.
type Config struct {
	OutputDirectory string        `arg:"--output-directory,env:FOIAEXPORT_OUTPUT_DIRECTORY" help:"Directory for the exported CSV files" default:"./data"`
	DatabaseURL     string        `arg:"--database-url,env:DATABASE_URL" help:"PostgreSQL connection string; leave empty to use the embedded database file"`
	DataDirectory   string        `arg:"--data-directory,env:FOIADB_DATA_DIRECTORY" help:"Directory for the embedded database file" default:"./data"`
	PoolSize        int           `arg:"--pool-size,env:FOIADB_POOL_SIZE" help:"Maximum number of pooled PostgreSQL connections" default:"10"`
	PoolTimeout     time.Duration `arg:"--pool-timeout,env:FOIADB_POOL_TIMEOUT" help:"How long a session may wait for a pooled connection. Valid time units are ns, us (or µs), ms, s, m, h" default:"5s"`
}

func (Config) Version() string {
	return fmt.Sprintf("%s\n", version.ExportVersion())
}

// MustParse parses and validates the configuration from the command
// line arguments. It returns a Config struct or exits the program
// with an error.
func MustParse(args []string) Config {
	_ = godotenv.Load()

	cfg := Config{}

	parser, err := arg.NewParser(
		arg.Config{},
		&cfg,
	)
	if err != nil {
		log.Fatal(err)
	}
	parser.MustParse(args[1:])

	if cfg.OutputDirectory == "" {
		log.Fatal(errors.New("output directory is required"))
	}

	return cfg
}
