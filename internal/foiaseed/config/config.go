package config

import (
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/alexflint/go-arg"
	"github.com/foiaio/foiadb/internal/version"
	"github.com/joho/godotenv"
)

// Config represents the configuration for the foiaseed importer.
type Config struct {
	CSVPath       string        `arg:"positional,required" help:"Path to the FBI Law Enforcement Employees CSV export"`
	Year          string        `arg:"--year,env:FOIASEED_YEAR" help:"Only import agency rows reported for this data year" default:"2024"`
	BatchSize     int           `arg:"--batch-size,env:FOIASEED_BATCH_SIZE" help:"Number of agency rows per transaction" default:"1000"`
	DatabaseURL   string        `arg:"--database-url,env:DATABASE_URL" help:"PostgreSQL connection string; leave empty to use the embedded database file"`
	DataDirectory string        `arg:"--data-directory,env:FOIADB_DATA_DIRECTORY" help:"Directory for the embedded database file" default:"./data"`
	PoolSize      int           `arg:"--pool-size,env:FOIADB_POOL_SIZE" help:"Maximum number of pooled PostgreSQL connections" default:"10"`
	PoolTimeout   time.Duration `arg:"--pool-timeout,env:FOIADB_POOL_TIMEOUT" help:"How long a session may wait for a pooled connection. Valid time units are ns, us (or µs), ms, s, m, h" default:"5s"`

	AdminUsername     string `arg:"--admin-username,env:FOIADB_ADMIN_USERNAME" help:"Bootstrap an admin user with this username; leave empty to skip"`
	AdminEmail        string `arg:"--admin-email,env:FOIADB_ADMIN_EMAIL" help:"Email for the bootstrapped admin user"`
	AdminPassword     string `arg:"--admin-password,env:FOIADB_ADMIN_PASSWORD" help:"Password for the bootstrapped admin user"`
	PasswordAlgorithm string `arg:"--password-algorithm,env:FOIADB_PASSWORD_ALGORITHM" help:"Hash algorithm for the admin password (plaintext, argon2, bcrypt)" default:"argon2"`
}

func (Config) Version() string {
	return fmt.Sprintf("%s\n", version.SeedVersion())
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

	if err := validateYear(cfg.Year); err != nil {
		log.Fatal(err)
	}

	if cfg.BatchSize <= 0 {
		log.Fatal(errors.New("invalid batch size, must be greater than zero"))
	}

	if err := validatePasswordAlgorithm(cfg.PasswordAlgorithm); err != nil {
		log.Fatal(err)
	}

	if cfg.AdminUsername != "" && (cfg.AdminEmail == "" || cfg.AdminPassword == "") {
		log.Fatal(errors.New("admin email and password are required when an admin username is given"))
	}

	return cfg
}

// validateYear validates if year is a four digit year.
func validateYear(year string) error {
	re := regexp.MustCompile(`^\d{4}$`)
	if !re.MatchString(year) {
		return errors.New("invalid year, must be four digits")
	}
	return nil
}

// validatePasswordAlgorithm validates if algorithm is a valid hash algorithm.
func validatePasswordAlgorithm(algorithm string) error {
	valid := []string{"plaintext", "argon2", "bcrypt"}

	for _, v := range valid {
		if algorithm == v {
			return nil
		}
	}

	return fmt.Errorf(
		"invalid password algorithm, valid values are: %s",
		strings.Join(valid, ", "),
	)
}
