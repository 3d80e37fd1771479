// Package foiaseed imports the FBI Law Enforcement Employees agency roster
// into the state_local_agencies table so FOIA requests can be addressed to
// real agencies. The import is idempotent: rows are keyed by ORI and
// re-running the importer skips agencies that are already present.
package foiaseed

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/foiaio/foiadb/internal/db"
	"github.com/foiaio/foiadb/internal/foiaseed/config"
	"github.com/foiaio/foiadb/internal/foiaseed/seedbar"
	"github.com/foiaio/foiadb/internal/log"
	"github.com/foiaio/foiadb/internal/util/cryptoutil"
	"github.com/foiaio/foiadb/internal/util/numutil"
	"github.com/foiaio/foiadb/internal/validate"
	"github.com/foiaio/foiadb/internal/version"
)

// requiredColumns are the CSV columns the importer reads. The FBI export
// carries more; everything else is ignored.
var requiredColumns = []string{
	"data_year",
	"ori",
	"pub_agency_name",
	"pub_agency_unit",
	"state_abbr",
	"county_name",
	"agency_type_name",
	"population",
}

// agencyRecord is one agency row from the CSV, already filtered to the
// requested data year.
type agencyRecord struct {
	ori        string
	agencyName string
	agencyUnit string
	stateAbbr  string
	countyName string
	agencyType string
	population int64
}

// Run runs the FOIA DB agency importer.
func Run(ctx context.Context) error {
	conf := config.MustParse(os.Args)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Println(version.SeedVersion())

	logger := log.NewLogger(os.Stderr)

	records, err := readAgencyRecords(conf.CSVPath, conf.Year)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return fmt.Errorf("no agency rows found for data year %s", conf.Year)
	}

	database, err := db.NewDB(db.Config{
		Logger:      logger,
		DatabaseURL: conf.DatabaseURL,
		Directory:   conf.DataDirectory,
		PoolSize:    conf.PoolSize,
		PoolTimeout: conf.PoolTimeout,
	})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if err := database.Close(); err != nil {
			logger.ErrorNs(log.NsSeed, "failed to close database", log.KV{"error": err.Error()})
		}
	}()

	session, err := database.OpenSession(ctx)
	if err != nil {
		return fmt.Errorf("failed to open session: %w", err)
	}
	defer session.Close()

	if err := db.EnsureSchema(ctx, session); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	if conf.AdminUsername != "" {
		if err := seedAdminUser(ctx, conf, session); err != nil {
			return err
		}
	}

	inserted, skipped, err := importAgencies(ctx, conf, session, records)
	if err != nil {
		return err
	}

	logger.InfoNs(log.NsSeed, "import finished", log.KV{
		"year":     conf.Year,
		"inserted": inserted,
		"skipped":  skipped,
	})
	fmt.Printf(
		"Imported %s agencies for %s (%s already present)\n",
		numutil.IntWithCommas(inserted), conf.Year, numutil.IntWithCommas(skipped),
	)
	return nil
}

// readAgencyRecords reads and filters the CSV before any database work, so a
// malformed file fails fast without touching the schema.
func readAgencyRecords(csvPath string, year string) ([]agencyRecord, error) {
	file, err := os.Open(csvPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	if !validate.CSVHeader(header, requiredColumns...) {
		return nil, fmt.Errorf(
			"CSV is missing required columns: %s",
			strings.Join(validate.MissingCSVColumns(header, requiredColumns...), ", "),
		)
	}

	index := columnIndex(header)
	records := []agencyRecord{}

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row: %w", err)
		}

		if field(row, index, "data_year") != year {
			continue
		}

		record := agencyRecord{
			ori:        field(row, index, "ori"),
			agencyName: field(row, index, "pub_agency_name"),
			agencyUnit: field(row, index, "pub_agency_unit"),
			stateAbbr:  field(row, index, "state_abbr"),
			countyName: field(row, index, "county_name"),
			agencyType: field(row, index, "agency_type_name"),
		}
		if record.ori == "" || record.agencyName == "" || record.stateAbbr == "" {
			continue
		}
		record.population, _ = strconv.ParseInt(field(row, index, "population"), 10, 64)

		records = append(records, record)
	}

	return records, nil
}

// importAgencies inserts the records in batches, committing every BatchSize
// rows so a crash mid-import loses at most one batch.
func importAgencies(
	ctx context.Context,
	conf config.Config,
	session *db.Session,
	records []agencyRecord,
) (int, int, error) {
	bar := seedbar.NewBar("Importing agencies", len(records))
	defer bar.Finish()

	inserted, skipped := 0, 0
	for i, record := range records {
		id, err := session.InsertOrIgnore(ctx,
			`INSERT INTO state_local_agencies
				(ori, agency_name, agency_unit, state_abbr, county_name, agency_type, population)
				VALUES (?, ?, ?, ?, ?, ?, ?)`,
			record.ori, record.agencyName, nullable(record.agencyUnit),
			record.stateAbbr, nullable(record.countyName), nullable(record.agencyType),
			record.population,
		)
		if err != nil {
			return inserted, skipped, fmt.Errorf("failed to import agency %s: %w", record.ori, err)
		}

		if id.Valid {
			inserted++
		} else {
			skipped++
		}
		bar.Inc()

		if (i+1)%conf.BatchSize == 0 {
			if err := session.Commit(); err != nil {
				return inserted, skipped, fmt.Errorf("failed to commit batch: %w", err)
			}
		}
	}

	if err := session.Commit(); err != nil {
		return inserted, skipped, fmt.Errorf("failed to commit final batch: %w", err)
	}
	return inserted, skipped, nil
}

// seedAdminUser bootstraps the admin account, skipping silently when the
// username or email is already taken.
func seedAdminUser(ctx context.Context, conf config.Config, session *db.Session) error {
	password, err := hashPassword(conf.AdminPassword, conf.PasswordAlgorithm)
	if err != nil {
		return err
	}

	id, err := session.InsertOrIgnore(ctx,
		"INSERT INTO users (username, email, password, subscription_status) VALUES (?, ?, ?, ?)",
		conf.AdminUsername, conf.AdminEmail, password, "admin",
	)
	if err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}
	if err := session.Commit(); err != nil {
		return fmt.Errorf("failed to commit admin user: %w", err)
	}

	if id.Valid {
		fmt.Printf("Created admin user %q\n", conf.AdminUsername)
	} else {
		fmt.Printf("Admin user %q already exists, skipping\n", conf.AdminUsername)
	}
	return nil
}

func hashPassword(password string, algorithm string) (string, error) {
	switch algorithm {
	case "argon2":
		hash, err := cryptoutil.Argon2GenerateHash(password)
		if err != nil {
			return "", fmt.Errorf("failed to hash admin password: %w", err)
		}
		return hash, nil
	case "bcrypt":
		hash, err := cryptoutil.BcryptGenerateHash(password)
		if err != nil {
			return "", fmt.Errorf("failed to hash admin password: %w", err)
		}
		return hash, nil
	}
	return password, nil
}

// columnIndex maps lowercased column names to their position, tolerating the
// BOM and casing quirks the header validation already allows.
func columnIndex(header []string) map[string]int {
	index := map[string]int{}
	for i, column := range header {
		if i == 0 {
			column = strings.TrimPrefix(column, "\uFEFF")
		}
		index[strings.ToLower(strings.TrimSpace(column))] = i
	}
	return index
}

func field(row []string, index map[string]int, name string) string {
	i, ok := index[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// nullable maps an empty CSV field to NULL instead of an empty string.
func nullable(value string) any {
	if value == "" {
		return nil
	}
	return value
}
