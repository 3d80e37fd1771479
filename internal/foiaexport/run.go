// Package foiaexport dumps the agency contact tables to CSV files, one per
// table, so the contact data can be reviewed or fed into other tools. The
// export reads whichever backend the process is configured for.
package foiaexport

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/foiaio/foiadb/internal/db"
	"github.com/foiaio/foiadb/internal/foiaexport/config"
	"github.com/foiaio/foiadb/internal/log"
	"github.com/foiaio/foiadb/internal/util/numutil"
	"github.com/foiaio/foiadb/internal/version"
)

// export describes one table dump: the output file name and the query that
// produces its rows.
type export struct {
	fileName string
	query    string
}

var exports = []export{
	{
		fileName: "state_local_agencies.csv",
		query: `SELECT id, ori, agency_name, agency_unit, state_abbr, county_name,
			city_name, agency_type, foia_email, foia_phone, foia_address,
			foia_portal_url, website
			FROM state_local_agencies ORDER BY state_abbr, agency_name`,
	},
	{
		fileName: "federal_agencies.csv",
		query: `SELECT id, name, abbreviation, foia_email, foia_address, website
			FROM federal_agencies ORDER BY name`,
	},
}

// Run runs the FOIA DB agency exporter.
func Run(ctx context.Context) error {
	conf := config.MustParse(os.Args)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Println(version.ExportVersion())

	logger := log.NewLogger(os.Stderr)

	if err := os.MkdirAll(conf.OutputDirectory, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
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
			logger.ErrorNs(log.NsExport, "failed to close database", log.KV{"error": err.Error()})
		}
	}()

	session, err := database.OpenSession(ctx)
	if err != nil {
		return fmt.Errorf("failed to open session: %w", err)
	}
	defer session.Close()

	for _, exp := range exports {
		count, err := exportTable(ctx, session, conf.OutputDirectory, exp)
		if err != nil {
			return err
		}

		logger.InfoNs(log.NsExport, "table exported", log.KV{
			"file": exp.fileName,
			"rows": count,
		})
		fmt.Printf("Wrote %s rows to %s\n", numutil.IntWithCommas(count), exp.fileName)
	}

	return session.Rollback()
}

// exportTable runs one query and streams its rows into a CSV file in the
// output directory.
func exportTable(ctx context.Context, session *db.Session, dir string, exp export) (int, error) {
	cursor, err := session.Execute(ctx, exp.query)
	if err != nil {
		return 0, fmt.Errorf("failed to query %s: %w", exp.fileName, err)
	}

	file, err := os.Create(filepath.Join(dir, exp.fileName))
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", exp.fileName, err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	count := 0

	for {
		row, ok := cursor.FetchOne()
		if !ok {
			break
		}

		if count == 0 {
			if err := writer.Write(row.Columns()); err != nil {
				return count, fmt.Errorf("failed to write %s header: %w", exp.fileName, err)
			}
		}

		record := make([]string, 0, len(row.Columns()))
		for _, col := range row.Columns() {
			record = append(record, row.Text(col))
		}
		if err := writer.Write(record); err != nil {
			return count, fmt.Errorf("failed to write %s row: %w", exp.fileName, err)
		}
		count++
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return count, fmt.Errorf("failed to flush %s: %w", exp.fileName, err)
	}
	return count, nil
}
