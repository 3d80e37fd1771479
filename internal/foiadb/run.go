package foiadb

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/foiaio/foiadb/internal/db"
	"github.com/foiaio/foiadb/internal/foiadb/config"
	"github.com/foiaio/foiadb/internal/foiadb/repl"
	"github.com/foiaio/foiadb/internal/log"
	"github.com/foiaio/foiadb/internal/version"
)

// Run runs the FOIA DB interactive shell.
func Run(ctx context.Context) error {
	conf := config.MustParse(os.Args)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Println(version.ShellVersion())

	logger := log.NewLogger(os.Stderr)

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
			logger.ErrorNs(log.NsShell, "failed to close database", log.KV{"error": err.Error()})
		}
	}()

	session, err := database.OpenSession(ctx)
	if err != nil {
		return fmt.Errorf("failed to open session: %w", err)
	}
	defer func() {
		if session.InTransaction() {
			logger.WarnNs(log.NsShell, "discarding uncommitted transaction", log.KV{
				"session": session.ID(),
			})
		}
		_ = session.Close()
	}()

	if err := db.EnsureSchema(ctx, session); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	rp := repl.NewRepl(ctx, stop, conf, database, session)
	defer rp.Shutdown()
	go func() {
		if err := rp.Start(); err != nil {
			fmt.Println(err)
			stop()
		}
	}()

	<-ctx.Done()
	fmt.Printf("\nGoodbye!\n\n")
	return nil
}
