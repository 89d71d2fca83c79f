package main

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/target/mmk-sessiongate/internal/bootstrap"
	"github.com/target/mmk-sessiongate/internal/migrate"
)

type migrateOptions struct {
	Timeout time.Duration
	Status  bool
}

type dbResetOptions struct {
	Timeout     time.Duration
	Yes         bool
	AllowRemote bool
}

func runMigrations(cmdCtx *commandContext, args []string) error {
	opts, err := parseMigrateFlags(args)
	if err != nil {
		return err
	}

	return withDatabase(cmdCtx, opts.Timeout, func(ctx context.Context, db *sql.DB) error {
		if opts.Status {
			list, statusErr := migrate.Status(ctx, db)
			if statusErr != nil {
				return statusErr
			}
			return renderMigrationStatus(cmdCtx.Out, list)
		}
		cmdCtx.Logger.InfoContext(ctx, "running database migrations")
		if migrateErr := bootstrap.RunMigrations(ctx, db, cmdCtx.Logger); migrateErr != nil {
			return migrateErr
		}
		return writeln(cmdCtx.Out, "migrations completed successfully")
	})
}

func runDBReset(cmdCtx *commandContext, args []string) error {
	opts, err := parseDBResetFlags(args)
	if err != nil {
		return err
	}

	pg := cmdCtx.Config.Postgres
	target := fmt.Sprintf("database %q on %s:%d", pg.Name, pg.Host, pg.Port)

	remote, err := guardRemoteHost(pg.Host, opts.AllowRemote, os.Stdin, os.Stderr)
	if err != nil {
		return err
	}
	if !opts.Yes && !remote {
		if confirmErr := confirm(os.Stdin, os.Stderr, "This will drop every table in "+target+". Continue? [y/N]: "); confirmErr != nil {
			return confirmErr
		}
	}

	return withDatabase(cmdCtx, opts.Timeout, func(ctx context.Context, db *sql.DB) error {
		if resetErr := resetDatabase(ctx, db, pg.User); resetErr != nil {
			return resetErr
		}
		if migrateErr := bootstrap.RunMigrations(ctx, db, cmdCtx.Logger); migrateErr != nil {
			return migrateErr
		}
		return writef(cmdCtx.Out, "reset %s\n", target)
	})
}

func renderMigrationStatus(out io.Writer, list []migrate.Migration) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if err := writeln(tw, "VERSION\tAPPLIED AT"); err != nil {
		return err
	}
	for _, m := range list {
		at := "pending"
		if m.Applied() {
			at = m.AppliedAt.UTC().Format(time.RFC3339)
		}
		if err := writef(tw, "%s\t%s\n", m.Version, at); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func parseMigrateFlags(args []string) (migrateOptions, error) {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var opts migrateOptions
	fs.DurationVar(&opts.Timeout, "timeout", defaultMigrationTimeout,
		"Maximum duration to wait for migrations to complete")
	fs.BoolVar(&opts.Status, "status", false, "List migrations and whether they are applied instead of applying them")

	if err := fs.Parse(args); err != nil {
		return migrateOptions{}, err
	}
	if opts.Timeout <= 0 {
		return migrateOptions{}, errors.New("--timeout must be greater than zero")
	}
	return opts, nil
}

func parseDBResetFlags(args []string) (dbResetOptions, error) {
	fs := flag.NewFlagSet("db-reset", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var opts dbResetOptions
	fs.DurationVar(&opts.Timeout, "timeout", defaultMigrationTimeout, "Maximum duration for the reset")
	fs.BoolVar(&opts.Yes, "yes", false, "Skip the confirmation prompt for local databases")
	fs.BoolVar(&opts.AllowRemote, "allow-remote", false, "Permit resetting a non-local database host")

	if err := fs.Parse(args); err != nil {
		return dbResetOptions{}, err
	}
	if opts.Timeout <= 0 {
		return dbResetOptions{}, errors.New("--timeout must be greater than zero")
	}
	return opts, nil
}

func resetDatabase(ctx context.Context, db *sql.DB, user string) error {
	statements := []string{
		"DROP SCHEMA public CASCADE",
		"CREATE SCHEMA public",
		"GRANT ALL ON SCHEMA public TO public",
	}
	if user = strings.TrimSpace(user); user != "" && !strings.EqualFold(user, "public") {
		statements = append(statements, "GRANT ALL ON SCHEMA public TO "+quoteIdentifier(user))
	}
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt, err)
		}
	}
	return nil
}

func quoteIdentifier(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// guardRemoteHost refuses non-local hosts unless allowed, and then requires the
// operator to type the host name back.
func guardRemoteHost(host string, allow bool, in io.Reader, out io.Writer) (bool, error) {
	if !isLikelyRemoteHost(host) {
		return false, nil
	}
	if !allow {
		return true, fmt.Errorf(
			"refusing to run against potentially remote database host %q; re-run with --allow-remote if this is intentional",
			host,
		)
	}
	if err := writef(out, "\nWARNING: database host %q does not look like a local address.\n", host); err != nil {
		return true, err
	}
	resp, err := prompt(in, out, fmt.Sprintf("Type %q to continue or press enter to abort: ", host))
	if err != nil {
		return true, err
	}
	if resp != host {
		return true, errors.New("aborted by user")
	}
	return true, nil
}

func confirm(in io.Reader, out io.Writer, question string) error {
	resp, err := prompt(in, out, question)
	if err != nil {
		return err
	}
	if !strings.EqualFold(resp, "y") && !strings.EqualFold(resp, "yes") {
		return errors.New("aborted by user")
	}
	return nil
}

func prompt(in io.Reader, out io.Writer, question string) (string, error) {
	if err := writef(out, "%s", question); err != nil {
		return "", err
	}
	resp, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read confirmation: %w", err)
	}
	return strings.TrimSpace(resp), nil
}

func isLikelyRemoteHost(host string) bool {
	h := strings.ToLower(strings.TrimSpace(host))
	if h == "" {
		return false
	}
	if h == "localhost" || h == "127.0.0.1" || h == "::1" {
		return false
	}
	if strings.HasSuffix(h, ".local") {
		return false
	}
	if ip := net.ParseIP(h); ip != nil {
		return !ip.IsLoopback()
	}
	return true
}
