package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/target/mmk-sessiongate/config"
	"github.com/target/mmk-sessiongate/internal/bootstrap"
)

type commandFn func(ctx *commandContext, args []string) error

type command struct {
	name        string
	description string
	run         commandFn
}

type commandContext struct {
	Ctx    context.Context
	Logger *slog.Logger
	Config config.AppConfig
	Out    io.Writer
}

const (
	defaultMigrationTimeout = 5 * time.Minute
	defaultCommandTimeout   = 30 * time.Second
)

var errUsage = errors.New("usage")

func main() {
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		slog.Default().ErrorContext(context.Background(), "load config", "error", err)
		os.Exit(1) //nolint:forbidigo // CLI must signal configuration load failure to shell scripts
	}
	logger := bootstrap.InitLogger(cfg.Observability.Logging.Level)

	cmdCtx := &commandContext{
		Ctx:    context.Background(),
		Logger: logger,
		Config: cfg,
		Out:    os.Stdout,
	}
	if runErr := dispatch(cmdCtx, os.Args[1:]); runErr != nil {
		if errors.Is(runErr, errUsage) || errors.Is(runErr, flag.ErrHelp) {
			os.Exit(2) //nolint:forbidigo // CLI must exit with failure status on usage errors
		}
		logger.ErrorContext(cmdCtx.Ctx, "command failed", "error", runErr)
		os.Exit(1) //nolint:forbidigo // CLI must propagate command execution failure to callers
	}
}

// dispatch runs the named command. Unknown or missing commands print usage.
func dispatch(cmdCtx *commandContext, args []string) error {
	if len(args) == 0 {
		if err := printUsage(cmdCtx.Out); err != nil {
			return err
		}
		return errUsage
	}

	cmd, ok := commands()[args[0]]
	if !ok {
		if err := writef(cmdCtx.Out, "unknown command %q\n\n", args[0]); err != nil {
			return err
		}
		if err := printUsage(cmdCtx.Out); err != nil {
			return err
		}
		return errUsage
	}
	if err := cmd.run(cmdCtx, args[1:]); err != nil {
		return fmt.Errorf("%s: %w", cmd.name, err)
	}
	return nil
}

func commands() map[string]command {
	return map[string]command{
		"migrate": {
			name:        "migrate",
			description: "Apply the security event schema",
			run:         runMigrations,
		},
		"db-reset": {
			name:        "db-reset",
			description: "Drop the database schema and re-run migrations",
			run:         runDBReset,
		},
		"security-events": {
			name:        "security-events",
			description: "List recent security events (CSRF rejections, logouts, admin denials)",
			run:         runSecurityEvents,
		},
		"prune-events": {
			name:        "prune-events",
			description: "Delete security events older than a retention window",
			run:         runPruneEvents,
		},
		"forget-principal": {
			name:        "forget-principal",
			description: "Delete the stored principal snapshot for a session token",
			run:         runForgetPrincipal,
		},
	}
}

func printUsage(w io.Writer) error {
	if err := writef(w, "Usage: sessiongate-admin <command> [flags]\n\n"); err != nil {
		return err
	}
	if err := writef(w, "Available commands:\n"); err != nil {
		return err
	}
	cmds := commands()
	names := make([]string, 0, len(cmds))
	for name := range cmds {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := writef(w, "  %-20s %s\n", name, cmds[name].description); err != nil {
			return err
		}
	}
	return nil
}

func writef(w io.Writer, format string, args ...any) error {
	_, err := fmt.Fprintf(w, format, args...)
	return err
}

func writeln(w io.Writer, args ...any) error {
	_, err := fmt.Fprintln(w, args...)
	return err
}
