package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/target/mmk-sessiongate/internal/adapters/reaper"
	"github.com/target/mmk-sessiongate/internal/data"
	domainauth "github.com/target/mmk-sessiongate/internal/domain/auth"
	"github.com/target/mmk-sessiongate/internal/service"
)

type eventLister interface {
	List(ctx context.Context, opts domainauth.ListSecurityEventsOptions) ([]domainauth.SecurityEvent, error)
}

type securityEventsOptions struct {
	Limit   int
	Kind    domainauth.SecurityEventKind
	JSON    bool
	Timeout time.Duration
}

type pruneOptions struct {
	OlderThan time.Duration
	Timeout   time.Duration
}

func runSecurityEvents(cmdCtx *commandContext, args []string) error {
	opts, err := parseSecurityEventsFlags(args)
	if err != nil {
		return err
	}
	return withDatabase(cmdCtx, opts.Timeout, func(ctx context.Context, db *sql.DB) error {
		return listSecurityEvents(ctx, data.NewSecurityEventRepo(db, data.SecurityEventRepoOptions{}), opts, cmdCtx.Out)
	})
}

func listSecurityEvents(ctx context.Context, store eventLister, opts securityEventsOptions, out io.Writer) error {
	events, err := store.List(ctx, domainauth.ListSecurityEventsOptions{Limit: opts.Limit, Kind: opts.Kind})
	if err != nil {
		return fmt.Errorf("list security events: %w", err)
	}
	if opts.JSON {
		if events == nil {
			events = []domainauth.SecurityEvent{}
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(events)
	}
	return renderSecurityEvents(out, events)
}

func renderSecurityEvents(out io.Writer, events []domainauth.SecurityEvent) error {
	if len(events) == 0 {
		return writeln(out, "no security events")
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	if err := writeln(w, "TIME\tKIND\tORIGIN\tREMOTE\tHOST\tREASON"); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, e := range events {
		if err := writef(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			e.CreatedAt.UTC().Format(time.RFC3339),
			e.Kind,
			dash(e.Origin),
			dash(e.RemoteAddr),
			dash(e.Hostname),
			dash(e.Reason),
		); err != nil {
			return fmt.Errorf("write event %s: %w", e.ID, err)
		}
	}
	return w.Flush()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func parseSecurityEventsFlags(args []string) (securityEventsOptions, error) {
	fs := flag.NewFlagSet("security-events", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var (
		opts securityEventsOptions
		kind string
	)
	fs.IntVar(&opts.Limit, "limit", 50, "Maximum number of events to show (1-1000)")
	fs.StringVar(&kind, "kind", "", "Only show events of this kind")
	fs.BoolVar(&opts.JSON, "json", false, "Print events as JSON")
	fs.DurationVar(&opts.Timeout, "timeout", defaultCommandTimeout, "Query timeout")

	if err := fs.Parse(args); err != nil {
		return securityEventsOptions{}, err
	}
	if opts.Limit < 1 || opts.Limit > 1000 {
		return securityEventsOptions{}, errors.New("--limit must be between 1 and 1000")
	}
	opts.Kind = domainauth.SecurityEventKind(kind)
	if opts.Kind != "" && !opts.Kind.Valid() {
		return securityEventsOptions{}, fmt.Errorf("unknown --kind %q", kind)
	}
	if opts.Timeout <= 0 {
		return securityEventsOptions{}, errors.New("--timeout must be greater than zero")
	}
	return opts, nil
}

func runPruneEvents(cmdCtx *commandContext, args []string) error {
	opts, err := parsePruneFlags(args, cmdCtx.Config.Reaper.EventMaxAge)
	if err != nil {
		return err
	}
	return withDatabase(cmdCtx, opts.Timeout, func(ctx context.Context, db *sql.DB) error {
		repo := data.NewSecurityEventRepo(db, data.SecurityEventRepoOptions{
			BatchSize: cmdCtx.Config.Reaper.BatchSize,
		})
		return pruneEvents(ctx, cmdCtx, repo, opts)
	})
}

func pruneEvents(ctx context.Context, cmdCtx *commandContext, repo service.EventPruner, opts pruneOptions) error {
	reaperCfg := cmdCtx.Config.Reaper
	reaperCfg.EventMaxAge = opts.OlderThan

	runner, err := reaper.NewRunner(reaper.RunnerOptions{
		Repo:   repo,
		Config: reaperCfg,
		Logger: cmdCtx.Logger,
	})
	if err != nil {
		return err
	}
	n, err := runner.PruneOnce(ctx)
	if err != nil {
		return err
	}
	return writef(cmdCtx.Out, "deleted %d security events older than %s\n", n, opts.OlderThan)
}

func parsePruneFlags(args []string, def time.Duration) (pruneOptions, error) {
	fs := flag.NewFlagSet("prune-events", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var opts pruneOptions
	fs.DurationVar(&opts.OlderThan, "older-than", def, "Delete events created before now minus this duration")
	fs.DurationVar(&opts.Timeout, "timeout", defaultMigrationTimeout, "Maximum duration for the prune")

	if err := fs.Parse(args); err != nil {
		return pruneOptions{}, err
	}
	if opts.OlderThan <= 0 {
		return pruneOptions{}, errors.New("--older-than must be greater than zero")
	}
	if opts.Timeout <= 0 {
		return pruneOptions{}, errors.New("--timeout must be greater than zero")
	}
	return opts, nil
}
