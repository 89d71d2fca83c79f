package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	redisadapter "github.com/target/mmk-sessiongate/internal/adapters/redis"
	"github.com/target/mmk-sessiongate/internal/ports"
)

type forgetPrincipalOptions struct {
	Token   string
	Timeout time.Duration
}

func runForgetPrincipal(cmdCtx *commandContext, args []string) error {
	opts, err := parseForgetPrincipalFlags(args)
	if err != nil {
		return err
	}
	return withRedis(cmdCtx, opts.Timeout, func(ctx context.Context, client redis.UniversalClient) error {
		store := redisadapter.NewPrincipalStoreWithPrefix(client, cmdCtx.Config.Redis.KeyPrefix)
		return forgetPrincipal(ctx, cmdCtx, store, opts.Token)
	})
}

// forgetPrincipal removes the snapshot so the custom-auth source resolves as absent.
// Deleting a token that has no snapshot is not an error.
func forgetPrincipal(ctx context.Context, cmdCtx *commandContext, store ports.PrincipalStore, token string) error {
	if err := store.Delete(ctx, token); err != nil {
		return err
	}
	return writeln(cmdCtx.Out, "principal snapshot removed")
}

func parseForgetPrincipalFlags(args []string) (forgetPrincipalOptions, error) {
	fs := flag.NewFlagSet("forget-principal", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var opts forgetPrincipalOptions
	fs.StringVar(&opts.Token, "token", "", "Session token whose principal snapshot should be deleted")
	fs.DurationVar(&opts.Timeout, "timeout", defaultCommandTimeout, "Redis timeout")

	if err := fs.Parse(args); err != nil {
		return forgetPrincipalOptions{}, err
	}
	opts.Token = strings.TrimSpace(opts.Token)
	if opts.Token == "" {
		return forgetPrincipalOptions{}, errors.New("--token is required")
	}
	if opts.Timeout <= 0 {
		return forgetPrincipalOptions{}, errors.New("--timeout must be greater than zero")
	}
	return opts, nil
}
