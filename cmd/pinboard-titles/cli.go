package main

import (
	"context"
	"io"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/Sternrassler/pinboard-titles/pkg/filter"
	"github.com/Sternrassler/pinboard-titles/pkg/logging"
	"github.com/Sternrassler/pinboard-titles/pkg/metrics"
	"github.com/Sternrassler/pinboard-titles/pkg/pinboard"
	"github.com/Sternrassler/pinboard-titles/pkg/pipeline"
	"github.com/Sternrassler/pinboard-titles/pkg/title"
)

// newCLIApp creates the CLI application. Logs go to logOutput.
func newCLIApp(logOutput io.Writer) *cli.App {
	app := &cli.App{
		Name:      "pinboard-titles",
		Usage:     "Replace URL-only titles of Pinboard bookmarks with the page's real title",
		ArgsUsage: "[LIMIT]",
		Version:   Version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "token", EnvVars: []string{"PINBOARD_TOKEN"}, Usage: "Pinboard API token (user:HEX)"},
			&cli.IntFlag{Name: "limit", EnvVars: []string{"PINBOARD_LIMIT"}, Usage: "Examine at most this many bookmarks (0 = all)"},
			&cli.StringFlag{Name: "api-url", EnvVars: []string{"PINBOARD_API_URL"}, Value: pinboard.DefaultBaseURL, Usage: "Pinboard API base URL"},
			&cli.IntFlag{Name: "page-size", Value: 100, Usage: "Bookmarks requested per listing page"},
			&cli.DurationFlag{Name: "delay", Value: 3 * time.Second, Usage: "Wait between listing pages"},
			&cli.DurationFlag{Name: "min-interval", Usage: "Minimum spacing between any two API calls"},
			&cli.DurationFlag{Name: "title-timeout", Value: 3 * time.Second, Usage: "Timeout for fetching a bookmarked page"},
			&cli.StringSliceFlag{Name: "exclude", Usage: "URL suffix to skip (repeatable; default: common non-HTML suffixes)"},
			&cli.BoolFlag{Name: "dry-run", Usage: "Resolve titles without updating bookmarks"},
			&cli.StringFlag{Name: "metrics-addr", Usage: "Serve Prometheus metrics on this address during the run"},
			&cli.StringFlag{Name: "log-level", EnvVars: []string{"LOG_LEVEL"}, Value: "info", Usage: "debug|info|warn|error"},
			&cli.BoolFlag{Name: "pretty", Usage: "Human-readable log output"},
		},
		Action: func(c *cli.Context) error {
			return runAction(c, logOutput)
		},
	}
	// Disable default exit error handler so run() decides the exit status
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	app.Writer = logOutput
	app.ErrWriter = logOutput
	return app
}

func runAction(c *cli.Context, logOutput io.Writer) error {
	level, err := logging.ParseLevel(c.String("log-level"))
	if err != nil {
		return err
	}
	logging.Setup(logging.Config{Level: level, Pretty: c.Bool("pretty"), Output: logOutput})
	logger := logging.NewLogger("cli")

	clientCfg := pinboard.DefaultConfig(c.String("token"))
	clientCfg.BaseURL = c.String("api-url")
	clientCfg.MinInterval = c.Duration("min-interval")
	clientCfg.UserAgent = "pinboard-titles/" + Version
	client, err := pinboard.New(clientCfg)
	if err != nil {
		return err
	}

	cfg := pipeline.DefaultConfig()
	cfg.Pagination.PageSize = c.Int("page-size")
	cfg.Pagination.Delay = c.Duration("delay")
	cfg.Filter.Limit = resolveLimit(c, logger)
	if suffixes := c.StringSlice("exclude"); len(suffixes) > 0 {
		cfg.Filter.ExcludedSuffixes = suffixes
	}
	cfg.DryRun = c.Bool("dry-run")

	titleCfg := title.DefaultConfig()
	titleCfg.Timeout = c.Duration("title-timeout")
	resolver := title.New(titleCfg)

	if addr := c.String("metrics-addr"); addr != "" {
		srv, err := metrics.Serve(addr)
		if err != nil {
			return err
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(ctx)
		}()
	}

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info().
		Int("limit", cfg.Filter.Limit).
		Int("page_size", cfg.Pagination.PageSize).
		Dur("delay", cfg.Pagination.Delay).
		Bool("dry_run", cfg.DryRun).
		Msg("Starting run")

	_, err = pipeline.New(client, resolver, client, cfg).Run(ctx)
	return err
}

// resolveLimit reads the processing limit from the first positional
// argument, falling back to --limit. Anything that is not a positive
// integer means no limit.
func resolveLimit(c *cli.Context, logger zerolog.Logger) int {
	if arg := c.Args().First(); arg != "" {
		limit, err := strconv.Atoi(arg)
		if err == nil && limit > 0 {
			return limit
		}
		logger.Warn().Str("limit", arg).Msg("Ignoring limit that is not a positive integer")
		return 0
	}

	if limit := c.Int("limit"); limit > 0 {
		return limit
	}
	return filter.DefaultConfig().Limit
}
