package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/go-pkgz/lgr"
	"github.com/jessevdk/go-flags"
	"golang.org/x/sync/errgroup"

	"github.com/evjev/readstash/pkg/api"
	"github.com/evjev/readstash/pkg/config"
	"github.com/evjev/readstash/pkg/content"
	"github.com/evjev/readstash/pkg/fetcher"
	"github.com/evjev/readstash/pkg/store"
	"github.com/evjev/readstash/server"
)

// Opts with all CLI options
type Opts struct {
	Config  string `short:"f" long:"config" env:"CONFIG" default:"config.yml" description:"configuration file"`
	Fetch   string `long:"fetch" description:"fetch a single item, print its content and exit"`
	NoCache bool   `long:"no-cache" description:"bypass cached content for one-shot fetch"`

	// Common options
	Debug   bool `long:"dbg" env:"DEBUG" description:"debug mode"`
	Version bool `short:"V" long:"version" description:"show version info"`
	NoColor bool `long:"no-color" env:"NO_COLOR" description:"disable color output"`
}

var revision = "unknown"

func main() {
	var opts Opts
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if opts.Version {
		fmt.Printf("Version: %s\nGolang: %s\n", revision, runtime.Version())
		os.Exit(0)
	}

	if opts.NoColor {
		color.NoColor = true
	}
	setupLog(opts.Debug)

	lgr.Printf("[INFO] starting readstash version %s", revision)

	ctx, cancel := context.WithCancel(context.Background())

	// handle termination signals
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan
		lgr.Printf("[INFO] termination signal received")
		cancel()
	}()

	err := run(ctx, opts)
	cancel()

	if err != nil {
		lgr.Printf("[ERROR] readstash failed: %v", err)
		os.Exit(1)
	}

	lgr.Printf("[INFO] shutdown complete")
}

// run wires the store, remote client, fetcher and server together and blocks
// until the context is cancelled or a component fails
func run(ctx context.Context, opts Opts) error {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.Remote.Token != "" {
		setupLog(opts.Debug, cfg.Remote.Token) // keep the token out of logs
	}

	st, err := store.New(ctx, store.Config{
		DSN:             cfg.Database.DSN,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.Database.ConnMaxLifetime) * time.Second,
	})
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			lgr.Printf("[WARN] failed to close store: %v", err)
		}
	}()

	client := api.NewClient(cfg.Remote.Endpoint, cfg.Remote.Token, cfg.Remote.Timeout)
	f := fetcher.New(client, st, fetcher.Config{
		MaxAttempts: cfg.Fetch.MaxAttempts,
		BackoffBase: cfg.Fetch.BackoffBase,
		PDFTimeout:  cfg.Fetch.PDFTimeout,
	})
	defer f.Wait() // drain detached asset downloads

	if opts.Fetch != "" {
		return fetchOne(ctx, f, cfg.Remote.Username, opts.Fetch, !opts.NoCache)
	}

	srv := server.New(cfg, f, st, content.NewRenderer(), cfg.Remote.Username, revision, opts.Debug)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(gctx) })

	if cfg.Fetch.PrefetchOnStart {
		g.Go(func() error {
			ids, err := st.ListPendingArticleIDs(gctx, cfg.Fetch.PrefetchLimit)
			if err != nil {
				lgr.Printf("[WARN] startup sweep skipped, can't list pending items: %v", err)
				return nil
			}
			f.PrefetchArticles(gctx, ids, cfg.Remote.Username)
			return nil
		})
	}

	return g.Wait()
}

// fetchOne retrieves a single item and prints its content to stdout
func fetchOne(ctx context.Context, f *fetcher.Fetcher, username, itemID string, useCache bool) error {
	res, err := f.FetchArticleContent(ctx, itemID, username, useCache)
	if err != nil {
		return fmt.Errorf("failed to fetch %s: %w", itemID, err)
	}
	fmt.Println(res.HTML)
	return nil
}

func setupLog(dbg bool, secs ...string) {
	logOpts := []lgr.Option{lgr.Msec, lgr.LevelBraces}
	if dbg {
		logOpts = []lgr.Option{lgr.Debug, lgr.CallerFile, lgr.CallerFunc, lgr.Msec, lgr.LevelBraces, lgr.StackTraceOnError}
	}

	colorizer := lgr.Mapper{
		ErrorFunc:  func(s string) string { return color.New(color.FgHiRed).Sprint(s) },
		WarnFunc:   func(s string) string { return color.New(color.FgRed).Sprint(s) },
		InfoFunc:   func(s string) string { return color.New(color.FgYellow).Sprint(s) },
		DebugFunc:  func(s string) string { return color.New(color.FgWhite).Sprint(s) },
		CallerFunc: func(s string) string { return color.New(color.FgBlue).Sprint(s) },
		TimeFunc:   func(s string) string { return color.New(color.FgCyan).Sprint(s) },
	}
	logOpts = append(logOpts, lgr.Map(colorizer))
	if len(secs) > 0 {
		logOpts = append(logOpts, lgr.Secret(secs...))
	}
	lgr.SetupStdLogger(logOpts...)
	lgr.Setup(logOpts...)
}
