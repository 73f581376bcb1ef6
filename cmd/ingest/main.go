package main

import (
	"context"
	"log"
	"os"
	"os/signal"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"github.com/seanblong/contextselect/internal/config"
	"github.com/seanblong/contextselect/internal/ingest"
	"github.com/seanblong/contextselect/internal/store"
	"github.com/spf13/pflag"
)

func main() {
	fs := pflag.NewFlagSet("contextselect-ingest", pflag.ExitOnError)
	workers := fs.Int("workers", 0, "Number of ingest workers (0 = number of CPUs, at most 8)")
	quiet := fs.Bool("quiet", false, "Hide the progress bar")

	cfg, err := config.Load("", fs)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Invalid log level '%s': %v", cfg.LogLevel, err)
	}
	zlog.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	st, err := store.New(ctx, cfg.Database)
	if err != nil {
		log.Fatal(err)
	}
	defer st.Close()

	if err := st.Migrate(ctx); err != nil {
		log.Fatal(err)
	}

	ig := ingest.New(st, cfg.ChunksDir)
	ig.Includes = cfg.Include
	ig.Excludes = cfg.Exclude
	ig.Workers = *workers
	if !*quiet {
		bar := ingest.NewProgressBar(os.Stderr)
		ig.Progress = bar
		defer func() { _ = bar.Finish() }()
	}

	res, err := ig.Run(ctx)
	if err != nil {
		log.Fatal(err)
	}
	zlog.Info().
		Int64("files", res.Files).
		Int64("chunks", res.Chunks).
		Int64("skipped", res.Skipped).
		Int64("failed", res.Failed).
		Int64("removed", res.Removed).
		Msg("ingest complete")
}
