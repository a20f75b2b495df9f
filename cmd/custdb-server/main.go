// Command custdb-server serves customer records over TCP.
//
// Records are loaded from the bootstrap data file at startup and kept in
// memory; nothing is written back. See pkg/config for flags and the
// CUSTDB_* environment variables.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cachemir/custdb/internal/logging"
	"github.com/cachemir/custdb/internal/server"
	"github.com/cachemir/custdb/pkg/bootstrap"
	"github.com/cachemir/custdb/pkg/config"
	"github.com/cachemir/custdb/pkg/store"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "custdb-server",
		Short: "Serve customer records over TCP",
		Long: `custdb-server keeps customer records in memory and serves find, add,
delete, update and listing requests to custdb clients.

Configuration is read from flags, CUSTDB_* environment variables and an
optional YAML file, in that order of precedence.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return run(ctx, cmd.Flags())
		},
	}
	config.RegisterServerFlags(cmd.Flags())
	return cmd
}

func run(ctx context.Context, fs *pflag.FlagSet) error {
	cfg, err := config.LoadServerConfig(fs)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "invalid configuration")
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	st := store.New()
	stats, err := bootstrap.LoadFile(cfg.DataFile, st)
	if err != nil {
		logger.Error("Failed to load bootstrap data", zap.String("file", cfg.DataFile), zap.Error(err))
		return err
	}
	logger.Info("Loaded customer records",
		zap.String("file", cfg.DataFile),
		zap.Int("loaded", stats.Loaded),
		zap.Int("skipped", stats.Skipped))

	srv, err := server.New(cfg, st, logger)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Start(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server...")
		return srv.Stop()
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server failed", zap.Error(err))
		return err
	}
	logger.Info("Server stopped")
	return nil
}
