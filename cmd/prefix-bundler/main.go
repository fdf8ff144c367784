package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/withObsrvr/prefix-bundler/internal/bundle"
	"github.com/withObsrvr/prefix-bundler/internal/config"
	"github.com/withObsrvr/prefix-bundler/internal/logging"
	"github.com/withObsrvr/prefix-bundler/internal/metrics"
	"github.com/withObsrvr/prefix-bundler/internal/storage"
)

var (
	configPath string
	dryRun     bool
)

var rootCmd = &cobra.Command{
	Use:   "prefix-bundler",
	Short: "Bundle object-storage prefixes into one archive and publish it",
	Long: `prefix-bundler downloads the objects under a set of source prefixes,
flattens them into a local workspace, assembles a single compressed zip
archive, and uploads it to a destination bucket.

Every step is idempotent: files already present locally are not re-downloaded,
a valid existing archive is reused, and the upload is skipped when the
destination key already exists (unless overwrite is enabled). Credentials are
loaded from a .env file or the environment.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context())
	},
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "config.yaml", "Path to YAML configuration file")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "List and report intended actions without transferring anything")
}

func run(ctx context.Context) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logging.Setup(cfg.Logging)
	slog.Info("prefix-bundler starting", "version", bundle.Version, "git_sha", bundle.GitSHA)

	if err := cfg.LoadCredentials(); err != nil {
		return err
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.Init("")
		metrics.Serve(cfg.Metrics.Address)
	}

	src, err := storage.Open(ctx, storage.Config{
		Backend:   cfg.AWS.Backend,
		Bucket:    cfg.AWS.SourceBucket,
		Endpoint:  cfg.AWS.Endpoint,
		Region:    cfg.AWS.Region,
		LocalRoot: cfg.AWS.LocalRoot,
	})
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := storage.Open(ctx, storage.Config{
		Backend:   cfg.AWS.Backend,
		Bucket:    cfg.AWS.DestinationBucket,
		Endpoint:  cfg.AWS.Endpoint,
		Region:    cfg.AWS.Region,
		LocalRoot: cfg.AWS.LocalRoot,
	})
	if err != nil {
		return err
	}
	defer dst.Close()

	return bundle.New(cfg, src, dst, m).Run(ctx, dryRun)
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		sig := <-ch
		slog.Info("received signal, shutting down", "signal", sig.String())
		cancel()
	}()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
