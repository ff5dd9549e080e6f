package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"catmigrate/pkg/auditlog"
	"catmigrate/pkg/auth"
	"catmigrate/pkg/catalog"
	"catmigrate/pkg/checkpoint"
	"catmigrate/pkg/config"
	"catmigrate/pkg/health"
	"catmigrate/pkg/logger"
	"catmigrate/pkg/migrate"
)

var (
	runAPIURL         string
	runConsumerKey    string
	runConsumerSecret string
	runAccount        string
	runPerPage        int
	runStartPage      int
	runEndPage        int
	runPageDelay      time.Duration
	runItemDelay      time.Duration
	runCheckpointFile string
	runLogDir         string
	runHealthAddr     string
	runOnce           bool
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the catalog migration loop",
	Long: `Run the migration over the configured page range.

The loop resumes from the last checkpoint, rewrites matching image URLs
in each product's metadata, and PUTs changed products back. A liveness
HTTP endpoint answers health checks while the loop runs.

Credentials are resolved in order: flags, environment variables, then
accounts stored via 'catmigrate auth login'.`,
	Example: `  # Run with explicit credentials
  catmigrate run --api-url https://shop.example.com/wp-json/wc/v3/products \
      --consumer-key ck_xxx --consumer-secret cs_xxx

  # Run with a stored account over pages 10-20
  catmigrate run --account production --start-page 10 --end-page 20

  # Single pass without supervisor restarts
  catmigrate run --once`,
	RunE: runMigration,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runAPIURL, "api-url", "", "catalog products endpoint URL")
	runCmd.Flags().StringVar(&runConsumerKey, "consumer-key", "", "API consumer key")
	runCmd.Flags().StringVar(&runConsumerSecret, "consumer-secret", "", "API consumer secret")
	runCmd.Flags().StringVar(&runAccount, "account", "", "stored credential account to use")
	runCmd.Flags().IntVar(&runPerPage, "per-page", 0, "page size for product listings")
	runCmd.Flags().IntVar(&runStartPage, "start-page", 0, "first page to process")
	runCmd.Flags().IntVar(&runEndPage, "end-page", 0, "last page to process")
	runCmd.Flags().DurationVar(&runPageDelay, "page-delay", -1, "delay between pages")
	runCmd.Flags().DurationVar(&runItemDelay, "item-delay", -1, "delay between items")
	runCmd.Flags().StringVar(&runCheckpointFile, "checkpoint-file", "", "checkpoint file path")
	runCmd.Flags().StringVar(&runLogDir, "log-dir", "", "directory for CSV audit logs")
	runCmd.Flags().StringVar(&runHealthAddr, "health-addr", "", "liveness endpoint listen address")
	runCmd.Flags().BoolVar(&runOnce, "once", false, "run a single pass without supervisor restarts")
}

func buildFlagMap() map[string]interface{} {
	flags := make(map[string]interface{})
	if runAPIURL != "" {
		flags["api-url"] = runAPIURL
	}
	if runConsumerKey != "" {
		flags["consumer-key"] = runConsumerKey
	}
	if runConsumerSecret != "" {
		flags["consumer-secret"] = runConsumerSecret
	}
	if runPerPage > 0 {
		flags["per-page"] = runPerPage
	}
	if runStartPage > 0 {
		flags["start-page"] = runStartPage
	}
	if runEndPage > 0 {
		flags["end-page"] = runEndPage
	}
	if runPageDelay >= 0 {
		flags["page-delay"] = runPageDelay
	}
	if runItemDelay >= 0 {
		flags["item-delay"] = runItemDelay
	}
	if runCheckpointFile != "" {
		flags["checkpoint-file"] = runCheckpointFile
	}
	if runLogDir != "" {
		flags["log-dir"] = runLogDir
	}
	if runHealthAddr != "" {
		flags["health-addr"] = runHealthAddr
	}
	if logLevel != "" {
		flags["log-level"] = logLevel
	}
	return flags
}

// resolveCredentials fills missing API credentials from the credential stores
func resolveCredentials(cfg *config.Config) error {
	if cfg.API.ConsumerKey != "" && cfg.API.ConsumerSecret != "" {
		return nil
	}

	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	var account *auth.Account
	if runAccount != "" {
		account, err = manager.Retrieve(runAccount)
	} else {
		account, err = manager.RetrieveDefault()
	}
	if err != nil {
		auth.ShowQuickKeyGuide()
		return fmt.Errorf("no API credentials: provide --consumer-key/--consumer-secret or run 'catmigrate auth login'")
	}

	cfg.API.ConsumerKey = account.ConsumerKey
	cfg.API.ConsumerSecret = account.ConsumerSecret
	if cfg.API.BaseURL == "" && account.BaseURL != "" {
		cfg.API.BaseURL = account.BaseURL
	}
	return nil
}

func runMigration(cmd *cobra.Command, args []string) error {
	// Credentials may come from a store, so validation happens after resolution
	cfg, err := config.Load(configFile, buildFlagMap())
	if err != nil {
		return err
	}

	if err := resolveCredentials(cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.GetLogger()
	log.WithField("version", version).Info("catalog migration starting")

	checkpoints, err := checkpoint.NewManager(cfg.Batch.CheckpointFile, cfg.Batch.StartPage)
	if err != nil {
		return fmt.Errorf("failed to create checkpoint manager: %w", err)
	}

	audit, err := auditlog.New(cfg.Batch.LogDir)
	if err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	defer audit.Close()
	log.WithField("path", audit.Path()).Info("audit log opened")

	client := catalog.NewClient(cfg.API.BaseURL, cfg.API.ConsumerKey, cfg.API.ConsumerSecret,
		cfg.API.RequestTimeout, log)

	counters := migrate.NewRunCounters()
	runner := migrate.NewRunner(cfg, client, checkpoints, audit, counters, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Liveness endpoint runs independently of the worker
	if cfg.Health.Enabled {
		healthServer := health.NewServer(cfg.Health.Addr, checkpoints, counters, log)
		go func() {
			if err := healthServer.Start(); err != nil {
				log.WithError(err).Error("liveness server stopped")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = healthServer.Shutdown(shutdownCtx)
		}()
	}

	if runOnce {
		err = runner.Run(ctx)
	} else {
		supervisor := migrate.NewSupervisor(cfg.Supervisor.RestartDelay, cfg.Supervisor.MaxRestarts, log)
		err = supervisor.Run(ctx, runner.Run)
	}
	if err != nil {
		if ctx.Err() != nil {
			log.Info("migration stopped by signal")
			fmt.Println("Migration interrupted; progress is checkpointed and will resume on the next run.")
			return nil
		}
		return fmt.Errorf("migration failed: %w", err)
	}

	summary := counters.Snapshot()
	log.InfoWithFields("migration finished", map[string]interface{}{
		"checked": summary.Checked,
		"updated": summary.Updated,
		"skipped": summary.Skipped,
		"failed":  summary.Failed,
	})
	fmt.Printf("Migration finished: %s\n", migrate.Summary(summary))
	fmt.Printf("Audit log: %s\n", audit.Path())
	return nil
}
