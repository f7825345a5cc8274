package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"resultfetcher/internal/components/chrono"
	"resultfetcher/internal/components/telemetry"
	"resultfetcher/internal/config"
	"time"

	"github.com/spf13/cobra"
)

var (
	configPath *string
	verbose    *bool
	dumpDir    *string
)

// env is everything a command needs, it is built once before any command runs.
type env struct {
	cfg       config.Config
	tel       telemetry.API
	clock     chrono.API
	telemetry telemetry.Telemetry
}

var current *env

func init() {
	configPath = rootCmd.PersistentFlags().String("config", "resultfetcher.json5", "The config file to read, <name>.local.json5 overrides it. Left unset, the current directory and its parents are searched.")
	verbose = rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log debug output.")
	dumpDir = rootCmd.PersistentFlags().String("dump-dir", "", "Write every portal request and response to this directory (includes credentials).")
}

var rootCmd = &cobra.Command{
	Use:   "resultfetcher",
	Short: "resultfetcher fetches student results from the university portal and ranks them by GPA.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		telemetry.InitSlog(os.Stderr, *verbose)

		path := *configPath
		if !cmd.Flags().Changed("config") {
			wd, err := os.Getwd()
			if err != nil {
				return err
			}
			path, err = config.Locate(wd, path)
			if err != nil {
				return fmt.Errorf("locate config: %w", err)
			}
		}
		slog.Debug("loading config", "path", path)

		cfg, err := config.Load(path)
		if err != nil {
			return fmt.Errorf("read config: %w", err)
		}

		if *dumpDir != "" {
			cfg.Portal.DumpDir = *dumpDir
		}

		clock, err := chrono.NewStandardImpl(cfg.Timezone)
		if err != nil {
			return fmt.Errorf("load timezone: %w", err)
		}

		t, err := telemetry.Setup(cmd.Context(), "resultfetcher", cfg.Telemetry)
		if err != nil {
			return fmt.Errorf("setup telemetry: %w", err)
		}
		if t.MeterProvider != nil {
			telemetry.InstrumentPerfStats(cmd.Context(), time.Second*15)
		}

		current = &env{
			cfg:       cfg,
			tel:       telemetry.SlogAPI{},
			clock:     clock,
			telemetry: t,
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if current == nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
		defer cancel()
		err := current.telemetry.Shutdown(ctx)
		if err != nil {
			slog.Warn("failed to flush telemetry", "err", err)
		}
	},
	SilenceUsage: true,
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
