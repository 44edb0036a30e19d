package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"cccbdb-harvester/internal/components/telemetry"
	"cccbdb-harvester/pkg/configutil"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	configPath string
	debug      bool

	config    Config
	providers telemetry.Telemetry
	tel       telemetry.API = telemetry.SlogAPI{}
)

var rootCmd = &cobra.Command{
	Use:   "cccbdb",
	Short: "cccbdb harvests experimental data pages from the NIST CCCBDB by CAS number.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		telemetry.InitSlog(debug)

		err := godotenv.Load()
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			slog.Warn("failed to load .env", "err", err)
		}

		config, err = configutil.ReadConfigOr(configPath, defaultConfig)
		if err != nil {
			return fmt.Errorf("read config: %w", err)
		}

		providers, err = telemetry.Setup(cmd.Context(), "cccbdb", config.Telemetry)
		if err != nil {
			return fmt.Errorf("setup telemetry: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "cccbdb.json5", "The json5 config file, <name>.local.json5 overrides it.")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logs.")
}

// execute runs the command line and flushes telemetry whatever the outcome.
func execute(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)

	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if flushErr := providers.Shutdown(flushCtx); flushErr != nil {
		slog.Warn("failed to flush telemetry", "err", flushErr)
	}
	return err
}

func ExecuteContext(ctx context.Context) {
	if err := execute(ctx); err != nil {
		slog.Error("command failed", "err", err.Error())
		os.Exit(1)
	}
}
