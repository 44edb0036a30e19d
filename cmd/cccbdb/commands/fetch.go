package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"cccbdb-harvester/internal/batch"
	"cccbdb-harvester/internal/input"
	"cccbdb-harvester/internal/registry"
	"cccbdb-harvester/internal/retry"
	"cccbdb-harvester/internal/scrapers/cccbdb"
	"cccbdb-harvester/internal/storage"
	"cccbdb-harvester/pkg/serviceutil"

	"github.com/spf13/cobra"
)

var fetchFlags struct {
	out      string
	column   string
	attempts int
	delay    string
	baseUrl  string
	rate     float64
	s3Bucket string
	s3Prefix string
	cfBypass bool
	dumpHttp string
}

func init() {
	flags := fetchCmd.Flags()
	flags.StringVar(&fetchFlags.out, "out", "", "The directory raw pages are written to.")
	flags.StringVar(&fetchFlags.column, "column", "", "The column of the table holding CAS numbers.")
	flags.IntVar(&fetchFlags.attempts, "attempts", 0, "Attempts per CAS number.")
	flags.StringVar(&fetchFlags.delay, "delay", "", "Delay between attempts, seconds or a duration like 1500ms.")
	flags.StringVar(&fetchFlags.baseUrl, "base-url", "", "The CCCBDB base url.")
	flags.Float64Var(&fetchFlags.rate, "rate", 0, "Max requests per second, 0 disables the limit.")
	flags.StringVar(&fetchFlags.s3Bucket, "s3-bucket", "", "Mirror raw pages to this s3 bucket.")
	flags.StringVar(&fetchFlags.s3Prefix, "s3-prefix", "", "Key prefix of mirrored pages.")
	flags.BoolVar(&fetchFlags.cfBypass, "cloudflare-bypass", false, "Wrap the http transport with cloudflare-bp-go.")
	flags.StringVar(&fetchFlags.dumpHttp, "dump-http", "", "Write every http exchange into this directory.")
	rootCmd.AddCommand(fetchCmd)
}

// applyFetchFlags layers the flags that were explicitly set over cfg.
func applyFetchFlags(cmd *cobra.Command, cfg Config) Config {
	flags := cmd.Flags()
	if flags.Changed("out") {
		cfg.OutputDir = fetchFlags.out
	}
	if flags.Changed("column") {
		cfg.Column = fetchFlags.column
	}
	if flags.Changed("attempts") {
		cfg.Attempts = fetchFlags.attempts
	}
	if flags.Changed("delay") {
		cfg.Delay = fetchFlags.delay
	}
	if flags.Changed("base-url") {
		cfg.BaseUrl = fetchFlags.baseUrl
	}
	if flags.Changed("rate") {
		cfg.Rate = fetchFlags.rate
	}
	if flags.Changed("s3-bucket") {
		cfg.S3.Bucket = fetchFlags.s3Bucket
	}
	if flags.Changed("s3-prefix") {
		cfg.S3.Prefix = fetchFlags.s3Prefix
	}
	if flags.Changed("cloudflare-bypass") {
		cfg.CloudflareBypass = fetchFlags.cfBypass
	}
	return cfg
}

var fetchCmd = &cobra.Command{
	Use:   "fetch <table.csv> <registry.json> [attempts] [delay]",
	Short: "Downloads the experimental data page of every CAS number in the table.",
	Long: `Downloads the experimental data page of every CAS number in the table.

Every outcome is checkpointed into the registry file, numbers already done are
skipped so an interrupted run picks up where it stopped. Ctrl+C abandons the
number in flight, it is fetched again on the next run.`,
	Args: cobra.RangeArgs(2, 4),
	RunE: func(cmd *cobra.Command, args []string) error {
		tablePath, registryPath := args[0], args[1]

		// positional arguments win over the config, explicit flags win over both
		cfg, err := applyRetryArgs(config, args[2:])
		if err != nil {
			return fmt.Errorf("invalid arguments: %w", err)
		}
		cfg = applyFetchFlags(cmd, cfg)
		policy, err := retryPolicy(cfg)
		if err != nil {
			return fmt.Errorf("invalid retry policy: %w", err)
		}

		ids, err := input.Load(tablePath, cfg.Column)
		if err != nil {
			return fmt.Errorf("read input table: %w", err)
		}

		reg, err := registry.Load(registryPath)
		if err != nil {
			return fmt.Errorf("load registry: %w", err)
		}

		client, err := cccbdb.NewClient(cccbdb.ClientOptions{
			BaseUrl:           cfg.BaseUrl,
			RequestsPerSecond: cfg.Rate,
			CloudflareBypass:  cfg.CloudflareBypass,
			DumpDir:           fetchFlags.dumpHttp,
		}, tel)
		if err != nil {
			return fmt.Errorf("create cccbdb client: %w", err)
		}

		retrier, err := retry.NewRetrier(policy, tel)
		if err != nil {
			return fmt.Errorf("invalid retry policy: %w", err)
		}

		opts := batch.Options{
			RegistryPath: registryPath,
			OutputDir:    cfg.OutputDir,
		}
		if cfg.S3.Bucket != "" {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			mirror, err := storage.NewS3MirrorFromEnv(ctx, cfg.S3.Bucket, cfg.S3.Prefix)
			cancel()
			if err != nil {
				return fmt.Errorf("create s3 mirror: %w", err)
			}
			opts.Mirror = mirror
		}

		driver := batch.NewDriver(reg, client, retrier, opts, tel)

		ctx, stop := serviceutil.SignalContext(cmd.Context())
		defer stop()

		slog.Info(
			"processing cas numbers",
			"table", tablePath,
			"count", len(ids),
			"attempts", policy.Attempts,
			"delay", policy.Delay,
		)
		t1 := time.Now()
		summary, err := driver.Run(ctx, ids)
		elapsed := time.Since(t1)

		done, failed := reg.Counts()
		slog.Info(
			"run finished",
			"done", summary.Done,
			"failed", summary.Failed,
			"skipped", summary.Skipped,
			"registry_done", done,
			"registry_failed", failed,
			"seconds", elapsed.Seconds(),
		)
		if errors.Is(err, context.Canceled) {
			slog.Warn("interrupted, progress is saved in the registry", "registry", registryPath)
			return nil
		}
		if err != nil {
			return fmt.Errorf("run stopped: %w", err)
		}
		return nil
	},
}
