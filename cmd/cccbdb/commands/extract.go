package commands

import (
	"fmt"
	"log/slog"

	"cccbdb-harvester/internal/cas"
	"cccbdb-harvester/internal/extract"
	"cccbdb-harvester/internal/registry"
	"cccbdb-harvester/pkg/fsutil"
	"cccbdb-harvester/pkg/serviceutil"

	"github.com/spf13/cobra"
)

var extractFlags struct {
	data     string
	out      string
	db       string
	registry string
}

func init() {
	flags := extractCmd.Flags()
	flags.StringVar(&extractFlags.data, "data", "", "The directory holding raw pages, defaults to output_dir of the config.")
	flags.StringVar(&extractFlags.out, "out", "", "The directory csv tables are written to, defaults to --data.")
	flags.StringVar(&extractFlags.db, "db", "", "Also write the tables into this sqlite database.")
	flags.StringVar(&extractFlags.registry, "registry", "", "Extract every number done in this registry.")
	rootCmd.AddCommand(extractCmd)
}

// extractIds is args if any were given, otherwise the done numbers of the
// registry at registryPath.
func extractIds(args []string, registryPath string) ([]cas.Number, error) {
	if len(args) > 0 {
		ids := make([]cas.Number, len(args))
		for i, a := range args {
			id, err := cas.Parse(a)
			if err != nil {
				return nil, err
			}
			ids[i] = id
		}
		return ids, nil
	}
	if registryPath == "" {
		return nil, fmt.Errorf("either cas numbers or --registry must be given")
	}

	exists, err := fsutil.Exists(registryPath)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("registry %s does not exist", registryPath)
	}
	reg, err := registry.Load(registryPath)
	if err != nil {
		return nil, err
	}
	return reg.Done(), nil
}

var extractCmd = &cobra.Command{
	Use:   "extract [cas...] [--registry <registry.json>] [--data <dir>] [--out <dir>] [--db <path>]",
	Short: "Extracts the vibrations and references tables out of downloaded pages.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := extractIds(args, extractFlags.registry)
		if err != nil {
			return fmt.Errorf("nothing to extract: %w", err)
		}

		dataDir := extractFlags.data
		if dataDir == "" {
			dataDir = config.OutputDir
		}
		outDir := extractFlags.out
		if outDir == "" {
			outDir = dataDir
		}

		opts := extract.ExtractorOptions{
			DataDir:   dataDir,
			OutputDir: outDir,
		}
		if extractFlags.db != "" {
			store, err := extract.OpenStore(extractFlags.db)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			defer store.Close()
			opts.Store = &store
		}

		ctx, stop := serviceutil.SignalContext(cmd.Context())
		defer stop()

		summary, err := extract.NewExtractor(opts, tel).Run(ctx, ids)
		slog.Info(
			"extraction finished",
			"done", summary.Done,
			"failed", summary.Failed,
			"missing", summary.Missing,
		)
		if err != nil {
			slog.Warn("interrupted", "err", err)
		}
		return nil
	},
}
