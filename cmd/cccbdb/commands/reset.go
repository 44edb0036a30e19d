package commands

import (
	"fmt"
	"log/slog"

	"cccbdb-harvester/internal/cas"

	"github.com/spf13/cobra"
)

var resetFailed bool

func init() {
	resetCmd.Flags().BoolVar(&resetFailed, "failed", false, "Forget every failed number.")
	rootCmd.AddCommand(resetCmd)
}

var resetCmd = &cobra.Command{
	Use:   "reset <registry.json> [cas...] [--failed]",
	Short: "Removes numbers from a registry so the next fetch processes them again.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		reg, err := loadExisting(path)
		if err != nil {
			return err
		}

		var ids []cas.Number
		for _, a := range args[1:] {
			id, err := cas.Parse(a)
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}
		if resetFailed {
			for _, f := range reg.Failed() {
				ids = append(ids, f.ID)
			}
		}

		forgotten := 0
		for _, id := range ids {
			if reg.Forget(id) {
				forgotten++
				continue
			}
			slog.Warn("not in registry", "cas", id)
		}

		err = reg.Persist(path)
		if err != nil {
			return fmt.Errorf("persist registry: %w", err)
		}
		slog.Info("registry updated", "forgotten", forgotten)
		return nil
	},
}
