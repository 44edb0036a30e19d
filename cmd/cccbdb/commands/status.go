package commands

import (
	"fmt"
	"os"

	"cccbdb-harvester/internal/registry"
	"cccbdb-harvester/pkg/fsutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(statusCmd)
}

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}

// loadExisting is registry.Load that refuses to create a missing file.
func loadExisting(path string) (*registry.Registry, error) {
	exists, err := fsutil.Exists(path)
	if err != nil {
		return nil, fmt.Errorf("stat registry: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("registry %s does not exist", path)
	}
	reg, err := registry.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load registry: %w", err)
	}
	return reg, nil
}

var statusCmd = &cobra.Command{
	Use:   "status <registry.json>",
	Short: "Prints the progress recorded in a registry and the reason of every failure.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := loadExisting(args[0])
		if err != nil {
			return err
		}
		done, failed := reg.Counts()

		counts := newTable()
		counts.AppendHeader(table.Row{"Done", "Failed"})
		counts.AppendRow(table.Row{done, failed})
		counts.Render()

		if failed == 0 {
			return nil
		}

		failures := newTable()
		failures.AppendHeader(table.Row{"CAS", "Reason"})
		for _, f := range reg.Failed() {
			failures.AppendRow(table.Row{f.ID, f.Reason})
		}
		failures.Render()
		return nil
	},
}
