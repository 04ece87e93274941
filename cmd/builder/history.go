package main

import (
	"fmt"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"voxelbuilder.ai/internal/persistence/indexdb"
)

var historyDB string

// historyCmd lists a builder's status transitions from the sqlite index
var historyCmd = &cobra.Command{
	Use:   "history <builder-id>",
	Short: "Show a builder's status history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := historyDB
		if path == "" {
			id := worldID
			if id == "" {
				id = "world_1"
			}
			path = filepath.Join(dataDir, "worlds", id, "index", "world.sqlite")
		}
		idx, err := indexdb.OpenSQLite(path)
		if err != nil {
			return fmt.Errorf("open index: %w", err)
		}
		defer idx.Close()

		rows, err := idx.Transitions(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		audits, err := idx.AuditCount(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "TICK\tFROM\tTO")
		for _, r := range rows {
			fmt.Fprintf(tw, "%d\t%s\t%s\n", r.Tick, r.From, r.To)
		}
		_ = tw.Flush()
		fmt.Fprintf(out, "%d transitions, %d block changes\n", len(rows), audits)
		return nil
	},
}

func init() {
	f := historyCmd.Flags()
	f.StringVar(&historyDB, "db", "", "Path to world.sqlite (default: <data>/worlds/<world>/index/world.sqlite)")
	f.StringVar(&dataDir, "data", "./data", "Runtime data directory")
	f.StringVar(&worldID, "world", "", "World id")
}
