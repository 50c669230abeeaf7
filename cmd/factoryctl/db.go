package main

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/loguhan/FactoryGame/internal/persistence/indexdb"
)

// dbCmd queries a world's sqlite index. Reads are safe while the server
// runs; the index uses WAL.
func dbCmd() *cobra.Command {
	var (
		worldDir string
		limit    int
	)
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Query the sqlite index of a world",
	}
	cmd.PersistentFlags().StringVar(&worldDir, "world_dir", "data/worlds/factory_1", "world directory holding index/world.sqlite")
	cmd.PersistentFlags().IntVar(&limit, "limit", 20, "result limit")

	open := func() (*indexdb.SQLiteIndex, error) {
		return indexdb.OpenSQLite(filepath.Join(worldDir, "index", "world.sqlite"))
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "saves",
		Short: "List indexed saves, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := open()
			if err != nil {
				return err
			}
			defer idx.Close()
			recs, err := idx.Saves(limit)
			if err != nil {
				return err
			}
			for _, r := range recs {
				printJSON(cmd.OutOrStdout(), r)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "tile <x> <y>",
		Short: "Show the audit history of one tile",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			x, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("bad x: %w", err)
			}
			y, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("bad y: %w", err)
			}
			idx, err := open()
			if err != nil {
				return err
			}
			defer idx.Close()
			recs, err := idx.AuditsAt(x, y, limit)
			if err != nil {
				return err
			}
			for _, r := range recs {
				printJSON(cmd.OutOrStdout(), r)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "rejected <session>",
		Short: "Count rejected commands of a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := open()
			if err != nil {
				return err
			}
			defer idx.Close()
			n, err := idx.RejectedCommands(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s rejected=%d\n", args[0], n)
			return nil
		},
	})
	return cmd
}

func printJSON(out io.Writer, v any) {
	b, _ := json.Marshal(v)
	fmt.Fprintln(out, string(b))
}
