package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/loguhan/FactoryGame/internal/persistence/slots"
	"github.com/loguhan/FactoryGame/internal/persistence/snapshot"
)

// slotsCmd works on a stopped server's slot store; badger holds a directory
// lock while the server runs.
func slotsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "slots",
		Short: "List, export, import and delete named saves",
	}
	cmd.PersistentFlags().String("dir", "data/worlds/factory_1/slots", "slot store directory")

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List stored slots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSlots(cmd, func(st *slots.Store) error {
				list, err := st.List()
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "NAME\tWORLD\tTICK\tSIZE\tSAVED")
				for _, in := range list {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", in.Name, in.WorldID, humanize.Comma(int64(in.Tick)), humanize.Bytes(uint64(in.Size)), humanize.Time(in.SavedAt))
				}
				return tw.Flush()
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "export <name> <file.snap.zst>",
		Short: "Write a slot to a snapshot file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSlots(cmd, func(st *slots.Store) error {
				snap, err := st.Load(args[0])
				if err != nil {
					return err
				}
				if err := snapshot.WriteSnapshot(args[1], snap); err != nil {
					return err
				}
				summarize(cmd.OutOrStdout(), snap)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "import <file.snap.zst> <name>",
		Short: "Store a snapshot file under a slot name",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := snapshot.ReadSnapshot(args[0])
			if err != nil {
				return err
			}
			return withSlots(cmd, func(st *slots.Store) error {
				in, err := st.Save(args[1], snap)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "stored %s: world=%s tick=%d size=%s\n", in.Name, in.WorldID, in.Tick, humanize.Bytes(uint64(in.Size)))
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a slot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSlots(cmd, func(st *slots.Store) error {
				return st.Delete(args[0])
			})
		},
	})
	return cmd
}

func withSlots(cmd *cobra.Command, fn func(*slots.Store) error) error {
	dir, _ := cmd.Flags().GetString("dir")
	st, err := slots.Open(dir)
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(st)
}
