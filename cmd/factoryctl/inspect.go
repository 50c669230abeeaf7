package main

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/loguhan/FactoryGame/internal/persistence/snapshot"
)

func inspectCmd() *cobra.Command {
	var headerOnly bool
	cmd := &cobra.Command{
		Use:   "inspect <save.snap.zst>",
		Short: "Summarize a snapshot file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			st, err := os.Stat(path)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if headerOnly {
				h, err := snapshot.ReadHeader(path)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "world=%s tick=%d version=%d size=%s\n", h.WorldID, h.Tick, h.Version, humanize.Bytes(uint64(st.Size())))
				return nil
			}
			snap, err := snapshot.ReadSnapshot(path)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "file      %s (%s, modified %s)\n", path, humanize.Bytes(uint64(st.Size())), humanize.Time(st.ModTime()))
			summarize(out, snap)
			return nil
		},
	}
	cmd.Flags().BoolVar(&headerOnly, "header", false, "only read the header line")
	return cmd
}

// summarize prints what a save holds. Shared by inspect and slots export.
func summarize(out io.Writer, snap snapshot.SaveV1) {
	unlockedRegions := 0
	for _, r := range snap.Regions {
		if r.Unlocked {
			unlockedRegions++
		}
	}
	buildings := 0
	kinds := map[string]int{}
	for _, t := range snap.Tiles {
		if t.HasParent {
			continue
		}
		buildings++
		kinds[t.Kind]++
	}
	beltItems := 0
	for _, b := range snap.Belts {
		beltItems += len(b.Items)
	}

	fmt.Fprintf(out, "world     %s v%d tick %s (%.1fs)\n", snap.Header.WorldID, snap.Header.Version, humanize.Comma(int64(snap.Header.Tick)), snap.Clock)
	fmt.Fprintf(out, "map       %dx%d seed %d, %d/%d regions unlocked\n", snap.Width, snap.Height, snap.Seed, unlockedRegions, len(snap.Regions))
	fmt.Fprintf(out, "buildings %s", humanize.Comma(int64(buildings)))
	for _, k := range sortedKeys(kinds) {
		fmt.Fprintf(out, " %s=%d", k, kinds[k])
	}
	fmt.Fprintln(out)
	fmt.Fprintf(out, "items     %s on belts, %s loose\n", humanize.Comma(int64(beltItems)), humanize.Comma(int64(len(snap.LooseItems))))
	fmt.Fprintf(out, "research  %s, %d achievements\n", humanize.Comma(int64(snap.Stats.Research)), len(snap.Stats.Achieved))
	if len(snap.Inventory) > 0 {
		fmt.Fprint(out, "inventory")
		for _, k := range sortedKeys(snap.Inventory) {
			fmt.Fprintf(out, " %s=%s", k, humanize.Comma(int64(snap.Inventory[k])))
		}
		fmt.Fprintln(out)
	}
	if len(snap.Stats.Stored) > 0 {
		fmt.Fprint(out, "stored   ")
		for _, k := range sortedKeys(snap.Stats.Stored) {
			fmt.Fprintf(out, " %s=%s", k, humanize.Comma(int64(snap.Stats.Stored[k])))
		}
		fmt.Fprintln(out)
	}
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
