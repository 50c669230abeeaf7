package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/loguhan/FactoryGame/internal/sim/world"
)

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Load catalogs and tuning, check them and print their digests",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cats, tune, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := tune.Validate(); err != nil {
				return fmt.Errorf("tuning: %w", err)
			}
			// Building a world also checks the map against the region layout.
			if _, err := world.New(world.Config{ID: "validate", Tuning: tune}, cats); err != nil {
				return fmt.Errorf("world: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "items        %4d  defs=%s palette=%s\n", len(cats.Items.Order), short(cats.Items.DefsDigest), short(cats.Items.PaletteDigest))
			fmt.Fprintf(out, "buildings    %4d  %s\n", len(cats.Buildings.Order), short(cats.Buildings.Digest))
			fmt.Fprintf(out, "recipes      %4d  %s\n", len(cats.Recipes.Order), short(cats.Recipes.Digest))
			fmt.Fprintf(out, "achievements %4d  %s\n", len(cats.Achievements.Order), short(cats.Achievements.Digest))
			regions := (tune.MapWidth / tune.RegionSize) * (tune.MapHeight / tune.RegionSize)
			fmt.Fprintf(out, "map %dx%d, %s regions of %d, %d Hz, seed %d\n",
				tune.MapWidth, tune.MapHeight, humanize.Comma(int64(regions)), tune.RegionSize, tune.TickRateHz, tune.Seed)
			fmt.Fprintln(out, "ok")
			return nil
		},
	}
}

func short(digest string) string {
	if len(digest) > 12 {
		return digest[:12]
	}
	return digest
}
