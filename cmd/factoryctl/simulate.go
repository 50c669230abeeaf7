package main

import (
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/loguhan/FactoryGame/internal/persistence/snapshot"
	"github.com/loguhan/FactoryGame/internal/sim/catalogs"
	"github.com/loguhan/FactoryGame/internal/sim/tuning"
	"github.com/loguhan/FactoryGame/internal/sim/world"
	"github.com/loguhan/FactoryGame/internal/sim/world/logic/geom"
	genpkg "github.com/loguhan/FactoryGame/internal/sim/world/terrain/gen"
)

// Layout is a headless test bench: a world, optionally flattened, with
// buildings placed before the clock starts. Coordinates are absolute.
type Layout struct {
	Seconds       float64        `yaml:"seconds"`
	Seed          int64          `yaml:"seed"`
	Flatten       bool           `yaml:"flatten"`
	Research      int            `yaml:"research"`
	Inventory     map[string]int `yaml:"inventory"`
	UnlockRegions []int          `yaml:"unlock_regions"`
	Ore           []OrePatch     `yaml:"ore"`
	Buildings     []Placement    `yaml:"buildings"`
}

type OrePatch struct {
	Kind string `yaml:"kind"`
	X    int    `yaml:"x"`
	Y    int    `yaml:"y"`
	W    int    `yaml:"w"`
	H    int    `yaml:"h"`
}

type Placement struct {
	Kind string `yaml:"kind"`
	X    int    `yaml:"x"`
	Y    int    `yaml:"y"`
	Dir  string `yaml:"dir"`
}

func simulateCmd() *cobra.Command {
	var (
		savePath string
		seconds  float64
	)
	cmd := &cobra.Command{
		Use:   "simulate <layout.yaml>",
		Short: "Build a layout in a headless world, run it and print production stats",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cats, tune, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			lay, err := readLayout(args[0])
			if err != nil {
				return err
			}
			if seconds > 0 {
				lay.Seconds = seconds
			}
			w, err := buildLayout(lay, cats, tune)
			if err != nil {
				return err
			}
			runLayout(w, lay.Seconds)
			report(cmd.OutOrStdout(), w)
			if savePath != "" {
				if err := snapshot.WriteSnapshot(savePath, w.ExportSave()); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "saved %s\n", savePath)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&savePath, "save", "", "write the final state to this snapshot path")
	cmd.Flags().Float64Var(&seconds, "seconds", 0, "override the layout's run time")
	return cmd
}

func readLayout(path string) (Layout, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Layout{}, err
	}
	var lay Layout
	if err := yaml.Unmarshal(raw, &lay); err != nil {
		return Layout{}, fmt.Errorf("%s: %w", path, err)
	}
	if lay.Seconds <= 0 {
		lay.Seconds = 60
	}
	return lay, nil
}

func buildLayout(lay Layout, cats *catalogs.Catalogs, tune tuning.Tuning) (*world.World, error) {
	if lay.Seed != 0 {
		tune.Seed = lay.Seed
	}
	w, err := world.New(world.Config{ID: "simulate", Tuning: tune}, cats)
	if err != nil {
		return nil, err
	}
	for item, n := range lay.Inventory {
		w.AddToInventory(catalogs.ItemKind(item), n)
	}
	if lay.Research > 0 {
		w.GrantResearch(lay.Research)
	}
	for _, id := range lay.UnlockRegions {
		if err := w.UnlockRegion(id); err != nil {
			return nil, err
		}
	}
	if lay.Flatten {
		for _, r := range w.Regions() {
			if !r.Unlocked {
				continue
			}
			for y := r.Bounds.Y; y < r.Bounds.Y+r.Bounds.H; y++ {
				for x := r.Bounds.X; x < r.Bounds.X+r.Bounds.W; x++ {
					w.SetTerrain(geom.Pos{X: x, Y: y}, genpkg.Grass)
					w.SetOre(geom.Pos{X: x, Y: y}, catalogs.OreNone)
				}
			}
		}
	}
	for i, o := range lay.Ore {
		for y := o.Y; y < o.Y+max(o.H, 1); y++ {
			for x := o.X; x < o.X+max(o.W, 1); x++ {
				if !w.SetOre(geom.Pos{X: x, Y: y}, catalogs.OreKind(o.Kind)) {
					return nil, fmt.Errorf("ore[%d]: cannot set %s at (%d,%d)", i, o.Kind, x, y)
				}
			}
		}
	}
	for i, b := range lay.Buildings {
		dir, err := geom.ParseDirection(b.Dir)
		if err != nil {
			return nil, fmt.Errorf("buildings[%d]: %w", i, err)
		}
		if err := w.PlaceBuilding(geom.Pos{X: b.X, Y: b.Y}, catalogs.BuildingKind(b.Kind), dir); err != nil {
			return nil, fmt.Errorf("buildings[%d]: %w", i, err)
		}
	}
	return w, nil
}

func runLayout(w *world.World, seconds float64) {
	dt := 1.0 / float64(w.Tuning().TickRateHz)
	n := int(seconds/dt + 0.5)
	for i := 0; i < n; i++ {
		w.Step(dt)
	}
}

func report(out io.Writer, w *world.World) {
	st := w.Stats()
	pw := w.Power()
	fmt.Fprintf(out, "ran %.1fs (%s ticks), %d buildings, power %.0f/%.0f (%.0f%%)\n",
		w.Clock(), humanize.Comma(int64(w.CurrentTick())), len(w.Buildings()), pw.Produced, pw.Consumed, pw.Ratio*100)
	fmt.Fprintf(out, "plates/min %.1f  science/min %.1f  research %s\n", st.PlatesPerMinute, st.SciencePerMinute, humanize.Comma(int64(st.Research)))
	stored := make(map[string]int, len(st.Stored))
	for k, n := range st.Stored {
		stored[string(k)] = n
	}
	if len(stored) > 0 {
		fmt.Fprint(out, "stored")
		for _, k := range sortedKeys(stored) {
			fmt.Fprintf(out, " %s=%s", k, humanize.Comma(int64(stored[k])))
		}
		fmt.Fprintln(out)
	}
	if len(st.Achieved) > 0 {
		fmt.Fprintf(out, "achievements %v\n", st.Achieved)
	}
}
