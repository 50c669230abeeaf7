package world

import (
	"testing"

	"github.com/loguhan/FactoryGame/internal/sim/catalogs"
	"github.com/loguhan/FactoryGame/internal/sim/world/logic/geom"
)

func TestPowerStarvation_SlowsCrafting(t *testing.T) {
	w := newTestWorld(t)
	var first geom.Pos
	for i := 0; i < 12; i++ {
		p := mustPlace(t, w, 100+3*i, 100, catalogs.KindSmelter, geom.None)
		if i == 0 {
			first = p
		}
	}
	for i := 0; i < 4; i++ {
		mustPlace(t, w, 100+2*i, 105, catalogs.KindSplitter, geom.East)
	}
	proc := w.processors[first]
	if !proc.Offer(w.cats, catalogs.ItemOre) {
		t.Fatalf("ore rejected")
	}

	stepFor(w, 7.9, tickDT)
	if r := w.Power(); r.Ratio != 0.25 || r.Consumed != 40 {
		t.Fatalf("power=%+v want ratio 0.25 of 40", r)
	}
	if len(proc.Output) != 0 {
		t.Fatalf("craft finished early at quarter power")
	}
	stepFor(w, 0.3, tickDT)
	if len(proc.Output) != 1 || proc.Output[0] != catalogs.ItemPlate {
		t.Fatalf("output=%v want one plate near 8s", proc.Output)
	}
}

func TestCoalGenerator_RefuelsOnlyWhenLow(t *testing.T) {
	w := newTestWorld(t)
	feed := mustPlace(t, w, 129, 140, catalogs.KindConveyor, geom.East)
	gen := mustPlace(t, w, 130, 140, catalogs.KindCoalGenerator, geom.None)
	w.belts[feed].Add(catalogs.ItemCoal, 0, 0.5, 0)
	w.belts[feed].Add(catalogs.ItemCoal, 0, 0, 0)

	stepFor(w, 2, tickDT)

	g, ok := w.CoalGenerator(gen)
	if !ok || !g.HasFuel {
		t.Fatalf("generator not fuelled: %+v", g)
	}
	if g.FuelTimer <= 27 || g.FuelTimer >= 30 {
		t.Fatalf("fuel timer=%v", g.FuelTimer)
	}
	if p := w.Power(); p.Produced != 30 {
		t.Fatalf("produced=%v want base plus generator", p.Produced)
	}
	items, _ := w.Track(feed)
	if len(items) != 1 || items[0].Kind != catalogs.ItemCoal {
		t.Fatalf("second coal should wait on the belt, got %+v", items)
	}

	// Burn down to the refuel threshold; the waiting coal then goes in.
	g2 := w.coalGens[gen]
	g2.FuelTimer = 4.5
	stepFor(w, 0.5, tickDT)
	if items, _ := w.Track(feed); len(items) != 0 {
		t.Fatalf("coal not taken below the threshold")
	}
	if g2.FuelTimer < 30 {
		t.Fatalf("fuel timer=%v after refuel", g2.FuelTimer)
	}
}

func TestCoalGenerator_RunsOutOfFuel(t *testing.T) {
	w := newTestWorld(t)
	gen := mustPlace(t, w, 130, 140, catalogs.KindCoalGenerator, geom.None)
	g := w.coalGens[gen]
	g.HasFuel = true
	g.FuelTimer = 0.5
	stepFor(w, 1, tickDT)
	if g.HasFuel || g.FuelTimer != 0 {
		t.Fatalf("generator still burning: %+v", g)
	}
	if p := w.Power(); p.Produced != w.Tuning().Power.BaseOutput {
		t.Fatalf("produced=%v want base only", p.Produced)
	}
}
