package world

import (
	"github.com/loguhan/FactoryGame/internal/sim/catalogs"
	"github.com/loguhan/FactoryGame/internal/sim/world/logic/power"
)

// systemPower recomputes supply and demand from every placed building.
func (w *World) systemPower() {
	units := make([]power.Unit, 0, len(w.buildings))
	for _, o := range sortedKeys(w.buildings) {
		def, ok := w.cats.Building(w.buildings[o])
		if !ok || (def.PowerDraw == 0 && def.PowerOutput == 0) {
			continue
		}
		active := true
		if def.Class == catalogs.ClassCoalGenerator {
			g := w.coalGens[o]
			active = g != nil && g.HasFuel
		}
		units = append(units, power.Unit{Draw: def.PowerDraw, Output: def.PowerOutput, Active: active})
	}
	w.power = power.Compute(w.tun.Power.BaseOutput, units)
}

// systemCoalGenerators burns fuel in wall-clock seconds; power does not
// scale it.
func (w *World) systemCoalGenerators(dt float64) {
	for _, g := range w.coalGens {
		if !g.HasFuel {
			continue
		}
		g.FuelTimer -= dt
		if g.FuelTimer <= 0 {
			g.FuelTimer = 0
			g.HasFuel = false
		}
	}
}

func (w *World) decayCongestion(dt float64) {
	d := w.tun.Congestion.DecayPerSecond * dt
	for i, c := range w.congestion {
		if c == 0 {
			continue
		}
		c -= d
		if c < 0 {
			c = 0
		}
		w.congestion[i] = c
	}
}
