package world

import (
	"fmt"

	"github.com/loguhan/FactoryGame/internal/sim/catalogs"
	"github.com/loguhan/FactoryGame/internal/sim/world/feature/progression"
	"github.com/loguhan/FactoryGame/internal/sim/world/logic/geom"
)

func (w *World) AddToInventory(item catalogs.ItemKind, n int) {
	if n <= 0 {
		return
	}
	w.inventory[item] += n
}

func (w *World) GetCount(item catalogs.ItemKind) int { return w.inventory[item] }

func (w *World) takeFromInventory(item catalogs.ItemKind, n int) {
	w.inventory[item] -= n
	if w.inventory[item] <= 0 {
		delete(w.inventory, item)
	}
}

// GrantResearch adds research points directly. Developer helper.
func (w *World) GrantResearch(n int) {
	for _, k := range w.ledger.GrantResearch(w.cats, n) {
		w.audit("UNLOCK_BUILDING", geom.Pos{}, string(k), "research", nil)
		w.event("UNLOCK", string(k))
	}
	w.checkAchievements()
}

// UnlockRegion pays the region's cost and generates its terrain.
func (w *World) UnlockRegion(id int) error {
	r := w.terrain.Region(id)
	if r == nil {
		return fmt.Errorf("unlock region %d: %w", id, ErrUnknownRegion)
	}
	if r.Unlocked {
		return fmt.Errorf("unlock region %d: %w", id, ErrUnchanged)
	}
	item := catalogs.ItemKind(w.tun.Regions.UnlockItem)
	if w.inventory[item] < r.UnlockCost {
		return fmt.Errorf("unlock region %d: need %d %s: %w", id, r.UnlockCost, item, ErrInsufficientMaterials)
	}
	w.takeFromInventory(item, r.UnlockCost)
	w.terrain.Unlock(id)
	w.audit("UNLOCK_REGION", geom.Pos{X: r.Bounds.X, Y: r.Bounds.Y}, "", "", map[string]any{
		"region": id,
		"cost":   r.UnlockCost,
	})
	w.event("REGION", fmt.Sprintf("%d", id))
	return nil
}

// deliverToStorage books one item into a storage building.
func (w *World) deliverToStorage(origin geom.Pos, item catalogs.ItemKind) bool {
	s := w.storages[origin]
	if s == nil {
		return false
	}
	s.Count++
	w.inventory[item]++
	switch item {
	case catalogs.ItemPlate:
		w.plates.Add(w.clock, 1)
	case catalogs.ItemScience:
		w.science.Add(w.clock, 1)
	}
	for _, k := range w.ledger.RecordStored(w.cats, item, 1) {
		w.audit("UNLOCK_BUILDING", origin, string(k), "research", nil)
		w.event("UNLOCK", string(k))
	}
	w.checkAchievements()
	return true
}

func (w *World) checkAchievements() {
	facts := progression.Facts{Buildings: map[catalogs.BuildingKind]int{}}
	for _, k := range w.buildings {
		facts.Buildings[k]++
	}
	for _, a := range w.ledger.CheckAchievements(w.cats, facts) {
		for _, r := range a.Reward {
			w.inventory[r.Item] += r.Count
		}
		w.audit("ACHIEVEMENT", geom.Pos{}, "", a.ID, nil)
		w.event("ACHIEVEMENT", a.ID)
	}
}
