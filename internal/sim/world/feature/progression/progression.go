// Package progression tracks what the factory has delivered to storage:
// per-item totals, research points, building unlocks and achievements.
package progression

import (
	"sort"

	"github.com/loguhan/FactoryGame/internal/sim/catalogs"
)

type Ledger struct {
	Stored   map[catalogs.ItemKind]int      `json:"stored"`
	Research int                            `json:"research"`
	Unlocked map[catalogs.BuildingKind]bool `json:"unlocked"`
	Achieved map[string]bool                `json:"achieved"`
}

// New returns a ledger with the default-unlocked buildings.
func New(cats *catalogs.Catalogs) *Ledger {
	l := &Ledger{
		Stored:   map[catalogs.ItemKind]int{},
		Unlocked: map[catalogs.BuildingKind]bool{},
		Achieved: map[string]bool{},
	}
	for _, k := range cats.Buildings.Order {
		if cats.Buildings.Defs[k].UnlockedByDefault {
			l.Unlocked[k] = true
		}
	}
	return l
}

func (l *Ledger) IsUnlocked(kind catalogs.BuildingKind) bool { return l.Unlocked[kind] }

// RecordStored counts n items of kind reaching storage and returns the
// buildings this unlocked.
func (l *Ledger) RecordStored(cats *catalogs.Catalogs, kind catalogs.ItemKind, n int) []catalogs.BuildingKind {
	if n <= 0 {
		return nil
	}
	l.Stored[kind] += n
	pts := cats.ResearchPoints(kind) * n
	if pts == 0 {
		return nil
	}
	return l.GrantResearch(cats, pts)
}

// GrantResearch adds research points directly and returns new unlocks in
// catalog order.
func (l *Ledger) GrantResearch(cats *catalogs.Catalogs, n int) []catalogs.BuildingKind {
	if n <= 0 {
		return nil
	}
	l.Research += n
	var out []catalogs.BuildingKind
	for _, k := range cats.Buildings.Order {
		d := cats.Buildings.Defs[k]
		if l.Unlocked[k] || d.UnlockResearch <= 0 {
			continue
		}
		if l.Research >= d.UnlockResearch {
			l.Unlocked[k] = true
			out = append(out, k)
		}
	}
	return out
}

// Facts are the counters achievement conditions look at.
type Facts struct {
	Buildings map[catalogs.BuildingKind]int
}

// CheckAchievements marks every newly met achievement and returns them in
// catalog order; the caller pays out rewards.
func (l *Ledger) CheckAchievements(cats *catalogs.Catalogs, f Facts) []catalogs.AchievementDef {
	var out []catalogs.AchievementDef
	for _, a := range cats.Achievements.Order {
		if l.Achieved[a.ID] || !l.met(a.Condition, f) {
			continue
		}
		l.Achieved[a.ID] = true
		out = append(out, a)
	}
	return out
}

func (l *Ledger) met(c catalogs.AchievementCondition, f Facts) bool {
	switch c.Type {
	case catalogs.CondStored:
		if len(c.Items) == 0 {
			return false
		}
		total := 0
		for _, it := range c.Items {
			total += l.Stored[it]
		}
		return total >= c.Count
	case catalogs.CondStoredAll:
		if len(c.Items) == 0 {
			return false
		}
		for _, it := range c.Items {
			if l.Stored[it] < c.Count {
				return false
			}
		}
		return true
	case catalogs.CondResearch:
		return l.Research >= c.Count
	case catalogs.CondBuildings:
		total := 0
		for _, k := range c.Buildings {
			total += f.Buildings[k]
		}
		return total >= c.Count
	}
	return false
}

// AchievedIDs lists achieved ids sorted.
func (l *Ledger) AchievedIDs() []string {
	out := make([]string, 0, len(l.Achieved))
	for id, ok := range l.Achieved {
		if ok {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

func (l *Ledger) Clone() *Ledger {
	c := &Ledger{
		Stored:   make(map[catalogs.ItemKind]int, len(l.Stored)),
		Research: l.Research,
		Unlocked: make(map[catalogs.BuildingKind]bool, len(l.Unlocked)),
		Achieved: make(map[string]bool, len(l.Achieved)),
	}
	for k, v := range l.Stored {
		c.Stored[k] = v
	}
	for k, v := range l.Unlocked {
		c.Unlocked[k] = v
	}
	for k, v := range l.Achieved {
		c.Achieved[k] = v
	}
	return c
}
