package progression

import (
	"testing"

	"github.com/loguhan/FactoryGame/internal/sim/catalogs"
)

func defaults(t *testing.T) *catalogs.Catalogs {
	t.Helper()
	cats, err := catalogs.Default()
	if err != nil {
		t.Fatalf("catalogs: %v", err)
	}
	return cats
}

func TestNew_DefaultUnlocks(t *testing.T) {
	l := New(defaults(t))
	for _, k := range []catalogs.BuildingKind{
		catalogs.KindConveyor, catalogs.KindMiner, catalogs.KindSmelter, catalogs.KindStorage,
		catalogs.KindAssembler, catalogs.KindLab, catalogs.KindRouter,
	} {
		if !l.IsUnlocked(k) {
			t.Fatalf("%s should start unlocked", k)
		}
	}
	if l.IsUnlocked(catalogs.KindSplitter) || l.IsUnlocked(catalogs.KindGenerator) {
		t.Fatalf("research-gated buildings start locked")
	}
}

func TestResearchThresholds(t *testing.T) {
	cats := defaults(t)
	l := New(cats)
	if got := l.RecordStored(cats, catalogs.ItemPlate, 5); got != nil {
		t.Fatalf("plates carry no research, unlocked %v", got)
	}
	got := l.RecordStored(cats, catalogs.ItemScience, 10)
	if len(got) != 1 || got[0] != catalogs.KindSplitter {
		t.Fatalf("10 research unlocked %v want [SPLITTER]", got)
	}
	got = l.RecordStored(cats, catalogs.ItemRedScience, 4) // +12 = 22
	if len(got) != 1 || got[0] != catalogs.KindMerger {
		t.Fatalf("22 research unlocked %v want [MERGER]", got)
	}
	got = l.GrantResearch(cats, 128) // 150
	want := map[catalogs.BuildingKind]bool{
		catalogs.KindFastConveyor: true, catalogs.KindUndergroundEntry: true, catalogs.KindUndergroundExit: true,
		catalogs.KindAdvancedMiner: true, catalogs.KindAssemblerMk2: true, catalogs.KindChemicalPlant: true,
		catalogs.KindGenerator: true, catalogs.KindCoalGenerator: true,
	}
	if len(got) != len(want) {
		t.Fatalf("unlocked %v", got)
	}
	for _, k := range got {
		if !want[k] {
			t.Fatalf("unexpected unlock %s", k)
		}
	}
	if l.Research != 150 || l.Stored[catalogs.ItemScience] != 10 {
		t.Fatalf("research=%d stored=%v", l.Research, l.Stored)
	}
}

func TestAchievements_OneShot(t *testing.T) {
	cats := defaults(t)
	l := New(cats)
	l.RecordStored(cats, catalogs.ItemPlate, 1)
	got := l.CheckAchievements(cats, Facts{})
	if len(got) != 1 || got[0].ID != "FIRST_PLATE" {
		t.Fatalf("got %v want FIRST_PLATE", got)
	}
	if again := l.CheckAchievements(cats, Facts{}); len(again) != 0 {
		t.Fatalf("achievement fired twice: %v", again)
	}

	l.RecordStored(cats, catalogs.ItemGear, 1)
	l.RecordStored(cats, catalogs.ItemScience, 1)
	l.RecordStored(cats, catalogs.ItemCopperPlate, 1)
	got = l.CheckAchievements(cats, Facts{Buildings: map[catalogs.BuildingKind]int{
		catalogs.KindMiner: 7, catalogs.KindAdvancedMiner: 3,
	}})
	ids := map[string]bool{}
	for _, a := range got {
		ids[a.ID] = true
	}
	if !ids["DIVERSIFIED"] || !ids["INDUSTRIAL"] || len(ids) != 2 {
		t.Fatalf("got %v want DIVERSIFIED and INDUSTRIAL", ids)
	}
	if ids := l.AchievedIDs(); len(ids) != 3 || ids[0] != "DIVERSIFIED" {
		t.Fatalf("AchievedIDs=%v", ids)
	}
}

func TestClone_IsDeep(t *testing.T) {
	cats := defaults(t)
	l := New(cats)
	c := l.Clone()
	c.Unlocked[catalogs.KindSplitter] = true
	c.Stored[catalogs.ItemPlate] = 3
	if l.IsUnlocked(catalogs.KindSplitter) || l.Stored[catalogs.ItemPlate] != 0 {
		t.Fatalf("clone aliases original")
	}
}
