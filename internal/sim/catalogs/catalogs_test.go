package catalogs

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func mustDefault(t *testing.T) *Catalogs {
	t.Helper()
	c, err := Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	return c
}

func TestDefault_LoadsEveryFile(t *testing.T) {
	c := mustDefault(t)
	if len(c.Items.Defs) != 18 {
		t.Fatalf("items=%d want 18", len(c.Items.Defs))
	}
	if len(c.Buildings.Defs) != 17 {
		t.Fatalf("buildings=%d want 17", len(c.Buildings.Defs))
	}
	if len(c.Achievements.Order) != 6 {
		t.Fatalf("achievements=%d want 6", len(c.Achievements.Order))
	}
	for _, d := range []string{c.Items.DefsDigest, c.Items.PaletteDigest, c.Buildings.Digest, c.Recipes.Digest, c.Achievements.Digest} {
		if len(d) != 64 {
			t.Fatalf("digest %q is not sha256 hex", d)
		}
	}
}

func TestDefault_BuildingStats(t *testing.T) {
	c := mustDefault(t)
	cases := []struct {
		kind  BuildingKind
		class Class
		size  int
		draw  float64
	}{
		{KindConveyor, ClassBelt, 1, 0},
		{KindMiner, ClassMiner, 2, 2},
		{KindAdvancedMiner, ClassMiner, 3, 2},
		{KindSmelter, ClassProcessor, 2, 3},
		{KindAssembler, ClassProcessor, 3, 3},
		{KindSplitter, ClassSplitter, 1, 1},
		{KindMerger, ClassMerger, 1, 1},
		{KindGenerator, ClassGenerator, 2, 0},
	}
	for _, tc := range cases {
		d, ok := c.Building(tc.kind)
		if !ok {
			t.Fatalf("missing %s", tc.kind)
		}
		if d.Class != tc.class || d.Size != tc.size || d.PowerDraw != tc.draw {
			t.Fatalf("%s: got class=%s size=%d draw=%v", tc.kind, d.Class, d.Size, d.PowerDraw)
		}
	}
	if d, _ := c.Building(KindConveyor); d.Speed != 1.2 {
		t.Fatalf("conveyor speed=%v", d.Speed)
	}
	if d, _ := c.Building(KindFastConveyor); d.Speed != 2.2 {
		t.Fatalf("fast conveyor speed=%v", d.Speed)
	}
	if d, _ := c.Building(KindLab); d.InputCapacity != 10 || d.OutputCapacity != 10 {
		t.Fatalf("lab capacities=%d/%d", d.InputCapacity, d.OutputCapacity)
	}
	if c.Size(KindNone) != 1 || c.ClassOf(KindNone) != "" {
		t.Fatalf("empty kind should be 1x1 without class")
	}
}

func TestMinedItem(t *testing.T) {
	c := mustDefault(t)
	want := map[OreKind]ItemKind{
		OreIron:     ItemOre,
		OreCopper:   ItemCopperOre,
		OreCoal:     ItemCoal,
		OreGold:     ItemGoldOre,
		OreTitanium: ItemTitaniumOre,
		OreUranium:  ItemUraniumOre,
	}
	for ore, item := range want {
		got, ok := c.MinedItem(ore)
		if !ok || got != item {
			t.Fatalf("MinedItem(%s)=%s,%v want %s", ore, got, ok, item)
		}
	}
	if _, ok := c.MinedItem(OreNone); ok {
		t.Fatalf("no ore should not mine")
	}
}

func TestResolve(t *testing.T) {
	c := mustDefault(t)
	cases := []struct {
		station BuildingKind
		item    ItemKind
		want    string
		ok      bool
	}{
		{KindSmelter, ItemOre, "SMELT_IRON", true},
		{KindSmelter, ItemCopperOre, "SMELT_COPPER", true},
		{KindSmelter, ItemCoal, "SMELT_COPPER", true},
		{KindSmelter, ItemGoldOre, "SMELT_GOLD", true},
		{KindSmelter, ItemUraniumOre, "SMELT_URANIUM", true},
		{KindSmelter, ItemGear, "", false},
		{KindAssembler, ItemPlate, "ASSEMBLE_GEAR", true},
		{KindAssembler, ItemCopperPlate, "ASSEMBLE_WIRE", true},
		{KindAssembler, ItemScience, "ASSEMBLE_GEAR", true},
		{KindAssemblerMk2, ItemPlate, "ASSEMBLE_CIRCUIT", true},
		{KindLab, ItemGear, "RESEARCH_SCIENCE", true},
		{KindLab, ItemCopperPlate, "RESEARCH_RED_SCIENCE", true},
		{KindChemicalPlant, ItemCoal, "CHEM_STEEL", true},
		{KindChemicalPlant, ItemCopperPlate, "CHEM_WIRE", true},
		{KindStorage, ItemPlate, "", false},
	}
	for _, tc := range cases {
		r, ok := c.Resolve(tc.station, tc.item)
		if ok != tc.ok || r.RecipeID != tc.want {
			t.Fatalf("Resolve(%s,%s)=%q,%v want %q,%v", tc.station, tc.item, r.RecipeID, ok, tc.want, tc.ok)
		}
	}
}

func TestRecipesByStation_KeepCatalogOrder(t *testing.T) {
	c := mustDefault(t)
	var ids []string
	for _, r := range c.Recipes.ByStation[KindSmelter] {
		ids = append(ids, r.RecipeID)
	}
	got := strings.Join(ids, ",")
	want := "SMELT_IRON,SMELT_COPPER,SMELT_GOLD,SMELT_TITANIUM,SMELT_URANIUM"
	if got != want {
		t.Fatalf("smelter order=%s want %s", got, want)
	}
}

func TestLoad_OverridesSingleFile(t *testing.T) {
	dir := t.TempDir()
	items := `[{"id":"ORE","kind":"ORE","mined_from":"IRON"}]`
	if err := os.WriteFile(filepath.Join(dir, "items.json"), []byte(items), 0o644); err != nil {
		t.Fatal(err)
	}
	// The remaining default files reference items missing from the override.
	if _, err := Load(dir); err == nil || !strings.Contains(err.Error(), "unknown item") {
		t.Fatalf("expected cross-check failure, got %v", err)
	}

	if err := os.Remove(filepath.Join(dir, "items.json")); err != nil {
		t.Fatal(err)
	}
	c, err := Load(dir)
	if err != nil {
		t.Fatalf("Load with no overrides: %v", err)
	}
	def := mustDefault(t)
	if c.Recipes.Digest != def.Recipes.Digest {
		t.Fatalf("fallback digest mismatch")
	}
}

func TestLoad_SchemaRejectsBadFile(t *testing.T) {
	dir := t.TempDir()
	bad := `[{"id":"CONVEYOR","class":"TELEPORTER","size":1,"cost":[]}]`
	if err := os.WriteFile(filepath.Join(dir, "buildings.json"), []byte(bad), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Load(dir)
	if err == nil || !strings.HasPrefix(err.Error(), "buildings.json") {
		t.Fatalf("expected buildings.json schema error, got %v", err)
	}
}

func TestValidateRaw_NumbersAndSyntax(t *testing.T) {
	ok := `[{"recipe_id":"R","station":"SMELTER","inputs":[{"item":"ORE","count":2}],"outputs":[{"item":"PLATE","count":1}],"craft_seconds":1.5}]`
	if err := validateRaw("recipes.json", []byte(ok)); err != nil {
		t.Fatalf("valid recipes rejected: %v", err)
	}
	cases := map[string]string{
		"fractional count": `[{"recipe_id":"R","station":"SMELTER","inputs":[{"item":"ORE","count":1.5}],"outputs":[{"item":"PLATE","count":1}],"craft_seconds":1}]`,
		"zero burn cap":    `[{"recipe_id":"R","station":"SMELTER","inputs":[{"item":"ORE","count":1}],"outputs":[{"item":"PLATE","count":1}],"craft_seconds":1,"max_burn_seconds":0}]`,
		"truncated":        `[{"recipe_id":`,
	}
	for name, raw := range cases {
		err := validateRaw("recipes.json", []byte(raw))
		if err == nil || !strings.HasPrefix(err.Error(), "recipes.json") {
			t.Fatalf("%s: got %v", name, err)
		}
	}
}

func TestRecipeBurnCap(t *testing.T) {
	c := mustDefault(t)
	if got := c.Recipes.ByID["CHEM_STEEL"].BurnCap(); got != 60 {
		t.Fatalf("CHEM_STEEL cap=%v", got)
	}
	if got := (RecipeDef{}).BurnCap(); got != DefaultMaxBurnSeconds {
		t.Fatalf("default cap=%v", got)
	}
}

func TestCrossCheck_UnlockIsDefaultOrResearch(t *testing.T) {
	c := mustDefault(t)
	r := c.Buildings.Defs[KindRouter]
	if !r.UnlockedByDefault || r.UnlockResearch != 0 {
		t.Fatalf("router unlock=%v research=%d", r.UnlockedByDefault, r.UnlockResearch)
	}
	r.UnlockResearch = 25
	c.Buildings.Defs[KindRouter] = r
	if err := c.crossCheck(); err == nil || !strings.Contains(err.Error(), "ROUTER") {
		t.Fatalf("expected ROUTER unlock conflict, got %v", err)
	}
}
