package catalogs

import (
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
)

//go:embed defaults/*.json schemas/*.json
var embedded embed.FS

type Catalogs struct {
	Items        ItemCatalog
	Buildings    BuildingCatalog
	Recipes      RecipeCatalog
	Achievements AchievementCatalog
}

type ItemCatalog struct {
	Order         []ItemKind // file order
	Palette       []ItemKind // sorted ids
	Defs          map[ItemKind]ItemDef
	ByOre         map[OreKind]ItemKind
	PaletteDigest string
	DefsDigest    string
}

type ItemDef struct {
	ID             ItemKind `json:"id"`
	Kind           string   `json:"kind"` // "ORE","FUEL","MATERIAL","COMPONENT","SCIENCE"
	MinedFrom      OreKind  `json:"mined_from,omitempty"`
	ResearchPoints int      `json:"research_points,omitempty"`
}

type BuildingCatalog struct {
	Order  []BuildingKind
	Defs   map[BuildingKind]BuildingDef
	Digest string
}

type BuildingDef struct {
	ID                BuildingKind `json:"id"`
	Class             Class        `json:"class"`
	Size              int          `json:"size"`
	UsesDirection     bool         `json:"uses_direction,omitempty"`
	Speed             float64      `json:"speed,omitempty"`
	PowerDraw         float64      `json:"power_draw,omitempty"`
	PowerOutput       float64      `json:"power_output,omitempty"`
	Cost              []ItemCount  `json:"cost"`
	UnlockResearch    int          `json:"unlock_research,omitempty"`
	UnlockedByDefault bool         `json:"unlocked_by_default,omitempty"`
	DynamicRecipe     bool         `json:"dynamic_recipe,omitempty"`
	InputCapacity     int          `json:"input_capacity,omitempty"`
	OutputCapacity    int          `json:"output_capacity,omitempty"`
	FuelItem          ItemKind     `json:"fuel_item,omitempty"`
	FuelSeconds       float64      `json:"fuel_seconds,omitempty"`
	RefuelBelow       float64      `json:"refuel_below,omitempty"`
}

type RecipeCatalog struct {
	Order     []string
	ByID      map[string]RecipeDef
	ByStation map[BuildingKind][]RecipeDef // catalog order per station
	Digest    string
}

type RecipeDef struct {
	RecipeID     string       `json:"recipe_id"`
	Station      BuildingKind `json:"station"`
	Inputs       []ItemCount  `json:"inputs"`
	Outputs      []ItemCount  `json:"outputs"`
	CraftSeconds float64      `json:"craft_seconds"`
	Fuel         ItemKind     `json:"fuel,omitempty"`
	FuelSeconds  float64      `json:"fuel_seconds,omitempty"`
	Default      bool         `json:"default,omitempty"`

	// MaxBurnSeconds stops fuel intake once stored burn time reaches it;
	// zero means DefaultMaxBurnSeconds.
	MaxBurnSeconds float64 `json:"max_burn_seconds,omitempty"`
}

const DefaultMaxBurnSeconds = 60.0

// BurnCap is the burn time above which the recipe refuses more fuel.
func (r RecipeDef) BurnCap() float64 {
	if r.MaxBurnSeconds > 0 {
		return r.MaxBurnSeconds
	}
	return DefaultMaxBurnSeconds
}

type ItemCount struct {
	Item  ItemKind `json:"item"`
	Count int      `json:"count"`
}

type AchievementCatalog struct {
	Order  []AchievementDef
	ByID   map[string]AchievementDef
	Digest string
}

type AchievementDef struct {
	ID        string               `json:"id"`
	Condition AchievementCondition `json:"condition"`
	Reward    []ItemCount          `json:"reward"`
}

// Condition types.
const (
	CondStored    = "STORED"     // stored total of every listed item >= Count (first item when one)
	CondResearch  = "RESEARCH"   // research points >= Count
	CondBuildings = "BUILDINGS"  // placed instances of listed kinds >= Count
	CondStoredAll = "STORED_ALL" // every listed item stored at least Count
)

type AchievementCondition struct {
	Type      string         `json:"type"`
	Items     []ItemKind     `json:"items,omitempty"`
	Buildings []BuildingKind `json:"buildings,omitempty"`
	Count     int            `json:"count"`
}

var catalogFiles = []string{"items.json", "buildings.json", "recipes.json", "achievements.json"}

// Default returns the catalogs compiled into the binary.
func Default() (*Catalogs, error) {
	sub, err := fs.Sub(embedded, "defaults")
	if err != nil {
		return nil, err
	}
	return LoadFS(sub)
}

// Load reads catalogs from configDir. Files missing from the directory fall
// back to the embedded defaults so an override can replace a single file.
func Load(configDir string) (*Catalogs, error) {
	return LoadFS(overlayFS{primary: os.DirFS(configDir)})
}

// LoadFS reads, validates and cross-checks the catalog files in fsys.
func LoadFS(fsys fs.FS) (*Catalogs, error) {
	raws := make(map[string][]byte, len(catalogFiles))
	for _, name := range catalogFiles {
		raw, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		if err := validateRaw(name, raw); err != nil {
			return nil, err
		}
		raws[name] = raw
	}

	var c Catalogs
	if err := loadItems(raws["items.json"], &c.Items); err != nil {
		return nil, err
	}
	if err := loadBuildings(raws["buildings.json"], &c.Buildings); err != nil {
		return nil, err
	}
	if err := loadRecipes(raws["recipes.json"], &c.Recipes); err != nil {
		return nil, err
	}
	if err := loadAchievements(raws["achievements.json"], &c.Achievements); err != nil {
		return nil, err
	}
	if err := c.crossCheck(); err != nil {
		return nil, err
	}
	return &c, nil
}

type overlayFS struct {
	primary fs.FS
}

func (o overlayFS) Open(name string) (fs.File, error) {
	f, err := o.primary.Open(name)
	if errors.Is(err, fs.ErrNotExist) {
		return embedded.Open("defaults/" + name)
	}
	return f, err
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func loadItems(raw []byte, out *ItemCatalog) error {
	out.DefsDigest = sha256Hex(raw)

	var defs []ItemDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("items.json: %w", err)
	}
	out.Defs = map[ItemKind]ItemDef{}
	out.ByOre = map[OreKind]ItemKind{}
	for _, d := range defs {
		if d.ID == "" {
			return fmt.Errorf("items.json: empty id")
		}
		if _, dup := out.Defs[d.ID]; dup {
			return fmt.Errorf("items.json: duplicate id %s", d.ID)
		}
		out.Defs[d.ID] = d
		out.Order = append(out.Order, d.ID)
		if d.MinedFrom != OreNone {
			if prev, ok := out.ByOre[d.MinedFrom]; ok {
				return fmt.Errorf("items.json: ore %s mined as both %s and %s", d.MinedFrom, prev, d.ID)
			}
			out.ByOre[d.MinedFrom] = d.ID
		}
	}

	ids := append([]ItemKind(nil), out.Order...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out.Palette = ids
	palJSON, _ := json.Marshal(ids)
	out.PaletteDigest = sha256Hex(palJSON)
	return nil
}

func loadBuildings(raw []byte, out *BuildingCatalog) error {
	out.Digest = sha256Hex(raw)

	var defs []BuildingDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("buildings.json: %w", err)
	}
	out.Defs = map[BuildingKind]BuildingDef{}
	for _, d := range defs {
		if d.ID == KindNone {
			return fmt.Errorf("buildings.json: empty id")
		}
		if _, dup := out.Defs[d.ID]; dup {
			return fmt.Errorf("buildings.json: duplicate id %s", d.ID)
		}
		if _, ok := knownClasses[d.Class]; !ok {
			return fmt.Errorf("buildings.json: %s: unknown class %q", d.ID, d.Class)
		}
		if d.Size <= 0 {
			d.Size = 1
		}
		if d.Class == ClassProcessor {
			if d.InputCapacity <= 0 {
				d.InputCapacity = 10
			}
			if d.OutputCapacity <= 0 {
				d.OutputCapacity = 10
			}
		}
		out.Defs[d.ID] = d
		out.Order = append(out.Order, d.ID)
	}
	return nil
}

func loadRecipes(raw []byte, out *RecipeCatalog) error {
	out.Digest = sha256Hex(raw)

	var defs []RecipeDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("recipes.json: %w", err)
	}
	out.ByID = map[string]RecipeDef{}
	out.ByStation = map[BuildingKind][]RecipeDef{}
	defaults := map[BuildingKind]string{}
	for _, r := range defs {
		if r.RecipeID == "" {
			return fmt.Errorf("recipes.json: empty recipe_id")
		}
		if _, dup := out.ByID[r.RecipeID]; dup {
			return fmt.Errorf("recipes.json: duplicate recipe_id %s", r.RecipeID)
		}
		if r.CraftSeconds <= 0 {
			return fmt.Errorf("recipes.json: %s: craft_seconds must be positive", r.RecipeID)
		}
		if r.Default {
			if prev, ok := defaults[r.Station]; ok {
				return fmt.Errorf("recipes.json: station %s has two defaults (%s, %s)", r.Station, prev, r.RecipeID)
			}
			defaults[r.Station] = r.RecipeID
		}
		out.ByID[r.RecipeID] = r
		out.Order = append(out.Order, r.RecipeID)
		out.ByStation[r.Station] = append(out.ByStation[r.Station], r)
	}
	return nil
}

func loadAchievements(raw []byte, out *AchievementCatalog) error {
	out.Digest = sha256Hex(raw)

	var defs []AchievementDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("achievements.json: %w", err)
	}
	out.ByID = map[string]AchievementDef{}
	for _, a := range defs {
		if a.ID == "" {
			return fmt.Errorf("achievements.json: empty id")
		}
		if _, dup := out.ByID[a.ID]; dup {
			return fmt.Errorf("achievements.json: duplicate id %s", a.ID)
		}
		out.ByID[a.ID] = a
		out.Order = append(out.Order, a)
	}
	return nil
}

// crossCheck verifies that every id referenced across files exists.
func (c *Catalogs) crossCheck() error {
	item := func(where string, k ItemKind) error {
		if _, ok := c.Items.Defs[k]; !ok {
			return fmt.Errorf("%s: unknown item %s", where, k)
		}
		return nil
	}
	for _, id := range c.Buildings.Order {
		b := c.Buildings.Defs[id]
		if b.UnlockedByDefault && b.UnlockResearch > 0 {
			return fmt.Errorf("buildings.json: %s is unlocked by default and research-gated", id)
		}
		for _, ic := range b.Cost {
			if err := item("buildings.json: "+string(id)+" cost", ic.Item); err != nil {
				return err
			}
		}
		if b.FuelItem != "" {
			if err := item("buildings.json: "+string(id)+" fuel_item", b.FuelItem); err != nil {
				return err
			}
		}
	}
	for _, id := range c.Recipes.Order {
		r := c.Recipes.ByID[id]
		st, ok := c.Buildings.Defs[r.Station]
		if !ok || st.Class != ClassProcessor {
			return fmt.Errorf("recipes.json: %s: station %s is not a processor", id, r.Station)
		}
		for _, list := range [][]ItemCount{r.Inputs, r.Outputs} {
			for _, ic := range list {
				if err := item("recipes.json: "+id, ic.Item); err != nil {
					return err
				}
			}
		}
		if r.Fuel != "" {
			if err := item("recipes.json: "+id+" fuel", r.Fuel); err != nil {
				return err
			}
		}
	}
	for _, a := range c.Achievements.Order {
		for _, k := range a.Condition.Items {
			if err := item("achievements.json: "+a.ID, k); err != nil {
				return err
			}
		}
		for _, k := range a.Condition.Buildings {
			if _, ok := c.Buildings.Defs[k]; !ok {
				return fmt.Errorf("achievements.json: %s: unknown building %s", a.ID, k)
			}
		}
		for _, ic := range a.Reward {
			if err := item("achievements.json: "+a.ID+" reward", ic.Item); err != nil {
				return err
			}
		}
	}
	return nil
}

// Building returns the definition of kind.
func (c *Catalogs) Building(kind BuildingKind) (BuildingDef, bool) {
	d, ok := c.Buildings.Defs[kind]
	return d, ok
}

// ClassOf returns the class of kind, or "" for empty or unknown kinds.
func (c *Catalogs) ClassOf(kind BuildingKind) Class {
	return c.Buildings.Defs[kind].Class
}

// Size returns the footprint edge length of kind (1 for unknown kinds).
func (c *Catalogs) Size(kind BuildingKind) int {
	if d, ok := c.Buildings.Defs[kind]; ok && d.Size > 0 {
		return d.Size
	}
	return 1
}

// MinedItem returns the item a miner extracts from ore.
func (c *Catalogs) MinedItem(ore OreKind) (ItemKind, bool) {
	k, ok := c.Items.ByOre[ore]
	return k, ok
}

// ResearchPoints returns the research value of storing one item.
func (c *Catalogs) ResearchPoints(item ItemKind) int {
	return c.Items.Defs[item].ResearchPoints
}

// Needs returns how many of item one craft consumes.
func (r RecipeDef) Needs(item ItemKind) int {
	for _, ic := range r.Inputs {
		if ic.Item == item {
			return ic.Count
		}
	}
	return 0
}
