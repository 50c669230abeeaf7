// Package production is the processor state machine: lazy recipe
// resolution, per-kind input buffering, fuel, timed crafts scaled by the
// power ratio, and an output buffer drained by the world's dump pass.
package production

import (
	"sort"

	"github.com/loguhan/FactoryGame/internal/sim/catalogs"
)

type State struct {
	Kind catalogs.BuildingKind `json:"kind"`
	// RecipeID is fixed on first contact. Dynamic stations may craft any of
	// their recipes; ActiveID names the one in progress.
	RecipeID string `json:"recipe_id,omitempty"`
	ActiveID string `json:"active_id,omitempty"`
	Dynamic  bool   `json:"dynamic,omitempty"`

	Input  map[catalogs.ItemKind]int `json:"input"`
	Output []catalogs.ItemKind       `json:"output"`

	CraftTimer   float64 `json:"craft_timer"`
	Crafting     bool    `json:"crafting"`
	BurnTime     float64 `json:"burn_time"`
	RequiresFuel bool    `json:"requires_fuel"`

	InputCapacity  int `json:"input_capacity"`
	OutputCapacity int `json:"output_capacity"`
	DumpCursor     int `json:"dump_cursor"`
}

func New(def catalogs.BuildingDef) *State {
	s := &State{
		Kind:           def.ID,
		Dynamic:        def.DynamicRecipe,
		Input:          map[catalogs.ItemKind]int{},
		InputCapacity:  def.InputCapacity,
		OutputCapacity: def.OutputCapacity,
	}
	if s.InputCapacity <= 0 {
		s.InputCapacity = 10
	}
	if s.OutputCapacity <= 0 {
		s.OutputCapacity = 10
	}
	return s
}

// Recipe returns the resolved recipe.
func (s *State) Recipe(cats *catalogs.Catalogs) (catalogs.RecipeDef, bool) {
	if s.RecipeID == "" {
		return catalogs.RecipeDef{}, false
	}
	r, ok := cats.Recipes.ByID[s.RecipeID]
	return r, ok
}

func (s *State) active(cats *catalogs.Catalogs) (catalogs.RecipeDef, bool) {
	id := s.ActiveID
	if id == "" {
		id = s.RecipeID
	}
	r, ok := cats.Recipes.ByID[id]
	return r, ok
}

// Offer hands one item to the processor. The first item ever offered
// resolves the recipe. Fuel for the resolved recipe extends BurnTime while
// BurnTime is below the recipe's burn cap; otherwise the item is buffered when the recipe uses it and its buffer is
// below capacity.
func (s *State) Offer(cats *catalogs.Catalogs, item catalogs.ItemKind) bool {
	if s.RecipeID == "" {
		r, ok := cats.Resolve(s.Kind, item)
		if !ok {
			return false
		}
		s.RecipeID = r.RecipeID
		s.RequiresFuel = r.Fuel != ""
	}
	r, ok := s.Recipe(cats)
	if !ok {
		return false
	}
	if s.RequiresFuel && r.Fuel == item {
		if s.BurnTime >= r.BurnCap() {
			return false
		}
		s.BurnTime += r.FuelSeconds
		return true
	}
	if !s.accepts(cats, r, item) {
		return false
	}
	if s.Input[item] >= s.InputCapacity {
		return false
	}
	s.Input[item]++
	return true
}

func (s *State) accepts(cats *catalogs.Catalogs, r catalogs.RecipeDef, item catalogs.ItemKind) bool {
	if s.Dynamic {
		return cats.Accepts(s.Kind, item)
	}
	return r.Needs(item) > 0
}

// WouldAccept reports whether Offer(item) would succeed, without mutating.
func (s *State) WouldAccept(cats *catalogs.Catalogs, item catalogs.ItemKind) bool {
	r, ok := s.Recipe(cats)
	if !ok {
		r, ok = cats.Resolve(s.Kind, item)
		if !ok {
			return false
		}
	}
	if r.Fuel != "" && r.Fuel == item {
		return s.BurnTime < r.BurnCap()
	}
	if s.Dynamic {
		if !cats.Accepts(s.Kind, item) {
			return false
		}
	} else if r.Needs(item) <= 0 {
		return false
	}
	return s.Input[item] < s.InputCapacity
}

func (s *State) satisfied(r catalogs.RecipeDef) bool {
	for _, ic := range r.Inputs {
		if s.Input[ic.Item] < ic.Count {
			return false
		}
	}
	return true
}

// selectRecipe returns the recipe the next craft uses. Dynamic stations
// take the first station recipe, in catalog order, whose inputs are
// buffered.
func (s *State) selectRecipe(cats *catalogs.Catalogs) (catalogs.RecipeDef, bool) {
	if s.Dynamic {
		if s.RecipeID == "" {
			return catalogs.RecipeDef{}, false
		}
		for _, r := range cats.Recipes.ByStation[s.Kind] {
			if s.satisfied(r) {
				return r, true
			}
		}
		return catalogs.RecipeDef{}, false
	}
	r, ok := s.Recipe(cats)
	if !ok || !s.satisfied(r) {
		return catalogs.RecipeDef{}, false
	}
	return r, true
}

func outputCount(r catalogs.RecipeDef) int {
	n := 0
	for _, ic := range r.Outputs {
		n += ic.Count
	}
	return n
}

// Tick advances the machine by sdt power-scaled seconds and reports whether
// a craft completed.
func (s *State) Tick(cats *catalogs.Catalogs, sdt float64) bool {
	if s.RequiresFuel && s.BurnTime > 0 {
		s.BurnTime -= sdt
		if s.BurnTime < 0 {
			s.BurnTime = 0
		}
	}
	fueled := !s.RequiresFuel || s.BurnTime > 0

	if !s.Crafting && fueled {
		if r, ok := s.selectRecipe(cats); ok && len(s.Output)+outputCount(r) <= s.OutputCapacity {
			for _, ic := range r.Inputs {
				s.Input[ic.Item] -= ic.Count
				if s.Input[ic.Item] <= 0 {
					delete(s.Input, ic.Item)
				}
			}
			s.ActiveID = r.RecipeID
			s.CraftTimer = r.CraftSeconds
			s.Crafting = true
		}
	}

	if !s.Crafting || !fueled {
		return false
	}
	s.CraftTimer -= sdt
	if s.CraftTimer > 0 {
		return false
	}
	r, ok := s.active(cats)
	s.Crafting = false
	s.CraftTimer = 0
	if !ok {
		return false
	}
	for _, ic := range r.Outputs {
		for i := 0; i < ic.Count; i++ {
			s.Output = append(s.Output, ic.Item)
		}
	}
	return true
}

// Progress is the fraction of the current craft done, 0 when idle.
func (s *State) Progress(cats *catalogs.Catalogs) float64 {
	if !s.Crafting {
		return 0
	}
	r, ok := s.active(cats)
	if !ok || r.CraftSeconds <= 0 {
		return 0
	}
	p := 1 - s.CraftTimer/r.CraftSeconds
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

// PopOutput removes the oldest finished item.
func (s *State) PopOutput() (catalogs.ItemKind, bool) {
	if len(s.Output) == 0 {
		return "", false
	}
	it := s.Output[0]
	s.Output = s.Output[1:]
	return it, true
}

// UnpopOutput returns an item taken by PopOutput to the front.
func (s *State) UnpopOutput(it catalogs.ItemKind) {
	s.Output = append([]catalogs.ItemKind{it}, s.Output...)
}

// InputKinds lists buffered kinds in sorted order.
func (s *State) InputKinds() []catalogs.ItemKind {
	out := make([]catalogs.ItemKind, 0, len(s.Input))
	for k, n := range s.Input {
		if n > 0 {
			out = append(out, k)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s *State) Clone() *State {
	c := *s
	c.Input = make(map[catalogs.ItemKind]int, len(s.Input))
	for k, v := range s.Input {
		c.Input[k] = v
	}
	c.Output = append([]catalogs.ItemKind(nil), s.Output...)
	return &c
}
