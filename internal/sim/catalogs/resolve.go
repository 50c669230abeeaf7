package catalogs

// Resolve picks the recipe a processor of kind station adopts when item is
// the first thing it receives: the first station recipe (catalog order)
// that lists item as an input or as fuel, else the station default. With
// the default catalog a smelter first fed COAL resolves to SMELT_COPPER.
func (c *Catalogs) Resolve(station BuildingKind, item ItemKind) (RecipeDef, bool) {
	list := c.Recipes.ByStation[station]
	for _, r := range list {
		if r.Needs(item) > 0 || (r.Fuel != "" && r.Fuel == item) {
			return r, true
		}
	}
	return c.DefaultRecipe(station)
}

// DefaultRecipe returns the recipe marked default for station.
func (c *Catalogs) DefaultRecipe(station BuildingKind) (RecipeDef, bool) {
	for _, r := range c.Recipes.ByStation[station] {
		if r.Default {
			return r, true
		}
	}
	return RecipeDef{}, false
}

// Accepts reports whether a station could ever use item, either as an input
// or fuel of any of its recipes.
func (c *Catalogs) Accepts(station BuildingKind, item ItemKind) bool {
	for _, r := range c.Recipes.ByStation[station] {
		if r.Needs(item) > 0 || r.Fuel == item {
			return true
		}
	}
	return false
}
