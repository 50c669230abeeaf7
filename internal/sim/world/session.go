package world

import (
	"fmt"
	"sort"

	"github.com/loguhan/FactoryGame/internal/protocol"
	"github.com/loguhan/FactoryGame/internal/sim/catalogs"
	"github.com/loguhan/FactoryGame/internal/sim/world/logic/geom"
)

func (w *World) joinSession(req JoinRequest) JoinResponse {
	role := req.Role
	if role != protocol.RoleObserver {
		role = protocol.RolePlayer
	}
	// Out may be nil for replayed or API-only sessions; sends to it are dropped.
	w.observers[req.SessionID] = &observer{id: req.SessionID, name: req.Name, role: role, out: req.Out}
	w.audit("JOIN", geom.Pos{}, "", "", map[string]any{"session": req.SessionID, "name": req.Name, "role": role})
	return JoinResponse{
		Welcome: protocol.WelcomeMsg{
			Type:            protocol.TypeWelcome,
			ProtocolVersion: protocol.Version,
			SelectedVersion: protocol.Version,
			SessionID:       req.SessionID,
			WorldID:         w.cfg.ID,
			Role:            role,
			WorldParams: protocol.WorldParams{
				TickRateHz:      w.tun.TickRateHz,
				Width:           w.tun.MapWidth,
				Height:          w.tun.MapHeight,
				RegionSize:      w.tun.RegionSize,
				Seed:            w.tun.Seed,
				StateEveryTicks: w.tun.StateEveryTicks,
			},
			Catalogs: w.catalogDigests(),
		},
		Catalogs: w.catalogMessages(),
	}
}

func (w *World) catalogDigests() protocol.CatalogDigests {
	c := w.cats
	return protocol.CatalogDigests{
		ItemPalette:        protocol.DigestRef{Digest: c.Items.PaletteDigest, Count: len(c.Items.Palette)},
		ItemsDigest:        c.Items.DefsDigest,
		BuildingsDigest:    c.Buildings.Digest,
		RecipesDigest:      c.Recipes.Digest,
		AchievementsDigest: c.Achievements.Digest,
	}
}

func (w *World) catalogMessages() []protocol.CatalogMsg {
	c := w.cats
	items := make([]catalogs.ItemDef, 0, len(c.Items.Order))
	for _, k := range c.Items.Order {
		items = append(items, c.Items.Defs[k])
	}
	buildings := make([]catalogs.BuildingDef, 0, len(c.Buildings.Order))
	for _, k := range c.Buildings.Order {
		buildings = append(buildings, c.Buildings.Defs[k])
	}
	recipes := make([]catalogs.RecipeDef, 0, len(c.Recipes.Order))
	for _, id := range c.Recipes.Order {
		recipes = append(recipes, c.Recipes.ByID[id])
	}
	msg := func(name, digest string, data any) protocol.CatalogMsg {
		return protocol.CatalogMsg{
			Type:            protocol.TypeCatalog,
			ProtocolVersion: protocol.Version,
			Name:            name,
			Digest:          digest,
			Part:            1,
			TotalParts:      1,
			Data:            data,
		}
	}
	return []protocol.CatalogMsg{
		msg("items", c.Items.DefsDigest, items),
		msg("buildings", c.Buildings.Digest, buildings),
		msg("recipes", c.Recipes.Digest, recipes),
		msg("achievements", c.Achievements.Digest, c.Achievements.Order),
	}
}

// applyCommand runs one client command against the world.
func (w *World) applyCommand(sessionID string, cmd protocol.CmdMsg) error {
	if o := w.observers[sessionID]; o != nil && o.role == protocol.RoleObserver {
		return ErrReadOnly
	}
	if cmd.ProtocolVersion != "" && cmd.ProtocolVersion != protocol.Version {
		return fmt.Errorf("%w: protocol_version %q", ErrBadCommand, cmd.ProtocolVersion)
	}
	pos := geom.Pos{X: cmd.X, Y: cmd.Y}
	switch cmd.Op {
	case protocol.OpPlace:
		dir, err := geom.ParseDirection(cmd.Dir)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrBadCommand, err)
		}
		return w.PlaceBuilding(pos, catalogs.BuildingKind(cmd.Kind), dir)
	case protocol.OpRemove:
		if !w.RemoveBuilding(pos) {
			return fmt.Errorf("remove at %s: %w", pos, ErrNotFound)
		}
	case protocol.OpRotate:
		if !w.Rotate(pos) {
			return fmt.Errorf("rotate at %s: %w", pos, ErrNotFound)
		}
	case protocol.OpUnlockRegion:
		return w.UnlockRegion(cmd.RegionID)
	default:
		return fmt.Errorf("%w: op %q", ErrBadCommand, cmd.Op)
	}
	return nil
}

func sortedSessionIDs(m map[string]*observer) []string {
	out := make([]string, 0, len(m))
	for id := range m {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// buildState assembles a STATE frame from the current tick.
func (w *World) buildState() protocol.StateMsg {
	st := w.Stats()
	msg := protocol.StateMsg{
		Type:            protocol.TypeState,
		ProtocolVersion: protocol.Version,
		WorldID:         w.cfg.ID,
		Tick:            w.tick.Load(),
		Clock:           w.clock,
		Power:           protocol.PowerObs{Produced: w.power.Produced, Consumed: w.power.Consumed, Ratio: w.power.Ratio},
		Inventory:       map[string]int{},
		Stats: protocol.StatsObs{
			Research:         st.Research,
			Stored:           map[string]int{},
			PlatesPerMinute:  st.PlatesPerMinute,
			SciencePerMinute: st.SciencePerMinute,
			Achieved:         st.Achieved,
		},
		Buildings: make([]protocol.BuildingObs, 0, len(w.buildings)),
		Events:    append([]protocol.Event(nil), w.events...),
	}
	for k, n := range w.inventory {
		msg.Inventory[string(k)] = n
	}
	for k, n := range st.Stored {
		msg.Stats.Stored[string(k)] = n
	}
	for _, k := range st.Unlocked {
		msg.Stats.Unlocked = append(msg.Stats.Unlocked, string(k))
	}
	for _, p := range sortedKeys(w.buildings) {
		t := w.tileAt(p)
		b := protocol.BuildingObs{X: p.X, Y: p.Y, Kind: string(t.Kind)}
		if t.Dir != geom.None {
			b.Dir = t.Dir.String()
		}
		if s := w.processors[p]; s != nil {
			b.Progress = s.Progress(w.cats)
		}
		msg.Buildings = append(msg.Buildings, b)
	}
	for _, p := range sortedKeys(w.belts) {
		tr := w.belts[p]
		if tr.Len() == 0 {
			continue
		}
		bo := protocol.BeltObs{X: p.X, Y: p.Y, Items: make([]protocol.ItemObs, 0, tr.Len())}
		for _, it := range tr.Items {
			bo.Items = append(bo.Items, protocol.ItemObs{Item: string(it.Kind), X: it.X, Y: it.Y})
		}
		msg.Belts = append(msg.Belts, bo)
	}
	for _, it := range w.loose {
		lo := protocol.LooseObs{Item: string(it.Kind), X: it.Pos.X, Y: it.Pos.Y, Progress: it.Progress}
		if it.Dir != geom.None {
			lo.Dir = it.Dir.String()
		}
		msg.Loose = append(msg.Loose, lo)
	}
	return msg
}
