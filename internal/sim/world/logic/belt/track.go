// Package belt implements packed conveyor tracks: items ordered by their
// longitudinal position with fixed minimum spacing and end-of-track offload.
package belt

import (
	"github.com/loguhan/FactoryGame/internal/sim/catalogs"
	"github.com/loguhan/FactoryGame/internal/sim/world/logic/mathx"
)

const (
	// ItemSpace is the minimum longitudinal gap between two items.
	ItemSpace = 0.135
	// MinMove suppresses sub-epsilon moves that would only jitter.
	MinMove = 1.0 / (32767 - 2)

	SideAcceptMin    = 0.52
	ExitThreshold    = 0.9999
	RecenterSpeed    = 0.06
	SideLateral      = 0.9
	SideLongitudinal = 0.5

	openEnd = 100.0
)

// Item is one record on a track. X is the lateral offset in [-1,1], Y the
// longitudinal position in [0,1] (0 entrance, 1 exit).
type Item struct {
	Kind catalogs.ItemKind `json:"kind"`
	X    float64           `json:"x"`
	Y    float64           `json:"y"`
	Seed int16             `json:"seed"`
}

type Track struct {
	Items   []Item
	MinItem float64
}

func New() *Track { return &Track{MinItem: 1} }

func (t *Track) Len() int { return len(t.Items) }

// CanAccept reports whether an item may enter. Side feeds land at Y=0.5 and
// need more clearance than straight feeds landing at Y=0.
func (t *Track) CanAccept(side bool) bool {
	if side {
		return t.MinItem > SideAcceptMin
	}
	return t.MinItem > ItemSpace
}

// Add inserts an item keeping the track sorted by Y. Callers check CanAccept first.
func (t *Track) Add(kind catalogs.ItemKind, x, y float64, seed int16) {
	idx := len(t.Items)
	for i := range t.Items {
		if t.Items[i].Y > y {
			idx = i
			break
		}
	}
	t.Items = append(t.Items, Item{})
	copy(t.Items[idx+1:], t.Items[idx:])
	t.Items[idx] = Item{Kind: kind, X: x, Y: y, Seed: seed}
	if y < t.MinItem {
		t.MinItem = y
	}
}

// Offloader attempts to hand one item at the exit to the next cell.
type Offloader func(kind catalogs.ItemKind) bool

// Advance moves every item by up to speed*dt, tail first, and offers items at
// the exit to offload. It returns how many items left the track and whether an
// item is waiting at a blocked exit.
func (t *Track) Advance(speed, dt float64, offload Offloader) (offloaded int, blocked bool) {
	step := speed * dt
	t.MinItem = 1
	if len(t.Items) == 0 {
		return 0, false
	}

	var removed []bool
	for i := len(t.Items) - 1; i >= 0; i-- {
		it := t.Items[i]
		next := openEnd
		if i < len(t.Items)-1 {
			next = t.Items[i+1].Y
		}
		maxMove := next - ItemSpace - it.Y
		if step < maxMove {
			maxMove = step
		}
		y := it.Y
		x := it.X
		if maxMove > MinMove {
			y += maxMove
			x = mathx.LerpDelta(x, 0, RecenterSpeed, dt)
		}
		y = mathx.Clamp(y, 0, 1)

		if y >= ExitThreshold {
			if offload != nil && offload(it.Kind) {
				if removed == nil {
					removed = make([]bool, len(t.Items))
				}
				removed[i] = true
				offloaded++
				continue
			}
			blocked = true
		}
		if y < t.MinItem {
			t.MinItem = y
		}
		t.Items[i] = Item{Kind: it.Kind, X: x, Y: y, Seed: it.Seed}
	}

	if offloaded > 0 {
		kept := t.Items[:0]
		for i, it := range t.Items {
			if !removed[i] {
				kept = append(kept, it)
			}
		}
		for i := len(kept); i < len(t.Items); i++ {
			t.Items[i] = Item{}
		}
		t.Items = kept
	}
	return offloaded, blocked
}

// Sorted reports whether items are in ascending Y order.
func (t *Track) Sorted() bool {
	for i := 1; i < len(t.Items); i++ {
		if t.Items[i].Y < t.Items[i-1].Y {
			return false
		}
	}
	return true
}

// Clone returns a deep copy.
func (t *Track) Clone() *Track {
	c := &Track{MinItem: t.MinItem, Items: make([]Item, len(t.Items))}
	copy(c.Items, t.Items)
	return c
}

// Restore rebuilds a track from persisted items, sorting and recomputing MinItem.
func Restore(items []Item) *Track {
	t := New()
	for _, it := range items {
		t.Add(it.Kind, mathx.Clamp(it.X, -1, 1), mathx.Clamp(it.Y, 0, 1), it.Seed)
	}
	return t
}
