package snapshot

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func sample() SaveV1 {
	return SaveV1{
		Header:     Header{Version: Version, WorldID: "factory", Tick: 1200},
		Seed:       1337,
		Width:      64,
		Height:     64,
		RegionSize: 32,
		Clock:      20,
		Regions:    []RegionV1{{ID: 0, Unlocked: true, Terrain: []byte{1, 1, 2}, Ore: []byte{0, 1, 0}}},
		Tiles: []TileV1{
			{X: 4, Y: 5, Kind: "MINER"},
			{X: 5, Y: 5, Kind: "MINER", HasParent: true, ParentX: 4, ParentY: 5},
			{X: 6, Y: 5, Kind: "CONVEYOR", Dir: 2},
		},
		Processors:   []ProcessorV1{{X: 10, Y: 10, RecipeID: "SMELT_IRON", Input: map[string]int{"ORE": 3}, Output: []string{"PLATE"}, CraftTimer: 1.5, Crafting: true}},
		Belts:        []BeltV1{{X: 6, Y: 5, Items: []BeltItemV1{{Item: "ORE", Y: 0.25, Seed: 7}}}},
		Undergrounds: []UndergroundV1{{X: 8, Y: 5, Linked: true, LinkX: 11, LinkY: 5}},
		Inventory:    map[string]int{"PLATE": 90},
		Unlocked:     []string{"CONVEYOR", "MINER"},
		Stats:        StatsV1{Stored: map[string]int{"PLATE": 3}, Research: 4, PlateEvents: []RateEventV1{{At: 19.5, Count: 1}}},
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	p := filepath.Join(t.TempDir(), "snaps", "1200.snap.zst")
	want := sample()
	if err := WriteSnapshot(p, want); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := ReadSnapshot(p)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, want)
	}
	h, err := ReadHeader(p)
	if err != nil || h.Tick != 1200 || h.WorldID != "factory" {
		t.Fatalf("header=%+v err=%v", h, err)
	}
	if _, err := os.Stat(p + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file left behind")
	}
}

func TestReadMissing(t *testing.T) {
	_, err := ReadSnapshot(filepath.Join(t.TempDir(), "nope.snap.zst"))
	if !errors.Is(err, ErrNoSave) {
		t.Fatalf("err=%v want ErrNoSave", err)
	}
}

func TestDecodeRejects(t *testing.T) {
	if _, err := Unmarshal([]byte("not zstd at all")); !errors.Is(err, ErrInvalidSave) {
		t.Fatalf("garbage: err=%v want ErrInvalidSave", err)
	}

	s := sample()
	s.Header.Version = 99
	b, err := Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if _, err := Unmarshal(b); !errors.Is(err, ErrInvalidSave) {
		t.Fatalf("version: err=%v want ErrInvalidSave", err)
	}

	good, _ := Marshal(sample())
	if _, err := Unmarshal(good[:len(good)/2]); !errors.Is(err, ErrInvalidSave) {
		t.Fatalf("truncated: err=%v want ErrInvalidSave", err)
	}
}
