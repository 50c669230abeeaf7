package snapshot

import (
	"bufio"
	"bytes"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

const Version = 1

var (
	// ErrNoSave reports a missing save file or slot.
	ErrNoSave = errors.New("no save")
	// ErrInvalidSave reports a save that cannot be decoded or applied.
	ErrInvalidSave = errors.New("invalid save")
)

type Header struct {
	Version int    `json:"version"`
	WorldID string `json:"world_id"`
	Tick    uint64 `json:"tick"`
}

type SaveV1 struct {
	Header Header `json:"header"`

	Seed       int64   `json:"seed"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	RegionSize int     `json:"region_size"`
	Clock      float64 `json:"clock"`

	// Digest of the item palette the save was written against.
	ItemsDigest string `json:"items_digest,omitempty"`

	Regions []RegionV1 `json:"regions"`
	Tiles   []TileV1   `json:"tiles"`

	Miners         []MinerV1         `json:"miners,omitempty"`
	Processors     []ProcessorV1     `json:"processors,omitempty"`
	Storages       []StorageV1       `json:"storages,omitempty"`
	Splitters      []CursorV1        `json:"splitters,omitempty"`
	Routers        []CursorV1        `json:"routers,omitempty"`
	CoalGenerators []CoalGeneratorV1 `json:"coal_generators,omitempty"`
	Undergrounds   []UndergroundV1   `json:"undergrounds,omitempty"`
	Belts          []BeltV1          `json:"belts,omitempty"`
	LooseItems     []LooseItemV1     `json:"loose_items,omitempty"`

	Inventory map[string]int `json:"inventory"`
	Unlocked  []string       `json:"unlocked"`
	Stats     StatsV1        `json:"stats"`
}

// RegionV1 carries the generated cells of unlocked regions. Terrain holds
// one byte per cell row-major; Ore holds 0 for none or 1+index into the ore
// list.
type RegionV1 struct {
	ID       int    `json:"id"`
	Unlocked bool   `json:"unlocked"`
	Terrain  []byte `json:"terrain,omitempty"`
	Ore      []byte `json:"ore,omitempty"`
}

// TileV1 is one occupied grid cell. Non-origin cells of multi-block
// buildings link to their origin.
type TileV1 struct {
	X         int    `json:"x"`
	Y         int    `json:"y"`
	Kind      string `json:"kind"`
	Dir       uint8  `json:"dir"`
	HasParent bool   `json:"has_parent,omitempty"`
	ParentX   int    `json:"parent_x,omitempty"`
	ParentY   int    `json:"parent_y,omitempty"`
}

type MinerV1 struct {
	X     int     `json:"x"`
	Y     int     `json:"y"`
	Timer float64 `json:"timer"`
}

type ProcessorV1 struct {
	X            int            `json:"x"`
	Y            int            `json:"y"`
	RecipeID     string         `json:"recipe_id,omitempty"`
	ActiveID     string         `json:"active_id,omitempty"`
	Input        map[string]int `json:"input,omitempty"`
	Output       []string       `json:"output,omitempty"`
	CraftTimer   float64        `json:"craft_timer"`
	Crafting     bool           `json:"crafting"`
	BurnTime     float64        `json:"burn_time"`
	RequiresFuel bool           `json:"requires_fuel"`
	DumpCursor   int            `json:"dump_cursor"`
}

type StorageV1 struct {
	X     int `json:"x"`
	Y     int `json:"y"`
	Count int `json:"count"`
}

type CursorV1 struct {
	X     int `json:"x"`
	Y     int `json:"y"`
	Index int `json:"index"`
}

type CoalGeneratorV1 struct {
	X         int     `json:"x"`
	Y         int     `json:"y"`
	FuelTimer float64 `json:"fuel_timer"`
	HasFuel   bool    `json:"has_fuel"`
}

// UndergroundV1 records an underground end and its partner, if linked.
type UndergroundV1 struct {
	X      int  `json:"x"`
	Y      int  `json:"y"`
	Linked bool `json:"linked"`
	LinkX  int  `json:"link_x,omitempty"`
	LinkY  int  `json:"link_y,omitempty"`
}

type BeltV1 struct {
	X     int          `json:"x"`
	Y     int          `json:"y"`
	Items []BeltItemV1 `json:"items"`
}

type BeltItemV1 struct {
	Item string  `json:"item"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Seed int16   `json:"seed"`
}

type LooseItemV1 struct {
	Item     string  `json:"item"`
	X        int     `json:"x"`
	Y        int     `json:"y"`
	Dir      uint8   `json:"dir"`
	Progress float64 `json:"progress"`
	Speed    float64 `json:"speed"`
}

type StatsV1 struct {
	Stored        map[string]int `json:"stored"`
	Research      int            `json:"research"`
	Achieved      []string       `json:"achieved,omitempty"`
	PlateEvents   []RateEventV1  `json:"plate_events,omitempty"`
	ScienceEvents []RateEventV1  `json:"science_events,omitempty"`
}

type RateEventV1 struct {
	At    float64 `json:"at"`
	Count int     `json:"count"`
}

// Encode writes a JSON header line followed by the gob-encoded save,
// zstd-compressed.
func Encode(w io.Writer, snap SaveV1) error {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(enc, 256*1024)

	hb, _ := json.Marshal(snap.Header)
	if _, err := bw.Write(hb); err != nil {
		enc.Close()
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		enc.Close()
		return err
	}
	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		enc.Close()
		return fmt.Errorf("gob encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

// Decode reads a save written by Encode. Any failure wraps ErrInvalidSave.
func Decode(r io.Reader) (SaveV1, error) {
	var snap SaveV1
	dec, err := zstd.NewReader(r)
	if err != nil {
		return snap, fmt.Errorf("%w: %v", ErrInvalidSave, err)
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)
	hl, err := br.ReadBytes('\n')
	if err != nil {
		return snap, fmt.Errorf("%w: header: %v", ErrInvalidSave, err)
	}
	var h Header
	if err := json.Unmarshal(hl, &h); err != nil {
		return snap, fmt.Errorf("%w: header: %v", ErrInvalidSave, err)
	}
	if h.Version != Version {
		return snap, fmt.Errorf("%w: unsupported version %d", ErrInvalidSave, h.Version)
	}
	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("%w: gob decode: %v", ErrInvalidSave, err)
	}
	return snap, nil
}

// Marshal is Encode into memory.
func Marshal(snap SaveV1) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, snap); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func Unmarshal(b []byte) (SaveV1, error) {
	return Decode(bytes.NewReader(b))
}

// ReadHeader decodes only the header line.
func ReadHeader(path string) (Header, error) {
	var h Header
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return h, fmt.Errorf("%w: %s", ErrNoSave, path)
		}
		return h, err
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		return h, fmt.Errorf("%w: %v", ErrInvalidSave, err)
	}
	defer dec.Close()
	hl, err := bufio.NewReader(dec).ReadBytes('\n')
	if err != nil {
		return h, fmt.Errorf("%w: header: %v", ErrInvalidSave, err)
	}
	if err := json.Unmarshal(hl, &h); err != nil {
		return h, fmt.Errorf("%w: header: %v", ErrInvalidSave, err)
	}
	return h, nil
}

func WriteSnapshot(path string, snap SaveV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if err := Encode(f, snap); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

func ReadSnapshot(path string) (SaveV1, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return SaveV1{}, fmt.Errorf("%w: %s", ErrNoSave, path)
		}
		return SaveV1{}, err
	}
	defer f.Close()
	return Decode(f)
}
