package slots

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loguhan/FactoryGame/internal/persistence/snapshot"
)

func sampleSave(tick uint64) snapshot.SaveV1 {
	return snapshot.SaveV1{
		Header:    snapshot.Header{Version: snapshot.Version, WorldID: "w1", Tick: tick},
		Seed:      42,
		Width:     64,
		Height:    64,
		Clock:     float64(tick) / 60,
		Inventory: map[string]int{"PLATE": 10},
		Tiles:     []snapshot.TileV1{{X: 3, Y: 4, Kind: "CONVEYOR", Dir: 1}},
		Belts:     []snapshot.BeltV1{{X: 3, Y: 4, Items: []snapshot.BeltItemV1{{Item: "ORE", X: 0.5, Y: 0.25}}}},
	}
}

func TestStore_SaveLoadListDelete(t *testing.T) {
	s, err := Open("")
	require.NoError(t, err)
	defer s.Close()
	s.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

	info, err := s.Save("alpha", sampleSave(120))
	require.NoError(t, err)
	assert.Equal(t, "alpha", info.Name)
	assert.Equal(t, uint64(120), info.Tick)
	assert.Positive(t, info.Size)

	_, err = s.Save("beta", sampleSave(60))
	require.NoError(t, err)
	// Overwrite keeps one entry.
	_, err = s.Save("alpha", sampleSave(180))
	require.NoError(t, err)

	got, err := s.Load("alpha")
	require.NoError(t, err)
	assert.Equal(t, uint64(180), got.Header.Tick)
	assert.Equal(t, 10, got.Inventory["PLATE"])
	require.Len(t, got.Belts, 1)
	assert.Equal(t, "ORE", got.Belts[0].Items[0].Item)

	list, err := s.List()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "alpha", list[0].Name)
	assert.Equal(t, "beta", list[1].Name)
	assert.Equal(t, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), list[0].SavedAt)

	require.NoError(t, s.Delete("beta"))
	_, err = s.Load("beta")
	assert.ErrorIs(t, err, snapshot.ErrNoSave)
	assert.ErrorIs(t, s.Delete("beta"), snapshot.ErrNoSave)
}

func TestStore_RejectsBadNames(t *testing.T) {
	s, err := Open("")
	require.NoError(t, err)
	defer s.Close()

	for _, name := range []string{"", "a/b", "has space", "meta:x"} {
		_, err := s.Save(name, sampleSave(1))
		assert.ErrorIs(t, err, ErrBadName, name)
	}
	_, err = s.Load("../x")
	assert.ErrorIs(t, err, ErrBadName)
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)
	_, err = s.Save("autosave", sampleSave(3600))
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	s2, err := Open(dir)
	require.NoError(t, err)
	defer s2.Close()
	got, err := s2.Load("autosave")
	require.NoError(t, err)
	assert.Equal(t, uint64(3600), got.Header.Tick)
	assert.Equal(t, int64(42), got.Seed)
}
