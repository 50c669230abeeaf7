// Package archive keeps long-lived checkpoints of a world while the
// rolling snapshot directory is pruned.
package archive

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/loguhan/FactoryGame/internal/persistence/snapshot"
)

type CheckpointMeta struct {
	Index     int      `json:"index"`
	Tick      uint64   `json:"tick"`
	Seed      int64    `json:"seed"`
	Snapshot  string   `json:"snapshot"`
	CreatedAt string   `json:"created_at"`
	Research  int      `json:"research"`
	Achieved  []string `json:"achieved,omitempty"`
}

// Checkpoint copies a snapshot into worldDir/archives/checkpoint_<NNN>/ when
// it is the last tick of an every-tick period. It reports the checkpoint
// index and archived path when it copied.
func Checkpoint(worldDir, snapshotPath string, snap snapshot.SaveV1, every uint64) (index int, archivedPath string, archived bool, err error) {
	if every == 0 {
		return 0, "", false, nil
	}
	// Header.Tick is the next tick to run; period k closes at every*k.
	if snap.Header.Tick == 0 || snap.Header.Tick%every != 0 {
		return 0, "", false, nil
	}
	index = int(snap.Header.Tick / every)

	dir := filepath.Join(worldDir, "archives", fmt.Sprintf("checkpoint_%03d", index))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, "", false, err
	}
	dst := filepath.Join(dir, filepath.Base(snapshotPath))
	if err := copyFile(snapshotPath, dst); err != nil {
		return 0, "", false, err
	}

	meta := CheckpointMeta{
		Index:     index,
		Tick:      snap.Header.Tick,
		Seed:      snap.Seed,
		Snapshot:  filepath.Base(dst),
		CreatedAt: time.Now().UTC().Format(time.RFC3339Nano),
		Research:  snap.Stats.Research,
		Achieved:  snap.Stats.Achieved,
	}
	if b, err := json.MarshalIndent(meta, "", "  "); err == nil {
		_ = os.WriteFile(filepath.Join(dir, "meta.json"), b, 0o644)
	}
	return index, dst, true, nil
}

// Prune removes all but the newest keep "<tick>.snap.zst" files in dir and
// returns the removed paths. Other files are left alone.
func Prune(dir string, keep int) ([]string, error) {
	if keep <= 0 {
		return nil, nil
	}
	ents, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	type snapFile struct {
		tick uint64
		path string
	}
	var files []snapFile
	for _, e := range ents {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".snap.zst") {
			continue
		}
		tick, err := strconv.ParseUint(strings.TrimSuffix(name, ".snap.zst"), 10, 64)
		if err != nil {
			continue
		}
		files = append(files, snapFile{tick: tick, path: filepath.Join(dir, name)})
	}
	if len(files) <= keep {
		return nil, nil
	}
	sort.Slice(files, func(i, j int) bool { return files[i].tick < files[j].tick })

	var removed []string
	for _, f := range files[:len(files)-keep] {
		if err := os.Remove(f.path); err != nil {
			return removed, err
		}
		removed = append(removed, f.path)
	}
	return removed, nil
}

// Latest returns the newest snapshot in dir by tick.
func Latest(dir string) (string, bool) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}
	var (
		best  uint64
		found string
	)
	for _, e := range ents {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".snap.zst") {
			continue
		}
		tick, err := strconv.ParseUint(strings.TrimSuffix(name, ".snap.zst"), 10, 64)
		if err != nil {
			continue
		}
		if found == "" || tick > best {
			best, found = tick, filepath.Join(dir, name)
		}
	}
	return found, found != ""
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
