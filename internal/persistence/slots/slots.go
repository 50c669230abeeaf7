// Package slots keeps named saves in a badger store so a server can offer
// save/load by name without managing snapshot files.
package slots

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v3"

	"github.com/loguhan/FactoryGame/internal/persistence/snapshot"
)

const (
	dataPrefix = "slot:"
	metaPrefix = "meta:"
	maxNameLen = 64
)

var ErrBadName = errors.New("bad slot name")

// Info describes a stored slot without decoding it.
type Info struct {
	Name    string    `json:"name"`
	WorldID string    `json:"world_id"`
	Tick    uint64    `json:"tick"`
	Size    int       `json:"size"`
	SavedAt time.Time `json:"saved_at"`
}

type Store struct {
	db  *badger.DB
	mu  sync.RWMutex
	now func() time.Time

	closed bool
}

// Open opens or creates a slot store under dir. An empty dir keeps
// everything in memory.
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open slots: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func validName(name string) error {
	if name == "" || len(name) > maxNameLen {
		return fmt.Errorf("%w: %q", ErrBadName, name)
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
		default:
			return fmt.Errorf("%w: %q", ErrBadName, name)
		}
	}
	return nil
}

// Save encodes snap and stores it under name, replacing any previous save.
func (s *Store) Save(name string, snap snapshot.SaveV1) (Info, error) {
	if err := validName(name); err != nil {
		return Info{}, err
	}
	data, err := snapshot.Marshal(snap)
	if err != nil {
		return Info{}, err
	}
	info := Info{
		Name:    name,
		WorldID: snap.Header.WorldID,
		Tick:    snap.Header.Tick,
		Size:    len(data),
		SavedAt: s.now().UTC(),
	}
	meta, err := json.Marshal(info)
	if err != nil {
		return Info{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return Info{}, errors.New("slots closed")
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(dataPrefix+name), data); err != nil {
			return err
		}
		return txn.Set([]byte(metaPrefix+name), meta)
	})
	if err != nil {
		return Info{}, fmt.Errorf("save slot %s: %w", name, err)
	}
	return info, nil
}

// Load decodes the save stored under name. A missing slot wraps
// snapshot.ErrNoSave.
func (s *Store) Load(name string) (snapshot.SaveV1, error) {
	if err := validName(name); err != nil {
		return snapshot.SaveV1{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return snapshot.SaveV1{}, errors.New("slots closed")
	}

	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(dataPrefix + name))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return snapshot.SaveV1{}, fmt.Errorf("%w: slot %s", snapshot.ErrNoSave, name)
	}
	if err != nil {
		return snapshot.SaveV1{}, fmt.Errorf("load slot %s: %w", name, err)
	}
	return snapshot.Unmarshal(data)
}

// List returns every slot sorted by name.
func (s *Store) List() ([]Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, errors.New("slots closed")
	}

	var out []Info
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte(metaPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var info Info
				if err := json.Unmarshal(val, &info); err != nil {
					return err
				}
				out = append(out, info)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Delete removes name. Deleting a missing slot wraps snapshot.ErrNoSave.
func (s *Store) Delete(name string) error {
	if err := validName(name); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return errors.New("slots closed")
	}
	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get([]byte(metaPrefix + name)); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("%w: slot %s", snapshot.ErrNoSave, name)
			}
			return err
		}
		if err := txn.Delete([]byte(dataPrefix + name)); err != nil {
			return err
		}
		return txn.Delete([]byte(metaPrefix + name))
	})
}
