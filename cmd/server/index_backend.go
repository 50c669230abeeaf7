package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/loguhan/FactoryGame/internal/persistence/indexdb"
	"github.com/loguhan/FactoryGame/internal/sim/world"
)

// openRuntimeIndex opens the optional read-model index. It never affects
// simulation determinism.
func openRuntimeIndex(worldDir string, disableDB bool) (*indexdb.SQLiteIndex, error) {
	if disableDB {
		return nil, nil
	}
	backend := strings.ToLower(strings.TrimSpace(os.Getenv("FG_INDEX_BACKEND")))
	switch backend {
	case "", "sqlite":
		return indexdb.OpenSQLite(filepath.Join(worldDir, "index", "world.sqlite"))
	case "none", "off", "disabled":
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported FG_INDEX_BACKEND: %s", backend)
	}
}

type multiTickLogger []world.TickLogger

func (m multiTickLogger) WriteTick(entry world.TickLogEntry) error {
	for _, l := range m {
		if l != nil {
			_ = l.WriteTick(entry)
		}
	}
	return nil
}

type multiAuditLogger []world.AuditLogger

func (m multiAuditLogger) WriteAudit(entry world.AuditEntry) error {
	for _, l := range m {
		if l != nil {
			_ = l.WriteAudit(entry)
		}
	}
	return nil
}
