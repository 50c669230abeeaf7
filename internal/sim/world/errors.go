package world

import (
	"errors"

	"github.com/loguhan/FactoryGame/internal/persistence/snapshot"
	"github.com/loguhan/FactoryGame/internal/protocol"
)

// Placement and command rejections. Returned errors wrap these with the
// command context; callers test with errors.Is.
var (
	ErrOutOfBounds           = errors.New("out of bounds")
	ErrRegionLocked          = errors.New("region locked")
	ErrUnbuildable           = errors.New("terrain not buildable")
	ErrBuildingLocked        = errors.New("building not unlocked")
	ErrNoOre                 = errors.New("no ore under footprint")
	ErrFootprintBlocked      = errors.New("footprint blocked")
	ErrInsufficientMaterials = errors.New("insufficient materials")
	ErrUnknownBuilding       = errors.New("unknown building")
	ErrUnchanged             = errors.New("unchanged")
	ErrUnknownRegion         = errors.New("unknown region")
	ErrNotFound              = errors.New("nothing at position")
	ErrStopped               = errors.New("world stopped")
	ErrReadOnly              = errors.New("session is read-only")
	ErrBadCommand            = errors.New("bad command")
)

// CodeFor maps an error to its protocol error code; nil maps to "".
func CodeFor(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrOutOfBounds), errors.Is(err, ErrUnknownRegion), errors.Is(err, ErrNotFound):
		return protocol.ErrInvalidTarget
	case errors.Is(err, ErrRegionLocked), errors.Is(err, ErrBuildingLocked), errors.Is(err, ErrReadOnly):
		return protocol.ErrNoPermission
	case errors.Is(err, ErrUnbuildable), errors.Is(err, ErrNoOre), errors.Is(err, ErrFootprintBlocked):
		return protocol.ErrBlocked
	case errors.Is(err, ErrInsufficientMaterials):
		return protocol.ErrNoResource
	case errors.Is(err, ErrUnknownBuilding), errors.Is(err, ErrBadCommand):
		return protocol.ErrBadRequest
	case errors.Is(err, ErrUnchanged):
		return protocol.ErrConflict
	case errors.Is(err, snapshot.ErrNoSave):
		return protocol.ErrNotFound
	case errors.Is(err, snapshot.ErrInvalidSave):
		return protocol.ErrBadRequest
	case errors.Is(err, ErrStopped):
		return protocol.ErrWorldBusy
	}
	return protocol.ErrInternal
}
