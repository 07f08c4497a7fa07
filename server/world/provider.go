package world

import (
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned by a Provider when the column or cube requested
// does not exist in storage. Absence is a normal outcome for load-only paths,
// not a failure.
var ErrNotFound = errors.New("world: not found")

// ColumnData is the serialisable form of a Column, exchanged with a Provider.
type ColumnData struct {
	Pos              ColumnPos
	TerrainPopulated bool
	// Heights holds the highest block Y per local (x, z) position, indexed by
	// x<<4 | z. A zero entry with HeightsSet false at that index means no
	// height was recorded.
	Heights    [256]int32
	HeightsSet [256]bool
}

// CubeData is the serialisable form of a Cube, exchanged with a Provider.
type CubeData struct {
	Pos    CubePos
	Stage  Stage
	Blocks []uint16
}

// Provider implements storage for world data. Loads return ErrNotFound when
// the entity requested was never stored. Any other error is treated by the
// World as a transient persistence failure: logged and handled as absence on
// load, retried on the next save pass on save.
//
// Store calls may be buffered and written asynchronously; Flush must block
// until every buffered write is durable.
type Provider interface {
	// Settings fills s with the settings persisted for the world, leaving the
	// defaults in place for anything not stored.
	Settings(s *Settings)
	// SaveSettings persists the settings passed.
	SaveSettings(s *Settings)
	// LoadColumn loads the data of the column at the position passed.
	LoadColumn(pos ColumnPos) (*ColumnData, error)
	// StoreColumn persists the data of a column.
	StoreColumn(col *ColumnData) error
	// LoadCube loads the data of the cube at the position passed.
	LoadCube(pos CubePos) (*CubeData, error)
	// StoreCube persists the data of a cube.
	StoreCube(c *CubeData) error
	// LoadPlayerSpawnPosition loads the spawn position of the player with the
	// UUID passed. The bool returned is false if the player has no spawn
	// stored.
	LoadPlayerSpawnPosition(id uuid.UUID) (CubePos, bool, error)
	// SavePlayerSpawnPosition persists the spawn position of the player with
	// the UUID passed.
	SavePlayerSpawnPosition(id uuid.UUID, pos CubePos) error
	// Flush blocks until all buffered writes are durable.
	Flush() error
	// Close closes the provider. The World closes its provider when it is
	// itself closed.
	Close() error
}

// NopProvider is a Provider that stores nothing. Every load reports absence.
type NopProvider struct{}

func (NopProvider) Settings(*Settings)     {}
func (NopProvider) SaveSettings(*Settings) {}
func (NopProvider) LoadColumn(ColumnPos) (*ColumnData, error) {
	return nil, ErrNotFound
}
func (NopProvider) StoreColumn(*ColumnData) error { return nil }
func (NopProvider) LoadCube(CubePos) (*CubeData, error) {
	return nil, ErrNotFound
}
func (NopProvider) StoreCube(*CubeData) error { return nil }
func (NopProvider) LoadPlayerSpawnPosition(uuid.UUID) (CubePos, bool, error) {
	return CubePos{}, false, nil
}
func (NopProvider) SavePlayerSpawnPosition(uuid.UUID, CubePos) error { return nil }
func (NopProvider) Flush() error                                     { return nil }
func (NopProvider) Close() error                                     { return nil }
