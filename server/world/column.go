package world

import (
	"slices"

	"github.com/brentp/intintmap"
)

// Column owns the cubes sharing an (X, Z) position. A column is resident in
// the world cache iff it has at least one loaded cube, or is transiently kept
// until its last cube finishes unloading. Besides its cubes, a column carries
// a height index recording the highest block per (X, Z) within the column,
// consumed by systems outside this package.
type Column struct {
	pos  ColumnPos
	addr int64

	// cubes holds the loaded cubes of the column, keyed by their Y
	// coordinate.
	cubes map[int32]*Cube

	// heights maps a packed local (x, z) key to the highest block Y recorded
	// at that position. Entries are only ever overwritten, never removed,
	// which fits the no-delete design of intintmap.
	heights *intintmap.Map

	terrainPopulated bool
	modified         bool
	loaded           bool
}

// NewColumn creates a new, empty column at the position passed.
func NewColumn(pos ColumnPos) *Column {
	return &Column{
		pos:      pos,
		addr:     ColumnAddr(pos),
		cubes:    make(map[int32]*Cube),
		heights:  intintmap.New(256, 0.6),
		modified: true,
	}
}

// Pos returns the position of the column.
func (c *Column) Pos() ColumnPos {
	return c.pos
}

// Cube returns the cube at the Y coordinate passed, or nil if the column does
// not have it loaded.
func (c *Column) Cube(y int32) *Cube {
	return c.cubes[y]
}

// Cubes returns all cubes of the column ordered by ascending Y.
func (c *Column) Cubes() []*Cube {
	ys := make([]int32, 0, len(c.cubes))
	for y := range c.cubes {
		ys = append(ys, y)
	}
	slices.Sort(ys)
	cubes := make([]*Cube, 0, len(ys))
	for _, y := range ys {
		cubes = append(cubes, c.cubes[y])
	}
	return cubes
}

// HasCubes reports whether the column still owns at least one cube.
func (c *Column) HasCubes() bool {
	return len(c.cubes) > 0
}

// setCube adds a cube to the column, replacing any cube previously loaded at
// the same Y coordinate.
func (c *Column) setCube(cube *Cube) {
	c.cubes[cube.pos[1]] = cube
}

// removeCube removes and returns the cube at the Y coordinate passed, or nil
// if no cube was loaded there.
func (c *Column) removeCube(y int32) *Cube {
	cube, ok := c.cubes[y]
	if !ok {
		return nil
	}
	delete(c.cubes, y)
	return cube
}

// SetHeight records the highest block Y at the local (x, z) position passed.
// x and z must be in the range [0, 16).
func (c *Column) SetHeight(x, z uint8, y int32) {
	c.heights.Put(heightKey(x, z), int64(y))
	c.modified = true
}

// HeightAt returns the highest block Y recorded at the local (x, z) position
// passed. The bool returned is false if no height was recorded yet.
func (c *Column) HeightAt(x, z uint8) (int32, bool) {
	v, ok := c.heights.Get(heightKey(x, z))
	return int32(v), ok
}

// TerrainPopulated reports whether terrain exists for the column.
func (c *Column) TerrainPopulated() bool {
	return c.terrainPopulated
}

// markTerrainPopulated flags the column as having terrain, so consumers do
// not attempt to regenerate it.
func (c *Column) markTerrainPopulated() {
	if !c.terrainPopulated {
		c.terrainPopulated = true
		c.modified = true
	}
}

// NeedsSaving reports whether the column changed since it was last persisted.
// If force is true, NeedsSaving always returns true.
func (c *Column) NeedsSaving(force bool) bool {
	return force || c.modified
}

// onLoad runs the column's load hook. Idempotent.
func (c *Column) onLoad() {
	c.loaded = true
}

// onUnload runs the column's unload hook, the counterpart of onLoad.
func (c *Column) onUnload() {
	c.loaded = false
}

func heightKey(x, z uint8) int64 {
	return int64(x)<<4 | int64(z)
}
