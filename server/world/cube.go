package world

// Cube is the atomic unit of world data: a 16x16x16 volume of blocks at a
// CubePos. A cube carries the generation stage it has reached so far. The
// block IDs stored in a cube are opaque to this package.
type Cube struct {
	pos  CubePos
	addr int64

	stage Stage

	// blocks holds the block ID for every position in the cube, indexed by
	// y<<8 | z<<4 | x.
	blocks [4096]uint16

	modified bool
	loaded   bool
}

// NewCube creates a new, empty cube at StageNone. The position passed must be
// within the packable coordinate range.
func NewCube(pos CubePos) *Cube {
	return &Cube{pos: pos, addr: cubeAddr(pos), modified: true}
}

// Pos returns the position of the cube.
func (c *Cube) Pos() CubePos {
	return c.pos
}

// Stage returns the generation stage the cube has reached.
func (c *Cube) Stage() Stage {
	return c.stage
}

// Advance raises the cube's stage to s. If the cube is already at s or
// beyond, Advance is a no-op: a cube's stage never regresses.
func (c *Cube) Advance(s Stage) {
	if c.stage.Precedes(s) {
		c.stage = s
		c.modified = true
	}
}

// Block returns the block ID at the local position passed. x, y and z must be
// in the range [0, 16).
func (c *Cube) Block(x, y, z uint8) uint16 {
	return c.blocks[blockIndex(x, y, z)]
}

// SetBlock sets the block ID at the local position passed and marks the cube
// as needing to be saved. x, y and z must be in the range [0, 16).
func (c *Cube) SetBlock(x, y, z uint8, id uint16) {
	c.blocks[blockIndex(x, y, z)] = id
	c.modified = true
}

// NeedsSaving reports whether the cube changed since it was last persisted.
func (c *Cube) NeedsSaving() bool {
	return c.modified
}

// onLoad runs the cube's load hook. It is idempotent: calling it on a cube
// that is already loaded has no effect.
func (c *Cube) onLoad() {
	c.loaded = true
}

// onUnload runs the cube's unload hook, the counterpart of onLoad.
func (c *Cube) onUnload() {
	c.loaded = false
}

func blockIndex(x, y, z uint8) uint16 {
	return uint16(y)<<8 | uint16(z)<<4 | uint16(x)
}
