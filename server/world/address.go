package world

import (
	"errors"
	"fmt"
)

// ColumnPos holds the X and Z coordinates of a column of cubes. ColumnPos is
// the (X, Z) projection of the CubePos of every cube the column owns.
type ColumnPos [2]int32

// X returns the X coordinate of the column position.
func (p ColumnPos) X() int32 {
	return p[0]
}

// Z returns the Z coordinate of the column position.
func (p ColumnPos) Z() int32 {
	return p[1]
}

// String implements fmt.Stringer.
func (p ColumnPos) String() string {
	return fmt.Sprintf("(%v, %v)", p[0], p[1])
}

// CubePos holds the X, Y and Z coordinates of a cube. A cube spans 16x16x16
// blocks, so a CubePos is obtained by shifting block coordinates right by 4.
type CubePos [3]int32

// X returns the X coordinate of the cube position.
func (p CubePos) X() int32 {
	return p[0]
}

// Y returns the Y coordinate of the cube position.
func (p CubePos) Y() int32 {
	return p[1]
}

// Z returns the Z coordinate of the cube position.
func (p CubePos) Z() int32 {
	return p[2]
}

// Column returns the position of the column that owns the cube at p.
func (p CubePos) Column() ColumnPos {
	return ColumnPos{p[0], p[2]}
}

// String implements fmt.Stringer.
func (p CubePos) String() string {
	return fmt.Sprintf("(%v, %v, %v)", p[0], p[1], p[2])
}

// Cube addresses pack a CubePos into a single int64 map key. The Y coordinate
// occupies the upper 20 bits and the X and Z coordinates 22 bits each, giving
// a range of ±2^21 cubes horizontally and ±2^19 vertically. Column addresses
// pack the X coordinate into the upper half and Z into the lower half, so the
// full int32 range is representable.
const (
	cubeAxisBits = 22
	cubeYBits    = 20

	cubeAxisMask = 1<<cubeAxisBits - 1
	cubeYMask    = 1<<cubeYBits - 1

	// MinCubeXZ, MaxCubeXZ, MinCubeY and MaxCubeY bound the coordinates for
	// which cube addresses are collision-free.
	MinCubeXZ = -1 << (cubeAxisBits - 1)
	MaxCubeXZ = 1<<(cubeAxisBits-1) - 1
	MinCubeY  = -1 << (cubeYBits - 1)
	MaxCubeY  = 1<<(cubeYBits-1) - 1
)

// ErrOutOfRange is returned when a cube coordinate cannot be packed into an
// address without colliding with another coordinate.
var ErrOutOfRange = errors.New("world: cube coordinate out of packable range")

// CubeInRange reports whether pos can be packed into a cube address.
func CubeInRange(pos CubePos) bool {
	return pos[0] >= MinCubeXZ && pos[0] <= MaxCubeXZ &&
		pos[2] >= MinCubeXZ && pos[2] <= MaxCubeXZ &&
		pos[1] >= MinCubeY && pos[1] <= MaxCubeY
}

// ColumnAddr packs a ColumnPos into an int64 address. The packing is a
// bijection over the full int32 range of both coordinates.
func ColumnAddr(pos ColumnPos) int64 {
	return int64(uint64(uint32(pos[0]))<<32 | uint64(uint32(pos[1])))
}

// ColumnPosFromAddr is the inverse of ColumnAddr.
func ColumnPosFromAddr(addr int64) ColumnPos {
	return ColumnPos{int32(uint64(addr) >> 32), int32(uint64(addr))}
}

// CubeAddr packs a CubePos into an int64 address, returning ErrOutOfRange if
// the position lies outside the packable range.
func CubeAddr(pos CubePos) (int64, error) {
	if !CubeInRange(pos) {
		return 0, fmt.Errorf("%w: %v", ErrOutOfRange, pos)
	}
	return cubeAddr(pos), nil
}

// cubeAddr packs a CubePos without validation. Callers must have checked
// CubeInRange first.
func cubeAddr(pos CubePos) int64 {
	return int64(uint64(uint32(pos[1]))&cubeYMask<<(2*cubeAxisBits) |
		uint64(uint32(pos[0]))&cubeAxisMask<<cubeAxisBits |
		uint64(uint32(pos[2]))&cubeAxisMask)
}

// CubePosFromAddr is the inverse of CubeAddr.
func CubePosFromAddr(addr int64) CubePos {
	u := uint64(addr)
	y := int32(uint32(u>>(2*cubeAxisBits)&cubeYMask)<<(32-cubeYBits)) >> (32 - cubeYBits)
	x := int32(uint32(u>>cubeAxisBits&cubeAxisMask)<<(32-cubeAxisBits)) >> (32 - cubeAxisBits)
	z := int32(uint32(u&cubeAxisMask)<<(32-cubeAxisBits)) >> (32 - cubeAxisBits)
	return CubePos{x, y, z}
}
