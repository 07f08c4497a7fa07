// Package generator implements generators producing the terrain of a world,
// either in a single shot or as a pipeline of stages.
package generator

import (
	"github.com/tallworld/tallworld/server/world"
)

// Flat is a generator producing flat terrain: every block at or below Height
// is Block, everything above is air. Flat terrain completes all stages in one
// shot, so cubes it produces are immediately live.
type Flat struct {
	// Height is the world Y coordinate, in blocks, of the highest solid
	// layer.
	Height int32
	// Block is the block ID the terrain consists of.
	Block uint16
}

// GenerateColumn returns an empty column with its height index filled in at
// Height.
func (f Flat) GenerateColumn(pos world.ColumnPos) *world.Column {
	col := world.NewColumn(pos)
	for x := uint8(0); x < 16; x++ {
		for z := uint8(0); z < 16; z++ {
			col.SetHeight(x, z, f.Height)
		}
	}
	return col
}

// GenerateCube produces a cube at the position passed, filled up to Height.
func (f Flat) GenerateCube(tx *world.Tx, pos world.CubePos, target world.Stage) (*world.Cube, error) {
	c := world.NewCube(pos)
	f.fill(c)
	c.Advance(world.StageLive)
	return c, nil
}

// TerrainStep returns the terrain filling of the flat generator as a Step, so
// that it can serve as the terrain stage of a Staged pipeline.
func (f Flat) TerrainStep() Step {
	return StepFunc(func(tx *world.Tx, c *world.Cube) error {
		f.fill(c)
		return nil
	})
}

func (f Flat) fill(c *world.Cube) {
	base := c.Pos()[1] << 4
	for y := uint8(0); y < 16; y++ {
		if base+int32(y) > f.Height {
			break
		}
		for z := uint8(0); z < 16; z++ {
			for x := uint8(0); x < 16; x++ {
				c.SetBlock(x, y, z, f.Block)
			}
		}
	}
}

// AdvanceCube marks the cube as having reached the target stage. Flat terrain
// has no work left after GenerateCube.
func (f Flat) AdvanceCube(tx *world.Tx, c *world.Cube, target world.Stage) error {
	c.Advance(target)
	return nil
}
