package world

// Generator generates terrain for columns and cubes. GenerateCube and
// AdvanceCube receive the transaction they run under, through which a
// generator may force other cubes to be loaded (Tx.ForceLoad) and declare
// cross-cube requirements (Tx.RegisterRequirement). A generator must never
// lower the stage of a cube: advancing runs strictly forward through the
// pipeline.
//
// Generators run synchronously on the transaction goroutine of the World and
// must not retain the Tx beyond the call.
type Generator interface {
	// GenerateColumn creates a new, empty column at the position passed. The
	// cubes of the column are generated separately through GenerateCube.
	GenerateColumn(pos ColumnPos) *Column
	// GenerateCube creates a brand-new cube at the position passed and
	// advances it to the target stage.
	GenerateCube(tx *Tx, pos CubePos, target Stage) (*Cube, error)
	// AdvanceCube resumes generation of an existing cube until it reaches the
	// target stage.
	AdvanceCube(tx *Tx, c *Cube, target Stage) error
}

// NopGenerator is a Generator that produces empty columns and cubes. Cubes
// reach the requested stage immediately without any terrain being placed.
type NopGenerator struct{}

func (NopGenerator) GenerateColumn(pos ColumnPos) *Column {
	return NewColumn(pos)
}

func (NopGenerator) GenerateCube(_ *Tx, pos CubePos, target Stage) (*Cube, error) {
	c := NewCube(pos)
	c.Advance(target)
	return c, nil
}

func (NopGenerator) AdvanceCube(_ *Tx, c *Cube, target Stage) error {
	c.Advance(target)
	return nil
}
