package generator

import (
	"fmt"

	"github.com/tallworld/tallworld/server/world"
)

// Step performs the work of one generation stage on a cube. A Step may read
// and write neighbouring cubes through the transaction; the Staged generator
// force-loads the neighbourhood a population step touches before running it.
type Step interface {
	Apply(tx *world.Tx, c *world.Cube) error
}

// StepFunc is a function that implements Step.
type StepFunc func(tx *world.Tx, c *world.Cube) error

// Apply calls f.
func (f StepFunc) Apply(tx *world.Tx, c *world.Cube) error {
	return f(tx, c)
}

// Staged is a generator that advances cubes through the generation pipeline
// one stage at a time, running the Step registered for each stage. Stages
// without a Step are passed through.
//
// Before running the population stage of a cube, Staged force-loads the cube
// below and the +X, +Z and +X+Z neighbours at terrain stage and records a
// residency requirement on them, so the step can spill structures across cube
// borders without the neighbours being evicted mid-generation.
type Staged struct {
	Steps map[world.Stage]Step
}

// GenerateColumn returns a new, empty column.
func (s Staged) GenerateColumn(pos world.ColumnPos) *world.Column {
	return world.NewColumn(pos)
}

// GenerateCube creates an empty cube and advances it to the target stage.
func (s Staged) GenerateCube(tx *world.Tx, pos world.CubePos, target world.Stage) (*world.Cube, error) {
	c := world.NewCube(pos)
	if err := s.AdvanceCube(tx, c, target); err != nil {
		return c, err
	}
	return c, nil
}

// AdvanceCube runs the pipeline from the cube's current stage up to target.
// If a step fails, the cube keeps the last stage it completed and the error
// is returned.
func (s Staged) AdvanceCube(tx *world.Tx, c *world.Cube, target world.Stage) error {
	for next := c.Stage() + 1; next <= target; next++ {
		if next == world.StagePopulation {
			if err := s.prepareNeighbourhood(tx, c); err != nil {
				return fmt.Errorf("prepare population of %v: %w", c.Pos(), err)
			}
		}
		if step, ok := s.Steps[next]; ok {
			if err := step.Apply(tx, c); err != nil {
				return fmt.Errorf("stage %v of %v: %w", next, c.Pos(), err)
			}
		}
		c.Advance(next)
	}
	return nil
}

// prepareNeighbourhood force-loads the cubes a population step may write to
// and registers the residency requirement that keeps them loaded until the
// cube passed finishes populating.
func (s Staged) prepareNeighbourhood(tx *world.Tx, c *world.Cube) error {
	pos := c.Pos()
	neighbours := []world.CubePos{
		{pos[0], pos[1] - 1, pos[2]},
		{pos[0] + 1, pos[1], pos[2]},
		{pos[0], pos[1], pos[2] + 1},
		{pos[0] + 1, pos[1], pos[2] + 1},
	}
	required := neighbours[:0]
	for _, n := range neighbours {
		if !world.CubeInRange(n) {
			continue
		}
		if _, err := tx.ForceLoad(c, n); err != nil {
			return err
		}
		required = append(required, n)
	}
	tx.RegisterRequirement(c, "population", world.StagePopulation, required...)
	return nil
}
