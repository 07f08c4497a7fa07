package generator

import (
	"errors"
	"testing"
	"time"

	"github.com/tallworld/tallworld/server/world"
)

func testWorld(t *testing.T, gen world.Generator) *world.World {
	t.Helper()
	w := world.Config{
		Generator:    gen,
		SpawnRadius:  -1,
		TickInterval: time.Hour,
	}.New()
	t.Cleanup(func() {
		if err := w.Close(); err != nil {
			t.Fatalf("failed closing world: %v", err)
		}
	})
	return w
}

func TestStagedRunsStepsInOrder(t *testing.T) {
	var order []world.Stage
	step := func(s world.Stage) Step {
		return StepFunc(func(tx *world.Tx, c *world.Cube) error {
			order = append(order, s)
			return nil
		})
	}
	gen := Staged{Steps: map[world.Stage]Step{
		world.StageTerrain:  step(world.StageTerrain),
		world.StageSurface:  step(world.StageSurface),
		world.StageLighting: step(world.StageLighting),
	}}
	w := testWorld(t, gen)

	<-w.Exec(func(tx *world.Tx) {
		c, err := tx.EnsureCube(world.CubePos{0, 0, 0}, world.LoadOrGenerate, world.StageLive)
		if err != nil {
			t.Errorf("EnsureCube: %v", err)
			return
		}
		if c.Stage() != world.StageLive {
			t.Errorf("cube at stage %v", c.Stage())
			return
		}
	})
	// The population neighbourhood is generated to terrain stage, so the
	// terrain step runs for the neighbours too. Filter to one cube's view by
	// checking the prefix.
	want := []world.Stage{world.StageTerrain, world.StageSurface}
	for i, s := range want {
		if i >= len(order) || order[i] != s {
			t.Fatalf("step order = %v", order)
		}
	}
	if order[len(order)-1] != world.StageLighting {
		t.Fatalf("lighting did not run last: %v", order)
	}
}

func TestStagedPartialAdvance(t *testing.T) {
	gen := Staged{}
	w := testWorld(t, gen)

	pos := world.CubePos{3, 1, 3}
	<-w.Exec(func(tx *world.Tx) {
		c, err := tx.EnsureCube(pos, world.LoadOrGenerate, world.StageSurface)
		if err != nil {
			t.Errorf("EnsureCube: %v", err)
			return
		}
		if c.Stage() != world.StageSurface {
			t.Errorf("cube at stage %v", c.Stage())
			return
		}
		c, err = tx.EnsureCube(pos, world.LoadOrGenerate, world.StageLive)
		if err != nil {
			t.Errorf("EnsureCube: %v", err)
			return
		}
		if c.Stage() != world.StageLive {
			t.Errorf("cube not resumed, at stage %v", c.Stage())
			return
		}
	})
}

func TestStagedStepFailureKeepsLastStage(t *testing.T) {
	boom := errors.New("boom")
	gen := Staged{Steps: map[world.Stage]Step{
		world.StageSurface: StepFunc(func(tx *world.Tx, c *world.Cube) error {
			return boom
		}),
	}}
	w := testWorld(t, gen)

	<-w.Exec(func(tx *world.Tx) {
		c, err := tx.EnsureCube(world.CubePos{0, 0, 0}, world.LoadOrGenerate, world.StageLive)
		if !errors.Is(err, boom) {
			t.Errorf("expected step error, got %v", err)
			return
		}
		if c != nil && c.Stage() != world.StageTerrain {
			t.Errorf("cube at stage %v after failed surface step", c.Stage())
			return
		}
	})
}

func TestStagedPopulationForceLoadsNeighbourhood(t *testing.T) {
	gen := Staged{}
	w := testWorld(t, gen)

	pos := world.CubePos{0, 0, 0}
	<-w.Exec(func(tx *world.Tx) {
		if _, err := tx.EnsureCube(pos, world.LoadOrGenerate, world.StageLive); err != nil {
			t.Errorf("EnsureCube: %v", err)
			return
		}
		for _, n := range []world.CubePos{{0, -1, 0}, {1, 0, 0}, {0, 0, 1}, {1, 0, 1}} {
			if !tx.CubeExists(n) {
				t.Errorf("neighbour %v not force loaded", n)
			}
			found := false
			for _, f := range tx.ForcersOf(n) {
				if f == pos {
					found = true
				}
			}
			if !found {
				t.Errorf("neighbour %v has no forced edge from %v", n, pos)
			}
		}
	})
}

func TestFlatGeneratesTerrain(t *testing.T) {
	gen := Flat{Height: 20, Block: 1}
	w := testWorld(t, gen)

	<-w.Exec(func(tx *world.Tx) {
		c, err := tx.EnsureCube(world.CubePos{0, 1, 0}, world.LoadOrGenerate, world.StageLive)
		if err != nil {
			t.Errorf("EnsureCube: %v", err)
			return
		}
		// Cube Y 1 spans block Y 16..31; height 20 means local y 0..4 solid.
		if got := c.Block(0, 4, 0); got != 1 {
			t.Errorf("block at surface = %v", got)
		}
		if got := c.Block(0, 5, 0); got != 0 {
			t.Errorf("block above surface = %v", got)
		}
	})
}
