package world

import "testing"

func TestStagePrecedes(t *testing.T) {
	order := []Stage{StageNone, StageTerrain, StageSurface, StagePopulation, StageLighting, StageLive}
	for i, a := range order {
		for j, b := range order {
			if got, want := a.Precedes(b), i < j; got != want {
				t.Errorf("%v.Precedes(%v) = %v, want %v", a, b, got, want)
			}
		}
	}
}

func TestCubeAdvanceIsMonotonic(t *testing.T) {
	c := NewCube(CubePos{0, 0, 0})
	if c.Stage() != StageNone {
		t.Fatalf("new cube at stage %v", c.Stage())
	}
	c.Advance(StagePopulation)
	if c.Stage() != StagePopulation {
		t.Fatalf("stage after advance: %v", c.Stage())
	}
	c.Advance(StageTerrain)
	if c.Stage() != StagePopulation {
		t.Fatalf("stage regressed to %v", c.Stage())
	}
	c.Advance(StagePopulation)
	if c.Stage() != StagePopulation {
		t.Fatalf("stage after repeated advance: %v", c.Stage())
	}
}
