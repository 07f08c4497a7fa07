package world

// Stage is a step in the terrain generation pipeline of a cube. Stages are
// totally ordered: a cube's current stage only ever moves forward through the
// pipeline and never regresses.
type Stage uint8

const (
	// StageNone is the stage of a cube that has been created but not yet
	// touched by the generator.
	StageNone Stage = iota
	// StageTerrain is reached once the raw terrain shape of the cube exists.
	StageTerrain
	// StageSurface is reached once surface blocks have replaced the raw
	// terrain where exposed.
	StageSurface
	// StagePopulation is reached once features that may cross cube borders,
	// such as trees and ores, have been placed.
	StagePopulation
	// StageLighting is reached once light values in the cube are consistent.
	StageLighting
	// StageLive is the final stage. A cube at StageLive participates fully in
	// the world.
	StageLive
)

// Precedes reports whether s comes strictly before other in the pipeline.
func (s Stage) Precedes(other Stage) bool {
	return s < other
}

// String implements fmt.Stringer.
func (s Stage) String() string {
	switch s {
	case StageNone:
		return "none"
	case StageTerrain:
		return "terrain"
	case StageSurface:
		return "surface"
	case StagePopulation:
		return "population"
	case StageLighting:
		return "lighting"
	case StageLive:
		return "live"
	}
	return "unknown"
}
