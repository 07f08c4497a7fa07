package world

import "sync"

// Settings holds the mutable settings of a World, shared between the World
// and its Provider. Methods on World that read or write these values lock the
// struct.
type Settings struct {
	sync.Mutex

	// Name is the display name of the World.
	Name string
	// Spawn is the spawn point of the World in cube coordinates. Cubes within
	// the configured protection radius of this point are never queued for
	// unloading.
	Spawn CubePos
	// CurrentTick is the tick counter of the World, incremented once per tick
	// and persisted across restarts.
	CurrentTick int64
	// SavingDisabled stops the unload queue from being drained and stops
	// automatic saving while set. Used by hosts during maintenance windows.
	SavingDisabled bool
}

// defaultSettings returns the settings used for a World that has no persisted
// settings yet.
func defaultSettings() *Settings {
	return &Settings{Name: "World", Spawn: CubePos{0, 4, 0}}
}
