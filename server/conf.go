package server

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tallworld/tallworld/server/world"
	"github.com/tallworld/tallworld/server/world/cubedb"
	"github.com/tallworld/tallworld/server/world/generator"
)

// Config contains options for starting a world server.
type Config struct {
	// Log is the Logger to use for logging information. If nil, Log is set to
	// slog.Default().
	Log *slog.Logger
	// Name is the name of the server and of the world it hosts.
	Name string
	// WorldProvider is the world.Provider used for storing and loading world
	// data. If left as nil, world data will be newly created every time and
	// cubes will always be newly generated when loaded.
	WorldProvider world.Provider
	// Generator is the world.Generator producing the terrain of the world. If
	// left as nil, a flat stone world is generated.
	Generator world.Generator
	// ReadOnlyWorld specifies if the world should be read only. If set to
	// true, the WorldProvider won't be saved to at all.
	ReadOnlyWorld bool
	// SpawnRadius is the radius in cubes around the world spawn within which
	// cubes are never unloaded. If 0, the world default is used; a negative
	// value disables spawn protection.
	SpawnRadius int
	// UnloadBatch bounds the number of unload queue entries examined per
	// world tick.
	UnloadBatch int
	// TickInterval is the interval at which the world ticks.
	TickInterval time.Duration
	// SaveInterval is the interval at which modified world data is saved
	// automatically. If 0, automatic saving is disabled.
	SaveInterval time.Duration
}

// UserConfig is the user configuration for a server. It holds settings that
// affect different aspects of the server. UserConfig may be serialised and
// can be converted to a Config by calling UserConfig.Config().
type UserConfig struct {
	Server struct {
		// Name is the name of the server and of the world it hosts.
		Name string
	}
	World struct {
		// SaveData controls whether the world's data will be saved and
		// loaded. If true, the server uses the default leveldb provider; if
		// false, nothing is persisted.
		SaveData bool
		// Folder is the folder that the data of the world resides in.
		Folder string
		// ReadOnly specifies if the world should never be written to, even
		// when SaveData is true.
		ReadOnly bool
		// SpawnRadius is the radius in cubes around the world spawn within
		// which cubes are never unloaded. Set to -1 to disable spawn
		// protection.
		SpawnRadius int
		// UnloadBatch is the maximum number of unload queue entries examined
		// per tick. Set to 0 to use the default.
		UnloadBatch int
		// SaveIntervalSeconds is the interval, in seconds, at which modified
		// world data is saved automatically. Set to 0 to disable automatic
		// saving.
		SaveIntervalSeconds int
	}
	Generator struct {
		// Type selects the terrain generator. Valid values are "flat" and
		// "staged". Defaults to "flat".
		Type string
		// FlatHeight is the surface height, in blocks, of the flat
		// generator.
		FlatHeight int32
		// FlatBlock is the block ID the flat generator fills terrain with.
		FlatBlock uint16
	}
}

// Config converts a UserConfig to a Config, so that it may be used for
// creating a Server. An error is returned if creating the world provider
// failed.
func (uc UserConfig) Config(log *slog.Logger) (Config, error) {
	var err error
	conf := Config{
		Log:           log,
		Name:          uc.Server.Name,
		ReadOnlyWorld: uc.World.ReadOnly,
		SpawnRadius:   uc.World.SpawnRadius,
		UnloadBatch:   uc.World.UnloadBatch,
		SaveInterval:  time.Duration(uc.World.SaveIntervalSeconds) * time.Second,
	}
	if uc.World.SaveData {
		conf.WorldProvider, err = cubedb.Config{Log: log}.Open(uc.World.Folder)
		if err != nil {
			return conf, fmt.Errorf("create world provider: %w", err)
		}
	}
	switch strings.ToLower(strings.TrimSpace(uc.Generator.Type)) {
	case "", "flat":
		conf.Generator = generator.Flat{Height: uc.Generator.FlatHeight, Block: uc.Generator.FlatBlock}
	case "staged":
		flat := generator.Flat{Height: uc.Generator.FlatHeight, Block: uc.Generator.FlatBlock}
		conf.Generator = generator.Staged{Steps: map[world.Stage]generator.Step{
			world.StageTerrain: flat.TerrainStep(),
		}}
	default:
		return conf, fmt.Errorf("unknown generator type %q", uc.Generator.Type)
	}
	return conf, nil
}

// DefaultConfig returns a configuration with the default values filled out.
func DefaultConfig() UserConfig {
	c := UserConfig{}
	c.Server.Name = "Tallworld Server"
	c.World.SaveData = true
	c.World.Folder = "world"
	c.World.SpawnRadius = world.DefaultSpawnRadius
	c.World.SaveIntervalSeconds = 300
	c.Generator.Type = "flat"
	c.Generator.FlatHeight = 63
	c.Generator.FlatBlock = 1
	return c
}
