package world

import (
	"log/slog"
	"time"
)

const (
	// DefaultSpawnRadius is the Chebyshev radius, in cubes, around the world
	// spawn within which cubes are never queued for unloading.
	DefaultSpawnRadius = 12
	// DefaultUnloadBatch is the maximum number of unload queue entries
	// examined per drain pass.
	DefaultUnloadBatch = 400
)

// Config may be used to create a new World. It holds a variety of fields that
// influence the World.
type Config struct {
	// Log is the Logger that will be used to log errors and debug messages to.
	// If set to nil, Log is set to slog.Default().
	Log *slog.Logger
	// Provider is the Provider used for storing and loading world data. If
	// left as nil, Provider is set to NopProvider and nothing is persisted.
	Provider Provider
	// Generator is the Generator asked to produce columns and cubes not found
	// in storage. If left as nil, Generator is set to NopGenerator.
	Generator Generator
	// SpawnRadius is the Chebyshev radius in cubes around the world spawn
	// within which cubes are never queued for unloading. If 0,
	// DefaultSpawnRadius is used. A negative value disables spawn protection
	// entirely.
	SpawnRadius int
	// UnloadBatch bounds the number of unload queue entries examined per
	// tick. If 0 or lower, DefaultUnloadBatch is used.
	UnloadBatch int
	// TickInterval is the interval at which the World ticks, draining the
	// unload queue. If 0 or lower, the World ticks 20 times per second.
	TickInterval time.Duration
	// SaveInterval is the interval at which all modified world data is
	// persisted. If 0 or lower, automatic saving is disabled; data is then
	// only saved on unload and on Close.
	SaveInterval time.Duration
	// ReadOnly specifies if the World should be read-only. If set to true,
	// the Provider is never written to.
	ReadOnly bool
}

// New creates a World using the Config. The World starts ticking as soon as
// it is returned and must be closed using World.Close when done with.
func (conf Config) New() *World {
	if conf.Log == nil {
		conf.Log = slog.Default()
	}
	if conf.Provider == nil {
		conf.Provider = NopProvider{}
	}
	if conf.Generator == nil {
		conf.Generator = NopGenerator{}
	}
	if conf.SpawnRadius == 0 {
		conf.SpawnRadius = DefaultSpawnRadius
	}
	if conf.UnloadBatch <= 0 {
		conf.UnloadBatch = DefaultUnloadBatch
	}
	if conf.TickInterval <= 0 {
		conf.TickInterval = time.Second / 20
	}
	set := defaultSettings()
	conf.Provider.Settings(set)

	w := &World{
		conf:         conf,
		set:          set,
		columns:      make(map[int64]*Column),
		unload:       newUnloadQueue(),
		deps:         newDependencyManager(),
		forced:       newForcedRegistry(),
		queue:        make(chan transaction, 128),
		queueClosing: make(chan struct{}),
		closing:      make(chan struct{}),
	}
	w.queueing.Add(1)
	go w.handleTransactions()

	w.running.Add(2)
	go ticker{interval: conf.TickInterval}.tickLoop(w)
	go w.autoSave()
	return w
}
