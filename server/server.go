// Package server wires a world, its provider and its generator together into
// a runnable server process.
package server

import (
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/tallworld/tallworld/server/world"
)

// Server hosts a single world and owns its lifecycle.
type Server struct {
	conf Config
	w    *world.World

	o sync.Once
}

// New creates a Server using a default Config and a default flat generator.
// Nothing is persisted.
func New() *Server {
	uc := DefaultConfig()
	uc.World.SaveData = false
	conf, _ := uc.Config(slog.Default())
	return conf.New()
}

// New creates a Server using the Config passed. The world starts ticking
// immediately.
func (conf Config) New() *Server {
	if conf.Log == nil {
		conf.Log = slog.Default()
	}
	srv := &Server{conf: conf}
	srv.w = world.Config{
		Log:          conf.Log.With("world", conf.Name),
		Provider:     conf.WorldProvider,
		Generator:    conf.Generator,
		SpawnRadius:  conf.SpawnRadius,
		UnloadBatch:  conf.UnloadBatch,
		TickInterval: conf.TickInterval,
		SaveInterval: conf.SaveInterval,
		ReadOnly:     conf.ReadOnlyWorld,
	}.New()
	return srv
}

// World returns the world hosted by the Server.
func (srv *Server) World() *world.World {
	return srv.w
}

// Close shuts the server down, saving and closing the world. It may be called
// multiple times; only the first call has an effect.
func (srv *Server) Close() error {
	var err error
	srv.o.Do(func() {
		srv.conf.Log.Info("Server closing...")
		err = srv.w.Close()
		srv.conf.Log.Info("Server closed.")
	})
	return err
}

// CloseOnProgramEnd closes the server right before the program ends, so that
// all data of the world is saved. The channel returned is closed once the
// shutdown completes.
func (srv *Server) CloseOnProgramEnd() <-chan struct{} {
	done := make(chan struct{})
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		if err := srv.Close(); err != nil {
			srv.conf.Log.Error("close server: " + err.Error())
		}
		close(done)
	}()
	return done
}
