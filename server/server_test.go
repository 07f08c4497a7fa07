package server

import (
	"log/slog"
	"testing"

	"github.com/tallworld/tallworld/server/world"
)

func TestServerLifecycle(t *testing.T) {
	uc := DefaultConfig()
	uc.World.Folder = t.TempDir()
	conf, err := uc.Config(slog.Default())
	if err != nil {
		t.Fatalf("convert config: %v", err)
	}
	srv := conf.New()

	pos := world.CubePos{0, 3, 0}
	<-srv.World().Exec(func(tx *world.Tx) {
		c, err := tx.EnsureCube(pos, world.LoadOrGenerate, world.StageLive)
		if err != nil {
			t.Errorf("EnsureCube: %v", err)
		}
		if c == nil {
			t.Error("no cube generated")
		}
	})
	if err := srv.Close(); err != nil {
		t.Fatalf("close server: %v", err)
	}

	// Reopening the same folder must see the persisted world.
	conf2, err := uc.Config(slog.Default())
	if err != nil {
		t.Fatalf("convert config: %v", err)
	}
	srv2 := conf2.New()
	defer srv2.Close()
	<-srv2.World().Exec(func(tx *world.Tx) {
		c, err := tx.EnsureCube(pos, world.LoadOnly, world.StageLive)
		if err != nil {
			t.Errorf("EnsureCube: %v", err)
		}
		if c == nil {
			t.Error("cube not persisted across restarts")
		}
	})
}

func TestDefaultConfigGenerator(t *testing.T) {
	uc := DefaultConfig()
	uc.World.SaveData = false
	uc.Generator.Type = "staged"
	if _, err := uc.Config(slog.Default()); err != nil {
		t.Fatalf("staged generator rejected: %v", err)
	}
	uc.Generator.Type = "nope"
	if _, err := uc.Config(slog.Default()); err == nil {
		t.Fatal("unknown generator type accepted")
	}
}
