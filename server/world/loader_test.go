package world

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestLoaderLoadsSphere(t *testing.T) {
	w := testWorld(t, Config{SpawnRadius: -1})

	loader := NewLoader(2, w, StageLive)
	<-w.Exec(func(tx *Tx) {
		loader.Move(tx, mgl64.Vec3{8, 8, 8})
		loader.Load(tx, 1000)

		centre := CubePos{0, 0, 0}
		if !loader.Loaded(centre) {
			t.Error("centre cube not loaded")
			return
		}
		if !loader.Loaded(CubePos{2, 0, 0}) {
			t.Error("cube on radius edge not loaded")
			return
		}
		if loader.Loaded(CubePos{2, 2, 2}) {
			t.Error("cube outside sphere loaded")
			return
		}
		if !tx.CubeExists(centre) {
			t.Error("loader did not make cubes resident")
			return
		}
	})
}

func TestLoaderLoadsClosestFirst(t *testing.T) {
	w := testWorld(t, Config{SpawnRadius: -1})

	loader := NewLoader(3, w, StageLive)
	<-w.Exec(func(tx *Tx) {
		loader.Move(tx, mgl64.Vec3{})
		loader.Load(tx, 1)
		if !loader.Loaded(CubePos{0, 0, 0}) {
			t.Error("first loaded cube is not the centre")
			return
		}
	})
}

func TestLoaderEvictsCubesOutsideRadius(t *testing.T) {
	w := testWorld(t, Config{SpawnRadius: -1})

	loader := NewLoader(1, w, StageLive)
	<-w.Exec(func(tx *Tx) {
		loader.Move(tx, mgl64.Vec3{})
		loader.Load(tx, 1000)
		if !loader.Loaded(CubePos{0, 0, 0}) {
			t.Error("centre cube not loaded")
			return
		}

		// Move far enough that nothing previously held stays in range.
		loader.Move(tx, mgl64.Vec3{160, 0, 0})
		if loader.Loaded(CubePos{0, 0, 0}) {
			t.Error("old centre still held after move")
			return
		}
		tx.DrainUnloadQueue(DefaultUnloadBatch)
		if tx.CubeExists(CubePos{0, 0, 0}) {
			t.Error("old centre still resident after drain")
			return
		}
	})
}

func TestLoaderClose(t *testing.T) {
	w := testWorld(t, Config{SpawnRadius: -1})

	loader := NewLoader(1, w, StageLive)
	<-w.Exec(func(tx *Tx) {
		loader.Move(tx, mgl64.Vec3{})
		loader.Load(tx, 1000)
		loader.Close(tx)
		tx.DrainUnloadQueue(DefaultUnloadBatch)
		if n := tx.LoadedColumnCount(); n != 0 {
			t.Errorf("%v columns resident after loader close and drain", n)
			return
		}
	})
}
