package cubedb

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/tallworld/tallworld/server/world"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Fatalf("close db: %v", err)
		}
	})
	return db
}

func TestCubeRoundTrip(t *testing.T) {
	db := openTestDB(t)

	pos := world.CubePos{10, -3, 25}
	blocks := make([]uint16, 4096)
	blocks[123] = 9
	if err := db.StoreCube(&world.CubeData{Pos: pos, Stage: world.StagePopulation, Blocks: blocks}); err != nil {
		t.Fatalf("StoreCube: %v", err)
	}

	data, err := db.LoadCube(pos)
	if err != nil {
		t.Fatalf("LoadCube: %v", err)
	}
	if data.Pos != pos || data.Stage != world.StagePopulation {
		t.Fatalf("loaded cube = %v at %v", data.Stage, data.Pos)
	}
	if data.Blocks[123] != 9 {
		t.Fatalf("block payload lost")
	}
}

func TestColumnRoundTrip(t *testing.T) {
	db := openTestDB(t)

	pos := world.ColumnPos{-7, 13}
	data := &world.ColumnData{Pos: pos, TerrainPopulated: true}
	data.Heights[5] = 64
	data.HeightsSet[5] = true
	if err := db.StoreColumn(data); err != nil {
		t.Fatalf("StoreColumn: %v", err)
	}

	got, err := db.LoadColumn(pos)
	if err != nil {
		t.Fatalf("LoadColumn: %v", err)
	}
	if got.Pos != pos || !got.TerrainPopulated {
		t.Fatalf("loaded column = %+v", got)
	}
	if !got.HeightsSet[5] || got.Heights[5] != 64 {
		t.Fatalf("height index lost")
	}
}

func TestLoadAbsentReturnsNotFound(t *testing.T) {
	db := openTestDB(t)

	if _, err := db.LoadCube(world.CubePos{1, 2, 3}); !errors.Is(err, world.ErrNotFound) {
		t.Fatalf("LoadCube: expected ErrNotFound, got %v", err)
	}
	if _, err := db.LoadColumn(world.ColumnPos{1, 2}); !errors.Is(err, world.ErrNotFound) {
		t.Fatalf("LoadColumn: expected ErrNotFound, got %v", err)
	}
}

func TestReopenKeepsData(t *testing.T) {
	dir := t.TempDir()
	db, err := Open(dir)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	pos := world.CubePos{4, 4, 4}
	if err := db.StoreCube(&world.CubeData{Pos: pos, Stage: world.StageLive, Blocks: make([]uint16, 4096)}); err != nil {
		t.Fatalf("StoreCube: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("close db: %v", err)
	}

	db, err = Open(dir)
	if err != nil {
		t.Fatalf("reopen db: %v", err)
	}
	defer db.Close()
	data, err := db.LoadCube(pos)
	if err != nil {
		t.Fatalf("LoadCube after reopen: %v", err)
	}
	if data.Stage != world.StageLive {
		t.Fatalf("stage after reopen = %v", data.Stage)
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	dir := t.TempDir()
	db, err := Open(dir)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	set := &world.Settings{Name: "Test", Spawn: world.CubePos{1, 2, 3}, CurrentTick: 99}
	db.SaveSettings(set)
	if err := db.Close(); err != nil {
		t.Fatalf("close db: %v", err)
	}

	db, err = Open(dir)
	if err != nil {
		t.Fatalf("reopen db: %v", err)
	}
	defer db.Close()
	got := &world.Settings{}
	db.Settings(got)
	if got.Name != "Test" || got.Spawn != (world.CubePos{1, 2, 3}) || got.CurrentTick != 99 {
		t.Fatalf("settings after reopen = %+v", got)
	}
}

func TestPlayerSpawnRoundTrip(t *testing.T) {
	db := openTestDB(t)

	id := uuid.New()
	if _, ok, err := db.LoadPlayerSpawnPosition(id); err != nil || ok {
		t.Fatalf("unset spawn: ok=%v err=%v", ok, err)
	}
	pos := world.CubePos{5, 6, 7}
	if err := db.SavePlayerSpawnPosition(id, pos); err != nil {
		t.Fatalf("SavePlayerSpawnPosition: %v", err)
	}
	got, ok, err := db.LoadPlayerSpawnPosition(id)
	if err != nil || !ok {
		t.Fatalf("LoadPlayerSpawnPosition: ok=%v err=%v", ok, err)
	}
	if got != pos {
		t.Fatalf("spawn = %v", got)
	}
}

func TestCorruptRecordTreatedAsAbsent(t *testing.T) {
	db := openTestDB(t)

	pos := world.CubePos{8, 8, 8}
	if err := db.StoreCube(&world.CubeData{Pos: pos, Stage: world.StageLive, Blocks: make([]uint16, 4096)}); err != nil {
		t.Fatalf("StoreCube: %v", err)
	}
	if err := db.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	// Flip a payload byte behind the checksum's back.
	key, err := cubeKey(pos)
	if err != nil {
		t.Fatalf("cubeKey: %v", err)
	}
	val, err := db.ldb.Get(key, nil)
	if err != nil {
		t.Fatalf("raw get: %v", err)
	}
	val[0] ^= 0xff
	if err := db.ldb.Put(key, val, nil); err != nil {
		t.Fatalf("raw put: %v", err)
	}

	if _, err := db.LoadCube(pos); !errors.Is(err, world.ErrNotFound) {
		t.Fatalf("corrupt record: expected ErrNotFound, got %v", err)
	}
}

func TestFlushMakesWritesDurable(t *testing.T) {
	db := openTestDB(t)

	pos := world.CubePos{2, 2, 2}
	if err := db.StoreCube(&world.CubeData{Pos: pos, Stage: world.StageLive, Blocks: nil}); err != nil {
		t.Fatalf("StoreCube: %v", err)
	}
	if err := db.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	key, err := cubeKey(pos)
	if err != nil {
		t.Fatalf("cubeKey: %v", err)
	}
	if _, err := db.ldb.Get(key, nil); err != nil {
		t.Fatalf("record not in leveldb after flush: %v", err)
	}
}
