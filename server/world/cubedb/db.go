// Package cubedb implements a world provider storing columns and cubes in a
// leveldb database. Records are gob-encoded, zstd-compressed and carry a
// checksum footer; a record that fails its checksum is treated as absent so
// that corruption degrades into regeneration instead of a crash.
package cubedb

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/df-mc/goleveldb/leveldb"
	"github.com/df-mc/goleveldb/leveldb/opt"
	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	"github.com/tallworld/tallworld/server/world"
)

const (
	keySettings    = 0x76 // 'v'
	keyColumn      = 0x63 // 'c'
	keyCube        = 0x6b // 'k'
	keyPlayerSpawn = 0x70 // 'p'
)

// Config holds the settings that may be used to open a DB.
type Config struct {
	// Log is the Logger used for errors of the background write worker. If
	// nil, Log is set to slog.Default().
	Log *slog.Logger
	// Compression is the zstd compression level applied to records. The zero
	// value is zstd.SpeedDefault.
	Compression zstd.EncoderLevel
	// LDBOptions are leveldb specific options passed when opening the
	// database.
	LDBOptions *opt.Options
}

// writeJob is a pending write of the background worker. A nil done channel
// marks a record write; a non-nil one marks a flush barrier.
type writeJob struct {
	key  []byte
	seq  uint64
	done chan struct{}
}

type pendingWrite struct {
	val []byte
	seq uint64
}

// DB implements world.Provider on top of a leveldb database. Writes are
// buffered: Store methods record the value in a pending set and hand it to a
// background worker, so the transaction goroutine of the world never blocks
// on disk. Reads consult the pending set first, so a value is always visible
// to LoadCube and LoadColumn from the moment it was stored.
type DB struct {
	conf Config
	ldb  *leveldb.DB

	enc *zstd.Encoder
	dec *zstd.Decoder

	mu      sync.Mutex
	pending map[string]pendingWrite
	seq     uint64

	jobs    chan writeJob
	closing chan struct{}
	running sync.WaitGroup

	o sync.Once
}

// Open opens or creates a cubedb database at the directory passed using
// default options.
func Open(dir string) (*DB, error) {
	var conf Config
	return conf.Open(dir)
}

// Open opens or creates a cubedb database at the directory passed.
func (conf Config) Open(dir string) (*DB, error) {
	if conf.Log == nil {
		conf.Log = slog.Default()
	}
	if conf.Compression == 0 {
		conf.Compression = zstd.SpeedDefault
	}
	ldb, err := leveldb.OpenFile(dir, conf.LDBOptions)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(conf.Compression))
	if err != nil {
		return nil, fmt.Errorf("open db: create compressor: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("open db: create decompressor: %w", err)
	}
	db := &DB{
		conf:    conf,
		ldb:     ldb,
		enc:     enc,
		dec:     dec,
		pending: make(map[string]pendingWrite),
		jobs:    make(chan writeJob, 256),
		closing: make(chan struct{}),
	}
	db.running.Add(1)
	go db.writeLoop()
	return db, nil
}

// Settings loads the world settings into set. If the database has no settings
// stored yet, set is left as passed.
func (db *DB) Settings(set *world.Settings) {
	var data settingsData
	if err := db.load([]byte{keySettings}, &data); err != nil {
		if !errors.Is(err, world.ErrNotFound) {
			db.conf.Log.Error("load settings: " + err.Error())
		}
		return
	}
	set.Name = data.Name
	set.Spawn = world.CubePos(data.Spawn)
	set.CurrentTick = data.CurrentTick
	set.SavingDisabled = data.SavingDisabled
}

// SaveSettings stores the world settings passed.
func (db *DB) SaveSettings(set *world.Settings) {
	set.Lock()
	data := settingsData{
		Name:           set.Name,
		Spawn:          [3]int32(set.Spawn),
		CurrentTick:    set.CurrentTick,
		SavingDisabled: set.SavingDisabled,
	}
	set.Unlock()
	if err := db.store([]byte{keySettings}, data); err != nil {
		db.conf.Log.Error("save settings: " + err.Error())
	}
}

// LoadColumn loads the column at the position passed, returning
// world.ErrNotFound if it was never stored.
func (db *DB) LoadColumn(pos world.ColumnPos) (*world.ColumnData, error) {
	var data columnData
	if err := db.load(columnKey(pos), &data); err != nil {
		return nil, err
	}
	return &world.ColumnData{
		Pos:              world.ColumnPos(data.Pos),
		TerrainPopulated: data.TerrainPopulated,
		Heights:          data.Heights,
		HeightsSet:       data.HeightsSet,
	}, nil
}

// StoreColumn stores the column data passed.
func (db *DB) StoreColumn(data *world.ColumnData) error {
	return db.store(columnKey(data.Pos), columnData{
		Pos:              [2]int32(data.Pos),
		TerrainPopulated: data.TerrainPopulated,
		Heights:          data.Heights,
		HeightsSet:       data.HeightsSet,
	})
}

// LoadCube loads the cube at the position passed, returning
// world.ErrNotFound if it was never stored.
func (db *DB) LoadCube(pos world.CubePos) (*world.CubeData, error) {
	key, err := cubeKey(pos)
	if err != nil {
		return nil, err
	}
	var data cubeData
	if err := db.load(key, &data); err != nil {
		return nil, err
	}
	return &world.CubeData{
		Pos:    world.CubePos(data.Pos),
		Stage:  world.Stage(data.Stage),
		Blocks: data.Blocks,
	}, nil
}

// StoreCube stores the cube data passed.
func (db *DB) StoreCube(data *world.CubeData) error {
	key, err := cubeKey(data.Pos)
	if err != nil {
		return err
	}
	return db.store(key, cubeData{Pos: [3]int32(data.Pos), Stage: uint8(data.Stage), Blocks: data.Blocks})
}

// LoadPlayerSpawnPosition loads the spawn position stored for the player with
// the UUID passed. The bool returned is false if the player has none.
func (db *DB) LoadPlayerSpawnPosition(id uuid.UUID) (world.CubePos, bool, error) {
	var data [3]int32
	err := db.load(playerSpawnKey(id), &data)
	switch {
	case errors.Is(err, world.ErrNotFound):
		return world.CubePos{}, false, nil
	case err != nil:
		return world.CubePos{}, false, err
	}
	return world.CubePos(data), true, nil
}

// SavePlayerSpawnPosition stores the spawn position of the player with the
// UUID passed.
func (db *DB) SavePlayerSpawnPosition(id uuid.UUID, pos world.CubePos) error {
	return db.store(playerSpawnKey(id), [3]int32(pos))
}

// Flush blocks until every write buffered so far has reached leveldb.
func (db *DB) Flush() error {
	done := make(chan struct{})
	select {
	case db.jobs <- writeJob{done: done}:
		<-done
		return nil
	case <-db.closing:
		return nil
	}
}

// Close flushes pending writes, stops the background worker and closes the
// underlying database. It may be called multiple times.
func (db *DB) Close() error {
	db.o.Do(func() {
		close(db.closing)
		db.running.Wait()
		db.enc.Close()
		db.dec.Close()
	})
	return db.ldb.Close()
}

// store encodes v and hands it to the background worker.
func (db *DB) store(key []byte, v any) error {
	val, err := db.encodeRecord(v)
	if err != nil {
		return err
	}
	db.mu.Lock()
	db.seq++
	seq := db.seq
	db.pending[string(key)] = pendingWrite{val: val, seq: seq}
	db.mu.Unlock()

	select {
	case db.jobs <- writeJob{key: key, seq: seq}:
		return nil
	case <-db.closing:
		// The worker drains the pending set on shutdown, so the write is not
		// lost.
		return nil
	}
}

// load reads and decodes the record at key, consulting the pending write set
// before the database. A checksum failure is reported as world.ErrNotFound.
func (db *DB) load(key []byte, v any) error {
	db.mu.Lock()
	pw, ok := db.pending[string(key)]
	db.mu.Unlock()

	val := pw.val
	if !ok {
		var err error
		val, err = db.ldb.Get(key, nil)
		switch {
		case errors.Is(err, leveldb.ErrNotFound):
			return world.ErrNotFound
		case err != nil:
			return fmt.Errorf("load record: %w", err)
		}
	}
	if err := db.decodeRecord(val, v); err != nil {
		if errors.Is(err, errChecksum) {
			db.conf.Log.Error("load record: checksum mismatch, treating as absent")
			return world.ErrNotFound
		}
		return err
	}
	return nil
}

// writeLoop runs the background write worker. It writes pending records in
// arrival order and answers flush barriers once everything queued before them
// is durable. On shutdown it drains whatever is left before returning.
func (db *DB) writeLoop() {
	defer db.running.Done()
	for {
		select {
		case job := <-db.jobs:
			db.runJob(job)
		case <-db.closing:
			for {
				select {
				case job := <-db.jobs:
					db.runJob(job)
				default:
					db.drainPending()
					return
				}
			}
		}
	}
}

func (db *DB) runJob(job writeJob) {
	if job.done != nil {
		close(job.done)
		return
	}
	db.mu.Lock()
	pw, ok := db.pending[string(job.key)]
	db.mu.Unlock()
	if !ok || pw.seq != job.seq {
		// A newer write superseded this job; it will be written by the job
		// belonging to that write.
		return
	}
	if err := db.ldb.Put(job.key, pw.val, nil); err != nil {
		db.conf.Log.Error("write record: " + err.Error())
		return
	}
	db.mu.Lock()
	if cur, ok := db.pending[string(job.key)]; ok && cur.seq == job.seq {
		delete(db.pending, string(job.key))
	}
	db.mu.Unlock()
}

// drainPending writes every record still in the pending set. Used on
// shutdown, when jobs dropped because of the closed closing channel may have
// left entries behind.
func (db *DB) drainPending() {
	db.mu.Lock()
	defer db.mu.Unlock()
	for key, pw := range db.pending {
		if err := db.ldb.Put([]byte(key), pw.val, nil); err != nil {
			db.conf.Log.Error("write record: " + err.Error())
		}
		delete(db.pending, key)
	}
}

func columnKey(pos world.ColumnPos) []byte {
	key := make([]byte, 1, 9)
	key[0] = keyColumn
	return binary.BigEndian.AppendUint64(key, uint64(world.ColumnAddr(pos)))
}

func cubeKey(pos world.CubePos) ([]byte, error) {
	addr, err := world.CubeAddr(pos)
	if err != nil {
		return nil, err
	}
	key := make([]byte, 1, 9)
	key[0] = keyCube
	return binary.BigEndian.AppendUint64(key, uint64(addr)), nil
}

func playerSpawnKey(id uuid.UUID) []byte {
	key := make([]byte, 1, 17)
	key[0] = keyPlayerSpawn
	return append(key, id[:]...)
}
