package world

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// LoadPolicy controls how far EnsureCube and LoadColumn may go to resolve a
// column or cube that is not resident.
type LoadPolicy uint8

const (
	// LoadOnly resolves from the cache or storage only. Absence is a valid
	// outcome.
	LoadOnly LoadPolicy = iota
	// LoadOrGenerate resolves from the cache or storage, and delegates to the
	// generator if nothing was found.
	LoadOrGenerate
	// ForceLoad is only valid for column resolution: it skips the cache and
	// re-reads from storage. Requesting a cube with ForceLoad fails with
	// ErrUnsupportedPolicy; force-loading cubes is expressed through
	// Tx.ForceLoad, which records the forced-load edge.
	ForceLoad
)

// String implements fmt.Stringer.
func (p LoadPolicy) String() string {
	switch p {
	case LoadOnly:
		return "load only"
	case LoadOrGenerate:
		return "load or generate"
	case ForceLoad:
		return "force load"
	}
	return "unknown"
}

// ErrUnsupportedPolicy is returned when a cube is requested with the
// ForceLoad policy. It signals a caller bug rather than a runtime condition.
var ErrUnsupportedPolicy = errors.New("world: cannot force load a cube through EnsureCube")

// World manages a cache of cubes grouped into columns. It decides which cubes
// are resident in memory, drives them through the generation pipeline of its
// Generator, persists them through its Provider and evicts them through a
// bounded unload queue, guaranteeing that cubes required by the in-progress
// generation of other cubes are never prematurely unloaded.
//
// All mutation of the cache happens on a single transaction goroutine; use
// World.Exec to run operations against it.
type World struct {
	conf Config

	queue        chan transaction
	queueClosing chan struct{}
	queueing     sync.WaitGroup

	o sync.Once

	set *Settings

	closing chan struct{}
	running sync.WaitGroup

	// columns holds the resident columns keyed by their packed address. A
	// column is resident while it has at least one loaded cube, or until the
	// drain pass removes it after its last cube was evicted.
	columns map[int64]*Column

	unload *unloadQueue
	deps   *dependencyManager
	forced *forcedRegistry
}

// New creates a new initialised world. The world may be used right away, but
// nothing will be persisted until it has been given a provider other than the
// default NopProvider.
func New() *World {
	var conf Config
	return conf.New()
}

// Name returns the display name of the world.
func (w *World) Name() string {
	w.set.Lock()
	defer w.set.Unlock()
	return w.set.Name
}

// CurrentTick returns the current tick counter of the world.
func (w *World) CurrentTick() int64 {
	if w == nil {
		return 0
	}
	w.set.Lock()
	defer w.set.Unlock()
	return w.set.CurrentTick
}

// Spawn returns the spawn point of the world in cube coordinates.
func (w *World) Spawn() CubePos {
	if w == nil {
		return CubePos{}
	}
	w.set.Lock()
	defer w.set.Unlock()
	return w.set.Spawn
}

// SetSpawn sets the spawn point of the world. Cubes within the protection
// radius of the new spawn are no longer queued for unloading.
func (w *World) SetSpawn(pos CubePos) {
	if w == nil {
		return
	}
	w.set.Lock()
	defer w.set.Unlock()
	w.set.Spawn = pos
}

// PlayerSpawn returns the spawn position of the player with the UUID passed in
// this world, falling back to the world spawn if the player has none stored.
func (w *World) PlayerSpawn(id uuid.UUID) CubePos {
	if w == nil {
		return CubePos{}
	}
	pos, exist, err := w.conf.Provider.LoadPlayerSpawnPosition(id)
	if err != nil {
		w.conf.Log.Error("load player spawn: "+err.Error(), "ID", id)
		return w.Spawn()
	}
	if !exist {
		return w.Spawn()
	}
	return pos
}

// SetPlayerSpawn sets the spawn position of the player with the UUID passed in
// this world.
func (w *World) SetPlayerSpawn(id uuid.UUID, pos CubePos) {
	if w == nil {
		return
	}
	if err := w.conf.Provider.SavePlayerSpawnPosition(id, pos); err != nil {
		w.conf.Log.Error("save player spawn: "+err.Error(), "ID", id)
	}
}

// SetSavingDisabled stops or resumes draining of the unload queue and
// automatic saving, for maintenance windows.
func (w *World) SetSavingDisabled(disabled bool) {
	if w == nil {
		return
	}
	w.set.Lock()
	defer w.set.Unlock()
	w.set.SavingDisabled = disabled
}

// savingDisabled returns the SavingDisabled flag under the settings lock.
func (w *World) savingDisabled() bool {
	w.set.Lock()
	defer w.set.Unlock()
	return w.set.SavingDisabled
}

// Exec performs a synchronised transaction f on the World. Exec returns a
// channel that is closed once the transaction is complete.
func (w *World) Exec(f ExecFunc) <-chan struct{} {
	c := make(chan struct{})
	w.queue <- normalTransaction{c: c, f: f}
	return c
}

// handleTransactions continuously reads transactions from the queue and runs
// them.
func (w *World) handleTransactions() {
	for {
		select {
		case tx := <-w.queue:
			tx.Run(w)
		case <-w.queueClosing:
			w.queueing.Done()
			return
		}
	}
}

// Flush blocks until all writes buffered by the Provider are durable.
func (w *World) Flush() {
	if err := w.conf.Provider.Flush(); err != nil {
		w.conf.Log.Error("flush provider: " + err.Error())
	}
}

// Close saves all resident world data and closes the Provider. It may be
// called multiple times, but only the first call has an effect.
func (w *World) Close() error {
	w.o.Do(w.close)
	return nil
}

// close stops the world from ticking, saves all columns and cubes and closes
// the provider.
func (w *World) close() {
	<-w.Exec(func(tx *Tx) {
		w.saveAll(true)
		if !w.conf.ReadOnly {
			w.conf.Provider.SaveSettings(w.set)
		}
	})

	close(w.closing)
	w.running.Wait()

	close(w.queueClosing)
	w.queueing.Wait()

	w.Flush()
	w.conf.Log.Debug("Closing provider...")
	if err := w.conf.Provider.Close(); err != nil {
		w.conf.Log.Error("close world provider: " + err.Error())
	}
}

// ensureCube implements Tx.EnsureCube. See there for the contract.
func (w *World) ensureCube(tx *Tx, pos CubePos, policy LoadPolicy, target Stage) (*Cube, error) {
	if policy == ForceLoad {
		return nil, ErrUnsupportedPolicy
	}
	if !CubeInRange(pos) {
		return nil, fmt.Errorf("%w: %v", ErrOutOfRange, pos)
	}

	col := w.columns[ColumnAddr(pos.Column())]
	if col == nil {
		col = w.loadColumn(pos.Column(), policy)
	}
	if col == nil {
		// The column could not be resolved under the policy passed. Under
		// LoadOrGenerate that means generation of the column itself failed.
		if policy == LoadOrGenerate {
			w.conf.Log.Error("load cube: column could not be resolved", "X", pos[0], "Y", pos[1], "Z", pos[2])
		}
		return nil, nil
	}

	cube := col.Cube(pos.Y())
	if cube != nil {
		// Resume generation if the cube has yet to reach the target stage.
		if cube.Stage().Precedes(target) {
			if err := w.conf.Generator.AdvanceCube(tx, cube, target); err != nil {
				return cube, fmt.Errorf("generate cube %v: %w", pos, err)
			}
			w.deps.onCubeProgress(cube)
		}
		return cube, nil
	}

	data, err := w.conf.Provider.LoadCube(pos)
	if err != nil && !errors.Is(err, ErrNotFound) {
		// Persistence failures are not fatal: log and fail open toward
		// regeneration or absence.
		w.conf.Log.Error("load cube: "+err.Error(), "X", pos[0], "Y", pos[1], "Z", pos[2])
		err = ErrNotFound
	}
	switch {
	case err == nil:
		cube = w.cubeFrom(data)
		col.setCube(cube)
		if cube.Stage().Precedes(target) {
			if aerr := w.conf.Generator.AdvanceCube(tx, cube, target); aerr != nil {
				w.finishCubeLoad(col, cube)
				return cube, fmt.Errorf("generate cube %v: %w", pos, aerr)
			}
		}
	default:
		if policy != LoadOrGenerate {
			return nil, nil
		}
		cube, err = w.conf.Generator.GenerateCube(tx, pos, target)
		if err != nil {
			w.discardFailedGeneration(pos)
			return nil, fmt.Errorf("generate cube %v: %w", pos, err)
		}
		col.setCube(cube)
	}

	w.finishCubeLoad(col, cube)
	return cube, nil
}

// discardFailedGeneration releases the registrations a generator made on
// behalf of a cube whose generation failed before it became resident. The
// generator may have force-loaded neighbours and registered requirements for
// the cube; since the cube is discarded, those must not keep pinning their
// targets.
func (w *World) discardFailedGeneration(pos CubePos) {
	addr := cubeAddr(pos)
	w.deps.discardDependent(addr)
	w.forced.removeForcer(addr)
}

// finishCubeLoad runs the column and cube lifecycle hooks after a cube became
// resident and notifies the dependency manager so that pending requirements
// can be re-evaluated.
func (w *World) finishCubeLoad(col *Column, cube *Cube) {
	if !col.loaded {
		col.onLoad()
	}
	col.markTerrainPopulated()
	cube.onLoad()
	w.deps.onLoad(cube)
}

// loadColumn resolves the column at the position passed: from the cache
// unless ForceLoad is passed, then from the provider, then from the generator
// if the policy allows. It returns nil if the column could not be resolved;
// persistence failures are logged and treated as absence.
func (w *World) loadColumn(pos ColumnPos, policy LoadPolicy) *Column {
	addr := ColumnAddr(pos)
	if policy != ForceLoad {
		if col, ok := w.columns[addr]; ok {
			return col
		}
	}
	var col *Column
	data, err := w.conf.Provider.LoadColumn(pos)
	switch {
	case err == nil:
		col = w.columnFrom(data)
	case errors.Is(err, ErrNotFound):
	default:
		w.conf.Log.Error("load column: "+err.Error(), "X", pos[0], "Z", pos[1])
	}
	if col == nil {
		if policy != LoadOrGenerate && policy != ForceLoad {
			return nil
		}
		col = w.conf.Generator.GenerateColumn(pos)
		if col == nil {
			return nil
		}
	}
	w.columns[addr] = col
	col.onLoad()
	return col
}

// forceLoad implements Tx.ForceLoad: a load-only fast path, falling back to
// generation at StageTerrain, followed by registration of the forced-load
// edge. The registry is only updated for a cube that actually exists; a
// failure of the underlying load path propagates as-is.
func (w *World) forceLoad(tx *Tx, forcer *Cube, pos CubePos) (*Cube, error) {
	if _, err := w.ensureCube(tx, pos, LoadOnly, StageTerrain); err != nil {
		return nil, err
	}
	cube := w.cube(pos)
	if cube == nil {
		var err error
		cube, err = w.ensureCube(tx, pos, LoadOrGenerate, StageTerrain)
		if err != nil {
			return nil, err
		}
		if cube == nil {
			return nil, fmt.Errorf("force load cube %v: column could not be resolved", pos)
		}
	}
	w.forced.addEdge(forcer.addr, cube.addr)
	return cube, nil
}

// registerRequirement implements Tx.RegisterRequirement. Positions outside the
// packable range are dropped.
func (w *World) registerRequirement(dependent *Cube, reason string, target Stage, required []CubePos) {
	addrs := make([]int64, 0, len(required))
	for _, pos := range required {
		if !CubeInRange(pos) {
			continue
		}
		addrs = append(addrs, cubeAddr(pos))
	}
	w.deps.register(dependent, reason, target, addrs)
}

// queueUnload implements Tx.QueueUnload.
func (w *World) queueUnload(pos CubePos) {
	if w.cubeNearSpawn(pos) {
		return
	}
	w.unload.push(pos)
}

// columnUnloadY is the Y sentinel used to queue an empty column for removal.
// It lies outside the packable cube range, so it can never collide with a
// real cube.
const columnUnloadY = MinCubeY - 1

// queueColumnUnload implements Tx.QueueColumnUnload. The drain pass removes
// the column once it finds it without cubes; if a cube gets loaded between
// this call and the drain, the entry is a no-op.
func (w *World) queueColumnUnload(pos ColumnPos) {
	if col, ok := w.columns[ColumnAddr(pos)]; !ok || col.HasCubes() {
		return
	}
	w.unload.push(CubePos{pos[0], columnUnloadY, pos[1]})
}

// unloadAll implements Tx.UnloadAll.
func (w *World) unloadAll() {
	for _, col := range w.columns {
		for _, cube := range col.Cubes() {
			w.queueUnload(cube.Pos())
		}
	}
}

// drainUnloadQueue examines at most max entries from the front of the unload
// queue. Entries still required by the dependency manager or held by a live
// forcer are skipped without being re-enqueued; a later QueueUnload re-adds
// them if still warranted. Persistence errors during eviction are logged per
// entity and never abort the batch.
func (w *World) drainUnloadQueue(max int) int {
	if w.savingDisabled() {
		return 0
	}

	processed := 0
	for processed < max {
		pos, ok := w.unload.pop()
		if !ok {
			break
		}
		processed++

		if CubeInRange(pos) {
			addr := cubeAddr(pos)
			if w.deps.isRequired(addr) || w.forced.hasForcers(addr) {
				continue
			}
		}

		col := w.columns[ColumnAddr(pos.Column())]
		if col == nil {
			continue
		}
		if cube := col.removeCube(pos.Y()); cube != nil {
			cube.onUnload()
			w.deps.onCubeDiscarded(cube)
			w.forced.discard(cube.addr)
			w.saveCube(cube)
		}
		if !col.HasCubes() {
			col.onUnload()
			delete(w.columns, col.addr)
			w.saveColumn(col)
		}
	}
	return processed
}

// saveAll persists every column and cube that needs saving, or all of them if
// force is true.
func (w *World) saveAll(force bool) {
	if w.conf.ReadOnly {
		return
	}
	w.conf.Log.Debug("Saving columns in memory to disk...")
	for _, col := range w.columns {
		if col.NeedsSaving(force) {
			w.saveColumn(col)
		}
		for _, cube := range col.Cubes() {
			if force || cube.NeedsSaving() {
				w.saveCube(cube)
			}
		}
	}
}

// saveColumn persists a single column, logging a failure instead of returning
// it so that batch passes are never aborted by one bad entity. The modified
// flag is kept on failure so the next pass retries.
func (w *World) saveColumn(col *Column) {
	if w.conf.ReadOnly {
		return
	}
	if err := w.conf.Provider.StoreColumn(w.columnTo(col)); err != nil {
		w.conf.Log.Error("save column: "+err.Error(), "X", col.pos[0], "Z", col.pos[1])
		return
	}
	col.modified = false
}

// saveCube persists a single cube. Failures are handled like saveColumn.
func (w *World) saveCube(cube *Cube) {
	if w.conf.ReadOnly {
		return
	}
	if err := w.conf.Provider.StoreCube(w.cubeTo(cube)); err != nil {
		w.conf.Log.Error("save cube: "+err.Error(), "X", cube.pos[0], "Y", cube.pos[1], "Z", cube.pos[2])
		return
	}
	cube.modified = false
}

// cube returns the resident cube at the position passed, or nil.
func (w *World) cube(pos CubePos) *Cube {
	col := w.columns[ColumnAddr(pos.Column())]
	if col == nil {
		return nil
	}
	return col.Cube(pos.Y())
}

// cubeNearSpawn reports whether pos lies within the spawn protection radius,
// measured as Chebyshev distance in cubes.
func (w *World) cubeNearSpawn(pos CubePos) bool {
	if w.conf.SpawnRadius < 0 {
		return false
	}
	spawn := w.Spawn()
	r := int32(w.conf.SpawnRadius)
	return abs32(spawn[0]-pos[0]) <= r && abs32(spawn[1]-pos[1]) <= r && abs32(spawn[2]-pos[2]) <= r
}

// status returns a one-line summary of the cache for diagnostics.
func (w *World) status() string {
	cubes := 0
	for _, col := range w.columns {
		cubes += len(col.cubes)
	}
	return fmt.Sprintf("%v columns, %v cubes, %v queued unloads, %v unresolved requirements, %v forced edges",
		len(w.columns), cubes, w.unload.len(), w.deps.outstanding(), w.forced.edges())
}

// dumpResident returns a listing of the resident columns and their cubes,
// ordered by column address for determinism.
func (w *World) dumpResident() string {
	addrs := make([]int64, 0, len(w.columns))
	for addr := range w.columns {
		addrs = append(addrs, addr)
	}
	slices.Sort(addrs)

	sb := strings.Builder{}
	for _, addr := range addrs {
		col := w.columns[addr]
		fmt.Fprintf(&sb, "Column[%v, %v] {", col.pos[0], col.pos[1])
		for i, cube := range col.Cubes() {
			if i > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "Cube[%v %v]", cube.pos[1], cube.stage)
		}
		sb.WriteString("}\n")
	}
	return sb.String()
}

// columnTo converts a Column to its serialisable form.
func (w *World) columnTo(col *Column) *ColumnData {
	data := &ColumnData{Pos: col.pos, TerrainPopulated: col.terrainPopulated}
	for x := uint8(0); x < 16; x++ {
		for z := uint8(0); z < 16; z++ {
			if y, ok := col.HeightAt(x, z); ok {
				i := int(x)<<4 | int(z)
				data.Heights[i] = y
				data.HeightsSet[i] = true
			}
		}
	}
	return data
}

// columnFrom converts the serialisable form of a column back to a Column.
func (w *World) columnFrom(data *ColumnData) *Column {
	col := NewColumn(data.Pos)
	col.terrainPopulated = data.TerrainPopulated
	for x := uint8(0); x < 16; x++ {
		for z := uint8(0); z < 16; z++ {
			i := int(x)<<4 | int(z)
			if data.HeightsSet[i] {
				col.SetHeight(x, z, data.Heights[i])
			}
		}
	}
	col.modified = false
	return col
}

// cubeTo converts a Cube to its serialisable form.
func (w *World) cubeTo(cube *Cube) *CubeData {
	blocks := make([]uint16, len(cube.blocks))
	copy(blocks, cube.blocks[:])
	return &CubeData{Pos: cube.pos, Stage: cube.stage, Blocks: blocks}
}

// cubeFrom converts the serialisable form of a cube back to a Cube. The
// stage is taken as persisted; it only ever moves forward afterwards.
func (w *World) cubeFrom(data *CubeData) *Cube {
	cube := NewCube(data.Pos)
	cube.stage = data.Stage
	copy(cube.blocks[:], data.Blocks)
	cube.modified = false
	return cube
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}
