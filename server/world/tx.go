package world

// Tx is a transaction on a World. Transactions run one at a time on the
// World's transaction goroutine, so all cache state observed and mutated
// through a Tx is consistent for the duration of the transaction. A Tx must
// not be used once the function passed to World.Exec returns.
type Tx struct {
	w      *World
	closed bool
}

const txClosedPanic = "world.Tx: use of transaction after transaction finishes is not permitted"

// World returns the World the transaction runs on.
func (tx *Tx) World() *World {
	tx.mustBeOpen()
	return tx.w
}

// EnsureCube is the central entry point of the cache: it makes sure the cube
// at the position passed is resident and has reached the target stage,
// loading the owning column and the cube from the Provider or delegating to
// the Generator as the policy allows.
//
// The cube returned is nil without an error when absence is a valid outcome
// under the policy passed. EnsureCube returns ErrUnsupportedPolicy if called
// with ForceLoad: force-loading is expressed through Tx.ForceLoad only. A
// generation failure is returned wrapped; persistence failures are logged
// and treated as absence.
func (tx *Tx) EnsureCube(pos CubePos, policy LoadPolicy, target Stage) (*Cube, error) {
	tx.mustBeOpen()
	return tx.w.ensureCube(tx, pos, policy, target)
}

// LoadColumn resolves the column at the position passed, loading it from the
// Provider or, under LoadOrGenerate, generating it. The column returned is
// nil when it cannot be resolved under the policy passed; that is a valid
// outcome, not an error.
func (tx *Tx) LoadColumn(pos ColumnPos, policy LoadPolicy) *Column {
	tx.mustBeOpen()
	return tx.w.loadColumn(pos, policy)
}

// ForceLoad loads or generates the cube at the position passed on behalf of
// the generation of forcer, and records the forced-load edge between the two
// in both directions. The forced cube is kept resident until its last forcer
// is removed.
func (tx *Tx) ForceLoad(forcer *Cube, pos CubePos) (*Cube, error) {
	tx.mustBeOpen()
	return tx.w.forceLoad(tx, forcer, pos)
}

// RegisterRequirement records that the cubes at the positions passed must
// remain resident until the dependent cube reaches the target stage. Called
// by generators before running a stage with cross-cube reads.
func (tx *Tx) RegisterRequirement(dependent *Cube, reason string, target Stage, required ...CubePos) {
	tx.mustBeOpen()
	tx.w.registerRequirement(dependent, reason, target, required)
}

// IsRequired reports whether the cube at the position passed must remain
// resident because another cube's generation has an unmet requirement on it.
func (tx *Tx) IsRequired(pos CubePos) bool {
	tx.mustBeOpen()
	if !CubeInRange(pos) {
		return false
	}
	return tx.w.deps.isRequired(cubeAddr(pos))
}

// ForcersOf returns the positions of the cubes whose generation forced the
// cube at pos to load.
func (tx *Tx) ForcersOf(pos CubePos) []CubePos {
	tx.mustBeOpen()
	if !CubeInRange(pos) {
		return nil
	}
	return addrsToPositions(tx.w.forced.forcersOf(cubeAddr(pos)))
}

// ForcedBy returns the positions of the cubes that the cube at pos forced to
// load.
func (tx *Tx) ForcedBy(pos CubePos) []CubePos {
	tx.mustBeOpen()
	if !CubeInRange(pos) {
		return nil
	}
	return addrsToPositions(tx.w.forced.forcedBy(cubeAddr(pos)))
}

// RemoveForcer removes every forced-load edge originating from the cube
// passed. Cubes it forced become eligible for unloading once their last
// forcer is gone.
func (tx *Tx) RemoveForcer(forcer *Cube) {
	tx.mustBeOpen()
	tx.w.forced.removeForcer(forcer.addr)
}

// QueueUnload appends the cube at the position passed to the unload queue,
// unless it lies within the spawn protection radius. The cube is only
// actually evicted by a later drain pass that re-checks whether it is still
// required.
func (tx *Tx) QueueUnload(pos CubePos) {
	tx.mustBeOpen()
	tx.w.queueUnload(pos)
}

// QueueColumnUnload queues an empty column for removal from the cache. If
// the column still has cubes, the drain pass leaves it alone.
func (tx *Tx) QueueColumnUnload(pos ColumnPos) {
	tx.mustBeOpen()
	tx.w.queueColumnUnload(pos)
}

// UnloadAll queues every resident cube for unloading. Spawn protection still
// applies.
func (tx *Tx) UnloadAll() {
	tx.mustBeOpen()
	tx.w.unloadAll()
}

// DrainUnloadQueue processes at most max entries from the front of the
// unload queue, evicting and persisting cubes that are no longer required
// and removing columns whose last cube was evicted. It returns the number of
// queue entries examined.
func (tx *Tx) DrainUnloadQueue(max int) int {
	tx.mustBeOpen()
	return tx.w.drainUnloadQueue(max)
}

// SaveAll persists every resident column and cube whose data changed since
// it was last saved, or all of them if force is true. Failures are per
// entity: one failing cube does not abort the pass.
func (tx *Tx) SaveAll(force bool) {
	tx.mustBeOpen()
	tx.w.saveAll(force)
}

// Cube returns the cube at the position passed, or nil if it is not
// resident. Cube never loads or generates.
func (tx *Tx) Cube(pos CubePos) *Cube {
	tx.mustBeOpen()
	return tx.w.cube(pos)
}

// CubeExists reports whether the cube at the position passed is resident.
func (tx *Tx) CubeExists(pos CubePos) bool {
	tx.mustBeOpen()
	return tx.w.cube(pos) != nil
}

// Column returns the column at the position passed, or nil if it is not
// resident.
func (tx *Tx) Column(pos ColumnPos) *Column {
	tx.mustBeOpen()
	return tx.w.columns[ColumnAddr(pos)]
}

// LoadedColumnCount returns the number of columns currently resident.
func (tx *Tx) LoadedColumnCount() int {
	tx.mustBeOpen()
	return len(tx.w.columns)
}

// DumpResident returns a human-readable listing of every resident column and
// the cubes it holds, for diagnostics.
func (tx *Tx) DumpResident() string {
	tx.mustBeOpen()
	return tx.w.dumpResident()
}

// Status returns a one-line summary of the cache: resident counts, queued
// unloads, unresolved requirements and forced-load edges.
func (tx *Tx) Status() string {
	tx.mustBeOpen()
	return tx.w.status()
}

func (tx *Tx) mustBeOpen() {
	if tx.closed {
		panic(txClosedPanic)
	}
}

func addrsToPositions(addrs []int64) []CubePos {
	if len(addrs) == 0 {
		return nil
	}
	positions := make([]CubePos, 0, len(addrs))
	for _, addr := range addrs {
		positions = append(positions, CubePosFromAddr(addr))
	}
	return positions
}

// ExecFunc is a function that performs a synchronised transaction on a World.
type ExecFunc func(tx *Tx)

// transaction is a type that may be added to the transaction queue of a
// World. Its Run method is called when the transaction is taken out of the
// queue.
type transaction interface {
	Run(w *World)
}

type normalTransaction struct {
	c chan struct{}
	f ExecFunc
}

func (ntx normalTransaction) Run(w *World) {
	tx := &Tx{w: w}
	ntx.f(tx)
	tx.closed = true
	close(ntx.c)
}
