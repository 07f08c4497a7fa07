package world

import (
	"math"
	"slices"

	"github.com/go-gl/mathgl/mgl64"
)

// Loader tracks a moving point of interest, such as a player, and keeps the
// cubes in a spherical radius around it loaded. Moving the Loader re-computes
// the set of cubes to load and queues cubes that fell outside the radius for
// unloading.
//
// A Loader must only be used through transactions on the World it was created
// for.
type Loader struct {
	r      int
	w      *World
	target Stage

	pos CubePos

	// loaded holds the cubes currently kept resident by this Loader.
	loaded map[CubePos]struct{}
	// loadQueue holds the positions still to be loaded around the current
	// centre, ordered by ascending distance.
	loadQueue []CubePos

	closed bool
}

// NewLoader creates a new Loader that keeps cubes within a radius of r cubes
// loaded around its position, generated up to the target stage. The Loader
// does not load anything until Move is called.
func NewLoader(r int, w *World, target Stage) *Loader {
	return &Loader{r: r, w: w, target: target, loaded: make(map[CubePos]struct{})}
}

// Radius returns the radius of the Loader in cubes.
func (l *Loader) Radius() int {
	return l.r
}

// ChangeRadius changes the radius of the Loader, re-evaluating which cubes
// fall inside it.
func (l *Loader) ChangeRadius(tx *Tx, r int) {
	tx.mustBeOpen()
	l.r = r
	l.evictOutside(tx)
	l.populateQueue()
}

// Move sets the position of the Loader from a world-space position, queueing
// cubes that fell outside the radius for unloading and scheduling the cubes
// that came into range for loading. Cubes are not loaded until Load is
// called.
func (l *Loader) Move(tx *Tx, pos mgl64.Vec3) {
	tx.mustBeOpen()
	centre := cubePosFromVec3(pos)
	if centre == l.pos && len(l.loaded) > 0 {
		return
	}
	l.pos = centre
	l.evictOutside(tx)
	l.populateQueue()
}

// Load loads at most n cubes from the load queue, closest first. It returns
// the number of cubes actually loaded. Cubes whose column cannot be resolved
// are skipped.
func (l *Loader) Load(tx *Tx, n int) int {
	tx.mustBeOpen()
	if l.closed {
		return 0
	}
	loaded := 0
	for loaded < n && len(l.loadQueue) > 0 {
		pos := l.loadQueue[0]
		l.loadQueue = l.loadQueue[1:]
		if _, ok := l.loaded[pos]; ok {
			continue
		}
		c, err := tx.EnsureCube(pos, LoadOrGenerate, l.target)
		if err != nil {
			l.w.conf.Log.Error("loader: "+err.Error(), "X", pos[0], "Y", pos[1], "Z", pos[2])
			continue
		}
		if c == nil {
			continue
		}
		l.loaded[pos] = struct{}{}
		loaded++
	}
	return loaded
}

// Loaded reports whether the Loader currently keeps the cube at the position
// passed resident.
func (l *Loader) Loaded(pos CubePos) bool {
	_, ok := l.loaded[pos]
	return ok
}

// Close queues all cubes held by the Loader for unloading and invalidates it.
func (l *Loader) Close(tx *Tx) {
	tx.mustBeOpen()
	for pos := range l.loaded {
		tx.QueueUnload(pos)
	}
	l.loaded = map[CubePos]struct{}{}
	l.loadQueue = nil
	l.closed = true
}

// evictOutside queues every held cube outside the current radius for
// unloading.
func (l *Loader) evictOutside(tx *Tx) {
	r2 := int64(l.r) * int64(l.r)
	for pos := range l.loaded {
		if distSq(pos, l.pos) > r2 {
			delete(l.loaded, pos)
			tx.QueueUnload(pos)
		}
	}
}

// populateQueue rebuilds the load queue with every in-range position not yet
// held, sorted by ascending distance from the centre.
func (l *Loader) populateQueue() {
	r := int32(l.r)
	r2 := int64(r) * int64(r)
	queue := l.loadQueue[:0]
	for dx := -r; dx <= r; dx++ {
		for dy := -r; dy <= r; dy++ {
			for dz := -r; dz <= r; dz++ {
				if int64(dx)*int64(dx)+int64(dy)*int64(dy)+int64(dz)*int64(dz) > r2 {
					continue
				}
				pos := CubePos{l.pos[0] + dx, l.pos[1] + dy, l.pos[2] + dz}
				if !CubeInRange(pos) {
					continue
				}
				if _, ok := l.loaded[pos]; ok {
					continue
				}
				queue = append(queue, pos)
			}
		}
	}
	slices.SortFunc(queue, func(a, b CubePos) int {
		return int(distSq(a, l.pos) - distSq(b, l.pos))
	})
	l.loadQueue = queue
}

func distSq(a, b CubePos) int64 {
	dx, dy, dz := int64(a[0]-b[0]), int64(a[1]-b[1]), int64(a[2]-b[2])
	return dx*dx + dy*dy + dz*dz
}

// cubePosFromVec3 returns the position of the cube containing the world-space
// position passed.
func cubePosFromVec3(vec mgl64.Vec3) CubePos {
	return CubePos{
		int32(math.Floor(vec[0])) >> 4,
		int32(math.Floor(vec[1])) >> 4,
		int32(math.Floor(vec[2])) >> 4,
	}
}
