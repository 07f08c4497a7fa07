package world

import "slices"

// forcedRegistry records which cubes were loaded because the generation of
// another cube forced them to. The relation is kept in both directions so
// that either side can be queried cheaply: forward maps a forcer to the cubes
// it forced, reverse maps a forced cube to its forcers. An edge exists in one
// index iff it exists in the other.
//
// The registry tracks existence prerequisites introduced by the generator; it
// is distinct from the dependency manager, which tracks generation-stage
// prerequisites.
type forcedRegistry struct {
	forward map[int64]map[int64]struct{}
	reverse map[int64]map[int64]struct{}
}

func newForcedRegistry() *forcedRegistry {
	return &forcedRegistry{
		forward: make(map[int64]map[int64]struct{}),
		reverse: make(map[int64]map[int64]struct{}),
	}
}

// addEdge records that the generation of the cube at forcer caused the cube
// at forced to be loaded. Adding an existing edge has no effect.
func (r *forcedRegistry) addEdge(forcer, forced int64) {
	fw := r.forward[forcer]
	if fw == nil {
		fw = make(map[int64]struct{})
		r.forward[forcer] = fw
	}
	rv := r.reverse[forced]
	if rv == nil {
		rv = make(map[int64]struct{})
		r.reverse[forced] = rv
	}
	fw[forced] = struct{}{}
	rv[forcer] = struct{}{}
}

// hasForcers reports whether at least one live forcer keeps the cube at the
// address passed loaded.
func (r *forcedRegistry) hasForcers(addr int64) bool {
	return len(r.reverse[addr]) > 0
}

// forcersOf returns the addresses of the cubes whose generation forced the
// cube at addr to load, sorted for determinism.
func (r *forcedRegistry) forcersOf(addr int64) []int64 {
	return sortedKeys(r.reverse[addr])
}

// forcedBy returns the addresses of the cubes that the cube at addr forced to
// load, sorted for determinism.
func (r *forcedRegistry) forcedBy(addr int64) []int64 {
	return sortedKeys(r.forward[addr])
}

// removeForcer removes every outgoing edge of the cube at the address passed,
// pruning the reverse index accordingly. Called when a forcer cube is
// discarded: the cubes it forced may then become eligible for unloading.
func (r *forcedRegistry) removeForcer(addr int64) {
	for forced := range r.forward[addr] {
		rv := r.reverse[forced]
		delete(rv, addr)
		if len(rv) == 0 {
			delete(r.reverse, forced)
		}
	}
	delete(r.forward, addr)
}

// discard removes the cube at the address passed from both sides of the
// relation: its outgoing edges and any incoming edges referencing it.
func (r *forcedRegistry) discard(addr int64) {
	r.removeForcer(addr)
	for forcer := range r.reverse[addr] {
		fw := r.forward[forcer]
		delete(fw, addr)
		if len(fw) == 0 {
			delete(r.forward, forcer)
		}
	}
	delete(r.reverse, addr)
}

// edges returns the total number of forced-load edges.
func (r *forcedRegistry) edges() int {
	n := 0
	for _, fw := range r.forward {
		n += len(fw)
	}
	return n
}

func sortedKeys(set map[int64]struct{}) []int64 {
	if len(set) == 0 {
		return nil
	}
	keys := make([]int64, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
