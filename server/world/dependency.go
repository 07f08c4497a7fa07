package world

import (
	"slices"

	"github.com/segmentio/fasthash/fnv1a"
)

// requirement records that a set of cubes must stay resident until the
// dependent cube reaches a target stage. Requirements are transient: they are
// removed as soon as they resolve or their dependent is discarded, so the
// dependency manager never grows with the amount of terrain generated.
type requirement struct {
	id        uint64
	dependent int64
	target    Stage
	required  map[int64]struct{}
	reason    string
}

// dependencyManager tracks the unresolved requirements of cubes whose
// generation is pending. It answers whether a cube must remain resident
// because another cube's generation still needs it.
//
// The manager is owned by the World and only mutated on its transaction
// goroutine.
type dependencyManager struct {
	// byDependent indexes requirements by the address of the dependent cube.
	byDependent map[int64][]*requirement
	// byRequired indexes requirements by the address of each required cube,
	// keyed by requirement ID. Kept strictly in sync with byDependent.
	byRequired map[int64]map[uint64]*requirement
}

func newDependencyManager() *dependencyManager {
	return &dependencyManager{
		byDependent: make(map[int64][]*requirement),
		byRequired:  make(map[int64]map[uint64]*requirement),
	}
}

// register records that the cubes at the addresses passed must stay resident
// until the dependent cube reaches the target stage. Registering the same
// (dependent, reason) pair again replaces the previous requirement.
func (m *dependencyManager) register(dependent *Cube, reason string, target Stage, required []int64) {
	if len(required) == 0 {
		return
	}
	if !dependent.Stage().Precedes(target) {
		// The dependent already reached the target stage, so the requirement
		// is resolved before it starts.
		return
	}
	id := fnv1a.AddUint64(fnv1a.HashString64(reason), uint64(dependent.addr))
	for _, req := range m.byDependent[dependent.addr] {
		if req.id == id {
			m.remove(req)
			break
		}
	}
	req := &requirement{
		id:        id,
		dependent: dependent.addr,
		target:    target,
		required:  make(map[int64]struct{}, len(required)),
		reason:    reason,
	}
	for _, addr := range required {
		req.required[addr] = struct{}{}
		reqs := m.byRequired[addr]
		if reqs == nil {
			reqs = make(map[uint64]*requirement)
			m.byRequired[addr] = reqs
		}
		reqs[id] = req
	}
	m.byDependent[dependent.addr] = append(m.byDependent[dependent.addr], req)
}

// isRequired reports whether any unresolved requirement references the cube
// at the address passed.
func (m *dependencyManager) isRequired(addr int64) bool {
	return len(m.byRequired[addr]) > 0
}

// onLoad re-evaluates the requirements of a cube that finished loading. A
// load may bring the cube's stage past a requirement's target, resolving it.
func (m *dependencyManager) onLoad(c *Cube) {
	m.resolveReached(c)
}

// onCubeProgress re-evaluates the requirements of a cube whose stage
// advanced, resolving those whose target stage has been reached.
func (m *dependencyManager) onCubeProgress(c *Cube) {
	m.resolveReached(c)
}

// onCubeDiscarded removes every requirement whose dependent is the cube
// passed: the generation that needed other cubes has itself gone away.
func (m *dependencyManager) onCubeDiscarded(c *Cube) {
	m.discardDependent(c.addr)
}

// discardDependent removes every requirement registered by the dependent at
// the address passed. Split out from onCubeDiscarded for dependents that
// never became resident, where no *Cube exists to hand over.
func (m *dependencyManager) discardDependent(addr int64) {
	for _, req := range slices.Clone(m.byDependent[addr]) {
		m.remove(req)
	}
}

func (m *dependencyManager) resolveReached(c *Cube) {
	for _, req := range slices.Clone(m.byDependent[c.addr]) {
		if !c.Stage().Precedes(req.target) {
			m.remove(req)
		}
	}
}

func (m *dependencyManager) remove(req *requirement) {
	for addr := range req.required {
		reqs := m.byRequired[addr]
		delete(reqs, req.id)
		if len(reqs) == 0 {
			delete(m.byRequired, addr)
		}
	}
	reqs := slices.DeleteFunc(m.byDependent[req.dependent], func(r *requirement) bool {
		return r.id == req.id
	})
	if len(reqs) == 0 {
		delete(m.byDependent, req.dependent)
	} else {
		m.byDependent[req.dependent] = reqs
	}
}

// outstanding returns the number of unresolved requirements.
func (m *dependencyManager) outstanding() int {
	n := 0
	for _, reqs := range m.byDependent {
		n += len(reqs)
	}
	return n
}
