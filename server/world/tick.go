package world

import (
	"time"
)

// ticker implements World ticking methods.
type ticker struct {
	interval time.Duration
}

// tickLoop starts ticking the World at the interval configured, advancing the
// tick counter and draining a bounded batch of the unload queue each tick.
func (t ticker) tickLoop(w *World) {
	tc := time.NewTicker(t.interval)
	defer tc.Stop()
	for {
		select {
		case <-tc.C:
			<-w.Exec(t.tick)
		case <-w.closing:
			// World is being closed: stop ticking.
			w.running.Done()
			return
		}
	}
}

// tick performs a single tick of the world.
func (t ticker) tick(tx *Tx) {
	w := tx.World()
	w.set.Lock()
	w.set.CurrentTick++
	w.set.Unlock()

	w.drainUnloadQueue(w.conf.UnloadBatch)
}

// autoSave runs a save loop at the configured interval, persisting all
// modified world data. With a non-positive interval it only waits for the
// world to close.
func (w *World) autoSave() {
	var c <-chan time.Time
	if w.conf.SaveInterval > 0 {
		t := time.NewTicker(w.conf.SaveInterval)
		defer t.Stop()
		c = t.C
	}
	for {
		select {
		case <-c:
			if !w.savingDisabled() {
				<-w.Exec(func(tx *Tx) { w.saveAll(false) })
				w.Flush()
			}
		case <-w.closing:
			w.running.Done()
			return
		}
	}
}
