package liveshift

import "sync/atomic"

// gate is the shifter's lifecycle word. Process calls move the phase between
// free and busy; setters bump an in-flight count without touching the phase,
// so they never wait on processing. Close only succeeds from free with no
// setters inside, which keeps the engine alive for everything that got in.
type gate struct {
	word atomic.Int64
}

func (g *gate) phase() int64 {
	return g.word.Load() & gatePhaseMask
}

// acquire moves the gate from free to busy for one process call.
func (g *gate) acquire() error {
	for {
		w := g.word.Load()
		switch w & gatePhaseMask {
		case gateClosed:
			return ErrClosed
		case gateBusy:
			return ErrOperationInProgress
		}
		if g.word.CompareAndSwap(w, w|gateBusy) {
			return nil
		}
	}
}

// release ends a process call, leaving the setter count as is.
func (g *gate) release() {
	g.word.Add(-gateBusy)
}

// enter registers a setter. It fails once the gate is closed.
func (g *gate) enter() error {
	for {
		w := g.word.Load()
		if w&gatePhaseMask == gateClosed {
			return ErrClosed
		}
		if g.word.CompareAndSwap(w, w+gateSetterUnit) {
			return nil
		}
	}
}

func (g *gate) exit() {
	g.word.Add(-gateSetterUnit)
}

// close moves the gate to closed. It reports whether this call closed it;
// ErrOperationInProgress means a process call or a setter is still inside.
func (g *gate) close() (bool, error) {
	for {
		w := g.word.Load()
		switch {
		case w&gatePhaseMask == gateClosed:
			return false, nil
		case w != gateFree:
			return false, ErrOperationInProgress
		}
		if g.word.CompareAndSwap(gateFree, gateClosed) {
			return true, nil
		}
	}
}
