package builder

import (
	"sync"

	"github.com/danmuck/sumoctl/internal/arsdk/frame"
)

// Transition is one step of a traced chain. To is nil for the terminal step,
// which carries Frame instead.
type Transition struct {
	From  string
	Op    string
	To    Stage
	Frame *frame.Frame
}

// Observer receives transitions from chains started with NewTraced.
type Observer interface {
	Observe(Transition)
}

// ObserverFunc adapts a plain function to Observer.
type ObserverFunc func(Transition)

func (f ObserverFunc) Observe(t Transition) { f(t) }

// Trail accumulates every transition it observes.
type Trail struct {
	mu    sync.Mutex
	steps []Transition
}

func (t *Trail) Observe(tr Transition) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.steps = append(t.steps, tr)
}

// Steps returns a copy of the recorded transitions.
func (t *Trail) Steps() []Transition {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Transition, len(t.steps))
	copy(out, t.steps)
	return out
}
