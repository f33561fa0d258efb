// ABOUTME: Run state machine: Idle, per-collection fetch/normalize/sort or fail, then Done
// ABOUTME: Transitions are checked so a run attempts every collection and mode exactly once

package aggregate

import "fmt"

// State is a phase of an aggregation run.
type State int

const (
	StateIdle State = iota
	StateFetchingCollection
	StateNormalizingItems
	StateSorted
	StateFailed
	StateDone
)

var stateNames = map[State]string{
	StateIdle:               "idle",
	StateFetchingCollection: "fetching",
	StateNormalizingItems:   "normalizing",
	StateSorted:             "sorted",
	StateFailed:             "failed",
	StateDone:               "done",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return fmt.Sprintf("state(%d)", int(s))
}

var transitions = map[State][]State{
	StateIdle:               {StateFetchingCollection, StateDone},
	StateFetchingCollection: {StateNormalizingItems, StateFailed},
	StateNormalizingItems:   {StateSorted},
	StateSorted:             {StateFetchingCollection, StateDone},
	StateFailed:             {StateFetchingCollection, StateDone},
}

// Transition is one state change, tagged with the collection being processed.
type Transition struct {
	From, To   State
	Mode       string
	Collection string
}

type machine struct {
	state    State
	observer func(Transition)
}

func (m *machine) to(next State, mode, collection string) error {
	for _, allowed := range transitions[m.state] {
		if allowed == next {
			t := Transition{From: m.state, To: next, Mode: mode, Collection: collection}
			m.state = next
			if m.observer != nil {
				m.observer(t)
			}
			return nil
		}
	}
	return fmt.Errorf("illegal transition %s -> %s", m.state, next)
}
