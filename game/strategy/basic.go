package strategy

import (
	"encoding/binary"
	"errors"
	"math/rand/v2"
	"sync"

	"github.com/wricardo/mcp-training/tankbattle/game/engine"
)

// Scripted replays a fixed action list
type Scripted struct {
	actions []engine.Action
	loop    bool
	next    int
}

func NewScripted(actions []engine.Action, loop bool) *Scripted {
	return &Scripted{actions: append([]engine.Action(nil), actions...), loop: loop}
}

func (s *Scripted) DecideAction(engine.BattlefieldView) engine.Action {
	if len(s.actions) == 0 {
		return engine.DoNothing
	}
	if s.next >= len(s.actions) {
		if !s.loop {
			return engine.DoNothing
		}
		s.next = 0
	}
	a := s.actions[s.next]
	s.next++
	return a
}

// MarshalBinary saves the script cursor
func (s *Scripted) MarshalBinary() ([]byte, error) {
	return binary.AppendUvarint(nil, uint64(s.next)), nil
}

// UnmarshalBinary restores a cursor saved by MarshalBinary
func (s *Scripted) UnmarshalBinary(data []byte) error {
	next, n := binary.Uvarint(data)
	if n <= 0 || next > uint64(len(s.actions)) {
		return errors.New("invalid script cursor")
	}
	s.next = int(next)
	return nil
}

// Manual plays actions pushed by an external caller, one per turn
type Manual struct {
	mu    sync.Mutex
	queue []engine.Action
}

func NewManual() *Manual {
	return &Manual{}
}

// Push appends actions to the queue
func (m *Manual) Push(actions ...engine.Action) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, actions...)
}

// Pending returns the number of queued actions
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

// Clear drops every queued action
func (m *Manual) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = nil
}

func (m *Manual) DecideAction(engine.BattlefieldView) engine.Action {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.queue) == 0 {
		return engine.DoNothing
	}
	a := m.queue[0]
	m.queue = m.queue[1:]
	return a
}

// Random picks uniformly from the action vocabulary
type Random struct {
	src *rand.PCG
	rng *rand.Rand
}

func NewRandom(seed int64) *Random {
	src := rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15)
	return &Random{src: src, rng: rand.New(src)}
}

func (r *Random) DecideAction(engine.BattlefieldView) engine.Action {
	return engine.Actions[r.rng.IntN(len(engine.Actions))]
}

// MarshalBinary saves the generator position
func (r *Random) MarshalBinary() ([]byte, error) {
	return r.src.MarshalBinary()
}

// UnmarshalBinary resumes the sequence saved by MarshalBinary
func (r *Random) UnmarshalBinary(data []byte) error {
	return r.src.UnmarshalBinary(data)
}
