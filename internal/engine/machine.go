package engine

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// State is the lifecycle position of a test session.
//
//	None -> Lobby -> Running -> Submitting -> Terminal
//
// Terminal is absorbing. Running re-enters itself on resume with a
// recomputed remaining time; the clock never resets.
type State int

const (
	StateNone State = iota
	StateLobby
	StateRunning
	StateSubmitting
	StateTerminal
)

func (s State) String() string {
	switch s {
	case StateNone:
		return "none"
	case StateLobby:
		return "lobby"
	case StateRunning:
		return "running"
	case StateSubmitting:
		return "submitting"
	case StateTerminal:
		return "terminal"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var (
	ErrNotStarted      = errors.New("session has not been started")
	ErrAlreadyStarted  = errors.New("session already started")
	ErrSubmitInFlight  = errors.New("a submission is already in flight")
	ErrTerminal        = errors.New("session is terminal")
	ErrUnknownQuestion = errors.New("question is not part of this session")
	ErrInvalidChoice   = errors.New("choice must be one of A, B, C, D")
)

// Snapshot is the persisted view of a session the machine operates on.
// It is a plain value; the store layer maps it to and from the database row.
type Snapshot struct {
	QuestionIDs   []uint
	Answers       map[uint]string
	Cursor        int
	RemainingSec  int
	RemainingAsOf time.Time
	Started       bool
	StartedAt     *time.Time
}

// Remaining derives the live remaining seconds from the persisted value and
// the instant it was recorded at. The persisted number alone is never
// trusted: the page may have been closed for any amount of wall-clock time.
func Remaining(remainingSec int, asOf, now time.Time) int {
	elapsed := int(now.Sub(asOf) / time.Second)
	if elapsed < 0 {
		elapsed = 0
	}
	remaining := remainingSec - elapsed
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Machine is the explicit state machine behind a candidate's test session,
// independent of any transport or rendering layer. All operations are safe
// for concurrent use; a single in-flight guard prevents the timer-expiry
// path and a manual submit racing each other into a double submission.
type Machine struct {
	mu    sync.Mutex
	clock Clock
	snap  Snapshot
	state State
	qset  map[uint]struct{}
}

// New builds a machine over a session snapshot. The state is derived from
// the snapshot: a started session resumes as Running, otherwise Lobby.
func New(snap Snapshot, clock Clock) *Machine {
	if clock == nil {
		clock = SystemClock()
	}
	if snap.Answers == nil {
		snap.Answers = map[uint]string{}
	}
	qset := make(map[uint]struct{}, len(snap.QuestionIDs))
	for _, id := range snap.QuestionIDs {
		qset[id] = struct{}{}
	}
	state := StateLobby
	if snap.Started {
		state = StateRunning
	}
	return &Machine{clock: clock, snap: snap, state: state, qset: qset}
}

func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Remaining reports the live remaining seconds. In the lobby the budget is
// not running, so the persisted value is returned as-is.
func (m *Machine) Remaining() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.remainingLocked()
}

func (m *Machine) remainingLocked() int {
	if !m.snap.Started {
		return m.snap.RemainingSec
	}
	return Remaining(m.snap.RemainingSec, m.snap.RemainingAsOf, m.clock.Now())
}

// Start leaves the lobby and starts the countdown.
func (m *Machine) Start() (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch m.state {
	case StateLobby:
	case StateRunning, StateSubmitting:
		return Snapshot{}, ErrAlreadyStarted
	default:
		return Snapshot{}, ErrTerminal
	}
	now := m.clock.Now()
	m.snap.Started = true
	m.snap.StartedAt = &now
	m.snap.RemainingAsOf = now
	m.state = StateRunning
	return m.snapshotLocked(), nil
}

// Answer records a selected letter for a question in the frozen set.
func (m *Machine) Answer(questionID uint, choice string) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.runningLocked(); err != nil {
		return Snapshot{}, err
	}
	if _, ok := m.qset[questionID]; !ok {
		return Snapshot{}, ErrUnknownQuestion
	}
	letter := strings.ToUpper(strings.TrimSpace(choice))
	switch letter {
	case "A", "B", "C", "D":
	default:
		return Snapshot{}, ErrInvalidChoice
	}
	m.snap.Answers[questionID] = letter
	return m.snapshotLocked(), nil
}

// Tick re-anchors the persisted remaining time at the current instant and
// reports whether the budget is exhausted. Callers run it once per second
// for the UI and on every periodic checkpoint; correctness never depends on
// how often it actually fires.
func (m *Machine) Tick() (remaining int, expired bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateRunning {
		return m.remainingLocked(), false
	}
	now := m.clock.Now()
	remaining = Remaining(m.snap.RemainingSec, m.snap.RemainingAsOf, now)
	m.snap.RemainingSec = remaining
	m.snap.RemainingAsOf = now
	return remaining, remaining == 0
}

// BeginSubmit claims the single submission slot. Exactly one caller wins;
// everyone else gets ErrSubmitInFlight (or ErrTerminal once done).
func (m *Machine) BeginSubmit() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch m.state {
	case StateRunning:
		m.state = StateSubmitting
		return nil
	case StateSubmitting:
		return ErrSubmitInFlight
	case StateTerminal:
		return ErrTerminal
	default:
		return ErrNotStarted
	}
}

// FinishSubmit releases the slot: success is terminal, failure returns to
// Running so the submission can be retried rather than silently dropped.
func (m *Machine) FinishSubmit(success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateSubmitting {
		return
	}
	if success {
		m.state = StateTerminal
		return
	}
	m.state = StateRunning
}

// Snapshot returns a copy of the current session state.
func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Machine) runningLocked() error {
	switch m.state {
	case StateRunning:
		return nil
	case StateSubmitting:
		return ErrSubmitInFlight
	case StateTerminal:
		return ErrTerminal
	default:
		return ErrNotStarted
	}
}

func (m *Machine) snapshotLocked() Snapshot {
	snap := m.snap
	snap.QuestionIDs = append([]uint(nil), m.snap.QuestionIDs...)
	snap.Answers = make(map[uint]string, len(m.snap.Answers))
	for k, v := range m.snap.Answers {
		snap.Answers[k] = v
	}
	if m.snap.StartedAt != nil {
		t := *m.snap.StartedAt
		snap.StartedAt = &t
	}
	return snap
}
