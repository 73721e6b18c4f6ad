package pipeline

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// State represents the lifecycle state of the processing pipeline.
type State int

const (
	// StateIdle - No run in flight, ready to start.
	StateIdle State = iota
	// StateTranscribing - Waiting on the transcription backend.
	StateTranscribing
	// StateClassifying - Waiting on the extraction backend.
	StateClassifying
	// StateUploading - Writing rows to the destination (and mirror).
	StateUploading
	// StateSuccess - All required writes succeeded.
	StateSuccess
	// StateError - The run aborted; Message says why.
	StateError
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateTranscribing:
		return "TRANSCRIBING"
	case StateClassifying:
		return "CLASSIFYING"
	case StateUploading:
		return "UPLOADING"
	case StateSuccess:
		return "SUCCESS"
	case StateError:
		return "ERROR"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", s)
	}
}

// MarshalText renders the state name in JSON payloads.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// IsTerminal returns true if the run has ended (SUCCESS or ERROR).
func (s State) IsTerminal() bool {
	return s == StateSuccess || s == StateError
}

// IsBusy returns true while a run is in flight.
func (s State) IsBusy() bool {
	return s == StateTranscribing || s == StateClassifying || s == StateUploading
}

// Errors for invalid state transitions.
var (
	ErrBusy              = errors.New("a recording is already being processed")
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrNotRunning        = errors.New("no run in flight")
)

// Snapshot is a consistent view of the lifecycle.
type Snapshot struct {
	State     State     `json:"state"`
	RunID     string    `json:"runId,omitempty"`
	Message   string    `json:"message,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Lifecycle manages the state machine of the single pipeline instance.
// Thread-safe for concurrent access.
//
// State transitions:
//
//	IDLE → TRANSCRIBING → CLASSIFYING → UPLOADING → SUCCESS
//	            │              │            │
//	            └──────────────┴────────────┴──→ ERROR
//
// Rules:
//   - Begin is allowed from IDLE, SUCCESS or ERROR; otherwise ErrBusy
//   - Advance only moves one step forward
//   - Reset returns a terminal state to IDLE only for the run it was scheduled for
type Lifecycle struct {
	mu         sync.RWMutex
	state      State
	runId      string
	message    string
	generation uint64
	updatedAt  time.Time
	now        func() time.Time
}

// NewLifecycle creates a lifecycle in IDLE state.
func NewLifecycle() *Lifecycle {
	return &Lifecycle{state: StateIdle, now: time.Now, updatedAt: time.Now()}
}

// State returns the current state.
func (l *Lifecycle) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// Snapshot returns the current state, run id and message.
func (l *Lifecycle) Snapshot() Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return Snapshot{State: l.state, RunID: l.runId, Message: l.message, UpdatedAt: l.updatedAt}
}

// Begin starts a new run and returns its generation. A pending reset for a
// previous run no longer applies after Begin.
func (l *Lifecycle) Begin(runId string) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state.IsBusy() {
		return 0, ErrBusy
	}
	l.generation++
	l.runId = runId
	l.message = ""
	l.set(StateTranscribing)
	return l.generation, nil
}

// Advance moves a running pipeline to the next state.
func (l *Lifecycle) Advance(to State) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.state.IsBusy() {
		return ErrNotRunning
	}
	if to != l.state+1 {
		return fmt.Errorf("%w: %s → %s", ErrInvalidTransition, l.state, to)
	}
	l.set(to)
	return nil
}

// Fail transitions a running pipeline to ERROR with a message.
// Returns false if no run was in flight.
func (l *Lifecycle) Fail(message string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.state.IsBusy() {
		return false
	}
	l.message = message
	l.set(StateError)
	return true
}

// Reset returns to IDLE if the lifecycle is still in the terminal state of
// run generation gen. Returns true if it reset.
func (l *Lifecycle) Reset(gen uint64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if gen != l.generation || !l.state.IsTerminal() {
		return false
	}
	l.message = ""
	l.set(StateIdle)
	return true
}

func (l *Lifecycle) set(s State) {
	l.state = s
	l.updatedAt = l.now()
}
