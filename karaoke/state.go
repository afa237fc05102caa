package karaoke

// StateType represents the lifecycle state of a playback session.
type StateType int

const (
	// StateIdle indicates no transcript has been loaded.
	StateIdle StateType = iota
	// StateLoaded indicates a transcript is loaded and playback can start.
	StateLoaded
	// StatePlaying indicates the session clock is running.
	StatePlaying
	// StatePaused indicates the session clock is frozen.
	StatePaused
	// StateStopped indicates the session was discarded; a new Load is
	// required before playback can start again.
	StateStopped
)

// String returns the string representation of the state.
func (s StateType) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoaded:
		return "loaded"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// IsActive returns true if the session can be sampled.
func (s StateType) IsActive() bool {
	return s == StatePlaying || s == StatePaused
}

// StateMachine guards session lifecycle transitions.
type StateMachine struct {
	current     StateType
	transitions map[StateType][]StateType
	onEnter     map[StateType]func()
}

// NewStateMachine creates a state machine with the valid session
// transitions: Idle -> Loaded -> Playing <-> Paused -> Stopped -> Loaded.
func NewStateMachine() *StateMachine {
	return &StateMachine{
		current: StateIdle,
		transitions: map[StateType][]StateType{
			StateIdle:    {StateLoaded},
			StateLoaded:  {StateLoaded, StatePlaying},
			StatePlaying: {StatePaused, StateStopped, StateLoaded},
			StatePaused:  {StatePlaying, StateStopped, StateLoaded},
			StateStopped: {StateLoaded},
		},
		onEnter: make(map[StateType]func()),
	}
}

// Transition attempts to move to the given state, returning false if the
// transition is not allowed from the current state.
func (sm *StateMachine) Transition(to StateType) bool {
	valid := false
	for _, state := range sm.transitions[sm.current] {
		if state == to {
			valid = true
			break
		}
	}
	if !valid {
		return false
	}

	sm.current = to

	if fn, ok := sm.onEnter[to]; ok && fn != nil {
		fn()
	}
	return true
}

// Current returns the current state.
func (sm *StateMachine) Current() StateType {
	return sm.current
}

// OnEnter registers a callback invoked after entering a state.
func (sm *StateMachine) OnEnter(state StateType, fn func()) {
	sm.onEnter[state] = fn
}
