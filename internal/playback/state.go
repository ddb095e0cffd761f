// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package playback

// State is the playback control state of a view.
type State string

const (
	StateIdle         State = "IDLE"
	StateInitializing State = "INITIALIZING"
	StateReady        State = "READY"
	StatePlaying      State = "PLAYING"
	StatePaused       State = "PAUSED"
	StateEnded        State = "ENDED"
	StateDisposed     State = "DISPOSED"
)

// IsTerminal reports whether no further transitions are possible.
func (s State) IsTerminal() bool {
	return s == StateDisposed
}

// HasMedia reports whether a loaded asset backs the state.
func (s State) HasMedia() bool {
	switch s {
	case StateReady, StatePlaying, StatePaused, StateEnded:
		return true
	default:
		return false
	}
}

func (s State) String() string { return string(s) }

// EventKind drives a state transition.
type EventKind string

const (
	EvInit       EventKind = "init"
	EvLoaded     EventKind = "loaded"
	EvLoadFailed EventKind = "load_failed"
	EvStart      EventKind = "start"
	EvPause      EventKind = "pause"
	EvEnd        EventKind = "end"
	EvSeek       EventKind = "seek"
	EvDispose    EventKind = "dispose"
)
