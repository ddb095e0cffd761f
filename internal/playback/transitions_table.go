// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package playback

// Transition is a single allowed edge in the playback state machine.
type Transition struct {
	From  State
	To    State
	Event EventKind
}

// Decision records whether a transition is allowed and why it is forbidden.
type Decision struct {
	Allowed bool
	Reason  string
}

var transitionsTable = []Transition{
	// Load path. A new init tears the current session down first.
	{From: StateIdle, To: StateInitializing, Event: EvInit},
	{From: StateInitializing, To: StateInitializing, Event: EvInit},
	{From: StateReady, To: StateInitializing, Event: EvInit},
	{From: StatePlaying, To: StateInitializing, Event: EvInit},
	{From: StatePaused, To: StateInitializing, Event: EvInit},
	{From: StateEnded, To: StateInitializing, Event: EvInit},
	{From: StateInitializing, To: StateReady, Event: EvLoaded},
	{From: StateInitializing, To: StateIdle, Event: EvLoadFailed},

	// Play/pause
	{From: StateReady, To: StatePlaying, Event: EvStart},
	{From: StatePaused, To: StatePlaying, Event: EvStart},
	{From: StateEnded, To: StatePlaying, Event: EvStart},
	{From: StatePlaying, To: StatePaused, Event: EvPause},

	// End of media
	{From: StatePlaying, To: StateEnded, Event: EvEnd},
	{From: StatePaused, To: StateEnded, Event: EvEnd},
	{From: StateEnded, To: StatePaused, Event: EvSeek},

	// Dispose
	{From: StateIdle, To: StateDisposed, Event: EvDispose},
	{From: StateInitializing, To: StateDisposed, Event: EvDispose},
	{From: StateReady, To: StateDisposed, Event: EvDispose},
	{From: StatePlaying, To: StateDisposed, Event: EvDispose},
	{From: StatePaused, To: StateDisposed, Event: EvDispose},
	{From: StateEnded, To: StateDisposed, Event: EvDispose},
}

// TransitionFor returns the allowed transition for a given state+event.
func TransitionFor(from State, ev EventKind) (Transition, bool) {
	for _, tr := range transitionsTable {
		if tr.From == from && tr.Event == ev {
			return tr, true
		}
	}
	return Transition{}, false
}
