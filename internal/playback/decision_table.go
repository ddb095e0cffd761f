// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package playback

const (
	ForbiddenTerminalAbsorbing = "terminal_absorbing"
	ForbiddenRequiresSession   = "requires_session"
	ForbiddenRequiresLoad      = "requires_load"
	ForbiddenOutOfOrder        = "out_of_order"
	ForbiddenAlreadyInState    = "already_in_state"
	ForbiddenNoStateChange     = "no_state_change"
)

func allowed() Decision        { return Decision{Allowed: true} }
func forbid(r string) Decision { return Decision{Allowed: false, Reason: r} }

func terminal() map[EventKind]Decision {
	return map[EventKind]Decision{
		EvInit:       forbid(ForbiddenTerminalAbsorbing),
		EvLoaded:     forbid(ForbiddenTerminalAbsorbing),
		EvLoadFailed: forbid(ForbiddenTerminalAbsorbing),
		EvStart:      forbid(ForbiddenTerminalAbsorbing),
		EvPause:      forbid(ForbiddenTerminalAbsorbing),
		EvEnd:        forbid(ForbiddenTerminalAbsorbing),
		EvSeek:       forbid(ForbiddenTerminalAbsorbing),
		EvDispose:    forbid(ForbiddenTerminalAbsorbing),
	}
}

// decisionTable defines an explicit decision for every State×Event combination.
var decisionTable = map[State]map[EventKind]Decision{
	StateIdle: {
		EvInit:       allowed(),
		EvLoaded:     forbid(ForbiddenOutOfOrder),
		EvLoadFailed: forbid(ForbiddenOutOfOrder),
		EvStart:      forbid(ForbiddenRequiresSession),
		EvPause:      forbid(ForbiddenRequiresSession),
		EvEnd:        forbid(ForbiddenRequiresSession),
		EvSeek:       forbid(ForbiddenRequiresSession),
		EvDispose:    allowed(),
	},
	StateInitializing: {
		EvInit:       allowed(),
		EvLoaded:     allowed(),
		EvLoadFailed: allowed(),
		EvStart:      forbid(ForbiddenRequiresLoad),
		EvPause:      forbid(ForbiddenRequiresLoad),
		EvEnd:        forbid(ForbiddenRequiresLoad),
		EvSeek:       forbid(ForbiddenRequiresLoad),
		EvDispose:    allowed(),
	},
	StateReady: {
		EvInit:       allowed(),
		EvLoaded:     forbid(ForbiddenAlreadyInState),
		EvLoadFailed: forbid(ForbiddenOutOfOrder),
		EvStart:      allowed(),
		EvPause:      forbid(ForbiddenNoStateChange),
		EvEnd:        forbid(ForbiddenOutOfOrder),
		EvSeek:       forbid(ForbiddenNoStateChange),
		EvDispose:    allowed(),
	},
	StatePlaying: {
		EvInit:       allowed(),
		EvLoaded:     forbid(ForbiddenOutOfOrder),
		EvLoadFailed: forbid(ForbiddenOutOfOrder),
		EvStart:      forbid(ForbiddenAlreadyInState),
		EvPause:      allowed(),
		EvEnd:        allowed(),
		EvSeek:       forbid(ForbiddenNoStateChange),
		EvDispose:    allowed(),
	},
	StatePaused: {
		EvInit:       allowed(),
		EvLoaded:     forbid(ForbiddenOutOfOrder),
		EvLoadFailed: forbid(ForbiddenOutOfOrder),
		EvStart:      allowed(),
		EvPause:      forbid(ForbiddenAlreadyInState),
		EvEnd:        allowed(),
		EvSeek:       forbid(ForbiddenNoStateChange),
		EvDispose:    allowed(),
	},
	StateEnded: {
		EvInit:       allowed(),
		EvLoaded:     forbid(ForbiddenOutOfOrder),
		EvLoadFailed: forbid(ForbiddenOutOfOrder),
		EvStart:      allowed(),
		EvPause:      forbid(ForbiddenNoStateChange),
		EvEnd:        forbid(ForbiddenAlreadyInState),
		EvSeek:       allowed(),
		EvDispose:    allowed(),
	},
	StateDisposed: terminal(),
}

// DecisionFor returns the explicit decision for a state and event.
func DecisionFor(state State, ev EventKind) (Decision, bool) {
	events, ok := decisionTable[state]
	if !ok {
		return Decision{}, false
	}
	d, ok := events[ev]
	return d, ok
}
