// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldViewID        = "view_id"
	FieldSessionID     = "session_id"
	FieldCorrelationID = "correlation_id"
	FieldRequestID     = "request_id"

	// Process fields
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldCommand   = "command"

	// Media fields
	FieldURL        = "url"
	FieldPosition   = "position_ms"
	FieldDuration   = "duration_ms"
	FieldResolution = "resolution"

	// State fields
	FieldOldState = "old_state"
	FieldNewState = "new_state"

	// Camera fields
	FieldYaw   = "yaw"
	FieldPitch = "pitch"
)
