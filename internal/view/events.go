// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package view

// Outbound event names.
const (
	EventUpdateTime         = "updateTime"
	EventUpdateCompassAngle = "updateCompassAngle"
	EventLoadError          = "loadError"
	// EventPlayError means a queued play was dropped because the engine failed.
	EventPlayError = "playError"
)

// Event is what a view publishes on its bus topic.
type Event struct {
	Name string `json:"event"`
	Data any    `json:"data"`
}

// UpdateTime keeps the key names existing clients expect: Duration is the
// current position and Total the asset length, both in milliseconds.
type UpdateTime struct {
	Duration     int64   `json:"duration"`
	Total        int64   `json:"total"`
	IsPlaying    bool    `json:"isPlaying"`
	CompassAngle float64 `json:"compassAngle"`
}

type UpdateCompassAngle struct {
	CompassAngle float64 `json:"compassAngle"`
}

// LoadError is the payload of loadError and playError.
type LoadError struct {
	URL     string `json:"url"`
	Message string `json:"message"`
}

// Topic is the bus topic carrying events of view id.
func Topic(id string) string {
	return "view." + id
}
