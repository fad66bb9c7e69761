package editor

import (
	"time"

	"paintbox/scene"
)

// EventKind discriminates the scene-event variants a client may submit.
type EventKind string

const (
	EventStrokeCompleted  EventKind = "stroke-completed"
	EventObjectAdded      EventKind = "object-added"
	EventObjectModified   EventKind = "object-modified"
	EventObjectRemoved    EventKind = "object-removed"
	EventSelectionChanged EventKind = "selection-changed"
	EventSelectionCleared EventKind = "selection-cleared"
)

type (
	// StrokePayload carries a completed freeform stroke. Styling comes
	// from the session's current tool at the moment the event is applied,
	// not from the payload.
	StrokePayload struct {
		Points []scene.Point `json:"points"`
	}

	// Event is the envelope every scene mutation travels in, over both
	// the REST batch endpoint and the realtime channel. Exactly one
	// payload field is set depending on Kind. At is the client event
	// timestamp; stroke events are checked against the pinch lift-off
	// window with it.
	Event struct {
		Kind      EventKind      `json:"kind"`
		At        time.Time      `json:"at,omitempty"`
		Stroke    *StrokePayload `json:"stroke,omitempty"`
		Object    *scene.Object  `json:"object,omitempty"`
		ObjectID  string         `json:"objectId,omitempty"`
		Selection []string       `json:"selection,omitempty"`
	}
)
