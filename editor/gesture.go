package editor

import (
	"math"
	"time"
)

// liftOffDelay keeps the drawing tool disabled briefly after a pinch ends,
// so the stray single-finger frames of an uneven two-finger lift-off cannot
// leave a mark.
const liftOffDelay = 100 * time.Millisecond

type (
	// GestureState is the interpreter's two-state machine.
	GestureState string

	// Contact is one active touch point in screen space.
	Contact struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
	}

	// TouchFrame is one raw multi-touch sample. At carries the client's
	// event timestamp; the lift-off window is measured against frame
	// times, not server wall clock.
	TouchFrame struct {
		Contacts []Contact `json:"contacts"`
		At       time.Time `json:"at"`
	}

	// PinchEffect tells the session what a frame did so it can run the
	// required side effects (abandon the stroke, clear the selection,
	// push a viewport update).
	PinchEffect struct {
		Entered       bool
		Ended         bool
		ViewportMoved bool
	}

	// GestureInterpreter consumes raw touch frames ahead of the drawing
	// tool. While two contacts are down it owns the input stream
	// completely: frames mutate the viewport and never reach the brush.
	GestureInterpreter struct {
		state GestureState

		prevDist float64
		prevMidX float64
		prevMidY float64

		disabledUntil time.Time
	}
)

const (
	GestureIdle     GestureState = "idle"
	GesturePinching GestureState = "pinching"
)

func NewGestureInterpreter() *GestureInterpreter {
	return &GestureInterpreter{state: GestureIdle}
}

func (g *GestureInterpreter) State() GestureState { return g.state }

// StrokeAllowed reports whether a stroke observed at the given time may
// commit. Strokes are blocked while pinching and through the lift-off
// window after it.
func (g *GestureInterpreter) StrokeAllowed(at time.Time) bool {
	return g.state == GestureIdle && !at.Before(g.disabledUntil)
}

// Feed advances the state machine with one touch frame and applies any
// zoom/pan to the viewport.
func (g *GestureInterpreter) Feed(frame TouchFrame, vp *Viewport) PinchEffect {
	var eff PinchEffect

	if g.state == GestureIdle {
		if len(frame.Contacts) < 2 {
			return eff
		}
		g.state = GesturePinching
		g.prevDist, g.prevMidX, g.prevMidY = pinchGeometry(frame.Contacts)
		eff.Entered = true
		return eff
	}

	// Pinching.
	if len(frame.Contacts) < 2 {
		g.state = GestureIdle
		g.disabledUntil = frame.At.Add(liftOffDelay)
		eff.Ended = true
		return eff
	}

	dist, midX, midY := pinchGeometry(frame.Contacts)
	if g.prevDist > 0 && dist > 0 {
		vp.ZoomAround(dist/g.prevDist, midX, midY)
	}
	vp.PanBy(midX-g.prevMidX, midY-g.prevMidY)
	g.prevDist, g.prevMidX, g.prevMidY = dist, midX, midY
	eff.ViewportMoved = true
	return eff
}

// pinchGeometry reduces the first two contacts to the pair distance and
// midpoint. Additional fingers are ignored.
func pinchGeometry(contacts []Contact) (dist, midX, midY float64) {
	a, b := contacts[0], contacts[1]
	dist = math.Hypot(b.X-a.X, b.Y-a.Y)
	midX = (a.X + b.X) / 2
	midY = (a.Y + b.Y) / 2
	return dist, midX, midY
}
