// Package slider implements the before/after comparison slider: the
// pointer/touch tracker that turns a horizontal coordinate into a reveal
// percentage, and the small drag state machine around it.
package slider

import "math"

// Rect is the on-screen bounding box of the comparison container.
type Rect struct {
	Left   float64
	Top    float64
	Width  float64
	Height float64
}

// Percent maps clientX to a position in [0, 100] relative to bounds.
// A zero or negative width yields 0, as does any NaN input.
func Percent(bounds Rect, clientX float64) float64 {
	if bounds.Width <= 0 {
		return 0
	}
	p := (clientX - bounds.Left) / bounds.Width * 100
	switch {
	case math.IsNaN(p), p < 0:
		return 0
	case p > 100:
		return 100
	}
	return p
}

// Source is the input device family an event came from.
type Source int

const (
	Pointer Source = iota
	Touch
	Mouse
)

func (s Source) String() string {
	switch s {
	case Pointer:
		return "pointer"
	case Touch:
		return "touch"
	case Mouse:
		return "mouse"
	}
	return "unknown"
}

// Phase is the lifecycle stage of an input event.
type Phase int

const (
	Down Phase = iota
	Move
	Up
	Leave
	Cancel
)

func (p Phase) String() string {
	switch p {
	case Down:
		return "down"
	case Move:
		return "move"
	case Up:
		return "up"
	case Leave:
		return "leave"
	case Cancel:
		return "cancel"
	}
	return "unknown"
}

// Event is one normalized input event. Touch events carry their contact
// points in Touches; ClientX is ignored for them.
type Event struct {
	Source  Source
	Phase   Phase
	ClientX float64
	Touches []float64
}

// X returns the horizontal coordinate the event refers to. Touch events use
// their first contact point. A touch event without points, or a NaN
// coordinate, reports ok=false.
func (e Event) X() (x float64, ok bool) {
	x = e.ClientX
	if e.Source == Touch {
		if len(e.Touches) == 0 {
			return 0, false
		}
		x = e.Touches[0]
	}
	if math.IsNaN(x) {
		return 0, false
	}
	return x, true
}

// Track computes the position for ev, or ok=false when the event carries no
// usable coordinate.
func Track(bounds Rect, ev Event) (pct float64, ok bool) {
	x, ok := ev.X()
	if !ok {
		return 0, false
	}
	return Percent(bounds, x), true
}
