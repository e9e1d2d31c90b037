package slider

// Initial is the position every comparison starts from.
const Initial = 50.0

// State is the drag state of an interactive slider.
type State int

const (
	Idle State = iota
	Dragging
)

func (s State) String() string {
	if s == Dragging {
		return "dragging"
	}
	return "idle"
}

// Variant selects how the slider reacts to input.
type Variant int

const (
	// Interactive is the editor slider: pointer, touch and mouse drags.
	Interactive Variant = iota
	// Landing is the hover-only demo slider: mouse moves inside the
	// container update the position directly, nothing else does.
	Landing
)

// Effect tells the caller what to do after an event was handled.
type Effect struct {
	// PreventDefault is set when the platform's default touch scrolling must
	// be suppressed so a horizontal drag does not scroll the page.
	PreventDefault bool
	// Changed reports whether Position moved.
	Changed bool
}

// Slider holds one comparison position plus its drag state. The zero value
// is not ready for use; call New.
type Slider struct {
	variant  Variant
	bounds   Rect
	state    State
	position float64
}

// New returns an idle slider at the initial position.
func New(variant Variant, bounds Rect) *Slider {
	return &Slider{variant: variant, bounds: bounds, position: Initial}
}

// Position is the reveal percentage in [0, 100].
func (s *Slider) Position() float64 { return s.position }

// State reports whether a drag is in progress.
func (s *Slider) State() State { return s.state }

// Variant returns the slider's input variant.
func (s *Slider) Variant() Variant { return s.variant }

// SetBounds updates the container geometry, e.g. after a resize.
func (s *Slider) SetBounds(r Rect) { s.bounds = r }

// Reset returns to the initial position and ends any drag. Called on mount
// and whenever a new comparison is shown.
func (s *Slider) Reset() {
	s.state = Idle
	s.position = Initial
}

// Handle applies one input event.
func (s *Slider) Handle(ev Event) Effect {
	if s.variant == Landing {
		return s.handleHover(ev)
	}

	switch ev.Phase {
	case Down:
		x, ok := ev.X()
		if !ok || !s.inside(x) {
			return Effect{}
		}
		s.state = Dragging
		return Effect{PreventDefault: suppressesScroll(ev.Source), Changed: s.moveTo(x)}
	case Move:
		if s.state != Dragging {
			return Effect{}
		}
		x, ok := ev.X()
		if !ok {
			return Effect{PreventDefault: suppressesScroll(ev.Source)}
		}
		return Effect{PreventDefault: suppressesScroll(ev.Source), Changed: s.moveTo(x)}
	case Up, Leave, Cancel:
		s.state = Idle
	}
	return Effect{}
}

func (s *Slider) handleHover(ev Event) Effect {
	if ev.Source != Mouse || ev.Phase != Move || !s.inside(ev.ClientX) {
		return Effect{}
	}
	return Effect{Changed: s.moveTo(ev.ClientX)}
}

func (s *Slider) moveTo(x float64) bool {
	p := Percent(s.bounds, x)
	if p == s.position {
		return false
	}
	s.position = p
	return true
}

func (s *Slider) inside(x float64) bool {
	return s.bounds.Width > 0 && x >= s.bounds.Left && x <= s.bounds.Left+s.bounds.Width
}

// Mouse drags never scroll the page, so only pointer and touch drags need
// the default action suppressed.
func suppressesScroll(src Source) bool {
	return src == Pointer || src == Touch
}
