package scene

type (
	// Kind discriminates the drawable variants the painting surface knows
	// about.
	Kind string

	// Point is one sampled coordinate of a freeform path, in canvas space.
	Point struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
	}

	// Object is one drawable in the arena. Interaction flags mirror what
	// the client-side canvas library understands: Selectable gates
	// selection, Evented gates pointer-event routing, Controls gates the
	// resize/rotate handles, Hover is the cursor shown over the object.
	// Evented, Controls and Hover are live state derived from Locked and
	// the interaction mode; they are not persisted, so a mode toggle can
	// never change what a snapshot serializes to.
	Object struct {
		ID          string   `json:"id"`
		Kind        Kind     `json:"kind"`
		Fill        string   `json:"fill,omitempty"`
		Stroke      string   `json:"stroke,omitempty"`
		StrokeWidth float64  `json:"strokeWidth,omitempty"`
		Brush       string   `json:"brush,omitempty"`     // Kind == KindPath, brush texture that drew it.
		Composite   string   `json:"composite,omitempty"` // Canvas composite op; eraser paths use CompositeEraseOut.
		Points      []Point  `json:"points,omitempty"`    // Kind == KindPath.
		Source      string   `json:"source,omitempty"`    // Kind == KindImage, data URI.
		Members     []string `json:"members,omitempty"`   // Kind == KindGroup.
		Locked      bool     `json:"locked"`
		Selectable  bool     `json:"selectable"`
		Evented     bool     `json:"-"`
		Controls    bool     `json:"-"`
		Hover       string   `json:"-"`
	}
)

const (
	KindPath  Kind = "path"
	KindImage Kind = "image"
	KindGroup Kind = "group"
)

// Hover cursor affordances. HoverBlocked is what makes a locked object read
// as non-interactive before the user even taps it.
const (
	HoverMove    = "move"
	HoverBlocked = "not-allowed"
)

// CompositeEraseOut is the composite operation eraser paths carry so the
// client renders them as removal instead of paint.
const CompositeEraseOut = "destination-out"

// NewPath builds an interactive freeform-path object. The arena assigns an
// id on Add when none is set.
func NewPath(points []Point, strokeColor string, strokeWidth float64) *Object {
	return &Object{
		Kind:        KindPath,
		Stroke:      strokeColor,
		StrokeWidth: strokeWidth,
		Points:      points,
		Selectable:  true,
		Evented:     true,
		Controls:    true,
		Hover:       HoverMove,
	}
}

// NewImage builds an interactive image object from a data URI.
func NewImage(source string) *Object {
	return &Object{
		Kind:       KindImage,
		Source:     source,
		Selectable: true,
		Evented:    true,
		Controls:   true,
		Hover:      HoverMove,
	}
}

// NewGroup builds the transient wrapper the canvas library materializes
// around a multi-selection. Member objects stay in the arena; the group
// records their ids so lock toggles can treat the selection as one unit.
func NewGroup(memberIDs []string) *Object {
	return &Object{
		Kind:       KindGroup,
		Members:    memberIDs,
		Selectable: true,
		Evented:    true,
		Controls:   true,
		Hover:      HoverMove,
	}
}
