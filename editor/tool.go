package editor

type (
	// Mode is the canvas interaction mode. Draw routes pointer input to
	// the brush; select routes it to object picking.
	Mode string

	// Brush is the active drawing tool variant.
	Brush string

	// Tool bundles the session's current tool state.
	Tool struct {
		Brush Brush   `json:"brush"`
		Color string  `json:"color"`
		Width float64 `json:"width"`
		Mode  Mode    `json:"mode"`
	}
)

const (
	ModeDraw   Mode = "draw"
	ModeSelect Mode = "select"
)

const (
	BrushPencil Brush = "pencil"
	BrushCircle Brush = "circle"
	BrushSpray  Brush = "spray"
	BrushEraser Brush = "eraser"
)

func (m Mode) Valid() bool {
	return m == ModeDraw || m == ModeSelect
}

func (b Brush) Valid() bool {
	switch b {
	case BrushPencil, BrushCircle, BrushSpray, BrushEraser:
		return true
	}
	return false
}

func defaultTool() Tool {
	return Tool{Brush: BrushPencil, Color: "#1d1d1f", Width: 6, Mode: ModeDraw}
}
