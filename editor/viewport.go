package editor

// maxZoom is the hard magnification ceiling. The floor is per session: the
// initial fit-to-screen zoom, so the canvas can never shrink below the size
// it first appeared at.
const maxZoom = 8.0

// Viewport is the zoom/pan transform mapping canvas space to screen space:
// screen = canvas*Zoom + T.
type Viewport struct {
	Zoom  float64 `json:"zoom"`
	TX    float64 `json:"tx"`
	TY    float64 `json:"ty"`
	floor float64
}

// NewViewport starts at the fit-to-screen zoom, which also becomes the
// zoom-out floor.
func NewViewport(fitZoom float64) *Viewport {
	if fitZoom <= 0 || fitZoom > maxZoom {
		fitZoom = 1
	}
	return &Viewport{Zoom: fitZoom, floor: fitZoom}
}

func (v *Viewport) FloorZoom() float64 { return v.floor }

func (v *Viewport) clampZoom(z float64) float64 {
	if z < v.floor {
		return v.floor
	}
	if z > maxZoom {
		return maxZoom
	}
	return z
}

// ZoomAround multiplies the zoom by factor, clamped to [floor, maxZoom],
// keeping the canvas point under the screen point (px, py) fixed. Zooming
// re-centers on the pinch midpoint, not the canvas origin.
func (v *Viewport) ZoomAround(factor, px, py float64) {
	next := v.clampZoom(v.Zoom * factor)
	if next == v.Zoom {
		return
	}
	scale := next / v.Zoom
	v.TX = px - (px-v.TX)*scale
	v.TY = py - (py-v.TY)*scale
	v.Zoom = next
}

// PanBy shifts the viewport by a screen-space delta.
func (v *Viewport) PanBy(dx, dy float64) {
	v.TX += dx
	v.TY += dy
}

// CanvasPoint maps a screen point into canvas space under the current
// transform.
func (v *Viewport) CanvasPoint(px, py float64) (float64, float64) {
	return (px - v.TX) / v.Zoom, (py - v.TY) / v.Zoom
}
