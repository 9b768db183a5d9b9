package engine

import "math"

const (
	// handleSize is the CSS pixel edge of a square resize handle.
	handleSize = 8.0
	// rotateHandleOffset places the rotate handle above the top edge, in CSS pixels.
	rotateHandleOffset = 24.0
)

// HandleHit is a handle's hit area in client space.
type HandleHit struct {
	Handle Handle  `json:"handle"`
	Center Point   `json:"center"`
	Radius float64 `json:"radius"`
}

// SelectionHandles places the resize and rotate handles around box (document
// space) in client space. Hit areas grow with the device pixel ratio so
// handles stay grabbable on dense screens.
func SelectionHandles(box BoundingBox, vp Viewport, rect ClientRect, dpr float64) []HandleHit {
	if dpr <= 0 {
		dpr = 1
	}
	radius := handleSize / 2 * math.Max(1, dpr/2+0.5)
	tl := DocumentToClient(Point{X: box.MinX, Y: box.MinY}, vp, rect)
	br := DocumentToClient(Point{X: box.MaxX, Y: box.MaxY}, vp, rect)
	cx, cy := (tl.X+br.X)/2, (tl.Y+br.Y)/2

	at := map[Handle]Point{
		HandleNW: {tl.X, tl.Y},
		HandleN:  {cx, tl.Y},
		HandleNE: {br.X, tl.Y},
		HandleE:  {br.X, cy},
		HandleSE: {br.X, br.Y},
		HandleS:  {cx, br.Y},
		HandleSW: {tl.X, br.Y},
		HandleW:  {tl.X, cy},
	}
	hits := make([]HandleHit, 0, len(ResizeHandles)+1)
	hits = append(hits, HandleHit{
		Handle: HandleRotate,
		Center: Point{X: cx, Y: tl.Y - rotateHandleOffset},
		Radius: radius,
	})
	for _, h := range ResizeHandles {
		hits = append(hits, HandleHit{Handle: h, Center: at[h], Radius: radius})
	}
	return hits
}

// HandleAt returns the first handle whose hit area contains p.
func HandleAt(hits []HandleHit, p Point) (Handle, bool) {
	for _, h := range hits {
		if math.Abs(p.X-h.Center.X) <= h.Radius && math.Abs(p.Y-h.Center.Y) <= h.Radius {
			return h.Handle, true
		}
	}
	return "", false
}
