package engine

import "math"

// Viewport is the camera over the document. Offsets are the screen-space
// translation of the document origin relative to the container, so they
// already include the zoom factor.
type Viewport struct {
	Zoom    float64 `json:"zoom"`
	OffsetX float64 `json:"offsetX"`
	OffsetY float64 `json:"offsetY"`
}

// Size is a width/height pair in whatever space the caller uses.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ClientRect is a rectangle in client (pointer) space, e.g. the bounding
// client rect of the rendered document surface.
type ClientRect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ZoomLimits bound the zoom range. MinZoom may be raised at runtime by
// CalculateMinZoom so the document keeps Padding around it.
type ZoomLimits struct {
	MinZoom float64
	MaxZoom float64
	Padding float64
}

// PanBounds is the soft box the viewport offsets may travel in.
type PanBounds struct {
	MinX float64 `json:"minX"`
	MaxX float64 `json:"maxX"`
	MinY float64 `json:"minY"`
	MaxY float64 `json:"maxY"`
}

// wheelZoomSensitivity converts wheel delta units into an exponential zoom
// factor; 100 units of deltaY is roughly a 14% step.
const wheelZoomSensitivity = 0.0015

func safeZoom(z float64) float64 {
	if z <= 0 || math.IsNaN(z) || math.IsInf(z, 0) {
		return 1
	}
	return z
}

// ClientToDocument maps a client-space point into document space.
func ClientToDocument(p Point, vp Viewport, rect ClientRect) Point {
	z := safeZoom(vp.Zoom)
	return Point{
		X: (p.X - rect.Left) / z,
		Y: (p.Y - rect.Top) / z,
	}
}

// DocumentToClient is the inverse of ClientToDocument.
func DocumentToClient(p Point, vp Viewport, rect ClientRect) Point {
	z := safeZoom(vp.Zoom)
	return Point{
		X: p.X*z + rect.Left,
		Y: p.Y*z + rect.Top,
	}
}

// DocumentRect returns where the document surface lands in client space
// for a viewport inside container.
func DocumentRect(vp Viewport, container ClientRect, content Size) ClientRect {
	z := safeZoom(vp.Zoom)
	return ClientRect{
		Left:   container.Left + vp.OffsetX,
		Top:    container.Top + vp.OffsetY,
		Width:  content.Width * z,
		Height: content.Height * z,
	}
}

// CalculateMinZoom returns the smallest zoom at which content plus padding
// on each side still fills the container, floored by baseMin and never
// above 1.
func CalculateMinZoom(content, container Size, padding, baseMin float64) float64 {
	if content.Width <= 0 || content.Height <= 0 {
		return baseMin
	}
	availW := container.Width - 2*padding
	availH := container.Height - 2*padding
	if availW <= 0 || availH <= 0 {
		return math.Min(1, baseMin)
	}
	fit := math.Min(availW/content.Width, availH/content.Height)
	return math.Min(1, math.Max(baseMin, fit))
}

// ClampZoom limits z to the dynamic zoom range for content in container.
func ClampZoom(z float64, content, container Size, limits ZoomLimits) float64 {
	lo := CalculateMinZoom(content, container, limits.Padding, limits.MinZoom)
	hi := limits.MaxZoom
	if hi <= 0 {
		hi = math.Inf(1)
	}
	if lo > hi {
		lo = hi
	}
	return math.Min(hi, math.Max(lo, z))
}

// ZoomAboutPoint zooms to targetZoom keeping the document point under the
// cursor fixed. cursorX/cursorY are relative to the container's top-left.
func ZoomAboutPoint(current Viewport, targetZoom, cursorX, cursorY float64, container, content Size, limits ZoomLimits) Viewport {
	z := safeZoom(current.Zoom)
	nz := ClampZoom(targetZoom, content, container, limits)

	docX := (cursorX - current.OffsetX) / z
	docY := (cursorY - current.OffsetY) / z

	return Viewport{
		Zoom:    nz,
		OffsetX: cursorX - docX*nz,
		OffsetY: cursorY - docY*nz,
	}
}

// ZoomStep converts a wheel delta into a multiplicative zoom factor.
// Negative deltas (wheel up) zoom in.
func ZoomStep(deltaY float64) float64 {
	return math.Exp(-deltaY * wheelZoomSensitivity)
}

// FitToScreen returns the viewport that centers content in container,
// leaving margin on every side.
func FitToScreen(content, container Size, margin float64) Viewport {
	if content.Width <= 0 || content.Height <= 0 {
		return Viewport{Zoom: 1}
	}
	availW := container.Width - 2*margin
	availH := container.Height - 2*margin
	if availW <= 0 || availH <= 0 {
		availW, availH = container.Width, container.Height
	}
	zoom := math.Min(availW/content.Width, availH/content.Height)
	if zoom <= 0 {
		zoom = 1
	}
	return Viewport{
		Zoom:    zoom,
		OffsetX: (container.Width - content.Width*zoom) / 2,
		OffsetY: (container.Height - content.Height*zoom) / 2,
	}
}

// ComputePanBounds lets the content travel until only marginFactor of the
// container still shows it on each side.
func ComputePanBounds(vp Viewport, container, content Size, marginFactor float64) PanBounds {
	z := safeZoom(vp.Zoom)
	b := PanBounds{
		MinX: container.Width*marginFactor - content.Width*z,
		MaxX: container.Width * (1 - marginFactor),
		MinY: container.Height*marginFactor - content.Height*z,
		MaxY: container.Height * (1 - marginFactor),
	}
	if b.MinX > b.MaxX {
		mid := (b.MinX + b.MaxX) / 2
		b.MinX, b.MaxX = mid, mid
	}
	if b.MinY > b.MaxY {
		mid := (b.MinY + b.MaxY) / 2
		b.MinY, b.MaxY = mid, mid
	}
	return b
}

func elastic(v, lo, hi, resistance float64) float64 {
	switch {
	case v < lo:
		return lo + (v-lo)*resistance
	case v > hi:
		return hi + (v-hi)*resistance
	}
	return v
}

// ApplyElasticBounds pulls offsets beyond b back toward the boundary.
// resistance 0 behaves like a hard clamp, 1 like no bounds at all.
func ApplyElasticBounds(vp Viewport, b PanBounds, resistance float64) Viewport {
	resistance = math.Min(1, math.Max(0, resistance))
	vp.OffsetX = elastic(vp.OffsetX, b.MinX, b.MaxX, resistance)
	vp.OffsetY = elastic(vp.OffsetY, b.MinY, b.MaxY, resistance)
	return vp
}

// ClampToPanBounds is the hard clamp used when a pan settles.
func ClampToPanBounds(vp Viewport, b PanBounds) Viewport {
	vp.OffsetX = math.Min(b.MaxX, math.Max(b.MinX, vp.OffsetX))
	vp.OffsetY = math.Min(b.MaxY, math.Max(b.MinY, vp.OffsetY))
	return vp
}
