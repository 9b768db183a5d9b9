package engine

import (
	"math"

	"github.com/inamate/composer/internal/document"
)

// Point is a position in document or client space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Sub returns p - q.
func (p Point) Sub(q Point) Point { return Point{X: p.X - q.X, Y: p.Y - q.Y} }

// Add returns p + q.
func (p Point) Add(q Point) Point { return Point{X: p.X + q.X, Y: p.Y + q.Y} }

// BoundingBox is the derived axis-aligned envelope of one or more rotated
// rectangles. It is never persisted.
type BoundingBox struct {
	MinX    float64  `json:"minX"`
	MinY    float64  `json:"minY"`
	MaxX    float64  `json:"maxX"`
	MaxY    float64  `json:"maxY"`
	Width   float64  `json:"width"`
	Height  float64  `json:"height"`
	Center  Point    `json:"center"`
	Corners [4]Point `json:"corners"`
}

// Corners returns the four document-space corners of t in the order
// top-left, top-right, bottom-right, bottom-left of the local rectangle.
func Corners(t document.Transform) [4]Point {
	m := FromLayerTransform(t)
	return [4]Point{
		m.Apply(Point{0, 0}),
		m.Apply(Point{t.Width, 0}),
		m.Apply(Point{t.Width, t.Height}),
		m.Apply(Point{0, t.Height}),
	}
}

// ComputeBoundingBox returns the axis-aligned box of t's rotated corners.
// Zero-size transforms yield a zero-area box.
func ComputeBoundingBox(t document.Transform) BoundingBox {
	return boxFromPoints(Corners(t))
}

func boxFromPoints(corners [4]Point) BoundingBox {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, c := range corners {
		minX = math.Min(minX, c.X)
		minY = math.Min(minY, c.Y)
		maxX = math.Max(maxX, c.X)
		maxY = math.Max(maxY, c.Y)
	}
	return newBox(minX, minY, maxX, maxY, corners)
}

func newBox(minX, minY, maxX, maxY float64, corners [4]Point) BoundingBox {
	return BoundingBox{
		MinX:    minX,
		MinY:    minY,
		MaxX:    maxX,
		MaxY:    maxY,
		Width:   maxX - minX,
		Height:  maxY - minY,
		Center:  Point{X: (minX + maxX) / 2, Y: (minY + maxY) / 2},
		Corners: corners,
	}
}

// RectBox builds an axis-aligned box from its extents.
func RectBox(minX, minY, maxX, maxY float64) BoundingBox {
	return newBox(minX, minY, maxX, maxY, [4]Point{
		{minX, minY}, {maxX, minY}, {maxX, maxY}, {minX, maxY},
	})
}

// UnionBoundingBox returns the envelope of all corners of all boxes.
// The second result is false for an empty input.
func UnionBoundingBox(boxes []BoundingBox) (BoundingBox, bool) {
	if len(boxes) == 0 {
		return BoundingBox{}, false
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, b := range boxes {
		for _, c := range b.Corners {
			minX = math.Min(minX, c.X)
			minY = math.Min(minY, c.Y)
			maxX = math.Max(maxX, c.X)
			maxY = math.Max(maxY, c.Y)
		}
	}
	return RectBox(minX, minY, maxX, maxY), true
}

// Translate returns b moved by (dx, dy).
func (b BoundingBox) Translate(dx, dy float64) BoundingBox {
	var corners [4]Point
	for i, c := range b.Corners {
		corners[i] = Point{X: c.X + dx, Y: c.Y + dy}
	}
	return newBox(b.MinX+dx, b.MinY+dy, b.MaxX+dx, b.MaxY+dy, corners)
}

// Contains reports whether p lies inside the axis-aligned extents of b.
func (b BoundingBox) Contains(p Point) bool {
	return p.X >= b.MinX && p.X <= b.MaxX && p.Y >= b.MinY && p.Y <= b.MaxY
}

// PointInPolygon is the even-odd ray casting test.
func PointInPolygon(p Point, poly []Point) bool {
	inside := false
	n := len(poly)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := poly[i], poly[j]
		if (a.Y > p.Y) != (b.Y > p.Y) &&
			p.X < (b.X-a.X)*(p.Y-a.Y)/(b.Y-a.Y)+a.X {
			inside = !inside
		}
	}
	return inside
}

// TransformContains reports whether p falls inside t's rotated rectangle.
func TransformContains(t document.Transform, p Point) bool {
	c := Corners(t)
	return PointInPolygon(p, c[:])
}

// degToRad and radToDeg convert at the trig boundary; angles are degrees
// everywhere else.
func degToRad(d float64) float64 { return d * math.Pi / 180 }
func radToDeg(r float64) float64 { return r * 180 / math.Pi }

// NormalizeAngle wraps degrees into [0, 360).
func NormalizeAngle(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	if deg == 360 {
		deg = 0
	}
	return deg
}
