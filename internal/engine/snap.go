package engine

import (
	"math"

	"github.com/inamate/composer/internal/document"
)

type GuideOrientation string

const (
	GuideVertical   GuideOrientation = "vertical"
	GuideHorizontal GuideOrientation = "horizontal"
)

type GuideKind string

const (
	GuideDocument GuideKind = "document"
	GuideGrid     GuideKind = "grid"
	GuideSibling  GuideKind = "sibling"
)

// Guide is an alignment line that fired during snapping. Position is an x
// for vertical guides and a y for horizontal ones, in document space.
type Guide struct {
	Orientation GuideOrientation `json:"orientation"`
	Position    float64          `json:"position"`
	Kind        GuideKind        `json:"kind"`
}

// SnapContext carries everything ComputeSnap aligns against.
type SnapContext struct {
	GridSize  float64
	Threshold float64 // screen pixels
	Zoom      float64

	Siblings       []Shape
	DocumentWidth  float64
	DocumentHeight float64

	SnapToGrid    bool
	SnapToObjects bool
}

// SnapResult is the corrected delta plus the guides that produced it.
type SnapResult struct {
	Delta  Point   `json:"delta"`
	Guides []Guide `json:"guides"`
}

// NewSnapContext builds a context from engine options.
func NewSnapContext(opts Options, zoom float64, docW, docH float64, siblings []Shape) SnapContext {
	return SnapContext{
		GridSize:       opts.GridSize,
		Threshold:      opts.SnapThreshold,
		Zoom:           zoom,
		Siblings:       siblings,
		DocumentWidth:  docW,
		DocumentHeight: docH,
		SnapToGrid:     opts.SnapToGrid,
		SnapToObjects:  opts.SnapToObjects,
	}
}

// DocumentThreshold converts the screen-space threshold into document units.
func (c SnapContext) DocumentThreshold() float64 {
	return c.Threshold / safeZoom(c.Zoom)
}

type snapTarget struct {
	pos  float64
	kind GuideKind
}

// axisSnap tracks the best candidate on one axis. A later candidate only
// replaces the current one with a strictly smaller distance.
type axisSnap struct {
	threshold float64
	found     bool
	dist      float64
	residual  float64
	target    snapTarget
}

func (a *axisSnap) consider(edge float64, t snapTarget) {
	d := math.Abs(t.pos - edge)
	if d > a.threshold {
		return
	}
	if a.found && d >= a.dist {
		return
	}
	a.found = true
	a.dist = d
	a.residual = t.pos - edge
	a.target = t
}

// ComputeSnap aligns the union box of transforms, moved by delta, to the
// document edges and center, the grid, and sibling boxes. Each axis snaps
// independently and fires at most one guide.
func ComputeSnap(transforms []document.Transform, delta Point, ctx SnapContext) SnapResult {
	res := SnapResult{Delta: delta}
	box, ok := ShapesBounds(TransformShapes(transforms))
	if !ok {
		return res
	}
	box = box.Translate(delta.X, delta.Y)

	threshold := ctx.DocumentThreshold()
	x := axisSnap{threshold: threshold}
	y := axisSnap{threshold: threshold}

	xEdges := [3]float64{box.MinX, box.Center.X, box.MaxX}
	yEdges := [3]float64{box.MinY, box.Center.Y, box.MaxY}

	if ctx.DocumentWidth > 0 {
		for _, pos := range [3]float64{0, ctx.DocumentWidth / 2, ctx.DocumentWidth} {
			for _, e := range xEdges {
				x.consider(e, snapTarget{pos, GuideDocument})
			}
		}
	}
	if ctx.DocumentHeight > 0 {
		for _, pos := range [3]float64{0, ctx.DocumentHeight / 2, ctx.DocumentHeight} {
			for _, e := range yEdges {
				y.consider(e, snapTarget{pos, GuideDocument})
			}
		}
	}

	if ctx.SnapToGrid && ctx.GridSize > 0 {
		x.consider(box.MinX, snapTarget{math.Round(box.MinX/ctx.GridSize) * ctx.GridSize, GuideGrid})
		y.consider(box.MinY, snapTarget{math.Round(box.MinY/ctx.GridSize) * ctx.GridSize, GuideGrid})
	}

	if ctx.SnapToObjects {
		for _, s := range ctx.Siblings {
			sb := ShapeBounds(s)
			for _, pos := range [3]float64{sb.MinX, sb.Center.X, sb.MaxX} {
				for _, e := range xEdges {
					x.consider(e, snapTarget{pos, GuideSibling})
				}
			}
			for _, pos := range [3]float64{sb.MinY, sb.Center.Y, sb.MaxY} {
				for _, e := range yEdges {
					y.consider(e, snapTarget{pos, GuideSibling})
				}
			}
		}
	}

	if x.found {
		res.Delta.X += x.residual
		res.Guides = append(res.Guides, Guide{Orientation: GuideVertical, Position: x.target.pos, Kind: x.target.kind})
	}
	if y.found {
		res.Delta.Y += y.residual
		res.Guides = append(res.Guides, Guide{Orientation: GuideHorizontal, Position: y.target.pos, Kind: y.target.kind})
	}
	return res
}
