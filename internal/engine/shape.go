package engine

import "github.com/inamate/composer/internal/document"

// Shape is the closed set of inputs that can stand for "something with a
// box" in selection and snap computations. Extract boxes with ShapeBounds.
type Shape interface {
	isShape()
}

// RectShape is an already computed box.
type RectShape struct{ Box BoundingBox }

// LayerShape is a document layer; its transform gives the box.
type LayerShape struct{ Layer document.Layer }

// TransformShape is a bare transform, e.g. a preview snapshot.
type TransformShape struct{ Transform document.Transform }

func (RectShape) isShape()      {}
func (LayerShape) isShape()     {}
func (TransformShape) isShape() {}

// ShapeBounds returns the box of s. Pointers resolve to their value; a nil
// shape or nil pointer yields a zero box.
func ShapeBounds(s Shape) BoundingBox {
	switch v := s.(type) {
	case RectShape:
		return v.Box
	case LayerShape:
		return ComputeBoundingBox(v.Layer.Transform)
	case TransformShape:
		return ComputeBoundingBox(v.Transform)
	case *RectShape:
		if v != nil {
			return v.Box
		}
	case *LayerShape:
		if v != nil {
			return ComputeBoundingBox(v.Layer.Transform)
		}
	case *TransformShape:
		if v != nil {
			return ComputeBoundingBox(v.Transform)
		}
	}
	return BoundingBox{}
}

// ShapesBounds returns the union box of shapes.
func ShapesBounds(shapes []Shape) (BoundingBox, bool) {
	boxes := make([]BoundingBox, 0, len(shapes))
	for _, s := range shapes {
		boxes = append(boxes, ShapeBounds(s))
	}
	return UnionBoundingBox(boxes)
}

// TransformShapes wraps transforms as shapes.
func TransformShapes(ts []document.Transform) []Shape {
	out := make([]Shape, len(ts))
	for i, t := range ts {
		out[i] = TransformShape{Transform: t}
	}
	return out
}
