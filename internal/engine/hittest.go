package engine

import "github.com/inamate/composer/internal/document"

// HitTest returns the topmost renderable layer whose rotated rectangle
// contains p (document space). Locked layers and the base layer are skipped
// unless includeLocked is set.
func HitTest(layers []document.Layer, p Point, includeLocked bool) (document.Layer, bool) {
	ordered := document.FlattenForRender(layers)
	for i := len(ordered) - 1; i >= 0; i-- {
		l := ordered[i]
		if l.IsGroup() {
			continue
		}
		if !includeLocked && (l.Locked || l.IsBase()) {
			continue
		}
		if TransformContains(l.Transform, p) {
			return l, true
		}
	}
	return document.Layer{}, false
}

// SelectionBounds returns the union box of the selected layers. Groups
// contribute their renderable descendants; unknown ids are ignored.
func SelectionBounds(layers []document.Layer, selection []string) (BoundingBox, bool) {
	targets := gestureTargets(layers, selection, true)
	shapes := make([]Shape, 0, len(targets))
	for _, l := range targets {
		shapes = append(shapes, LayerShape{Layer: l})
	}
	return ShapesBounds(shapes)
}

// gestureTargets expands a selection into the renderable layers it stands
// for: groups resolve to their non-group descendants, duplicates collapse,
// and the base layer is dropped. Locked layers are dropped unless
// includeLocked is set. Order follows the selection.
func gestureTargets(layers []document.Layer, selection []string, includeLocked bool) []document.Layer {
	seen := make(map[string]bool)
	var out []document.Layer
	add := func(l document.Layer) {
		if seen[l.ID] || l.IsBase() || l.IsGroup() {
			return
		}
		if l.Locked && !includeLocked {
			return
		}
		seen[l.ID] = true
		out = append(out, l)
	}
	for _, id := range selection {
		l, ok := document.FindLayer(layers, id)
		if !ok {
			continue
		}
		if !l.IsGroup() {
			add(l)
			continue
		}
		for _, d := range document.Descendants(layers, id) {
			if dl, ok := document.FindLayer(layers, d); ok {
				add(dl)
			}
		}
	}
	return out
}
