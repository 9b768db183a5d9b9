package engine

import (
	"encoding/json"

	"github.com/inamate/composer/internal/document"
)

// DrawCommand represents a single drawing operation for the frontend to execute.
// The frontend receives a list of these and executes them on a Canvas2D context.
type DrawCommand struct {
	Op        string    `json:"op"`                 // "base" or "image"
	LayerID   string    `json:"layerId"`            // For hit correlation
	Transform []float64 `json:"transform"`          // [a, b, c, d, e, f] affine matrix
	Width     float64   `json:"width"`              // Local rectangle width
	Height    float64   `json:"height"`             // Local rectangle height
	AssetURL  string    `json:"assetUrl,omitempty"` // Image source
	Locked    bool      `json:"locked,omitempty"`
}

// CompileDisplayList generates the draw commands for layers in painter's
// order (back to front). Transforms in overlay replace the stored ones, so
// gesture previews render without touching the document.
func CompileDisplayList(layers []document.Layer, overlay map[string]document.Transform) []DrawCommand {
	ordered := document.FlattenForRender(layers)
	commands := make([]DrawCommand, 0, len(ordered))
	for _, l := range ordered {
		t := l.Transform
		if o, ok := overlay[l.ID]; ok {
			t = o
		}
		op := "image"
		if l.IsBase() {
			op = "base"
		}
		commands = append(commands, DrawCommand{
			Op:        op,
			LayerID:   l.ID,
			Transform: FromLayerTransform(t).ToSlice(),
			Width:     t.Width,
			Height:    t.Height,
			AssetURL:  l.AssetURL,
			Locked:    l.Locked,
		})
	}
	return commands
}

// DrawCommandsToJSON serializes draw commands to JSON.
func DrawCommandsToJSON(commands []DrawCommand) (string, error) {
	if commands == nil {
		commands = []DrawCommand{}
	}
	data, err := json.Marshal(commands)
	if err != nil {
		return "[]", err
	}
	return string(data), nil
}
