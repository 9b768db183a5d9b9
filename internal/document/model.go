package document

type LayerType string

const (
	LayerTypeBase  LayerType = "base"
	LayerTypeImage LayerType = "image"
	LayerTypeGroup LayerType = "group"
)

// BaseLayerName is the display name forced onto the base layer.
const BaseLayerName = "Background"

// Transform places a layer in document space. (X, Y) is the unscaled,
// unrotated top-left corner; Rotation is in degrees about the center of the
// scaled rectangle.
type Transform struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Rotation float64 `json:"rotation"`
	ScaleX   float64 `json:"scaleX"`
	ScaleY   float64 `json:"scaleY"`
}

// Translate returns t moved by (dx, dy).
func (t Transform) Translate(dx, dy float64) Transform {
	t.X += dx
	t.Y += dy
	return t
}

// ScaledSize returns the on-canvas width and height (before rotation).
func (t Transform) ScaledSize() (float64, float64) {
	return t.Width * t.ScaleX, t.Height * t.ScaleY
}

type Layer struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Type      LayerType `json:"type"`
	Order     int       `json:"order"`
	Visible   bool      `json:"visible"`
	Locked    bool      `json:"locked"`
	ParentID  *string   `json:"parentId"`
	Collapsed bool      `json:"collapsed,omitempty"`
	Transform Transform `json:"transform"`
	AssetURL  string    `json:"assetUrl,omitempty"`
}

// IsBase reports whether l is the document's base layer.
func (l Layer) IsBase() bool { return l.Type == LayerTypeBase }

// IsGroup reports whether l is a structural group node.
func (l Layer) IsGroup() bool { return l.Type == LayerTypeGroup }

// Parent returns the parent id, or "" for root-level layers.
func (l Layer) Parent() string {
	if l.ParentID == nil {
		return ""
	}
	return *l.ParentID
}

type Document struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Layers []Layer `json:"layers"`
}

// NewDocument creates a document holding only its base layer.
func NewDocument(id, name string, width, height float64, baseID string) *Document {
	base := Layer{
		ID:      baseID,
		Name:    BaseLayerName,
		Type:    LayerTypeBase,
		Visible: true,
		Locked:  true,
		Transform: Transform{
			Width: width, Height: height, ScaleX: 1, ScaleY: 1,
		},
	}
	return &Document{
		ID:     id,
		Name:   name,
		Width:  width,
		Height: height,
		Layers: []Layer{base},
	}
}

// NewImageLayer builds an unparented image layer at the given transform.
func NewImageLayer(id, name, assetURL string, t Transform) Layer {
	if t.ScaleX == 0 {
		t.ScaleX = 1
	}
	if t.ScaleY == 0 {
		t.ScaleY = 1
	}
	return Layer{
		ID:        id,
		Name:      name,
		Type:      LayerTypeImage,
		Visible:   true,
		Transform: t,
		AssetURL:  assetURL,
	}
}

func strPtr(s string) *string { return &s }
