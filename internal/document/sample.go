package document

import (
	"github.com/inamate/composer/internal/typeid"
)

// NewSampleDocument builds a 1920x1080 composition with a few image layers
// and one group, used by the playground and the replay CLI.
func NewSampleDocument(docID string) *Document {
	doc := NewDocument(docID, "Untitled", 1920, 1080, typeid.NewLayerID())

	skyID := typeid.NewLayerID()
	logoID := typeid.NewLayerID()
	badgeID := typeid.NewLayerID()
	stickerID := typeid.NewLayerID()
	groupID := typeid.NewLayerID()
	groupPtr := &groupID

	layers := append(doc.Layers,
		Layer{
			ID: skyID, Name: "Sky", Type: LayerTypeImage, Order: 1, Visible: true,
			Transform: Transform{X: 0, Y: 0, Width: 1920, Height: 640, ScaleX: 1, ScaleY: 1},
			AssetURL:  "/assets/sky.png",
		},
		Layer{
			ID: logoID, Name: "Logo", Type: LayerTypeImage, Order: 2, Visible: true,
			Transform: Transform{X: 120, Y: 96, Width: 320, Height: 180, ScaleX: 1, ScaleY: 1},
			AssetURL:  "/assets/logo.png",
		},
		Layer{
			ID: groupID, Name: "Badges", Type: LayerTypeGroup, Order: 3, Visible: true,
			Transform: Transform{X: 1400, Y: 700, Width: 200, Height: 200, ScaleX: 1, ScaleY: 1},
		},
		Layer{
			ID: badgeID, Name: "Badge", Type: LayerTypeImage, Order: 0, Visible: true, ParentID: groupPtr,
			Transform: Transform{X: 1400, Y: 700, Width: 200, Height: 200, ScaleX: 1, ScaleY: 1},
			AssetURL:  "/assets/badge.png",
		},
		Layer{
			ID: stickerID, Name: "Sticker", Type: LayerTypeImage, Order: 1, Visible: true, ParentID: groupPtr,
			Transform: Transform{X: 1640, Y: 760, Width: 160, Height: 160, Rotation: 15, ScaleX: 1, ScaleY: 1},
			AssetURL:  "/assets/sticker.png",
		},
	)
	doc.Layers = EnsureBaseInvariant(layers)
	return doc
}
