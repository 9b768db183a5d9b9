package collab

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/inamate/composer/internal/document"
	"github.com/inamate/composer/internal/typeid"
)

var (
	ErrUnknownOperation = errors.New("unknown operation type")
	ErrInvalidOperation = errors.New("invalid operation")
)

// DocumentState holds the authoritative document state for a room
type DocumentState struct {
	mu        sync.RWMutex
	doc       *document.Document
	serverSeq int64
	opLog     []Operation // Operation history for persistence
	newID     document.IDFactory
}

// NewDocumentState creates a new document state from an initial document
func NewDocumentState(doc *document.Document) *DocumentState {
	doc.Layers = document.EnsureBaseInvariant(doc.Layers)
	return &DocumentState{
		doc:       doc,
		serverSeq: 0,
		opLog:     make([]Operation, 0),
		newID:     typeid.NewLayerID,
	}
}

// SetIDFactory replaces the generator used for server-assigned layer ids.
func (ds *DocumentState) SetIDFactory(f document.IDFactory) {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	ds.newID = f
}

// GetDocument returns a snapshot of the current document
func (ds *DocumentState) GetDocument() *document.Document {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	doc := *ds.doc
	doc.Layers = append([]document.Layer(nil), ds.doc.Layers...)
	return &doc
}

// ServerSeq returns the sequence number of the last applied operation.
func (ds *DocumentState) ServerSeq() int64 {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	return ds.serverSeq
}

// OpLog returns a copy of every applied operation in order.
func (ds *DocumentState) OpLog() []Operation {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	return append([]Operation(nil), ds.opLog...)
}

// ApplyOperation applies an operation to the document and returns the server
// sequence. Ids minted for layer.group and layer.duplicate are written back
// into op.NewIDs so peers replaying the broadcast converge on the same tree.
// A rejected operation leaves the document untouched.
func (ds *DocumentState) ApplyOperation(op *Operation) (int64, error) {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	layers, err := ds.applyOperationLocked(op)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op.Type, err)
	}

	ds.doc.Layers = layers
	ds.serverSeq++
	ds.opLog = append(ds.opLog, *op)

	return ds.serverSeq, nil
}

// applyOperationLocked computes the new layer list (caller must hold lock)
func (ds *DocumentState) applyOperationLocked(op *Operation) ([]document.Layer, error) {
	layers := ds.doc.Layers
	switch op.Type {
	case OpLayerTransform:
		return applyTransform(layers, op)
	case OpLayerAdd:
		return applyAdd(layers, op)
	case OpLayerMove:
		if op.Index == nil {
			return nil, fmt.Errorf("%w: missing index", ErrInvalidOperation)
		}
		return document.MoveLayer(layers, op.LayerID, op.ParentID, *op.Index)
	case OpLayerGroup:
		ids, err := ds.newIDSource(layers, op)
		if err != nil {
			return nil, err
		}
		out, _, err := document.GroupLayers(layers, op.LayerIDs, ids.next)
		op.NewIDs = ids.used
		return out, err
	case OpLayerUngroup:
		return document.UngroupLayer(layers, op.LayerID)
	case OpLayerDuplicate:
		ids, err := ds.newIDSource(layers, op)
		if err != nil {
			return nil, err
		}
		out, _, err := document.DuplicateBranch(layers, op.LayerID, ids.next)
		op.NewIDs = ids.used
		return out, err
	case OpLayerRemove:
		return document.RemoveBranch(layers, op.LayerID)
	case OpLayerVisibility:
		if op.Visible == nil {
			return nil, fmt.Errorf("%w: missing visible", ErrInvalidOperation)
		}
		return document.CascadeVisibility(layers, op.LayerID, *op.Visible)
	case OpLayerLocked:
		if op.Locked == nil {
			return nil, fmt.Errorf("%w: missing locked", ErrInvalidOperation)
		}
		return document.SetLocked(layers, op.LayerID, *op.Locked)
	case OpLayerRename:
		if op.Name == "" {
			return nil, fmt.Errorf("%w: empty name", ErrInvalidOperation)
		}
		return document.RenameLayer(layers, op.LayerID, op.Name)
	case OpLayerCollapsed:
		if op.Collapsed == nil {
			return nil, fmt.Errorf("%w: missing collapsed", ErrInvalidOperation)
		}
		return document.SetCollapsed(layers, op.LayerID, *op.Collapsed)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownOperation, op.Type)
	}
}

// applyTransform replaces transforms as one batch: either every update
// lands or none does.
func applyTransform(layers []document.Layer, op *Operation) ([]document.Layer, error) {
	if len(op.Updates) == 0 {
		return nil, fmt.Errorf("%w: no updates", ErrInvalidOperation)
	}
	updates := make(map[string]document.Transform, len(op.Updates))
	for _, u := range op.Updates {
		l, ok := document.FindLayer(layers, u.LayerID)
		if !ok {
			return nil, fmt.Errorf("%w: %s", document.ErrLayerNotFound, u.LayerID)
		}
		if l.IsBase() {
			return nil, document.ErrBaseLayer
		}
		if err := validTransform(u.Transform); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidOperation, u.LayerID, err)
		}
		updates[u.LayerID] = u.Transform
	}
	return document.ApplyTransforms(layers, updates), nil
}

// validTransform requires a positive size and finite non-zero scales.
func validTransform(t document.Transform) error {
	for _, v := range []float64{t.X, t.Y, t.Width, t.Height, t.Rotation, t.ScaleX, t.ScaleY} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.New("non-finite value")
		}
	}
	if t.Width <= 0 || t.Height <= 0 {
		return errors.New("size must be positive")
	}
	if t.ScaleX == 0 || t.ScaleY == 0 {
		return errors.New("zero scale")
	}
	return nil
}

func applyAdd(layers []document.Layer, op *Operation) ([]document.Layer, error) {
	if op.Layer == nil {
		return nil, fmt.Errorf("%w: missing layer", ErrInvalidOperation)
	}
	layer := *op.Layer
	if err := typeid.Validate(layer.ID, typeid.PrefixLayer); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOperation, err)
	}
	if layer.Type != document.LayerTypeImage && layer.Type != document.LayerTypeGroup {
		return nil, fmt.Errorf("%w: layer type %q", ErrInvalidOperation, layer.Type)
	}
	if layer.Transform.ScaleX == 0 {
		layer.Transform.ScaleX = 1
	}
	if layer.Transform.ScaleY == 0 {
		layer.Transform.ScaleY = 1
	}

	out, err := document.AddLayer(layers, layer, op.ParentID)
	if err != nil || op.Index == nil {
		return out, err
	}
	return document.MoveLayer(out, layer.ID, op.ParentID, *op.Index)
}

// idSource hands out the ids a client proposed in op.NewIDs, then mints
// fresh ones, recording everything it handed out.
type idSource struct {
	proposed []string
	mint     document.IDFactory
	used     []string
}

func (s *idSource) next() string {
	var id string
	if len(s.proposed) > 0 {
		id, s.proposed = s.proposed[0], s.proposed[1:]
	} else {
		id = s.mint()
	}
	s.used = append(s.used, id)
	return id
}

func (ds *DocumentState) newIDSource(layers []document.Layer, op *Operation) (*idSource, error) {
	seen := make(map[string]bool, len(op.NewIDs))
	for _, id := range op.NewIDs {
		if err := typeid.Validate(id, typeid.PrefixLayer); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidOperation, err)
		}
		if _, exists := document.FindLayer(layers, id); exists || seen[id] {
			return nil, fmt.Errorf("%w: %s", document.ErrDuplicateID, id)
		}
		seen[id] = true
	}
	return &idSource{proposed: append([]string(nil), op.NewIDs...), mint: ds.newID}, nil
}

// GetServerTimestamp returns the current server timestamp
func GetServerTimestamp() int64 {
	return time.Now().UnixMilli()
}
