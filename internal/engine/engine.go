package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/inamate/composer/internal/document"
	"github.com/inamate/composer/internal/typeid"
)

var ErrNoDocument = errors.New("no document loaded")

type EventType string

const (
	EventPreview        EventType = "preview"
	EventCommit         EventType = "commit"
	EventCancel         EventType = "cancel"
	EventLayers         EventType = "layers"
	EventViewport       EventType = "viewport"
	EventReleaseCapture EventType = "releaseCapture"
)

// Event is one entry of the outbox the host drains after each call.
type Event struct {
	Type       EventType                     `json:"type"`
	Op         string                        `json:"op,omitempty"`
	Transforms map[string]document.Transform `json:"transforms,omitempty"`
	Guides     []Guide                       `json:"guides,omitempty"`
	Updates    []TransformUpdate             `json:"updates,omitempty"`
	Layers     []document.Layer              `json:"layers,omitempty"`
	Viewport   *Viewport                     `json:"viewport,omitempty"`
	PointerID  int                           `json:"pointerId,omitempty"`
}

// Engine is the interactive editing core. It mirrors the store's document,
// turns host input into gestures and viewport changes, and queues the
// results as events for the host to apply.
type Engine struct {
	opts   Options
	logger *slog.Logger

	// Document mirror (the store owns the real one)
	doc       *document.Document
	selection []string

	// Camera
	viewport  Viewport
	container ClientRect

	// Interaction
	frames   *FrameScheduler
	gestures *GestureController
	inertia  *InertialPan
	pan      *panState

	// Live gesture output, rendered on top of the mirror
	overlay map[string]document.Transform
	guides  []Guide

	events []Event
	newID  document.IDFactory
}

type panState struct {
	pointerID int
	start     Point
	origin    Viewport
}

// engineListener adapts gesture output into engine state and events.
type engineListener struct{ e *Engine }

// NewEngine creates an engine with the given options. A nil logger
// discards output.
func NewEngine(opts Options, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	e := &Engine{
		opts:     opts,
		logger:   logger,
		viewport: Viewport{Zoom: 1},
		frames:   &FrameScheduler{},
		inertia:  NewInertialPan(opts.inertiaConfig()),
		newID:    typeid.NewLayerID,
	}
	e.gestures = NewGestureController(opts, engineListener{e}, e.frames, logger)
	return e
}

// SetIDFactory replaces the id source used by duplicate, group and add.
func (e *Engine) SetIDFactory(f document.IDFactory) {
	if f != nil {
		e.newID = f
	}
}

func (l engineListener) GesturePreview(p Preview) {
	l.e.overlay = p.Transforms
	l.e.guides = p.Guides
	l.e.emit(Event{Type: EventPreview, Transforms: p.Transforms, Guides: p.Guides})
}

func (l engineListener) GestureCommit(c Commit) {
	e := l.e
	e.overlay, e.guides = nil, nil
	if e.doc != nil {
		updates := make(map[string]document.Transform, len(c.Updates))
		for _, u := range c.Updates {
			updates[u.LayerID] = u.Transform
		}
		e.doc.Layers = document.ApplyTransforms(e.doc.Layers, updates)
	}
	e.emit(Event{Type: EventCommit, Op: string(c.Handle), Updates: c.Updates})
}

func (l engineListener) GestureCancel() {
	l.e.overlay, l.e.guides = nil, nil
	l.e.emit(Event{Type: EventCancel})
}

func (l engineListener) ReleasePointerCapture(pointerID int) {
	l.e.emit(Event{Type: EventReleaseCapture, PointerID: pointerID})
}

func (e *Engine) emit(ev Event) {
	e.events = append(e.events, ev)
}

func (e *Engine) emitViewport() {
	vp := e.viewport
	e.emit(Event{Type: EventViewport, Viewport: &vp})
}

// DrainEvents returns and clears the queued events.
func (e *Engine) DrainEvents() []Event {
	out := e.events
	e.events = nil
	return out
}

// --- Commands (frontend → engine) ---

// LoadDocument loads a document from JSON, resetting selection and
// interaction state.
func (e *Engine) LoadDocument(jsonData string) error {
	var doc document.Document
	if err := json.Unmarshal([]byte(jsonData), &doc); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	e.load(&doc)
	return nil
}

// UpdateDocument replaces the mirrored document while keeping the viewport
// and whatever part of the selection still exists. A running gesture keeps
// its own snapshot.
func (e *Engine) UpdateDocument(jsonData string) error {
	var doc document.Document
	if err := json.Unmarshal([]byte(jsonData), &doc); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	doc.Layers = document.EnsureBaseInvariant(doc.Layers)
	e.doc = &doc
	e.selection = slices.DeleteFunc(e.selection, func(id string) bool {
		_, ok := document.FindLayer(doc.Layers, id)
		return !ok
	})
	return nil
}

// LoadSampleDocument loads the built-in sample document.
func (e *Engine) LoadSampleDocument(docID string) {
	e.load(document.NewSampleDocument(docID))
}

// SetDocument installs an already decoded document.
func (e *Engine) SetDocument(doc *document.Document) {
	e.load(doc)
}

func (e *Engine) load(doc *document.Document) {
	e.gestures.Cancel()
	e.inertia.Cancel()
	e.pan = nil
	e.DrainEvents()

	doc.Layers = document.EnsureBaseInvariant(doc.Layers)
	e.doc = doc
	e.selection = nil
	e.overlay, e.guides = nil, nil
	if e.container.Width > 0 && e.container.Height > 0 {
		e.FitToScreen()
	}
	e.logger.Debug("document loaded", "document", doc.ID, "layers", len(doc.Layers))
}

// SetSelection sets the selected layer ids.
func (e *Engine) SetSelection(ids []string) {
	e.selection = slices.Clone(ids)
}

// SetContainer records the client rect of the canvas container.
func (e *Engine) SetContainer(rect ClientRect) {
	e.container = rect
}

// SetViewport replaces the viewport, e.g. when restored by the host.
func (e *Engine) SetViewport(vp Viewport) {
	vp.Zoom = safeZoom(vp.Zoom)
	e.viewport = vp
}

func (e *Engine) contentSize() Size {
	if e.doc == nil {
		return Size{}
	}
	return Size{Width: e.doc.Width, Height: e.doc.Height}
}

func (e *Engine) containerSize() Size {
	return Size{Width: e.container.Width, Height: e.container.Height}
}

// FitToScreen centers the document in the container.
func (e *Engine) FitToScreen() {
	e.inertia.Cancel()
	e.viewport = FitToScreen(e.contentSize(), e.containerSize(), e.opts.FitMargin)
	e.emitViewport()
}

// ZoomTo zooms to z keeping the container center fixed.
func (e *Engine) ZoomTo(z float64) {
	cs := e.containerSize()
	e.viewport = ZoomAboutPoint(e.viewport, z, cs.Width/2, cs.Height/2, cs, e.contentSize(), e.opts.zoomLimits())
	e.emitViewport()
}

// Wheel zooms about the cursor when zoom is set (ctrl/pinch), otherwise it
// pans by the wheel deltas.
func (e *Engine) Wheel(clientX, clientY, deltaX, deltaY float64, zoom bool) {
	e.inertia.Cancel()
	cs := e.containerSize()
	if zoom {
		e.viewport = ZoomAboutPoint(
			e.viewport,
			e.viewport.Zoom*ZoomStep(deltaY),
			clientX-e.container.Left, clientY-e.container.Top,
			cs, e.contentSize(), e.opts.zoomLimits(),
		)
	} else {
		vp := e.viewport
		vp.OffsetX -= deltaX
		vp.OffsetY -= deltaY
		e.viewport = ClampToPanBounds(vp, e.panBounds(vp))
	}
	e.emitViewport()
}

func (e *Engine) panBounds(vp Viewport) PanBounds {
	return ComputePanBounds(vp, e.containerSize(), e.contentSize(), e.opts.PanMarginFactor)
}

// PanStart begins a pan, cancelling any running glide.
func (e *Engine) PanStart(pointerID int, clientX, clientY float64, now time.Time) {
	e.inertia.Begin(clientX, clientY, now)
	e.pan = &panState{
		pointerID: pointerID,
		start:     Point{X: clientX, Y: clientY},
		origin:    e.viewport,
	}
}

// PanMove drags the viewport with elastic resistance past the pan bounds.
func (e *Engine) PanMove(pointerID int, clientX, clientY float64, now time.Time) {
	if e.pan == nil || e.pan.pointerID != pointerID {
		return
	}
	e.inertia.Track(clientX, clientY, now)
	vp := e.pan.origin
	vp.OffsetX += clientX - e.pan.start.X
	vp.OffsetY += clientY - e.pan.start.Y
	e.viewport = ApplyElasticBounds(vp, e.panBounds(vp), e.opts.PanResistance)
	e.emitViewport()
}

// PanEnd releases the pan. A fast release starts a glide that Frame
// advances; otherwise the viewport settles inside the bounds at once.
func (e *Engine) PanEnd(pointerID int, now time.Time) {
	if e.pan == nil || e.pan.pointerID != pointerID {
		return
	}
	e.pan = nil
	if e.inertia.Release(now) {
		return
	}
	e.settle()
}

func (e *Engine) settle() {
	settled := ClampToPanBounds(e.viewport, e.panBounds(e.viewport))
	if settled != e.viewport {
		e.viewport = settled
		e.emitViewport()
	}
}

// Panning reports whether a pan or glide is in progress.
func (e *Engine) Panning() bool { return e.pan != nil || e.inertia.Active() }

func (e *Engine) documentRect() *ClientRect {
	if e.doc == nil || e.container.Width <= 0 || e.container.Height <= 0 {
		return nil
	}
	r := DocumentRect(e.viewport, e.container, e.contentSize())
	return &r
}

// PointerDown starts a gesture on handle for the current selection.
func (e *Engine) PointerDown(ev PointerEvent, handle Handle) bool {
	if e.doc == nil {
		return false
	}
	return e.gestures.PointerDown(ev, handle, GestureInput{
		Layers:       e.doc.Layers,
		Selection:    e.selection,
		Viewport:     e.viewport,
		DocumentRect: e.documentRect(),
		DocumentSize: e.contentSize(),
	})
}

// PointerMove feeds a move to the active gesture; the preview lands on the
// next Frame.
func (e *Engine) PointerMove(ev PointerEvent) bool { return e.gestures.PointerMove(ev) }

// PointerUp commits the active gesture.
func (e *Engine) PointerUp(ev PointerEvent) bool { return e.gestures.PointerUp(ev) }

// PointerCancel abandons the active gesture.
func (e *Engine) PointerCancel(pointerID int) bool { return e.gestures.PointerCancel(pointerID) }

// KeyDown forwards keys to the active gesture.
func (e *Engine) KeyDown(key string) bool { return e.gestures.KeyDown(key) }

// GestureActive reports whether a gesture is in progress.
func (e *Engine) GestureActive() bool { return e.gestures.Active() }

// Frame runs the work scheduled for this animation frame and reports
// whether another frame is needed.
func (e *Engine) Frame(now time.Time) bool {
	e.frames.Flush()
	if e.inertia.Active() {
		dx, dy, done := e.inertia.Step(now)
		if dx != 0 || dy != 0 {
			vp := e.viewport
			vp.OffsetX += dx
			vp.OffsetY += dy
			e.viewport = ApplyElasticBounds(vp, e.panBounds(vp), e.opts.PanResistance)
			e.emitViewport()
		}
		if done {
			e.settle()
		}
	}
	return e.frames.Pending() || e.inertia.Active()
}

// --- Layer tree commands ---

func (e *Engine) mutate(op string, fn func([]document.Layer) ([]document.Layer, error)) error {
	if e.doc == nil {
		return ErrNoDocument
	}
	layers, err := fn(e.doc.Layers)
	if err != nil {
		e.logger.Debug("layer operation rejected", "op", op, "error", err)
		return fmt.Errorf("%s: %w", op, err)
	}
	e.doc.Layers = layers
	e.emit(Event{Type: EventLayers, Op: op, Layers: layers})
	return nil
}

// MoveLayer reparents a layer; see document.MoveLayer.
func (e *Engine) MoveLayer(layerID, targetParentID string, targetIndex int) error {
	return e.mutate("move", func(ls []document.Layer) ([]document.Layer, error) {
		return document.MoveLayer(ls, layerID, targetParentID, targetIndex)
	})
}

// GroupSelection groups the selected layers and selects the new group.
func (e *Engine) GroupSelection() (string, error) {
	var groupID string
	err := e.mutate("group", func(ls []document.Layer) ([]document.Layer, error) {
		out, id, err := document.GroupLayers(ls, e.selection, e.newID)
		groupID = id
		return out, err
	})
	if err != nil {
		return "", err
	}
	e.selection = []string{groupID}
	return groupID, nil
}

// Ungroup dissolves a group and selects its former children.
func (e *Engine) Ungroup(groupID string) error {
	var children []string
	if e.doc != nil {
		for _, l := range e.doc.Layers {
			if l.Parent() == groupID {
				children = append(children, l.ID)
			}
		}
	}
	err := e.mutate("ungroup", func(ls []document.Layer) ([]document.Layer, error) {
		return document.UngroupLayer(ls, groupID)
	})
	if err != nil {
		return err
	}
	e.selection = children
	return nil
}

// DuplicateLayer clones a layer with its subtree and selects the clone.
func (e *Engine) DuplicateLayer(layerID string) (string, error) {
	var cloneID string
	err := e.mutate("duplicate", func(ls []document.Layer) ([]document.Layer, error) {
		out, id, err := document.DuplicateBranch(ls, layerID, e.newID)
		cloneID = id
		return out, err
	})
	if err != nil {
		return "", err
	}
	e.selection = []string{cloneID}
	return cloneID, nil
}

// RemoveLayer deletes a layer with its subtree.
func (e *Engine) RemoveLayer(layerID string) error {
	err := e.mutate("remove", func(ls []document.Layer) ([]document.Layer, error) {
		return document.RemoveBranch(ls, layerID)
	})
	if err != nil {
		return err
	}
	e.selection = slices.DeleteFunc(e.selection, func(id string) bool {
		_, ok := document.FindLayer(e.doc.Layers, id)
		return !ok
	})
	return nil
}

// SetVisibility shows or hides a layer and its subtree.
func (e *Engine) SetVisibility(layerID string, visible bool) error {
	return e.mutate("visibility", func(ls []document.Layer) ([]document.Layer, error) {
		return document.CascadeVisibility(ls, layerID, visible)
	})
}

// SetLocked locks or unlocks a layer.
func (e *Engine) SetLocked(layerID string, locked bool) error {
	return e.mutate("locked", func(ls []document.Layer) ([]document.Layer, error) {
		return document.SetLocked(ls, layerID, locked)
	})
}

// SetCollapsed folds or unfolds a group in the layer panel.
func (e *Engine) SetCollapsed(groupID string, collapsed bool) error {
	return e.mutate("collapsed", func(ls []document.Layer) ([]document.Layer, error) {
		return document.SetCollapsed(ls, groupID, collapsed)
	})
}

// RenameLayer renames a layer.
func (e *Engine) RenameLayer(layerID, name string) error {
	return e.mutate("rename", func(ls []document.Layer) ([]document.Layer, error) {
		return document.RenameLayer(ls, layerID, name)
	})
}

// AddImageLayer adds an image centered on the document at its natural
// size and selects it.
func (e *Engine) AddImageLayer(name, assetURL string, width, height float64) (string, error) {
	if e.doc == nil {
		return "", ErrNoDocument
	}
	id := e.newID()
	t := document.Transform{
		X:      (e.doc.Width - width) / 2,
		Y:      (e.doc.Height - height) / 2,
		Width:  width,
		Height: height,
	}
	layer := document.NewImageLayer(id, name, assetURL, t)
	err := e.mutate("add", func(ls []document.Layer) ([]document.Layer, error) {
		return document.AddLayer(ls, layer, "")
	})
	if err != nil {
		return "", err
	}
	e.selection = []string{id}
	return id, nil
}

// --- Queries (frontend ← engine) ---

// Render compiles the display list, with any gesture preview applied, as JSON.
func (e *Engine) Render() string {
	if e.doc == nil {
		return "[]"
	}
	result, _ := DrawCommandsToJSON(CompileDisplayList(e.doc.Layers, e.overlay))
	return result
}

// HitTest returns the id of the topmost layer under a client-space point,
// or "".
func (e *Engine) HitTest(clientX, clientY float64, includeLocked bool) string {
	rect := e.documentRect()
	if rect == nil {
		return ""
	}
	p := ClientToDocument(Point{X: clientX, Y: clientY}, e.viewport, *rect)
	l, ok := HitTest(e.doc.Layers, p, includeLocked)
	if !ok {
		return ""
	}
	return l.ID
}

// HandleAt returns the handle under a client-space point for the current
// selection: a resize or rotate handle, "move" inside the selection box,
// or "" elsewhere.
func (e *Engine) HandleAt(clientX, clientY, dpr float64) Handle {
	rect := e.documentRect()
	if rect == nil {
		return ""
	}
	box, ok := e.selectionBox()
	if !ok {
		return ""
	}
	p := Point{X: clientX, Y: clientY}
	if h, ok := HandleAt(SelectionHandles(box, e.viewport, *rect, dpr), p); ok {
		return h
	}
	if box.Contains(ClientToDocument(p, e.viewport, *rect)) {
		return HandleMove
	}
	return ""
}

func (e *Engine) selectionBox() (BoundingBox, bool) {
	if e.doc == nil || len(e.selection) == 0 {
		return BoundingBox{}, false
	}
	layers := e.doc.Layers
	if len(e.overlay) > 0 {
		layers = document.ApplyTransforms(layers, e.overlay)
	}
	return SelectionBounds(layers, e.selection)
}

// GetSelectionBounds returns the union box of the selection as JSON, or
// "null" when nothing is selected.
func (e *Engine) GetSelectionBounds() string {
	box, ok := e.selectionBox()
	if !ok {
		return "null"
	}
	data, _ := json.Marshal(box)
	return string(data)
}

// Guides returns the snap guides of the running gesture.
func (e *Engine) Guides() []Guide { return e.guides }

// Document returns the mirrored document.
func (e *Engine) Document() *document.Document { return e.doc }

// Viewport returns the current viewport.
func (e *Engine) Viewport() Viewport { return e.viewport }

// Selection returns a copy of the selection.
func (e *Engine) Selection() []string { return slices.Clone(e.selection) }

// GetDocument returns the full document as JSON (for debugging/sync).
func (e *Engine) GetDocument() string {
	if e.doc == nil {
		return "{}"
	}
	data, _ := json.Marshal(e.doc)
	return string(data)
}

// GetViewport returns the viewport as JSON.
func (e *Engine) GetViewport() string {
	data, _ := json.Marshal(e.viewport)
	return string(data)
}

// GetSelection returns the current selection as JSON.
func (e *Engine) GetSelection() string {
	data, _ := json.Marshal(e.selection)
	return string(data)
}
