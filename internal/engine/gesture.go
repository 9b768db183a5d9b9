package engine

import (
	"log/slog"
	"math"

	"github.com/inamate/composer/internal/document"
)

// Handle names the affordance a gesture started on.
type Handle string

const (
	HandleMove   Handle = "move"
	HandleRotate Handle = "rotate"
	HandleN      Handle = "n"
	HandleS      Handle = "s"
	HandleE      Handle = "e"
	HandleW      Handle = "w"
	HandleNE     Handle = "ne"
	HandleNW     Handle = "nw"
	HandleSE     Handle = "se"
	HandleSW     Handle = "sw"
)

// ResizeHandles lists the eight resize handles clockwise from the top-left.
var ResizeHandles = []Handle{HandleNW, HandleN, HandleNE, HandleE, HandleSE, HandleS, HandleSW, HandleW}

// Valid reports whether h is a known handle.
func (h Handle) Valid() bool {
	return h == HandleMove || h == HandleRotate || h.IsResize()
}

// IsResize reports whether h is one of the eight resize handles.
func (h Handle) IsResize() bool {
	switch h {
	case HandleN, HandleS, HandleE, HandleW, HandleNE, HandleNW, HandleSE, HandleSW:
		return true
	}
	return false
}

// IsCorner reports whether h is a corner resize handle.
func (h Handle) IsCorner() bool {
	switch h {
	case HandleNE, HandleNW, HandleSE, HandleSW:
		return true
	}
	return false
}

// edges reports which sides of the box the handle drags.
func (h Handle) edges() (left, right, top, bottom bool) {
	switch h {
	case HandleN:
		top = true
	case HandleS:
		bottom = true
	case HandleE:
		right = true
	case HandleW:
		left = true
	case HandleNE:
		top, right = true, true
	case HandleNW:
		top, left = true, true
	case HandleSE:
		bottom, right = true, true
	case HandleSW:
		bottom, left = true, true
	}
	return
}

// PointerEvent is the subset of a DOM pointer event the gestures need.
type PointerEvent struct {
	PointerID int     `json:"pointerId"`
	ClientX   float64 `json:"clientX"`
	ClientY   float64 `json:"clientY"`
	Button    int     `json:"button"`
	Shift     bool    `json:"shiftKey"`
	Alt       bool    `json:"altKey"`
	Ctrl      bool    `json:"ctrlKey"`
	Meta      bool    `json:"metaKey"`
}

// GestureInput is the external state a gesture starts from.
type GestureInput struct {
	Layers       []document.Layer
	Selection    []string
	Viewport     Viewport
	DocumentRect *ClientRect
	DocumentSize Size
}

// TransformUpdate is one entry of a committed batch.
type TransformUpdate struct {
	LayerID   string             `json:"layerId"`
	Transform document.Transform `json:"transform"`
}

// Preview is the live state of an active gesture.
type Preview struct {
	Handle     Handle                        `json:"handle"`
	Transforms map[string]document.Transform `json:"transforms"`
	Guides     []Guide                       `json:"guides"`
}

// Commit is the final batch of a finished gesture.
type Commit struct {
	Handle  Handle            `json:"handle"`
	Updates []TransformUpdate `json:"updates"`
}

// GestureListener receives gesture output. Previews never touch stored
// state; a gesture ends in exactly one commit or one cancel.
//
// GestureCancel means "restore the start state and persist nothing". It is
// sent for Escape, pointercancel and Cancel, and also for a pointer-up whose
// result equals the start transforms, so an empty commit never reaches the
// store. Hosts should treat a cancel as a completed, no-op gesture.
type GestureListener interface {
	GesturePreview(Preview)
	GestureCommit(Commit)
	GestureCancel()
}

// PointerCapturer is implemented by listeners that hold pointer capture
// for the duration of a gesture.
type PointerCapturer interface {
	ReleasePointerCapture(pointerID int)
}

type layerSnapshot struct {
	id    string
	start document.Transform
}

// gestureState lives from pointer-down until commit or cancel.
type gestureState struct {
	handle     Handle
	pointerID  int
	start      Point
	snapshot   []layerSnapshot
	startBox   BoundingBox
	lockAspect bool
	startAngle float64
	viewport   Viewport
	rect       ClientRect
	snap       SnapContext
}

// GestureController runs one pointer-driven move, resize or rotate at a
// time. Previews are coalesced through the frame scheduler.
type GestureController struct {
	opts     Options
	listener GestureListener
	frames   *FrameScheduler
	logger   *slog.Logger

	state *gestureState
}

// NewGestureController creates an idle controller.
func NewGestureController(opts Options, listener GestureListener, frames *FrameScheduler, logger *slog.Logger) *GestureController {
	if frames == nil {
		frames = &FrameScheduler{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &GestureController{
		opts:     opts,
		listener: listener,
		frames:   frames,
		logger:   logger,
	}
}

// Active reports whether a gesture is in progress.
func (c *GestureController) Active() bool { return c.state != nil }

// ActiveHandle returns the handle of the running gesture, or "".
func (c *GestureController) ActiveHandle() Handle {
	if c.state == nil {
		return ""
	}
	return c.state.handle
}

// PointerDown starts a gesture. It returns false without side effects when
// a gesture is already running, the handle is unknown, the selection holds
// nothing movable or the document rect is unknown.
func (c *GestureController) PointerDown(ev PointerEvent, handle Handle, in GestureInput) bool {
	if c.state != nil || !handle.Valid() || in.DocumentRect == nil || len(in.Selection) == 0 {
		return false
	}
	targets := gestureTargets(in.Layers, in.Selection, false)
	if len(targets) == 0 {
		return false
	}

	st := &gestureState{
		handle:     handle,
		pointerID:  ev.PointerID,
		viewport:   in.Viewport,
		rect:       *in.DocumentRect,
		lockAspect: handle.IsCorner() && !ev.Shift,
	}
	st.start = ClientToDocument(Point{X: ev.ClientX, Y: ev.ClientY}, st.viewport, st.rect)

	moving := make(map[string]bool, len(targets))
	shapes := make([]Shape, 0, len(targets))
	for _, l := range targets {
		st.snapshot = append(st.snapshot, layerSnapshot{id: l.ID, start: l.Transform})
		shapes = append(shapes, LayerShape{Layer: l})
		moving[l.ID] = true
	}
	st.startBox, _ = ShapesBounds(shapes)
	st.startAngle = angleDegrees(st.startBox.Center, st.start)

	if handle == HandleMove {
		var siblings []Shape
		for _, l := range document.FlattenForRender(in.Layers) {
			if moving[l.ID] || l.IsBase() {
				continue
			}
			siblings = append(siblings, LayerShape{Layer: l})
		}
		st.snap = NewSnapContext(c.opts, in.Viewport.Zoom, in.DocumentSize.Width, in.DocumentSize.Height, siblings)
	}

	c.state = st
	c.logger.Debug("gesture started",
		"handle", handle,
		"pointer", ev.PointerID,
		"layers", len(st.snapshot),
		"lockAspect", st.lockAspect,
	)
	return true
}

// PointerMove schedules a preview for the next frame. Only the latest
// event of a frame is evaluated.
func (c *GestureController) PointerMove(ev PointerEvent) bool {
	st := c.state
	if st == nil || ev.PointerID != st.pointerID {
		return false
	}
	c.frames.Schedule(func() {
		if c.state != st {
			return
		}
		updates, guides := c.evaluate(st, ev)
		preview := Preview{
			Handle:     st.handle,
			Transforms: make(map[string]document.Transform, len(updates)),
			Guides:     guides,
		}
		for _, u := range updates {
			preview.Transforms[u.LayerID] = u.Transform
		}
		c.listener.GesturePreview(preview)
	})
	return true
}

// PointerUp recomputes the result at the release point and commits it as
// one batch. A release that changes nothing ends the gesture like a cancel.
func (c *GestureController) PointerUp(ev PointerEvent) bool {
	st := c.state
	if st == nil || ev.PointerID != st.pointerID {
		return false
	}
	c.frames.Cancel()
	updates, _ := c.evaluate(st, ev)
	c.finish(st)

	if !changed(st.snapshot, updates) {
		c.logger.Debug("gesture ended without change", "handle", st.handle)
		c.listener.GestureCancel()
		return true
	}
	c.logger.Debug("gesture committed", "handle", st.handle, "layers", len(updates))
	c.listener.GestureCommit(Commit{Handle: st.handle, Updates: updates})
	return true
}

// PointerCancel abandons the gesture owned by pointerID.
func (c *GestureController) PointerCancel(pointerID int) bool {
	st := c.state
	if st == nil || pointerID != st.pointerID {
		return false
	}
	c.cancel(st, "pointercancel")
	return true
}

// KeyDown handles Escape while a gesture is active.
func (c *GestureController) KeyDown(key string) bool {
	st := c.state
	if st == nil || key != "Escape" {
		return false
	}
	c.cancel(st, "escape")
	return true
}

// Cancel abandons any running gesture.
func (c *GestureController) Cancel() {
	if st := c.state; st != nil {
		c.cancel(st, "reset")
	}
}

func (c *GestureController) cancel(st *gestureState, reason string) {
	c.frames.Cancel()
	c.finish(st)
	c.logger.Debug("gesture cancelled", "handle", st.handle, "reason", reason)
	c.listener.GestureCancel()
}

func (c *GestureController) finish(st *gestureState) {
	c.state = nil
	if pc, ok := c.listener.(PointerCapturer); ok {
		pc.ReleasePointerCapture(st.pointerID)
	}
}

func changed(snapshot []layerSnapshot, updates []TransformUpdate) bool {
	for i, s := range snapshot {
		if updates[i].Transform != s.start {
			return true
		}
	}
	return false
}

// evaluate returns the transforms for the pointer at ev, in snapshot order.
func (c *GestureController) evaluate(st *gestureState, ev PointerEvent) ([]TransformUpdate, []Guide) {
	p := ClientToDocument(Point{X: ev.ClientX, Y: ev.ClientY}, st.viewport, st.rect)
	delta := p.Sub(st.start)

	var fn func(document.Transform) document.Transform
	var guides []Guide

	switch {
	case st.handle == HandleMove:
		d := delta
		if delta != (Point{}) {
			starts := make([]document.Transform, len(st.snapshot))
			for i, s := range st.snapshot {
				starts[i] = s.start
			}
			res := ComputeSnap(starts, delta, st.snap)
			d, guides = res.Delta, res.Guides
		}
		fn = func(t document.Transform) document.Transform {
			return t.Translate(d.X, d.Y)
		}

	case st.handle == HandleRotate:
		angle := angleDegrees(st.startBox.Center, p) - st.startAngle
		if ev.Shift && c.opts.RotationSnapDegrees > 0 {
			angle = math.Round(angle/c.opts.RotationSnapDegrees) * c.opts.RotationSnapDegrees
		}
		fn = func(t document.Transform) document.Transform {
			t.Rotation = NormalizeAngle(t.Rotation + angle)
			return t
		}

	default:
		fn = c.resizer(st, delta)
	}

	updates := make([]TransformUpdate, len(st.snapshot))
	for i, s := range st.snapshot {
		updates[i] = TransformUpdate{LayerID: s.id, Transform: fn(s.start)}
	}
	return updates, guides
}

// resizer moves the dragged edges of the start box by delta and returns a
// function that rescales each layer about the opposite anchor.
func (c *GestureController) resizer(st *gestureState, delta Point) func(document.Transform) document.Transform {
	box := st.startBox
	left, right, top, bottom := st.handle.edges()
	minSize := math.Max(c.opts.MinResizeSize, 0)

	anchor := box.Center
	fx, fy := 1.0, 1.0

	if left || right {
		w := box.Width
		if right {
			w += delta.X
			anchor.X = box.MinX
		} else {
			w -= delta.X
			anchor.X = box.MaxX
		}
		w = math.Max(w, minSize)
		if box.Width > 0 {
			fx = w / box.Width
		}
	}
	if top || bottom {
		h := box.Height
		if bottom {
			h += delta.Y
			anchor.Y = box.MinY
		} else {
			h -= delta.Y
			anchor.Y = box.MaxY
		}
		h = math.Max(h, minSize)
		if box.Height > 0 {
			fy = h / box.Height
		}
	}
	if st.lockAspect {
		f := math.Max(fx, fy)
		fx, fy = f, f
	}

	return func(t document.Transform) document.Transform {
		center := ComputeBoundingBox(t).Center
		nc := Point{
			X: anchor.X + (center.X-anchor.X)*fx,
			Y: anchor.Y + (center.Y-anchor.Y)*fy,
		}
		t.Width = shrinkTo(t.Width, t.Width*fx, minSize/math.Abs(t.ScaleX))
		t.Height = shrinkTo(t.Height, t.Height*fy, minSize/math.Abs(t.ScaleY))
		sw, sh := t.ScaledSize()
		t.X = nc.X - sw/2
		t.Y = nc.Y - sh/2
		return t
	}
}

// shrinkTo returns next, raised to floor when a shrink would pass below it.
// A size already under floor never grows.
func shrinkTo(prev, next, floor float64) float64 {
	if next >= prev || next >= floor {
		return next
	}
	return math.Min(prev, floor)
}

func angleDegrees(center, p Point) float64 {
	return radToDeg(math.Atan2(p.Y-center.Y, p.X-center.X))
}
