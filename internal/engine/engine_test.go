package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/inamate/composer/internal/document"
)

func newTestEngine(t *testing.T, layers ...document.Layer) *Engine {
	t.Helper()
	doc := document.NewDocument("doc", "Test", 1920, 1080, "bg")
	for _, l := range layers {
		var err error
		doc.Layers, err = document.AddLayer(doc.Layers, l, "")
		if err != nil {
			t.Fatalf("AddLayer(%s): %v", l.ID, err)
		}
	}
	n := 0
	e := NewEngine(DefaultOptions(), nil)
	e.SetIDFactory(func() string {
		n++
		return fmt.Sprintf("n%d", n)
	})
	e.SetContainer(ClientRect{Width: 800, Height: 600})
	e.SetDocument(doc)
	e.SetViewport(Viewport{Zoom: 1})
	e.DrainEvents()
	return e
}

func eventsOf(events []Event, typ EventType) []Event {
	var out []Event
	for _, ev := range events {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

func pointer(x, y float64) PointerEvent {
	return PointerEvent{PointerID: 7, ClientX: x, ClientY: y}
}

func TestEngineLoadFitsViewport(t *testing.T) {
	e := NewEngine(DefaultOptions(), nil)
	e.SetContainer(ClientRect{Width: 1040, Height: 620})
	e.LoadSampleDocument("doc_sample")

	vp := e.Viewport()
	if !near(vp.Zoom, 0.5) || !near(vp.OffsetX, 40) || !near(vp.OffsetY, 40) {
		t.Errorf("viewport = %+v", vp)
	}
	if got := eventsOf(e.DrainEvents(), EventViewport); len(got) != 1 {
		t.Errorf("viewport events = %d", len(got))
	}

	var cmds []DrawCommand
	if err := json.Unmarshal([]byte(e.Render()), &cmds); err != nil {
		t.Fatalf("Render JSON: %v", err)
	}
	if len(cmds) != 5 || cmds[0].Op != "base" {
		t.Errorf("display list = %+v", cmds)
	}
}

func TestEngineLoadDocumentJSON(t *testing.T) {
	e := NewEngine(DefaultOptions(), nil)
	if err := e.LoadDocument("{"); err == nil {
		t.Error("malformed JSON accepted")
	}

	doc := document.NewDocument("doc", "Test", 100, 100, "bg")
	doc.Layers[0].Locked = false
	data, _ := json.Marshal(doc)
	if err := e.LoadDocument(string(data)); err != nil {
		t.Fatalf("LoadDocument: %v", err)
	}
	if !e.Document().Layers[0].Locked {
		t.Error("base invariant not restored on load")
	}
}

func TestEngineResizeGestureCommits(t *testing.T) {
	e := newTestEngine(t, square("L", 100, 100, 100))
	e.SetSelection([]string{"L"})

	if h := e.HandleAt(200, 200, 1); h != HandleSE {
		t.Fatalf("HandleAt(corner) = %q", h)
	}
	if h := e.HandleAt(150, 150, 1); h != HandleMove {
		t.Fatalf("HandleAt(inside) = %q", h)
	}
	if h := e.HandleAt(500, 500, 1); h != "" {
		t.Fatalf("HandleAt(outside) = %q", h)
	}

	if !e.PointerDown(pointer(200, 200), HandleSE) {
		t.Fatal("PointerDown refused")
	}
	e.PointerMove(pointer(250, 225))
	if e.Frame(t0) {
		t.Error("Frame asked for another frame with nothing pending")
	}

	var cmds []DrawCommand
	_ = json.Unmarshal([]byte(e.Render()), &cmds)
	if len(cmds) != 2 || cmds[1].Width != 150 {
		t.Errorf("preview not rendered: %+v", cmds)
	}
	if stored, _ := document.FindLayer(e.Document().Layers, "L"); stored.Transform.Width != 100 {
		t.Error("preview leaked into the document")
	}

	e.PointerUp(pointer(250, 225))
	events := e.DrainEvents()
	if len(eventsOf(events, EventPreview)) != 1 {
		t.Errorf("preview events = %+v", events)
	}
	commits := eventsOf(events, EventCommit)
	if len(commits) != 1 || len(commits[0].Updates) != 1 {
		t.Fatalf("commit events = %+v", commits)
	}
	assertTransform(t, commits[0].Updates[0].Transform, 100, 100, 150, 150)
	if len(eventsOf(events, EventReleaseCapture)) != 1 {
		t.Error("pointer capture not released")
	}

	stored, _ := document.FindLayer(e.Document().Layers, "L")
	assertTransform(t, stored.Transform, 100, 100, 150, 150)

	var box BoundingBox
	if err := json.Unmarshal([]byte(e.GetSelectionBounds()), &box); err != nil {
		t.Fatalf("selection bounds JSON: %v", err)
	}
	if box.MaxX != 250 || box.MaxY != 250 {
		t.Errorf("selection bounds = %+v", box)
	}
}

func TestEngineCancelThenRestart(t *testing.T) {
	e := newTestEngine(t, square("L", 100, 100, 100))
	e.SetSelection([]string{"L"})

	e.PointerDown(pointer(150, 150), HandleMove)
	e.PointerMove(pointer(190, 170))
	e.Frame(t0)
	e.PointerCancel(7)

	events := e.DrainEvents()
	if len(eventsOf(events, EventCommit)) != 0 || len(eventsOf(events, EventCancel)) != 1 {
		t.Fatalf("events = %+v", events)
	}
	if e.GestureActive() {
		t.Fatal("gesture survived cancel")
	}
	stored, _ := document.FindLayer(e.Document().Layers, "L")
	assertTransform(t, stored.Transform, 100, 100, 100, 100)

	if !e.PointerDown(pointer(150, 150), HandleMove) {
		t.Fatal("fresh gesture refused")
	}
	e.KeyDown("Escape")
	if e.GestureActive() {
		t.Error("Escape did not cancel")
	}
}

func TestEngineHitTestUsesViewport(t *testing.T) {
	e := newTestEngine(t, square("A", 100, 100, 200), square("B", 100, 100, 200))
	e.SetViewport(Viewport{Zoom: 2, OffsetX: -100, OffsetY: -100})

	// Document (150,150) sits at client (200,200).
	if got := e.HitTest(200, 200, false); got != "B" {
		t.Errorf("HitTest = %q, want B", got)
	}
	if err := e.MoveLayer("A", "", 5); err != nil {
		t.Fatalf("MoveLayer: %v", err)
	}
	if got := e.HitTest(200, 200, false); got != "A" {
		t.Errorf("HitTest after reorder = %q, want A", got)
	}
	if got := e.HitTest(5, 5, false); got != "" {
		t.Errorf("HitTest on empty canvas = %q", got)
	}
}

func TestEngineTreeCommands(t *testing.T) {
	e := newTestEngine(t, square("a", 0, 0, 10), square("b", 20, 20, 10))

	e.SetSelection([]string{"a"})
	if _, err := e.GroupSelection(); !errors.Is(err, document.ErrTooFewLayers) {
		t.Errorf("GroupSelection(one) error = %v", err)
	}
	if err := e.RemoveLayer("bg"); !errors.Is(err, document.ErrBaseLayer) {
		t.Errorf("RemoveLayer(base) error = %v", err)
	}
	if err := e.SetLocked("missing", true); !errors.Is(err, document.ErrLayerNotFound) {
		t.Errorf("SetLocked(missing) error = %v", err)
	}

	e.SetSelection([]string{"a", "b"})
	gid, err := e.GroupSelection()
	if err != nil || gid != "n1" {
		t.Fatalf("GroupSelection = %q, %v", gid, err)
	}
	if sel := e.Selection(); len(sel) != 1 || sel[0] != "n1" {
		t.Errorf("selection after group = %v", sel)
	}

	dup, err := e.DuplicateLayer("a")
	if err != nil {
		t.Fatalf("DuplicateLayer: %v", err)
	}
	clone, _ := document.FindLayer(e.Document().Layers, dup)
	if clone.Name != "a copy" || clone.Parent() != gid {
		t.Errorf("clone = %+v", clone)
	}

	if err := e.SetVisibility(gid, false); err != nil {
		t.Fatalf("SetVisibility: %v", err)
	}
	if got := e.HitTest(5, 5, false); got != "" {
		t.Errorf("hidden group still hit %q", got)
	}

	if err := e.SetCollapsed(gid, true); err != nil {
		t.Fatalf("SetCollapsed: %v", err)
	}
	if g, _ := document.FindLayer(e.Document().Layers, gid); !g.Collapsed {
		t.Error("group not collapsed")
	}
	if err := e.SetCollapsed("b", true); !errors.Is(err, document.ErrNotGroup) {
		t.Errorf("SetCollapsed(image) error = %v", err)
	}

	if err := e.Ungroup(gid); err != nil {
		t.Fatalf("Ungroup: %v", err)
	}
	if sel := e.Selection(); len(sel) != 3 {
		t.Errorf("selection after ungroup = %v", sel)
	}

	if err := e.RemoveLayer("a"); err != nil {
		t.Fatalf("RemoveLayer: %v", err)
	}
	for _, id := range e.Selection() {
		if id == "a" {
			t.Error("removed layer still selected")
		}
	}

	id, err := e.AddImageLayer("Photo", "/assets/p.png", 400, 200)
	if err != nil {
		t.Fatalf("AddImageLayer: %v", err)
	}
	added, _ := document.FindLayer(e.Document().Layers, id)
	assertTransform(t, added.Transform, 760, 440, 400, 200)

	layerEvents := eventsOf(e.DrainEvents(), EventLayers)
	var ops []string
	for _, ev := range layerEvents {
		ops = append(ops, ev.Op)
	}
	want := []string{"group", "duplicate", "visibility", "collapsed", "ungroup", "remove", "add"}
	if fmt.Sprint(ops) != fmt.Sprint(want) {
		t.Errorf("layer ops = %v, want %v", ops, want)
	}
}

func TestEnginePanWithInertia(t *testing.T) {
	e := newTestEngine(t)
	e.PanStart(1, 100, 100, ms(0))
	e.PanMove(1, 140, 100, ms(16))
	if got := e.Viewport().OffsetX; got != 40 {
		t.Fatalf("offset after drag = %v", got)
	}
	e.PanEnd(1, ms(20))
	if !e.Panning() {
		t.Fatal("fast release did not glide")
	}

	now := 20
	for e.Frame(ms(now)) {
		now += 16
		if now > 2000 {
			t.Fatal("glide never settled")
		}
	}
	vp := e.Viewport()
	if vp.OffsetX <= 40 {
		t.Errorf("glide did not carry the viewport: %+v", vp)
	}
	b := ComputePanBounds(vp, Size{800, 600}, Size{1920, 1080}, DefaultOptions().PanMarginFactor)
	if vp.OffsetX > b.MaxX || vp.OffsetX < b.MinX {
		t.Errorf("settled outside pan bounds: %+v not in %+v", vp, b)
	}
	if e.Panning() {
		t.Error("still panning after settle")
	}
}

func TestEnginePanElasticThenSettles(t *testing.T) {
	e := newTestEngine(t)
	b := ComputePanBounds(e.Viewport(), Size{800, 600}, Size{1920, 1080}, DefaultOptions().PanMarginFactor)

	e.PanStart(1, 0, 0, ms(0))
	e.PanMove(1, b.MaxX+100, 0, ms(500))
	got := e.Viewport().OffsetX
	want := b.MaxX + 100*DefaultOptions().PanResistance
	if !near(got, want) {
		t.Errorf("elastic offset = %v, want %v", got, want)
	}

	e.PanEnd(1, ms(900))
	if e.Panning() || e.Viewport().OffsetX != b.MaxX {
		t.Errorf("slow release should settle at the bound, got %+v", e.Viewport())
	}
}

func TestEngineWheelZoomKeepsCursor(t *testing.T) {
	e := newTestEngine(t)
	e.SetContainer(ClientRect{Left: 50, Top: 30, Width: 800, Height: 600})
	e.SetViewport(Viewport{Zoom: 1, OffsetX: 10, OffsetY: 10})

	cursor := Point{X: 350, Y: 230}
	before := ClientToDocument(cursor, e.Viewport(), *e.documentRect())
	e.Wheel(cursor.X, cursor.Y, 0, -120, true)
	if e.Viewport().Zoom <= 1 {
		t.Fatalf("wheel up did not zoom in: %+v", e.Viewport())
	}
	after := DocumentToClient(before, e.Viewport(), *e.documentRect())
	if !nearPoint(after, cursor) {
		t.Errorf("cursor moved from %+v to %+v", cursor, after)
	}
}
