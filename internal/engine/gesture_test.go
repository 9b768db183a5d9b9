package engine

import (
	"testing"

	"github.com/inamate/composer/internal/document"
)

type recorder struct {
	previews []Preview
	commits  []Commit
	cancels  int
	released []int
}

func (r *recorder) GesturePreview(p Preview)          { r.previews = append(r.previews, p) }
func (r *recorder) GestureCommit(c Commit)            { r.commits = append(r.commits, c) }
func (r *recorder) GestureCancel()                    { r.cancels++ }
func (r *recorder) ReleasePointerCapture(pointer int) { r.released = append(r.released, pointer) }

type gestureFixture struct {
	rec    *recorder
	frames *FrameScheduler
	ctl    *GestureController
	input  GestureInput
}

func newGestureFixture(vp Viewport, layers ...document.Layer) *gestureFixture {
	doc := document.NewDocument("doc", "Test", 1920, 1080, "bg")
	all := doc.Layers
	var selection []string
	for _, l := range layers {
		var err error
		all, err = document.AddLayer(all, l, "")
		if err != nil {
			panic(err)
		}
		selection = append(selection, l.ID)
	}
	rect := DocumentRect(vp, ClientRect{Width: 1200, Height: 800}, Size{1920, 1080})
	f := &gestureFixture{rec: &recorder{}, frames: &FrameScheduler{}}
	f.ctl = NewGestureController(DefaultOptions(), f.rec, f.frames, nil)
	f.input = GestureInput{
		Layers:       all,
		Selection:    selection,
		Viewport:     vp,
		DocumentRect: &rect,
		DocumentSize: Size{1920, 1080},
	}
	return f
}

// at converts a document point into a pointer event for the fixture's viewport.
func (f *gestureFixture) at(x, y float64) PointerEvent {
	c := DocumentToClient(Point{x, y}, f.input.Viewport, *f.input.DocumentRect)
	return PointerEvent{PointerID: 1, ClientX: c.X, ClientY: c.Y}
}

func (f *gestureFixture) lastCommit(t *testing.T) map[string]document.Transform {
	t.Helper()
	if len(f.rec.commits) != 1 {
		t.Fatalf("commits = %d, want 1", len(f.rec.commits))
	}
	out := make(map[string]document.Transform)
	for _, u := range f.rec.commits[0].Updates {
		out[u.LayerID] = u.Transform
	}
	return out
}

func assertTransform(t *testing.T, got document.Transform, x, y, w, h float64) {
	t.Helper()
	if !near(got.X, x) || !near(got.Y, y) || !near(got.Width, w) || !near(got.Height, h) {
		t.Errorf("transform = (%v,%v %vx%v), want (%v,%v %vx%v)",
			got.X, got.Y, got.Width, got.Height, x, y, w, h)
	}
}

func square(id string, x, y, size float64) document.Layer {
	return document.NewImageLayer(id, id, "", tf(x, y, size, size))
}

func TestAspectLockedCornerResize(t *testing.T) {
	for _, vp := range []Viewport{
		{Zoom: 1},
		{Zoom: 2, OffsetX: 10, OffsetY: 20},
		{Zoom: 0.5, OffsetX: -40, OffsetY: 7},
	} {
		f := newGestureFixture(vp, square("L", 100, 100, 100))
		if !f.ctl.PointerDown(f.at(200, 200), HandleSE, f.input) {
			t.Fatal("PointerDown refused")
		}
		f.ctl.PointerMove(f.at(250, 225))
		f.frames.Flush()
		if len(f.rec.previews) != 1 {
			t.Fatalf("previews = %d", len(f.rec.previews))
		}
		f.ctl.PointerUp(f.at(250, 225))

		got := f.lastCommit(t)["L"]
		assertTransform(t, got, 100, 100, 150, 150)
		if f.ctl.Active() {
			t.Error("gesture still active after commit")
		}
		if len(f.rec.released) != 1 || f.rec.released[0] != 1 {
			t.Errorf("pointer capture released = %v", f.rec.released)
		}
	}
}

func TestResizeHandles(t *testing.T) {
	tests := []struct {
		name   string
		handle Handle
		shift  bool
		to     Point // pointer end, starting from (200,200)
		want   [4]float64
	}{
		{"edge never locks", HandleE, false, Point{250, 230}, [4]float64{100, 100, 150, 100}},
		{"shift unlocks corner", HandleSE, true, Point{250, 225}, [4]float64{100, 100, 150, 125}},
		{"north edge anchors bottom", HandleN, false, Point{200, 150}, [4]float64{100, 50, 100, 150}},
		{"clamped to minimum", HandleNW, false, Point{400, 400}, [4]float64{192, 192, 8, 8}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newGestureFixture(Viewport{Zoom: 1}, square("L", 100, 100, 100))
			down := f.at(200, 200)
			down.Shift = tt.shift
			f.ctl.PointerDown(down, tt.handle, f.input)
			up := f.at(tt.to.X, tt.to.Y)
			up.Shift = tt.shift
			f.ctl.PointerUp(up)
			assertTransform(t, f.lastCommit(t)["L"], tt.want[0], tt.want[1], tt.want[2], tt.want[3])
		})
	}
}

func TestMultiLayerResizeKeepsLayout(t *testing.T) {
	f := newGestureFixture(Viewport{Zoom: 1}, square("a", 0, 0, 50), square("b", 50, 50, 50))
	f.ctl.PointerDown(f.at(100, 100), HandleSE, f.input)
	f.ctl.PointerUp(f.at(200, 200))

	got := f.lastCommit(t)
	assertTransform(t, got["a"], 0, 0, 100, 100)
	assertTransform(t, got["b"], 100, 100, 100, 100)
}

func TestMultiLayerResizeClampsEachLayer(t *testing.T) {
	f := newGestureFixture(Viewport{Zoom: 1}, square("big", 0, 0, 500), square("small", 490, 490, 10))
	f.ctl.PointerDown(f.at(500, 500), HandleSE, f.input)
	f.ctl.PointerUp(f.at(100, 100))

	got := f.lastCommit(t)
	assertTransform(t, got["big"], 0, 0, 100, 100)
	assertTransform(t, got["small"], 95, 95, 8, 8)
}

func TestMoveSnapsToGrid(t *testing.T) {
	f := newGestureFixture(Viewport{Zoom: 1}, square("L", 100, 100, 100))
	f.ctl.PointerDown(f.at(150, 150), HandleMove, f.input)
	f.ctl.PointerMove(f.at(173.5, 150))
	f.frames.Flush()

	p := f.rec.previews[0]
	assertTransform(t, p.Transforms["L"], 120, 100, 100, 100)
	if len(p.Guides) == 0 || p.Guides[0].Orientation != GuideVertical || !near(p.Guides[0].Position, 120) {
		t.Errorf("guides = %+v", p.Guides)
	}

	f.ctl.PointerUp(f.at(173.5, 150))
	assertTransform(t, f.lastCommit(t)["L"], 120, 100, 100, 100)
}

func TestPreviewIsCoalescedPerFrame(t *testing.T) {
	f := newGestureFixture(Viewport{Zoom: 1}, square("L", 100, 100, 100))
	f.ctl.PointerDown(f.at(150, 150), HandleMove, f.input)
	f.ctl.PointerMove(f.at(301, 301))
	f.ctl.PointerMove(f.at(501, 401))
	f.frames.Flush()

	if len(f.rec.previews) != 1 {
		t.Fatalf("previews = %d, want 1", len(f.rec.previews))
	}
	assertTransform(t, f.rec.previews[0].Transforms["L"], 450, 350, 100, 100)
}

func TestRotate(t *testing.T) {
	tests := []struct {
		name  string
		start float64
		shift bool
		want  float64
	}{
		{"free", 0, false, radToDeg(0.4636476090008061)},
		{"snapped to step", 0, true, 30},
		{"wraps past 360", 350, true, 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := square("L", 100, 100, 100)
			l.Transform.Rotation = tt.start
			f := newGestureFixture(Viewport{Zoom: 1}, l)
			f.ctl.PointerDown(f.at(250, 150), HandleRotate, f.input)
			up := f.at(250, 200)
			up.Shift = tt.shift
			f.ctl.PointerUp(up)

			got := f.lastCommit(t)["L"]
			if !near(got.Rotation, tt.want) {
				t.Errorf("rotation = %v, want %v", got.Rotation, tt.want)
			}
			if got.X != 100 || got.Y != 100 || got.Width != 100 {
				t.Errorf("rotation moved the layer: %+v", got)
			}
		})
	}
}

func TestCancelLeavesNoCommit(t *testing.T) {
	f := newGestureFixture(Viewport{Zoom: 1}, square("L", 100, 100, 100))
	f.ctl.PointerDown(f.at(150, 150), HandleMove, f.input)
	f.ctl.PointerMove(f.at(180, 190))
	f.frames.Flush()
	f.ctl.PointerMove(f.at(185, 195))

	if !f.ctl.PointerCancel(1) {
		t.Fatal("PointerCancel ignored")
	}
	if len(f.rec.commits) != 0 || f.rec.cancels != 1 {
		t.Fatalf("commits = %d, cancels = %d", len(f.rec.commits), f.rec.cancels)
	}
	if f.frames.Pending() {
		t.Error("cancel left a preview scheduled")
	}
	if f.ctl.PointerMove(f.at(200, 200)) || f.ctl.PointerUp(f.at(200, 200)) {
		t.Error("events after cancel were accepted")
	}

	if !f.ctl.PointerDown(f.at(150, 150), HandleMove, f.input) {
		t.Fatal("fresh gesture did not start after cancel")
	}
	f.ctl.PointerUp(f.at(160, 150))
	if len(f.rec.commits) != 1 {
		t.Errorf("fresh gesture commits = %d", len(f.rec.commits))
	}
}

func TestEscapeCancels(t *testing.T) {
	f := newGestureFixture(Viewport{Zoom: 1}, square("L", 100, 100, 100))
	if f.ctl.KeyDown("Escape") {
		t.Error("Escape while idle reported handled")
	}
	f.ctl.PointerDown(f.at(150, 150), HandleRotate, f.input)
	if f.ctl.KeyDown("a") {
		t.Error("non-Escape key cancelled")
	}
	if !f.ctl.KeyDown("Escape") || f.ctl.Active() || f.rec.cancels != 1 {
		t.Error("Escape did not cancel")
	}
}

func TestSecondPointerIgnored(t *testing.T) {
	f := newGestureFixture(Viewport{Zoom: 1}, square("L", 100, 100, 100))
	f.ctl.PointerDown(f.at(150, 150), HandleMove, f.input)

	other := f.at(300, 300)
	other.PointerID = 2
	if f.ctl.PointerDown(other, HandleMove, f.input) {
		t.Error("second pointer started a gesture")
	}
	if f.ctl.PointerMove(other) || f.ctl.PointerUp(other) || f.ctl.PointerCancel(2) {
		t.Error("second pointer drove the active gesture")
	}
	if !f.ctl.Active() {
		t.Error("first gesture was dropped")
	}
}

func TestPointerDownPreconditions(t *testing.T) {
	f := newGestureFixture(Viewport{Zoom: 1}, square("L", 100, 100, 100))

	in := f.input
	in.Selection = nil
	if f.ctl.PointerDown(f.at(150, 150), HandleMove, in) {
		t.Error("started with an empty selection")
	}

	in = f.input
	in.DocumentRect = nil
	if f.ctl.PointerDown(f.at(150, 150), HandleMove, in) {
		t.Error("started without a document rect")
	}

	in = f.input
	in.Selection = []string{"bg"}
	if f.ctl.PointerDown(f.at(150, 150), HandleMove, in) {
		t.Error("started on the base layer")
	}

	if f.ctl.PointerDown(f.at(150, 150), Handle("spin"), f.input) {
		t.Error("started on an unknown handle")
	}
}

func TestReleaseWithoutChangeCancels(t *testing.T) {
	f := newGestureFixture(Viewport{Zoom: 1}, square("L", 100, 100, 100))
	f.ctl.PointerDown(f.at(150, 150), HandleMove, f.input)
	f.ctl.PointerUp(f.at(150, 150))
	if len(f.rec.commits) != 0 || f.rec.cancels != 1 {
		t.Errorf("click without drag: commits = %d, cancels = %d", len(f.rec.commits), f.rec.cancels)
	}

	f = newGestureFixture(Viewport{Zoom: 1}, square("L", 100, 100, 100))
	f.ctl.PointerDown(f.at(150, 150), HandleMove, f.input)
	f.ctl.PointerMove(f.at(260, 190))
	f.frames.Flush()
	f.ctl.PointerUp(f.at(150, 150))
	if len(f.rec.commits) != 0 || f.rec.cancels != 1 {
		t.Errorf("drag back to start: commits = %d, cancels = %d", len(f.rec.commits), f.rec.cancels)
	}
	if f.ctl.Active() || len(f.rec.released) != 1 {
		t.Errorf("gesture not finished: active = %v, released = %v", f.ctl.Active(), f.rec.released)
	}
}
