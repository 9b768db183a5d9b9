package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/inamate/composer/internal/document"
	"github.com/inamate/composer/internal/engine"
)

func testDoc(t *testing.T) *document.Document {
	t.Helper()
	doc := document.NewDocument("doc", "Test", 1920, 1080, "bg")
	l := document.NewImageLayer("L", "L", "", document.Transform{X: 100, Y: 100, Width: 100, Height: 100, ScaleX: 1, ScaleY: 1})
	var err error
	if doc.Layers, err = document.AddLayer(doc.Layers, l, ""); err != nil {
		t.Fatal(err)
	}
	return doc
}

func pointerAt(typ string, t, x, y float64) SessionEvent {
	return SessionEvent{Type: typ, T: t, PointerEvent: engine.PointerEvent{PointerID: 1, ClientX: x, ClientY: y}}
}

func testSession() Session {
	return Session{
		Container: engine.ClientRect{Width: 800, Height: 600},
		Viewport:  &engine.Viewport{Zoom: 1},
		Selection: []string{"L"},
		Events: []SessionEvent{
			pointerAt("down", 0, 200, 200),
			pointerAt("move", 8, 250, 225),
			{Type: "frame", T: 16},
			pointerAt("up", 20, 250, 225),
			pointerAt("down", 40, 180, 180),
			pointerAt("move", 48, 220, 220),
			{Type: "key", Key: "Escape"},
		},
	}
}

func TestReplay(t *testing.T) {
	report, err := Replay(engine.NewEngine(engine.DefaultOptions(), nil), testDoc(t), testSession())
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if len(report.Commits) != 1 || report.Cancels != 1 {
		t.Fatalf("report = %+v", report)
	}
	c := report.Commits[0]
	if c.Op != string(engine.HandleSE) || len(c.Updates) != 1 {
		t.Fatalf("commit = %+v", c)
	}
	if got := c.Updates[0].Transform; got.Width != 150 || got.Height != 150 || got.X != 100 {
		t.Errorf("committed transform = %+v", got)
	}
}

func TestReplayUnknownEvent(t *testing.T) {
	s := testSession()
	s.Events = append(s.Events, SessionEvent{Type: "teleport"})
	if _, err := Replay(engine.NewEngine(engine.DefaultOptions(), nil), testDoc(t), s); err == nil {
		t.Error("unknown event accepted")
	}
}

func TestRootCommand(t *testing.T) {
	dir := t.TempDir()
	write := func(name string, v any) string {
		data, err := json.Marshal(v)
		if err != nil {
			t.Fatal(err)
		}
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			t.Fatal(err)
		}
		return path
	}
	docPath := write("doc.json", testDoc(t))
	sessionPath := write("session.json", testSession())

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--document", docPath, "--session", sessionPath})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	var report Report
	if err := json.Unmarshal(out.Bytes(), &report); err != nil {
		t.Fatalf("decode output %q: %v", out.String(), err)
	}
	if len(report.Commits) != 1 {
		t.Errorf("commits = %+v", report.Commits)
	}

	cmd = newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--document", docPath})
	if err := cmd.Execute(); err == nil {
		t.Error("missing --session accepted")
	}
}
