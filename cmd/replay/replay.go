package main

import (
	"fmt"
	"time"

	"github.com/inamate/composer/internal/document"
	"github.com/inamate/composer/internal/engine"
)

// Session is a recorded editing session: the host layout it ran in and the
// input it produced.
type Session struct {
	Container engine.ClientRect `json:"container"`
	Viewport  *engine.Viewport  `json:"viewport,omitempty"`
	Selection []string          `json:"selection"`
	Events    []SessionEvent    `json:"events"`
}

// SessionEvent is one recorded input. T is a monotonic timestamp in
// milliseconds.
type SessionEvent struct {
	engine.PointerEvent
	Type      string   `json:"type"`
	T         float64  `json:"t"`
	Handle    string   `json:"handle,omitempty"`
	Key       string   `json:"key,omitempty"`
	Selection []string `json:"selection,omitempty"`
}

type Commit struct {
	Op      string                   `json:"op"`
	Updates []engine.TransformUpdate `json:"updates"`
}

type Report struct {
	Commits []Commit `json:"commits"`
	Cancels int      `json:"cancels"`
}

func eventTime(ms float64) time.Time {
	return time.UnixMilli(0).Add(time.Duration(ms * float64(time.Millisecond)))
}

// Replay loads doc into eng, feeds it the session and collects the commits.
// A down event without a handle picks the handle under the pointer.
func Replay(eng *engine.Engine, doc *document.Document, s Session) (Report, error) {
	eng.SetContainer(s.Container)
	eng.SetDocument(doc)
	if s.Viewport != nil {
		eng.SetViewport(*s.Viewport)
	}
	eng.SetSelection(s.Selection)
	eng.DrainEvents()

	report := Report{Commits: []Commit{}}
	for i, ev := range s.Events {
		switch ev.Type {
		case "select":
			eng.SetSelection(ev.Selection)
		case "down":
			handle := engine.Handle(ev.Handle)
			if handle == "" {
				handle = eng.HandleAt(ev.ClientX, ev.ClientY, 1)
			}
			eng.PointerDown(ev.PointerEvent, handle)
		case "move":
			eng.PointerMove(ev.PointerEvent)
		case "up":
			eng.PointerUp(ev.PointerEvent)
		case "cancel":
			eng.PointerCancel(ev.PointerID)
		case "key":
			eng.KeyDown(ev.Key)
		case "frame":
			eng.Frame(eventTime(ev.T))
		default:
			return report, fmt.Errorf("event %d: unknown type %q", i, ev.Type)
		}

		for _, out := range eng.DrainEvents() {
			switch out.Type {
			case engine.EventCommit:
				report.Commits = append(report.Commits, Commit{Op: out.Op, Updates: out.Updates})
			case engine.EventCancel:
				report.Cancels++
			}
		}
	}
	return report, nil
}
