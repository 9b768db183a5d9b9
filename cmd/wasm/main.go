//go:build js && wasm

package main

import (
	"encoding/json"
	"log/slog"
	"os"
	"syscall/js"
	"time"

	"github.com/inamate/composer/internal/engine"
)

var eng *engine.Engine

func main() {
	opts := engine.DefaultOptions()
	opts.ReducedMotion = prefersReducedMotion()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))
	eng = engine.NewEngine(opts, logger)

	// Create the engine API object
	composerEngine := js.Global().Get("Object").New()

	// --- Commands (frontend → engine) ---
	composerEngine.Set("loadDocument", js.FuncOf(loadDocument))
	composerEngine.Set("updateDocument", js.FuncOf(updateDocument))
	composerEngine.Set("loadSampleDocument", js.FuncOf(loadSampleDocument))
	composerEngine.Set("setSelection", js.FuncOf(setSelection))
	composerEngine.Set("setContainer", js.FuncOf(setContainer))
	composerEngine.Set("setViewport", js.FuncOf(setViewport))
	composerEngine.Set("fitToScreen", js.FuncOf(fitToScreen))
	composerEngine.Set("zoomTo", js.FuncOf(zoomTo))
	composerEngine.Set("wheel", js.FuncOf(wheel))
	composerEngine.Set("panStart", js.FuncOf(panStart))
	composerEngine.Set("panMove", js.FuncOf(panMove))
	composerEngine.Set("panEnd", js.FuncOf(panEnd))
	composerEngine.Set("pointerDown", js.FuncOf(pointerDown))
	composerEngine.Set("pointerMove", js.FuncOf(pointerMove))
	composerEngine.Set("pointerUp", js.FuncOf(pointerUp))
	composerEngine.Set("pointerCancel", js.FuncOf(pointerCancel))
	composerEngine.Set("keyDown", js.FuncOf(keyDown))
	composerEngine.Set("frame", js.FuncOf(frame))

	// --- Layer tree commands ---
	composerEngine.Set("moveLayer", js.FuncOf(moveLayer))
	composerEngine.Set("groupSelection", js.FuncOf(groupSelection))
	composerEngine.Set("ungroup", js.FuncOf(ungroup))
	composerEngine.Set("duplicateLayer", js.FuncOf(duplicateLayer))
	composerEngine.Set("removeLayer", js.FuncOf(removeLayer))
	composerEngine.Set("setVisibility", js.FuncOf(setVisibility))
	composerEngine.Set("setLocked", js.FuncOf(setLocked))
	composerEngine.Set("setCollapsed", js.FuncOf(setCollapsed))
	composerEngine.Set("renameLayer", js.FuncOf(renameLayer))
	composerEngine.Set("addImageLayer", js.FuncOf(addImageLayer))

	// --- Queries (frontend ← engine) ---
	composerEngine.Set("render", js.FuncOf(render))
	composerEngine.Set("hitTest", js.FuncOf(hitTest))
	composerEngine.Set("handleAt", js.FuncOf(handleAt))
	composerEngine.Set("getSelectionBounds", js.FuncOf(getSelectionBounds))
	composerEngine.Set("getDocument", js.FuncOf(getDocument))
	composerEngine.Set("getViewport", js.FuncOf(getViewport))
	composerEngine.Set("getSelection", js.FuncOf(getSelection))
	composerEngine.Set("drainEvents", js.FuncOf(drainEvents))

	// Register on global scope
	js.Global().Set("composerEngine", composerEngine)

	// Signal that WASM is ready
	js.Global().Set("composerWasmReady", js.ValueOf(true))

	// Keep Go runtime alive
	select {}
}

func prefersReducedMotion() bool {
	mm := js.Global().Get("matchMedia")
	if mm.Type() != js.TypeFunction {
		return false
	}
	return js.Global().Call("matchMedia", "(prefers-reduced-motion: reduce)").Get("matches").Truthy()
}

// --- Argument helpers ---

func ok() interface{} {
	return js.ValueOf(map[string]interface{}{"ok": true})
}

func fail(msg string) interface{} {
	return js.ValueOf(map[string]interface{}{"error": msg})
}

func argString(args []js.Value, i int) string {
	if len(args) <= i || args[i].Type() != js.TypeString {
		return ""
	}
	return args[i].String()
}

func argFloat(args []js.Value, i int) float64 {
	if len(args) <= i || args[i].Type() != js.TypeNumber {
		return 0
	}
	return args[i].Float()
}

func argInt(args []js.Value, i int) int {
	if len(args) <= i || args[i].Type() != js.TypeNumber {
		return 0
	}
	return args[i].Int()
}

func argBool(args []js.Value, i int) bool {
	return len(args) > i && args[i].Truthy()
}

// argTime reads a performance.now() timestamp in milliseconds.
func argTime(args []js.Value, i int) time.Time {
	ms := argFloat(args, i)
	return time.UnixMilli(0).Add(time.Duration(ms * float64(time.Millisecond)))
}

func argPointer(args []js.Value, i int) (engine.PointerEvent, bool) {
	var ev engine.PointerEvent
	if err := json.Unmarshal([]byte(argString(args, i)), &ev); err != nil {
		return ev, false
	}
	return ev, true
}

// --- Command Handlers ---

func loadDocument(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return fail("missing document JSON")
	}
	if err := eng.LoadDocument(args[0].String()); err != nil {
		return fail(err.Error())
	}
	return ok()
}

func updateDocument(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return fail("missing document JSON")
	}
	if err := eng.UpdateDocument(args[0].String()); err != nil {
		return fail(err.Error())
	}
	return ok()
}

func loadSampleDocument(this js.Value, args []js.Value) interface{} {
	docID := "sample"
	if id := argString(args, 0); id != "" {
		docID = id
	}
	eng.LoadSampleDocument(docID)
	return ok()
}

func setSelection(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 || args[0].Type() != js.TypeObject {
		eng.SetSelection(nil)
		return nil
	}

	arr := args[0]
	length := arr.Length()
	ids := make([]string, length)
	for i := 0; i < length; i++ {
		ids[i] = arr.Index(i).String()
	}
	eng.SetSelection(ids)
	return nil
}

func setContainer(this js.Value, args []js.Value) interface{} {
	eng.SetContainer(engine.ClientRect{
		Left:   argFloat(args, 0),
		Top:    argFloat(args, 1),
		Width:  argFloat(args, 2),
		Height: argFloat(args, 3),
	})
	return nil
}

func setViewport(this js.Value, args []js.Value) interface{} {
	var vp engine.Viewport
	if err := json.Unmarshal([]byte(argString(args, 0)), &vp); err != nil {
		return fail("invalid viewport JSON")
	}
	eng.SetViewport(vp)
	return ok()
}

func fitToScreen(this js.Value, args []js.Value) interface{} {
	eng.FitToScreen()
	return nil
}

func zoomTo(this js.Value, args []js.Value) interface{} {
	eng.ZoomTo(argFloat(args, 0))
	return nil
}

func wheel(this js.Value, args []js.Value) interface{} {
	eng.Wheel(argFloat(args, 0), argFloat(args, 1), argFloat(args, 2), argFloat(args, 3), argBool(args, 4))
	return nil
}

func panStart(this js.Value, args []js.Value) interface{} {
	eng.PanStart(argInt(args, 0), argFloat(args, 1), argFloat(args, 2), argTime(args, 3))
	return nil
}

func panMove(this js.Value, args []js.Value) interface{} {
	eng.PanMove(argInt(args, 0), argFloat(args, 1), argFloat(args, 2), argTime(args, 3))
	return nil
}

func panEnd(this js.Value, args []js.Value) interface{} {
	eng.PanEnd(argInt(args, 0), argTime(args, 1))
	return js.ValueOf(eng.Panning())
}

func pointerDown(this js.Value, args []js.Value) interface{} {
	ev, valid := argPointer(args, 0)
	if !valid {
		return js.ValueOf(false)
	}
	return js.ValueOf(eng.PointerDown(ev, engine.Handle(argString(args, 1))))
}

func pointerMove(this js.Value, args []js.Value) interface{} {
	ev, valid := argPointer(args, 0)
	return js.ValueOf(valid && eng.PointerMove(ev))
}

func pointerUp(this js.Value, args []js.Value) interface{} {
	ev, valid := argPointer(args, 0)
	return js.ValueOf(valid && eng.PointerUp(ev))
}

func pointerCancel(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.PointerCancel(argInt(args, 0)))
}

func keyDown(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.KeyDown(argString(args, 0)))
}

// frame is called from requestAnimationFrame; it reports whether the host
// should schedule another one.
func frame(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.Frame(argTime(args, 0)))
}

// --- Layer tree handlers ---

func moveLayer(this js.Value, args []js.Value) interface{} {
	if err := eng.MoveLayer(argString(args, 0), argString(args, 1), argInt(args, 2)); err != nil {
		return fail(err.Error())
	}
	return ok()
}

func groupSelection(this js.Value, args []js.Value) interface{} {
	id, err := eng.GroupSelection()
	if err != nil {
		return fail(err.Error())
	}
	return js.ValueOf(map[string]interface{}{"ok": true, "id": id})
}

func ungroup(this js.Value, args []js.Value) interface{} {
	if err := eng.Ungroup(argString(args, 0)); err != nil {
		return fail(err.Error())
	}
	return ok()
}

func duplicateLayer(this js.Value, args []js.Value) interface{} {
	id, err := eng.DuplicateLayer(argString(args, 0))
	if err != nil {
		return fail(err.Error())
	}
	return js.ValueOf(map[string]interface{}{"ok": true, "id": id})
}

func removeLayer(this js.Value, args []js.Value) interface{} {
	if err := eng.RemoveLayer(argString(args, 0)); err != nil {
		return fail(err.Error())
	}
	return ok()
}

func setVisibility(this js.Value, args []js.Value) interface{} {
	if err := eng.SetVisibility(argString(args, 0), argBool(args, 1)); err != nil {
		return fail(err.Error())
	}
	return ok()
}

func setLocked(this js.Value, args []js.Value) interface{} {
	if err := eng.SetLocked(argString(args, 0), argBool(args, 1)); err != nil {
		return fail(err.Error())
	}
	return ok()
}

func setCollapsed(this js.Value, args []js.Value) interface{} {
	if err := eng.SetCollapsed(argString(args, 0), argBool(args, 1)); err != nil {
		return fail(err.Error())
	}
	return ok()
}

func renameLayer(this js.Value, args []js.Value) interface{} {
	if err := eng.RenameLayer(argString(args, 0), argString(args, 1)); err != nil {
		return fail(err.Error())
	}
	return ok()
}

func addImageLayer(this js.Value, args []js.Value) interface{} {
	id, err := eng.AddImageLayer(argString(args, 0), argString(args, 1), argFloat(args, 2), argFloat(args, 3))
	if err != nil {
		return fail(err.Error())
	}
	return js.ValueOf(map[string]interface{}{"ok": true, "id": id})
}

// --- Query Handlers ---

func render(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.Render())
}

func hitTest(this js.Value, args []js.Value) interface{} {
	id := eng.HitTest(argFloat(args, 0), argFloat(args, 1), argBool(args, 2))
	if id == "" {
		return js.Null()
	}
	return js.ValueOf(id)
}

func handleAt(this js.Value, args []js.Value) interface{} {
	dpr := argFloat(args, 2)
	if dpr == 0 {
		dpr = js.Global().Get("devicePixelRatio").Float()
	}
	h := eng.HandleAt(argFloat(args, 0), argFloat(args, 1), dpr)
	if h == "" {
		return js.Null()
	}
	return js.ValueOf(string(h))
}

func getSelectionBounds(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.GetSelectionBounds())
}

func getDocument(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.GetDocument())
}

func getViewport(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.GetViewport())
}

func getSelection(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.GetSelection())
}

// drainEvents returns the queued engine events as a JSON array.
func drainEvents(this js.Value, args []js.Value) interface{} {
	data, err := json.Marshal(eng.DrainEvents())
	if err != nil {
		return js.ValueOf("[]")
	}
	if string(data) == "null" {
		return js.ValueOf("[]")
	}
	return js.ValueOf(string(data))
}
