//go:build js && wasm

package main

import (
	"encoding/json"
	"syscall/js"

	"github.com/google/uuid"

	"github.com/inamate/inamate/render-core/internal/document"
	"github.com/inamate/inamate/render-core/internal/engine"
	"github.com/inamate/inamate/render-core/internal/geom"
	"github.com/inamate/inamate/render-core/internal/shape"
	"github.com/inamate/inamate/render-core/internal/surface"
	"github.com/inamate/inamate/render-core/internal/tiles"
)

var eng *engine.Engine

func main() {
	// The frontend owns the real tile canvases; pooled surfaces here only
	// track which tiles are cached.
	var err error
	eng, err = engine.NewEngine(engine.Options{
		Factory: surface.FactoryFunc(func(int, int) (surface.Surface, error) {
			return surface.NewImageSurface(1, 1), nil
		}),
	})
	if err != nil {
		panic(err)
	}

	renderCore := js.Global().Get("Object").New()

	// --- Commands (frontend → engine) ---
	renderCore.Set("loadDocument", js.FuncOf(loadDocument))
	renderCore.Set("loadSampleDocument", js.FuncOf(loadSampleDocument))
	renderCore.Set("setViewbox", js.FuncOf(setViewbox))
	renderCore.Set("upsertShape", js.FuncOf(upsertShape))
	renderCore.Set("removeShape", js.FuncOf(removeShape))
	renderCore.Set("applyTransform", js.FuncOf(applyTransform))
	renderCore.Set("replayTransforms", js.FuncOf(replayTransforms))
	renderCore.Set("invalidateTiles", js.FuncOf(invalidateTiles))
	renderCore.Set("setDebug", js.FuncOf(setDebug))

	// --- Queries (frontend ← engine) ---
	renderCore.Set("plan", js.FuncOf(plan))
	renderCore.Set("render", js.FuncOf(render))
	renderCore.Set("hitTest", js.FuncOf(hitTest))
	renderCore.Set("distances", js.FuncOf(distances))
	renderCore.Set("tileShapes", js.FuncOf(tileShapes))
	renderCore.Set("getShapes", js.FuncOf(getShapes))
	renderCore.Set("getDocument", js.FuncOf(getDocument))

	js.Global().Set("renderCore", renderCore)
	js.Global().Set("renderCoreReady", js.ValueOf(true))

	select {}
}

func errorValue(err error) js.Value {
	return js.ValueOf(map[string]any{"error": err.Error()})
}

func okValue() js.Value {
	return js.ValueOf(map[string]any{"ok": true})
}

// --- Command Handlers ---

func loadDocument(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return js.ValueOf(map[string]any{"error": "missing document JSON"})
	}
	if err := eng.LoadDocumentJSON([]byte(args[0].String())); err != nil {
		return errorValue(err)
	}
	return okValue()
}

func loadSampleDocument(this js.Value, args []js.Value) any {
	if err := eng.LoadDocument(document.NewSampleDocument()); err != nil {
		return errorValue(err)
	}
	return okValue()
}

// setViewbox(x, y, width, height, zoom)
func setViewbox(this js.Value, args []js.Value) any {
	if len(args) < 5 {
		return nil
	}
	err := eng.SetViewbox(tiles.Viewbox{
		Area: geom.Rect{X: args[0].Float(), Y: args[1].Float(), Width: args[2].Float(), Height: args[3].Float()},
		Zoom: args[4].Float(),
	})
	if err != nil {
		return errorValue(err)
	}
	return okValue()
}

func upsertShape(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return js.ValueOf(map[string]any{"error": "missing shape JSON"})
	}
	var sd document.ShapeData
	if err := json.Unmarshal([]byte(args[0].String()), &sd); err != nil {
		return errorValue(err)
	}
	s, err := engine.BuildShape(&sd)
	if err != nil {
		return errorValue(err)
	}
	eng.UpsertShape(s)
	return okValue()
}

func removeShape(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return nil
	}
	id, err := uuid.Parse(args[0].String())
	if err != nil {
		return errorValue(err)
	}
	if err := eng.RemoveShape(id); err != nil {
		return errorValue(err)
	}
	return okValue()
}

// applyTransform(ids: string[], matrix: number[6]) returns the encoded
// transform entries as a Uint8Array.
func applyTransform(this js.Value, args []js.Value) any {
	if len(args) < 2 {
		return nil
	}
	ids := make([]uuid.UUID, 0, args[0].Length())
	for i := 0; i < args[0].Length(); i++ {
		id, err := uuid.Parse(args[0].Index(i).String())
		if err != nil {
			return errorValue(err)
		}
		ids = append(ids, id)
	}
	var m geom.Matrix2D
	for i := range m {
		m[i] = args[1].Index(i).Float()
	}

	buf := shape.EncodeEntries(eng.ApplyTransform(ids, m))
	out := js.Global().Get("Uint8Array").New(len(buf))
	js.CopyBytesToJS(out, buf)
	return out
}

// replayTransforms(entries: Uint8Array) applies encoded transform entries in
// order and returns how many were applied.
func replayTransforms(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return nil
	}
	buf := make([]byte, args[0].Length())
	js.CopyBytesToGo(buf, args[0])
	entries, err := shape.DecodeEntries(buf)
	if err != nil {
		return errorValue(err)
	}
	return js.ValueOf(eng.ReplayTransforms(entries))
}

func invalidateTiles(this js.Value, args []js.Value) any {
	eng.InvalidateTiles()
	return nil
}

func setDebug(this js.Value, args []js.Value) any {
	eng.SetDebug(len(args) > 0 && args[0].Bool())
	return nil
}

// --- Query Handlers ---

func plan(this js.Value, args []js.Value) any {
	return js.ValueOf(eng.PlanJSON())
}

// render returns {"stats": ..., "commands": [...]} as JSON.
func render(this js.Value, args []js.Value) any {
	cmds, stats, err := eng.Frame()
	if err != nil {
		return errorValue(err)
	}
	data, err := json.Marshal(map[string]any{"stats": stats, "commands": cmds})
	if err != nil {
		return errorValue(err)
	}
	return js.ValueOf(string(data))
}

func hitTest(this js.Value, args []js.Value) any {
	if len(args) < 2 {
		return js.ValueOf("")
	}
	id, ok := eng.HitTest(geom.Point{X: args[0].Float(), Y: args[1].Float()})
	if !ok {
		return js.ValueOf("")
	}
	return js.ValueOf(id.String())
}

// distances(id, x, y) returns the edge distances as JSON.
func distances(this js.Value, args []js.Value) any {
	if len(args) < 3 {
		return js.ValueOf("{}")
	}
	id, err := uuid.Parse(args[0].String())
	if err != nil {
		return errorValue(err)
	}
	d, err := eng.Distances(id, geom.Point{X: args[1].Float(), Y: args[2].Float()})
	if err != nil {
		return errorValue(err)
	}
	data, _ := json.Marshal(d)
	return js.ValueOf(string(data))
}

// tileShapes(x, y) returns the ids at a tile in painter's order.
func tileShapes(this js.Value, args []js.Value) any {
	if len(args) < 2 {
		return js.ValueOf("[]")
	}
	t := tiles.Tile{X: int32(args[0].Int()), Y: int32(args[1].Int())}
	ids := []string{}
	for _, s := range eng.TileShapes(t) {
		ids = append(ids, s.ID.String())
	}
	data, _ := json.Marshal(ids)
	return js.ValueOf(string(data))
}

func getShapes(this js.Value, args []js.Value) any {
	return js.ValueOf(eng.ShapesJSON())
}

func getDocument(this js.Value, args []js.Value) any {
	data, err := json.Marshal(eng.Document())
	if err != nil {
		return errorValue(err)
	}
	return js.ValueOf(string(data))
}
