//go:build js && wasm

package main

import (
	"encoding/json"
	"syscall/js"

	"github.com/pagemark/pagemark/backend-go/internal/document"
	"github.com/pagemark/pagemark/backend-go/internal/engine"
)

var eng *engine.Engine

func main() {
	eng = engine.New()

	pagemarkEngine := js.Global().Get("Object").New()

	// --- Commands (frontend → backend) ---
	pagemarkEngine.Set("loadDocument", js.FuncOf(loadDocument))
	pagemarkEngine.Set("loadSampleDocument", js.FuncOf(loadSampleDocument))
	pagemarkEngine.Set("pointerDown", js.FuncOf(pointerDown))
	pagemarkEngine.Set("select", js.FuncOf(selectElement))
	pagemarkEngine.Set("clearSelection", js.FuncOf(clearSelection))
	pagemarkEngine.Set("createElement", js.FuncOf(createElement))
	pagemarkEngine.Set("updateElement", js.FuncOf(updateElement))
	pagemarkEngine.Set("duplicateElement", js.FuncOf(duplicateElement))
	pagemarkEngine.Set("deleteElement", js.FuncOf(deleteElement))
	pagemarkEngine.Set("beginGesture", js.FuncOf(beginGesture))
	pagemarkEngine.Set("endGesture", js.FuncOf(endGesture))
	pagemarkEngine.Set("undo", js.FuncOf(undo))
	pagemarkEngine.Set("redo", js.FuncOf(redo))
	pagemarkEngine.Set("setPage", js.FuncOf(setPage))
	pagemarkEngine.Set("addPage", js.FuncOf(addPage))
	pagemarkEngine.Set("deletePage", js.FuncOf(deletePage))
	pagemarkEngine.Set("duplicatePage", js.FuncOf(duplicatePage))
	pagemarkEngine.Set("setZoom", js.FuncOf(setZoom))
	pagemarkEngine.Set("setViewportOrigin", js.FuncOf(setViewportOrigin))

	// --- Queries (frontend ← backend) ---
	pagemarkEngine.Set("render", js.FuncOf(render))
	pagemarkEngine.Set("getDocument", js.FuncOf(getDocument))
	pagemarkEngine.Set("getSelection", js.FuncOf(getSelection))
	pagemarkEngine.Set("drainReleasedAssets", js.FuncOf(drainReleasedAssets))

	js.Global().Set("pagemarkEngine", pagemarkEngine)

	// Signal that WASM is ready
	js.Global().Set("pagemarkWasmReady", js.ValueOf(true))

	// Keep Go runtime alive
	select {}
}

// --- Command Handlers ---

func loadDocument(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf(map[string]interface{}{"error": "missing document JSON"})
	}

	if err := eng.LoadDocument([]byte(args[0].String())); err != nil {
		return js.ValueOf(map[string]interface{}{"error": err.Error()})
	}
	return js.ValueOf(map[string]interface{}{"ok": true})
}

func loadSampleDocument(this js.Value, args []js.Value) interface{} {
	id := "doc_sample"
	if len(args) > 0 && args[0].Type() == js.TypeString {
		id = args[0].String()
	}
	eng.SetDocument(document.NewSampleDocument(id))
	return js.ValueOf(map[string]interface{}{"ok": true})
}

func pointerDown(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return js.ValueOf("")
	}
	return js.ValueOf(eng.PointerDown(args[0].Float(), args[1].Float()))
}

func selectElement(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf(false)
	}
	return js.ValueOf(eng.Select(args[0].String()))
}

func clearSelection(this js.Value, args []js.Value) interface{} {
	eng.ClearSelection()
	return nil
}

func createElement(this js.Value, args []js.Value) interface{} {
	if len(args) < 3 {
		return js.ValueOf("")
	}
	el := eng.CreateElement(document.ElementType(args[0].String()), args[1].Float(), args[2].Float())
	if el == nil {
		return js.ValueOf("")
	}
	return js.ValueOf(el.ID)
}

func updateElement(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return js.ValueOf(false)
	}

	var patch engine.ElementPatch
	if err := json.Unmarshal([]byte(args[1].String()), &patch); err != nil {
		return js.ValueOf(false)
	}
	return js.ValueOf(eng.UpdateElement(args[0].String(), patch))
}

func duplicateElement(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf("")
	}
	el := eng.DuplicateElement(args[0].String())
	if el == nil {
		return js.ValueOf("")
	}
	return js.ValueOf(el.ID)
}

func deleteElement(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf(false)
	}
	return js.ValueOf(eng.DeleteElement(args[0].String()))
}

func beginGesture(this js.Value, args []js.Value) interface{} {
	eng.BeginGesture()
	return nil
}

func endGesture(this js.Value, args []js.Value) interface{} {
	eng.EndGesture()
	return nil
}

func undo(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.Undo())
}

func redo(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.Redo())
}

func setPage(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf(false)
	}
	return js.ValueOf(eng.SetPage(args[0].Int()))
}

func addPage(this js.Value, args []js.Value) interface{} {
	page := eng.AddPage()
	if page == nil {
		return js.ValueOf("")
	}
	return js.ValueOf(page.ID)
}

func deletePage(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf(false)
	}
	return js.ValueOf(eng.DeletePage(args[0].Int()))
}

func duplicatePage(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf("")
	}
	page := eng.DuplicatePage(args[0].Int())
	if page == nil {
		return js.ValueOf("")
	}
	return js.ValueOf(page.ID)
}

func setZoom(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return nil
	}
	eng.SetZoom(args[0].Float())
	return nil
}

func setViewportOrigin(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return nil
	}
	eng.SetViewportOrigin(args[0].Float(), args[1].Float())
	return nil
}

// --- Query Handlers ---

func render(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.RenderJSON())
}

func getDocument(this js.Value, args []js.Value) interface{} {
	data, err := eng.Serialize()
	if err != nil {
		return js.ValueOf("")
	}
	return js.ValueOf(string(data))
}

func getSelection(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.Selection())
}

func drainReleasedAssets(this js.Value, args []js.Value) interface{} {
	ids := eng.DrainReleasedAssets()
	out := make([]interface{}, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return js.ValueOf(out)
}
