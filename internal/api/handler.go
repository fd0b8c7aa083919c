// Package api exposes render sessions over HTTP: session lifecycle, frame
// plans, per-tile queries and PNG previews for inspection.
package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/inamate/inamate/render-core/internal/collab"
	"github.com/inamate/inamate/render-core/internal/document"
	"github.com/inamate/inamate/render-core/internal/engine"
	"github.com/inamate/inamate/render-core/internal/geom"
	"github.com/inamate/inamate/render-core/internal/shape"
	"github.com/inamate/inamate/render-core/internal/tiles"
)

const (
	maxDocumentSize = 8 << 20
	maxOverlaySize  = 4096
)

type Handler struct {
	hub *collab.Hub
}

func NewHandler(hub *collab.Hub) *Handler {
	return &Handler{hub: hub}
}

type sessionResponse struct {
	SessionID  string `json:"sessionId"`
	DocumentID string `json:"documentId"`
	Shapes     int    `json:"shapes"`
}

type tileResponse struct {
	Tile   tiles.Tile           `json:"tile"`
	Rect   [4]float64           `json:"rect"`
	Cached bool                 `json:"cached"`
	Shapes []document.ShapeData `json:"shapes"`
}

type hitResponse struct {
	Hit     bool                  `json:"hit"`
	ShapeID string                `json:"shapeId,omitempty"`
	Edges   *engine.EdgeDistances `json:"edges,omitempty"`
}

type frameResponse struct {
	Stats    engine.FrameStats    `json:"stats"`
	Commands []engine.DrawCommand `json:"commands"`
}

// CreateSession starts a session from the posted document, or from the
// sample scene when the body is empty.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxDocumentSize+1))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if len(body) > maxDocumentSize {
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "document too large"})
		return
	}

	doc := document.NewSampleDocument()
	if len(bytes.TrimSpace(body)) > 0 {
		doc = &document.Document{}
		if err := json.Unmarshal(body, doc); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid document"})
			return
		}
	}

	sessionID, err := h.hub.CreateSession(r.Context(), doc)
	if err != nil {
		slog.Warn("create session failed", "document", doc.ID, "error", err)
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, sessionResponse{SessionID: sessionID, DocumentID: doc.ID, Shapes: len(doc.Shapes)})
}

func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	ids, err := h.hub.Sessions(r.Context())
	if err != nil {
		handleHubError(w, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"sessions": ids})
}

func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.hub.CloseSession(r.Context(), mux.Vars(r)["sessionId"]); err != nil {
		handleHubError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	var doc *document.Document
	err := h.do(r, func(e *engine.Engine) error {
		doc = e.Document()
		return nil
	})
	if err != nil {
		handleHubError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (h *Handler) GetPlan(w http.ResponseWriter, r *http.Request) {
	var plan engine.FramePlan
	err := h.do(r, func(e *engine.Engine) error {
		plan = e.Plan()
		return nil
	})
	if err != nil {
		handleHubError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

// GetTile lists the shapes registered at one tile in painter's order.
func (h *Handler) GetTile(w http.ResponseWriter, r *http.Request) {
	t, err := tileFromVars(mux.Vars(r))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	var resp tileResponse
	err = h.do(r, func(e *engine.Engine) error {
		rect := e.TileRect(t)
		resp = tileResponse{
			Tile:   t,
			Rect:   [4]float64{rect.X, rect.Y, rect.Width, rect.Height},
			Cached: e.TileCached(t),
			Shapes: []document.ShapeData{},
		}
		for _, s := range e.TileShapes(t) {
			resp.Shapes = append(resp.Shapes, engine.ShapeData(s))
		}
		return nil
	})
	if err != nil {
		handleHubError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// HitTest reports the topmost shape at canvas point (x, y) and the point's
// distances to that shape's edges.
func (h *Handler) HitTest(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	x, errX := strconv.ParseFloat(q.Get("x"), 64)
	y, errY := strconv.ParseFloat(q.Get("y"), 64)
	if errX != nil || errY != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "x and y must be numbers"})
		return
	}
	p := geom.Point{X: x, Y: y}

	var resp hitResponse
	err := h.do(r, func(e *engine.Engine) error {
		id, ok := e.HitTest(p)
		if !ok {
			return nil
		}
		d, err := e.Distances(id, p)
		if err != nil {
			return err
		}
		resp = hitResponse{Hit: true, ShapeID: id.String(), Edges: &d}
		return nil
	})
	if err != nil {
		handleHubError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetFrame renders the next frame as a draw command buffer.
func (h *Handler) GetFrame(w http.ResponseWriter, r *http.Request) {
	var resp frameResponse
	err := h.do(r, func(e *engine.Engine) error {
		cmds, stats, err := e.Frame()
		resp = frameResponse{Stats: stats, Commands: cmds}
		return err
	})
	if err != nil {
		handleHubError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetFramePNG renders the viewport with the flat preview drawer.
func (h *Handler) GetFramePNG(w http.ResponseWriter, r *http.Request) {
	var (
		img   image.Image
		stats engine.FrameStats
	)
	err := h.do(r, func(e *engine.Engine) error {
		var err error
		img, stats, err = e.RenderPreview()
		return err
	})
	if err != nil {
		handleHubError(w, err)
		return
	}
	w.Header().Set("X-Tiles-Drawn", strconv.Itoa(stats.Drawn))
	w.Header().Set("X-Tiles-Cached", strconv.Itoa(stats.Cached))
	w.Header().Set("X-Tiles-Direct", strconv.Itoa(stats.Direct))
	writePNG(w, img)
}

// GetDebugPNG draws the debug overlay, 800x600 unless width and height are
// given.
func (h *Handler) GetDebugPNG(w http.ResponseWriter, r *http.Request) {
	width, err := intParam(r, "width", 800)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	height, err := intParam(r, "height", 600)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	var img image.Image
	err = h.do(r, func(e *engine.Engine) error {
		img = e.DebugOverlay(width, height)
		return nil
	})
	if err != nil {
		handleHubError(w, err)
		return
	}
	writePNG(w, img)
}

func (h *Handler) do(r *http.Request, fn func(*engine.Engine) error) error {
	return h.hub.Do(r.Context(), mux.Vars(r)["sessionId"], fn)
}

func tileFromVars(vars map[string]string) (tiles.Tile, error) {
	x, err := strconv.ParseInt(vars["x"], 10, 32)
	if err != nil {
		return tiles.Tile{}, fmt.Errorf("invalid tile x %q", vars["x"])
	}
	y, err := strconv.ParseInt(vars["y"], 10, 32)
	if err != nil {
		return tiles.Tile{}, fmt.Errorf("invalid tile y %q", vars["y"])
	}
	return tiles.Tile{X: int32(x), Y: int32(y)}, nil
}

func intParam(r *http.Request, name string, def int) (int, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil || v <= 0 || v > maxOverlaySize {
		return 0, fmt.Errorf("%s must be in 1..%d", name, maxOverlaySize)
	}
	return v, nil
}

func handleHubError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, collab.ErrSessionNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
	case errors.Is(err, shape.ErrUnknownShape):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "shape not found"})
	case errors.Is(err, collab.ErrHubStopped):
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "shutting down"})
	default:
		slog.Error("session request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func writePNG(w http.ResponseWriter, img image.Image) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		slog.Error("encode png", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
