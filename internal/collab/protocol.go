package collab

import (
	"encoding/json"

	"github.com/inamate/inamate/render-core/internal/engine"
)

type Message struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId,omitempty"`
	ClientID  string          `json:"clientId,omitempty"`
	ViewerID  string          `json:"viewerId,omitempty"`
	Seq       int64           `json:"seq,omitempty"`
	Payload   json.RawMessage `json:"payload"`
}

const (
	// Client -> server
	TypeViewboxSet      = "viewbox.set"
	TypeShapeUpsert     = "shape.upsert"
	TypeShapeRemove     = "shape.remove"
	TypeShapeTransform  = "shape.transform"
	TypeTilesInvalidate = "tiles.invalidate"
	TypeViewerUpdate    = "viewer.update"

	// Server -> client
	TypeWelcome          = "welcome"
	TypeFramePlan        = "frame.plan"
	TypeTransformEntries = "transform.entries"
	TypeViewerState      = "viewer.state"
	TypeViewerJoin       = "viewer.join"
	TypeViewerLeave      = "viewer.leave"
	TypeError            = "error"
)

// --- Client payloads ---

type ViewboxPayload struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Zoom   float64 `json:"zoom"`
}

type ShapeRemovePayload struct {
	ID string `json:"id"`
}

// ShapeTransformPayload folds Matrix into every listed shape.
type ShapeTransformPayload struct {
	IDs    []string   `json:"ids"`
	Matrix [6]float64 `json:"matrix"`
}

type ViewerPayload struct {
	Cursor      *CursorPos `json:"cursor,omitempty"`
	Selection   []string   `json:"selection,omitempty"`
	DisplayName string     `json:"displayName,omitempty"`
}

type CursorPos struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// --- Server payloads ---

type WelcomePayload struct {
	SessionID  string           `json:"sessionId"`
	ClientID   string           `json:"clientId"`
	DocumentID string           `json:"documentId"`
	Seq        int64            `json:"seq"`
	Viewbox    ViewboxPayload   `json:"viewbox"`
	Plan       engine.FramePlan `json:"plan"`
}

// TransformEntriesPayload carries the binary transform entries of one
// mutation, base64 encoded.
type TransformEntriesPayload struct {
	Count int    `json:"count"`
	Data  string `json:"data"`
}

type ViewerStatePayload struct {
	Viewers map[string]*ViewerPayload `json:"viewers"`
}

type ViewerJoinPayload struct {
	ViewerID    string `json:"viewerId"`
	DisplayName string `json:"displayName"`
}

type ViewerLeavePayload struct {
	ViewerID string `json:"viewerId"`
}

type ErrorPayload struct {
	Message string `json:"message"`
	Request string `json:"request,omitempty"`
}
