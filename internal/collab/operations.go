package collab

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/inamate/inamate/render-core/internal/document"
	"github.com/inamate/inamate/render-core/internal/engine"
	"github.com/inamate/inamate/render-core/internal/geom"
	"github.com/inamate/inamate/render-core/internal/shape"
	"github.com/inamate/inamate/render-core/internal/tiles"
)

var ErrUnknownMessage = errors.New("unknown message type")

// Room is one render session: an engine and the clients watching it. A room
// is only touched by the hub goroutine.
type Room struct {
	sessionID  string
	documentID string
	engine     *engine.Engine
	clients    map[string]*Client // clientID -> client
	viewers    *Viewers
	seq        int64
}

func NewRoom(sessionID string, e *engine.Engine) *Room {
	return &Room{
		sessionID:  sessionID,
		documentID: e.DocumentID(),
		engine:     e,
		clients:    make(map[string]*Client),
		viewers:    NewViewers(),
	}
}

// Engine returns the session's engine. Callers outside the hub goroutine
// must go through Hub.Do.
func (r *Room) Engine() *engine.Engine { return r.engine }

// Seq returns the number of mutations applied so far.
func (r *Room) Seq() int64 { return r.seq }

// apply runs a client mutation against the engine and returns the
// transform entries it produced, if any.
func (r *Room) apply(msg *Message) ([]shape.TransformEntry, error) {
	var (
		entries []shape.TransformEntry
		err     error
	)
	switch msg.Type {
	case TypeViewboxSet:
		err = r.applyViewbox(msg.Payload)
	case TypeShapeUpsert:
		err = r.applyUpsert(msg.Payload)
	case TypeShapeRemove:
		err = r.applyRemove(msg.Payload)
	case TypeShapeTransform:
		entries, err = r.applyTransform(msg.Payload)
	case TypeTilesInvalidate:
		r.engine.InvalidateTiles()
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownMessage, msg.Type)
	}
	if err != nil {
		return nil, err
	}
	r.seq++
	return entries, nil
}

func (r *Room) applyViewbox(payload json.RawMessage) error {
	var vb ViewboxPayload
	if err := json.Unmarshal(payload, &vb); err != nil {
		return fmt.Errorf("unmarshal viewbox: %w", err)
	}
	if vb.Zoom == 0 {
		vb.Zoom = 1
	}
	return r.engine.SetViewbox(tiles.Viewbox{
		Area: geom.Rect{X: vb.X, Y: vb.Y, Width: vb.Width, Height: vb.Height},
		Zoom: vb.Zoom,
	})
}

func (r *Room) applyUpsert(payload json.RawMessage) error {
	var sd document.ShapeData
	if err := json.Unmarshal(payload, &sd); err != nil {
		return fmt.Errorf("unmarshal shape: %w", err)
	}
	s, err := engine.BuildShape(&sd)
	if err != nil {
		return err
	}
	r.engine.UpsertShape(s)
	return nil
}

func (r *Room) applyRemove(payload json.RawMessage) error {
	var p ShapeRemovePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("unmarshal remove: %w", err)
	}
	id, err := uuid.Parse(p.ID)
	if err != nil {
		return fmt.Errorf("parse shape id %q: %w", p.ID, err)
	}
	return r.engine.RemoveShape(id)
}

func (r *Room) applyTransform(payload json.RawMessage) ([]shape.TransformEntry, error) {
	var p ShapeTransformPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("unmarshal transform: %w", err)
	}
	ids := make([]uuid.UUID, 0, len(p.IDs))
	for _, s := range p.IDs {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("parse shape id %q: %w", s, err)
		}
		ids = append(ids, id)
	}
	m := geom.Matrix2D(p.Matrix)
	if !m.Float32().IsFinite() {
		return nil, fmt.Errorf("transform %v: %w", p.Matrix, geom.ErrOutOfRange)
	}
	return r.engine.ApplyTransform(ids, m), nil
}

func (r *Room) viewboxPayload() ViewboxPayload {
	vb := r.engine.Viewbox()
	return ViewboxPayload{X: vb.Area.X, Y: vb.Area.Y, Width: vb.Area.Width, Height: vb.Area.Height, Zoom: vb.Zoom}
}

func (r *Room) planMessage() *Message {
	payload, err := json.Marshal(r.engine.Plan())
	if err != nil {
		return errorMessage(fmt.Errorf("marshal plan: %w", err), "")
	}
	return &Message{Type: TypeFramePlan, SessionID: r.sessionID, Seq: r.seq, Payload: payload}
}

func entriesMessage(sessionID string, seq int64, entries []shape.TransformEntry) *Message {
	payload, _ := json.Marshal(TransformEntriesPayload{
		Count: len(entries),
		Data:  base64.StdEncoding.EncodeToString(shape.EncodeEntries(entries)),
	})
	return &Message{Type: TypeTransformEntries, SessionID: sessionID, Seq: seq, Payload: payload}
}

// DecodeEntriesPayload turns a transform.entries payload back into entries.
func DecodeEntriesPayload(p TransformEntriesPayload) ([]shape.TransformEntry, error) {
	buf, err := base64.StdEncoding.DecodeString(p.Data)
	if err != nil {
		return nil, fmt.Errorf("decode entries: %w", err)
	}
	entries, err := shape.DecodeEntries(buf)
	if err != nil {
		return nil, err
	}
	if len(entries) != p.Count {
		return nil, fmt.Errorf("decode entries: got %d entries, header says %d", len(entries), p.Count)
	}
	return entries, nil
}

func errorMessage(err error, request string) *Message {
	payload, _ := json.Marshal(ErrorPayload{Message: err.Error(), Request: request})
	return &Message{Type: TypeError, Payload: payload}
}
