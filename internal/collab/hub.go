package collab

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/inamate/inamate/render-core/internal/document"
	"github.com/inamate/inamate/render-core/internal/engine"
	"github.com/inamate/inamate/render-core/internal/shape"
	"github.com/inamate/inamate/render-core/internal/typeid"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrHubStopped      = errors.New("hub stopped")
)

// EngineFactory creates the engine of a new session.
type EngineFactory func() (*engine.Engine, error)

// EntryLoader returns every stored transform entry of a document in the
// order they were saved.
type EntryLoader func(ctx context.Context, documentID string) ([]shape.TransformEntry, error)

// EntrySaver stores transform entries produced in a session. Calls are made
// one at a time, in the order the entries were produced.
type EntrySaver func(ctx context.Context, documentID string, entries []shape.TransformEntry) error

type inbound struct {
	client *Client
	msg    *Message
}

type pendingSave struct {
	documentID string
	entries    []shape.TransformEntry
}

// saveBuffer is how many batches may wait for the saver before new ones
// are dropped.
const saveBuffer = 1024

type request struct {
	sessionID string
	fn        func(*Room) error
	done      chan error
}

// Hub owns every render session. All engine access is serialized on the
// goroutine running Run.
type Hub struct {
	rooms map[string]*Room // sessionID -> room

	newEngine EngineFactory
	loader    EntryLoader
	saver     EntrySaver

	register   chan *Client
	unregister chan *Client
	inbound    chan inbound
	requests   chan request
	saves      chan pendingSave
	quit       chan struct{}
	stopped    chan struct{}
	saved      chan struct{}
}

func NewHub(newEngine EngineFactory, loader EntryLoader, saver EntrySaver) *Hub {
	return &Hub{
		rooms:      make(map[string]*Room),
		newEngine:  newEngine,
		loader:     loader,
		saver:      saver,
		register:   make(chan *Client),
		unregister: make(chan *Client),
		inbound:    make(chan inbound, 64),
		requests:   make(chan request),
		saves:      make(chan pendingSave, saveBuffer),
		quit:       make(chan struct{}),
		stopped:    make(chan struct{}),
		saved:      make(chan struct{}),
	}
}

func (h *Hub) Run() {
	defer close(h.stopped)
	go h.saveLoop()
	for {
		select {
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case in := <-h.inbound:
			h.handleMessage(in.client, in.msg)
		case req := <-h.requests:
			h.handleRequest(req)
		case <-h.quit:
			h.closeAll()
			return
		}
	}
}

// Stop ends Run and disconnects every client.
func (h *Hub) Stop() {
	select {
	case <-h.quit:
	default:
		close(h.quit)
	}
	<-h.stopped
	<-h.saved
}

func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.quit:
		close(client.send)
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.quit:
	}
}

// Submit queues a client message for the hub goroutine.
func (h *Hub) Submit(ctx context.Context, client *Client, msg *Message) error {
	select {
	case h.inbound <- inbound{client: client, msg: msg}:
		return nil
	case <-h.quit:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Do runs fn against a session's engine on the hub goroutine.
func (h *Hub) Do(ctx context.Context, sessionID string, fn func(*engine.Engine) error) error {
	return h.do(ctx, sessionID, func(r *Room) error { return fn(r.engine) })
}

func (h *Hub) do(ctx context.Context, sessionID string, fn func(*Room) error) error {
	req := request{sessionID: sessionID, fn: fn, done: make(chan error, 1)}
	select {
	case h.requests <- req:
	case <-h.quit:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-req.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// CreateSession loads doc into a new engine, replays the document's stored
// transform entries and returns the session id.
func (h *Hub) CreateSession(ctx context.Context, doc *document.Document) (string, error) {
	e, err := h.newEngine()
	if err != nil {
		return "", fmt.Errorf("create engine: %w", err)
	}
	if err := e.LoadDocument(doc); err != nil {
		return "", err
	}
	if h.loader != nil && doc.ID != "" {
		entries, err := h.loader(ctx, doc.ID)
		if err != nil {
			return "", fmt.Errorf("load entries of %s: %w", doc.ID, err)
		}
		if n := e.ReplayTransforms(entries); n > 0 {
			slog.Info("replayed transforms", "document", doc.ID, "applied", n, "stored", len(entries))
		}
	}

	sessionID := typeid.NewSessionID()
	err = h.do(ctx, "", func(*Room) error {
		h.rooms[sessionID] = NewRoom(sessionID, e)
		return nil
	})
	if err != nil {
		return "", err
	}
	slog.Info("session created", "session", sessionID, "document", doc.ID, "shapes", e.Len())
	return sessionID, nil
}

// CloseSession drops a session and disconnects its clients.
func (h *Hub) CloseSession(ctx context.Context, sessionID string) error {
	return h.do(ctx, sessionID, func(r *Room) error {
		for _, c := range r.clients {
			c.Send(errorMessage(errors.New("session closed"), ""))
			close(c.send)
		}
		delete(h.rooms, sessionID)
		slog.Info("session closed", "session", sessionID)
		return nil
	})
}

// Sessions lists the open session ids.
func (h *Hub) Sessions(ctx context.Context) ([]string, error) {
	var ids []string
	err := h.do(ctx, "", func(*Room) error {
		for id := range h.rooms {
			ids = append(ids, id)
		}
		return nil
	})
	slices.Sort(ids)
	return ids, err
}

func (h *Hub) handleRequest(req request) {
	if req.sessionID == "" {
		req.done <- req.fn(nil)
		return
	}
	room, ok := h.rooms[req.sessionID]
	if !ok {
		req.done <- fmt.Errorf("%s: %w", req.sessionID, ErrSessionNotFound)
		return
	}
	req.done <- req.fn(room)
}

func (h *Hub) addClient(client *Client) {
	room, ok := h.rooms[client.SessionID]
	if !ok {
		client.Send(errorMessage(fmt.Errorf("%s: %w", client.SessionID, ErrSessionNotFound), ""))
		close(client.send)
		return
	}
	room.clients[client.ClientID] = client

	welcome, err := json.Marshal(WelcomePayload{
		SessionID:  room.sessionID,
		ClientID:   client.ClientID,
		DocumentID: room.documentID,
		Seq:        room.seq,
		Viewbox:    room.viewboxPayload(),
		Plan:       room.engine.Plan(),
	})
	if err != nil {
		slog.Error("marshal welcome", "error", err)
	} else {
		client.Send(&Message{Type: TypeWelcome, SessionID: room.sessionID, Payload: welcome})
	}

	if stateMsg := room.viewers.StateMessage(); stateMsg != nil {
		client.Send(stateMsg)
	}

	joinPayload, _ := json.Marshal(ViewerJoinPayload{
		ViewerID:    client.ViewerID,
		DisplayName: client.DisplayName,
	})
	h.broadcastToRoom(room, &Message{
		Type:     TypeViewerJoin,
		ViewerID: client.ViewerID,
		Payload:  joinPayload,
	}, client.ClientID)

	slog.Info("client joined", "viewer", client.ViewerID, "session", client.SessionID)
}

func (h *Hub) removeClient(client *Client) {
	room, ok := h.rooms[client.SessionID]
	if !ok {
		return
	}
	if _, ok := room.clients[client.ClientID]; !ok {
		return
	}

	delete(room.clients, client.ClientID)
	close(client.send)
	room.viewers.Remove(client.ViewerID)

	leavePayload, _ := json.Marshal(ViewerLeavePayload{ViewerID: client.ViewerID})
	h.broadcastToRoom(room, &Message{
		Type:     TypeViewerLeave,
		ViewerID: client.ViewerID,
		Payload:  leavePayload,
	}, "")

	slog.Info("client left", "viewer", client.ViewerID, "session", client.SessionID)
}

func (h *Hub) handleMessage(sender *Client, msg *Message) {
	room, ok := h.rooms[sender.SessionID]
	if !ok {
		return
	}

	if msg.Type == TypeViewerUpdate {
		h.handleViewerUpdate(room, sender, msg)
		return
	}

	entries, err := room.apply(msg)
	if err != nil {
		slog.Warn("message rejected", "type", msg.Type, "viewer", sender.ViewerID, "error", err)
		sender.Send(errorMessage(err, msg.Type))
		return
	}

	if len(entries) > 0 {
		h.broadcastToRoom(room, entriesMessage(room.sessionID, room.seq, entries), "")
		h.saveEntries(room.documentID, entries)
	}
	h.broadcastToRoom(room, room.planMessage(), "")
}

func (h *Hub) handleViewerUpdate(room *Room, sender *Client, msg *Message) {
	var viewer ViewerPayload
	if err := json.Unmarshal(msg.Payload, &viewer); err != nil {
		slog.Warn("invalid viewer payload", "error", err)
		return
	}
	viewer.DisplayName = sender.DisplayName
	room.viewers.Update(sender.ViewerID, &viewer)

	outPayload, _ := json.Marshal(viewer)
	h.broadcastToRoom(room, &Message{
		Type:     TypeViewerUpdate,
		ViewerID: sender.ViewerID,
		Payload:  outPayload,
	}, sender.ClientID)
}

// saveEntries queues entries for the save loop. Entries are deltas, so
// they must reach the saver in the order they were produced.
func (h *Hub) saveEntries(documentID string, entries []shape.TransformEntry) {
	if h.saver == nil || documentID == "" {
		return
	}
	select {
	case h.saves <- pendingSave{documentID: documentID, entries: entries}:
	default:
		slog.Error("save queue full, dropping transform entries", "document", documentID, "count", len(entries))
	}
}

// saveLoop hands queued entries to the saver one batch at a time. Batches
// still queued at shutdown are saved before it returns.
func (h *Hub) saveLoop() {
	defer close(h.saved)
	for {
		select {
		case p := <-h.saves:
			h.save(p)
		case <-h.stopped:
			for {
				select {
				case p := <-h.saves:
					h.save(p)
				default:
					return
				}
			}
		}
	}
}

func (h *Hub) save(p pendingSave) {
	if err := h.saver(context.Background(), p.documentID, p.entries); err != nil {
		slog.Error("save transform entries", "document", p.documentID, "error", err)
	}
}

func (h *Hub) broadcastToRoom(room *Room, msg *Message, excludeClientID string) {
	for _, c := range room.clients {
		if c.ClientID != excludeClientID {
			c.Send(msg)
		}
	}
}

func (h *Hub) closeAll() {
	for id, room := range h.rooms {
		for _, c := range room.clients {
			close(c.send)
		}
		delete(h.rooms, id)
	}
}
