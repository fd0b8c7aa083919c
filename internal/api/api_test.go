package api

import (
	"context"
	"encoding/json"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"golang.org/x/crypto/bcrypt"

	"github.com/inamate/inamate/render-core/internal/auth"
	"github.com/inamate/inamate/render-core/internal/collab"
	"github.com/inamate/inamate/render-core/internal/document"
	"github.com/inamate/inamate/render-core/internal/engine"
	"github.com/inamate/inamate/render-core/internal/geom"
)

type testServer struct {
	*httptest.Server
	token string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter22"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	authSvc := auth.NewService("operator", string(hash), "test-secret")

	hub := collab.NewHub(func() (*engine.Engine, error) { return engine.NewEngine(engine.Options{}) }, nil, nil)
	go hub.Run()

	srv := httptest.NewServer(NewRouter(hub, authSvc, []string{"*"}))
	t.Cleanup(srv.Close)
	t.Cleanup(hub.Stop)

	ts := &testServer{Server: srv}
	res := ts.request(t, http.MethodPost, "/auth/login", `{"operator":"operator","password":"hunter22"}`)
	var login auth.AuthResult
	decode(t, res, http.StatusOK, &login)
	ts.token = login.Token
	return ts
}

func (ts *testServer) request(t *testing.T, method, path, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, ts.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	if ts.token != "" {
		req.Header.Set("Authorization", "Bearer "+ts.token)
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { res.Body.Close() })
	return res
}

func decode(t *testing.T, res *http.Response, status int, v any) {
	t.Helper()
	if res.StatusCode != status {
		body, _ := io.ReadAll(res.Body)
		t.Fatalf("%s %s: status %d, want %d: %s", res.Request.Method, res.Request.URL.Path, res.StatusCode, status, body)
	}
	if v == nil {
		return
	}
	if err := json.NewDecoder(res.Body).Decode(v); err != nil {
		t.Fatal(err)
	}
}

func (ts *testServer) createSession(t *testing.T) sessionResponse {
	t.Helper()
	var s sessionResponse
	decode(t, ts.request(t, http.MethodPost, "/api/sessions", ""), http.StatusCreated, &s)
	return s
}

func TestSessionLifecycle(t *testing.T) {
	ts := newTestServer(t)
	s := ts.createSession(t)
	if s.Shapes != 6 || s.DocumentID == "" {
		t.Errorf("session = %+v", s)
	}

	var list map[string][]string
	decode(t, ts.request(t, http.MethodGet, "/api/sessions", ""), http.StatusOK, &list)
	if len(list["sessions"]) != 1 || list["sessions"][0] != s.SessionID {
		t.Errorf("sessions = %v", list)
	}

	var doc document.Document
	decode(t, ts.request(t, http.MethodGet, "/api/sessions/"+s.SessionID+"/document", ""), http.StatusOK, &doc)
	if doc.ID != s.DocumentID || len(doc.Shapes) != 6 {
		t.Errorf("document %s with %d shapes", doc.ID, len(doc.Shapes))
	}

	decode(t, ts.request(t, http.MethodDelete, "/api/sessions/"+s.SessionID, ""), http.StatusNoContent, nil)
	decode(t, ts.request(t, http.MethodGet, "/api/sessions/"+s.SessionID+"/plan", ""), http.StatusNotFound, nil)
	decode(t, ts.request(t, http.MethodDelete, "/api/sessions/"+s.SessionID, ""), http.StatusNotFound, nil)
}

func TestCreateSessionFromDocument(t *testing.T) {
	ts := newTestServer(t)

	doc := document.NewEmptyDocument("doc_custom", "custom")
	doc.Shapes = append(doc.Shapes, document.ShapeData{ID: "550e8400-e29b-41d4-a716-446655440000", Type: "rect", Selrect: [4]float64{0, 0, 10, 10}})
	body, _ := json.Marshal(doc)

	var s sessionResponse
	decode(t, ts.request(t, http.MethodPost, "/api/sessions", string(body)), http.StatusCreated, &s)
	if s.DocumentID != "doc_custom" || s.Shapes != 1 {
		t.Errorf("session = %+v", s)
	}

	decode(t, ts.request(t, http.MethodPost, "/api/sessions", "{"), http.StatusBadRequest, nil)
	decode(t, ts.request(t, http.MethodPost, "/api/sessions", `{"shapes":[{"id":"nope"}]}`), http.StatusUnprocessableEntity, nil)
}

func TestTileAndPlanQueries(t *testing.T) {
	ts := newTestServer(t)
	s := ts.createSession(t)
	base := "/api/sessions/" + s.SessionID

	var plan engine.FramePlan
	decode(t, ts.request(t, http.MethodGet, base+"/plan", ""), http.StatusOK, &plan)
	if len(plan.Tiles) != 6 {
		t.Errorf("plan tiles = %d", len(plan.Tiles))
	}

	tests := []struct {
		path   string
		status int
		shapes int
	}{
		{"/tiles/0/0", http.StatusOK, 2},
		{"/tiles/1/0", http.StatusOK, 5},
		{"/tiles/-4/-4", http.StatusOK, 0},
		{"/tiles/a/0", http.StatusNotFound, 0},
		{"/tiles/99999999999/0", http.StatusBadRequest, 0},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			res := ts.request(t, http.MethodGet, base+tt.path, "")
			if tt.status != http.StatusOK {
				decode(t, res, tt.status, nil)
				return
			}
			var tile tileResponse
			decode(t, res, http.StatusOK, &tile)
			if len(tile.Shapes) != tt.shapes || tile.Rect[2] != 512 {
				t.Errorf("tile = %+v", tile)
			}
		})
	}
}

func TestHitTest(t *testing.T) {
	ts := newTestServer(t)
	s := ts.createSession(t)
	base := "/api/sessions/" + s.SessionID

	var hit hitResponse
	decode(t, ts.request(t, http.MethodGet, base+"/hit?x=300&y=275", ""), http.StatusOK, &hit)
	if !hit.Hit || hit.Edges == nil || !hit.Edges.Inside() {
		t.Errorf("hit = %+v", hit)
	}

	var miss hitResponse
	decode(t, ts.request(t, http.MethodGet, base+"/hit?x=10&y=700", ""), http.StatusOK, &miss)
	if miss.Hit {
		t.Errorf("miss = %+v", miss)
	}

	decode(t, ts.request(t, http.MethodGet, base+"/hit?x=left", ""), http.StatusBadRequest, nil)
}

func TestFrameAndImages(t *testing.T) {
	ts := newTestServer(t)
	s := ts.createSession(t)
	base := "/api/sessions/" + s.SessionID

	var frame frameResponse
	decode(t, ts.request(t, http.MethodGet, base+"/frame", ""), http.StatusOK, &frame)
	if frame.Stats.Drawn != 5 || len(frame.Commands) == 0 {
		t.Errorf("frame stats = %+v", frame.Stats)
	}

	res := ts.request(t, http.MethodGet, base+"/frame.png", "")
	if res.StatusCode != http.StatusOK || res.Header.Get("Content-Type") != "image/png" {
		t.Fatalf("frame.png: %d %s", res.StatusCode, res.Header.Get("Content-Type"))
	}
	if res.Header.Get("X-Tiles-Cached") != "5" {
		t.Errorf("frame.png after /frame: cached = %s", res.Header.Get("X-Tiles-Cached"))
	}
	img, err := png.Decode(res.Body)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 1280 || b.Dy() != 720 {
		t.Errorf("frame.png size = %v", b)
	}

	res = ts.request(t, http.MethodGet, base+"/debug.png?width=320&height=200", "")
	img, err = png.Decode(res.Body)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 320 || b.Dy() != 200 {
		t.Errorf("debug.png size = %v", b)
	}

	decode(t, ts.request(t, http.MethodGet, base+"/debug.png?width=0", ""), http.StatusBadRequest, nil)
}

func TestRequiresToken(t *testing.T) {
	ts := newTestServer(t)
	ts.token = ""

	decode(t, ts.request(t, http.MethodGet, "/api/sessions", ""), http.StatusUnauthorized, nil)
	decode(t, ts.request(t, http.MethodGet, "/health", ""), http.StatusOK, nil)
	decode(t, ts.request(t, http.MethodGet, "/ws/sessions/sess_x", ""), http.StatusUnauthorized, nil)
}

func TestWebSocketSession(t *testing.T) {
	ts := newTestServer(t)
	s := ts.createSession(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/sessions/" + s.SessionID + "?token=" + ts.token
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	read := func(typ string) collab.Message {
		t.Helper()
		for {
			var msg collab.Message
			if err := wsjson.Read(ctx, conn, &msg); err != nil {
				t.Fatalf("waiting for %s: %v", typ, err)
			}
			if msg.Type == typ {
				return msg
			}
		}
	}

	welcome := read(collab.TypeWelcome)
	if welcome.SessionID != s.SessionID {
		t.Errorf("welcome for %s", welcome.SessionID)
	}

	var doc document.Document
	decode(t, ts.request(t, http.MethodGet, "/api/sessions/"+s.SessionID+"/document", ""), http.StatusOK, &doc)

	payload, _ := json.Marshal(collab.ShapeTransformPayload{IDs: []string{doc.Shapes[0].ID}, Matrix: geom.Translate(10, 0)})
	if err := wsjson.Write(ctx, conn, collab.Message{Type: collab.TypeShapeTransform, Payload: payload}); err != nil {
		t.Fatal(err)
	}

	msg := read(collab.TypeTransformEntries)
	var p collab.TransformEntriesPayload
	if err := json.Unmarshal(msg.Payload, &p); err != nil {
		t.Fatal(err)
	}
	entries, err := collab.DecodeEntriesPayload(p)
	if err != nil || len(entries) != 1 || entries[0].ID.String() != doc.Shapes[0].ID {
		t.Errorf("entries = %+v, %v", entries, err)
	}
	read(collab.TypeFramePlan)
}
