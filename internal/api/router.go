package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/coder/websocket"
	"github.com/gorilla/mux"

	"github.com/inamate/inamate/render-core/internal/auth"
	"github.com/inamate/inamate/render-core/internal/collab"
	mw "github.com/inamate/inamate/render-core/internal/middleware"
	"github.com/inamate/inamate/render-core/internal/typeid"
)

// NewRouter wires the public, operator and websocket routes.
func NewRouter(hub *collab.Hub, authSvc *auth.Service, allowedOrigins []string) *mux.Router {
	h := NewHandler(hub)
	authHandler := auth.NewHandler(authSvc)

	r := mux.NewRouter()
	r.Use(mw.Recovery)
	r.Use(mw.Logger)
	r.Use(mw.CORS(allowedOrigins))

	r.HandleFunc("/auth/login", authHandler.Login).Methods("POST", "OPTIONS")
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.Use(authSvc.AuthMiddleware)

	api.HandleFunc("/me", authHandler.Me).Methods("GET")
	api.HandleFunc("/sessions", h.ListSessions).Methods("GET")
	api.HandleFunc("/sessions", h.CreateSession).Methods("POST")
	api.HandleFunc("/sessions/{sessionId}", h.DeleteSession).Methods("DELETE")
	api.HandleFunc("/sessions/{sessionId}/document", h.GetDocument).Methods("GET")
	api.HandleFunc("/sessions/{sessionId}/plan", h.GetPlan).Methods("GET")
	api.HandleFunc("/sessions/{sessionId}/frame", h.GetFrame).Methods("GET")
	api.HandleFunc("/sessions/{sessionId}/frame.png", h.GetFramePNG).Methods("GET")
	api.HandleFunc("/sessions/{sessionId}/debug.png", h.GetDebugPNG).Methods("GET")
	api.HandleFunc("/sessions/{sessionId}/hit", h.HitTest).Methods("GET")
	api.HandleFunc("/sessions/{sessionId}/tiles/{x:-?[0-9]+}/{y:-?[0-9]+}", h.GetTile).Methods("GET")

	ws := &wsHandler{hub: hub, auth: authSvc, originPatterns: originPatterns(allowedOrigins)}
	r.HandleFunc("/ws/sessions/{sessionId}", ws.ServeHTTP)

	return r
}

type wsHandler struct {
	hub            *collab.Hub
	auth           *auth.Service
	originPatterns []string
}

// ServeHTTP joins a render session. The token travels as a query parameter
// because browsers cannot set headers on websocket requests.
func (h *wsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionId"]

	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}
	claims, err := h.auth.ValidateToken(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}
	operator := claims.Operator()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		slog.Error("websocket accept", "error", err)
		return
	}

	clientID := typeid.NewClientID()
	client := collab.NewClient(h.hub, conn, clientID, operator, sessionID, clientID)
	h.hub.Register(client)

	ctx := r.Context()
	go client.WritePump(ctx)
	client.ReadPump(ctx)
}

// originPatterns strips schemes; coder/websocket matches on host.
func originPatterns(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		if o == "*" {
			return []string{"*"}
		}
		if host, ok := strings.CutPrefix(o, "https://"); ok {
			o = host
		} else if host, ok := strings.CutPrefix(o, "http://"); ok {
			o = host
		}
		out = append(out, o)
	}
	return out
}
