package collab

import (
	"encoding/json"
	"log/slog"
	"maps"
	"sync"
)

// Viewers tracks the cursor and selection of everyone watching a session.
type Viewers struct {
	mu      sync.RWMutex
	viewers map[string]*ViewerPayload // viewerID -> state
}

func NewViewers() *Viewers {
	return &Viewers{
		viewers: make(map[string]*ViewerPayload),
	}
}

func (v *Viewers) Update(viewerID string, p *ViewerPayload) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.viewers[viewerID] = p
}

func (v *Viewers) Remove(viewerID string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.viewers, viewerID)
}

func (v *Viewers) GetAll() map[string]*ViewerPayload {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return maps.Clone(v.viewers)
}

func (v *Viewers) StateMessage() *Message {
	payload, err := json.Marshal(ViewerStatePayload{Viewers: v.GetAll()})
	if err != nil {
		slog.Error("marshal viewer state", "error", err)
		return nil
	}
	return &Message{
		Type:    TypeViewerState,
		Payload: payload,
	}
}
