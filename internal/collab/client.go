package collab

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
	maxMsgSize = 256 * 1024
	sendBuffer = 256
)

// Client is one websocket connection joined to a render session.
type Client struct {
	hub         *Hub
	conn        *websocket.Conn
	send        chan *Message
	ViewerID    string
	DisplayName string
	SessionID   string
	ClientID    string
}

func NewClient(hub *Hub, conn *websocket.Conn, viewerID, displayName, sessionID, clientID string) *Client {
	return &Client{
		hub:         hub,
		conn:        conn,
		send:        make(chan *Message, sendBuffer),
		ViewerID:    viewerID,
		DisplayName: displayName,
		SessionID:   sessionID,
		ClientID:    clientID,
	}
}

// ReadPump decodes client messages and hands them to the hub until the
// connection or the hub goes away.
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	c.conn.SetReadLimit(maxMsgSize)

	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
			default:
				slog.Debug("read error", "error", err, "viewer", c.ViewerID, "session", c.SessionID)
			}
			return
		}

		msg := &Message{}
		if err := json.Unmarshal(data, msg); err != nil {
			slog.Warn("invalid message", "error", err, "viewer", c.ViewerID)
			continue
		}

		// Identity comes from the connection, never from the payload.
		msg.ViewerID = c.ViewerID
		msg.ClientID = c.ClientID
		msg.SessionID = c.SessionID

		if err := c.hub.Submit(ctx, c, msg); err != nil {
			return
		}
	}
}

// WritePump writes queued messages and keeps the connection alive with
// pings. Whatever is queued when the pump wakes up is written as one batch
// with superseded frame plans removed.
func (c *Client) WritePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			batch, open := c.drain(msg)
			for _, m := range coalescePlans(batch) {
				writeCtx, cancel := context.WithTimeout(ctx, writeWait)
				err := wsjson.Write(writeCtx, c.conn, m)
				cancel()
				if err != nil {
					slog.Debug("write error", "error", err, "viewer", c.ViewerID, "type", m.Type)
					return
				}
			}
			if !open {
				return
			}

		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return
			}

		case <-ctx.Done():
			return
		}
	}
}

// drain collects first plus every message already queued behind it. open
// is false once the send channel has been closed.
func (c *Client) drain(first *Message) (batch []*Message, open bool) {
	batch = append(batch, first)
	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return batch, false
			}
			batch = append(batch, msg)
		default:
			return batch, true
		}
	}
}

// coalescePlans drops every frame plan that a later plan in the batch
// replaces. Other messages keep their order.
func coalescePlans(batch []*Message) []*Message {
	last := -1
	for i, m := range batch {
		if m.Type == TypeFramePlan {
			last = i
		}
	}
	if last < 0 {
		return batch
	}
	out := batch[:0:0]
	for i, m := range batch {
		if m.Type == TypeFramePlan && i != last {
			continue
		}
		out = append(out, m)
	}
	return out
}

// Send queues msg for the write pump. Messages are dropped when the buffer
// is full; a slow viewer catches up with the next frame plan.
func (c *Client) Send(msg *Message) {
	select {
	case c.send <- msg:
	default:
		slog.Warn("client send buffer full, dropping message", "viewer", c.ViewerID, "type", msg.Type)
	}
}
