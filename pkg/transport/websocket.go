package transport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kadirpekel/quoter/pkg/a2a"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// CORS policy is handled at the HTTP layer.
		return true
	},
}

const (
	wsWriteTimeout = 10 * time.Second
	wsPingInterval = 30 * time.Second
)

// wsCommand is an inbound client frame.
type wsCommand struct {
	Type    string      `json:"type"` // "send", "subscribe", "cancel"
	Message a2a.Message `json:"message,omitempty"`
	TaskID  string      `json:"taskId,omitempty"`
	Reason  string      `json:"reason,omitempty"`
}

// wsFrame is an outbound server frame.
type wsFrame struct {
	Type     string     `json:"type"` // "task", "event", "canceled", "error"
	Task     *a2a.Task  `json:"task,omitempty"`
	Event    *a2a.Event `json:"event,omitempty"`
	TaskID   string     `json:"taskId,omitempty"`
	Canceled *bool      `json:"canceled,omitempty"`
	Error    string     `json:"error,omitempty"`
}

// handleWebSocket is the bidirectional binding: the client issues send,
// subscribe and cancel commands on one connection and receives task events
// interleaved on the same connection.
func (g *Gateway) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Debug("WebSocket upgrade failed", "error", err)
		return
	}

	session := &wsSession{
		gateway:  g,
		conn:     conn,
		outbound: make(chan wsFrame, 64),
	}
	session.run(r.Context())
}

// wsSession serializes all writes through the outbound channel so event
// forwarders never interleave frames on the wire.
type wsSession struct {
	gateway  *Gateway
	conn     *websocket.Conn
	outbound chan wsFrame
}

func (s *wsSession) run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer s.conn.Close()

	go s.writePump(ctx)
	s.readPump(ctx)
}

func (s *wsSession) readPump(ctx context.Context) {
	for {
		var cmd wsCommand
		if err := s.conn.ReadJSON(&cmd); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Debug("WebSocket read error", "error", err)
			}
			return
		}

		switch cmd.Type {
		case "send":
			s.handleSend(ctx, cmd)
		case "subscribe":
			s.handleSubscribe(ctx, cmd)
		case "cancel":
			s.handleCancel(ctx, cmd)
		default:
			s.send(ctx, wsFrame{Type: "error", Error: "unknown command type: " + cmd.Type})
		}
	}
}

func (s *wsSession) writePump(ctx context.Context) {
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case frame := <-s.outbound:
			_ = s.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := s.conn.WriteJSON(frame); err != nil {
				slog.Debug("WebSocket write error", "error", err)
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *wsSession) handleSend(ctx context.Context, cmd wsCommand) {
	t, err := s.gateway.engine.Submit(ctx, cmd.Message)
	if err != nil {
		s.send(ctx, wsFrame{Type: "error", Error: err.Error()})
		return
	}

	s.send(ctx, wsFrame{Type: "task", Task: &t})
	s.forwardEvents(ctx, t.ID)
}

func (s *wsSession) handleSubscribe(ctx context.Context, cmd wsCommand) {
	if _, err := s.gateway.engine.Get(cmd.TaskID); err != nil {
		s.send(ctx, wsFrame{Type: "error", TaskID: cmd.TaskID, Error: err.Error()})
		return
	}
	s.forwardEvents(ctx, cmd.TaskID)
}

func (s *wsSession) handleCancel(ctx context.Context, cmd wsCommand) {
	canceled, err := s.gateway.engine.Cancel(ctx, cmd.TaskID, cmd.Reason)
	if err != nil {
		s.send(ctx, wsFrame{Type: "error", TaskID: cmd.TaskID, Error: err.Error()})
		return
	}
	s.send(ctx, wsFrame{Type: "canceled", TaskID: cmd.TaskID, Canceled: &canceled})
}

// forwardEvents streams one task's events to the session until the stream
// closes. Runs in its own goroutine so the read pump stays responsive to
// cancel commands for in-flight tasks.
func (s *wsSession) forwardEvents(ctx context.Context, taskID string) {
	sub, err := s.gateway.engine.Subscribe(taskID)
	if err != nil {
		s.send(ctx, wsFrame{Type: "error", TaskID: taskID, Error: err.Error()})
		return
	}

	go func() {
		defer s.gateway.engine.Unsubscribe(sub)

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-sub.Events():
				if !ok {
					return
				}
				s.send(ctx, wsFrame{Type: "event", Event: &event})
			}
		}
	}()
}

func (s *wsSession) send(ctx context.Context, frame wsFrame) {
	select {
	case s.outbound <- frame:
	case <-ctx.Done():
	}
}
