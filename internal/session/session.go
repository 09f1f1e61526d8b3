package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/coder/websocket"

	"github.com/pagemark/pagemark/backend-go/internal/engine"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
	maxMsgSize = 256 * 1024
)

// Session is one open editor connection. Each session owns a private engine
// seeded from the latest snapshot; all engine access happens on the read pump
// goroutine, so the engine needs no locking. The session persists a snapshot
// on explicit save and again when the connection closes.
type Session struct {
	hub        *Hub
	conn       *websocket.Conn
	engine     *engine.Engine
	send       chan []byte
	UserID     string
	DocumentID string
	SessionID  string
}

func NewSession(hub *Hub, conn *websocket.Conn, eng *engine.Engine, userID, documentID, sessionID string) *Session {
	return &Session{
		hub:        hub,
		conn:       conn,
		engine:     eng,
		send:       make(chan []byte, 256),
		UserID:     userID,
		DocumentID: documentID,
		SessionID:  sessionID,
	}
}

func (s *Session) ReadPump(ctx context.Context) {
	defer func() {
		s.hub.unregister <- s
		s.conn.Close(websocket.StatusNormalClosure, "")
	}()

	s.conn.SetReadLimit(maxMsgSize)

	// initial frame so the shell can paint before the first command
	s.sendFrame()

	for {
		_, data, err := s.conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure ||
				websocket.CloseStatus(err) == websocket.StatusGoingAway {
				return
			}
			slog.Debug("read error", "error", err, "session", s.SessionID)
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			slog.Warn("invalid message", "error", err, "session", s.SessionID)
			continue
		}

		s.handleCommand(ctx, &msg)
	}
}

func (s *Session) WritePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		select {
		case message, ok := <-s.send:
			if !ok {
				return
			}

			writeCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := s.conn.Write(writeCtx, websocket.MessageText, message)
			cancel()
			if err != nil {
				slog.Debug("write error", "error", err, "session", s.SessionID)
				return
			}

		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := s.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return
			}

		case <-ctx.Done():
			return
		}
	}
}

// handleCommand applies one editor command to the engine and answers with a
// fresh frame. Commands that do not change anything (undo at the floor, an
// update naming a deleted element) still answer with a frame so the shell
// stays in sync.
func (s *Session) handleCommand(ctx context.Context, msg *Message) {
	switch msg.Type {
	case TypePointerDown:
		var p PointerPayload
		if !s.decode(msg.Payload, &p) {
			return
		}
		s.engine.PointerDown(p.X, p.Y)

	case TypeSelect:
		var p SelectPayload
		if !s.decode(msg.Payload, &p) {
			return
		}
		s.engine.Select(p.ElementID)

	case TypeClearSelection:
		s.engine.ClearSelection()

	case TypeCreateElement:
		var p CreateElementPayload
		if !s.decode(msg.Payload, &p) {
			return
		}
		if s.engine.CreateElement(p.ElementType, p.X, p.Y) == nil {
			s.sendError("unknown element type")
			return
		}

	case TypeUpdateElement:
		var p UpdateElementPayload
		if !s.decode(msg.Payload, &p) {
			return
		}
		s.engine.UpdateElement(p.ElementID, p.Patch)

	case TypeDuplicateElement:
		var p ElementRefPayload
		if !s.decode(msg.Payload, &p) {
			return
		}
		s.engine.DuplicateElement(p.ElementID)

	case TypeDeleteElement:
		var p ElementRefPayload
		if !s.decode(msg.Payload, &p) {
			return
		}
		s.engine.DeleteElement(p.ElementID)

	case TypeBeginGesture:
		s.engine.BeginGesture()

	case TypeEndGesture:
		s.engine.EndGesture()

	case TypeUndo:
		s.engine.Undo()

	case TypeRedo:
		s.engine.Redo()

	case TypeSetPage:
		var p PagePayload
		if !s.decode(msg.Payload, &p) {
			return
		}
		s.engine.SetPage(p.Number)

	case TypeAddPage:
		s.engine.AddPage()

	case TypeDeletePage:
		var p PagePayload
		if !s.decode(msg.Payload, &p) {
			return
		}
		s.engine.DeletePage(p.Number)

	case TypeDuplicatePage:
		var p PagePayload
		if !s.decode(msg.Payload, &p) {
			return
		}
		s.engine.DuplicatePage(p.Number)

	case TypeSetZoom:
		var p ZoomPayload
		if !s.decode(msg.Payload, &p) {
			return
		}
		s.engine.SetZoom(p.Zoom)

	case TypeSetOrigin:
		var p OriginPayload
		if !s.decode(msg.Payload, &p) {
			return
		}
		s.engine.SetViewportOrigin(p.X, p.Y)

	case TypeSave:
		ok := s.hub.save(ctx, s) == nil
		s.Send(&Message{Type: TypeSaved, Payload: mustMarshal(SavedPayload{OK: ok})})
		return

	default:
		slog.Warn("unknown command", "type", msg.Type, "session", s.SessionID)
		s.sendError("unknown command: " + msg.Type)
		return
	}

	s.sendFrame()
}

func (s *Session) decode(payload json.RawMessage, dst interface{}) bool {
	if err := json.Unmarshal(payload, dst); err != nil {
		slog.Warn("invalid payload", "error", err, "session", s.SessionID)
		s.sendError("invalid payload")
		return false
	}
	return true
}

func (s *Session) sendFrame() {
	s.Send(&Message{Type: TypeFrame, Payload: mustMarshal(s.engine.Render())})
}

func (s *Session) sendError(message string) {
	s.Send(&Message{Type: TypeError, Payload: mustMarshal(ErrorPayload{Message: message})})
}

func (s *Session) Send(msg *Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("marshal message", "error", err)
		return
	}

	select {
	case s.send <- data:
	default:
		slog.Warn("session send buffer full, dropping message", "session", s.SessionID)
	}
}

func mustMarshal(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage("{}")
	}
	return data
}
