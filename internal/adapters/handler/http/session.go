package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"mlboard/internal/core/listview"
	"mlboard/internal/core/logger"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4096

	sendBuffer = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // CORS is enforced by the router
	},
}

// Inbound command types of a list-view session.
const (
	CommandSort   = "sort"
	CommandPage   = "page"
	CommandFilter = "filter"
)

// ViewCommand is a control event sent by the client of a list-view session.
type ViewCommand struct {
	Type      string `json:"type"`
	Column    string `json:"column,omitempty"`
	Direction string `json:"direction,omitempty"`
	Index     int    `json:"index,omitempty"`
	Size      int    `json:"size,omitempty"`
	Text      string `json:"text,omitempty"`
}

var errNoView = errors.New("session has no list view")

// Session is a middleman between the websocket connection, the hub and an
// optional list view.
type Session struct {
	id     string
	entity string
	hub    *Hub

	// The websocket connection.
	conn *websocket.Conn

	// Buffered channel of outbound messages.
	send chan Message

	done      chan struct{}
	closeOnce sync.Once
}

func newSession(hub *Hub, conn *websocket.Conn, entity string) *Session {
	return &Session{
		id:     uuid.NewString(),
		entity: entity,
		hub:    hub,
		conn:   conn,
		send:   make(chan Message, sendBuffer),
		done:   make(chan struct{}),
	}
}

func (s *Session) close() {
	s.closeOnce.Do(func() { close(s.done) })
}

// enqueue waits for buffer space; it fails only once the session is closed.
func (s *Session) enqueue(msg Message) bool {
	select {
	case s.send <- msg:
		return true
	case <-s.done:
		return false
	}
}

// offer never blocks. It fails when the buffer is full or the session closed.
func (s *Session) offer(msg Message) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.send <- msg:
		return true
	default:
		return false
	}
}

// serve runs the session until the peer disconnects. A nil view makes an
// events-only session.
func (s *Session) serve(ctx context.Context, view listview.Controller) {
	ctx, cancel := context.WithCancel(context.WithValue(ctx, logger.SessionIDKey, s.id))
	defer cancel()

	s.hub.Register(s)
	defer s.hub.Unregister(s)
	defer s.close()

	logger.InfoContext(ctx, "Websocket session opened", "entity", s.entity)
	defer logger.InfoContext(ctx, "Websocket session closed", "entity", s.entity)

	go s.writePump()

	if view != nil {
		view.Start(ctx)
		defer view.Close()
		go s.forwardSnapshots(view)
	}

	s.readPump(ctx, view)
}

// forwardSnapshots sends the view state after every change.
func (s *Session) forwardSnapshots(view listview.Controller) {
	for {
		select {
		case <-s.done:
			return
		case <-view.Done():
			return
		case <-view.Updates():
			if !s.enqueue(Message{Type: MessageSnapshot, Payload: view.State()}) {
				return
			}
		}
	}
}

// readPump pumps commands from the websocket connection to the view.
func (s *Session) readPump(ctx context.Context, view listview.Controller) {
	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.WarnContext(ctx, "Websocket read failed", "error", err)
			}
			return
		}

		var cmd ViewCommand
		if err := json.Unmarshal(data, &cmd); err != nil {
			s.enqueue(Message{Type: MessageError, Payload: "invalid command: " + err.Error()})
			continue
		}
		if err := s.apply(view, cmd); err != nil {
			s.enqueue(Message{Type: MessageError, Payload: err.Error()})
		}
	}
}

func (s *Session) apply(view listview.Controller, cmd ViewCommand) error {
	if view == nil {
		return errNoView
	}

	switch cmd.Type {
	case CommandSort:
		direction, ok := listview.ParseDirection(cmd.Direction)
		if !ok {
			return fmt.Errorf("invalid sort direction %q", cmd.Direction)
		}
		view.SortChange(cmd.Column, direction)
	case CommandPage:
		view.PageChange(cmd.Index, cmd.Size)
	case CommandFilter:
		view.ApplyFilter(cmd.Text)
	default:
		return fmt.Errorf("unknown command %q", cmd.Type)
	}

	viewCommandsTotal.WithLabelValues(s.entity, cmd.Type).Inc()
	return nil
}

// writePump pumps messages to the websocket connection.
func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()
	for {
		select {
		case <-s.done:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case message := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteJSON(message); err != nil {
				s.close()
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.close()
				return
			}
		}
	}
}
