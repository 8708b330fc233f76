package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"tableflip.dev/stepper/pkg/logging"
)

const (
	writeWait      = 5 * time.Second
	subscriberSend = 256
	maxParamsBytes = 1 << 20
)

// Handler executes a command. The returned value is marshalled as the
// command result.
type Handler func(ctx context.Context, params json.RawMessage) (any, error)

type subscriber struct {
	conn   *websocket.Conn
	events map[string]struct{}
	send   chan []byte
	once   sync.Once
}

func (s *subscriber) wants(event string) bool {
	if len(s.events) == 0 {
		return true
	}
	_, ok := s.events[event]
	return ok
}

// Server hosts the bus. It is an http.Handler serving EventsPath and
// InvokePath.
type Server struct {
	mu       sync.Mutex
	handlers map[string]Handler
	clients  map[*subscriber]struct{}
	latest   map[string][]byte
	order    []string

	upgrader websocket.Upgrader
	mux      *http.ServeMux
	log      *slog.Logger
}

// NewServer returns a server with no commands registered.
func NewServer(log *slog.Logger) *Server {
	if log == nil {
		log = logging.Discard()
	}
	s := &Server{
		handlers: make(map[string]Handler),
		clients:  make(map[*subscriber]struct{}),
		latest:   make(map[string][]byte),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		log: log,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+EventsPath, s.serveEvents)
	mux.HandleFunc("POST "+InvokePath+"{command}", s.serveInvoke)
	s.mux = mux
	return s
}

// Handle registers h for command name, replacing any previous handler.
func (s *Server) Handle(name string, h Handler) {
	s.mu.Lock()
	s.handlers[name] = h
	s.mu.Unlock()
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Subscribers returns the number of connected event listeners.
func (s *Server) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Emit pushes an event to every interested subscriber and remembers it as
// the latest value for late joiners. Subscribers whose queue is full are
// disconnected rather than skipped, so a connected client never misses an
// event.
func (s *Server) Emit(event string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("bus: encode %s payload: %w", event, err)
	}
	frame, err := json.Marshal(envelope{Type: frameEvent, Event: event, Payload: raw})
	if err != nil {
		return fmt.Errorf("bus: encode %s frame: %w", event, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, seen := s.latest[event]; !seen {
		s.order = append(s.order, event)
	}
	s.latest[event] = frame
	for c := range s.clients {
		if !c.wants(event) {
			continue
		}
		select {
		case c.send <- frame:
		default:
			s.log.Warn("dropping slow subscriber", "remote", c.conn.RemoteAddr().String())
			s.removeLocked(c)
		}
	}
	return nil
}

// Close disconnects every subscriber.
func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		s.removeLocked(c)
	}
}

func (s *Server) removeLocked(c *subscriber) {
	if _, ok := s.clients[c]; !ok {
		return
	}
	delete(s.clients, c)
	c.once.Do(func() { close(c.send) })
}

func (s *Server) remove(c *subscriber) {
	s.mu.Lock()
	s.removeLocked(c)
	s.mu.Unlock()
}

func (s *Server) serveEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "err", err)
		return
	}

	c := &subscriber{
		conn:   conn,
		events: make(map[string]struct{}),
		send:   make(chan []byte, subscriberSend),
	}
	for _, name := range r.URL.Query()["event"] {
		c.events[name] = struct{}{}
	}

	s.mu.Lock()
	for _, name := range s.order {
		if c.wants(name) {
			c.send <- s.latest[name]
		}
	}
	s.clients[c] = struct{}{}
	n := len(s.clients)
	s.mu.Unlock()
	s.log.Info("subscriber connected", "remote", conn.RemoteAddr().String(), "subscribers", n)

	go s.writeLoop(c)

	// Client frames are ignored; reading only detects the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Debug("subscriber read ended", "err", err)
			}
			break
		}
	}
	s.remove(c)
	s.log.Info("subscriber disconnected", "remote", conn.RemoteAddr().String())
}

func (s *Server) writeLoop(c *subscriber) {
	defer c.conn.Close()
	for frame := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			s.log.Debug("subscriber write failed", "err", err)
			s.remove(c)
			// Drain so Emit never blocks on a dead queue.
			for range c.send {
			}
			return
		}
	}
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
}

func (s *Server) serveInvoke(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("command")
	reqID := r.Header.Get(RequestIDHeader)
	if reqID == "" {
		reqID = uuid.NewString()
	}
	log := s.log.With("command", name, "request_id", reqID)

	s.mu.Lock()
	h, ok := s.handlers[name]
	s.mu.Unlock()
	if !ok {
		log.Warn("unknown command")
		writeResponse(w, http.StatusNotFound, response{Error: fmt.Sprintf("%s %q", ErrUnknownCommand, name)})
		return
	}

	params, err := io.ReadAll(io.LimitReader(r.Body, maxParamsBytes))
	if err != nil {
		writeResponse(w, http.StatusBadRequest, response{Error: err.Error()})
		return
	}
	if len(params) > 0 && !json.Valid(params) {
		writeResponse(w, http.StatusBadRequest, response{Error: "params must be JSON"})
		return
	}

	result, err := h(r.Context(), params)
	if err != nil {
		log.Warn("command failed", "err", err)
		status := http.StatusInternalServerError
		if errors.Is(err, ErrUnknownCommand) {
			status = http.StatusNotFound
		}
		writeResponse(w, status, response{Error: err.Error()})
		return
	}

	var raw json.RawMessage
	if result != nil {
		raw, err = json.Marshal(result)
		if err != nil {
			log.Error("encode result", "err", err)
			writeResponse(w, http.StatusInternalServerError, response{Error: err.Error()})
			return
		}
	}
	log.Debug("command handled")
	writeResponse(w, http.StatusOK, response{Result: raw})
}

func writeResponse(w http.ResponseWriter, status int, body response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
