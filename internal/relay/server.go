package relay

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

type Server struct {
	hub             *Hub
	identity        *IdentityClient
	fanout          Fanout
	upgrader        websocket.Upgrader
	upstreamTimeout time.Duration
}

func NewServer(hub *Hub, identity *IdentityClient, fanout Fanout, allowedOrigins string, upstreamTimeout time.Duration) *Server {
	return &Server{
		hub:      hub,
		identity: identity,
		fanout:   fanout,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		upstreamTimeout: upstreamTimeout,
	}
}

// Router создаёт chi.Router с нашими маршрутами.
func (s *Server) Router(middlewares ...func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	for _, mw := range middlewares {
		r.Use(mw)
	}

	r.Get("/health", s.handleHealth)
	r.Get("/stats", s.handleStats)
	r.Get("/ws", s.handleWS)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "chat-relay-service",
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.hub.Snapshot())
}

// handleWS is the authentication gate plus upgrade path. The credential is
// verified upstream before the connection is admitted, so a bad token is a
// plain HTTP 401 and never becomes a websocket session.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	token, source := bearerToken(r)
	if token == "" {
		log.Printf("chat-relay-service: ws rejected: no credential in query, header or subprotocol")
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.upstreamTimeout)
	defer cancel()

	user, err := s.identity.Me(ctx, token)
	if err != nil {
		log.Printf("chat-relay-service: ws rejected: credential from %s: %v", source, err)
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	// When the token rode in on the subprotocol list the upgrade response
	// must select one, or browsers drop the connection.
	var respHeader http.Header
	if source == sourceSubprotocol {
		respHeader = http.Header{"Sec-WebSocket-Protocol": {"bearer"}}
	}

	conn, err := s.upgrader.Upgrade(w, r, respHeader)
	if err != nil {
		log.Printf("chat-relay-service: ws upgrade: %v", err)
		return
	}

	client := &Client{
		id:     uuid.NewString(),
		userID: user.ID,
		token:  token,
		hub:    s.hub,
		srv:    s,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
		rooms:  make(map[string]struct{}),
	}
	s.hub.Register(client)

	go client.writePump()
	go client.readPump()
}

// dispatch routes one inbound frame. Runs on the client's read pump.
func (s *Server) dispatch(c *Client, ev clientEvent) {
	switch ev.Type {
	case "join-chat":
		// Joining is a best-effort hint; an empty chat id is ignored.
		if ev.ChatID == "" {
			return
		}
		s.hub.Join(c, ev.ChatID)

	case "send-message":
		s.relayMessage(c, ev.ChatID, ev.Text)

	default:
		// Unknown event types are dropped.
	}
}

// relayMessage persists the message upstream and only then fans it out to
// the room. A persistence failure is reported to the sender alone; nothing
// is broadcast.
func (s *Server) relayMessage(c *Client, chatID, text string) {
	text = strings.TrimSpace(text)
	if chatID == "" || text == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.upstreamTimeout)
	defer cancel()

	msg, err := s.identity.CreateMessage(ctx, c.token, chatID, text)
	if err != nil {
		log.Printf("chat-relay-service: persist message for chat %s: %v", chatID, err)
		c.enqueue(errorFrame("message could not be delivered"))
		return
	}

	payload, err := json.Marshal(map[string]any{
		"type":    "new-message",
		"message": msg,
	})
	if err != nil {
		log.Printf("chat-relay-service: encode new-message: %v", err)
		return
	}

	if err := s.fanout.Publish(ctx, chatID, payload); err != nil {
		log.Printf("chat-relay-service: fan out to chat %s: %v", chatID, err)
		c.enqueue(errorFrame("message could not be delivered"))
	}
}

func errorFrame(msg string) []byte {
	b, _ := json.Marshal(map[string]string{
		"type":    "error",
		"message": msg,
	})
	return b
}
