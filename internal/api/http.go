// Package api exposes the overlay to outside-the-process collaborators
// over HTTP: a peer snapshot, a way to post a chat message, and a
// WebSocket feed of dispatch.FrontendEvent notifications. Grounded on
// web_api.rs's three-route surface, translated from axum+tokio onto
// net/http and gorilla/websocket.
package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/mdedz/p2pchat/internal/dispatch"
	"github.com/mdedz/p2pchat/internal/pmanager"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The overlay is a localhost-oriented chat demo; any origin may
	// open the WS feed.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Server serves /peers, /send and /ws on top of a peer-manager handle,
// and fans FrontendEvents out to every connected WebSocket client.
type Server struct {
	mgr *pmanager.Manager
	log *logrus.Entry

	mu      sync.Mutex
	clients map[*wsClient]struct{}
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// NewServer builds a Server. Call Run to start forwarding events from
// events onto connected WebSocket clients; call Handler for the
// http.Handler to mount (or serve directly).
func NewServer(mgr *pmanager.Manager, log *logrus.Entry) *Server {
	return &Server{
		mgr:     mgr,
		log:     log.WithField("component", "web_api"),
		clients: make(map[*wsClient]struct{}),
	}
}

// Handler returns the mux serving /peers, /send, /ws.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/peers", s.handlePeers)
	mux.HandleFunc("/send", s.handleSend)
	mux.HandleFunc("/ws", s.handleWS)
	return mux
}

// Run forwards every FrontendEvent off events to all currently
// connected WebSocket clients, until events is closed.
func (s *Server) Run(events <-chan dispatch.FrontendEvent) {
	for ev := range events {
		body, err := json.Marshal(ev)
		if err != nil {
			s.log.WithError(err).Warn("marshal frontend event failed")
			continue
		}
		s.broadcast(body)
	}
}

func (s *Server) broadcast(body []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		select {
		case c.send <- body:
		default:
			s.log.Debug("ws client send queue full, dropping event")
		}
	}
}

func (s *Server) handlePeers(w http.ResponseWriter, r *http.Request) {
	peers := s.mgr.GetPeers()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(peers); err != nil {
		s.log.WithError(err).Warn("encode /peers response failed")
	}
}

type sendPayload struct {
	Msg string `json:"msg"`
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var payload sendPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	s.mgr.Broadcast("MSG|" + payload.Msg)
	w.Write([]byte("sent"))
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Debug("websocket upgrade failed")
		return
	}

	c := &wsClient{conn: conn, send: make(chan []byte, 32)}
	s.addClient(c)
	defer s.removeClient(c)

	done := make(chan struct{})
	go s.wsWriteLoop(c, done)
	s.wsReadLoop(c)
	close(done)
}

func (s *Server) addClient(c *wsClient) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[c] = struct{}{}
}

func (s *Server) removeClient(c *wsClient) {
	s.mu.Lock()
	delete(s.clients, c)
	s.mu.Unlock()
	c.conn.Close()
}

func (s *Server) wsWriteLoop(c *wsClient, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case msg := <-c.send:
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		}
	}
}

// wsReadLoop treats any inbound text frame as a chat message to
// broadcast, except "/peers" which asks for an immediate snapshot —
// matching handle_socket's recv_task in the original.
func (s *Server) wsReadLoop(c *wsClient) {
	for {
		kind, body, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		if kind != websocket.TextMessage {
			continue
		}

		text := string(body)
		if strings.HasPrefix(text, "/peers") {
			snap, err := json.Marshal(s.mgr.GetPeers())
			if err != nil {
				continue
			}
			select {
			case c.send <- snap:
			default:
			}
			continue
		}

		s.mgr.Broadcast("MSG|" + text)
	}
}
