package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/redflag-advisory-server/internal/domain"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	clientBacklog  = 8
	broadcastQueue = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// The documentation client talks to localhost, origin checks happen
	// at the reverse proxy in other deployments.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub pushes check results to connected hint panels. The stream is
// one-directional, clients only receive.
type Hub struct {
	register   chan *streamClient
	unregister chan *streamClient
	broadcast  chan *domain.CheckResult
	logger     *logrus.Logger
}

type streamClient struct {
	conn *websocket.Conn
	send chan *domain.CheckResult
}

// NewHub creates a stream hub.
func NewHub(logger *logrus.Logger) *Hub {
	if logger == nil {
		logger = logrus.New()
	}
	return &Hub{
		register:   make(chan *streamClient),
		unregister: make(chan *streamClient),
		broadcast:  make(chan *domain.CheckResult, broadcastQueue),
		logger:     logger,
	}
}

// Run owns the client set until the context is cancelled.
func (h *Hub) Run(ctx context.Context) {
	clients := make(map[*streamClient]bool)
	for {
		select {
		case client := <-h.register:
			clients[client] = true
		case client := <-h.unregister:
			if clients[client] {
				delete(clients, client)
				close(client.send)
			}
		case result := <-h.broadcast:
			for client := range clients {
				select {
				case client.send <- result:
				default:
					// Slow consumer, drop it rather than block the hub.
					delete(clients, client)
					close(client.send)
				}
			}
		case <-ctx.Done():
			for client := range clients {
				close(client.send)
			}
			return
		}
	}
}

// Broadcast queues a check result for all connected clients. It never
// blocks the check path; when the queue is full the result is dropped.
func (h *Hub) Broadcast(result *domain.CheckResult) {
	select {
	case h.broadcast <- result:
	default:
		h.logger.Warn("Stream backlog full, dropping check result")
	}
}

// handleStream upgrades the connection and attaches it to the hub.
func (s *Server) handleStream(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.WithError(err).Warn("Websocket upgrade failed")
		return
	}

	client := &streamClient{conn: conn, send: make(chan *domain.CheckResult, clientBacklog)}
	s.hub.register <- client

	go client.writePump(s.hub)
	go client.readPump(s.hub)
}

// writePump serializes queued results to the connection and keeps it alive
// with pings.
func (c *streamClient) writePump(h *Hub) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case result, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(result); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards client messages and detects disconnects.
func (c *streamClient) readPump(h *Hub) {
	defer func() {
		h.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
