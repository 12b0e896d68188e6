// Package notify pushes "download complete" notifications to a student's
// connected clients over websockets.
package notify

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"challan-backend/internal/metrics"
	"challan-backend/internal/models"

	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type delivery struct {
	studentID string
	msg       models.Notification
}

// Hub tracks websocket connections per student
type Hub struct {
	clients    map[string]map[*websocket.Conn]bool
	clientsMux sync.Mutex
	broadcast  chan delivery
}

func NewHub() *Hub {
	return &Hub{
		clients:   make(map[string]map[*websocket.Conn]bool),
		broadcast: make(chan delivery, 64),
	}
}

// Run delivers published notifications until ctx is done
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case d := <-h.broadcast:
			h.deliver(d)
		}
	}
}

// Publish queues n for every connection of studentID. It never blocks; when
// the queue is full the notification is dropped.
func (h *Hub) Publish(studentID string, n models.Notification) {
	if studentID == "" {
		return
	}
	select {
	case h.broadcast <- delivery{studentID: studentID, msg: n}:
	default:
		log.Printf("[Notify] Queue full, dropping notification for %s", studentID)
	}
}

// ServeWS upgrades the request and keeps the connection registered until
// the client goes away
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, studentID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[Notify] WebSocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	h.register(studentID, conn)
	defer h.unregister(studentID, conn)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Clients returns the number of open connections for studentID
func (h *Hub) Clients(studentID string) int {
	h.clientsMux.Lock()
	defer h.clientsMux.Unlock()
	return len(h.clients[studentID])
}

func (h *Hub) register(studentID string, conn *websocket.Conn) {
	h.clientsMux.Lock()
	defer h.clientsMux.Unlock()
	if h.clients[studentID] == nil {
		h.clients[studentID] = make(map[*websocket.Conn]bool)
	}
	h.clients[studentID][conn] = true
	metrics.NotificationClients.Inc()
}

func (h *Hub) unregister(studentID string, conn *websocket.Conn) {
	h.clientsMux.Lock()
	defer h.clientsMux.Unlock()
	h.remove(studentID, conn)
}

// remove expects clientsMux to be held
func (h *Hub) remove(studentID string, conn *websocket.Conn) {
	conns := h.clients[studentID]
	if !conns[conn] {
		return
	}
	delete(conns, conn)
	if len(conns) == 0 {
		delete(h.clients, studentID)
	}
	metrics.NotificationClients.Dec()
}

// deliver writes outside clientsMux so a slow client only delays its own
// student's notifications. Run is the only writer.
func (h *Hub) deliver(d delivery) {
	h.clientsMux.Lock()
	conns := make([]*websocket.Conn, 0, len(h.clients[d.studentID]))
	for conn := range h.clients[d.studentID] {
		conns = append(conns, conn)
	}
	h.clientsMux.Unlock()

	for _, conn := range conns {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(d.msg); err != nil {
			log.Printf("[Notify] Dropping client of %s: %v", d.studentID, err)
			conn.Close()
			h.unregister(d.studentID, conn)
		}
	}
}

func (h *Hub) closeAll() {
	h.clientsMux.Lock()
	defer h.clientsMux.Unlock()
	for studentID, conns := range h.clients {
		for conn := range conns {
			conn.Close()
			h.remove(studentID, conn)
		}
	}
}
