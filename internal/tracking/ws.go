package tracking

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// safeConn wraps a websocket.Conn with a write mutex.
// gorilla/websocket allows one concurrent writer; this enforces that.
type safeConn struct {
	mu sync.Mutex
	ws *websocket.Conn
}

func (c *safeConn) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteJSON(v)
}

func (c *safeConn) readMessage() (int, []byte, error) {
	return c.ws.ReadMessage()
}

func (c *safeConn) close() { c.ws.Close() }

// Hub manages WebSocket connections per booking. Passenger apps subscribe
// to a booking and receive its status transitions and the driver's
// position as they happen.
type Hub struct {
	mu    sync.RWMutex
	conns map[string][]*safeConn
}

// NewHub creates a tracking hub.
func NewHub() *Hub {
	return &Hub{conns: make(map[string][]*safeConn)}
}

// Routes returns a chi.Router for the /ws mount point.
func (h *Hub) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/bookings/{id}", h.HandleWS)
	return r
}

// HandleWS upgrades the connection and subscribes it to a booking.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	bookingID := chi.URLParam(r, "id")
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ws] upgrade error: %v", err)
		return
	}

	conn := &safeConn{ws: ws}

	h.mu.Lock()
	h.conns[bookingID] = append(h.conns[bookingID], conn)
	h.mu.Unlock()

	log.Printf("[ws] client connected to booking %s", bookingID)

	// Block until the client disconnects
	for {
		if _, _, err := conn.readMessage(); err != nil {
			break
		}
	}

	h.removeConn(bookingID, conn)
	conn.close()
	log.Printf("[ws] client disconnected from booking %s", bookingID)
}

// BroadcastStatus pushes a booking status transition to all subscribers.
func (h *Hub) BroadcastStatus(bookingID, status string) {
	h.broadcast(bookingID, map[string]any{
		"type":       "status",
		"booking_id": bookingID,
		"status":     status,
		"ts":         time.Now().Unix(),
	})
}

// BroadcastLocation pushes a driver location update to all subscribers of
// a booking.
func (h *Hub) BroadcastLocation(bookingID string, lat, lng float64) {
	h.broadcast(bookingID, map[string]any{
		"type":       "location",
		"booking_id": bookingID,
		"lat":        lat,
		"lng":        lng,
		"ts":         time.Now().Unix(),
	})
}

// broadcast is safe for concurrent calls — each safeConn serialises its
// own writes.
func (h *Hub) broadcast(bookingID string, msg map[string]any) {
	h.mu.RLock()
	conns := h.conns[bookingID]
	h.mu.RUnlock()

	for _, c := range conns {
		if err := c.writeJSON(msg); err != nil {
			log.Printf("[ws] write error: %v", err)
		}
	}
}

func (h *Hub) removeConn(bookingID string, conn *safeConn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns := h.conns[bookingID]
	for i, c := range conns {
		if c == conn {
			h.conns[bookingID] = append(conns[:i], conns[i+1:]...)
			break
		}
	}
	if len(h.conns[bookingID]) == 0 {
		delete(h.conns, bookingID)
	}
}
