// Package realtime pushes plan change events to connected timeline views
package realtime

import (
	"log"
	"net/http"
	"sync"
	"time"

	"factory-backend/internal/metrics"

	"github.com/gorilla/websocket"
)

// Event types
const (
	PlanCreated     = "plan.created"
	PlanUpdated     = "plan.updated"
	PlanDeleted     = "plan.deleted"
	ScheduleChanged = "schedule.changed"
	LaneChanged     = "lane.changed"
	ProductionAdded = "production.recorded"
)

// Event tells subscribers which plan to re-fetch
type Event struct {
	Type   string    `json:"type"`
	PlanID int       `json:"plan_id"`
	ItemID int       `json:"item_id,omitempty"`
	LaneID int       `json:"lane_id,omitempty"`
	At     time.Time `json:"at"`
}

// Publisher is what services depend on
type Publisher interface {
	Publish(ev Event)
}

const writeWait = 5 * time.Second

// Hub fans events out to every connected websocket client
type Hub struct {
	upgrader   websocket.Upgrader
	clients    map[*websocket.Conn]bool
	clientsMux sync.Mutex
	broadcast  chan Event
	stopOnce   sync.Once
	done       chan struct{}
}

func NewHub(allowedOrigins []string) *Hub {
	h := &Hub{
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan Event, 64),
		done:      make(chan struct{}),
	}
	h.upgrader = websocket.Upgrader{CheckOrigin: originChecker(allowedOrigins)}
	return h
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range allowed {
			if o == "*" || o == origin {
				return true
			}
		}
		return false
	}
}

// Run delivers queued events until Stop is called
func (h *Hub) Run() {
	for {
		select {
		case ev := <-h.broadcast:
			h.deliver(ev)
		case <-h.done:
			h.closeAll()
			return
		}
	}
}

func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// Publish queues an event. A full queue drops the event rather than blocking
// the request that produced it.
func (h *Hub) Publish(ev Event) {
	if h == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	select {
	case h.broadcast <- ev:
	default:
		log.Printf("[Realtime] Event queue full, dropping %s for plan %d", ev.Type, ev.PlanID)
	}
}

func (h *Hub) deliver(ev Event) {
	h.clientsMux.Lock()
	defer h.clientsMux.Unlock()

	for client := range h.clients {
		client.SetWriteDeadline(time.Now().Add(writeWait))
		if err := client.WriteJSON(ev); err != nil {
			client.Close()
			delete(h.clients, client)
		}
	}
	metrics.WebsocketClients.Set(float64(len(h.clients)))
}

func (h *Hub) closeAll() {
	h.clientsMux.Lock()
	defer h.clientsMux.Unlock()
	for client := range h.clients {
		client.Close()
		delete(h.clients, client)
	}
	metrics.WebsocketClients.Set(0)
}

// ServeWS upgrades the request and keeps the connection registered until the
// client goes away. Clients only listen; anything they send is discarded.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("[Realtime] WebSocket upgrade error:", err)
		return
	}
	defer conn.Close()

	h.clientsMux.Lock()
	h.clients[conn] = true
	metrics.WebsocketClients.Set(float64(len(h.clients)))
	h.clientsMux.Unlock()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.clientsMux.Lock()
			delete(h.clients, conn)
			metrics.WebsocketClients.Set(float64(len(h.clients)))
			h.clientsMux.Unlock()
			break
		}
	}
}
