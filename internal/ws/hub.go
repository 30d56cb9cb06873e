// Package ws fans analysis progress out to websocket and SSE subscribers.
package ws

// Subscriber abstracts a streaming client.
type Subscriber interface {
	Send([]byte) error
	Close()
}

// retainLimit caps how many finished runs keep their terminal payload around
// for late subscribers.
const retainLimit = 128

// Hub manages stream subscriptions by analysis run ID.
type Hub struct {
	clients   map[string]map[Subscriber]struct{}
	retained  map[string][]byte
	order     []string
	register  chan subscription
	unreg     chan subscription
	broadcast chan message
}

// message couples a payload with its run identifier.
type message struct {
	runID   string
	payload []byte
	final   bool
}

// subscription defines register/unregister requests.
type subscription struct {
	runID  string
	client Subscriber
}

// NewHub creates a Hub with its dispatch loop running.
func NewHub() *Hub {
	h := &Hub{
		clients:   make(map[string]map[Subscriber]struct{}),
		retained:  make(map[string][]byte),
		register:  make(chan subscription),
		unreg:     make(chan subscription),
		broadcast: make(chan message),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case sub := <-h.register:
			if _, ok := h.clients[sub.runID]; !ok {
				h.clients[sub.runID] = make(map[Subscriber]struct{})
			}
			h.clients[sub.runID][sub.client] = struct{}{}
			if payload, ok := h.retained[sub.runID]; ok {
				if err := sub.client.Send(payload); err != nil {
					sub.client.Close()
					delete(h.clients[sub.runID], sub.client)
				}
			}
		case sub := <-h.unreg:
			if clients, ok := h.clients[sub.runID]; ok {
				delete(clients, sub.client)
				if len(clients) == 0 {
					delete(h.clients, sub.runID)
				}
			}
		case msg := <-h.broadcast:
			if msg.final {
				h.retain(msg.runID, msg.payload)
			}
			if clients, ok := h.clients[msg.runID]; ok {
				for c := range clients {
					if err := c.Send(msg.payload); err != nil {
						c.Close()
						delete(clients, c)
					}
				}
				if len(clients) == 0 {
					delete(h.clients, msg.runID)
				}
			}
		}
	}
}

func (h *Hub) retain(runID string, payload []byte) {
	if _, ok := h.retained[runID]; !ok {
		h.order = append(h.order, runID)
		if len(h.order) > retainLimit {
			evicted := h.order[0]
			h.order = h.order[1:]
			delete(h.retained, evicted)
		}
	}
	h.retained[runID] = payload
}

// Register attaches a client to a run's stream. Clients joining after the
// run finished immediately receive its retained terminal event.
func (h *Hub) Register(runID string, client Subscriber) {
	h.register <- subscription{runID: runID, client: client}
}

// Unregister removes a client.
func (h *Hub) Unregister(runID string, client Subscriber) {
	h.unreg <- subscription{runID: runID, client: client}
}

// Broadcast sends payload to every subscriber of a run.
func (h *Hub) Broadcast(runID string, payload []byte) {
	h.broadcast <- message{runID: runID, payload: payload}
}

// BroadcastFinal sends a run's terminal payload and retains it for late
// subscribers.
func (h *Hub) BroadcastFinal(runID string, payload []byte) {
	h.broadcast <- message{runID: runID, payload: payload, final: true}
}
