package realtime

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// Hub is the in-process broadcast bus. Publish fans a frame out to every
// connection joined to the topic at the moment of the call; late joiners get
// nothing and recover via the mandatory snapshot on connect.
type Hub struct {
	registry *Registry

	mu      sync.Mutex
	clients map[*Client]struct{}
	stopped bool
}

func NewHub(registry *Registry) *Hub {
	return &Hub{
		registry: registry,
		clients:  make(map[*Client]struct{}),
	}
}

func (h *Hub) Registry() *Registry { return h.registry }

// Track registers a connection with the hub for shutdown bookkeeping.
// Returns false if the hub is already stopped.
func (h *Hub) Track(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped {
		return false
	}
	h.clients[c] = struct{}{}
	return true
}

// Release detaches the connection: registry memberships removed, writer
// signalled to drain and close. In-flight publishes to it are dropped
// silently.
func (h *Hub) Release(c *Client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()

	h.registry.Drop(c)
	c.Close()
}

// Publish marshals the message and fans it out to the topic's members.
// Per-subscriber failures are isolated: a buffer that stays full past a short
// grace means the subscriber is stuck and gets dropped, everyone else still
// receives. A buffer that is merely full under burst is waited out.
func (h *Hub) Publish(t Topic, msg any) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	h.PublishRaw(t, data)
	return nil
}

func (h *Hub) PublishRaw(t Topic, data []byte) {
	members := h.registry.MembersOf(t)

	var stuck []*Client
	for _, c := range members {
		if !c.EnqueueWait(data, enqueueGrace) {
			stuck = append(stuck, c)
		}
	}
	for _, c := range stuck {
		slog.Warn("dropping stuck subscriber", "topic", t.String())
		h.Release(c)
	}
}

// Stop closes every tracked connection. New Track calls are refused.
func (h *Hub) Stop() {
	h.mu.Lock()
	h.stopped = true
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.clients = make(map[*Client]struct{})
	h.mu.Unlock()

	for _, c := range clients {
		h.registry.Drop(c)
		c.Close()
	}
}
