package app

import (
	"sync"

	"realtime_chat_service/internal/chat/domain"

	"github.com/google/uuid"
)

// Client is one live connection's server-side handle. Outbound events are
// typed messages on a buffered channel drained by a single writer goroutine,
// keeping business logic off the transport write path.
type Client struct {
	ConnectionID string
	UserID       string

	out       chan domain.OutboundEvent
	done      chan struct{}
	closeOnce sync.Once
}

const outboundBuffer = 64

// NewClient creates a connection handle for an authenticated user.
func NewClient(userID string) *Client {
	return &Client{
		ConnectionID: uuid.New().String(),
		UserID:       userID,
		out:          make(chan domain.OutboundEvent, outboundBuffer),
		done:         make(chan struct{}),
	}
}

// Send queues an event for the connection's writer. Returns false when the
// connection is already closed. A full buffer means the writer is stalled;
// the connection is closed instead of blocking the caller, so a dead peer
// never holds up delivery to anyone else.
func (c *Client) Send(event domain.OutboundEvent) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.out <- event:
		return true
	case <-c.done:
		return false
	default:
		c.Close()
		return false
	}
}

// Outbound is drained by the connection's writer goroutine.
func (c *Client) Outbound() <-chan domain.OutboundEvent {
	return c.out
}

// Done closes when the connection is torn down.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Close stops future event delivery. In-flight operations the connection
// initiated are unaffected.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// Registry maps broadcast-group ids to the locally-held connection handles,
// plus a per-user index for direct delivery. Join/leave are pure map
// operations independent of the underlying transport.
type Registry struct {
	mu       sync.RWMutex
	groups   map[string]map[*Client]struct{}
	byClient map[*Client]map[string]struct{}
	byUser   map[string]map[*Client]struct{}
}

// NewRegistry create an empty Registry
func NewRegistry() *Registry {
	return &Registry{
		groups:   make(map[string]map[*Client]struct{}),
		byClient: make(map[*Client]map[string]struct{}),
		byUser:   make(map[string]map[*Client]struct{}),
	}
}

// Register indexes the client for direct per-user delivery.
func (r *Registry) Register(client *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.byUser[client.UserID] == nil {
		r.byUser[client.UserID] = make(map[*Client]struct{})
	}
	r.byUser[client.UserID][client] = struct{}{}
}

// Unregister removes the client from the per-user index and every group.
func (r *Registry) Unregister(client *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if clients, ok := r.byUser[client.UserID]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(r.byUser, client.UserID)
		}
	}

	for group := range r.byClient[client] {
		r.removeFromGroup(group, client)
	}
	delete(r.byClient, client)
}

// Join adds the client to a broadcast group.
func (r *Registry) Join(group string, client *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.groups[group] == nil {
		r.groups[group] = make(map[*Client]struct{})
	}
	r.groups[group][client] = struct{}{}

	if r.byClient[client] == nil {
		r.byClient[client] = make(map[string]struct{})
	}
	r.byClient[client][group] = struct{}{}
}

// Leave removes the client from a broadcast group.
func (r *Registry) Leave(group string, client *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.removeFromGroup(group, client)
	if groups, ok := r.byClient[client]; ok {
		delete(groups, group)
	}
}

func (r *Registry) removeFromGroup(group string, client *Client) {
	if members, ok := r.groups[group]; ok {
		delete(members, client)
		if len(members) == 0 {
			delete(r.groups, group)
		}
	}
}

// Members returns the group's current local connections.
func (r *Registry) Members(group string) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := make([]*Client, 0, len(r.groups[group]))
	for client := range r.groups[group] {
		members = append(members, client)
	}
	return members
}

// UserClients returns the user's local connections.
func (r *Registry) UserClients(userID string) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	clients := make([]*Client, 0, len(r.byUser[userID]))
	for client := range r.byUser[userID] {
		clients = append(clients, client)
	}
	return clients
}

// Groups returns the groups the client currently belongs to.
func (r *Registry) Groups(client *Client) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	groups := make([]string, 0, len(r.byClient[client]))
	for group := range r.byClient[client] {
		groups = append(groups, group)
	}
	return groups
}
