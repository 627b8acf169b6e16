package oauth

import (
	"strings"
	"sync"
)

// Client is a registered OAuth2 client. Records are immutable after
// registration; they are created at service startup and never deleted at
// runtime.
type Client struct {
	ID             uint   `json:"id"`
	ClientID       string `json:"client_id"`
	ClientSecret   string `json:"-"`
	RedirectURL    string `json:"redirect_url"`
	IsConfidential bool   `json:"is_confidential"`
}

// VerifySecret checks the provided secret against the registered one.
// Confidential clients must pass this check; public clients are exempt.
func (c *Client) VerifySecret(provided string) bool {
	return c.ClientSecret == provided
}

// IsRedirectURLValid reports whether url starts with the registered redirect
// URL. The prefix match is intentionally permissive: a registered
// "https://cb" also accepts "https://cb.evil.com". See the registry tests
// for the documented gap.
func (c *Client) IsRedirectURLValid(url string) bool {
	return strings.HasPrefix(url, c.RedirectURL)
}

// ClientRegistry holds the known OAuth clients, keyed by client_id.
type ClientRegistry struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

func NewClientRegistry() *ClientRegistry {
	return &ClientRegistry{clients: make(map[string]*Client)}
}

// Register adds a client. A second registration under the same client_id
// replaces the first; this only happens during startup wiring.
func (r *ClientRegistry) Register(client *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[client.ClientID] = client
}

// Lookup returns the client for clientID, or nil if unknown.
func (r *ClientRegistry) Lookup(clientID string) *Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.clients[clientID]
}

// All returns a snapshot of the registered clients.
func (r *ClientRegistry) All() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Client, 0, len(r.clients))
	for _, c := range r.clients {
		out = append(out, c)
	}
	return out
}

// Len returns the number of registered clients.
func (r *ClientRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}
