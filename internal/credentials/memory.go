package credentials

import (
	"context"
	"sort"
	"sync"

	"github.com/go-git/go-git/v5/plumbing/transport"
)

// MemoryStore provides an in-memory Provider keyed by remote host.
// Hosts without an entry fall back to the Fallback provider, or to
// anonymous access when Fallback is nil.
type MemoryStore struct {
	Fallback Provider

	mu        sync.RWMutex
	providers map[string]Provider
}

// NewMemoryStore creates a new instance of MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		providers: make(map[string]Provider),
	}
}

// Store saves a fixed credential for host, replacing any existing entry
func (m *MemoryStore) Store(host string, cred Credential) error {
	if err := cred.Validate(); err != nil {
		return err
	}
	m.Register(host, Static(cred))
	return nil
}

// Register makes p answer for host, replacing any existing entry
func (m *MemoryStore) Register(host string, p Provider) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.providers[host] = p
}

// Hosts returns all hosts with an entry, sorted
func (m *MemoryStore) Hosts() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	hosts := make([]string, 0, len(m.providers))
	for h := range m.providers {
		hosts = append(hosts, h)
	}
	sort.Strings(hosts)
	return hosts
}

// Credential implements Provider
func (m *MemoryStore) Credential(ctx context.Context, url string) (Credential, error) {
	if p := m.lookup(url); p != nil {
		return p.Credential(ctx, url)
	}
	if m.Fallback != nil {
		return m.Fallback.Credential(ctx, url)
	}
	return Credential{Type: CredTypeDefault}, nil
}

func (m *MemoryStore) lookup(url string) Provider {
	if url == "" {
		return nil
	}
	ep, err := transport.NewEndpoint(url)
	if err != nil {
		return nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.providers[ep.Host]
}
