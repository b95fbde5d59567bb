// Package store keeps webhook subscriptions across restarts.
package store

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// ErrNotFound is returned when no subscription matches.
var ErrNotFound = errors.New("subscription not found")

// Subscription ties a flow to the webhook registered for it on a Ragic sheet.
type Subscription struct {
	Flow        string    `json:"flow"`
	WebhookID   string    `json:"webhook_id"`
	CallbackURL string    `json:"callback_url"`
	SheetURL    string    `json:"sheet_url"`
	Event       string    `json:"event"`
	CreatedAt   time.Time `json:"created_at"`
	ActivatedAt time.Time `json:"activated_at,omitempty"`
}

// Active reports whether the webhook is currently registered remotely.
func (s Subscription) Active() bool { return !s.ActivatedAt.IsZero() }

// Store persists subscriptions keyed by flow name.
type Store interface {
	Close() error
	Get(flow string) (Subscription, error)
	Put(sub Subscription) error
	Delete(flow string) error
	List() ([]Subscription, error)
	FindByWebhookID(id string) (Subscription, error)
}

// NewStore creates the configured storage backend.
func NewStore(typ, path string) (Store, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))

	switch typ {
	case "", "memory":
		return NewMemoryStore(), nil
	case "bbolt":
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("bbolt storage requires a path")
		}
		return openBolt(path)
	default:
		return nil, fmt.Errorf("unsupported storage type %q", typ)
	}
}

type memoryStore struct {
	mu   sync.RWMutex
	subs map[string]Subscription
}

// NewMemoryStore returns a Store that forgets everything on exit.
func NewMemoryStore() Store {
	return &memoryStore{subs: make(map[string]Subscription)}
}

func (m *memoryStore) Close() error { return nil }

func (m *memoryStore) Get(flow string) (Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sub, ok := m.subs[flow]
	if !ok {
		return Subscription{}, fmt.Errorf("%w: flow %q", ErrNotFound, flow)
	}
	return sub, nil
}

func (m *memoryStore) Put(sub Subscription) error {
	if sub.Flow == "" {
		return fmt.Errorf("subscription has no flow")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs[sub.Flow] = sub
	return nil
}

func (m *memoryStore) Delete(flow string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.subs, flow)
	return nil
}

func (m *memoryStore) List() ([]Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	subs := make([]Subscription, 0, len(m.subs))
	for _, sub := range m.subs {
		subs = append(subs, sub)
	}
	sortByFlow(subs)
	return subs, nil
}

func (m *memoryStore) FindByWebhookID(id string) (Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, sub := range m.subs {
		if sub.WebhookID == id {
			return sub, nil
		}
	}
	return Subscription{}, fmt.Errorf("%w: webhook %q", ErrNotFound, id)
}

func sortByFlow(subs []Subscription) {
	sort.Slice(subs, func(i, j int) bool { return subs[i].Flow < subs[j].Flow })
}
