package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned by Load for unknown session ids.
var ErrNotFound = fmt.Errorf("session not found")

// Session is a persisted state snapshot keyed by id.
type Session struct {
	ID        string         `json:"id"`
	GraphName string         `json:"graph_name"`
	State     map[string]any `json:"state"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Store persists sessions. Implementations must be safe for concurrent
// use.
type Store interface {
	// Save writes the session, overwriting any previous snapshot.
	Save(ctx context.Context, s *Session) error

	// Load returns the session, or ErrNotFound.
	Load(ctx context.Context, id string) (*Session, error)

	// Delete removes the session. Deleting an unknown id is not an error.
	Delete(ctx context.Context, id string) error
}

// MemStore is the in-process Store used by default and in tests.
type MemStore struct {
	sessions map[string]*Session
	mu       sync.RWMutex
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{sessions: make(map[string]*Session)}
}

// Save implements Store.
func (m *MemStore) Save(_ context.Context, s *Session) error {
	if s == nil || s.ID == "" {
		return fmt.Errorf("session id must not be empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = cloneSession(s)
	return nil
}

// Load implements Store.
func (m *MemStore) Load(_ context.Context, id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneSession(s), nil
}

// Delete implements Store.
func (m *MemStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func cloneSession(s *Session) *Session {
	out := &Session{
		ID:        s.ID,
		GraphName: s.GraphName,
		UpdatedAt: s.UpdatedAt,
		State:     make(map[string]any, len(s.State)),
	}
	for k, v := range s.State {
		out.State[k] = v
	}
	return out
}

// RedisStore persists sessions as JSON values in Redis with an optional
// TTL, suitable for distributed deployments.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// NewRedisStore creates a Redis-backed store. A zero ttl means sessions
// never expire.
func NewRedisStore(client *redis.Client, keyPrefix string, ttl time.Duration) *RedisStore {
	if keyPrefix == "" {
		keyPrefix = "flowgraph:session:"
	}
	return &RedisStore{client: client, keyPrefix: keyPrefix, ttl: ttl}
}

// Ping checks store health.
func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisStore) key(id string) string {
	return r.keyPrefix + id
}

// Save implements Store.
func (r *RedisStore) Save(ctx context.Context, s *Session) error {
	if s == nil || s.ID == "" {
		return fmt.Errorf("session id must not be empty")
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session %q: %w", s.ID, err)
	}
	if err := r.client.Set(ctx, r.key(s.ID), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("save session %q: %w", s.ID, err)
	}
	return nil
}

// Load implements Store.
func (r *RedisStore) Load(ctx context.Context, id string) (*Session, error) {
	raw, err := r.client.Get(ctx, r.key(id)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session %q: %w", id, err)
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decode session %q: %w", id, err)
	}
	return &s, nil
}

// Delete implements Store.
func (r *RedisStore) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, r.key(id)).Err(); err != nil {
		return fmt.Errorf("delete session %q: %w", id, err)
	}
	return nil
}
