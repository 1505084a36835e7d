// Package auditstore keeps per-operator audit sessions between requests.
package auditstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"warehouse-inventory-api/internal/apperr"
	"warehouse-inventory-api/internal/inventory"
)

const keyPrefix = "audit:session:"

// Memory holds sessions in process. Sessions do not survive a restart.
type Memory struct {
	mu       sync.Mutex
	sessions map[string]inventory.AuditSession
}

// NewMemory returns an empty in-process session store
func NewMemory() *Memory {
	return &Memory{sessions: map[string]inventory.AuditSession{}}
}

func (m *Memory) Load(_ context.Context, operator string) (*inventory.AuditSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[operator]
	if !ok {
		return nil, nil
	}
	out := copySession(s)
	return &out, nil
}

func (m *Memory) Save(_ context.Context, s *inventory.AuditSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.Operator] = copySession(*s)
	return nil
}

func (m *Memory) Delete(_ context.Context, operator string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, operator)
	return nil
}

func copySession(s inventory.AuditSession) inventory.AuditSession {
	scanned := make(map[string]struct{}, len(s.Scanned))
	for id := range s.Scanned {
		scanned[id] = struct{}{}
	}
	s.Scanned = scanned
	return s
}

// Redis stores each session as a JSON document that expires after ttl of
// inactivity. Every Save refreshes the expiry.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis wraps client. A zero ttl keeps sessions until they are ended.
func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

type sessionPayload struct {
	Operator  string    `json:"operator"`
	Active    bool      `json:"active"`
	Scanned   []string  `json:"scanned"`
	StartedAt time.Time `json:"started_at"`
}

func (r *Redis) key(operator string) string {
	return keyPrefix + operator
}

func (r *Redis) Load(ctx context.Context, operator string) (*inventory.AuditSession, error) {
	raw, err := r.client.Get(ctx, r.key(operator)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Unavailable("loading audit session", err)
	}

	var p sessionPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decoding audit session for %s: %w", operator, err)
	}
	s := inventory.NewAuditSession(p.Operator)
	s.Active = p.Active
	s.StartedAt = p.StartedAt
	for _, id := range p.Scanned {
		s.Scanned[id] = struct{}{}
	}
	return s, nil
}

func (r *Redis) Save(ctx context.Context, s *inventory.AuditSession) error {
	raw, err := json.Marshal(sessionPayload{
		Operator:  s.Operator,
		Active:    s.Active,
		Scanned:   s.ScannedIDs(),
		StartedAt: s.StartedAt,
	})
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.key(s.Operator), raw, r.ttl).Err(); err != nil {
		return apperr.Unavailable("saving audit session", err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, operator string) error {
	if err := r.client.Del(ctx, r.key(operator)).Err(); err != nil {
		return apperr.Unavailable("deleting audit session", err)
	}
	return nil
}

// Connect dials addr, which may be a redis:// URL or host:port, and pings it.
func Connect(ctx context.Context, addr string) (*redis.Client, error) {
	opts, err := redis.ParseURL(addr)
	if err != nil {
		opts = &redis.Options{Addr: addr}
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("auditstore: ping: %w", err)
	}
	return client, nil
}

var (
	_ inventory.AuditSessionStore = (*Memory)(nil)
	_ inventory.AuditSessionStore = (*Redis)(nil)
)
