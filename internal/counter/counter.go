// Package counter keeps the relay's received and sent letter tallies.
//
// The counters are advisory telemetry. Each increment is atomic, but no
// ordering is promised between unrelated increments. Store failures are
// returned to the caller and never retried here.
package counter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Names of the two counters, also used as store keys.
const (
	Received = "received"
	Sent     = "sent"
)

// ErrUnavailable is wrapped by every backing store failure.
var ErrUnavailable = errors.New("counter store unavailable")

// Stats is a point-in-time snapshot of both counters.
type Stats struct {
	Received uint64 `json:"received" yaml:"received"`
	Sent     uint64 `json:"sent" yaml:"sent"`
}

// Counter is a pair of monotonically increasing tallies.
type Counter interface {
	// IncrementReceived adds one to the received counter and returns the new value.
	IncrementReceived(ctx context.Context) (uint64, error)

	// IncrementSent adds one to the sent counter and returns the new value.
	IncrementSent(ctx context.Context) (uint64, error)

	// Stats returns the current value of both counters.
	Stats(ctx context.Context) (Stats, error)

	// Name returns the human-readable name of the backing store.
	Name() string

	Close() error
}

// Options selects and configures a backing store.
type Options struct {
	// Store is "memory", "sqlite" or "redis".
	Store string

	// Path is the SQLite database file.
	Path string

	// RedisURL is a redis:// connection URL.
	RedisURL string

	// Prefix namespaces the store keys.
	Prefix string
}

// Open returns the Counter described by opts.
func Open(ctx context.Context, opts Options) (Counter, error) {
	switch strings.ToLower(opts.Store) {
	case "", "memory":
		return NewMemory(), nil
	case "sqlite":
		return OpenSQLite(ctx, opts.Path, opts.Prefix)
	case "redis":
		return OpenRedis(ctx, opts.RedisURL, opts.Prefix)
	default:
		return nil, fmt.Errorf("unknown counter store %q", opts.Store)
	}
}

// Memory is an in-process Counter guarded by a mutex. Values are lost on
// restart.
type Memory struct {
	mu       sync.Mutex
	received uint64
	sent     uint64
}

// NewMemory returns a Memory counter starting at zero.
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) IncrementReceived(_ context.Context) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.received++
	return m.received, nil
}

func (m *Memory) IncrementSent(_ context.Context) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent++
	return m.sent, nil
}

func (m *Memory) Stats(_ context.Context) (Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Stats{Received: m.received, Sent: m.sent}, nil
}

func (m *Memory) Name() string {
	return "memory"
}

func (m *Memory) Close() error {
	return nil
}

// key joins prefix and name for stores with a flat key space.
func key(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + ":" + name
}
