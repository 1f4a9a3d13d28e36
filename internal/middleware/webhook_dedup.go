package middleware

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// PingbackDeduper remembers acknowledged pingbacks by key.
type PingbackDeduper interface {
	Seen(ctx context.Context, key string) (bool, error)
	Remember(ctx context.Context, key string) error
}

type redisPingbackDeduper struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func (d *redisPingbackDeduper) Seen(ctx context.Context, key string) (bool, error) {
	n, err := d.client.Exists(ctx, d.prefix+":"+key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (d *redisPingbackDeduper) Remember(ctx context.Context, key string) error {
	return d.client.Set(ctx, d.prefix+":"+key, "1", d.ttl).Err()
}

type memoryPingbackDeduper struct {
	mu     sync.Mutex
	seen   map[string]time.Time
	ttl    time.Duration
	nextGC time.Time
	now    func() time.Time
}

func newMemoryPingbackDeduper(ttl time.Duration) *memoryPingbackDeduper {
	now := time.Now()
	return &memoryPingbackDeduper{
		seen:   make(map[string]time.Time),
		ttl:    ttl,
		nextGC: now.Add(ttl),
		now:    time.Now,
	}
}

func (d *memoryPingbackDeduper) Seen(_ context.Context, key string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	exp, ok := d.seen[key]
	return ok && exp.After(d.now()), nil
}

func (d *memoryPingbackDeduper) Remember(_ context.Context, key string) error {
	now := d.now()

	d.mu.Lock()
	defer d.mu.Unlock()

	d.seen[key] = now.Add(d.ttl)
	if now.After(d.nextGC) {
		for k, exp := range d.seen {
			if exp.Before(now) {
				delete(d.seen, k)
			}
		}
		d.nextGC = now.Add(d.ttl)
	}
	return nil
}

// NewPingbackDeduper builds a Redis deduper and falls back to in-memory on failure.
func NewPingbackDeduper(addr, pass string, db int, ttl time.Duration) (PingbackDeduper, error) {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if addr == "" {
		return newMemoryPingbackDeduper(ttl), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: pass,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return newMemoryPingbackDeduper(ttl), err
	}

	return &redisPingbackDeduper{
		client: client,
		prefix: "pw:pingback",
		ttl:    ttl,
	}, nil
}
