// Package lock provides best-effort redis leases so that multiple instances
// of the core do not fire the same task or drain concurrently. Leases expire
// on their own; release is an optimization, not a correctness requirement.
package lock

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

func leaseKey(name string) string {
	return "lease:automation:" + name
}

type Manager struct {
	rdb   *redis.Client
	owner string
}

// NewManager creates a lease manager; owner identifies this process instance
// so only the holder can release or renew a lease.
func NewManager(rdb *redis.Client, owner string) *Manager {
	return &Manager{rdb: rdb, owner: owner}
}

// Acquire takes the lease when free. Returns false when another owner holds it.
func (m *Manager) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	return m.rdb.SetNX(ctx, leaseKey(name), m.owner, ttl).Result()
}

// Release frees the lease only when this instance still holds it.
func (m *Manager) Release(ctx context.Context, name string) (bool, error) {
	script := `
		if redis.call('GET', KEYS[1]) == ARGV[1] then
			return redis.call('DEL', KEYS[1])
		else
			return 0
		end`

	cmd := m.rdb.Eval(ctx, script, []string{leaseKey(name)}, m.owner)
	if err := cmd.Err(); err != nil {
		return false, err
	}
	n, _ := cmd.Int()
	return n == 1, nil
}

// Renew extends the lease only while this instance holds it.
func (m *Manager) Renew(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	script := `
		if redis.call('GET', KEYS[1]) == ARGV[1] then
			return redis.call('PEXPIRE', KEYS[1], ARGV[2])
		else
			return 0
		end`

	cmd := m.rdb.Eval(ctx, script, []string{leaseKey(name)}, m.owner, int(ttl.Milliseconds()))
	if err := cmd.Err(); err != nil {
		return false, err
	}
	n, _ := cmd.Int()
	return n == 1, nil
}
