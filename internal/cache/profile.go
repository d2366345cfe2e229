// Package cache holds redis-backed read models fed by the automation runs.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"marketpulse/internal/domain/lead"
	"marketpulse/internal/pkg/errs"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const profileKeyPrefix = "lead:profile:"

// ProfileCache caches the latest classified lead profile per user so read
// paths don't reclassify on every request. Entries expire on their own; the
// nurture run and rescore jobs refresh them.
type ProfileCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewProfileCache(rdb *redis.Client, ttl time.Duration) *ProfileCache {
	return &ProfileCache{rdb: rdb, ttl: ttl}
}

func (c *ProfileCache) Set(ctx context.Context, p lead.Profile) error {
	data, err := json.Marshal(p)
	if err != nil {
		return errs.Wrap(err, "failed to marshal lead profile")
	}
	if err := c.rdb.Set(ctx, profileKeyPrefix+p.UserID.String(), data, c.ttl).Err(); err != nil {
		return errs.Wrap(err, "failed to cache lead profile")
	}
	return nil
}

// Get returns the cached profile and whether one exists. A missing key is not
// an error.
func (c *ProfileCache) Get(ctx context.Context, userID uuid.UUID) (lead.Profile, bool, error) {
	data, err := c.rdb.Get(ctx, profileKeyPrefix+userID.String()).Bytes()
	if err == redis.Nil {
		return lead.Profile{}, false, nil
	}
	if err != nil {
		return lead.Profile{}, false, errs.Wrap(err, "failed to read cached lead profile")
	}

	var p lead.Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return lead.Profile{}, false, errs.Wrap(err, "failed to unmarshal cached lead profile")
	}
	return p, true, nil
}
