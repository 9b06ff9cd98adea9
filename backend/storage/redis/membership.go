// Copyright (C) 2025 efchat.net <tj@efchat.net>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sethvargo/go-retry"

	"github.com/efchatnet/efgroup/backend/cache"
	"github.com/efchatnet/efgroup/backend/models"
)

const (
	// group:member:{app}:{group}:{principal} - resolved GroupAccess as JSON
	memberPrefix = "group:member:"

	invalidateRetries = 3
	invalidateBackoff = 50 * time.Millisecond
)

// MembershipCache shares resolved access between instances. Entries expire after
// ttl even if an invalidation is lost.
type MembershipCache struct {
	rdb *redis.Client
	ttl time.Duration
}

var _ cache.MembershipCache = (*MembershipCache)(nil)

func NewMembershipCache(rdb *redis.Client, ttl time.Duration) *MembershipCache {
	if ttl <= 0 {
		ttl = cache.DefaultTTL
	}
	return &MembershipCache{rdb: rdb, ttl: ttl}
}

func (c *MembershipCache) Get(ctx context.Context, key string) (*models.GroupAccess, bool, error) {
	data, err := c.rdb.Get(ctx, memberPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get cached access: %w", err)
	}

	var access models.GroupAccess
	if err := json.Unmarshal(data, &access); err != nil {
		// unreadable entries count as a miss and get overwritten
		return nil, false, nil
	}
	return &access, true, nil
}

func (c *MembershipCache) Set(ctx context.Context, key string, access *models.GroupAccess) error {
	data, err := json.Marshal(access)
	if err != nil {
		return fmt.Errorf("failed to marshal access: %w", err)
	}
	if err := c.rdb.Set(ctx, memberPrefix+key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache access: %w", err)
	}
	return nil
}

// Invalidate retries a failed DEL a few times. A stale entry would grant access that
// was just revoked.
func (c *MembershipCache) Invalidate(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	full := make([]string, len(keys))
	for i, key := range keys {
		full[i] = memberPrefix + key
	}

	backoff := retry.NewExponential(invalidateBackoff)
	err := retry.Do(ctx, retry.WithMaxRetries(invalidateRetries, backoff), func(ctx context.Context) error {
		if err := c.rdb.Del(ctx, full...).Err(); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to invalidate %d cached entries: %w", len(keys), err)
	}
	return nil
}
