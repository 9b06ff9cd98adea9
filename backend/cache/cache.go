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

// Package cache holds resolved group access under {app}:{group}:{principal}.
package cache

import (
	"context"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/efchatnet/efgroup/backend/models"
)

const (
	DefaultSize = 10000
	DefaultTTL  = 5 * time.Minute
)

//go:generate mockgen -destination=../mocks/mock_cache.go -package=mocks . MembershipCache

type MembershipCache interface {
	// Get reports a miss as (nil, false, nil).
	Get(ctx context.Context, key string) (*models.GroupAccess, bool, error)
	Set(ctx context.Context, key string, access *models.GroupAccess) error
	Invalidate(ctx context.Context, keys ...string) error
}

func Key(appID, groupID, principal string) string {
	return strings.Join([]string{appID, groupID, principal}, ":")
}

// LocalCache is a size bounded in-process cache with a TTL per entry.
type LocalCache struct {
	lru *expirable.LRU[string, models.GroupAccess]
}

var _ MembershipCache = (*LocalCache)(nil)

func NewLocalCache(size int, ttl time.Duration) *LocalCache {
	if size <= 0 {
		size = DefaultSize
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &LocalCache{lru: expirable.NewLRU[string, models.GroupAccess](size, nil, ttl)}
}

func (c *LocalCache) Get(_ context.Context, key string) (*models.GroupAccess, bool, error) {
	access, ok := c.lru.Get(key)
	if !ok {
		return nil, false, nil
	}
	return &access, true, nil
}

func (c *LocalCache) Set(_ context.Context, key string, access *models.GroupAccess) error {
	c.lru.Add(key, *access)
	return nil
}

func (c *LocalCache) Invalidate(_ context.Context, keys ...string) error {
	for _, key := range keys {
		c.lru.Remove(key)
	}
	return nil
}

func (c *LocalCache) Len() int {
	return c.lru.Len()
}

// Nop never stores anything.
type Nop struct{}

func (Nop) Get(context.Context, string) (*models.GroupAccess, bool, error) { return nil, false, nil }
func (Nop) Set(context.Context, string, *models.GroupAccess) error { return nil }
func (Nop) Invalidate(context.Context, ...string) error { return nil }
