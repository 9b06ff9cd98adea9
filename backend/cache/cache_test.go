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

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/efchatnet/efgroup/backend/models"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "app1:g1:u1", Key("app1", "g1", "u1"))
}

func TestLocalCache(t *testing.T) {
	ctx := context.Background()
	c := NewLocalCache(2, time.Minute)

	_, ok, err := c.Get(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "a", &models.GroupAccess{GroupID: "g1", Rank: 2}))
	got, ok, err := c.Get(ctx, "a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, got.Rank)

	// the returned value is a copy
	got.Rank = 0
	again, _, _ := c.Get(ctx, "a")
	assert.Equal(t, 2, again.Rank)

	require.NoError(t, c.Set(ctx, "b", &models.GroupAccess{}))
	require.NoError(t, c.Set(ctx, "c", &models.GroupAccess{}))
	assert.Equal(t, 2, c.Len())

	require.NoError(t, c.Invalidate(ctx, "b", "c", "missing"))
	assert.Equal(t, 0, c.Len())
}

func TestLocalCacheExpires(t *testing.T) {
	ctx := context.Background()
	c := NewLocalCache(10, 20*time.Millisecond)
	require.NoError(t, c.Set(ctx, "a", &models.GroupAccess{}))

	assert.Eventually(t, func() bool {
		_, ok, _ := c.Get(ctx, "a")
		return !ok
	}, time.Second, 10*time.Millisecond)
}
