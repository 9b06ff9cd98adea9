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

package hierarchy

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/efchatnet/efgroup/backend/apperr"
	"github.com/efchatnet/efgroup/backend/models"
	"github.com/efchatnet/efgroup/backend/storage/memory"
)

var t0 = time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)

func addGroup(t *testing.T, s *memory.Store, id, parent string, offset int) {
	t.Helper()
	require.NoError(t, s.InsertGroup(context.Background(), models.Group{
		GroupID:       id,
		AppID:         "app",
		ParentGroupID: parent,
		CreatedAt:     t0.Add(time.Duration(offset) * time.Second),
	}))
}

func addMember(t *testing.T, s *memory.Store, group, user string, rank int) {
	t.Helper()
	_, err := s.InsertMember(context.Background(), models.GroupMember{GroupID: group, UserID: user, Rank: rank})
	require.NoError(t, err)
}

// root -> a -> b -> c, root -> d
func tree(t *testing.T) *memory.Store {
	s := memory.NewStore()
	addGroup(t, s, "root", "", 0)
	addGroup(t, s, "a", "root", 1)
	addGroup(t, s, "b", "a", 2)
	addGroup(t, s, "c", "b", 3)
	addGroup(t, s, "d", "root", 4)
	return s
}

func TestAncestorMembership(t *testing.T) {
	ctx := context.Background()
	s := tree(t)
	addMember(t, s, "root", "u1", models.RankManager)
	addMember(t, s, "a", "u1", models.RankMember)
	addMember(t, s, "root", "u2", models.RankAdmin)
	r := NewResolver(s)

	m, err := r.AncestorMembership(ctx, "app", "c", "u1")
	require.NoError(t, err)
	assert.Equal(t, "a", m.GroupID)
	assert.Equal(t, models.RankMember, m.Rank)

	m, err = r.AncestorMembership(ctx, "app", "c", "u2")
	require.NoError(t, err)
	assert.Equal(t, "root", m.GroupID)

	_, err = r.AncestorMembership(ctx, "app", "c", "u3")
	assert.ErrorIs(t, err, ErrNoAncestor)

	_, err = r.AncestorMembership(ctx, "app", "root", "u1")
	assert.ErrorIs(t, err, ErrNoAncestor)
}

func TestDescendantIDs(t *testing.T) {
	s := tree(t)
	ids, err := NewResolver(s).DescendantIDs(context.Background(), "app", "a")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b", "c"}, ids)

	ids, err = NewResolver(s).DescendantIDs(context.Background(), "app", "root")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"root", "a", "b", "c", "d"}, ids)
	assert.Equal(t, "root", ids[0])
}

func TestAncestorIDs(t *testing.T) {
	ctx := context.Background()
	s := tree(t)
	r := NewResolver(s)

	ids, err := r.AncestorIDs(ctx, "app", "c")
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a", "root"}, ids)

	ids, err = r.AncestorIDs(ctx, "app", "root")
	require.NoError(t, err)
	assert.Empty(t, ids)

	addGroup(t, s, "orphan", "missing", 5)
	ids, err = r.AncestorIDs(ctx, "app", "orphan")
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestCycleIsReported(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	addGroup(t, s, "x", "y", 0)
	addGroup(t, s, "y", "x", 1)
	r := NewResolver(s)

	_, err := r.AncestorMembership(ctx, "app", "x", "u1")
	assert.ErrorIs(t, err, apperr.ErrHierarchyCorrupt)
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))

	_, err = r.DescendantIDs(ctx, "app", "x")
	assert.ErrorIs(t, err, apperr.ErrHierarchyCorrupt)

	_, err = r.AncestorIDs(ctx, "app", "x")
	assert.ErrorIs(t, err, apperr.ErrHierarchyCorrupt)
}

func TestDepthGuard(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	addGroup(t, s, "g0", "", 0)
	for i := 1; i <= 5; i++ {
		addGroup(t, s, fmt.Sprintf("g%d", i), fmt.Sprintf("g%d", i-1), i)
	}
	r := NewResolver(s).WithMaxDepth(3)

	_, err := r.DescendantIDs(ctx, "app", "g0")
	assert.ErrorIs(t, err, apperr.ErrHierarchyCorrupt)

	_, err = r.AncestorMembership(ctx, "app", "g5", "u1")
	assert.ErrorIs(t, err, apperr.ErrHierarchyCorrupt)

	_, err = NewResolver(s).DescendantIDs(ctx, "app", "g0")
	assert.NoError(t, err)
}

func TestFirstLevelChildren(t *testing.T) {
	s := tree(t)
	children, err := NewResolver(s).FirstLevelChildren(context.Background(), "app", "root", models.Cursor{})
	require.NoError(t, err)
	require.Len(t, children, 2)
	assert.Equal(t, "a", children[0].GroupID)
	assert.Equal(t, "d", children[1].GroupID)

	children, err = NewResolver(s).FirstLevelChildren(context.Background(), "app", "root",
		models.Cursor{Time: children[0].CreatedAt, ID: children[0].GroupID})
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, "d", children[0].GroupID)
}
