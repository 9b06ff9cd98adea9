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

package service

import (
	"context"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/efchatnet/efgroup/backend/apperr"
	"github.com/efchatnet/efgroup/backend/cache"
	"github.com/efchatnet/efgroup/backend/mocks"
	"github.com/efchatnet/efgroup/backend/models"
	"github.com/efchatnet/efgroup/backend/storage"
)

func TestSoleCreatorCanNotLeave(t *testing.T) {
	f := newFixture(t)
	groupID := f.createGroup("u1")

	err := f.svc.Members.Leave(f.ctx, f.access(groupID, "u1"))
	assert.ErrorIs(t, err, apperr.ErrOnlyOneAdmin)

	f.addMember(groupID, "u1", "u2", models.RankAdmin)

	err = f.svc.Members.Leave(f.ctx, f.access(groupID, "u1"))
	assert.ErrorIs(t, err, apperr.ErrCreatorImmutable)

	// the creator still counts as an admin
	require.NoError(t, f.svc.Members.Leave(f.ctx, f.access(groupID, "u2")))

	ok, err := f.svc.Access.IsMember(f.ctx, app, groupID, "u2")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLeaveRemovesKeysAndTasks(t *testing.T) {
	f := newFixture(t)
	groupID := f.createGroup("u1")
	f.addMember(groupID, "u1", "u2", models.RankMember)
	owner := f.access(groupID, "u1")
	_, err := f.svc.Rotation.StartRotation(f.ctx, owner, rotationInput(f.latestKey(owner)))
	require.NoError(t, err)

	require.NoError(t, f.svc.Members.Leave(f.ctx, f.access(groupID, "u2")))

	keys, err := f.store.ListOwnKeys(f.ctx, groupID, "u2", models.Cursor{}, models.PageSize)
	require.NoError(t, err)
	assert.Empty(t, keys)
	has, err := f.store.HasRotationTask(f.ctx, groupID, "u2")
	require.NoError(t, err)
	assert.False(t, has)
}

func TestChangeRank(t *testing.T) {
	f := newFixture(t)
	groupID := f.createGroup("u1")
	f.addMember(groupID, "u1", "u2", models.RankAdmin)
	f.addMember(groupID, "u1", "u3", models.RankMember)
	admin := f.access(groupID, "u2")

	err := f.svc.Members.ChangeRank(f.ctx, admin, "u3", models.RankCreator)
	assert.Equal(t, apperr.KindInvalidInput, apperr.KindOf(err))

	err = f.svc.Members.ChangeRank(f.ctx, admin, "u1", models.RankMember)
	assert.ErrorIs(t, err, apperr.ErrCreatorImmutable)

	err = f.svc.Members.ChangeRank(f.ctx, admin, "u9", models.RankMember)
	assert.ErrorIs(t, err, apperr.ErrMemberNotFound)

	require.NoError(t, f.svc.Members.ChangeRank(f.ctx, admin, "u3", models.RankManager))
	assert.Equal(t, models.RankManager, f.access(groupID, "u3").Rank)

	err = f.svc.Members.ChangeRank(f.ctx, f.access(groupID, "u3"), "u2", models.RankMember)
	assert.ErrorIs(t, err, apperr.ErrGroupRank)
}

func TestKick(t *testing.T) {
	f := newFixture(t)
	groupID := f.createGroup("u1")
	f.addMember(groupID, "u1", "u2", models.RankAdmin)
	f.addMember(groupID, "u1", "u3", models.RankManager)
	f.addMember(groupID, "u1", "u4", models.RankMember)
	manager := f.access(groupID, "u3")

	err := f.svc.Members.Kick(f.ctx, manager, "u2")
	assert.ErrorIs(t, err, apperr.ErrGroupRank)

	err = f.svc.Members.Kick(f.ctx, manager, "u1")
	assert.ErrorIs(t, err, apperr.ErrCreatorImmutable)

	err = f.svc.Members.Kick(f.ctx, f.access(groupID, "u4"), "u3")
	assert.ErrorIs(t, err, apperr.ErrGroupRank)

	require.NoError(t, f.svc.Members.Kick(f.ctx, manager, "u4"))
	_, err = f.svc.Access.Resolve(f.ctx, app, groupID, "u4", "")
	assert.ErrorIs(t, err, apperr.ErrGroupAccess)

	err = f.svc.Members.Kick(f.ctx, manager, "u4")
	assert.ErrorIs(t, err, apperr.ErrMemberNotFound)
}

func TestListMembersExcludesCaller(t *testing.T) {
	f := newFixture(t)
	groupID := f.createGroup("u1")
	f.addMember(groupID, "u1", "u2", models.RankMember)
	f.addMember(groupID, "u1", "u3", models.RankMember)

	members, err := f.svc.Members.ListMembers(f.ctx, f.access(groupID, "u2"), models.Cursor{})
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, "u1", members[0].UserID)
	assert.Equal(t, "u3", members[1].UserID)

	groups, err := f.svc.Members.ListGroupsForUser(f.ctx, app, "u3", models.Cursor{})
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, groupID, groups[0].GroupID)
}

func TestParentAccessToChild(t *testing.T) {
	f := newFixture(t)
	parentID := f.createGroup("u1")
	f.addMember(parentID, "u1", "u2", models.RankMember)

	childID, err := f.svc.Keys.CreateChildGroup(f.ctx, f.access(parentID, "u1"), groupInput())
	require.NoError(t, err)

	_, err = f.svc.Keys.CreateChildGroup(f.ctx, f.access(parentID, "u2"), groupInput())
	assert.ErrorIs(t, err, apperr.ErrGroupRank)

	viaParent := f.access(childID, "u2")
	assert.Equal(t, models.AccessParent, viaParent.Via)
	assert.Equal(t, parentID, viaParent.MemberID)
	assert.Equal(t, parentID, viaParent.ViaGroupID)
	assert.Equal(t, models.RankMember, viaParent.Rank)

	// the parent's placeholder row holds the child key
	keys, err := f.svc.Keys.FetchOwnKeys(f.ctx, viaParent, models.Cursor{})
	require.NoError(t, err)
	assert.Len(t, keys, 1)

	err = f.svc.Members.Leave(f.ctx, viaParent)
	assert.ErrorIs(t, err, apperr.ErrLeaveInherited)

	children, err := f.svc.Members.Children(f.ctx, f.access(parentID, "u2"), models.Cursor{})
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, childID, children[0].GroupID)

	// a grandchild is reached through two levels
	grandID, err := f.svc.Keys.CreateChildGroup(f.ctx, f.access(childID, "u1"), groupInput())
	require.NoError(t, err)
	grand := f.access(grandID, "u1")
	assert.Equal(t, childID, grand.MemberID)
	assert.Equal(t, parentID, grand.ViaGroupID)
	assert.Equal(t, models.RankCreator, grand.Rank)
}

func TestDeleteGroupRemovesSubtree(t *testing.T) {
	ctrl := gomock.NewController(t)
	hook := mocks.NewMockLifecycleHook(ctrl)
	f := newFixture(t, withHook(hook))

	parentID := f.createGroup("u1")
	f.addMember(parentID, "u1", "u2", models.RankMember)
	childID, err := f.svc.Keys.CreateChildGroup(f.ctx, f.access(parentID, "u1"), groupInput())
	require.NoError(t, err)
	otherID := f.createGroup("u3")

	// warm the cache so the delete has to invalidate it
	f.access(childID, "u2")

	hook.EXPECT().GroupsDeleted(gomock.Any(), app, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, ids []string) error {
			assert.ElementsMatch(t, []string{parentID, childID}, ids)
			return nil
		})

	err = f.svc.Members.DeleteGroup(f.ctx, f.access(parentID, "u2"))
	assert.ErrorIs(t, err, apperr.ErrGroupRank)

	require.NoError(t, f.svc.Members.DeleteGroup(f.ctx, f.access(parentID, "u1")))

	for _, id := range []string{parentID, childID} {
		_, err := f.svc.Access.Resolve(f.ctx, app, id, "u2", "")
		assert.ErrorIs(t, err, apperr.ErrGroupAccess)
		_, err = f.store.LatestGroupKey(f.ctx, id)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	}
	f.access(otherID, "u3")
}

func TestDeleteGroupRemovesConnectedGroups(t *testing.T) {
	ctrl := gomock.NewController(t)
	hook := mocks.NewMockLifecycleHook(ctrl)
	f := newFixture(t, withHook(hook))

	groupID := f.createGroup("u1")
	connectedID, err := f.svc.Keys.CreateConnectedGroup(f.ctx, f.access(groupID, "u1"), groupInput())
	require.NoError(t, err)
	childID, err := f.svc.Keys.CreateChildGroup(f.ctx, f.accessAs(connectedID, "u1", groupID), groupInput())
	require.NoError(t, err)
	viaGroup := f.accessAs(connectedID, "u1", groupID)
	_, err = f.svc.Invites.Invite(f.ctx, viaGroup, "u2", models.InviteInput{
		Rank: models.RankMember,
		Keys: keysFor(f.latestKey(viaGroup), 1),
	})
	require.NoError(t, err)
	require.NoError(t, f.svc.Invites.AcceptInvite(f.ctx, app, connectedID, "u2"))
	otherID := f.createGroup("u3")

	f.access(connectedID, "u2")

	hook.EXPECT().GroupsDeleted(gomock.Any(), app, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, ids []string) error {
			assert.ElementsMatch(t, []string{groupID, connectedID, childID}, ids)
			return nil
		})

	require.NoError(t, f.svc.Members.DeleteGroup(f.ctx, f.access(groupID, "u1")))

	for _, id := range []string{groupID, connectedID, childID} {
		_, err := f.store.GetGroup(f.ctx, app, id)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	}
	members, err := f.store.ListMemberIDs(f.ctx, []string{connectedID, childID})
	require.NoError(t, err)
	assert.Empty(t, members)

	_, err = f.svc.Access.Resolve(f.ctx, app, connectedID, "u2", "")
	assert.ErrorIs(t, err, apperr.ErrGroupAccess)
	f.access(otherID, "u3")
}

func TestDeleteChildInvalidatesParentAccess(t *testing.T) {
	f := newFixture(t)
	parentID := f.createGroup("u1")
	f.addMember(parentID, "u1", "u2", models.RankMember)
	childID, err := f.svc.Keys.CreateChildGroup(f.ctx, f.access(parentID, "u1"), groupInput())
	require.NoError(t, err)

	// cached through the parent
	viaParent := f.access(childID, "u2")
	assert.Equal(t, parentID, viaParent.MemberID)

	require.NoError(t, f.svc.Members.DeleteGroup(f.ctx, f.access(childID, "u1")))

	_, err = f.svc.Access.Resolve(f.ctx, app, childID, "u2", "")
	assert.ErrorIs(t, err, apperr.ErrGroupAccess)
	_, err = f.svc.Access.Resolve(f.ctx, app, childID, "u1", "")
	assert.ErrorIs(t, err, apperr.ErrGroupAccess)
	assert.Equal(t, models.RankMember, f.access(parentID, "u2").Rank)
}

func TestMembershipCache(t *testing.T) {
	ctrl := gomock.NewController(t)
	mc := mocks.NewMockMembershipCache(ctrl)
	f := newFixture(t, withCache(mc))

	mc.EXPECT().Get(gomock.Any(), gomock.Any()).Return(nil, false, nil).AnyTimes()
	mc.EXPECT().Set(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	groupID := f.createGroup("u1")

	// once when u2 joins and once when u2 is kicked
	mc.EXPECT().Invalidate(gomock.Any(), cache.Key(app, groupID, "u2")).Return(nil).Times(2)

	f.addMember(groupID, "u1", "u2", models.RankMember)
	require.NoError(t, f.svc.Members.Kick(f.ctx, f.access(groupID, "u1"), "u2"))
}

func TestCachedAccessIsUsed(t *testing.T) {
	ctrl := gomock.NewController(t)
	mc := mocks.NewMockMembershipCache(ctrl)
	f := newFixture(t, withCache(mc))

	cached := &models.GroupAccess{AppID: app, GroupID: "g1", MemberID: "u1", Rank: models.RankAdmin}
	mc.EXPECT().Get(gomock.Any(), cache.Key(app, "g1", "u1")).Return(cached, true, nil)

	a, err := f.svc.Access.Resolve(f.ctx, app, "g1", "u1", "")
	require.NoError(t, err)
	assert.Equal(t, models.RankAdmin, a.Rank)
	assert.Equal(t, "u1", a.UserID)
}
