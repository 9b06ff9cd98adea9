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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/efchatnet/efgroup/backend/apperr"
	"github.com/efchatnet/efgroup/backend/models"
	"github.com/efchatnet/efgroup/backend/storage"
)

func TestInviteRank(t *testing.T) {
	f := newFixture(t)
	groupID := f.createGroup("u1")
	f.addMember(groupID, "u1", "u2", models.RankManager)
	manager := f.access(groupID, "u2")
	keys := keysFor(f.latestKey(manager), 1)

	_, err := f.svc.Invites.Invite(f.ctx, manager, "u3", models.InviteInput{Rank: models.RankAdmin, Keys: keys})
	assert.ErrorIs(t, err, apperr.ErrGroupRank)

	_, err = f.svc.Invites.Invite(f.ctx, manager, "u3", models.InviteInput{Rank: 5, Keys: keys})
	assert.Equal(t, apperr.KindInvalidInput, apperr.KindOf(err))

	_, err = f.svc.Invites.Invite(f.ctx, manager, "u1", models.InviteInput{Keys: keys})
	assert.ErrorIs(t, err, apperr.ErrAlreadyMember)

	_, err = f.svc.Invites.Invite(f.ctx, manager, "u3", models.InviteInput{Keys: keys})
	require.NoError(t, err)
	_, err = f.svc.Invites.Invite(f.ctx, manager, "u3", models.InviteInput{Keys: keys})
	assert.ErrorIs(t, err, apperr.ErrInviteExists)

	require.NoError(t, f.svc.Invites.AcceptInvite(f.ctx, app, groupID, "u3"))
	assert.Equal(t, models.RankMember, f.access(groupID, "u3").Rank)

	_, err = f.svc.Invites.Invite(f.ctx, f.access(groupID, "u3"), "u4", models.InviteInput{Keys: keys})
	assert.ErrorIs(t, err, apperr.ErrGroupRank)

	_, err = f.svc.Invites.Invite(f.ctx, manager, "u5", models.InviteInput{Keys: keys, Auto: true, Rank: models.RankContent})
	require.NoError(t, err)
	assert.Equal(t, models.RankContent, f.access(groupID, "u5").Rank)
}

func TestRejectInviteLeavesNoKeys(t *testing.T) {
	f := newFixture(t)
	groupID := f.createGroup("u1")
	owner := f.access(groupID, "u1")

	_, err := f.svc.Invites.Invite(f.ctx, owner, "u2", models.InviteInput{Keys: keysFor(f.latestKey(owner), 1)})
	require.NoError(t, err)

	invites, err := f.svc.Invites.ListInvites(f.ctx, app, "u2", models.Cursor{})
	require.NoError(t, err)
	require.Len(t, invites, 1)
	assert.Equal(t, groupID, invites[0].GroupID)

	require.NoError(t, f.svc.Invites.RejectInvite(f.ctx, app, groupID, "u2"))

	keys, err := f.store.ListOwnKeys(f.ctx, groupID, "u2", models.Cursor{}, models.PageSize)
	require.NoError(t, err)
	assert.Empty(t, keys)

	err = f.svc.Invites.AcceptInvite(f.ctx, app, groupID, "u2")
	assert.ErrorIs(t, err, apperr.ErrInviteNotFound)
	err = f.svc.Invites.RejectInvite(f.ctx, app, groupID, "u2")
	assert.ErrorIs(t, err, apperr.ErrInviteNotFound)

	err = f.svc.Invites.AcceptInvite(f.ctx, "other-app", groupID, "u2")
	assert.ErrorIs(t, err, apperr.ErrGroupAccess)
}

func TestJoinRequests(t *testing.T) {
	f := newFixture(t)
	groupID := f.createGroup("u1")
	owner := f.access(groupID, "u1")

	require.NoError(t, f.svc.Invites.Join(f.ctx, app, groupID, "u2", models.TargetNormal))
	require.NoError(t, f.svc.Invites.Join(f.ctx, app, groupID, "u2", models.TargetNormal))

	sent, err := f.svc.Invites.ListSentJoins(f.ctx, app, "u2", models.Cursor{})
	require.NoError(t, err)
	assert.Len(t, sent, 1)

	reqs, err := f.svc.Invites.ListJoinRequests(f.ctx, owner, models.Cursor{})
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	assert.Equal(t, "u2", reqs[0].UserID)

	_, err = f.svc.Invites.Invite(f.ctx, owner, "u2", models.InviteInput{})
	assert.ErrorIs(t, err, apperr.ErrInviteExists)

	_, err = f.svc.Invites.AcceptJoin(f.ctx, owner, "u2", models.AcceptJoinInput{Keys: keysFor(f.latestKey(owner), 1)})
	require.NoError(t, err)
	member := f.access(groupID, "u2")
	assert.Equal(t, models.RankMember, member.Rank)
	assert.Equal(t, f.latestKey(owner), f.latestKey(member))

	_, err = f.svc.Invites.ListJoinRequests(f.ctx, member, models.Cursor{})
	assert.ErrorIs(t, err, apperr.ErrGroupRank)

	err = f.svc.Invites.Join(f.ctx, app, groupID, "u2", models.TargetNormal)
	assert.ErrorIs(t, err, apperr.ErrAlreadyMember)

	require.NoError(t, f.svc.Invites.Join(f.ctx, app, groupID, "u3", models.TargetNormal))
	require.NoError(t, f.svc.Invites.DeleteSentJoin(f.ctx, app, groupID, "u3"))
	err = f.svc.Invites.DeleteSentJoin(f.ctx, app, groupID, "u3")
	assert.ErrorIs(t, err, apperr.ErrJoinNotFound)

	require.NoError(t, f.svc.Invites.Join(f.ctx, app, groupID, "u4", models.TargetNormal))
	require.NoError(t, f.svc.Invites.RejectJoin(f.ctx, owner, "u4"))
	_, err = f.svc.Invites.AcceptJoin(f.ctx, owner, "u4", models.AcceptJoinInput{})
	assert.ErrorIs(t, err, apperr.ErrJoinNotFound)

	_, err = f.svc.Invites.Invite(f.ctx, owner, "u6", models.InviteInput{})
	require.NoError(t, err)
	err = f.svc.Invites.Join(f.ctx, app, groupID, "u6", models.TargetNormal)
	assert.ErrorIs(t, err, apperr.ErrInviteExists)

	err = f.svc.Members.SetInviteEnabled(f.ctx, member, false)
	assert.ErrorIs(t, err, apperr.ErrGroupRank)
	require.NoError(t, f.svc.Members.SetInviteEnabled(f.ctx, owner, false))

	err = f.svc.Invites.Join(f.ctx, app, groupID, "u5", models.TargetNormal)
	assert.ErrorIs(t, err, apperr.ErrInviteDisabled)
	_, err = f.svc.Invites.Invite(f.ctx, owner, "u5", models.InviteInput{})
	assert.ErrorIs(t, err, apperr.ErrInviteDisabled)

	err = f.svc.Invites.Join(f.ctx, app, "missing", "u5", models.TargetNormal)
	assert.ErrorIs(t, err, apperr.ErrGroupAccess)
}

func TestPrivateGroupHasNoOtherMembers(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.InsertGroup(f.ctx, models.Group{
		GroupID:       "private",
		AppID:         app,
		Type:          models.GroupTypeUserPrivate,
		InviteEnabled: true,
	}))
	_, err := f.store.InsertMember(f.ctx, models.GroupMember{GroupID: "private", UserID: "u1"})
	require.NoError(t, err)

	err = f.svc.Invites.Join(f.ctx, app, "private", "u2", models.TargetNormal)
	assert.ErrorIs(t, err, apperr.ErrPrivateGroup)
	_, err = f.svc.Invites.Invite(f.ctx, f.access("private", "u1"), "u2", models.InviteInput{})
	assert.ErrorIs(t, err, apperr.ErrPrivateGroup)
}

func TestConnectedGroups(t *testing.T) {
	f := newFixture(t)
	groupID := f.createGroup("u1")
	connectedID, err := f.svc.Keys.CreateConnectedGroup(f.ctx, f.access(groupID, "u1"), groupInput())
	require.NoError(t, err)

	// u1 only reaches the connected group through its group
	_, err = f.svc.Access.Resolve(f.ctx, app, connectedID, "u1", "")
	assert.ErrorIs(t, err, apperr.ErrGroupAccess)
	asGroup := f.accessAs(connectedID, "u1", groupID)
	assert.Equal(t, groupID, asGroup.MemberID)
	assert.Equal(t, models.RankCreator, asGroup.Rank)

	_, err = f.svc.Keys.CreateConnectedGroup(f.ctx, asGroup, groupInput())
	assert.ErrorIs(t, err, apperr.ErrConnectedNesting)

	childID, err := f.svc.Keys.CreateChildGroup(f.ctx, asGroup, groupInput())
	require.NoError(t, err)
	child, err := f.store.GetGroup(f.ctx, app, childID)
	require.NoError(t, err)
	assert.True(t, child.IsConnectedGroup)

	otherID := f.createGroup("u5")
	f.addMember(otherID, "u5", "u6", models.RankMember)
	keys := keysFor(f.latestKey(asGroup), 1)

	_, err = f.svc.Invites.Invite(f.ctx, asGroup, connectedID, models.InviteInput{TargetType: models.TargetGroup, Keys: keys})
	assert.ErrorIs(t, err, apperr.ErrInviteSelf)
	_, err = f.svc.Invites.Invite(f.ctx, f.access(groupID, "u1"), otherID, models.InviteInput{TargetType: models.TargetGroup})
	assert.ErrorIs(t, err, apperr.ErrGroupNotConnected)

	otherConnected, err := f.svc.Keys.CreateConnectedGroup(f.ctx, f.access(otherID, "u5"), groupInput())
	require.NoError(t, err)
	_, err = f.svc.Invites.Invite(f.ctx, asGroup, otherConnected, models.InviteInput{TargetType: models.TargetGroup})
	assert.ErrorIs(t, err, apperr.ErrConnectedNesting)

	_, err = f.svc.Invites.Invite(f.ctx, asGroup, otherID, models.InviteInput{TargetType: models.TargetGroup, Keys: keys})
	require.NoError(t, err)

	_, err = f.svc.Access.ResolveActor(f.ctx, app, "u6", otherID)
	assert.ErrorIs(t, err, apperr.ErrGroupRank)
	principal, err := f.svc.Access.ResolveActor(f.ctx, app, "u5", otherID)
	require.NoError(t, err)
	require.NoError(t, f.svc.Invites.AcceptInvite(f.ctx, app, connectedID, principal))

	// any member of the joined group reaches the connected group through it
	viaOther := f.accessAs(connectedID, "u6", otherID)
	assert.True(t, viaOther.Direct())
	assert.Equal(t, otherID, viaOther.MemberID)
	assert.Equal(t, models.RankMember, viaOther.Rank)

	err = f.svc.Members.Leave(f.ctx, viaOther)
	assert.ErrorIs(t, err, apperr.ErrGroupRank)

	require.NoError(t, f.svc.Members.Leave(f.ctx, f.accessAs(connectedID, "u5", otherID)))
	_, err = f.svc.Access.Resolve(f.ctx, app, connectedID, "u6", otherID)
	assert.ErrorIs(t, err, apperr.ErrGroupAccess)
}

// Random invite and join traffic keeps the pair state consistent: never a member
// row and a request at once, the creator row stays, and nobody without either holds
// key copies.
func TestMembershipStateMachine(t *testing.T) {
	users := []string{"u2", "u3", "u4", "u5"}

	rapid.Check(t, func(t *rapid.T) {
		f := newFixture(t)
		groupID := f.createGroup("u1")
		owner := f.access(groupID, "u1")
		keys := keysFor(f.latestKey(owner), 1)

		steps := rapid.IntRange(1, 40).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			user := rapid.SampledFrom(users).Draw(t, "user")
			op := rapid.SampledFrom([]string{
				"invite", "accept", "reject", "join", "accept_join",
				"reject_join", "withdraw", "leave", "kick",
			}).Draw(t, "op")

			var err error
			switch op {
			case "invite":
				_, err = f.svc.Invites.Invite(f.ctx, owner, user, models.InviteInput{Keys: keys})
			case "accept":
				err = f.svc.Invites.AcceptInvite(f.ctx, app, groupID, user)
			case "reject":
				err = f.svc.Invites.RejectInvite(f.ctx, app, groupID, user)
			case "join":
				err = f.svc.Invites.Join(f.ctx, app, groupID, user, models.TargetNormal)
			case "accept_join":
				_, err = f.svc.Invites.AcceptJoin(f.ctx, owner, user, models.AcceptJoinInput{Keys: keys})
			case "reject_join":
				err = f.svc.Invites.RejectJoin(f.ctx, owner, user)
			case "withdraw":
				err = f.svc.Invites.DeleteSentJoin(f.ctx, app, groupID, user)
			case "leave":
				var a *models.GroupAccess
				a, err = f.svc.Access.Resolve(f.ctx, app, groupID, user, "")
				if err == nil {
					err = f.svc.Members.Leave(f.ctx, a)
				}
			case "kick":
				err = f.svc.Members.Kick(f.ctx, owner, user)
			}
			if err != nil && apperr.KindOf(err) == apperr.KindInternal {
				t.Fatalf("%s %s: %v", op, user, err)
			}

			creator, err := f.store.GetMember(f.ctx, groupID, "u1")
			if err != nil || creator.Rank != models.RankCreator {
				t.Fatalf("creator row lost after %s %s", op, user)
			}
			for _, u := range users {
				_, memberErr := f.store.GetMember(f.ctx, groupID, u)
				_, reqErr := f.store.GetRequest(f.ctx, groupID, u)
				isMember := memberErr == nil
				hasRequest := reqErr == nil
				if isMember && hasRequest {
					t.Fatalf("%s is member and has a request after %s %s", u, op, user)
				}
				if !isMember && !errors.Is(memberErr, storage.ErrNotFound) {
					t.Fatal(memberErr)
				}
				own, err := f.store.ListOwnKeys(f.ctx, groupID, u, models.Cursor{}, models.PageSize)
				if err != nil {
					t.Fatal(err)
				}
				if !isMember && !hasRequest && len(own) > 0 {
					t.Fatalf("%s holds keys without member row or request after %s %s", u, op, user)
				}
			}
		}
	})
}
