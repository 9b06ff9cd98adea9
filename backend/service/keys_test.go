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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/efchatnet/efgroup/backend/apperr"
	"github.com/efchatnet/efgroup/backend/models"
	"github.com/efchatnet/efgroup/backend/policy"
)

func TestCreateGroupWritesCreatorRows(t *testing.T) {
	f := newFixture(t)
	groupID := f.createGroup("u1")

	a := f.access(groupID, "u1")
	assert.Equal(t, models.RankCreator, a.Rank)
	assert.True(t, a.Direct())
	assert.Equal(t, "u1", a.MemberID)

	data, err := f.svc.Keys.GroupData(f.ctx, a)
	require.NoError(t, err)
	assert.True(t, data.Group.InviteEnabled)
	assert.False(t, data.KeyUpdate)
	require.Len(t, data.Keys, 1)
	assert.Equal(t, "enc-group-key", data.Keys[0].EncryptedGroupKey)
	assert.Equal(t, "creator-pk", data.Keys[0].EncryptedKeyID)
	require.Len(t, data.HmacKeys, 1)
	assert.Equal(t, data.Keys[0].KeyID, data.HmacKeys[0].EncryptedHmacKeyKeyID)

	pub, err := f.svc.Keys.PublicKey(f.ctx, app, groupID)
	require.NoError(t, err)
	assert.Equal(t, "public", pub.PublicKey)

	_, err = f.svc.Keys.PublicKey(f.ctx, "other-app", groupID)
	assert.ErrorIs(t, err, apperr.ErrGroupAccess)
}

func TestInviteAcceptRotateComplete(t *testing.T) {
	f := newFixture(t)
	groupID := f.createGroup("u1")
	f.addMember(groupID, "u1", "u2", models.RankMember)

	owner := f.access(groupID, "u1")
	member := f.access(groupID, "u2")
	assert.Equal(t, models.RankMember, member.Rank)

	first := f.latestKey(owner)
	assert.Equal(t, first, f.latestKey(member))

	newKey, err := f.svc.Rotation.StartRotation(f.ctx, owner, rotationInput(first))
	require.NoError(t, err)
	assert.Equal(t, newKey, f.latestKey(owner))

	update, err := f.svc.Keys.HasPendingKeyUpdate(f.ctx, member)
	require.NoError(t, err)
	assert.True(t, update)
	update, err = f.svc.Keys.HasPendingKeyUpdate(f.ctx, owner)
	require.NoError(t, err)
	assert.False(t, update)

	items, err := f.svc.Rotation.PendingRotations(f.ctx, member)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, newKey, items[0].KeyID)
	assert.Equal(t, first, items[0].PreviousGroupKeyID)
	assert.Equal(t, "enc-by-ephemeral", items[0].EncryptedGroupKeyByEphemeral)
	assert.Equal(t, "u1-sign", items[0].SignedByUserSignKeyID)

	done := models.CompleteRotationInput{EncryptedGroupKey: "u2-copy", EncryptedAlg: "RSA-OAEP-256", EncryptedKeyID: "u2-pk"}
	require.NoError(t, f.svc.Rotation.CompleteRotation(f.ctx, member, newKey, done))

	update, err = f.svc.Keys.HasPendingKeyUpdate(f.ctx, member)
	require.NoError(t, err)
	assert.False(t, update)

	key, err := f.svc.Keys.FetchKey(f.ctx, member, newKey)
	require.NoError(t, err)
	assert.Equal(t, "u2-copy", key.EncryptedGroupKey)

	// a repeated completion is a no-op
	require.NoError(t, f.svc.Rotation.CompleteRotation(f.ctx, member, newKey, done))

	err = f.svc.Rotation.CompleteRotation(f.ctx, member, "unknown", done)
	assert.ErrorIs(t, err, apperr.ErrRotationTaskMissing)
}

func TestRotationChecks(t *testing.T) {
	f := newFixture(t, withPolicy(policy.AppPolicy{MinRankKeyRotation: models.RankManager, MaxKeyRotationMonth: 1}))
	groupID := f.createGroup("u1")
	f.addMember(groupID, "u1", "u2", models.RankManager)
	f.addMember(groupID, "u1", "u3", models.RankMember)
	owner := f.access(groupID, "u1")
	first := f.latestKey(owner)

	_, err := f.svc.Rotation.StartRotation(f.ctx, f.access(groupID, "u3"), rotationInput(first))
	assert.ErrorIs(t, err, apperr.ErrGroupRank)

	_, err = f.svc.Rotation.StartRotation(f.ctx, owner, rotationInput("missing"))
	assert.ErrorIs(t, err, apperr.ErrPreviousKeyNotFound)

	_, err = f.svc.Rotation.StartRotation(f.ctx, f.access(groupID, "u2"), rotationInput(first))
	require.NoError(t, err)

	_, err = f.svc.Rotation.StartRotation(f.ctx, owner, rotationInput(first))
	assert.ErrorIs(t, err, apperr.ErrRotationQuota)
	assert.Equal(t, apperr.KindQuotaExceeded, apperr.KindOf(err))
}

func TestRotationMustStartFromNewestKey(t *testing.T) {
	f := newFixture(t)
	groupID := f.createGroup("u1")
	owner := f.access(groupID, "u1")
	first := f.latestKey(owner)

	second, err := f.svc.Rotation.StartRotation(f.ctx, owner, rotationInput(first))
	require.NoError(t, err)

	_, err = f.svc.Rotation.StartRotation(f.ctx, owner, rotationInput(first))
	assert.ErrorIs(t, err, apperr.ErrStaleRotationKey)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	assert.Equal(t, second, f.latestKey(owner))

	_, err = f.svc.Rotation.StartRotation(f.ctx, owner, rotationInput(second))
	require.NoError(t, err)
}

func TestKeySession(t *testing.T) {
	f := newFixture(t)
	groupID := f.createGroup("u1")
	owner := f.access(groupID, "u1")
	keyID := f.latestKey(owner)

	_, err := f.svc.Invites.Invite(f.ctx, owner, "u2", models.InviteInput{Keys: keysFor(keyID, MaxKeysPerRequest+1)})
	assert.ErrorIs(t, err, apperr.ErrTooManyKeys)

	sessionID, err := f.svc.Invites.Invite(f.ctx, owner, "u2", models.InviteInput{
		Keys:       keysFor(keyID, MaxKeysPerRequest),
		KeySession: true,
	})
	require.NoError(t, err)
	require.NotEmpty(t, sessionID)

	// still pending: the session resolves through the invite
	require.NoError(t, f.svc.Keys.InsertUserKeysViaSession(f.ctx, owner, sessionID, keysFor(keyID, 1)))

	require.NoError(t, f.svc.Invites.AcceptInvite(f.ctx, app, groupID, "u2"))

	// accepted: the session moved to the member row
	require.NoError(t, f.svc.Keys.InsertUserKeysViaSession(f.ctx, owner, sessionID, keysFor(keyID, 1)))

	err = f.svc.Keys.InsertUserKeysViaSession(f.ctx, owner, "nope", keysFor(keyID, 1))
	assert.ErrorIs(t, err, apperr.ErrKeySessionNotFound)

	err = f.svc.Keys.InsertUserKeys(f.ctx, owner, "u2", keysFor("not-a-key", 1))
	assert.ErrorIs(t, err, apperr.ErrKeyNotFound)

	err = f.svc.Keys.InsertUserKeys(f.ctx, owner, "u9", keysFor(keyID, 1))
	assert.ErrorIs(t, err, apperr.ErrMemberNotFound)
}

func TestFetchKeyNotFound(t *testing.T) {
	f := newFixture(t)
	groupID := f.createGroup("u1")

	_, err := f.svc.Keys.FetchKey(f.ctx, f.access(groupID, "u1"), "missing")
	assert.ErrorIs(t, err, apperr.ErrKeyNotFound)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}
