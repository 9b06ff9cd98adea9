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
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/efchatnet/efgroup/backend/cache"
	"github.com/efchatnet/efgroup/backend/models"
	"github.com/efchatnet/efgroup/backend/policy"
	"github.com/efchatnet/efgroup/backend/storage/memory"
)

const app = "app1"

type fixture struct {
	t     require.TestingT
	ctx   context.Context
	store *memory.Store
	svc   *Services
	clock time.Time
	ids   int
}

type option func(*Deps)

func withPolicy(p policy.AppPolicy) option {
	return func(d *Deps) {
		d.Policy = policy.NewStaticProvider(policy.DefaultAppPolicy, map[string]policy.AppPolicy{app: p})
	}
}

func withHook(h LifecycleHook) option {
	return func(d *Deps) { d.Hook = h }
}

func withCache(c cache.MembershipCache) option {
	return func(d *Deps) { d.Cache = c }
}

func newFixture(t require.TestingT, opts ...option) *fixture {
	f := &fixture{
		t:     t,
		ctx:   context.Background(),
		store: memory.NewStore(),
		clock: time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC),
	}
	d := Deps{
		Store:  f.store,
		Cache:  cache.NewLocalCache(100, time.Minute),
		Logger: zerolog.Nop(),
		// every call moves the clock so that list order is stable
		Now: func() time.Time {
			f.clock = f.clock.Add(time.Second)
			return f.clock
		},
		NewID: func() string {
			f.ids++
			return fmt.Sprintf("id-%04d", f.ids)
		},
	}
	for _, opt := range opts {
		opt(&d)
	}
	f.svc = New(d)
	return f
}

func groupInput() models.CreateGroupInput {
	return models.CreateGroupInput{
		GroupKeyAlg:              "AES-GCM-256",
		EncryptedGroupKey:        "enc-group-key",
		EncryptedGroupKeyAlg:     "RSA-OAEP-256",
		CreatorPublicKeyID:       "creator-pk",
		EncryptedPrivateGroupKey: "enc-private",
		PublicGroupKey:           "public",
		KeypairEncryptAlg:        "RSA-OAEP-256",
		EncryptedHmacKey:         "enc-hmac",
		EncryptedHmacAlg:         "HMAC-SHA256",
	}
}

func (f *fixture) createGroup(userID string) string {
	id, err := f.svc.Keys.CreateGroup(f.ctx, app, userID, groupInput())
	require.NoError(f.t, err)
	return id
}

func (f *fixture) access(groupID, userID string) *models.GroupAccess {
	return f.accessAs(groupID, userID, "")
}

func (f *fixture) accessAs(groupID, userID, asGroupID string) *models.GroupAccess {
	a, err := f.svc.Access.Resolve(f.ctx, app, groupID, userID, asGroupID)
	require.NoError(f.t, err)
	return a
}

// latestKey is the newest key of the group as seen by the row holder of access.
func (f *fixture) latestKey(a *models.GroupAccess) string {
	keys, err := f.svc.Keys.FetchOwnKeys(f.ctx, a, models.Cursor{})
	require.NoError(f.t, err)
	require.NotEmpty(f.t, keys)
	return keys[0].KeyID
}

func keysFor(keyID string, n int) []models.UserKeyInput {
	keys := make([]models.UserKeyInput, n)
	for i := range keys {
		keys[i] = models.UserKeyInput{
			KeyID:             keyID,
			EncryptedGroupKey: fmt.Sprintf("copy-%d", i),
			EncryptedAlg:      "RSA-OAEP-256",
			EncryptedKeyID:    "member-pk",
		}
	}
	return keys
}

// addMember invites userID with rank and a copy of the current key, then accepts.
func (f *fixture) addMember(groupID, inviterID, userID string, rank int) {
	inviter := f.access(groupID, inviterID)
	_, err := f.svc.Invites.Invite(f.ctx, inviter, userID, models.InviteInput{
		Rank: rank,
		Keys: keysFor(f.latestKey(inviter), 1),
	})
	require.NoError(f.t, err)
	require.NoError(f.t, f.svc.Invites.AcceptInvite(f.ctx, app, groupID, userID))
}

func rotationInput(previous string) models.RotationInput {
	return models.RotationInput{
		PreviousGroupKeyID:           previous,
		GroupKeyAlg:                  "AES-GCM-256",
		EncryptedPrivateGroupKey:     "enc-private-2",
		PublicGroupKey:               "public-2",
		KeypairEncryptAlg:            "RSA-OAEP-256",
		EncryptedGroupKeyByUser:      "enc-by-invoker",
		EncryptedGroupKeyAlg:         "RSA-OAEP-256",
		InvokerPublicKeyID:           "invoker-pk",
		EncryptedEphemeralKey:        "enc-ephemeral",
		EncryptedGroupKeyByEphemeral: "enc-by-ephemeral",
		EphemeralAlg:                 "AES-GCM-256",
		SignedByUserID:               "u1",
		SignedByUserSignKeyID:        "u1-sign",
	}
}
