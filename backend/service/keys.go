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
	"errors"

	"github.com/efchatnet/efgroup/backend/apperr"
	"github.com/efchatnet/efgroup/backend/models"
	"github.com/efchatnet/efgroup/backend/policy"
	"github.com/efchatnet/efgroup/backend/storage"
)

// KeyDistributionService stores group keys and the per member copies of them. The
// key material is opaque; it is only stored and handed back.
type KeyDistributionService struct {
	*base
}

type newGroup struct {
	appID      string
	parentID   string
	creatorID  string
	memberType models.MemberType
	connected  bool
}

// CreateGroup creates a top level group owned by creatorID.
func (s *KeyDistributionService) CreateGroup(ctx context.Context, appID, creatorID string, in models.CreateGroupInput) (string, error) {
	return s.create(ctx, newGroup{
		appID:      appID,
		creatorID:  creatorID,
		memberType: models.MemberTypeNormalUser,
	}, in)
}

// CreateChildGroup creates a group below access.GroupID. The parent group is its
// creator and inherits the connected flag.
func (s *KeyDistributionService) CreateChildGroup(ctx context.Context, access *models.GroupAccess, in models.CreateGroupInput) (string, error) {
	if err := policy.CheckRank(access.Rank, policy.RankCreateChild); err != nil {
		return "", err
	}
	parent, err := s.group(ctx, s.store, access.AppID, access.GroupID)
	if err != nil {
		return "", err
	}
	return s.create(ctx, newGroup{
		appID:      access.AppID,
		parentID:   parent.GroupID,
		creatorID:  parent.GroupID,
		memberType: models.MemberTypeGroupAsMember,
		connected:  parent.IsConnectedGroup,
	}, in)
}

// CreateConnectedGroup creates a connected group whose creator is access.GroupID.
func (s *KeyDistributionService) CreateConnectedGroup(ctx context.Context, access *models.GroupAccess, in models.CreateGroupInput) (string, error) {
	if err := policy.CheckRank(access.Rank, policy.RankCreateChild); err != nil {
		return "", err
	}
	group, err := s.group(ctx, s.store, access.AppID, access.GroupID)
	if err != nil {
		return "", err
	}
	if group.IsConnectedGroup {
		return "", apperr.ErrConnectedNesting
	}
	return s.create(ctx, newGroup{
		appID:      access.AppID,
		creatorID:  group.GroupID,
		memberType: models.MemberTypeGroupAsMember,
		connected:  true,
	}, in)
}

func (s *KeyDistributionService) create(ctx context.Context, g newGroup, in models.CreateGroupInput) (string, error) {
	now := s.now()
	groupID, keyID, hmacID := s.newID(), s.newID(), s.newID()

	err := s.tx(ctx, func(q storage.Querier) error {
		err := q.InsertGroup(ctx, models.Group{
			GroupID:          groupID,
			AppID:            g.appID,
			ParentGroupID:    g.parentID,
			Type:             models.GroupTypeNormal,
			IsConnectedGroup: g.connected,
			InviteEnabled:    true,
			CreatedAt:        now,
		})
		if err != nil {
			return err
		}
		err = q.InsertGroupKey(ctx, models.GroupKey{
			KeyID:                 keyID,
			GroupID:               groupID,
			AppID:                 g.appID,
			EncryptedPrivateKey:   in.EncryptedPrivateGroupKey,
			PublicKey:             in.PublicGroupKey,
			KeypairEncryptAlg:     in.KeypairEncryptAlg,
			GroupKeyAlg:           in.GroupKeyAlg,
			SignedByUserID:        in.SignedByUserID,
			SignedByUserSignKeyID: in.SignedByUserSignKeyID,
			CreatedAt:             now,
		})
		if err != nil {
			return err
		}
		err = q.InsertHmacKey(ctx, models.GroupHmacKey{
			KeyID:                 hmacID,
			GroupID:               groupID,
			AppID:                 g.appID,
			EncryptedHmacKey:      in.EncryptedHmacKey,
			EncryptedHmacAlg:      in.EncryptedHmacAlg,
			EncryptedHmacKeyKeyID: keyID,
			CreatedAt:             now,
		})
		if err != nil {
			return err
		}
		_, err = q.InsertMember(ctx, models.GroupMember{
			GroupID:    groupID,
			UserID:     g.creatorID,
			Rank:       models.RankCreator,
			MemberType: g.memberType,
			JoinedAt:   now,
		})
		if err != nil {
			return err
		}
		return q.UpsertUserKeys(ctx, []models.GroupUserKey{{
			GroupID:           groupID,
			UserID:            g.creatorID,
			KeyID:             keyID,
			EncryptedGroupKey: in.EncryptedGroupKey,
			EncryptedAlg:      in.EncryptedGroupKeyAlg,
			EncryptedKeyID:    in.CreatorPublicKeyID,
			CreatedAt:         now,
		}})
	})
	if err != nil {
		return "", err
	}

	s.metrics.Transition("create_group")
	s.log.Debug().Str("group_id", groupID).Str("parent", g.parentID).Bool("connected", g.connected).Msg("group created")
	return groupID, nil
}

// InsertUserKeys uploads key copies for an existing member.
func (s *KeyDistributionService) InsertUserKeys(ctx context.Context, access *models.GroupAccess, targetID string, keys []models.UserKeyInput) error {
	if err := policy.CheckRank(access.Rank, policy.RankUploadKeys); err != nil {
		return err
	}
	if err := checkKeyCount(keys); err != nil {
		return err
	}
	return s.tx(ctx, func(q storage.Querier) error {
		if _, err := member(ctx, q, access.GroupID, targetID); err != nil {
			return err
		}
		return upsertKeys(ctx, q, keyCopies(keys, access.GroupID, targetID, s.now()))
	})
}

// InsertUserKeysViaSession uploads the next batch of key copies for the principal
// the session was opened for, either still invited or already a member.
func (s *KeyDistributionService) InsertUserKeysViaSession(ctx context.Context, access *models.GroupAccess, sessionID string, keys []models.UserKeyInput) error {
	if err := policy.CheckRank(access.Rank, policy.RankUploadKeys); err != nil {
		return err
	}
	if err := checkKeyCount(keys); err != nil {
		return err
	}
	return s.tx(ctx, func(q storage.Querier) error {
		targetID, err := sessionTarget(ctx, q, access.GroupID, sessionID)
		if err != nil {
			return err
		}
		return upsertKeys(ctx, q, keyCopies(keys, access.GroupID, targetID, s.now()))
	})
}

func sessionTarget(ctx context.Context, q storage.Querier, groupID, sessionID string) (string, error) {
	if sessionID == "" {
		return "", apperr.ErrKeySessionNotFound
	}
	req, err := q.GetRequestBySession(ctx, groupID, sessionID)
	if err == nil {
		return req.UserID, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return "", err
	}
	m, err := q.GetMemberBySession(ctx, groupID, sessionID)
	if errors.Is(err, storage.ErrNotFound) {
		return "", apperr.ErrKeySessionNotFound
	}
	if err != nil {
		return "", err
	}
	return m.UserID, nil
}

// FetchOwnKeys pages through the row holder's key copies, newest first.
func (s *KeyDistributionService) FetchOwnKeys(ctx context.Context, access *models.GroupAccess, cursor models.Cursor) ([]models.OwnGroupKey, error) {
	keys, err := s.store.ListOwnKeys(ctx, access.GroupID, access.MemberID, cursor, models.PageSize)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return keys, nil
}

func (s *KeyDistributionService) FetchKey(ctx context.Context, access *models.GroupAccess, keyID string) (*models.OwnGroupKey, error) {
	key, err := s.store.GetOwnKey(ctx, access.GroupID, access.MemberID, keyID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.ErrKeyNotFound
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return key, nil
}

func (s *KeyDistributionService) FetchHmacKeys(ctx context.Context, access *models.GroupAccess, cursor models.Cursor) ([]models.GroupHmacKey, error) {
	keys, err := s.store.ListHmacKeys(ctx, access.GroupID, cursor, models.PageSize)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return keys, nil
}

// PublicKey returns the newest public key of a group of the app.
func (s *KeyDistributionService) PublicKey(ctx context.Context, appID, groupID string) (*models.PublicGroupKey, error) {
	if _, err := s.group(ctx, s.store, appID, groupID); err != nil {
		return nil, err
	}
	key, err := s.store.LatestGroupKey(ctx, groupID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.ErrKeyNotFound
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return &models.PublicGroupKey{
		KeyID:             key.KeyID,
		GroupID:           key.GroupID,
		PublicKey:         key.PublicKey,
		KeypairEncryptAlg: key.KeypairEncryptAlg,
		CreatedAt:         key.CreatedAt,
	}, nil
}

// HasPendingKeyUpdate reports whether the row holder still has rotations to finish.
func (s *KeyDistributionService) HasPendingKeyUpdate(ctx context.Context, access *models.GroupAccess) (bool, error) {
	ok, err := s.store.HasRotationTask(ctx, access.GroupID, access.MemberID)
	if err != nil {
		return false, apperr.Internal(err)
	}
	return ok, nil
}

func (s *KeyDistributionService) GroupData(ctx context.Context, access *models.GroupAccess) (*models.GroupData, error) {
	group, err := s.group(ctx, s.store, access.AppID, access.GroupID)
	if err != nil {
		return nil, err
	}
	update, err := s.HasPendingKeyUpdate(ctx, access)
	if err != nil {
		return nil, err
	}
	keys, err := s.FetchOwnKeys(ctx, access, models.Cursor{})
	if err != nil {
		return nil, err
	}
	hmacKeys, err := s.FetchHmacKeys(ctx, access, models.Cursor{})
	if err != nil {
		return nil, err
	}

	return &models.GroupData{
		Group:         *group,
		Rank:          access.Rank,
		JoinedAt:      access.JoinedAt,
		AccessVia:     access.Via,
		AccessGroupID: access.ViaGroupID,
		KeyUpdate:     update,
		Keys:          keys,
		HmacKeys:      hmacKeys,
	}, nil
}
