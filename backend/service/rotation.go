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
	"fmt"

	"github.com/efchatnet/efgroup/backend/apperr"
	"github.com/efchatnet/efgroup/backend/models"
	"github.com/efchatnet/efgroup/backend/policy"
	"github.com/efchatnet/efgroup/backend/storage"
)

// KeyRotationCoordinator replaces the group key. The invoker uploads the new key
// for itself and wrapped by an ephemeral key; every other member gets a task to
// unwrap it with the previous key and upload its own copy.
type KeyRotationCoordinator struct {
	*base
	policy policy.Provider
}

func (s *KeyRotationCoordinator) StartRotation(ctx context.Context, access *models.GroupAccess, in models.RotationInput) (string, error) {
	pol, err := s.policy.AppPolicy(ctx, access.AppID)
	if err != nil {
		return "", apperr.Internal(err)
	}
	if err := policy.CheckRank(access.Rank, pol.MinRankKeyRotation); err != nil {
		return "", err
	}

	now := s.now()
	keyID := s.newID()
	var tasks int64

	err = s.tx(ctx, func(q storage.Querier) error {
		// Serializes rotations of the group: the quota count and the newest key
		// are read under the row lock.
		if err := q.LockGroup(ctx, access.AppID, access.GroupID); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return apperr.ErrGroupAccess
			}
			return err
		}
		count, err := q.CountActions(ctx, access.AppID, access.GroupID, storage.ActionKeyRotation, now)
		if err != nil {
			return err
		}
		if count >= pol.MaxKeyRotationMonth {
			return apperr.ErrRotationQuota.Wrap(fmt.Errorf("%d rotations this month", count))
		}
		if _, err := q.GetGroupKey(ctx, access.GroupID, in.PreviousGroupKeyID); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return apperr.ErrPreviousKeyNotFound
			}
			return err
		}
		latest, err := q.LatestGroupKey(ctx, access.GroupID)
		if err != nil {
			return err
		}
		if latest.KeyID != in.PreviousGroupKeyID {
			return apperr.ErrStaleRotationKey.Wrap(fmt.Errorf("newest key is %s", latest.KeyID))
		}

		err = q.InsertGroupKey(ctx, models.GroupKey{
			KeyID:                        keyID,
			GroupID:                      access.GroupID,
			AppID:                        access.AppID,
			EncryptedPrivateKey:          in.EncryptedPrivateGroupKey,
			PublicKey:                    in.PublicGroupKey,
			KeypairEncryptAlg:            in.KeypairEncryptAlg,
			GroupKeyAlg:                  in.GroupKeyAlg,
			PreviousGroupKeyID:           in.PreviousGroupKeyID,
			EncryptedEphemeralKey:        in.EncryptedEphemeralKey,
			EncryptedGroupKeyByEphemeral: in.EncryptedGroupKeyByEphemeral,
			EphemeralAlg:                 in.EphemeralAlg,
			SignedByUserID:               in.SignedByUserID,
			SignedByUserSignKeyID:        in.SignedByUserSignKeyID,
			CreatedAt:                    now,
		})
		if err != nil {
			return err
		}
		err = q.UpsertUserKeys(ctx, []models.GroupUserKey{{
			GroupID:           access.GroupID,
			UserID:            access.MemberID,
			KeyID:             keyID,
			EncryptedGroupKey: in.EncryptedGroupKeyByUser,
			EncryptedAlg:      in.EncryptedGroupKeyAlg,
			EncryptedKeyID:    in.InvokerPublicKeyID,
			CreatedAt:         now,
		}})
		if err != nil {
			return err
		}
		tasks, err = q.InsertRotationTasks(ctx, access.GroupID, keyID, access.MemberID, now)
		if err != nil {
			return err
		}
		return q.InsertAction(ctx, access.AppID, access.GroupID, storage.ActionKeyRotation, now)
	})
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrRotationQuota):
			s.metrics.Rotation("quota_exceeded")
		case errors.Is(err, apperr.ErrStaleRotationKey):
			s.metrics.Rotation("stale_key")
		}
		return "", err
	}

	s.metrics.Rotation("started")
	s.log.Debug().Str("group_id", access.GroupID).Str("key_id", keyID).Int64("tasks", tasks).Msg("key rotation started")
	return keyID, nil
}

// PendingRotations lists the rotations the row holder has not finished, oldest
// first so that each key can be unwrapped with the one before it.
func (s *KeyRotationCoordinator) PendingRotations(ctx context.Context, access *models.GroupAccess) ([]models.RotationItem, error) {
	items, err := s.store.ListRotationTasks(ctx, access.GroupID, access.MemberID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return items, nil
}

// CompleteRotation stores the row holder's copy of keyID. Repeating a finished
// rotation succeeds.
func (s *KeyRotationCoordinator) CompleteRotation(ctx context.Context, access *models.GroupAccess, keyID string, in models.CompleteRotationInput) error {
	err := s.tx(ctx, func(q storage.Querier) error {
		done, err := q.DeleteRotationTask(ctx, access.GroupID, access.MemberID, keyID)
		if err != nil {
			return err
		}
		if !done {
			_, err := q.GetOwnKey(ctx, access.GroupID, access.MemberID, keyID)
			if errors.Is(err, storage.ErrNotFound) {
				return apperr.ErrRotationTaskMissing
			}
			return err
		}
		return upsertKeys(ctx, q, []models.GroupUserKey{{
			GroupID:           access.GroupID,
			UserID:            access.MemberID,
			KeyID:             keyID,
			EncryptedGroupKey: in.EncryptedGroupKey,
			EncryptedAlg:      in.EncryptedAlg,
			EncryptedKeyID:    in.EncryptedKeyID,
			CreatedAt:         s.now(),
		}})
	})
	if err != nil {
		return err
	}

	s.metrics.Rotation("completed")
	s.log.Debug().Str("group_id", access.GroupID).Str("key_id", keyID).Str("member", access.MemberID).Msg("key rotation completed")
	return nil
}
