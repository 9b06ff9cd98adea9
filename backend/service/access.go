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
	"github.com/efchatnet/efgroup/backend/cache"
	"github.com/efchatnet/efgroup/backend/hierarchy"
	"github.com/efchatnet/efgroup/backend/models"
	"github.com/efchatnet/efgroup/backend/policy"
	"github.com/efchatnet/efgroup/backend/storage"
)

// Access answers "may this principal use this group, with which rank" on every
// request.
type Access struct {
	*base
}

// Resolve returns the access of userID to groupID, acting through asGroupID when it
// is set. A group the principal can not reach is ErrGroupAccess whether it exists
// or not.
func (a *Access) Resolve(ctx context.Context, appID, groupID, userID, asGroupID string) (*models.GroupAccess, error) {
	if asGroupID != "" {
		if asGroupID == groupID {
			return nil, apperr.ErrGroupAccess
		}
		if _, err := a.Resolve(ctx, appID, asGroupID, userID, ""); err != nil {
			return nil, err
		}
	}

	principal := userID
	if asGroupID != "" {
		principal = asGroupID
	}
	key := cache.Key(appID, groupID, principal)

	cached, ok, err := a.cache.Get(ctx, key)
	if err != nil {
		a.log.Warn().Err(err).Str("key", key).Msg("membership cache lookup failed")
	}
	if ok {
		a.metrics.CacheHit()
		access := *cached
		access.UserID = userID
		return &access, nil
	}
	a.metrics.CacheMiss()

	access, err := a.resolve(ctx, appID, groupID, principal)
	if err != nil {
		return nil, err
	}
	access.UserID = userID
	access.AsGroupID = asGroupID

	if err := a.cache.Set(ctx, key, access); err != nil {
		a.log.Warn().Err(err).Str("key", key).Msg("failed to cache membership")
	}
	return access, nil
}

func (a *Access) resolve(ctx context.Context, appID, groupID, principal string) (*models.GroupAccess, error) {
	group, err := a.group(ctx, a.store, appID, groupID)
	if err != nil {
		return nil, err
	}

	member, err := a.store.GetMember(ctx, groupID, principal)
	if err == nil {
		return &models.GroupAccess{
			AppID:    appID,
			GroupID:  groupID,
			MemberID: principal,
			Rank:     member.Rank,
			JoinedAt: member.JoinedAt,
			Via:      models.AccessDirect,
		}, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.Internal(err)
	}

	ancestor, err := a.hierarchy.AncestorMembership(ctx, appID, groupID, principal)
	if errors.Is(err, hierarchy.ErrNoAncestor) {
		return nil, apperr.ErrGroupAccess
	}
	if err != nil {
		return nil, wrapInternal(err)
	}

	// the direct parent's placeholder row holds the keys of this group
	return &models.GroupAccess{
		AppID:      appID,
		GroupID:    groupID,
		MemberID:   group.ParentGroupID,
		Rank:       ancestor.Rank,
		JoinedAt:   ancestor.JoinedAt,
		Via:        models.AccessParent,
		ViaGroupID: ancestor.GroupID,
	}, nil
}

// IsMember reports whether userID reaches groupID directly or through a parent.
func (a *Access) IsMember(ctx context.Context, appID, groupID, userID string) (bool, error) {
	_, err := a.Resolve(ctx, appID, groupID, userID, "")
	if errors.Is(err, apperr.ErrGroupAccess) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ResolveActor returns the principal a user acts as. Acting for a group needs an
// admin rank in that group.
func (a *Access) ResolveActor(ctx context.Context, appID, userID, asGroupID string) (string, error) {
	if asGroupID == "" {
		return userID, nil
	}
	access, err := a.Resolve(ctx, appID, asGroupID, userID, "")
	if err != nil {
		return "", err
	}
	if err := policy.CheckRank(access.Rank, policy.RankActAsGroup); err != nil {
		return "", err
	}
	return asGroupID, nil
}
