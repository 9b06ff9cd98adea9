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

type MembershipService struct {
	*base
	hook LifecycleHook
}

func (s *MembershipService) ListMembers(ctx context.Context, access *models.GroupAccess, cursor models.Cursor) ([]models.GroupMember, error) {
	members, err := s.store.ListMembers(ctx, access.GroupID, access.MemberID, cursor, models.PageSize)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return members, nil
}

func (s *MembershipService) Children(ctx context.Context, access *models.GroupAccess, cursor models.Cursor) ([]models.GroupChild, error) {
	children, err := s.hierarchy.FirstLevelChildren(ctx, access.AppID, access.GroupID, cursor)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return children, nil
}

func (s *MembershipService) ListGroupsForUser(ctx context.Context, appID, principal string, cursor models.Cursor) ([]models.UserGroup, error) {
	groups, err := s.store.ListGroupsForMember(ctx, appID, principal, cursor, models.PageSize)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return groups, nil
}

// member loads a direct row of the group or fails with ErrMemberNotFound.
func member(ctx context.Context, q storage.Querier, groupID, userID string) (*models.GroupMember, error) {
	m, err := q.GetMember(ctx, groupID, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.ErrMemberNotFound
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (s *MembershipService) ChangeRank(ctx context.Context, access *models.GroupAccess, targetID string, newRank int) error {
	if err := policy.CheckRank(access.Rank, policy.RankChangeRank); err != nil {
		return err
	}
	if err := policy.ValidateNewRank(access.Rank, newRank); err != nil {
		return err
	}

	err := s.tx(ctx, func(q storage.Querier) error {
		target, err := member(ctx, q, access.GroupID, targetID)
		if err != nil {
			return err
		}
		if target.Rank == models.RankCreator {
			return apperr.ErrCreatorImmutable
		}
		return q.UpdateMemberRank(ctx, access.GroupID, targetID, newRank)
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx, access.AppID, access.GroupID, targetID)
	s.metrics.Transition("change_rank")
	s.log.Debug().Str("group_id", access.GroupID).Str("target", targetID).Int("rank", newRank).Msg("rank changed")
	return nil
}

func (s *MembershipService) Kick(ctx context.Context, access *models.GroupAccess, targetID string) error {
	if err := policy.CheckRank(access.Rank, policy.RankKick); err != nil {
		return err
	}

	err := s.tx(ctx, func(q storage.Querier) error {
		target, err := member(ctx, q, access.GroupID, targetID)
		if err != nil {
			return err
		}
		if target.Rank == models.RankCreator {
			return apperr.ErrCreatorImmutable
		}
		if target.Rank < access.Rank {
			return policy.CheckRank(access.Rank, target.Rank)
		}
		return removeMember(ctx, q, access.GroupID, targetID, target.MemberType)
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx, access.AppID, access.GroupID, targetID)
	s.metrics.Transition("kick")
	s.log.Debug().Str("group_id", access.GroupID).Str("target", targetID).Msg("member kicked")
	return nil
}

// removeMember drops the row together with the key copies and open rotation tasks
// that belong to it.
func removeMember(ctx context.Context, q storage.Querier, groupID, userID string, memberType models.MemberType) error {
	ok, err := q.DeleteMember(ctx, groupID, userID, memberType)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.ErrMemberNotFound
	}
	if err := q.DeleteUserKeys(ctx, groupID, userID); err != nil {
		return err
	}
	return q.DeleteRotationTasks(ctx, groupID, userID)
}

// Leave removes the caller's own row. Acting through a group removes the group's
// row and needs an admin rank in that group.
func (s *MembershipService) Leave(ctx context.Context, access *models.GroupAccess) error {
	if !access.Direct() {
		return apperr.ErrLeaveInherited
	}

	memberType := models.MemberTypeNormalUser
	if access.AsGroupID != "" {
		if _, err := s.access.ResolveActor(ctx, access.AppID, access.UserID, access.AsGroupID); err != nil {
			return err
		}
		memberType = models.MemberTypeGroupAsMember
	}

	err := s.tx(ctx, func(q storage.Querier) error {
		self, err := member(ctx, q, access.GroupID, access.MemberID)
		if err != nil {
			return err
		}
		if self.Rank <= models.RankAdmin {
			admins, err := q.CountAdmins(ctx, access.GroupID, access.MemberID)
			if err != nil {
				return err
			}
			if admins == 0 {
				return apperr.ErrOnlyOneAdmin
			}
		}
		if self.Rank == models.RankCreator {
			return apperr.ErrCreatorImmutable
		}
		return removeMember(ctx, q, access.GroupID, access.MemberID, memberType)
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx, access.AppID, access.GroupID, access.MemberID)
	s.metrics.Transition("leave")
	s.log.Debug().Str("group_id", access.GroupID).Str("member", access.MemberID).Msg("member left")
	return nil
}

// DeleteGroup removes the group with its whole subtree and every connected group a
// removed group created, with their subtrees. A group never outlives its creator.
func (s *MembershipService) DeleteGroup(ctx context.Context, access *models.GroupAccess) error {
	if err := policy.CheckRank(access.Rank, policy.RankDeleteGroup); err != nil {
		return err
	}

	ids, err := s.deleteSet(ctx, access.AppID, access.GroupID)
	if err != nil {
		return wrapInternal(err)
	}
	// Members of the ancestors may hold cached parent access to the subtree.
	ancestors, err := s.hierarchy.AncestorIDs(ctx, access.AppID, access.GroupID)
	if err != nil {
		return wrapInternal(err)
	}

	holders := make([]string, 0, len(ids)+len(ancestors))
	holders = append(append(holders, ids...), ancestors...)

	var principals []string
	err = s.tx(ctx, func(q storage.Querier) error {
		memberIDs, err := q.ListMemberIDs(ctx, holders)
		if err != nil {
			return err
		}
		principals = memberIDs
		return q.DeleteGroups(ctx, access.AppID, ids)
	})
	if err != nil {
		return err
	}

	if err := s.hook.GroupsDeleted(ctx, access.AppID, ids); err != nil {
		s.log.Error().Err(err).Strs("group_ids", ids).Msg("lifecycle hook failed")
	}
	s.invalidateAll(ctx, access.AppID, ids, principals)
	s.metrics.Transition("delete_group")
	s.log.Debug().Str("group_id", access.GroupID).Int("groups", len(ids)).Msg("group deleted")
	return nil
}

// deleteSet is the subtree of root plus, transitively, the groups created by a group
// in the set and their subtrees.
func (s *MembershipService) deleteSet(ctx context.Context, appID, root string) ([]string, error) {
	ids, err := s.hierarchy.DescendantIDs(ctx, appID, root)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		seen[id] = true
	}

	frontier := ids
	for len(frontier) > 0 {
		created, err := s.store.CreatedGroupIDs(ctx, appID, frontier)
		if err != nil {
			return nil, err
		}
		frontier = nil
		for _, id := range created {
			if seen[id] {
				continue
			}
			subtree, err := s.hierarchy.DescendantIDs(ctx, appID, id)
			if err != nil {
				return nil, err
			}
			for _, sub := range subtree {
				if !seen[sub] {
					seen[sub] = true
					ids = append(ids, sub)
					frontier = append(frontier, sub)
				}
			}
		}
	}
	return ids, nil
}

func (s *MembershipService) SetInviteEnabled(ctx context.Context, access *models.GroupAccess, enabled bool) error {
	if err := policy.CheckRank(access.Rank, policy.RankChangeInvites); err != nil {
		return err
	}
	if err := s.store.SetInviteEnabled(ctx, access.AppID, access.GroupID, enabled); err != nil {
		return apperr.Internal(err)
	}
	s.log.Debug().Str("group_id", access.GroupID).Bool("enabled", enabled).Msg("invites toggled")
	return nil
}
