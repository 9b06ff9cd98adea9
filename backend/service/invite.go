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

// InviteJoinService moves a (group, principal) pair from no relation to a pending
// invite or join request and from there to a member row or back to nothing.
type InviteJoinService struct {
	*base
}

// pending loads the request of the pair if it has the wanted type.
func pending(ctx context.Context, q storage.Querier, groupID, userID string, reqType models.RequestType) (*models.GroupRequest, error) {
	req, err := q.GetRequest(ctx, groupID, userID)
	if errors.Is(err, storage.ErrNotFound) || (err == nil && req.Type != reqType) {
		if reqType == models.RequestJoin {
			return nil, apperr.ErrJoinNotFound
		}
		return nil, apperr.ErrInviteNotFound
	}
	if err != nil {
		return nil, err
	}
	return req, nil
}

// checkFree fails if the pair already has a member row or a request.
func checkFree(ctx context.Context, q storage.Querier, groupID, userID string) (*models.GroupRequest, error) {
	_, err := q.GetMember(ctx, groupID, userID)
	if err == nil {
		return nil, apperr.ErrAlreadyMember
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}
	req, err := q.GetRequest(ctx, groupID, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return req, nil
}

// checkGroupMember validates a group that becomes a member of group.
func (s *InviteJoinService) checkGroupMember(ctx context.Context, group *models.Group, memberGroupID string) error {
	if memberGroupID == group.GroupID {
		return apperr.ErrInviteSelf
	}
	if !group.IsConnectedGroup {
		return apperr.ErrGroupNotConnected
	}
	memberGroup, err := s.group(ctx, s.store, group.AppID, memberGroupID)
	if err != nil {
		return err
	}
	if memberGroup.IsConnectedGroup {
		return apperr.ErrConnectedNesting
	}
	return nil
}

func checkOpen(group *models.Group) error {
	if group.Type == models.GroupTypeUserPrivate {
		return apperr.ErrPrivateGroup
	}
	if !group.InviteEnabled {
		return apperr.ErrInviteDisabled
	}
	return nil
}

// Invite stages an invite for targetID with the key copies wrapped for it. With
// Auto set the target becomes a member right away. The returned session id is set
// when more key copies are to follow through a key session.
func (s *InviteJoinService) Invite(ctx context.Context, access *models.GroupAccess, targetID string, in models.InviteInput) (string, error) {
	if err := policy.CheckRank(access.Rank, policy.RankInvite); err != nil {
		return "", err
	}
	rank := in.Rank
	if rank == 0 {
		rank = models.RankMember
	}
	if err := policy.ValidateNewRank(access.Rank, rank); err != nil {
		return "", err
	}
	if err := checkKeyCount(in.Keys); err != nil {
		return "", err
	}

	group, err := s.group(ctx, s.store, access.AppID, access.GroupID)
	if err != nil {
		return "", err
	}
	if err := checkOpen(group); err != nil {
		return "", err
	}
	if in.TargetType == models.TargetGroup {
		if err := s.checkGroupMember(ctx, group, targetID); err != nil {
			return "", err
		}
	}

	var sessionID string
	if len(in.Keys) == MaxKeysPerRequest && in.KeySession {
		sessionID = s.newID()
	}
	now := s.now()
	req := models.GroupRequest{
		GroupID:            access.GroupID,
		UserID:             targetID,
		Type:               models.RequestInvite,
		TargetType:         in.TargetType,
		Rank:               rank,
		KeyUploadSessionID: sessionID,
		CreatedAt:          now,
	}

	err = s.tx(ctx, func(q storage.Querier) error {
		existing, err := checkFree(ctx, q, access.GroupID, targetID)
		if err != nil {
			return err
		}
		if existing != nil {
			return apperr.ErrInviteExists
		}

		if in.Auto {
			if _, err := q.InsertMember(ctx, req.Member(now)); err != nil {
				return err
			}
		} else {
			ok, err := q.InsertRequest(ctx, req)
			if err != nil {
				return err
			}
			if !ok {
				return apperr.ErrInviteExists
			}
		}
		return upsertKeys(ctx, q, keyCopies(in.Keys, access.GroupID, targetID, now))
	})
	if err != nil {
		return "", err
	}

	transition := "invite"
	if in.Auto {
		transition = "auto_invite"
		s.invalidate(ctx, access.AppID, access.GroupID, targetID)
	}
	s.metrics.Transition(transition)
	s.log.Debug().Str("group_id", access.GroupID).Str("target", targetID).Bool("auto", in.Auto).Msg("invite sent")
	return sessionID, nil
}

// AcceptInvite turns the pending invite of principal into a member row.
func (s *InviteJoinService) AcceptInvite(ctx context.Context, appID, groupID, principal string) error {
	if _, err := s.group(ctx, s.store, appID, groupID); err != nil {
		return err
	}

	err := s.tx(ctx, func(q storage.Querier) error {
		req, err := pending(ctx, q, groupID, principal, models.RequestInvite)
		if err != nil {
			return err
		}
		if _, err := q.DeleteRequest(ctx, groupID, principal, models.RequestInvite); err != nil {
			return err
		}
		ok, err := q.InsertMember(ctx, req.Member(s.now()))
		if err != nil {
			return err
		}
		if !ok {
			return apperr.ErrAlreadyMember
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx, appID, groupID, principal)
	s.metrics.Transition("accept_invite")
	s.log.Debug().Str("group_id", groupID).Str("member", principal).Msg("invite accepted")
	return nil
}

// RejectInvite drops the invite and the key copies staged with it.
func (s *InviteJoinService) RejectInvite(ctx context.Context, appID, groupID, principal string) error {
	if _, err := s.group(ctx, s.store, appID, groupID); err != nil {
		return err
	}

	err := s.tx(ctx, func(q storage.Querier) error {
		if _, err := pending(ctx, q, groupID, principal, models.RequestInvite); err != nil {
			return err
		}
		if _, err := q.DeleteRequest(ctx, groupID, principal, models.RequestInvite); err != nil {
			return err
		}
		return q.DeleteUserKeys(ctx, groupID, principal)
	})
	if err != nil {
		return err
	}

	s.metrics.Transition("reject_invite")
	s.log.Debug().Str("group_id", groupID).Str("target", principal).Msg("invite rejected")
	return nil
}

// Join asks to become a member. Asking twice is not an error.
func (s *InviteJoinService) Join(ctx context.Context, appID, groupID, principal string, targetType models.TargetType) error {
	group, err := s.group(ctx, s.store, appID, groupID)
	if err != nil {
		return err
	}
	if err := checkOpen(group); err != nil {
		return err
	}
	if targetType == models.TargetGroup {
		if err := s.checkGroupMember(ctx, group, principal); err != nil {
			return err
		}
	}

	err = s.tx(ctx, func(q storage.Querier) error {
		existing, err := checkFree(ctx, q, groupID, principal)
		if err != nil {
			return err
		}
		if existing != nil {
			if existing.Type == models.RequestJoin {
				return nil
			}
			return apperr.ErrInviteExists
		}
		_, err = q.InsertRequest(ctx, models.GroupRequest{
			GroupID:    groupID,
			UserID:     principal,
			Type:       models.RequestJoin,
			TargetType: targetType,
			Rank:       models.RankMember,
			CreatedAt:  s.now(),
		})
		return err
	})
	if err != nil {
		return err
	}

	s.metrics.Transition("join")
	s.log.Debug().Str("group_id", groupID).Str("requester", principal).Msg("join requested")
	return nil
}

// AcceptJoin makes the requester a member with the key copies the admin wrapped for
// it.
func (s *InviteJoinService) AcceptJoin(ctx context.Context, access *models.GroupAccess, targetID string, in models.AcceptJoinInput) (string, error) {
	if err := policy.CheckRank(access.Rank, policy.RankAcceptJoin); err != nil {
		return "", err
	}
	if err := checkKeyCount(in.Keys); err != nil {
		return "", err
	}

	var sessionID string
	if len(in.Keys) == MaxKeysPerRequest && in.KeySession {
		sessionID = s.newID()
	}
	now := s.now()

	err := s.tx(ctx, func(q storage.Querier) error {
		req, err := pending(ctx, q, access.GroupID, targetID, models.RequestJoin)
		if err != nil {
			return err
		}
		if _, err := q.DeleteRequest(ctx, access.GroupID, targetID, models.RequestJoin); err != nil {
			return err
		}
		m := req.Member(now)
		m.KeyUploadSessionID = sessionID
		ok, err := q.InsertMember(ctx, m)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.ErrAlreadyMember
		}
		return upsertKeys(ctx, q, keyCopies(in.Keys, access.GroupID, targetID, now))
	})
	if err != nil {
		return "", err
	}

	s.invalidate(ctx, access.AppID, access.GroupID, targetID)
	s.metrics.Transition("accept_join")
	s.log.Debug().Str("group_id", access.GroupID).Str("member", targetID).Msg("join accepted")
	return sessionID, nil
}

func (s *InviteJoinService) RejectJoin(ctx context.Context, access *models.GroupAccess, targetID string) error {
	if err := policy.CheckRank(access.Rank, policy.RankAcceptJoin); err != nil {
		return err
	}
	if err := s.deleteRequest(ctx, access.GroupID, targetID, models.RequestJoin); err != nil {
		return err
	}
	s.metrics.Transition("reject_join")
	s.log.Debug().Str("group_id", access.GroupID).Str("target", targetID).Msg("join rejected")
	return nil
}

// DeleteSentJoin withdraws a join request of principal.
func (s *InviteJoinService) DeleteSentJoin(ctx context.Context, appID, groupID, principal string) error {
	if _, err := s.group(ctx, s.store, appID, groupID); err != nil {
		return err
	}
	if err := s.deleteRequest(ctx, groupID, principal, models.RequestJoin); err != nil {
		return err
	}
	s.metrics.Transition("withdraw_join")
	return nil
}

func (s *InviteJoinService) deleteRequest(ctx context.Context, groupID, userID string, reqType models.RequestType) error {
	ok, err := s.store.DeleteRequest(ctx, groupID, userID, reqType)
	if err != nil {
		return apperr.Internal(err)
	}
	if !ok {
		if reqType == models.RequestJoin {
			return apperr.ErrJoinNotFound
		}
		return apperr.ErrInviteNotFound
	}
	return nil
}

func (s *InviteJoinService) ListInvites(ctx context.Context, appID, principal string, cursor models.Cursor) ([]models.GroupRequest, error) {
	return s.listForMember(ctx, appID, principal, models.RequestInvite, cursor)
}

func (s *InviteJoinService) ListSentJoins(ctx context.Context, appID, principal string, cursor models.Cursor) ([]models.GroupRequest, error) {
	return s.listForMember(ctx, appID, principal, models.RequestJoin, cursor)
}

func (s *InviteJoinService) listForMember(ctx context.Context, appID, principal string, reqType models.RequestType, cursor models.Cursor) ([]models.GroupRequest, error) {
	reqs, err := s.store.ListRequestsForMember(ctx, appID, principal, reqType, cursor, models.RequestPageSize)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return reqs, nil
}

func (s *InviteJoinService) ListJoinRequests(ctx context.Context, access *models.GroupAccess, cursor models.Cursor) ([]models.GroupRequest, error) {
	if err := policy.CheckRank(access.Rank, policy.RankAcceptJoin); err != nil {
		return nil, err
	}
	reqs, err := s.store.ListRequestsForGroup(ctx, access.GroupID, models.RequestJoin, cursor, models.RequestPageSize)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return reqs, nil
}
