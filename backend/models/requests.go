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

package models

import (
	"time"
)

// RequestType tags a pending invite-or-join row.
type RequestType int

const (
	RequestInvite RequestType = iota
	RequestJoin
)

func (t RequestType) String() string {
	if t == RequestJoin {
		return "join"
	}
	return "invite"
}

// TargetType says whether the invited or joining principal is a user or a group.
type TargetType int

const (
	TargetNormal TargetType = iota
	TargetGroup
)

// MemberType is the GroupUser member type the request turns into on accept.
func (t TargetType) MemberType() MemberType {
	if t == TargetGroup {
		return MemberTypeGroupAsMember
	}
	return MemberTypeNormalUser
}

type GroupRequest struct {
	GroupID            string      `json:"group_id" db:"group_id"`
	UserID             string      `json:"user_id" db:"user_id"`
	Type               RequestType `json:"type" db:"type"`
	TargetType         TargetType  `json:"target_type" db:"target_type"`
	Rank               int         `json:"rank" db:"rank"`
	KeyUploadSessionID string      `json:"-" db:"key_upload_session_id"`
	CreatedAt          time.Time   `json:"created_at" db:"created_at"`
}

// Member builds the GroupUser row an accepted request becomes.
func (r *GroupRequest) Member(joinedAt time.Time) GroupMember {
	return GroupMember{
		GroupID:            r.GroupID,
		UserID:             r.UserID,
		Rank:               r.Rank,
		MemberType:         r.TargetType.MemberType(),
		JoinedAt:           joinedAt,
		KeyUploadSessionID: r.KeyUploadSessionID,
	}
}

// InviteInput is the body of an invite. Rank 0 means the default member rank.
type InviteInput struct {
	TargetType TargetType     `json:"target_type" validate:"oneof=0 1"`
	Rank       int            `json:"rank"`
	Keys       []UserKeyInput `json:"keys" validate:"dive"`
	KeySession bool           `json:"key_session"`
	Auto       bool           `json:"auto"`
}

type AcceptJoinInput struct {
	Keys       []UserKeyInput `json:"keys" validate:"dive"`
	KeySession bool           `json:"key_session"`
}

// KeySessionResult carries the session id for uploading the rest of the key copies.
type KeySessionResult struct {
	SessionID string `json:"session_id,omitempty"`
}
