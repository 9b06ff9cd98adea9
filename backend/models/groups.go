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

type GroupType int

const (
	GroupTypeNormal GroupType = iota
	GroupTypeUserPrivate
)

// Ranks. A lower number is more privilege.
const (
	RankCreator = 0
	RankAdmin   = 1
	RankManager = 2
	RankContent = 3
	RankMember  = 4
)

type MemberType int

const (
	MemberTypeNormalUser MemberType = iota
	// MemberTypeGroupAsMember marks a row whose user_id is a group id: the parent of a
	// child group, the creating group of a connected group or a group that joined one.
	MemberTypeGroupAsMember
)

type Group struct {
	GroupID          string    `json:"group_id" db:"group_id"`
	AppID            string    `json:"app_id" db:"app_id"`
	ParentGroupID    string    `json:"parent_group_id,omitempty" db:"parent_group_id"`
	Type             GroupType `json:"type" db:"type"`
	IsConnectedGroup bool      `json:"is_connected_group" db:"is_connected_group"`
	InviteEnabled    bool      `json:"invite_enabled" db:"invite_enabled"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
}

func (g *Group) HasParent() bool {
	return g.ParentGroupID != ""
}

type GroupMember struct {
	GroupID            string     `json:"group_id" db:"group_id"`
	UserID             string     `json:"user_id" db:"user_id"`
	Rank               int        `json:"rank" db:"rank"`
	MemberType         MemberType `json:"member_type" db:"member_type"`
	JoinedAt           time.Time  `json:"joined_at" db:"joined_at"`
	KeyUploadSessionID string     `json:"-" db:"key_upload_session_id"`
}

// GroupChild is one entry of a first-level children listing.
type GroupChild struct {
	GroupID   string    `json:"group_id"`
	ParentID  string    `json:"parent_id"`
	CreatedAt time.Time `json:"created_at"`
}

// UserGroup is a group the principal is a direct member of.
type UserGroup struct {
	GroupID          string    `json:"group_id"`
	Rank             int       `json:"rank"`
	JoinedAt         time.Time `json:"joined_at"`
	ParentGroupID    string    `json:"parent_group_id,omitempty"`
	IsConnectedGroup bool      `json:"is_connected_group"`
}

// GroupData is what a member receives when it opens a group.
type GroupData struct {
	Group         Group          `json:"group"`
	Rank          int            `json:"rank"`
	JoinedAt      time.Time      `json:"joined_at"`
	AccessVia     AccessVia      `json:"access_via"`
	AccessGroupID string         `json:"access_group_id,omitempty"`
	KeyUpdate     bool           `json:"key_update"`
	Keys          []OwnGroupKey  `json:"keys"`
	HmacKeys      []GroupHmacKey `json:"hmac_keys"`
}
