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

// AccessVia says how a principal reaches a group.
type AccessVia int

const (
	AccessDirect AccessVia = iota
	AccessParent
)

// GroupAccess is the resolved membership of one principal in one group. It is what
// the membership cache stores under {app}:{group}:{principal}.
type GroupAccess struct {
	AppID   string `json:"app_id"`
	GroupID string `json:"group_id"`
	// UserID is the authenticated user behind the request.
	UserID string `json:"user_id"`
	// AsGroupID is set when the user acts through a group it belongs to.
	AsGroupID string `json:"as_group_id,omitempty"`
	// MemberID holds the GroupUser row that grants the access: the user, the
	// AsGroupID, or for Via == AccessParent the group's direct parent.
	MemberID   string    `json:"member_id"`
	Rank       int       `json:"rank"`
	JoinedAt   time.Time `json:"joined_at"`
	Via        AccessVia `json:"via"`
	ViaGroupID string    `json:"via_group_id,omitempty"`
}

// Direct reports whether the principal holds its own row in the group.
func (a *GroupAccess) Direct() bool {
	return a.Via == AccessDirect
}

// Principal is the id acting in the group: the user, or the group it acts through.
func (a *GroupAccess) Principal() string {
	if a.AsGroupID != "" {
		return a.AsGroupID
	}
	return a.UserID
}
