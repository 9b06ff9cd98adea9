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

package storage

import (
	"context"
	"errors"
	"time"

	"github.com/efchatnet/efgroup/backend/models"
)

var (
	// ErrNotFound is returned for a missing row.
	ErrNotFound = errors.New("storage: not found")
	// ErrUnknownKey is returned when a key copy references a key id the group does not have.
	ErrUnknownKey = errors.New("storage: unknown group key")
)

// Action is an entry type of the group action log.
type Action int

const (
	ActionKeyRotation Action = 1
)

// MonthBucket is the start of the UTC month t falls in.
func MonthBucket(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

type GroupStore interface {
	InsertGroup(ctx context.Context, group models.Group) error
	GetGroup(ctx context.Context, appID, groupID string) (*models.Group, error)
	// ChildIDs returns the direct children of all given parents.
	ChildIDs(ctx context.Context, appID string, parentIDs []string) ([]string, error)
	ListChildren(ctx context.Context, appID, parentID string, cursor models.Cursor, limit int) ([]models.GroupChild, error)
	SetInviteEnabled(ctx context.Context, appID, groupID string, enabled bool) error
	// DeleteGroups removes the groups and every row that belongs to them or names
	// them as a member elsewhere.
	DeleteGroups(ctx context.Context, appID string, groupIDs []string) error
	ListGroupsForMember(ctx context.Context, appID, memberID string, cursor models.Cursor, limit int) ([]models.UserGroup, error)
	// CreatedGroupIDs returns the groups whose rank-0 row is held by one of the
	// given groups: their children and the connected groups they created.
	CreatedGroupIDs(ctx context.Context, appID string, creatorIDs []string) ([]string, error)
	// LockGroup holds the group row until the transaction ends. Outside a
	// transaction it only checks the row.
	LockGroup(ctx context.Context, appID, groupID string) error
}

type MemberStore interface {
	// InsertMember is insert-if-absent; it reports whether a row was written.
	InsertMember(ctx context.Context, member models.GroupMember) (bool, error)
	GetMember(ctx context.Context, groupID, userID string) (*models.GroupMember, error)
	GetMemberBySession(ctx context.Context, groupID, sessionID string) (*models.GroupMember, error)
	UpdateMemberRank(ctx context.Context, groupID, userID string, rank int) error
	// DeleteMember only removes a row of the given member type.
	DeleteMember(ctx context.Context, groupID, userID string, memberType models.MemberType) (bool, error)
	// CountAdmins counts members with rank <= admin other than exceptUserID.
	CountAdmins(ctx context.Context, groupID, exceptUserID string) (int, error)
	ListMembers(ctx context.Context, groupID, exceptUserID string, cursor models.Cursor, limit int) ([]models.GroupMember, error)
	ListMemberIDs(ctx context.Context, groupIDs []string) ([]string, error)
}

type RequestStore interface {
	// InsertRequest is insert-if-absent on (group, user).
	InsertRequest(ctx context.Context, req models.GroupRequest) (bool, error)
	GetRequest(ctx context.Context, groupID, userID string) (*models.GroupRequest, error)
	GetRequestBySession(ctx context.Context, groupID, sessionID string) (*models.GroupRequest, error)
	DeleteRequest(ctx context.Context, groupID, userID string, reqType models.RequestType) (bool, error)
	ListRequestsForGroup(ctx context.Context, groupID string, reqType models.RequestType, cursor models.Cursor, limit int) ([]models.GroupRequest, error)
	ListRequestsForMember(ctx context.Context, appID, userID string, reqType models.RequestType, cursor models.Cursor, limit int) ([]models.GroupRequest, error)
}

type KeyStore interface {
	InsertGroupKey(ctx context.Context, key models.GroupKey) error
	GetGroupKey(ctx context.Context, groupID, keyID string) (*models.GroupKey, error)
	LatestGroupKey(ctx context.Context, groupID string) (*models.GroupKey, error)
	InsertHmacKey(ctx context.Context, key models.GroupHmacKey) error
	ListHmacKeys(ctx context.Context, groupID string, cursor models.Cursor, limit int) ([]models.GroupHmacKey, error)
	// UpsertUserKeys writes key copies, last write wins per (user, key).
	UpsertUserKeys(ctx context.Context, keys []models.GroupUserKey) error
	DeleteUserKeys(ctx context.Context, groupID, userID string) error
	ListOwnKeys(ctx context.Context, groupID, userID string, cursor models.Cursor, limit int) ([]models.OwnGroupKey, error)
	GetOwnKey(ctx context.Context, groupID, userID, keyID string) (*models.OwnGroupKey, error)
}

type RotationStore interface {
	// InsertRotationTasks adds a task for keyID to every member except exceptUserID.
	InsertRotationTasks(ctx context.Context, groupID, keyID, exceptUserID string, at time.Time) (int64, error)
	ListRotationTasks(ctx context.Context, groupID, userID string) ([]models.RotationItem, error)
	DeleteRotationTask(ctx context.Context, groupID, userID, keyID string) (bool, error)
	DeleteRotationTasks(ctx context.Context, groupID, userID string) error
	HasRotationTask(ctx context.Context, groupID, userID string) (bool, error)
}

type ActionLog interface {
	CountActions(ctx context.Context, appID, groupID string, action Action, month time.Time) (int, error)
	InsertAction(ctx context.Context, appID, groupID string, action Action, at time.Time) error
}

// Querier is everything that can run inside or outside a transaction.
type Querier interface {
	GroupStore
	MemberStore
	RequestStore
	KeyStore
	RotationStore
	ActionLog
}

type Store interface {
	Querier
	// WithTx runs fn in one transaction, rolled back wholly if fn fails.
	WithTx(ctx context.Context, fn func(q Querier) error) error
	Ping(ctx context.Context) error
}
