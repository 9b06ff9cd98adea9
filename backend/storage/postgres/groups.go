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

package postgres

import (
	"context"

	"github.com/lib/pq"

	"github.com/efchatnet/efgroup/backend/models"
)

func (q *queries) InsertGroup(ctx context.Context, group models.Group) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO groups (group_id, app_id, parent_group_id, type, is_connected_group, invite_enabled, created_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7)`,
		group.GroupID, group.AppID, group.ParentGroupID, group.Type,
		group.IsConnectedGroup, group.InviteEnabled, group.CreatedAt)
	return err
}

func (q *queries) GetGroup(ctx context.Context, appID, groupID string) (*models.Group, error) {
	var g models.Group
	err := q.db.QueryRowContext(ctx, `
		SELECT group_id, app_id, COALESCE(parent_group_id, ''), type, is_connected_group, invite_enabled, created_at
		FROM groups
		WHERE app_id = $1 AND group_id = $2`,
		appID, groupID).Scan(&g.GroupID, &g.AppID, &g.ParentGroupID, &g.Type,
		&g.IsConnectedGroup, &g.InviteEnabled, &g.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &g, nil
}

func (q *queries) ChildIDs(ctx context.Context, appID string, parentIDs []string) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT group_id FROM groups
		WHERE app_id = $1 AND parent_group_id = ANY($2)`,
		appID, pq.Array(parentIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

func (q *queries) ListChildren(ctx context.Context, appID, parentID string, cursor models.Cursor, limit int) ([]models.GroupChild, error) {
	query, args := seek(`
		SELECT group_id, parent_group_id, created_at FROM groups
		WHERE app_id = $1 AND parent_group_id = $2`,
		[]any{appID, parentID}, cursor, "created_at", "group_id", false)
	query, args = order(query, args, "created_at", "group_id", false, limit)

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var children []models.GroupChild
	for rows.Next() {
		var c models.GroupChild
		if err := rows.Scan(&c.GroupID, &c.ParentID, &c.CreatedAt); err != nil {
			return nil, err
		}
		children = append(children, c)
	}

	return children, rows.Err()
}

func (q *queries) SetInviteEnabled(ctx context.Context, appID, groupID string, enabled bool) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE groups SET invite_enabled = $3
		WHERE app_id = $1 AND group_id = $2`,
		appID, groupID, enabled)
	return err
}

func (q *queries) DeleteGroups(ctx context.Context, appID string, groupIDs []string) error {
	ids := pq.Array(groupIDs)

	// Rows where the deleted groups are members of other groups. The cascades of
	// the groups table only reach rows keyed by group_id.
	for _, stmt := range []string{
		`DELETE FROM group_user_keys WHERE user_id = ANY($1)`,
		`DELETE FROM key_rotation_tasks WHERE user_id = ANY($1)`,
		`DELETE FROM group_requests WHERE user_id = ANY($1)`,
		`DELETE FROM group_members WHERE user_id = ANY($1)`,
	} {
		if _, err := q.db.ExecContext(ctx, stmt, ids); err != nil {
			return err
		}
	}

	// One statement for the whole subtree so the parent reference is only checked
	// once all of it is gone.
	_, err := q.db.ExecContext(ctx, `
		DELETE FROM groups
		WHERE app_id = $1 AND group_id = ANY($2)`,
		appID, ids)
	if err != nil {
		return err
	}

	// Key copies whose group vanished without a cascade reaching them.
	_, err = q.db.ExecContext(ctx, `
		DELETE FROM group_user_keys uk
		WHERE uk.group_id = ANY($1)
		AND NOT EXISTS (SELECT 1 FROM groups g WHERE g.group_id = uk.group_id)`,
		ids)
	return err
}

func (q *queries) ListGroupsForMember(ctx context.Context, appID, memberID string, cursor models.Cursor, limit int) ([]models.UserGroup, error) {
	query, args := seek(`
		SELECT m.group_id, m.rank, m.joined_at, COALESCE(g.parent_group_id, ''), g.is_connected_group
		FROM group_members m
		JOIN groups g ON g.group_id = m.group_id
		WHERE g.app_id = $1 AND m.user_id = $2`,
		[]any{appID, memberID}, cursor, "m.joined_at", "m.group_id", false)
	query, args = order(query, args, "m.joined_at", "m.group_id", false, limit)

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []models.UserGroup
	for rows.Next() {
		var g models.UserGroup
		if err := rows.Scan(&g.GroupID, &g.Rank, &g.JoinedAt, &g.ParentGroupID, &g.IsConnectedGroup); err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}

	return groups, rows.Err()
}

func (q *queries) CreatedGroupIDs(ctx context.Context, appID string, creatorIDs []string) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT m.group_id FROM group_members m
		JOIN groups g ON g.group_id = m.group_id
		WHERE g.app_id = $1 AND m.rank = $2 AND m.member_type = $3 AND m.user_id = ANY($4)
		ORDER BY m.group_id`,
		appID, models.RankCreator, models.MemberTypeGroupAsMember, pq.Array(creatorIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (q *queries) LockGroup(ctx context.Context, appID, groupID string) error {
	var id string
	err := q.db.QueryRowContext(ctx, `
		SELECT group_id FROM groups
		WHERE app_id = $1 AND group_id = $2
		FOR UPDATE`,
		appID, groupID).Scan(&id)
	return notFound(err)
}
