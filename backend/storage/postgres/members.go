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

const memberColumns = `group_id, user_id, rank, member_type, joined_at, COALESCE(key_upload_session_id, '')`

type scanner interface {
	Scan(dest ...any) error
}

func scanMember(row scanner) (*models.GroupMember, error) {
	var m models.GroupMember
	if err := row.Scan(&m.GroupID, &m.UserID, &m.Rank, &m.MemberType, &m.JoinedAt, &m.KeyUploadSessionID); err != nil {
		return nil, err
	}
	return &m, nil
}

func (q *queries) InsertMember(ctx context.Context, member models.GroupMember) (bool, error) {
	return affected(q.db.ExecContext(ctx, `
		INSERT INTO group_members (group_id, user_id, rank, member_type, joined_at, key_upload_session_id)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''))
		ON CONFLICT (group_id, user_id) DO NOTHING`,
		member.GroupID, member.UserID, member.Rank, member.MemberType,
		member.JoinedAt, member.KeyUploadSessionID))
}

func (q *queries) GetMember(ctx context.Context, groupID, userID string) (*models.GroupMember, error) {
	m, err := scanMember(q.db.QueryRowContext(ctx, `
		SELECT `+memberColumns+` FROM group_members
		WHERE group_id = $1 AND user_id = $2`,
		groupID, userID))
	if err != nil {
		return nil, notFound(err)
	}
	return m, nil
}

func (q *queries) GetMemberBySession(ctx context.Context, groupID, sessionID string) (*models.GroupMember, error) {
	m, err := scanMember(q.db.QueryRowContext(ctx, `
		SELECT `+memberColumns+` FROM group_members
		WHERE group_id = $1 AND key_upload_session_id = $2`,
		groupID, sessionID))
	if err != nil {
		return nil, notFound(err)
	}
	return m, nil
}

func (q *queries) UpdateMemberRank(ctx context.Context, groupID, userID string, rank int) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE group_members SET rank = $3
		WHERE group_id = $1 AND user_id = $2 AND rank <> 0`,
		groupID, userID, rank)
	return err
}

func (q *queries) DeleteMember(ctx context.Context, groupID, userID string, memberType models.MemberType) (bool, error) {
	return affected(q.db.ExecContext(ctx, `
		DELETE FROM group_members
		WHERE group_id = $1 AND user_id = $2 AND member_type = $3`,
		groupID, userID, memberType))
}

func (q *queries) CountAdmins(ctx context.Context, groupID, exceptUserID string) (int, error) {
	var count int
	err := q.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM group_members
		WHERE group_id = $1 AND user_id <> $2 AND rank <= $3`,
		groupID, exceptUserID, models.RankAdmin).Scan(&count)
	return count, err
}

func (q *queries) ListMembers(ctx context.Context, groupID, exceptUserID string, cursor models.Cursor, limit int) ([]models.GroupMember, error) {
	query, args := seek(`
		SELECT `+memberColumns+` FROM group_members
		WHERE group_id = $1 AND user_id <> $2`,
		[]any{groupID, exceptUserID}, cursor, "joined_at", "user_id", false)
	query, args = order(query, args, "joined_at", "user_id", false, limit)

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []models.GroupMember
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, *m)
	}

	return members, rows.Err()
}

func (q *queries) ListMemberIDs(ctx context.Context, groupIDs []string) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT DISTINCT user_id FROM group_members
		WHERE group_id = ANY($1)`,
		pq.Array(groupIDs))
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
