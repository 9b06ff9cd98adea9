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
	"database/sql"

	"github.com/efchatnet/efgroup/backend/models"
)

const requestColumns = `r.group_id, r.user_id, r.type, r.target_type, r.rank, COALESCE(r.key_upload_session_id, ''), r.created_at`

func scanRequest(row scanner) (*models.GroupRequest, error) {
	var r models.GroupRequest
	if err := row.Scan(&r.GroupID, &r.UserID, &r.Type, &r.TargetType, &r.Rank, &r.KeyUploadSessionID, &r.CreatedAt); err != nil {
		return nil, err
	}
	return &r, nil
}

func collectRequests(rows *sql.Rows) ([]models.GroupRequest, error) {
	defer rows.Close()

	var reqs []models.GroupRequest
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, *r)
	}

	return reqs, rows.Err()
}

func (q *queries) InsertRequest(ctx context.Context, req models.GroupRequest) (bool, error) {
	return affected(q.db.ExecContext(ctx, `
		INSERT INTO group_requests (group_id, user_id, type, target_type, rank, key_upload_session_id, created_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7)
		ON CONFLICT (group_id, user_id) DO NOTHING`,
		req.GroupID, req.UserID, req.Type, req.TargetType, req.Rank,
		req.KeyUploadSessionID, req.CreatedAt))
}

func (q *queries) GetRequest(ctx context.Context, groupID, userID string) (*models.GroupRequest, error) {
	r, err := scanRequest(q.db.QueryRowContext(ctx, `
		SELECT `+requestColumns+` FROM group_requests r
		WHERE r.group_id = $1 AND r.user_id = $2`,
		groupID, userID))
	if err != nil {
		return nil, notFound(err)
	}
	return r, nil
}

func (q *queries) GetRequestBySession(ctx context.Context, groupID, sessionID string) (*models.GroupRequest, error) {
	r, err := scanRequest(q.db.QueryRowContext(ctx, `
		SELECT `+requestColumns+` FROM group_requests r
		WHERE r.group_id = $1 AND r.key_upload_session_id = $2`,
		groupID, sessionID))
	if err != nil {
		return nil, notFound(err)
	}
	return r, nil
}

func (q *queries) DeleteRequest(ctx context.Context, groupID, userID string, reqType models.RequestType) (bool, error) {
	return affected(q.db.ExecContext(ctx, `
		DELETE FROM group_requests
		WHERE group_id = $1 AND user_id = $2 AND type = $3`,
		groupID, userID, reqType))
}

func (q *queries) ListRequestsForGroup(ctx context.Context, groupID string, reqType models.RequestType, cursor models.Cursor, limit int) ([]models.GroupRequest, error) {
	query, args := seek(`
		SELECT `+requestColumns+` FROM group_requests r
		WHERE r.group_id = $1 AND r.type = $2`,
		[]any{groupID, reqType}, cursor, "r.created_at", "r.user_id", false)
	query, args = order(query, args, "r.created_at", "r.user_id", false, limit)

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectRequests(rows)
}

func (q *queries) ListRequestsForMember(ctx context.Context, appID, userID string, reqType models.RequestType, cursor models.Cursor, limit int) ([]models.GroupRequest, error) {
	query, args := seek(`
		SELECT `+requestColumns+` FROM group_requests r
		JOIN groups g ON g.group_id = r.group_id
		WHERE g.app_id = $1 AND r.user_id = $2 AND r.type = $3`,
		[]any{appID, userID, reqType}, cursor, "r.created_at", "r.group_id", false)
	query, args = order(query, args, "r.created_at", "r.group_id", false, limit)

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectRequests(rows)
}
