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
	"time"

	"github.com/efchatnet/efgroup/backend/models"
	"github.com/efchatnet/efgroup/backend/storage"
)

func (q *queries) InsertRotationTasks(ctx context.Context, groupID, keyID, exceptUserID string, at time.Time) (int64, error) {
	// One statement regardless of the member count.
	res, err := q.db.ExecContext(ctx, `
		INSERT INTO key_rotation_tasks (group_id, user_id, key_id, created_at)
		SELECT group_id, user_id, $2::VARCHAR, $4::TIMESTAMPTZ FROM group_members
		WHERE group_id = $1 AND user_id <> $3
		ON CONFLICT (group_id, user_id, key_id) DO NOTHING`,
		groupID, keyID, exceptUserID, at)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (q *queries) ListRotationTasks(ctx context.Context, groupID, userID string) ([]models.RotationItem, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT `+groupKeyColumns+` FROM key_rotation_tasks t
		JOIN group_keys k ON k.group_id = t.group_id AND k.key_id = t.key_id
		WHERE t.group_id = $1 AND t.user_id = $2
		ORDER BY k.created_at ASC, k.key_id ASC`,
		groupID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.RotationItem
	for rows.Next() {
		var item models.RotationItem
		if err := rows.Scan(groupKeyDest(&item.GroupKey)...); err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	return items, rows.Err()
}

func (q *queries) DeleteRotationTask(ctx context.Context, groupID, userID, keyID string) (bool, error) {
	return affected(q.db.ExecContext(ctx, `
		DELETE FROM key_rotation_tasks
		WHERE group_id = $1 AND user_id = $2 AND key_id = $3`,
		groupID, userID, keyID))
}

func (q *queries) DeleteRotationTasks(ctx context.Context, groupID, userID string) error {
	_, err := q.db.ExecContext(ctx, `
		DELETE FROM key_rotation_tasks
		WHERE group_id = $1 AND user_id = $2`,
		groupID, userID)
	return err
}

func (q *queries) HasRotationTask(ctx context.Context, groupID, userID string) (bool, error) {
	var exists bool
	err := q.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM key_rotation_tasks WHERE group_id = $1 AND user_id = $2)`,
		groupID, userID).Scan(&exists)
	return exists, err
}

func (q *queries) CountActions(ctx context.Context, appID, groupID string, action storage.Action, month time.Time) (int, error) {
	var count int
	err := q.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM group_action_log
		WHERE app_id = $1 AND group_id = $2 AND action = $3 AND month = $4`,
		appID, groupID, action, storage.MonthBucket(month)).Scan(&count)
	return count, err
}

func (q *queries) InsertAction(ctx context.Context, appID, groupID string, action storage.Action, at time.Time) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO group_action_log (app_id, group_id, action, month, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		appID, groupID, action, storage.MonthBucket(at), at)
	return err
}
