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
)

func (s *Store) Migrate(ctx context.Context) error {
	migrations := []string{
		// Groups table. The parent pointer has no cascade: a subtree is resolved
		// first and deleted in one statement.
		`CREATE TABLE IF NOT EXISTS groups (
			group_id VARCHAR(36) PRIMARY KEY,
			app_id VARCHAR(255) NOT NULL,
			parent_group_id VARCHAR(36) REFERENCES groups(group_id),
			type SMALLINT NOT NULL DEFAULT 0,
			is_connected_group BOOLEAN NOT NULL DEFAULT FALSE,
			invite_enabled BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		// Children index
		`CREATE INDEX IF NOT EXISTS idx_group_children
		ON groups(app_id, parent_group_id, created_at, group_id)`,

		// Group members table. user_id is a group id for group-as-member rows.
		`CREATE TABLE IF NOT EXISTS group_members (
			group_id VARCHAR(36) NOT NULL,
			user_id VARCHAR(255) NOT NULL,
			rank SMALLINT NOT NULL,
			member_type SMALLINT NOT NULL DEFAULT 0,
			joined_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			key_upload_session_id VARCHAR(36),
			PRIMARY KEY (group_id, user_id),
			FOREIGN KEY (group_id) REFERENCES groups(group_id) ON DELETE CASCADE
		)`,

		`CREATE INDEX IF NOT EXISTS idx_group_members_user
		ON group_members(user_id, joined_at, group_id)`,

		`CREATE INDEX IF NOT EXISTS idx_group_members_session
		ON group_members(group_id, key_upload_session_id)
		WHERE key_upload_session_id IS NOT NULL`,

		// Pending invites and join requests
		`CREATE TABLE IF NOT EXISTS group_requests (
			group_id VARCHAR(36) NOT NULL,
			user_id VARCHAR(255) NOT NULL,
			type SMALLINT NOT NULL,
			target_type SMALLINT NOT NULL DEFAULT 0,
			rank SMALLINT NOT NULL DEFAULT 4,
			key_upload_session_id VARCHAR(36),
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (group_id, user_id),
			FOREIGN KEY (group_id) REFERENCES groups(group_id) ON DELETE CASCADE
		)`,

		`CREATE INDEX IF NOT EXISTS idx_group_requests_user
		ON group_requests(user_id, type, created_at)`,

		// Group keys (ciphertext and public keys only)
		`CREATE TABLE IF NOT EXISTS group_keys (
			key_id VARCHAR(36) PRIMARY KEY,
			group_id VARCHAR(36) NOT NULL,
			app_id VARCHAR(255) NOT NULL,
			encrypted_private_key TEXT NOT NULL,
			public_key TEXT NOT NULL,
			keypair_encrypt_alg VARCHAR(64) NOT NULL,
			group_key_alg VARCHAR(64) NOT NULL,
			previous_group_key_id VARCHAR(36),
			encrypted_ephemeral_key TEXT,
			encrypted_group_key_by_ephemeral TEXT,
			ephemeral_alg VARCHAR(64),
			signed_by_user_id VARCHAR(255),
			signed_by_user_sign_key_id VARCHAR(255),
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (group_id, key_id),
			FOREIGN KEY (group_id) REFERENCES groups(group_id) ON DELETE CASCADE
		)`,

		`CREATE INDEX IF NOT EXISTS idx_group_keys_time
		ON group_keys(group_id, created_at DESC)`,

		`CREATE TABLE IF NOT EXISTS group_hmac_keys (
			key_id VARCHAR(36) PRIMARY KEY,
			group_id VARCHAR(36) NOT NULL,
			app_id VARCHAR(255) NOT NULL,
			encrypted_hmac_key TEXT NOT NULL,
			encrypted_hmac_alg VARCHAR(64) NOT NULL,
			encrypted_hmac_encryption_key_id VARCHAR(36) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (group_id, encrypted_hmac_encryption_key_id)
				REFERENCES group_keys(group_id, key_id) ON DELETE CASCADE
		)`,

		// One row per (member, key) the member can decrypt. Invites stage rows here
		// before the member row exists, so there is no reference to group_members.
		`CREATE TABLE IF NOT EXISTS group_user_keys (
			group_id VARCHAR(36) NOT NULL,
			user_id VARCHAR(255) NOT NULL,
			key_id VARCHAR(36) NOT NULL,
			encrypted_group_key TEXT NOT NULL,
			encrypted_alg VARCHAR(64) NOT NULL,
			encrypted_key_id VARCHAR(255) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (group_id, user_id, key_id),
			FOREIGN KEY (group_id, key_id) REFERENCES group_keys(group_id, key_id) ON DELETE CASCADE
		)`,

		`CREATE INDEX IF NOT EXISTS idx_group_user_keys_user
		ON group_user_keys(user_id)`,

		// Outstanding re-encryption obligations
		`CREATE TABLE IF NOT EXISTS key_rotation_tasks (
			group_id VARCHAR(36) NOT NULL,
			user_id VARCHAR(255) NOT NULL,
			key_id VARCHAR(36) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (group_id, user_id, key_id),
			FOREIGN KEY (group_id, key_id) REFERENCES group_keys(group_id, key_id) ON DELETE CASCADE
		)`,

		`CREATE TABLE IF NOT EXISTS group_action_log (
			app_id VARCHAR(255) NOT NULL,
			group_id VARCHAR(36) NOT NULL,
			action SMALLINT NOT NULL,
			month TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (group_id) REFERENCES groups(group_id) ON DELETE CASCADE
		)`,

		`CREATE INDEX IF NOT EXISTS idx_group_action_log
		ON group_action_log(app_id, group_id, action, month)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.ExecContext(ctx, migration); err != nil {
			return err
		}
	}

	return nil
}
