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

	"github.com/efchatnet/efgroup/backend/models"
	"github.com/efchatnet/efgroup/backend/storage"
)

const groupKeyColumns = `k.key_id, k.group_id, k.app_id, k.encrypted_private_key, k.public_key,
	k.keypair_encrypt_alg, k.group_key_alg, COALESCE(k.previous_group_key_id, ''),
	COALESCE(k.encrypted_ephemeral_key, ''), COALESCE(k.encrypted_group_key_by_ephemeral, ''),
	COALESCE(k.ephemeral_alg, ''), COALESCE(k.signed_by_user_id, ''),
	COALESCE(k.signed_by_user_sign_key_id, ''), k.created_at`

func groupKeyDest(k *models.GroupKey) []any {
	return []any{&k.KeyID, &k.GroupID, &k.AppID, &k.EncryptedPrivateKey, &k.PublicKey,
		&k.KeypairEncryptAlg, &k.GroupKeyAlg, &k.PreviousGroupKeyID,
		&k.EncryptedEphemeralKey, &k.EncryptedGroupKeyByEphemeral,
		&k.EphemeralAlg, &k.SignedByUserID, &k.SignedByUserSignKeyID, &k.CreatedAt}
}

func (q *queries) InsertGroupKey(ctx context.Context, key models.GroupKey) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO group_keys (key_id, group_id, app_id, encrypted_private_key, public_key,
			keypair_encrypt_alg, group_key_alg, previous_group_key_id, encrypted_ephemeral_key,
			encrypted_group_key_by_ephemeral, ephemeral_alg, signed_by_user_id,
			signed_by_user_sign_key_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), NULLIF($9, ''), NULLIF($10, ''),
			NULLIF($11, ''), NULLIF($12, ''), NULLIF($13, ''), $14)`,
		key.KeyID, key.GroupID, key.AppID, key.EncryptedPrivateKey, key.PublicKey,
		key.KeypairEncryptAlg, key.GroupKeyAlg, key.PreviousGroupKeyID, key.EncryptedEphemeralKey,
		key.EncryptedGroupKeyByEphemeral, key.EphemeralAlg, key.SignedByUserID,
		key.SignedByUserSignKeyID, key.CreatedAt)
	return err
}

func (q *queries) GetGroupKey(ctx context.Context, groupID, keyID string) (*models.GroupKey, error) {
	var k models.GroupKey
	err := q.db.QueryRowContext(ctx, `
		SELECT `+groupKeyColumns+` FROM group_keys k
		WHERE k.group_id = $1 AND k.key_id = $2`,
		groupID, keyID).Scan(groupKeyDest(&k)...)
	if err != nil {
		return nil, notFound(err)
	}
	return &k, nil
}

func (q *queries) LatestGroupKey(ctx context.Context, groupID string) (*models.GroupKey, error) {
	var k models.GroupKey
	err := q.db.QueryRowContext(ctx, `
		SELECT `+groupKeyColumns+` FROM group_keys k
		WHERE k.group_id = $1
		ORDER BY k.created_at DESC, k.key_id ASC
		LIMIT 1`,
		groupID).Scan(groupKeyDest(&k)...)
	if err != nil {
		return nil, notFound(err)
	}
	return &k, nil
}

func (q *queries) InsertHmacKey(ctx context.Context, key models.GroupHmacKey) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO group_hmac_keys (key_id, group_id, app_id, encrypted_hmac_key,
			encrypted_hmac_alg, encrypted_hmac_encryption_key_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		key.KeyID, key.GroupID, key.AppID, key.EncryptedHmacKey,
		key.EncryptedHmacAlg, key.EncryptedHmacKeyKeyID, key.CreatedAt)
	return err
}

func (q *queries) ListHmacKeys(ctx context.Context, groupID string, cursor models.Cursor, limit int) ([]models.GroupHmacKey, error) {
	query, args := seek(`
		SELECT key_id, group_id, app_id, encrypted_hmac_key, encrypted_hmac_alg,
			encrypted_hmac_encryption_key_id, created_at
		FROM group_hmac_keys
		WHERE group_id = $1`,
		[]any{groupID}, cursor, "created_at", "key_id", true)
	query, args = order(query, args, "created_at", "key_id", true, limit)

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []models.GroupHmacKey
	for rows.Next() {
		var k models.GroupHmacKey
		if err := rows.Scan(&k.KeyID, &k.GroupID, &k.AppID, &k.EncryptedHmacKey,
			&k.EncryptedHmacAlg, &k.EncryptedHmacKeyKeyID, &k.CreatedAt); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}

	return keys, rows.Err()
}

func (q *queries) UpsertUserKeys(ctx context.Context, keys []models.GroupUserKey) error {
	for _, key := range keys {
		_, err := q.db.ExecContext(ctx, `
			INSERT INTO group_user_keys (group_id, user_id, key_id, encrypted_group_key,
				encrypted_alg, encrypted_key_id, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (group_id, user_id, key_id) DO UPDATE
			SET encrypted_group_key = $4, encrypted_alg = $5, encrypted_key_id = $6, created_at = $7`,
			key.GroupID, key.UserID, key.KeyID, key.EncryptedGroupKey,
			key.EncryptedAlg, key.EncryptedKeyID, key.CreatedAt)
		if err != nil {
			if isForeignKeyViolation(err) {
				return storage.ErrUnknownKey
			}
			return err
		}
	}

	return nil
}

func (q *queries) DeleteUserKeys(ctx context.Context, groupID, userID string) error {
	_, err := q.db.ExecContext(ctx, `
		DELETE FROM group_user_keys
		WHERE group_id = $1 AND user_id = $2`,
		groupID, userID)
	return err
}

const ownKeyQuery = `
	SELECT ` + groupKeyColumns + `, uk.encrypted_group_key, uk.encrypted_alg, uk.encrypted_key_id
	FROM group_user_keys uk
	JOIN group_keys k ON k.group_id = uk.group_id AND k.key_id = uk.key_id
	WHERE uk.group_id = $1 AND uk.user_id = $2`

func ownKeyDest(k *models.OwnGroupKey) []any {
	return append(groupKeyDest(&k.GroupKey), &k.EncryptedGroupKey, &k.EncryptedAlg, &k.EncryptedKeyID)
}

func (q *queries) ListOwnKeys(ctx context.Context, groupID, userID string, cursor models.Cursor, limit int) ([]models.OwnGroupKey, error) {
	query, args := seek(ownKeyQuery, []any{groupID, userID}, cursor, "k.created_at", "k.key_id", true)
	query, args = order(query, args, "k.created_at", "k.key_id", true, limit)

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []models.OwnGroupKey
	for rows.Next() {
		var k models.OwnGroupKey
		if err := rows.Scan(ownKeyDest(&k)...); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}

	return keys, rows.Err()
}

func (q *queries) GetOwnKey(ctx context.Context, groupID, userID, keyID string) (*models.OwnGroupKey, error) {
	var k models.OwnGroupKey
	err := q.db.QueryRowContext(ctx, ownKeyQuery+` AND uk.key_id = $3`,
		groupID, userID, keyID).Scan(ownKeyDest(&k)...)
	if err != nil {
		return nil, notFound(err)
	}
	return &k, nil
}
