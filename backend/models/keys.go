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

// GroupKey stores ONLY ciphertext and public material. The plain group key never
// reaches the server.
type GroupKey struct {
	KeyID                        string    `json:"key_id" db:"key_id"`
	GroupID                      string    `json:"group_id" db:"group_id"`
	AppID                        string    `json:"-" db:"app_id"`
	EncryptedPrivateKey          string    `json:"encrypted_private_group_key" db:"encrypted_private_key"`
	PublicKey                    string    `json:"public_group_key" db:"public_key"`
	KeypairEncryptAlg            string    `json:"keypair_encrypt_alg" db:"keypair_encrypt_alg"`
	GroupKeyAlg                  string    `json:"group_key_alg" db:"group_key_alg"`
	PreviousGroupKeyID           string    `json:"previous_group_key_id,omitempty" db:"previous_group_key_id"`
	EncryptedEphemeralKey        string    `json:"encrypted_ephemeral_key,omitempty" db:"encrypted_ephemeral_key"`
	EncryptedGroupKeyByEphemeral string    `json:"encrypted_group_key_by_ephemeral,omitempty" db:"encrypted_group_key_by_ephemeral"`
	EphemeralAlg                 string    `json:"ephemeral_alg,omitempty" db:"ephemeral_alg"`
	SignedByUserID               string    `json:"signed_by_user_id,omitempty" db:"signed_by_user_id"`
	SignedByUserSignKeyID        string    `json:"signed_by_user_sign_key_id,omitempty" db:"signed_by_user_sign_key_id"`
	CreatedAt                    time.Time `json:"created_at" db:"created_at"`
}

type GroupHmacKey struct {
	KeyID                 string    `json:"key_id" db:"key_id"`
	GroupID               string    `json:"group_id" db:"group_id"`
	AppID                 string    `json:"-" db:"app_id"`
	EncryptedHmacKey      string    `json:"encrypted_hmac_key" db:"encrypted_hmac_key"`
	EncryptedHmacAlg      string    `json:"encrypted_hmac_alg" db:"encrypted_hmac_alg"`
	EncryptedHmacKeyKeyID string    `json:"encrypted_hmac_encryption_key_id" db:"encrypted_hmac_encryption_key_id"`
	CreatedAt             time.Time `json:"created_at" db:"created_at"`
}

// GroupUserKey is a member's own copy of one group key.
type GroupUserKey struct {
	GroupID           string    `json:"group_id" db:"group_id"`
	UserID            string    `json:"user_id" db:"user_id"`
	KeyID             string    `json:"key_id" db:"key_id"`
	EncryptedGroupKey string    `json:"encrypted_group_key" db:"encrypted_group_key"`
	EncryptedAlg      string    `json:"encrypted_alg" db:"encrypted_alg"`
	EncryptedKeyID    string    `json:"encrypted_key_id" db:"encrypted_key_id"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
}

// OwnGroupKey joins a member's copy with the group key it belongs to.
type OwnGroupKey struct {
	GroupKey
	EncryptedGroupKey string `json:"encrypted_group_key"`
	EncryptedAlg      string `json:"encrypted_alg"`
	EncryptedKeyID    string `json:"encrypted_key_id"`
}

// UserKeyInput is one key copy uploaded by a client for some member.
type UserKeyInput struct {
	KeyID             string `json:"key_id" validate:"required"`
	EncryptedGroupKey string `json:"encrypted_group_key" validate:"required"`
	EncryptedAlg      string `json:"encrypted_alg" validate:"required"`
	EncryptedKeyID    string `json:"encrypted_key_id" validate:"required"`
}

// Copy turns an upload into the stored row for member userID.
func (k UserKeyInput) Copy(groupID, userID string, now time.Time) GroupUserKey {
	return GroupUserKey{
		GroupID:           groupID,
		UserID:            userID,
		KeyID:             k.KeyID,
		EncryptedGroupKey: k.EncryptedGroupKey,
		EncryptedAlg:      k.EncryptedAlg,
		EncryptedKeyID:    k.EncryptedKeyID,
		CreatedAt:         now,
	}
}

type CreateGroupInput struct {
	GroupKeyAlg              string `json:"group_key_alg" validate:"required"`
	EncryptedGroupKey        string `json:"encrypted_group_key" validate:"required"`
	EncryptedGroupKeyAlg     string `json:"encrypted_group_key_alg" validate:"required"`
	CreatorPublicKeyID       string `json:"creator_public_key_id" validate:"required"`
	EncryptedPrivateGroupKey string `json:"encrypted_private_group_key" validate:"required"`
	PublicGroupKey           string `json:"public_group_key" validate:"required"`
	KeypairEncryptAlg        string `json:"keypair_encrypt_alg" validate:"required"`
	EncryptedHmacKey         string `json:"encrypted_hmac_key" validate:"required"`
	EncryptedHmacAlg         string `json:"encrypted_hmac_alg" validate:"required"`
	SignedByUserID           string `json:"signed_by_user_id,omitempty"`
	SignedByUserSignKeyID    string `json:"signed_by_user_sign_key_id,omitempty"`
}

type KeyRotationTask struct {
	GroupID   string    `json:"group_id" db:"group_id"`
	UserID    string    `json:"user_id" db:"user_id"`
	KeyID     string    `json:"key_id" db:"key_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type RotationInput struct {
	PreviousGroupKeyID           string `json:"previous_group_key_id" validate:"required"`
	GroupKeyAlg                  string `json:"group_key_alg" validate:"required"`
	EncryptedPrivateGroupKey     string `json:"encrypted_private_group_key" validate:"required"`
	PublicGroupKey               string `json:"public_group_key" validate:"required"`
	KeypairEncryptAlg            string `json:"keypair_encrypt_alg" validate:"required"`
	EncryptedGroupKeyByUser      string `json:"encrypted_group_key_by_user" validate:"required"`
	EncryptedGroupKeyAlg         string `json:"encrypted_group_key_alg" validate:"required"`
	InvokerPublicKeyID           string `json:"invoker_public_key_id" validate:"required"`
	EncryptedEphemeralKey        string `json:"encrypted_ephemeral_key" validate:"required"`
	EncryptedGroupKeyByEphemeral string `json:"encrypted_group_key_by_ephemeral" validate:"required"`
	EphemeralAlg                 string `json:"ephemeral_alg" validate:"required"`
	SignedByUserID               string `json:"signed_by_user_id,omitempty"`
	SignedByUserSignKeyID        string `json:"signed_by_user_sign_key_id,omitempty"`
}

// RotationItem is one outstanding rotation a member still has to finish, carrying
// everything the client needs to unwrap the new key with the previous one.
type RotationItem struct {
	GroupKey
}

type CompleteRotationInput struct {
	EncryptedGroupKey string `json:"encrypted_group_key" validate:"required"`
	EncryptedAlg      string `json:"encrypted_alg" validate:"required"`
	EncryptedKeyID    string `json:"encrypted_key_id" validate:"required"`
}

// PublicGroupKey is the newest public key of a group. Inviters wrap key copies for
// a group member with it.
type PublicGroupKey struct {
	KeyID             string    `json:"key_id"`
	GroupID           string    `json:"group_id"`
	PublicKey         string    `json:"public_group_key"`
	KeypairEncryptAlg string    `json:"keypair_encrypt_alg"`
	CreatedAt         time.Time `json:"created_at"`
}

type UserKeysInput struct {
	Keys []UserKeyInput `json:"keys" validate:"required,dive"`
}
