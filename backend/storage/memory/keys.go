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

package memory

import (
	"context"
	"time"

	"github.com/efchatnet/efgroup/backend/models"
	"github.com/efchatnet/efgroup/backend/storage"
)

func (s *Store) InsertGroupKey(_ context.Context, key models.GroupKey) error {
	defer s.lock()()

	s.st.keys[key.KeyID] = key
	return nil
}

func (s *Store) GetGroupKey(_ context.Context, groupID, keyID string) (*models.GroupKey, error) {
	defer s.lock()()

	k, ok := s.st.keys[keyID]
	if !ok || k.GroupID != groupID {
		return nil, storage.ErrNotFound
	}
	return &k, nil
}

func (s *Store) LatestGroupKey(_ context.Context, groupID string) (*models.GroupKey, error) {
	defer s.lock()()

	var keys []models.GroupKey
	for _, k := range s.st.keys {
		if k.GroupID == groupID {
			keys = append(keys, k)
		}
	}
	latest := page(keys, models.Cursor{}, 1, true, groupKeyAt)
	if len(latest) == 0 {
		return nil, storage.ErrNotFound
	}
	return &latest[0], nil
}

func groupKeyAt(k models.GroupKey) (time.Time, string) {
	return k.CreatedAt, k.KeyID
}

func (s *Store) InsertHmacKey(_ context.Context, key models.GroupHmacKey) error {
	defer s.lock()()

	s.st.hmacKeys[key.KeyID] = key
	return nil
}

func (s *Store) ListHmacKeys(_ context.Context, groupID string, cursor models.Cursor, limit int) ([]models.GroupHmacKey, error) {
	defer s.lock()()

	var keys []models.GroupHmacKey
	for _, k := range s.st.hmacKeys {
		if k.GroupID == groupID {
			keys = append(keys, k)
		}
	}
	return page(keys, cursor, limit, true, func(k models.GroupHmacKey) (time.Time, string) {
		return k.CreatedAt, k.KeyID
	}), nil
}

func (s *Store) UpsertUserKeys(_ context.Context, keys []models.GroupUserKey) error {
	defer s.lock()()

	// all or nothing, like the failing statement inside a transaction
	for _, key := range keys {
		if k, ok := s.st.keys[key.KeyID]; !ok || k.GroupID != key.GroupID {
			return storage.ErrUnknownKey
		}
	}
	for _, key := range keys {
		s.st.userKeys[triple{key.GroupID, key.UserID, key.KeyID}] = key
	}
	return nil
}

func (s *Store) DeleteUserKeys(_ context.Context, groupID, userID string) error {
	defer s.lock()()

	for k := range s.st.userKeys {
		if k.group == groupID && k.user == userID {
			delete(s.st.userKeys, k)
		}
	}
	return nil
}

func (s *Store) ownKey(uk models.GroupUserKey) (models.OwnGroupKey, bool) {
	k, ok := s.st.keys[uk.KeyID]
	if !ok {
		return models.OwnGroupKey{}, false
	}
	return models.OwnGroupKey{
		GroupKey:          k,
		EncryptedGroupKey: uk.EncryptedGroupKey,
		EncryptedAlg:      uk.EncryptedAlg,
		EncryptedKeyID:    uk.EncryptedKeyID,
	}, true
}

func (s *Store) ListOwnKeys(_ context.Context, groupID, userID string, cursor models.Cursor, limit int) ([]models.OwnGroupKey, error) {
	defer s.lock()()

	var keys []models.OwnGroupKey
	for k, uk := range s.st.userKeys {
		if k.group != groupID || k.user != userID {
			continue
		}
		if own, ok := s.ownKey(uk); ok {
			keys = append(keys, own)
		}
	}
	return page(keys, cursor, limit, true, func(k models.OwnGroupKey) (time.Time, string) {
		return k.CreatedAt, k.KeyID
	}), nil
}

func (s *Store) GetOwnKey(_ context.Context, groupID, userID, keyID string) (*models.OwnGroupKey, error) {
	defer s.lock()()

	uk, ok := s.st.userKeys[triple{groupID, userID, keyID}]
	if !ok {
		return nil, storage.ErrNotFound
	}
	own, ok := s.ownKey(uk)
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &own, nil
}
