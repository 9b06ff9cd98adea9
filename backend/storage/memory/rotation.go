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

func (s *Store) InsertRotationTasks(_ context.Context, groupID, keyID, exceptUserID string, at time.Time) (int64, error) {
	defer s.lock()()

	var n int64
	for k := range s.st.members {
		if k.group != groupID || k.user == exceptUserID {
			continue
		}
		t := triple{groupID, k.user, keyID}
		if _, ok := s.st.tasks[t]; ok {
			continue
		}
		s.st.tasks[t] = models.KeyRotationTask{GroupID: groupID, UserID: k.user, KeyID: keyID, CreatedAt: at}
		n++
	}
	return n, nil
}

func (s *Store) ListRotationTasks(_ context.Context, groupID, userID string) ([]models.RotationItem, error) {
	defer s.lock()()

	var items []models.RotationItem
	for k := range s.st.tasks {
		if k.group != groupID || k.user != userID {
			continue
		}
		if key, ok := s.st.keys[k.key]; ok {
			items = append(items, models.RotationItem{GroupKey: key})
		}
	}
	return page(items, models.Cursor{}, len(items), false, func(i models.RotationItem) (time.Time, string) {
		return i.CreatedAt, i.KeyID
	}), nil
}

func (s *Store) DeleteRotationTask(_ context.Context, groupID, userID, keyID string) (bool, error) {
	defer s.lock()()

	t := triple{groupID, userID, keyID}
	if _, ok := s.st.tasks[t]; !ok {
		return false, nil
	}
	delete(s.st.tasks, t)
	return true, nil
}

func (s *Store) DeleteRotationTasks(_ context.Context, groupID, userID string) error {
	defer s.lock()()

	for k := range s.st.tasks {
		if k.group == groupID && k.user == userID {
			delete(s.st.tasks, k)
		}
	}
	return nil
}

func (s *Store) HasRotationTask(_ context.Context, groupID, userID string) (bool, error) {
	defer s.lock()()

	for k := range s.st.tasks {
		if k.group == groupID && k.user == userID {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) CountActions(_ context.Context, appID, groupID string, a storage.Action, month time.Time) (int, error) {
	defer s.lock()()

	bucket := storage.MonthBucket(month)
	count := 0
	for _, e := range s.st.actions {
		if e.appID == appID && e.groupID == groupID && e.action == a && e.month.Equal(bucket) {
			count++
		}
	}
	return count, nil
}

func (s *Store) InsertAction(_ context.Context, appID, groupID string, a storage.Action, at time.Time) error {
	defer s.lock()()

	s.st.actions = append(s.st.actions, action{appID: appID, groupID: groupID, action: a, month: storage.MonthBucket(at)})
	return nil
}
