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

func (s *Store) InsertMember(_ context.Context, member models.GroupMember) (bool, error) {
	defer s.lock()()

	k := pair{member.GroupID, member.UserID}
	if _, ok := s.st.members[k]; ok {
		return false, nil
	}
	s.st.members[k] = member
	return true, nil
}

func (s *Store) GetMember(_ context.Context, groupID, userID string) (*models.GroupMember, error) {
	defer s.lock()()

	m, ok := s.st.members[pair{groupID, userID}]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &m, nil
}

func (s *Store) GetMemberBySession(_ context.Context, groupID, sessionID string) (*models.GroupMember, error) {
	defer s.lock()()

	for k, m := range s.st.members {
		if k.group == groupID && m.KeyUploadSessionID != "" && m.KeyUploadSessionID == sessionID {
			return &m, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *Store) UpdateMemberRank(_ context.Context, groupID, userID string, rank int) error {
	defer s.lock()()

	k := pair{groupID, userID}
	m, ok := s.st.members[k]
	if !ok || m.Rank == models.RankCreator {
		return nil
	}
	m.Rank = rank
	s.st.members[k] = m
	return nil
}

func (s *Store) DeleteMember(_ context.Context, groupID, userID string, memberType models.MemberType) (bool, error) {
	defer s.lock()()

	k := pair{groupID, userID}
	m, ok := s.st.members[k]
	if !ok || m.MemberType != memberType {
		return false, nil
	}
	delete(s.st.members, k)
	return true, nil
}

func (s *Store) CountAdmins(_ context.Context, groupID, exceptUserID string) (int, error) {
	defer s.lock()()

	count := 0
	for k, m := range s.st.members {
		if k.group == groupID && k.user != exceptUserID && m.Rank <= models.RankAdmin {
			count++
		}
	}
	return count, nil
}

func (s *Store) ListMembers(_ context.Context, groupID, exceptUserID string, cursor models.Cursor, limit int) ([]models.GroupMember, error) {
	defer s.lock()()

	var members []models.GroupMember
	for k, m := range s.st.members {
		if k.group == groupID && k.user != exceptUserID {
			members = append(members, m)
		}
	}
	return page(members, cursor, limit, false, func(m models.GroupMember) (time.Time, string) {
		return m.JoinedAt, m.UserID
	}), nil
}

func (s *Store) ListMemberIDs(_ context.Context, groupIDs []string) ([]string, error) {
	defer s.lock()()

	groups := make(map[string]bool, len(groupIDs))
	for _, id := range groupIDs {
		groups[id] = true
	}

	seen := make(map[string]bool)
	var ids []string
	for k := range s.st.members {
		if groups[k.group] && !seen[k.user] {
			seen[k.user] = true
			ids = append(ids, k.user)
		}
	}
	return ids, nil
}
