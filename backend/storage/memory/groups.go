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
	"sort"
	"time"

	"github.com/efchatnet/efgroup/backend/models"
	"github.com/efchatnet/efgroup/backend/storage"
)

func (s *Store) InsertGroup(_ context.Context, group models.Group) error {
	defer s.lock()()

	s.st.groups[group.GroupID] = group
	return nil
}

func (s *Store) GetGroup(_ context.Context, appID, groupID string) (*models.Group, error) {
	defer s.lock()()

	g, ok := s.st.groups[groupID]
	if !ok || g.AppID != appID {
		return nil, storage.ErrNotFound
	}
	return &g, nil
}

func (s *Store) ChildIDs(_ context.Context, appID string, parentIDs []string) ([]string, error) {
	defer s.lock()()

	parents := make(map[string]bool, len(parentIDs))
	for _, id := range parentIDs {
		parents[id] = true
	}

	var ids []string
	for _, g := range s.st.groups {
		if g.AppID == appID && g.ParentGroupID != "" && parents[g.ParentGroupID] {
			ids = append(ids, g.GroupID)
		}
	}
	return ids, nil
}

func (s *Store) ListChildren(_ context.Context, appID, parentID string, cursor models.Cursor, limit int) ([]models.GroupChild, error) {
	defer s.lock()()

	var children []models.GroupChild
	for _, g := range s.st.groups {
		if g.AppID == appID && g.ParentGroupID == parentID {
			children = append(children, models.GroupChild{GroupID: g.GroupID, ParentID: parentID, CreatedAt: g.CreatedAt})
		}
	}
	return page(children, cursor, limit, false, func(c models.GroupChild) (time.Time, string) {
		return c.CreatedAt, c.GroupID
	}), nil
}

func (s *Store) SetInviteEnabled(_ context.Context, appID, groupID string, enabled bool) error {
	defer s.lock()()

	g, ok := s.st.groups[groupID]
	if !ok || g.AppID != appID {
		return nil
	}
	g.InviteEnabled = enabled
	s.st.groups[groupID] = g
	return nil
}

func (s *Store) DeleteGroups(_ context.Context, appID string, groupIDs []string) error {
	defer s.lock()()

	deleted := make(map[string]bool, len(groupIDs))
	for _, id := range groupIDs {
		if g, ok := s.st.groups[id]; ok && g.AppID == appID {
			deleted[id] = true
			delete(s.st.groups, id)
		}
	}
	gone := func(group, user string) bool {
		return deleted[group] || deleted[user]
	}

	for k := range s.st.members {
		if gone(k.group, k.user) {
			delete(s.st.members, k)
		}
	}
	for k := range s.st.requests {
		if gone(k.group, k.user) {
			delete(s.st.requests, k)
		}
	}
	for k := range s.st.userKeys {
		if gone(k.group, k.user) {
			delete(s.st.userKeys, k)
		}
	}
	for k := range s.st.tasks {
		if gone(k.group, k.user) {
			delete(s.st.tasks, k)
		}
	}
	for id, k := range s.st.keys {
		if deleted[k.GroupID] {
			delete(s.st.keys, id)
		}
	}
	for id, k := range s.st.hmacKeys {
		if deleted[k.GroupID] {
			delete(s.st.hmacKeys, id)
		}
	}
	actions := s.st.actions[:0]
	for _, a := range s.st.actions {
		if !deleted[a.groupID] {
			actions = append(actions, a)
		}
	}
	s.st.actions = actions

	return nil
}

func (s *Store) ListGroupsForMember(_ context.Context, appID, memberID string, cursor models.Cursor, limit int) ([]models.UserGroup, error) {
	defer s.lock()()

	var groups []models.UserGroup
	for k, m := range s.st.members {
		if k.user != memberID {
			continue
		}
		g, ok := s.st.groups[k.group]
		if !ok || g.AppID != appID {
			continue
		}
		groups = append(groups, models.UserGroup{
			GroupID:          g.GroupID,
			Rank:             m.Rank,
			JoinedAt:         m.JoinedAt,
			ParentGroupID:    g.ParentGroupID,
			IsConnectedGroup: g.IsConnectedGroup,
		})
	}
	return page(groups, cursor, limit, false, func(g models.UserGroup) (time.Time, string) {
		return g.JoinedAt, g.GroupID
	}), nil
}

func (s *Store) CreatedGroupIDs(_ context.Context, appID string, creatorIDs []string) ([]string, error) {
	defer s.lock()()

	creators := make(map[string]bool, len(creatorIDs))
	for _, id := range creatorIDs {
		creators[id] = true
	}

	var ids []string
	for k, m := range s.st.members {
		if m.Rank != models.RankCreator || m.MemberType != models.MemberTypeGroupAsMember || !creators[k.user] {
			continue
		}
		if g, ok := s.st.groups[k.group]; ok && g.AppID == appID {
			ids = append(ids, k.group)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// LockGroup only checks the row. A transaction already holds the store mutex.
func (s *Store) LockGroup(_ context.Context, appID, groupID string) error {
	defer s.lock()()

	if g, ok := s.st.groups[groupID]; !ok || g.AppID != appID {
		return storage.ErrNotFound
	}
	return nil
}
