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

func (s *Store) InsertRequest(_ context.Context, req models.GroupRequest) (bool, error) {
	defer s.lock()()

	k := pair{req.GroupID, req.UserID}
	if _, ok := s.st.requests[k]; ok {
		return false, nil
	}
	s.st.requests[k] = req
	return true, nil
}

func (s *Store) GetRequest(_ context.Context, groupID, userID string) (*models.GroupRequest, error) {
	defer s.lock()()

	r, ok := s.st.requests[pair{groupID, userID}]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &r, nil
}

func (s *Store) GetRequestBySession(_ context.Context, groupID, sessionID string) (*models.GroupRequest, error) {
	defer s.lock()()

	for k, r := range s.st.requests {
		if k.group == groupID && r.KeyUploadSessionID != "" && r.KeyUploadSessionID == sessionID {
			return &r, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *Store) DeleteRequest(_ context.Context, groupID, userID string, reqType models.RequestType) (bool, error) {
	defer s.lock()()

	k := pair{groupID, userID}
	r, ok := s.st.requests[k]
	if !ok || r.Type != reqType {
		return false, nil
	}
	delete(s.st.requests, k)
	return true, nil
}

func (s *Store) ListRequestsForGroup(_ context.Context, groupID string, reqType models.RequestType, cursor models.Cursor, limit int) ([]models.GroupRequest, error) {
	defer s.lock()()

	var reqs []models.GroupRequest
	for k, r := range s.st.requests {
		if k.group == groupID && r.Type == reqType {
			reqs = append(reqs, r)
		}
	}
	return page(reqs, cursor, limit, false, func(r models.GroupRequest) (time.Time, string) {
		return r.CreatedAt, r.UserID
	}), nil
}

func (s *Store) ListRequestsForMember(_ context.Context, appID, userID string, reqType models.RequestType, cursor models.Cursor, limit int) ([]models.GroupRequest, error) {
	defer s.lock()()

	var reqs []models.GroupRequest
	for k, r := range s.st.requests {
		if k.user != userID || r.Type != reqType {
			continue
		}
		if g, ok := s.st.groups[k.group]; !ok || g.AppID != appID {
			continue
		}
		reqs = append(reqs, r)
	}
	return page(reqs, cursor, limit, false, func(r models.GroupRequest) (time.Time, string) {
		return r.CreatedAt, r.GroupID
	}), nil
}
