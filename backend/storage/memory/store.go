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

// Package memory is a process-local storage.Store. It backs the "memory" storage
// driver for local development and the service tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/efchatnet/efgroup/backend/models"
	"github.com/efchatnet/efgroup/backend/storage"
)

type pair struct {
	group, user string
}

type triple struct {
	group, user, key string
}

type action struct {
	appID, groupID string
	action         storage.Action
	month          time.Time
}

type state struct {
	groups   map[string]models.Group
	members  map[pair]models.GroupMember
	requests map[pair]models.GroupRequest
	keys     map[string]models.GroupKey
	hmacKeys map[string]models.GroupHmacKey
	userKeys map[triple]models.GroupUserKey
	tasks    map[triple]models.KeyRotationTask
	actions  []action
}

func newState() *state {
	return &state{
		groups:   make(map[string]models.Group),
		members:  make(map[pair]models.GroupMember),
		requests: make(map[pair]models.GroupRequest),
		keys:     make(map[string]models.GroupKey),
		hmacKeys: make(map[string]models.GroupHmacKey),
		userKeys: make(map[triple]models.GroupUserKey),
		tasks:    make(map[triple]models.KeyRotationTask),
	}
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	c := make(map[K]V, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

func (st *state) clone() *state {
	return &state{
		groups:   cloneMap(st.groups),
		members:  cloneMap(st.members),
		requests: cloneMap(st.requests),
		keys:     cloneMap(st.keys),
		hmacKeys: cloneMap(st.hmacKeys),
		userKeys: cloneMap(st.userKeys),
		tasks:    cloneMap(st.tasks),
		actions:  append([]action(nil), st.actions...),
	}
}

// Store keeps all rows in maps behind one mutex. A transaction holds the mutex for
// its whole run and works on a copy that replaces the state on commit.
type Store struct {
	mu   *sync.Mutex
	st   *state
	inTx bool
}

var _ storage.Store = (*Store)(nil)

func NewStore() *Store {
	return &Store{
		mu: &sync.Mutex{},
		st: newState(),
	}
}

func (s *Store) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) WithTx(ctx context.Context, fn func(q storage.Querier) error) error {
	if s.inTx {
		return fn(s)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &Store{mu: s.mu, st: s.st.clone(), inTx: true}
	if err := fn(tx); err != nil {
		return err
	}
	s.st = tx.st
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

// page orders items by (time, id), applies the cursor and the limit.
func page[T any](items []T, cursor models.Cursor, limit int, desc bool, at func(T) (time.Time, string)) []T {
	sort.Slice(items, func(i, j int) bool {
		ti, idi := at(items[i])
		tj, idj := at(items[j])
		if !ti.Equal(tj) {
			if desc {
				return ti.After(tj)
			}
			return ti.Before(tj)
		}
		return idi < idj
	})

	out := make([]T, 0, limit)
	for _, item := range items {
		t, id := at(item)
		var next bool
		if desc {
			next = cursor.AfterDesc(t, id)
		} else {
			next = cursor.After(t, id)
		}
		if !next {
			continue
		}
		out = append(out, item)
		if len(out) == limit {
			break
		}
	}
	return out
}
