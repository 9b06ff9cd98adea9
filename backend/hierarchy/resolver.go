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

// Package hierarchy walks the parent/child tree of groups.
package hierarchy

import (
	"context"
	"errors"
	"fmt"

	"github.com/efchatnet/efgroup/backend/apperr"
	"github.com/efchatnet/efgroup/backend/models"
	"github.com/efchatnet/efgroup/backend/storage"
)

// MaxDepth bounds every walk. Real trees are a few levels deep; anything past this
// is a cycle in the stored parent pointers.
const MaxDepth = 64

// ErrNoAncestor is returned by AncestorMembership when no ancestor has a row for the
// member.
var ErrNoAncestor = errors.New("hierarchy: no ancestor membership")

// Store is the part of storage.Querier the resolver reads.
type Store interface {
	GetGroup(ctx context.Context, appID, groupID string) (*models.Group, error)
	GetMember(ctx context.Context, groupID, userID string) (*models.GroupMember, error)
	ChildIDs(ctx context.Context, appID string, parentIDs []string) ([]string, error)
	ListChildren(ctx context.Context, appID, parentID string, cursor models.Cursor, limit int) ([]models.GroupChild, error)
}

type Resolver struct {
	store    Store
	maxDepth int
}

func NewResolver(store Store) *Resolver {
	return &Resolver{store: store, maxDepth: MaxDepth}
}

// WithMaxDepth returns a copy of the resolver with another depth bound.
func (r *Resolver) WithMaxDepth(depth int) *Resolver {
	return &Resolver{store: r.store, maxDepth: depth}
}

// AncestorMembership walks up from the parent of groupID and returns the first
// ancestor row held by memberID. The row's GroupID is the ancestor.
func (r *Resolver) AncestorMembership(ctx context.Context, appID, groupID, memberID string) (*models.GroupMember, error) {
	group, err := r.store.GetGroup(ctx, appID, groupID)
	if err != nil {
		return nil, err
	}

	visited := map[string]bool{groupID: true}
	current := group.ParentGroupID
	for depth := 0; current != ""; depth++ {
		if visited[current] || depth >= r.maxDepth {
			return nil, apperr.ErrHierarchyCorrupt.Wrap(fmt.Errorf("parent chain of %s loops at %s", groupID, current))
		}
		visited[current] = true

		member, err := r.store.GetMember(ctx, current, memberID)
		if err == nil {
			return member, nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return nil, err
		}

		parent, err := r.store.GetGroup(ctx, appID, current)
		if errors.Is(err, storage.ErrNotFound) {
			break
		}
		if err != nil {
			return nil, err
		}
		current = parent.ParentGroupID
	}

	return nil, ErrNoAncestor
}

// AncestorIDs returns the parent chain of groupID, nearest first. A dangling parent
// ends the chain.
func (r *Resolver) AncestorIDs(ctx context.Context, appID, groupID string) ([]string, error) {
	group, err := r.store.GetGroup(ctx, appID, groupID)
	if err != nil {
		return nil, err
	}

	var ids []string
	visited := map[string]bool{groupID: true}
	current := group.ParentGroupID
	for depth := 0; current != ""; depth++ {
		if visited[current] || depth >= r.maxDepth {
			return nil, apperr.ErrHierarchyCorrupt.Wrap(fmt.Errorf("parent chain of %s loops at %s", groupID, current))
		}
		visited[current] = true

		parent, err := r.store.GetGroup(ctx, appID, current)
		if errors.Is(err, storage.ErrNotFound) {
			break
		}
		if err != nil {
			return nil, err
		}
		ids = append(ids, current)
		current = parent.ParentGroupID
	}
	return ids, nil
}

// DescendantIDs collects groupID and its whole subtree, level by level.
func (r *Resolver) DescendantIDs(ctx context.Context, appID, groupID string) ([]string, error) {
	ids := []string{groupID}
	seen := map[string]bool{groupID: true}
	level := []string{groupID}

	for depth := 0; len(level) > 0; depth++ {
		if depth >= r.maxDepth {
			return nil, apperr.ErrHierarchyCorrupt.Wrap(fmt.Errorf("subtree of %s deeper than %d", groupID, r.maxDepth))
		}

		children, err := r.store.ChildIDs(ctx, appID, level)
		if err != nil {
			return nil, err
		}

		level = level[:0:0]
		for _, id := range children {
			if seen[id] {
				return nil, apperr.ErrHierarchyCorrupt.Wrap(fmt.Errorf("group %s reached twice below %s", id, groupID))
			}
			seen[id] = true
			ids = append(ids, id)
			level = append(level, id)
		}
	}

	return ids, nil
}

func (r *Resolver) FirstLevelChildren(ctx context.Context, appID, groupID string, cursor models.Cursor) ([]models.GroupChild, error) {
	return r.store.ListChildren(ctx, appID, groupID, cursor, models.PageSize)
}
