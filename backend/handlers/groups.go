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

package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/efchatnet/efgroup/backend/models"
)

type groupCreated struct {
	GroupID string `json:"group_id"`
}

type changeRankRequest struct {
	UserID string `json:"changed_user_id" validate:"required"`
	Rank   int    `json:"new_rank" validate:"min=1,max=4"`
}

type inviteEnabledRequest struct {
	Enabled bool `json:"enabled"`
}

// CreateGroup creates a top-level group owned by the calling user.
func (h *Handler) CreateGroup(w http.ResponseWriter, r *http.Request) error {
	p, err := principal(r)
	if err != nil {
		return err
	}
	var in models.CreateGroupInput
	if err := h.decode(w, r, &in); err != nil {
		return err
	}
	id, err := h.svc.Keys.CreateGroup(r.Context(), p.AppID, p.UserID, in)
	if err != nil {
		return err
	}
	return writeResult(w, http.StatusCreated, groupCreated{GroupID: id})
}

func (h *Handler) CreateChildGroup(w http.ResponseWriter, r *http.Request) error {
	access, err := h.access(r)
	if err != nil {
		return err
	}
	var in models.CreateGroupInput
	if err := h.decode(w, r, &in); err != nil {
		return err
	}
	id, err := h.svc.Keys.CreateChildGroup(r.Context(), access, in)
	if err != nil {
		return err
	}
	return writeResult(w, http.StatusCreated, groupCreated{GroupID: id})
}

func (h *Handler) CreateConnectedGroup(w http.ResponseWriter, r *http.Request) error {
	access, err := h.access(r)
	if err != nil {
		return err
	}
	var in models.CreateGroupInput
	if err := h.decode(w, r, &in); err != nil {
		return err
	}
	id, err := h.svc.Keys.CreateConnectedGroup(r.Context(), access, in)
	if err != nil {
		return err
	}
	return writeResult(w, http.StatusCreated, groupCreated{GroupID: id})
}

func (h *Handler) ListGroups(w http.ResponseWriter, r *http.Request) error {
	app, actor, err := h.actor(r)
	if err != nil {
		return err
	}
	c, err := cursor(r)
	if err != nil {
		return err
	}
	groups, err := h.svc.Members.ListGroupsForUser(r.Context(), app, actor, c)
	if err != nil {
		return err
	}
	return writeResult(w, http.StatusOK, groups)
}

func (h *Handler) GroupData(w http.ResponseWriter, r *http.Request) error {
	access, err := h.access(r)
	if err != nil {
		return err
	}
	data, err := h.svc.Keys.GroupData(r.Context(), access)
	if err != nil {
		return err
	}
	return writeResult(w, http.StatusOK, data)
}

func (h *Handler) DeleteGroup(w http.ResponseWriter, r *http.Request) error {
	access, err := h.access(r)
	if err != nil {
		return err
	}
	if err := h.svc.Members.DeleteGroup(r.Context(), access); err != nil {
		return err
	}
	return writeOK(w)
}

func (h *Handler) Children(w http.ResponseWriter, r *http.Request) error {
	access, err := h.access(r)
	if err != nil {
		return err
	}
	c, err := cursor(r)
	if err != nil {
		return err
	}
	children, err := h.svc.Members.Children(r.Context(), access, c)
	if err != nil {
		return err
	}
	return writeResult(w, http.StatusOK, children)
}

func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) error {
	access, err := h.access(r)
	if err != nil {
		return err
	}
	c, err := cursor(r)
	if err != nil {
		return err
	}
	members, err := h.svc.Members.ListMembers(r.Context(), access, c)
	if err != nil {
		return err
	}
	return writeResult(w, http.StatusOK, members)
}

func (h *Handler) ChangeRank(w http.ResponseWriter, r *http.Request) error {
	access, err := h.access(r)
	if err != nil {
		return err
	}
	var in changeRankRequest
	if err := h.decode(w, r, &in); err != nil {
		return err
	}
	if err := h.svc.Members.ChangeRank(r.Context(), access, in.UserID, in.Rank); err != nil {
		return err
	}
	return writeOK(w)
}

func (h *Handler) Kick(w http.ResponseWriter, r *http.Request) error {
	access, err := h.access(r)
	if err != nil {
		return err
	}
	if err := h.svc.Members.Kick(r.Context(), access, mux.Vars(r)["userId"]); err != nil {
		return err
	}
	return writeOK(w)
}

func (h *Handler) Leave(w http.ResponseWriter, r *http.Request) error {
	access, err := h.access(r)
	if err != nil {
		return err
	}
	if err := h.svc.Members.Leave(r.Context(), access); err != nil {
		return err
	}
	return writeOK(w)
}

func (h *Handler) SetInviteEnabled(w http.ResponseWriter, r *http.Request) error {
	access, err := h.access(r)
	if err != nil {
		return err
	}
	var in inviteEnabledRequest
	if err := h.decode(w, r, &in); err != nil {
		return err
	}
	if err := h.svc.Members.SetInviteEnabled(r.Context(), access, in.Enabled); err != nil {
		return err
	}
	return writeOK(w)
}
