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

	"github.com/efchatnet/efgroup/backend/middleware"
	"github.com/efchatnet/efgroup/backend/models"
)

func (h *Handler) Invite(w http.ResponseWriter, r *http.Request) error {
	access, err := h.access(r)
	if err != nil {
		return err
	}
	var in models.InviteInput
	if err := h.decode(w, r, &in); err != nil {
		return err
	}
	session, err := h.svc.Invites.Invite(r.Context(), access, mux.Vars(r)["targetId"], in)
	if err != nil {
		return err
	}
	return writeResult(w, http.StatusCreated, models.KeySessionResult{SessionID: session})
}

func (h *Handler) AcceptInvite(w http.ResponseWriter, r *http.Request) error {
	app, actor, err := h.actor(r)
	if err != nil {
		return err
	}
	if err := h.svc.Invites.AcceptInvite(r.Context(), app, mux.Vars(r)["groupId"], actor); err != nil {
		return err
	}
	return writeOK(w)
}

func (h *Handler) RejectInvite(w http.ResponseWriter, r *http.Request) error {
	app, actor, err := h.actor(r)
	if err != nil {
		return err
	}
	if err := h.svc.Invites.RejectInvite(r.Context(), app, mux.Vars(r)["groupId"], actor); err != nil {
		return err
	}
	return writeOK(w)
}

// Join sends a join request, for a connected group when the as-group header is set.
func (h *Handler) Join(w http.ResponseWriter, r *http.Request) error {
	app, actor, err := h.actor(r)
	if err != nil {
		return err
	}
	target := models.TargetNormal
	if r.Header.Get(middleware.HeaderAsGroup) != "" {
		target = models.TargetGroup
	}
	if err := h.svc.Invites.Join(r.Context(), app, mux.Vars(r)["groupId"], actor, target); err != nil {
		return err
	}
	return writeResult(w, http.StatusCreated, "ok")
}

func (h *Handler) DeleteSentJoin(w http.ResponseWriter, r *http.Request) error {
	app, actor, err := h.actor(r)
	if err != nil {
		return err
	}
	if err := h.svc.Invites.DeleteSentJoin(r.Context(), app, mux.Vars(r)["groupId"], actor); err != nil {
		return err
	}
	return writeOK(w)
}

func (h *Handler) ListJoinRequests(w http.ResponseWriter, r *http.Request) error {
	access, err := h.access(r)
	if err != nil {
		return err
	}
	c, err := cursor(r)
	if err != nil {
		return err
	}
	reqs, err := h.svc.Invites.ListJoinRequests(r.Context(), access, c)
	if err != nil {
		return err
	}
	return writeResult(w, http.StatusOK, reqs)
}

func (h *Handler) AcceptJoin(w http.ResponseWriter, r *http.Request) error {
	access, err := h.access(r)
	if err != nil {
		return err
	}
	var in models.AcceptJoinInput
	if err := h.decode(w, r, &in); err != nil {
		return err
	}
	session, err := h.svc.Invites.AcceptJoin(r.Context(), access, mux.Vars(r)["targetId"], in)
	if err != nil {
		return err
	}
	return writeResult(w, http.StatusOK, models.KeySessionResult{SessionID: session})
}

func (h *Handler) RejectJoin(w http.ResponseWriter, r *http.Request) error {
	access, err := h.access(r)
	if err != nil {
		return err
	}
	if err := h.svc.Invites.RejectJoin(r.Context(), access, mux.Vars(r)["targetId"]); err != nil {
		return err
	}
	return writeOK(w)
}

func (h *Handler) ListInvites(w http.ResponseWriter, r *http.Request) error {
	app, actor, err := h.actor(r)
	if err != nil {
		return err
	}
	c, err := cursor(r)
	if err != nil {
		return err
	}
	reqs, err := h.svc.Invites.ListInvites(r.Context(), app, actor, c)
	if err != nil {
		return err
	}
	return writeResult(w, http.StatusOK, reqs)
}

func (h *Handler) ListSentJoins(w http.ResponseWriter, r *http.Request) error {
	app, actor, err := h.actor(r)
	if err != nil {
		return err
	}
	c, err := cursor(r)
	if err != nil {
		return err
	}
	reqs, err := h.svc.Invites.ListSentJoins(r.Context(), app, actor, c)
	if err != nil {
		return err
	}
	return writeResult(w, http.StatusOK, reqs)
}
