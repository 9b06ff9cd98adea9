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

type updateCheck struct {
	KeyUpdate bool `json:"key_update"`
}

func (h *Handler) FetchOwnKeys(w http.ResponseWriter, r *http.Request) error {
	access, err := h.access(r)
	if err != nil {
		return err
	}
	c, err := cursor(r)
	if err != nil {
		return err
	}
	keys, err := h.svc.Keys.FetchOwnKeys(r.Context(), access, c)
	if err != nil {
		return err
	}
	return writeResult(w, http.StatusOK, keys)
}

func (h *Handler) FetchKey(w http.ResponseWriter, r *http.Request) error {
	access, err := h.access(r)
	if err != nil {
		return err
	}
	key, err := h.svc.Keys.FetchKey(r.Context(), access, mux.Vars(r)["keyId"])
	if err != nil {
		return err
	}
	return writeResult(w, http.StatusOK, key)
}

func (h *Handler) FetchHmacKeys(w http.ResponseWriter, r *http.Request) error {
	access, err := h.access(r)
	if err != nil {
		return err
	}
	c, err := cursor(r)
	if err != nil {
		return err
	}
	keys, err := h.svc.Keys.FetchHmacKeys(r.Context(), access, c)
	if err != nil {
		return err
	}
	return writeResult(w, http.StatusOK, keys)
}

// PublicKey needs no membership, only an authenticated caller of the same app.
func (h *Handler) PublicKey(w http.ResponseWriter, r *http.Request) error {
	p, err := principal(r)
	if err != nil {
		return err
	}
	key, err := h.svc.Keys.PublicKey(r.Context(), p.AppID, mux.Vars(r)["groupId"])
	if err != nil {
		return err
	}
	return writeResult(w, http.StatusOK, key)
}

func (h *Handler) UpdateCheck(w http.ResponseWriter, r *http.Request) error {
	access, err := h.access(r)
	if err != nil {
		return err
	}
	pending, err := h.svc.Keys.HasPendingKeyUpdate(r.Context(), access)
	if err != nil {
		return err
	}
	return writeResult(w, http.StatusOK, updateCheck{KeyUpdate: pending})
}

func (h *Handler) InsertUserKeys(w http.ResponseWriter, r *http.Request) error {
	access, err := h.access(r)
	if err != nil {
		return err
	}
	var in models.UserKeysInput
	if err := h.decode(w, r, &in); err != nil {
		return err
	}
	if err := h.svc.Keys.InsertUserKeys(r.Context(), access, mux.Vars(r)["userId"], in.Keys); err != nil {
		return err
	}
	return writeOK(w)
}

func (h *Handler) InsertUserKeysViaSession(w http.ResponseWriter, r *http.Request) error {
	access, err := h.access(r)
	if err != nil {
		return err
	}
	var in models.UserKeysInput
	if err := h.decode(w, r, &in); err != nil {
		return err
	}
	if err := h.svc.Keys.InsertUserKeysViaSession(r.Context(), access, mux.Vars(r)["sessionId"], in.Keys); err != nil {
		return err
	}
	return writeOK(w)
}

type rotationStarted struct {
	KeyID string `json:"key_id"`
}

func (h *Handler) StartRotation(w http.ResponseWriter, r *http.Request) error {
	access, err := h.access(r)
	if err != nil {
		return err
	}
	var in models.RotationInput
	if err := h.decode(w, r, &in); err != nil {
		return err
	}
	keyID, err := h.svc.Rotation.StartRotation(r.Context(), access, in)
	if err != nil {
		return err
	}
	return writeResult(w, http.StatusCreated, rotationStarted{KeyID: keyID})
}

func (h *Handler) PendingRotations(w http.ResponseWriter, r *http.Request) error {
	access, err := h.access(r)
	if err != nil {
		return err
	}
	items, err := h.svc.Rotation.PendingRotations(r.Context(), access)
	if err != nil {
		return err
	}
	return writeResult(w, http.StatusOK, items)
}

func (h *Handler) CompleteRotation(w http.ResponseWriter, r *http.Request) error {
	access, err := h.access(r)
	if err != nil {
		return err
	}
	var in models.CompleteRotationInput
	if err := h.decode(w, r, &in); err != nil {
		return err
	}
	if err := h.svc.Rotation.CompleteRotation(r.Context(), access, mux.Vars(r)["keyId"], in); err != nil {
		return err
	}
	return writeOK(w)
}
