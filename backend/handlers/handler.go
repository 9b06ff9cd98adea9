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
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/efchatnet/efgroup/backend/apperr"
	"github.com/efchatnet/efgroup/backend/middleware"
	"github.com/efchatnet/efgroup/backend/models"
	"github.com/efchatnet/efgroup/backend/service"
)

const maxBodyBytes = 4 << 20

type Handler struct {
	svc      *service.Services
	validate *validator.Validate
	log      zerolog.Logger
}

func NewHandler(svc *service.Services, log zerolog.Logger) *Handler {
	return &Handler{
		svc:      svc,
		validate: validator.New(),
		log:      log.With().Str("component", "http").Logger(),
	}
}

// Register mounts every group route on r. The caller applies authentication.
func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/group", h.handle(h.CreateGroup)).Methods(http.MethodPost)
	r.HandleFunc("/group", h.handle(h.ListGroups)).Methods(http.MethodGet)
	r.HandleFunc("/group/invites", h.handle(h.ListInvites)).Methods(http.MethodGet)
	r.HandleFunc("/group/joins", h.handle(h.ListSentJoins)).Methods(http.MethodGet)

	g := r.PathPrefix("/group/{groupId}").Subrouter()
	g.HandleFunc("", h.handle(h.GroupData)).Methods(http.MethodGet)
	g.HandleFunc("", h.handle(h.DeleteGroup)).Methods(http.MethodDelete)
	g.HandleFunc("/child", h.handle(h.CreateChildGroup)).Methods(http.MethodPost)
	g.HandleFunc("/connected", h.handle(h.CreateConnectedGroup)).Methods(http.MethodPost)
	g.HandleFunc("/children", h.handle(h.Children)).Methods(http.MethodGet)
	g.HandleFunc("/members", h.handle(h.ListMembers)).Methods(http.MethodGet)
	g.HandleFunc("/rank", h.handle(h.ChangeRank)).Methods(http.MethodPut)
	g.HandleFunc("/member/{userId}", h.handle(h.Kick)).Methods(http.MethodDelete)
	g.HandleFunc("/leave", h.handle(h.Leave)).Methods(http.MethodDelete)
	g.HandleFunc("/invite_enabled", h.handle(h.SetInviteEnabled)).Methods(http.MethodPut)

	g.HandleFunc("/keys", h.handle(h.FetchOwnKeys)).Methods(http.MethodGet)
	g.HandleFunc("/key/{keyId}", h.handle(h.FetchKey)).Methods(http.MethodGet)
	g.HandleFunc("/hmac_keys", h.handle(h.FetchHmacKeys)).Methods(http.MethodGet)
	g.HandleFunc("/public_key", h.handle(h.PublicKey)).Methods(http.MethodGet)
	g.HandleFunc("/update_check", h.handle(h.UpdateCheck)).Methods(http.MethodGet)
	g.HandleFunc("/member/{userId}/keys", h.handle(h.InsertUserKeys)).Methods(http.MethodPost)
	g.HandleFunc("/key_session/{sessionId}", h.handle(h.InsertUserKeysViaSession)).Methods(http.MethodPost)

	g.HandleFunc("/invite/{targetId}", h.handle(h.Invite)).Methods(http.MethodPost)
	g.HandleFunc("/invite", h.handle(h.AcceptInvite)).Methods(http.MethodPut)
	g.HandleFunc("/invite", h.handle(h.RejectInvite)).Methods(http.MethodDelete)
	g.HandleFunc("/join", h.handle(h.Join)).Methods(http.MethodPost)
	g.HandleFunc("/join", h.handle(h.DeleteSentJoin)).Methods(http.MethodDelete)
	g.HandleFunc("/join_req", h.handle(h.ListJoinRequests)).Methods(http.MethodGet)
	g.HandleFunc("/join_req/{targetId}", h.handle(h.AcceptJoin)).Methods(http.MethodPut)
	g.HandleFunc("/join_req/{targetId}", h.handle(h.RejectJoin)).Methods(http.MethodDelete)

	g.HandleFunc("/key_rotation", h.handle(h.StartRotation)).Methods(http.MethodPost)
	g.HandleFunc("/key_rotation", h.handle(h.PendingRotations)).Methods(http.MethodGet)
	g.HandleFunc("/key_rotation/{keyId}", h.handle(h.CompleteRotation)).Methods(http.MethodPut)
}

type apiFunc func(w http.ResponseWriter, r *http.Request) error

func (h *Handler) handle(fn apiFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := fn(w, r)
		if err == nil {
			return
		}
		e := apperr.From(err)
		if e.Kind == apperr.KindInternal {
			h.log.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("request failed")
		} else {
			h.log.Debug().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("request rejected")
		}
		apperr.WriteJSON(w, e)
	}
}

type result struct {
	Status string      `json:"status"`
	Result interface{} `json:"result"`
}

func writeResult(w http.ResponseWriter, status int, v interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(result{Status: "ok", Result: v})
	return nil
}

func writeOK(w http.ResponseWriter) error {
	return writeResult(w, http.StatusOK, "ok")
}

func principal(r *http.Request) (middleware.Principal, error) {
	p, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		return middleware.Principal{}, apperr.ErrUnauthorized
	}
	return p, nil
}

// access resolves the caller's membership in the {groupId} of the route.
func (h *Handler) access(r *http.Request) (*models.GroupAccess, error) {
	p, err := principal(r)
	if err != nil {
		return nil, err
	}
	return h.svc.Access.Resolve(r.Context(), p.AppID, mux.Vars(r)["groupId"], p.UserID, r.Header.Get(middleware.HeaderAsGroup))
}

// actor returns the app and the id the caller acts as: the user, or the group
// named in the as-group header when the user administers it.
func (h *Handler) actor(r *http.Request) (appID, actorID string, err error) {
	p, err := principal(r)
	if err != nil {
		return "", "", err
	}
	actorID, err = h.svc.Access.ResolveActor(r.Context(), p.AppID, p.UserID, r.Header.Get(middleware.HeaderAsGroup))
	if err != nil {
		return "", "", err
	}
	return p.AppID, actorID, nil
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v interface{}) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		return apperr.ErrJSONParse.Wrap(err)
	}
	if err := h.validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return apperr.InvalidInput(fmt.Sprintf("field %s failed on %s", verrs[0].Namespace(), verrs[0].Tag()))
		}
		return apperr.InvalidInput(err.Error())
	}
	return nil
}

// cursor reads the seek position from last_time (unix millis) and last_id.
func cursor(r *http.Request) (models.Cursor, error) {
	q := r.URL.Query()
	var c models.Cursor
	if raw := q.Get("last_time"); raw != "" {
		ms, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || ms < 0 {
			return c, apperr.InvalidInput("last_time must be unix milliseconds")
		}
		c.Time = time.UnixMilli(ms).UTC()
	}
	c.ID = q.Get("last_id")
	return c, nil
}
