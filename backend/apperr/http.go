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

package apperr

import (
	"encoding/json"
	"net/http"
)

type response struct {
	Status  string `json:"status"`
	Code    int    `json:"error_code"`
	Message string `json:"error_message"`
}

// WriteJSON writes err as {"status":"err","error_code":N,"error_message":"..."}
// with the status of its kind. Internal causes are not exposed.
func WriteJSON(w http.ResponseWriter, err error) {
	e := From(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.Kind.HTTPStatus())
	_ = json.NewEncoder(w).Encode(response{Status: "err", Code: e.Code, Message: e.Message})
}
