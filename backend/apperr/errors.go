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
	"errors"
	"fmt"
	"net/http"
)

// Kind groups error codes by how a client should react to them.
type Kind int

const (
	KindInternal Kind = iota
	KindAccessDenied
	KindConflict
	KindNotFound
	KindQuotaExceeded
	KindInvalidState
	KindInvalidInput
	KindUnauthenticated
)

func (k Kind) String() string {
	switch k {
	case KindAccessDenied:
		return "access_denied"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindQuotaExceeded:
		return "quota_exceeded"
	case KindInvalidState:
		return "invalid_state"
	case KindInvalidInput:
		return "invalid_input"
	case KindUnauthenticated:
		return "unauthenticated"
	default:
		return "internal"
	}
}

// HTTPStatus maps the kind onto the response status.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindAccessDenied:
		return http.StatusForbidden
	case KindConflict:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	case KindQuotaExceeded:
		return http.StatusTooManyRequests
	case KindInvalidState, KindInvalidInput:
		return http.StatusBadRequest
	case KindUnauthenticated:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// Error is the (numeric code, message) pair clients match on.
type Error struct {
	Code    int    `json:"error_code"`
	Kind    Kind   `json:"-"`
	Message string `json:"error_message"`
	Cause   error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches on the code so wrapped copies of a sentinel still compare equal.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// Constructors
func New(kind Kind, code int, message string) *Error {
	return &Error{Code: code, Kind: kind, Message: message}
}

// Wrap attaches a cause to a copy of e.
func (e *Error) Wrap(cause error) error {
	return &Error{Code: e.Code, Kind: e.Kind, Message: e.Message, Cause: cause}
}

func Internal(cause error) error {
	return &Error{Code: CodeInternal, Kind: KindInternal, Message: "internal server error", Cause: cause}
}

func InvalidInput(msg string) error {
	return New(KindInvalidInput, CodeInvalidInput, msg)
}

// From returns the *Error inside err, turning anything else into an internal error.
func From(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Code: CodeInternal, Kind: KindInternal, Message: "internal server error", Cause: err}
}

// KindOf is From(err).Kind.
func KindOf(err error) Kind {
	return From(err).Kind
}
