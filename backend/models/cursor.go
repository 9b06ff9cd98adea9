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

package models

import (
	"time"
)

// Page sizes of the list endpoints.
const (
	PageSize        = 50
	RequestPageSize = 20
)

// Cursor is a seek position (last seen time, last seen id). The zero value starts
// from the beginning.
type Cursor struct {
	Time time.Time
	ID   string
}

func (c Cursor) IsZero() bool {
	return c.Time.IsZero() && c.ID == ""
}

// After reports whether (t, id) comes after the cursor in (time, id) ascending order.
func (c Cursor) After(t time.Time, id string) bool {
	if c.IsZero() {
		return true
	}
	return t.After(c.Time) || (t.Equal(c.Time) && id > c.ID)
}

// AfterDesc is After for lists ordered by time descending and id ascending.
func (c Cursor) AfterDesc(t time.Time, id string) bool {
	if c.IsZero() {
		return true
	}
	return t.Before(c.Time) || (t.Equal(c.Time) && id > c.ID)
}
