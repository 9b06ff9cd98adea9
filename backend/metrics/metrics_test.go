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

package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	c := New(prometheus.NewRegistry())

	c.Transition("invite")
	c.Transition("invite")
	c.CacheHit()
	c.CacheMiss()
	c.Rotation("started")

	assert.Equal(t, 2.0, testutil.ToFloat64(c.transitions.WithLabelValues("invite")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.cacheLookups.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.rotations.WithLabelValues("started")))
}

func TestMiddlewareUsesRouteTemplate(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	r := mux.NewRouter()
	r.Use(c.Middleware)
	r.HandleFunc("/group/{groupId}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/group/abc", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)

	n, err := testutil.GatherAndCount(reg, "efgroup_http_request_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
