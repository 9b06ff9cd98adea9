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

package integration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/efchatnet/efgroup/backend/cache"
	"github.com/efchatnet/efgroup/backend/config"
	"github.com/efchatnet/efgroup/backend/handlers"
	"github.com/efchatnet/efgroup/backend/metrics"
	"github.com/efchatnet/efgroup/backend/middleware"
	"github.com/efchatnet/efgroup/backend/policy"
	"github.com/efchatnet/efgroup/backend/service"
	"github.com/efchatnet/efgroup/backend/storage"
	"github.com/efchatnet/efgroup/backend/storage/memory"
	"github.com/efchatnet/efgroup/backend/storage/postgres"
	redisstore "github.com/efchatnet/efgroup/backend/storage/redis"
)

// Module is the group key backend as a plugin for efchat. The standalone server
// uses it the same way.
type Module struct {
	cfg      config.Config
	store    storage.Store
	services *service.Services
	handler  *handlers.Handler
	metrics  *metrics.Collector
	log      zerolog.Logger
}

// Config holds the resources efchat already owns. DB is required for the postgres
// driver; Redis is required for the redis cache and lifecycle events.
type Config struct {
	App        config.Config
	DB         *sql.DB
	Redis      *redis.Client
	Logger     zerolog.Logger
	Registerer prometheus.Registerer
}

// New builds the module and migrates the database.
func New(ctx context.Context, c Config) (*Module, error) {
	if err := c.App.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	log := c.Logger.With().Str("module", "efgroup").Logger()

	store, err := newStore(ctx, c)
	if err != nil {
		return nil, err
	}

	membershipCache, err := newCache(c)
	if err != nil {
		return nil, err
	}

	var hook service.LifecycleHook
	if c.App.Lifecycle.Channel != "" {
		if c.Redis == nil {
			return nil, errors.New("lifecycle events need a redis client")
		}
		hook = redisstore.NewLifecyclePublisher(c.Redis, c.App.Lifecycle.Channel)
	}

	collector := metrics.New(c.Registerer)
	svc := service.New(service.Deps{
		Store:   store,
		Cache:   membershipCache,
		Policy:  policy.NewStaticProvider(c.App.Policy.Defaults, c.App.Policy.Apps),
		Hook:    hook,
		Metrics: collector,
		Logger:  log,
	})

	log.Info().
		Str("storage", c.App.Storage.Driver).
		Str("cache", c.App.Cache.Backend).
		Bool("lifecycle_events", hook != nil).
		Msg("group key module ready")

	return &Module{
		cfg:      c.App,
		store:    store,
		services: svc,
		handler:  handlers.NewHandler(svc, log),
		metrics:  collector,
		log:      log,
	}, nil
}

func newStore(ctx context.Context, c Config) (storage.Store, error) {
	switch c.App.Storage.Driver {
	case "memory":
		return memory.NewStore(), nil
	case "postgres":
		if c.DB == nil {
			return nil, errors.New("postgres driver needs a database handle")
		}
		store := postgres.NewStore(c.DB)
		if err := store.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("failed to migrate: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", c.App.Storage.Driver)
	}
}

func newCache(c Config) (cache.MembershipCache, error) {
	switch c.App.Cache.Backend {
	case "none":
		return cache.Nop{}, nil
	case "redis":
		if c.Redis == nil {
			return nil, errors.New("redis cache needs a redis client")
		}
		return redisstore.NewMembershipCache(c.Redis, c.App.Cache.TTL), nil
	default:
		return cache.NewLocalCache(c.App.Cache.Size, c.App.Cache.TTL), nil
	}
}

// RegisterRoutes mounts the API under /api/v1 of router. A nil authMiddleware uses
// the built-in JWT validation.
func (m *Module) RegisterRoutes(router *mux.Router, authMiddleware func(http.Handler) http.Handler) {
	api := router.PathPrefix("/api/v1").Subrouter()
	if authMiddleware == nil {
		authMiddleware = middleware.NewAuthMiddleware(m.cfg.Auth.Secret, m.cfg.Auth.Issuer)
	}
	api.Use(m.metrics.Middleware)
	api.Use(authMiddleware)
	m.handler.Register(api)
}

func (m *Module) Services() *service.Services {
	return m.services
}

// Ping checks the storage backend.
func (m *Module) Ping(ctx context.Context) error {
	return m.store.Ping(ctx)
}
