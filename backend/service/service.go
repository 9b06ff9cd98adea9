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

// Package service implements group membership, the invite and join state machine,
// key distribution and key rotation on top of a storage.Store.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"

	"github.com/efchatnet/efgroup/backend/apperr"
	"github.com/efchatnet/efgroup/backend/cache"
	"github.com/efchatnet/efgroup/backend/hierarchy"
	"github.com/efchatnet/efgroup/backend/metrics"
	"github.com/efchatnet/efgroup/backend/models"
	"github.com/efchatnet/efgroup/backend/policy"
	"github.com/efchatnet/efgroup/backend/storage"
)

// MaxKeysPerRequest is the most key copies one request may carry. Larger groups
// upload the rest through a key session.
const MaxKeysPerRequest = 100

//go:generate mockgen -destination=../mocks/mock_lifecycle.go -package=mocks . LifecycleHook

// LifecycleHook is told about deleted groups so that data kept elsewhere can be
// cleaned up.
type LifecycleHook interface {
	GroupsDeleted(ctx context.Context, appID string, groupIDs []string) error
}

type nopHook struct{}

func (nopHook) GroupsDeleted(context.Context, string, []string) error { return nil }

type Deps struct {
	Store   storage.Store
	Cache   cache.MembershipCache
	Policy  policy.Provider
	Hook    LifecycleHook
	Metrics *metrics.Collector
	Logger  zerolog.Logger
	// Now and NewID are replaced in tests.
	Now   func() time.Time
	NewID func() string
}

func (d Deps) withDefaults() Deps {
	if d.Cache == nil {
		d.Cache = cache.Nop{}
	}
	if d.Policy == nil {
		d.Policy = policy.NewStaticProvider(policy.DefaultAppPolicy, nil)
	}
	if d.Hook == nil {
		d.Hook = nopHook{}
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.NewID == nil {
		d.NewID = uuid.NewString
	}
	return d
}

// Services bundles everything the HTTP layer calls.
type Services struct {
	Access   *Access
	Members  *MembershipService
	Invites  *InviteJoinService
	Keys     *KeyDistributionService
	Rotation *KeyRotationCoordinator
}

func New(d Deps) *Services {
	d = d.withDefaults()
	b := &base{
		store:     d.Store,
		cache:     d.Cache,
		hierarchy: hierarchy.NewResolver(d.Store),
		metrics:   d.Metrics,
		nowFn:     d.Now,
		newID:     d.NewID,
	}
	access := &Access{base: b.named(d.Logger, "access")}
	b.access = access

	return &Services{
		Access:   access,
		Members:  &MembershipService{base: b.named(d.Logger, "membership"), hook: d.Hook},
		Invites:  &InviteJoinService{base: b.named(d.Logger, "invites")},
		Keys:     &KeyDistributionService{base: b.named(d.Logger, "keys")},
		Rotation: &KeyRotationCoordinator{base: b.named(d.Logger, "rotation"), policy: d.Policy},
	}
}

// base is shared by all services.
type base struct {
	store     storage.Store
	cache     cache.MembershipCache
	hierarchy *hierarchy.Resolver
	access    *Access
	metrics   *metrics.Collector
	log       zerolog.Logger
	nowFn     func() time.Time
	newID     func() string
}

func (b *base) named(log zerolog.Logger, component string) *base {
	c := *b
	c.log = log.With().Str("component", component).Logger()
	return &c
}

// now is truncated to milliseconds, the precision of the pagination cursors.
func (b *base) now() time.Time {
	return b.nowFn().UTC().Truncate(time.Millisecond)
}

func (b *base) group(ctx context.Context, q storage.Querier, appID, groupID string) (*models.Group, error) {
	g, err := q.GetGroup(ctx, appID, groupID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.ErrGroupAccess
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return g, nil
}

// invalidate drops the cached access of the principals in groupID and every group
// below it, where they may have had access through groupID. Failures are logged; the
// cache TTL bounds how long a stale entry lives.
func (b *base) invalidate(ctx context.Context, appID, groupID string, principals ...string) {
	ids, err := b.hierarchy.DescendantIDs(ctx, appID, groupID)
	if err != nil {
		b.log.Error().Err(err).Str("group_id", groupID).Msg("failed to collect subtree for cache invalidation")
		ids = []string{groupID}
	}
	b.invalidateAll(ctx, appID, ids, principals)
}

func (b *base) invalidateAll(ctx context.Context, appID string, groupIDs, principals []string) {
	var result *multierror.Error
	for _, groupID := range groupIDs {
		keys := make([]string, 0, len(principals))
		for _, p := range principals {
			keys = append(keys, cache.Key(appID, groupID, p))
		}
		if err := b.cache.Invalidate(ctx, keys...); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if err := result.ErrorOrNil(); err != nil {
		b.log.Error().Err(err).Str("app_id", appID).Msg("failed to invalidate membership cache")
	}
}

// tx runs fn in a transaction and keeps domain errors intact. Anything else becomes
// an internal error.
func (b *base) tx(ctx context.Context, fn func(q storage.Querier) error) error {
	return wrapInternal(b.store.WithTx(ctx, fn))
}

func wrapInternal(err error) error {
	if err == nil {
		return nil
	}
	var e *apperr.Error
	if errors.As(err, &e) {
		return err
	}
	return apperr.Internal(err)
}

func checkKeyCount(keys []models.UserKeyInput) error {
	if len(keys) > MaxKeysPerRequest {
		return apperr.ErrTooManyKeys
	}
	return nil
}

func keyCopies(keys []models.UserKeyInput, groupID, userID string, now time.Time) []models.GroupUserKey {
	copies := make([]models.GroupUserKey, 0, len(keys))
	for _, k := range keys {
		copies = append(copies, k.Copy(groupID, userID, now))
	}
	return copies
}

// upsertKeys writes key copies and maps a reference to a foreign key id.
func upsertKeys(ctx context.Context, q storage.Querier, copies []models.GroupUserKey) error {
	if len(copies) == 0 {
		return nil
	}
	err := q.UpsertUserKeys(ctx, copies)
	if errors.Is(err, storage.ErrUnknownKey) {
		return apperr.ErrKeyNotFound.Wrap(err)
	}
	return err
}
