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

package policy

import (
	"context"

	"github.com/efchatnet/efgroup/backend/models"
)

// AppPolicy is the per-tenant numeric policy the key rotation consults.
type AppPolicy struct {
	MinRankKeyRotation  int `mapstructure:"min_rank_key_rotation"`
	MaxKeyRotationMonth int `mapstructure:"max_key_rotation_month"`
}

// DefaultAppPolicy applies to every app without an override.
var DefaultAppPolicy = AppPolicy{
	MinRankKeyRotation:  models.RankAdmin,
	MaxKeyRotationMonth: 100,
}

// Provider supplies the policy of an app.
type Provider interface {
	AppPolicy(ctx context.Context, appID string) (AppPolicy, error)
}

// StaticProvider serves policies from configuration.
type StaticProvider struct {
	defaults  AppPolicy
	overrides map[string]AppPolicy
}

func NewStaticProvider(defaults AppPolicy, overrides map[string]AppPolicy) *StaticProvider {
	p := &StaticProvider{
		defaults:  defaults.normalize(DefaultAppPolicy),
		overrides: make(map[string]AppPolicy, len(overrides)),
	}
	for appID, o := range overrides {
		p.overrides[appID] = o.normalize(p.defaults)
	}
	return p
}

func (p *StaticProvider) AppPolicy(_ context.Context, appID string) (AppPolicy, error) {
	if o, ok := p.overrides[appID]; ok {
		return o, nil
	}
	return p.defaults, nil
}

// normalize clamps the rotation rank into [creator, member] and falls back to
// fallback for unset values.
func (a AppPolicy) normalize(fallback AppPolicy) AppPolicy {
	if a.MinRankKeyRotation <= models.RankCreator {
		a.MinRankKeyRotation = fallback.MinRankKeyRotation
	}
	if a.MinRankKeyRotation > models.RankMember {
		a.MinRankKeyRotation = models.RankMember
	}
	if a.MaxKeyRotationMonth <= 0 {
		a.MaxKeyRotationMonth = fallback.MaxKeyRotationMonth
	}
	return a
}
