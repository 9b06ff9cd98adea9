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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/efchatnet/efgroup/backend/apperr"
	"github.com/efchatnet/efgroup/backend/models"
)

func TestCheckRank(t *testing.T) {
	// lower is more privilege: a creator passes every check, a member only its own
	assert.NoError(t, CheckRank(models.RankCreator, RankDeleteGroup))
	assert.NoError(t, CheckRank(models.RankAdmin, RankDeleteGroup))
	assert.NoError(t, CheckRank(models.RankManager, RankKick))
	assert.ErrorIs(t, CheckRank(models.RankManager, RankDeleteGroup), apperr.ErrGroupRank)
	assert.ErrorIs(t, CheckRank(models.RankMember, RankInvite), apperr.ErrGroupRank)
	assert.NoError(t, CheckRank(models.RankMember, models.RankMember))
}

func TestValidateNewRank(t *testing.T) {
	t.Run("rank 0 can never be handed out", func(t *testing.T) {
		err := ValidateNewRank(models.RankCreator, models.RankCreator)
		assert.Equal(t, apperr.KindInvalidInput, apperr.KindOf(err))
	})

	t.Run("out of range", func(t *testing.T) {
		err := ValidateNewRank(models.RankAdmin, 5)
		assert.Equal(t, apperr.KindInvalidInput, apperr.KindOf(err))
	})

	t.Run("manager can not grant admin", func(t *testing.T) {
		err := ValidateNewRank(models.RankManager, models.RankAdmin)
		assert.ErrorIs(t, err, apperr.ErrGroupRank)
	})

	t.Run("manager can grant manager and member", func(t *testing.T) {
		assert.NoError(t, ValidateNewRank(models.RankManager, models.RankManager))
		assert.NoError(t, ValidateNewRank(models.RankManager, models.RankMember))
	})
}

func TestStaticProvider(t *testing.T) {
	p := NewStaticProvider(AppPolicy{}, map[string]AppPolicy{
		"strict": {MinRankKeyRotation: 0, MaxKeyRotationMonth: 2},
		"loose":  {MinRankKeyRotation: 9},
	})

	def, err := p.AppPolicy(context.Background(), "unknown")
	require.NoError(t, err)
	assert.Equal(t, DefaultAppPolicy, def)

	strict, err := p.AppPolicy(context.Background(), "strict")
	require.NoError(t, err)
	assert.Equal(t, models.RankAdmin, strict.MinRankKeyRotation)
	assert.Equal(t, 2, strict.MaxKeyRotationMonth)

	loose, err := p.AppPolicy(context.Background(), "loose")
	require.NoError(t, err)
	assert.Equal(t, models.RankMember, loose.MinRankKeyRotation)
	assert.Equal(t, DefaultAppPolicy.MaxKeyRotationMonth, loose.MaxKeyRotationMonth)
}
