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
	"fmt"

	"github.com/efchatnet/efgroup/backend/apperr"
	"github.com/efchatnet/efgroup/backend/models"
)

// Required ranks of the group actions.
const (
	RankCreateChild   = models.RankAdmin
	RankDeleteGroup   = models.RankAdmin
	RankChangeInvites = models.RankAdmin
	RankChangeRank    = models.RankAdmin
	RankInvite        = models.RankManager
	RankAcceptJoin    = models.RankManager
	RankKick          = models.RankManager
	RankUploadKeys    = models.RankManager
	RankActAsGroup    = models.RankAdmin
)

// CheckRank fails when actual > required. Lower ranks carry more privilege.
func CheckRank(actual, required int) error {
	if actual > required {
		return apperr.ErrGroupRank.Wrap(fmt.Errorf("rank %d, need %d or lower", actual, required))
	}
	return nil
}

// ValidateNewRank checks a rank the caller wants to hand out, either through a rank
// change or an invite. Rank 0 is reserved for the creator and nobody can grant more
// privilege than they hold.
func ValidateNewRank(callerRank, newRank int) error {
	if newRank < models.RankAdmin || newRank > models.RankMember {
		return apperr.InvalidInput(fmt.Sprintf("rank must be between %d and %d", models.RankAdmin, models.RankMember))
	}
	if newRank < callerRank {
		return apperr.ErrGroupRank.Wrap(fmt.Errorf("can not grant rank %d with rank %d", newRank, callerRank))
	}
	return nil
}
