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

var (
	// Domain errors. A group the caller cannot see is reported exactly like one that
	// does not exist.
	ErrGroupAccess         = New(KindAccessDenied, CodeGroupAccess, "no access to this group")
	ErrGroupRank           = New(KindAccessDenied, CodeGroupRank, "wrong group rank for this action")
	ErrCreatorImmutable    = New(KindInvalidState, CodeCreatorImmutable, "the group creator can not be changed, kicked or leave")
	ErrOnlyOneAdmin        = New(KindInvalidState, CodeOnlyOneAdmin, "only one admin left in the group, promote another member first")
	ErrLeaveInherited      = New(KindInvalidState, CodeLeaveInherited, "access comes from a parent group, leave the parent instead")
	ErrAlreadyMember       = New(KindConflict, CodeAlreadyMember, "user is already a member of this group")
	ErrInviteExists        = New(KindConflict, CodeInviteExists, "user was already invited")
	ErrInviteNotFound      = New(KindNotFound, CodeInviteNotFound, "invite not found")
	ErrJoinNotFound        = New(KindNotFound, CodeJoinNotFound, "join request not found")
	ErrInviteDisabled      = New(KindInvalidState, CodeInviteDisabled, "this group does not accept invites or join requests")
	ErrConnectedNesting    = New(KindInvalidState, CodeConnectedNesting, "a connected group can not be a member of another connected group")
	ErrGroupNotConnected   = New(KindInvalidState, CodeGroupNotConnected, "only connected groups accept groups as members")
	ErrInviteSelf          = New(KindInvalidState, CodeInviteSelf, "a group can not be a member of itself")
	ErrPrivateGroup        = New(KindInvalidState, CodePrivateGroup, "user private groups have no other members")
	ErrMemberNotFound      = New(KindNotFound, CodeMemberNotFound, "member not found")
	ErrTooManyKeys         = New(KindInvalidInput, CodeTooManyKeys, "too many keys in one request, use a key session")
	ErrKeySessionNotFound  = New(KindNotFound, CodeKeySessionNotFound, "key upload session not found")
	ErrHierarchyCorrupt    = New(KindInternal, CodeHierarchyCorrupt, "group hierarchy is corrupt")
	ErrKeyNotFound         = New(KindNotFound, CodeKeyNotFound, "group key not found")
	ErrRotationTaskMissing = New(KindNotFound, CodeRotationTaskMissing, "no key rotation pending for this key")
	ErrRotationQuota       = New(KindQuotaExceeded, CodeRotationQuota, "monthly key rotation limit reached")
	ErrPreviousKeyNotFound = New(KindNotFound, CodePreviousKeyNotFound, "previous group key not found in this group")
	ErrStaleRotationKey    = New(KindConflict, CodeStaleRotationKey, "previous group key is not the newest key, fetch the group keys again")
	ErrUnauthorized        = New(KindUnauthenticated, CodeUnauthorized, "unauthorized")
	ErrJSONParse           = New(KindInvalidInput, CodeJSONParse, "invalid request body")
)
