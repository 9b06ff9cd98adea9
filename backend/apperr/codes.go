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

const (
	CodeInternal     = 1
	CodeInvalidInput = 100
	CodeJSONParse    = 101
	CodeUnauthorized = 110

	CodeGroupAccess         = 310
	CodeGroupRank           = 311
	CodeCreatorImmutable    = 312
	CodeOnlyOneAdmin        = 313
	CodeLeaveInherited      = 314
	CodeAlreadyMember       = 320
	CodeInviteExists        = 321
	CodeInviteNotFound      = 322
	CodeJoinNotFound        = 323
	CodeInviteDisabled      = 324
	CodeConnectedNesting    = 325
	CodeGroupNotConnected   = 326
	CodeInviteSelf          = 327
	CodePrivateGroup        = 328
	CodeMemberNotFound      = 330
	CodeTooManyKeys         = 340
	CodeKeySessionNotFound  = 341
	CodeHierarchyCorrupt    = 350
	CodeKeyNotFound         = 510
	CodeRotationTaskMissing = 511
	CodeRotationQuota       = 512
	CodePreviousKeyNotFound = 513
	CodeStaleRotationKey    = 514
)
