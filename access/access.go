// Copyright (C) 2023 The Gala Authors.
//
// This file is part of Gala.
//
// Gala is free software: you can redistribute it and/or modify it under the
// terms of the GNU Affero General Public License as published by the Free
// Software Foundation, either version 3 of the License, or (at your option)
// any later version.
//
// Gala is distributed in the hope that it will be useful, but WITHOUT ANY
// WARRANTY; without even the implied warranty of MERCHANTABILITY or FITNESS
// FOR A PARTICULAR PURPOSE.  See the GNU Affero General Public License for
// more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with Gala.  If not, see <https://www.gnu.org/licenses/>.

// Package access decides which roles may mutate which resources. It is a
// pure decision table with no side effects and must be consulted on every
// mutation path before any store is touched.
package access

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleStandard Role = "standard"
)

type Resource string

const (
	ResourceMovie     Resource = "movie"
	ResourceAward     Resource = "award"
	ResourceViewAward Resource = "viewaward"
)

type Operation string

const (
	OperationInsert   Operation = "insert"
	OperationUpdate   Operation = "update"
	OperationDelete   Operation = "delete"
	OperationSetFlags Operation = "flags"
)

// Allowed reports whether role may perform op on resource. Canonical data
// (movie, award) is admin only. The viewaward projection is derived and
// never mutated directly; the only viewaward mutation is a user setting
// their own flags, which any signed-in role may do.
func Allowed(role Role, resource Resource, op Operation) bool {
	switch resource {
	case ResourceMovie, ResourceAward:
		switch op {
		case OperationInsert, OperationUpdate, OperationDelete:
			return role == RoleAdmin
		}
		return false
	case ResourceViewAward:
		return op == OperationSetFlags &&
			(role == RoleAdmin || role == RoleStandard)
	}
	return false
}
