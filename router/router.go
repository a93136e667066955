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

package router

import (
	"github.com/edmundjohnson/gala/access"
	"github.com/edmundjohnson/gala/cache"
	"github.com/edmundjohnson/gala/query"
	"github.com/edmundjohnson/gala/remote"
)

// Router dispatches addressed requests. Reads are answered from the cache,
// mutations go through the gate and then the remote gateway.
type Router struct {
	remote *remote.Remote
	cache  *cache.Cache
}

func NewRouter(r *remote.Remote, c *cache.Cache) *Router {
	return &Router{remote: r, cache: c}
}

// Get answers an identified read. The concrete type depends on the
// resource: cache.Movie, cache.Award or cache.ViewAward.
func (r *Router) Get(user, addr string) (interface{}, error) {
	t, err := Resolve(addr)
	if err != nil {
		return nil, err
	}
	if t.Collection {
		return nil, ErrUnsupportedAddress
	}
	switch t.Resource {
	case access.ResourceMovie:
		return r.cache.Movie(t.ID)
	case access.ResourceAward:
		return r.cache.Award(uint(t.ID))
	case access.ResourceViewAward:
		return r.cache.ViewAward(user, uint(t.ID))
	}
	return nil, ErrUnsupportedAddress
}

// Query answers a viewaward collection read, decoding the address query
// string into a spec first.
func (r *Router) Query(user, addr string) ([]cache.ViewAward, error) {
	t, err := Resolve(addr)
	if err != nil {
		return nil, err
	}
	if t.Resource != access.ResourceViewAward || !t.Collection {
		return nil, ErrUnsupportedAddress
	}
	spec, err := query.Decode(t.RawQuery)
	if err != nil {
		return nil, err
	}
	return r.cache.Query(user, spec), nil
}

// Insert creates the payload record under a collection address and returns
// its id. Movies are keyed by their external id, awards by the assigned id.
func (r *Router) Insert(role access.Role, addr string, payload interface{}) (int64, error) {
	t, err := Resolve(addr)
	if err != nil {
		return 0, err
	}
	if !t.Collection {
		return 0, ErrUnsupportedAddress
	}
	if !access.Allowed(role, t.Resource, access.OperationInsert) {
		return 0, ErrInsufficientPrivileges
	}
	switch t.Resource {
	case access.ResourceMovie:
		m, ok := payload.(remote.Movie)
		if !ok {
			return 0, ErrBadPayload
		}
		if _, err = r.remote.UpsertMovie(m); err != nil {
			return 0, err
		}
		return m.MovieID, nil
	case access.ResourceAward:
		a, ok := payload.(remote.Award)
		if !ok {
			return 0, ErrBadPayload
		}
		id, err := r.remote.UpsertAward(a)
		if err != nil {
			return 0, err
		}
		return int64(id), nil
	}
	return 0, ErrInsufficientPrivileges
}

// Update replaces the record at an identified address and returns the rows
// affected. The address id and the payload's embedded id must agree;
// disagreement is a caller bug, not a preference to resolve.
func (r *Router) Update(role access.Role, addr string, payload interface{}) (int64, error) {
	t, err := Resolve(addr)
	if err != nil {
		return 0, err
	}
	if t.Collection {
		return 0, ErrUnsupportedAddress
	}
	if !access.Allowed(role, t.Resource, access.OperationUpdate) {
		return 0, ErrInsufficientPrivileges
	}
	switch t.Resource {
	case access.ResourceMovie:
		m, ok := payload.(remote.Movie)
		if !ok {
			return 0, ErrBadPayload
		}
		if m.MovieID != t.ID {
			return 0, remote.ErrIdentityMismatch
		}
		return r.remote.UpsertMovie(m)
	case access.ResourceAward:
		a, ok := payload.(remote.Award)
		if !ok {
			return 0, ErrBadPayload
		}
		if int64(a.ID) != t.ID {
			return 0, remote.ErrIdentityMismatch
		}
		if _, err = r.remote.UpsertAward(a); err != nil {
			return 0, err
		}
		return 1, nil
	}
	return 0, ErrInsufficientPrivileges
}

// Delete removes the record at an identified address and returns the rows
// affected; a missing id is zero rows, not an error.
func (r *Router) Delete(role access.Role, addr string) (int64, error) {
	t, err := Resolve(addr)
	if err != nil {
		return 0, err
	}
	if t.Collection {
		return 0, ErrUnsupportedAddress
	}
	if !access.Allowed(role, t.Resource, access.OperationDelete) {
		return 0, ErrInsufficientPrivileges
	}
	switch t.Resource {
	case access.ResourceMovie:
		return r.remote.DeleteMovie(t.ID)
	case access.ResourceAward:
		return r.remote.DeleteAward(uint(t.ID))
	}
	return 0, ErrInsufficientPrivileges
}

// SetFlags stores the user's flags for the movie behind an identified
// viewaward address. Flags are the only viewaward mutation any role has.
func (r *Router) SetFlags(role access.Role, user, addr string, f cache.Flags) error {
	t, err := Resolve(addr)
	if err != nil {
		return err
	}
	if t.Resource != access.ResourceViewAward || t.Collection {
		return ErrUnsupportedAddress
	}
	if !access.Allowed(role, t.Resource, access.OperationSetFlags) {
		return ErrInsufficientPrivileges
	}
	a, err := r.cache.Award(uint(t.ID))
	if err != nil {
		return err
	}
	return r.cache.SetFlags(user, a.MovieID, f)
}
