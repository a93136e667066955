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

// Package router maps addresses of the form
//
//	gala://media/<resource>[/<id>][?<query>]
//
// onto the stores and gates every mutation by role. Resolution is a pure
// function of the match table; the router itself holds no mutable state.
package router

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"

	"github.com/edmundjohnson/gala/access"
	"github.com/edmundjohnson/gala/query"
)

var (
	ErrUnsupportedAddress     = errors.New("unsupported address")
	ErrInsufficientPrivileges = errors.New("insufficient privileges")
	ErrBadPayload             = errors.New("bad payload")
)

const (
	Scheme    = "gala"
	Authority = "media"
)

// A Target is the classified form of an address: which resource it names,
// whether it is the whole collection or one identified item, and the raw
// query parameters for the caller to decode.
type Target struct {
	Resource   access.Resource
	Collection bool
	ID         int64
	RawQuery   string
}

var (
	collectionRegexp = regexp.MustCompile(`^/(movie|award|viewaward)$`)
	itemRegexp       = regexp.MustCompile(`^/(movie|award|viewaward)/([0-9]+)$`)
)

// Resolve classifies an address. Anything outside the match table is
// ErrUnsupportedAddress; that request fails, nothing else is affected.
func Resolve(addr string) (Target, error) {
	u, err := url.Parse(addr)
	if err != nil {
		return Target{}, ErrUnsupportedAddress
	}
	if u.Scheme != Scheme || u.Host != Authority {
		return Target{}, ErrUnsupportedAddress
	}

	if m := collectionRegexp.FindStringSubmatch(u.Path); m != nil {
		return Target{
			Resource:   access.Resource(m[1]),
			Collection: true,
			RawQuery:   u.RawQuery,
		}, nil
	}
	if m := itemRegexp.FindStringSubmatch(u.Path); m != nil {
		id, err := strconv.ParseInt(m[2], 10, 64)
		if err != nil {
			return Target{}, ErrUnsupportedAddress
		}
		return Target{
			Resource: access.Resource(m[1]),
			ID:       id,
			RawQuery: u.RawQuery,
		}, nil
	}
	return Target{}, ErrUnsupportedAddress
}

func base(resource access.Resource) string {
	return fmt.Sprintf("%s://%s/%s", Scheme, Authority, resource)
}

func MoviesAddr() string {
	return base(access.ResourceMovie)
}

// MovieAddr returns the address of one movie, keyed by external id.
func MovieAddr(movieID int64) string {
	return fmt.Sprintf("%s/%d", base(access.ResourceMovie), movieID)
}

func AwardsAddr() string {
	return base(access.ResourceAward)
}

func AwardAddr(id uint) string {
	return fmt.Sprintf("%s/%d", base(access.ResourceAward), id)
}

func ViewAwardAddr(id uint) string {
	return fmt.Sprintf("%s/%d", base(access.ResourceViewAward), id)
}

// ViewAwardsAddr returns the canonical collection address for a spec.
// Specs that match everything have no query string at all.
func ViewAwardsAddr(spec query.Spec) string {
	addr := base(access.ResourceViewAward)
	if q := spec.Encode(); q != "" {
		addr += "?" + q
	}
	return addr
}
