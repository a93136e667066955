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

// Package query is the codec between structured viewaward query
// specifications and their canonical address query strings. The law is
// Decode(Encode(spec)) == spec for every valid spec.
package query

import (
	"errors"
	"net/url"
	"strconv"
)

var ErrMalformedQuery = errors.New("malformed query")

// All is the wildcard for category and genre filters.
const All = "all"

const (
	CategoryMovie = "movie"
	CategoryDVD   = "dvd"
)

type Order int

const (
	// Newest awards first is the default presentation order.
	OrderDateDesc Order = iota
	OrderDateAsc
)

// A TriState filter matches everything (Any), only set flags (Yes), or
// only unset flags (No).
type TriState int

const (
	Any TriState = iota
	Yes
	No
)

type Spec struct {
	Sort      Order
	Category  string
	Genre     string
	Wishlist  TriState
	Watched   TriState
	Favourite TriState
	Limit     int
}

// NewSpec returns the spec that matches everything: both filters wild,
// all flags any, unlimited, newest first.
func NewSpec() Spec {
	return Spec{Category: All, Genre: All}
}

const (
	paramSort      = "sort"
	paramCategory  = "category"
	paramGenre     = "genre"
	paramWishlist  = "wishlist"
	paramWatched   = "watched"
	paramFavourite = "favourite"
	paramLimit     = "limit"

	tokenAsc   = "asc"
	tokenDesc  = "desc"
	tokenTrue  = "true"
	tokenFalse = "false"
)

// Encode returns the canonical query string for the spec. Wildcards and
// defaults are omitted so equal specs always produce equal strings.
func (s Spec) Encode() string {
	v := url.Values{}
	if s.Sort == OrderDateAsc {
		v.Set(paramSort, tokenAsc)
	}
	if s.Category != All && s.Category != "" {
		v.Set(paramCategory, s.Category)
	}
	if s.Genre != All && s.Genre != "" {
		v.Set(paramGenre, s.Genre)
	}
	encodeTriState(v, paramWishlist, s.Wishlist)
	encodeTriState(v, paramWatched, s.Watched)
	encodeTriState(v, paramFavourite, s.Favourite)
	if s.Limit > 0 {
		v.Set(paramLimit, strconv.Itoa(s.Limit))
	}
	return v.Encode()
}

func encodeTriState(v url.Values, key string, t TriState) {
	switch t {
	case Yes:
		v.Set(key, tokenTrue)
	case No:
		v.Set(key, tokenFalse)
	}
}

// Decode parses a query string into a spec. Missing parameters default to
// their wildcards and an absent limit means unlimited. Any unrecognized
// key or token is ErrMalformedQuery, never a silent fallback.
func Decode(query string) (Spec, error) {
	s := NewSpec()
	values, err := url.ParseQuery(query)
	if err != nil {
		return s, ErrMalformedQuery
	}
	for key, list := range values {
		if len(list) != 1 {
			return NewSpec(), ErrMalformedQuery
		}
		value := list[0]
		switch key {
		case paramSort:
			switch value {
			case tokenAsc:
				s.Sort = OrderDateAsc
			case tokenDesc:
				s.Sort = OrderDateDesc
			default:
				return NewSpec(), ErrMalformedQuery
			}
		case paramCategory:
			switch value {
			case All, CategoryMovie, CategoryDVD:
				s.Category = value
			default:
				return NewSpec(), ErrMalformedQuery
			}
		case paramGenre:
			if value == "" {
				return NewSpec(), ErrMalformedQuery
			}
			s.Genre = value
		case paramWishlist:
			s.Wishlist, err = decodeTriState(value)
		case paramWatched:
			s.Watched, err = decodeTriState(value)
		case paramFavourite:
			s.Favourite, err = decodeTriState(value)
		case paramLimit:
			n, nerr := strconv.Atoi(value)
			if nerr != nil || n < 0 {
				return NewSpec(), ErrMalformedQuery
			}
			s.Limit = n
		default:
			return NewSpec(), ErrMalformedQuery
		}
		if err != nil {
			return NewSpec(), err
		}
	}
	return s, nil
}

func decodeTriState(value string) (TriState, error) {
	switch value {
	case tokenTrue:
		return Yes, nil
	case tokenFalse:
		return No, nil
	}
	return Any, ErrMalformedQuery
}
