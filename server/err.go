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

package server

import (
	"errors"
	"net/http"

	"github.com/edmundjohnson/gala/cache"
	"github.com/edmundjohnson/gala/query"
	"github.com/edmundjohnson/gala/remote"
	"github.com/edmundjohnson/gala/router"
)

var (
	ErrInvalidMethod = errors.New("invalid request method")
	ErrUnauthorized  = errors.New("unauthorized")
)

// apiErr maps the error taxonomy onto HTTP statuses so API callers can
// branch on kind.
func apiErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, router.ErrUnsupportedAddress),
		errors.Is(err, router.ErrBadPayload),
		errors.Is(err, query.ErrMalformedQuery),
		errors.Is(err, remote.ErrIdentityMismatch),
		errors.Is(err, remote.ErrInvalidMovie),
		errors.Is(err, remote.ErrInvalidAward):
		handleErr(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, router.ErrInsufficientPrivileges):
		handleErr(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, remote.ErrNotFound),
		errors.Is(err, cache.ErrNotFound):
		handleErr(w, err.Error(), http.StatusNotFound)
	default:
		serverErr(w, err)
	}
}

func serverErr(w http.ResponseWriter, err error) {
	if err != nil {
		handleErr(w, "bummer", http.StatusInternalServerError)
	}
}

func authErr(w http.ResponseWriter, err error) {
	if err != nil {
		handleErr(w, err.Error(), http.StatusUnauthorized)
	}
}

func badRequestErr(w http.ResponseWriter) {
	handleErr(w, "bad request", http.StatusBadRequest)
}

func handleErr(w http.ResponseWriter, msg string, code int) {
	http.Error(w, msg, code)
}
