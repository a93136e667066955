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
	"encoding/json"
	"io/ioutil"
	"net/http"
	"strconv"

	"github.com/edmundjohnson/gala/access"
	"github.com/edmundjohnson/gala/cache"
	"github.com/edmundjohnson/gala/lib/tmdb"
	"github.com/edmundjohnson/gala/log"
	"github.com/edmundjohnson/gala/query"
	"github.com/edmundjohnson/gala/remote"
	"github.com/edmundjohnson/gala/router"
	jsonpatch "github.com/evanphx/json-patch"
)

type login struct {
	User string
	Pass string
}

type status struct {
	Status      int
	Message     string
	Cookie      string `json:",omitempty"`
	AccessToken string `json:",omitempty"`
}

type affected struct {
	Rows int64
}

type created struct {
	Id int64
}

// POST /api/login < login{} > status{}
// 200: success + cookie + access token
// 401: fail
// 500: error
func apiLogin(w http.ResponseWriter, r *http.Request) {
	ctx := contextValue(r)

	var l login
	body, _ := ioutil.ReadAll(r.Body)
	err := json.Unmarshal(body, &l)
	if err != nil {
		serverErr(w, err)
		return
	}

	session, err := ctx.Auth().Login(l.User, l.Pass)
	if err != nil {
		authErr(w, ErrUnauthorized)
		return
	}
	cookie := ctx.Auth().NewCookie(&session)
	http.SetCookie(w, &cookie)
	token, err := ctx.Auth().NewAccessToken(session)
	if err != nil {
		serverErr(w, err)
		return
	}

	enc := json.NewEncoder(w)
	enc.Encode(status{
		Status:      http.StatusOK,
		Message:     "ok",
		Cookie:      cookie.Value,
		AccessToken: token,
	})
}

func role(ctx Context) access.Role {
	u := ctx.User()
	if u == nil {
		return access.RoleStandard
	}
	return u.AccessRole()
}

func userName(ctx Context) string {
	u := ctx.User()
	if u == nil {
		return ""
	}
	return u.Name
}

func movieIDParam(r *http.Request) (int64, error) {
	return remote.ParseMovieID(r.URL.Query().Get(":id"))
}

func awardIDParam(r *http.Request) (uint, error) {
	n, err := strconv.ParseUint(r.URL.Query().Get(":id"), 10, 32)
	return uint(n), err
}

func recvMovie(w http.ResponseWriter, r *http.Request) (remote.Movie, error) {
	var m remote.Movie
	body, _ := ioutil.ReadAll(r.Body)
	err := json.Unmarshal(body, &m)
	if err != nil {
		badRequestErr(w)
	}
	return m, err
}

func recvAward(w http.ResponseWriter, r *http.Request) (remote.Award, error) {
	var a remote.Award
	body, _ := ioutil.ReadAll(r.Body)
	err := json.Unmarshal(body, &a)
	if err != nil {
		badRequestErr(w)
	}
	return a, err
}

// POST /api/movies < Movie{} > created{}
// 201: created
// 400: bad request
// 403: insufficient privileges
func apiMoviePost(w http.ResponseWriter, r *http.Request) {
	ctx := contextValue(r)
	m, err := recvMovie(w, r)
	if err != nil {
		return
	}
	id, err := ctx.Router().Insert(role(ctx), router.MoviesAddr(), m)
	if err != nil {
		apiErr(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	enc := json.NewEncoder(w)
	enc.Encode(created{Id: id})
}

// GET /api/movies/4016934 > Movie{}
// 200: success
// 404: not found
func apiMovieGet(w http.ResponseWriter, r *http.Request) {
	ctx := contextValue(r)
	id, err := movieIDParam(r)
	if err != nil {
		badRequestErr(w)
		return
	}
	m, err := ctx.Router().Get(userName(ctx), router.MovieAddr(id))
	if err != nil {
		apiErr(w, err)
		return
	}
	enc := json.NewEncoder(w)
	enc.Encode(m)
}

// PUT /api/movies/4016934 < Movie{} > affected{}
// 200: success
// 400: bad request or id mismatch
// 403: insufficient privileges
func apiMoviePut(w http.ResponseWriter, r *http.Request) {
	ctx := contextValue(r)
	id, err := movieIDParam(r)
	if err != nil {
		badRequestErr(w)
		return
	}
	m, err := recvMovie(w, r)
	if err != nil {
		return
	}
	rows, err := ctx.Router().Update(role(ctx), router.MovieAddr(id), m)
	if err != nil {
		apiErr(w, err)
		return
	}
	enc := json.NewEncoder(w)
	enc.Encode(affected{Rows: rows})
}

// PATCH /api/movies/4016934 < json+patch > affected{}
// 200: success
// 400: bad request
// 403: insufficient privileges
// 404: not found
func apiMoviePatch(w http.ResponseWriter, r *http.Request) {
	ctx := contextValue(r)
	id, err := movieIDParam(r)
	if err != nil {
		badRequestErr(w)
		return
	}
	patch, _ := ioutil.ReadAll(r.Body)

	m, err := ctx.Remote().Movie(id)
	if err != nil {
		apiErr(w, err)
		return
	}
	jp, err := jsonpatch.DecodePatch(patch)
	if err != nil {
		badRequestErr(w)
		return
	}
	before, _ := json.Marshal(m)
	after, err := jp.Apply(before)
	if err != nil {
		badRequestErr(w)
		return
	}
	var patched remote.Movie
	if err = json.Unmarshal(after, &patched); err != nil {
		badRequestErr(w)
		return
	}

	rows, err := ctx.Router().Update(role(ctx), router.MovieAddr(id), patched)
	if err != nil {
		apiErr(w, err)
		return
	}
	enc := json.NewEncoder(w)
	enc.Encode(affected{Rows: rows})
}

// DELETE /api/movies/4016934 > affected{}
// 200: success, rows may be zero
// 403: insufficient privileges
func apiMovieDelete(w http.ResponseWriter, r *http.Request) {
	ctx := contextValue(r)
	id, err := movieIDParam(r)
	if err != nil {
		badRequestErr(w)
		return
	}
	rows, err := ctx.Router().Delete(role(ctx), router.MovieAddr(id))
	if err != nil {
		apiErr(w, err)
		return
	}
	enc := json.NewEncoder(w)
	enc.Encode(affected{Rows: rows})
}

// POST /api/movies/4016934/import > created{}
// 201: metadata fetched and stored
// 403: insufficient privileges
// 404: unknown external id
func apiMovieImport(w http.ResponseWriter, r *http.Request) {
	ctx := contextValue(r)
	id, err := movieIDParam(r)
	if err != nil {
		badRequestErr(w)
		return
	}
	if !access.Allowed(role(ctx), access.ResourceMovie, access.OperationInsert) {
		apiErr(w, router.ErrInsufficientPrivileges)
		return
	}
	client := tmdb.NewTMDB(ctx.Config())
	movieID, err := ctx.Remote().ImportMovie(client, id)
	if err != nil {
		log.Println(err)
		apiErr(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	enc := json.NewEncoder(w)
	enc.Encode(created{Id: movieID})
}

// POST /api/awards < Award{} > created{}
// 201: created
// 400: bad request
// 403: insufficient privileges
func apiAwardPost(w http.ResponseWriter, r *http.Request) {
	ctx := contextValue(r)
	a, err := recvAward(w, r)
	if err != nil {
		return
	}
	id, err := ctx.Router().Insert(role(ctx), router.AwardsAddr(), a)
	if err != nil {
		apiErr(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	enc := json.NewEncoder(w)
	enc.Encode(created{Id: id})
}

// GET /api/awards/1 > Award{}
// 200: success
// 404: not found
func apiAwardGet(w http.ResponseWriter, r *http.Request) {
	ctx := contextValue(r)
	id, err := awardIDParam(r)
	if err != nil {
		badRequestErr(w)
		return
	}
	a, err := ctx.Router().Get(userName(ctx), router.AwardAddr(id))
	if err != nil {
		apiErr(w, err)
		return
	}
	enc := json.NewEncoder(w)
	enc.Encode(a)
}

// PUT /api/awards/1 < Award{} > affected{}
// 200: success
// 400: bad request or id mismatch
// 403: insufficient privileges
func apiAwardPut(w http.ResponseWriter, r *http.Request) {
	ctx := contextValue(r)
	id, err := awardIDParam(r)
	if err != nil {
		badRequestErr(w)
		return
	}
	a, err := recvAward(w, r)
	if err != nil {
		return
	}
	rows, err := ctx.Router().Update(role(ctx), router.AwardAddr(id), a)
	if err != nil {
		apiErr(w, err)
		return
	}
	enc := json.NewEncoder(w)
	enc.Encode(affected{Rows: rows})
}

// DELETE /api/awards/1 > affected{}
// 200: success, rows may be zero
// 403: insufficient privileges
func apiAwardDelete(w http.ResponseWriter, r *http.Request) {
	ctx := contextValue(r)
	id, err := awardIDParam(r)
	if err != nil {
		badRequestErr(w)
		return
	}
	rows, err := ctx.Router().Delete(role(ctx), router.AwardAddr(id))
	if err != nil {
		apiErr(w, err)
		return
	}
	enc := json.NewEncoder(w)
	enc.Encode(affected{Rows: rows})
}

// GET /api/viewawards?category=movie&sort=asc > []ViewAward
// 200: success
// 400: malformed query
func apiViewAwards(w http.ResponseWriter, r *http.Request) {
	ctx := contextValue(r)
	addr := router.ViewAwardsAddr(query.NewSpec())
	if q := r.URL.RawQuery; q != "" {
		addr += "?" + q
	}
	rows, err := ctx.Router().Query(userName(ctx), addr)
	if err != nil {
		apiErr(w, err)
		return
	}
	enc := json.NewEncoder(w)
	enc.Encode(rows)
}

// GET /api/viewawards/1 > ViewAward{}
// 200: success
// 404: not found
func apiViewAwardGet(w http.ResponseWriter, r *http.Request) {
	ctx := contextValue(r)
	id, err := awardIDParam(r)
	if err != nil {
		badRequestErr(w)
		return
	}
	v, err := ctx.Router().Get(userName(ctx), router.ViewAwardAddr(id))
	if err != nil {
		apiErr(w, err)
		return
	}
	enc := json.NewEncoder(w)
	enc.Encode(v)
}

// POST /api/viewawards/1/flags < Flags{} > status{}
// 200: success
// 404: not found
func apiViewAwardFlags(w http.ResponseWriter, r *http.Request) {
	ctx := contextValue(r)
	id, err := awardIDParam(r)
	if err != nil {
		badRequestErr(w)
		return
	}
	var f cache.Flags
	body, _ := ioutil.ReadAll(r.Body)
	if err = json.Unmarshal(body, &f); err != nil {
		badRequestErr(w)
		return
	}
	err = ctx.Router().SetFlags(role(ctx), userName(ctx), router.ViewAwardAddr(id), f)
	if err != nil {
		apiErr(w, err)
		return
	}
	enc := json.NewEncoder(w)
	enc.Encode(status{Status: http.StatusOK, Message: "ok"})
}

// GET /api/search?q=title:handmaiden > []Movie
// 200: success
func apiSearch(w http.ResponseWriter, r *http.Request) {
	ctx := contextValue(r)
	q := r.URL.Query().Get("q")
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		limit, _ = strconv.Atoi(s)
	}
	movies := ctx.Cache().Search(q, limit)
	enc := json.NewEncoder(w)
	enc.Encode(movies)
}
