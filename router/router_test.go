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
	"errors"
	"testing"
	"time"

	"github.com/edmundjohnson/gala/access"
	"github.com/edmundjohnson/gala/cache"
	"github.com/edmundjohnson/gala/config"
	"github.com/edmundjohnson/gala/lib/bus"
	"github.com/edmundjohnson/gala/lib/date"
	"github.com/edmundjohnson/gala/query"
	"github.com/edmundjohnson/gala/remote"
)

func TestResolve(t *testing.T) {
	cases := []struct {
		addr       string
		resource   access.Resource
		collection bool
		id         int64
	}{
		{"gala://media/movie", access.ResourceMovie, true, 0},
		{"gala://media/movie/4016934", access.ResourceMovie, false, 4016934},
		{"gala://media/award", access.ResourceAward, true, 0},
		{"gala://media/award/12", access.ResourceAward, false, 12},
		{"gala://media/viewaward", access.ResourceViewAward, true, 0},
		{"gala://media/viewaward?category=movie&limit=5", access.ResourceViewAward, true, 0},
		{"gala://media/viewaward/12", access.ResourceViewAward, false, 12},
	}
	for _, c := range cases {
		target, err := Resolve(c.addr)
		if err != nil {
			t.Fatalf("%s: %s", c.addr, err)
		}
		if target.Resource != c.resource {
			t.Errorf("%s: expect %s, got %s", c.addr, c.resource, target.Resource)
		}
		if target.Collection != c.collection {
			t.Errorf("%s: expect collection %v", c.addr, c.collection)
		}
		if target.ID != c.id {
			t.Errorf("%s: expect id %d, got %d", c.addr, c.id, target.ID)
		}
	}
}

func TestResolveUnsupported(t *testing.T) {
	addrs := []string{
		"",
		"gala://media",
		"gala://media/",
		"gala://media/actor",
		"gala://media/movie/abc",
		"gala://media/movie/1/2",
		"gala://other/movie",
		"http://media/movie",
		"movie/4016934",
	}
	for _, addr := range addrs {
		if _, err := Resolve(addr); !errors.Is(err, ErrUnsupportedAddress) {
			t.Errorf("%q: expect unsupported address, got %v", addr, err)
		}
	}
}

func TestAddrRoundTrip(t *testing.T) {
	spec := query.NewSpec()
	spec.Category = query.CategoryMovie
	spec.Watched = query.Yes
	spec.Limit = 10
	target, err := Resolve(ViewAwardsAddr(spec))
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := query.Decode(target.RawQuery)
	if err != nil {
		t.Fatal(err)
	}
	if decoded != spec {
		t.Errorf("expect %+v, got %+v", spec, decoded)
	}

	target, err = Resolve(MovieAddr(4016934))
	if err != nil {
		t.Fatal(err)
	}
	if target.Resource != access.ResourceMovie || target.ID != 4016934 {
		t.Errorf("unexpected target %+v", target)
	}
}

func testRouter(t *testing.T) *Router {
	cfg, err := config.TestConfig(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	notify := bus.NewBus()
	r := remote.NewRemote(cfg, notify)
	if err := r.Open(); err != nil {
		t.Fatal(err)
	}
	c := cache.NewCache(cfg, r, notify)
	if err := c.Open(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		c.Close()
		r.Close()
	})
	return NewRouter(r, c)
}

func waitFor(t *testing.T, cond func() bool) {
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not reached")
}

func testMovie() remote.Movie {
	return remote.Movie{
		MovieID:  4016934,
		Title:    "The Handmaiden",
		Genre:    "Drama, Mystery, Romance",
		Runtime:  144,
		Released: date.Millis(date.ParseRelease("2017-04-14")),
	}
}

func testAward(movieID int64) remote.Award {
	d, _ := date.ParseAward("170512")
	return remote.Award{
		MovieID:      movieID,
		Date:         d,
		Category:     query.CategoryMovie,
		Review:       "A dazzling thriller.",
		DisplayOrder: 2,
	}
}

func (r *Router) await(t *testing.T, user, addr string) {
	waitFor(t, func() bool {
		_, err := r.Get(user, addr)
		return err == nil
	})
}

func TestInsertAndQuery(t *testing.T) {
	r := testRouter(t)
	m := testMovie()
	id, err := r.Insert(access.RoleAdmin, MoviesAddr(), m)
	if err != nil {
		t.Fatal(err)
	}
	if id != m.MovieID {
		t.Errorf("expect id %d, got %d", m.MovieID, id)
	}
	awardID, err := r.Insert(access.RoleAdmin, AwardsAddr(), testAward(m.MovieID))
	if err != nil {
		t.Fatal(err)
	}
	if awardID == 0 {
		t.Error("expect assigned award id")
	}
	r.await(t, "ed", ViewAwardAddr(uint(awardID)))

	rows, err := r.Query("ed", ViewAwardsAddr(query.NewSpec()))
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Fatalf("expect 1 row, got %d", len(rows))
	}
	if rows[0].Title != m.Title {
		t.Errorf("expect %s, got %s", m.Title, rows[0].Title)
	}
	if rows[0].AwardDate() != "170512" {
		t.Errorf("expect award date 170512, got %s", rows[0].AwardDate())
	}

	spec := query.NewSpec()
	spec.Category = query.CategoryMovie
	if rows, err = r.Query("ed", ViewAwardsAddr(spec)); err != nil || len(rows) != 1 {
		t.Errorf("expect 1 movie category row, got %d (%v)", len(rows), err)
	}

	// removing the movie removes its rows
	if _, err = r.Delete(access.RoleAdmin, MovieAddr(m.MovieID)); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool {
		rows, _ := r.Query("ed", ViewAwardsAddr(query.NewSpec()))
		return len(rows) == 0
	})
}

func TestQueryMalformed(t *testing.T) {
	r := testRouter(t)
	_, err := r.Query("ed", "gala://media/viewaward?sort=sideways")
	if !errors.Is(err, query.ErrMalformedQuery) {
		t.Errorf("expect malformed query, got %v", err)
	}
}

func TestStandardUserCannotMutate(t *testing.T) {
	r := testRouter(t)
	m := testMovie()
	if _, err := r.Insert(access.RoleAdmin, MoviesAddr(), m); err != nil {
		t.Fatal(err)
	}
	r.await(t, "ed", MovieAddr(m.MovieID))

	if _, err := r.Insert(access.RoleStandard, MoviesAddr(), m); !errors.Is(err, ErrInsufficientPrivileges) {
		t.Errorf("expect insufficient privileges, got %v", err)
	}
	if _, err := r.Update(access.RoleStandard, MovieAddr(m.MovieID), m); !errors.Is(err, ErrInsufficientPrivileges) {
		t.Errorf("expect insufficient privileges, got %v", err)
	}
	if _, err := r.Delete(access.RoleStandard, MovieAddr(m.MovieID)); !errors.Is(err, ErrInsufficientPrivileges) {
		t.Errorf("expect insufficient privileges, got %v", err)
	}
	if _, err := r.Insert(access.RoleStandard, AwardsAddr(), testAward(m.MovieID)); !errors.Is(err, ErrInsufficientPrivileges) {
		t.Errorf("expect insufficient privileges, got %v", err)
	}

	// the rejected delete must not have touched the store
	got, err := r.Get("ed", MovieAddr(m.MovieID))
	if err != nil {
		t.Fatal(err)
	}
	if got.(cache.Movie).Title != m.Title {
		t.Error("expect movie unchanged after rejected delete")
	}
}

func TestUpdateIdentityMismatch(t *testing.T) {
	r := testRouter(t)
	m := testMovie()
	if _, err := r.Insert(access.RoleAdmin, MoviesAddr(), m); err != nil {
		t.Fatal(err)
	}
	_, err := r.Update(access.RoleAdmin, MovieAddr(999), m)
	if !errors.Is(err, remote.ErrIdentityMismatch) {
		t.Errorf("expect identity mismatch, got %v", err)
	}
}

func TestUpdate(t *testing.T) {
	r := testRouter(t)
	m := testMovie()
	if _, err := r.Insert(access.RoleAdmin, MoviesAddr(), m); err != nil {
		t.Fatal(err)
	}
	m.Plot = "Revised plot."
	rows, err := r.Update(access.RoleAdmin, MovieAddr(m.MovieID), m)
	if err != nil {
		t.Fatal(err)
	}
	if rows != 1 {
		t.Errorf("expect 1 row affected, got %d", rows)
	}
	waitFor(t, func() bool {
		got, err := r.Get("ed", MovieAddr(m.MovieID))
		return err == nil && got.(cache.Movie).Plot == m.Plot
	})
}

func TestDeleteMissing(t *testing.T) {
	r := testRouter(t)
	rows, err := r.Delete(access.RoleAdmin, MovieAddr(999))
	if err != nil {
		t.Fatal(err)
	}
	if rows != 0 {
		t.Errorf("expect 0 rows affected, got %d", rows)
	}
}

func TestViewAwardNotMutable(t *testing.T) {
	r := testRouter(t)
	// derived rows cannot be written directly, even by admins
	if _, err := r.Delete(access.RoleAdmin, ViewAwardAddr(1)); !errors.Is(err, ErrInsufficientPrivileges) {
		t.Errorf("expect insufficient privileges, got %v", err)
	}
	if _, err := r.Insert(access.RoleAdmin, ViewAwardsAddr(query.NewSpec()), testMovie()); !errors.Is(err, ErrInsufficientPrivileges) {
		t.Errorf("expect insufficient privileges, got %v", err)
	}
}

func TestSetFlags(t *testing.T) {
	r := testRouter(t)
	m := testMovie()
	if _, err := r.Insert(access.RoleAdmin, MoviesAddr(), m); err != nil {
		t.Fatal(err)
	}
	awardID, err := r.Insert(access.RoleAdmin, AwardsAddr(), testAward(m.MovieID))
	if err != nil {
		t.Fatal(err)
	}
	addr := ViewAwardAddr(uint(awardID))
	r.await(t, "ed", addr)

	err = r.SetFlags(access.RoleStandard, "ed", addr, cache.Flags{Watched: true})
	if err != nil {
		t.Fatal(err)
	}
	got, err := r.Get("ed", addr)
	if err != nil {
		t.Fatal(err)
	}
	v := got.(cache.ViewAward)
	if !v.Watched || v.Wishlist || v.Favourite {
		t.Errorf("expect watched only, got %+v", v)
	}
}
