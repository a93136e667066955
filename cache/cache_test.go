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

package cache

import (
	"errors"
	"testing"
	"time"

	"github.com/edmundjohnson/gala/config"
	"github.com/edmundjohnson/gala/lib/bus"
	"github.com/edmundjohnson/gala/lib/date"
	"github.com/edmundjohnson/gala/query"
	"github.com/edmundjohnson/gala/remote"
)

func testCache(t *testing.T) (*remote.Remote, *Cache) {
	cfg, err := config.TestConfig(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	notify := bus.NewBus()
	r := remote.NewRemote(cfg, notify)
	if err := r.Open(); err != nil {
		t.Fatal(err)
	}
	c := NewCache(cfg, r, notify)
	if err := c.Open(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		c.Close()
		r.Close()
	})
	return r, c
}

// waitFor polls until the condition holds; change events are delivered
// asynchronously.
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
		MovieID:     4016934,
		Title:       "The Handmaiden",
		Certificate: "18",
		Released:    date.Millis(date.ParseRelease("2017-04-14")),
		Runtime:     144,
		Genre:       "Drama, Romance, Thriller",
		Director:    "Park Chan-wook",
		Screenplay:  "Park Chan-wook, Chung Seo-kyung",
		CastList:    "Kim Min-hee, Ha Jung-woo, Cho Jin-woong",
		Plot:        "A woman is hired as a handmaiden to a Japanese heiress.",
		Language:    "ko",
		Country:     "South Korea",
		Poster:      "https://image.tmdb.org/t/p/w342/handmaiden.jpg",
	}
}

func testAward(movieID int64, compact, category string, order int) remote.Award {
	d, _ := date.ParseAward(compact)
	return remote.Award{
		MovieID:      movieID,
		Date:         d,
		Category:     category,
		Review:       "A dazzling thriller.",
		DisplayOrder: order,
	}
}

func TestMirrorMovie(t *testing.T) {
	r, c := testCache(t)
	m := testMovie()
	if _, err := r.UpsertMovie(m); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool {
		_, err := c.Movie(m.MovieID)
		return err == nil
	})
	got, err := c.Movie(m.MovieID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != m.Title {
		t.Errorf("expect title %s, got %s", m.Title, got.Title)
	}
	if got.Runtime != 144 {
		t.Errorf("expect runtime 144, got %d", got.Runtime)
	}
}

func TestMirrorDelete(t *testing.T) {
	r, c := testCache(t)
	m := testMovie()
	if _, err := r.UpsertMovie(m); err != nil {
		t.Fatal(err)
	}
	if _, err := r.UpsertAward(testAward(m.MovieID, "170512", query.CategoryMovie, 2)); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool {
		return len(c.Query("ed", query.NewSpec())) == 1
	})

	if _, err := r.DeleteMovie(m.MovieID); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool {
		_, err := c.Movie(m.MovieID)
		return errors.Is(err, ErrNotFound)
	})
	waitFor(t, func() bool {
		return len(c.Query("ed", query.NewSpec())) == 0
	})
}

func TestQueryFilters(t *testing.T) {
	r, c := testCache(t)
	drama := testMovie()
	if _, err := r.UpsertMovie(drama); err != nil {
		t.Fatal(err)
	}
	comedy := testMovie()
	comedy.MovieID = 5027774
	comedy.Title = "Toni Erdmann"
	comedy.Genre = "Comedy, Drama"
	if _, err := r.UpsertMovie(comedy); err != nil {
		t.Fatal(err)
	}
	if _, err := r.UpsertAward(testAward(drama.MovieID, "170512", query.CategoryMovie, 2)); err != nil {
		t.Fatal(err)
	}
	if _, err := r.UpsertAward(testAward(comedy.MovieID, "170203", query.CategoryMovie, 1)); err != nil {
		t.Fatal(err)
	}
	if _, err := r.UpsertAward(testAward(drama.MovieID, "170922", query.CategoryDVD, 1)); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool {
		return len(c.Query("ed", query.NewSpec())) == 3
	})

	spec := query.NewSpec()
	spec.Category = query.CategoryDVD
	rows := c.Query("ed", spec)
	if len(rows) != 1 {
		t.Fatalf("expect 1 dvd award, got %d", len(rows))
	}
	if rows[0].Title != drama.Title {
		t.Errorf("expect %s, got %s", drama.Title, rows[0].Title)
	}

	spec = query.NewSpec()
	spec.Genre = "comedy"
	rows = c.Query("ed", spec)
	if len(rows) != 1 {
		t.Fatalf("expect 1 comedy award, got %d", len(rows))
	}
	if rows[0].Title != comedy.Title {
		t.Errorf("expect %s, got %s", comedy.Title, rows[0].Title)
	}

	// filters are conjunctive
	spec = query.NewSpec()
	spec.Category = query.CategoryDVD
	spec.Genre = "comedy"
	if rows = c.Query("ed", spec); len(rows) != 0 {
		t.Errorf("expect no rows, got %d", len(rows))
	}
}

func TestQueryFlagsFilter(t *testing.T) {
	r, c := testCache(t)
	m := testMovie()
	other := testMovie()
	other.MovieID = 5027774
	other.Title = "Toni Erdmann"
	if _, err := r.UpsertMovie(m); err != nil {
		t.Fatal(err)
	}
	if _, err := r.UpsertMovie(other); err != nil {
		t.Fatal(err)
	}
	if _, err := r.UpsertAward(testAward(m.MovieID, "170512", query.CategoryMovie, 1)); err != nil {
		t.Fatal(err)
	}
	if _, err := r.UpsertAward(testAward(other.MovieID, "170203", query.CategoryMovie, 1)); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool {
		return len(c.Query("ed", query.NewSpec())) == 2
	})

	if err := c.SetFlags("ed", m.MovieID, Flags{Watched: true}); err != nil {
		t.Fatal(err)
	}

	spec := query.NewSpec()
	spec.Watched = query.Yes
	rows := c.Query("ed", spec)
	if len(rows) != 1 {
		t.Fatalf("expect 1 watched row, got %d", len(rows))
	}
	if rows[0].Title != m.Title {
		t.Errorf("expect %s, got %s", m.Title, rows[0].Title)
	}

	// unflagged movies count as not watched
	spec = query.NewSpec()
	spec.Watched = query.No
	rows = c.Query("ed", spec)
	if len(rows) != 1 {
		t.Fatalf("expect 1 unwatched row, got %d", len(rows))
	}
	if rows[0].Title != other.Title {
		t.Errorf("expect %s, got %s", other.Title, rows[0].Title)
	}

	// another user sees no flags
	spec = query.NewSpec()
	spec.Watched = query.Yes
	if rows = c.Query("jo", spec); len(rows) != 0 {
		t.Errorf("expect no rows for other user, got %d", len(rows))
	}
}

func TestQuerySort(t *testing.T) {
	r, c := testCache(t)
	m := testMovie()
	if _, err := r.UpsertMovie(m); err != nil {
		t.Fatal(err)
	}
	// same date, differing display order, to exercise the tie-break
	id1, err := r.UpsertAward(testAward(m.MovieID, "170512", query.CategoryMovie, 2))
	if err != nil {
		t.Fatal(err)
	}
	id2, err := r.UpsertAward(testAward(m.MovieID, "170512", query.CategoryMovie, 1))
	if err != nil {
		t.Fatal(err)
	}
	id3, err := r.UpsertAward(testAward(m.MovieID, "160108", query.CategoryMovie, 1))
	if err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool {
		return len(c.Query("ed", query.NewSpec())) == 3
	})

	// newest first by default, display order breaks the tie
	rows := c.Query("ed", query.NewSpec())
	expect := []uint{id2, id1, id3}
	for i, id := range expect {
		if rows[i].ID != id {
			t.Errorf("desc row %d: expect id %d, got %d", i, id, rows[i].ID)
		}
	}

	spec := query.NewSpec()
	spec.Sort = query.OrderDateAsc
	rows = c.Query("ed", spec)
	expect = []uint{id3, id2, id1}
	for i, id := range expect {
		if rows[i].ID != id {
			t.Errorf("asc row %d: expect id %d, got %d", i, id, rows[i].ID)
		}
	}
}

func TestQueryLimit(t *testing.T) {
	r, c := testCache(t)
	m := testMovie()
	if _, err := r.UpsertMovie(m); err != nil {
		t.Fatal(err)
	}
	dates := []string{"170512", "170203", "160108"}
	for _, d := range dates {
		if _, err := r.UpsertAward(testAward(m.MovieID, d, query.CategoryMovie, 1)); err != nil {
			t.Fatal(err)
		}
	}
	waitFor(t, func() bool {
		return len(c.Query("ed", query.NewSpec())) == 3
	})

	spec := query.NewSpec()
	spec.Limit = 2
	rows := c.Query("ed", spec)
	if len(rows) != 2 {
		t.Fatalf("expect 2 rows, got %d", len(rows))
	}
	if rows[0].AwardDate() != "170512" || rows[1].AwardDate() != "170203" {
		t.Errorf("expect first two by date, got %s %s",
			rows[0].AwardDate(), rows[1].AwardDate())
	}
}

func TestSetFlags(t *testing.T) {
	r, c := testCache(t)
	m := testMovie()
	if _, err := r.UpsertMovie(m); err != nil {
		t.Fatal(err)
	}
	id, err := r.UpsertAward(testAward(m.MovieID, "170512", query.CategoryMovie, 2))
	if err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool {
		_, verr := c.ViewAward("ed", id)
		return verr == nil
	})

	if err = c.SetFlags("ed", m.MovieID, Flags{Wishlist: true, Favourite: true}); err != nil {
		t.Fatal(err)
	}
	v, err := c.ViewAward("ed", id)
	if err != nil {
		t.Fatal(err)
	}
	if !v.Wishlist || v.Watched || !v.Favourite {
		t.Errorf("expect wishlist+favourite, got %+v", v)
	}

	// flags replace, not merge
	if err = c.SetFlags("ed", m.MovieID, Flags{Watched: true}); err != nil {
		t.Fatal(err)
	}
	f := c.UserFlags("ed", m.MovieID)
	if f.Wishlist || !f.Watched || f.Favourite {
		t.Errorf("expect watched only, got %+v", f)
	}

	// other users are unaffected
	v, err = c.ViewAward("jo", id)
	if err != nil {
		t.Fatal(err)
	}
	if v.Wishlist || v.Watched || v.Favourite {
		t.Errorf("expect no flags for other user, got %+v", v)
	}
}

func TestFlagsSurviveRefresh(t *testing.T) {
	r, c := testCache(t)
	m := testMovie()
	if _, err := r.UpsertMovie(m); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool {
		_, err := c.Movie(m.MovieID)
		return err == nil
	})
	if err := c.SetFlags("ed", m.MovieID, Flags{Watched: true}); err != nil {
		t.Fatal(err)
	}

	m.Plot = "Revised plot."
	if _, err := r.UpsertMovie(m); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool {
		got, err := c.Movie(m.MovieID)
		return err == nil && got.Plot == m.Plot
	})
	f := c.UserFlags("ed", m.MovieID)
	if !f.Watched {
		t.Error("expect watched flag to survive refresh")
	}
}

func TestSync(t *testing.T) {
	r, c := testCache(t)
	// detach from events to prove a full sync rebuilds the mirror
	c.bus.Unsubscribe(c.sub)
	c.sub = nil

	m := testMovie()
	if _, err := r.UpsertMovie(m); err != nil {
		t.Fatal(err)
	}
	if _, err := r.UpsertAward(testAward(m.MovieID, "170512", query.CategoryMovie, 2)); err != nil {
		t.Fatal(err)
	}
	if len(c.Query("ed", query.NewSpec())) != 0 {
		t.Fatal("expect empty mirror before sync")
	}

	if err := c.Sync(); err != nil {
		t.Fatal(err)
	}
	rows := c.Query("ed", query.NewSpec())
	if len(rows) != 1 {
		t.Fatalf("expect 1 row after sync, got %d", len(rows))
	}
	if rows[0].Title != m.Title {
		t.Errorf("expect %s, got %s", m.Title, rows[0].Title)
	}
}

func TestSearch(t *testing.T) {
	r, c := testCache(t)
	m := testMovie()
	if _, err := r.UpsertMovie(m); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool {
		_, err := c.Movie(m.MovieID)
		return err == nil
	})

	movies := c.Search(`title:handmaiden`, 10)
	if len(movies) != 1 {
		t.Fatalf("expect 1 hit, got %d", len(movies))
	}
	if movies[0].MovieID != m.MovieID {
		t.Errorf("expect movie %d, got %d", m.MovieID, movies[0].MovieID)
	}

	if movies = c.Search(`title:nonesuch`, 10); len(movies) != 0 {
		t.Errorf("expect no hits, got %d", len(movies))
	}
}
