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

// Package cache is the process-local, queryable mirror of the subset of the
// authoritative store relevant to the signed-in users, joined with their
// personal flags. All reads are answered from local state; the mirror is
// refreshed by change events and is best effort, never a transaction log.
package cache

import (
	"errors"

	"github.com/edmundjohnson/gala/access"
	"github.com/edmundjohnson/gala/config"
	"github.com/edmundjohnson/gala/lib/bus"
	"github.com/edmundjohnson/gala/log"
	"github.com/edmundjohnson/gala/query"
	"github.com/edmundjohnson/gala/remote"
	"gorm.io/gorm"
)

var (
	ErrBadDriver = errors.New("driver not supported")
	ErrNotFound  = errors.New("not found")
)

const (
	FieldCast     = "cast"
	FieldDirector = "director"
	FieldGenre    = "genre"
	FieldPlot     = "plot"
	FieldTitle    = "title"
)

// Source is the authoritative side the cache refreshes from; the remote
// gateway satisfies it.
type Source interface {
	Movie(movieID int64) (remote.Movie, error)
	Award(id uint) (remote.Award, error)
	Movies() []remote.Movie
	Awards() []remote.Award
}

type Cache struct {
	config *config.Config
	db     *gorm.DB
	source Source
	bus    *bus.Bus
	sub    *bus.Subscription
}

func NewCache(config *config.Config, source Source, notify *bus.Bus) *Cache {
	return &Cache{
		config: config,
		source: source,
		bus:    notify,
	}
}

// Open opens the cache database and subscribes to change events.
func (c *Cache) Open() (err error) {
	err = c.openDB()
	if err == nil {
		c.sub = c.bus.Subscribe(c.ApplyChange)
	}
	return
}

func (c *Cache) Close() {
	if c.sub != nil {
		c.bus.Unsubscribe(c.sub)
	}
	c.closeDB()
}

// Query returns the user's view awards matching the spec, sorted by award
// date with display order then id as tie-breaks, truncated to the limit.
func (c *Cache) Query(user string, spec query.Spec) []ViewAward {
	return c.viewAwards(user, spec)
}

// Movie returns the cached movie with the given external id.
func (c *Cache) Movie(movieID int64) (Movie, error) {
	m, err := c.movie(movieID)
	if err != nil {
		return Movie{}, err
	}
	return *m, nil
}

// Award returns the cached award with the given id.
func (c *Cache) Award(id uint) (Award, error) {
	a, err := c.award(id)
	if err != nil {
		return Award{}, err
	}
	return *a, nil
}

// ViewAward returns the single joined row for the given award id.
func (c *Cache) ViewAward(user string, id uint) (ViewAward, error) {
	v, err := c.viewAward(user, id)
	if err != nil {
		return ViewAward{}, err
	}
	return *v, nil
}

// Flags is one user's personal state for one movie.
type Flags struct {
	Wishlist  bool
	Watched   bool
	Favourite bool
}

// SetFlags stores the user's flags for a movie and publishes a viewaward
// change so interested listeners re-render. Flags never touch the
// authoritative store.
func (c *Cache) SetFlags(user string, movieID int64, f Flags) error {
	flag, err := c.userFlag(user, movieID)
	if errors.Is(err, ErrNotFound) {
		flag = &Flag{User: user, MovieID: movieID}
	} else if err != nil {
		return err
	}
	flag.Wishlist = f.Wishlist
	flag.Watched = f.Watched
	flag.Favourite = f.Favourite
	err = c.saveFlag(flag)
	if err != nil {
		return err
	}
	c.bus.Publish(bus.Event{
		Resource: string(access.ResourceViewAward),
		IDs:      []int64{movieID},
		User:     user,
	})
	return nil
}

// UserFlags returns the user's flags for a movie, all unset when the user
// has never marked it.
func (c *Cache) UserFlags(user string, movieID int64) Flags {
	flag, err := c.userFlag(user, movieID)
	if err != nil {
		return Flags{}
	}
	return Flags{
		Wishlist:  flag.Wishlist,
		Watched:   flag.Watched,
		Favourite: flag.Favourite,
	}
}

// ApplyChange re-derives or removes the cached rows named by the event.
// Refresh failures leave the previous rows in place; the mirror catches up
// on the next event or scheduled sync.
func (c *Cache) ApplyChange(e bus.Event) {
	switch e.Resource {
	case string(access.ResourceMovie):
		for _, id := range e.IDs {
			c.refreshMovie(id)
		}
	case string(access.ResourceAward):
		for _, id := range e.IDs {
			c.refreshAward(uint(id))
		}
	case string(access.ResourceViewAward):
		// flags are already local; nothing to derive
	}
}

func (c *Cache) refreshMovie(movieID int64) {
	m, err := c.source.Movie(movieID)
	if errors.Is(err, remote.ErrNotFound) {
		c.deleteMovie(movieID)
		c.deleteMovieAwards(movieID)
		c.unindexMovie(movieID)
		return
	}
	if err != nil {
		log.Printf("cache: refresh movie %d: %s\n", movieID, err)
		return
	}
	mirror := mirrorMovie(m)
	if err = c.saveMovie(&mirror); err != nil {
		log.Printf("cache: save movie %d: %s\n", movieID, err)
		return
	}
	c.indexMovie(mirror)
}

func (c *Cache) refreshAward(id uint) {
	a, err := c.source.Award(id)
	if errors.Is(err, remote.ErrNotFound) {
		c.deleteAward(id)
		return
	}
	if err != nil {
		log.Printf("cache: refresh award %d: %s\n", id, err)
		return
	}
	mirror := mirrorAward(a)
	if err = c.saveAward(&mirror); err != nil {
		log.Printf("cache: save award %d: %s\n", id, err)
	}
}

func mirrorMovie(m remote.Movie) Movie {
	return Movie{
		ID:          m.ID,
		MovieID:     m.MovieID,
		Title:       m.Title,
		Certificate: m.Certificate,
		Released:    m.Released,
		Runtime:     m.Runtime,
		Genre:       m.Genre,
		Director:    m.Director,
		Screenplay:  m.Screenplay,
		CastList:    m.CastList,
		Plot:        m.Plot,
		Language:    m.Language,
		Country:     m.Country,
		Poster:      m.Poster,
	}
}

func mirrorAward(a remote.Award) Award {
	return Award{
		ID:           a.ID,
		MovieID:      a.MovieID,
		Date:         a.Date,
		Category:     a.Category,
		Review:       a.Review,
		DisplayOrder: a.DisplayOrder,
	}
}

// Sync replaces the mirror with the full authoritative state. Flags are
// user-local and survive the refresh.
func (c *Cache) Sync() error {
	movies := c.source.Movies()
	awards := c.source.Awards()
	err := c.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&Award{}).Error; err != nil {
			return err
		}
		if err := tx.Where("1 = 1").Delete(&Movie{}).Error; err != nil {
			return err
		}
		for _, m := range movies {
			mirror := mirrorMovie(m)
			if err := tx.Create(&mirror).Error; err != nil {
				return err
			}
		}
		for _, a := range awards {
			mirror := mirrorAward(a)
			if err := tx.Create(&mirror).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	c.reindex(movies)
	return nil
}
