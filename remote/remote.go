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

// Package remote is the gateway to the authoritative store for movies and
// awards. All canonical mutations go through here; every confirmed write
// publishes a change event before the call returns. Zero rows affected is
// not an error, for movies and awards alike.
package remote

import (
	"errors"
	"fmt"
	"sync"

	"github.com/edmundjohnson/gala/access"
	"github.com/edmundjohnson/gala/config"
	"github.com/edmundjohnson/gala/lib/bus"
	"gorm.io/gorm"
)

var (
	ErrBadDriver        = errors.New("driver not supported")
	ErrNotFound         = errors.New("not found")
	ErrIdentityMismatch = errors.New("identity mismatch")
	ErrInvalidMovie     = errors.New("invalid movie")
	ErrInvalidAward     = errors.New("invalid award")
)

type Remote struct {
	config *config.Config
	db     *gorm.DB
	bus    *bus.Bus
	keys   keyedMutex
}

func NewRemote(config *config.Config, notify *bus.Bus) *Remote {
	return &Remote{
		config: config,
		bus:    notify,
		keys:   keyedMutex{keys: make(map[string]*keyLock)},
	}
}

func (r *Remote) Open() (err error) {
	err = r.openDB()
	return
}

func (r *Remote) Close() {
	r.closeDB()
}

// keyedMutex serializes mutations per identity so concurrent writes to the
// same movie or award never race; different identities proceed in parallel.
// Entries are refcounted and removed once the last holder releases, so the
// map stays bounded by the number of in-flight writes.
type keyedMutex struct {
	mu   sync.Mutex
	keys map[string]*keyLock
}

type keyLock struct {
	sync.Mutex
	refs int
}

func (k *keyedMutex) lock(resource string, id int64) func() {
	key := fmt.Sprintf("%s/%d", resource, id)
	k.mu.Lock()
	l, ok := k.keys[key]
	if !ok {
		l = &keyLock{}
		k.keys[key] = l
	}
	l.refs++
	k.mu.Unlock()
	l.Lock()
	return func() {
		l.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.keys, key)
		}
		k.mu.Unlock()
	}
}

func (r *Remote) publish(resource access.Resource, ids ...int64) {
	r.bus.Publish(bus.Event{Resource: string(resource), IDs: ids})
}

// UpsertMovie stores the movie, fully replacing any record with the same
// external id. Returns the number of rows affected.
func (r *Remote) UpsertMovie(m Movie) (int64, error) {
	if !m.Valid() {
		return 0, ErrInvalidMovie
	}
	unlock := r.keys.lock("movie", m.MovieID)
	defer unlock()

	existing, err := r.movie(m.MovieID)
	if err == nil {
		// full replace, identity preserved
		m.Model = existing.Model
		err = r.saveMovie(&m)
	} else if errors.Is(err, ErrNotFound) {
		err = r.createMovie(&m)
	}
	if err != nil {
		return 0, err
	}
	r.publish(access.ResourceMovie, m.MovieID)
	return 1, nil
}

// DeleteMovie removes the movie and its awards. A missing id reports zero
// rows affected with no error and no event.
func (r *Remote) DeleteMovie(movieID int64) (int64, error) {
	unlock := r.keys.lock("movie", movieID)
	defer unlock()

	awards := r.movieAwards(movieID)
	rows := r.deleteMovie(movieID)
	if rows == 0 {
		return 0, nil
	}
	var awardIDs []int64
	for _, a := range awards {
		r.deleteAward(a.ID)
		awardIDs = append(awardIDs, int64(a.ID))
	}
	r.publish(access.ResourceMovie, movieID)
	if len(awardIDs) > 0 {
		r.publish(access.ResourceAward, awardIDs...)
	}
	return rows, nil
}

// UpsertAward stores the award, fully replacing any record with the same id,
// and returns the award id. Awards with missing mandatory fields are
// rejected.
func (r *Remote) UpsertAward(a Award) (uint, error) {
	if !a.Valid() {
		return 0, ErrInvalidAward
	}
	unlock := r.keys.lock("award", int64(a.ID))
	defer unlock()

	var err error
	if a.ID > 0 {
		existing, lerr := r.award(a.ID)
		if lerr == nil {
			a.Model = existing.Model
			err = r.saveAward(&a)
		} else if errors.Is(lerr, ErrNotFound) {
			err = r.createAward(&a)
		} else {
			err = lerr
		}
	} else {
		err = r.createAward(&a)
	}
	if err != nil {
		return 0, err
	}
	r.publish(access.ResourceAward, int64(a.ID))
	return a.ID, nil
}

// DeleteAward removes the award. A missing id reports zero rows affected
// with no error and no event.
func (r *Remote) DeleteAward(id uint) (int64, error) {
	unlock := r.keys.lock("award", int64(id))
	defer unlock()

	rows := r.deleteAward(id)
	if rows == 0 {
		return 0, nil
	}
	r.publish(access.ResourceAward, int64(id))
	return rows, nil
}

// Movie returns the movie with the given external id.
func (r *Remote) Movie(movieID int64) (Movie, error) {
	m, err := r.movie(movieID)
	if err != nil {
		return Movie{}, err
	}
	return *m, nil
}

// Award returns the award with the given id.
func (r *Remote) Award(id uint) (Award, error) {
	a, err := r.award(id)
	if err != nil {
		return Award{}, err
	}
	return *a, nil
}

func (r *Remote) Movies() []Movie {
	var movies []Movie
	r.db.Order("movie_id").Find(&movies)
	return movies
}

func (r *Remote) Awards() []Award {
	var awards []Award
	r.db.Order("date, display_order, id").Find(&awards)
	return awards
}

// MovieAwards returns the awards referencing the movie's external id.
func (r *Remote) MovieAwards(movieID int64) []Award {
	return r.movieAwards(movieID)
}
