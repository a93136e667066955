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
	"strings"

	"github.com/edmundjohnson/gala/query"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func (c *Cache) openDB() (err error) {
	var glog logger.Interface
	if c.config.Cache.DB.LogMode == false {
		glog = logger.Discard
	} else {
		glog = logger.Default
	}
	cfg := &gorm.Config{
		Logger: glog,
	}

	if c.config.Cache.DB.Driver == "sqlite3" {
		c.db, err = gorm.Open(sqlite.Open(c.config.Cache.DB.Source), cfg)
	} else {
		err = ErrBadDriver
	}

	if err != nil {
		return
	}

	c.db.AutoMigrate(&Award{}, &Flag{}, &Movie{})
	return
}

func (c *Cache) closeDB() {
	conn, err := c.db.DB()
	if err != nil {
		return
	}
	conn.Close()
}

func (c *Cache) movie(movieID int64) (*Movie, error) {
	var movie Movie
	err := c.db.Where("movie_id = ?", movieID).First(&movie).Error
	if err != nil && errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return &movie, err
}

func (c *Cache) award(id uint) (*Award, error) {
	var award Award
	err := c.db.First(&award, id).Error
	if err != nil && errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return &award, err
}

func (c *Cache) saveMovie(m *Movie) error {
	return c.db.Save(m).Error
}

func (c *Cache) deleteMovie(movieID int64) {
	c.db.Where("movie_id = ?", movieID).Delete(&Movie{})
}

func (c *Cache) saveAward(a *Award) error {
	return c.db.Save(a).Error
}

func (c *Cache) deleteAward(id uint) {
	c.db.Delete(&Award{}, id)
}

func (c *Cache) deleteMovieAwards(movieID int64) {
	c.db.Where("movie_id = ?", movieID).Delete(&Award{})
}

func (c *Cache) userFlag(user string, movieID int64) (*Flag, error) {
	var flag Flag
	err := c.db.Where("user = ? and movie_id = ?", user, movieID).First(&flag).Error
	if err != nil && errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return &flag, err
}

func (c *Cache) saveFlag(f *Flag) error {
	return c.db.Save(f).Error
}

const viewAwardSelect = `awards.id as id,
movies.id as movie_id,
awards.date as date,
awards.category as category,
awards.display_order as display_order,
movies.title as title,
movies.poster as poster,
coalesce(flags.wishlist, 0) as wishlist,
coalesce(flags.watched, 0) as watched,
coalesce(flags.favourite, 0) as favourite`

// viewAwards builds the joined projection for one user. The whole query
// runs as a single statement so readers always see a consistent snapshot.
func (c *Cache) viewAwards(user string, spec query.Spec) []ViewAward {
	db := c.db.Table("awards").
		Select(viewAwardSelect).
		Joins("inner join movies on movies.movie_id = awards.movie_id").
		Joins("left join flags on flags.movie_id = awards.movie_id and flags.user = ? and flags.deleted_at is null",
			user)

	if spec.Category != query.All {
		db = db.Where("awards.category = ?", spec.Category)
	}
	if spec.Genre != query.All {
		db = db.Where("lower(movies.genre) like ?",
			"%"+strings.ToLower(spec.Genre)+"%")
	}
	db = triStateWhere(db, "flags.wishlist", spec.Wishlist)
	db = triStateWhere(db, "flags.watched", spec.Watched)
	db = triStateWhere(db, "flags.favourite", spec.Favourite)

	dir := "desc"
	if spec.Sort == query.OrderDateAsc {
		dir = "asc"
	}
	db = db.Order("awards.date " + dir).
		Order("awards.display_order asc").
		Order("awards.id asc")

	if spec.Limit > 0 {
		db = db.Limit(spec.Limit)
	}

	var rows []ViewAward
	db.Scan(&rows)
	return rows
}

func triStateWhere(db *gorm.DB, column string, t query.TriState) *gorm.DB {
	switch t {
	case query.Yes:
		return db.Where("coalesce(" + column + ", 0) = 1")
	case query.No:
		return db.Where("coalesce(" + column + ", 0) = 0")
	}
	return db
}

func (c *Cache) viewAward(user string, id uint) (*ViewAward, error) {
	var row ViewAward
	result := c.db.Table("awards").
		Select(viewAwardSelect).
		Joins("inner join movies on movies.movie_id = awards.movie_id").
		Joins("left join flags on flags.movie_id = awards.movie_id and flags.user = ? and flags.deleted_at is null",
			user).
		Where("awards.id = ?", id).
		Scan(&row)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return &row, nil
}

func (c *Cache) moviesFor(keys []string) []Movie {
	var movies []Movie
	c.db.Where("movie_id in (?)", keys).Find(&movies)
	return movies
}
