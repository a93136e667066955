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

package remote

import (
	"errors"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func (r *Remote) openDB() (err error) {
	var glog logger.Interface
	if r.config.Remote.DB.LogMode == false {
		glog = logger.Discard
	} else {
		glog = logger.Default
	}
	cfg := &gorm.Config{
		Logger: glog,
	}

	if r.config.Remote.DB.Driver == "sqlite3" {
		r.db, err = gorm.Open(sqlite.Open(r.config.Remote.DB.Source), cfg)
	} else {
		err = ErrBadDriver
	}

	if err != nil {
		return
	}

	r.db.AutoMigrate(&Award{}, &Movie{})
	return
}

func (r *Remote) closeDB() {
	conn, err := r.db.DB()
	if err != nil {
		return
	}
	conn.Close()
}

func (r *Remote) movie(movieID int64) (*Movie, error) {
	var movie Movie
	err := r.db.Where("movie_id = ?", movieID).First(&movie).Error
	if err != nil && errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return &movie, err
}

func (r *Remote) award(id uint) (*Award, error) {
	var award Award
	err := r.db.First(&award, id).Error
	if err != nil && errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return &award, err
}

func (r *Remote) saveMovie(m *Movie) error {
	return r.db.Save(m).Error
}

func (r *Remote) createMovie(m *Movie) error {
	return r.db.Create(m).Error
}

func (r *Remote) deleteMovie(movieID int64) int64 {
	var count int64
	var list []Movie
	r.db.Where("movie_id = ?", movieID).Find(&list)
	for _, o := range list {
		if r.db.Unscoped().Delete(o).Error == nil {
			count++
		}
	}
	return count
}

func (r *Remote) saveAward(a *Award) error {
	return r.db.Save(a).Error
}

func (r *Remote) createAward(a *Award) error {
	return r.db.Create(a).Error
}

func (r *Remote) deleteAward(id uint) int64 {
	var count int64
	var list []Award
	r.db.Find(&list, id)
	for _, o := range list {
		if r.db.Unscoped().Delete(o).Error == nil {
			count++
		}
	}
	return count
}

func (r *Remote) movieAwards(movieID int64) []Award {
	var awards []Award
	r.db.Where("movie_id = ?", movieID).
		Order("date, display_order, id").Find(&awards)
	return awards
}
