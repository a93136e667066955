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
	"time"

	"github.com/edmundjohnson/gala/lib/date"
	"github.com/edmundjohnson/gala/lib/gorm"
)

// Movie mirrors the authoritative record. Identity is the locally-assigned
// id from the authoritative store, so mirrored rows keep their upstream
// primary keys and refreshes are plain replaces.
type Movie struct {
	ID          uint  `gorm:"primarykey"`
	MovieID     int64 `gorm:"uniqueIndex:idx_cache_movie_movieid"`
	Title       string
	Certificate string
	Released    int64
	Runtime     int64
	Genre       string
	Director    string
	Screenplay  string
	CastList    string
	Plot        string
	Language    string
	Country     string
	Poster      string
}

type Award struct {
	ID           uint  `gorm:"primarykey"`
	MovieID      int64 `gorm:"index:idx_cache_award_movieid"`
	Date         time.Time
	Category     string
	Review       string
	DisplayOrder int
}

// A Flag row holds one user's personal state for one movie. Flags are
// user-local; they have no existence in the authoritative store.
type Flag struct {
	gorm.Model
	User      string `gorm:"uniqueIndex:idx_flag_user_movie"`
	MovieID   int64  `gorm:"uniqueIndex:idx_flag_user_movie"`
	Wishlist  bool
	Watched   bool
	Favourite bool
}

// ViewAward is the read-only join of a movie, an award and the current
// user's flags. It exists only in query results; it is never stored.
type ViewAward struct {
	ID           uint // award id
	MovieID      uint // movie's locally-assigned id
	Date         time.Time
	Category     string
	DisplayOrder int
	Title        string
	Poster       string
	Wishlist     bool
	Watched      bool
	Favourite    bool
}

func (v ViewAward) AwardDate() string {
	return date.FormatAward(v.Date)
}
