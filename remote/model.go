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
	"time"

	"github.com/edmundjohnson/gala/lib/date"
	"github.com/edmundjohnson/gala/lib/gorm"
)

// Movie is the canonical metadata record. MovieID is the immutable external
// industry id; the embedded gorm Model carries the locally-assigned id used
// for cache identity. Released is epoch millis and Runtime is minutes, both
// with date.Unknown when the source data has no value.
type Movie struct {
	gorm.Model
	MovieID     int64 `gorm:"uniqueIndex:idx_movie_movieid"`
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

func (m Movie) Valid() bool {
	return m.MovieID > 0 && len(m.Title) > 0
}

// An Award annotates a movie. MovieID references the movie's external id.
// DisplayOrder is the stable tie-break for awards given on the same date.
type Award struct {
	gorm.Model
	MovieID      int64  `gorm:"index:idx_award_movieid"`
	Date         time.Time
	Category     string
	Review       string
	DisplayOrder int
}

// Valid reports whether the mandatory fields are all present. Awards with
// missing fields are never stored.
func (a Award) Valid() bool {
	return a.MovieID > 0 && !a.Date.IsZero() &&
		len(a.Category) > 0 && len(a.Review) > 0
}

// AwardDate is the compact yymmdd form used by clients.
func (a Award) AwardDate() string {
	return date.FormatAward(a.Date)
}
