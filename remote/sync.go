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
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/edmundjohnson/gala/lib/date"
	"github.com/edmundjohnson/gala/log"
	"github.com/edmundjohnson/gala/lib/tmdb"
)

const (
	jobDirector   = "Director"
	jobScreenplay = "Screenplay"

	castLimit = 10
)

// A Lookup resolves external movie ids to full metadata records. *tmdb.TMDB
// is the production implementation.
type Lookup interface {
	MovieByIMDB(imdbID string) (*tmdb.Movie, error)
	MovieCredits(tmid int) (*tmdb.Credits, error)
	MovieCertification(tmid int, country string) (string, error)
	Poster(posterPath, size string) *url.URL
}

// ImportMovie looks up a movie by external id, upserts the mapped record
// into the authoritative store, and returns the movie's external id. The id
// may be "tt4016934" or the bare numeric form.
func (r *Remote) ImportMovie(client Lookup, movieID int64) (int64, error) {
	imdbID := fmt.Sprintf("tt%07d", movieID)
	detail, err := client.MovieByIMDB(imdbID)
	if err != nil {
		return 0, err
	}

	m := Movie{
		MovieID:  movieID,
		Title:    detail.Title,
		Released: date.Millis(date.ParseRelease(detail.ReleaseDate)),
		Plot:     detail.Overview,
		Language: detail.OriginalLanguage,
	}
	if detail.Runtime > 0 {
		m.Runtime = int64(detail.Runtime)
	} else {
		m.Runtime = date.Unknown
	}
	var genres []string
	for _, g := range detail.Genres {
		genres = append(genres, g.Name)
	}
	m.Genre = strings.Join(genres, ", ")
	var countries []string
	for _, c := range detail.ProductionCountries {
		countries = append(countries, c.Name)
	}
	m.Country = strings.Join(countries, ", ")
	if u := client.Poster(detail.PosterPath, tmdb.Poster342); u != nil {
		m.Poster = u.String()
	}

	credits, err := client.MovieCredits(detail.ID)
	if err != nil {
		// credits are nice to have; the record stands without them
		log.Printf("credits %s: %s\n", imdbID, err)
	} else {
		var directors, writers, cast []string
		for _, c := range credits.Crew {
			switch c.Job {
			case jobDirector:
				directors = append(directors, c.Name)
			case jobScreenplay:
				writers = append(writers, c.Name)
			}
		}
		for i, c := range credits.Cast {
			if i == castLimit {
				break
			}
			cast = append(cast, c.Name)
		}
		m.Director = strings.Join(directors, ", ")
		m.Screenplay = strings.Join(writers, ", ")
		m.CastList = strings.Join(cast, ", ")
	}

	cert, err := client.MovieCertification(detail.ID, "GB")
	if err == nil {
		m.Certificate = cert
	}

	if _, err = r.UpsertMovie(m); err != nil {
		return 0, err
	}
	return m.MovieID, nil
}

// ParseMovieID accepts "tt4016934" or "4016934".
func ParseMovieID(s string) (int64, error) {
	s = strings.TrimPrefix(s, "tt")
	return strconv.ParseInt(s, 10, 64)
}
