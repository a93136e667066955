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

// Package tmdb is the movie metadata lookup collaborator. Lookups either
// yield a Movie-shaped record or one of the typed failures below so callers
// can branch on kind; retry policy belongs to the caller.
package tmdb

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"

	"github.com/edmundjohnson/gala/config"
	"github.com/edmundjohnson/gala/lib/client"
)

var (
	ErrNotFound  = errors.New("movie not found")
	ErrTimeout   = errors.New("lookup timeout")
	ErrServer    = errors.New("server error")
	ErrMalformed = errors.New("malformed response")
)

type TMDB struct {
	config *config.Config
	client *client.Client
}

func NewTMDB(config *config.Config) *TMDB {
	return &TMDB{
		config: config,
		client: client.NewClient(&config.Client),
	}
}

type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type Movie struct {
	ID               int     `json:"id"` // unique movie ID
	IMDB_ID          string  `json:"imdb_id"`
	Genres           []Genre `json:"genres"`
	OriginalLanguage string  `json:"original_language"`
	Overview         string  `json:"overview"`
	PosterPath       string  `json:"poster_path"`
	ReleaseDate      string  `json:"release_date"`
	Title            string  `json:"title"`
	Runtime          int     `json:"runtime"`

	ProductionCountries []production `json:"production_countries"`
}

type Cast struct {
	ID        int    `json:"id"` // unique person ID
	Name      string `json:"name"`
	Character string `json:"character"`
	Order     int    `json:"order"`
}

type Crew struct {
	ID         int    `json:"id"` // unique person ID
	Name       string `json:"name"`
	Department string `json:"department"`
	Job        string `json:"job"`
}

type Credits struct {
	ID   int    `json:"id"` // unique movie ID
	Cast []Cast `json:"cast"`
	Crew []Crew `json:"crew"`
}

// https://developers.themoviedb.org/3/movies/get-movie-release-dates
const (
	TypePremiere = iota + 1
	TypeTheatricalLimited
	TypeTheatrical
	TypeDigital
	TypePhysical
	TypeTV
)

type Release struct {
	Certification string `json:"certification"`
	Date          string `json:"release_date"`
	Type          int    `json:"type"`
}

type ReleaseCountry struct {
	CountryCode string    `json:"iso_3166_1"`
	Releases    []Release `json:"release_dates"`
}

type Releases struct {
	ID      int              `json:"id"`
	Results []ReleaseCountry `json:"results"`
}

type findResult struct {
	MovieResults []Movie `json:"movie_results"`
}

type production struct {
	CountryCode string `json:"iso_3166_1"`
	Name        string `json:"name"`
}

const endpoint = "api.themoviedb.org"

// lookupError maps transport and decode failures to the package's typed
// failures; anything unclassified passes through as-is.
func lookupError(err error) error {
	if err == nil {
		return nil
	}
	var statusErr client.StatusError
	if errors.As(err, &statusErr) {
		if statusErr.Code == 404 {
			return ErrNotFound
		}
		if statusErr.Code >= 500 {
			return ErrServer
		}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout
	}
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return ErrMalformed
	}
	return err
}

// MovieByIMDB resolves an external imdb-style id ("tt4016934") to the full
// movie record.
func (m *TMDB) MovieByIMDB(imdbID string) (*Movie, error) {
	u := fmt.Sprintf(
		"https://%s/3/find/%s?api_key=%s&external_source=imdb_id",
		endpoint, url.PathEscape(imdbID), m.config.TMDB.Key)
	var result findResult
	err := m.client.GetJson(u, &result)
	if err != nil {
		return nil, lookupError(err)
	}
	if len(result.MovieResults) == 0 {
		return nil, ErrNotFound
	}
	return m.MovieDetail(result.MovieResults[0].ID)
}

func (m *TMDB) MovieDetail(tmid int) (*Movie, error) {
	u := fmt.Sprintf(
		"https://%s/3/movie/%d?api_key=%s",
		endpoint, tmid, m.config.TMDB.Key)
	var result Movie
	err := m.client.GetJson(u, &result)
	if err != nil {
		return nil, lookupError(err)
	}
	return &result, nil
}

func (m *TMDB) MovieCredits(tmid int) (*Credits, error) {
	u := fmt.Sprintf(
		"https://%s/3/movie/%d/credits?api_key=%s",
		endpoint, tmid, m.config.TMDB.Key)
	var result Credits
	err := m.client.GetJson(u, &result)
	if err != nil {
		return nil, lookupError(err)
	}
	return &result, nil
}

// MovieCertification returns the certification for the given country's
// theatrical release, or "" when the country has none.
func (m *TMDB) MovieCertification(tmid int, country string) (string, error) {
	u := fmt.Sprintf(
		"https://%s/3/movie/%d/release_dates?api_key=%s",
		endpoint, tmid, m.config.TMDB.Key)
	var result Releases
	err := m.client.GetJson(u, &result)
	if err != nil {
		return "", lookupError(err)
	}
	for _, rc := range result.Results {
		if rc.CountryCode == country {
			for _, r := range rc.Releases {
				if r.Type == TypeTheatrical && r.Certification != "" {
					return r.Certification, nil
				}
			}
		}
	}
	return "", nil
}

const (
	Poster154 = "w154"
	Poster342 = "w342"
	Poster500 = "w500"

	imageBase = "https://image.tmdb.org/t/p/"
)

func (m *TMDB) Poster(posterPath, size string) *url.URL {
	if posterPath == "" {
		return nil
	}
	u, err := url.Parse(imageBase + size + posterPath)
	if err != nil {
		return nil
	}
	return u
}
