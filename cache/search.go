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
	"strconv"

	"github.com/edmundjohnson/gala/lib/search"
	"github.com/edmundjohnson/gala/log"
	"github.com/edmundjohnson/gala/remote"
)

const searchIndexName = "movies"

func (c *Cache) newSearch() (*search.Search, error) {
	s := search.NewSearch(c.config)
	s.Keywords = []string{
		FieldGenre,
	}
	err := s.Open(searchIndexName)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Search matches movies against the full-text index. Keys in the index are
// external movie ids.
func (c *Cache) Search(q string, limit int) []Movie {
	s, err := c.newSearch()
	if err != nil {
		log.Println("search:", err)
		return nil
	}
	defer s.Close()

	if limit <= 0 {
		limit = c.config.Cache.SearchLimit
	}
	keys, err := s.Search(q, limit)
	if err != nil {
		log.Println("search:", err)
		return nil
	}
	return c.moviesFor(keys)
}

func searchFields(m Movie) search.FieldMap {
	return search.FieldMap{
		FieldTitle:    m.Title,
		FieldGenre:    m.Genre,
		FieldDirector: m.Director,
		FieldCast:     m.CastList,
		FieldPlot:     m.Plot,
	}
}

func searchKey(movieID int64) string {
	return strconv.FormatInt(movieID, 10)
}

func (c *Cache) indexMovie(m Movie) {
	s, err := c.newSearch()
	if err != nil {
		log.Println("index:", err)
		return
	}
	defer s.Close()
	s.Index(search.IndexMap{searchKey(m.MovieID): searchFields(m)})
}

func (c *Cache) unindexMovie(movieID int64) {
	s, err := c.newSearch()
	if err != nil {
		log.Println("unindex:", err)
		return
	}
	defer s.Close()
	s.Delete(searchKey(movieID))
}

func (c *Cache) reindex(movies []remote.Movie) {
	s, err := c.newSearch()
	if err != nil {
		log.Println("reindex:", err)
		return
	}
	defer s.Close()
	index := make(search.IndexMap)
	for _, m := range movies {
		index[searchKey(m.MovieID)] = searchFields(mirrorMovie(m))
	}
	s.Index(index)
}
