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

package main

import (
	"fmt"

	"github.com/edmundjohnson/gala/cache"
	"github.com/edmundjohnson/gala/lib/bus"
	"github.com/edmundjohnson/gala/lib/tmdb"
	"github.com/edmundjohnson/gala/remote"
	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "sync the local cache with the authoritative store",
	RunE: func(cmd *cobra.Command, args []string) error {
		return sync()
	},
}

var syncImdb string

func sync() error {
	cfg, err := getConfig()
	if err != nil {
		return err
	}

	notify := bus.NewBus()
	r := remote.NewRemote(cfg, notify)
	if err = r.Open(); err != nil {
		return err
	}
	defer r.Close()

	if syncImdb != "" {
		// fetch metadata for one movie first, then sync everything
		movieID, err := remote.ParseMovieID(syncImdb)
		if err != nil {
			return err
		}
		client := tmdb.NewTMDB(cfg)
		if _, err = r.ImportMovie(client, movieID); err != nil {
			return err
		}
		fmt.Printf("imported %s\n", syncImdb)
	}

	c := cache.NewCache(cfg, r, notify)
	if err = c.Open(); err != nil {
		return err
	}
	defer c.Close()
	return c.Sync()
}

func init() {
	syncCmd.Flags().StringVarP(&configFile, "config", "c", "", "config file")
	syncCmd.Flags().StringVarP(&syncImdb, "imdb", "i", "", "import movie metadata by external id (tt0000000)")
	rootCmd.AddCommand(syncCmd)
}
