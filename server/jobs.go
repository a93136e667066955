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

package server

import (
	"time"

	"github.com/go-co-op/gocron"

	"github.com/edmundjohnson/gala/cache"
	"github.com/edmundjohnson/gala/config"
	"github.com/edmundjohnson/gala/log"
)

// schedule runs a periodic full cache sync. Change events keep the mirror
// fresh in steady state; the sync repairs anything missed while down.
func schedule(config *config.Config, c *cache.Cache) {
	scheduler := gocron.NewScheduler(time.UTC)

	scheduler.Every(config.Cache.SyncInterval).WaitForSchedule().Do(func() {
		log.Printf("sync cache\n")
		err := c.Sync()
		if err != nil {
			log.Println(err)
		}
	})

	scheduler.StartAsync()
}
