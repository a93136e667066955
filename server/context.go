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
	"context"
	"net/http"

	"github.com/edmundjohnson/gala/auth"
	"github.com/edmundjohnson/gala/cache"
	"github.com/edmundjohnson/gala/config"
	"github.com/edmundjohnson/gala/remote"
	"github.com/edmundjohnson/gala/router"
)

type contextKey string

var (
	contextKeyContext = contextKey("context")
)

func withContext(r *http.Request, ctx Context) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), contextKeyContext, ctx))
}

func contextValue(r *http.Request) Context {
	return r.Context().Value(contextKeyContext).(Context)
}

type Context interface {
	Auth() *auth.Auth
	Cache() *cache.Cache
	Config() *config.Config
	Remote() *remote.Remote
	Router() *router.Router
	User() *auth.User
}

type RequestContext struct {
	auth   *auth.Auth
	cache  *cache.Cache
	config *config.Config
	remote *remote.Remote
	router *router.Router
	user   *auth.User
}

func makeContext(ctx Context, u *auth.User) RequestContext {
	return RequestContext{
		auth:   ctx.Auth(),
		cache:  ctx.Cache(),
		config: ctx.Config(),
		remote: ctx.Remote(),
		router: ctx.Router(),
		user:   u,
	}
}

func (ctx RequestContext) Auth() *auth.Auth {
	return ctx.auth
}

func (ctx RequestContext) Cache() *cache.Cache {
	return ctx.cache
}

func (ctx RequestContext) Config() *config.Config {
	return ctx.config
}

func (ctx RequestContext) Remote() *remote.Remote {
	return ctx.remote
}

func (ctx RequestContext) Router() *router.Router {
	return ctx.router
}

func (ctx RequestContext) User() *auth.User {
	return ctx.user
}
