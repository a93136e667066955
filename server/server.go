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
	"encoding/json"
	"net/http"
	"strings"

	"github.com/bmizerany/pat"
	"github.com/edmundjohnson/gala/auth"
	"github.com/edmundjohnson/gala/cache"
	"github.com/edmundjohnson/gala/config"
	"github.com/edmundjohnson/gala/lib/bus"
	"github.com/edmundjohnson/gala/lib/hub"
	"github.com/edmundjohnson/gala/log"
	"github.com/edmundjohnson/gala/remote"
	"github.com/edmundjohnson/gala/router"
)

const (
	AuthorizationHeader = "Authorization"
	BearerAuthorization = "Bearer"
)

func authorizeBearer(ctx Context, w http.ResponseWriter, r *http.Request) *auth.User {
	value := r.Header.Get(AuthorizationHeader)
	if value == "" {
		return nil
	}
	result := strings.Split(value, " ")
	var token string
	switch len(result) {
	case 1:
		// Authorization: <token>
		token = result[0]
	case 2:
		// Authorization: Bearer <token>
		if strings.EqualFold(result[0], BearerAuthorization) {
			token = result[1]
		}
	}
	if len(token) == 0 {
		return nil
	}
	user, err := ctx.Auth().CheckAccessTokenUser(token)
	if err != nil {
		return nil
	}
	return &user
}

func authorizeCookie(ctx Context, w http.ResponseWriter, r *http.Request) *auth.User {
	a := ctx.Auth()
	cookie, err := r.Cookie(auth.CookieName)
	if err != nil {
		authErr(w, ErrUnauthorized)
		return nil
	}

	session := a.CookieSession(cookie)
	if session == nil {
		authErr(w, ErrUnauthorized)
		return nil
	} else if session.Expired() {
		// old session
		a.DeleteSession(*session)
		http.SetCookie(w, auth.ExpireCookie(cookie))
		authErr(w, ErrUnauthorized)
		return nil
	}

	user, err := a.SessionUser(session)
	if err != nil {
		// session with no user?
		a.DeleteSession(*session)
		http.SetCookie(w, auth.ExpireCookie(cookie))
		authErr(w, ErrUnauthorized)
		return nil
	}

	a.RefreshCookie(session, cookie)
	http.SetCookie(w, cookie)

	return user
}

func authorizeUser(ctx Context, w http.ResponseWriter, r *http.Request) *auth.User {
	// check for bearer
	user := authorizeBearer(ctx, w, r)
	if user != nil {
		return user
	}
	// check for cookie
	return authorizeCookie(ctx, w, r)
}

func authHandler(ctx RequestContext, handler http.HandlerFunc) http.Handler {
	fn := func(w http.ResponseWriter, r *http.Request) {
		user := authorizeUser(ctx, w, r)
		if user != nil {
			handler.ServeHTTP(w, withContext(r, makeContext(ctx, user)))
		}
	}
	return http.HandlerFunc(fn)
}

func requestHandler(ctx RequestContext, handler http.HandlerFunc) http.Handler {
	fn := func(w http.ResponseWriter, r *http.Request) {
		handler.ServeHTTP(w, withContext(r, ctx))
	}
	return http.HandlerFunc(fn)
}

// tokenAuthenticator lets the hub accept the same access tokens the API
// takes in the Authorization header.
type tokenAuthenticator struct {
	auth *auth.Auth
}

func (t tokenAuthenticator) Authenticate(token string) bool {
	return t.auth.CheckAccessToken(token) == nil
}

func hubHandler(ctx RequestContext, h *hub.Hub) http.Handler {
	fn := func(w http.ResponseWriter, r *http.Request) {
		h.Handle(tokenAuthenticator{auth: ctx.Auth()}, w, r)
	}
	return http.HandlerFunc(fn)
}

func makeAuth(config *config.Config) (*auth.Auth, error) {
	a := auth.NewAuth(config)
	err := a.Open()
	return a, err
}

func makeHub(config *config.Config) (*hub.Hub, error) {
	h := hub.NewHub()
	go h.Run()
	return h, nil
}

// notifyHub forwards change events to connected clients so screens and
// widgets re-render without polling.
func notifyHub(notify *bus.Bus, h *hub.Hub) *bus.Subscription {
	return notify.Subscribe(func(e bus.Event) {
		body, err := json.Marshal(e)
		if err != nil {
			log.Println(err)
			return
		}
		h.Broadcast(body)
	})
}

func Serve(config *config.Config) error {
	auth, err := makeAuth(config)
	log.CheckError(err)

	notify := bus.NewBus()

	rmt := remote.NewRemote(config, notify)
	err = rmt.Open()
	log.CheckError(err)

	cch := cache.NewCache(config, rmt, notify)
	err = cch.Open()
	log.CheckError(err)

	rtr := router.NewRouter(rmt, cch)

	hub, err := makeHub(config)
	log.CheckError(err)
	notifyHub(notify, hub)

	schedule(config, cch)

	// base context for all requests
	ctx := RequestContext{
		auth:   auth,
		cache:  cch,
		config: config,
		remote: rmt,
		router: rtr,
	}

	mux := pat.New()

	// authorize
	mux.Post("/api/login", requestHandler(ctx, apiLogin))

	// movies
	mux.Post("/api/movies", authHandler(ctx, apiMoviePost))
	mux.Get("/api/movies/:id", authHandler(ctx, apiMovieGet))
	mux.Put("/api/movies/:id", authHandler(ctx, apiMoviePut))
	mux.Patch("/api/movies/:id", authHandler(ctx, apiMoviePatch))
	mux.Del("/api/movies/:id", authHandler(ctx, apiMovieDelete))
	mux.Post("/api/movies/:id/import", authHandler(ctx, apiMovieImport))

	// awards
	mux.Post("/api/awards", authHandler(ctx, apiAwardPost))
	mux.Get("/api/awards/:id", authHandler(ctx, apiAwardGet))
	mux.Put("/api/awards/:id", authHandler(ctx, apiAwardPut))
	mux.Del("/api/awards/:id", authHandler(ctx, apiAwardDelete))

	// viewawards
	mux.Get("/api/viewawards", authHandler(ctx, apiViewAwards))
	mux.Get("/api/viewawards/:id", authHandler(ctx, apiViewAwardGet))
	mux.Post("/api/viewawards/:id/flags", authHandler(ctx, apiViewAwardFlags))

	// search
	mux.Get("/api/search", authHandler(ctx, apiSearch))

	// hub
	mux.Get("/live", hubHandler(ctx, hub))

	log.Printf("listening on %s\n", config.Server.Listen)
	http.Handle("/", mux)
	return http.ListenAndServe(config.Server.Listen, nil)
}
