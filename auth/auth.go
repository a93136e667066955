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

// Package auth manages users, their roles, login sessions and access
// tokens. The role stored here is what the capability gate decides with.
package auth

import (
	"bytes"
	"crypto/rand"
	"errors"
	"net/http"
	"time"

	"github.com/edmundjohnson/gala"
	"github.com/edmundjohnson/gala/access"
	"github.com/edmundjohnson/gala/config"
	"github.com/edmundjohnson/gala/lib/gorm"
	"github.com/golang-jwt/jwt"
	"github.com/google/uuid"
	"golang.org/x/crypto/scrypt"
	"gorm.io/driver/sqlite"
	gormdb "gorm.io/gorm"
)

const (
	CookieName = gala.AppName
)

var (
	ErrBadDriver           = errors.New("driver not supported")
	ErrUserNotFound        = errors.New("user not found")
	ErrKeyMismatch         = errors.New("key mismatch")
	ErrSessionNotFound     = errors.New("session not found")
	ErrSessionExpired      = errors.New("session expired")
	ErrBadRole             = errors.New("unknown role")
	ErrInvalidTokenSubject = errors.New("invalid subject")
	ErrInvalidTokenMethod  = errors.New("invalid token method")
	ErrInvalidTokenIssuer  = errors.New("invalid token issuer")
	ErrInvalidTokenClaims  = errors.New("invalid token claims")
	ErrInvalidTokenSecret  = errors.New("invalid token secret")
	ErrTokenExpired        = errors.New("token expired")
)

type User struct {
	gorm.Model
	Name string `gorm:"uniqueIndex:idx_user_name"`
	Key  []byte
	Salt []byte
	Role string
}

// AccessRole returns the user's role for the capability gate. Anything
// unrecognized in the database is treated as a standard user.
func (u *User) AccessRole() access.Role {
	if access.Role(u.Role) == access.RoleAdmin {
		return access.RoleAdmin
	}
	return access.RoleStandard
}

// A Session is an authenticated user login session associated with a token
// and expiration date.
type Session struct {
	gorm.Model
	User    string `gorm:"index:idx_session_user"`
	Token   string `gorm:"uniqueIndex:idx_session_token"`
	Expires time.Time
}

// Expired returns whether or not the session is expired.
func (s *Session) Expired() bool {
	now := time.Now()
	return now.After(s.Expires)
}

func (s *Session) Valid() bool {
	return !s.Expired()
}

type Auth struct {
	config *config.Config
	db     *gormdb.DB
}

func NewAuth(config *config.Config) *Auth {
	if config.Auth.Secret == "" {
		panic(ErrInvalidTokenSecret)
	}
	return &Auth{config: config}
}

func (a *Auth) Open() (err error) {
	cfg := &gormdb.Config{}

	if a.config.Auth.DB.Driver == "sqlite3" {
		a.db, err = gormdb.Open(sqlite.Open(a.config.Auth.DB.Source), cfg)
	} else {
		err = ErrBadDriver
	}

	if err != nil {
		return
	}

	err = a.db.AutoMigrate(&Session{}, &User{})
	return
}

func (a *Auth) Close() {
	conn, err := a.db.DB()
	if err != nil {
		return
	}
	conn.Close()
}

// AddUser adds a new user with the given role to the user database.
func (a *Auth) AddUser(userid, pass string, role access.Role) error {
	if role != access.RoleAdmin && role != access.RoleStandard {
		return ErrBadRole
	}

	salt := make([]byte, 8)
	_, err := rand.Read(salt)
	if err != nil {
		return err
	}

	key, err := a.key(pass, salt)
	if err != nil {
		return err
	}

	u := User{Name: userid, Key: key, Salt: salt, Role: string(role)}

	return a.createUser(&u)
}

// AssignRole changes the role of an existing user. Existing sessions are
// revoked so the old role cannot outlive the change.
func (a *Auth) AssignRole(userid string, role access.Role) error {
	if role != access.RoleAdmin && role != access.RoleStandard {
		return ErrBadRole
	}
	u, err := a.User(userid)
	if err != nil {
		return err
	}
	u.Role = string(role)
	if err = a.updateUser(&u); err != nil {
		return err
	}
	return a.DeleteSessions(&u)
}

// User returns the user found with the provided userid.
func (a *Auth) User(userid string) (User, error) {
	var u User
	err := a.db.Where("name = ?", userid).First(&u).Error
	if err != nil && errors.Is(err, gormdb.ErrRecordNotFound) {
		return User{}, ErrUserNotFound
	}
	return u, nil
}

// Check will check if the provided userid and password match a user in the
// database.
func (a *Auth) Check(userid, pass string) (User, error) {
	u, err := a.User(userid)
	if err != nil {
		return u, ErrUserNotFound
	}

	key, err := a.key(pass, u.Salt)
	if err != nil {
		return User{}, err
	}

	if !bytes.Equal(u.Key, key) {
		return User{}, ErrKeyMismatch
	}

	return u, nil
}

func CredentialsError(err error) bool {
	switch err {
	case ErrUserNotFound, ErrKeyMismatch:
		return true
	default:
		return false
	}
}

// Login will create a new login session after authenticating the userid and
// password.
func (a *Auth) Login(userid, pass string) (Session, error) {
	u, err := a.Check(userid, pass)
	if err != nil {
		return Session{}, err
	}
	session := a.session(&u)
	err = a.createSession(&session)
	if err != nil {
		return Session{}, err
	}
	return session, err
}

// ChangePass changes the password associated with the provided userid and
// revokes any existing sessions. Use Check prior to this if you'd like to
// verify the current password.
func (a *Auth) ChangePass(userid, newpass string) error {
	u, err := a.User(userid)
	if err != nil {
		return ErrUserNotFound
	}

	salt := make([]byte, 8)
	_, err = rand.Read(salt)
	if err != nil {
		return err
	}

	key, err := a.key(newpass, salt)
	if err != nil {
		return err
	}

	u.Salt = salt
	u.Key = key

	err = a.db.Model(u).Update("salt", u.Salt).Update("key", u.Key).Error
	if err != nil {
		return err
	}
	return a.DeleteSessions(&u)
}

// NewAccessToken creates a new JWT token associated with the provided
// session.
func (a *Auth) NewAccessToken(s Session) (string, error) {
	age := int(a.config.Auth.MaxAge.Seconds())
	token := jwt.NewWithClaims(jwt.SigningMethodHS256,
		jwt.StandardClaims{
			Issuer:    gala.AppName,
			Subject:   s.User,
			ExpiresAt: time.Now().Add(time.Second * time.Duration(age)).Unix(),
		})
	return token.SignedString([]byte(a.config.Auth.Secret))
}

// NewCookie creates a new cookie associated with the provided session.
func (a *Auth) NewCookie(session *Session) http.Cookie {
	return http.Cookie{
		Name:     CookieName,
		Value:    session.Token,
		MaxAge:   session.timeRemaining(),
		Path:     "/",
		Secure:   a.config.Auth.SecureCookies,
		SameSite: http.SameSiteStrictMode,
		HttpOnly: true}
}

// ExpireCookie will update cookie fields to ensure it's expired.
func ExpireCookie(cookie *http.Cookie) *http.Cookie {
	cookie.MaxAge = 0
	cookie.Expires = time.Now().Add(-24 * time.Hour)
	return cookie
}

// CookieSession will find the session associated with the provided cookie.
func (a *Auth) CookieSession(cookie *http.Cookie) *Session {
	if cookie == nil || cookie.Name != CookieName {
		return nil
	}
	return a.findSession(cookie.Value)
}

// TokenSession will find the session associated with the provided token.
func (a *Auth) TokenSession(token string) *Session {
	return a.findSession(token)
}

func (a *Auth) CheckCookie(cookie *http.Cookie) error {
	session := a.CookieSession(cookie)
	if session == nil {
		return ErrSessionNotFound
	}
	if session.Expired() {
		return ErrSessionExpired
	}
	return nil
}

func (a *Auth) CheckAccessToken(signedToken string) error {
	_, _, err := a.processToken(signedToken)
	return err
}

// CheckAccessTokenUser verifies the token and returns its user.
func (a *Auth) CheckAccessTokenUser(signedToken string) (User, error) {
	_, claims, err := a.processToken(signedToken)
	if err != nil {
		return User{}, err
	}
	return a.User(claims.Subject)
}

// processToken parses and verifies the signed token is valid.
func (a *Auth) processToken(signedToken string) (*jwt.Token, *jwt.StandardClaims, error) {
	token, err := jwt.ParseWithClaims(
		signedToken,
		&jwt.StandardClaims{},
		func(token *jwt.Token) (interface{}, error) {
			return []byte(a.config.Auth.Secret), nil
		})
	if err != nil {
		return nil, nil, err
	}
	if token.Method != jwt.SigningMethodHS256 {
		return nil, nil, ErrInvalidTokenMethod
	}
	claims, ok := token.Claims.(*jwt.StandardClaims)
	if !ok {
		return nil, nil, ErrInvalidTokenClaims
	}
	if claims.Issuer != gala.AppName {
		return nil, nil, ErrInvalidTokenIssuer
	}
	if claims.ExpiresAt < time.Now().Unix() {
		return nil, nil, ErrTokenExpired
	}
	if claims.Subject == "" {
		return nil, nil, ErrInvalidTokenSubject
	}
	return token, claims, nil
}

// UpdateCookie will update the cookie age based on the time left for the
// session.
func UpdateCookie(session *Session, cookie *http.Cookie) {
	cookie.MaxAge = session.timeRemaining()
}

// RefreshCookie will renew a session and cookie.
func (a *Auth) RefreshCookie(session *Session, cookie *http.Cookie) error {
	err := a.Refresh(session)
	if err != nil {
		return err
	}
	cookie.MaxAge = session.timeRemaining()
	return nil
}

// DeleteSession will delete the provided session.
func (a *Auth) DeleteSession(session Session) {
	a.db.Delete(&session)
}

// DeleteSessions will delete all of the user's sessions.
func (a *Auth) DeleteSessions(u *User) error {
	return a.db.Delete(&Session{}, "user = ?", u.Name).Error
}

func (a *Auth) SessionUser(session *Session) (*User, error) {
	u, err := a.User(session.User)
	if err != nil {
		return &u, ErrUserNotFound
	}
	return &u, nil
}

func (a *Auth) Refresh(session *Session) error {
	if session == nil {
		return ErrSessionNotFound
	}
	return a.touch(session)
}

func (a *Auth) key(pass string, salt []byte) ([]byte, error) {
	return scrypt.Key([]byte(pass), salt, 32768, 8, 1, 32)
}

func (a *Auth) findSession(token string) *Session {
	var session Session
	err := a.db.Where("token = ?", token).First(&session).Error
	if err != nil && errors.Is(err, gormdb.ErrRecordNotFound) {
		return nil
	}
	return &session
}

func (a *Auth) session(u *User) Session {
	token := uuid.New().String()
	expires := time.Now().Add(a.config.Auth.MaxAge)
	session := Session{User: u.Name, Token: token, Expires: expires}
	return session
}

func (a *Auth) touch(s *Session) error {
	expires := time.Now().Add(a.config.Auth.MaxAge)
	return a.db.Model(s).Update("expires", expires).Error
}

func (a *Auth) createUser(u *User) (err error) {
	err = a.db.Create(u).Error
	return
}

func (a *Auth) updateUser(u *User) (err error) {
	err = a.db.Save(u).Error
	return
}

func (a *Auth) createSession(s *Session) (err error) {
	err = a.db.Create(s).Error
	return
}

// timeRemaining returns the number of seconds remaining in this session.
func (s *Session) timeRemaining() int {
	return int(s.Duration().Seconds())
}

// Duration returns the remaining time for this session.
func (s *Session) Duration() time.Duration {
	return s.Expires.Sub(time.Now())
}
