// Package auth contains identity subsystem: passwords, session cookies and actor resolution.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Decentr-net/animenexus/internal/entities"
)

// CookieName is a name of session cookie.
const CookieName = "animenexus_session"

// nolint:gochecknoglobals
var log = logrus.WithFields(logrus.Fields{
	"layer":   "auth",
	"package": "session",
})

// ErrNoSession is returned when request carries no valid session.
var ErrNoSession = errors.New("no session")

// Claims are stored in session token.
type Claims struct {
	jwt.RegisteredClaims
	Username string `json:"username"`
	Staff    bool   `json:"staff,omitempty"`
}

// Sessions issues and verifies session cookies signed with HS256.
type Sessions struct {
	secret []byte
	ttl    time.Duration
	secure bool
	now    func() time.Time
}

// NewSessions ...
func NewSessions(secret string, ttl time.Duration, secure bool) *Sessions {
	return &Sessions{
		secret: []byte(secret),
		ttl:    ttl,
		secure: secure,
		now:    time.Now,
	}
}

// Issue signs a session for user and sets the cookie.
func (s *Sessions) Issue(w http.ResponseWriter, u *entities.User) error {
	now := s.now()
	expires := now.Add(s.ttl)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatInt(u.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
		Username: u.Username,
		Staff:    u.Staff,
	}).SignedString(s.secret)
	if err != nil {
		return fmt.Errorf("failed to sign session: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  expires,
	})

	return nil
}

// Clear removes the session cookie.
func (s *Sessions) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
	})
}

// Actor resolves actor from request cookie.
func (s *Sessions) Actor(r *http.Request) (*entities.Actor, error) {
	c, err := r.Cookie(CookieName)
	if err != nil || c.Value == "" {
		return nil, ErrNoSession
	}

	claims := &Claims{}
	if _, err := jwt.ParseWithClaims(c.Value, claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now)); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNoSession, err)
	}

	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 {
		return nil, fmt.Errorf("%w: invalid subject", ErrNoSession)
	}

	return &entities.Actor{
		UserID:   id,
		Username: claims.Username,
		Staff:    claims.Staff,
	}, nil
}

// Middleware puts actor into request context. Requests without a valid session pass as anonymous.
func (s *Sessions) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a, err := s.Actor(r)
		if err != nil {
			if err != ErrNoSession { // nolint:errorlint
				log.WithError(err).Debug("ignoring invalid session")
			}
			next.ServeHTTP(w, r)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), a)))
	})
}
