// Package middleware contains http middlewares which need service collaborators.
package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Decentr-net/animenexus/internal/cache"
)

const responseKeyPrefix = "response:"

// nolint:gochecknoglobals
var log = logrus.WithFields(logrus.Fields{
	"layer":   "server",
	"package": "middleware",
})

// Cached caches successful responses of handler by request URI.
func Cached(c cache.Cache, ttl time.Duration, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := responseKeyPrefix + r.RequestURI

		content, err := c.Get(r.Context(), key)
		if err == nil {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write(content)
			return
		}
		if !errors.Is(err, cache.ErrMiss) {
			log.WithError(err).Warn("failed to get cached response")
		}

		rec := httptest.NewRecorder()
		handler(rec, r)

		for k, v := range rec.Header() {
			w.Header()[k] = v
		}

		w.WriteHeader(rec.Code)
		content = rec.Body.Bytes()

		if rec.Code == http.StatusOK {
			if err := c.Set(r.Context(), key, content, ttl); err != nil {
				log.WithError(err).Warn("failed to cache response")
			}
		}

		_, _ = w.Write(content)
	}
}
