package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Decentr-net/animenexus/internal/entities"
)

func TestPassword(t *testing.T) {
	h, err := HashPassword("correct horse")
	require.NoError(t, err)
	require.NotEqual(t, "correct horse", h)

	assert.True(t, CheckPassword("correct horse", h))
	assert.False(t, CheckPassword("wrong horse", h))
	assert.False(t, CheckPassword("correct horse", "not a hash"))
}

func requestWith(cookies []*http.Cookie) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range cookies {
		r.AddCookie(c)
	}

	return r
}

func TestSessions_IssueActor(t *testing.T) {
	s := NewSessions("secret", time.Hour, true)

	w := httptest.NewRecorder()
	require.NoError(t, s.Issue(w, &entities.User{ID: 7, Username: "ann", Staff: true}))

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, CookieName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.True(t, cookies[0].Secure)
	assert.Equal(t, http.SameSiteLaxMode, cookies[0].SameSite)

	a, err := s.Actor(requestWith(cookies))
	require.NoError(t, err)
	assert.Equal(t, &entities.Actor{UserID: 7, Username: "ann", Staff: true}, a)
}

func TestSessions_Actor_Invalid(t *testing.T) {
	s := NewSessions("secret", time.Hour, false)

	w := httptest.NewRecorder()
	require.NoError(t, s.Issue(w, &entities.User{ID: 7, Username: "ann"}))
	cookies := w.Result().Cookies()

	_, err := s.Actor(requestWith(nil))
	require.ErrorIs(t, err, ErrNoSession)

	other := NewSessions("other", time.Hour, false)
	_, err = other.Actor(requestWith(cookies))
	require.ErrorIs(t, err, ErrNoSession)

	s.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = s.Actor(requestWith(cookies))
	require.ErrorIs(t, err, ErrNoSession)

	_, err = s.Actor(requestWith([]*http.Cookie{{Name: CookieName, Value: "garbage"}}))
	require.ErrorIs(t, err, ErrNoSession)
}

func TestSessions_Clear(t *testing.T) {
	s := NewSessions("secret", time.Hour, false)

	w := httptest.NewRecorder()
	s.Clear(w)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Empty(t, cookies[0].Value)
	assert.True(t, cookies[0].MaxAge < 0)
}

func TestSessions_Middleware(t *testing.T) {
	s := NewSessions("secret", time.Hour, false)

	var got *entities.Actor
	h := s.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = ActorFrom(r.Context())
	}))

	h.ServeHTTP(httptest.NewRecorder(), requestWith(nil))
	require.Nil(t, got)

	w := httptest.NewRecorder()
	require.NoError(t, s.Issue(w, &entities.User{ID: 3, Username: "bob"}))

	h.ServeHTTP(httptest.NewRecorder(), requestWith(w.Result().Cookies()))
	require.Equal(t, &entities.Actor{UserID: 3, Username: "bob"}, got)
}

func TestSafeNext(t *testing.T) {
	tt := map[string]string{
		"":                     HomePath,
		"/v1/posts/1":          "/v1/posts/1",
		"/v1/posts?page=2":     "/v1/posts?page=2",
		"//evil.com":           HomePath,
		"https://evil.com/":    HomePath,
		`/\evil.com`:           HomePath,
		"v1/posts":             HomePath,
		"/v1/posts/1#comments": "/v1/posts/1#comments",
	}

	for in, out := range tt {
		assert.Equal(t, out, SafeNext(in), in)
	}
}

func TestRedirectToLogin(t *testing.T) {
	w := httptest.NewRecorder()
	RedirectToLogin(w, httptest.NewRequest(http.MethodPost, "/v1/posts/5/comments", nil), "/v1/posts/5")

	require.Equal(t, http.StatusSeeOther, w.Code)
	require.Equal(t, "/v1/login?next=%2Fv1%2Fposts%2F5", w.Header().Get("Location"))
}
