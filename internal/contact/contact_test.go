package contact

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(url string) Config {
	return Config{
		URL:        url,
		ServiceID:  "service",
		TemplateID: "template",
		UserID:     "user",
		Timeout:    time.Second,
	}
}

func TestEmailjs_Send(t *testing.T) {
	var got payload

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ok := New(testConfig(srv.URL)).Send(context.Background(), Message{
		Name:    "Ann",
		Email:   "ann@example.com",
		Message: "hello",
	})
	require.True(t, ok)

	assert.Equal(t, payload{
		ServiceID:  "service",
		TemplateID: "template",
		UserID:     "user",
		TemplateParams: templateParams{
			Name:    "Ann",
			Email:   "ann@example.com",
			Message: "hello",
		},
	}, got)
}

func TestEmailjs_Send_ServerError(t *testing.T) {
	calls := 0

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(strings.Repeat("x", 1000)))
	}))
	defer srv.Close()

	require.False(t, New(testConfig(srv.URL)).Send(context.Background(), Message{Name: "a", Email: "a@b.c", Message: "m"}))
	require.Equal(t, 1, calls)
}

func TestEmailjs_Send_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.Timeout = 20 * time.Millisecond

	require.False(t, New(cfg).Send(context.Background(), Message{Name: "a", Email: "a@b.c", Message: "m"}))
}

func TestEmailjs_Send_NotConfigured(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("unexpected request")
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.UserID = ""

	require.False(t, New(cfg).Send(context.Background(), Message{Name: "a", Email: "a@b.c", Message: "m"}))
}

func TestNew_Defaults(t *testing.T) {
	s := New(Config{}).(*emailjs)

	assert.Equal(t, DefaultURL, s.cfg.URL)
	assert.Equal(t, DefaultTimeout, s.client.Timeout)
}
