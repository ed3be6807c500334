package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHandler(t *testing.T) {
	ok := SubjectPinger("postgres", func(ctx context.Context) error { return nil })
	failed := SubjectPinger("cache", func(ctx context.Context) error { return errors.New("connection refused") })

	w := httptest.NewRecorder()
	Handler(time.Second, ok)(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "dev", resp.Version)
	require.Empty(t, resp.Errors)

	w = httptest.NewRecorder()
	Handler(time.Second, ok, failed)(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	resp = Response{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, map[string]string{"cache": "connection refused"}, resp.Errors)
}

func TestHandler_Timeout(t *testing.T) {
	slow := SubjectPinger("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	w := httptest.NewRecorder()
	Handler(10*time.Millisecond, slow)(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestGetVersion(t *testing.T) {
	require.Equal(t, "dev-undefined", GetVersion())
}
