package upstream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plantprofit/internal/domain"
)

func TestCheckClassifiesStatus(t *testing.T) {
	c := New("svc", Options{})
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusBadRequest, domain.ErrInvalidInput},
		{http.StatusUnprocessableEntity, domain.ErrInvalidInput},
		{http.StatusUnauthorized, domain.ErrServiceUnavailable},
		{http.StatusForbidden, domain.ErrServiceUnavailable},
		{http.StatusTooManyRequests, domain.ErrServiceUnavailable},
		{http.StatusBadGateway, domain.ErrServiceUnavailable},
	}
	for _, tt := range tests {
		err := c.Check(&Response{Status: tt.status, Body: []byte("nope")})
		require.Error(t, err)
		assert.ErrorIs(t, err, tt.want, tt.status)
		assert.True(t, IsStatus(err, tt.status))
	}
	assert.NoError(t, c.Check(&Response{Status: http.StatusOK}))
}

func TestDoSingleAttempt(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":"busy"}`))
	}))
	defer srv.Close()

	c := New("svc", Options{RequestsPerSecond: 100})
	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	resp, err := c.Do(context.Background(), req, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.Status)
	assert.Equal(t, `{"error":"busy"}`, string(resp.Body))
	assert.ErrorIs(t, c.Check(resp), domain.ErrServiceUnavailable)
	assert.Equal(t, 1, calls)
}

func TestDoTimeoutIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := New("svc", Options{Timeout: 20 * time.Millisecond})
	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	_, err = c.Do(context.Background(), req, nil)
	assert.ErrorIs(t, err, domain.ErrServiceUnavailable)
}

func TestDoCancelledContextIsUnavailable(t *testing.T) {
	c := New("svc", Options{RequestsPerSecond: 1})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req, err := http.NewRequest(http.MethodGet, "http://127.0.0.1:1", nil)
	require.NoError(t, err)
	_, err = c.Do(ctx, req, nil)
	assert.ErrorIs(t, err, domain.ErrServiceUnavailable)
}
