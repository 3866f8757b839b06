package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cradoe/puddle/internal/auth"
	ctxutil "github.com/cradoe/puddle/internal/context"
	"github.com/cradoe/puddle/internal/errHandler"
	"github.com/cradoe/puddle/internal/metrics"
	"github.com/cradoe/puddle/internal/models"
	"github.com/cradoe/puddle/internal/service"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeResolver map[string]*auth.Identity

func (f fakeResolver) Resolve(_ context.Context, token string) (*auth.Identity, error) {
	identity, ok := f[token]
	if !ok {
		return nil, auth.ErrInvalidToken
	}
	return identity, nil
}

type fakeUsers struct {
	users map[string]*models.User
	err   error
}

func (f *fakeUsers) FindUser(_ context.Context, identity *auth.Identity) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	user, ok := f.users[identity.Key]
	if !ok {
		return nil, service.ErrUserNotFound
	}
	return user, nil
}

func newTestMiddleware(logger *slog.Logger, users *fakeUsers, limiter *IPRateLimiter) *Middleware {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if users == nil {
		users = &fakeUsers{}
	}

	resolver := fakeResolver{
		"good-token": {Key: "did:test:1", WalletAddress: "0x00000000000000000000000000000000000000aa"},
	}

	return New(errHandler.New("", "", nil, logger), logger, resolver, users, limiter)
}

func okHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func TestAuthenticate(t *testing.T) {
	mid := newTestMiddleware(nil, nil, nil)

	var seen *auth.Identity
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = ctxutil.ContextGetIdentity(r)
		w.WriteHeader(http.StatusNoContent)
	})

	tests := []struct {
		name     string
		header   string
		status   int
		identity bool
	}{
		{name: "anonymous", header: "", status: http.StatusNoContent},
		{name: "valid token", header: "Bearer good-token", status: http.StatusNoContent, identity: true},
		{name: "unknown token", header: "Bearer nope", status: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic good-token", status: http.StatusUnauthorized},
		{name: "missing token", header: "Bearer", status: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = nil
			r := httptest.NewRequest(http.MethodGet, "/piggy-banks", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()

			mid.Authenticate(next).ServeHTTP(rr, r)

			assert.Equal(t, tt.status, rr.Code)
			if tt.identity {
				require.NotNil(t, seen)
				assert.Equal(t, "did:test:1", seen.Key)
			} else {
				assert.Nil(t, seen)
			}
			if tt.status == http.StatusUnauthorized {
				assert.Equal(t, "Bearer", rr.Header().Get("WWW-Authenticate"))
			}
		})
	}
}

func TestRequireUser(t *testing.T) {
	user := &models.User{ID: "11111111-1111-1111-1111-111111111111"}
	users := &fakeUsers{users: map[string]*models.User{"did:test:1": user}}
	mid := newTestMiddleware(nil, users, nil)

	var seen *models.User
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = ctxutil.ContextGetAuthenticatedUser(r)
		w.WriteHeader(http.StatusNoContent)
	})
	h := mid.Authenticate(mid.RequireUser(next))

	t.Run("anonymous", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/piggy-banks", nil))
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("known user", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/piggy-banks", nil)
		r.Header.Set("Authorization", "Bearer good-token")
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, r)

		assert.Equal(t, http.StatusNoContent, rr.Code)
		assert.Same(t, user, seen)
	})

	t.Run("no user row", func(t *testing.T) {
		delete(users.users, "did:test:1")
		r := httptest.NewRequest(http.MethodGet, "/piggy-banks", nil)
		r.Header.Set("Authorization", "Bearer good-token")
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, r)

		assert.Equal(t, http.StatusNotFound, rr.Code)
		assert.Contains(t, rr.Body.String(), "User not found")
	})

	t.Run("lookup failure", func(t *testing.T) {
		users.err = errors.New("connection refused")
		r := httptest.NewRequest(http.MethodGet, "/piggy-banks", nil)
		r.Header.Set("Authorization", "Bearer good-token")
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, r)

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
	})
}

func TestRateLimit(t *testing.T) {
	mid := newTestMiddleware(nil, nil, NewIPRateLimiter(0.001, 2))
	h := mid.RateLimit(http.HandlerFunc(okHandler))

	request := func(ip string) int {
		r := httptest.NewRequest(http.MethodGet, "/status", nil)
		r.Header.Set("X-Real-Ip", ip)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, r)
		return rr.Code
	}

	assert.Equal(t, http.StatusNoContent, request("10.0.0.1"))
	assert.Equal(t, http.StatusNoContent, request("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, request("10.0.0.1"))
	assert.Equal(t, http.StatusNoContent, request("10.0.0.2"))
}

func TestIPRateLimiterSweepsIdleVisitors(t *testing.T) {
	limiter := NewIPRateLimiter(1, 1)
	now := time.Now()
	limiter.now = func() time.Time { return now }

	limiter.GetLimiter("10.0.0.1")
	limiter.GetLimiter("10.0.0.2")
	assert.Equal(t, 2, limiter.size())

	now = now.Add(2 * time.Minute)
	limiter.GetLimiter("10.0.0.2")
	assert.Equal(t, 2, limiter.size())

	now = now.Add(4 * time.Minute)
	limiter.GetLimiter("10.0.0.3")
	assert.Equal(t, 1, limiter.size())
}

func TestRecoverPanic(t *testing.T) {
	mid := newTestMiddleware(nil, nil, nil)
	h := mid.RecoverPanic(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestLogAccess(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	mid := newTestMiddleware(logger, nil, nil)

	h := mid.LogAccess(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte("created"))
	}))

	r := httptest.NewRequest(http.MethodPost, "/deposits/record", nil)
	r.Header.Set("X-Real-Ip", "10.0.0.9")
	h.ServeHTTP(httptest.NewRecorder(), r)

	var entry struct {
		Msg  string `json:"msg"`
		User struct {
			IP string `json:"ip"`
		} `json:"user"`
		Request struct {
			Method string `json:"method"`
			URL    string `json:"url"`
		} `json:"request"`
		Response struct {
			Status int `json:"status"`
			Size   int `json:"size"`
		} `json:"response"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))

	assert.Equal(t, "access", entry.Msg)
	assert.Equal(t, "10.0.0.9", entry.User.IP)
	assert.Equal(t, http.MethodPost, entry.Request.Method)
	assert.Equal(t, "/deposits/record", entry.Request.URL)
	assert.Equal(t, http.StatusCreated, entry.Response.Status)
	assert.Equal(t, 7, entry.Response.Size)
}

func TestMetricsUsesRoutePattern(t *testing.T) {
	mid := newTestMiddleware(nil, nil, nil)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /piggy-banks/{id}", okHandler)
	h := mid.Metrics(mux)

	counter := metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "GET /piggy-banks/{id}", "204")
	before := testutil.ToFloat64(counter)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/piggy-banks/abc", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/piggy-banks/def", nil))

	assert.Equal(t, before+2, testutil.ToFloat64(counter))
}
