package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cradoe/puddle/internal/auth"
	ctxutil "github.com/cradoe/puddle/internal/context"
	"github.com/cradoe/puddle/internal/errHandler"
	"github.com/cradoe/puddle/internal/metrics"
	"github.com/cradoe/puddle/internal/models"
	"github.com/cradoe/puddle/internal/response"
	"github.com/cradoe/puddle/internal/service"

	"github.com/tomasen/realip"
)

// UserFinder looks up the user row for a verified identity.
type UserFinder interface {
	FindUser(ctx context.Context, identity *auth.Identity) (*models.User, error)
}

type Middleware struct {
	errHandler *errHandler.ErrorRepository
	logger     *slog.Logger
	resolver   auth.Resolver
	users      UserFinder
	limiter    *IPRateLimiter
}

// New builds the middleware set. limiter may be nil to disable rate limiting.
func New(errHandler *errHandler.ErrorRepository, logger *slog.Logger, resolver auth.Resolver, users UserFinder, limiter *IPRateLimiter) *Middleware {
	return &Middleware{
		errHandler: errHandler,
		logger:     logger,
		resolver:   resolver,
		users:      users,
		limiter:    limiter,
	}
}

func (mid *Middleware) RecoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			err := recover()
			if err != nil {
				mid.errHandler.ServerError(w, r, fmt.Errorf("%s", err))
			}
		}()

		next.ServeHTTP(w, r)
	})
}

func (mid *Middleware) LogAccess(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mw := response.NewMetricsResponseWriter(w)
		next.ServeHTTP(mw, r)

		var (
			ip     = realip.FromRequest(r)
			method = r.Method
			url    = r.URL.String()
			proto  = r.Proto
		)

		userAttrs := slog.Group("user", "ip", ip)
		requestAttrs := slog.Group("request", "method", method, "url", url, "proto", proto)
		responseAttrs := slog.Group("response", "status", mw.StatusCode, "size", mw.BytesCount)

		mid.logger.Info("access", userAttrs, requestAttrs, responseAttrs)
	})
}

// Metrics records request counts and latency per matched route pattern.
// It must wrap the mux so r.Pattern is set once routing has happened.
func (mid *Middleware) Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		mw := response.NewMetricsResponseWriter(w)

		next.ServeHTTP(mw, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}

		metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(mw.StatusCode)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

func (mid *Middleware) RateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if mid.limiter != nil && !mid.limiter.GetLimiter(realip.FromRequest(r)).Allow() {
			mid.errHandler.RateLimitExceeded(w, r)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Authenticate resolves a bearer token into an identity. Requests without an
// Authorization header pass through anonymously; a bad token is rejected.
func (mid *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Vary", "Authorization")

		authorizationHeader := r.Header.Get("Authorization")

		if authorizationHeader != "" {
			headerParts := strings.Split(authorizationHeader, " ")

			if len(headerParts) != 2 || headerParts[0] != "Bearer" || headerParts[1] == "" {
				mid.errHandler.InvalidAuthenticationToken(w, r)
				return
			}

			identity, err := mid.resolver.Resolve(r.Context(), headerParts[1])
			if err != nil {
				mid.errHandler.InvalidAuthenticationToken(w, r)
				return
			}

			r = ctxutil.ContextSetIdentity(r, identity)
		}

		next.ServeHTTP(w, r)
	})
}

func (mid *Middleware) RequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ctxutil.ContextGetIdentity(r) == nil {
			mid.errHandler.AuthenticationRequired(w, r)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// RequireUser loads the caller's user row. Callers who never hit
// GET /auth/user have none yet and get a 404.
func (mid *Middleware) RequireUser(next http.Handler) http.Handler {
	return mid.RequireIdentity(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := mid.users.FindUser(r.Context(), ctxutil.ContextGetIdentity(r))
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			mid.errHandler.NotFoundMessage(w, r, "User not found")
			return
		case err != nil:
			mid.errHandler.ServerError(w, r, err)
			return
		}

		r = ctxutil.ContextSetAuthenticatedUser(r, user)
		next.ServeHTTP(w, r)
	}))
}
