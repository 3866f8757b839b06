package app

import (
	"net/http"

	"github.com/cradoe/puddle/internal/handler"
	"github.com/cradoe/puddle/internal/middleware"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (app *Application) routes() http.Handler {
	mux := http.NewServeMux()

	var limiter *middleware.IPRateLimiter
	if app.Config.RateLimit.RPS > 0 {
		limiter = middleware.NewIPRateLimiter(app.Config.RateLimit.RPS, app.Config.RateLimit.Burst)
	}

	mid := middleware.New(app.errorHandler, app.Logger, app.Resolver, app.Service, limiter)
	routeHandler := handler.NewRouteHandler(&handler.RouteHandler{
		ErrHandler: app.errorHandler,
		Service:    app.Service,
	})

	checks := map[string]handler.Pinger{"database": app.DB}
	if app.Cache != nil {
		checks["redis"] = app.Cache
	}
	statusHandler := handler.NewStatusHandler(app.errorHandler, checks)

	mux.HandleFunc("GET /status", statusHandler.HandleStatus)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.Handle("GET /auth/user", mid.RequireIdentity(http.HandlerFunc(routeHandler.HandleAuthUser)))

	user := func(h http.HandlerFunc) http.Handler {
		return mid.RequireUser(h)
	}

	mux.Handle("GET /piggy-banks", user(routeHandler.HandleListPiggyBanks))
	mux.Handle("POST /piggy-banks", user(routeHandler.HandleCreatePiggyBank))
	mux.Handle("GET /piggy-banks/{id}", user(routeHandler.HandlePiggyBankDetail))
	mux.Handle("GET /piggy-banks/{id}/transactions", user(routeHandler.HandlePiggyBankTransactions))
	mux.Handle("POST /piggy-banks/{id}/invite", user(routeHandler.HandleInvitePartner))

	mux.Handle("POST /deposits/record", user(routeHandler.HandleRecordDeposit))

	mux.Handle("POST /withdrawals/request", user(routeHandler.HandleRequestWithdrawal))
	mux.Handle("POST /withdrawals/{id}/approve", user(routeHandler.HandleApproveWithdrawal))
	mux.Handle("POST /withdrawals/{id}/reject", user(routeHandler.HandleRejectWithdrawal))

	return mid.LogAccess(mid.RecoverPanic(mid.RateLimit(mid.Authenticate(mid.Metrics(mux)))))
}
