package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/cradoe/puddle/internal/errHandler"
	"github.com/cradoe/puddle/internal/response"
	"github.com/cradoe/puddle/internal/version"
)

const statusCheckTimeout = 2 * time.Second

// Pinger is a dependency the status endpoint reports on.
type Pinger interface {
	Ping(ctx context.Context) error
}

type statusHandler struct {
	err    *errHandler.ErrorRepository
	checks map[string]Pinger
}

func NewStatusHandler(err *errHandler.ErrorRepository, checks map[string]Pinger) *statusHandler {
	return &statusHandler{
		err:    err,
		checks: checks,
	}
}

// HandleStatus reports "available" or "degraded" with one entry per check.
// It always answers 200 so a dependency outage does not take the api out of
// the load balancer.
func (app *statusHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), statusCheckTimeout)
	defer cancel()

	status := "available"
	checks := make(map[string]string, len(app.checks))

	for name, check := range app.checks {
		if err := check.Ping(ctx); err != nil {
			checks[name] = err.Error()
			status = "degraded"
			continue
		}
		checks[name] = "ok"
	}

	data := map[string]any{
		"status":  status,
		"version": version.Get(),
		"checks":  checks,
	}

	err := response.JSONOkResponse(w, data, "Up and grateful", nil)
	if err != nil {
		app.err.ServerError(w, r, err)
	}
}
