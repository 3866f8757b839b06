package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/cradoe/puddle/internal/chain"
	"github.com/cradoe/puddle/internal/config"
	"github.com/cradoe/puddle/internal/service"
)

const (
	defaultIdleTimeout    = time.Minute
	defaultReadTimeout    = 5 * time.Second
	defaultWriteTimeout   = 30 * time.Second
	defaultShutdownPeriod = 30 * time.Second

	// headroom for the database work around a deployment
	writeTimeoutMargin = 10 * time.Second
)

// writeTimeout leaves POST /piggy-banks time to wait out a deployment and
// the partner invite retries and still write its answer.
func writeTimeout(cfg config.Config) time.Duration {
	confirm := cfg.Chain.ConfirmTimeout
	if confirm <= 0 {
		confirm = chain.DefaultConfirmTimeout
	}

	invites := service.RetryPolicy{
		MaxAttempts: cfg.Invite.MaxAttempts,
		BaseDelay:   cfg.Invite.BaseDelay,
	}.WithDefaults()

	return max(defaultWriteTimeout, confirm+invites.TotalDelay()+writeTimeoutMargin)
}

// StartWorkers launches the reconciler and, when Kafka is enabled, the
// notification worker. Both stop when ctx is done; ServeHTTP waits for them.
func (app *Application) StartWorkers(ctx context.Context) {
	wk := app.Workers()

	app.WG.Add(1)
	go func() {
		defer app.WG.Done()
		wk.ReconcileWorker(ctx, app.Config.ReconcileInterval)
	}()

	if app.Kafka == nil {
		app.Logger.Info("kafka disabled, notification worker not started")
		return
	}

	app.WG.Add(1)
	go func() {
		defer app.WG.Done()
		if err := wk.NotificationWorker(ctx); err != nil {
			app.errorHandler.ReportServerError(nil, err)
		}
	}()
}

// ServeHTTP serves until ctx is done, then drains in-flight requests and
// waits for background work before returning.
func (app *Application) ServeHTTP(ctx context.Context) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", app.Config.HttpPort),
		Handler:      app.routes(),
		ErrorLog:     slog.NewLogLogger(app.Logger.Handler(), slog.LevelWarn),
		IdleTimeout:  defaultIdleTimeout,
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: writeTimeout(app.Config),
	}

	shutdownErrorChan := make(chan error)

	go func() {
		<-ctx.Done()

		app.Logger.Info("shutting down server", slog.Group("server", "addr", srv.Addr))

		shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownPeriod)
		defer cancel()

		err := srv.Shutdown(shutdownCtx)
		app.WG.Wait()
		shutdownErrorChan <- err
	}()

	app.Logger.Info("starting server", slog.Group("server", "addr", srv.Addr))

	err := srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	err = <-shutdownErrorChan
	if err != nil {
		return err
	}

	app.Logger.Info("stopped server", slog.Group("server", "addr", srv.Addr))

	return nil
}
