package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"go.pilab.hu/idlink/config"
	"go.pilab.hu/idlink/domain"
	"go.pilab.hu/idlink/log"
	"go.pilab.hu/idlink/services"
)

// ReadyCheck reports whether a backing dependency is reachable.
type ReadyCheck func(ctx context.Context) error

// NewOpsServer builds the HTTP server: liveness, readiness, Prometheus
// metrics, and the trusted internal provisioning hook. Session issuance and
// the user-facing login surface live in the layer calling that hook; by the
// time a request reaches /internal/provision its claims are assumed
// validated.
func NewOpsServer(cfg *config.ServerConfig, appLogger log.Logger, reg *prometheus.Registry, provisioner *services.Provisioner, checks map[string]ReadyCheck) *http.Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomw.Recover())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			fields := map[string]interface{}{
				"method":  c.Request().Method,
				"path":    c.Request().URL.Path,
				"status":  c.Response().Status,
				"latency": time.Since(start).String(),
			}
			if err != nil {
				appLogger.Error(c.Request().Context(), "HTTP request failed", err, fields)
			} else {
				appLogger.Debug(c.Request().Context(), "HTTP request", fields)
			}
			return err
		}
	})

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	})

	e.GET("/readyz", func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
		defer cancel()

		failures := echo.Map{}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				failures[name] = err.Error()
			}
		}
		if len(failures) > 0 {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "unavailable", "failures": failures})
		}
		return c.JSON(http.StatusOK, echo.Map{"status": "ready"})
	})

	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	e.POST("/internal/provision", func(c echo.Context) error {
		var claims domain.IdentityClaims
		if err := c.Bind(&claims); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "malformed_claims"})
		}

		user, err := provisioner.Provision(c.Request().Context(), claims)
		if err != nil {
			var validationErr *services.ValidationError
			if errors.As(err, &validationErr) {
				return c.JSON(http.StatusBadRequest, echo.Map{"error": validationErr.Error()})
			}
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "provisioning_failed"})
		}
		return c.JSON(http.StatusOK, user)
	})

	return &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      e,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
}
