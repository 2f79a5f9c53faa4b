package server

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"go.pilab.hu/ghlink/api"
	"go.pilab.hu/ghlink/config"
	"go.pilab.hu/ghlink/log"
)

// NewHTTPServer builds the echo router with recovery, request logging,
// tracing and the metrics endpoint, and wraps it in an http.Server.
func NewHTTPServer(cfg *config.ServerConfig, appLogger log.Logger, linkAPI *api.LinkAPI, gatherer prometheus.Gatherer) (*http.Server, error) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	views, err := api.NewViews()
	if err != nil {
		return nil, err
	}
	e.Renderer = views

	e.Use(middleware.Recover())
	e.Use(requestLogger(appLogger))
	if cfg.TracingEnabled {
		e.Use(otelecho.Middleware(cfg.OtelServiceName))
	}

	linkAPI.RegisterRoutes(e)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           e,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		// Callbacks make several upstream calls before answering.
		WriteTimeout: cfg.UpstreamTimeout*3 + 5*time.Second,
		IdleTimeout:  120 * time.Second,
	}, nil
}

func requestLogger(appLogger log.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			fields := map[string]interface{}{
				"method":     req.Method,
				"path":       req.URL.Path,
				"status":     c.Response().Status,
				"latency":    time.Since(start).String(),
				"ip":         c.RealIP(),
				"user_agent": req.UserAgent(),
			}
			if err != nil {
				appLogger.Error(req.Context(), "HTTP Request", err, fields)
			} else {
				appLogger.Info(req.Context(), "HTTP Request", fields)
			}

			return nil
		}
	}
}
