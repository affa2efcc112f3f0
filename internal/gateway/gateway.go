// Package gateway routes external traffic to the platform services.
// Login traffic passes through untouched; everything else requires a
// token the auth service accepts.
package gateway

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/pm/platform/internal/platform/middleware"
)

// Config holds the upstream service addresses.
type Config struct {
	AuthURL      string
	PatientURL   string
	AnalyticsURL string
}

// New builds the gateway's HTTP server.
func New(cfg Config, logger zerolog.Logger) (*echo.Echo, error) {
	authTarget, err := parseTarget(cfg.AuthURL)
	if err != nil {
		return nil, fmt.Errorf("auth upstream: %w", err)
	}
	patientTarget, err := parseTarget(cfg.PatientURL)
	if err != nil {
		return nil, fmt.Errorf("patient upstream: %w", err)
	}
	// Analytics is optional; the gateway still serves patients without it.
	var analyticsTarget *url.URL
	if cfg.AnalyticsURL != "" {
		analyticsTarget, err = parseTarget(cfg.AnalyticsURL)
		if err != nil {
			return nil, fmt.Errorf("analytics upstream: %w", err)
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "up"})
	})

	// Login and token validation pass through unauthenticated.
	authGroup := e.Group("/auth")
	authGroup.Use(echomw.ProxyWithConfig(echomw.ProxyConfig{
		Balancer: echomw.NewRoundRobinBalancer([]*echomw.ProxyTarget{{URL: authTarget}}),
		Rewrite:  map[string]string{"/auth/*": "/$1"},
	}))

	validator := NewTokenValidator(cfg.AuthURL)

	patientGroup := e.Group("/api/v1/patients")
	patientGroup.Use(validator.Middleware())
	patientGroup.Use(echomw.ProxyWithConfig(echomw.ProxyConfig{
		Balancer: echomw.NewRoundRobinBalancer([]*echomw.ProxyTarget{{URL: patientTarget}}),
	}))

	if analyticsTarget != nil {
		analyticsGroup := e.Group("/api/v1/analytics")
		analyticsGroup.Use(validator.Middleware())
		analyticsGroup.Use(echomw.ProxyWithConfig(echomw.ProxyConfig{
			Balancer: echomw.NewRoundRobinBalancer([]*echomw.ProxyTarget{{URL: analyticsTarget}}),
			Rewrite:  map[string]string{"/api/v1/analytics/*": "/api/v1/$1"},
		}))
	}

	return e, nil
}

func parseTarget(rawURL string) (*url.URL, error) {
	if rawURL == "" {
		return nil, fmt.Errorf("upstream URL is required")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("upstream URL must be http or https: %s", rawURL)
	}
	return u, nil
}
