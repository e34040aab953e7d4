package gateway

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/mikey/ela-assistant/internal/core"
	"github.com/mikey/ela-assistant/internal/transport"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// HTTPGateway serves the request service as JSON over HTTP
type HTTPGateway struct {
	handler        core.Handler
	logger         *zap.Logger
	listenAddr     string
	requestTimeout time.Duration
	echo           *echo.Echo
}

// NewHTTPGateway creates a new HTTP gateway
func NewHTTPGateway(handler core.Handler, logger *zap.Logger, listenAddr string, requestTimeout time.Duration) *HTTPGateway {
	g := &HTTPGateway{
		handler:        handler,
		logger:         logger,
		listenAddr:     listenAddr,
		requestTimeout: requestTimeout,
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogError:   true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
			}
			if v.Error != nil {
				logger.Error("Request failed", append(fields, zap.Error(v.Error))...)
				return nil
			}
			logger.Debug("Request completed", fields...)
			return nil
		},
	}))

	e.POST(transport.RPCPath, g.handleRPC)
	e.GET(transport.HealthPath, func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	g.echo = e
	return g
}

// ServeHTTP lets the gateway be mounted or tested without a listener
func (g *HTTPGateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.echo.ServeHTTP(w, r)
}

func (g *HTTPGateway) handleRPC(c echo.Context) error {
	var env transport.Envelope
	if err := c.Bind(&env); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request envelope")
	}

	req, err := env.Request()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()
	if g.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.requestTimeout)
		defer cancel()
	}

	res, err := g.Handle(ctx, req)
	if err != nil {
		g.logger.Warn("Request failed",
			zap.String("id", env.ID),
			zap.String("op", string(env.Op)),
			zap.String("kind", core.KindOf(err).String()),
			zap.Error(err))
	}
	return c.JSON(http.StatusOK, transport.NewReply(env.ID, res, err))
}

// Handle executes a single request
func (g *HTTPGateway) Handle(ctx context.Context, req core.Request) (*core.Result, error) {
	return g.handler.Handle(ctx, req)
}

// Start starts the HTTP gateway
func (g *HTTPGateway) Start() error {
	g.logger.Info("HTTP gateway starting", zap.String("address", g.listenAddr))

	go func() {
		if err := g.echo.Start(g.listenAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	return nil
}

// Stop stops the HTTP gateway
func (g *HTTPGateway) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return g.echo.Shutdown(ctx)
}
