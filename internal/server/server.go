package server

import (
	"context"
	"errors"
	"github.com/brpaz/echozap"
	"github.com/cirruslabs/mocha/internal/fill"
	"github.com/cirruslabs/mocha/internal/opentelemetry"
	"github.com/cirruslabs/mocha/internal/server/fail"
	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"net"
	"net/http"
	"strings"
	"time"
)

// contextKeySource holds the fill.Source of a served asset, so that
// it can be reported without being exposed to the client
const contextKeySource = "mocha.source"

type Server struct {
	listener     net.Listener
	httpServer   *http.Server
	echo         *echo.Echo
	orchestrator *fill.Orchestrator
	logger       *zap.SugaredLogger

	// Metrics
	requestsCounter metric.Int64Counter
}

func New(addr string, orchestrator *fill.Orchestrator, opts ...Option) (*Server, error) {
	server := &Server{
		echo:         echo.New(),
		orchestrator: orchestrator,
	}

	// Configure HTTP server
	server.httpServer = &http.Server{
		Handler:           server.echo,
		ReadHeaderTimeout: 30 * time.Second,
	}

	// Apply options
	for _, opt := range opts {
		opt(server)
	}

	// Apply defaults
	if server.logger == nil {
		server.logger = zap.NewNop().Sugar()
	}

	// Listen on the desired port
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	server.listener = listener

	// Metrics
	server.requestsCounter = opentelemetry.Int64Counter(opentelemetry.DefaultMeter, "org.cirruslabs.mocha.requests.total")

	// Configure routes
	server.echo.HideBanner = true
	server.echo.HidePort = true
	server.echo.Use(echozap.ZapLogger(server.logger.Desugar()))
	server.echo.Use(server.countRequests)

	server.echo.GET("/health", server.handleHealth)
	server.echo.GET("/*", server.handleAsset)
	server.echo.HEAD("/*", server.handleAsset)

	return server, nil
}

func (server *Server) Addr() string {
	return strings.ReplaceAll(server.listener.Addr().String(), "[::]", "127.0.0.1")
}

func (server *Server) Run(ctx context.Context) error {
	server.logger.Infof("listening on %s", server.Addr())

	go func() {
		<-ctx.Done()

		_ = server.httpServer.Close()
	}()

	if err := server.httpServer.Serve(server.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

func (server *Server) handleHealth(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

func (server *Server) handleAsset(c echo.Context) error {
	response, err := server.orchestrator.Serve(c.Request().Context(), fill.Request{
		Path:  c.Request().URL.Path,
		Query: c.QueryParams(),
	})
	if err != nil {
		return fail.Fail(c, err)
	}
	defer func() {
		_ = response.Body.Close()
	}()

	c.Set(contextKeySource, string(response.Source))

	server.logger.Debugf("serving %s from %s (key %q, %d bytes)", c.Request().URL.Path,
		response.Source, response.Key, response.ContentLength)

	// Headers only depend on the asset and the parameters, never on whether
	// the artifact was just computed or already cached
	header := c.Response().Header()
	header.Set(echo.HeaderCacheControl, response.CacheControl)

	if c.Request().Method == http.MethodHead {
		header.Set(echo.HeaderContentType, response.ContentType)

		return c.NoContent(http.StatusOK)
	}

	return c.Stream(http.StatusOK, response.ContentType, response.Body)
}

func (server *Server) countRequests(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		err := next(c)

		operation := "asset"
		if c.Path() == "/health" {
			operation = "health-check"
		}

		//nolint:contextcheck // can't use request.Context() here because it might be canceled
		server.requestsCounter.Add(context.Background(), 1, metric.WithAttributes(
			attribute.String("method", c.Request().Method),
			attribute.Int("status_code", c.Response().Status),
			attribute.String("operation", operation),
			attribute.String("source", source(c)),
		))

		return err
	}
}

func source(c echo.Context) string {
	source, _ := c.Get(contextKeySource).(string)

	return source
}
