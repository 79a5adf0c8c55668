package middleware

import (
	"log/slog"
	"time"

	"familydir/config"
	deliverycontext "familydir/internal/delivery/context"
	"familydir/internal/infra/metrics"

	"github.com/labstack/echo/v4"
)

// LoggerMiddleware records every request in the metrics and, in debug mode, the access log
type LoggerMiddleware struct {
	logger *slog.Logger
	debug  bool
}

// NewLoggerMiddleware creates a new logger middleware
func NewLoggerMiddleware(logger *slog.Logger, config *config.Config) *LoggerMiddleware {
	return &LoggerMiddleware{
		logger: logger,
		debug:  config.Env.Debug,
	}
}

// Handle processes request logging
func (m *LoggerMiddleware) Handle(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)

		// The error handler has not written the response yet, so derive the status the client
		// will see.
		status := c.Response().Status
		if err != nil {
			status = statusOf(err)
		}

		metrics.HTTPRequest(c.Request().Method, routeOf(c), status, start)
		if m.debug {
			m.logRequest(c, status, start, err)
		}

		return err
	}
}

func (m *LoggerMiddleware) logRequest(c echo.Context, status int, start time.Time, err error) {
	req := c.Request()

	fields := []slog.Attr{
		slog.String("method", req.Method),
		slog.String("route", routeOf(c)),
		slog.String("uri", req.URL.Path),
		slog.Int("status", status),
		slog.Duration("latency", time.Since(start)),
		slog.String("remote_ip", c.RealIP()),
		slog.String("user_agent", req.UserAgent()),
	}
	if id := c.Param("id"); id != "" {
		fields = append(fields, slog.String("member_id", id))
	}
	if len(req.URL.RawQuery) > 0 {
		fields = append(fields, slog.String("query", req.URL.RawQuery))
	}
	if err != nil {
		fields = append(fields, slog.Any("error", err))
	}

	level := slog.LevelInfo
	switch {
	case status >= 500:
		level = slog.LevelError
	case status >= 400:
		level = slog.LevelWarn
	}

	logger := deliverycontext.GetLoggerOrDefault(req.Context(), m.logger)
	logger.LogAttrs(req.Context(), level, "HTTP Request", fields...)
}

// routeOf returns the registered path template so metrics do not fan out per member ID.
func routeOf(c echo.Context) string {
	if path := c.Path(); path != "" {
		return path
	}

	return "unmatched"
}
