package middleware

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/Eursukkul/booking-microservice/ticketing-service/pkg/logger"
)

// RequestLogger writes one access log line per request through l.
func RequestLogger(l logger.Logger) echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			ctx := c.Request().Context()
			if v.Error != nil {
				l.Warnf(ctx, "http: %s %s %d %s: %v", v.Method, v.URI, v.Status, v.Latency, v.Error)
				return nil
			}
			l.Infof(ctx, "http: %s %s %d %s", v.Method, v.URI, v.Status, v.Latency)
			return nil
		},
	})
}
