package middleware

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"prompt-storefront/internal/logging"
)

// RequestLogger writes one structured line per request.
func RequestLogger(log logging.Logger) echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			args := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency_ms", v.Latency.Milliseconds(),
				"remote_ip", v.RemoteIP,
			}
			if v.RequestID != "" {
				args = append(args, "request_id", v.RequestID)
			}
			if uid := UserID(c); uid != "" {
				args = append(args, "user_id", uid)
			}

			ctx := c.Request().Context()
			switch {
			case v.Status >= 500:
				log.Error(ctx, "request", append(args, "error", v.Error)...)
			case v.Status >= 400:
				log.Warn(ctx, "request", args...)
			default:
				log.Info(ctx, "request", args...)
			}
			return nil
		},
	})
}
