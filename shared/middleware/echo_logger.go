package middleware

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// EchoZapLogger логирует запросы Echo через zap. /health и /metrics пропускаются.
func EchoZapLogger(log *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if skipAccessLog(req.URL.Path) {
				return next(c)
			}

			start := time.Now()
			err := next(c)
			if err != nil {
				// Даем Echo записать статус ответа, чтобы в логе был итоговый код
				c.Error(err)
			}

			res := c.Response()
			fields := []zap.Field{
				zap.String("method", req.Method),
				zap.String("uri", req.RequestURI),
				zap.String("remote_ip", c.RealIP()),
				zap.Int("status", res.Status),
				zap.Duration("latency", time.Since(start)),
			}
			if id := requestID(req.Header.Get(echo.HeaderXRequestID), res.Header().Get(echo.HeaderXRequestID)); id != "" {
				fields = append(fields, zap.String("request_id", id))
			}

			switch {
			case res.Status >= http.StatusInternalServerError:
				if err != nil {
					fields = append(fields, zap.Error(err))
				}
				log.Error("Server error", fields...)
			case res.Status >= http.StatusBadRequest:
				log.Warn("Client error", fields...)
			default:
				log.Info("Request completed", fields...)
			}
			return nil
		}
	}
}

func skipAccessLog(path string) bool {
	return path == "/health" || path == "/metrics"
}

func requestID(candidates ...string) string {
	for _, id := range candidates {
		if id != "" {
			return id
		}
	}
	return ""
}
