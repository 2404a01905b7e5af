package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"story-engine/shared/models"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// TokenVerifier проверяет строку токена и возвращает claims.
type TokenVerifier func(ctx context.Context, tokenString string) (*models.Claims, error)

// EchoPlayerAuth проверяет bearer-токен игрока и кладет его PlayerID в контекст запроса.
// Браузерный WebSocket не умеет ставить заголовки, поэтому токен принимается и из ?token=.
func EchoPlayerAuth(verifier TokenVerifier, logger *zap.Logger) echo.MiddlewareFunc {
	log := logger.Named("PlayerAuth")
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			tokenString, ok := bearerToken(req.Header.Get(echo.HeaderAuthorization))
			if !ok {
				tokenString = c.QueryParam("token")
			}
			if tokenString == "" {
				log.Debug("Authorization missing", zap.String("path", req.URL.Path))
				return echo.NewHTTPError(http.StatusUnauthorized, "missing token")
			}

			claims, err := verifier(req.Context(), tokenString)
			if err != nil {
				switch {
				case errors.Is(err, models.ErrTokenExpired):
					return echo.NewHTTPError(http.StatusUnauthorized, "token expired")
				case errors.Is(err, models.ErrTokenInvalid), errors.Is(err, models.ErrTokenMalformed):
					return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
				default:
					log.Error("Unexpected token verification error", zap.Error(err))
					return echo.NewHTTPError(http.StatusInternalServerError, "token verification failed")
				}
			}

			c.SetRequest(req.WithContext(models.WithPlayerID(req.Context(), claims.PlayerID)))
			return next(c)
		}
	}
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}
