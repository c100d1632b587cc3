package middlewares

import (
	"context"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"net/http"
	"webknight/app/server/types"
)

const ContextKeyIdentity = "identity"

// IdentityResolver 把 bearer 令牌解析为调用者身份
type IdentityResolver func(ctx context.Context, token string) (any, error)

func SessionAuth(resolve IdentityResolver, l *zap.Logger) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		ContextKey:  ContextKeyIdentity,
		TokenLookup: "header:Authorization:Bearer ",
		ParseTokenFunc: func(c echo.Context, auth string) (interface{}, error) {
			return resolve(c.Request().Context(), auth)
		},
		ErrorHandler: func(c echo.Context, err error) error {
			l.Debug("session auth failed", zap.String("uri", c.Request().RequestURI), zap.Error(err))
			return c.JSON(http.StatusUnauthorized, &types.ErrorMessage{
				Error: "Unauthorized",
			})
		},
	})
}
