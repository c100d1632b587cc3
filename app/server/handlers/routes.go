package handlers

import (
	"context"
	"github.com/labstack/echo/v4"
	"net/http"
	"webknight/app/server/middlewares"
)

func (a *App) RegisterHandlers(e *echo.Echo) {
	if e.Validator == nil {
		e.Validator = middlewares.NewValidator()
	}

	session := middlewares.SessionAuth(func(ctx context.Context, token string) (any, error) {
		return a.ResolveIdentity(ctx, token)
	}, a.l)

	e.GET("/healthz", a.HealthCheck)

	// 身份
	auth := e.Group("/auth/v1")
	auth.POST("/signup", a.AuthSignUp)
	auth.POST("/token", a.AuthSignIn)
	auth.POST("/refresh", a.AuthRefresh, session)
	auth.POST("/logout", a.AuthSignOut, session)
	auth.GET("/user", a.AuthUser, session)

	// 角色表
	e.GET("/rest/v1/user_roles/:user_id", a.RoleGet, session)

	// 对象存储
	e.POST("/storage/v1/object/:bucket/:folder", a.StorageUpload, session)
	e.GET("/storage/v1/object/sign/:bucket/*", a.StorageSignedGet)
	e.GET("/api/admin/objects", a.StorageList, session)

	// 签名访问函数，自行处理认证
	fn := e.Group("/functions/v1", middlewares.FunctionCORS())
	fn.Match([]string{http.MethodPost, http.MethodOptions}, "/signed-access", a.SignedAccess)
}
