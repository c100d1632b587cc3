package middlewares

import (
	"github.com/labstack/echo/v4"
	"net/http"
)

const (
	CORSAllowOrigin  = "*"
	CORSAllowHeaders = "authorization, x-client-info, apikey, content-type"
)

// FunctionCORS 为所有响应（包括错误）写入宽松的跨域头，预检请求直接返回
func FunctionCORS() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			h.Set(echo.HeaderAccessControlAllowOrigin, CORSAllowOrigin)
			h.Set(echo.HeaderAccessControlAllowHeaders, CORSAllowHeaders)

			// 预检请求不做任何认证
			if c.Request().Method == http.MethodOptions {
				return c.NoContent(http.StatusOK)
			}

			return next(c)
		}
	}
}
