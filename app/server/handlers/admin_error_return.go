package handlers

import (
	"github.com/labstack/echo/v4"
	"net/http"
	"webknight/app/server/types"
)

func (a *App) er(c echo.Context, statusCode int) error {
	return c.JSON(statusCode, &types.ErrorMessage{
		Error: http.StatusText(statusCode),
	})
}

// erMsg 返回指定的错误信息，details 为空时省略
func (a *App) erMsg(c echo.Context, statusCode int, message string, details string) error {
	res := &types.ErrorMessage{
		Error: message,
	}
	if details != "" {
		res.Details = &details
	}
	return c.JSON(statusCode, res)
}
