package handlers

import (
	"errors"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"net/http"
	"webknight/app/server/stores"
	"webknight/app/server/types"
)

// RoleGet 查询某个用户的角色：只能查自己，管理员可以查任何人
func (a *App) RoleGet(c echo.Context) error {
	id := a.identity(c)
	if id == nil {
		return a.erMsg(c, http.StatusUnauthorized, "Unauthorized", "")
	}

	rctx := c.Request().Context()

	targetID, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		return a.er(c, http.StatusBadRequest)
	}

	if targetID != id.User.ID {
		if admin, err := a.isAdmin(rctx, id.User.ID); err != nil && !errors.Is(err, stores.ErrNotFound) {
			a.l.Error("failed to check caller role", zap.String("id", id.User.ID.String()), zap.Error(err))
			return a.er(c, http.StatusForbidden)
		} else if !admin {
			return a.er(c, http.StatusForbidden)
		}
	}

	role, err := a.roles.RoleOf(rctx, targetID)
	if err != nil {
		if errors.Is(err, stores.ErrNotFound) {
			return a.er(c, http.StatusNotFound)
		}
		a.l.Error("failed to get role", zap.String("id", targetID.String()), zap.Error(err))
		return a.er(c, http.StatusInternalServerError)
	}

	return c.JSON(http.StatusOK, &types.RoleInfo{
		UserID: targetID.String(),
		Role:   role,
	})
}
