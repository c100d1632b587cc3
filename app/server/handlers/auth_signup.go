package handlers

import (
	"errors"
	"github.com/alexedwards/argon2id"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"net/http"
	"webknight/app/server/models"
	"webknight/app/server/stores"
	"webknight/app/server/types"
)

func (a *App) AuthSignUp(c echo.Context) error {
	rctx := c.Request().Context()

	// 绑定请求体，多余的字段（例如 role）一律忽略
	var req types.Credentials
	if err := c.Bind(&req); err != nil {
		a.l.Error("failed to bind json body", zap.Error(err))
		return a.er(c, http.StatusBadRequest)
	}
	if err := c.Validate(&req); err != nil {
		return a.erMsg(c, http.StatusBadRequest, "Invalid email or password", err.Error())
	}

	// 处理密码
	passwordHash, err := argon2id.CreateHash(req.Password, argon2id.DefaultParams)
	if err != nil {
		a.l.Error("failed to hash password", zap.Error(err))
		return a.er(c, http.StatusInternalServerError)
	}

	// 创建用户，角色固定为 user
	user := models.User{
		ID:       uuid.New(),
		Email:    req.Email,
		Password: passwordHash,
	}
	if err = a.users.Register(rctx, &user); err != nil {
		if errors.Is(err, stores.ErrConflict) {
			return a.erMsg(c, http.StatusConflict, "User already registered", "")
		}
		a.l.Error("failed to register user", zap.String("email", req.Email), zap.Error(err))
		return a.er(c, http.StatusInternalServerError)
	}

	a.l.Info("user registered", zap.String("id", user.ID.String()))

	return c.JSON(http.StatusCreated, &types.UserInfo{
		ID:    user.ID.String(),
		Email: user.Email,
	})
}
