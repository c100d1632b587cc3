package handlers

import (
	"errors"
	"github.com/alexedwards/argon2id"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"net/http"
	"strings"
	"webknight/app/server/constants"
	"webknight/app/server/jwt"
	"webknight/app/server/models"
	"webknight/app/server/stores"
	"webknight/app/server/types"
)

func (a *App) issueSession(c echo.Context, user *models.User, sessionID string) error {
	// 签出 JWT
	now := a.jwt.Now()
	session := &jwt.Session{
		UserID:    user.ID.String(),
		Email:     user.Email,
		SessionID: sessionID,
		IssuedAt:  now,
		Expires:   now.Add(a.sessionDuration),
	}
	token, err := a.jwt.SignSession(session)
	if err != nil {
		a.l.Error("failed to sign token", zap.Error(err))
		return a.er(c, http.StatusInternalServerError)
	}

	// 返回
	return c.JSON(http.StatusOK, &types.SessionToken{
		AccessToken: token,
		TokenType:   constants.AuthTokenType,
		ExpiresIn:   int64(a.sessionDuration.Seconds()),
		ExpiresAt:   session.Expires.UTC(),
		User: types.UserInfo{
			ID:    user.ID.String(),
			Email: user.Email,
		},
	})
}

func (a *App) AuthSignIn(c echo.Context) error {
	rctx := c.Request().Context()

	// 绑定请求体
	var req types.Credentials
	if err := c.Bind(&req); err != nil {
		a.l.Error("failed to bind json body", zap.Error(err))
		return a.er(c, http.StatusBadRequest)
	}

	// 没有写邮箱或密码
	if req.Email == "" || req.Password == "" {
		return a.er(c, http.StatusBadRequest)
	}

	// 限制同一来源对同一账号的尝试次数，限流器本身出错时放行
	if a.limiter != nil {
		key := c.RealIP() + "|" + strings.ToLower(req.Email)
		if lctx, err := a.limiter.Get(rctx, key); err != nil {
			a.l.Error("failed to check sign in rate", zap.Error(err))
		} else if lctx.Reached {
			return a.erMsg(c, http.StatusTooManyRequests, "Too many sign in attempts", "")
		}
	}

	user, err := a.users.ByEmail(rctx, req.Email)
	if err != nil {
		if errors.Is(err, stores.ErrNotFound) {
			return a.erMsg(c, http.StatusUnauthorized, "Invalid login credentials", "")
		}
		a.l.Error("failed to find user", zap.Error(err))
		return a.er(c, http.StatusInternalServerError)
	}

	// 提取密码 hash 并进行校验
	if match, err := argon2id.ComparePasswordAndHash(req.Password, user.Password); err != nil {
		a.l.Error("failed to check password", zap.Error(err))
		return a.er(c, http.StatusInternalServerError)
	} else if !match {
		// 密码不一致
		return a.erMsg(c, http.StatusUnauthorized, "Invalid login credentials", "")
	}

	return a.issueSession(c, user, uuid.NewString())
}

// AuthRefresh 延长当前会话，会话 ID 不变，登出时一并失效
func (a *App) AuthRefresh(c echo.Context) error {
	id := a.identity(c)
	if id == nil {
		return a.erMsg(c, http.StatusUnauthorized, "Unauthorized", "")
	}

	return a.issueSession(c, id.User, id.Session.SessionID)
}

func (a *App) AuthSignOut(c echo.Context) error {
	id := a.identity(c)
	if id == nil {
		return a.erMsg(c, http.StatusUnauthorized, "Unauthorized", "")
	}

	// 刷新会沿用会话 ID，吊销要覆盖到此刻刷新所能得到的最晚过期时间
	until := a.jwt.Now().Add(a.sessionDuration)
	if err := a.sessions.Revoke(c.Request().Context(), id.Session.SessionID, until); err != nil {
		a.l.Error("failed to revoke session", zap.String("sid", id.Session.SessionID), zap.Error(err))
		return a.er(c, http.StatusInternalServerError)
	}

	return c.NoContent(http.StatusNoContent)
}

func (a *App) AuthUser(c echo.Context) error {
	id := a.identity(c)
	if id == nil {
		return a.erMsg(c, http.StatusUnauthorized, "Unauthorized", "")
	}

	return c.JSON(http.StatusOK, &types.UserInfo{
		ID:    id.User.ID.String(),
		Email: id.User.Email,
	})
}
