package handlers

import (
	"context"
	"errors"
	"fmt"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"strings"
	"webknight/app/server/jwt"
	"webknight/app/server/middlewares"
	"webknight/app/server/models"
)

var errMissingAuthHeader = errors.New("missing auth header")

// Identity 通过会话令牌解析出的调用者
type Identity struct {
	Session *jwt.Session
	User    *models.User
}

func bearerToken(authHeader string) (string, error) {
	if authHeader == "" {
		return "", errMissingAuthHeader
	}

	splits := strings.Split(authHeader, " ")
	if len(splits) != 2 {
		return "", fmt.Errorf("invalid auth header")
	}

	if strings.ToLower(splits[0]) != "bearer" {
		return "", fmt.Errorf("unknown auth method: %s", splits[0])
	}

	return splits[1], nil
}

// ResolveIdentity 只凭调用者自己的令牌确认身份：签名、吊销列表、用户是否仍然存在
func (a *App) ResolveIdentity(ctx context.Context, token string) (*Identity, error) {
	// 验证 token
	session, err := a.jwt.ParseSession(token)
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	// 检查是否已经登出，查不到时按未认证处理
	if revoked, err := a.sessions.IsRevoked(ctx, session.SessionID); err != nil {
		return nil, fmt.Errorf("failed to check session: %w", err)
	} else if revoked {
		return nil, fmt.Errorf("session revoked")
	}

	userID, err := uuid.Parse(session.UserID)
	if err != nil {
		return nil, fmt.Errorf("invalid subject: %w", err)
	}

	user, err := a.users.ByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &Identity{Session: session, User: user}, nil
}

func (a *App) identity(c echo.Context) *Identity {
	id, _ := c.Get(middlewares.ContextKeyIdentity).(*Identity)
	return id
}

// isAdmin 使用服务端权限查询角色表，出错也按非管理员处理
func (a *App) isAdmin(ctx context.Context, userID uuid.UUID) (bool, error) {
	role, err := a.roles.RoleOf(ctx, userID)
	if err != nil {
		return false, err
	}
	return role == models.RoleAdmin, nil
}
