package handlers

import (
	"context"
	"fmt"
	"go.uber.org/zap"
)

func (a *App) SignIn(ctx context.Context, email, password string) error {
	return a.guard.SignIn(ctx, email, password)
}

func (a *App) SignUp(ctx context.Context, email, password string) error {
	user, err := a.guard.SignUp(ctx, email, password)
	if err != nil {
		return err
	}
	a.l.Debug("user created", zap.String("userID", user.ID))
	return nil
}

func (a *App) SignOut(ctx context.Context) error {
	return a.guard.SignOut(ctx)
}

func (a *App) Refresh(ctx context.Context) error {
	session, err := a.client.Refresh(ctx)
	if err != nil {
		return fmt.Errorf("refresh session: %w", err)
	}
	_, _ = fmt.Fprintf(a.out, "session refreshed, expires at %s\n", session.ExpiresAt.Local().Format("2006-01-02 15:04:05"))
	return nil
}

// WhoAmI 输出服务端确认的身份与守卫推导出的管理员状态
func (a *App) WhoAmI(ctx context.Context) error {
	user, err := a.client.GetUser(ctx)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}

	st, err := a.guard.Wait(ctx)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(a.out, "id:    %s\nemail: %s\nadmin: %t\n", user.ID, user.Email, st.IsAdmin)
	return nil
}
