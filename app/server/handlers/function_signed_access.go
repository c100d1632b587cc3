package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"io"
	"net/http"
	"path"
	"webknight/app/server/types"
	"webknight/app/server/utils"
)

// SignedAccess 为管理员签出私有文件的临时链接，或者直接代理下载。
// 无论客户端认为自己是什么角色，这里都会重新验证身份与管理员权限。
func (a *App) SignedAccess(c echo.Context) (err error) {
	// 兜底：任何意外都必须返回结构化的错误
	defer func() {
		if r := recover(); r != nil {
			a.l.Error("signed access panic", zap.Any("panic", r))
			err = a.erMsg(c, http.StatusInternalServerError, "Internal server error", fmt.Sprint(r))
		}
	}()

	rctx := c.Request().Context()

	// 提取 token
	token, err := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
	if err != nil {
		if errors.Is(err, errMissingAuthHeader) {
			return a.erMsg(c, http.StatusUnauthorized, "No authorization header", "")
		}
		return a.erMsg(c, http.StatusUnauthorized, "Unauthorized", "")
	}

	// 使用调用者自己的令牌确认身份
	identity, err := a.ResolveIdentity(rctx, token)
	if err != nil {
		a.l.Debug("signed access unauthorized", zap.Error(err))
		return a.erMsg(c, http.StatusUnauthorized, "Unauthorized", "")
	}

	// 使用服务端权限重新确认管理员身份
	if admin, err := a.isAdmin(rctx, identity.User.ID); err != nil || !admin {
		if err != nil {
			a.l.Debug("signed access role lookup failed", zap.String("id", identity.User.ID.String()), zap.Error(err))
		}
		return a.erMsg(c, http.StatusForbidden, "Admin access required", "")
	}

	// 解析请求体，空请求体视为没有任何参数
	var req types.SignedAccessRequest
	if err := json.NewDecoder(c.Request().Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		return a.erMsg(c, http.StatusBadRequest, "Invalid request body", err.Error())
	}

	if req.FilePath == "" {
		return a.erMsg(c, http.StatusBadRequest, "File path is required", "")
	}

	bucket := utils.V(req.Bucket, a.defaultBucket)
	if bucket == "" {
		bucket = a.defaultBucket
	}

	if utils.V(req.Download, false) {
		// 直接代理下载
		content, err := a.downloadObject(rctx, bucket, req.FilePath)
		if err != nil {
			a.l.Error("failed to download file", zap.String("bucket", bucket), zap.String("path", req.FilePath), zap.Error(err))
			return a.erMsg(c, http.StatusInternalServerError, "Failed to download file", err.Error())
		}

		c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", path.Base(req.FilePath)))
		return c.Blob(http.StatusOK, contentTypeByExt(req.FilePath), content)
	}

	// 签出临时链接
	signedURL, _, err := a.createSignedURL(rctx, bucket, req.FilePath)
	if err != nil {
		a.l.Error("failed to create signed url", zap.String("bucket", bucket), zap.String("path", req.FilePath), zap.Error(err))
		return a.erMsg(c, http.StatusInternalServerError, "Failed to create signed URL", err.Error())
	}

	a.l.Info("signed url issued", zap.String("by", identity.User.ID.String()), zap.String("bucket", bucket), zap.String("path", req.FilePath))

	return c.JSON(http.StatusOK, &types.SignedAccessResponse{
		SignedURL: signedURL,
	})
}
