package handlers

import (
	"errors"
	"fmt"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"webknight/app/server/models"
	"webknight/app/server/stores"
	"webknight/app/server/types"
)

// requireAdmin 在会话中间件之后使用，返回非 nil 表示已经写出了错误响应
func (a *App) requireAdmin(c echo.Context) (*Identity, error, int) {
	id := a.identity(c)
	if id == nil {
		return nil, fmt.Errorf("missing identity"), http.StatusUnauthorized
	}

	admin, err := a.isAdmin(c.Request().Context(), id.User.ID)
	if err != nil && !errors.Is(err, stores.ErrNotFound) {
		return nil, fmt.Errorf("failed to check role: %w", err), http.StatusForbidden
	}
	if !admin {
		return nil, fmt.Errorf("requires admin role"), http.StatusForbidden
	}

	return id, nil, http.StatusOK
}

// uploadObjectPath 生成 folder/name-suffix.ext ，随机后缀避免重名
func uploadObjectPath(folder, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	stem := slug.Make(strings.TrimSuffix(path.Base(filename), path.Ext(filename)))
	if stem == "" {
		stem = "file"
	}
	return fmt.Sprintf("%s/%s-%s%s", folder, stem, strings.ReplaceAll(uuid.NewString(), "-", "")[:12], ext)
}

func (a *App) StorageUpload(c echo.Context) error {
	// 抓取 user 信息（认证）
	id, err, statusCode := a.requireAdmin(c)
	if err != nil {
		a.l.Info("storage upload denied", zap.Error(err))
		return a.er(c, statusCode)
	}

	rctx := c.Request().Context()

	bucket, folder := c.Param("bucket"), c.Param("folder")
	if folder == "" || folder == "." || folder == ".." {
		return a.er(c, http.StatusBadRequest)
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return a.erMsg(c, http.StatusBadRequest, "File is required", err.Error())
	}
	if a.maxUploadSize > 0 && fileHeader.Size > a.maxUploadSize {
		return a.er(c, http.StatusRequestEntityTooLarge)
	}

	f, err := fileHeader.Open()
	if err != nil {
		a.l.Error("failed to open uploaded file", zap.Error(err))
		return a.er(c, http.StatusInternalServerError)
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		a.l.Error("failed to read uploaded file", zap.Error(err))
		return a.er(c, http.StatusInternalServerError)
	}

	// 加密后入库
	objectPath := uploadObjectPath(folder, fileHeader.Filename)
	sealed, err := a.sealContent(bucket, objectPath, content)
	if err != nil {
		a.l.Error("failed to encrypt uploaded file", zap.Error(err))
		return a.er(c, http.StatusInternalServerError)
	}

	object := models.Object{
		Bucket:      bucket,
		Path:        objectPath,
		ContentType: mimetype.Detect(content).String(),
		Size:        int64(len(content)),
		Content:     sealed,
	}
	if err = a.objects.Put(rctx, &object); err != nil {
		if errors.Is(err, stores.ErrConflict) {
			return a.er(c, http.StatusConflict)
		}
		a.l.Error("failed to store object", zap.String("bucket", bucket), zap.String("path", object.Path), zap.Error(err))
		return a.er(c, http.StatusInternalServerError)
	}

	a.l.Info("object uploaded", zap.String("by", id.User.ID.String()), zap.String("bucket", bucket), zap.String("path", object.Path))

	return c.JSON(http.StatusCreated, &types.ObjectInfo{
		Bucket:      object.Bucket,
		Path:        object.Path,
		ContentType: object.ContentType,
		Size:        object.Size,
		CreatedAt:   object.CreatedAt,
	})
}

// StorageSignedGet 凭签名令牌读取对象，不需要会话
func (a *App) StorageSignedGet(c echo.Context) error {
	rctx := c.Request().Context()

	bucket := c.Param("bucket")
	objectPath, err := url.PathUnescape(c.Param("*"))
	if err != nil {
		return a.er(c, http.StatusBadRequest)
	}

	// 验证令牌，并确认令牌授权的正是这个对象
	grant, err := a.jwt.ParseGrant(c.QueryParam("token"))
	if err != nil {
		a.l.Debug("invalid storage grant", zap.Error(err))
		return a.erMsg(c, http.StatusBadRequest, "Invalid or expired signature", "")
	}
	if grant.Bucket != bucket || grant.Path != objectPath {
		return a.erMsg(c, http.StatusBadRequest, "Invalid or expired signature", "")
	}

	object, err := a.objects.Get(rctx, bucket, objectPath)
	if err != nil {
		if errors.Is(err, stores.ErrNotFound) {
			return a.er(c, http.StatusNotFound)
		}
		a.l.Error("failed to get object", zap.String("bucket", bucket), zap.String("path", objectPath), zap.Error(err))
		return a.er(c, http.StatusInternalServerError)
	}

	content, err := a.openContent(bucket, objectPath, object.Content)
	if err != nil {
		a.l.Error("failed to decrypt object", zap.String("bucket", bucket), zap.String("path", objectPath), zap.Error(err))
		return a.er(c, http.StatusInternalServerError)
	}

	// 默认内联展示，带 download 参数时作为附件
	if c.QueryParams().Has("download") {
		filename := c.QueryParam("download")
		if filename == "" {
			filename = path.Base(objectPath)
		}
		c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	} else {
		c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("inline; filename=%q", path.Base(objectPath)))
	}

	contentType := object.ContentType
	if contentType == "" {
		contentType = contentTypeByExt(objectPath)
	}

	return c.Blob(http.StatusOK, contentType, content)
}

func parseUintParam(raw string) *uint {
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return nil
	}
	u := uint(v)
	return &u
}

func (a *App) StorageList(c echo.Context) error {
	// 抓取 user 信息（认证）
	_, err, statusCode := a.requireAdmin(c)
	if err != nil {
		a.l.Info("storage list denied", zap.Error(err))
		return a.er(c, statusCode)
	}

	rctx := c.Request().Context()

	bucket := c.QueryParam("bucket")
	if bucket == "" {
		bucket = a.defaultBucket
	}

	p := parsePagination(parseUintParam(c.QueryParam("page")), parseUintParam(c.QueryParam("limit")))

	objects, err := a.objects.List(rctx, bucket, p.Offset, p.Limit)
	if err != nil {
		a.l.Error("failed to get object list", zap.Error(err))
		return a.er(c, http.StatusInternalServerError)
	}
	count, err := a.objects.Count(rctx, bucket)
	if err != nil {
		a.l.Error("failed to count objects", zap.Error(err))
		return a.er(c, http.StatusInternalServerError)
	}

	list := []types.ObjectInfo{}
	for _, object := range objects {
		list = append(list, types.ObjectInfo{
			Bucket:      object.Bucket,
			Path:        object.Path,
			ContentType: object.ContentType,
			Size:        object.Size,
			CreatedAt:   object.CreatedAt,
		})
	}

	return c.JSON(http.StatusOK, &types.ObjectListResponse{
		Limit:   p.Limit,
		PageMax: p.maxPage(count),
		List:    list,
	})
}
