package handlers

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"
	"webknight/app/server/constants"
	"webknight/app/server/jwt"
)

// contentTypeByExt 下载时只认识这几种简历格式，其余一律按二进制处理
func contentTypeByExt(filePath string) string {
	switch strings.ToLower(strings.TrimPrefix(path.Ext(filePath), ".")) {
	case "pdf":
		return constants.MIMEPDF
	case "doc":
		return constants.MIMEDoc
	case "docx":
		return constants.MIMEDocx
	default:
		return constants.MIMEOctet
	}
}

func escapeObjectPath(objectPath string) string {
	segments := strings.Split(objectPath, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return strings.Join(segments, "/")
}

func (a *App) downloadObject(ctx context.Context, bucket, objectPath string) ([]byte, error) {
	object, err := a.objects.Get(ctx, bucket, objectPath)
	if err != nil {
		return nil, fmt.Errorf("failed to get object %s/%s: %w", bucket, objectPath, err)
	}

	content, err := a.openContent(bucket, objectPath, object.Content)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt object %s/%s: %w", bucket, objectPath, err)
	}

	return content, nil
}

// createSignedURL 对象必须存在；链接在 ttl 内可以重复使用
func (a *App) createSignedURL(ctx context.Context, bucket, objectPath string) (string, *jwt.Grant, error) {
	if _, err := a.objects.Stat(ctx, bucket, objectPath); err != nil {
		return "", nil, fmt.Errorf("failed to stat object %s/%s: %w", bucket, objectPath, err)
	}

	token, grant, err := a.jwt.SignGrant(bucket, objectPath, constants.StorageSignedURLExpire)
	if err != nil {
		return "", nil, err
	}

	signedURL := fmt.Sprintf("%s/storage/v1/object/sign/%s/%s?token=%s",
		strings.TrimRight(a.publicURL, "/"),
		url.PathEscape(bucket),
		escapeObjectPath(objectPath),
		url.QueryEscape(token),
	)

	return signedURL, grant, nil
}
