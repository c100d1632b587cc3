package handlers

import (
	"context"
	"fmt"
	"go.uber.org/zap"
	"os"
	"path/filepath"
	"webknight/app/server/types"
	"webknight/app/server/utils"
)

type FetchOptions struct {
	FilePath string
	Bucket   string
	Download bool
	Output   string // 保存位置，留空时使用服务端给出的文件名
}

// Fetch 为管理员获取简历文件：签名链接或直接下载
func (a *App) Fetch(ctx context.Context, opts FetchOptions) error {
	if _, err := a.guard.Wait(ctx); err != nil {
		return err
	}
	if err := a.guard.RequireAdmin(); err != nil {
		return err
	}

	req := &types.SignedAccessRequest{FilePath: opts.FilePath}
	if opts.Bucket != "" {
		req.Bucket = utils.P(opts.Bucket)
	}
	if opts.Download {
		req.Download = utils.P(true)
	}

	res, err := a.client.InvokeSignedAccess(ctx, req)
	if err != nil {
		return fmt.Errorf("signed access: %w", err)
	}

	if res.SignedURL != "" {
		if opts.Output == "" {
			_, _ = fmt.Fprintln(a.out, res.SignedURL)
			return nil
		}
		// 指定了输出位置就顺便取回内容
		content, err := a.client.Fetch(ctx, res.SignedURL)
		if err != nil {
			return err
		}
		return a.save(opts.Output, content)
	}

	target := opts.Output
	if target == "" {
		target = filepath.Base(res.Filename)
		if target == "." || target == "/" || target == "" {
			target = filepath.Base(opts.FilePath)
		}
	}
	return a.save(target, res.Content)
}

func (a *App) save(target string, content []byte) error {
	if err := os.WriteFile(target, content, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", target, err)
	}
	a.l.Debug("file saved", zap.String("path", target), zap.Int("size", len(content)))
	_, _ = fmt.Fprintf(a.out, "saved %s (%d bytes)\n", target, len(content))
	return nil
}
