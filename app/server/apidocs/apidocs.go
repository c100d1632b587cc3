package apidocs

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/labstack/echo/v4"
	"html/template"
	"net/http"
	"path"
)

//go:embed openapi.yaml
var specYAML []byte

type Opts func(*config)

type config struct {
	// SpecURL 文档 JSON 的地址
	SpecURL string
	// 返回 false 时响应 403
	Authorizer func(*http.Request) bool
	// 覆盖文档中的 servers
	ServerURL string
}

func WithAuthorizer(f func(*http.Request) bool) Opts {
	return func(c *config) { c.Authorizer = f }
}

func WithServerURL(u string) Opts {
	return func(c *config) { c.ServerURL = u }
}

// Load 读取内嵌的 OpenAPI 文档并校验，serverURL 非空时替换 servers
func Load(ctx context.Context, serverURL string) (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(specYAML)
	if err != nil {
		return nil, fmt.Errorf("load openapi document: %w", err)
	}

	if err = doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("validate openapi document: %w", err)
	}

	if serverURL != "" {
		doc.Servers = openapi3.Servers{{URL: serverURL}}
	}

	return doc, nil
}

// Doc 在 basePath 下提供文档页面与 JSON
func Doc(ctx context.Context, basePath string, opts ...Opts) (echo.MiddlewareFunc, error) {
	cfg := &config{
		SpecURL: path.Join(basePath, "apispec.json"),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	doc, err := Load(ctx, cfg.ServerURL)
	if err != nil {
		return nil, err
	}
	specJSON, err := doc.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("marshal openapi document: %w", err)
	}

	// html
	docPath := path.Join(basePath, "apidocs")
	buf := bytes.NewBuffer(nil)
	if err = template.Must(template.New("apidoc").Parse(pageTemplate)).Execute(buf, cfg); err != nil {
		return nil, fmt.Errorf("render apidoc page: %w", err)
	}
	uiHTML := buf.String()

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			reqPath := c.Request().URL.Path
			if reqPath != basePath && reqPath != docPath && reqPath != cfg.SpecURL {
				return next(c)
			}

			if cfg.Authorizer != nil && !cfg.Authorizer(c.Request()) {
				return c.String(http.StatusForbidden, "Forbidden")
			}

			switch reqPath {
			case docPath:
				return c.HTML(http.StatusOK, uiHTML)
			case cfg.SpecURL:
				return c.JSONBlob(http.StatusOK, specJSON)
			default:
				return c.Redirect(http.StatusFound, docPath)
			}
		}
	}, nil
}

const pageTemplate = `
<!DOCTYPE html>
<html lang="en">
  <head>
    <title>WebKnight API</title>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1" />
  </head>

  <body>
    <script id="api-reference" data-url="{{ .SpecURL }}"></script>

    <script src="https://cdnjs.cloudflare.com/ajax/libs/scalar-api-reference/1.25.99/standalone.min.js" integrity="sha512-ai3lOYZ5efNXMYwnqhz0mnCaImbqfwLE1VCx9Y9nhB3OJX4/uegjIAoQtJHy3SILHp/gS1OlPCIeNFPZT5i2WQ==" crossorigin="anonymous" referrerpolicy="no-referrer"></script>
  </body>
</html>`
