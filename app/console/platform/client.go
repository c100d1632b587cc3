package platform

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"mime"
	"net/http"
	"strings"
	"sync"
	"time"
	"webknight/app/server/types"
)

var (
	ErrNoSession         = errors.New("no active session")
	ErrNoRole            = errors.New("no role assigned")
	ErrAlreadySubscribed = errors.New("auth events already have a subscriber")
)

// APIError 服务端返回的结构化错误
type APIError struct {
	Status  int
	Message string
	Details string
}

func (e *APIError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%d %s: %s", e.Status, e.Message, e.Details)
	}
	return fmt.Sprintf("%d %s", e.Status, e.Message)
}

type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type Session struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
	User        User      `json:"user"`
}

// SignedAccessResult 二选一：SignedURL ，或者 Content + Filename
type SignedAccessResult struct {
	SignedURL   string
	Content     []byte
	ContentType string
	Filename    string
}

type Client struct {
	http  *resty.Client
	store SessionStore
	l     *zap.Logger
	now   func() time.Time

	mu         sync.Mutex
	events     chan AuthEvent
	subscribed bool
}

const eventQueueSize = 64

func New(endpoint string, timeout time.Duration, store SessionStore, l *zap.Logger) *Client {
	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(endpoint, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetHeader("X-Client-Info", "webknight-console")

	return &Client{
		http:   httpClient,
		store:  store,
		l:      l,
		now:    time.Now,
		events: make(chan AuthEvent, eventQueueSize),
	}
}

// Subscribe 事件队列只允许一个订阅者，订阅者必须持续读取
func (c *Client) Subscribe() (<-chan AuthEvent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.subscribed {
		return nil, ErrAlreadySubscribed
	}
	c.subscribed = true
	return c.events, nil
}

func (c *Client) emit(kind EventKind, user *User) {
	c.mu.Lock()
	subscribed := c.subscribed
	c.mu.Unlock()

	if !subscribed {
		// 没有订阅者，状态以 Session() 为准
		return
	}

	c.events <- AuthEvent{Kind: kind, User: user}
}

func apiError(resp *resty.Response) error {
	apiErr := &APIError{Status: resp.StatusCode()}

	var msg types.ErrorMessage
	if err := json.Unmarshal(resp.Body(), &msg); err == nil && msg.Error != "" {
		apiErr.Message = msg.Error
		if msg.Details != nil {
			apiErr.Details = *msg.Details
		}
	} else {
		apiErr.Message = http.StatusText(resp.StatusCode())
	}

	return apiErr
}

func (c *Client) currentToken(ctx context.Context) (string, error) {
	session, err := c.Session(ctx)
	if err != nil {
		return "", err
	}
	if session == nil {
		return "", ErrNoSession
	}
	return session.AccessToken, nil
}

// Session 读取本地保存的会话，过期的会话视为不存在
func (c *Client) Session(_ context.Context) (*Session, error) {
	session, err := c.store.Load()
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if session == nil {
		return nil, nil
	}

	if !session.ExpiresAt.IsZero() && !c.now().Before(session.ExpiresAt) {
		c.l.Debug("stored session expired", zap.Time("expiresAt", session.ExpiresAt))
		if err := c.store.Clear(); err != nil {
			c.l.Error("failed to clear expired session", zap.Error(err))
		}
		return nil, nil
	}

	return session, nil
}

func (c *Client) saveSession(token *types.SessionToken) (*Session, error) {
	session := &Session{
		AccessToken: token.AccessToken,
		TokenType:   token.TokenType,
		ExpiresAt:   token.ExpiresAt,
		User: User{
			ID:    token.User.ID,
			Email: token.User.Email,
		},
	}
	if err := c.store.Save(session); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return session, nil
}

func (c *Client) SignIn(ctx context.Context, email, password string) (*Session, error) {
	var token types.SessionToken
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(&types.Credentials{Email: email, Password: password}).
		SetResult(&token).
		Post("/auth/v1/token")
	if err != nil {
		return nil, fmt.Errorf("send sign in request: %w", err)
	}
	if resp.IsError() {
		return nil, apiError(resp)
	}

	session, err := c.saveSession(&token)
	if err != nil {
		return nil, err
	}

	user := session.User
	c.emit(EventSignedIn, &user)

	return session, nil
}

func (c *Client) SignUp(ctx context.Context, email, password string) (*User, error) {
	var info types.UserInfo
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(&types.Credentials{Email: email, Password: password}).
		SetResult(&info).
		Post("/auth/v1/signup")
	if err != nil {
		return nil, fmt.Errorf("send sign up request: %w", err)
	}
	if resp.IsError() {
		return nil, apiError(resp)
	}

	return &User{ID: info.ID, Email: info.Email}, nil
}

// SignOut 先请求服务端吊销，再清理本地会话；服务端失败时本地会话同样会被清理
func (c *Client) SignOut(ctx context.Context) error {
	session, err := c.Session(ctx)
	if err != nil {
		return err
	}
	if session == nil {
		c.emit(EventSignedOut, nil)
		return nil
	}

	var revokeErr error
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(session.AccessToken).
		Post("/auth/v1/logout")
	if err != nil {
		revokeErr = fmt.Errorf("send sign out request: %w", err)
	} else if resp.IsError() && resp.StatusCode() != http.StatusUnauthorized {
		// 401 说明会话已经失效，不算失败
		revokeErr = apiError(resp)
	}

	if err := c.store.Clear(); err != nil {
		c.l.Error("failed to clear session", zap.Error(err))
	}
	c.emit(EventSignedOut, nil)

	return revokeErr
}

func (c *Client) Refresh(ctx context.Context) (*Session, error) {
	token, err := c.currentToken(ctx)
	if err != nil {
		return nil, err
	}

	var refreshed types.SessionToken
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetResult(&refreshed).
		Post("/auth/v1/refresh")
	if err != nil {
		return nil, fmt.Errorf("send refresh request: %w", err)
	}
	if resp.IsError() {
		return nil, apiError(resp)
	}

	session, err := c.saveSession(&refreshed)
	if err != nil {
		return nil, err
	}

	user := session.User
	c.emit(EventTokenRefreshed, &user)

	return session, nil
}

func (c *Client) GetUser(ctx context.Context) (*User, error) {
	token, err := c.currentToken(ctx)
	if err != nil {
		return nil, err
	}

	var info types.UserInfo
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetResult(&info).
		Get("/auth/v1/user")
	if err != nil {
		return nil, fmt.Errorf("send user request: %w", err)
	}
	if resp.IsError() {
		return nil, apiError(resp)
	}

	return &User{ID: info.ID, Email: info.Email}, nil
}

// LookupRole 没有角色记录时返回 ErrNoRole
func (c *Client) LookupRole(ctx context.Context, userID string) (string, error) {
	token, err := c.currentToken(ctx)
	if err != nil {
		return "", err
	}

	var info types.RoleInfo
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetPathParam("user_id", userID).
		SetResult(&info).
		Get("/rest/v1/user_roles/{user_id}")
	if err != nil {
		return "", fmt.Errorf("send role request: %w", err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return "", ErrNoRole
	}
	if resp.IsError() {
		return "", apiError(resp)
	}

	return info.Role, nil
}

func (c *Client) InvokeSignedAccess(ctx context.Context, req *types.SignedAccessRequest) (*SignedAccessResult, error) {
	token, err := c.currentToken(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		Post("/functions/v1/signed-access")
	if err != nil {
		return nil, fmt.Errorf("send signed access request: %w", err)
	}
	if resp.IsError() {
		return nil, apiError(resp)
	}

	// 下载模式直接返回文件内容
	if disposition := resp.Header().Get("Content-Disposition"); disposition != "" {
		result := &SignedAccessResult{
			Content:     resp.Body(),
			ContentType: resp.Header().Get("Content-Type"),
		}
		if _, params, err := mime.ParseMediaType(disposition); err == nil {
			result.Filename = params["filename"]
		}
		return result, nil
	}

	var res types.SignedAccessResponse
	if err := json.Unmarshal(resp.Body(), &res); err != nil {
		return nil, fmt.Errorf("decode signed access response: %w", err)
	}
	return &SignedAccessResult{SignedURL: res.SignedURL}, nil
}

// Fetch 读取签名链接指向的内容，不带会话
func (c *Client) Fetch(ctx context.Context, signedURL string) ([]byte, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Accept", "*/*").
		Get(signedURL)
	if err != nil {
		return nil, fmt.Errorf("fetch signed url: %w", err)
	}
	if resp.IsError() {
		return nil, apiError(resp)
	}
	return resp.Body(), nil
}
