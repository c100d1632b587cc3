package guard

import (
	"context"
	"errors"
	"fmt"
	"go.uber.org/zap"
	"sync"
	"webknight/app/console/platform"
)

const (
	RouteAdmin = "/admin"
	RouteAuth  = "/auth"

	roleAdmin = "admin"
)

var (
	ErrAccessDenied     = errors.New("admin access required")
	ErrNotAuthenticated = errors.New("not signed in")
	ErrLoading          = errors.New("role check still in progress")
	ErrNotStarted       = errors.New("guard not started")
)

// Platform 守卫需要用到的平台能力
type Platform interface {
	Subscribe() (<-chan platform.AuthEvent, error)
	Session(ctx context.Context) (*platform.Session, error)
	SignIn(ctx context.Context, email, password string) (*platform.Session, error)
	SignUp(ctx context.Context, email, password string) (*platform.User, error)
	SignOut(ctx context.Context) error
	LookupRole(ctx context.Context, userID string) (string, error)
}

type Navigator interface {
	Navigate(route string)
}

type Notifier interface {
	Success(title, message string)
	Error(title, message string)
}

type State struct {
	User    *platform.User
	IsAdmin bool
	Loading bool
}

type Guard struct {
	p   Platform
	nav Navigator
	n   Notifier
	l   *zap.Logger

	mu      sync.Mutex
	state   State
	gen     uint64
	abort   context.CancelFunc // 取消进行中的角色检查
	settled chan struct{}      // 当前代次检查完成后关闭
	denied  string             // 刚被拒绝登录的用户，队列里残留的登录事件直接丢弃

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(p Platform, nav Navigator, n Notifier, l *zap.Logger) *Guard {
	settled := make(chan struct{})
	close(settled)
	return &Guard{
		p:       p,
		nav:     nav,
		n:       n,
		l:       l,
		settled: settled,
	}
}

// Start 订阅会话事件并载入当前会话
func (g *Guard) Start(ctx context.Context) error {
	// 先订阅再读取，避免两者之间的事件丢失
	events, err := g.p.Subscribe()
	if err != nil {
		return fmt.Errorf("subscribe auth events: %w", err)
	}

	g.mu.Lock()
	g.ctx, g.cancel = context.WithCancel(ctx)
	g.mu.Unlock()

	var user *platform.User
	session, err := g.p.Session(g.ctx)
	if err != nil {
		g.l.Warn("failed to load current session", zap.Error(err))
	} else if session != nil {
		u := session.User
		user = &u
	}
	g.apply(platform.AuthEvent{Kind: platform.EventInitialSession, User: user})

	g.wg.Add(1)
	go g.loop(events)

	return nil
}

func (g *Guard) Close() {
	g.mu.Lock()
	cancel := g.cancel
	g.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	g.wg.Wait()
}

// Done 守卫关闭后返回的 channel 会被关闭；未启动时返回 nil
func (g *Guard) Done() <-chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.ctx == nil {
		return nil
	}
	return g.ctx.Done()
}

func (g *Guard) loop(events <-chan platform.AuthEvent) {
	defer g.wg.Done()
	for {
		select {
		case <-g.ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			g.handle(ev)
		}
	}
}

func (g *Guard) handle(ev platform.AuthEvent) {
	g.mu.Lock()
	if ev.User == nil {
		g.denied = ""
	} else if g.denied != "" && ev.User.ID == g.denied {
		g.mu.Unlock()
		g.l.Debug("skip event of denied user", zap.Stringer("kind", ev.Kind))
		return
	}
	g.mu.Unlock()

	g.apply(ev)
}

// apply 每个事件开启新的代次，旧代次的检查结果一律丢弃
func (g *Guard) apply(ev platform.AuthEvent) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.gen++
	gen := g.gen
	if g.abort != nil {
		g.abort()
		g.abort = nil
	}

	g.l.Debug("auth event", zap.Stringer("kind", ev.Kind), zap.Uint64("generation", gen))

	if ev.User == nil {
		g.state = State{}
		g.settle()
		return
	}

	user := *ev.User
	g.state = State{User: &user, Loading: true}
	if g.settledClosed() {
		g.settled = make(chan struct{})
	}

	ctx, abort := context.WithCancel(g.ctx)
	g.abort = abort

	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		defer abort()

		admin := g.deriveAdmin(ctx, user.ID)

		g.mu.Lock()
		defer g.mu.Unlock()
		if gen != g.gen {
			g.l.Debug("discard stale role check", zap.Uint64("generation", gen))
			return
		}
		g.state.IsAdmin = admin
		g.state.Loading = false
		g.abort = nil
		g.settle()
	}()
}

// settle 需要持有 mu
func (g *Guard) settle() {
	if !g.settledClosed() {
		close(g.settled)
	}
}

func (g *Guard) settledClosed() bool {
	select {
	case <-g.settled:
		return true
	default:
		return false
	}
}

// deriveAdmin 只有明确的 admin 角色才算管理员，其余情况全部视为否
func (g *Guard) deriveAdmin(ctx context.Context, userID string) bool {
	role, err := g.p.LookupRole(ctx, userID)
	if err != nil {
		g.l.Debug("role check failed", zap.String("userID", userID), zap.Error(err))
		return false
	}
	return role == roleAdmin
}

func (g *Guard) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()

	st := g.state
	if st.User != nil {
		u := *st.User
		st.User = &u
	}
	return st
}

func (g *Guard) IsAdmin() bool {
	return g.State().IsAdmin
}

func (g *Guard) User() *platform.User {
	return g.State().User
}

// Wait 等待当前的角色检查结束
func (g *Guard) Wait(ctx context.Context) (State, error) {
	for {
		g.mu.Lock()
		if g.ctx == nil {
			g.mu.Unlock()
			return State{}, ErrNotStarted
		}
		settled := g.settled
		loading := g.state.Loading
		g.mu.Unlock()

		if !loading {
			return g.State(), nil
		}

		select {
		case <-ctx.Done():
			return State{}, ctx.Err()
		case <-settled:
		}
	}
}

func (g *Guard) SignIn(ctx context.Context, email, password string) error {
	g.mu.Lock()
	g.denied = ""
	g.mu.Unlock()

	session, err := g.p.SignIn(ctx, email, password)
	if err != nil {
		g.n.Error("Sign in failed", err.Error())
		return fmt.Errorf("sign in: %w", err)
	}

	// 登录后立即做一次权威的角色检查，不依赖缓存的状态
	role, err := g.p.LookupRole(ctx, session.User.ID)
	if err != nil || role != roleAdmin {
		if err != nil {
			g.l.Info("role check failed after sign in", zap.String("userID", session.User.ID), zap.Error(err))
		}
		g.mu.Lock()
		g.denied = session.User.ID
		g.mu.Unlock()

		if err := g.p.SignOut(ctx); err != nil {
			g.l.Error("failed to revoke non admin session", zap.Error(err))
		}
		g.apply(platform.AuthEvent{Kind: platform.EventSignedOut})
		g.n.Error("Access denied", "You do not have admin privileges.")
		return ErrAccessDenied
	}

	g.confirm(session.User, true)

	g.n.Success("Welcome back", "Signed in as "+session.User.Email)
	g.nav.Navigate(RouteAdmin)
	return nil
}

// confirm 记录一次权威检查的结果，作为新的代次
func (g *Guard) confirm(user platform.User, admin bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.gen++
	if g.abort != nil {
		g.abort()
		g.abort = nil
	}
	g.state = State{User: &user, IsAdmin: admin}
	g.settle()
}

func (g *Guard) SignUp(ctx context.Context, email, password string) (*platform.User, error) {
	user, err := g.p.SignUp(ctx, email, password)
	if err != nil {
		g.n.Error("Sign up failed", err.Error())
		return nil, fmt.Errorf("sign up: %w", err)
	}

	g.n.Success("Account created", "You can now sign in as "+user.Email)
	return user, nil
}

func (g *Guard) SignOut(ctx context.Context) error {
	err := g.p.SignOut(ctx)

	// 不管服务端结果如何，本地状态都要清掉
	g.apply(platform.AuthEvent{Kind: platform.EventSignedOut})

	if err != nil {
		g.n.Error("Sign out failed", err.Error())
	} else {
		g.n.Success("Signed out", "See you next time.")
	}
	g.nav.Navigate(RouteAuth)

	if err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	return nil
}

// RequireAdmin 仅用于界面跳转，真正的鉴权在服务端
func (g *Guard) RequireAdmin() error {
	st := g.State()
	switch {
	case st.User == nil:
		g.nav.Navigate(RouteAuth)
		return ErrNotAuthenticated
	case st.Loading:
		return ErrLoading
	case !st.IsAdmin:
		g.nav.Navigate(RouteAuth)
		return ErrAccessDenied
	}
	return nil
}
