package guard

import (
	"context"
	"errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"sync"
	"testing"
	"time"
	"webknight/app/console/platform"
)

type lookupFunc func(ctx context.Context, userID string) (string, error)

type fakePlatform struct {
	mu       sync.Mutex
	events   chan platform.AuthEvent
	session  *platform.Session
	lookup   lookupFunc
	signIn   *platform.Session
	signErr  error
	signOuts int
	hold     bool
	pending  []platform.AuthEvent
}

// send hold 为 true 时先攒着事件，由 flush 统一投递
func (f *fakePlatform) send(ev platform.AuthEvent) {
	if f.hold {
		f.pending = append(f.pending, ev)
		return
	}
	f.events <- ev
}

func (f *fakePlatform) flush() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ev := range f.pending {
		f.events <- ev
	}
	f.pending = nil
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		events: make(chan platform.AuthEvent, 16),
		lookup: func(context.Context, string) (string, error) { return "user", nil },
	}
}

func (f *fakePlatform) Subscribe() (<-chan platform.AuthEvent, error) { return f.events, nil }

func (f *fakePlatform) Session(context.Context) (*platform.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.session, nil
}

func (f *fakePlatform) SignIn(_ context.Context, email, _ string) (*platform.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.signErr != nil {
		return nil, f.signErr
	}
	s := f.signIn
	if s == nil {
		s = &platform.Session{AccessToken: "token", User: platform.User{ID: "u-" + email, Email: email}}
	}
	f.session = s
	u := s.User
	f.send(platform.AuthEvent{Kind: platform.EventSignedIn, User: &u})
	return s, nil
}

func (f *fakePlatform) SignUp(_ context.Context, email, _ string) (*platform.User, error) {
	return &platform.User{ID: "new", Email: email}, nil
}

func (f *fakePlatform) SignOut(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signOuts++
	f.session = nil
	f.send(platform.AuthEvent{Kind: platform.EventSignedOut})
	return nil
}

func (f *fakePlatform) LookupRole(ctx context.Context, userID string) (string, error) {
	f.mu.Lock()
	lookup := f.lookup
	f.mu.Unlock()
	return lookup(ctx, userID)
}

func (f *fakePlatform) setLookup(fn lookupFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookup = fn
}

func (f *fakePlatform) signOutCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.signOuts
}

type recorder struct {
	mu       sync.Mutex
	routes   []string
	success  []string
	failures []string
}

func (r *recorder) Navigate(route string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes = append(r.routes, route)
}

func (r *recorder) Success(title, _ string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.success = append(r.success, title)
}

func (r *recorder) Error(title, _ string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = append(r.failures, title)
}

func (r *recorder) lastRoute() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.routes) == 0 {
		return ""
	}
	return r.routes[len(r.routes)-1]
}

func roles(m map[string]string) lookupFunc {
	return func(_ context.Context, userID string) (string, error) {
		if role, ok := m[userID]; ok {
			return role, nil
		}
		return "", platform.ErrNoRole
	}
}

func startGuard(t *testing.T, p *fakePlatform) (*Guard, *recorder) {
	t.Helper()
	rec := &recorder{}
	g := New(p, rec, rec, zap.NewNop())
	require.NoError(t, g.Start(context.Background()))
	t.Cleanup(g.Close)
	return g, rec
}

func waitState(t *testing.T, g *Guard) State {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	st, err := g.Wait(ctx)
	require.NoError(t, err)
	return st
}

func emit(p *fakePlatform, kind platform.EventKind, id string) {
	var user *platform.User
	if id != "" {
		user = &platform.User{ID: id, Email: id + "@knight.test"}
	}
	p.events <- platform.AuthEvent{Kind: kind, User: user}
}

func TestGuard_InitialSession(t *testing.T) {
	t.Run("Should start signed out without a session", func(t *testing.T) {
		g, _ := startGuard(t, newFakePlatform())
		st := waitState(t, g)
		assert.Nil(t, st.User)
		assert.False(t, st.IsAdmin)
		assert.False(t, st.Loading)
	})

	t.Run("Should derive admin for an existing admin session", func(t *testing.T) {
		p := newFakePlatform()
		p.session = &platform.Session{AccessToken: "t", User: platform.User{ID: "alice"}}
		p.lookup = roles(map[string]string{"alice": "admin"})

		g, _ := startGuard(t, p)
		st := waitState(t, g)
		require.NotNil(t, st.User)
		assert.Equal(t, "alice", st.User.ID)
		assert.True(t, st.IsAdmin)
	})
}

func TestGuard_FailClosed(t *testing.T) {
	cases := []struct {
		name   string
		lookup lookupFunc
	}{
		{"role user", roles(map[string]string{"bob": "user"})},
		{"missing role", roles(map[string]string{})},
		{"capitalised admin", roles(map[string]string{"bob": "Admin"})},
		{"empty role", roles(map[string]string{"bob": ""})},
		{"lookup error", func(context.Context, string) (string, error) { return "", errors.New("network down") }},
	}

	for _, tc := range cases {
		t.Run("Should not be admin with "+tc.name, func(t *testing.T) {
			p := newFakePlatform()
			p.lookup = tc.lookup
			g, _ := startGuard(t, p)

			emit(p, platform.EventSignedIn, "bob")
			assert.Eventually(t, func() bool { return g.User() != nil }, time.Second, 5*time.Millisecond)

			st := waitState(t, g)
			assert.False(t, st.IsAdmin)
		})
	}
}

func TestGuard_StaleDerivationIsDiscarded(t *testing.T) {
	p := newFakePlatform()
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	p.lookup = func(ctx context.Context, userID string) (string, error) {
		if userID == "alice" {
			started <- struct{}{}
			// 忽略取消，模拟迟到的响应
			<-release
			return "admin", nil
		}
		return "user", nil
	}
	g, _ := startGuard(t, p)

	emit(p, platform.EventSignedIn, "alice")
	<-started
	emit(p, platform.EventSignedIn, "bob")

	assert.Eventually(t, func() bool {
		st := g.State()
		return st.User != nil && st.User.ID == "bob" && !st.Loading
	}, time.Second, 5*time.Millisecond)

	close(release)
	time.Sleep(20 * time.Millisecond)

	st := g.State()
	require.NotNil(t, st.User)
	assert.Equal(t, "bob", st.User.ID)
	assert.False(t, st.IsAdmin)
}

func TestGuard_InFlightDerivationIsCancelled(t *testing.T) {
	p := newFakePlatform()
	cancelled := make(chan struct{})
	p.lookup = func(ctx context.Context, userID string) (string, error) {
		<-ctx.Done()
		close(cancelled)
		return "", ctx.Err()
	}
	g, _ := startGuard(t, p)

	emit(p, platform.EventSignedIn, "alice")
	assert.Eventually(t, func() bool { return g.State().Loading }, time.Second, 5*time.Millisecond)

	emit(p, platform.EventSignedOut, "")
	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("role check was not cancelled")
	}

	st := waitState(t, g)
	assert.Nil(t, st.User)
	assert.False(t, st.IsAdmin)
}

func TestGuard_IdentityChangeResetsFlag(t *testing.T) {
	p := newFakePlatform()
	p.lookup = roles(map[string]string{"alice": "admin"})
	g, _ := startGuard(t, p)

	emit(p, platform.EventSignedIn, "alice")
	assert.Eventually(t, g.IsAdmin, time.Second, 5*time.Millisecond)

	block := make(chan struct{})
	defer close(block)
	p.setLookup(func(ctx context.Context, _ string) (string, error) {
		<-block
		return "admin", nil
	})

	emit(p, platform.EventSignedIn, "mallory")
	assert.Eventually(t, func() bool {
		u := g.User()
		return u != nil && u.ID == "mallory"
	}, time.Second, 5*time.Millisecond)
	assert.False(t, g.IsAdmin())
	assert.True(t, g.State().Loading)
}

func TestGuard_SignIn(t *testing.T) {
	t.Run("Should navigate to admin for admins", func(t *testing.T) {
		p := newFakePlatform()
		p.lookup = roles(map[string]string{"u-admin@knight.test": "admin"})
		g, rec := startGuard(t, p)

		require.NoError(t, g.SignIn(context.Background(), "admin@knight.test", "pw"))
		assert.Equal(t, RouteAdmin, rec.lastRoute())
		assert.Zero(t, p.signOutCount())

		assert.Eventually(t, g.IsAdmin, time.Second, 5*time.Millisecond)
	})

	t.Run("Should revoke the session of non admins", func(t *testing.T) {
		p := newFakePlatform()
		p.lookup = roles(map[string]string{"u-visitor@knight.test": "user"})
		g, rec := startGuard(t, p)

		err := g.SignIn(context.Background(), "visitor@knight.test", "pw")
		assert.ErrorIs(t, err, ErrAccessDenied)
		assert.Equal(t, 1, p.signOutCount())
		assert.NotContains(t, rec.routes, RouteAdmin)
		assert.Contains(t, rec.failures, "Access denied")

		assert.Eventually(t, func() bool { return g.User() == nil }, time.Second, 5*time.Millisecond)
		assert.False(t, g.IsAdmin())
	})

	t.Run("Should not resurrect a denied user from queued events", func(t *testing.T) {
		p := newFakePlatform()
		p.hold = true
		p.lookup = roles(map[string]string{"u-visitor@knight.test": "user"})
		g, rec := startGuard(t, p)

		require.ErrorIs(t, g.SignIn(context.Background(), "visitor@knight.test", "pw"), ErrAccessDenied)
		p.flush()

		assert.Never(t, func() bool { return g.User() != nil }, 100*time.Millisecond, time.Millisecond)
		assert.ErrorIs(t, g.RequireAdmin(), ErrNotAuthenticated)
		assert.Equal(t, RouteAuth, rec.lastRoute())
	})

	t.Run("Should accept the same user again after a later sign in", func(t *testing.T) {
		p := newFakePlatform()
		p.hold = true
		p.lookup = roles(map[string]string{"u-visitor@knight.test": "user"})
		g, _ := startGuard(t, p)

		require.ErrorIs(t, g.SignIn(context.Background(), "visitor@knight.test", "pw"), ErrAccessDenied)
		p.flush()

		p.mu.Lock()
		p.hold = false
		p.mu.Unlock()
		p.setLookup(roles(map[string]string{"u-visitor@knight.test": "admin"}))
		require.NoError(t, g.SignIn(context.Background(), "visitor@knight.test", "pw"))
		assert.Eventually(t, g.IsAdmin, time.Second, 5*time.Millisecond)
	})

	t.Run("Should revoke the session when the role check fails", func(t *testing.T) {
		p := newFakePlatform()
		p.lookup = func(context.Context, string) (string, error) { return "", errors.New("timeout") }
		g, _ := startGuard(t, p)

		err := g.SignIn(context.Background(), "admin@knight.test", "pw")
		assert.ErrorIs(t, err, ErrAccessDenied)
		assert.Equal(t, 1, p.signOutCount())
	})

	t.Run("Should propagate credential errors", func(t *testing.T) {
		p := newFakePlatform()
		p.signErr = &platform.APIError{Status: 401, Message: "Invalid login credentials"}
		g, rec := startGuard(t, p)

		err := g.SignIn(context.Background(), "admin@knight.test", "wrong")
		var apiErr *platform.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, 401, apiErr.Status)
		assert.Zero(t, p.signOutCount())
		assert.Contains(t, rec.failures, "Sign in failed")
	})
}

func TestGuard_SignUp(t *testing.T) {
	g, rec := startGuard(t, newFakePlatform())

	user, err := g.SignUp(context.Background(), "new@knight.test", "pw123456")
	require.NoError(t, err)
	assert.Equal(t, "new@knight.test", user.Email)
	assert.Contains(t, rec.success, "Account created")
}

func TestGuard_SignOut(t *testing.T) {
	p := newFakePlatform()
	p.session = &platform.Session{AccessToken: "t", User: platform.User{ID: "alice"}}
	p.lookup = roles(map[string]string{"alice": "admin"})
	g, rec := startGuard(t, p)
	require.True(t, waitState(t, g).IsAdmin)

	require.NoError(t, g.SignOut(context.Background()))
	assert.False(t, g.IsAdmin())
	assert.Nil(t, g.User())
	assert.Equal(t, RouteAuth, rec.lastRoute())
	assert.Equal(t, 1, p.signOutCount())
}

func TestGuard_RequireAdmin(t *testing.T) {
	t.Run("Should redirect anonymous users", func(t *testing.T) {
		g, rec := startGuard(t, newFakePlatform())
		waitState(t, g)
		assert.ErrorIs(t, g.RequireAdmin(), ErrNotAuthenticated)
		assert.Equal(t, RouteAuth, rec.lastRoute())
	})

	t.Run("Should redirect non admins", func(t *testing.T) {
		p := newFakePlatform()
		p.session = &platform.Session{AccessToken: "t", User: platform.User{ID: "bob"}}
		g, rec := startGuard(t, p)
		waitState(t, g)
		assert.ErrorIs(t, g.RequireAdmin(), ErrAccessDenied)
		assert.Equal(t, RouteAuth, rec.lastRoute())
	})

	t.Run("Should let admins through", func(t *testing.T) {
		p := newFakePlatform()
		p.session = &platform.Session{AccessToken: "t", User: platform.User{ID: "alice"}}
		p.lookup = roles(map[string]string{"alice": "admin"})
		g, rec := startGuard(t, p)
		waitState(t, g)
		assert.NoError(t, g.RequireAdmin())
		assert.Empty(t, rec.lastRoute())
	})
}

func TestGuard_WaitBeforeStart(t *testing.T) {
	g := New(newFakePlatform(), &recorder{}, &recorder{}, zap.NewNop())
	_, err := g.Wait(context.Background())
	assert.ErrorIs(t, err, ErrNotStarted)
}
