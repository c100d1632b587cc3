package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"github.com/alexedwards/argon2id"
	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	"go.uber.org/zap"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
	"webknight/app/server/jwt"
	"webknight/app/server/models"
	"webknight/app/server/stores"
	"webknight/app/server/types"
)

const (
	testSignatureKey = "test-signature-key"
	testEncryptKey   = "0123456789abcdef0123456789abcdef"
	testPublicURL    = "https://knight.test"
	testPassword     = "correct-horse"
)

type memUsers struct {
	mu    sync.Mutex
	users map[uuid.UUID]*models.User
	roles *memRoles
}

func (s *memUsers) Register(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user.Email = strings.ToLower(user.Email)
	for _, u := range s.users {
		if u.Email == user.Email {
			return stores.ErrConflict
		}
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	copied := *user
	s.users[user.ID] = &copied
	return s.roles.Assign(context.Background(), user.ID, models.RoleUser)
}

func (s *memUsers) ByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == strings.ToLower(email) {
			copied := *u
			return &copied, nil
		}
	}
	return nil, stores.ErrNotFound
}

func (s *memUsers) ByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, stores.ErrNotFound
}

func (s *memUsers) delete(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, id)
}

type memRoles struct {
	mu    sync.Mutex
	roles map[uuid.UUID]string
	err   error
}

func (s *memRoles) RoleOf(_ context.Context, userID uuid.UUID) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	role, ok := s.roles[userID]
	if !ok {
		return "", stores.ErrNotFound
	}
	return role, nil
}

func (s *memRoles) Assign(_ context.Context, userID uuid.UUID, role string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roles[userID] = role
	return nil
}

func (s *memRoles) remove(userID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.roles, userID)
}

type memObjects struct {
	mu      sync.Mutex
	objects map[string]*models.Object
	panic   bool
}

func (s *memObjects) key(bucket, path string) string { return bucket + "\x00" + path }

func (s *memObjects) Put(_ context.Context, object *models.Object) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := s.key(object.Bucket, object.Path)
	if _, ok := s.objects[k]; ok {
		return stores.ErrConflict
	}
	object.ID = uint(len(s.objects) + 1)
	object.CreatedAt = time.Now()
	copied := *object
	s.objects[k] = &copied
	return nil
}

func (s *memObjects) Get(_ context.Context, bucket, path string) (*models.Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.panic {
		panic("object store exploded")
	}
	if o, ok := s.objects[s.key(bucket, path)]; ok {
		copied := *o
		return &copied, nil
	}
	return nil, stores.ErrNotFound
}

func (s *memObjects) Stat(ctx context.Context, bucket, path string) (*models.Object, error) {
	o, err := s.Get(ctx, bucket, path)
	if err != nil {
		return nil, err
	}
	o.Content = nil
	return o, nil
}

func (s *memObjects) List(_ context.Context, bucket string, offset, limit int) ([]models.Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var all []models.Object
	for _, o := range s.objects {
		if o.Bucket == bucket {
			copied := *o
			copied.Content = nil
			all = append(all, copied)
		}
	}
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (s *memObjects) Count(_ context.Context, bucket string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, o := range s.objects {
		if o.Bucket == bucket {
			n++
		}
	}
	return n, nil
}

type testEnv struct {
	t       *testing.T
	app     *App
	e       *echo.Echo
	jwt     *jwt.JWT
	users   *memUsers
	roles   *memRoles
	objects *memObjects
	mr      *miniredis.Miniredis
	now     time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	roles := &memRoles{roles: map[uuid.UUID]string{}}
	env := &testEnv{
		t:       t,
		users:   &memUsers{users: map[uuid.UUID]*models.User{}, roles: roles},
		roles:   roles,
		objects: &memObjects{objects: map[string]*models.Object{}},
		mr:      mr,
		now:     time.Now(),
	}

	j, err := jwt.New(testSignatureKey)
	require.NoError(t, err)
	env.jwt = j.WithClock(func() time.Time { return env.now })

	rate, err := limiter.NewRateFromFormatted("3-M")
	require.NoError(t, err)

	env.app = NewApp(zap.NewNop(), Stores{
		Users:    env.users,
		Roles:    env.roles,
		Objects:  env.objects,
		Sessions: stores.NewRedisSessions(rdb),
	}, limiter.New(memory.NewStore(), rate), env.jwt, testEncryptKey, nil, Options{
		PublicURL:       testPublicURL,
		DefaultBucket:   "knight21-uploads",
		SessionDuration: time.Hour,
		MaxUploadSize:   1 << 20,
	})

	env.e = echo.New()
	env.app.RegisterHandlers(env.e)
	return env
}

// addUser 注册用户，admin 为 true 时带外提权
func (env *testEnv) addUser(email string, admin bool) *models.User {
	env.t.Helper()
	hash, err := argon2id.CreateHash(testPassword, &argon2id.Params{
		Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32,
	})
	require.NoError(env.t, err)
	user := &models.User{ID: uuid.New(), Email: email, Password: hash}
	require.NoError(env.t, env.users.Register(context.Background(), user))
	if admin {
		require.NoError(env.t, env.roles.Assign(context.Background(), user.ID, models.RoleAdmin))
	}
	return user
}

func (env *testEnv) tokenFor(user *models.User) string {
	env.t.Helper()
	token, err := env.jwt.SignSession(&jwt.Session{
		UserID:    user.ID.String(),
		Email:     user.Email,
		SessionID: uuid.NewString(),
		IssuedAt:  env.now,
		Expires:   env.now.Add(time.Hour),
	})
	require.NoError(env.t, err)
	return token
}

func (env *testEnv) putObject(bucket, path, contentType string, content []byte) {
	env.t.Helper()
	sealed, err := env.app.sealContent(bucket, path, content)
	require.NoError(env.t, err)
	require.NoError(env.t, env.objects.Put(context.Background(), &models.Object{
		Bucket: bucket, Path: path, ContentType: contentType, Size: int64(len(content)), Content: sealed,
	}))
}

func (env *testEnv) do(method, target, token string, body any) *httptest.ResponseRecorder {
	env.t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(env.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) types.ErrorMessage {
	t.Helper()
	var msg types.ErrorMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &msg))
	return msg
}

var errBoom = errors.New("role store unavailable")

func newRecorder(env *testEnv, r *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, r)
	return rec
}
