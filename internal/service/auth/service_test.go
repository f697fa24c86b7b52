package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/movieflex/movieflex/internal/domain"
	"github.com/movieflex/movieflex/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUserStore struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]*domain.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[int64]*domain.User)}
}

func (f *fakeUserStore) Create(_ context.Context, name, email, passwordHash string, isAdmin bool) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, u := range f.users {
		if u.Email == email {
			return 0, repository.ErrEmailTaken
		}
	}

	f.nextID++
	f.users[f.nextID] = &domain.User{
		ID:           f.nextID,
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		IsAdmin:      isAdmin,
		CreatedAt:    time.Now(),
	}
	return f.nextID, nil
}

func (f *fakeUserStore) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, u := range f.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUserStore) Get(_ context.Context, id int64) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	u, ok := f.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func newTestService() (*Service, *fakeUserStore) {
	store := newFakeUserStore()
	return New(store, Config{JWTSecret: "test-secret", AdminCode: "hunter2"}), store
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := newTestService()

	u, err := svc.Register(context.Background(), "Ada", "ada@example.com", "s3cret", false, "")
	require.NoError(t, err)
	assert.Equal(t, int64(1), u.ID)
	assert.False(t, u.IsAdmin)

	token, got, err := svc.Login(context.Background(), "ada@example.com", "s3cret")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, u.ID, got.ID)
}

func TestRegister_EmailTaken(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Register(context.Background(), "Ada", "ada@example.com", "s3cret", false, "")
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), "Eve", "ada@example.com", "other", false, "")
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestRegister_AdminCode(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Register(context.Background(), "Eve", "eve@example.com", "pw", true, "wrong")
	assert.ErrorIs(t, err, ErrInvalidAdminCode)

	u, err := svc.Register(context.Background(), "Ada", "ada@example.com", "pw", true, "hunter2")
	require.NoError(t, err)
	assert.True(t, u.IsAdmin)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Register(context.Background(), "Ada", "ada@example.com", "s3cret", false, "")
	require.NoError(t, err)

	_, _, err = svc.Login(context.Background(), "ada@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = svc.Login(context.Background(), "nobody@example.com", "s3cret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestVerifyToken(t *testing.T) {
	svc, _ := newTestService()

	u, err := svc.Register(context.Background(), "Ada", "ada@example.com", "pw", true, "hunter2")
	require.NoError(t, err)

	token, _, err := svc.Login(context.Background(), "ada@example.com", "pw")
	require.NoError(t, err)

	id, role, err := svc.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, id)
	assert.Equal(t, domain.RoleAdmin, role)
}

func TestVerifyToken_Invalid(t *testing.T) {
	svc, _ := newTestService()

	_, _, err := svc.VerifyToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	// Token signed with a different secret.
	other := New(newFakeUserStore(), Config{JWTSecret: "other-secret"})
	_, err = other.users.Create(context.Background(), "X", "x@example.com", "$2a$10$invalidhash", false)
	require.NoError(t, err)

	forged, err := other.issueToken(&domain.User{ID: 1})
	require.NoError(t, err)

	_, _, err = svc.VerifyToken(forged)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
