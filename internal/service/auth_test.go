package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"bookdesk/internal/auth"
	"bookdesk/internal/model"
	"bookdesk/internal/repository"
)

type fakeUserStore struct {
	users map[string]*model.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[string]*model.User)}
}

func (f *fakeUserStore) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	u, ok := f.users[username]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUserStore) Create(ctx context.Context, u *model.User) error {
	u.ID = int64(len(f.users) + 1)
	cp := *u
	f.users[u.Username] = &cp
	return nil
}

var testSecret = []byte("test-secret")

func newTestAuthService(store *fakeUserStore) *AuthService {
	return NewAuthService(store, testSecret, time.Minute, testLogger())
}

func TestRegister_HashesPassword(t *testing.T) {
	store := newFakeUserStore()
	svc := newTestAuthService(store)

	user, err := svc.Register(context.Background(), model.RegisterRequest{
		Username: "alice",
		FullName: "Alice Example",
		Email:    "alice@example.com",
		Password: "hunter22",
	})

	require.NoError(t, err)
	assert.NotEqual(t, "hunter22", user.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("hunter22")))
}

func TestLogin_RoundTrip(t *testing.T) {
	store := newFakeUserStore()
	svc := newTestAuthService(store)

	_, err := svc.Register(context.Background(), model.RegisterRequest{
		Username: "alice", Email: "alice@example.com", Password: "hunter22",
	})
	require.NoError(t, err)

	token, user, err := svc.Login(context.Background(), model.LoginRequest{
		Username: "alice", Password: "hunter22",
	})
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	require.NotEmpty(t, token)

	verified, err := svc.VerifyToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "alice", verified.Username)
}

func TestLogin_WrongPassword(t *testing.T) {
	store := newFakeUserStore()
	svc := newTestAuthService(store)

	_, err := svc.Register(context.Background(), model.RegisterRequest{
		Username: "alice", Email: "alice@example.com", Password: "hunter22",
	})
	require.NoError(t, err)

	_, _, err = svc.Login(context.Background(), model.LoginRequest{
		Username: "alice", Password: "wrong-password",
	})

	assert.ErrorIs(t, err, repository.ErrInvalidCredentials)
}

func TestLogin_UnknownUser(t *testing.T) {
	svc := newTestAuthService(newFakeUserStore())

	_, _, err := svc.Login(context.Background(), model.LoginRequest{
		Username: "nobody", Password: "whatever1",
	})

	assert.ErrorIs(t, err, repository.ErrUserNotFound)
}

func TestVerifyToken_WrongSecret(t *testing.T) {
	store := newFakeUserStore()
	svc := newTestAuthService(store)

	_, err := svc.Register(context.Background(), model.RegisterRequest{
		Username: "alice", Email: "alice@example.com", Password: "hunter22",
	})
	require.NoError(t, err)

	token, err := auth.CreateAccessToken("alice", []byte("some-other-secret"), time.Minute)
	require.NoError(t, err)

	_, err = svc.VerifyToken(context.Background(), token)

	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestVerifyToken_Expired(t *testing.T) {
	store := newFakeUserStore()
	svc := newTestAuthService(store)

	_, err := svc.Register(context.Background(), model.RegisterRequest{
		Username: "alice", Email: "alice@example.com", Password: "hunter22",
	})
	require.NoError(t, err)

	token, err := auth.CreateAccessToken("alice", testSecret, -time.Minute)
	require.NoError(t, err)

	_, err = svc.VerifyToken(context.Background(), token)

	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestVerifyToken_DeletedAccount(t *testing.T) {
	store := newFakeUserStore()
	svc := newTestAuthService(store)

	token, err := auth.CreateAccessToken("ghost", testSecret, time.Minute)
	require.NoError(t, err)

	_, err = svc.VerifyToken(context.Background(), token)

	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestVerifyToken_Garbage(t *testing.T) {
	svc := newTestAuthService(newFakeUserStore())

	_, err := svc.VerifyToken(context.Background(), "not.a.token")

	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}
