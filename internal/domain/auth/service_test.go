package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"pharmacore/internal/core/apperror"
	"pharmacore/internal/core/id"
)

type memUserRepo struct {
	users map[string]*User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[string]*User)}
}

func (r *memUserRepo) Create(ctx context.Context, user *User) error {
	r.users[user.Email] = user
	return nil
}

func (r *memUserRepo) GetByID(ctx context.Context, userID id.ID) (*User, error) {
	for _, u := range r.users {
		if u.ID == userID {
			return u, nil
		}
	}
	return nil, apperror.NewNotFound("user", userID.String())
}

func (r *memUserRepo) GetByEmail(ctx context.Context, email string) (*User, error) {
	if u, ok := r.users[email]; ok {
		return u, nil
	}
	return nil, apperror.NewNotFound("user", email)
}

func (r *memUserRepo) Update(ctx context.Context, user *User) error {
	r.users[user.Email] = user
	return nil
}

func (r *memUserRepo) Delete(ctx context.Context, userID id.ID) error { return nil }

func (r *memUserRepo) List(ctx context.Context, filter UserFilter) ([]User, int, error) {
	var out []User
	for _, u := range r.users {
		out = append(out, *u)
	}
	return out, len(out), nil
}

func (r *memUserRepo) Exists(ctx context.Context, email string) (bool, error) {
	_, ok := r.users[email]
	return ok, nil
}

type memTokenRepo struct {
	tokens map[string]*RefreshToken
}

func newMemTokenRepo() *memTokenRepo {
	return &memTokenRepo{tokens: make(map[string]*RefreshToken)}
}

func (r *memTokenRepo) SaveRefreshToken(ctx context.Context, token *RefreshToken) error {
	r.tokens[token.TokenHash] = token
	return nil
}

func (r *memTokenRepo) GetRefreshToken(ctx context.Context, tokenHash string) (*RefreshToken, error) {
	if t, ok := r.tokens[tokenHash]; ok {
		return t, nil
	}
	return nil, apperror.NewNotFound("refresh_token", tokenHash)
}

func (r *memTokenRepo) RevokeRefreshToken(ctx context.Context, tokenID id.ID, reason string) error {
	for _, t := range r.tokens {
		if t.ID == tokenID {
			now := time.Now()
			t.RevokedAt = &now
			t.RevokedReason = reason
		}
	}
	return nil
}

func (r *memTokenRepo) RevokeAllUserTokens(ctx context.Context, userID id.ID, reason string) error {
	for _, t := range r.tokens {
		if t.UserID == userID && t.RevokedAt == nil {
			now := time.Now()
			t.RevokedAt = &now
			t.RevokedReason = reason
		}
	}
	return nil
}

func (r *memTokenRepo) CleanupExpiredTokens(ctx context.Context) (int, error) {
	return 0, nil
}

type noopTxManager struct{}

func (noopTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func newTestService(users *memUserRepo, tokens *memTokenRepo) *Service {
	jwtService := NewJWTService(DefaultJWTConfig("test-secret"))
	return NewService(users, tokens, noopTxManager{}, jwtService, DefaultServiceConfig())
}

func seedUser(t *testing.T, repo *memUserRepo, email, password string) *User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	user := NewUser(email, string(hash))
	require.NoError(t, repo.Create(context.Background(), user))
	return user
}

func TestRegister(t *testing.T) {
	users := newMemUserRepo()
	svc := newTestService(users, newMemTokenRepo())
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterRequest{
		Email:     "anna@pharmacore.local",
		Password:  "Secret123!",
		FirstName: "Anna",
		LastName:  "Kowalska",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{RolePharmacist}, user.Roles)
	assert.True(t, user.IsActive)
	assert.NotEqual(t, "Secret123!", user.PasswordHash)

	// Duplicate email is a conflict.
	_, err = svc.Register(ctx, RegisterRequest{Email: "anna@pharmacore.local", Password: "Secret123!"})
	assert.True(t, apperror.HasCode(err, apperror.CodeConflict))

	// Short password is rejected before touching the repo.
	_, err = svc.Register(ctx, RegisterRequest{Email: "b@pharmacore.local", Password: "short"})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestLogin(t *testing.T) {
	users := newMemUserRepo()
	svc := newTestService(users, newMemTokenRepo())
	ctx := context.Background()

	seedUser(t, users, "anna@pharmacore.local", "Secret123!")

	tokens, user, err := svc.Login(ctx, Credentials{Email: "anna@pharmacore.local", Password: "Secret123!"})
	require.NoError(t, err)
	assert.NotEmpty(t, tokens.AccessToken)
	assert.NotEmpty(t, tokens.RefreshToken)
	assert.Equal(t, "Bearer", tokens.TokenType)
	assert.NotNil(t, user.LastLoginAt)
	assert.Zero(t, user.FailedLoginAttempts)
}

func TestLogin_WrongPassword(t *testing.T) {
	users := newMemUserRepo()
	svc := newTestService(users, newMemTokenRepo())
	ctx := context.Background()

	seedUser(t, users, "anna@pharmacore.local", "Secret123!")

	_, _, err := svc.Login(ctx, Credentials{Email: "anna@pharmacore.local", Password: "wrong"})
	assert.True(t, apperror.HasCode(err, apperror.CodeUnauthorized))
	assert.Equal(t, 1, users.users["anna@pharmacore.local"].FailedLoginAttempts)
}

func TestLogin_LockoutAfterMaxAttempts(t *testing.T) {
	users := newMemUserRepo()
	svc := newTestService(users, newMemTokenRepo())
	ctx := context.Background()

	seedUser(t, users, "anna@pharmacore.local", "Secret123!")

	for range DefaultServiceConfig().MaxLoginAttempts {
		_, _, err := svc.Login(ctx, Credentials{Email: "anna@pharmacore.local", Password: "wrong"})
		assert.True(t, apperror.HasCode(err, apperror.CodeUnauthorized))
	}

	// Even the right password is refused while the account is locked.
	_, _, err := svc.Login(ctx, Credentials{Email: "anna@pharmacore.local", Password: "Secret123!"})
	assert.True(t, apperror.HasCode(err, apperror.CodeForbidden))
}

func TestLogin_DisabledAccount(t *testing.T) {
	users := newMemUserRepo()
	svc := newTestService(users, newMemTokenRepo())

	user := seedUser(t, users, "anna@pharmacore.local", "Secret123!")
	user.IsActive = false

	_, _, err := svc.Login(context.Background(), Credentials{Email: "anna@pharmacore.local", Password: "Secret123!"})
	assert.True(t, apperror.HasCode(err, apperror.CodeForbidden))
}

func TestRefreshToken_Rotation(t *testing.T) {
	users := newMemUserRepo()
	tokens := newMemTokenRepo()
	svc := newTestService(users, tokens)
	ctx := context.Background()

	seedUser(t, users, "anna@pharmacore.local", "Secret123!")
	pair, _, err := svc.Login(ctx, Credentials{Email: "anna@pharmacore.local", Password: "Secret123!"})
	require.NoError(t, err)

	fresh, err := svc.RefreshToken(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, pair.RefreshToken, fresh.RefreshToken)

	// The used token is revoked and cannot be replayed.
	_, err = svc.RefreshToken(ctx, pair.RefreshToken)
	assert.True(t, apperror.HasCode(err, apperror.CodeUnauthorized))
}

func TestLogout_RevokesAllTokens(t *testing.T) {
	users := newMemUserRepo()
	tokens := newMemTokenRepo()
	svc := newTestService(users, tokens)
	ctx := context.Background()

	user := seedUser(t, users, "anna@pharmacore.local", "Secret123!")
	pair, _, err := svc.Login(ctx, Credentials{Email: "anna@pharmacore.local", Password: "Secret123!"})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, user.ID))

	_, err = svc.RefreshToken(ctx, pair.RefreshToken)
	assert.True(t, apperror.HasCode(err, apperror.CodeUnauthorized))
}

func TestJWTRoundTrip(t *testing.T) {
	jwtService := NewJWTService(DefaultJWTConfig("test-secret"))

	token, expiresAt, err := jwtService.GenerateAccessToken("user-1", "anna@pharmacore.local", []string{RoleAdmin})
	require.NoError(t, err)
	assert.True(t, expiresAt.After(time.Now()))

	uc, err := jwtService.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", uc.UserID)
	assert.Equal(t, "anna@pharmacore.local", uc.Email)
	assert.Equal(t, []string{RoleAdmin}, uc.Roles)

	// A token signed with a different secret does not validate.
	other := NewJWTService(DefaultJWTConfig("other-secret"))
	_, err = other.ValidateToken(token)
	assert.Error(t, err)
}

func TestUserModel(t *testing.T) {
	user := NewUser("anna@pharmacore.local", "hash")
	user.FirstName = "Anna"
	user.LastName = "Kowalska"

	assert.Equal(t, "Anna Kowalska", user.FullName())
	assert.True(t, user.HasRole(RolePharmacist))
	assert.False(t, user.HasRole(RoleAdmin))

	user.RecordFailedLogin(2, time.Minute)
	assert.False(t, user.IsLocked())
	user.RecordFailedLogin(2, time.Minute)
	assert.True(t, user.IsLocked())

	user.RecordSuccessfulLogin()
	assert.False(t, user.IsLocked())
	assert.Zero(t, user.FailedLoginAttempts)
}
