package usecase

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/blood-donation/backend/internal/config"
	"github.com/blood-donation/backend/internal/domain"
)

// mockUserRepo is a map-backed UserRepository for tests.
type mockUserRepo struct {
	users map[string]*domain.User // id -> user
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*domain.User)}
}

func (m *mockUserRepo) Create(user *domain.User) error {
	for _, u := range m.users {
		if u.PhoneNumber == user.PhoneNumber {
			return domain.ErrDuplicatePhone
		}
	}
	user.RegistrationDate = time.Now()
	m.users[user.ID] = user
	return nil
}

func (m *mockUserRepo) GetByID(id string) (*domain.User, error) {
	return m.users[id], nil
}

func (m *mockUserRepo) GetByPhone(phone string) (*domain.User, error) {
	for _, u := range m.users {
		if u.PhoneNumber == phone {
			return u, nil
		}
	}
	return nil, nil
}

func (m *mockUserRepo) ListAll() ([]*domain.User, error) {
	var users []*domain.User
	for _, u := range m.users {
		users = append(users, u)
	}
	return users, nil
}

func (m *mockUserRepo) ListByBloodGroup(group string) ([]*domain.User, error) {
	var users []*domain.User
	for _, u := range m.users {
		if u.BloodGroup == group {
			users = append(users, u)
		}
	}
	return users, nil
}

// mockTokenRepo is a map-backed RefreshTokenRepository for tests.
type mockTokenRepo struct {
	tokens map[string]*domain.RefreshToken // token string -> row
}

func newMockTokenRepo() *mockTokenRepo {
	return &mockTokenRepo{tokens: make(map[string]*domain.RefreshToken)}
}

func (m *mockTokenRepo) Rotate(token *domain.RefreshToken) error {
	for _, t := range m.tokens {
		if t.UserID == token.UserID {
			t.IsActive = false
		}
	}
	token.IsActive = true
	token.CreatedAt = time.Now()
	m.tokens[token.Token] = token
	return nil
}

func (m *mockTokenRepo) GetActive(tokenString string) (*domain.RefreshToken, error) {
	t, ok := m.tokens[tokenString]
	if !ok || !t.IsActive || !t.ExpiresAt.After(time.Now()) {
		return nil, nil
	}
	return t, nil
}

func (m *mockTokenRepo) Deactivate(tokenString string) error {
	if t, ok := m.tokens[tokenString]; ok {
		t.IsActive = false
	}
	return nil
}

func (m *mockTokenRepo) DeactivateAll(userID string) error {
	for _, t := range m.tokens {
		if t.UserID == userID {
			t.IsActive = false
		}
	}
	return nil
}

func (m *mockTokenRepo) DeleteExpired() error {
	for k, t := range m.tokens {
		if t.ExpiresAt.Before(time.Now()) {
			delete(m.tokens, k)
		}
	}
	return nil
}

func (m *mockTokenRepo) activeCount(userID string) int {
	count := 0
	for _, t := range m.tokens {
		if t.UserID == userID && t.IsActive {
			count++
		}
	}
	return count
}

func testJWTConfig() *config.JWTConfig {
	return &config.JWTConfig{
		Secret:        "test-secret",
		AccessExpiry:  30 * time.Minute,
		RefreshExpiry: 7 * 24 * time.Hour,
	}
}

func newTestAuth(t *testing.T) (*AuthUsecase, *mockUserRepo, *mockTokenRepo) {
	t.Helper()
	userRepo := newMockUserRepo()
	tokenRepo := newMockTokenRepo()
	return NewAuthUsecase(userRepo, tokenRepo, testJWTConfig()), userRepo, tokenRepo
}

func signupTestDonor(t *testing.T, auth *AuthUsecase, phone, password string) *domain.User {
	t.Helper()
	user, err := auth.Signup(&domain.User{
		Name:        "Ali",
		LastName:    "Khan",
		PhoneNumber: phone,
		BloodGroup:  "O+",
		City:        "Lahore",
		Country:     "Pakistan",
	}, password)
	require.NoError(t, err)
	return user
}

func TestSignupHashesPassword(t *testing.T) {
	auth, userRepo, _ := newTestAuth(t)

	user := signupTestDonor(t, auth, "03001234567", "Abcdef1!")

	assert.True(t, strings.HasPrefix(user.ID, "USER_"))
	assert.Len(t, user.ID, len("USER_")+8)

	stored := userRepo.users[user.ID]
	require.NotNil(t, stored)
	assert.NotEqual(t, "Abcdef1!", stored.Password)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("Abcdef1!")))
}

func TestSignupDuplicatePhone(t *testing.T) {
	auth, _, _ := newTestAuth(t)

	signupTestDonor(t, auth, "03001234567", "Abcdef1!")

	_, err := auth.Signup(&domain.User{
		Name:        "Sara",
		LastName:    "Ahmed",
		PhoneNumber: "03001234567",
		BloodGroup:  "A+",
		City:        "Karachi",
		Country:     "Pakistan",
	}, "Zyxwvu9?")
	assert.ErrorIs(t, err, ErrPhoneExists)
}

func TestLogin(t *testing.T) {
	auth, _, _ := newTestAuth(t)
	user := signupTestDonor(t, auth, "03001234567", "Abcdef1!")

	accessToken, refreshToken, err := auth.Login("03001234567", "Abcdef1!")
	require.NoError(t, err)
	require.NotEmpty(t, accessToken)
	require.NotEmpty(t, refreshToken)

	userID, err := auth.ValidateAccessToken(accessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, userID)

	userID, err = auth.VerifyRefreshToken(refreshToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, userID)
}

func TestLoginInvalidCredentials(t *testing.T) {
	auth, _, _ := newTestAuth(t)
	signupTestDonor(t, auth, "03001234567", "Abcdef1!")

	// Unknown phone and wrong password must be indistinguishable.
	_, _, err := auth.Login("03009999999", "Abcdef1!")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = auth.Login("03001234567", "WrongPass1!")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAccessTokenRoundTrip(t *testing.T) {
	auth, _, _ := newTestAuth(t)

	token, err := auth.IssueAccessToken("USER_AABBCCDD")
	require.NoError(t, err)

	userID, err := auth.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "USER_AABBCCDD", userID)
}

func TestAccessTokenRejectedAsRefresh(t *testing.T) {
	auth, _, _ := newTestAuth(t)

	token, err := auth.IssueAccessToken("USER_AABBCCDD")
	require.NoError(t, err)

	_, err = auth.VerifyRefreshToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefreshTokenRejectedAsAccess(t *testing.T) {
	auth, _, _ := newTestAuth(t)

	token, err := auth.IssueRefreshToken("USER_AABBCCDD")
	require.NoError(t, err)

	_, err = auth.ValidateAccessToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRefreshTokenExpired(t *testing.T) {
	userRepo := newMockUserRepo()
	tokenRepo := newMockTokenRepo()
	cfg := testJWTConfig()
	cfg.RefreshExpiry = -time.Hour
	auth := NewAuthUsecase(userRepo, tokenRepo, cfg)

	token, err := auth.IssueRefreshToken("USER_AABBCCDD")
	require.NoError(t, err)

	_, err = auth.VerifyRefreshToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRefreshTokenDeactivated(t *testing.T) {
	auth, _, _ := newTestAuth(t)

	token, err := auth.IssueRefreshToken("USER_AABBCCDD")
	require.NoError(t, err)

	require.NoError(t, auth.Logout(token))

	_, err = auth.VerifyRefreshToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRefreshTokenMalformed(t *testing.T) {
	auth, _, _ := newTestAuth(t)

	_, err := auth.VerifyRefreshToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestSequentialLoginsKeepOneActiveToken(t *testing.T) {
	auth, _, tokenRepo := newTestAuth(t)
	user := signupTestDonor(t, auth, "03001234567", "Abcdef1!")

	for i := 0; i < 5; i++ {
		_, _, err := auth.Login("03001234567", "Abcdef1!")
		require.NoError(t, err)
	}

	assert.LessOrEqual(t, tokenRepo.activeCount(user.ID), 1)
}

func TestRefreshDoesNotRotate(t *testing.T) {
	auth, _, tokenRepo := newTestAuth(t)
	user := signupTestDonor(t, auth, "03001234567", "Abcdef1!")

	_, refreshToken, err := auth.Login("03001234567", "Abcdef1!")
	require.NoError(t, err)

	accessToken, err := auth.Refresh(refreshToken)
	require.NoError(t, err)
	require.NotEmpty(t, accessToken)

	// The refresh token stays usable and no new row appears.
	_, err = auth.VerifyRefreshToken(refreshToken)
	assert.NoError(t, err)
	assert.Equal(t, 1, tokenRepo.activeCount(user.ID))
}

func TestLogoutIsIdempotent(t *testing.T) {
	auth, _, _ := newTestAuth(t)

	token, err := auth.IssueRefreshToken("USER_AABBCCDD")
	require.NoError(t, err)

	require.NoError(t, auth.Logout(token))
	require.NoError(t, auth.Logout(token))
	require.NoError(t, auth.Logout("never-issued"))
}

func TestLogoutAll(t *testing.T) {
	auth, _, tokenRepo := newTestAuth(t)

	token1, err := auth.IssueRefreshToken("USER_AABBCCDD")
	require.NoError(t, err)
	token2, err := auth.IssueRefreshToken("USER_AABBCCDD")
	require.NoError(t, err)
	require.NotEqual(t, token1, token2)

	// Force the double-active window the atomic rotation normally closes.
	tokenRepo.tokens[token1].IsActive = true
	require.Equal(t, 2, tokenRepo.activeCount("USER_AABBCCDD"))

	require.NoError(t, auth.LogoutAll("USER_AABBCCDD"))
	assert.Equal(t, 0, tokenRepo.activeCount("USER_AABBCCDD"))

	_, err = auth.VerifyRefreshToken(token1)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
