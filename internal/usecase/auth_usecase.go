package usecase

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/blood-donation/backend/internal/config"
	"github.com/blood-donation/backend/internal/domain"
)

var (
	ErrInvalidCredentials = errors.New("invalid phone number or password")
	ErrPhoneExists        = errors.New("phone number already registered")
	ErrInvalidToken       = errors.New("invalid token")
	ErrUserNotFound       = errors.New("user not found")
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

type AuthUsecase struct {
	userRepo  domain.UserRepository
	tokenRepo domain.RefreshTokenRepository
	cfg       *config.JWTConfig
}

type Claims struct {
	UserID    string `json:"user_id"`
	TokenType string `json:"type"`
	jwt.RegisteredClaims
}

func NewAuthUsecase(userRepo domain.UserRepository, tokenRepo domain.RefreshTokenRepository, cfg *config.JWTConfig) *AuthUsecase {
	return &AuthUsecase{
		userRepo:  userRepo,
		tokenRepo: tokenRepo,
		cfg:       cfg,
	}
}

// Signup stores a validated donor record. The plaintext password is hashed
// with bcrypt and discarded.
func (u *AuthUsecase) Signup(user *domain.User, password string) (*domain.User, error) {
	existing, err := u.userRepo.GetByPhone(user.PhoneNumber)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrPhoneExists
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user.ID = domain.NewUserID()
	user.Password = string(hashedPassword)

	if err := u.userRepo.Create(user); err != nil {
		// The unique constraint closes the race between the existence
		// check and the insert.
		if errors.Is(err, domain.ErrDuplicatePhone) {
			return nil, ErrPhoneExists
		}
		return nil, err
	}

	return user, nil
}

// Login verifies phone + password and returns an access/refresh token pair.
// The failure is the same whether the phone is unknown or the password is
// wrong.
func (u *AuthUsecase) Login(phone, password string) (accessToken, refreshToken string, err error) {
	user, err := u.userRepo.GetByPhone(phone)
	if err != nil {
		return "", "", err
	}
	if user == nil {
		return "", "", ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", "", ErrInvalidCredentials
	}

	accessToken, err = u.IssueAccessToken(user.ID)
	if err != nil {
		return "", "", err
	}

	refreshToken, err = u.IssueRefreshToken(user.ID)
	if err != nil {
		return "", "", err
	}

	return accessToken, refreshToken, nil
}

// IssueAccessToken mints a short-lived stateless token. It is never stored
// and cannot be revoked before its expiry.
func (u *AuthUsecase) IssueAccessToken(userID string) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID:    userID,
		TokenType: TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(u.cfg.AccessExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   userID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(u.cfg.Secret))
}

// IssueRefreshToken mints a long-lived token and persists it, deactivating
// the user's previously active refresh tokens in the same transaction.
func (u *AuthUsecase) IssueRefreshToken(userID string) (string, error) {
	expiresAt := time.Now().Add(u.cfg.RefreshExpiry)
	claims := &Claims{
		UserID:    userID,
		TokenType: TokenTypeRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			// jti keeps tokens minted within the same second distinct,
			// since the token string itself is a unique column.
			ID:        uuid.New().String(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			Subject:   userID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(u.cfg.Secret))
	if err != nil {
		return "", err
	}

	row := &domain.RefreshToken{
		UserID:    userID,
		Token:     signed,
		ExpiresAt: expiresAt,
	}
	if err := u.tokenRepo.Rotate(row); err != nil {
		return "", err
	}

	return signed, nil
}

// ValidateAccessToken checks signature, expiry and token type without
// touching the store.
func (u *AuthUsecase) ValidateAccessToken(tokenString string) (string, error) {
	return u.verifyToken(tokenString, TokenTypeAccess)
}

// VerifyRefreshToken checks the token cryptographically and additionally
// requires an active, unexpired row in the store. This is the one path with
// real revocation semantics.
func (u *AuthUsecase) VerifyRefreshToken(tokenString string) (string, error) {
	userID, err := u.verifyToken(tokenString, TokenTypeRefresh)
	if err != nil {
		return "", err
	}

	row, err := u.tokenRepo.GetActive(tokenString)
	if err != nil {
		return "", err
	}
	if row == nil || row.UserID != userID {
		return "", ErrInvalidToken
	}

	return userID, nil
}

// Refresh exchanges a valid refresh token for a new access token. The
// refresh token itself is not rotated.
func (u *AuthUsecase) Refresh(refreshToken string) (string, error) {
	userID, err := u.VerifyRefreshToken(refreshToken)
	if err != nil {
		return "", err
	}
	return u.IssueAccessToken(userID)
}

// Logout deactivates the given refresh token. Deactivating an unknown or
// already-inactive token is not an error.
func (u *AuthUsecase) Logout(refreshToken string) error {
	return u.tokenRepo.Deactivate(refreshToken)
}

// LogoutAll deactivates every active refresh token owned by the user.
func (u *AuthUsecase) LogoutAll(userID string) error {
	return u.tokenRepo.DeactivateAll(userID)
}

func (u *AuthUsecase) GetUserByID(id string) (*domain.User, error) {
	return u.userRepo.GetByID(id)
}

func (u *AuthUsecase) verifyToken(tokenString, expectedType string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(u.cfg.Secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return "", ErrInvalidToken
	}
	if claims.UserID == "" || claims.TokenType != expectedType {
		return "", ErrInvalidToken
	}

	return claims.UserID, nil
}
