package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blood-donation/backend/internal/config"
	"github.com/blood-donation/backend/internal/usecase"
)

func newTestMiddleware(t *testing.T) (*AuthMiddleware, *usecase.AuthUsecase) {
	t.Helper()
	// Access-token validation never touches the repositories.
	auth := usecase.NewAuthUsecase(nil, nil, &config.JWTConfig{
		Secret:        "test-secret",
		AccessExpiry:  30 * time.Minute,
		RefreshExpiry: 7 * 24 * time.Hour,
	})
	return NewAuthMiddleware(auth), auth
}

func TestAuthenticate(t *testing.T) {
	m, auth := newTestMiddleware(t)

	token, err := auth.IssueAccessToken("USER_AABBCCDD")
	require.NoError(t, err)

	var gotUserID string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID, _ = GetUserID(r.Context())
	})

	req := httptest.NewRequest("GET", "/users/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	m.Authenticate(next).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "USER_AABBCCDD", gotUserID)
}

func TestAuthenticateRejections(t *testing.T) {
	m, _ := newTestMiddleware(t)

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not bearer", "Basic abc"},
		{"garbage token", "Bearer not-a-jwt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Fatal("handler must not be reached")
			})

			req := httptest.NewRequest("GET", "/users/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			m.Authenticate(next).ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))
			assert.Contains(t, w.Body.String(), "detail")
		})
	}
}
