package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/blood-donation/backend/internal/config"
	"github.com/blood-donation/backend/internal/domain"
	"github.com/blood-donation/backend/internal/middleware"
	"github.com/blood-donation/backend/internal/usecase"
	"github.com/blood-donation/backend/internal/validation"
)

const refreshCookieName = "refresh_token"

const dateLayout = "2006-01-02"

type Handler struct {
	authUsecase  *usecase.AuthUsecase
	donorUsecase *usecase.DonorUsecase
	jwtCfg       *config.JWTConfig
}

func NewHandler(auth *usecase.AuthUsecase, donor *usecase.DonorUsecase, jwtCfg *config.JWTConfig) *Handler {
	return &Handler{
		authUsecase:  auth,
		donorUsecase: donor,
		jwtCfg:       jwtCfg,
	}
}

type detailResponse struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeDetail(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, detailResponse{Detail: message})
}

// serviceUnavailable hides persistence failures behind a generic 503; the
// cause is only logged.
func serviceUnavailable(w http.ResponseWriter, err error) {
	log.Printf("persistence error: %v", err)
	writeDetail(w, http.StatusServiceUnavailable, "Service temporarily unavailable")
}

// userResponse is the donor profile projection returned by every read
// endpoint. The password hash never appears in it.
type userResponse struct {
	Name             string `json:"name"`
	LastName         string `json:"last_name"`
	Email            string `json:"email,omitempty"`
	PhoneNumber      string `json:"phone_number"`
	BloodGroup       string `json:"blood_group"`
	LastDonationDate string `json:"last_donation_date,omitempty"`
	City             string `json:"city"`
	Country          string `json:"country"`
}

func toUserResponse(user *domain.User) userResponse {
	resp := userResponse{
		Name:        user.Name,
		LastName:    user.LastName,
		Email:       user.Email,
		PhoneNumber: user.PhoneNumber,
		BloodGroup:  user.BloodGroup,
		City:        user.City,
		Country:     user.Country,
	}
	if user.LastDonationDate != nil {
		resp.LastDonationDate = user.LastDonationDate.Format(dateLayout)
	}
	return resp
}

func toUserResponses(users []*domain.User) []userResponse {
	resps := make([]userResponse, 0, len(users))
	for _, user := range users {
		resps = append(resps, toUserResponse(user))
	}
	return resps
}

// Auth handlers

type signupResponse struct {
	userResponse
	Message string `json:"message"`
}

func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req validation.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, fieldErrs := req.Validate()
	if fieldErrs != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"detail": fieldErrs})
		return
	}

	user, err := h.authUsecase.Signup(user, req.Password)
	if errors.Is(err, usecase.ErrPhoneExists) {
		writeDetail(w, http.StatusBadRequest, "Phone number already registered")
		return
	}
	if err != nil {
		serviceUnavailable(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, signupResponse{
		userResponse: toUserResponse(user),
		Message:      "Registration successful! Thank you for signing up for blood donation.",
	})
}

type accessTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	phone := r.PostFormValue("username")
	password := r.PostFormValue("password")

	accessToken, refreshToken, err := h.authUsecase.Login(phone, password)
	if errors.Is(err, usecase.ErrInvalidCredentials) {
		writeDetail(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if err != nil {
		serviceUnavailable(w, err)
		return
	}

	h.setRefreshCookie(w, refreshToken)
	writeJSON(w, http.StatusOK, accessTokenResponse{AccessToken: accessToken, TokenType: "bearer"})
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(refreshCookieName)
	if err != nil {
		writeDetail(w, http.StatusUnauthorized, "Refresh token missing")
		return
	}
	h.refresh(w, cookie.Value)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (h *Handler) RefreshJSON(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		writeDetail(w, http.StatusUnauthorized, "Refresh token missing")
		return
	}
	h.refresh(w, req.RefreshToken)
}

func (h *Handler) refresh(w http.ResponseWriter, refreshToken string) {
	accessToken, err := h.authUsecase.Refresh(refreshToken)
	if errors.Is(err, usecase.ErrInvalidToken) {
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeDetail(w, http.StatusUnauthorized, "Invalid refresh token")
		return
	}
	if err != nil {
		serviceUnavailable(w, err)
		return
	}

	writeJSON(w, http.StatusOK, accessTokenResponse{AccessToken: accessToken, TokenType: "bearer"})
}

// Logout deactivates the refresh token from the cookie. It succeeds even if
// the token was already inactive or the cookie is gone; the access token
// stays valid until its own expiry.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(refreshCookieName); err == nil {
		if err := h.authUsecase.Logout(cookie.Value); err != nil {
			serviceUnavailable(w, err)
			return
		}
	}

	h.clearRefreshCookie(w)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

func (h *Handler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		writeDetail(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	if err := h.authUsecase.LogoutAll(userID); err != nil {
		serviceUnavailable(w, err)
		return
	}

	h.clearRefreshCookie(w)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out from all sessions"})
}

func (h *Handler) setRefreshCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.jwtCfg.RefreshExpiry / time.Second),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// Donor handlers

// currentUser resolves the authenticated caller to their stored record.
// A valid token for a since-deleted user is treated as unauthenticated.
func (h *Handler) currentUser(w http.ResponseWriter, r *http.Request) *domain.User {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		writeDetail(w, http.StatusUnauthorized, "Not authenticated")
		return nil
	}

	user, err := h.authUsecase.GetUserByID(userID)
	if err != nil {
		serviceUnavailable(w, err)
		return nil
	}
	if user == nil {
		writeDetail(w, http.StatusUnauthorized, "User not found")
		return nil
	}
	return user
}

func (h *Handler) GetUsers(w http.ResponseWriter, r *http.Request) {
	if h.currentUser(w, r) == nil {
		return
	}

	users, err := h.donorUsecase.ListDonors()
	if err != nil {
		serviceUnavailable(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponses(users))
}

func (h *Handler) GetUsersByBloodGroup(w http.ResponseWriter, r *http.Request) {
	if h.currentUser(w, r) == nil {
		return
	}

	group := chi.URLParam(r, "group")
	users, err := h.donorUsecase.ListByBloodGroup(group)
	if errors.Is(err, usecase.ErrInvalidBloodGroup) {
		writeDetail(w, http.StatusBadRequest, "Invalid blood group")
		return
	}
	if errors.Is(err, usecase.ErrNoDonorsFound) {
		writeDetail(w, http.StatusNotFound, "No users found with blood group "+group)
		return
	}
	if err != nil {
		serviceUnavailable(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponses(users))
}

func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	if h.currentUser(w, r) == nil {
		return
	}

	user, err := h.donorUsecase.GetDonor(chi.URLParam(r, "id"))
	if errors.Is(err, usecase.ErrUserNotFound) {
		writeDetail(w, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		serviceUnavailable(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(user))
}

func (h *Handler) GetMyProfile(w http.ResponseWriter, r *http.Request) {
	user := h.currentUser(w, r)
	if user == nil {
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(user))
}
