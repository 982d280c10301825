package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/calderahq/storefront-backend/internal/auth"
	"github.com/calderahq/storefront-backend/internal/users"
	"github.com/calderahq/storefront-backend/pkg/enums"
	pkgerrors "github.com/calderahq/storefront-backend/pkg/errors"
)

type stubAuthService struct {
	signupResp *auth.SignupResponse
	signupErr  error
	loginResp  *auth.LoginResponse
	loginErr   error
	verifyResp *auth.VerifyEmailResponse
	verifyErr  error
	forgotResp *auth.ForgotPasswordResponse
	resetErr   error
	profile    *users.UserDTO
	profileErr error
}

func (s stubAuthService) Signup(context.Context, auth.SignupRequest) (*auth.SignupResponse, error) {
	return s.signupResp, s.signupErr
}

func (s stubAuthService) Login(context.Context, auth.LoginRequest) (*auth.LoginResponse, error) {
	return s.loginResp, s.loginErr
}

func (s stubAuthService) VerifyEmail(context.Context, auth.VerifyEmailRequest) (*auth.VerifyEmailResponse, error) {
	return s.verifyResp, s.verifyErr
}

func (s stubAuthService) ForgotPassword(context.Context, auth.ForgotPasswordRequest) *auth.ForgotPasswordResponse {
	return s.forgotResp
}

func (s stubAuthService) ResetPassword(context.Context, auth.ResetPasswordRequest) error {
	return s.resetErr
}

func (s stubAuthService) Profile(context.Context, uuid.UUID) (*users.UserDTO, error) {
	return s.profile, s.profileErr
}

func testUserDTO() *users.UserDTO {
	return &users.UserDTO{
		ID:        uuid.New(),
		Email:     "ann@x.com",
		Name:      "Ann",
		Role:      enums.RoleCustomer,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
}

func postJSON(t *testing.T, handler http.HandlerFunc, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	return resp
}

func TestAuthSignupSuccess(t *testing.T) {
	handler := AuthSignup(stubAuthService{signupResp: &auth.SignupResponse{
		User:                 testUserDTO(),
		VerificationRequired: true,
	}}, nil)

	resp := postJSON(t, handler, "/api/v1/auth/signup", `{"name":"Ann","email":"ann@x.com","password":"pw1234"}`)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", resp.Code)
	}

	var envelope struct {
		Data struct {
			User                 *users.UserDTO `json:"user"`
			VerificationRequired bool           `json:"verification_required"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !envelope.Data.VerificationRequired {
		t.Fatal("expected verification_required true")
	}
	if envelope.Data.User == nil || envelope.Data.User.Email != "ann@x.com" {
		t.Fatalf("expected user in payload got %+v", envelope.Data.User)
	}
}

func TestAuthSignupInvalidPayload(t *testing.T) {
	handler := AuthSignup(stubAuthService{}, nil)

	resp := postJSON(t, handler, "/api/v1/auth/signup", `{"email":"not-an-email"}`)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestAuthSignupDuplicate(t *testing.T) {
	handler := AuthSignup(stubAuthService{
		signupErr: pkgerrors.New(pkgerrors.CodeConflict, "email already registered"),
	}, nil)

	resp := postJSON(t, handler, "/api/v1/auth/signup", `{"name":"Ann","email":"ann@x.com","password":"pw1234"}`)
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}

	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Error.Message != "email already registered" {
		t.Fatalf("unexpected message %q", envelope.Error.Message)
	}
}

func TestAuthLoginUnverified(t *testing.T) {
	handler := AuthLogin(stubAuthService{loginResp: &auth.LoginResponse{
		VerificationRequired: true,
		User:                 testUserDTO(),
	}}, nil)

	resp := postJSON(t, handler, "/api/v1/auth/login", `{"email":"ann@x.com","password":"pw1234"}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}

	var envelope struct {
		Data struct {
			AccessToken          string `json:"access_token"`
			VerificationRequired bool   `json:"verification_required"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.AccessToken != "" {
		t.Fatal("unverified login must not carry a token")
	}
	if !envelope.Data.VerificationRequired {
		t.Fatal("expected verification_required true")
	}
}

func TestAuthLoginInvalidCredentials(t *testing.T) {
	handler := AuthLogin(stubAuthService{
		loginErr: pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials"),
	}, nil)

	resp := postJSON(t, handler, "/api/v1/auth/login", `{"email":"ann@x.com","password":"wrong1"}`)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthVerifyEmailNumericCode(t *testing.T) {
	handler := AuthVerifyEmail(stubAuthService{verifyResp: &auth.VerifyEmailResponse{
		AccessToken: "access-token",
		User:        testUserDTO(),
	}}, nil)

	// Numeric JSON code must decode like the string form.
	resp := postJSON(t, handler, "/api/v1/auth/verify", `{"email":"ann@x.com","code":482913}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}

	var envelope struct {
		Data struct {
			AccessToken string `json:"access_token"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.AccessToken != "access-token" {
		t.Fatalf("expected token got %q", envelope.Data.AccessToken)
	}
}

func TestAuthForgotPasswordAlwaysOK(t *testing.T) {
	handler := AuthForgotPassword(stubAuthService{forgotResp: &auth.ForgotPasswordResponse{
		Message: "If an account exists for that address, a reset code has been sent.",
	}}, nil)

	resp := postJSON(t, handler, "/api/v1/auth/forgot-password", `{"email":"whoever@x.com"}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestAuthResetPasswordBadCode(t *testing.T) {
	handler := AuthResetPassword(stubAuthService{
		resetErr: pkgerrors.New(pkgerrors.CodeValidation, "invalid or expired code"),
	}, nil)

	resp := postJSON(t, handler, "/api/v1/auth/reset-password", `{"email":"ann@x.com","code":"000000","new_password":"pw1234"}`)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}
