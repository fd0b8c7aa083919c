package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret"

func newTestService(t *testing.T) *Service {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter22"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	return NewService("operator", string(hash), testSecret)
}

func TestLogin(t *testing.T) {
	s := newTestService(t)

	tests := []struct {
		name     string
		operator string
		password string
		wantErr  error
	}{
		{"ok", "operator", "hunter22", nil},
		{"wrong password", "operator", "hunter2", ErrInvalidCredentials},
		{"wrong operator", "admin", "hunter22", ErrInvalidCredentials},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := s.Login(tt.operator, tt.password)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			claims, err := s.ValidateToken(res.Token)
			if err != nil {
				t.Fatalf("ValidateToken: %v", err)
			}
			if claims.Operator() != "operator" || claims.ID == "" || !claims.ExpiresAt.Time.Equal(res.ExpiresAt.Truncate(time.Second)) {
				t.Errorf("claims = %+v, result expires %v", claims, res.ExpiresAt)
			}
		})
	}

	disabled := NewService("operator", "", testSecret)
	if _, err := disabled.Login("operator", "anything"); !errors.Is(err, ErrLoginDisabled) {
		t.Errorf("err = %v", err)
	}
}

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("correct horse")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewService("op", hash, testSecret).Login("op", "correct horse"); err != nil {
		t.Errorf("login with generated hash: %v", err)
	}
}

func TestValidateToken(t *testing.T) {
	s := newTestService(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	valid, err := s.issueToken("operator", now.Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	expired, _ := s.issueToken("operator", now.Add(-time.Minute))
	noSubject, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": now.Add(time.Hour).Unix()}).SignedString([]byte(testSecret))
	otherKey, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "operator"}).SignedString([]byte("other"))
	unsigned, _ := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "operator"}).SignedString(jwt.UnsafeAllowNoneSignatureType)

	tests := []struct {
		name  string
		token string
		ok    bool
	}{
		{"valid", valid, true},
		{"expired", expired, false},
		{"no subject", noSubject, false},
		{"wrong key", otherKey, false},
		{"alg none", unsigned, false},
		{"garbage", "not.a.token", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.ValidateToken(tt.token)
			if (err == nil) != tt.ok {
				t.Errorf("err = %v", err)
			}
			if err != nil && !errors.Is(err, ErrInvalidToken) {
				t.Errorf("err = %v, want ErrInvalidToken", err)
			}
		})
	}
}

func TestMiddleware(t *testing.T) {
	s := newTestService(t)
	res, err := s.Login("operator", "hunter22")
	if err != nil {
		t.Fatal(err)
	}
	h := s.AuthMiddleware(http.HandlerFunc(NewHandler(s).Me))

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"bearer", "Bearer " + res.Token, http.StatusOK},
		{"lowercase scheme", "bearer " + res.Token, http.StatusOK},
		{"empty token", "Bearer ", http.StatusUnauthorized},
		{"missing", "", http.StatusUnauthorized},
		{"basic", "Basic abc", http.StatusUnauthorized},
		{"bad token", "Bearer abc", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			if tt.status != http.StatusOK {
				return
			}
			var me meResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &me); err != nil {
				t.Fatal(err)
			}
			if me.Operator != "operator" || me.TokenID == "" || me.ExpiresAt.IsZero() {
				t.Errorf("me = %+v", me)
			}
		})
	}
}

func TestLoginHandler(t *testing.T) {
	h := NewHandler(newTestService(t))

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"ok", `{"operator":"operator","password":"hunter22"}`, http.StatusOK},
		{"wrong", `{"operator":"operator","password":"nope"}`, http.StatusUnauthorized},
		{"missing fields", `{"operator":"operator"}`, http.StatusBadRequest},
		{"bad json", `{`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			h.Login(rec, req)
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d: %s", rec.Code, tt.status, rec.Body.String())
			}
		})
	}
}

func TestClaimsContext(t *testing.T) {
	if _, ok := ClaimsFromContext(context.Background()); ok {
		t.Error("claims in an empty context")
	}
	if op := OperatorFromContext(context.Background()); op != "" {
		t.Errorf("operator = %q", op)
	}

	c := &Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "operator", ID: "t1"}}
	ctx := WithClaims(context.Background(), c)
	got, ok := ClaimsFromContext(ctx)
	if !ok || got != c {
		t.Errorf("ClaimsFromContext = %v, %v", got, ok)
	}
	if op := OperatorFromContext(ctx); op != "operator" {
		t.Errorf("operator = %q", op)
	}

	rec := httptest.NewRecorder()
	NewHandler(newTestService(t)).Me(rec, httptest.NewRequest(http.MethodGet, "/api/me", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Me without claims = %d", rec.Code)
	}
}
