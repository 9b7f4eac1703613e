package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
)

type fakeStaff struct {
	members map[string]*StaffMember
	touched []int64
}

func newFakeStaff(t *testing.T) *fakeStaff {
	t.Helper()
	hash, err := HashPassword("s3cret")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	return &fakeStaff{members: map[string]*StaffMember{
		"ana@tableside.test": {ID: 3, Email: "ana@tableside.test", Name: "Ana", Role: RoleWaiter, PasswordHash: hash},
	}}
}

func (f *fakeStaff) GetStaffMemberByEmail(_ context.Context, email string) (*StaffMember, error) {
	if m, ok := f.members[email]; ok {
		return m, nil
	}
	return nil, ErrStaffNotFound
}

func (f *fakeStaff) GetStaffMemberByID(_ context.Context, id int64) (*StaffMember, error) {
	for _, m := range f.members {
		if m.ID == id {
			return m, nil
		}
	}
	return nil, ErrStaffNotFound
}

func (f *fakeStaff) TouchLastLogin(_ context.Context, id int64) error {
	f.touched = append(f.touched, id)
	return nil
}

func TestLoginIssuesTokensForValidCredentials(t *testing.T) {
	staff := newFakeStaff(t)
	jwtSvc := NewJWTService("test-secret")
	svc := NewAuthService(staff, jwtSvc)

	access, refresh, err := svc.Login(context.Background(), "ana@tableside.test", "s3cret")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	claims, err := jwtSvc.ValidateToken(access)
	if err != nil {
		t.Fatalf("access token invalid: %v", err)
	}
	if claims.StaffID != 3 || claims.Role != RoleWaiter {
		t.Errorf("unexpected claims: %+v", claims)
	}
	if _, err := jwtSvc.ValidateRefreshToken(refresh); err != nil {
		t.Errorf("refresh token invalid: %v", err)
	}
	if len(staff.touched) != 1 || staff.touched[0] != 3 {
		t.Errorf("expected last login to be touched for staff 3, got %v", staff.touched)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc := NewAuthService(newFakeStaff(t), NewJWTService("test-secret"))

	if _, _, err := svc.Login(context.Background(), "ana@tableside.test", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials for wrong password, got %v", err)
	}
	if _, _, err := svc.Login(context.Background(), "nobody@tableside.test", "s3cret"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}
}

func TestRefreshTokenRereadsRole(t *testing.T) {
	staff := newFakeStaff(t)
	jwtSvc := NewJWTService("test-secret")
	svc := NewAuthService(staff, jwtSvc)

	_, refresh, err := svc.Login(context.Background(), "ana@tableside.test", "s3cret")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	staff.members["ana@tableside.test"].Role = RoleManager

	access, err := svc.RefreshToken(context.Background(), refresh)
	if err != nil {
		t.Fatalf("RefreshToken failed: %v", err)
	}
	claims, err := jwtSvc.ValidateToken(access)
	if err != nil {
		t.Fatalf("refreshed token invalid: %v", err)
	}
	if claims.Role != RoleManager {
		t.Errorf("expected refreshed role Manager, got %q", claims.Role)
	}
}

func TestHandleLogin(t *testing.T) {
	svc := NewAuthService(newFakeStaff(t), NewJWTService("test-secret"))
	r := mux.NewRouter()
	NewHandlers(svc).RegisterRoutes(r)

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"missing fields", `{}`, http.StatusBadRequest},
		{"malformed", `{"email":`, http.StatusBadRequest},
		{"wrong password", `{"email":"ana@tableside.test","password":"x"}`, http.StatusUnauthorized},
		{"ok", `{"email":"ana@tableside.test","password":"s3cret"}`, http.StatusOK},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(tc.body))
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d (%s)", tc.status, rec.Code, rec.Body.String())
			}
			if tc.status == http.StatusOK {
				var resp authResponse
				if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
					t.Fatalf("decode response: %v", err)
				}
				if resp.AccessToken == "" || resp.RefreshToken == "" {
					t.Error("expected both tokens in login response")
				}
			}
		})
	}
}
