package auth

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/darkden-lab/tableside/internal/httputil"
)

type Handlers struct {
	service *AuthService
}

func NewHandlers(service *AuthService) *Handlers {
	return &Handlers{service: service}
}

// RegisterRoutes registers public auth routes (no auth middleware required).
func (h *Handlers) RegisterRoutes(r *mux.Router) {
	api := r.PathPrefix("/api/auth").Subrouter()
	api.Handle("/login", httputil.ValidateBody[loginRequest]()(http.HandlerFunc(h.handleLogin))).Methods("POST")
	api.Handle("/refresh", httputil.ValidateBody[refreshRequest]()(http.HandlerFunc(h.handleRefresh))).Methods("POST")
}

// RegisterProtectedRoutes registers auth routes that require authentication.
func (h *Handlers) RegisterProtectedRoutes(r *mux.Router) {
	r.HandleFunc("/api/auth/me", h.handleMe).Methods("GET")
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (l *loginRequest) Validate() error {
	var errs httputil.ValidationErrors
	errs.Check(l.Email != "", "email is required")
	errs.Check(l.Password != "", "password is required")
	return errs.Err()
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (r *refreshRequest) Validate() error {
	var errs httputil.ValidationErrors
	errs.Check(r.RefreshToken != "", "refresh_token is required")
	return errs.Err()
}

type authResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

func (h *Handlers) handleLogin(w http.ResponseWriter, r *http.Request) {
	req, _ := httputil.BodyFromContext[loginRequest](r.Context())

	accessToken, refreshToken, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		httputil.WriteError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, authResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	})
}

func (h *Handlers) handleRefresh(w http.ResponseWriter, r *http.Request) {
	req, _ := httputil.BodyFromContext[refreshRequest](r.Context())

	accessToken, err := h.service.RefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		httputil.WriteError(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, authResponse{
		AccessToken: accessToken,
	})
}

func (h *Handlers) handleMe(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	member, err := h.service.GetStaffMember(r.Context(), claims.StaffID)
	if err != nil {
		httputil.WriteError(w, http.StatusNotFound, "staff member not found")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, member)
}
