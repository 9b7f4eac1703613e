package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrStaffNotFound      = errors.New("staff member not found")
)

type StaffMember struct {
	ID           int64      `json:"id"`
	Email        string     `json:"email"`
	Name         string     `json:"name"`
	Role         Role       `json:"role"`
	PasswordHash string     `json:"-"`
	CreatedAt    time.Time  `json:"created_at"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
}

// StaffRepository loads staff members for login and token refresh.
type StaffRepository interface {
	GetStaffMemberByEmail(ctx context.Context, email string) (*StaffMember, error)
	GetStaffMemberByID(ctx context.Context, id int64) (*StaffMember, error)
	TouchLastLogin(ctx context.Context, id int64) error
}

// StaffStore is the PostgreSQL StaffRepository.
type StaffStore struct {
	pool *pgxpool.Pool
}

func NewStaffStore(pool *pgxpool.Pool) *StaffStore {
	return &StaffStore{pool: pool}
}

const staffColumns = `id, email, name, role, password_hash, created_at, last_login`

func (s *StaffStore) GetStaffMemberByEmail(ctx context.Context, email string) (*StaffMember, error) {
	return s.scanOne(ctx, `SELECT `+staffColumns+` FROM staff_members WHERE email = $1`, email)
}

func (s *StaffStore) GetStaffMemberByID(ctx context.Context, id int64) (*StaffMember, error) {
	return s.scanOne(ctx, `SELECT `+staffColumns+` FROM staff_members WHERE id = $1`, id)
}

func (s *StaffStore) TouchLastLogin(ctx context.Context, id int64) error {
	_, err := s.pool.Exec(ctx, `UPDATE staff_members SET last_login = NOW() WHERE id = $1`, id)
	return err
}

func (s *StaffStore) scanOne(ctx context.Context, query string, arg any) (*StaffMember, error) {
	var m StaffMember
	var role string
	err := s.pool.QueryRow(ctx, query, arg).Scan(&m.ID, &m.Email, &m.Name, &role, &m.PasswordHash, &m.CreatedAt, &m.LastLogin)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrStaffNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query staff member: %w", err)
	}
	if m.Role, err = ParseRole(role); err != nil {
		return nil, err
	}
	return &m, nil
}

type AuthService struct {
	staff StaffRepository
	jwt   *JWTService
}

func NewAuthService(staff StaffRepository, jwtService *JWTService) *AuthService {
	return &AuthService{
		staff: staff,
		jwt:   jwtService,
	}
}

func (s *AuthService) Login(ctx context.Context, email, password string) (string, string, error) {
	member, err := s.staff.GetStaffMemberByEmail(ctx, email)
	if err != nil {
		return "", "", ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(member.PasswordHash), []byte(password)); err != nil {
		return "", "", ErrInvalidCredentials
	}

	if err := s.staff.TouchLastLogin(ctx, member.ID); err != nil {
		return "", "", fmt.Errorf("failed to update last login: %w", err)
	}

	accessToken, err := s.jwt.GenerateToken(member.ID, member.Email, member.Role)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err := s.jwt.GenerateRefreshToken(member.ID, member.Role)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return accessToken, refreshToken, nil
}

// RefreshToken issues a new access token. The role is re-read from the store
// so that demotions take effect at the next refresh.
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.jwt.ValidateRefreshToken(refreshToken)
	if err != nil {
		return "", fmt.Errorf("invalid refresh token: %w", err)
	}

	member, err := s.staff.GetStaffMemberByID(ctx, claims.StaffID)
	if err != nil {
		return "", ErrStaffNotFound
	}

	accessToken, err := s.jwt.GenerateToken(member.ID, member.Email, member.Role)
	if err != nil {
		return "", fmt.Errorf("failed to generate access token: %w", err)
	}

	return accessToken, nil
}

func (s *AuthService) GetStaffMember(ctx context.Context, id int64) (*StaffMember, error) {
	return s.staff.GetStaffMemberByID(ctx, id)
}

// HashPassword hashes a plain-text password for storage in staff_members.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}
