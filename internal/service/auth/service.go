// Package auth registers users and issues the JWTs from which the HTTP
// layer resolves a requester ID. The core services never see credentials,
// only the resolved requesterID parameter.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/movieflex/movieflex/internal/domain"
	"github.com/movieflex/movieflex/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

// UserStore persists user accounts.
type UserStore interface {
	Create(ctx context.Context, name, email, passwordHash string, isAdmin bool) (int64, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Get(ctx context.Context, id int64) (*domain.User, error)
}

type Config struct {
	JWTSecret string
	TokenTTL  time.Duration
	// AdminCode gates self-service admin registration. Empty allows any
	// registrant to request the admin role.
	AdminCode string
}

type Service struct {
	users UserStore
	cfg   Config
}

func New(users UserStore, cfg Config) *Service {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 24 * time.Hour
	}

	return &Service{users: users, cfg: cfg}
}

// Register creates a user account.
//
// Returns:
//   - *domain.User: the created user.
//   - error: auth.ErrEmailTaken if the email is already registered.
//   - error: auth.ErrInvalidAdminCode if wantAdmin is set with a wrong code.
func (s *Service) Register(ctx context.Context, name, email, password string, wantAdmin bool, adminCode string) (*domain.User, error) {
	const op = "service.auth.Register"

	makeAdmin := false
	if wantAdmin {
		if s.cfg.AdminCode != "" && adminCode != s.cfg.AdminCode {
			return nil, fmt.Errorf("%s:%w", op, ErrInvalidAdminCode)
		}
		makeAdmin = true
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	id, err := s.users.Create(ctx, name, email, string(hash), makeAdmin)
	if err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return nil, fmt.Errorf("%s:%w", op, ErrEmailTaken)
		}

		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &domain.User{ID: id, Name: name, Email: email, IsAdmin: makeAdmin}, nil
}

// Login verifies credentials and issues a signed token.
//
// Returns:
//   - string: the signed JWT.
//   - *domain.User: the authenticated user.
//   - error: auth.ErrInvalidCredentials on unknown email or wrong password.
func (s *Service) Login(ctx context.Context, email, password string) (string, *domain.User, error) {
	const op = "service.auth.Login"

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", nil, fmt.Errorf("%s:%w", op, ErrInvalidCredentials)
		}

		return "", nil, fmt.Errorf("%s:%w", op, err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return "", nil, fmt.Errorf("%s:%w", op, ErrInvalidCredentials)
	}

	token, err := s.issueToken(u)
	if err != nil {
		return "", nil, fmt.Errorf("%s:%w", op, err)
	}

	return token, u, nil
}

func (s *Service) issueToken(u *domain.User) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  strconv.FormatInt(u.ID, 10),
		"role": string(u.Role()),
		"iat":  now.Unix(),
		"exp":  now.Add(s.cfg.TokenTTL).Unix(),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(s.cfg.JWTSecret))
}

// VerifyToken parses and validates a token, returning the requester
// identity the HTTP layer threads into every core call.
//
// Returns:
//   - int64: the requester ID.
//   - domain.Role: the requester's role.
//   - error: auth.ErrInvalidToken on any parse or validation failure.
func (s *Service) VerifyToken(tokenStr string) (int64, domain.Role, error) {
	const op = "service.auth.VerifyToken"

	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return 0, "", fmt.Errorf("%s:%w", op, ErrInvalidToken)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, "", fmt.Errorf("%s:%w", op, ErrInvalidToken)
	}

	sub, _ := claims["sub"].(string)
	id, err := strconv.ParseInt(sub, 10, 64)
	if err != nil || id <= 0 {
		return 0, "", fmt.Errorf("%s:%w", op, ErrInvalidToken)
	}

	role, _ := claims["role"].(string)
	if role == "" {
		role = string(domain.RoleUser)
	}

	return id, domain.Role(role), nil
}
