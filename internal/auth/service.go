package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/vovakirdan/dsolution-crm/internal/metrics"
	"github.com/vovakirdan/dsolution-crm/internal/store"
)

var (
	// ErrInvalidCredentials is returned when email/password don't match.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserExists is returned when trying to register with an existing email.
	ErrUserExists = errors.New("user already exists")
	// ErrInvalidEmail is returned when the email is missing or malformed.
	ErrInvalidEmail = errors.New("invalid email")
	// ErrInvalidPassword is returned when password doesn't meet constraints.
	ErrInvalidPassword = errors.New("invalid password")
)

var validate = validator.New()

type credentials struct {
	Email    string `validate:"required,email,max=254"`
	Password string `validate:"required,min=6,max=72"`
}

// Result is returned by successful register and login calls.
type Result struct {
	Token string
	User  *store.User
}

// Service provides authentication operations.
type Service struct {
	store       store.UserStore
	jwtConfig   *JWTConfig
	staffEmails map[string]struct{}
}

// NewService creates a new authentication service. Accounts registered with
// one of staffEmails get the staff role.
func NewService(userStore store.UserStore, jwtConfig *JWTConfig, staffEmails []string) *Service {
	staff := make(map[string]struct{}, len(staffEmails))
	for _, e := range staffEmails {
		staff[normalizeEmail(e)] = struct{}{}
	}
	return &Service{
		store:       userStore,
		jwtConfig:   jwtConfig,
		staffEmails: staff,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a new user with hashed password and returns a JWT token.
func (s *Service) Register(ctx context.Context, email, password string) (*Result, error) {
	email = normalizeEmail(email)
	if err := validateCredentials(email, password); err != nil {
		return nil, err
	}

	if existing, err := s.store.GetUserByEmail(ctx, email); err == nil && existing != nil {
		return nil, ErrUserExists
	} else if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	hashedPassword, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	role := store.RoleCustomer
	if _, ok := s.staffEmails[email]; ok {
		role = store.RoleStaff
	}

	user, err := s.store.CreateUser(ctx, email, hashedPassword, role)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	metrics.UsersRegistered.WithLabelValues(string(role)).Inc()

	return s.issue(user)
}

// Login validates credentials and returns a JWT token.
func (s *Service) Login(ctx context.Context, email, password string) (*Result, error) {
	user, err := s.store.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if errPwd := ComparePassword(user.PasswordHash, password); errPwd != nil {
		return nil, ErrInvalidCredentials
	}

	return s.issue(user)
}

// ValidateToken validates a JWT token and returns the claims.
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	return ValidateToken(s.jwtConfig, tokenString)
}

func (s *Service) issue(user *store.User) (*Result, error) {
	token, err := GenerateToken(s.jwtConfig, user)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	return &Result{Token: token, User: user}, nil
}

func validateCredentials(email, password string) error {
	err := validate.Struct(credentials{Email: email, Password: password})
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 && fieldErrs[0].Field() == "Email" {
		return ErrInvalidEmail
	}
	return ErrInvalidPassword
}
