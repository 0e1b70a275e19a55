package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sbilab/dataviz/internal/domain"
	"github.com/sbilab/dataviz/internal/store"
	"github.com/sbilab/dataviz/pkg/cryptox"
	"github.com/sbilab/dataviz/pkg/idx"
)

var (
	// ErrDuplicateUser reports a registration against an email that is
	// already taken.
	ErrDuplicateUser = errors.New("user with this email already exists")

	// ErrInvalidCredentials is the single outward signal for both an unknown
	// email and a wrong password.
	ErrInvalidCredentials = errors.New("incorrect email or password")
)

// UserService is the user directory: account creation, lookup, password
// authentication and partial profile updates.
type UserService struct {
	Store store.Store
}

// Create registers a new user with a hashed password.
func (s *UserService) Create(ctx context.Context, email, username, fullName, password string) (domain.User, error) {
	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	user := domain.User{
		ID:           idx.New(),
		Email:        email,
		Username:     username,
		FullName:     fullName,
		PasswordHash: hash,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.Store.Users().CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.User{}, ErrDuplicateUser
		}
		return domain.User{}, fmt.Errorf("create user: %w", err)
	}

	return user, nil
}

// GetByEmail fetches a user by its identity key.
func (s *UserService) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrNotFound
		}
		return domain.User{}, fmt.Errorf("get user by email: %w", err)
	}
	return user, nil
}

// GetByID fetches a user by id.
func (s *UserService) GetByID(ctx context.Context, id idx.ID) (domain.User, error) {
	user, err := s.Store.Users().GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrNotFound
		}
		return domain.User{}, fmt.Errorf("get user by id: %w", err)
	}
	return user, nil
}

// Authenticate verifies an email/password pair. Unknown email and wrong
// password are indistinguishable to the caller.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (domain.User, error) {
	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrInvalidCredentials
		}
		return domain.User{}, fmt.Errorf("authenticate: %w", err)
	}

	if err := cryptox.VerifyPassword(password, user.PasswordHash); err != nil {
		return domain.User{}, ErrInvalidCredentials
	}

	return user, nil
}

// Update applies the non-nil fields of upd and returns the updated user.
// Unspecified fields are left untouched.
func (s *UserService) Update(ctx context.Context, id idx.ID, upd domain.UserUpdate) (domain.User, error) {
	if err := s.Store.Users().UpdateUser(ctx, id, upd); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return domain.User{}, ErrNotFound
		case errors.Is(err, store.ErrAlreadyExists):
			return domain.User{}, ErrDuplicateUser
		default:
			return domain.User{}, fmt.Errorf("update user: %w", err)
		}
	}

	return s.GetByID(ctx, id)
}
