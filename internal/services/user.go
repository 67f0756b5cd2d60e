package services

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/finity-auth/apiserver/internal/events"
	"github.com/finity-auth/apiserver/internal/store"
	"github.com/finity-auth/apiserver/types"
)

// ErrInvalidCredentials is returned when an email/password pair does not
// match a password-based account.
var ErrInvalidCredentials = errors.New("invalid credentials")

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id int) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	GetByUsername(ctx context.Context, username string) (types.User, error)
	List(ctx context.Context) ([]types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	UpdateProfile(ctx context.Context, id int, params store.UpdateProfileParams) (types.User, error)
	Delete(ctx context.Context, id int) error
	Stats(ctx context.Context) (types.UserStats, error)
}

// UserService encapsulates user use-cases.
type UserService struct {
	repo   UserRepository
	events *events.Publisher
}

// NewUserService constructs a UserService. events may be nil when no broker
// is configured.
func NewUserService(repo UserRepository, events *events.Publisher) *UserService {
	return &UserService{repo: repo, events: events}
}

func (s *UserService) GetByID(ctx context.Context, id int) (types.User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *UserService) GetByEmail(ctx context.Context, email string) (types.User, error) {
	return s.repo.GetByEmail(ctx, email)
}

// RegisterParams carries a new password-based account.
type RegisterParams struct {
	Email    string
	Username *string
	FullName *string
	Password string
}

// Register creates a password-based account with the default role. A taken
// email or username surfaces as a store.ConflictError from the unique
// constraints.
func (s *UserService) Register(ctx context.Context, params RegisterParams) (types.User, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(params.Password), bcrypt.DefaultCost)
	if err != nil {
		return types.User{}, err
	}
	hash := string(hashed)

	user, err := s.repo.Create(ctx, types.User{
		Email:          params.Email,
		Username:       params.Username,
		FullName:       params.FullName,
		HashedPassword: &hash,
		Role:           types.RoleUser,
		IsActive:       true,
		IsVerified:     false,
	})
	if err != nil {
		return types.User{}, err
	}

	s.events.UserRegistered(ctx, user)
	return user, nil
}

// Authenticate verifies an email/password pair. OAuth-only accounts have no
// password hash and always fail with ErrInvalidCredentials.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (types.User, error) {
	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, ErrInvalidCredentials
		}
		return types.User{}, err
	}

	if user.HashedPassword == nil {
		return types.User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*user.HashedPassword), []byte(password)); err != nil {
		return types.User{}, ErrInvalidCredentials
	}
	return user, nil
}

// ProfileUpdateParams carries a partial self-service profile update.
// Nil fields are left untouched. Empty email or username values are treated
// as omitted; an empty full name clears the field.
type ProfileUpdateParams struct {
	Email    *string
	Username *string
	FullName *string
}

// UpdateProfile applies a partial update to the user's own record. Both
// uniqueness checks run before anything is written, and the write itself is
// a single statement, so a conflict on any field leaves every field
// untouched. Values equal to the current ones skip both check and write.
func (s *UserService) UpdateProfile(ctx context.Context, current types.User, params ProfileUpdateParams) (types.User, error) {
	var update store.UpdateProfileParams

	if email := params.Email; email != nil && *email != "" && *email != current.Email {
		taken, err := s.fieldTaken(ctx, func() (types.User, error) {
			return s.repo.GetByEmail(ctx, *email)
		})
		if err != nil {
			return types.User{}, err
		}
		if taken {
			return types.User{}, &store.ConflictError{Field: "email"}
		}
		update.Email = email
	}

	if username := params.Username; username != nil && *username != "" &&
		(current.Username == nil || *username != *current.Username) {
		taken, err := s.fieldTaken(ctx, func() (types.User, error) {
			return s.repo.GetByUsername(ctx, *username)
		})
		if err != nil {
			return types.User{}, err
		}
		if taken {
			return types.User{}, &store.ConflictError{Field: "username"}
		}
		update.Username = username
	}

	if params.FullName != nil {
		if *params.FullName == "" {
			update.ClearFullName = true
		} else {
			update.FullName = params.FullName
		}
	}

	user, err := s.repo.UpdateProfile(ctx, current.ID, update)
	if err != nil {
		return types.User{}, err
	}

	s.events.UserUpdated(ctx, user)
	return user, nil
}

// DeleteAccount removes the user's own record unconditionally.
func (s *UserService) DeleteAccount(ctx context.Context, user types.User) error {
	if err := s.repo.Delete(ctx, user.ID); err != nil {
		return err
	}
	s.events.UserDeleted(ctx, user)
	return nil
}

// List returns every user. Order is unspecified.
func (s *UserService) List(ctx context.Context) ([]types.User, error) {
	return s.repo.List(ctx)
}

// Stats returns aggregate user counts from a single read.
func (s *UserService) Stats(ctx context.Context) (types.UserStats, error) {
	return s.repo.Stats(ctx)
}

func (s *UserService) fieldTaken(ctx context.Context, lookup func() (types.User, error)) (bool, error) {
	_, err := lookup()
	if err == nil {
		return true, nil
	}
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	return false, err
}
