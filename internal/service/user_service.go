package service

import (
	"context"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/couponhq/coupon-management/internal/model"
)

// UserRepositoryInterface defines the interface for user data access.
type UserRepositoryInterface interface {
	Insert(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	List(ctx context.Context) ([]model.User, error)
	Update(ctx context.Context, user *model.User) error
	Delete(ctx context.Context, id int64) error
}

// UserService provides admin-gated user management.
// Every mutating operation authorizes the acting user before touching state,
// independent of any transport-level checks.
type UserService struct {
	users UserRepositoryInterface
}

// NewUserService creates a new UserService with the given repository.
func NewUserService(users UserRepositoryInterface) *UserService {
	return &UserService{users: users}
}

// Create provisions a new user. Requires admin.
// Returns ErrUserExists when the username or email is already taken.
func (s *UserService) Create(ctx context.Context, actor *model.User, req *model.CreateUserRequest) (*model.User, error) {
	if !actor.Role.AtLeast(model.RoleAdmin) {
		return nil, ErrForbidden
	}
	// Defense-in-depth: check even though handler validates
	if req == nil || req.Username == "" || req.Email == "" || req.Password == "" {
		return nil, ErrInvalidRequest
	}

	role, err := model.ParseRole(req.Role)
	if err != nil {
		return nil, ErrInvalidRequest
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
		Role:         role,
	}
	if err := s.users.Insert(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// List retrieves all users. Requires admin.
func (s *UserService) List(ctx context.Context, actor *model.User) ([]model.User, error) {
	if !actor.Role.AtLeast(model.RoleAdmin) {
		return nil, ErrForbidden
	}
	return s.users.List(ctx)
}

// Get retrieves a user by id. Requires admin.
// Returns ErrUserNotFound on miss.
func (s *UserService) Get(ctx context.Context, actor *model.User, id int64) (*model.User, error) {
	if !actor.Role.AtLeast(model.RoleAdmin) {
		return nil, ErrForbidden
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// Update applies a partial update to a user. Requires admin.
// Only supplied fields change; the username is immutable.
func (s *UserService) Update(ctx context.Context, actor *model.User, id int64, req *model.UpdateUserRequest) (*model.User, error) {
	if !actor.Role.AtLeast(model.RoleAdmin) {
		return nil, ErrForbidden
	}
	if req == nil {
		return nil, ErrInvalidRequest
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	if req.Email != nil {
		user.Email = *req.Email
	}
	if req.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		user.PasswordHash = string(hash)
	}
	if req.Role != nil {
		role, err := model.ParseRole(*req.Role)
		if err != nil {
			return nil, ErrInvalidRequest
		}
		user.Role = role
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Delete removes a user. Requires admin.
// Returns ErrUserNotFound on miss.
func (s *UserService) Delete(ctx context.Context, actor *model.User, id int64) error {
	if !actor.Role.AtLeast(model.RoleAdmin) {
		return ErrForbidden
	}
	return s.users.Delete(ctx, id)
}

// EnsureAdmin creates the bootstrap admin account when it does not exist yet.
// Called once at startup; a no-op when the username is already taken.
func (s *UserService) EnsureAdmin(ctx context.Context, username, email, password string) error {
	existing, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return fmt.Errorf("lookup admin: %w", err)
	}
	if existing != nil {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	admin := &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Role:         model.RoleAdmin,
	}
	return s.users.Insert(ctx, admin)
}
