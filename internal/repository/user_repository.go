package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/couponhq/coupon-management/internal/model"
	"github.com/couponhq/coupon-management/internal/service"
)

// UserPoolInterface defines the database operations needed by UserRepository.
// This allows for easier testing with mocks.
type UserPoolInterface interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// UserRepository provides data access for users using pgx.
type UserRepository struct {
	pool UserPoolInterface
}

// NewUserRepository creates a new UserRepository with the given pool.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// NewUserRepositoryWithPool creates a new UserRepository with a custom pool interface.
// This is primarily used for testing.
func NewUserRepositoryWithPool(pool UserPoolInterface) *UserRepository {
	return &UserRepository{pool: pool}
}

const userColumns = `id, username, email, password_hash, role, created_at`

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	var role string
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &role, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	parsed, err := model.ParseRole(role)
	if err != nil {
		return nil, fmt.Errorf("scan user role: %w", err)
	}
	u.Role = parsed
	return &u, nil
}

// Insert persists a new user and fills in its id and created_at.
// Returns service.ErrUserExists when the username or email is already taken.
func (r *UserRepository) Insert(ctx context.Context, user *model.User) error {
	query := `INSERT INTO users (username, email, password_hash, role)
		VALUES ($1, $2, $3, $4) RETURNING id, created_at`

	err := r.pool.QueryRow(ctx, query,
		user.Username, user.Email, user.PasswordHash, user.Role.String(),
	).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return service.ErrUserExists
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by id.
// Returns nil, nil if the user is not found (service layer handles this).
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Not found - let service handle
		}
		return nil, fmt.Errorf("get user by id %d: %w", id, err)
	}
	return user, nil
}

// GetByUsername retrieves a user by username.
// Returns nil, nil if the user is not found (service layer handles this).
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`

	user, err := scanUser(r.pool.QueryRow(ctx, query, username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user by username %s: %w", username, err)
	}
	return user, nil
}

// List retrieves all users ordered by id.
func (r *UserRepository) List(ctx context.Context) ([]model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user rows: %w", err)
	}
	return users, nil
}

// Update writes the mutable fields (email, password_hash, role) of a user.
// Returns service.ErrUserNotFound when the id is absent and
// service.ErrUserExists when the new email collides with another user.
func (r *UserRepository) Update(ctx context.Context, user *model.User) error {
	query := `UPDATE users SET email = $2, password_hash = $3, role = $4 WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query,
		user.ID, user.Email, user.PasswordHash, user.Role.String())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return service.ErrUserExists
		}
		return fmt.Errorf("update user %d: %w", user.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return service.ErrUserNotFound
	}
	return nil
}

// Delete removes a user. Assignments referencing the user are removed by the
// ON DELETE CASCADE constraint; coupons keep their creator, so a user that
// still owns coupons cannot be deleted.
// Returns service.ErrUserNotFound when the id is absent and
// service.ErrUserHasCoupons when coupons still reference the user.
func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return service.ErrUserHasCoupons
		}
		return fmt.Errorf("delete user %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return service.ErrUserNotFound
	}
	return nil
}
