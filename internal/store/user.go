package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/finity-auth/apiserver/types"
)

// UserRepository handles persistence for users.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = "id, email, username, full_name, hashed_password, role, is_active, is_verified, created_at, updated_at"

func scanUser(row interface{ Scan(...any) error }) (types.User, error) {
	var user types.User
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Username,
		&user.FullName,
		&user.HashedPassword,
		&user.Role,
		&user.IsActive,
		&user.IsVerified,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	return user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int) (types.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (types.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, email))
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (types.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, username))
}

// List returns every user. No ordering is guaranteed; callers must not
// depend on the order of the result.
func (r *UserRepository) List(ctx context.Context) ([]types.User, error) {
	query := `SELECT ` + userColumns + ` FROM users`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []types.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	const query = `
		INSERT INTO users (email, username, full_name, hashed_password, role, is_active, is_verified, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`
	err := r.db.QueryRowContext(
		ctx,
		query,
		user.Email,
		user.Username,
		user.FullName,
		user.HashedPassword,
		user.Role,
		user.IsActive,
		user.IsVerified,
		user.CreatedAt,
		user.UpdatedAt,
	).Scan(&user.ID)
	if err != nil {
		if conflict := conflictFromPq(err); conflict != nil {
			return types.User{}, conflict
		}
		return types.User{}, err
	}
	return user, nil
}

// UpdateProfileParams carries a partial profile update. Only non-nil fields
// are written. ClearFullName sets full_name to NULL regardless of FullName.
type UpdateProfileParams struct {
	Email         *string
	Username      *string
	FullName      *string
	ClearFullName bool
}

// UpdateProfile applies a partial update in a single UPDATE statement so the
// change is all-or-nothing. A unique violation surfaces as a ConflictError.
func (r *UserRepository) UpdateProfile(ctx context.Context, id int, params UpdateProfileParams) (types.User, error) {
	sets := make([]string, 0, 4)
	args := make([]any, 0, 5)

	appendSet := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if params.Email != nil {
		appendSet("email", *params.Email)
	}
	if params.Username != nil {
		appendSet("username", *params.Username)
	}
	if params.ClearFullName {
		sets = append(sets, "full_name = NULL")
	} else if params.FullName != nil {
		appendSet("full_name", *params.FullName)
	}

	if len(sets) == 0 {
		return r.GetByID(ctx, id)
	}

	appendSet("updated_at", time.Now())
	args = append(args, id)

	query := fmt.Sprintf(
		"UPDATE users SET %s WHERE id = $%d RETURNING %s",
		strings.Join(sets, ", "),
		len(args),
		userColumns,
	)

	user, err := scanUser(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if conflict := conflictFromPq(err); conflict != nil {
			return types.User{}, conflict
		}
		return types.User{}, err
	}
	return user, nil
}

func (r *UserRepository) Delete(ctx context.Context, id int) error {
	const query = `DELETE FROM users WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Stats computes all four counts in one statement so they come from a single
// consistent read.
func (r *UserRepository) Stats(ctx context.Context) (types.UserStats, error) {
	const query = `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE is_active),
			COUNT(*) FILTER (WHERE is_verified),
			COUNT(*) FILTER (WHERE role = 'admin')
		FROM users`
	var stats types.UserStats
	err := r.db.QueryRowContext(ctx, query).Scan(
		&stats.TotalUsers,
		&stats.ActiveUsers,
		&stats.VerifiedUsers,
		&stats.AdminUsers,
	)
	if err != nil {
		return types.UserStats{}, err
	}
	return stats, nil
}
