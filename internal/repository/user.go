package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/igrejaonline/portal/internal/db"
	"github.com/igrejaonline/portal/internal/model"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrDuplicateUsername = errors.New("username already exists")
	ErrDuplicateEmail    = errors.New("email already exists")
)

// UserRepository is the user directory. Username and email uniqueness is
// enforced by the table, so Create is the final word on duplicates.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	ByID(ctx context.Context, id string) (*model.User, error)
	ByUsername(ctx context.Context, username string) (*model.User, error)
	ByEmail(ctx context.Context, email string) (*model.User, error)
	UpdateProfile(ctx context.Context, id, displayName string, avatar *string) error
}

type userRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	query := `INSERT INTO users (id, username, password_digest, display_name, email, avatar, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.ExecContext(ctx, query,
		user.ID,
		user.Username,
		user.PasswordDigest,
		user.DisplayName,
		user.Email,
		user.Avatar,
		user.CreatedAt,
	)
	if err != nil {
		if column, ok := db.UniqueViolation(err); ok {
			switch column {
			case "email":
				return ErrDuplicateEmail
			case "username":
				return ErrDuplicateUsername
			}
		}
		return storageErr("users.create", err)
	}

	return nil
}

func (r *userRepository) ByID(ctx context.Context, id string) (*model.User, error) {
	return r.one(ctx, "users.by_id", `SELECT * FROM users WHERE id = $1`, id)
}

func (r *userRepository) ByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.one(ctx, "users.by_username", `SELECT * FROM users WHERE username = $1`, username)
}

func (r *userRepository) ByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.one(ctx, "users.by_email", `SELECT * FROM users WHERE email = $1`, email)
}

func (r *userRepository) one(ctx context.Context, op, query string, arg any) (*model.User, error) {
	user := &model.User{}

	err := r.db.GetContext(ctx, user, query, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, storageErr(op, err)
	}

	return user, nil
}

func (r *userRepository) UpdateProfile(ctx context.Context, id, displayName string, avatar *string) error {
	query := `UPDATE users SET display_name = $1, avatar = $2 WHERE id = $3`

	result, err := r.db.ExecContext(ctx, query, displayName, avatar, id)
	if err != nil {
		return storageErr("users.update_profile", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return storageErr("users.update_profile", err)
	}

	if rows == 0 {
		return ErrUserNotFound
	}

	return nil
}
