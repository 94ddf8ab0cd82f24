package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/shelfline/feedengine/internal/model"
)

// CreateUser inserts a new user row. Returns a Conflict AppError if the
// normalized email is already taken.
func (db *DB) CreateUser(ctx context.Context, email, passwordHash string) (model.User, error) {
	u := model.User{
		ID:           model.NewID(),
		Email:        model.NormalizeEmail(email),
		PasswordHash: passwordHash,
	}

	row := db.pool.QueryRow(ctx,
		`INSERT INTO users (id, email, password_hash) VALUES ($1, $2, $3)
		 RETURNING created_at`,
		u.ID, u.Email, u.PasswordHash,
	)
	if err := row.Scan(&u.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			existing, getErr := db.GetUserByEmail(ctx, u.Email)
			if getErr == nil {
				return model.User{}, model.NewConflictError("email already registered", existing.Public())
			}
			return model.User{}, model.NewConflictError("email already registered", nil)
		}
		return model.User{}, fmt.Errorf("storage: insert user: %w", err)
	}
	return u, nil
}

// GetUserByEmail looks up a user by normalized email.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	email = model.NormalizeEmail(email)
	var u model.User
	row := db.pool.QueryRow(ctx,
		`SELECT id, email, password_hash, created_at FROM users WHERE email = $1`, email)
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, ErrNotFound
		}
		return model.User{}, fmt.Errorf("storage: get user by email: %w", err)
	}
	return u, nil
}

// GetUserByID looks up a user by ID.
func (db *DB) GetUserByID(ctx context.Context, id string) (model.User, error) {
	var u model.User
	row := db.pool.QueryRow(ctx,
		`SELECT id, email, password_hash, created_at FROM users WHERE id = $1`, id)
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, ErrNotFound
		}
		return model.User{}, fmt.Errorf("storage: get user by id: %w", err)
	}
	return u, nil
}
