package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"dompet/internal/core"
)

// CreateUser inserts a user. Emails are stored lower-cased.
func (r *Repository) CreateUser(ctx context.Context, u core.User) (core.User, error) {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	err := r.db.QueryRowContext(ctx,
		r.rebind(`INSERT INTO users (name, email, password_hash) VALUES (?, ?, ?) RETURNING id`),
		u.Name, u.Email, u.PasswordHash,
	).Scan(&u.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return core.User{}, core.ErrEmailTaken
		}
		return core.User{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

func (r *Repository) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	return r.getUser(ctx, `SELECT id, name, email, password_hash FROM users WHERE email = ?`,
		strings.ToLower(strings.TrimSpace(email)))
}

func (r *Repository) GetUser(ctx context.Context, id int64) (core.User, error) {
	return r.getUser(ctx, `SELECT id, name, email, password_hash FROM users WHERE id = ?`, id)
}

func (r *Repository) getUser(ctx context.Context, query string, arg any) (core.User, error) {
	var u core.User
	err := r.db.QueryRowContext(ctx, r.rebind(query), arg).Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, core.ErrNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}
