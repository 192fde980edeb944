package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
)

// UserDirectory checks user existence against the users table.
type UserDirectory struct {
	pool *pgxpool.Pool
}

func NewUserDirectory(pool *pgxpool.Pool) *UserDirectory {
	return &UserDirectory{pool: pool}
}

func (d *UserDirectory) UserExists(ctx context.Context, userID string) (bool, error) {
	if userID == "" {
		return false, nil
	}
	var exists bool
	err := d.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id=$1)`, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("lookup user: %w", err)
	}
	return exists, nil
}

// AddUser registers a user id; existing ids are left untouched.
func (d *UserDirectory) AddUser(ctx context.Context, userID, name string) error {
	_, err := d.pool.Exec(ctx, `INSERT INTO users (id, name) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING`, userID, name)
	if err != nil {
		return fmt.Errorf("add user: %w", err)
	}
	return nil
}
