package database

import (
	"context"
	"fmt"

	"github.com/TobiSchelling/newsdesk/internal/domain"
	"github.com/TobiSchelling/newsdesk/internal/role"
)

const userColumns = "id, username, email, bio, role, created_at"

// InsertUser registers a principal and returns its ID.
func (db *DB) InsertUser(ctx context.Context, u domain.Principal) (int64, error) {
	result, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (username, email, bio, role, created_at) VALUES (?, ?, ?, ?, ?)`,
		u.Username, u.Email, u.Bio, string(u.Role), formatTime(u.CreatedAt),
	)
	if isUniqueViolation(err) {
		return 0, domain.Invalid("username", "%q is already taken", u.Username)
	}
	if err != nil {
		return 0, fmt.Errorf("inserting user: %w", err)
	}
	return result.LastInsertId()
}

// UserByID returns a single user.
func (db *DB) UserByID(ctx context.Context, id int64) (*domain.Principal, error) {
	row := db.conn.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id)
	u, err := scanUser(row)
	if err != nil {
		return nil, notFound(err, "user", id)
	}
	return u, nil
}

// UserByUsername returns a single user by login name.
func (db *DB) UserByUsername(ctx context.Context, username string) (*domain.Principal, error) {
	row := db.conn.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE username = ?", username)
	u, err := scanUser(row)
	if err != nil {
		return nil, notFound(err, "user", username)
	}
	return u, nil
}

// ListUsers returns every user ordered by username.
func (db *DB) ListUsers(ctx context.Context) ([]domain.Principal, error) {
	rows, err := db.conn.QueryContext(ctx, "SELECT "+userColumns+" FROM users ORDER BY username")
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var users []domain.Principal
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// ChangeRole sets a user's role and, in the same transaction, removes every
// relation the new role cannot hold.
func (db *DB) ChangeRole(ctx context.Context, userID int64, newRole role.Role) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin role change: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, "UPDATE users SET role = ? WHERE id = ?", string(newRole), userID)
	if err != nil {
		return fmt.Errorf("updating role: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("user %d: %w", userID, domain.ErrNotFound)
	}

	var purges []string
	if newRole != role.Reader {
		purges = append(purges,
			"DELETE FROM reader_publishers WHERE reader_id = ?",
			"DELETE FROM reader_journalists WHERE reader_id = ?",
		)
	}
	if newRole != role.Journalist {
		purges = append(purges,
			"DELETE FROM reader_journalists WHERE journalist_id = ?",
			"DELETE FROM publisher_journalists WHERE user_id = ?",
		)
	}
	if newRole != role.Editor {
		purges = append(purges, "DELETE FROM publisher_editors WHERE user_id = ?")
	}
	for _, q := range purges {
		if _, err := tx.ExecContext(ctx, q, userID); err != nil {
			return fmt.Errorf("purging role data: %w", err)
		}
	}

	return tx.Commit()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(s scanner) (*domain.Principal, error) {
	var u domain.Principal
	var r, created string
	if err := s.Scan(&u.ID, &u.Username, &u.Email, &u.Bio, &r, &created); err != nil {
		return nil, err
	}
	u.Role = role.Role(r)
	t, err := parseTime(created)
	if err != nil {
		return nil, err
	}
	u.CreatedAt = t
	return &u, nil
}
