package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/TobiSchelling/newsdesk/internal/domain"
)

// MemberKind selects a publisher membership table.
type MemberKind string

const (
	MemberEditor     MemberKind = "editor"
	MemberJournalist MemberKind = "journalist"
)

func (k MemberKind) table() (string, error) {
	switch k {
	case MemberEditor:
		return "publisher_editors", nil
	case MemberJournalist:
		return "publisher_journalists", nil
	}
	return "", fmt.Errorf("unknown member kind %q", k)
}

// InsertPublisher creates a publisher together with its initial members.
func (db *DB) InsertPublisher(ctx context.Context, p domain.Publisher) (int64, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin publisher insert: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`INSERT INTO publishers (title, description, created_at) VALUES (?, ?, ?)`,
		p.Title, p.Description, formatTime(p.CreatedAt),
	)
	if err != nil {
		return 0, fmt.Errorf("inserting publisher: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}

	members := []struct {
		table string
		ids   []int64
	}{
		{"publisher_editors", p.EditorIDs},
		{"publisher_journalists", p.JournalistIDs},
	}
	for _, m := range members {
		for _, uid := range m.ids {
			if _, err := tx.ExecContext(ctx,
				"INSERT OR IGNORE INTO "+m.table+" (publisher_id, user_id) VALUES (?, ?)", id, uid,
			); err != nil {
				return 0, fmt.Errorf("adding publisher member %d: %w", uid, err)
			}
		}
	}

	return id, tx.Commit()
}

// PublisherByID returns a publisher with its member sets.
func (db *DB) PublisherByID(ctx context.Context, id int64) (*domain.Publisher, error) {
	row := db.conn.QueryRowContext(ctx,
		"SELECT id, title, description, created_at FROM publishers WHERE id = ?", id,
	)
	p, err := scanPublisher(row)
	if err != nil {
		return nil, notFound(err, "publisher", id)
	}
	if err := db.loadMembers(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// ListPublishers returns every publisher ordered by title.
func (db *DB) ListPublishers(ctx context.Context) ([]domain.Publisher, error) {
	rows, err := db.conn.QueryContext(ctx,
		"SELECT id, title, description, created_at FROM publishers ORDER BY title, id",
	)
	if err != nil {
		return nil, fmt.Errorf("listing publishers: %w", err)
	}

	var publishers []domain.Publisher
	for rows.Next() {
		p, err := scanPublisher(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		publishers = append(publishers, *p)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for i := range publishers {
		if err := db.loadMembers(ctx, &publishers[i]); err != nil {
			return nil, err
		}
	}
	return publishers, nil
}

// DeletePublisher removes a publisher. Its articles become independent and
// its subscriptions and memberships are dropped by the foreign keys.
func (db *DB) DeletePublisher(ctx context.Context, id int64) error {
	result, err := db.conn.ExecContext(ctx, "DELETE FROM publishers WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting publisher %d: %w", id, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("publisher %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

// AddPublisherMember adds a user to one of the publisher's member sets.
// Adding an existing member is a no-op.
func (db *DB) AddPublisherMember(ctx context.Context, publisherID, userID int64, kind MemberKind) error {
	table, err := kind.table()
	if err != nil {
		return err
	}
	if _, err := db.conn.ExecContext(ctx,
		"INSERT OR IGNORE INTO "+table+" (publisher_id, user_id) VALUES (?, ?)", publisherID, userID,
	); err != nil {
		return fmt.Errorf("adding %s %d to publisher %d: %w", kind, userID, publisherID, err)
	}
	return nil
}

func (db *DB) loadMembers(ctx context.Context, p *domain.Publisher) error {
	var err error
	if p.EditorIDs, err = db.memberIDs(ctx, "publisher_editors", p.ID); err != nil {
		return err
	}
	if p.JournalistIDs, err = db.memberIDs(ctx, "publisher_journalists", p.ID); err != nil {
		return err
	}
	return nil
}

func (db *DB) memberIDs(ctx context.Context, table string, publisherID int64) ([]int64, error) {
	rows, err := db.conn.QueryContext(ctx,
		"SELECT user_id FROM "+table+" WHERE publisher_id = ? ORDER BY user_id", publisherID,
	)
	if err != nil {
		return nil, fmt.Errorf("loading publisher members: %w", err)
	}
	defer rows.Close()
	return scanIDs(rows)
}

func scanPublisher(s scanner) (*domain.Publisher, error) {
	var p domain.Publisher
	var created string
	if err := s.Scan(&p.ID, &p.Title, &p.Description, &created); err != nil {
		return nil, err
	}
	t, err := parseTime(created)
	if err != nil {
		return nil, err
	}
	p.CreatedAt = t
	return &p, nil
}

func scanIDs(rows *sql.Rows) ([]int64, error) {
	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// AddPublisherEditor adds userID to the publisher's editor set.
func (db *DB) AddPublisherEditor(ctx context.Context, publisherID, userID int64) error {
	return db.AddPublisherMember(ctx, publisherID, userID, MemberEditor)
}

// AddPublisherJournalist adds userID to the publisher's journalist set.
func (db *DB) AddPublisherJournalist(ctx context.Context, publisherID, userID int64) error {
	return db.AddPublisherMember(ctx, publisherID, userID, MemberJournalist)
}
