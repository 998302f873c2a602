package database

import (
	"context"
	"fmt"
	"time"

	"github.com/TobiSchelling/newsdesk/internal/domain"
	"github.com/TobiSchelling/newsdesk/internal/role"
)

func subscriptionTable(kind domain.SubscriptionKind) (table, column string, err error) {
	switch kind {
	case domain.SubscribePublisher:
		return "reader_publishers", "publisher_id", nil
	case domain.SubscribeJournalist:
		return "reader_journalists", "journalist_id", nil
	}
	return "", "", fmt.Errorf("unknown subscription kind %q", kind)
}

// ToggleSubscription removes the (reader, target) pair if present, otherwise
// inserts it, in one transaction. It returns true when the pair now exists.
func (db *DB) ToggleSubscription(ctx context.Context, readerID int64, kind domain.SubscriptionKind, targetID int64) (bool, error) {
	table, column, err := subscriptionTable(kind)
	if err != nil {
		return false, err
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin subscription toggle: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		"DELETE FROM "+table+" WHERE reader_id = ? AND "+column+" = ?", readerID, targetID,
	)
	if err != nil {
		return false, fmt.Errorf("removing subscription: %w", err)
	}
	removed, _ := result.RowsAffected()

	if removed == 0 {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO "+table+" (reader_id, "+column+", created_at) VALUES (?, ?, ?)",
			readerID, targetID, formatTime(time.Now()),
		); err != nil {
			return false, fmt.Errorf("adding subscription: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit subscription toggle: %w", err)
	}
	return removed == 0, nil
}

// SubscriptionsOf returns both subscription sets of a reader.
func (db *DB) SubscriptionsOf(ctx context.Context, readerID int64) (domain.Subscriptions, error) {
	var s domain.Subscriptions

	rows, err := db.conn.QueryContext(ctx,
		"SELECT publisher_id FROM reader_publishers WHERE reader_id = ? ORDER BY publisher_id", readerID,
	)
	if err != nil {
		return s, fmt.Errorf("loading publisher subscriptions: %w", err)
	}
	s.PublisherIDs, err = scanIDs(rows)
	rows.Close()
	if err != nil {
		return s, err
	}

	rows, err = db.conn.QueryContext(ctx,
		"SELECT journalist_id FROM reader_journalists WHERE reader_id = ? ORDER BY journalist_id", readerID,
	)
	if err != nil {
		return s, fmt.Errorf("loading journalist subscriptions: %w", err)
	}
	s.JournalistIDs, err = scanIDs(rows)
	rows.Close()
	if err != nil {
		return s, err
	}
	return s, nil
}

// SubscriberEmails returns the distinct non-empty e-mail addresses of readers
// following the publisher (when set) or the author.
func (db *DB) SubscriberEmails(ctx context.Context, publisherID *int64, authorID int64) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx, `
SELECT DISTINCT u.email FROM users u
WHERE u.role = ? AND u.email != '' AND (
    u.id IN (SELECT reader_id FROM reader_journalists WHERE journalist_id = ?)
    OR u.id IN (SELECT reader_id FROM reader_publishers WHERE publisher_id = ?)
)
ORDER BY u.email`,
		string(role.Reader), authorID, nullInt(publisherID),
	)
	if err != nil {
		return nil, fmt.Errorf("loading subscriber emails: %w", err)
	}
	defer rows.Close()

	emails := []string{}
	for rows.Next() {
		var e string
		if err := rows.Scan(&e); err != nil {
			return nil, err
		}
		emails = append(emails, e)
	}
	return emails, rows.Err()
}
