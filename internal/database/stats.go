package database

import (
	"context"
	"fmt"

	"github.com/TobiSchelling/newsdesk/internal/domain"
)

// Stats returns aggregate database statistics.
func (db *DB) Stats(ctx context.Context) (domain.Stats, error) {
	var s domain.Stats

	queries := []struct {
		sql  string
		dest *int
	}{
		{"SELECT COUNT(*) FROM users", &s.Users},
		{"SELECT COUNT(*) FROM users WHERE role = 'reader'", &s.Readers},
		{"SELECT COUNT(*) FROM users WHERE role = 'journalist'", &s.Journalists},
		{"SELECT COUNT(*) FROM users WHERE role = 'editor'", &s.Editors},
		{"SELECT COUNT(*) FROM articles", &s.Articles},
		{"SELECT COUNT(*) FROM articles WHERE state = 'draft'", &s.Drafts},
		{"SELECT COUNT(*) FROM articles WHERE state = 'approved'", &s.Approved},
		{"SELECT COUNT(*) FROM articles WHERE state = 'declined'", &s.Declined},
		{"SELECT COUNT(*) FROM publishers", &s.Publishers},
		{"SELECT COUNT(*) FROM newsletters", &s.Newsletters},
		{"SELECT (SELECT COUNT(*) FROM reader_publishers) + (SELECT COUNT(*) FROM reader_journalists)", &s.Subscriptions},
	}

	for _, q := range queries {
		if err := db.conn.QueryRowContext(ctx, q.sql).Scan(q.dest); err != nil {
			return s, fmt.Errorf("counting: %w", err)
		}
	}
	return s, nil
}
