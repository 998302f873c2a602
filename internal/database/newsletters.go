package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/TobiSchelling/newsdesk/internal/domain"
)

// InsertNewsletter creates a newsletter and links its articles in order.
func (db *DB) InsertNewsletter(ctx context.Context, n domain.Newsletter) (int64, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin newsletter insert: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`INSERT INTO newsletters (title, description, author_id, created_at) VALUES (?, ?, ?, ?)`,
		n.Title, n.Description, n.AuthorID, formatTime(n.CreatedAt),
	)
	if err != nil {
		return 0, fmt.Errorf("inserting newsletter: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}

	if err := linkNewsletterArticles(ctx, tx, id, n.ArticleIDs); err != nil {
		return 0, err
	}
	return id, tx.Commit()
}

// UpdateNewsletter replaces the title, description and article list.
func (db *DB) UpdateNewsletter(ctx context.Context, n domain.Newsletter) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin newsletter update: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		"UPDATE newsletters SET title = ?, description = ? WHERE id = ?",
		n.Title, n.Description, n.ID,
	)
	if err != nil {
		return fmt.Errorf("updating newsletter %d: %w", n.ID, err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("newsletter %d: %w", n.ID, domain.ErrNotFound)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM newsletter_articles WHERE newsletter_id = ?", n.ID); err != nil {
		return fmt.Errorf("clearing newsletter articles: %w", err)
	}
	if err := linkNewsletterArticles(ctx, tx, n.ID, n.ArticleIDs); err != nil {
		return err
	}
	return tx.Commit()
}

// NewsletterByID returns a newsletter with its article IDs in order.
func (db *DB) NewsletterByID(ctx context.Context, id int64) (*domain.Newsletter, error) {
	row := db.conn.QueryRowContext(ctx,
		"SELECT id, title, description, author_id, created_at FROM newsletters WHERE id = ?", id,
	)
	n, err := scanNewsletter(row)
	if err != nil {
		return nil, notFound(err, "newsletter", id)
	}
	if n.ArticleIDs, err = db.newsletterArticleIDs(ctx, n.ID); err != nil {
		return nil, err
	}
	return n, nil
}

// ListNewsletters returns every newsletter, newest first.
func (db *DB) ListNewsletters(ctx context.Context) ([]domain.Newsletter, error) {
	rows, err := db.conn.QueryContext(ctx,
		"SELECT id, title, description, author_id, created_at FROM newsletters ORDER BY created_at DESC, id DESC",
	)
	if err != nil {
		return nil, fmt.Errorf("listing newsletters: %w", err)
	}

	var newsletters []domain.Newsletter
	for rows.Next() {
		n, err := scanNewsletter(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		newsletters = append(newsletters, *n)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for i := range newsletters {
		if newsletters[i].ArticleIDs, err = db.newsletterArticleIDs(ctx, newsletters[i].ID); err != nil {
			return nil, err
		}
	}
	return newsletters, nil
}

// DeleteNewsletter removes a newsletter and its article links.
func (db *DB) DeleteNewsletter(ctx context.Context, id int64) error {
	result, err := db.conn.ExecContext(ctx, "DELETE FROM newsletters WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting newsletter %d: %w", id, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("newsletter %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

func linkNewsletterArticles(ctx context.Context, tx *sql.Tx, newsletterID int64, articleIDs []int64) error {
	for i, aid := range articleIDs {
		if _, err := tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO newsletter_articles (newsletter_id, article_id, position) VALUES (?, ?, ?)",
			newsletterID, aid, i,
		); err != nil {
			return fmt.Errorf("linking article %d: %w", aid, err)
		}
	}
	return nil
}

func (db *DB) newsletterArticleIDs(ctx context.Context, newsletterID int64) ([]int64, error) {
	rows, err := db.conn.QueryContext(ctx,
		"SELECT article_id FROM newsletter_articles WHERE newsletter_id = ? ORDER BY position", newsletterID,
	)
	if err != nil {
		return nil, fmt.Errorf("loading newsletter articles: %w", err)
	}
	defer rows.Close()
	return scanIDs(rows)
}

func scanNewsletter(s scanner) (*domain.Newsletter, error) {
	var n domain.Newsletter
	var created string
	if err := s.Scan(&n.ID, &n.Title, &n.Description, &n.AuthorID, &created); err != nil {
		return nil, err
	}
	t, err := parseTime(created)
	if err != nil {
		return nil, err
	}
	n.CreatedAt = t
	return &n, nil
}
