package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/TobiSchelling/newsdesk/internal/domain"
)

var articleColumns = []string{
	"id", "title", "body", "image_url", "publisher_id", "author_id", "source_url",
	"state", "approved_by", "declined_by", "declined_reason", "declined_at",
	"created_at", "updated_at",
}

// InsertArticle stores a new article and returns its ID.
func (db *DB) InsertArticle(ctx context.Context, a domain.Article) (int64, error) {
	result, err := db.conn.ExecContext(ctx,
		`INSERT INTO articles (title, body, image_url, publisher_id, author_id, source_url,
			state, approved_by, declined_by, declined_reason, declined_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.Title, a.Body, a.ImageURL, nullInt(a.PublisherID), a.AuthorID, nullString(a.SourceURL),
		string(a.State), nullInt(a.ApprovedBy), nullInt(a.DeclinedBy), a.DeclinedReason, nullTime(a.DeclinedAt),
		formatTime(a.CreatedAt), formatTime(a.UpdatedAt),
	)
	if isUniqueViolation(err) {
		return 0, domain.Invalid("source_url", "already imported")
	}
	if err != nil {
		return 0, fmt.Errorf("inserting article: %w", err)
	}
	return result.LastInsertId()
}

// ArticleByID returns a single article.
func (db *DB) ArticleByID(ctx context.Context, id int64) (*domain.Article, error) {
	query, args, err := sq.Select(articleColumns...).From("articles").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("building article query: %w", err)
	}
	a, err := scanArticle(db.conn.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, notFound(err, "article", id)
	}
	return a, nil
}

// ArticleBySourceURL returns the article imported from url.
func (db *DB) ArticleBySourceURL(ctx context.Context, url string) (*domain.Article, error) {
	query, args, err := sq.Select(articleColumns...).From("articles").Where(sq.Eq{"source_url": url}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("building article query: %w", err)
	}
	a, err := scanArticle(db.conn.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, notFound(err, "article with source", url)
	}
	return a, nil
}

// ListArticles returns the articles matching q, newest first.
func (db *DB) ListArticles(ctx context.Context, q domain.ArticleQuery) ([]domain.Article, error) {
	qb := sq.Select(articleColumns...).From("articles").OrderBy("created_at DESC", "id DESC")

	if len(q.States) > 0 {
		states := make([]string, len(q.States))
		for i, s := range q.States {
			states[i] = string(s)
		}
		if q.OwnedBy != 0 {
			qb = qb.Where(sq.Or{sq.Eq{"state": states}, sq.Eq{"author_id": q.OwnedBy}})
		} else {
			qb = qb.Where(sq.Eq{"state": states})
		}
	}
	if len(q.PublisherIDs) > 0 {
		qb = qb.Where(sq.Eq{"publisher_id": q.PublisherIDs})
	}
	if len(q.AuthorIDs) > 0 {
		qb = qb.Where(sq.Eq{"author_id": q.AuthorIDs})
	}
	if q.HasPublisher != nil {
		if *q.HasPublisher {
			qb = qb.Where(sq.NotEq{"publisher_id": nil})
		} else {
			qb = qb.Where(sq.Eq{"publisher_id": nil})
		}
	}
	if q.Limit > 0 {
		qb = qb.Limit(uint64(q.Limit))
	}

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building article query: %w", err)
	}
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing articles: %w", err)
	}
	defer rows.Close()
	return scanArticles(rows)
}

// ArticlesByIDs returns the articles with the given IDs in no particular order.
func (db *DB) ArticlesByIDs(ctx context.Context, ids []int64) ([]domain.Article, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sq.Select(articleColumns...).From("articles").Where(sq.Eq{"id": ids}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("building article query: %w", err)
	}
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("loading articles: %w", err)
	}
	defer rows.Close()
	return scanArticles(rows)
}

// UpdateArticleContent writes the content columns only. Lifecycle columns
// are untouched, so a concurrent review is never overwritten.
func (db *DB) UpdateArticleContent(ctx context.Context, a domain.Article) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE articles SET title = ?, body = ?, image_url = ?, publisher_id = ?, updated_at = ?
		WHERE id = ?`,
		a.Title, a.Body, a.ImageURL, nullInt(a.PublisherID), formatTime(a.UpdatedAt), a.ID,
	)
	if err != nil {
		return fmt.Errorf("updating article %d: %w", a.ID, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("article %d: %w", a.ID, domain.ErrNotFound)
	}
	return nil
}

// UpdateArticleLifecycle writes the lifecycle columns only. When expected is
// non-empty the write happens only if the stored state is one of them, and a
// mismatch yields domain.ErrConflict.
func (db *DB) UpdateArticleLifecycle(ctx context.Context, a domain.Article, expected []domain.State) error {
	return db.updateArticle(ctx, lifecycleUpdate(a), a.ID, expected)
}

// UpdateArticle writes the content and lifecycle columns in one
// transaction, under the same expected-state check as UpdateArticleLifecycle.
// On a conflict nothing is written.
func (db *DB) UpdateArticle(ctx context.Context, a domain.Article, expected []domain.State) error {
	qb := lifecycleUpdate(a).
		Set("title", a.Title).
		Set("body", a.Body).
		Set("image_url", a.ImageURL).
		Set("publisher_id", nullInt(a.PublisherID))
	return db.updateArticle(ctx, qb, a.ID, expected)
}

func lifecycleUpdate(a domain.Article) sq.UpdateBuilder {
	return sq.Update("articles").
		Set("state", string(a.State)).
		Set("approved_by", nullInt(a.ApprovedBy)).
		Set("declined_by", nullInt(a.DeclinedBy)).
		Set("declined_reason", a.DeclinedReason).
		Set("declined_at", nullTime(a.DeclinedAt)).
		Set("updated_at", formatTime(a.UpdatedAt))
}

func (db *DB) updateArticle(ctx context.Context, qb sq.UpdateBuilder, id int64, expected []domain.State) error {
	qb = qb.Where(sq.Eq{"id": id})
	if len(expected) > 0 {
		states := make([]string, len(expected))
		for i, s := range expected {
			states[i] = string(s)
		}
		qb = qb.Where(sq.Eq{"state": states})
	}
	query, args, err := qb.ToSql()
	if err != nil {
		return fmt.Errorf("building article update: %w", err)
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("updating article %d: %w", id, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		var exists int
		err := tx.QueryRowContext(ctx, "SELECT 1 FROM articles WHERE id = ?", id).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("article %d: %w", id, domain.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("checking article %d: %w", id, err)
		}
		return fmt.Errorf("article %d: %w", id, domain.ErrConflict)
	}
	return tx.Commit()
}

// DeleteArticle removes an article.
func (db *DB) DeleteArticle(ctx context.Context, id int64) error {
	result, err := db.conn.ExecContext(ctx, "DELETE FROM articles WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting article %d: %w", id, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("article %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

func scanArticle(s scanner) (*domain.Article, error) {
	var a domain.Article
	var state, created, updated string
	var publisherID, approvedBy, declinedBy sql.NullInt64
	var sourceURL, declinedAt sql.NullString

	if err := s.Scan(&a.ID, &a.Title, &a.Body, &a.ImageURL, &publisherID, &a.AuthorID, &sourceURL,
		&state, &approvedBy, &declinedBy, &a.DeclinedReason, &declinedAt, &created, &updated); err != nil {
		return nil, err
	}

	a.State = domain.State(state)
	a.PublisherID = int64Ptr(publisherID)
	a.ApprovedBy = int64Ptr(approvedBy)
	a.DeclinedBy = int64Ptr(declinedBy)
	if sourceURL.Valid {
		a.SourceURL = &sourceURL.String
	}

	if declinedAt.Valid {
		t, err := parseTime(declinedAt.String)
		if err != nil {
			return nil, err
		}
		a.DeclinedAt = &t
	}
	var err error
	if a.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if a.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, err
	}
	return &a, nil
}

func scanArticles(rows *sql.Rows) ([]domain.Article, error) {
	var articles []domain.Article
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		articles = append(articles, *a)
	}
	return articles, rows.Err()
}

func int64Ptr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}
