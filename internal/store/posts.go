package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"example.com/sqliteblog/internal/models"
)

const selectPost = `
	SELECT p.id, title, body, created, author_id, username
	FROM post p JOIN user u ON p.author_id = u.id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (models.Post, error) {
	var p models.Post
	err := row.Scan(&p.ID, &p.Title, &p.Body, &p.Created, &p.AuthorID, &p.Username)
	return p, err
}

// --- Post operations ---

// ListPosts returns every post with its author's username, most recent first.
func (s *Store) ListPosts(ctx context.Context) ([]models.Post, error) {
	rows, err := s.DB.QueryContext(ctx, selectPost+` ORDER BY created DESC`)
	if err != nil {
		logg.Error("store", "Failed to list posts", err)
		return nil, err
	}
	defer rows.Close()

	res := []models.Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			logg.Error("store", "Failed to scan post row", err)
			return nil, err
		}
		res = append(res, p)
	}
	if err := rows.Err(); err != nil {
		logg.Error("store", "Failed to iterate posts", err)
		return nil, err
	}
	return res, nil
}

// GetPost returns the post with the given id joined with its author's username.
// It returns ErrNotFound when no such post exists.
func (s *Store) GetPost(ctx context.Context, id int64) (models.Post, error) {
	p, err := scanPost(s.DB.QueryRowContext(ctx, selectPost+` WHERE p.id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Post{}, ErrNotFound
		}
		logg.Error("store", "Failed to query post", err)
		return models.Post{}, err
	}
	return p, nil
}

func (s *Store) CreatePost(ctx context.Context, authorID int64, title, body string) (int64, error) {
	var id int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO post (title, body, author_id) VALUES (?, ?, ?)`,
			title, body, authorID,
		)
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		logg.Error("store", "Failed to add post", err)
		return 0, err
	}

	logg.Debug("store", fmt.Sprintf("Post %d added (content anonymized)", id))
	return id, nil
}

// UpdatePost overwrites title and body; author and creation time are untouched.
func (s *Store) UpdatePost(ctx context.Context, id int64, title, body string) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE post SET title = ?, body = ? WHERE id = ?`,
			title, body, id,
		)
		if err != nil {
			return err
		}
		return requireAffected(res)
	})
	if err != nil && !errors.Is(err, ErrNotFound) {
		logg.Error("store", "Failed to update post", err)
	}
	return err
}

func (s *Store) DeletePost(ctx context.Context, id int64) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM post WHERE id = ?`, id)
		if err != nil {
			return err
		}
		return requireAffected(res)
	})
	if err != nil && !errors.Is(err, ErrNotFound) {
		logg.Error("store", "Failed to delete post", err)
	}
	return err
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
