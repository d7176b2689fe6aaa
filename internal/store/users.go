package store

import (
	"context"
	"database/sql"
	"errors"

	"example.com/sqliteblog/internal/models"
)

// --- User operations ---

// GetUserByUsername returns the user and its password hash.
// It returns ErrNotFound when the username is not registered.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (models.User, string, error) {
	var u models.User
	var hash string
	err := s.DB.QueryRowContext(ctx,
		`SELECT id, username, password FROM user WHERE username = ?`,
		username,
	).Scan(&u.ID, &u.Username, &hash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, "", ErrNotFound
		}
		logg.Error("store", "Failed to query user by username", err)
		return models.User{}, "", err
	}
	return u, hash, nil
}

// GetUserByID returns the user with the given id, or ErrNotFound.
func (s *Store) GetUserByID(ctx context.Context, id int64) (models.User, error) {
	var u models.User
	err := s.DB.QueryRowContext(ctx,
		`SELECT id, username FROM user WHERE id = ?`,
		id,
	).Scan(&u.ID, &u.Username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		logg.Error("store", "Failed to query user by id", err)
		return models.User{}, err
	}
	return u, nil
}

// CreateUser inserts a new user and returns its id.
// It returns ErrUsernameTaken when the username already exists.
func (s *Store) CreateUser(ctx context.Context, username, passwordHash string) (int64, error) {
	var id int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO user (username, password) VALUES (?, ?)`,
			username, passwordHash,
		)
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrUsernameTaken
		}
		logg.Error("store", "Failed to create user", err)
		return 0, err
	}

	logg.Info("store", "User created successfully (username anonymized)")
	return id, nil
}
