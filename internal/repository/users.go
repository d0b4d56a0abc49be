// Package repository provides persistence implementations for registered users.
package repository

import (
	"context"
	"database/sql"

	"github.com/atinyakov/GateKeeper/internal/models"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

// ErrUserExists is returned by Add when the username is already taken.
// The first writer of a username wins; later inserts fail with this error.
var ErrUserExists = errors.New("user already exists")

// PostgresUserRepository implements user persistence using a PostgreSQL database.
// Passwords are stored as bcrypt hashes.
type PostgresUserRepository struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
	// Cost is the bcrypt cost used when hashing new passwords.
	Cost int
}

// NewPostgresUserRepository creates a new PostgresUserRepository with the given database connection.
// db must be a valid *sql.DB connected to a PostgreSQL instance.
func NewPostgresUserRepository(db *sql.DB) *PostgresUserRepository {
	return &PostgresUserRepository{DB: db, Cost: bcrypt.DefaultCost}
}

// Exists checks whether a user with the specified username exists in the database.
func (r *PostgresUserRepository) Exists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := r.DB.QueryRowContext(
		ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)`,
		username,
	).Scan(&exists)
	if err != nil {
		return false, errors.Wrap(err, "Exists")
	}
	return exists, nil
}

// Get returns the user whose username and password both match.
// It returns nil and no error when the username is unknown or the password differs.
func (r *PostgresUserRepository) Get(ctx context.Context, username, password string) (*models.User, error) {
	var hash []byte
	err := r.DB.QueryRowContext(
		ctx,
		`SELECT password_hash FROM users WHERE username = $1`,
		username,
	).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "Get")
	}

	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "Get: compare hash")
	}
	return &models.User{Username: username, Password: password}, nil
}

// Add hashes the user's password and inserts the user.
// The ON CONFLICT DO NOTHING clause makes check-then-insert atomic; when no
// row is inserted ErrUserExists is returned.
func (r *PostgresUserRepository) Add(ctx context.Context, user models.User) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(user.Password), r.Cost)
	if err != nil {
		return errors.Wrap(err, "Add: hash password")
	}

	res, err := r.DB.ExecContext(
		ctx,
		`INSERT INTO users (username, password_hash) VALUES ($1, $2) ON CONFLICT (username) DO NOTHING`,
		user.Username, hash,
	)
	if err != nil {
		return errors.Wrap(err, "Add")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "Add: rows affected")
	}
	if n == 0 {
		return ErrUserExists
	}
	return nil
}

// Delete removes the user with the given username. Deleting an unknown
// username is not an error.
func (r *PostgresUserRepository) Delete(ctx context.Context, username string) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM users WHERE username = $1`, username)
	if err != nil {
		return errors.Wrap(err, "Delete")
	}
	return nil
}

// GetAll lists every user in registration order. Password hashes are not
// returned; the Password field of each user is left empty.
func (r *PostgresUserRepository) GetAll(ctx context.Context) ([]models.User, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT username FROM users ORDER BY created_at, username`)
	if err != nil {
		return nil, errors.Wrap(err, "GetAll")
	}
	defer rows.Close()

	users := make([]models.User, 0)
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.Username); err != nil {
			return nil, errors.Wrap(err, "scan")
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "GetAll: rows")
	}
	return users, nil
}
