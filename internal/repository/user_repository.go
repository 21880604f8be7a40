package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/marense/feedline/internal/model"
)

// UserRepo persists accounts in the `users` table.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// Create inserts a new account. The caller supplies the id and an already
// hashed password. Duplicate emails map to ErrEmailExists.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (id, email, password_hash, display_name, status) VALUES (?,?,?,?,?)",
		u.ID, u.Email, u.PasswordHash, u.DisplayName, u.Status)
	if err != nil {
		// MySQL 1062 = duplicate entry on the unique email index
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return ErrEmailExists
		}
		return err
	}
	return nil
}

const userCols = "id,email,password_hash,display_name,bio,avatar_url,status,created_at,updated_at"

func scanUser(row *sql.Row) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.DisplayName,
		&u.Bio, &u.AvatarURL, &u.Status, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return u, ErrNotFound
	}
	return u, err
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userCols+" FROM users WHERE email=? LIMIT 1", email))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id string) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userCols+" FROM users WHERE id=? LIMIT 1", id))
}

// UpdatePasswordHash replaces the stored credential hash.
func (r *UserRepo) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET password_hash=?, updated_at=NOW() WHERE id=?", hash, id)
	return err
}

// UpdateProfile updates display name and bio.
func (r *UserRepo) UpdateProfile(ctx context.Context, id, displayName string, bio *string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET display_name=?, bio=?, updated_at=NOW() WHERE id=?",
		displayName, bio, id)
	return err
}

// UpdateAvatarURL sets or clears the avatar URL (nil clears it).
func (r *UserRepo) UpdateAvatarURL(ctx context.Context, id string, url *string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET avatar_url=?, updated_at=NOW() WHERE id=?", url, id)
	return err
}
