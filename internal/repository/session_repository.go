package repository

import (
	"context"
	"database/sql"

	"github.com/marense/feedline/internal/model"
)

// SessionRepo persists refresh-token sessions. One row per outstanding
// grant, keyed by the deterministic token hash; rotation creates a new row
// and revokes the predecessor.
type SessionRepo struct{ DB *sql.DB }

func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{DB: db} }

const sessionCols = "id,user_id,token_hash,expires_at,revoked_at,created_at,user_agent,ip"

// Create inserts a session row.
func (r *SessionRepo) Create(ctx context.Context, s *model.Session) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO sessions (id, user_id, token_hash, expires_at, user_agent, ip) VALUES (?,?,?,?,?,?)",
		s.ID, s.UserID, s.TokenHash, s.ExpiresAt, s.UserAgent, s.IP)
	return err
}

func scanSession(row *sql.Row) (model.Session, error) {
	var s model.Session
	var revoked sql.NullTime
	err := row.Scan(&s.ID, &s.UserID, &s.TokenHash, &s.ExpiresAt,
		&revoked, &s.CreatedAt, &s.UserAgent, &s.IP)
	if err == sql.ErrNoRows {
		return s, ErrNotFound
	}
	if err != nil {
		return s, err
	}
	if revoked.Valid {
		t := revoked.Time
		s.RevokedAt = &t
	}
	return s, nil
}

// GetByID fetches a session by id.
func (r *SessionRepo) GetByID(ctx context.Context, id string) (model.Session, error) {
	return scanSession(r.DB.QueryRowContext(ctx,
		"SELECT "+sessionCols+" FROM sessions WHERE id=? LIMIT 1", id))
}

// GetByTokenHash fetches a session by refresh-token hash. At most one row
// maps to a given hash (unique index on token_hash).
func (r *SessionRepo) GetByTokenHash(ctx context.Context, hash string) (model.Session, error) {
	return scanSession(r.DB.QueryRowContext(ctx,
		"SELECT "+sessionCols+" FROM sessions WHERE token_hash=? LIMIT 1", hash))
}

// Revoke marks a session as revoked. Idempotent: the revoked_at IS NULL
// guard keeps the first revocation timestamp.
func (r *SessionRepo) Revoke(ctx context.Context, id string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE sessions SET revoked_at=NOW() WHERE id=? AND revoked_at IS NULL", id)
	return err
}

// RevokeAllForUser revokes every active session of an account. Used by
// logout-everywhere and password change.
func (r *SessionRepo) RevokeAllForUser(ctx context.Context, userID string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE sessions SET revoked_at=NOW() WHERE user_id=? AND revoked_at IS NULL", userID)
	return err
}

// DeleteExpired removes rows whose expiry has passed. Called by the
// background sweeper, never on the request path.
func (r *SessionRepo) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at < NOW()")
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
