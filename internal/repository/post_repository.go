package repository

import (
	"context"
	"database/sql"

	"github.com/marense/feedline/internal/model"
)

// PostRepo persists posts.
type PostRepo struct{ DB *sql.DB }

func NewPostRepo(db *sql.DB) *PostRepo { return &PostRepo{DB: db} }

const postCols = "id,owner_id,title,content,visibility,created_at,updated_at"

// Create inserts a post.
func (r *PostRepo) Create(ctx context.Context, p *model.Post) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO posts (id, owner_id, title, content, visibility) VALUES (?,?,?,?,?)",
		p.ID, p.OwnerID, p.Title, p.Content, p.Visibility)
	return err
}

func scanPost(row *sql.Row) (model.Post, error) {
	var p model.Post
	err := row.Scan(&p.ID, &p.OwnerID, &p.Title, &p.Content,
		&p.Visibility, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return p, ErrNotFound
	}
	return p, err
}

// GetByID fetches a post by id regardless of visibility; the handler decides
// whether the caller may see it.
func (r *PostRepo) GetByID(ctx context.Context, id string) (model.Post, error) {
	return scanPost(r.DB.QueryRowContext(ctx,
		"SELECT "+postCols+" FROM posts WHERE id=? LIMIT 1", id))
}

// ListPublic returns the newest public posts, paginated.
func (r *PostRepo) ListPublic(ctx context.Context, limit, offset int) ([]model.Post, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+postCols+" FROM posts WHERE visibility=? ORDER BY created_at DESC LIMIT ? OFFSET ?",
		model.VisibilityPublic, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Post{}
	for rows.Next() {
		var p model.Post
		if err := rows.Scan(&p.ID, &p.OwnerID, &p.Title, &p.Content,
			&p.Visibility, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Update rewrites title, content and visibility of an existing post.
func (r *PostRepo) Update(ctx context.Context, p *model.Post) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE posts SET title=?, content=?, visibility=?, updated_at=NOW() WHERE id=?",
		p.Title, p.Content, p.Visibility, p.ID)
	return err
}

// Delete removes a post by id.
func (r *PostRepo) Delete(ctx context.Context, id string) error {
	_, err := r.DB.ExecContext(ctx, "DELETE FROM posts WHERE id=?", id)
	return err
}
