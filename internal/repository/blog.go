package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/igrejaonline/portal/internal/model"
)

var ErrPostNotFound = errors.New("blog post not found")

type BlogRepository interface {
	Create(ctx context.Context, post *model.BlogPost) error
	ByID(ctx context.Context, id string) (*model.BlogPost, error)
	// Posts lists published posts, newest first.
	Posts(ctx context.Context) ([]*model.BlogPost, error)
	// Featured returns the newest published post flagged as featured.
	Featured(ctx context.Context) (*model.BlogPost, error)
	// IncrementViews adds one view in storage, so concurrent reads never
	// lose an update.
	IncrementViews(ctx context.Context, id string) error
}

type blogRepository struct {
	db *sqlx.DB
}

func NewBlogRepository(db *sqlx.DB) BlogRepository {
	return &blogRepository{db: db}
}

func (r *blogRepository) Create(ctx context.Context, post *model.BlogPost) error {
	query := `INSERT INTO blog_posts (id, title, content, summary, image_url, author_id, read_time, views, featured, published, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.db.ExecContext(ctx, query,
		post.ID,
		post.Title,
		post.Content,
		post.Summary,
		post.ImageURL,
		post.AuthorID,
		post.ReadTime,
		post.Views,
		post.Featured,
		post.Published,
		post.CreatedAt,
	)
	return storageErr("blog_posts.create", err)
}

func (r *blogRepository) ByID(ctx context.Context, id string) (*model.BlogPost, error) {
	post := &model.BlogPost{}

	err := r.db.GetContext(ctx, post, `SELECT * FROM blog_posts WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPostNotFound
	}
	if err != nil {
		return nil, storageErr("blog_posts.by_id", err)
	}

	return post, nil
}

func (r *blogRepository) Posts(ctx context.Context) ([]*model.BlogPost, error) {
	posts := []*model.BlogPost{}

	err := r.db.SelectContext(ctx, &posts, `SELECT * FROM blog_posts WHERE published = $1 ORDER BY created_at DESC, id`, true)
	if err != nil {
		return nil, storageErr("blog_posts.list", err)
	}

	return posts, nil
}

func (r *blogRepository) Featured(ctx context.Context) (*model.BlogPost, error) {
	post := &model.BlogPost{}
	query := `SELECT * FROM blog_posts WHERE featured = $1 AND published = $1 ORDER BY created_at DESC, id LIMIT 1`

	err := r.db.GetContext(ctx, post, query, true)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPostNotFound
	}
	if err != nil {
		return nil, storageErr("blog_posts.featured", err)
	}

	return post, nil
}

func (r *blogRepository) IncrementViews(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE blog_posts SET views = views + 1 WHERE id = $1`, id)
	if err != nil {
		return storageErr("blog_posts.increment_views", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return storageErr("blog_posts.increment_views", err)
	}
	if rows == 0 {
		return ErrPostNotFound
	}

	return nil
}
