package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/igrejaonline/portal/internal/model"
)

var ErrStudyNotFound = errors.New("bible study not found")

type StudyRepository interface {
	Create(ctx context.Context, study *model.BibleStudy) error
	ByID(ctx context.Context, id string) (*model.BibleStudy, error)
	// Studies lists published studies, newest first.
	Studies(ctx context.Context) ([]*model.BibleStudy, error)
}

type studyRepository struct {
	db *sqlx.DB
}

func NewStudyRepository(db *sqlx.DB) StudyRepository {
	return &studyRepository{db: db}
}

func (r *studyRepository) Create(ctx context.Context, study *model.BibleStudy) error {
	query := `INSERT INTO bible_studies (id, title, content, summary, image_url, bible_verse, bible_reference, author_id, category, published, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.db.ExecContext(ctx, query,
		study.ID,
		study.Title,
		study.Content,
		study.Summary,
		study.ImageURL,
		study.BibleVerse,
		study.BibleReference,
		study.AuthorID,
		study.Category,
		study.Published,
		study.CreatedAt,
	)
	return storageErr("bible_studies.create", err)
}

func (r *studyRepository) ByID(ctx context.Context, id string) (*model.BibleStudy, error) {
	study := &model.BibleStudy{}

	err := r.db.GetContext(ctx, study, `SELECT * FROM bible_studies WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrStudyNotFound
	}
	if err != nil {
		return nil, storageErr("bible_studies.by_id", err)
	}

	return study, nil
}

func (r *studyRepository) Studies(ctx context.Context) ([]*model.BibleStudy, error) {
	studies := []*model.BibleStudy{}

	err := r.db.SelectContext(ctx, &studies, `SELECT * FROM bible_studies WHERE published = $1 ORDER BY created_at DESC, id`, true)
	if err != nil {
		return nil, storageErr("bible_studies.list", err)
	}

	return studies, nil
}
