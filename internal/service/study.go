package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/igrejaonline/portal/internal/apperr"
	"github.com/igrejaonline/portal/internal/markdown"
	"github.com/igrejaonline/portal/internal/model"
	"github.com/igrejaonline/portal/internal/repository"
)

type StudyService struct {
	studyRepository repository.StudyRepository
	parser          *markdown.Parser
	now             func() time.Time
}

func NewStudyService(studyRepository repository.StudyRepository, parser *markdown.Parser) *StudyService {
	return &StudyService{
		studyRepository: studyRepository,
		parser:          parser,
		now:             utcNow,
	}
}

// Studies lists published studies, newest first.
func (s *StudyService) Studies(ctx context.Context) ([]*model.BibleStudy, error) {
	return s.studyRepository.Studies(ctx)
}

func (s *StudyService) Study(ctx context.Context, id string) (*model.BibleStudy, error) {
	study, err := s.studyRepository.ByID(ctx, id)
	if errors.Is(err, repository.ErrStudyNotFound) {
		return nil, apperr.WithCause(apperr.NotFound("Bible study not found"), err)
	}
	if err != nil {
		return nil, err
	}

	html, err := s.parser.Parse([]byte(study.Content))
	if err != nil {
		return nil, err
	}
	study.HTMLContent = string(html)

	return study, nil
}

// Create stores a study authored by the caller. The author always comes
// from the session, never from the payload.
func (s *StudyService) Create(ctx context.Context, author *model.User, in *model.NewBibleStudy) (*model.BibleStudy, error) {
	err := requireText(map[string]string{"title": in.Title, "content": in.Content, "summary": in.Summary})
	if err != nil {
		return nil, err
	}

	study := &model.BibleStudy{
		ID:             uuid.New().String(),
		Title:          in.Title,
		Content:        in.Content,
		Summary:        in.Summary,
		ImageURL:       in.ImageURL,
		BibleVerse:     in.BibleVerse,
		BibleReference: in.BibleReference,
		AuthorID:       author.ID,
		Category:       in.Category,
		Published:      boolOr(in.Published, true),
		CreatedAt:      s.now(),
	}

	err = s.studyRepository.Create(ctx, study)
	if err != nil {
		return nil, err
	}

	return study, nil
}
