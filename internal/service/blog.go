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

type BlogService struct {
	blogRepository repository.BlogRepository
	parser         *markdown.Parser
	now            func() time.Time
}

func NewBlogService(blogRepository repository.BlogRepository, parser *markdown.Parser) *BlogService {
	return &BlogService{
		blogRepository: blogRepository,
		parser:         parser,
		now:            utcNow,
	}
}

// Posts lists published posts, newest first.
func (s *BlogService) Posts(ctx context.Context) ([]*model.BlogPost, error) {
	return s.blogRepository.Posts(ctx)
}

// Post counts a view and returns the post with the view included.
func (s *BlogService) Post(ctx context.Context, id string) (*model.BlogPost, error) {
	err := s.blogRepository.IncrementViews(ctx, id)
	if err != nil {
		return nil, postNotFound(err)
	}

	post, err := s.blogRepository.ByID(ctx, id)
	if err != nil {
		return nil, postNotFound(err)
	}

	return s.render(post)
}

// Featured returns the newest published post flagged as featured.
func (s *BlogService) Featured(ctx context.Context) (*model.BlogPost, error) {
	post, err := s.blogRepository.Featured(ctx)
	if errors.Is(err, repository.ErrPostNotFound) {
		return nil, apperr.WithCause(apperr.NotFound("No featured post found"), err)
	}
	if err != nil {
		return nil, err
	}

	return s.render(post)
}

func (s *BlogService) Create(ctx context.Context, author *model.User, in *model.NewBlogPost) (*model.BlogPost, error) {
	err := requireText(map[string]string{"title": in.Title, "content": in.Content, "summary": in.Summary})
	if err != nil {
		return nil, err
	}

	readTime := markdown.ReadTime(in.Content)
	if in.ReadTime != nil {
		readTime = *in.ReadTime
	}

	post := &model.BlogPost{
		ID:        uuid.New().String(),
		Title:     in.Title,
		Content:   in.Content,
		Summary:   in.Summary,
		ImageURL:  in.ImageURL,
		AuthorID:  author.ID,
		ReadTime:  readTime,
		Featured:  boolOr(in.Featured, false),
		Published: boolOr(in.Published, true),
		CreatedAt: s.now(),
	}

	err = s.blogRepository.Create(ctx, post)
	if err != nil {
		return nil, err
	}

	return post, nil
}

func (s *BlogService) render(post *model.BlogPost) (*model.BlogPost, error) {
	html, err := s.parser.Parse([]byte(post.Content))
	if err != nil {
		return nil, err
	}
	post.HTMLContent = string(html)
	return post, nil
}

func postNotFound(err error) error {
	if errors.Is(err, repository.ErrPostNotFound) {
		return apperr.WithCause(apperr.NotFound("Blog post not found"), err)
	}
	return err
}
