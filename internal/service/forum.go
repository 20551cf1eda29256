package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/igrejaonline/portal/internal/apperr"
	"github.com/igrejaonline/portal/internal/model"
	"github.com/igrejaonline/portal/internal/repository"
)

type ForumService struct {
	forumRepository repository.ForumRepository
	userRepository  repository.UserRepository
	now             func() time.Time
}

func NewForumService(forumRepository repository.ForumRepository, userRepository repository.UserRepository) *ForumService {
	return &ForumService{
		forumRepository: forumRepository,
		userRepository:  userRepository,
		now:             utcNow,
	}
}

// Topics lists topics, newest first.
func (s *ForumService) Topics(ctx context.Context) ([]*model.ForumTopic, error) {
	return s.forumRepository.Topics(ctx)
}

// Topic counts a view and returns the topic, its replies in posting order
// and the author of each.
func (s *ForumService) Topic(ctx context.Context, id string) (*model.TopicDetail, error) {
	err := s.forumRepository.IncrementViews(ctx, id)
	if err != nil {
		return nil, topicNotFound(err)
	}

	topic, err := s.forumRepository.Topic(ctx, id)
	if err != nil {
		return nil, topicNotFound(err)
	}

	replies, err := s.forumRepository.Replies(ctx, id)
	if err != nil {
		return nil, err
	}

	authors := map[string]*model.AuthorSummary{}
	topic.Author, err = s.author(ctx, authors, topic.AuthorID)
	if err != nil {
		return nil, err
	}
	for _, reply := range replies {
		reply.Author, err = s.author(ctx, authors, reply.AuthorID)
		if err != nil {
			return nil, err
		}
	}

	return &model.TopicDetail{Topic: topic, Replies: replies}, nil
}

// author resolves a user id to its summary, caching across one response.
// A missing user leaves the author out rather than failing the read.
func (s *ForumService) author(ctx context.Context, cache map[string]*model.AuthorSummary, id string) (*model.AuthorSummary, error) {
	if summary, ok := cache[id]; ok {
		return summary, nil
	}

	user, err := s.userRepository.ByID(ctx, id)
	if errors.Is(err, repository.ErrUserNotFound) {
		slog.Warn("forum author not found", "user_id", id)
		cache[id] = nil
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	cache[id] = user.Author()
	return cache[id], nil
}

func (s *ForumService) CreateTopic(ctx context.Context, author *model.User, in *model.NewForumTopic) (*model.ForumTopic, error) {
	err := requireText(map[string]string{"title": in.Title, "content": in.Content})
	if err != nil {
		return nil, err
	}

	topic := &model.ForumTopic{
		ID:        uuid.New().String(),
		Title:     in.Title,
		Content:   in.Content,
		AuthorID:  author.ID,
		CreatedAt: s.now(),
	}

	err = s.forumRepository.CreateTopic(ctx, topic)
	if err != nil {
		return nil, err
	}

	topic.Author = author.Author()
	return topic, nil
}

// CreateReply posts a reply and bumps the topic's reply counter and
// last-reply time in the same transaction.
func (s *ForumService) CreateReply(ctx context.Context, author *model.User, in *model.NewForumReply) (*model.ForumReply, error) {
	err := requireText(map[string]string{"content": in.Content})
	if err != nil {
		return nil, err
	}

	reply := &model.ForumReply{
		ID:       uuid.New().String(),
		TopicID:  in.TopicID,
		Content:  in.Content,
		AuthorID: author.ID,
	}

	err = s.forumRepository.CreateReply(ctx, reply, s.now)
	if err != nil {
		return nil, topicNotFound(err)
	}

	reply.Author = author.Author()
	return reply, nil
}

func topicNotFound(err error) error {
	if errors.Is(err, repository.ErrTopicNotFound) {
		return apperr.WithCause(apperr.NotFound("Forum topic not found"), err)
	}
	return err
}
