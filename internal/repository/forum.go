package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/igrejaonline/portal/internal/db"
	"github.com/igrejaonline/portal/internal/model"
)

var ErrTopicNotFound = errors.New("forum topic not found")

type ForumRepository interface {
	CreateTopic(ctx context.Context, topic *model.ForumTopic) error
	Topic(ctx context.Context, id string) (*model.ForumTopic, error)
	// Topics lists topics, newest first.
	Topics(ctx context.Context) ([]*model.ForumTopic, error)
	IncrementViews(ctx context.Context, id string) error
	// Replies lists a topic's replies in the order they were written.
	Replies(ctx context.Context, topicID string) ([]*model.ForumReply, error)
	// CreateReply stores reply and bumps its topic's reply_count and
	// last_reply_at in the same transaction. reply.CreatedAt is assigned
	// here, after the topic row is locked, so last_reply_at always matches
	// the newest reply. Returns ErrTopicNotFound when the topic is missing.
	CreateReply(ctx context.Context, reply *model.ForumReply, now func() time.Time) error
}

type forumRepository struct {
	db *sqlx.DB
}

func NewForumRepository(db *sqlx.DB) ForumRepository {
	return &forumRepository{db: db}
}

func (r *forumRepository) CreateTopic(ctx context.Context, topic *model.ForumTopic) error {
	query := `INSERT INTO forum_topics (id, title, content, author_id, views, reply_count, last_reply_at, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.ExecContext(ctx, query,
		topic.ID,
		topic.Title,
		topic.Content,
		topic.AuthorID,
		topic.Views,
		topic.ReplyCount,
		topic.LastReplyAt,
		topic.CreatedAt,
	)
	return storageErr("forum_topics.create", err)
}

func (r *forumRepository) Topic(ctx context.Context, id string) (*model.ForumTopic, error) {
	topic := &model.ForumTopic{}

	err := r.db.GetContext(ctx, topic, `SELECT * FROM forum_topics WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTopicNotFound
	}
	if err != nil {
		return nil, storageErr("forum_topics.by_id", err)
	}

	return topic, nil
}

func (r *forumRepository) Topics(ctx context.Context) ([]*model.ForumTopic, error) {
	topics := []*model.ForumTopic{}

	err := r.db.SelectContext(ctx, &topics, `SELECT * FROM forum_topics ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, storageErr("forum_topics.list", err)
	}

	return topics, nil
}

func (r *forumRepository) IncrementViews(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE forum_topics SET views = views + 1 WHERE id = $1`, id)
	if err != nil {
		return storageErr("forum_topics.increment_views", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return storageErr("forum_topics.increment_views", err)
	}
	if rows == 0 {
		return ErrTopicNotFound
	}

	return nil
}

func (r *forumRepository) Replies(ctx context.Context, topicID string) ([]*model.ForumReply, error) {
	replies := []*model.ForumReply{}

	err := r.db.SelectContext(ctx, &replies, `SELECT * FROM forum_replies WHERE topic_id = $1 ORDER BY created_at ASC, id`, topicID)
	if err != nil {
		return nil, storageErr("forum_replies.list", err)
	}

	return replies, nil
}

func (r *forumRepository) CreateReply(ctx context.Context, reply *model.ForumReply, now func() time.Time) error {
	err := db.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		// The counter update goes first: it takes the row lock that
		// serializes concurrent replies to the same topic.
		result, err := tx.ExecContext(ctx, `UPDATE forum_topics SET reply_count = reply_count + 1 WHERE id = $1`, reply.TopicID)
		if err != nil {
			return err
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrTopicNotFound
		}

		reply.CreatedAt = now()

		_, err = tx.ExecContext(ctx,
			`INSERT INTO forum_replies (id, topic_id, content, author_id, created_at) VALUES ($1, $2, $3, $4, $5)`,
			reply.ID, reply.TopicID, reply.Content, reply.AuthorID, reply.CreatedAt,
		)
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `UPDATE forum_topics SET last_reply_at = $1 WHERE id = $2`, reply.CreatedAt, reply.TopicID)
		return err
	})
	if errors.Is(err, ErrTopicNotFound) {
		return ErrTopicNotFound
	}

	return storageErr("forum_replies.create", err)
}
