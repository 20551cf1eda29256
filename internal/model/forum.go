package model

import "time"

type ForumTopic struct {
	ID          string     `db:"id" json:"id"`
	Title       string     `db:"title" json:"title"`
	Content     string     `db:"content" json:"content"`
	AuthorID    string     `db:"author_id" json:"authorId"`
	Views       int        `db:"views" json:"views"`
	ReplyCount  int        `db:"reply_count" json:"replyCount"`
	LastReplyAt *time.Time `db:"last_reply_at" json:"lastReplyAt"`
	CreatedAt   time.Time  `db:"created_at" json:"createdAt"`

	Author *AuthorSummary `db:"-" json:"author,omitempty"`
}

type ForumReply struct {
	ID        string    `db:"id" json:"id"`
	TopicID   string    `db:"topic_id" json:"topicId"`
	Content   string    `db:"content" json:"content"`
	AuthorID  string    `db:"author_id" json:"authorId"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`

	Author *AuthorSummary `db:"-" json:"author,omitempty"`
}

// TopicDetail is the body of GET /api/forum-topics/{id}.
type TopicDetail struct {
	Topic   *ForumTopic   `json:"topic"`
	Replies []*ForumReply `json:"replies"`
}

type NewForumTopic struct {
	Title   string `json:"title" jsonschema:"minLength=5,maxLength=100"`
	Content string `json:"content" jsonschema:"minLength=20,maxLength=1000"`
}

type NewForumReply struct {
	TopicID string `json:"topicId" jsonschema:"format=uuid"`
	Content string `json:"content" jsonschema:"minLength=5,maxLength=1000"`
}
