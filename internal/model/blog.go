package model

import "time"

type BlogPost struct {
	ID        string    `db:"id" json:"id"`
	Title     string    `db:"title" json:"title"`
	Content   string    `db:"content" json:"content"`
	Summary   string    `db:"summary" json:"summary"`
	ImageURL  *string   `db:"image_url" json:"imageUrl"`
	AuthorID  string    `db:"author_id" json:"authorId"`
	ReadTime  int       `db:"read_time" json:"readTime"`
	Views     int       `db:"views" json:"views"`
	Featured  bool      `db:"featured" json:"featured"`
	Published bool      `db:"published" json:"published"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`

	// Computed fields (not in database)
	HTMLContent string `db:"-" json:"contentHtml,omitempty"`
}

type NewBlogPost struct {
	Title     string  `json:"title" jsonschema:"minLength=1,maxLength=200"`
	Content   string  `json:"content" jsonschema:"minLength=1"`
	Summary   string  `json:"summary" jsonschema:"minLength=1,maxLength=500"`
	ImageURL  *string `json:"imageUrl,omitempty" jsonschema:"format=uri"`
	ReadTime  *int    `json:"readTime,omitempty" jsonschema:"minimum=1,maximum=600"` // Minutes, estimated when omitted
	Featured  *bool   `json:"featured,omitempty"`
	Published *bool   `json:"published,omitempty"`
}
