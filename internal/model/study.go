package model

import "time"

type BibleStudy struct {
	ID             string    `db:"id" json:"id"`
	Title          string    `db:"title" json:"title"`
	Content        string    `db:"content" json:"content"`
	Summary        string    `db:"summary" json:"summary"`
	ImageURL       *string   `db:"image_url" json:"imageUrl"`
	BibleVerse     *string   `db:"bible_verse" json:"bibleVerse"`
	BibleReference *string   `db:"bible_reference" json:"bibleReference"`
	AuthorID       string    `db:"author_id" json:"authorId"`
	Category       *string   `db:"category" json:"category"`
	Published      bool      `db:"published" json:"published"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`

	// Computed fields (not in database)
	HTMLContent string `db:"-" json:"contentHtml,omitempty"`
}

type NewBibleStudy struct {
	Title          string  `json:"title" jsonschema:"minLength=1,maxLength=200"`
	Content        string  `json:"content" jsonschema:"minLength=1"`
	Summary        string  `json:"summary" jsonschema:"minLength=1,maxLength=500"`
	ImageURL       *string `json:"imageUrl,omitempty" jsonschema:"format=uri"`
	BibleVerse     *string `json:"bibleVerse,omitempty" jsonschema:"maxLength=2000"`
	BibleReference *string `json:"bibleReference,omitempty" jsonschema:"maxLength=100"`
	Category       *string `json:"category,omitempty" jsonschema:"maxLength=50"`
	Published      *bool   `json:"published,omitempty"`
}
