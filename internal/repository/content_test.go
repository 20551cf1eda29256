package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/igrejaonline/portal/internal/db/dbtest"
	"github.com/igrejaonline/portal/internal/model"
)

func TestStudyRepository(t *testing.T) {
	ctx := context.Background()
	database := dbtest.Open(t)
	repo := NewStudyRepository(database)
	authorID := dbtest.InsertUser(t, database, "heidi")

	verse := "Ele lhes falou muitas coisas por parábolas."
	ref := "Mateus 13:3"
	study := &model.BibleStudy{
		ID:             uuid.NewString(),
		Title:          "As Parábolas de Jesus",
		Content:        "Um estudo aprofundado.",
		Summary:        "Resumo",
		BibleVerse:     &verse,
		BibleReference: &ref,
		AuthorID:       authorID,
		Published:      true,
		CreatedAt:      utcNow(),
	}
	require.NoError(t, repo.Create(ctx, study))

	hidden := *study
	hidden.ID = uuid.NewString()
	hidden.Published = false
	require.NoError(t, repo.Create(ctx, &hidden))

	got, err := repo.ByID(ctx, study.ID)
	require.NoError(t, err)
	assert.Equal(t, study.Title, got.Title)
	require.NotNil(t, got.BibleReference)
	assert.Equal(t, ref, *got.BibleReference)
	assert.Nil(t, got.ImageURL)

	studies, err := repo.Studies(ctx)
	require.NoError(t, err)
	require.Len(t, studies, 1)
	assert.Equal(t, study.ID, studies[0].ID)

	_, err = repo.ByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, ErrStudyNotFound)
}

func TestEventRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewEventRepository(dbtest.Open(t))

	now := utcNow()
	mk := func(title string, start time.Time, created time.Time) *model.Event {
		return &model.Event{
			ID:          uuid.NewString(),
			Title:       title,
			Description: "descrição",
			Location:    "Templo Principal",
			StartTime:   start,
			EndTime:     start.Add(2 * time.Hour),
			CreatedAt:   created,
		}
	}

	past := mk("past", now.Add(-48*time.Hour), now)
	later := mk("later", now.Add(72*time.Hour), now.Add(time.Second))
	soon := mk("soon", now.Add(24*time.Hour), now.Add(2*time.Second))
	for _, e := range []*model.Event{past, later, soon} {
		require.NoError(t, repo.Create(ctx, e))
	}

	events, err := repo.Events(ctx)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, []string{"soon", "later", "past"}, []string{events[0].Title, events[1].Title, events[2].Title})

	upcoming, err := repo.Upcoming(ctx, now)
	require.NoError(t, err)
	require.Len(t, upcoming, 2)
	assert.Equal(t, "soon", upcoming[0].Title)
	assert.Equal(t, "later", upcoming[1].Title)

	got, err := repo.ByID(ctx, soon.ID)
	require.NoError(t, err)
	assert.True(t, soon.StartTime.Equal(got.StartTime))

	_, err = repo.ByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, ErrEventNotFound)
}
