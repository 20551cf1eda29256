//go:build integration

package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/igrejaonline/portal/internal/db"
	"github.com/igrejaonline/portal/internal/model"
)

func TestPostgres(t *testing.T) {
	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("portal"),
		postgres.WithUsername("portal"),
		postgres.WithPassword("portal"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	database, err := db.Init("pgx", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	require.NoError(t, db.RunMigrations(database.DB, "pgx"))

	users := NewUserRepository(database)
	forum := NewForumRepository(database)

	author := newUser("judy")
	require.NoError(t, users.Create(ctx, author))

	t.Run("unique violations are classified", func(t *testing.T) {
		dupName := newUser("judy")
		dupName.Email = "judy2@example.com"
		assert.ErrorIs(t, users.Create(ctx, dupName), ErrDuplicateUsername)

		dupEmail := newUser("judy3")
		dupEmail.Email = author.Email
		assert.ErrorIs(t, users.Create(ctx, dupEmail), ErrDuplicateEmail)
	})

	t.Run("row lock serializes concurrent replies", func(t *testing.T) {
		topic := &model.ForumTopic{
			ID:        uuid.NewString(),
			Title:     "Estudo em grupo",
			Content:   "Quem gostaria de participar do estudo em grupo?",
			AuthorID:  author.ID,
			CreatedAt: utcNow(),
		}
		require.NoError(t, forum.CreateTopic(ctx, topic))

		const n = 30
		var wg sync.WaitGroup
		for range n {
			wg.Add(1)
			go func() {
				defer wg.Done()
				assert.NoError(t, forum.CreateReply(ctx, &model.ForumReply{
					ID:       uuid.NewString(),
					TopicID:  topic.ID,
					Content:  "Eu gostaria!",
					AuthorID: author.ID,
				}, utcNow))
			}()
		}
		wg.Wait()

		got, err := forum.Topic(ctx, topic.ID)
		require.NoError(t, err)
		assert.Equal(t, n, got.ReplyCount)

		replies, err := forum.Replies(ctx, topic.ID)
		require.NoError(t, err)
		require.Len(t, replies, n)
		require.NotNil(t, got.LastReplyAt)
		assert.True(t, replies[n-1].CreatedAt.Equal(*got.LastReplyAt))
	})
}
