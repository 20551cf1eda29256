package cmd

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/igrejaonline/portal/internal/auth"
	"github.com/igrejaonline/portal/internal/markdown"
	"github.com/igrejaonline/portal/internal/model"
	"github.com/igrejaonline/portal/internal/repository"
	"github.com/igrejaonline/portal/internal/service"
)

type seedUser struct {
	username    string
	email       string
	displayName string
	avatar      string
}

var seedUsers = []seedUser{
	{
		username:    "admin",
		email:       "admin@igrejaaonline.com",
		displayName: "Administrador",
		avatar:      "https://randomuser.me/api/portraits/men/32.jpg",
	},
	{
		username:    "pastora.maria",
		email:       "maria@igrejaaonline.com",
		displayName: "Pastora Maria Silva",
		avatar:      "https://randomuser.me/api/portraits/women/65.jpg",
	},
}

func SeedCmd() *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert demo users, a Bible study and an event (safe to re-run)",
		RunE: func(cmd *cobra.Command, args []string) error {
			database, _, err := openDatabase(true)
			if err != nil {
				return err
			}
			defer database.Close()

			return runSeed(cmd.Context(), database, password, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&password, "password", "", "Password for the seeded users (random when empty)")
	return cmd
}

func runSeed(ctx context.Context, database *sqlx.DB, password string, out io.Writer) error {
	if password == "" {
		password = rand.Text()
		fmt.Fprintf(out, "generated password for seeded users: %s\n", password)
	}

	users := repository.NewUserRepository(database)
	hasher := auth.NewScryptHasher()

	seeded := make([]*model.User, 0, len(seedUsers))
	for _, su := range seedUsers {
		user, err := users.ByUsername(ctx, su.username)
		if err == nil {
			fmt.Fprintf(out, "user %s exists, skipping\n", su.username)
			seeded = append(seeded, user)
			continue
		}
		if !errors.Is(err, repository.ErrUserNotFound) {
			return err
		}

		digest, err := hasher.Hash(password)
		if err != nil {
			return err
		}

		avatar := su.avatar
		user = &model.User{
			ID:             uuid.New().String(),
			Username:       su.username,
			PasswordDigest: digest,
			DisplayName:    su.displayName,
			Email:          su.email,
			Avatar:         &avatar,
			CreatedAt:      time.Now().UTC().Truncate(time.Microsecond),
		}
		err = users.Create(ctx, user)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "created user %s\n", su.username)
		seeded = append(seeded, user)
	}

	studies := service.NewStudyService(repository.NewStudyRepository(database), markdown.NewParser())
	const studyTitle = "As Parábolas de Jesus"
	exists, err := titleExists(ctx, database, "bible_studies", studyTitle)
	if err != nil {
		return err
	}
	if !exists {
		_, err = studies.Create(ctx, seeded[1], &model.NewBibleStudy{
			Title:   studyTitle,
			Content: "Um estudo profundo sobre as parábolas de Jesus...",
			Summary: "Um estudo sobre as parábolas de Jesus",
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "created bible study %q\n", studyTitle)
	}

	events := service.NewEventService(repository.NewEventRepository(database))
	const eventTitle = "Culto Especial de Louvor"
	exists, err = titleExists(ctx, database, "events", eventTitle)
	if err != nil {
		return err
	}
	if !exists {
		brt := time.FixedZone("BRT", -3*60*60)
		category := "Culto"
		_, err = events.Create(ctx, &model.NewEvent{
			Title:       eventTitle,
			Description: "Uma noite especial de adoração...",
			Location:    "Templo principal",
			StartTime:   time.Date(2024, time.April, 23, 19, 0, 0, 0, brt),
			EndTime:     time.Date(2024, time.April, 23, 21, 30, 0, 0, brt),
			Category:    &category,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "created event %q\n", eventTitle)
	}

	return nil
}
