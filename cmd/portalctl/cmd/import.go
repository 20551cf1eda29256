package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/igrejaonline/portal/internal/markdown"
	"github.com/igrejaonline/portal/internal/model"
	"github.com/igrejaonline/portal/internal/repository"
	"github.com/igrejaonline/portal/internal/service"
)

func ImportCmd() *cobra.Command {
	var author string

	cmd := &cobra.Command{
		Use:   "import [dir]",
		Short: "Import markdown blog posts (blog/*.md) and Bible studies (studies/*.md)",
		Long: `Import reads markdown files with YAML frontmatter. Recognized keys:
title, summary, author (username), imageUrl, published, featured, readTime,
category, bibleVerse and bibleReference. Files whose title already exists
are skipped.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			database, cfg, err := openDatabase(true)
			if err != nil {
				return err
			}
			defer database.Close()

			dir := cfg.ContentPath
			if len(args) == 1 {
				dir = args[0]
			}
			return runImport(cmd.Context(), database, dir, author, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&author, "author", "admin", "Username credited when a file names no author")
	return cmd
}

type importer struct {
	db            *sqlx.DB
	users         repository.UserRepository
	blog          *service.BlogService
	studies       *service.StudyService
	parser        *markdown.Parser
	defaultAuthor string
	out           io.Writer
}

func runImport(ctx context.Context, database *sqlx.DB, dir, defaultAuthor string, out io.Writer) error {
	parser := markdown.NewParser()
	im := &importer{
		db:            database,
		users:         repository.NewUserRepository(database),
		blog:          service.NewBlogService(repository.NewBlogRepository(database), parser),
		studies:       service.NewStudyService(repository.NewStudyRepository(database), parser),
		parser:        parser,
		defaultAuthor: defaultAuthor,
		out:           out,
	}

	err := im.each(filepath.Join(dir, "blog"), func(path string, doc *markdown.Document) error {
		return im.importPost(ctx, path, doc)
	})
	if err != nil {
		return err
	}

	return im.each(filepath.Join(dir, "studies"), func(path string, doc *markdown.Document) error {
		return im.importStudy(ctx, path, doc)
	})
}

// each parses every markdown file in dir, in name order. A missing
// directory has nothing to import.
func (im *importer) each(dir string, fn func(path string, doc *markdown.Document) error) error {
	paths, err := filepath.Glob(filepath.Join(dir, "*.md"))
	if err != nil {
		return err
	}
	sort.Strings(paths)

	for _, path := range paths {
		source, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}

		doc, err := im.parser.ParseDocument(source)
		if err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}

		err = fn(path, doc)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}
	return nil
}

func (im *importer) importPost(ctx context.Context, path string, doc *markdown.Document) error {
	title := metaString(doc.Meta, "title")
	skip, err := im.skip(ctx, "blog_posts", path, title)
	if err != nil || skip {
		return err
	}

	author, err := im.author(ctx, doc.Meta)
	if err != nil {
		return err
	}

	in := &model.NewBlogPost{
		Title:     title,
		Content:   doc.Body,
		Summary:   metaString(doc.Meta, "summary"),
		ImageURL:  metaOptional(doc.Meta, "imageUrl"),
		Featured:  metaBool(doc.Meta, "featured"),
		Published: metaBool(doc.Meta, "published"),
	}
	if n, ok := doc.Meta["readTime"].(int); ok && n > 0 {
		in.ReadTime = &n
	}

	_, err = im.blog.Create(ctx, author, in)
	if err != nil {
		return err
	}
	fmt.Fprintf(im.out, "imported blog post %q\n", title)
	return nil
}

func (im *importer) importStudy(ctx context.Context, path string, doc *markdown.Document) error {
	title := metaString(doc.Meta, "title")
	skip, err := im.skip(ctx, "bible_studies", path, title)
	if err != nil || skip {
		return err
	}

	author, err := im.author(ctx, doc.Meta)
	if err != nil {
		return err
	}

	_, err = im.studies.Create(ctx, author, &model.NewBibleStudy{
		Title:          title,
		Content:        doc.Body,
		Summary:        metaString(doc.Meta, "summary"),
		ImageURL:       metaOptional(doc.Meta, "imageUrl"),
		BibleVerse:     metaOptional(doc.Meta, "bibleVerse"),
		BibleReference: metaOptional(doc.Meta, "bibleReference"),
		Category:       metaOptional(doc.Meta, "category"),
		Published:      metaBool(doc.Meta, "published"),
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(im.out, "imported bible study %q\n", title)
	return nil
}

func (im *importer) skip(ctx context.Context, table, path, title string) (bool, error) {
	if title == "" {
		return false, errors.New("frontmatter has no title")
	}

	exists, err := titleExists(ctx, im.db, table, title)
	if err != nil {
		return false, err
	}
	if exists {
		fmt.Fprintf(im.out, "%s: %q exists, skipping\n", filepath.Base(path), title)
	}
	return exists, nil
}

func (im *importer) author(ctx context.Context, meta map[string]any) (*model.User, error) {
	username := metaString(meta, "author")
	if username == "" {
		username = im.defaultAuthor
	}

	user, err := im.users.ByUsername(ctx, username)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, fmt.Errorf("author %q does not exist", username)
	}
	return user, err
}

func metaString(meta map[string]any, key string) string {
	s, _ := meta[key].(string)
	return strings.TrimSpace(s)
}

func metaOptional(meta map[string]any, key string) *string {
	s := metaString(meta, key)
	if s == "" {
		return nil
	}
	return &s
}

func metaBool(meta map[string]any, key string) *bool {
	b, ok := meta[key].(bool)
	if !ok {
		return nil
	}
	return &b
}
