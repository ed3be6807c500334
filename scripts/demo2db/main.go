package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratep "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jessevdk/go-flags"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/Decentr-net/animenexus/internal/auth"
	"github.com/Decentr-net/animenexus/internal/entities"
	"github.com/Decentr-net/animenexus/internal/storage"
	"github.com/Decentr-net/animenexus/internal/storage/postgres"
)

// nolint:lll,gochecknoglobals
var opts = struct {
	AdminUsername      string `long:"admin.username" env:"ADMIN_USERNAME" default:"admin" description:"staff user to create"`
	AdminEmail         string `long:"admin.email" env:"ADMIN_EMAIL" default:"admin@animenexus.local" description:"staff user email"`
	AdminPassword      string `long:"admin.password" env:"ADMIN_PASSWORD" required:"true" description:"staff user password"`
	Posts              bool   `long:"posts" env:"POSTS" description:"create demo posts if there are no posts"`
	Postgres           string `long:"postgres" env:"POSTGRES" default:"host=localhost port=5432 user=postgres password=root sslmode=disable" description:"postgres dsn"`
	PostgresMigrations string `long:"postgres.migrations" env:"POSTGRES_MIGRATIONS" default:"scripts/migrations/postgres" description:"postgres migrations directory"`
}{}

// nolint:gochecknoglobals
var categories = []entities.Category{
	{Name: "Best of All Time", Description: "The greatest anime series and films ever made."},
	{Name: "Worst of All Time", Description: "Titles that missed the mark, no matter the hype."},
	{Name: "Best of the Year", Description: "Standout releases of the current year."},
	{Name: "Worst of the Year", Description: "This year's biggest disappointments."},
	{Name: "Upcoming Releases", Description: "Announcements, trailers and what to watch next season."},
	{Name: "Best Movies", Description: "Feature-length anime worth your evening."},
	{Name: "Annual Winners", Description: "Award results and our yearly picks."},
}

type demoPost struct {
	Title    string
	Content  string
	Category string
	Featured bool
}

// nolint:gochecknoglobals
var posts = []demoPost{
	{
		Title:    "Welcome to AnimeNexus",
		Content:  "Reviews, rankings and news from the anime world. Sign up to join the discussion.",
		Featured: true,
	},
	{
		Title:    "Ten series that defined a generation",
		Content:  "From mecha epics to quiet slice of life, these are the shows we keep coming back to.",
		Category: "Best of All Time",
	},
	{
		Title:    "Films to watch on a rainy weekend",
		Content:  "A short list of feature films with great animation and even better stories.",
		Category: "Best Movies",
	},
	{
		Title:    "Next season preview",
		Content:  "Sequels, adaptations and originals announced for the coming season.",
		Category: "Upcoming Releases",
	},
}

func main() {
	parser := flags.NewParser(&opts, flags.Default)
	parser.ShortDescription = "demo2db"
	parser.LongDescription = "Creates staff user, default categories and demo posts"

	_, err := parser.Parse()

	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			parser.WriteHelp(os.Stdout)
			os.Exit(0)
		}
		logrus.WithError(err).Fatal("error occurred while parsing flags")
	}

	logrus.Info("demo2db started")

	ctx := context.Background()
	s := postgres.New(mustGetDB())

	admin := mustGetAdmin(ctx, s)

	logrus.Info("import categories")
	ids := mustImportCategories(ctx, s)

	if !opts.Posts {
		logrus.Info("done")
		return
	}

	n, err := s.CountPosts(ctx, storage.PostsFilter{})
	if err != nil {
		logrus.WithError(err).Fatal("failed to count posts")
	}
	if n > 0 {
		logrus.Infof("%d posts found, skip demo posts", n)
		logrus.Info("done")
		return
	}

	logrus.Info("import posts")
	t := time.Now().UTC().Add(-time.Duration(len(posts)) * time.Hour)
	for i, v := range posts {
		p := entities.Post{
			Title:     v.Title,
			Content:   v.Content,
			AuthorID:  admin.ID,
			Featured:  v.Featured,
			CreatedAt: t,
			UpdatedAt: t,
		}
		if id, ok := ids[v.Category]; ok {
			p.CategoryID = &id
		}

		if _, err := s.CreatePost(ctx, &p); err != nil {
			logrus.WithError(err).Fatal("failed to put post into db")
		}

		logrus.Infof("%d of %d posts imported", i+1, len(posts))
		t = t.Add(time.Hour)
	}

	logrus.Info("done")
}

func mustGetAdmin(ctx context.Context, s storage.Storage) *entities.User {
	u, err := s.GetUserByUsername(ctx, opts.AdminUsername)
	switch {
	case err == nil:
		if !u.Staff {
			logrus.Warnf("user %s exists and is not staff", u.Username)
		}
		return u
	case errors.Is(err, storage.ErrNotFound):
	default:
		logrus.WithError(err).Fatal("failed to get admin")
	}

	hash, err := auth.HashPassword(opts.AdminPassword)
	if err != nil {
		logrus.WithError(err).Fatal("failed to hash password")
	}

	u = &entities.User{
		Username:     opts.AdminUsername,
		Email:        opts.AdminEmail,
		PasswordHash: hash,
		Staff:        true,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.InTx(ctx, func(s storage.Storage) error {
		id, err := s.CreateUser(ctx, u)
		if err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}
		u.ID = id

		return s.SetProfile(ctx, &entities.Profile{UserID: id})
	}); err != nil {
		logrus.WithError(err).Fatal("failed to create admin")
	}

	logrus.Infof("staff user %s created", u.Username)

	return u
}

// mustImportCategories creates missing categories and returns ids of all categories by name.
func mustImportCategories(ctx context.Context, s storage.Storage) map[string]int64 {
	existing, err := s.ListCategories(ctx)
	if err != nil {
		logrus.WithError(err).Fatal("failed to list categories")
	}

	ids := make(map[string]int64, len(existing)+len(categories))
	for _, v := range existing {
		ids[v.Name] = v.ID
	}

	for i := range categories {
		if _, ok := ids[categories[i].Name]; ok {
			continue
		}

		id, err := s.CreateCategory(ctx, &categories[i])
		if err != nil {
			logrus.WithError(err).Fatalf("failed to create category %s", categories[i].Name)
		}
		ids[categories[i].Name] = id

		logrus.Infof("category %s created", categories[i].Name)
	}

	return ids
}

func mustGetDB() *sql.DB {
	db, err := sql.Open("postgres", opts.Postgres)
	if err != nil {
		logrus.WithError(err).Fatal("failed to create postgres connection")
	}

	if err := db.PingContext(context.Background()); err != nil {
		logrus.WithError(err).Fatal("failed to ping postgres")
	}

	driver, err := migratep.WithInstance(db, &migratep.Config{})
	if err != nil {
		logrus.WithError(err).Fatal("failed to create database migrate driver")
	}

	migrator, err := migrate.NewWithDatabaseInstance(fmt.Sprintf("file://%s", opts.PostgresMigrations), "postgres", driver)
	if err != nil {
		logrus.WithError(err).Fatal("failed to create migrator")
	}

	switch err := migrator.Up(); err {
	case nil:
		logrus.Info("database was migrated")
	case migrate.ErrNoChange:
		logrus.Info("database is up-to-date")
	default:
		logrus.WithError(err).Fatal("failed to migrate db")
	}

	return db
}
