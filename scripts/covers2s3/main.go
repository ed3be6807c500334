package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jessevdk/go-flags"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/Decentr-net/animenexus/internal/media"
	"github.com/Decentr-net/animenexus/internal/storage"
	"github.com/Decentr-net/animenexus/internal/storage/postgres"
)

// nolint:lll,gochecknoglobals
var opts = struct {
	MediaDir    string `long:"media-dir" env:"MEDIA_DIR" default:"media" description:"local directory with uploaded files"`
	Workers     int    `long:"workers" env:"WORKERS" default:"4" description:"concurrent uploads"`
	DryRun      bool   `long:"dry-run" env:"DRY_RUN" description:"only print what would be uploaded"`
	Postgres    string `long:"postgres" env:"POSTGRES" default:"host=localhost port=5432 user=postgres password=root sslmode=disable" description:"postgres dsn"`
	S3Bucket    string `long:"s3.bucket" env:"S3_BUCKET" required:"true" description:"bucket for cover images"`
	S3Region    string `long:"s3.region" env:"S3_REGION" default:"us-east-1" description:"bucket region"`
	S3Endpoint  string `long:"s3.endpoint" env:"S3_ENDPOINT" description:"custom S3 endpoint, e.g. minio"`
	S3PublicURL string `long:"s3.public-url" env:"S3_PUBLIC_URL" description:"base url of uploaded objects"`
}{}

func main() {
	parser := flags.NewParser(&opts, flags.Default)
	parser.ShortDescription = "covers2s3"
	parser.LongDescription = "Moves locally stored post covers to object storage"

	_, err := parser.Parse()

	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			parser.WriteHelp(os.Stdout)
			os.Exit(0)
		}
		logrus.WithError(err).Fatal("error occurred while parsing flags")
	}

	logrus.Info("covers2s3 started")

	ctx := context.Background()

	db, err := sql.Open("postgres", opts.Postgres)
	if err != nil {
		logrus.WithError(err).Fatal("failed to create postgres connection")
	}
	if err := db.PingContext(ctx); err != nil {
		logrus.WithError(err).Fatal("failed to ping postgres")
	}
	s := postgres.New(db)

	store, err := media.NewS3(ctx, media.S3Config{
		Bucket:    opts.S3Bucket,
		Region:    opts.S3Region,
		Endpoint:  opts.S3Endpoint,
		PublicURL: opts.S3PublicURL,
	})
	if err != nil {
		logrus.WithError(err).Fatal("failed to create media store")
	}

	covers, err := s.ListPostCovers(ctx)
	if err != nil {
		logrus.WithError(err).Fatal("failed to list covers")
	}

	logrus.Infof("%d covers found", len(covers))

	gr, gctx := errgroup.WithContext(ctx)
	gr.SetLimit(opts.Workers)

	for _, v := range covers {
		v := v

		if isRemote(v.Cover) {
			continue
		}

		gr.Go(func() error {
			return move(gctx, s, store, v)
		})
	}

	if err := gr.Wait(); err != nil {
		logrus.WithError(err).Fatal("failed to move covers")
	}

	logrus.Info("done")
}

func move(ctx context.Context, s storage.Storage, store media.Store, c storage.PostCover) error {
	key := media.NormalizeKey(c.Cover)
	log := logrus.WithFields(logrus.Fields{"post": c.PostID, "key": key})

	ct, ok := media.ImageContentType(key)
	if !ok {
		log.Warn("not an image, skip")
		return nil
	}

	if opts.DryRun {
		log.Info("would upload")
		return nil
	}

	f, err := os.Open(filepath.Join(opts.MediaDir, filepath.FromSlash(key)))
	if err != nil {
		if os.IsNotExist(err) {
			log.Warn("file not found, skip")
			return nil
		}
		return fmt.Errorf("failed to open %s: %w", key, err)
	}
	defer f.Close() // nolint:errcheck

	url, err := store.Put(ctx, key, f, ct)
	if err != nil {
		return fmt.Errorf("failed to upload cover of post %d: %w", c.PostID, err)
	}

	if err := s.SetPostCover(ctx, c.PostID, url); err != nil {
		return fmt.Errorf("failed to update cover of post %d: %w", c.PostID, err)
	}

	log.WithField("url", url).Info("cover moved")

	return nil
}

func isRemote(cover string) bool {
	return strings.HasPrefix(cover, "http://") || strings.HasPrefix(cover, "https://")
}
