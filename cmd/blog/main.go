package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	"github.com/golang-migrate/migrate/v4"
	migratep "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jessevdk/go-flags"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/Decentr-net/logrus/sentry"

	"github.com/Decentr-net/animenexus/internal/auth"
	"github.com/Decentr-net/animenexus/internal/cache"
	"github.com/Decentr-net/animenexus/internal/cache/memory"
	rediscache "github.com/Decentr-net/animenexus/internal/cache/redis"
	"github.com/Decentr-net/animenexus/internal/contact"
	"github.com/Decentr-net/animenexus/internal/health"
	"github.com/Decentr-net/animenexus/internal/media"
	"github.com/Decentr-net/animenexus/internal/middleware"
	"github.com/Decentr-net/animenexus/internal/server"
	"github.com/Decentr-net/animenexus/internal/service/impl"
	"github.com/Decentr-net/animenexus/internal/storage/postgres"
)

// nolint:lll,gochecknoglobals
var opts = struct {
	Host             string        `long:"http.host" env:"HTTP_HOST" default:"0.0.0.0" description:"IP to listen on"`
	Port             int           `long:"http.port" env:"HTTP_PORT" default:"8080" description:"port to listen on for insecure connections, defaults to a random value"`
	RequestTimeout   time.Duration `long:"http.request-timeout" env:"HTTP_REQUEST_TIMEOUT" default:"45s" description:"request processing timeout"`
	AllowedOrigins   []string      `long:"http.allowed-origin" env:"HTTP_ALLOWED_ORIGINS" env-delim:"," description:"CORS allowed origins, all origins are allowed if empty"`
	ResponseCacheTTL time.Duration `long:"http.response-cache-ttl" env:"HTTP_RESPONSE_CACHE_TTL" default:"10s" description:"ttl of cached responses, 0 disables response cache"`

	Postgres                   string `long:"postgres" env:"POSTGRES" default:"host=localhost port=5432 user=postgres password=root sslmode=disable" description:"postgres dsn"`
	PostgresMaxOpenConnections int    `long:"postgres.max_open_connections" env:"POSTGRES_MAX_OPEN_CONNECTIONS" default:"0" description:"postgres maximal open connections count, 0 means unlimited"`
	PostgresMaxIdleConnections int    `long:"postgres.max_idle_connections" env:"POSTGRES_MAX_IDLE_CONNECTIONS" default:"5" description:"postgres maximal idle connections count"`
	PostgresMigrations         string `long:"postgres.migrations" env:"POSTGRES_MIGRATIONS" default:"scripts/migrations/postgres" description:"postgres migrations directory"`

	RedisAddr     string `long:"redis.addr" env:"REDIS_ADDR" description:"redis address, in-memory cache is used if empty"`
	RedisPassword string `long:"redis.password" env:"REDIS_PASSWORD" description:"redis password"`
	RedisDB       int    `long:"redis.db" env:"REDIS_DB" default:"0" description:"redis database"`

	AuthSecret       string        `long:"auth.secret" env:"AUTH_SECRET" required:"true" description:"secret used to sign session cookies"`
	AuthSessionTTL   time.Duration `long:"auth.session-ttl" env:"AUTH_SESSION_TTL" default:"336h" description:"session lifetime"`
	AuthSecureCookie bool          `long:"auth.secure-cookie" env:"AUTH_SECURE_COOKIE" description:"send session cookie over https only"`

	EmailJSURL        string        `long:"emailjs.url" env:"EMAILJS_URL" default:"https://api.emailjs.com/api/v1.0/email/send" description:"EmailJS send endpoint"`
	EmailJSServiceID  string        `long:"emailjs.service-id" env:"EMAILJS_SERVICE_ID" description:"EmailJS service id"`
	EmailJSTemplateID string        `long:"emailjs.template-id" env:"EMAILJS_TEMPLATE_ID" description:"EmailJS template id"`
	EmailJSUserID     string        `long:"emailjs.user-id" env:"EMAILJS_USER_ID" description:"EmailJS public key"`
	EmailJSTimeout    time.Duration `long:"emailjs.timeout" env:"EMAILJS_TIMEOUT" default:"6s" description:"EmailJS request timeout"`

	S3Bucket    string `long:"s3.bucket" env:"S3_BUCKET" description:"bucket for cover images, uploads are disabled if empty"`
	S3Region    string `long:"s3.region" env:"S3_REGION" default:"us-east-1" description:"bucket region"`
	S3Endpoint  string `long:"s3.endpoint" env:"S3_ENDPOINT" description:"custom S3 endpoint, e.g. minio"`
	S3PublicURL string `long:"s3.public-url" env:"S3_PUBLIC_URL" description:"base url of uploaded objects"`

	ContactRPS   float64 `long:"contact.rps" env:"CONTACT_RPS" default:"0.1" description:"contact form submissions per second allowed per IP"`
	ContactBurst int     `long:"contact.burst" env:"CONTACT_BURST" default:"3" description:"contact form submissions burst per IP"`

	LogLevel  string `long:"log.level" env:"LOG_LEVEL" default:"info" description:"Log level" choice:"debug" choice:"info" choice:"warning" choice:"error"`
	SentryDSN string `long:"sentry.dsn" env:"SENTRY_DSN" description:"sentry dsn"`
}{}

var errTerminated = errors.New("terminated")

func main() {
	parser := flags.NewParser(&opts, flags.Default)
	parser.ShortDescription = "AnimeNexus"
	parser.LongDescription = "AnimeNexus blog service"

	_, err := parser.Parse()

	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			parser.WriteHelp(os.Stdout)
			os.Exit(0)
		}
		logrus.WithError(err).Fatal("error occurred while parsing flags")
	}

	lvl, _ := logrus.ParseLevel(opts.LogLevel) // err will always be nil
	logrus.SetLevel(lvl)

	if opts.SentryDSN != "" {
		hook, err := sentry.NewHook(sentry.Options{
			Dsn:              opts.SentryDSN,
			AttachStacktrace: true,
			Release:          health.GetVersion(),
			ServerName:       "blog",
		}, logrus.PanicLevel, logrus.FatalLevel, logrus.ErrorLevel)

		if err != nil {
			logrus.WithError(err).Fatal("failed to init sentry")
		}

		logrus.AddHook(hook)
	} else {
		logrus.Info("empty sentry dsn")
		logrus.Warn("skip sentry initialization")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db := mustGetDB()
	s := postgres.New(db)
	c := mustGetCache(ctx)

	store, err := media.NewS3(ctx, media.S3Config{
		Bucket:    opts.S3Bucket,
		Region:    opts.S3Region,
		Endpoint:  opts.S3Endpoint,
		PublicURL: opts.S3PublicURL,
	})
	if err != nil {
		logrus.WithError(err).Fatal("failed to create media store")
	}
	if opts.S3Bucket == "" {
		logrus.Warn("empty s3 bucket, cover uploads are disabled")
	}

	sender := contact.New(contact.Config{
		URL:        opts.EmailJSURL,
		ServiceID:  opts.EmailJSServiceID,
		TemplateID: opts.EmailJSTemplateID,
		UserID:     opts.EmailJSUserID,
		Timeout:    opts.EmailJSTimeout,
	})

	r := chi.NewMux()
	server.SetupRouter(
		impl.New(s, c, sender, store),
		auth.NewSessions(opts.AuthSecret, opts.AuthSessionTTL, opts.AuthSecureCookie),
		r,
		server.Config{
			Timeout:          opts.RequestTimeout,
			AllowedOrigins:   opts.AllowedOrigins,
			Cache:            c,
			ResponseCacheTTL: opts.ResponseCacheTTL,
			ContactLimiter:   middleware.NewRateLimiter(ctx, opts.ContactRPS, opts.ContactBurst),
			Pingers: []health.Pinger{
				health.SubjectPinger("postgres", s.Ping),
				health.SubjectPinger("cache", c.Ping),
			},
		},
	)

	srv := http.Server{
		Addr:              fmt.Sprintf("%s:%d", opts.Host, opts.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	gr, _ := errgroup.WithContext(ctx)
	gr.Go(srv.ListenAndServe)
	gr.Go(func() error {
		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

		s := <-sigs

		logrus.Infof("terminating by %s signal", s)

		cancel()

		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logrus.WithError(err).Error("failed to shutdown http server gracefully")
		}

		return errTerminated
	})

	logrus.Info("service started")

	if err := gr.Wait(); err != nil && !errors.Is(err, errTerminated) && !errors.Is(err, http.ErrServerClosed) {
		logrus.WithError(err).Fatal("service unexpectedly closed")
	}
}

func mustGetCache(ctx context.Context) cache.Cache {
	if opts.RedisAddr == "" {
		logrus.Info("empty redis address, in-memory cache is used")
		return memory.New()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     opts.RedisAddr,
		Password: opts.RedisPassword,
		DB:       opts.RedisDB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		logrus.WithError(err).Fatal("failed to ping redis")
	}

	return rediscache.New(client)
}

func mustGetDB() *sql.DB {
	db, err := sql.Open("postgres", opts.Postgres)
	if err != nil {
		logrus.WithError(err).Fatal("failed to create postgres connection")
	}
	db.SetMaxOpenConns(opts.PostgresMaxOpenConnections)
	db.SetMaxIdleConns(opts.PostgresMaxIdleConnections)

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

	switch v, d, err := migrator.Version(); err {
	case nil:
		logrus.Infof("database version %d with dirty state %t", v, d)
	case migrate.ErrNilVersion:
		logrus.Info("database version: nil")
	default:
		logrus.WithError(err).Fatal("failed to get version")
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
