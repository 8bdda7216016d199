package bootstrap

import (
	"context"

	"github.com/getsentry/sentry-go"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/senzi/llm-render-box/internal/config"
	"github.com/senzi/llm-render-box/internal/db"
	apphttp "github.com/senzi/llm-render-box/internal/http"
	"github.com/senzi/llm-render-box/internal/idgen"
	"github.com/senzi/llm-render-box/internal/pages"
)

type Dependencies struct {
	Config    config.Config
	Logger    *logrus.Logger
	SentryHub *sentry.Hub

	// IDGenerator overrides the page id generator; defaults to UUIDv7.
	IDGenerator idgen.Generator
}

type Result struct {
	Store      *pages.Store
	HTTPServer *apphttp.Server
	Database   *gorm.DB
	Cleanup    func() error
}

// Build opens storage, primes the page store and returns the HTTP transport serving it.
func Build(ctx context.Context, deps Dependencies) (Result, error) {
	conn, err := db.Open(db.Options{Path: deps.Config.DBPath})
	if err != nil {
		return Result{}, eris.Wrap(err, "opening database")
	}

	closeOnError := func(wrapper error) (Result, error) {
		if closeErr := db.Close(conn); closeErr != nil && deps.Logger != nil {
			deps.Logger.WithError(closeErr).Error("closing database after bootstrap failure")
		}
		return Result{}, wrapper
	}

	if err := pages.Migrate(ctx, conn, deps.Logger); err != nil {
		return closeOnError(eris.Wrap(err, "running pages migrations"))
	}

	repo, err := pages.NewRepository(conn, deps.Logger)
	if err != nil {
		return closeOnError(eris.Wrap(err, "creating pages repository"))
	}

	store, err := pages.NewStore(pages.StoreOptions{
		Repository:  repo,
		IDGenerator: deps.IDGenerator,
		Logger:      deps.Logger,
		SentryHub:   deps.SentryHub,
	})
	if err != nil {
		return closeOnError(eris.Wrap(err, "creating page store"))
	}

	if err := store.LoadPages(ctx); err != nil {
		return closeOnError(eris.Wrap(err, "loading pages"))
	}

	httpServer, err := apphttp.NewServer(apphttp.Options{
		Pages:     store,
		Database:  conn,
		Logger:    deps.Logger,
		SentryHub: deps.SentryHub,
		RateLimiter: apphttp.RateLimiterSettings{
			Burst:             deps.Config.RateLimit.Burst,
			RequestsPerSecond: deps.Config.RateLimit.RequestsPerSecond,
			ClientTTL:         deps.Config.RateLimit.ClientTTL,
		},
	})
	if err != nil {
		return closeOnError(eris.Wrap(err, "initialising http server"))
	}

	cleanup := func() error {
		httpServer.Close()
		return db.Close(conn)
	}

	return Result{
		Store:      store,
		HTTPServer: httpServer,
		Database:   conn,
		Cleanup:    cleanup,
	}, nil
}
