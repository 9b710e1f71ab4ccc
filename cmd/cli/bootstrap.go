package cli

import (
	"context"
	"errors"
	"fmt"

	"notify-dispatcher/internal/notification/repository"
	"notify-dispatcher/internal/notification/retry"
	"notify-dispatcher/internal/notification/scheduler"
	"notify-dispatcher/internal/notification/usecase"
	"notify-dispatcher/pkg/config"
	fbapp "notify-dispatcher/pkg/firebase"
	"notify-dispatcher/pkg/fcm"

	firebase "firebase.google.com/go/v4"
	"github.com/wb-go/wbf/zlog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// application holds the wired dependencies of one process
type application struct {
	cfg      *config.Config
	firebase *firebase.App
	repo     repository.Repository
	usecase  usecase.NotificationUsecase
	driver   *scheduler.Driver
	closers  []func() error
}

func newApplication(ctx context.Context, cfg *config.Config) (*application, error) {
	app := &application{cfg: cfg}

	fb, err := fbapp.NewApp(ctx, cfg.GoogleProjectID, credentials(cfg))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", config.ErrInvalidConfig, err)
	}
	app.firebase = fb

	if err := app.initRepository(ctx); err != nil {
		app.Close()
		return nil, err
	}

	sender, err := fcm.NewClient(ctx, fb)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("%w: %w", config.ErrInvalidConfig, err)
	}

	claimer := usecase.NewClaimer(app.repo, cfg.PageSize)
	dispatcher := usecase.NewDispatcher(sender, cfg.AndroidChannelID)
	recorder := usecase.NewRecorder(app.repo, retry.Policy{
		MaxAttempts: cfg.MaxAttempts,
		Pause:       cfg.RetryPause,
	}, cfg.StoreRetry)

	app.driver = scheduler.NewDriver(claimer, dispatcher, recorder, scheduler.DriverConfig{
		MaxBatches: cfg.MaxBatches,
		DryRun:     cfg.DryRun,
	})
	app.usecase = usecase.NewNotificationUsecase(app.repo)

	return app, nil
}

func (a *application) initRepository(ctx context.Context) error {
	switch a.cfg.StoreDriver {
	case config.StoreFirestore:
		client, err := a.firebase.Firestore(ctx)
		if err != nil {
			return fmt.Errorf("failed to create firestore client: %w", err)
		}
		a.closers = append(a.closers, client.Close)
		a.repo = repository.NewFirestoreRepository(client, repository.Collections{
			Jobs:        a.cfg.JobsCollection,
			History:     a.cfg.HistoryCollection,
			DeadLetters: a.cfg.DeadLetterCollection,
		})

	case config.StorePostgres:
		db, err := gorm.Open(postgres.Open(a.cfg.DatabaseURL), &gorm.Config{})
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return fmt.Errorf("failed to get sql db: %w", err)
		}
		a.closers = append(a.closers, sqlDB.Close)
		repo, err := repository.NewGormRepository(db)
		if err != nil {
			return err
		}
		a.repo = repo

	case config.StoreMemory:
		zlog.Logger.Warn().Str("component", "bootstrap").Msg("using in-memory store, jobs are lost on exit")
		a.repo = repository.NewMemoryRepository()

	default:
		return fmt.Errorf("%w: unknown store driver %q", config.ErrInvalidConfig, a.cfg.StoreDriver)
	}

	zlog.Logger.Info().Str("component", "bootstrap").Str("store", a.cfg.StoreDriver).Msg("store initialized")
	return nil
}

func (a *application) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func credentials(cfg *config.Config) fbapp.Credentials {
	return fbapp.Credentials{File: cfg.FirebaseCredentials, JSON: cfg.FirebaseCredentialsJSON}
}
