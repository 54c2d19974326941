package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/rsaf-qualification-api/internal/models"
	"github.com/noah-isme/rsaf-qualification-api/internal/repository"
	"github.com/noah-isme/rsaf-qualification-api/internal/service"
	"github.com/noah-isme/rsaf-qualification-api/pkg/config"
	"github.com/noah-isme/rsaf-qualification-api/pkg/database"
	"github.com/noah-isme/rsaf-qualification-api/pkg/storage"
)

const readyTimeout = 2 * time.Second

type enrollmentRepository interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.Enrollment, error)
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	CreateUnlessBlocked(ctx context.Context, enrollment *models.Enrollment, blocked func(existing []models.Enrollment) bool) error
	Update(ctx context.Context, enrollment *models.Enrollment, expected models.EnrollmentStatus) error
}

// storeSet bundles the selected storage driver.
type storeSet struct {
	kv          storage.KeyValueStore
	enrollments enrollmentRepository
	ping        func(context.Context) error
	closers     []func() error
}

// Ready checks that the backing store answers.
func (s *storeSet) Ready() error {
	ctx, cancel := context.WithTimeout(context.Background(), readyTimeout)
	defer cancel()
	if s.ping != nil {
		return s.ping(ctx)
	}
	_, err := s.enrollments.List(ctx, models.EnrollmentFilter{})
	return err
}

// Close releases driver connections.
func (s *storeSet) Close() {
	for _, closeFn := range s.closers {
		_ = closeFn()
	}
}

func openStores(ctx context.Context, cfg *config.Config, metrics *service.MetricsService, logr *zap.Logger) (*storeSet, error) {
	set := &storeSet{}

	switch cfg.Storage.Driver {
	case config.StorageDriverPostgres:
		db, err := database.NewPostgres(cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		set.closers = append(set.closers, db.Close)
		if err := database.Migrate(ctx, db); err != nil {
			set.Close()
			return nil, err
		}
		set.kv = storage.NewPostgresStore(db)
		set.enrollments = repository.NewEnrollmentRepository(db)
		set.ping = db.PingContext
		logr.Sugar().Infow("storage ready", "driver", cfg.Storage.Driver, "database", cfg.Database.Name)
		return set, nil
	case config.StorageDriverRedis:
		client, err := storage.NewRedisClient(cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		set.closers = append(set.closers, client.Close)
		set.kv = storage.NewRedisStore(client, "rsaf")
		set.ping = func(ctx context.Context) error { return client.Ping(ctx).Err() }
	case config.StorageDriverMemory:
		set.kv = storage.NewMemoryStore()
	case config.StorageDriverFile, "":
		local, err := storage.NewLocalStorage(cfg.Storage.Dir)
		if err != nil {
			return nil, err
		}
		set.kv = local
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}

	blob := repository.NewBlobEnrollmentRepository(set.kv, cfg.Storage.EnrollmentsKey, repository.WithSaveObserver(metrics.ObserveStoreSave))
	if err := blob.Load(ctx); err != nil {
		set.Close()
		return nil, err
	}
	set.enrollments = blob
	logr.Sugar().Infow("storage ready", "driver", cfg.Storage.Driver, "key", cfg.Storage.EnrollmentsKey)
	return set, nil
}
