package bootstrap

import (
	"context"

	"github.com/cardkiosk/cardkiosk/internal/config"
	"github.com/cardkiosk/cardkiosk/internal/infra/blob"
	"github.com/cardkiosk/cardkiosk/internal/infra/cache"
	"github.com/cardkiosk/cardkiosk/internal/infra/db"
	"github.com/cardkiosk/cardkiosk/internal/infra/logger"
	"github.com/cardkiosk/cardkiosk/internal/modules/handler"
	"github.com/cardkiosk/cardkiosk/internal/modules/model"
	"github.com/cardkiosk/cardkiosk/internal/modules/repo"
	"github.com/cardkiosk/cardkiosk/internal/modules/service"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func BuildContainer() *do.Injector {
	inj := do.New()

	// config
	do.Provide(inj, func(i *do.Injector) (*config.Config, error) {
		return config.Load()
	})

	// logger
	do.Provide(inj, func(i *do.Injector) (*zap.Logger, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return logger.New(cfg.Log.Level)
	})

	// DB
	do.Provide(inj, func(i *do.Injector) (*gorm.DB, error) {
		cfg := do.MustInvoke[*config.Config](i)
		d, err := db.New(cfg)
		if err != nil {
			return nil, err
		}
		// [optional] auto migrate
		if cfg.Database.AutoMigrate {
			_ = d.AutoMigrate(
				&model.Project{},
				&model.Card{},
				&model.ClaimRecord{},
			)
		}
		return d, nil
	})

	// Redis
	do.Provide(inj, func(i *do.Injector) (*redis.Client, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return cache.New(cfg), nil
	})

	// RabbitMQ connection; claim events are optional, an empty URL disables them
	do.Provide(inj, func(i *do.Injector) (*amqp.Connection, error) {
		cfg := do.MustInvoke[*config.Config](i)
		if cfg.RabbitMQ.URL == "" {
			return nil, nil
		}
		return amqp.Dial(cfg.RabbitMQ.URL)
	})

	// S3; ledger export is optional, an empty bucket disables it
	do.Provide(inj, func(i *do.Injector) (*blob.S3Deps, error) {
		cfg := do.MustInvoke[*config.Config](i)
		if cfg.S3.Bucket == "" {
			return nil, nil
		}
		return blob.NewS3(context.Background(), cfg)
	})

	// Repo
	do.Provide(inj, func(i *do.Injector) (repo.ProjectRepo, error) {
		return repo.NewProjectRepo(do.MustInvoke[*gorm.DB](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (repo.CardRepo, error) {
		return repo.NewCardRepo(do.MustInvoke[*gorm.DB](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (repo.ClaimRepo, error) {
		return repo.NewClaimRepo(do.MustInvoke[*gorm.DB](i)), nil
	})

	// Service
	do.Provide(inj, func(i *do.Injector) (service.ClaimService, error) {
		return service.NewClaimService(
			do.MustInvoke[repo.ProjectRepo](i),
			do.MustInvoke[repo.CardRepo](i),
			do.MustInvoke[repo.ClaimRepo](i),
			do.MustInvoke[*zap.Logger](i),
			do.MustInvoke[*amqp.Connection](i),
			do.MustInvoke[*config.Config](i),
		), nil
	})
	do.Provide(inj, func(i *do.Injector) (service.ProjectService, error) {
		return service.NewProjectService(
			do.MustInvoke[repo.ProjectRepo](i),
			do.MustInvoke[repo.CardRepo](i),
			do.MustInvoke[repo.ClaimRepo](i),
			do.MustInvoke[*blob.S3Deps](i),
			do.MustInvoke[*config.Config](i),
		), nil
	})

	// Handler
	do.Provide(inj, func(i *do.Injector) (*handler.ClaimHandler, error) {
		return handler.NewClaimHandler(do.MustInvoke[service.ClaimService](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (*handler.ProjectHandler, error) {
		return handler.NewProjectHandler(do.MustInvoke[service.ProjectService](i)), nil
	})

	return inj
}
