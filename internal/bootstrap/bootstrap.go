// Package bootstrap builds the application layers shared by the API server
// and the circulationctl command from a Config.
package bootstrap

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/emzola/bibliotheca-circulation/clients"
	"github.com/emzola/bibliotheca-circulation/config"
	"github.com/emzola/bibliotheca-circulation/internal/jsonlog"
	"github.com/emzola/bibliotheca-circulation/internal/mailer"
	"github.com/emzola/bibliotheca-circulation/notifier"
	"github.com/emzola/bibliotheca-circulation/repository"
	"github.com/emzola/bibliotheca-circulation/repository/memory"
	"github.com/emzola/bibliotheca-circulation/repository/postgres"
	"github.com/emzola/bibliotheca-circulation/service"
)

const webhookTimeout = 10 * time.Second

// Repository opens the Postgres store when a DSN is configured and falls
// back to the in-memory store otherwise. The returned func releases it.
func Repository(ctx context.Context, cfg config.Config, logger *jsonlog.Logger) (repository.Repository, func(), error) {
	if cfg.Database.DSN == "" {
		logger.PrintWarn("no database DSN configured, using in-memory store", nil)
		return memory.New(), func() {}, nil
	}
	db, err := postgres.OpenDBConn(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	logger.PrintInfo("database connection pool established", nil)
	return repository.New(db), func() { db.Close() }, nil
}

// Notifier returns the notification channel named by the config.
func Notifier(cfg config.Config, users notifier.UserGetter, logger *jsonlog.Logger) (notifier.Notifier, error) {
	switch cfg.Lending.NotificationChannel {
	case config.ChannelEmail:
		m := mailer.New(cfg.Smtp.Host, cfg.Smtp.Port, cfg.Smtp.Username, cfg.Smtp.Password, cfg.Smtp.Sender)
		return notifier.NewEmail(m, users), nil
	case config.ChannelWebhook:
		if cfg.Lending.WebhookURL == "" {
			return notifier.Notifier{}, fmt.Errorf("notification channel %q needs a webhook url", config.ChannelWebhook)
		}
		return notifier.NewWebhook(clients.NewHTTPClient(webhookTimeout), cfg.Lending.WebhookURL), nil
	case config.ChannelLog, "":
		return notifier.NewLog(logger), nil
	}
	return notifier.Notifier{}, fmt.Errorf("unknown notification channel %q", cfg.Lending.NotificationChannel)
}

// Service wires the lending service over repo. Digital content is enabled
// when an S3 bucket is configured, and the catalogue named by
// Lending.SeedFile is loaded before the service is returned.
func Service(ctx context.Context, cfg config.Config, wg *sync.WaitGroup, logger *jsonlog.Logger, repo repository.Repository) (service.Service, error) {
	n, err := Notifier(cfg, repo, logger)
	if err != nil {
		return nil, err
	}
	var opts []service.Option
	if cfg.S3.Bucket != "" {
		store, err := clients.NewS3Store(ctx, cfg)
		if err != nil {
			return nil, err
		}
		opts = append(opts, service.WithContentStore(store))
	}
	svc := service.New(cfg, wg, logger, repo, n, opts...)
	if cfg.Lending.SeedFile != "" {
		if _, err := SeedFile(ctx, svc, cfg.Lending.SeedFile, logger); err != nil {
			return nil, err
		}
	}
	return svc, nil
}

// SeedFile loads the catalogue at path into svc.
func SeedFile(ctx context.Context, svc service.Service, path string, logger *jsonlog.Logger) (service.SeedResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return service.SeedResult{}, err
	}
	defer f.Close()
	catalogue, err := service.LoadCatalogue(f)
	if err != nil {
		return service.SeedResult{}, err
	}
	result, err := svc.Seed(ctx, catalogue)
	if err != nil {
		return result, err
	}
	logger.PrintInfo("catalogue seeded", map[string]string{
		"file":          path,
		"books_created": fmt.Sprint(result.BooksCreated),
		"users_created": fmt.Sprint(result.UsersCreated),
		"skipped":       fmt.Sprint(result.Skipped),
	})
	return result, nil
}
