package main

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/emzola/bibliotheca-circulation/config"
	"github.com/emzola/bibliotheca-circulation/handler"
	"github.com/emzola/bibliotheca-circulation/internal/bootstrap"
	"github.com/emzola/bibliotheca-circulation/internal/jsonlog"
	"github.com/emzola/bibliotheca-circulation/service"
	"github.com/jellydator/ttlcache/v3"
	"golang.org/x/time/rate"
)

// app defines the application's layers and shared resources.
type app struct {
	config      config.Config
	service     service.Service
	handler     *handler.Handler
	stopSweeper context.CancelFunc
}

// @title  Bibliotheca Circulation API
// @version 1.0.0
// @description Lending, reservation and fine tracking for a library catalogue.
// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html
// @BasePath /
func main() {
	logger := jsonlog.New(os.Stdout, jsonlog.LevelInfo)

	// Initialize configuration
	cfg, err := config.Decode()
	if err != nil {
		logger.PrintFatal(err, nil)
	}
	level, err := jsonlog.ParseLevel(cfg.Log.Level)
	if err != nil {
		logger.PrintFatal(err, nil)
	}
	logger = jsonlog.New(os.Stdout, level)

	ctx := context.Background()

	// Storage: Postgres when a DSN is set, in memory otherwise
	repo, closeRepo, err := bootstrap.Repository(ctx, cfg, logger)
	if err != nil {
		logger.PrintFatal(err, nil)
	}
	defer closeRepo()

	// Other shared resources: waitgroup and per-client rate limiters
	var wg sync.WaitGroup
	limiters := ttlcache.New(ttlcache.WithTTL[string, *rate.Limiter](3 * time.Minute))
	go limiters.Start()
	defer limiters.Stop()

	// Application layers
	svc, err := bootstrap.Service(ctx, cfg, &wg, logger, repo)
	if err != nil {
		logger.PrintFatal(err, nil)
	}
	h := handler.New(cfg, logger, limiters, svc)

	sweepCtx, stopSweeper := context.WithCancel(ctx)
	svc.StartSweeper(sweepCtx, cfg.Lending.SweepInterval)

	app := &app{
		config:      cfg,
		service:     svc,
		handler:     h,
		stopSweeper: stopSweeper,
	}

	// Start HTTP server
	err = app.serve(&wg, logger)
	if err != nil {
		logger.PrintFatal(err, nil)
	}
}
