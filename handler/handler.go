package handler

import (
	"github.com/emzola/bibliotheca-circulation/config"
	"github.com/emzola/bibliotheca-circulation/internal/jsonlog"
	"github.com/emzola/bibliotheca-circulation/service"
	"github.com/jellydator/ttlcache/v3"
	"golang.org/x/time/rate"
)

// Handler defines Handler layer.
type Handler struct {
	config   config.Config
	logger   *jsonlog.Logger
	limiters *ttlcache.Cache[string, *rate.Limiter]
	service  service.Service
}

// New creates a new instance of Handler. limiters holds one rate limiter per
// client IP; entries expire once a client has been idle for the cache TTL.
func New(cfg config.Config, logger *jsonlog.Logger, limiters *ttlcache.Cache[string, *rate.Limiter], service service.Service) *Handler {
	return &Handler{
		config:   cfg,
		logger:   logger,
		limiters: limiters,
		service:  service,
	}
}
