// Package api собирает HTTP API сервера синхронизации.
//
//	GET  /api/v1/health                # Проверка доступности (публичный)
//	GET  /api/v1/auth/whoami           # Владелец токена (auth)
//	PUT  /api/v1/sync/{kind}/records   # Записать пакет записей (auth)
//	POST /api/v1/sync/{kind}/query     # Получить изменения (auth)
//	GET  /api/v1/sync/settings         # Получить настройки (auth)
//	PUT  /api/v1/sync/settings         # Сохранить настройки (auth)
package api

import (
	healthAPI "replikeep/internal/app/server/api/http/health"
	"replikeep/internal/app/server/api/http/middleware"
	"replikeep/internal/app/server/api/http/middleware/auth"
	"replikeep/internal/app/server/api/http/middleware/logger"
	sessionAPI "replikeep/internal/app/server/api/http/session"
	syncAPI "replikeep/internal/app/server/api/http/sync"
	"replikeep/internal/domain/remote"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"golang.org/x/exp/slog"
)

type Handlers struct {
	Health  *healthAPI.Handler
	Session *sessionAPI.Handler
	Sync    *syncAPI.Handler
}

// New создает *chi.Mux с ВСЕМИ операциями через huma.Register
func New(repo remote.Repository, tokens auth.TokenValidator, log *slog.Logger, config *remote.ServiceConfig) *chi.Mux {
	mux := chi.NewMux()

	humaConfig := huma.DefaultConfig("Replikeep Sync API", "1.0.0")
	humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {Type: "http", Scheme: "bearer", BearerFormat: "JWT"},
	}

	API := humachi.New(mux, humaConfig)

	h := handlers(API, repo, tokens, log, config)
	h.Health.SetupRoutes(API)
	h.Session.SetupRoutes(API)
	h.Sync.SetupRoutes(API)

	return mux
}

func handlers(
	API huma.API,
	repo remote.Repository,
	tokens auth.TokenValidator,
	log *slog.Logger,
	config *remote.ServiceConfig,
) *Handlers {
	authMW := auth.New(API, tokens, log)
	loggerMW := logger.New(log)
	middlewares := middleware.NewContainer()

	middlewares.Add(loggerMW.Middleware())
	healthHandler := healthAPI.NewHandler(log, middlewares.GetAllAndClear())

	middlewares.Add(loggerMW.Middleware())
	middlewares.Add(authMW.Middleware())
	sessionHandler := sessionAPI.NewHandler(log, middlewares.GetAllAndClear())

	remoteService := remote.NewService(repo, log, config)
	middlewares.Add(loggerMW.Middleware())
	middlewares.Add(authMW.Middleware())
	syncHandler := syncAPI.NewHandler(remoteService, log, middlewares.GetAllAndClear())

	return &Handlers{
		Health:  healthHandler,
		Session: sessionHandler,
		Sync:    syncHandler,
	}
}
