package sync

import (
	"context"
	"errors"
	"net/http"

	"replikeep/internal/domain/record"
	"replikeep/internal/domain/remote"
	"replikeep/internal/domain/settings"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"
)

type Handler struct {
	service    remote.Servicer
	log        *slog.Logger
	middleware huma.Middlewares
}

func NewHandler(service remote.Servicer, log *slog.Logger, middleware huma.Middlewares) *Handler {
	return &Handler{
		service:    service,
		log:        log.With("component", "sync_handler"),
		middleware: middleware,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.upsertOp(), h.upsert)
	huma.Register(api, h.queryOp(), h.query)
	huma.Register(api, h.getSettingsOp(), h.getSettings)
	huma.Register(api, h.putSettingsOp(), h.putSettings)
}

func (h *Handler) upsert(ctx context.Context, input *upsertInput) (*upsertOutput, error) {
	response, err := h.service.Upsert(ctx, input.Kind, input.Body)
	if err != nil {
		return nil, h.mapError("upsert", err)
	}

	return &upsertOutput{Body: *response}, nil
}

func (h *Handler) query(ctx context.Context, input *queryInput) (*queryOutput, error) {
	response, err := h.service.Query(ctx, input.Kind, input.Body)
	if err != nil {
		return nil, h.mapError("query", err)
	}

	return &queryOutput{Body: *response}, nil
}

func (h *Handler) getSettings(ctx context.Context, _ *getSettingsInput) (*getSettingsOutput, error) {
	doc, err := h.service.GetSettings(ctx)
	if err != nil {
		return nil, h.mapError("get settings", err)
	}

	return &getSettingsOutput{Body: *doc}, nil
}

func (h *Handler) putSettings(ctx context.Context, input *putSettingsInput) (*putSettingsOutput, error) {
	if err := h.service.PutSettings(ctx, input.Body); err != nil {
		return nil, h.mapError("put settings", err)
	}

	return &putSettingsOutput{}, nil
}

// mapError переводит ошибки домена в HTTP-ответы.
func (h *Handler) mapError(op string, err error) error {
	switch {
	case errors.Is(err, remote.ErrNotAuthenticated):
		return huma.Error401Unauthorized("Unauthorized")
	case errors.Is(err, settings.ErrNotFound):
		return huma.Error404NotFound("settings not found")
	case errors.Is(err, remote.ErrBatchTooLarge):
		return huma.NewError(http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, record.ErrUnknownKind),
		errors.Is(err, remote.ErrInvalidRecord),
		errors.Is(err, remote.ErrInvalidSettings):
		return huma.Error400BadRequest(err.Error())
	}

	h.log.Error("request failed", "op", op, "error", err)
	return huma.Error500InternalServerError("internal error")
}
