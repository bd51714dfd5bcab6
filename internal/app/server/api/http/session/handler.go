package session

import (
	"context"

	"replikeep/internal/app/server/api/http/middleware/auth"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"
)

type Handler struct {
	log        *slog.Logger
	middleware huma.Middlewares
}

func NewHandler(log *slog.Logger, middleware huma.Middlewares) *Handler {
	return &Handler{
		log:        log,
		middleware: middleware,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.whoamiOp(), h.whoami)
}

func (h *Handler) whoami(ctx context.Context, _ *whoamiInput) (*whoamiOutput, error) {
	owner, ok := auth.GetOwner(ctx)
	if !ok {
		return nil, huma.Error401Unauthorized("Unauthorized")
	}

	return &whoamiOutput{
		Body: WhoamiResponse{Owner: owner, Status: "Ok"},
	}, nil
}
