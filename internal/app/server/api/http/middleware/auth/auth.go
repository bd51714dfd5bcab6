package auth

import (
	"context"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"
)

// TokenValidator проверяет токен и возвращает владельца.
type TokenValidator interface {
	Validate(ctx context.Context, token string) (string, error)
}

type Auth struct {
	api    huma.API
	tokens TokenValidator
	log    *slog.Logger
}

func New(api huma.API, tokens TokenValidator, log *slog.Logger) *Auth {
	return &Auth{
		api:    api,
		tokens: tokens,
		log:    log.With("component", "auth_middleware"),
	}
}

type contextKey string

const OwnerKey contextKey = "owner"

// Middleware возвращает middleware для Huma с сигнатурой func(ctx Context, next func(Context))
func (a *Auth) Middleware() func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		header := ctx.Header("Authorization")

		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			a.log.Warn("missing bearer token", "path", ctx.URL().Path)
			_ = huma.WriteErr(a.api, ctx, 401, "Unauthorized")
			return
		}

		// Валидируем токен
		owner, err := a.tokens.Validate(ctx.Context(), token)
		if err != nil {
			a.log.Warn("token validation failed", "path", ctx.URL().Path, "error", err)
			_ = huma.WriteErr(a.api, ctx, 401, "Unauthorized")
			return
		}

		next(huma.WithContext(ctx, WithOwner(ctx.Context(), owner)))
	}
}

// WithOwner кладёт владельца в контекст запроса.
func WithOwner(ctx context.Context, owner string) context.Context {
	return context.WithValue(ctx, OwnerKey, owner)
}

// GetOwner возвращает владельца, установленный middleware.
func GetOwner(ctx context.Context) (string, bool) {
	owner, ok := ctx.Value(OwnerKey).(string)
	return owner, ok && owner != ""
}
