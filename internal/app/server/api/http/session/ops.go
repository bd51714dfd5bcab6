package session

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) whoamiOp() huma.Operation {
	return huma.Operation{
		OperationID: "auth-whoami",
		Method:      http.MethodGet,
		Path:        "/api/v1/auth/whoami",
		Summary:     "Проверка токена",
		Description: "Возвращает владельца, которому выпущен токен",
		Tags:        []string{"auth"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.middleware,
	}
}
