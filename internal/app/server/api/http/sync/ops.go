package sync

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) upsertOp() huma.Operation {
	return huma.Operation{
		OperationID: "sync-upsert-records",
		Method:      http.MethodPut,
		Path:        "/api/v1/sync/{kind}/records",
		Summary:     "Записать пакет записей",
		Description: "Вставляет или заменяет записи по (owner, sync_id). Более старые версии не применяются",
		Tags:        []string{"sync"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.middleware,
	}
}

func (h *Handler) queryOp() huma.Operation {
	return huma.Operation{
		OperationID: "sync-query-records",
		Method:      http.MethodPost,
		Path:        "/api/v1/sync/{kind}/query",
		Summary:     "Получить изменения",
		Description: "Возвращает записи с updated_at >= since постранично в порядке (updated_at, sync_id)",
		Tags:        []string{"sync"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.middleware,
	}
}

func (h *Handler) getSettingsOp() huma.Operation {
	return huma.Operation{
		OperationID: "sync-get-settings",
		Method:      http.MethodGet,
		Path:        "/api/v1/sync/settings",
		Summary:     "Получить настройки",
		Tags:        []string{"sync"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.middleware,
	}
}

func (h *Handler) putSettingsOp() huma.Operation {
	return huma.Operation{
		OperationID:   "sync-put-settings",
		Method:        http.MethodPut,
		Path:          "/api/v1/sync/settings",
		Summary:       "Сохранить настройки",
		Tags:          []string{"sync"},
		DefaultStatus: http.StatusNoContent,
		Security:      []map[string][]string{{"bearer": {}}},
		Middlewares:   h.middleware,
	}
}
