package remote

import (
	"time"

	"replikeep/internal/domain/record"
)

// UpsertRequest запрос на пакетную запись
type UpsertRequest struct {
	Records []record.Remote `json:"records" minItems:"1"`
}

// UpsertResponse ответ на пакетную запись
type UpsertResponse struct {
	Status string `json:"status"`
	// Applied - число записей, изменивших состояние хранилища.
	Applied int `json:"applied"`
	// Stale - записи, отброшенные из-за более новой версии на сервере.
	Stale  int            `json:"stale,omitempty"`
	Failed int            `json:"failed,omitempty"`
	Errors []FailedRecord `json:"errors,omitempty"`
}

// FailedRecord - запись, отклонённая при пакетной записи.
type FailedRecord struct {
	Index  int    `json:"index"`
	SyncID string `json:"sync_id,omitempty"`
	Error  string `json:"error"`
}

// QueryRequest запрос на получение изменений
type QueryRequest struct {
	Since       *time.Time `json:"since,omitempty" format:"date-time" doc:"Нижняя граница updated_at, включительно"`
	CreatedFrom *time.Time `json:"created_from,omitempty" format:"date-time" doc:"Нижняя граница created_at"`
	After       *Cursor    `json:"after,omitempty" doc:"Курсор предыдущей страницы"`
	Limit       int        `json:"limit,omitempty" minimum:"0" maximum:"1000"`
}

// QueryResponse ответ с изменениями
type QueryResponse struct {
	Status     string          `json:"status"`
	Records    []record.Remote `json:"records"`
	HasMore    bool            `json:"has_more,omitempty"`
	Next       *Cursor         `json:"next,omitempty"`
	ServerTime time.Time       `json:"server_time"`
}
