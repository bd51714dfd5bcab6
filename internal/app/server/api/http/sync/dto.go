package sync

import (
	"replikeep/internal/domain/record"
	"replikeep/internal/domain/remote"
	"replikeep/internal/domain/settings"
)

type upsertInput struct {
	Kind record.Kind `path:"kind" doc:"Тип записей"`
	Body remote.UpsertRequest
}

type upsertOutput struct {
	Body remote.UpsertResponse
}

type queryInput struct {
	Kind record.Kind `path:"kind" doc:"Тип записей"`
	Body remote.QueryRequest
}

type queryOutput struct {
	Body remote.QueryResponse
}

type getSettingsInput struct{}

type getSettingsOutput struct {
	Body settings.Document
}

type putSettingsInput struct {
	Body settings.Document
}

type putSettingsOutput struct{}
