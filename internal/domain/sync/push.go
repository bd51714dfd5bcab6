package sync

import (
	"context"
	"errors"
	"time"

	"replikeep/internal/domain/record"
)

// push отправляет локальные изменения одного типа пачками.
//
// Возвращает число отправленных записей и ошибки отдельных записей.
// Ошибка результата означает, что отправка типа прервана: LocalStoreError
// прерывает весь прогон, ErrUnreachable только этот тип.
func (s *Service) push(
	ctx context.Context,
	owner string,
	repo record.Repository,
	since *time.Time,
	now time.Time,
) (int, []RecordError, error) {
	spec := repo.Spec()
	q := record.Query{
		Since:           since,
		IncludeUnsynced: spec.TracksStatus(),
		CreatedFrom:     spec.WindowStart(now),
	}

	recs, err := repo.ListModifiedSince(ctx, owner, q)
	if err != nil {
		return 0, nil, localErr("list modified "+spec.Kind.String(), err)
	}
	if len(recs) == 0 {
		return 0, nil, nil
	}

	log := s.log.With("owner", owner, "kind", spec.Kind)
	log.Debug("pushing records", "count", len(recs))

	pushed := 0
	var failed []RecordError
	for from := 0; from < len(recs); from += s.config.PushBatchSize {
		if err := ctx.Err(); err != nil {
			return pushed, failed, err
		}

		batch := recs[from:min(from+s.config.PushBatchSize, len(recs))]
		wire := make([]record.Remote, len(batch))
		for i, rec := range batch {
			wire[i] = rec.ToRemote()
		}

		rejected, batchErr := s.remote.UpsertBatch(ctx, spec.Kind, wire)
		if batchErr != nil {
			log.Warn("failed to push batch", "count", len(batch), "error", batchErr)
		}

		for i, rec := range batch {
			recErr := batchErr
			if recErr == nil {
				recErr = rejected[i]
			}

			if recErr != nil {
				if batchErr == nil {
					log.Warn("record rejected", "sync_id", rec.SyncID, "error", recErr)
				}
				failed = append(failed, RecordError{SyncID: rec.SyncID, Err: recErr})
				if _, err := repo.MarkStatus(ctx, rec.LocalID, rec.UpdatedAt, record.StatusFailed, nil); err != nil {
					return pushed, failed, localErr("mark record failed", err)
				}
				continue
			}

			pushedAt := s.now()
			marked, err := repo.MarkStatus(ctx, rec.LocalID, rec.UpdatedAt, record.StatusSynced, &pushedAt)
			if err != nil {
				return pushed, failed, localErr("mark record synced", err)
			}
			if !marked {
				log.Debug("record changed during push, left pending", "sync_id", rec.SyncID)
			}
			pushed++
		}

		if errors.Is(batchErr, ErrUnreachable) {
			return pushed, failed, batchErr
		}
	}

	return pushed, failed, nil
}
