package sync

import (
	"context"
	"errors"
	"time"

	"replikeep/internal/domain/record"
)

// pull получает удалённые изменения одного типа и применяет их по
// решению Resolver. Возвращает число применённых записей.
func (s *Service) pull(
	ctx context.Context,
	owner string,
	repo record.Repository,
	since *time.Time,
	now time.Time,
) (int, error) {
	spec := repo.Spec()
	q := RemoteQuery{CreatedFrom: spec.WindowStart(now)}
	if since != nil {
		from := since.Add(-s.config.ClockDriftBuffer)
		q.Since = &from
	}

	remotes, err := s.remote.QueryModifiedSince(ctx, spec.Kind, owner, q)
	if err != nil {
		return 0, err
	}

	log := s.log.With("owner", owner, "kind", spec.Kind)
	applied := 0
	for _, rem := range remotes {
		if err := ctx.Err(); err != nil {
			return applied, err
		}
		if rem.Owner != "" && rem.Owner != owner {
			log.Warn("skipping remote record of another owner", "sync_id", rem.SyncID)
			continue
		}
		if rem.SyncID == "" {
			log.Warn("skipping remote record without sync id")
			continue
		}
		if !spec.InWindow(rem.CreatedAt, now) {
			continue
		}
		rem.Owner = owner
		rem.Kind = spec.Kind

		ok, err := s.apply(ctx, repo, rem)
		if err != nil {
			return applied, err
		}
		if ok {
			applied++
		}
	}

	if applied > 0 {
		log.Debug("pulled records", "received", len(remotes), "applied", applied)
	}
	return applied, nil
}

func (s *Service) apply(ctx context.Context, repo record.Repository, rem record.Remote) (bool, error) {
	local, err := repo.FindBySyncID(ctx, rem.Owner, rem.SyncID)
	switch {
	case errors.Is(err, record.ErrNotFound):
		if _, err := repo.Insert(ctx, record.FromRemote(rem, s.now())); err != nil {
			return false, localErr("insert pulled record", err)
		}
		return true, nil
	case err != nil:
		return false, localErr("find record by sync id", err)
	}

	if s.config.Resolver.Resolve(local, rem) == KeepLocal {
		return false, nil
	}

	seen := local.UpdatedAt
	local.ApplyRemote(rem, s.now())
	replaced, err := repo.ReplaceIfUnchanged(ctx, local, seen)
	if err != nil {
		return false, localErr("update pulled record", err)
	}
	if !replaced {
		// Запись изменили локально после чтения: новая правка остаётся
		// и уйдёт при следующей отправке.
		s.log.Debug("record changed during pull, kept local", "sync_id", rem.SyncID)
		return false, nil
	}
	return true, nil
}
