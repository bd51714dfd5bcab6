package sync

import (
	"context"
	"errors"
	"time"

	"replikeep/internal/domain/settings"
)

// syncSettings сливает локальные и удалённые настройки, сохраняет результат
// локально и отправляет его обратно. Ошибка результата - только
// LocalStoreError; удалённые сбои попадают в SettingsResult.Err.
func (s *Service) syncSettings(ctx context.Context, owner string, now time.Time) (SettingsResult, error) {
	var res SettingsResult
	if s.settings == nil {
		return res, nil
	}

	local, err := s.settings.Get(ctx, owner)
	if errors.Is(err, settings.ErrNotFound) {
		local = nil
	} else if err != nil {
		return res, localErr("read settings", err)
	}

	var sealer settings.Sealer
	if s.config.Sealer != nil {
		sealer = s.config.Sealer(owner)
	}

	var remote *settings.Settings
	doc, err := s.remote.GetSettings(ctx, owner)
	switch {
	case errors.Is(err, settings.ErrNotFound):
	case err != nil:
		res.Err = err
		return res, nil
	default:
		decoded, unreadable, err := settings.Decode(*doc, sealer)
		if err != nil {
			res.Err = err
			return res, nil
		}
		if len(unreadable) > 0 {
			s.log.Warn("remote secrets could not be opened", "owner", owner, "fields", unreadable)
		}
		res.Unreadable = unreadable
		remote = decoded
	}

	if local == nil && remote == nil {
		return res, nil
	}

	merged := settings.Merge(local, remote)
	merged.Owner = owner
	merged.UpdatedAt = now
	if err := s.settings.Save(ctx, merged); err != nil {
		return res, localErr("save settings", err)
	}

	out, err := settings.Encode(merged, sealer)
	if err != nil {
		res.Err = err
		return res, nil
	}
	if err := s.remote.PutSettings(ctx, owner, out); err != nil {
		res.Err = err
		return res, nil
	}

	res.Merged = true
	return res, nil
}
