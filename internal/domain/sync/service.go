package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"replikeep/internal/domain/record"
	"replikeep/internal/domain/settings"

	"golang.org/x/exp/slog"
)

// Servicer интерфейс сервиса синхронизации
type Servicer interface {
	// FullSync выполняет полный прогон: отправка и получение по всем типам,
	// затем слияние настроек.
	FullSync(ctx context.Context, owner string) (*Result, error)

	// QuickPush отправляет только изменения основного типа.
	QuickPush(ctx context.Context, owner string) (bool, error)

	// ForceResync сбрасывает водяные знаки владельца и выполняет полный прогон.
	ForceResync(ctx context.Context, owner string) (*Result, error)

	// PendingCount возвращает число неотправленных записей основного типа.
	PendingCount(ctx context.Context, owner string) (int, error)

	// State возвращает текущее состояние синхронизации владельца.
	State(owner string) State
}

// Service оркестрирует синхронизацию локальных хранилищ с удалённым.
type Service struct {
	repos    []record.Repository
	primary  record.Repository
	settings settings.Repository
	meta     MetadataStore
	remote   RemoteStore
	flights  *flightGuard
	log      *slog.Logger
	config   *ServiceConfig
}

// NewService создает новый сервис синхронизации. Основной тип всегда
// синхронизируется первым.
func NewService(stores Stores, remote RemoteStore, log *slog.Logger, config *ServiceConfig) (*Service, error) {
	if config == nil {
		config = DefaultServiceConfig()
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	if config.Resolver == nil {
		config.Resolver = LastWriteWins{}
	}
	if config.ClockDriftBuffer < 0 {
		config.ClockDriftBuffer = 0
	}
	if config.PushBatchSize <= 0 {
		config.PushBatchSize = DefaultPushBatchSize
	}

	var primary record.Repository
	repos := make([]record.Repository, 0, len(stores.Records))
	for _, r := range stores.Records {
		if r.Spec().Primary {
			if primary != nil {
				return nil, fmt.Errorf("more than one primary kind: %s and %s", primary.Spec().Kind, r.Spec().Kind)
			}
			primary = r
			continue
		}
		repos = append(repos, r)
	}
	if primary == nil {
		return nil, ErrNoPrimary
	}
	if stores.Metadata == nil {
		return nil, errors.New("metadata store is required")
	}

	return &Service{
		repos:    append([]record.Repository{primary}, repos...),
		primary:  primary,
		settings: stores.Settings,
		meta:     stores.Metadata,
		remote:   remote,
		flights:  newFlightGuard(),
		log:      log.With("component", "sync_service"),
		config:   config,
	}, nil
}

// FullSync выполняет полный прогон. Если прогон для владельца уже идёт,
// возвращает результат со StateSkipped без ошибки.
func (s *Service) FullSync(ctx context.Context, owner string) (*Result, error) {
	if owner == "" {
		return nil, ErrNoOwner
	}
	release, ok, err := s.acquire(owner)
	if err != nil {
		return nil, err
	}
	if !ok {
		s.log.Debug("sync already running, skipping", "owner", owner)
		return s.skipped(owner), nil
	}
	defer release()

	return s.run(ctx, owner)
}

// ForceResync сбрасывает водяные знаки владельца и выполняет полный прогон.
func (s *Service) ForceResync(ctx context.Context, owner string) (*Result, error) {
	if owner == "" {
		return nil, ErrNoOwner
	}
	release, ok, err := s.acquire(owner)
	if err != nil {
		return nil, err
	}
	if !ok {
		return s.skipped(owner), nil
	}
	defer release()

	if err := s.meta.ClearPrefix(ctx, OwnerPrefix(owner)); err != nil {
		return nil, localErr("clear watermarks", err)
	}
	s.log.Info("watermarks cleared", "owner", owner)

	return s.run(ctx, owner)
}

// QuickPush отправляет изменения основного типа без получения. Возвращает
// false без ошибки, если прогон уже идёт или отдельные записи не приняты.
func (s *Service) QuickPush(ctx context.Context, owner string) (bool, error) {
	if owner == "" {
		return false, ErrNoOwner
	}
	release, ok, err := s.acquire(owner)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	defer release()

	start := s.now()
	if !s.remote.Probe(ctx) {
		return false, ErrUnreachable
	}

	key := WatermarkKey(owner, s.primary.Spec().Kind, DirectionPush)
	since, err := s.meta.Get(ctx, key)
	if err != nil {
		return false, localErr("read watermark", err)
	}

	pushed, failed, err := s.push(ctx, owner, s.primary, since, start)
	if err != nil {
		return false, err
	}
	if err := s.advance(ctx, []string{key}, start); err != nil {
		return false, err
	}

	s.log.Info("quick push finished", "owner", owner, "pushed", pushed, "failed", len(failed))
	return len(failed) == 0, nil
}

// PendingCount возвращает число записей основного типа, ожидающих отправки.
func (s *Service) PendingCount(ctx context.Context, owner string) (int, error) {
	n, err := s.primary.CountUnsynced(ctx, owner)
	if err != nil {
		return 0, localErr("count unsynced", err)
	}
	return n, nil
}

// State возвращает StateRunning во время прогона, иначе StateIdle.
func (s *Service) State(owner string) State {
	if s.flights.active(owner) {
		return StateRunning
	}
	return StateIdle
}

func (s *Service) run(ctx context.Context, owner string) (*Result, error) {
	start := s.now()
	res := &Result{Owner: owner, State: StateRunning, StartedAt: start}
	log := s.log.With("owner", owner)
	log.Info("sync started")

	if !s.remote.Probe(ctx) {
		res.finish(s.now(), ErrUnreachable)
		log.Warn("remote unreachable, sync aborted")
		return res, ErrUnreachable
	}

	var (
		advance []string
		fatal   error
	)
	for _, repo := range s.repos {
		kr, keys, err := s.syncKind(ctx, owner, repo, start)
		res.Kinds = append(res.Kinds, kr)
		advance = append(advance, keys...)
		if err != nil {
			fatal = err
			break
		}
	}

	if fatal == nil {
		sr, err := s.syncSettings(ctx, owner, start)
		res.Settings = sr
		fatal = err
	}

	// Завершённые фазы сдвигают водяные знаки даже при прерванном прогоне.
	if err := s.advance(ctx, advance, start); err != nil && fatal == nil {
		fatal = err
	}

	res.finish(s.now(), fatal)
	log.Info("sync finished",
		"state", res.State,
		"pushed", res.Pushed(),
		"pulled", res.Pulled(),
		"duration", res.FinishedAt.Sub(res.StartedAt),
	)
	if fatal != nil {
		log.Error("sync aborted", "error", fatal)
	}
	return res, fatal
}

// syncKind выполняет отправку и затем получение для одного типа.
// Возвращает ключи водяных знаков успешно завершённых фаз.
func (s *Service) syncKind(
	ctx context.Context,
	owner string,
	repo record.Repository,
	start time.Time,
) (KindResult, []string, error) {
	spec := repo.Spec()
	kr := KindResult{Kind: spec.Kind}
	pushKey := WatermarkKey(owner, spec.Kind, DirectionPush)
	pullKey := WatermarkKey(owner, spec.Kind, DirectionPull)
	var keys []string

	pushMark, err := s.meta.Get(ctx, pushKey)
	if err != nil {
		return kr, nil, localErr("read watermark", err)
	}
	kr.Pushed, kr.Failed, err = s.push(ctx, owner, repo, pushMark, start)
	if err != nil {
		if IsLocalStore(err) {
			return kr, nil, err
		}
		kr.PushErr = err
		return kr, nil, nil
	}
	// Неудачные записи основного типа остаются в статусе failed и будут
	// отобраны снова независимо от водяного знака.
	if len(kr.Failed) == 0 || spec.TracksStatus() {
		keys = append(keys, pushKey)
	}

	pullMark, err := s.meta.Get(ctx, pullKey)
	if err != nil {
		return kr, keys, localErr("read watermark", err)
	}
	kr.Pulled, err = s.pull(ctx, owner, repo, pullMark, start)
	if err != nil {
		if IsLocalStore(err) {
			return kr, keys, err
		}
		kr.PullErr = err
		return kr, keys, nil
	}
	keys = append(keys, pullKey)

	return kr, keys, nil
}

func (s *Service) skipped(owner string) *Result {
	now := s.now()
	return &Result{Owner: owner, State: StateSkipped, StartedAt: now, FinishedAt: now}
}

func (s *Service) now() time.Time {
	return s.config.Now().UTC().Truncate(time.Microsecond)
}
