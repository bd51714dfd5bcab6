package client

import (
	"context"
	gosync "sync"
	"time"

	"replikeep/internal/domain/sync"

	"golang.org/x/exp/slog"
)

// Syncer - то, что запускает планировщик.
type Syncer interface {
	FullSync(ctx context.Context, owner string) (*sync.Result, error)
}

// Prober проверяет реальную доступность сервера.
type Prober interface {
	Probe(ctx context.Context) bool
}

// Trigger - причина запуска синхронизации.
type Trigger string

const (
	TriggerInterval     Trigger = "interval"
	TriggerChange       Trigger = "change"
	TriggerForeground   Trigger = "foreground"
	TriggerConnectivity Trigger = "connectivity"
)

type SchedulerConfig struct {
	// Interval - период фоновой синхронизации.
	Interval time.Duration
	// Debounce - окно, в котором локальные изменения сливаются в один запуск.
	Debounce time.Duration
	// ProbeInterval - период проверки доступности сервера; 0 отключает проверку.
	ProbeInterval time.Duration
}

// Scheduler запускает синхронизацию по таймеру, после локальных изменений,
// при возврате на передний план и при восстановлении связи. Одновременные
// запуски отсекает сам сервис синхронизации.
type Scheduler struct {
	syncer Syncer
	prober Prober
	owner  string
	config SchedulerConfig
	log    *slog.Logger

	mu         gosync.Mutex
	ctx        context.Context
	cancel     context.CancelFunc
	debounce   *time.Timer
	generation uint64
	foreground bool
	online     bool
	stopped    bool

	wg gosync.WaitGroup
}

func NewScheduler(syncer Syncer, prober Prober, owner string, config SchedulerConfig, log *slog.Logger) *Scheduler {
	return &Scheduler{
		syncer:     syncer,
		prober:     prober,
		owner:      owner,
		config:     config,
		log:        log.With("component", "scheduler", "owner", owner),
		foreground: true,
	}
}

// Start запускает фоновые циклы. Останавливаются они через Stop или
// отменой ctx.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	if s.config.Interval > 0 {
		s.wg.Add(1)
		go s.intervalLoop()
	}
	if s.prober != nil && s.config.ProbeInterval > 0 {
		s.wg.Add(1)
		go s.probeLoop()
	}
}

// NotifyChange сообщает о локальном изменении. Серия вызовов внутри окна
// Debounce приводит к одному запуску через Debounce после последнего вызова.
func (s *Scheduler) NotifyChange() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}
	s.generation++
	gen := s.generation
	if s.debounce != nil {
		s.debounce.Stop()
	}
	s.debounce = time.AfterFunc(s.config.Debounce, func() {
		s.mu.Lock()
		current := gen == s.generation
		s.mu.Unlock()
		if current {
			s.fire(TriggerChange)
		}
	})
}

// SetForeground запускает синхронизацию при переходе на передний план.
func (s *Scheduler) SetForeground(foreground bool) {
	s.mu.Lock()
	edge := foreground && !s.foreground
	s.foreground = foreground
	s.mu.Unlock()

	if edge {
		s.fire(TriggerForeground)
	}
}

// SetOnline запускает синхронизацию при переходе из "недоступен" в "доступен".
func (s *Scheduler) SetOnline(online bool) {
	s.mu.Lock()
	edge := online && !s.online
	s.online = online
	s.mu.Unlock()

	if edge {
		s.log.Info("remote is reachable again")
		s.fire(TriggerConnectivity)
	}
}

// Stop останавливает циклы и ждёт завершения начатых запусков.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	if s.debounce != nil {
		s.debounce.Stop()
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	s.wg.Wait()
}

func (s *Scheduler) intervalLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.fire(TriggerInterval)
		}
	}
}

func (s *Scheduler) probeLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.ProbeInterval)
	defer ticker.Stop()

	for {
		s.SetOnline(s.prober.Probe(s.ctx))

		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// fire запускает синхронизацию в фоне и не ждёт её завершения.
func (s *Scheduler) fire(trigger Trigger) {
	s.mu.Lock()
	if s.stopped || s.ctx == nil {
		s.mu.Unlock()
		return
	}
	ctx := s.ctx
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()

		res, err := s.syncer.FullSync(ctx, s.owner)
		if err != nil {
			if sync.IsUnreachable(err) {
				s.SetOnline(false)
			}
			s.log.Error("sync failed", "trigger", trigger, "error", err)
			return
		}
		s.log.Info("sync finished",
			"trigger", trigger,
			"state", res.State,
			"pushed", res.Pushed(),
			"pulled", res.Pulled(),
		)
		if res.Err != nil {
			s.log.Warn("sync completed with errors", "trigger", trigger, "error", res.Err)
		}
	}()
}
