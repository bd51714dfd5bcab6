package sync

import gosync "sync"

// flightGuard допускает не больше одного прогона на владельца.
type flightGuard struct {
	mu      gosync.Mutex
	running map[string]struct{}
}

func newFlightGuard() *flightGuard {
	return &flightGuard{running: make(map[string]struct{})}
}

// tryAcquire занимает слот владельца. Если прогон уже идёт, возвращает false.
func (g *flightGuard) tryAcquire(owner string) (func(), bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, busy := g.running[owner]; busy {
		return nil, false
	}
	g.running[owner] = struct{}{}

	var once gosync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.running, owner)
			g.mu.Unlock()
		})
	}, true
}

func (g *flightGuard) active(owner string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, busy := g.running[owner]
	return busy
}

// Locker - блокировка прогона владельца между процессами, работающими
// с одним локальным хранилищем. TryLock не ждёт: если блокировка занята,
// возвращает ok=false.
type Locker interface {
	TryLock(owner string) (release func(), ok bool, err error)
}

// acquire занимает слот владельца сначала в процессе, затем через Locker.
func (s *Service) acquire(owner string) (func(), bool, error) {
	release, ok := s.flights.tryAcquire(owner)
	if !ok {
		return nil, false, nil
	}
	if s.config.Locker == nil {
		return release, true, nil
	}

	unlock, ok, err := s.config.Locker.TryLock(owner)
	if err != nil {
		release()
		return nil, false, localErr("acquire sync lock", err)
	}
	if !ok {
		release()
		return nil, false, nil
	}
	return func() {
		unlock()
		release()
	}, true, nil
}
