package client

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	gosync "sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/exp/slog"
)

// TouchChangeSignal отмечает локальное изменение, перезаписывая файл-сигнал.
// Демон следит за этим файлом и запускает отложенную синхронизацию.
func TouchChangeSignal(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("ошибка создания директории сигнала: %w", err)
	}
	stamp := time.Now().UTC().Format(time.RFC3339Nano)
	if err := os.WriteFile(path, []byte(stamp), 0o600); err != nil {
		return fmt.Errorf("ошибка записи сигнала: %w", err)
	}
	return nil
}

// SignalWatcher вызывает onChange при каждой записи в файл-сигнал.
// Следит за директорией, а не за файлом: файл может пересоздаваться.
type SignalWatcher struct {
	watcher  *fsnotify.Watcher
	path     string
	onChange func()
	log      *slog.Logger

	done    chan struct{}
	wg      gosync.WaitGroup
	mu      gosync.Mutex
	running bool
}

func NewSignalWatcher(path string, onChange func(), log *slog.Logger) (*SignalWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &SignalWatcher{
		watcher:  watcher,
		path:     filepath.Clean(path),
		onChange: onChange,
		log:      log.With("component", "signal_watcher"),
		done:     make(chan struct{}),
	}, nil
}

func (w *SignalWatcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return errors.New("watcher already running")
	}

	dir := filepath.Dir(w.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create signal directory %s: %w", dir, err)
	}
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch directory %s: %w", dir, err)
	}

	w.running = true
	w.wg.Add(1)
	go w.processEvents()

	w.log.Debug("watching change signal", "path", w.path)
	return nil
}

// Stop останавливает наблюдение и ждёт завершения цикла событий.
func (w *SignalWatcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return w.watcher.Close()
	}
	w.running = false
	w.mu.Unlock()

	close(w.done)
	err := w.watcher.Close()
	w.wg.Wait()
	if err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}
	return nil
}

func (w *SignalWatcher) processEvents() {
	defer w.wg.Done()

	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				w.onChange()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("watcher error", "error", err)
		}
	}
}
