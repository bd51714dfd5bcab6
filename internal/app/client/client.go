package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	gosync "sync"
	"syscall"
	"time"

	"golang.org/x/exp/slog"

	"replikeep/internal/app/client/config"
	"replikeep/internal/app/client/crypto"
	"replikeep/internal/domain/record"
	"replikeep/internal/domain/session"
	"replikeep/internal/domain/settings"
	"replikeep/internal/domain/sync"
)

var ErrNotAuthenticated = errors.New("not signed in, run: replikeep auth login")

// App связывает локальное хранилище, удалённое хранилище и сервисы
// записей и синхронизации одного устройства.
type App struct {
	config     *config.Config
	log        *slog.Logger
	httpClient *httpClient
	storage    *SQLiteStorage
	records    *record.Service
	sync       *sync.Service
	state      *AppState

	mu      gosync.RWMutex
	owner   string
	sealers map[string]*crypto.Sealer
}

// AppState хранит состояние клиента между запусками
type AppState struct {
	Owner     string    `json:"owner"`
	LastSync  time.Time `json:"last_sync"`
	LastState string    `json:"last_state"`
	LastError string    `json:"last_error,omitempty"`
}

// Status - сводка синхронизации для команды sync --status.
type Status struct {
	Owner      string
	State      sync.State
	Pending    int
	LastSync   time.Time
	LastState  string
	LastError  string
	Watermarks []sync.Watermark
}

func New(cfg *config.Config, log *slog.Logger) (*App, error) {
	state, err := loadAppState(cfg)
	if err != nil {
		log.Warn("Не удалось загрузить состояние приложения", "error", err)
		state = &AppState{}
	}

	// Инициализируем HTTP клиент
	httpCl, err := NewHTTPClient(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("ошибка инициализации HTTP клиента: %w", err)
	}

	specs := record.DefaultSpecs(cfg.LogWindow, cfg.MessageWindow)
	storage, err := NewSQLiteStorage(cfg.DataPath, specs)
	if err != nil {
		return nil, fmt.Errorf("ошибка инициализации хранилища: %w", err)
	}

	app := &App{
		config:     cfg,
		log:        log,
		httpClient: httpCl,
		storage:    storage,
		state:      state,
		sealers:    make(map[string]*crypto.Sealer),
	}

	app.records = record.NewService(storage.AllRecords(), log, &record.ServiceConfig{
		Now:      time.Now,
		OnChange: app.onLocalChange,
	})

	syncConfig := sync.DefaultServiceConfig()
	syncConfig.ClockDriftBuffer = cfg.ClockDriftBuffer
	syncConfig.PushBatchSize = cfg.PushBatchSize
	syncConfig.Sealer = app.sealer
	syncConfig.Locker = NewFileLocker(cfg.DataPath)
	app.sync, err = sync.NewService(sync.Stores{
		Records:  storage.AllRecords(),
		Settings: storage.Settings(),
		Metadata: storage.Metadata(),
	}, httpCl, log, syncConfig)
	if err != nil {
		storage.Close()
		return nil, fmt.Errorf("ошибка инициализации синхронизации: %w", err)
	}

	// Загружаем токен если он есть
	if token, err := app.GetToken(); err == nil && token != "" {
		owner, err := session.OwnerFromToken(token)
		if err != nil {
			log.Warn("Сохранённый токен повреждён", "error", err)
		} else {
			httpCl.SetToken(token)
			app.owner = owner
			log.Debug("Токен загружен из файла", "owner", owner)
		}
	}

	return app, nil
}

func loadAppState(cfg *config.Config) (*AppState, error) {
	statePath := filepath.Join(cfg.ConfigDir, "state.json")

	data, err := os.ReadFile(statePath)
	if errors.Is(err, os.ErrNotExist) {
		return &AppState{}, nil
	}
	if err != nil {
		return nil, err
	}

	var state AppState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, err
	}

	return &state, nil
}

// saveAppState вызывается под a.mu.
func (a *App) saveAppState() error {
	statePath := filepath.Join(a.config.ConfigDir, "state.json")
	data, err := json.MarshalIndent(a.state, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(statePath, data, 0600)
}

// Close закрывает локальное хранилище и затирает ключи.
func (a *App) Close() error {
	a.mu.Lock()
	for owner, s := range a.sealers {
		s.Close()
		delete(a.sealers, owner)
	}
	a.mu.Unlock()

	return a.storage.Close()
}

// Owner возвращает владельца из сохранённого токена.
func (a *App) Owner() (string, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.owner == "" {
		return "", ErrNotAuthenticated
	}
	return a.owner, nil
}

// IsAuthenticated проверяет, выполнен ли вход
func (a *App) IsAuthenticated() bool {
	_, err := a.Owner()
	return err == nil
}

// GetToken возвращает сохраненный токен
func (a *App) GetToken() (string, error) {
	tokenBytes, err := os.ReadFile(a.config.TokenPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNotAuthenticated
		}
		return "", fmt.Errorf("ошибка чтения токена: %w", err)
	}
	return strings.TrimSpace(string(tokenBytes)), nil
}

// SaveToken сохраняет токен аутентификации
func (a *App) SaveToken(token string) error {
	if err := os.WriteFile(a.config.TokenPath, []byte(token), 0600); err != nil {
		return fmt.Errorf("ошибка сохранения токена: %w", err)
	}

	a.httpClient.SetToken(token)

	return nil
}

// ClearToken удаляет токен
func (a *App) ClearToken() error {
	if err := os.Remove(a.config.TokenPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("ошибка удаления токена: %w", err)
	}
	a.httpClient.SetToken("")
	return nil
}

// Login проверяет токен на сервере и сохраняет его. Возвращает владельца.
func (a *App) Login(ctx context.Context, token string) (string, error) {
	token = strings.TrimSpace(token)
	owner, err := session.OwnerFromToken(token)
	if err != nil {
		return "", err
	}

	a.httpClient.SetToken(token)
	confirmed, err := a.httpClient.Whoami(ctx)
	if err != nil {
		a.httpClient.SetToken("")
		return "", fmt.Errorf("сервер не принял токен: %w", err)
	}
	if confirmed != owner {
		a.httpClient.SetToken("")
		return "", fmt.Errorf("токен выпущен для %q, сервер вернул %q", owner, confirmed)
	}

	if err := a.SaveToken(token); err != nil {
		return "", err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.owner = owner
	a.state.Owner = owner
	if err := a.saveAppState(); err != nil {
		return "", fmt.Errorf("ошибка сохранения состояния: %w", err)
	}

	a.log.Info("Вход выполнен", "owner", owner)
	return owner, nil
}

// Logout удаляет токен и сбрасывает водяные знаки, чтобы следующий вход
// начал с полной выборки.
func (a *App) Logout(ctx context.Context) error {
	if err := a.ClearToken(); err != nil {
		return err
	}
	if err := a.storage.Metadata().Clear(ctx); err != nil {
		return fmt.Errorf("ошибка сброса водяных знаков: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if s, ok := a.sealers[a.owner]; ok {
		s.Close()
		delete(a.sealers, a.owner)
	}
	a.owner = ""
	a.state = &AppState{}
	if err := a.saveAppState(); err != nil {
		return fmt.Errorf("ошибка сохранения состояния: %w", err)
	}

	a.log.Info("Выход выполнен")
	return nil
}

// CreateRecord сохраняет новую запись локально.
func (a *App) CreateRecord(ctx context.Context, payload record.Payload) (*record.Record, error) {
	owner, err := a.Owner()
	if err != nil {
		return nil, err
	}
	return a.records.Create(ctx, owner, payload)
}

// UpdateRecord заменяет содержимое записи.
func (a *App) UpdateRecord(ctx context.Context, syncID string, payload record.Payload) (*record.Record, error) {
	owner, err := a.Owner()
	if err != nil {
		return nil, err
	}
	return a.records.Update(ctx, owner, syncID, payload)
}

// DeleteRecord помечает запись удалённой.
func (a *App) DeleteRecord(ctx context.Context, kind record.Kind, syncID string) error {
	owner, err := a.Owner()
	if err != nil {
		return err
	}
	_, err = a.records.Delete(ctx, owner, kind, syncID)
	return err
}

func (a *App) GetRecord(ctx context.Context, kind record.Kind, syncID string) (*record.Record, error) {
	owner, err := a.Owner()
	if err != nil {
		return nil, err
	}
	return a.records.Get(ctx, owner, kind, syncID)
}

// ListRecords возвращает неудалённые записи типа.
func (a *App) ListRecords(ctx context.Context, kind record.Kind) ([]*record.Record, error) {
	owner, err := a.Owner()
	if err != nil {
		return nil, err
	}
	return a.records.ListActive(ctx, owner, kind)
}

// Settings возвращает локальные настройки; до первого сохранения - пустые.
func (a *App) Settings(ctx context.Context) (*settings.Settings, error) {
	owner, err := a.Owner()
	if err != nil {
		return nil, err
	}

	s, err := a.storage.Settings().Get(ctx, owner)
	if errors.Is(err, settings.ErrNotFound) {
		return &settings.Settings{Owner: owner}, nil
	}
	return s, err
}

// SetSetting меняет одно поле настроек и сохраняет их локально.
func (a *App) SetSetting(ctx context.Context, name, value string) error {
	s, err := a.Settings(ctx)
	if err != nil {
		return err
	}
	if err := s.Set(name, value); err != nil {
		return err
	}
	s.UpdatedAt = time.Now().UTC()
	if err := a.storage.Settings().Save(ctx, s); err != nil {
		return err
	}

	a.onLocalChange("settings")
	return nil
}

// Sync выполняет полную синхронизацию.
func (a *App) Sync(ctx context.Context) (*sync.Result, error) {
	owner, err := a.Owner()
	if err != nil {
		return nil, err
	}

	res, err := a.sync.FullSync(ctx, owner)
	a.remember(res, err)
	return res, err
}

// ForceResync сбрасывает водяные знаки и синхронизирует всё заново.
func (a *App) ForceResync(ctx context.Context) (*sync.Result, error) {
	owner, err := a.Owner()
	if err != nil {
		return nil, err
	}

	res, err := a.sync.ForceResync(ctx, owner)
	a.remember(res, err)
	return res, err
}

// QuickPush отправляет изменения основного типа без получения.
func (a *App) QuickPush(ctx context.Context) (bool, error) {
	owner, err := a.Owner()
	if err != nil {
		return false, err
	}
	return a.sync.QuickPush(ctx, owner)
}

// PushCreated сразу отправляет только что созданную запись основного типа.
// Для остальных типов ничего не делает. Ошибка не отменяет создание:
// запись остаётся pending до следующей синхронизации.
func (a *App) PushCreated(ctx context.Context, rec *record.Record) (bool, error) {
	repo, ok := a.storage.Records(rec.Kind)
	if !ok || !repo.Spec().Primary {
		return false, nil
	}

	if a.config.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.config.RequestTimeout)
		defer cancel()
	}
	return a.QuickPush(ctx)
}

// Status собирает сводку синхронизации без обращения к серверу.
func (a *App) Status(ctx context.Context) (*Status, error) {
	owner, err := a.Owner()
	if err != nil {
		return nil, err
	}

	pending, err := a.sync.PendingCount(ctx, owner)
	if err != nil {
		return nil, err
	}
	marks, err := a.sync.Watermarks(ctx, owner)
	if err != nil {
		return nil, err
	}

	a.mu.RLock()
	defer a.mu.RUnlock()
	return &Status{
		Owner:      owner,
		State:      a.sync.State(owner),
		Pending:    pending,
		LastSync:   a.state.LastSync,
		LastState:  a.state.LastState,
		LastError:  a.state.LastError,
		Watermarks: marks,
	}, nil
}

// RunDaemon запускает планировщик и ждёт сигнала завершения. SIGCONT
// считается возвратом на передний план.
func (a *App) RunDaemon(ctx context.Context) error {
	owner, err := a.Owner()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	scheduler := NewScheduler(&rememberingSyncer{app: a}, a.httpClient, owner, SchedulerConfig{
		Interval:      a.config.SyncInterval,
		Debounce:      a.config.Debounce,
		ProbeInterval: a.config.ProbeInterval,
	}, a.log)

	watcher, err := NewSignalWatcher(a.config.SignalPath, scheduler.NotifyChange, a.log)
	if err != nil {
		return err
	}
	if err := watcher.Start(); err != nil {
		return err
	}
	defer watcher.Stop()

	scheduler.Start(ctx)
	defer scheduler.Stop()

	a.log.Info("Демон запущен",
		"owner", owner,
		"server", a.config.ServerAddress,
		"interval", a.config.SyncInterval,
		"debounce", a.config.Debounce,
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, append([]os.Signal{syscall.SIGINT, syscall.SIGTERM}, foregroundSignals...)...)
	defer signal.Stop(sigChan)

	for {
		select {
		case <-ctx.Done():
			a.log.Info("Демон остановлен")
			return nil
		case sig := <-sigChan:
			if isForegroundSignal(sig) {
				scheduler.SetForeground(false)
				scheduler.SetForeground(true)
				continue
			}
			a.log.Info("Получен сигнал завершения", "signal", sig.String())
			return nil
		}
	}
}

// rememberingSyncer запоминает итог каждого фонового прогона.
type rememberingSyncer struct {
	app *App
}

func (r *rememberingSyncer) FullSync(ctx context.Context, owner string) (*sync.Result, error) {
	res, err := r.app.sync.FullSync(ctx, owner)
	r.app.remember(res, err)
	return res, err
}

func (a *App) remember(res *sync.Result, err error) {
	if res == nil || res.State == sync.StateSkipped {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.state.LastSync = res.FinishedAt
	a.state.LastState = string(res.State)
	a.state.LastError = ""
	if err == nil {
		err = res.Err
	}
	if errs := res.Errors(); err == nil && len(errs) > 0 {
		err = errors.Join(errs...)
	}
	if err != nil {
		a.state.LastError = err.Error()
	}
	if err := a.saveAppState(); err != nil {
		a.log.Warn("Не удалось сохранить состояние", "error", err)
	}
}

func (a *App) onLocalChange(kind record.Kind) {
	if err := TouchChangeSignal(a.config.SignalPath); err != nil {
		a.log.Warn("Не удалось отметить изменение", "kind", kind, "error", err)
	}
}

// sealer возвращает средство запечатывания секретов или nil, если
// парольная фраза не задана.
func (a *App) sealer(owner string) settings.Sealer {
	if a.config.Passphrase == "" {
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if s, ok := a.sealers[owner]; ok {
		return s
	}
	s, err := crypto.NewSealer(a.config.Passphrase, owner)
	if err != nil {
		a.log.Warn("Не удалось создать ключ настроек", "error", err)
		return nil
	}
	a.sealers[owner] = s
	return s
}
