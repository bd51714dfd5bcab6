package client

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"replikeep/internal/domain/record"
	"replikeep/internal/domain/settings"
)

// SQLiteStorage - локальное хранилище клиента: по таблице на тип записей,
// водяные знаки и настройки.
type SQLiteStorage struct {
	db      *sql.DB
	specs   []record.Spec
	records map[record.Kind]*sqliteRecords
}

func NewSQLiteStorage(path string, specs []record.Spec) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия базы данных: %w", err)
	}
	// Один писатель: sqlite не любит конкурентные транзакции.
	db.SetMaxOpenConns(1)

	storage := &SQLiteStorage{
		db:      db,
		specs:   specs,
		records: make(map[record.Kind]*sqliteRecords, len(specs)),
	}

	// Создаем таблицы
	if err := storage.initTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ошибка инициализации таблиц: %w", err)
	}

	for _, spec := range specs {
		storage.records[spec.Kind] = &sqliteRecords{db: db, spec: spec}
	}

	return storage, nil
}

func (s *SQLiteStorage) initTables() error {
	for _, spec := range s.specs {
		_, err := s.db.Exec(fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %[1]s (
				local_id INTEGER PRIMARY KEY AUTOINCREMENT,
				sync_id TEXT NOT NULL,
				owner TEXT NOT NULL,
				payload BLOB NOT NULL,
				created_at INTEGER NOT NULL,
				updated_at INTEGER NOT NULL,
				deleted_at INTEGER,
				sync_status TEXT NOT NULL DEFAULT 'pending',
				pushed_at INTEGER,
				UNIQUE (owner, sync_id)
			);

			CREATE INDEX IF NOT EXISTS idx_%[1]s_owner_updated ON %[1]s(owner, updated_at);
			CREATE INDEX IF NOT EXISTS idx_%[1]s_owner_status ON %[1]s(owner, sync_status);
		`, spec.Table))
		if err != nil {
			return fmt.Errorf("таблица %s: %w", spec.Table, err)
		}
	}

	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS sync_metadata (
			key TEXT PRIMARY KEY,
			value INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS settings (
			owner TEXT PRIMARY KEY,
			payload BLOB NOT NULL,
			updated_at INTEGER NOT NULL
		);
	`)

	return err
}

// Records возвращает хранилище записей типа.
func (s *SQLiteStorage) Records(kind record.Kind) (record.Repository, bool) {
	r, ok := s.records[kind]
	return r, ok
}

// AllRecords возвращает хранилища всех типов в порядке описания.
func (s *SQLiteStorage) AllRecords() []record.Repository {
	out := make([]record.Repository, 0, len(s.specs))
	for _, spec := range s.specs {
		out = append(out, s.records[spec.Kind])
	}
	return out
}

func (s *SQLiteStorage) Metadata() *SQLiteMetadata {
	return &SQLiteMetadata{db: s.db}
}

func (s *SQLiteStorage) Settings() *SQLiteSettings {
	return &SQLiteSettings{db: s.db}
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// sqliteRecords реализует record.Repository для одной таблицы.
type sqliteRecords struct {
	db   *sql.DB
	spec record.Spec
}

const recordColumns = "local_id, sync_id, owner, payload, created_at, updated_at, deleted_at, sync_status, pushed_at"

func (r *sqliteRecords) Spec() record.Spec {
	return r.spec
}

func (r *sqliteRecords) Insert(ctx context.Context, rec *record.Record) (int64, error) {
	res, err := r.db.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (sync_id, owner, payload, created_at, updated_at, deleted_at, sync_status, pushed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, r.spec.Table),
		rec.SyncID, rec.Owner, []byte(rec.Payload),
		toMicros(rec.CreatedAt), toMicros(rec.UpdatedAt), nullMicros(rec.DeletedAt),
		string(rec.SyncStatus), nullMicros(rec.PushedAt))
	if err != nil {
		var sqlErr sqlite3.Error
		if errors.As(err, &sqlErr) && sqlErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return 0, record.ErrDuplicate
		}
		return 0, fmt.Errorf("ошибка сохранения записи: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("ошибка получения идентификатора: %w", err)
	}
	return id, nil
}

func (r *sqliteRecords) UpdateByLocalID(ctx context.Context, rec *record.Record) error {
	res, err := r.db.ExecContext(ctx, fmt.Sprintf(`
		UPDATE %s
		SET payload = ?, created_at = ?, updated_at = ?, deleted_at = ?, sync_status = ?, pushed_at = ?
		WHERE local_id = ?
	`, r.spec.Table),
		[]byte(rec.Payload), toMicros(rec.CreatedAt), toMicros(rec.UpdatedAt),
		nullMicros(rec.DeletedAt), string(rec.SyncStatus), nullMicros(rec.PushedAt), rec.LocalID)
	if err != nil {
		return fmt.Errorf("ошибка обновления записи: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("ошибка обновления записи: %w", err)
	}
	if n == 0 {
		return record.ErrNotFound
	}
	return nil
}

func (r *sqliteRecords) ReplaceIfUnchanged(ctx context.Context, rec *record.Record, seenUpdatedAt time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, fmt.Sprintf(`
		UPDATE %s
		SET payload = ?, created_at = ?, updated_at = ?, deleted_at = ?, sync_status = ?, pushed_at = ?
		WHERE local_id = ? AND updated_at = ?
	`, r.spec.Table),
		[]byte(rec.Payload), toMicros(rec.CreatedAt), toMicros(rec.UpdatedAt),
		nullMicros(rec.DeletedAt), string(rec.SyncStatus), nullMicros(rec.PushedAt),
		rec.LocalID, toMicros(seenUpdatedAt))
	if err != nil {
		return false, fmt.Errorf("ошибка обновления записи: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("ошибка обновления записи: %w", err)
	}
	return n > 0, nil
}

func (r *sqliteRecords) FindBySyncID(ctx context.Context, owner, syncID string) (*record.Record, error) {
	row := r.db.QueryRowContext(ctx, fmt.Sprintf(
		"SELECT %s FROM %s WHERE owner = ? AND sync_id = ?", recordColumns, r.spec.Table,
	), owner, syncID)

	rec, err := r.scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, record.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка получения записи: %w", err)
	}
	return rec, nil
}

func (r *sqliteRecords) ListModifiedSince(ctx context.Context, owner string, q record.Query) ([]*record.Record, error) {
	where := []string{"owner = ?"}
	args := []any{owner}

	if q.CreatedFrom != nil {
		where = append(where, "created_at >= ?")
		args = append(args, toMicros(*q.CreatedFrom))
	}
	if q.Since != nil {
		cond := "(pushed_at IS NULL OR updated_at > ?"
		args = append(args, toMicros(*q.Since))
		if q.IncludeUnsynced {
			cond += " OR sync_status <> ?"
			args = append(args, string(record.StatusSynced))
		}
		where = append(where, cond+")")
	}

	return r.list(ctx, strings.Join(where, " AND "), args...)
}

func (r *sqliteRecords) ListActive(ctx context.Context, owner string) ([]*record.Record, error) {
	return r.list(ctx, "owner = ? AND deleted_at IS NULL", owner)
}

func (r *sqliteRecords) ListAll(ctx context.Context, owner string) ([]*record.Record, error) {
	return r.list(ctx, "owner = ?", owner)
}

func (r *sqliteRecords) MarkStatus(
	ctx context.Context,
	localID int64,
	seenUpdatedAt time.Time,
	status record.SyncStatus,
	pushedAt *time.Time,
) (bool, error) {
	res, err := r.db.ExecContext(ctx, fmt.Sprintf(`
		UPDATE %s
		SET sync_status = ?, pushed_at = COALESCE(?, pushed_at)
		WHERE local_id = ? AND updated_at = ?
	`, r.spec.Table), string(status), nullMicros(pushedAt), localID, toMicros(seenUpdatedAt))
	if err != nil {
		return false, fmt.Errorf("ошибка обновления статуса: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("ошибка обновления статуса: %w", err)
	}
	return n > 0, nil
}

func (r *sqliteRecords) CountUnsynced(ctx context.Context, owner string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, fmt.Sprintf(
		"SELECT COUNT(*) FROM %s WHERE owner = ? AND sync_status <> ?", r.spec.Table,
	), owner, string(record.StatusSynced)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("ошибка подсчета записей: %w", err)
	}

	return count, nil
}

func (r *sqliteRecords) list(ctx context.Context, where string, args ...any) ([]*record.Record, error) {
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(
		"SELECT %s FROM %s WHERE %s ORDER BY updated_at, local_id", recordColumns, r.spec.Table, where,
	), args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка выполнения запроса: %w", err)
	}
	defer rows.Close()

	records := make([]*record.Record, 0)
	for rows.Next() {
		rec, err := r.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования записи: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения записей: %w", err)
	}

	return records, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func (r *sqliteRecords) scan(row scanner) (*record.Record, error) {
	var (
		rec                  record.Record
		payload              []byte
		createdAt, updatedAt int64
		deletedAt, pushedAt  sql.NullInt64
		status               string
	)
	if err := row.Scan(&rec.LocalID, &rec.SyncID, &rec.Owner, &payload,
		&createdAt, &updatedAt, &deletedAt, &status, &pushedAt); err != nil {
		return nil, err
	}

	rec.Kind = r.spec.Kind
	rec.Payload = json.RawMessage(payload)
	rec.CreatedAt = fromMicros(createdAt)
	rec.UpdatedAt = fromMicros(updatedAt)
	rec.DeletedAt = fromNullMicros(deletedAt)
	rec.SyncStatus = record.SyncStatus(status)
	rec.PushedAt = fromNullMicros(pushedAt)
	return &rec, nil
}

// SQLiteMetadata хранит водяные знаки в таблице sync_metadata.
type SQLiteMetadata struct {
	db *sql.DB
}

func (m *SQLiteMetadata) Get(ctx context.Context, key string) (*time.Time, error) {
	var v int64
	err := m.db.QueryRowContext(ctx, "SELECT value FROM sync_metadata WHERE key = ?", key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения метаданных: %w", err)
	}
	ts := fromMicros(v)
	return &ts, nil
}

func (m *SQLiteMetadata) Set(ctx context.Context, key string, ts time.Time) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO sync_metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, toMicros(ts))
	if err != nil {
		return fmt.Errorf("ошибка записи метаданных: %w", err)
	}
	return nil
}

func (m *SQLiteMetadata) Clear(ctx context.Context) error {
	if _, err := m.db.ExecContext(ctx, "DELETE FROM sync_metadata"); err != nil {
		return fmt.Errorf("ошибка очистки метаданных: %w", err)
	}
	return nil
}

// ClearPrefix удаляет ключи, начинающиеся с prefix.
func (m *SQLiteMetadata) ClearPrefix(ctx context.Context, prefix string) error {
	_, err := m.db.ExecContext(ctx,
		"DELETE FROM sync_metadata WHERE substr(key, 1, length(?)) = ?", prefix, prefix)
	if err != nil {
		return fmt.Errorf("ошибка очистки метаданных: %w", err)
	}
	return nil
}

// SQLiteSettings хранит настройки владельца одной JSON-строкой.
type SQLiteSettings struct {
	db *sql.DB
}

func (s *SQLiteSettings) Get(ctx context.Context, owner string) (*settings.Settings, error) {
	var (
		payload   []byte
		updatedAt int64
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT payload, updated_at FROM settings WHERE owner = ?", owner,
	).Scan(&payload, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, settings.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения настроек: %w", err)
	}

	var out settings.Settings
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, fmt.Errorf("ошибка парсинга настроек: %w", err)
	}
	out.Owner = owner
	out.UpdatedAt = fromMicros(updatedAt)
	return &out, nil
}

func (s *SQLiteSettings) Save(ctx context.Context, st *settings.Settings) error {
	payload, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("ошибка сериализации настроек: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO settings (owner, payload, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(owner) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at
	`, st.Owner, payload, toMicros(st.UpdatedAt))
	if err != nil {
		return fmt.Errorf("ошибка сохранения настроек: %w", err)
	}
	return nil
}

func toMicros(t time.Time) int64 {
	return t.UTC().UnixMicro()
}

func fromMicros(v int64) time.Time {
	return time.UnixMicro(v).UTC()
}

func nullMicros(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: toMicros(*t), Valid: true}
}

func fromNullMicros(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := fromMicros(v.Int64)
	return &t
}
