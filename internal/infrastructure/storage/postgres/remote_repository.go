package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/exp/slog"

	"replikeep/internal/domain/record"
	"replikeep/internal/domain/remote"
	"replikeep/internal/domain/settings"
)

// RemoteRepository реализует remote.Repository на PostgreSQL.
type RemoteRepository struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewRemoteRepository(pool *pgxpool.Pool, log *slog.Logger) *RemoteRepository {
	return &RemoteRepository{
		pool: pool,
		log:  log.With("component", "remote_repository"),
	}
}

func (r *RemoteRepository) UpsertRecord(ctx context.Context, owner string, rec record.Remote) (bool, error) {
	const query = `
		INSERT INTO sync_records (owner, kind, sync_id, payload, created_at, updated_at, deleted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (owner, kind, sync_id) DO UPDATE SET
			payload    = EXCLUDED.payload,
			created_at = EXCLUDED.created_at,
			updated_at = EXCLUDED.updated_at,
			deleted_at = EXCLUDED.deleted_at
		WHERE sync_records.updated_at <= EXCLUDED.updated_at`

	payload := rec.Payload
	if len(payload) == 0 {
		payload = json.RawMessage("null")
	}

	tag, err := r.pool.Exec(ctx, query,
		owner,
		string(rec.Kind),
		rec.SyncID,
		payload,
		rec.CreatedAt.UTC(),
		rec.UpdatedAt.UTC(),
		utcPtr(rec.DeletedAt),
	)
	if err != nil {
		r.log.Error("failed to upsert record",
			"owner", owner, "kind", rec.Kind, "sync_id", rec.SyncID, "error", err)
		return false, fmt.Errorf("upsert record: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

func (r *RemoteRepository) QueryRecords(
	ctx context.Context,
	owner string,
	kind record.Kind,
	q remote.Query,
) ([]record.Remote, error) {
	const query = `
		SELECT sync_id, payload, created_at, updated_at, deleted_at
		FROM sync_records
		WHERE owner = $1 AND kind = $2
		  AND ($3::timestamptz IS NULL OR updated_at >= $3)
		  AND ($4::timestamptz IS NULL OR created_at >= $4)
		  AND ($5::timestamptz IS NULL OR (updated_at, sync_id) > ($5, $6))
		ORDER BY updated_at, sync_id
		LIMIT $7`

	var (
		afterAt *time.Time
		afterID string
	)
	if q.After != nil {
		at := q.After.UpdatedAt.UTC()
		afterAt, afterID = &at, q.After.SyncID
	}
	limit := q.Limit
	if limit <= 0 {
		limit = remote.DefaultServiceConfig().MaxQueryRecords
	}

	rows, err := r.pool.Query(ctx, query,
		owner,
		string(kind),
		utcPtr(q.Since),
		utcPtr(q.CreatedFrom),
		afterAt,
		afterID,
		limit,
	)
	if err != nil {
		r.log.Error("failed to query records", "owner", owner, "kind", kind, "error", err)
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	out := make([]record.Remote, 0)
	for rows.Next() {
		rec := record.Remote{Owner: owner, Kind: kind}
		var payload []byte
		if err := rows.Scan(&rec.SyncID, &payload, &rec.CreatedAt, &rec.UpdatedAt, &rec.DeletedAt); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		rec.Payload = json.RawMessage(payload)
		rec.CreatedAt = rec.CreatedAt.UTC()
		rec.UpdatedAt = rec.UpdatedAt.UTC()
		rec.DeletedAt = utcPtr(rec.DeletedAt)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}

	return out, nil
}

func (r *RemoteRepository) GetSettings(ctx context.Context, owner string) (*settings.Document, error) {
	const query = `SELECT fields, updated_at FROM sync_settings WHERE owner = $1`

	doc := settings.Document{Owner: owner}
	var fields []byte
	err := r.pool.QueryRow(ctx, query, owner).Scan(&fields, &doc.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, settings.ErrNotFound
		}
		r.log.Error("failed to get settings", "owner", owner, "error", err)
		return nil, fmt.Errorf("get settings: %w", err)
	}

	doc.Fields = json.RawMessage(fields)
	doc.UpdatedAt = doc.UpdatedAt.UTC()
	return &doc, nil
}

func (r *RemoteRepository) PutSettings(ctx context.Context, doc settings.Document) error {
	const query = `
		INSERT INTO sync_settings (owner, fields, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (owner) DO UPDATE SET
			fields     = EXCLUDED.fields,
			updated_at = EXCLUDED.updated_at`

	fields := doc.Fields
	if len(fields) == 0 {
		fields = json.RawMessage("{}")
	}

	if _, err := r.pool.Exec(ctx, query, doc.Owner, fields, doc.UpdatedAt.UTC()); err != nil {
		r.log.Error("failed to put settings", "owner", doc.Owner, "error", err)
		return fmt.Errorf("put settings: %w", err)
	}
	return nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
