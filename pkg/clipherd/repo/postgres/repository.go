package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clipherd/clipherd/pkg/clipherd"
)

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Repository implements clipherd.Repository using PostgreSQL
type Repository struct {
	db DBTX
}

// New creates a new PostgreSQL repository
func New(db DBTX) clipherd.Repository {
	return &Repository{db: db}
}

// NewWithPool creates a new PostgreSQL repository with connection pool
func NewWithPool(pool *pgxpool.Pool) clipherd.Repository {
	return &Repository{db: pool}
}

func (r *Repository) handlePostgresError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("duplicate entry in %s", operation)
		case "23502": // not_null_violation
			return fmt.Errorf("required field %s is missing", pgErr.ColumnName)
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist - database migration required")
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}
	return fmt.Errorf("database error in %s: %w", operation, err)
}

// Fingerprints are stored as four bigint columns; Go's uint64 round-trips
// through Postgres bigint via a sign-preserving cast.
func packFingerprints(set clipherd.FingerprintSet) [clipherd.FrameSamples]int64 {
	var out [clipherd.FrameSamples]int64
	for i, fp := range set {
		out[i] = int64(fp)
	}
	return out
}

func unpackFingerprints(raw [clipherd.FrameSamples]int64) clipherd.FingerprintSet {
	var set clipherd.FingerprintSet
	for i, v := range raw {
		set[i] = clipherd.Fingerprint(uint64(v))
	}
	return set
}

// Item operations

func (r *Repository) CreateItem(ctx context.Context, item *clipherd.ContentItem) error {
	query := `
		INSERT INTO content_items (
			id, account, source_ref, original_author, caption, hashtags,
			fp0, fp1, fp2, fp3, storage_key, status,
			discovered_at, queued_at, release_at, posted_at, rejected_at, failed_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`

	fps := packFingerprints(item.Fingerprints)
	_, err := r.db.Exec(ctx, query,
		item.ID, item.Account, item.SourceRef, item.OriginalAuthor, item.Caption, item.Hashtags,
		fps[0], fps[1], fps[2], fps[3], item.StorageKey, item.Status,
		item.DiscoveredAt, item.QueuedAt, item.ReleaseAt, item.PostedAt, item.RejectedAt, item.FailedAt, item.UpdatedAt)

	if err != nil {
		return r.handlePostgresError("create item", err)
	}
	return nil
}

const itemColumns = `id, account, source_ref, original_author, caption, hashtags,
	fp0, fp1, fp2, fp3, storage_key, status,
	discovered_at, queued_at, release_at, posted_at, rejected_at, failed_at, updated_at`

func scanItem(row pgx.Row) (*clipherd.ContentItem, error) {
	var item clipherd.ContentItem
	var fps [clipherd.FrameSamples]int64
	err := row.Scan(
		&item.ID, &item.Account, &item.SourceRef, &item.OriginalAuthor, &item.Caption, &item.Hashtags,
		&fps[0], &fps[1], &fps[2], &fps[3], &item.StorageKey, &item.Status,
		&item.DiscoveredAt, &item.QueuedAt, &item.ReleaseAt, &item.PostedAt, &item.RejectedAt, &item.FailedAt, &item.UpdatedAt)
	if err != nil {
		return nil, err
	}
	item.Fingerprints = unpackFingerprints(fps)
	return &item, nil
}

func (r *Repository) GetItem(ctx context.Context, id uuid.UUID) (*clipherd.ContentItem, error) {
	query := `SELECT ` + itemColumns + ` FROM content_items WHERE id = $1`

	item, err := scanItem(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, clipherd.ErrItemNotFound
		}
		return nil, err
	}
	return item, nil
}

func (r *Repository) UpdateItem(ctx context.Context, item *clipherd.ContentItem) error {
	query := `
		UPDATE content_items SET
			account = $2, source_ref = $3, original_author = $4, caption = $5, hashtags = $6,
			fp0 = $7, fp1 = $8, fp2 = $9, fp3 = $10, storage_key = $11, status = $12,
			queued_at = $13, release_at = $14, posted_at = $15, rejected_at = $16, failed_at = $17, updated_at = $18
		WHERE id = $1`

	fps := packFingerprints(item.Fingerprints)
	tag, err := r.db.Exec(ctx, query,
		item.ID, item.Account, item.SourceRef, item.OriginalAuthor, item.Caption, item.Hashtags,
		fps[0], fps[1], fps[2], fps[3], item.StorageKey, item.Status,
		item.QueuedAt, item.ReleaseAt, item.PostedAt, item.RejectedAt, item.FailedAt, item.UpdatedAt)

	if err != nil {
		return r.handlePostgresError("update item", err)
	}
	if tag.RowsAffected() == 0 {
		return clipherd.ErrItemNotFound
	}
	return nil
}

func (r *Repository) ListItems(ctx context.Context, account string, statuses ...clipherd.ItemStatus) ([]*clipherd.ContentItem, error) {
	query := `SELECT ` + itemColumns + ` FROM content_items WHERE account = $1`
	args := []interface{}{account}
	if len(statuses) > 0 {
		query += ` AND status = ANY($2)`
		strs := make([]string, len(statuses))
		for i, s := range statuses {
			strs[i] = string(s)
		}
		args = append(args, strs)
	}
	query += ` ORDER BY discovered_at ASC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, r.handlePostgresError("list items", err)
	}
	defer rows.Close()

	var result []*clipherd.ContentItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	return result, rows.Err()
}

func (r *Repository) PurgeItem(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM content_items WHERE id = $1`, id)
	if err != nil {
		return r.handlePostgresError("purge item", err)
	}
	if tag.RowsAffected() == 0 {
		return clipherd.ErrItemNotFound
	}
	return nil
}

// Account operations

func (r *Repository) CreateAccount(ctx context.Context, state *clipherd.AccountState) error {
	query := `
		INSERT INTO account_states (
			account, health, paused, halted, last_release, last_failure_at,
			posting_interval_ms, jitter_fraction, queue_low_threshold,
			rejected_lifespan_ms, max_hamming_distance, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := r.db.Exec(ctx, query,
		state.Account, state.Health, state.Paused, state.Halted, state.LastRelease, state.LastFailureAt,
		state.Settings.PostingInterval.Milliseconds(), state.Settings.JitterFraction, state.Settings.QueueLowThreshold,
		state.Settings.RejectedLifespan.Milliseconds(), state.Settings.MaxHammingDistance,
		state.CreatedAt, state.UpdatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return clipherd.ErrAccountExists
		}
		return r.handlePostgresError("create account", err)
	}
	return nil
}

const accountColumns = `account, health, paused, halted, last_release, last_failure_at,
	posting_interval_ms, jitter_fraction, queue_low_threshold,
	rejected_lifespan_ms, max_hamming_distance, created_at, updated_at`

func scanAccount(row pgx.Row) (*clipherd.AccountState, error) {
	var state clipherd.AccountState
	var intervalMs, rejectedMs int64
	err := row.Scan(
		&state.Account, &state.Health, &state.Paused, &state.Halted, &state.LastRelease, &state.LastFailureAt,
		&intervalMs, &state.Settings.JitterFraction, &state.Settings.QueueLowThreshold,
		&rejectedMs, &state.Settings.MaxHammingDistance, &state.CreatedAt, &state.UpdatedAt)
	if err != nil {
		return nil, err
	}
	state.Settings.PostingInterval = time.Duration(intervalMs) * time.Millisecond
	state.Settings.RejectedLifespan = time.Duration(rejectedMs) * time.Millisecond
	return &state, nil
}

func (r *Repository) GetAccount(ctx context.Context, account string) (*clipherd.AccountState, error) {
	query := `SELECT ` + accountColumns + ` FROM account_states WHERE account = $1`

	state, err := scanAccount(r.db.QueryRow(ctx, query, account))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, clipherd.ErrAccountNotFound
		}
		return nil, err
	}
	return state, nil
}

func (r *Repository) UpdateAccount(ctx context.Context, state *clipherd.AccountState) error {
	query := `
		UPDATE account_states SET
			health = $2, paused = $3, halted = $4, last_release = $5, last_failure_at = $6,
			posting_interval_ms = $7, jitter_fraction = $8, queue_low_threshold = $9,
			rejected_lifespan_ms = $10, max_hamming_distance = $11, updated_at = $12
		WHERE account = $1`

	tag, err := r.db.Exec(ctx, query,
		state.Account, state.Health, state.Paused, state.Halted, state.LastRelease, state.LastFailureAt,
		state.Settings.PostingInterval.Milliseconds(), state.Settings.JitterFraction, state.Settings.QueueLowThreshold,
		state.Settings.RejectedLifespan.Milliseconds(), state.Settings.MaxHammingDistance, state.UpdatedAt)

	if err != nil {
		return r.handlePostgresError("update account", err)
	}
	if tag.RowsAffected() == 0 {
		return clipherd.ErrAccountNotFound
	}
	return nil
}

func (r *Repository) ListAccounts(ctx context.Context) ([]*clipherd.AccountState, error) {
	query := `SELECT ` + accountColumns + ` FROM account_states ORDER BY account ASC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, r.handlePostgresError("list accounts", err)
	}
	defer rows.Close()

	var result []*clipherd.AccountState
	for rows.Next() {
		state, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, state)
	}
	return result, rows.Err()
}

// Published fingerprint operations

func (r *Repository) AddPublishedFingerprint(ctx context.Context, fp *clipherd.PublishedFingerprint) error {
	query := `
		INSERT INTO published_fingerprints (source_ref, account, fp0, fp1, fp2, fp3, published_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (source_ref) DO NOTHING`

	fps := packFingerprints(fp.Fingerprints)
	_, err := r.db.Exec(ctx, query,
		fp.SourceRef, fp.Account, fps[0], fps[1], fps[2], fps[3], fp.PublishedAt)
	if err != nil {
		return r.handlePostgresError("add published fingerprint", err)
	}
	return nil
}

func (r *Repository) ListPublishedFingerprints(ctx context.Context) ([]*clipherd.PublishedFingerprint, error) {
	query := `
		SELECT source_ref, account, fp0, fp1, fp2, fp3, published_at
		FROM published_fingerprints ORDER BY published_at ASC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, r.handlePostgresError("list published fingerprints", err)
	}
	defer rows.Close()

	var result []*clipherd.PublishedFingerprint
	for rows.Next() {
		var fp clipherd.PublishedFingerprint
		var raw [clipherd.FrameSamples]int64
		if err := rows.Scan(&fp.SourceRef, &fp.Account, &raw[0], &raw[1], &raw[2], &raw[3], &fp.PublishedAt); err != nil {
			return nil, err
		}
		fp.Fingerprints = unpackFingerprints(raw)
		result = append(result, &fp)
	}
	return result, rows.Err()
}

func (r *Repository) DeletePublishedFingerprintsBefore(ctx context.Context, cutoff time.Time) (int, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM published_fingerprints WHERE published_at < $1`, cutoff)
	if err != nil {
		return 0, r.handlePostgresError("delete published fingerprints", err)
	}
	return int(tag.RowsAffected()), nil
}

// Command operations

func (r *Repository) EnqueueCommand(ctx context.Context, cmd *clipherd.Command) error {
	query := `
		INSERT INTO commands (
			id, account, kind, item_id, source_ref, original_author, caption, hashtags, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING`

	var sourceRef, originalAuthor *string
	caption := cmd.Caption
	hashtags := cmd.Hashtags
	if cmd.Discovery != nil {
		sourceRef = &cmd.Discovery.SourceRef
		originalAuthor = &cmd.Discovery.OriginalAuthor
		caption = cmd.Discovery.Caption
		hashtags = cmd.Discovery.Hashtags
	}

	_, err := r.db.Exec(ctx, query,
		cmd.ID, cmd.Account, cmd.Kind, cmd.ItemID, sourceRef, originalAuthor, caption, hashtags, cmd.CreatedAt)
	if err != nil {
		return r.handlePostgresError("enqueue command", err)
	}
	return nil
}

func (r *Repository) PendingCommands(ctx context.Context, account string) ([]*clipherd.Command, error) {
	query := `
		SELECT id, account, kind, item_id, source_ref, original_author, caption, hashtags, created_at
		FROM commands WHERE account = $1 ORDER BY created_at ASC`

	rows, err := r.db.Query(ctx, query, account)
	if err != nil {
		return nil, r.handlePostgresError("pending commands", err)
	}
	defer rows.Close()

	var result []*clipherd.Command
	for rows.Next() {
		var cmd clipherd.Command
		var sourceRef, originalAuthor *string
		if err := rows.Scan(&cmd.ID, &cmd.Account, &cmd.Kind, &cmd.ItemID,
			&sourceRef, &originalAuthor, &cmd.Caption, &cmd.Hashtags, &cmd.CreatedAt); err != nil {
			return nil, err
		}
		if sourceRef != nil {
			cmd.Discovery = &clipherd.Discovery{
				SourceRef: *sourceRef,
				Caption:   cmd.Caption,
				Hashtags:  cmd.Hashtags,
			}
			if originalAuthor != nil {
				cmd.Discovery.OriginalAuthor = *originalAuthor
			}
		}
		result = append(result, &cmd)
	}
	return result, rows.Err()
}

func (r *Repository) CompleteCommand(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM commands WHERE id = $1`, id)
	if err != nil {
		return r.handlePostgresError("complete command", err)
	}
	if tag.RowsAffected() == 0 {
		return clipherd.ErrCommandNotFound
	}
	return nil
}
