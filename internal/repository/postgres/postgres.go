package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/asm0dey/java-version-checker-sub002/internal/domain"
	"github.com/asm0dey/java-version-checker-sub002/internal/repository"
)

// Repository implements persistence interfaces on PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// New constructs a Repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ensure Repository satisfies interfaces.
var _ repository.AnalysisRepository = (*Repository)(nil)

// CreateAnalysisRun inserts a run in its initial state.
func (r *Repository) CreateAnalysisRun(ctx context.Context, run *domain.AnalysisRun) error {
	if run == nil {
		return fmt.Errorf("analysis run required")
	}
	status := strings.TrimSpace(run.Status)
	if status == "" {
		status = domain.AnalysisStatusRunning
	}
	run.Status = status
	const query = `INSERT INTO analysis_runs (id, file_name, status, total_files, distinct_count, legacy_count, licensed_count, error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, COALESCE($9, NOW()))
		RETURNING created_at`
	var createdAt time.Time
	err := r.pool.QueryRow(ctx, query,
		run.ID,
		run.FileName,
		run.Status,
		run.TotalFiles,
		run.DistinctCount,
		run.LegacyCount,
		run.LicensedCount,
		nilIfEmpty(run.Error),
		nilTime(run.CreatedAt),
	).Scan(&createdAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23514", "22P02", "23505":
				return repository.ErrInvalidArgument
			}
		}
		return err
	}
	run.CreatedAt = createdAt
	return nil
}

// UpdateAnalysisRun writes the terminal state of a run.
func (r *Repository) UpdateAnalysisRun(ctx context.Context, update domain.AnalysisRunUpdate) error {
	const query = `UPDATE analysis_runs
		SET status = COALESCE($2, status),
			total_files = $3,
			distinct_count = $4,
			legacy_count = $5,
			licensed_count = $6,
			error = $7,
			completed_at = $8
		WHERE id = $1 RETURNING id`
	var id string
	err := r.pool.QueryRow(ctx, query,
		update.ID,
		nilIfEmpty(update.Status),
		update.TotalFiles,
		update.DistinctCount,
		update.LegacyCount,
		update.LicensedCount,
		nilIfEmpty(update.Error),
		nilTime(update.CompletedAt),
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23514", "22P02":
				return repository.ErrInvalidArgument
			}
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return repository.ErrNotFound
		}
		return err
	}
	return nil
}

// GetAnalysisRun fetches a run by identifier.
func (r *Repository) GetAnalysisRun(ctx context.Context, runID string) (*domain.AnalysisRun, error) {
	const query = `SELECT id, file_name, status, total_files, distinct_count, legacy_count, licensed_count, error, created_at, completed_at
		FROM analysis_runs WHERE id = $1`
	row := r.pool.QueryRow(ctx, query, runID)
	run, err := scanAnalysisRun(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return run, nil
}

// ListAnalysisRuns returns recent runs, newest first.
func (r *Repository) ListAnalysisRuns(ctx context.Context, limit, offset int) ([]domain.AnalysisRun, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	const query = `SELECT id, file_name, status, total_files, distinct_count, legacy_count, licensed_count, error, created_at, completed_at
		FROM analysis_runs ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2`
	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]domain.AnalysisRun, 0)
	for rows.Next() {
		run, err := scanAnalysisRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// InsertObservations stores the distinct observation set of a run in its
// aggregate order.
func (r *Repository) InsertObservations(ctx context.Context, runID string, observations []domain.RuntimeObservation) error {
	if len(observations) == 0 {
		return nil
	}
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const query = `INSERT INTO runtime_observations (run_id, position, version, runtime_version, vm_version, vendor, vm_vendor, source_name, is_legacy, requires_license, license_rule, license_explanation, age_tier)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	batch := &pgx.Batch{}
	for i, obs := range observations {
		batch.Queue(query,
			runID,
			i,
			obs.Version,
			nilIfEmpty(obs.RuntimeVersion),
			nilIfEmpty(obs.VMVersion),
			nilIfEmpty(obs.Vendor),
			nilIfEmpty(obs.VMVendor),
			nilIfEmpty(obs.SourceName),
			obs.IsLegacyTier,
			obs.RequiresLicense,
			obs.LicenseRule,
			obs.LicenseExplanation,
			obs.AgeTier,
		)
	}
	br := tx.SendBatch(ctx, batch)
	for range observations {
		if _, err := br.Exec(); err != nil {
			br.Close()
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) {
				switch pgErr.Code {
				case "23503":
					return repository.ErrNotFound
				case "23514", "22P02", "23505":
					return repository.ErrInvalidArgument
				}
			}
			return err
		}
	}
	if err := br.Close(); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// ListObservationsByRun returns a run's observations in stored order.
func (r *Repository) ListObservationsByRun(ctx context.Context, runID string) ([]domain.RuntimeObservation, error) {
	const query = `SELECT version, runtime_version, vm_version, vendor, vm_vendor, source_name, is_legacy, requires_license, license_rule, license_explanation, age_tier
		FROM runtime_observations WHERE run_id = $1 ORDER BY position ASC`
	rows, err := r.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	observations := make([]domain.RuntimeObservation, 0)
	for rows.Next() {
		var (
			obs            domain.RuntimeObservation
			runtimeVersion sql.NullString
			vmVersion      sql.NullString
			vendor         sql.NullString
			vmVendor       sql.NullString
			sourceName     sql.NullString
		)
		if err := rows.Scan(
			&obs.Version,
			&runtimeVersion,
			&vmVersion,
			&vendor,
			&vmVendor,
			&sourceName,
			&obs.IsLegacyTier,
			&obs.RequiresLicense,
			&obs.LicenseRule,
			&obs.LicenseExplanation,
			&obs.AgeTier,
		); err != nil {
			return nil, err
		}
		obs.RuntimeVersion = runtimeVersion.String
		obs.VMVersion = vmVersion.String
		obs.Vendor = vendor.String
		obs.VMVendor = vmVendor.String
		obs.SourceName = sourceName.String
		observations = append(observations, obs)
	}
	return observations, rows.Err()
}

func scanAnalysisRun(row pgx.Row) (*domain.AnalysisRun, error) {
	var (
		run    domain.AnalysisRun
		runErr sql.NullString
		doneAt sql.NullTime
	)
	if err := row.Scan(
		&run.ID,
		&run.FileName,
		&run.Status,
		&run.TotalFiles,
		&run.DistinctCount,
		&run.LegacyCount,
		&run.LicensedCount,
		&runErr,
		&run.CreatedAt,
		&doneAt,
	); err != nil {
		return nil, err
	}
	run.Error = runErr.String
	if doneAt.Valid {
		value := doneAt.Time
		run.CompletedAt = &value
	}
	return &run, nil
}

func nilIfEmpty(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func nilTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
