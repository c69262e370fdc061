package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/diagnosis/bookfair-stalls/services/reservations/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type stallRepository struct {
	pool *pgxpool.Pool
}

func NewStallRepository(pool *pgxpool.Pool) StallRepository {
	return &stallRepository{pool: pool}
}

const stallCols = `id, size, reserved, reserved_by, publisher_name, version, updated_at`

// Seed inserts the given stalls, leaving existing rows untouched.
func Seed(ctx context.Context, pool *pgxpool.Pool, stalls []domain.Stall) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	batch := &pgx.Batch{}
	for _, s := range stalls {
		batch.Queue(`INSERT INTO stalls (id, size) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING`, s.ID, s.Size)
	}
	br := pool.SendBatch(ctx, batch)
	defer br.Close()

	for range stalls {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("seed stalls: %w", err)
		}
	}
	return nil
}

func scanStall(row pgx.Row) (domain.Stall, error) {
	var s domain.Stall
	err := row.Scan(&s.ID, &s.Size, &s.Reserved, &s.ReservedBy, &s.PublisherName, &s.Version, &s.UpdatedAt)
	return s, err
}

func (r *stallRepository) query(ctx context.Context, q string, args ...any) ([]domain.Stall, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stalls []domain.Stall
	for rows.Next() {
		s, err := scanStall(rows)
		if err != nil {
			return nil, err
		}
		stalls = append(stalls, s)
	}
	return stalls, rows.Err()
}

func (r *stallRepository) List(ctx context.Context) ([]domain.Stall, error) {
	return r.query(ctx, `SELECT `+stallCols+` FROM stalls ORDER BY id`)
}

func (r *stallRepository) ListReserved(ctx context.Context) ([]domain.Stall, error) {
	return r.query(ctx, `SELECT `+stallCols+` FROM stalls WHERE reserved ORDER BY id`)
}

func (r *stallRepository) ApplyReservation(ctx context.Context, ids []string, requester, publisherName string) ([]domain.Stall, error) {
	const q = `UPDATE stalls
		SET reserved = true, reserved_by = $2, publisher_name = $3, version = version + 1, updated_at = now()
		WHERE id = ANY($1)`

	execCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if _, err := r.pool.Exec(execCtx, q, ids, requester, publisherName); err != nil {
		return nil, err
	}
	return r.List(ctx)
}

func (r *stallRepository) Reserve(ctx context.Context, ids []string, requester, publisherName string) (*ReserveOutcome, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `SELECT `+stallCols+` FROM stalls WHERE id = ANY($1) ORDER BY id FOR UPDATE`, ids)
	if err != nil {
		return nil, err
	}
	found := make(map[string]domain.Stall, len(ids))
	for rows.Next() {
		s, err := scanStall(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		found[s.ID] = s
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	plan := planReserve(ids, requester, func(id string) (domain.Stall, bool) {
		s, ok := found[id]
		return s, ok
	})
	if err := plan.conflictErr(); err != nil {
		return nil, err
	}

	out := &ReserveOutcome{Unknown: plan.unknown}
	for _, id := range plan.targets {
		s, err := scanStall(tx.QueryRow(ctx, `UPDATE stalls
			SET reserved = true, reserved_by = $2, publisher_name = $3, version = version + 1, updated_at = now()
			WHERE id = $1
			RETURNING `+stallCols, id, requester, publisherName))
		if err != nil {
			return nil, err
		}
		plan.record(out, s)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *stallRepository) Release(ctx context.Context, held []domain.Stall) (int, error) {
	const q = `UPDATE stalls
		SET reserved = false, reserved_by = '', publisher_name = '', version = version + 1, updated_at = now()
		WHERE id = $1 AND reserved AND reserved_by = $2 AND version = $3`

	if len(held) == 0 {
		return 0, nil
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	batch := &pgx.Batch{}
	for _, h := range held {
		batch.Queue(q, h.ID, h.ReservedBy, h.Version)
	}
	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	released := 0
	for range held {
		tag, err := br.Exec()
		if err != nil {
			return released, err
		}
		released += int(tag.RowsAffected())
	}
	return released, nil
}

func (r *stallRepository) ReleaseByPublisher(ctx context.Context, publisherName string) (int, error) {
	const q = `UPDATE stalls
		SET reserved = false, reserved_by = '', publisher_name = '', version = version + 1, updated_at = now()
		WHERE reserved AND publisher_name = $1`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	tag, err := r.pool.Exec(ctx, q, publisherName)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}
