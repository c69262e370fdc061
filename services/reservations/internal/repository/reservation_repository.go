package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/diagnosis/bookfair-stalls/services/reservations/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ReservationRepository stores the confirmation log. Get returns nil, nil when
// the id is unknown.
type ReservationRepository interface {
	// Claim stores res only when its id is new or its last attempt failed.
	// It reports false when another attempt owns the id.
	Claim(ctx context.Context, res *domain.Reservation) (bool, error)
	Save(ctx context.Context, res *domain.Reservation) error
	Get(ctx context.Context, id string) (*domain.Reservation, error)
	List(ctx context.Context, limit, offset int) ([]domain.Reservation, error)
}

type reservationRepository struct {
	pool *pgxpool.Pool
}

func NewReservationRepository(pool *pgxpool.Pool) ReservationRepository {
	return &reservationRepository{pool: pool}
}

const reservationCols = `id, email, publisher_name, stalls, status, current_step,
qr_url, qr_object, errors, created_at, updated_at`

func (r *reservationRepository) Save(ctx context.Context, res *domain.Reservation) error {
	const q = `INSERT INTO reservations (
		id, email, publisher_name, stalls, status, current_step, qr_url, qr_object, errors
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	ON CONFLICT (id) DO UPDATE SET
		email = EXCLUDED.email,
		publisher_name = EXCLUDED.publisher_name,
		stalls = EXCLUDED.stalls,
		status = EXCLUDED.status,
		current_step = EXCLUDED.current_step,
		qr_url = EXCLUDED.qr_url,
		qr_object = EXCLUDED.qr_object,
		errors = EXCLUDED.errors,
		updated_at = now()
	RETURNING created_at, updated_at`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	errs := res.Errors
	if errs == nil {
		errs = []string{}
	}
	return r.pool.QueryRow(ctx, q,
		res.ID, res.Email, res.PublisherName, res.Stalls, res.Status, res.CurrentStep,
		res.QRURL, res.QRObject, errs,
	).Scan(&res.CreatedAt, &res.UpdatedAt)
}

func (r *reservationRepository) Claim(ctx context.Context, res *domain.Reservation) (bool, error) {
	const q = `INSERT INTO reservations (
		id, email, publisher_name, stalls, status, current_step, qr_url, qr_object, errors
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	ON CONFLICT (id) DO UPDATE SET
		email = EXCLUDED.email,
		publisher_name = EXCLUDED.publisher_name,
		stalls = EXCLUDED.stalls,
		status = EXCLUDED.status,
		current_step = EXCLUDED.current_step,
		qr_url = EXCLUDED.qr_url,
		qr_object = EXCLUDED.qr_object,
		errors = EXCLUDED.errors,
		updated_at = now()
	WHERE reservations.status = $10
	RETURNING created_at, updated_at`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	errs := res.Errors
	if errs == nil {
		errs = []string{}
	}
	err := r.pool.QueryRow(ctx, q,
		res.ID, res.Email, res.PublisherName, res.Stalls, res.Status, res.CurrentStep,
		res.QRURL, res.QRObject, errs, domain.ReservationFailed,
	).Scan(&res.CreatedAt, &res.UpdatedAt)
	if err == pgx.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func scanReservation(row pgx.Row) (*domain.Reservation, error) {
	var res domain.Reservation
	err := row.Scan(
		&res.ID, &res.Email, &res.PublisherName, &res.Stalls, &res.Status, &res.CurrentStep,
		&res.QRURL, &res.QRObject, &res.Errors, &res.CreatedAt, &res.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (r *reservationRepository) Get(ctx context.Context, id string) (*domain.Reservation, error) {
	const q = `SELECT ` + reservationCols + ` FROM reservations WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res, err := scanReservation(r.pool.QueryRow(ctx, q, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return res, err
}

func (r *reservationRepository) List(ctx context.Context, limit, offset int) ([]domain.Reservation, error) {
	limit, offset = clampPage(limit, offset)
	const q = `SELECT ` + reservationCols + ` FROM reservations ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	rows, err := r.pool.Query(ctx, q, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *res)
	}
	return out, rows.Err()
}

type memoryReservationRepository struct {
	mu   sync.RWMutex
	byID map[string]domain.Reservation
}

func NewMemoryReservationRepository() ReservationRepository {
	return &memoryReservationRepository{byID: make(map[string]domain.Reservation)}
}

func (r *memoryReservationRepository) Claim(_ context.Context, res *domain.Reservation) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byID[res.ID]; ok && existing.Status != domain.ReservationFailed {
		return false, nil
	}
	r.put(res)
	return true, nil
}

func (r *memoryReservationRepository) Save(_ context.Context, res *domain.Reservation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.put(res)
	return nil
}

// put must be called with mu held.
func (r *memoryReservationRepository) put(res *domain.Reservation) {
	now := nowFunc()
	if existing, ok := r.byID[res.ID]; ok {
		res.CreatedAt = existing.CreatedAt
	} else if res.CreatedAt.IsZero() {
		res.CreatedAt = now
	}
	res.UpdatedAt = now

	cp := *res
	cp.Stalls = append([]string(nil), res.Stalls...)
	cp.Errors = append([]string(nil), res.Errors...)
	r.byID[res.ID] = cp
}

func (r *memoryReservationRepository) Get(_ context.Context, id string) (*domain.Reservation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	res, ok := r.byID[id]
	if !ok {
		return nil, nil
	}
	return &res, nil
}

func (r *memoryReservationRepository) List(_ context.Context, limit, offset int) ([]domain.Reservation, error) {
	limit, offset = clampPage(limit, offset)

	r.mu.RLock()
	all := make([]domain.Reservation, 0, len(r.byID))
	for _, res := range r.byID {
		all = append(all, res)
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
