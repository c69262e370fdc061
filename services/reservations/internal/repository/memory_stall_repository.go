package repository

import (
	"context"
	"sync"

	"github.com/diagnosis/bookfair-stalls/services/reservations/internal/domain"
)

type memoryStallRepository struct {
	mu     sync.Mutex
	stalls []domain.Stall
	index  map[string]int
}

func NewMemoryStallRepository(seed []domain.Stall) StallRepository {
	r := &memoryStallRepository{
		stalls: make([]domain.Stall, len(seed)),
		index:  make(map[string]int, len(seed)),
	}
	copy(r.stalls, seed)
	for i, s := range r.stalls {
		r.index[s.ID] = i
	}
	return r
}

func (r *memoryStallRepository) List(_ context.Context) ([]domain.Stall, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshot(), nil
}

func (r *memoryStallRepository) ApplyReservation(_ context.Context, ids []string, requester, publisherName string) ([]domain.Stall, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := nowFunc()
	for _, id := range ids {
		if i, ok := r.index[id]; ok {
			r.stalls[i].Assign(requester, publisherName, now)
		}
	}
	return r.snapshot(), nil
}

func (r *memoryStallRepository) Reserve(_ context.Context, ids []string, requester, publisherName string) (*ReserveOutcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	plan := planReserve(ids, requester, func(id string) (domain.Stall, bool) {
		i, ok := r.index[id]
		if !ok {
			return domain.Stall{}, false
		}
		return r.stalls[i], true
	})
	if err := plan.conflictErr(); err != nil {
		return nil, err
	}

	now := nowFunc()
	out := &ReserveOutcome{Unknown: plan.unknown}
	for _, id := range plan.targets {
		i := r.index[id]
		r.stalls[i].Assign(requester, publisherName, now)
		plan.record(out, r.stalls[i])
	}
	return out, nil
}

func (r *memoryStallRepository) Release(_ context.Context, held []domain.Stall) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := nowFunc()
	released := 0
	for _, h := range held {
		i, ok := r.index[h.ID]
		if !ok {
			continue
		}
		cur := &r.stalls[i]
		if !cur.Reserved || cur.ReservedBy != h.ReservedBy || cur.Version != h.Version {
			continue
		}
		cur.Free(now)
		released++
	}
	return released, nil
}

func (r *memoryStallRepository) ReleaseByPublisher(_ context.Context, publisherName string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := nowFunc()
	released := 0
	for i := range r.stalls {
		if r.stalls[i].Reserved && r.stalls[i].PublisherName == publisherName {
			r.stalls[i].Free(now)
			released++
		}
	}
	return released, nil
}

func (r *memoryStallRepository) ListReserved(_ context.Context) ([]domain.Stall, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var reserved []domain.Stall
	for _, s := range r.stalls {
		if s.Reserved {
			reserved = append(reserved, s)
		}
	}
	return reserved, nil
}

// snapshot must be called with mu held.
func (r *memoryStallRepository) snapshot() []domain.Stall {
	out := make([]domain.Stall, len(r.stalls))
	copy(out, r.stalls)
	return out
}
