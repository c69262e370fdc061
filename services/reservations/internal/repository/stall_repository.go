package repository

import (
	"context"
	"time"

	"github.com/diagnosis/bookfair-stalls/services/reservations/internal/domain"
)

// StallRepository is the ground truth for stall availability.
type StallRepository interface {
	List(ctx context.Context) ([]domain.Stall, error)
	// ApplyReservation overwrites the reservation fields of every known id
	// without checking whether the stall is already taken.
	ApplyReservation(ctx context.Context, ids []string, requester, publisherName string) ([]domain.Stall, error)
	// Reserve takes every known id or none. Stalls already held by requester
	// count as free. Unknown ids are reported, not treated as errors.
	Reserve(ctx context.Context, ids []string, requester, publisherName string) (*ReserveOutcome, error)
	// Release frees each stall only while it still carries the holder and
	// version recorded in the given snapshot.
	Release(ctx context.Context, held []domain.Stall) (int, error)
	ReleaseByPublisher(ctx context.Context, publisherName string) (int, error)
	ListReserved(ctx context.Context) ([]domain.Stall, error)
}

// ReserveOutcome is the result of a successful Reserve.
type ReserveOutcome struct {
	// Reserved holds every known requested stall as written.
	Reserved []domain.Stall
	// Acquired is the subset of Reserved that was free before the call.
	Acquired []domain.Stall
	Unknown  []string
}

// ReservedIDs returns the ids of o.Reserved in request order.
func (o *ReserveOutcome) ReservedIDs() []string {
	ids := make([]string, 0, len(o.Reserved))
	for _, s := range o.Reserved {
		ids = append(ids, s.ID)
	}
	return ids
}

type reservePlan struct {
	targets   []string
	fresh     map[string]bool
	unknown   []string
	conflicts []string
}

// planReserve sorts ids against the current stall state. lookup reports the
// stall for an id and whether it exists.
func planReserve(ids []string, requester string, lookup func(id string) (domain.Stall, bool)) reservePlan {
	p := reservePlan{fresh: make(map[string]bool)}
	for _, id := range ids {
		s, ok := lookup(id)
		switch {
		case !ok:
			p.unknown = append(p.unknown, id)
		case !s.AvailableTo(requester):
			p.conflicts = append(p.conflicts, id)
		default:
			p.targets = append(p.targets, id)
			if !s.Reserved {
				p.fresh[id] = true
			}
		}
	}
	return p
}

func (p reservePlan) conflictErr() error {
	if len(p.conflicts) == 0 {
		return nil
	}
	return &domain.ConflictError{Stalls: p.conflicts}
}

// record adds a written stall to o, marking it acquired when it was free.
func (p reservePlan) record(o *ReserveOutcome, s domain.Stall) {
	o.Reserved = append(o.Reserved, s)
	if p.fresh[s.ID] {
		o.Acquired = append(o.Acquired, s)
	}
}

var nowFunc = func() time.Time { return time.Now().UTC() }
