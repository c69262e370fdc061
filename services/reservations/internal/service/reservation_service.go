package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/diagnosis/bookfair-stalls/pkg/events"
	"github.com/diagnosis/bookfair-stalls/pkg/logger"
	"github.com/diagnosis/bookfair-stalls/services/reservations/internal/domain"
	"github.com/diagnosis/bookfair-stalls/services/reservations/internal/repository"
)

type ReservationService interface {
	ListStalls(ctx context.Context) ([]domain.Stall, error)
	Reserve(ctx context.Context, req *domain.ReserveRequest) (*domain.ReserveResult, error)
	Assign(ctx context.Context, req *domain.ReserveRequest) (*domain.ReserveResult, error)
	Release(ctx context.Context, held []domain.Stall, reason string) (int, error)
	ListReserved(ctx context.Context) ([]domain.Stall, error)
	Unreserve(ctx context.Context, publisherName string) (int, error)
}

type reservationService struct {
	stalls    repository.StallRepository
	eventBus  events.EventBus
	maxStalls int
}

func NewReservationService(stalls repository.StallRepository, eventBus events.EventBus, maxStalls int) ReservationService {
	return &reservationService{
		stalls:    stalls,
		eventBus:  eventBus,
		maxStalls: maxStalls,
	}
}

func (s *reservationService) ListStalls(ctx context.Context) ([]domain.Stall, error) {
	stalls, err := s.stalls.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list stalls: %w", err)
	}
	return stalls, nil
}

func (s *reservationService) validate(req *domain.ReserveRequest) error {
	req.Normalize()
	if err := domain.Validate(req); err != nil {
		return err
	}
	if s.maxStalls > 0 && len(req.Stalls) > s.maxStalls {
		return fmt.Errorf("%w: at most %d stalls may be reserved at once", domain.ErrValidation, s.maxStalls)
	}
	return nil
}

func (s *reservationService) Reserve(ctx context.Context, req *domain.ReserveRequest) (*domain.ReserveResult, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}

	out, err := s.stalls.Reserve(ctx, req.Stalls, req.Email, req.PublisherName)
	if err != nil {
		return nil, fmt.Errorf("failed to reserve stalls: %w", err)
	}
	if len(out.Unknown) > 0 {
		logger.WarnContext(ctx, "Ignoring unknown stall ids", "stalls", out.Unknown, "email", req.Email)
	}

	snapshot, err := s.stalls.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list stalls: %w", err)
	}

	ids := out.ReservedIDs()
	logger.InfoContext(ctx, "Stalls reserved", "stalls", ids, "email", req.Email, "acquired", len(out.Acquired))

	return &domain.ReserveResult{
		Message:  "Stalls reserved successfully",
		Reserved: ids,
		Ignored:  out.Unknown,
		Stalls:   snapshot,
		Acquired: out.Acquired,
	}, nil
}

// Assign writes the reservation without checking current holders.
func (s *reservationService) Assign(ctx context.Context, req *domain.ReserveRequest) (*domain.ReserveResult, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}

	snapshot, err := s.stalls.ApplyReservation(ctx, req.Stalls, req.Email, req.PublisherName)
	if err != nil {
		return nil, fmt.Errorf("failed to assign stalls: %w", err)
	}

	known := make(map[string]bool, len(snapshot))
	for _, st := range snapshot {
		known[st.ID] = true
	}
	result := &domain.ReserveResult{Message: "Stalls assigned", Stalls: snapshot}
	for _, id := range req.Stalls {
		if known[id] {
			result.Reserved = append(result.Reserved, id)
		} else {
			result.Ignored = append(result.Ignored, id)
		}
	}

	logger.InfoContext(ctx, "Stalls assigned", "stalls", result.Reserved, "email", req.Email)
	return result, nil
}

// Release frees the given stall snapshots. A stall changed since its
// snapshot was taken is left alone.
func (s *reservationService) Release(ctx context.Context, held []domain.Stall, reason string) (int, error) {
	if len(held) == 0 {
		return 0, nil
	}
	n, err := s.stalls.Release(ctx, held)
	if err != nil {
		return 0, fmt.Errorf("failed to release stalls: %w", err)
	}
	if n > 0 {
		ids := make([]string, 0, len(held))
		for _, st := range held {
			ids = append(ids, st.ID)
		}
		s.publishReleased(ctx, ids, held[0].ReservedBy, reason)
	}
	return n, nil
}

func (s *reservationService) ListReserved(ctx context.Context) ([]domain.Stall, error) {
	stalls, err := s.stalls.ListReserved(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list reserved stalls: %w", err)
	}
	if stalls == nil {
		stalls = []domain.Stall{}
	}
	return stalls, nil
}

func (s *reservationService) Unreserve(ctx context.Context, publisherName string) (int, error) {
	publisherName = strings.TrimSpace(publisherName)
	if publisherName == "" {
		return 0, fmt.Errorf("%w: publisher name is required", domain.ErrValidation)
	}

	held, err := s.stalls.ListReserved(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list reserved stalls: %w", err)
	}
	var ids []string
	for _, st := range held {
		if st.PublisherName == publisherName {
			ids = append(ids, st.ID)
		}
	}

	n, err := s.stalls.ReleaseByPublisher(ctx, publisherName)
	if err != nil {
		return 0, fmt.Errorf("failed to unreserve stalls: %w", err)
	}
	if n == 0 {
		return 0, fmt.Errorf("%w: no stalls reserved by %q", domain.ErrNotFound, publisherName)
	}

	logger.InfoContext(ctx, "Stalls unreserved by admin", "publisher_name", publisherName, "count", n)
	s.publishReleased(ctx, ids, publisherName, "admin_unreserve")
	return n, nil
}

func (s *reservationService) publishReleased(ctx context.Context, ids []string, by, reason string) {
	event := events.StallsReleasedEvent{
		Stalls:     ids,
		ReleasedBy: by,
		Reason:     reason,
		ReleasedAt: time.Now().UTC(),
	}
	if err := s.eventBus.Publish(ctx, events.StallsReleased, event); err != nil {
		logger.ErrorContext(ctx, "Failed to publish stalls released event", "error", err)
	}
}
