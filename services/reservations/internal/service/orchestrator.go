package service

import (
	"context"
	"fmt"
	"time"

	"github.com/diagnosis/bookfair-stalls/pkg/events"
	"github.com/diagnosis/bookfair-stalls/pkg/logger"
	"github.com/diagnosis/bookfair-stalls/services/reservations/internal/domain"
	"github.com/diagnosis/bookfair-stalls/services/reservations/internal/mailer"
	"github.com/diagnosis/bookfair-stalls/services/reservations/internal/repository"
	"github.com/google/uuid"
)

// Step is one stage of a confirmation. Compensate undoes a successful Execute.
type Step interface {
	Name() string
	Execute(ctx context.Context) error
	Compensate(ctx context.Context) error
}

const (
	StepReserveStalls    = "reserve_stalls"
	StepIssueQR          = "issue_qr"
	StepSendConfirmation = "send_confirmation"
)

type Orchestrator interface {
	Confirm(ctx context.Context, req *domain.ConfirmRequest) (*domain.ConfirmResult, error)
	GetReservation(ctx context.Context, id string) (*domain.Reservation, error)
	ListReservations(ctx context.Context, limit, offset int) ([]domain.Reservation, error)
}

type orchestrator struct {
	reservations ReservationService
	qr           QRService
	mailer       mailer.Service
	log          repository.ReservationRepository
	eventBus     events.EventBus
}

func NewOrchestrator(
	reservations ReservationService,
	qr QRService,
	mailer mailer.Service,
	log repository.ReservationRepository,
	eventBus events.EventBus,
) Orchestrator {
	return &orchestrator{
		reservations: reservations,
		qr:           qr,
		mailer:       mailer,
		log:          log,
		eventBus:     eventBus,
	}
}

// confirmation is the state shared by the steps of one Confirm call.
type confirmation struct {
	req      *domain.ReserveRequest
	record   *domain.Reservation
	ignored  []string
	acquired []domain.Stall
}

type reserveStallsStep struct {
	svc ReservationService
	c   *confirmation
}

func (s *reserveStallsStep) Name() string { return StepReserveStalls }

func (s *reserveStallsStep) Execute(ctx context.Context) error {
	result, err := s.svc.Reserve(ctx, s.c.req)
	if err != nil {
		return err
	}
	if len(result.Reserved) == 0 {
		return fmt.Errorf("%w: none of the requested stalls exist", domain.ErrValidation)
	}
	s.c.record.Email = s.c.req.Email
	s.c.record.PublisherName = s.c.req.PublisherName
	s.c.record.Stalls = result.Reserved
	s.c.ignored = result.Ignored
	s.c.acquired = result.Acquired
	return nil
}

// Compensate frees only the stalls this confirmation took. Stalls the
// requester already held stay with their earlier reservation.
func (s *reserveStallsStep) Compensate(ctx context.Context) error {
	_, err := s.svc.Release(ctx, s.c.acquired, "confirmation_rollback")
	return err
}

type issueQRStep struct {
	qr QRService
	c  *confirmation
}

func (s *issueQRStep) Name() string { return StepIssueQR }

func (s *issueQRStep) Execute(ctx context.Context) error {
	code, err := s.qr.Issue(ctx, s.c.record.ID, s.c.record.Email, s.c.record.PublisherName)
	if err != nil {
		return err
	}
	s.c.record.QRURL = code.URL
	s.c.record.QRObject = code.Object
	return nil
}

func (s *issueQRStep) Compensate(ctx context.Context) error {
	if s.c.record.QRObject == "" {
		return nil
	}
	if err := s.qr.Revoke(ctx, s.c.record.QRObject); err != nil {
		return err
	}
	s.c.record.QRURL = ""
	s.c.record.QRObject = ""
	return nil
}

type sendConfirmationStep struct {
	mailer mailer.Service
	c      *confirmation
}

func (s *sendConfirmationStep) Name() string { return StepSendConfirmation }

func (s *sendConfirmationStep) Execute(ctx context.Context) error {
	err := s.mailer.SendReservationConfirmation(ctx, domain.ConfirmationEmail{
		To:            s.c.record.Email,
		PublisherName: s.c.record.PublisherName,
		ReservationID: s.c.record.ID,
		Stalls:        s.c.record.Stalls,
		QRURL:         s.c.record.QRURL,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrNotification, err)
	}
	return nil
}

// Compensate is a no-op: a sent email cannot be recalled.
func (s *sendConfirmationStep) Compensate(context.Context) error { return nil }

func (o *orchestrator) Confirm(ctx context.Context, req *domain.ConfirmRequest) (*domain.ConfirmResult, error) {
	if err := domain.Validate(req); err != nil {
		return nil, err
	}
	if req.ReservationID == "" {
		req.ReservationID = uuid.NewString()
	}
	ctx = logger.WithReservation(ctx, req.ReservationID)

	reserveReq := req.ReserveRequest()
	reserveReq.Normalize()

	if replay, err := o.checkExisting(ctx, req.ReservationID, reserveReq.Email); err != nil || replay != nil {
		return replay, err
	}

	c := &confirmation{
		req: reserveReq,
		record: &domain.Reservation{
			ID:            req.ReservationID,
			Email:         reserveReq.Email,
			PublisherName: reserveReq.PublisherName,
			Stalls:        reserveReq.Stalls,
			Status:        domain.ReservationStarted,
		},
	}

	claimed, err := o.log.Claim(ctx, c.record)
	if err != nil {
		return nil, fmt.Errorf("failed to claim reservation: %w", err)
	}
	if !claimed {
		// Another attempt took the id between the check and the claim.
		if replay, err := o.checkExisting(ctx, req.ReservationID, reserveReq.Email); err != nil || replay != nil {
			return replay, err
		}
		return nil, fmt.Errorf("%w: %s is still being confirmed", domain.ErrReservationExists, req.ReservationID)
	}

	steps := []Step{
		&reserveStallsStep{svc: o.reservations, c: c},
		&issueQRStep{qr: o.qr, c: c},
		&sendConfirmationStep{mailer: o.mailer, c: c},
	}

	var done []Step
	for _, step := range steps {
		c.record.CurrentStep = step.Name()
		logger.InfoContext(ctx, "Executing confirmation step", "step", step.Name())

		if err := step.Execute(ctx); err != nil {
			logger.ErrorContext(ctx, "Confirmation step failed", "step", step.Name(), "error", err)
			o.rollback(ctx, c.record, done, err)
			return nil, err
		}

		done = append(done, step)
		c.record.Status = domain.ReservationStepDone
		o.save(ctx, c.record)
	}

	c.record.Status = domain.ReservationConfirmed
	o.save(ctx, c.record)
	logger.InfoContext(ctx, "Reservation confirmed", "stalls", c.record.Stalls, "email", c.record.Email)

	o.publish(ctx, events.ReservationConfirmed, events.ReservationConfirmedEvent{
		ReservationID: c.record.ID,
		Email:         c.record.Email,
		PublisherName: c.record.PublisherName,
		Stalls:        c.record.Stalls,
		QRURL:         c.record.QRURL,
		ConfirmedAt:   time.Now().UTC(),
	})

	return &domain.ConfirmResult{
		Message:       "Reservation confirmed",
		ReservationID: c.record.ID,
		QRURL:         c.record.QRURL,
		Stalls:        c.record.Stalls,
		Ignored:       c.ignored,
	}, nil
}

// checkExisting returns the stored result for a reservation id that already
// confirmed for the same email. Failed reservations may be retried.
func (o *orchestrator) checkExisting(ctx context.Context, id, email string) (*domain.ConfirmResult, error) {
	existing, err := o.log.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load reservation: %w", err)
	}
	if existing == nil || existing.Status == domain.ReservationFailed {
		return nil, nil
	}
	if existing.Email != email {
		return nil, fmt.Errorf("%w: %s belongs to another requester", domain.ErrReservationExists, id)
	}
	if existing.Status != domain.ReservationConfirmed {
		return nil, fmt.Errorf("%w: %s is still being confirmed", domain.ErrReservationExists, id)
	}

	logger.InfoContext(ctx, "Replaying confirmed reservation")
	return &domain.ConfirmResult{
		Message:       "Reservation confirmed",
		ReservationID: existing.ID,
		QRURL:         existing.QRURL,
		Stalls:        existing.Stalls,
	}, nil
}

// rollback compensates done in reverse order. It runs detached from the
// request context so a cancelled client does not leave stalls held.
func (o *orchestrator) rollback(ctx context.Context, record *domain.Reservation, done []Step, cause error) {
	record.Status = domain.ReservationCompensating
	record.Errors = append(record.Errors, cause.Error())
	o.save(ctx, record)

	compCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()

	for i := len(done) - 1; i >= 0; i-- {
		step := done[i]
		logger.InfoContext(ctx, "Compensating confirmation step", "step", step.Name())
		if err := step.Compensate(compCtx); err != nil {
			logger.ErrorContext(ctx, "CRITICAL: failed to compensate step", "step", step.Name(), "error", err)
			record.Errors = append(record.Errors, fmt.Sprintf("compensate %s: %v", step.Name(), err))
		}
	}

	record.Status = domain.ReservationFailed
	o.save(compCtx, record)

	o.publish(compCtx, events.ReservationFailed, events.ReservationFailedEvent{
		ReservationID: record.ID,
		Email:         record.Email,
		FailedStep:    record.CurrentStep,
		Errors:        record.Errors,
		FailedAt:      time.Now().UTC(),
	})
}

func (o *orchestrator) save(ctx context.Context, record *domain.Reservation) {
	if err := o.log.Save(context.WithoutCancel(ctx), record); err != nil {
		logger.ErrorContext(ctx, "Failed to persist reservation state", "error", err, "status", record.Status)
	}
}

func (o *orchestrator) publish(ctx context.Context, subject string, event any) {
	if err := o.eventBus.Publish(ctx, subject, event); err != nil {
		logger.ErrorContext(ctx, "Failed to publish reservation event", "error", err, "subject", subject)
	}
}

func (o *orchestrator) GetReservation(ctx context.Context, id string) (*domain.Reservation, error) {
	res, err := o.log.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get reservation: %w", err)
	}
	if res == nil {
		return nil, fmt.Errorf("%w: reservation %s", domain.ErrNotFound, id)
	}
	return res, nil
}

func (o *orchestrator) ListReservations(ctx context.Context, limit, offset int) ([]domain.Reservation, error) {
	list, err := o.log.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list reservations: %w", err)
	}
	if list == nil {
		list = []domain.Reservation{}
	}
	return list, nil
}
