package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/diagnosis/bookfair-stalls/pkg/events"
	"github.com/diagnosis/bookfair-stalls/pkg/storage"
	"github.com/diagnosis/bookfair-stalls/services/reservations/internal/domain"
	"github.com/diagnosis/bookfair-stalls/services/reservations/internal/repository"
)

type orchestratorFixture struct {
	orch   Orchestrator
	stalls repository.StallRepository
	log    repository.ReservationRepository
	bucket *flakyBucket
	mailer *mockMailer
	bus    *recordingBus
}

func newOrchestratorFixture() *orchestratorFixture {
	f := &orchestratorFixture{
		stalls: repository.NewMemoryStallRepository(domain.DefaultStalls()),
		log:    repository.NewMemoryReservationRepository(),
		bucket: &flakyBucket{MemoryBucket: storage.NewMemoryBucket("bookfair-qrcodes")},
		mailer: &mockMailer{},
		bus:    &recordingBus{},
	}
	reservations := NewReservationService(f.stalls, f.bus, 3)
	f.orch = NewOrchestrator(reservations, NewQRService(f.bucket, testExpiry), f.mailer, f.log, f.bus)
	return f
}

func acmeRequest() *domain.ConfirmRequest {
	return &domain.ConfirmRequest{
		ReservationID: "res-1",
		Email:         "pub@x.com",
		PublisherName: "Acme Books",
		Stalls:        []string{"A1", "A3"},
	}
}

func TestOrchestrator_ConfirmEndToEnd(t *testing.T) {
	f := newOrchestratorFixture()
	ctx := context.Background()

	result, err := f.orch.Confirm(ctx, acmeRequest())
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if result.ReservationID != "res-1" || result.QRURL == "" {
		t.Fatalf("unexpected result %+v", result)
	}

	held := reservedIDs(t, f.stalls)
	if len(held) != 2 {
		t.Fatalf("expected A1 and A3 only, got %v", held)
	}
	for _, id := range []string{"A1", "A3"} {
		if held[id].ReservedBy != "pub@x.com" || held[id].PublisherName != "Acme Books" {
			t.Errorf("%s: %+v", id, held[id])
		}
	}

	record, err := f.orch.GetReservation(ctx, "res-1")
	if err != nil {
		t.Fatalf("GetReservation: %v", err)
	}
	if record.Status != domain.ReservationConfirmed {
		t.Errorf("expected confirmed, got %s", record.Status)
	}
	png, ok := f.bucket.Object(record.QRObject)
	if !ok {
		t.Fatal("qr object missing")
	}
	payload, err := DecodePayload([]byte(decodeQR(t, png)))
	if err != nil {
		t.Fatal(err)
	}
	if payload.ReservationID != "res-1" || payload.Email != "pub@x.com" {
		t.Errorf("unexpected payload %+v", payload)
	}

	if len(f.mailer.sent) != 1 {
		t.Fatalf("expected one email, got %d", len(f.mailer.sent))
	}
	sent := f.mailer.sent[0]
	if sent.QRURL != result.QRURL || strings.Join(sent.Stalls, ",") != "A1,A3" || sent.To != "pub@x.com" {
		t.Errorf("unexpected email %+v", sent)
	}
	if !f.bus.published(events.ReservationConfirmed) {
		t.Error("expected reservation.confirmed event")
	}
}

func TestOrchestrator_GeneratesReservationID(t *testing.T) {
	f := newOrchestratorFixture()
	req := acmeRequest()
	req.ReservationID = ""

	result, err := f.orch.Confirm(context.Background(), req)
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if len(result.ReservationID) != 36 {
		t.Errorf("expected generated uuid, got %q", result.ReservationID)
	}
}

func TestOrchestrator_Compensation(t *testing.T) {
	tests := []struct {
		name        string
		setup       func(f *orchestratorFixture)
		wantErr     error
		compFailure bool
	}{
		{
			name:    "qr upload failure releases stalls",
			setup:   func(f *orchestratorFixture) { f.bucket.failUpload = true },
			wantErr: domain.ErrQRIssuance,
		},
		{
			name:    "mail failure deletes qr and releases stalls",
			setup:   func(f *orchestratorFixture) { f.mailer.err = errors.New("smtp: connection refused") },
			wantErr: domain.ErrNotification,
		},
		{
			name: "failed qr delete is recorded",
			setup: func(f *orchestratorFixture) {
				f.mailer.err = errors.New("smtp down")
				f.bucket.failDelete = true
			},
			wantErr:     domain.ErrNotification,
			compFailure: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newOrchestratorFixture()
			tt.setup(f)
			ctx := context.Background()

			_, err := f.orch.Confirm(ctx, acmeRequest())
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}

			if held := reservedIDs(t, f.stalls); len(held) != 0 {
				t.Errorf("stalls not released: %v", held)
			}
			if !tt.compFailure && f.bucket.Len() != 0 {
				t.Errorf("qr objects left behind: %d", f.bucket.Len())
			}

			record, err := f.orch.GetReservation(ctx, "res-1")
			if err != nil {
				t.Fatal(err)
			}
			if record.Status != domain.ReservationFailed {
				t.Errorf("expected failed status, got %s", record.Status)
			}
			wantErrs := 1
			if tt.compFailure {
				wantErrs = 2
			}
			if len(record.Errors) != wantErrs {
				t.Errorf("expected %d recorded errors, got %v", wantErrs, record.Errors)
			}
			if !f.bus.published(events.ReservationFailed) {
				t.Error("expected reservation.failed event")
			}
		})
	}
}

func TestOrchestrator_FailedConfirmKeepsEarlierReservation(t *testing.T) {
	f := newOrchestratorFixture()
	ctx := context.Background()

	first := acmeRequest()
	first.ReservationID = "r1"
	first.Stalls = []string{"A1"}
	if _, err := f.orch.Confirm(ctx, first); err != nil {
		t.Fatalf("first Confirm: %v", err)
	}

	f.mailer.err = errors.New("smtp down")
	second := acmeRequest()
	second.ReservationID = "r2"
	second.Stalls = []string{"A1", "A2"}
	if _, err := f.orch.Confirm(ctx, second); !errors.Is(err, domain.ErrNotification) {
		t.Fatalf("expected ErrNotification, got %v", err)
	}

	held := reservedIDs(t, f.stalls)
	if len(held) != 1 || held["A1"].ReservedBy != "pub@x.com" {
		t.Errorf("rollback touched the earlier reservation: %v", held)
	}
	record, _ := f.orch.GetReservation(ctx, "r1")
	if record.Status != domain.ReservationConfirmed {
		t.Errorf("r1 should stay confirmed, got %s", record.Status)
	}
}

func TestOrchestrator_ConcurrentConfirmSameID(t *testing.T) {
	f := newOrchestratorFixture()
	ctx := context.Background()

	const callers = 10
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
		urls = map[string]bool{}
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := f.orch.Confirm(ctx, acmeRequest())
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			urls[result.QRURL] = true
		}()
	}
	wg.Wait()

	for _, err := range errs {
		if !errors.Is(err, domain.ErrReservationExists) {
			t.Errorf("unexpected error: %v", err)
		}
	}
	if len(urls) != 1 {
		t.Errorf("expected every success to share one qr url, got %d", len(urls))
	}
	if len(f.mailer.sent) != 1 {
		t.Errorf("expected exactly one email, got %d", len(f.mailer.sent))
	}
	if f.bucket.Len() != 1 {
		t.Errorf("expected exactly one qr object, got %d", f.bucket.Len())
	}
}

func TestOrchestrator_ConflictLeavesExistingHolder(t *testing.T) {
	f := newOrchestratorFixture()
	ctx := context.Background()
	if _, err := f.stalls.Reserve(ctx, []string{"A3"}, "other@x.com", "Other"); err != nil {
		t.Fatal(err)
	}

	_, err := f.orch.Confirm(ctx, acmeRequest())
	if !errors.Is(err, domain.ErrStallUnavailable) {
		t.Fatalf("expected ErrStallUnavailable, got %v", err)
	}

	held := reservedIDs(t, f.stalls)
	if len(held) != 1 || held["A3"].ReservedBy != "other@x.com" {
		t.Errorf("conflict changed the store: %v", held)
	}
	if len(f.mailer.sent) != 0 || f.bucket.Len() != 0 {
		t.Error("later steps ran after a conflict")
	}
}

func TestOrchestrator_ValidationFailure(t *testing.T) {
	f := newOrchestratorFixture()
	req := acmeRequest()
	req.Email = ""

	_, err := f.orch.Confirm(context.Background(), req)
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if held := reservedIDs(t, f.stalls); len(held) != 0 {
		t.Errorf("validation failure mutated the store: %v", held)
	}
}

func TestOrchestrator_AllUnknownStalls(t *testing.T) {
	f := newOrchestratorFixture()
	req := acmeRequest()
	req.Stalls = []string{"Z1"}

	_, err := f.orch.Confirm(context.Background(), req)
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestOrchestrator_ReplayAndReuse(t *testing.T) {
	f := newOrchestratorFixture()
	ctx := context.Background()

	first, err := f.orch.Confirm(ctx, acmeRequest())
	if err != nil {
		t.Fatal(err)
	}

	again, err := f.orch.Confirm(ctx, acmeRequest())
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if again.QRURL != first.QRURL {
		t.Error("replay returned a different qr url")
	}
	if len(f.mailer.sent) != 1 {
		t.Errorf("replay sent another email: %d", len(f.mailer.sent))
	}

	other := acmeRequest()
	other.Email = "someone@else.com"
	if _, err := f.orch.Confirm(ctx, other); !errors.Is(err, domain.ErrReservationExists) {
		t.Errorf("expected ErrReservationExists, got %v", err)
	}
}

func TestOrchestrator_RetryAfterFailure(t *testing.T) {
	f := newOrchestratorFixture()
	ctx := context.Background()

	f.mailer.err = errors.New("smtp down")
	if _, err := f.orch.Confirm(ctx, acmeRequest()); err == nil {
		t.Fatal("expected first attempt to fail")
	}

	f.mailer.err = nil
	if _, err := f.orch.Confirm(ctx, acmeRequest()); err != nil {
		t.Fatalf("retry: %v", err)
	}
	record, _ := f.orch.GetReservation(ctx, "res-1")
	if record.Status != domain.ReservationConfirmed {
		t.Errorf("expected confirmed after retry, got %s", record.Status)
	}
}

func TestOrchestrator_GetReservationNotFound(t *testing.T) {
	f := newOrchestratorFixture()
	if _, err := f.orch.GetReservation(context.Background(), "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
