package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/diagnosis/bookfair-stalls/services/reservations/internal/domain"
)

func TestMemoryReservationRepository_SaveAndGet(t *testing.T) {
	repo := NewMemoryReservationRepository()
	ctx := context.Background()

	res := &domain.Reservation{
		ID:     "r-1",
		Email:  "pub@x.com",
		Stalls: []string{"A1"},
		Status: domain.ReservationStarted,
	}
	if err := repo.Save(ctx, res); err != nil {
		t.Fatalf("Save: %v", err)
	}
	created := res.CreatedAt

	res.Status = domain.ReservationConfirmed
	res.QRURL = "memory://bucket/qr.png"
	if err := repo.Save(ctx, res); err != nil {
		t.Fatalf("Save update: %v", err)
	}

	got, err := repo.Get(ctx, "r-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil {
		t.Fatal("expected reservation")
	}
	if got.Status != domain.ReservationConfirmed || got.QRURL == "" {
		t.Errorf("update not stored: %+v", got)
	}
	if !got.CreatedAt.Equal(created) {
		t.Error("created_at changed on update")
	}

	missing, err := repo.Get(ctx, "nope")
	if err != nil || missing != nil {
		t.Errorf("expected nil, nil for unknown id, got %v, %v", missing, err)
	}
}

func TestMemoryReservationRepository_ListPages(t *testing.T) {
	repo := NewMemoryReservationRepository()
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		_ = repo.Save(ctx, &domain.Reservation{ID: id, Status: domain.ReservationStarted})
	}

	page, err := repo.List(ctx, 2, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(page) != 2 {
		t.Errorf("expected 2, got %d", len(page))
	}

	rest, _ := repo.List(ctx, 2, 2)
	if len(rest) != 1 {
		t.Errorf("expected 1, got %d", len(rest))
	}

	empty, _ := repo.List(ctx, 2, 10)
	if len(empty) != 0 {
		t.Errorf("expected empty page, got %d", len(empty))
	}
}

func TestMemoryReservationRepository_Claim(t *testing.T) {
	repo := NewMemoryReservationRepository()
	ctx := context.Background()

	ok, err := repo.Claim(ctx, &domain.Reservation{ID: "r-1", Email: "pub@x.com", Status: domain.ReservationStarted})
	if err != nil || !ok {
		t.Fatalf("first claim = %v, %v", ok, err)
	}

	ok, _ = repo.Claim(ctx, &domain.Reservation{ID: "r-1", Email: "other@x.com", Status: domain.ReservationStarted})
	if ok {
		t.Fatal("an in-flight id must not be claimed twice")
	}
	if got, _ := repo.Get(ctx, "r-1"); got.Email != "pub@x.com" {
		t.Errorf("losing claim overwrote the record: %+v", got)
	}

	_ = repo.Save(ctx, &domain.Reservation{ID: "r-1", Email: "pub@x.com", Status: domain.ReservationFailed, Errors: []string{"boom"}})
	ok, _ = repo.Claim(ctx, &domain.Reservation{ID: "r-1", Email: "pub@x.com", Status: domain.ReservationStarted})
	if !ok {
		t.Fatal("a failed id should be claimable again")
	}
	if got, _ := repo.Get(ctx, "r-1"); got.Status != domain.ReservationStarted || len(got.Errors) != 0 {
		t.Errorf("retry claim did not reset the record: %+v", got)
	}
}

func TestMemoryReservationRepository_ConcurrentClaimSingleWinner(t *testing.T) {
	repo := NewMemoryReservationRepository()
	ctx := context.Background()

	const callers = 20
	var (
		wg   sync.WaitGroup
		wins atomic.Int32
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.Claim(ctx, &domain.Reservation{ID: "r-race", Email: "pub@x.com", Status: domain.ReservationStarted})
			if err != nil {
				t.Errorf("Claim: %v", err)
			}
			if ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	if wins.Load() != 1 {
		t.Errorf("expected exactly one claim, got %d", wins.Load())
	}
}
