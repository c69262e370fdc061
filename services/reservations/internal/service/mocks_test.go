package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/diagnosis/bookfair-stalls/pkg/events"
	"github.com/diagnosis/bookfair-stalls/pkg/storage"
	"github.com/diagnosis/bookfair-stalls/services/reservations/internal/domain"
)

type mockMailer struct {
	mu   sync.Mutex
	sent []domain.ConfirmationEmail
	err  error
}

func (m *mockMailer) SendReservationConfirmation(_ context.Context, msg domain.ConfirmationEmail) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

// flakyBucket wraps a MemoryBucket and fails the configured operations.
type flakyBucket struct {
	*storage.MemoryBucket
	failUpload bool
	failSign   bool
	failDelete bool
}

var errBucketDown = errors.New("bucket unavailable")

func (b *flakyBucket) Upload(ctx context.Context, object, contentType string, data []byte) error {
	if b.failUpload {
		return errBucketDown
	}
	return b.MemoryBucket.Upload(ctx, object, contentType, data)
}

func (b *flakyBucket) SignedURL(ctx context.Context, object string, expires time.Time) (string, error) {
	if b.failSign {
		return "", errBucketDown
	}
	return b.MemoryBucket.SignedURL(ctx, object, expires)
}

func (b *flakyBucket) Delete(ctx context.Context, object string) error {
	if b.failDelete {
		return errBucketDown
	}
	return b.MemoryBucket.Delete(ctx, object)
}

type recordingBus struct {
	events.NoopEventBus
	mu       sync.Mutex
	subjects []string
}

func (b *recordingBus) Publish(_ context.Context, subject string, _ interface{}) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subjects = append(b.subjects, subject)
	return nil
}

func (b *recordingBus) published(subject string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, s := range b.subjects {
		if s == subject {
			return true
		}
	}
	return false
}
