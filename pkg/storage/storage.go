// Package storage abstracts the object store that holds issued QR images.
package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"
)

var ErrObjectNotFound = errors.New("object not found")

type Bucket interface {
	Upload(ctx context.Context, object, contentType string, data []byte) error
	SignedURL(ctx context.Context, object string, expires time.Time) (string, error)
	Delete(ctx context.Context, object string) error
}

type memoryObject struct {
	contentType string
	data        []byte
}

// MemoryBucket keeps objects in process. URLs it signs are not fetchable over
// HTTP; they exist so development and tests see the same shape as GCS.
type MemoryBucket struct {
	name    string
	mu      sync.RWMutex
	objects map[string]memoryObject
}

func NewMemoryBucket(name string) *MemoryBucket {
	return &MemoryBucket{name: name, objects: make(map[string]memoryObject)}
}

func (b *MemoryBucket) Upload(ctx context.Context, object, contentType string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[object] = memoryObject{contentType: contentType, data: append([]byte(nil), data...)}
	return nil
}

func (b *MemoryBucket) SignedURL(ctx context.Context, object string, expires time.Time) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	b.mu.RLock()
	_, ok := b.objects[object]
	b.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("sign %s: %w", object, ErrObjectNotFound)
	}
	u := url.URL{
		Scheme:   "memory",
		Host:     b.name,
		Path:     "/" + object,
		RawQuery: url.Values{"expires": {fmt.Sprint(expires.Unix())}}.Encode(),
	}
	return u.String(), nil
}

func (b *MemoryBucket) Delete(_ context.Context, object string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.objects, object)
	return nil
}

// Object returns a stored object's bytes.
func (b *MemoryBucket) Object(object string) ([]byte, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	o, ok := b.objects[object]
	return o.data, ok
}

func (b *MemoryBucket) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.objects)
}
