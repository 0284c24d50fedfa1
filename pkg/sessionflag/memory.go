package sessionflag

import (
	"context"
	"sync"
	"time"
)

// MemoryFlag keeps verified sessions in process memory. With a positive TTL
// entries expire and are dropped lazily on Get.
type MemoryFlag struct {
	verified map[string]time.Time
	ttl      time.Duration
	now      func() time.Time
	mutex    sync.RWMutex
}

type MemoryOption func(*MemoryFlag)

// WithTTL expires a verified flag ttl after it was set. Zero keeps it for the
// life of the process.
func WithTTL(ttl time.Duration) MemoryOption {
	return func(f *MemoryFlag) {
		f.ttl = ttl
	}
}

func WithClock(now func() time.Time) MemoryOption {
	return func(f *MemoryFlag) {
		f.now = now
	}
}

func NewMemoryFlag(opts ...MemoryOption) *MemoryFlag {
	f := &MemoryFlag{
		verified: make(map[string]time.Time),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *MemoryFlag) Get(ctx context.Context, sessionID string) (bool, error) {
	f.mutex.RLock()
	setAt, ok := f.verified[sessionID]
	f.mutex.RUnlock()
	if !ok {
		return false, nil
	}
	if f.ttl > 0 && f.now().Sub(setAt) >= f.ttl {
		f.mutex.Lock()
		if current, ok := f.verified[sessionID]; ok && current.Equal(setAt) {
			delete(f.verified, sessionID)
		}
		f.mutex.Unlock()
		return false, nil
	}
	return true, nil
}

func (f *MemoryFlag) Set(ctx context.Context, sessionID string) error {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	f.verified[sessionID] = f.now()
	return nil
}

// Clear forgets sessionID, for logout handlers.
func (f *MemoryFlag) Clear(ctx context.Context, sessionID string) error {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	delete(f.verified, sessionID)
	return nil
}
