package app

import (
	"sync"

	"course-ledger-service/internal/domain"
)

type feedKey struct {
	tenantID string
	userID   string
}

// ProgressFeed is an in-process fan-out of ledger updates per learner.
type ProgressFeed struct {
	mu          sync.Mutex
	subscribers map[feedKey]map[chan domain.ProgressUpdate]struct{}
}

func NewProgressFeed() *ProgressFeed {
	return &ProgressFeed{
		subscribers: make(map[feedKey]map[chan domain.ProgressUpdate]struct{}),
	}
}

// Subscribe returns a channel receiving updates for one learner.
// The caller must invoke the returned cancel function to avoid leaks.
func (f *ProgressFeed) Subscribe(tenantID, userID string) (<-chan domain.ProgressUpdate, func()) {
	key := feedKey{tenantID: tenantID, userID: userID}
	ch := make(chan domain.ProgressUpdate, 8)

	f.mu.Lock()
	subs, ok := f.subscribers[key]
	if !ok {
		subs = make(map[chan domain.ProgressUpdate]struct{})
		f.subscribers[key] = subs
	}
	subs[ch] = struct{}{}
	f.mu.Unlock()

	cancel := func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		subs, ok := f.subscribers[key]
		if !ok {
			return
		}
		if _, ok := subs[ch]; ok {
			delete(subs, ch)
			close(ch)
		}
		if len(subs) == 0 {
			delete(f.subscribers, key)
		}
	}
	return ch, cancel
}

// Publish delivers u to every subscriber of its learner without blocking.
// A full subscriber loses its oldest pending update.
func (f *ProgressFeed) Publish(u domain.ProgressUpdate) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subscribers[feedKey{tenantID: u.TenantID, userID: u.UserID}] {
		select {
		case ch <- u:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- u
		}
	}
}

// Subscribers reports how many channels are listening for a learner.
func (f *ProgressFeed) Subscribers(tenantID, userID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subscribers[feedKey{tenantID: tenantID, userID: userID}])
}
