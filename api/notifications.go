package api

import (
	"sync"
	"sync/atomic"
	"time"
)

const notificationBufferSize = 100

// Notification is a user-visible record of a failed optimistic mutation.
type Notification struct {
	Seq      int64     `json:"seq"`
	EntityID string    `json:"entityId"`
	Message  string    `json:"message"`
	Time     time.Time `json:"time"`
}

// NotificationFeed collects failure notifications from the optimistic
// engine and hands them to the UI on request. It keeps a bounded buffer;
// the oldest entries fall off on overflow.
type NotificationFeed struct {
	mu      sync.Mutex
	pending []Notification

	lastSeq int64
}

// NewNotificationFeed creates an empty feed.
func NewNotificationFeed() *NotificationFeed {
	return &NotificationFeed{}
}

// MutationFailed implements board.Notifier.
func (f *NotificationFeed) MutationFailed(entityID, message string) {
	n := Notification{
		Seq:      f.nextSeq(),
		EntityID: entityID,
		Message:  message,
		Time:     time.Now().UTC(),
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending = append(f.pending, n)
	if len(f.pending) > notificationBufferSize {
		f.pending = f.pending[len(f.pending)-notificationBufferSize:]
	}
}

// Drain returns all pending notifications and clears the feed.
func (f *NotificationFeed) Drain() []Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.pending
	f.pending = nil
	return out
}

// nextSeq hands out strictly increasing sequence numbers even under
// concurrent failures.
func (f *NotificationFeed) nextSeq() int64 {
	for {
		last := atomic.LoadInt64(&f.lastSeq)
		next := time.Now().UnixNano()
		if next <= last {
			next = last + 1
		}
		if atomic.CompareAndSwapInt64(&f.lastSeq, last, next) {
			return next
		}
	}
}
