// Package buffer implements the in-memory correlation buffer that holds
// partially-completed conversational submissions between the trigger message
// and the free-text follow-up from the same sender.
//
// The buffer is a mutex-guarded list scanned in insertion order:
//   - Store appends without uniqueness enforcement (repeated trigger messages
//     from one sender coexist until matched or expired).
//   - TakeMatching removes and returns the first live entry for a sender
//     (first-match-wins: the oldest start is the one completed); expired
//     entries found during the scan are evicted, never matched.
//   - SweepExpired evicts every entry older than the TTL, regardless of
//     completion state.
//
// The buffer also exposes per-sender locks so the caller can hold a critical
// section from the buffer match through the deduplication check and record
// creation, preventing two concurrent follow-ups from the same sender from
// both passing the dedup gate.
package buffer

import (
	"sync"
	"time"

	"github.com/assistec/wpp-os-gateway/internal/domain"
)

// Entry is a buffered partially-completed submission.
type Entry struct {
	// SenderID is the numeric sender identity the entry is keyed by.
	SenderID string
	// Payload is the submission under construction. DescricaoProblema is nil
	// until the follow-up message is matched.
	Payload domain.OrderPayload
	// CreatedAt is the buffering time used for TTL eviction.
	CreatedAt time.Time
}

// Buffer is a concurrency-safe correlation buffer with TTL eviction.
// The zero value is not usable; construct with New.
type Buffer struct {
	mu      sync.Mutex
	entries []Entry
	ttl     time.Duration

	// Now is a seam for tests; defaults to time.Now.
	Now func() time.Time

	lockMu sync.Mutex
	locks  map[string]*senderLock
}

// senderLock is a refcounted per-sender mutex so idle locks can be dropped
// from the map once the last holder releases.
type senderLock struct {
	mu   sync.Mutex
	refs int
}

// New constructs an empty Buffer whose entries expire after ttl.
func New(ttl time.Duration) *Buffer {
	return &Buffer{
		ttl:   ttl,
		Now:   time.Now,
		locks: make(map[string]*senderLock),
	}
}

// Store appends a new entry for the given payload. No uniqueness is enforced:
// a sender issuing several trigger messages accumulates several entries, and
// TakeMatching resolves them oldest-first.
func (b *Buffer) Store(p domain.OrderPayload) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = append(b.entries, Entry{
		SenderID:  p.WhatsApp,
		Payload:   p,
		CreatedAt: b.Now(),
	})
}

// TakeMatching scans entries in insertion order and atomically removes and
// returns the first live one whose sender identity equals senderID. The
// second return value reports whether a match was found. Entries older than
// the TTL are dropped during the scan and never matched, so a stale start
// cannot complete even when no sweep ran since it expired.
func (b *Buffer) TakeMatching(senderID string) (Entry, bool) {
	now := b.Now()
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := 0; i < len(b.entries); {
		e := b.entries[i]
		if now.Sub(e.CreatedAt) > b.ttl {
			b.entries = append(b.entries[:i], b.entries[i+1:]...)
			continue
		}
		if e.SenderID == senderID {
			b.entries = append(b.entries[:i], b.entries[i+1:]...)
			return e, true
		}
		i++
	}
	return Entry{}, false
}

// SweepExpired removes every entry older than the TTL. It is invoked after
// every webhook handling, independent of classification outcome.
func (b *Buffer) SweepExpired() {
	now := b.Now()
	b.mu.Lock()
	defer b.mu.Unlock()
	kept := b.entries[:0]
	for _, e := range b.entries {
		if now.Sub(e.CreatedAt) <= b.ttl {
			kept = append(kept, e)
		}
	}
	b.entries = kept
}

// Len returns the number of buffered entries.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}

// LockSender acquires a mutex scoped to senderID and returns its release
// function. Callers hold it across TakeMatching and the subsequent
// dedup-check-through-create sequence so concurrent follow-ups from the same
// sender serialize instead of racing past the deduplication gate.
func (b *Buffer) LockSender(senderID string) func() {
	b.lockMu.Lock()
	sl, ok := b.locks[senderID]
	if !ok {
		sl = &senderLock{}
		b.locks[senderID] = sl
	}
	sl.refs++
	b.lockMu.Unlock()

	sl.mu.Lock()
	return func() {
		sl.mu.Unlock()
		b.lockMu.Lock()
		sl.refs--
		if sl.refs == 0 {
			delete(b.locks, senderID)
		}
		b.lockMu.Unlock()
	}
}
