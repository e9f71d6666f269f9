package withdrawal

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vanshika/comptree/backend/internal/domain"
)

// Entry is one recorded withdrawal.
type Entry struct {
	ID         string
	MemberID   string
	Breakdown  domain.WithdrawalBreakdown
	RecordedAt time.Time
}

// Ledger is a session-scoped withdrawal history. Every mutation bumps Version.
// It is safe for concurrent use and is never persisted.
type Ledger struct {
	mu        sync.RWMutex
	entries   []Entry
	totalFees float64
	version   uint64
	nowFn     func() time.Time
	idFn      func() string
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{
		nowFn: time.Now,
		idFn:  func() string { return uuid.NewString() },
	}
}

// WithClock overrides the time provider (used primarily in tests).
func (l *Ledger) WithClock(nowFn func() time.Time) {
	if nowFn != nil {
		l.nowFn = nowFn
	}
}

// Record appends a computed breakdown for memberID.
func (l *Ledger) Record(memberID string, b domain.WithdrawalBreakdown) Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry := Entry{
		ID:         l.idFn(),
		MemberID:   memberID,
		Breakdown:  b,
		RecordedAt: l.nowFn().UTC(),
	}
	l.entries = append(l.entries, entry)
	l.totalFees += b.AdminFee
	l.version++
	return entry
}

// History returns the entries for memberID, newest first. An empty memberID returns every entry.
func (l *Ledger) History(memberID string) []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Entry, 0, len(l.entries))
	for i := len(l.entries) - 1; i >= 0; i-- {
		if memberID == "" || l.entries[i].MemberID == memberID {
			out = append(out, l.entries[i])
		}
	}
	return out
}

// TotalFees returns the admin fees collected across every entry.
func (l *Ledger) TotalFees() float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.totalFees
}

// Version returns the mutation counter.
func (l *Ledger) Version() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.version
}

// Reset clears the ledger and bumps its version.
func (l *Ledger) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
	l.totalFees = 0
	l.version++
}
