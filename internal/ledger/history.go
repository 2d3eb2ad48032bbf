// Package ledger holds the two records the auction maintains: the history of
// committed results and each team's remaining budget.
//
// Neither type synchronises access.  They are owned by the auction service
// and must only be touched while holding its lock.
package ledger

import (
	"github.com/fantaasta/auction/internal/domain"
)

// History is an append-only, id-indexed record of committed results.  Entries
// leave only through Delete.
type History struct {
	entries []domain.HistoryEntry // oldest first
	nextID  int64
}

// NewHistory creates an empty ledger whose first entry gets id 1.
func NewHistory() *History {
	return &History{nextID: 1}
}

// Append records a result under a fresh id.  Ids are never reused, even after
// the entry holding one is deleted.
func (h *History) Append(player, winner string, price, ts int64) domain.HistoryEntry {
	e := domain.HistoryEntry{
		ID:        h.nextID,
		Player:    player,
		Winner:    winner,
		Price:     price,
		Timestamp: ts,
	}
	h.nextID++
	h.entries = append(h.entries, e)
	return e
}

// List returns a copy of all entries, most recent first.
func (h *History) List() []domain.HistoryEntry {
	out := make([]domain.HistoryEntry, len(h.entries))
	for i, e := range h.entries {
		out[len(h.entries)-1-i] = e
	}
	return out
}

// Delete removes and returns the entry with the given id.  It does not refund
// budgets or re-list players; that compensation belongs to the caller.
func (h *History) Delete(id int64) (domain.HistoryEntry, bool) {
	for i, e := range h.entries {
		if e.ID == id {
			h.entries = append(h.entries[:i], h.entries[i+1:]...)
			return e, true
		}
	}
	return domain.HistoryEntry{}, false
}

// Len returns the number of entries.
func (h *History) Len() int { return len(h.entries) }
