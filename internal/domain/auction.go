// Package domain defines the core entities of the live player auction: the
// single active lot, committed history entries, and the read models served to
// clients.
package domain

import (
	"time"
)

// ──────────────────────────────────────────────────────────────────────────────
// Types & constants
// ──────────────────────────────────────────────────────────────────────────────

// MinOpeningBid is the bid a lot opens at when an auction starts.
const MinOpeningBid int64 = 1

// DefaultIncrement is used when a bid does not specify an increment.
const DefaultIncrement int64 = 1

// Phase is the lifecycle state of the auction.
type Phase string

const (
	PhaseIdle                 Phase = "idle"                  // no lot on the block
	PhaseActive               Phase = "active"                // accepting bids
	PhaseAwaitingConfirmation Phase = "awaiting_confirmation" // timer expired, admin must ratify
)

// ──────────────────────────────────────────────────────────────────────────────
// AuctionState
// ──────────────────────────────────────────────────────────────────────────────

// AuctionState is the mutable state of the single lot.  Active and
// AwaitingConfirmation are never both true.
type AuctionState struct {
	Active               bool
	Player               string
	LeadingTeam          string
	HighestBid           int64
	TimerEnd             time.Time
	AwaitingConfirmation bool
}

// Phase derives the lifecycle phase from the flags.
func (s *AuctionState) Phase() Phase {
	switch {
	case s.Active:
		return PhaseActive
	case s.AwaitingConfirmation:
		return PhaseAwaitingConfirmation
	default:
		return PhaseIdle
	}
}

// Reset returns the state to its empty Idle form.
func (s *AuctionState) Reset() {
	*s = AuctionState{}
}

// TimeLeft returns the whole seconds until the deadline, floored, or 0 when
// bidding is not open or the deadline has passed.
func (s *AuctionState) TimeLeft(now time.Time) int64 {
	if !s.Active {
		return 0
	}
	remaining := s.TimerEnd.Sub(now)
	if remaining < 0 {
		return 0
	}
	return int64(remaining / time.Second)
}

// Expired reports whether an active round has reached its deadline.
func (s *AuctionState) Expired(now time.Time) bool {
	return s.Active && !now.Before(s.TimerEnd)
}

// ToStatus builds the read model for clients.
func (s *AuctionState) ToStatus(now time.Time) AuctionStatus {
	return AuctionStatus{
		Active:               s.Active,
		Player:               s.Player,
		LeadingTeam:          s.LeadingTeam,
		HighestBid:           s.HighestBid,
		TimeLeft:             s.TimeLeft(now),
		AwaitingConfirmation: s.AwaitingConfirmation,
		Phase:                s.Phase(),
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Read models
// ──────────────────────────────────────────────────────────────────────────────

// AuctionStatus is a point-in-time snapshot of the lot.
type AuctionStatus struct {
	Active               bool   `json:"active"`
	Player               string `json:"player,omitempty"`
	LeadingTeam          string `json:"leading_team,omitempty"`
	HighestBid           int64  `json:"highest_bid"`
	TimeLeft             int64  `json:"time_left"` // whole seconds
	AwaitingConfirmation bool   `json:"awaiting_confirmation"`
	Phase                Phase  `json:"phase"`
}

// HistoryEntry is a committed auction result.
type HistoryEntry struct {
	ID        int64  `json:"id"`
	Player    string `json:"player"`
	Winner    string `json:"winner"`
	Price     int64  `json:"price"`
	Timestamp int64  `json:"ts"` // unix seconds
}

// TeamsView reports each team's starting budget and what is left of it.
type TeamsView struct {
	Budgets   map[string]int64 `json:"budgets"`
	Remaining map[string]int64 `json:"remaining"`
}
