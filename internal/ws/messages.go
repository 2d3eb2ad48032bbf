// Package ws holds WebSocket message types and the Hub implementation.
// messages.go defines all message structs pushed to connected clients.
package ws

import (
	"time"

	"github.com/fantaasta/auction/internal/domain"
)

// MsgType identifies the kind of WS message so clients can switch on it.
// Auction events reuse the domain event names.
type MsgType string

const (
	MsgTypeAuctionStarted       = MsgType(domain.EventAuctionStarted)
	MsgTypeBidPlaced            = MsgType(domain.EventBidPlaced)
	MsgTypeAwaitingConfirmation = MsgType(domain.EventAwaitingConfirmation)
	MsgTypeAuctionConfirmed     = MsgType(domain.EventAuctionConfirmed)
	MsgTypeAuctionCancelled     = MsgType(domain.EventAuctionCancelled)
	MsgTypeHistoryDeleted       = MsgType(domain.EventHistoryDeleted)
	MsgTypeStatus               = MsgType(domain.EventStatus)
	MsgTypeSnapshot             MsgType = "snapshot"
)

// ──────────────────────────────────────────────────────────────────────────────
// AuctionEventMessage: broadcast after every auction state change.
// ──────────────────────────────────────────────────────────────────────────────

// AuctionEventMessage carries the status right after a change, plus the
// history entry for confirms and deletions.
type AuctionEventMessage struct {
	Type      MsgType              `json:"type"`
	Team      string               `json:"team,omitempty"`
	Status    domain.AuctionStatus `json:"status"`
	Entry     *domain.HistoryEntry `json:"entry,omitempty"`
	Timestamp time.Time            `json:"timestamp"`
}

// NewAuctionEventMessage converts a domain event into its wire form.
func NewAuctionEventMessage(evt domain.AuctionEvent) AuctionEventMessage {
	return AuctionEventMessage{
		Type:      MsgType(evt.Type),
		Team:      evt.Team,
		Status:    evt.Status,
		Entry:     evt.Entry,
		Timestamp: evt.Timestamp,
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// SnapshotMessage: sent once to a client right after it connects.
// ──────────────────────────────────────────────────────────────────────────────

// SnapshotMessage lets a fresh client render the lot without polling first.
type SnapshotMessage struct {
	Type      MsgType              `json:"type"`
	Status    domain.AuctionStatus `json:"status"`
	Timestamp time.Time            `json:"timestamp"`
}
