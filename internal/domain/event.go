package domain

import "time"

// EventType names a state change worth pushing to connected clients.
type EventType string

const (
	EventAuctionStarted       EventType = "auction_started"
	EventBidPlaced            EventType = "bid_placed"
	EventAwaitingConfirmation EventType = "awaiting_confirmation"
	EventAuctionConfirmed     EventType = "auction_confirmed"
	EventAuctionCancelled     EventType = "auction_cancelled"
	EventHistoryDeleted       EventType = "history_deleted"
	EventStatus               EventType = "status" // periodic countdown refresh
)

// AuctionEvent is emitted after a state change has been applied and the
// auction lock released.
type AuctionEvent struct {
	Type      EventType
	Team      string        // acting team, if any
	Status    AuctionStatus // state right after the change
	Entry     *HistoryEntry // set for confirm and history delete
	Timestamp time.Time
}
