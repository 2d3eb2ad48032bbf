package domain

import (
	"errors"
)

// ──────────────────────────────────────────────────────────────────────────────
// Sentinel errors: compare with errors.Is()
// ──────────────────────────────────────────────────────────────────────────────

// Validation errors
var (
	// ErrMissingField is returned when a required player or team is empty.
	ErrMissingField = errors.New("player and team are required")

	// ErrUnknownTeam is returned when the team is not part of the roster.
	ErrUnknownTeam = errors.New("unknown team")

	// ErrPlayerUnavailable is returned when the player is not in the available
	// set (unknown, or already won by a team).
	ErrPlayerUnavailable = errors.New("player is not available")
)

// State errors
var (
	// ErrAuctionActive is returned when Start is called while bidding is open.
	ErrAuctionActive = errors.New("an auction is already in progress")

	// ErrAuctionNotActive is returned when a bid arrives and no lot is open.
	ErrAuctionNotActive = errors.New("no active auction")

	// ErrAwaitingConfirmation is returned when a new lot or a bid is attempted
	// while the previous result waits for the administrator.
	ErrAwaitingConfirmation = errors.New("previous auction is awaiting confirmation")

	// ErrNotAwaitingConfirmation is returned by Confirm/Cancel when there is no
	// pending result.
	ErrNotAwaitingConfirmation = errors.New("no auction is awaiting confirmation")
)

// Budget errors
var (
	// ErrInsufficientBudget is returned when a team's remaining funds cannot
	// cover the opening bid or the new bid total.
	ErrInsufficientBudget = errors.New("insufficient team budget")
)

// Auth errors
var (
	// ErrNotAdmin is returned when a caller other than the administrator team
	// tries to confirm, cancel or delete history.
	ErrNotAdmin = errors.New("forbidden: only the administrator may do this")
)

// Lookup errors
var (
	// ErrHistoryNotFound is returned when no history entry has the given id.
	ErrHistoryNotFound = errors.New("history entry not found")
)

// ──────────────────────────────────────────────────────────────────────────────
// Helper predicates
// ──────────────────────────────────────────────────────────────────────────────

func isAny(err error, targets ...error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsValidation returns true for malformed or unknown input.
func IsValidation(err error) bool {
	return isAny(err, ErrMissingField, ErrUnknownTeam, ErrPlayerUnavailable)
}

// IsConflict returns true when the operation is invalid for the current
// auction phase.
func IsConflict(err error) bool {
	return isAny(err, ErrAuctionActive, ErrAuctionNotActive, ErrAwaitingConfirmation, ErrNotAwaitingConfirmation)
}

// IsBudget returns true when the team cannot afford the bid.
func IsBudget(err error) bool {
	return errors.Is(err, ErrInsufficientBudget)
}

// IsAuthError returns true when the caller is not the administrator.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrNotAdmin)
}

// IsNotFound returns true when err (or any error in its chain) is a lookup miss.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrHistoryNotFound)
}
