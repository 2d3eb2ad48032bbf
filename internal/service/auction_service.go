package service

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/fantaasta/auction/internal/config"
	"github.com/fantaasta/auction/internal/domain"
	"github.com/fantaasta/auction/internal/ledger"
	"github.com/fantaasta/auction/internal/metrics"
	"github.com/fantaasta/auction/internal/roster"
)

// ──────────────────────────────────────────────────────────────────────────────
// Interfaces injected into AuctionService to avoid import cycles
// ──────────────────────────────────────────────────────────────────────────────

// Broadcaster is the minimal interface AuctionService needs from the WS hub.
// Implemented by ws.Hub.
type Broadcaster interface {
	BroadcastAuctionEvent(evt domain.AuctionEvent)
}

// Archiver receives committed and reversed results for the audit trail.
// Implemented by repository.ResultArchiver.  Calls must not block.
type Archiver interface {
	RecordConfirmed(entry domain.HistoryEntry)
	RecordDeleted(entry domain.HistoryEntry)
}

// Option customises an AuctionService at construction.
type Option func(*AuctionService)

// WithClock replaces time.Now, letting tests drive the countdown.
func WithClock(now func() time.Time) Option {
	return func(s *AuctionService) { s.now = now }
}

// WithMetrics records into m instead of a private metrics set.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *AuctionService) { s.metrics = m }
}

// ──────────────────────────────────────────────────────────────────────────────
// AuctionService
// ──────────────────────────────────────────────────────────────────────────────

// AuctionService owns the single lot, the history ledger, the budget ledger
// and the set of available players.  All four form one consistency domain
// guarded by mu: every operation runs in exactly one critical section, and no
// I/O happens while mu is held.  Broadcasts and archive records are handed off
// before unlocking so consumers see them in commit order; both hand-offs are
// non-blocking queue sends.
type AuctionService struct {
	mu        sync.RWMutex
	state     domain.AuctionState
	history   *ledger.History
	budgets   *ledger.Budgets
	available map[string]struct{}

	timer     time.Duration
	adminTeam string
	now       func() time.Time

	logger      *slog.Logger
	metrics     *metrics.Metrics
	broadcaster Broadcaster // injected after WS Hub is built
	archiver    Archiver    // injected when the archive is enabled
}

// NewAuctionService seeds the ledgers from the roster.
func NewAuctionService(r *roster.Roster, cfg *config.Config, logger *slog.Logger, opts ...Option) *AuctionService {
	available := make(map[string]struct{}, len(r.Players))
	for _, p := range r.Players {
		available[p] = struct{}{}
	}

	s := &AuctionService{
		history:   ledger.NewHistory(),
		budgets:   ledger.NewBudgets(r.Budgets()),
		available: available,
		timer:     cfg.Auction.TimerDuration,
		adminTeam: cfg.Auction.AdminTeam,
		now:       time.Now,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = metrics.New()
	}
	return s
}

// SetBroadcaster injects the WS Hub dependency post-construction.
func (s *AuctionService) SetBroadcaster(b Broadcaster) { s.broadcaster = b }

// SetArchiver injects the result archive post-construction.
func (s *AuctionService) SetArchiver(a Archiver) { s.archiver = a }

// AdminTeam returns the team allowed to confirm, cancel and delete.
func (s *AuctionService) AdminTeam() string { return s.adminTeam }

// ──────────────────────────────────────────────────────────────────────────────
// Start
// ──────────────────────────────────────────────────────────────────────────────

// Start opens bidding on player with team as the opening bidder at
// MinOpeningBid.  It is refused while another lot is open or a result is
// waiting for confirmation.
func (s *AuctionService) Start(player, team string) (domain.AuctionStatus, error) {
	player, team = strings.TrimSpace(player), strings.TrimSpace(team)
	if player == "" || team == "" {
		return domain.AuctionStatus{}, domain.ErrMissingField
	}

	s.mu.Lock()
	now := s.now()
	var err error
	switch {
	case s.state.AwaitingConfirmation:
		err = domain.ErrAwaitingConfirmation
	case s.state.Active:
		err = domain.ErrAuctionActive
	case !s.budgets.Known(team):
		err = domain.ErrUnknownTeam
	case !s.isAvailable(player):
		err = domain.ErrPlayerUnavailable
	case s.budgets.Remaining(team) < domain.MinOpeningBid:
		err = domain.ErrInsufficientBudget
	}
	if err != nil {
		s.mu.Unlock()
		s.logger.Debug("start rejected", "player", player, "team", team, "err", err)
		return domain.AuctionStatus{}, err
	}

	s.state = domain.AuctionState{
		Active:      true,
		Player:      player,
		LeadingTeam: team,
		HighestBid:  domain.MinOpeningBid,
		TimerEnd:    now.Add(s.timer),
	}
	status := s.state.ToStatus(now)
	s.metrics.HighestBid.Set(float64(status.HighestBid))
	s.publish(domain.EventAuctionStarted, team, status, nil, now)
	s.mu.Unlock()

	s.metrics.AuctionsStarted.Inc()
	s.logger.Info("auction started", "player", player, "team", team)
	return status, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Bid
// ──────────────────────────────────────────────────────────────────────────────

// Bid raises the highest bid by increment on behalf of team and restarts the
// countdown from the full timer duration.  An increment below 1 counts as
// DefaultIncrement.  The team must be able to afford the new total.
func (s *AuctionService) Bid(team string, increment int64) (domain.AuctionStatus, error) {
	team = strings.TrimSpace(team)
	if increment < 1 {
		increment = domain.DefaultIncrement
	}

	s.mu.Lock()
	now := s.now()
	var err error
	switch {
	case s.state.AwaitingConfirmation:
		err = domain.ErrAwaitingConfirmation
	case !s.state.Active:
		err = domain.ErrAuctionNotActive
	case !s.budgets.Known(team):
		err = domain.ErrUnknownTeam
	case increment > s.budgets.Remaining(team)-s.state.HighestBid:
		// same as remaining < highest+increment, without the overflow
		err = domain.ErrInsufficientBudget
	}
	if err != nil {
		s.mu.Unlock()
		s.rejectBid(team, err)
		return domain.AuctionStatus{}, err
	}

	s.state.HighestBid += increment
	s.state.LeadingTeam = team
	s.state.TimerEnd = now.Add(s.timer)
	status := s.state.ToStatus(now)
	s.metrics.HighestBid.Set(float64(status.HighestBid))
	s.publish(domain.EventBidPlaced, team, status, nil, now)
	s.mu.Unlock()

	s.metrics.BidsAccepted.Inc()
	s.logger.Debug("bid accepted", "player", status.Player, "team", team, "bid", status.HighestBid)
	return status, nil
}

func (s *AuctionService) rejectBid(team string, err error) {
	reason := "other"
	switch {
	case domain.IsValidation(err):
		reason = "validation"
	case domain.IsConflict(err):
		reason = "state"
	case domain.IsBudget(err):
		reason = "budget"
	}
	s.metrics.BidsRejected.WithLabelValues(reason).Inc()
	s.logger.Debug("bid rejected", "team", team, "reason", reason, "err", err)
}

// ──────────────────────────────────────────────────────────────────────────────
// Tick
// ──────────────────────────────────────────────────────────────────────────────

// Tick closes bidding once the deadline has passed and parks the result for
// confirmation.  It reports whether this call made the transition; repeated
// calls after expiry are no-ops.
func (s *AuctionService) Tick() bool {
	s.mu.Lock()
	now := s.now()
	if !s.state.Expired(now) {
		s.mu.Unlock()
		return false
	}
	s.state.Active = false
	s.state.AwaitingConfirmation = true
	status := s.state.ToStatus(now)
	s.publish(domain.EventAwaitingConfirmation, status.LeadingTeam, status, nil, now)
	s.mu.Unlock()

	s.metrics.AuctionsExpired.Inc()
	s.logger.Info("bidding closed, awaiting confirmation",
		"player", status.Player, "team", status.LeadingTeam, "bid", status.HighestBid)
	return true
}

// ──────────────────────────────────────────────────────────────────────────────
// Confirm / Cancel
// ──────────────────────────────────────────────────────────────────────────────

// Confirm commits the pending result: it appends a history entry, debits the
// winner, removes the player from the available set and returns the auction to
// Idle, all in one critical section.  Only the administrator may confirm.
func (s *AuctionService) Confirm(callerTeam string) (*domain.HistoryEntry, error) {
	s.mu.Lock()
	now := s.now()
	if err := s.checkPending(callerTeam); err != nil {
		s.mu.Unlock()
		s.logger.Debug("confirm rejected", "caller", callerTeam, "err", err)
		return nil, err
	}

	entry := s.history.Append(s.state.Player, s.state.LeadingTeam, s.state.HighestBid, now.Unix())
	s.budgets.Debit(entry.Winner, entry.Price)
	delete(s.available, entry.Player)
	s.state.Reset()
	status := s.state.ToStatus(now)
	s.metrics.HighestBid.Set(0)
	if s.archiver != nil {
		s.archiver.RecordConfirmed(entry)
	}
	s.publish(domain.EventAuctionConfirmed, callerTeam, status, &entry, now)
	s.mu.Unlock()

	s.metrics.AuctionsConfirmed.Inc()
	s.logger.Info("auction confirmed",
		"id", entry.ID, "player", entry.Player, "winner", entry.Winner, "price", entry.Price)
	return &entry, nil
}

// Cancel discards the pending result without touching history or budgets.
// Only the administrator may cancel.
func (s *AuctionService) Cancel(callerTeam string) error {
	s.mu.Lock()
	now := s.now()
	if err := s.checkPending(callerTeam); err != nil {
		s.mu.Unlock()
		s.logger.Debug("cancel rejected", "caller", callerTeam, "err", err)
		return err
	}
	player := s.state.Player
	s.state.Reset()
	status := s.state.ToStatus(now)
	s.metrics.HighestBid.Set(0)
	s.publish(domain.EventAuctionCancelled, callerTeam, status, nil, now)
	s.mu.Unlock()

	s.metrics.AuctionsCancelled.Inc()
	s.logger.Info("auction cancelled", "player", player)
	return nil
}

// checkPending must be called with mu held.
func (s *AuctionService) checkPending(callerTeam string) error {
	if callerTeam != s.adminTeam {
		return domain.ErrNotAdmin
	}
	if !s.state.AwaitingConfirmation {
		return domain.ErrNotAwaitingConfirmation
	}
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// DeleteHistory
// ──────────────────────────────────────────────────────────────────────────────

// DeleteHistory reverses a committed result: the entry is removed, the winner
// is credited the price and the player is listed as available again.
func (s *AuctionService) DeleteHistory(id int64, callerTeam string) (*domain.HistoryEntry, error) {
	if callerTeam != s.adminTeam {
		return nil, domain.ErrNotAdmin
	}

	s.mu.Lock()
	now := s.now()
	entry, ok := s.history.Delete(id)
	if !ok {
		s.mu.Unlock()
		return nil, domain.ErrHistoryNotFound
	}
	s.budgets.Credit(entry.Winner, entry.Price)
	s.available[entry.Player] = struct{}{}
	status := s.state.ToStatus(now)
	if s.archiver != nil {
		s.archiver.RecordDeleted(entry)
	}
	s.publish(domain.EventHistoryDeleted, callerTeam, status, &entry, now)
	s.mu.Unlock()

	s.metrics.HistoryDeleted.Inc()
	s.logger.Info("history entry deleted",
		"id", entry.ID, "player", entry.Player, "winner", entry.Winner, "refund", entry.Price)
	return &entry, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Read-only snapshots
// ──────────────────────────────────────────────────────────────────────────────

// Status returns the current lot as seen by clients.
func (s *AuctionService) Status() domain.AuctionStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.ToStatus(s.now())
}

// State returns a copy of the raw auction state.
func (s *AuctionService) State() domain.AuctionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// History returns committed results, most recent first.
func (s *AuctionService) History() []domain.HistoryEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.history.List()
}

// Players returns the available players in role, then name order.
func (s *AuctionService) Players() []string {
	s.mu.RLock()
	out := make([]string, 0, len(s.available))
	for p := range s.available {
		out = append(out, p)
	}
	s.mu.RUnlock()
	return domain.SortPlayers(out)
}

// Teams returns starting and remaining budgets.
func (s *AuctionService) Teams() domain.TeamsView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.TeamsView{
		Budgets:   s.budgets.Initial(),
		Remaining: s.budgets.Snapshot(),
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// helpers
// ──────────────────────────────────────────────────────────────────────────────

// isAvailable must be called with mu held.
func (s *AuctionService) isAvailable(player string) bool {
	_, ok := s.available[player]
	return ok
}

// PublishStatus pushes the current status to clients; used by the scheduler
// to keep countdowns live.
func (s *AuctionService) PublishStatus() {
	s.mu.RLock()
	defer s.mu.RUnlock()
	now := s.now()
	status := s.state.ToStatus(now)
	if !status.Active {
		return
	}
	s.publish(domain.EventStatus, "", status, nil, now)
}

// publish must be called with mu held.
func (s *AuctionService) publish(typ domain.EventType, team string, status domain.AuctionStatus, entry *domain.HistoryEntry, at time.Time) {
	if s.broadcaster == nil {
		return
	}
	s.broadcaster.BroadcastAuctionEvent(domain.AuctionEvent{
		Type:      typ,
		Team:      team,
		Status:    status,
		Entry:     entry,
		Timestamp: at.UTC(),
	})
}
