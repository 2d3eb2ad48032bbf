package service_test

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/fantaasta/auction/internal/config"
	"github.com/fantaasta/auction/internal/domain"
	"github.com/fantaasta/auction/internal/metrics"
	"github.com/fantaasta/auction/internal/roster"
	"github.com/fantaasta/auction/internal/service"
)

// ── Test helpers ──────────────────────────────────────────────────────────────

const admin = "Admin"

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type recordingBroadcaster struct {
	mu     sync.Mutex
	events []domain.AuctionEvent
}

func (b *recordingBroadcaster) BroadcastAuctionEvent(evt domain.AuctionEvent) {
	b.mu.Lock()
	b.events = append(b.events, evt)
	b.mu.Unlock()
}

func (b *recordingBroadcaster) types() []domain.EventType {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]domain.EventType, len(b.events))
	for i, e := range b.events {
		out[i] = e.Type
	}
	return out
}

type recordingArchiver struct {
	confirmed []domain.HistoryEntry
	deleted   []domain.HistoryEntry
}

func (a *recordingArchiver) RecordConfirmed(e domain.HistoryEntry) { a.confirmed = append(a.confirmed, e) }
func (a *recordingArchiver) RecordDeleted(e domain.HistoryEntry)   { a.deleted = append(a.deleted, e) }

func testRoster() *roster.Roster {
	return &roster.Roster{
		Teams: []roster.Team{
			{Name: admin, Budget: 100},
			{Name: "TeamA", Budget: 10},
			{Name: "TeamB", Budget: 5},
			{Name: "TeamC", Budget: 20},
			{Name: "Broke", Budget: 0},
		},
		Players: []string{"Rossi (ATT)", "Bianchi (D)", "Verdi (P)"},
	}
}

func testCfg() *config.Config {
	return &config.Config{
		Auction: config.AuctionConfig{
			TimerDuration: 5 * time.Second,
			TickInterval:  200 * time.Millisecond,
			AdminTeam:     admin,
		},
	}
}

type harness struct {
	svc     *service.AuctionService
	clock   *fakeClock
	bc      *recordingBroadcaster
	arch    *recordingArchiver
	metrics *metrics.Metrics
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		clock:   &fakeClock{t: time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)},
		bc:      &recordingBroadcaster{},
		arch:    &recordingArchiver{},
		metrics: metrics.New(),
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h.svc = service.NewAuctionService(testRoster(), testCfg(), logger,
		service.WithClock(h.clock.Now),
		service.WithMetrics(h.metrics),
	)
	h.svc.SetBroadcaster(h.bc)
	h.svc.SetArchiver(h.arch)
	return h
}

// expire runs the clock to the deadline and ticks.
func (h *harness) expire(t *testing.T) {
	t.Helper()
	h.clock.Advance(5 * time.Second)
	assert.True(t, h.svc.Tick())
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// ── Start ─────────────────────────────────────────────────────────────────────

func TestStart_OpensLot(t *testing.T) {
	h := newHarness(t)

	st, err := h.svc.Start("Rossi (ATT)", "TeamA")
	assert.NoError(t, err)

	check.True(t, st.Active)
	check.Equal(t, int64(1), st.HighestBid)
	check.Equal(t, "TeamA", st.LeadingTeam)
	check.Equal(t, "Rossi (ATT)", st.Player)
	check.Equal(t, int64(5), st.TimeLeft)
	check.False(t, st.AwaitingConfirmation)

	status := h.svc.Status()
	check.Equal(t, st, status)
	check.Equal(t, []domain.EventType{domain.EventAuctionStarted}, h.bc.types())
	check.Equal(t, 1.0, testutil.ToFloat64(h.metrics.AuctionsStarted))
}

func TestStart_Rejections(t *testing.T) {
	cases := []struct {
		name   string
		player string
		team   string
		want   error
	}{
		{"missing player", "", "TeamA", domain.ErrMissingField},
		{"missing team", "Rossi (ATT)", " ", domain.ErrMissingField},
		{"unknown team", "Rossi (ATT)", "Ghost", domain.ErrUnknownTeam},
		{"unknown player", "Nobody (A)", "TeamA", domain.ErrPlayerUnavailable},
		{"no budget", "Rossi (ATT)", "Broke", domain.ErrInsufficientBudget},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			_, err := h.svc.Start(tc.player, tc.team)
			check.True(t, errors.Is(err, tc.want))
			check.Equal(t, domain.PhaseIdle, h.svc.Status().Phase)
			check.Equal(t, 0, len(h.bc.types()))
		})
	}
}

func TestStart_RefusedWhileActive(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.Start("Rossi (ATT)", "TeamA")
	assert.NoError(t, err)

	_, err = h.svc.Start("Bianchi (D)", "TeamC")
	check.True(t, errors.Is(err, domain.ErrAuctionActive))
	check.Equal(t, "Rossi (ATT)", h.svc.Status().Player)
}

func TestStart_BlockedByPendingConfirmation(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.Start("Rossi (ATT)", "TeamA")
	assert.NoError(t, err)
	h.expire(t)

	_, err = h.svc.Start("Bianchi (D)", "TeamC")
	check.True(t, errors.Is(err, domain.ErrAwaitingConfirmation))
	check.True(t, domain.IsConflict(err))

	st := h.svc.Status()
	check.True(t, st.AwaitingConfirmation)
	check.Equal(t, "Rossi (ATT)", st.Player)
}

// ── Bid ───────────────────────────────────────────────────────────────────────

func TestBid_RaisesAndResetsTimer(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.Start("Rossi (ATT)", "TeamA")
	assert.NoError(t, err)

	h.clock.Advance(3 * time.Second)
	check.Equal(t, int64(2), h.svc.Status().TimeLeft)

	st, err := h.svc.Bid("TeamB", 2)
	assert.NoError(t, err)
	check.Equal(t, int64(3), st.HighestBid)
	check.Equal(t, "TeamB", st.LeadingTeam)
	check.Equal(t, int64(5), st.TimeLeft)

	check.Equal(t, h.clock.Now().Add(5*time.Second), h.svc.State().TimerEnd)
	check.Equal(t, 1.0, testutil.ToFloat64(h.metrics.BidsAccepted))
}

func TestBid_ZeroIncrementCountsAsOne(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.Start("Rossi (ATT)", "TeamA")
	assert.NoError(t, err)

	st, err := h.svc.Bid("TeamC", 0)
	assert.NoError(t, err)
	check.Equal(t, int64(2), st.HighestBid)
	check.Equal(t, "TeamC", st.LeadingTeam)
}

func TestBid_NegativeIncrementCountsAsOne(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.Start("Rossi (ATT)", "TeamA")
	assert.NoError(t, err)

	st, err := h.svc.Bid("TeamC", -4)
	assert.NoError(t, err)
	check.Equal(t, int64(2), st.HighestBid)

	st, err = h.svc.Bid("TeamA", -1)
	assert.NoError(t, err)
	check.Equal(t, int64(3), st.HighestBid)
	check.Equal(t, 2.0, testutil.ToFloat64(h.metrics.BidsAccepted))
	check.Equal(t, 0.0, testutil.ToFloat64(h.metrics.BidsRejected.WithLabelValues("validation")))
}

func TestBid_BudgetBoundary(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.Start("Rossi (ATT)", "TeamA")
	assert.NoError(t, err)

	// TeamB has 5; highest is 1.  1+5 = 6 is one unit too many.
	_, err = h.svc.Bid("TeamB", 5)
	check.True(t, errors.Is(err, domain.ErrInsufficientBudget))
	check.Equal(t, "TeamA", h.svc.Status().LeadingTeam)

	// 1+4 = 5 is exactly affordable.
	st, err := h.svc.Bid("TeamB", 4)
	assert.NoError(t, err)
	check.Equal(t, int64(5), st.HighestBid)
	check.Equal(t, 1.0, testutil.ToFloat64(h.metrics.BidsRejected.WithLabelValues("budget")))
}

func TestBid_HugeIncrementDoesNotOverflow(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.Start("Rossi (ATT)", "TeamA")
	assert.NoError(t, err)

	_, err = h.svc.Bid("TeamC", 1<<62)
	check.True(t, errors.Is(err, domain.ErrInsufficientBudget))
}

func TestBid_Rejections(t *testing.T) {
	h := newHarness(t)

	_, err := h.svc.Bid("TeamA", 1)
	check.True(t, errors.Is(err, domain.ErrAuctionNotActive))

	_, err = h.svc.Start("Rossi (ATT)", "TeamA")
	assert.NoError(t, err)

	_, err = h.svc.Bid("Ghost", 1)
	check.True(t, errors.Is(err, domain.ErrUnknownTeam))

	h.expire(t)
	_, err = h.svc.Bid("TeamC", 1)
	check.True(t, errors.Is(err, domain.ErrAwaitingConfirmation))
	check.Equal(t, int64(1), h.svc.Status().HighestBid)
}

// ── Tick ──────────────────────────────────────────────────────────────────────

func TestTick_BeforeAndAfterDeadline(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.Start("Rossi (ATT)", "TeamA")
	assert.NoError(t, err)

	h.clock.Advance(4999 * time.Millisecond)
	check.False(t, h.svc.Tick())
	check.True(t, h.svc.Status().Active)

	h.clock.Advance(time.Millisecond)
	check.True(t, h.svc.Tick())

	st := h.svc.Status()
	check.False(t, st.Active)
	check.True(t, st.AwaitingConfirmation)
	check.Equal(t, int64(0), st.TimeLeft)
	check.Equal(t, int64(1), st.HighestBid)
}

func TestTick_Idempotent(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.Start("Rossi (ATT)", "TeamA")
	assert.NoError(t, err)
	h.expire(t)
	before := h.svc.State()

	for i := 0; i < 5; i++ {
		h.clock.Advance(time.Second)
		check.False(t, h.svc.Tick())
	}
	check.Equal(t, before, h.svc.State())
	check.Equal(t, 1.0, testutil.ToFloat64(h.metrics.AuctionsExpired))
	check.Equal(t, []domain.EventType{domain.EventAuctionStarted, domain.EventAwaitingConfirmation}, h.bc.types())
}

func TestTick_IdleIsNoop(t *testing.T) {
	h := newHarness(t)
	check.False(t, h.svc.Tick())
	check.Equal(t, domain.PhaseIdle, h.svc.Status().Phase)
}

// ── Confirm ───────────────────────────────────────────────────────────────────

func TestConfirm_NonAdminRejected(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.Start("Rossi (ATT)", "TeamA")
	assert.NoError(t, err)
	h.expire(t)
	before := h.svc.State()

	entry, err := h.svc.Confirm("TeamC")
	check.Nil(t, entry)
	check.True(t, errors.Is(err, domain.ErrNotAdmin))
	check.Equal(t, before, h.svc.State())
	check.Equal(t, 0, len(h.svc.History()))
}

func TestConfirm_NotPending(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.Confirm(admin)
	check.True(t, errors.Is(err, domain.ErrNotAwaitingConfirmation))

	_, err = h.svc.Start("Rossi (ATT)", "TeamA")
	assert.NoError(t, err)
	_, err = h.svc.Confirm(admin)
	check.True(t, errors.Is(err, domain.ErrNotAwaitingConfirmation))
	check.True(t, h.svc.Status().Active)
}

func TestConfirm_Commits(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.Start("Rossi (ATT)", "TeamA")
	assert.NoError(t, err)
	_, err = h.svc.Bid("TeamC", 6) // 7
	assert.NoError(t, err)
	h.expire(t)

	entry, err := h.svc.Confirm(admin)
	assert.NoError(t, err)
	assert.NotNil(t, entry)

	check.Equal(t, int64(1), entry.ID)
	check.Equal(t, "Rossi (ATT)", entry.Player)
	check.Equal(t, "TeamC", entry.Winner)
	check.Equal(t, int64(7), entry.Price)
	check.Equal(t, h.clock.Now().Unix(), entry.Timestamp)

	check.False(t, contains(h.svc.Players(), "Rossi (ATT)"))
	check.Equal(t, int64(13), h.svc.Teams().Remaining["TeamC"])
	check.Equal(t, int64(20), h.svc.Teams().Budgets["TeamC"])
	check.Equal(t, domain.AuctionState{}, h.svc.State())
	check.Equal(t, []domain.HistoryEntry{*entry}, h.svc.History())
	check.Equal(t, []domain.HistoryEntry{*entry}, h.arch.confirmed)

	// The player can no longer be auctioned.
	_, err = h.svc.Start("Rossi (ATT)", "TeamA")
	check.True(t, errors.Is(err, domain.ErrPlayerUnavailable))
}

func TestConfirm_IDsIncrease(t *testing.T) {
	h := newHarness(t)
	var ids []int64
	for _, p := range []string{"Rossi (ATT)", "Bianchi (D)"} {
		_, err := h.svc.Start(p, "TeamA")
		assert.NoError(t, err)
		h.expire(t)
		e, err := h.svc.Confirm(admin)
		assert.NoError(t, err)
		ids = append(ids, e.ID)
	}
	check.Equal(t, []int64{1, 2}, ids)

	hist := h.svc.History()
	check.Equal(t, "Bianchi (D)", hist[0].Player)
	check.Equal(t, "Rossi (ATT)", hist[1].Player)
}

// ── Cancel ────────────────────────────────────────────────────────────────────

func TestCancel(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.Start("Rossi (ATT)", "TeamA")
	assert.NoError(t, err)
	h.expire(t)

	check.True(t, errors.Is(h.svc.Cancel("TeamA"), domain.ErrNotAdmin))
	check.True(t, h.svc.Status().AwaitingConfirmation)

	assert.NoError(t, h.svc.Cancel(admin))
	check.Equal(t, domain.AuctionState{}, h.svc.State())
	check.Equal(t, 0, len(h.svc.History()))
	check.True(t, contains(h.svc.Players(), "Rossi (ATT)"))
	check.Equal(t, int64(10), h.svc.Teams().Remaining["TeamA"])

	check.True(t, errors.Is(h.svc.Cancel(admin), domain.ErrNotAwaitingConfirmation))
}

// ── DeleteHistory ─────────────────────────────────────────────────────────────

func TestDeleteHistory_RoundTrip(t *testing.T) {
	h := newHarness(t)
	playersBefore := h.svc.Players()
	teamsBefore := h.svc.Teams()

	_, err := h.svc.Start("Rossi (ATT)", "TeamA")
	assert.NoError(t, err)
	_, err = h.svc.Bid("TeamA", 3) // 4
	assert.NoError(t, err)
	h.expire(t)
	entry, err := h.svc.Confirm(admin)
	assert.NoError(t, err)
	check.Equal(t, int64(6), h.svc.Teams().Remaining["TeamA"])

	removed, err := h.svc.DeleteHistory(entry.ID, admin)
	assert.NoError(t, err)
	check.Equal(t, *entry, *removed)

	check.Equal(t, playersBefore, h.svc.Players())
	check.Equal(t, teamsBefore, h.svc.Teams())
	check.Equal(t, 0, len(h.svc.History()))
	check.Equal(t, []domain.HistoryEntry{*entry}, h.arch.deleted)
	check.Equal(t, domain.EventHistoryDeleted, h.bc.types()[len(h.bc.types())-1])
}

func TestDeleteHistory_Rejections(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.Start("Rossi (ATT)", "TeamA")
	assert.NoError(t, err)
	h.expire(t)
	entry, err := h.svc.Confirm(admin)
	assert.NoError(t, err)

	_, err = h.svc.DeleteHistory(entry.ID, "TeamA")
	check.True(t, errors.Is(err, domain.ErrNotAdmin))
	check.Equal(t, 1, len(h.svc.History()))

	_, err = h.svc.DeleteHistory(999, admin)
	check.True(t, errors.Is(err, domain.ErrHistoryNotFound))
	check.True(t, domain.IsNotFound(err))
}

func TestDeleteHistory_DuringLiveAuction(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.Start("Rossi (ATT)", "TeamA")
	assert.NoError(t, err)
	h.expire(t)
	entry, err := h.svc.Confirm(admin)
	assert.NoError(t, err)

	_, err = h.svc.Start("Bianchi (D)", "TeamC")
	assert.NoError(t, err)

	_, err = h.svc.DeleteHistory(entry.ID, admin)
	assert.NoError(t, err)

	st := h.svc.Status()
	check.True(t, st.Active)
	check.Equal(t, "Bianchi (D)", st.Player)
	check.True(t, contains(h.svc.Players(), "Rossi (ATT)"))
}

// ── Listings ──────────────────────────────────────────────────────────────────

func TestPlayers_Sorted(t *testing.T) {
	h := newHarness(t)
	check.Equal(t, []string{"Verdi (P)", "Bianchi (D)", "Rossi (ATT)"}, h.svc.Players())
}

func TestPublishStatus_OnlyWhileActive(t *testing.T) {
	h := newHarness(t)
	h.svc.PublishStatus()
	check.Equal(t, 0, len(h.bc.types()))

	_, err := h.svc.Start("Rossi (ATT)", "TeamA")
	assert.NoError(t, err)
	h.svc.PublishStatus()
	check.Equal(t, []domain.EventType{domain.EventAuctionStarted, domain.EventStatus}, h.bc.types())
}
