package service_test

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"

	"github.com/fantaasta/auction/internal/domain"
)

// TestConcurrentBids fires many bids at once while a ticker goroutine keeps
// calling Tick.  Every accepted bid must raise the total by exactly its
// increment, and the lot must never be active and pending at the same time.
// Run with -race.
func TestConcurrentBids(t *testing.T) {
	const workers = 50

	h := newHarness(t)
	_, err := h.svc.Start("Rossi (ATT)", admin) // admin has 100
	assert.NoError(t, err)

	var (
		accepted int64
		rejected int64
		wg       sync.WaitGroup
		stop     = make(chan struct{})
		bad      atomic.Bool
	)

	// observer: invariants hold on every snapshot
	go func() {
		var last int64
		for {
			select {
			case <-stop:
				return
			default:
			}
			h.svc.Tick()
			st := h.svc.State()
			if st.Active && st.AwaitingConfirmation {
				bad.Store(true)
			}
			if st.HighestBid < last {
				bad.Store(true)
			}
			last = st.HighestBid
		}
	}()

	teams := []string{admin, "TeamC"}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			if _, err := h.svc.Bid(teams[id%len(teams)], 1); err != nil {
				atomic.AddInt64(&rejected, 1)
				return
			}
			atomic.AddInt64(&accepted, 1)
		}(i)
	}
	wg.Wait()
	close(stop)

	check.False(t, bad.Load())
	check.Equal(t, int64(workers), accepted+rejected)
	check.Equal(t, 1+accepted, h.svc.State().HighestBid)
	check.True(t, h.svc.State().Active) // clock never moved
}

// TestConcurrentExpiry races many Tick calls at the deadline: exactly one
// reports the transition.
func TestConcurrentExpiry(t *testing.T) {
	const workers = 20

	h := newHarness(t)
	_, err := h.svc.Start("Rossi (ATT)", "TeamA")
	assert.NoError(t, err)
	h.clock.Advance(5 * time.Second)

	var (
		wins int64
		wg   sync.WaitGroup
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if h.svc.Tick() {
				atomic.AddInt64(&wins, 1)
			}
		}()
	}
	wg.Wait()

	check.Equal(t, int64(1), wins)
	check.True(t, h.svc.Status().AwaitingConfirmation)
}

// TestConcurrentConfirm lets several goroutines race to confirm one pending
// result: exactly one commit, exactly one debit.
func TestConcurrentConfirm(t *testing.T) {
	const workers = 20

	h := newHarness(t)
	_, err := h.svc.Start("Rossi (ATT)", "TeamA")
	assert.NoError(t, err)
	h.expire(t)

	var (
		wins int64
		wg   sync.WaitGroup
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := h.svc.Confirm(admin); err == nil {
				atomic.AddInt64(&wins, 1)
			}
		}()
	}
	wg.Wait()

	check.Equal(t, int64(1), wins)
	check.Equal(t, 1, len(h.svc.History()))
	check.Equal(t, int64(9), h.svc.Teams().Remaining["TeamA"])
}

// TestConcurrentBids_BroadcastOrder checks that bid_placed events leave the
// service in commit order: the announced highest bid never goes down.
func TestConcurrentBids_BroadcastOrder(t *testing.T) {
	const workers = 40

	h := newHarness(t)
	_, err := h.svc.Start("Rossi (ATT)", admin)
	assert.NoError(t, err)

	var wg sync.WaitGroup
	teams := []string{admin, "TeamC"}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			_, _ = h.svc.Bid(teams[id%len(teams)], int64(1+id%3))
		}(i)
	}
	wg.Wait()

	h.bc.mu.Lock()
	defer h.bc.mu.Unlock()
	var last int64
	for _, evt := range h.bc.events {
		if evt.Type != domain.EventBidPlaced {
			continue
		}
		check.True(t, evt.Status.HighestBid > last)
		last = evt.Status.HighestBid
	}
	check.Equal(t, h.svc.State().HighestBid, last)
}

// gatedArchiver parks RecordConfirmed until release is closed and keeps the
// order in which records arrived.
type gatedArchiver struct {
	entered chan struct{}
	release chan struct{}

	mu    sync.Mutex
	order []string
}

func (a *gatedArchiver) RecordConfirmed(domain.HistoryEntry) {
	close(a.entered)
	<-a.release
	a.add("confirmed")
}

func (a *gatedArchiver) RecordDeleted(domain.HistoryEntry) { a.add("deleted") }

func (a *gatedArchiver) add(kind string) {
	a.mu.Lock()
	a.order = append(a.order, kind)
	a.mu.Unlock()
}

// TestArchiveOrder_ConfirmBeforeDelete deletes a result while its confirm is
// still handing the record to the archive.  The delete has to wait, so the
// archive never sees a reversal ahead of the result it reverses.
func TestArchiveOrder_ConfirmBeforeDelete(t *testing.T) {
	h := newHarness(t)
	arch := &gatedArchiver{entered: make(chan struct{}), release: make(chan struct{})}
	h.svc.SetArchiver(arch)

	_, err := h.svc.Start("Rossi (ATT)", "TeamA")
	assert.NoError(t, err)
	h.expire(t)

	confirmed := make(chan error, 1)
	go func() {
		_, err := h.svc.Confirm(admin)
		confirmed <- err
	}()
	<-arch.entered

	deleted := make(chan error, 1)
	go func() {
		_, err := h.svc.DeleteHistory(1, admin)
		deleted <- err
	}()

	select {
	case err := <-deleted:
		t.Fatalf("delete finished before the confirm was archived: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	close(arch.release)
	assert.NoError(t, <-confirmed)
	assert.NoError(t, <-deleted)

	arch.mu.Lock()
	defer arch.mu.Unlock()
	check.Equal(t, []string{"confirmed", "deleted"}, arch.order)
}
