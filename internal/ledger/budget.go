package ledger

// Budgets tracks each team's remaining funds against its starting budget.
type Budgets struct {
	initial   map[string]int64
	remaining map[string]int64
}

// NewBudgets seeds remaining funds from the starting budgets.  The map is
// copied.
func NewBudgets(initial map[string]int64) *Budgets {
	b := &Budgets{
		initial:   make(map[string]int64, len(initial)),
		remaining: make(map[string]int64, len(initial)),
	}
	for team, amount := range initial {
		b.initial[team] = amount
		b.remaining[team] = amount
	}
	return b
}

// Known reports whether the team is part of the ledger.
func (b *Budgets) Known(team string) bool {
	_, ok := b.initial[team]
	return ok
}

// Remaining returns the team's funds; unknown teams read as 0.
func (b *Budgets) Remaining(team string) int64 {
	return b.remaining[team]
}

// Debit subtracts amount, flooring the result at 0.
//
// The floor means a later Credit of the same amount can restore more than
// was actually taken.  That asymmetry is deliberate and left as is.
func (b *Budgets) Debit(team string, amount int64) {
	if !b.Known(team) {
		return
	}
	left := b.remaining[team] - amount
	if left < 0 {
		left = 0
	}
	b.remaining[team] = left
}

// Credit adds amount back, uncapped.
func (b *Budgets) Credit(team string, amount int64) {
	if !b.Known(team) {
		return
	}
	b.remaining[team] += amount
}

// Initial returns a copy of the starting budgets.
func (b *Budgets) Initial() map[string]int64 {
	return copyMap(b.initial)
}

// Snapshot returns a copy of the remaining funds.
func (b *Budgets) Snapshot() map[string]int64 {
	return copyMap(b.remaining)
}

func copyMap(m map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
