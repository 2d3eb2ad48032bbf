// Package roster loads the static list of teams (with starting budgets) and
// players eligible for auction.
package roster

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default_roster.yaml
var defaultRoster []byte

// Team is a bidder and its starting budget.
type Team struct {
	Name   string `yaml:"name"`
	Budget int64  `yaml:"budget"`
}

// Roster is the registry handed to the auction at startup.  It is read-only
// afterwards.
type Roster struct {
	Teams   []Team   `yaml:"teams"`
	Players []string `yaml:"players"`
}

// Load reads and validates a roster file.
func Load(path string) (*Roster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("roster.Load: read %q: %w", path, err)
	}
	return Parse(data)
}

// Default returns the embedded roster.
func Default() (*Roster, error) {
	return Parse(defaultRoster)
}

// Parse decodes YAML roster data, trims names, drops duplicate players and
// validates the result.
func Parse(data []byte) (*Roster, error) {
	var r Roster
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("roster.Parse: %w", err)
	}
	r.normalize()
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &r, nil
}

func (r *Roster) normalize() {
	for i := range r.Teams {
		r.Teams[i].Name = strings.TrimSpace(r.Teams[i].Name)
	}

	seen := make(map[string]bool, len(r.Players))
	players := r.Players[:0]
	for _, p := range r.Players {
		p = strings.TrimSpace(p)
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		players = append(players, p)
	}
	r.Players = players
}

// Validate checks team names and budgets.  All problems are reported at once.
func (r *Roster) Validate() error {
	var errs []error
	if len(r.Teams) == 0 {
		errs = append(errs, errors.New("roster must list at least one team"))
	}
	names := make(map[string]bool, len(r.Teams))
	for i, t := range r.Teams {
		if t.Name == "" {
			errs = append(errs, fmt.Errorf("team #%d has no name", i+1))
			continue
		}
		if names[t.Name] {
			errs = append(errs, fmt.Errorf("team %q listed twice", t.Name))
		}
		names[t.Name] = true
		if t.Budget < 0 {
			errs = append(errs, fmt.Errorf("team %q has negative budget %d", t.Name, t.Budget))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("roster: invalid: %w", errors.Join(errs...))
	}
	return nil
}

// Budgets returns team name → starting budget.
func (r *Roster) Budgets() map[string]int64 {
	out := make(map[string]int64, len(r.Teams))
	for _, t := range r.Teams {
		out[t.Name] = t.Budget
	}
	return out
}

// HasTeam reports whether name is a listed team.
func (r *Roster) HasTeam(name string) bool {
	for _, t := range r.Teams {
		if t.Name == name {
			return true
		}
	}
	return false
}
