package domain

import (
	"sort"
	"strings"
)

// Role is a player's position on the pitch.
type Role string

const (
	RoleGoalkeeper Role = "goalkeeper"
	RoleDefender   Role = "defender"
	RoleMidfielder Role = "midfielder"
	RoleForward    Role = "forward"
	RoleUnknown    Role = "unknown"
)

// roleOrder is the listing order; unknown roles go last.
var roleOrder = map[Role]int{
	RoleGoalkeeper: 0,
	RoleDefender:   1,
	RoleMidfielder: 2,
	RoleForward:    3,
	RoleUnknown:    4,
}

var roleAliases = map[string]Role{
	"P": RoleGoalkeeper, "POR": RoleGoalkeeper, "GK": RoleGoalkeeper, "GKP": RoleGoalkeeper, "GOALKEEPER": RoleGoalkeeper,
	"D": RoleDefender, "DIF": RoleDefender, "DEF": RoleDefender, "DEFENDER": RoleDefender,
	"C": RoleMidfielder, "CEN": RoleMidfielder, "CC": RoleMidfielder, "M": RoleMidfielder, "MID": RoleMidfielder, "MIDFIELDER": RoleMidfielder,
	"A": RoleForward, "ATT": RoleForward, "F": RoleForward, "FW": RoleForward, "FWD": RoleForward, "FORWARD": RoleForward,
}

// Player is a roster entry split into its display name and role.
type Player struct {
	Raw  string
	Name string
	Role Role
}

// ParsePlayer splits a roster entry of the form "Name (ROLE)".  Entries with
// no parenthesised suffix keep the whole string as the name and an unknown role.
func ParsePlayer(raw string) Player {
	p := Player{Raw: raw, Name: strings.TrimSpace(raw), Role: RoleUnknown}

	open := strings.LastIndex(raw, "(")
	end := strings.LastIndex(raw, ")")
	if open < 0 || end < open {
		return p
	}
	token := strings.ToUpper(strings.TrimSpace(raw[open+1 : end]))
	if role, ok := roleAliases[token]; ok {
		p.Role = role
	}
	if name := strings.TrimSpace(raw[:open]); name != "" {
		p.Name = name
	}
	return p
}

// SortPlayers orders raw roster entries by role (goalkeeper, defender,
// midfielder, forward, unknown), then case-insensitively by name, then by the
// raw string.  The input slice is sorted in place and returned.
func SortPlayers(raw []string) []string {
	parsed := make(map[string]Player, len(raw))
	for _, r := range raw {
		parsed[r] = ParsePlayer(r)
	}
	sort.SliceStable(raw, func(i, j int) bool {
		a, b := parsed[raw[i]], parsed[raw[j]]
		if ra, rb := roleOrder[a.Role], roleOrder[b.Role]; ra != rb {
			return ra < rb
		}
		if na, nb := strings.ToLower(a.Name), strings.ToLower(b.Name); na != nb {
			return na < nb
		}
		return a.Raw < b.Raw
	})
	return raw
}
