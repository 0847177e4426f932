package security

import (
	"relaybot/internal/domain"
)

// Guard decides whether a member may change the watch list: the guild owner
// or whoever holds the guild's highest role.
type Guard struct{}

// NewGuard creates a Guard.
func NewGuard() *Guard { return &Guard{} }

// IsAuthorized reports whether req may run administrative commands in guild.
func (g *Guard) IsAuthorized(req domain.Requester, guild domain.GuildContext) bool {
	if req.UserID == "" || guild.ID == "" {
		return false
	}
	if guild.OwnerID != "" && req.UserID == guild.OwnerID {
		return true
	}

	top, ok := HighestRole(guild.Roles)
	if !ok {
		return false
	}
	mine, ok := memberHighestRole(req, guild)
	if !ok {
		return false
	}
	// Identity, not rank: a different role sharing the top position does not count.
	return mine.ID == top.ID
}

// HighestRole returns the role with the greatest position. Equal positions
// are ordered by id, the older (smaller) snowflake ranking higher.
func HighestRole(roles []domain.Role) (domain.Role, bool) {
	var (
		best  domain.Role
		found bool
	)
	for _, r := range roles {
		if r.ID == "" {
			continue
		}
		if !found || outranks(r, best) {
			best, found = r, true
		}
	}
	return best, found
}

// memberHighestRole resolves the member's role ids against the guild. Every
// member implicitly holds @everyone, whose id is the guild id.
func memberHighestRole(req domain.Requester, guild domain.GuildContext) (domain.Role, bool) {
	held := make(map[string]struct{}, len(req.RoleIDs)+1)
	held[guild.ID] = struct{}{}
	for _, id := range req.RoleIDs {
		held[id] = struct{}{}
	}

	var mine []domain.Role
	for _, r := range guild.Roles {
		if _, ok := held[r.ID]; ok {
			mine = append(mine, r)
		}
	}
	return HighestRole(mine)
}

func outranks(a, b domain.Role) bool {
	if a.Position != b.Position {
		return a.Position > b.Position
	}
	return snowflakeLess(a.ID, b.ID)
}

// snowflakeLess compares decimal snowflake ids numerically without parsing.
func snowflakeLess(a, b string) bool {
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}
