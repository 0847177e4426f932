package domain

// Role is a guild role as far as authorization is concerned.
type Role struct {
	ID       string
	Position int
}

// Requester is the member issuing a command.
type Requester struct {
	UserID  string
	RoleIDs []string
}

// GuildContext is the guild a command was issued in.
type GuildContext struct {
	ID      string
	OwnerID string
	Roles   []Role
}
