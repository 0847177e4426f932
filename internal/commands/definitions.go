// Package commands implements the watch-list administration commands.
package commands

const (
	CmdFollow      = "follow"
	CmdUnfollow    = "unfollow"
	CmdListFollows = "listfollows"

	OptUserID = "userid"
)

// Option is a string option of a command.
type Option struct {
	Name        string
	Description string
	Required    bool
}

// Definition describes a command for registration with the chat platform.
type Definition struct {
	Name        string
	Description string
	Options     []Option
}

// Definitions returns the commands the router understands.
func Definitions() []Definition {
	return []Definition{
		{
			Name:        CmdFollow,
			Description: "Add a user to the watch list",
			Options: []Option{
				{Name: OptUserID, Description: "User ID to follow", Required: true},
			},
		},
		{
			Name:        CmdUnfollow,
			Description: "Remove a user from the watch list",
			Options: []Option{
				{Name: OptUserID, Description: "User ID to unfollow", Required: true},
			},
		},
		{
			Name:        CmdListFollows,
			Description: "Show all watched users",
		},
	}
}
