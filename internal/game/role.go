package game

import "fmt"

// Role identifies what kind of client a connection represents. The host
// drives the game, players compete, TV connections render the shared
// display.
type Role string

const (
	RoleHost   Role = "HOST"
	RolePlayer Role = "PLAYER"
	RoleTV     Role = "TV"
)

// ParseRole validates a role string from an external source (token claims).
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleHost, RolePlayer, RoleTV:
		return Role(s), nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}
