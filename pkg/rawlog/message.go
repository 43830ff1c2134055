package rawlog

import (
	"errors"
	"fmt"
)

// ErrInvalidRole is returned when appending a message whose role is neither
// user nor assistant.
var ErrInvalidRole = errors.New("invalid message role")

// Role tags who produced a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// ParseRole validates a role coming from user input.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
	}
	return r, nil
}

// Message is one entry of the raw log. IDs start at 1 and increase by one
// per append.
type Message struct {
	ID      uint64 `json:"id"`
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Excerpt renders the message the way it is fed to summarizers and prompts.
func (m Message) Excerpt() string {
	return string(m.Role) + ": " + m.Content
}
