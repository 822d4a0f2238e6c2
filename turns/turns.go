// Package turns converts the client's role-tagged transcript into the
// provider's two-party role vocabulary, and splits it into the running
// history and the most recent unsent turn.
package turns

import "github.com/a-h/chatrelay/models"

type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

type Turn struct {
	Role  Role
	Parts []string
}

// Text returns the turn's text content.
func (t Turn) Text() (string, error) {
	if len(t.Parts) == 0 {
		return "", BadRequestError{Message: "invalid last message content"}
	}
	return t.Parts[0], nil
}

// BadRequestError reports a conversation shape the relay must reject before
// any provider call is attempted.
type BadRequestError struct {
	Message string
}

func (e BadRequestError) Error() string {
	return e.Message
}

// Format maps each message onto a provider turn, preserving order and
// length. Assistant messages become model turns; any other role, including
// roles this package does not know about, becomes a user turn.
func Format(msgs []models.Message) []Turn {
	ts := make([]Turn, len(msgs))
	for i, m := range msgs {
		var role Role
		switch m.Role {
		case models.RoleAssistant:
			role = RoleModel
		case models.RoleUser:
			role = RoleUser
		default:
			role = RoleUser
		}
		ts[i] = Turn{
			Role:  role,
			Parts: []string{m.Content},
		}
	}
	return ts
}

// Split separates the transcript into history (all but the last turn) and
// the pending turn (the last). The transcript must be non-empty and end in
// a user turn.
func Split(ts []Turn) (history []Turn, pending Turn, err error) {
	if len(ts) == 0 || ts[len(ts)-1].Role != RoleUser {
		return nil, Turn{}, BadRequestError{Message: "invalid last message format"}
	}
	return ts[:len(ts)-1], ts[len(ts)-1], nil
}
