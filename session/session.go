// Package session tracks per-conversation state that spans relay calls: the
// one-shot derivation of a conversation title from the first exchange.
package session

import "github.com/a-h/chatrelay/models"

const titlePrompt = "Summarize the following message and derive a title for our chat, maximum 5 words: "

func New(onTitle func(title string)) *Session {
	return &Session{
		onTitle: onTitle,
	}
}

// Session moves from untitled to titled exactly once. It is not safe for
// concurrent use: a conversation has at most one turn in flight.
type Session struct {
	titled  bool
	pending bool
	onTitle func(title string)
}

func (s *Session) Titled() bool {
	return s.titled
}

// BuildRequest assembles the outgoing request for a new user message. On the
// first turn of an untitled conversation, a synthetic summarization turn is
// prepended ahead of the user's own message, so a single round trip yields
// both the visible reply and the conversation title.
func (s *Session) BuildRequest(transcript []models.Message, content string) models.ChatPostRequest {
	s.pending = false
	userMessage := models.Message{Role: models.RoleUser, Content: content}
	if !s.titled && len(transcript) == 0 {
		s.pending = true
		return models.ChatPostRequest{
			Messages: []models.Message{
				{Role: models.RoleUser, Content: titlePrompt + content},
				userMessage,
			},
		}
	}
	msgs := make([]models.Message, 0, len(transcript)+1)
	msgs = append(msgs, transcript...)
	msgs = append(msgs, userMessage)
	return models.ChatPostRequest{Messages: msgs}
}

// Observe consumes a successful assistant reply. If the preceding request
// carried the summarization turn, the reply becomes the conversation title
// and the sink fires; it never fires again for the session's lifetime.
func (s *Session) Observe(reply string) {
	if !s.pending || s.titled {
		return
	}
	s.pending = false
	s.titled = true
	if s.onTitle != nil {
		s.onTitle(reply)
	}
}
