// Package relay forwards a formatted conversation to the model provider and
// normalizes the reply into the stable response envelope.
package relay

import (
	"context"
	"fmt"
	"time"

	"github.com/a-h/chatrelay/models"
	"github.com/a-h/chatrelay/turns"
	"github.com/google/uuid"
	"github.com/tmc/langchaingo/llms"
)

// ConfigurationError reports a relay that cannot reach the provider because
// no credential was configured. It is returned before any network I/O.
type ConfigurationError struct {
	Message string
}

func (e ConfigurationError) Error() string {
	return e.Message
}

// ProviderError reports a failed provider call or an unusable provider
// reply.
type ProviderError struct {
	Name string
	Err  error
}

func (e ProviderError) Error() string {
	return fmt.Sprintf("%s: %v", e.Name, e.Err)
}

func (e ProviderError) Unwrap() error {
	return e.Err
}

func New(llm llms.Model, model string, maxTokens int) *Relay {
	return &Relay{
		llm:       llm,
		model:     model,
		maxTokens: maxTokens,
		now:       time.Now,
		newID:     func() string { return "chatcmpl-" + uuid.NewString() },
	}
}

// Relay is stateless between calls: each Send carries the full history, so
// concurrent conversations need no coordination. A nil llm means no
// credential was configured.
type Relay struct {
	llm       llms.Model
	model     string
	maxTokens int
	now       func() time.Time
	newID     func() string
}

// Send submits the pending user message against the prior history and the
// optional system instruction, and waits for exactly one reply. There are
// no retries: a failed call surfaces immediately.
func (r *Relay) Send(ctx context.Context, history []turns.Turn, message string, instruction string) (resp models.ChatPostResponse, err error) {
	if r.llm == nil {
		return resp, ConfigurationError{Message: "GOOGLE_API_KEY is not configured"}
	}

	content := make([]llms.MessageContent, 0, len(history)+2)
	if instruction != "" {
		content = append(content, llms.TextParts(llms.ChatMessageTypeSystem, instruction))
	}
	for _, t := range history {
		text, err := t.Text()
		if err != nil {
			return resp, err
		}
		switch t.Role {
		case turns.RoleUser:
			content = append(content, llms.TextParts(llms.ChatMessageTypeHuman, text))
		case turns.RoleModel:
			content = append(content, llms.TextParts(llms.ChatMessageTypeAI, text))
		default:
			return resp, fmt.Errorf("unexpected history role %q", t.Role)
		}
	}
	content = append(content, llms.TextParts(llms.ChatMessageTypeHuman, message))

	reply, err := r.llm.GenerateContent(ctx, content, llms.WithMaxTokens(r.maxTokens))
	if err != nil {
		return resp, ProviderError{Name: "GenerateContentError", Err: err}
	}
	if len(reply.Choices) == 0 || reply.Choices[0].Content == "" {
		return resp, ProviderError{Name: "EmptyResponseError", Err: fmt.Errorf("provider returned no content")}
	}

	return r.envelope(reply.Choices[0].Content), nil
}

// Check performs a one-shot liveness probe against the provider.
func (r *Relay) Check(ctx context.Context) (string, error) {
	if r.llm == nil {
		return "", ConfigurationError{Message: "GOOGLE_API_KEY is not configured"}
	}
	reply, err := r.llm.GenerateContent(ctx, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, "Say hello in one word"),
	}, llms.WithMaxTokens(r.maxTokens))
	if err != nil {
		return "", ProviderError{Name: "GenerateContentError", Err: err}
	}
	if len(reply.Choices) == 0 {
		return "", ProviderError{Name: "EmptyResponseError", Err: fmt.Errorf("provider returned no content")}
	}
	return reply.Choices[0].Content, nil
}

func (r *Relay) envelope(text string) models.ChatPostResponse {
	return models.ChatPostResponse{
		ID:      r.newID(),
		Object:  "chat.completion",
		Created: r.now().UnixMilli(),
		Model:   r.model,
		Choices: []models.Choice{
			{
				Index: 0,
				Message: models.ChoiceMessage{
					Role:    models.RoleAssistant,
					Content: text,
				},
				FinishReason: "stop",
			},
		},
	}
}
