package relay

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/a-h/chatrelay/models"
	"github.com/a-h/chatrelay/turns"
	"github.com/google/go-cmp/cmp"
	"github.com/tmc/langchaingo/llms"
)

type fakeModel struct {
	reply    string
	err      error
	calls    int
	received []llms.MessageContent
}

func (f *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	f.calls++
	f.received = messages
	if f.err != nil {
		return nil, f.err
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{
			{Content: f.reply, StopReason: "stop"},
		},
	}, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return "", errors.New("not implemented")
}

func newTestRelay(llm llms.Model) *Relay {
	r := New(llm, "gemini-1.5-flash", 1000)
	r.now = func() time.Time { return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC) }
	r.newID = func() string { return "chatcmpl-test" }
	return r
}

func TestSend(t *testing.T) {
	t.Run("a missing credential fails before any provider call", func(t *testing.T) {
		r := newTestRelay(nil)
		_, err := r.Send(context.Background(), nil, "Hi", "")
		var configErr ConfigurationError
		if !errors.As(err, &configErr) {
			t.Fatalf("expected ConfigurationError, got %v", err)
		}
		if configErr.Message != "GOOGLE_API_KEY is not configured" {
			t.Errorf("unexpected message %q", configErr.Message)
		}
	})
	t.Run("history, instruction and pending message are sent in order", func(t *testing.T) {
		llm := &fakeModel{reply: "I'm sorry to hear that."}
		r := newTestRelay(llm)
		history := []turns.Turn{
			{Role: turns.RoleUser, Parts: []string{"Hi"}},
			{Role: turns.RoleModel, Parts: []string{"Hello!"}},
		}
		_, err := r.Send(context.Background(), history, "I lost my job today", "Personality: kind.")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		expected := []llms.MessageContent{
			llms.TextParts(llms.ChatMessageTypeSystem, "Personality: kind."),
			llms.TextParts(llms.ChatMessageTypeHuman, "Hi"),
			llms.TextParts(llms.ChatMessageTypeAI, "Hello!"),
			llms.TextParts(llms.ChatMessageTypeHuman, "I lost my job today"),
		}
		if diff := cmp.Diff(expected, llm.received); diff != "" {
			t.Error(diff)
		}
	})
	t.Run("no instruction means no system content", func(t *testing.T) {
		llm := &fakeModel{reply: "Hello!"}
		r := newTestRelay(llm)
		_, err := r.Send(context.Background(), nil, "Hi", "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		expected := []llms.MessageContent{
			llms.TextParts(llms.ChatMessageTypeHuman, "Hi"),
		}
		if diff := cmp.Diff(expected, llm.received); diff != "" {
			t.Error(diff)
		}
	})
	t.Run("the reply is wrapped in the response envelope", func(t *testing.T) {
		llm := &fakeModel{reply: "Hello!"}
		r := newTestRelay(llm)
		resp, err := r.Send(context.Background(), nil, "Hi", "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		expected := models.ChatPostResponse{
			ID:      "chatcmpl-test",
			Object:  "chat.completion",
			Created: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli(),
			Model:   "gemini-1.5-flash",
			Choices: []models.Choice{
				{
					Index:        0,
					Message:      models.ChoiceMessage{Role: models.RoleAssistant, Content: "Hello!"},
					FinishReason: "stop",
				},
			},
		}
		if diff := cmp.Diff(expected, resp); diff != "" {
			t.Error(diff)
		}
	})
	t.Run("request identifiers are distinct across calls", func(t *testing.T) {
		llm := &fakeModel{reply: "Hello!"}
		r := New(llm, "gemini-1.5-flash", 1000)
		first, err := r.Send(context.Background(), nil, "Hi", "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		second, err := r.Send(context.Background(), nil, "Hi", "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if first.ID == second.ID {
			t.Errorf("expected distinct ids, got %q twice", first.ID)
		}
	})
	t.Run("a provider failure becomes a ProviderError", func(t *testing.T) {
		llm := &fakeModel{err: fmt.Errorf("quota exceeded")}
		r := newTestRelay(llm)
		_, err := r.Send(context.Background(), nil, "Hi", "")
		var providerErr ProviderError
		if !errors.As(err, &providerErr) {
			t.Fatalf("expected ProviderError, got %v", err)
		}
		if providerErr.Name != "GenerateContentError" {
			t.Errorf("unexpected name %q", providerErr.Name)
		}
	})
	t.Run("an empty reply becomes a ProviderError", func(t *testing.T) {
		llm := &fakeModel{reply: ""}
		r := newTestRelay(llm)
		_, err := r.Send(context.Background(), nil, "Hi", "")
		var providerErr ProviderError
		if !errors.As(err, &providerErr) {
			t.Fatalf("expected ProviderError, got %v", err)
		}
		if providerErr.Name != "EmptyResponseError" {
			t.Errorf("unexpected name %q", providerErr.Name)
		}
	})
}

func TestSendEndToEnd(t *testing.T) {
	// A fresh conversation: one user message, no history.
	ts := turns.Format([]models.Message{{Role: models.RoleUser, Content: "Hi"}})
	history, pending, err := turns.Split(ts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	text, err := pending.Text()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	llm := &fakeModel{reply: "Hello!"}
	r := newTestRelay(llm)
	resp, err := r.Send(context.Background(), history, text, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(llm.received) != 1 {
		t.Errorf("expected the provider to receive only the pending turn, got %d messages", len(llm.received))
	}
	if resp.Content() != "Hello!" {
		t.Errorf("expected content %q, got %q", "Hello!", resp.Content())
	}
	if resp.Choices[0].FinishReason != "stop" {
		t.Errorf("expected finish_reason %q, got %q", "stop", resp.Choices[0].FinishReason)
	}
}

func TestCheck(t *testing.T) {
	t.Run("a missing credential fails fast", func(t *testing.T) {
		r := newTestRelay(nil)
		_, err := r.Check(context.Background())
		var configErr ConfigurationError
		if !errors.As(err, &configErr) {
			t.Fatalf("expected ConfigurationError, got %v", err)
		}
	})
	t.Run("the probe sends a single user turn", func(t *testing.T) {
		llm := &fakeModel{reply: "Hello"}
		r := newTestRelay(llm)
		text, err := r.Check(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if text != "Hello" {
			t.Errorf("expected %q, got %q", "Hello", text)
		}
		if len(llm.received) != 1 {
			t.Errorf("expected 1 message, got %d", len(llm.received))
		}
	})
}
