package post

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/a-h/chatrelay/models"
	"github.com/a-h/chatrelay/relay"
	"github.com/a-h/chatrelay/turns"
	"github.com/a-h/respond"
)

// ReplySender is the part of the relay the handler needs. The conversation
// shape is validated before Send is invoked, so a rejected request never
// costs a provider call.
type ReplySender interface {
	Send(ctx context.Context, history []turns.Turn, message string, instruction string) (models.ChatPostResponse, error)
}

func New(log *slog.Logger, sender ReplySender, instruction string) Handler {
	return Handler{
		log:         log,
		sender:      sender,
		instruction: instruction,
	}
}

type Handler struct {
	log         *slog.Logger
	sender      ReplySender
	instruction string
}

func (h Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req models.ChatPostRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		h.log.Error("failed to decode body", slog.Any("error", err))
		respond.WithError(w, "failed to decode body", http.StatusBadRequest)
		return
	}

	history, pending, err := turns.Split(turns.Format(req.Messages))
	if err != nil {
		h.writeError(w, err)
		return
	}
	text, err := pending.Text()
	if err != nil {
		h.writeError(w, err)
		return
	}

	resp, err := h.sender.Send(r.Context(), history, text, h.instruction)
	if err != nil {
		h.writeError(w, err)
		return
	}

	respond.WithJSON(w, resp, http.StatusOK)
}

func (h Handler) writeError(w http.ResponseWriter, err error) {
	var badRequest turns.BadRequestError
	if errors.As(err, &badRequest) {
		h.log.Error("rejected conversation shape", slog.String("reason", badRequest.Message))
		respond.WithJSON(w, models.ChatErrorResponse{Error: badRequest.Message}, http.StatusBadRequest)
		return
	}
	var configErr relay.ConfigurationError
	if errors.As(err, &configErr) {
		h.log.Error("relay not configured", slog.String("reason", configErr.Message))
		respond.WithJSON(w, models.ChatErrorResponse{Error: configErr.Message}, http.StatusInternalServerError)
		return
	}
	var providerErr relay.ProviderError
	if errors.As(err, &providerErr) {
		h.log.Error("provider call failed", slog.String("name", providerErr.Name), slog.Any("error", providerErr.Err))
		respond.WithJSON(w, models.ChatErrorResponse{
			Error:     "Failed to process chat request",
			Details:   providerErr.Err.Error(),
			ErrorName: providerErr.Name,
		}, http.StatusInternalServerError)
		return
	}
	h.log.Error("failed to process chat request", slog.Any("error", err))
	respond.WithJSON(w, models.ChatErrorResponse{
		Error:   "Failed to process chat request",
		Details: err.Error(),
	}, http.StatusInternalServerError)
}
