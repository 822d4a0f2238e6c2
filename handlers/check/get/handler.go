package get

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/a-h/chatrelay/models"
	"github.com/a-h/chatrelay/relay"
	"github.com/a-h/respond"
)

type Checker interface {
	Check(ctx context.Context) (string, error)
}

func New(log *slog.Logger, checker Checker) Handler {
	return Handler{
		log:     log,
		checker: checker,
	}
}

// Handler probes the provider with a one-shot generation so that a
// deployment can be verified without a real conversation.
type Handler struct {
	log     *slog.Logger
	checker Checker
}

func (h Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	text, err := h.checker.Check(r.Context())
	if err != nil {
		h.log.Error("provider check failed", slog.Any("error", err))
		var configErr relay.ConfigurationError
		if errors.As(err, &configErr) {
			respond.WithJSON(w, models.CheckGetResponse{
				Message: configErr.Message,
			}, http.StatusInternalServerError)
			return
		}
		respond.WithJSON(w, models.CheckGetResponse{
			Message:          "API test failed",
			APIKeyConfigured: true,
		}, http.StatusInternalServerError)
		return
	}
	respond.WithJSON(w, models.CheckGetResponse{
		Success:          true,
		Message:          "API is working correctly",
		Response:         text,
		APIKeyConfigured: true,
	}, http.StatusOK)
}
