package notify

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type Handler struct {
	relay  *Relay
	logger *zap.Logger
}

func NewHandler(relay *Relay, logger *zap.Logger) *Handler {
	return &Handler{relay: relay, logger: logger}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/notifications", h.HandleList)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	entries := h.relay.Recent()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(entries); err != nil {
		h.logger.Error("failed to encode response", zap.Error(err))
	}
}
