package signing

import (
	"io"
	"net/http"

	"go.uber.org/zap"
)

type Handler struct {
	signer *Signer
	logger *zap.Logger
}

// NewHandler builds the challenge-signing endpoint. signer may be nil when no
// key is configured; the endpoint then always answers 503.
func NewHandler(signer *Signer, logger *zap.Logger) *Handler {
	return &Handler{signer: signer, logger: logger}
}

// Sign signs the raw request body and replies with the base64 signature as
// plain text. Failures reply with an empty body and a 5xx status.
func (h *Handler) Sign(w http.ResponseWriter, r *http.Request) {
	if h.signer == nil {
		h.logger.Warn("signing requested but no key configured")
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.Error("reading challenge body", zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	sig, err := h.signer.Sign(body)
	if err != nil {
		h.logger.Error("signing challenge", zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(sig))
}
