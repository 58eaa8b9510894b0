package printer

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"comanda/internal/domain"
)

// SettingsReader supplies the restaurant profile used on test prints.
type SettingsReader interface {
	Get(ctx context.Context) (*domain.RestaurantSettings, error)
}

type Controller struct {
	client     Client
	dispatcher *Dispatcher
	settings   SettingsReader
	logger     *zap.Logger
}

func NewController(client Client, dispatcher *Dispatcher, settings SettingsReader, logger *zap.Logger) *Controller {
	return &Controller{client: client, dispatcher: dispatcher, settings: settings, logger: logger}
}

func (c *Controller) Routes(r chi.Router) {
	r.Route("/printers", func(r chi.Router) {
		r.Get("/", c.HandleList)
		r.Post("/test", c.HandleTestPrint)
		r.Post("/reconnect", c.HandleReconnect)
	})
}

func (c *Controller) HandleList(w http.ResponseWriter, r *http.Request) {
	if !c.client.Active() {
		c.writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"error":   "PRINT_SERVICE_UNAVAILABLE",
			"message": "print service is not connected",
			"state":   c.client.State(),
		})
		return
	}

	printers, err := c.client.Printers(r.Context())
	if err != nil {
		c.logger.Error("listing printers failed", zap.Error(err))
		c.writeJSON(w, http.StatusBadGateway, map[string]string{
			"error":   "PRINT_SERVICE_ERROR",
			"message": err.Error(),
		})
		return
	}

	c.writeJSON(w, http.StatusOK, map[string]interface{}{
		"state":    c.client.State(),
		"printers": printers,
	})
}

type testPrintRequest struct {
	Printer string `json:"printer"`
}

func (c *Controller) HandleTestPrint(w http.ResponseWriter, r *http.Request) {
	var req testPrintRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		c.writeJSON(w, http.StatusBadRequest, map[string]string{
			"error":   "VALIDATION_ERROR",
			"message": "invalid JSON body",
		})
		return
	}
	if req.Printer == "" {
		c.writeJSON(w, http.StatusBadRequest, map[string]string{
			"error":   "VALIDATION_ERROR",
			"message": "printer is required",
		})
		return
	}

	settings, err := c.settings.Get(r.Context())
	if err != nil {
		c.logger.Error("loading settings for test print failed", zap.Error(err))
		c.writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error":   "INTERNAL_ERROR",
			"message": "an unexpected error occurred",
		})
		return
	}

	res := c.dispatcher.TestPrint(r.Context(), req.Printer, settings)
	if !res.Success() {
		c.writeJSON(w, http.StatusBadGateway, map[string]interface{}{
			"error":   "PRINT_FAILED",
			"message": "test print failed",
			"details": res.Errors,
		})
		return
	}
	c.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (c *Controller) HandleReconnect(w http.ResponseWriter, r *http.Request) {
	if err := c.client.Connect(r.Context()); err != nil {
		c.logger.Warn("print service reconnect failed", zap.Error(err))
		c.writeJSON(w, http.StatusBadGateway, map[string]interface{}{
			"error":   "PRINT_SERVICE_ERROR",
			"message": err.Error(),
			"state":   c.client.State(),
		})
		return
	}
	c.writeJSON(w, http.StatusOK, map[string]interface{}{"state": c.client.State()})
}

func (c *Controller) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		c.logger.Error("failed to encode response", zap.Error(err))
	}
}
