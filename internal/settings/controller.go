package settings

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"comanda/internal/domain"
	apperrors "comanda/internal/errors"
	"comanda/internal/feed"
)

type Controller struct {
	repo      *MySQLRepository
	publisher *feed.Publisher
	logger    *zap.Logger
}

func NewController(repo *MySQLRepository, publisher *feed.Publisher, logger *zap.Logger) *Controller {
	return &Controller{repo: repo, publisher: publisher, logger: logger}
}

func (c *Controller) Routes(r chi.Router) {
	r.Route("/settings", func(r chi.Router) {
		r.Get("/", c.HandleGet)
		r.Put("/", c.HandleUpdate)
	})
}

type SettingsDTO struct {
	Name           string  `json:"name"`
	Address        string  `json:"address"`
	LogoURL        *string `json:"logoUrl,omitempty"`
	CurrencySymbol string  `json:"currencySymbol"`
	TaxPercent     string  `json:"taxPercent"`
	BusinessHours  string  `json:"businessHours"`
	TableCount     int     `json:"tableCount"`
	KitchenEnabled bool    `json:"kitchenEnabled"`
	KitchenPrinter string  `json:"kitchenPrinter"`
	CashPrinter    string  `json:"cashPrinter"`
	UpdatedAt      string  `json:"updatedAt"`
}

type UpdateRequest struct {
	Name           string  `json:"name"`
	Address        string  `json:"address"`
	LogoURL        *string `json:"logoUrl"`
	CurrencySymbol string  `json:"currencySymbol"`
	TaxPercent     string  `json:"taxPercent"`
	BusinessHours  string  `json:"businessHours"`
	TableCount     int     `json:"tableCount"`
	KitchenEnabled bool    `json:"kitchenEnabled"`
	KitchenPrinter string  `json:"kitchenPrinter"`
	CashPrinter    string  `json:"cashPrinter"`
}

func (c *Controller) HandleGet(w http.ResponseWriter, r *http.Request) {
	s, err := c.repo.Get(r.Context())
	if err != nil {
		c.handleError(w, err)
		return
	}
	c.writeJSON(w, http.StatusOK, toSettingsDTO(s))
}

func (c *Controller) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		c.writeValidationError(w, "invalid JSON body")
		return
	}
	if req.Name == "" {
		c.writeValidationError(w, "name is required")
		return
	}
	taxPercent, err := decimal.NewFromString(req.TaxPercent)
	if err != nil {
		c.writeValidationError(w, "taxPercent must be a decimal number")
		return
	}
	if taxPercent.IsNegative() || taxPercent.GreaterThan(decimal.NewFromInt(100)) {
		c.writeValidationError(w, "taxPercent must be between 0 and 100")
		return
	}
	if req.TableCount < 0 {
		c.writeValidationError(w, "tableCount must not be negative")
		return
	}
	if req.CurrencySymbol == "" {
		req.CurrencySymbol = "$"
	}

	s := &domain.RestaurantSettings{
		Name:           req.Name,
		Address:        req.Address,
		LogoURL:        req.LogoURL,
		CurrencySymbol: req.CurrencySymbol,
		TaxPercent:     taxPercent,
		BusinessHours:  req.BusinessHours,
		TableCount:     req.TableCount,
		KitchenEnabled: req.KitchenEnabled,
		KitchenPrinter: req.KitchenPrinter,
		CashPrinter:    req.CashPrinter,
	}
	if err := c.repo.Update(r.Context(), s); err != nil {
		c.handleError(w, err)
		return
	}

	if err := c.publisher.Publish(r.Context(), feed.Event{Type: feed.EventSettingsUpdated}); err != nil {
		c.logger.Warn("publishing settings event failed", zap.Error(err))
	}

	updated, err := c.repo.Get(r.Context())
	if err != nil {
		c.handleError(w, err)
		return
	}
	c.writeJSON(w, http.StatusOK, toSettingsDTO(updated))
}

func toSettingsDTO(s *domain.RestaurantSettings) SettingsDTO {
	return SettingsDTO{
		Name:           s.Name,
		Address:        s.Address,
		LogoURL:        s.LogoURL,
		CurrencySymbol: s.CurrencySymbol,
		TaxPercent:     s.TaxPercent.StringFixed(2),
		BusinessHours:  s.BusinessHours,
		TableCount:     s.TableCount,
		KitchenEnabled: s.KitchenEnabled,
		KitchenPrinter: s.KitchenPrinter,
		CashPrinter:    s.CashPrinter,
		UpdatedAt:      s.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}

func (c *Controller) handleError(w http.ResponseWriter, err error) {
	if _, ok := apperrors.IsNotFoundError(err); ok {
		c.writeJSON(w, http.StatusNotFound, map[string]string{
			"error":   "NOT_FOUND",
			"message": err.Error(),
		})
		return
	}

	c.logger.Error("unexpected error", zap.Error(err))
	c.writeJSON(w, http.StatusInternalServerError, map[string]string{
		"error":   "INTERNAL_ERROR",
		"message": "an unexpected error occurred",
	})
}

func (c *Controller) writeValidationError(w http.ResponseWriter, message string) {
	c.writeJSON(w, http.StatusBadRequest, map[string]string{
		"error":   "VALIDATION_ERROR",
		"message": message,
	})
}

func (c *Controller) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		c.logger.Error("failed to encode response", zap.Error(err))
	}
}
