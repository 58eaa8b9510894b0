package controller

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"comanda/internal/domain"
	apperrors "comanda/internal/errors"
	"comanda/internal/order/service"
	"comanda/internal/order/store"
	"comanda/internal/printer"
)

type OrderService interface {
	Create(ctx context.Context, input service.CreateOrderInput) (*domain.Order, error)
	AddItems(ctx context.Context, orderID string, items []service.NewItem) (*domain.Order, error)
	UpdateStatus(ctx context.Context, orderID string, status string) (*domain.Order, error)
	RecordPayment(ctx context.Context, orderID string, method string) (*domain.Order, error)
	Get(ctx context.Context, orderID string) (*domain.Order, error)
	Recent(ctx context.Context) ([]domain.Order, error)
}

type SettingsReader interface {
	Get(ctx context.Context) (*domain.RestaurantSettings, error)
}

type Dispatcher interface {
	PrintOrder(ctx context.Context, order *domain.Order, settings *domain.RestaurantSettings, printKitchen, skipCash bool) printer.Result
}

type Controller struct {
	service    OrderService
	store      *store.Store
	dispatcher Dispatcher
	settings   SettingsReader
	logger     *zap.Logger
}

func NewController(svc OrderService, st *store.Store, dispatcher Dispatcher, settings SettingsReader, logger *zap.Logger) *Controller {
	return &Controller{
		service:    svc,
		store:      st,
		dispatcher: dispatcher,
		settings:   settings,
		logger:     logger,
	}
}

func (c *Controller) Routes(r chi.Router) {
	r.Route("/orders", func(r chi.Router) {
		r.Get("/", c.HandleList)
		r.Post("/", c.HandleCreate)
		r.Get("/{orderId}", c.HandleGet)
		r.Post("/{orderId}/items", c.HandleAddItems)
		r.Patch("/{orderId}/status", c.HandleUpdateStatus)
		r.Post("/{orderId}/payment", c.HandlePayment)
		r.Post("/{orderId}/print", c.HandlePrint)
	})
	r.Route("/tables", func(r chi.Router) {
		r.Get("/", c.HandleTables)
		r.Get("/{number}/order", c.HandleTableOrder)
	})
}

func (c *Controller) HandleCreate(w http.ResponseWriter, r *http.Request) {
	logger := c.requestLogger()

	var req CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid JSON body", zap.Error(err))
		c.writeValidationError(w, "invalid JSON body", apperrors.ValidationDetail{
			Field:   "body",
			Message: "request body must be valid JSON",
		})
		return
	}

	if err := validateCreateRequest(req); err != nil {
		ve, _ := apperrors.IsValidationError(err)
		c.writeValidationError(w, ve.Message, ve.Details...)
		return
	}

	order, err := c.service.Create(r.Context(), service.CreateOrderInput{
		TableNumber:  req.TableNumber,
		SourceID:     req.SourceID,
		CustomerName: req.CustomerName,
		Items:        toNewItems(req.Items),
	})
	if err != nil {
		c.handleServiceError(w, err, logger)
		return
	}

	c.writeJSON(w, http.StatusCreated, toOrderDTO(order))
}

func (c *Controller) HandleAddItems(w http.ResponseWriter, r *http.Request) {
	logger := c.requestLogger()
	orderID := chi.URLParam(r, "orderId")

	var req AddItemsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		c.writeValidationError(w, "invalid JSON body", apperrors.ValidationDetail{
			Field:   "body",
			Message: "request body must be valid JSON",
		})
		return
	}

	if err := validateItems(req.Items); err != nil {
		ve, _ := apperrors.IsValidationError(err)
		c.writeValidationError(w, ve.Message, ve.Details...)
		return
	}

	order, err := c.service.AddItems(r.Context(), orderID, toNewItems(req.Items))
	if err != nil {
		c.handleServiceError(w, err, logger)
		return
	}

	c.writeJSON(w, http.StatusOK, toOrderDTO(order))
}

func (c *Controller) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	logger := c.requestLogger()
	orderID := chi.URLParam(r, "orderId")

	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		c.writeValidationError(w, "invalid JSON body", apperrors.ValidationDetail{
			Field:   "body",
			Message: "request body must be valid JSON",
		})
		return
	}

	order, err := c.service.UpdateStatus(r.Context(), orderID, req.Status)
	if err != nil {
		c.handleServiceError(w, err, logger)
		return
	}

	c.writeJSON(w, http.StatusOK, toOrderDTO(order))
}

func (c *Controller) HandlePayment(w http.ResponseWriter, r *http.Request) {
	logger := c.requestLogger()
	orderID := chi.URLParam(r, "orderId")

	var req PaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		c.writeValidationError(w, "invalid JSON body", apperrors.ValidationDetail{
			Field:   "body",
			Message: "request body must be valid JSON",
		})
		return
	}
	if req.Method == "" {
		c.writeValidationError(w, "payment method is required", apperrors.ValidationDetail{
			Field:   "method",
			Message: "method must not be empty",
		})
		return
	}

	order, err := c.service.RecordPayment(r.Context(), orderID, req.Method)
	if err != nil {
		c.handleServiceError(w, err, logger)
		return
	}

	c.writeJSON(w, http.StatusOK, toOrderDTO(order))
}

// HandlePrint serves on-demand printing from billing: by default the cash
// receipt only; the kitchen ticket can be requested too.
func (c *Controller) HandlePrint(w http.ResponseWriter, r *http.Request) {
	logger := c.requestLogger()
	orderID := chi.URLParam(r, "orderId")

	var req PrintRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			c.writeValidationError(w, "invalid JSON body", apperrors.ValidationDetail{
				Field:   "body",
				Message: "request body must be valid JSON",
			})
			return
		}
	}

	order, err := c.service.Get(r.Context(), orderID)
	if err != nil {
		c.handleServiceError(w, err, logger)
		return
	}

	settings, err := c.settings.Get(r.Context())
	if err != nil {
		c.handleServiceError(w, err, logger)
		return
	}

	res := c.dispatcher.PrintOrder(r.Context(), order, settings, req.Kitchen, false)

	c.writeJSON(w, http.StatusOK, PrintResponse{
		KitchenPrinted: res.KitchenPrinted,
		CashPrinted:    res.CashPrinted,
		Errors:         res.Errors,
	})
}

func (c *Controller) HandleList(w http.ResponseWriter, r *http.Request) {
	logger := c.requestLogger()

	orders, err := c.service.Recent(r.Context())
	if err != nil {
		c.handleServiceError(w, err, logger)
		return
	}

	dtos := make([]OrderDTO, len(orders))
	for i := range orders {
		dtos[i] = toOrderDTO(&orders[i])
	}
	c.writeJSON(w, http.StatusOK, dtos)
}

func (c *Controller) HandleGet(w http.ResponseWriter, r *http.Request) {
	logger := c.requestLogger()

	order, err := c.service.Get(r.Context(), chi.URLParam(r, "orderId"))
	if err != nil {
		c.handleServiceError(w, err, logger)
		return
	}

	c.writeJSON(w, http.StatusOK, toOrderDTO(order))
}

func (c *Controller) HandleTables(w http.ResponseWriter, r *http.Request) {
	logger := c.requestLogger()

	settings, err := c.settings.Get(r.Context())
	if err != nil {
		c.handleServiceError(w, err, logger)
		return
	}

	tables := make([]TableDTO, 0, settings.TableCount)
	for n := 1; n <= settings.TableCount; n++ {
		tables = append(tables, TableDTO{
			Number: n,
			Status: string(c.store.TableStatus(n)),
		})
	}
	c.writeJSON(w, http.StatusOK, tables)
}

func (c *Controller) HandleTableOrder(w http.ResponseWriter, r *http.Request) {
	number, err := strconv.Atoi(chi.URLParam(r, "number"))
	if err != nil || number <= 0 {
		c.writeValidationError(w, "invalid table number", apperrors.ValidationDetail{
			Field:   "number",
			Message: "table number must be a positive integer",
		})
		return
	}

	order := c.store.ActiveOrderForTable(number)
	if order == nil {
		c.writeJSON(w, http.StatusNotFound, map[string]string{
			"error":   "NOT_FOUND",
			"message": "no active order for table " + strconv.Itoa(number),
		})
		return
	}

	c.writeJSON(w, http.StatusOK, toOrderDTO(order))
}

func (c *Controller) requestLogger() *zap.Logger {
	return c.logger.With(zap.String("traceId", uuid.New().String()))
}

func (c *Controller) handleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if _, ok := apperrors.IsNotFoundError(err); ok {
		c.writeError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
		return
	}
	if _, ok := apperrors.IsConflictError(err); ok {
		c.writeError(w, http.StatusConflict, "CONFLICT", err.Error())
		return
	}
	if ve, ok := apperrors.IsValidationError(err); ok {
		c.writeValidationError(w, ve.Message, ve.Details...)
		return
	}
	if _, ok := apperrors.IsUnavailableError(err); ok {
		c.writeError(w, http.StatusServiceUnavailable, "UNAVAILABLE", err.Error())
		return
	}

	logger.Error("unexpected error", zap.Error(err))
	c.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "an unexpected error occurred")
}

func (c *Controller) writeError(w http.ResponseWriter, status int, code, message string) {
	c.writeJSON(w, status, ErrorResponse{
		Error:     code,
		Message:   message,
		Timestamp: time.Now().UTC(),
	})
}

type validationErrorResponse struct {
	Error   string                       `json:"error"`
	Message string                       `json:"message"`
	Details []apperrors.ValidationDetail `json:"details"`
}

func (c *Controller) writeValidationError(w http.ResponseWriter, message string, details ...apperrors.ValidationDetail) {
	c.writeJSON(w, http.StatusBadRequest, validationErrorResponse{
		Error:   "VALIDATION_ERROR",
		Message: message,
		Details: details,
	})
}

func (c *Controller) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		c.logger.Error("failed to encode response", zap.Error(err))
	}
}

func toNewItems(items []ItemRequest) []service.NewItem {
	out := make([]service.NewItem, len(items))
	for i, item := range items {
		out[i] = service.NewItem{
			MenuItemID: item.MenuItemID,
			Quantity:   item.Quantity,
			Notes:      item.Notes,
		}
	}
	return out
}

func validateCreateRequest(req CreateOrderRequest) error {
	var details []apperrors.ValidationDetail

	if req.TableNumber == nil && req.SourceID == nil {
		details = append(details, apperrors.ValidationDetail{
			Field:   "tableNumber",
			Message: "either tableNumber or sourceId is required",
		})
	}
	if req.TableNumber != nil && req.SourceID != nil {
		details = append(details, apperrors.ValidationDetail{
			Field:   "sourceId",
			Message: "tableNumber and sourceId are mutually exclusive",
		})
	}
	if req.TableNumber != nil && *req.TableNumber <= 0 {
		details = append(details, apperrors.ValidationDetail{
			Field:   "tableNumber",
			Message: "tableNumber must be a positive integer",
		})
	}

	if err := validateItems(req.Items); err != nil {
		ve, _ := apperrors.IsValidationError(err)
		details = append(details, ve.Details...)
	}

	if len(details) > 0 {
		return apperrors.NewValidationError("validation failed", details...)
	}
	return nil
}

func validateItems(items []ItemRequest) error {
	var details []apperrors.ValidationDetail

	if len(items) == 0 {
		details = append(details, apperrors.ValidationDetail{
			Field:   "items",
			Message: "items must not be empty",
		})
	}
	if len(items) > 100 {
		details = append(details, apperrors.ValidationDetail{
			Field:   "items",
			Message: "items exceeds maximum of 100",
		})
	}

	for idx, item := range items {
		if item.MenuItemID <= 0 {
			details = append(details, apperrors.ValidationDetail{
				Field:   "items[" + strconv.Itoa(idx) + "].menuItemId",
				Message: "each menuItemId must be a positive integer",
			})
		}
		if item.Quantity < 1 || item.Quantity > 1000 {
			details = append(details, apperrors.ValidationDetail{
				Field:   "items[" + strconv.Itoa(idx) + "].quantity",
				Message: "quantity must be between 1 and 1000",
			})
		}
	}

	if len(details) > 0 {
		return apperrors.NewValidationError("validation failed", details...)
	}
	return nil
}
