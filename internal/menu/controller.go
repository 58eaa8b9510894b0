package menu

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
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
	r.Route("/menu", func(r chi.Router) {
		r.Get("/items", c.HandleListItems)
		r.Post("/items", c.HandleCreateItem)
		r.Patch("/items/{itemId}", c.HandleUpdateItem)
		r.Delete("/items/{itemId}", c.HandleDeleteItem)
		r.Get("/categories", c.HandleListCategories)
		r.Post("/categories", c.HandleCreateCategory)
		r.Delete("/categories/{categoryId}", c.HandleDeleteCategory)
	})
	r.Route("/sources", func(r chi.Router) {
		r.Get("/", c.HandleListSources)
		r.Post("/", c.HandleCreateSource)
		r.Patch("/{sourceId}", c.HandleUpdateSource)
	})
}

func (c *Controller) HandleListItems(w http.ResponseWriter, r *http.Request) {
	items, err := c.repo.ListItems(r.Context())
	if err != nil {
		c.handleError(w, err)
		return
	}

	dtos := make([]ItemDTO, len(items))
	for i := range items {
		dtos[i] = toItemDTO(&items[i])
	}
	c.writeJSON(w, http.StatusOK, dtos)
}

func (c *Controller) HandleCreateItem(w http.ResponseWriter, r *http.Request) {
	var req ItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		c.writeValidationError(w, "invalid JSON body")
		return
	}
	if req.Name == "" {
		c.writeValidationError(w, "name is required")
		return
	}
	price, ok := parsePrice(req.Price)
	if !ok {
		c.writeValidationError(w, "price must be a non-negative decimal")
		return
	}

	item := &domain.MenuItem{
		Name:        req.Name,
		Price:       price,
		CategoryID:  req.CategoryID,
		Description: req.Description,
		Available:   true,
	}
	if req.Available != nil {
		item.Available = *req.Available
	}

	id, err := c.repo.InsertItem(r.Context(), item)
	if err != nil {
		c.handleError(w, err)
		return
	}
	item.ID = id

	c.publishMenuUpdated(r.Context())
	c.writeJSON(w, http.StatusCreated, toItemDTO(item))
}

func (c *Controller) HandleUpdateItem(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "itemId"), 10, 64)
	if err != nil {
		c.writeValidationError(w, "itemId must be an integer")
		return
	}

	item, err := c.repo.FindItem(r.Context(), id)
	if err != nil {
		c.handleError(w, err)
		return
	}

	var req ItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		c.writeValidationError(w, "invalid JSON body")
		return
	}

	if req.Name != "" {
		item.Name = req.Name
	}
	if req.Price != "" {
		price, ok := parsePrice(req.Price)
		if !ok {
			c.writeValidationError(w, "price must be a non-negative decimal")
			return
		}
		item.Price = price
	}
	if req.CategoryID != nil {
		item.CategoryID = req.CategoryID
	}
	if req.Description != nil {
		item.Description = req.Description
	}
	if req.Available != nil {
		item.Available = *req.Available
	}

	if err := c.repo.UpdateItem(r.Context(), item); err != nil {
		c.handleError(w, err)
		return
	}

	c.publishMenuUpdated(r.Context())
	c.writeJSON(w, http.StatusOK, toItemDTO(item))
}

func (c *Controller) HandleDeleteItem(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "itemId"), 10, 64)
	if err != nil {
		c.writeValidationError(w, "itemId must be an integer")
		return
	}

	if err := c.repo.DeleteItem(r.Context(), id); err != nil {
		c.handleError(w, err)
		return
	}

	c.publishMenuUpdated(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (c *Controller) HandleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := c.repo.ListCategories(r.Context())
	if err != nil {
		c.handleError(w, err)
		return
	}

	dtos := make([]CategoryDTO, len(categories))
	for i := range categories {
		dtos[i] = toCategoryDTO(&categories[i])
	}
	c.writeJSON(w, http.StatusOK, dtos)
}

func (c *Controller) HandleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req CategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		c.writeValidationError(w, "invalid JSON body")
		return
	}
	if req.Name == "" {
		c.writeValidationError(w, "name is required")
		return
	}

	cat := &domain.MenuCategory{Name: req.Name, SortOrder: req.SortOrder}
	id, err := c.repo.InsertCategory(r.Context(), cat)
	if err != nil {
		c.handleError(w, err)
		return
	}
	cat.ID = id

	c.publishMenuUpdated(r.Context())
	c.writeJSON(w, http.StatusCreated, toCategoryDTO(cat))
}

func (c *Controller) HandleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "categoryId"), 10, 64)
	if err != nil {
		c.writeValidationError(w, "categoryId must be an integer")
		return
	}

	if err := c.repo.DeleteCategory(r.Context(), id); err != nil {
		c.handleError(w, err)
		return
	}

	c.publishMenuUpdated(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (c *Controller) HandleListSources(w http.ResponseWriter, r *http.Request) {
	sources, err := c.repo.ListSources(r.Context())
	if err != nil {
		c.handleError(w, err)
		return
	}

	dtos := make([]SourceDTO, len(sources))
	for i := range sources {
		dtos[i] = toSourceDTO(&sources[i])
	}
	c.writeJSON(w, http.StatusOK, dtos)
}

func (c *Controller) HandleCreateSource(w http.ResponseWriter, r *http.Request) {
	var req SourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		c.writeValidationError(w, "invalid JSON body")
		return
	}
	if req.Name == "" {
		c.writeValidationError(w, "name is required")
		return
	}

	src := &domain.OrderSource{
		Name:      req.Name,
		Icon:      req.Icon,
		Active:    true,
		SortOrder: req.SortOrder,
	}
	if req.Active != nil {
		src.Active = *req.Active
	}

	id, err := c.repo.InsertSource(r.Context(), src)
	if err != nil {
		c.handleError(w, err)
		return
	}
	src.ID = id

	c.writeJSON(w, http.StatusCreated, toSourceDTO(src))
}

func (c *Controller) HandleUpdateSource(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "sourceId"), 10, 64)
	if err != nil {
		c.writeValidationError(w, "sourceId must be an integer")
		return
	}

	sources, err := c.repo.ListSources(r.Context())
	if err != nil {
		c.handleError(w, err)
		return
	}
	var src *domain.OrderSource
	for i := range sources {
		if sources[i].ID == id {
			src = &sources[i]
			break
		}
	}
	if src == nil {
		c.writeJSON(w, http.StatusNotFound, map[string]string{
			"error":   "NOT_FOUND",
			"message": "order source not found",
		})
		return
	}

	var req SourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		c.writeValidationError(w, "invalid JSON body")
		return
	}

	if req.Name != "" {
		src.Name = req.Name
	}
	if req.Icon != "" {
		src.Icon = req.Icon
	}
	if req.Active != nil {
		src.Active = *req.Active
	}
	if req.SortOrder != 0 {
		src.SortOrder = req.SortOrder
	}

	if err := c.repo.UpdateSource(r.Context(), src); err != nil {
		c.handleError(w, err)
		return
	}

	c.writeJSON(w, http.StatusOK, toSourceDTO(src))
}

func (c *Controller) publishMenuUpdated(ctx context.Context) {
	if err := c.publisher.Publish(ctx, feed.Event{Type: feed.EventMenuUpdated}); err != nil {
		c.logger.Warn("publishing menu event failed", zap.Error(err))
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
