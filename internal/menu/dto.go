package menu

import (
	"github.com/shopspring/decimal"

	"comanda/internal/domain"
)

type ItemRequest struct {
	Name        string  `json:"name"`
	Price       string  `json:"price"`
	CategoryID  *int64  `json:"categoryId,omitempty"`
	Description *string `json:"description,omitempty"`
	Available   *bool   `json:"available,omitempty"`
}

type ItemDTO struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Price       string  `json:"price"`
	CategoryID  *int64  `json:"categoryId,omitempty"`
	Description *string `json:"description,omitempty"`
	Available   bool    `json:"available"`
}

type CategoryRequest struct {
	Name      string `json:"name"`
	SortOrder int    `json:"sortOrder"`
}

type CategoryDTO struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	SortOrder int    `json:"sortOrder"`
}

type SourceRequest struct {
	Name      string `json:"name"`
	Icon      string `json:"icon"`
	Active    *bool  `json:"active,omitempty"`
	SortOrder int    `json:"sortOrder"`
}

type SourceDTO struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Icon      string `json:"icon"`
	Active    bool   `json:"active"`
	SortOrder int    `json:"sortOrder"`
}

func toItemDTO(item *domain.MenuItem) ItemDTO {
	return ItemDTO{
		ID:          item.ID,
		Name:        item.Name,
		Price:       item.Price.StringFixed(2),
		CategoryID:  item.CategoryID,
		Description: item.Description,
		Available:   item.Available,
	}
}

func toCategoryDTO(cat *domain.MenuCategory) CategoryDTO {
	return CategoryDTO{
		ID:        cat.ID,
		Name:      cat.Name,
		SortOrder: cat.SortOrder,
	}
}

func toSourceDTO(src *domain.OrderSource) SourceDTO {
	return SourceDTO{
		ID:        src.ID,
		Name:      src.Name,
		Icon:      src.Icon,
		Active:    src.Active,
		SortOrder: src.SortOrder,
	}
}

func parsePrice(raw string) (decimal.Decimal, bool) {
	price, err := decimal.NewFromString(raw)
	if err != nil || price.IsNegative() {
		return decimal.Zero, false
	}
	return price, true
}
