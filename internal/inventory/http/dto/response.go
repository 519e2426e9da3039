package dto

import (
	"time"

	"github.com/allisson/ordersaga/internal/inventory/domain"
	"github.com/allisson/ordersaga/internal/inventory/usecase"
)

// ProductResponse represents a product in API responses.
type ProductResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Price     int64     `json:"price"`
	Stock     int       `json:"stock"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ToCreateProductInput converts a CreateProductRequest to use case input.
func ToCreateProductInput(req CreateProductRequest) usecase.CreateProductInput {
	return usecase.CreateProductInput{Name: req.Name, Price: req.Price, Stock: req.Stock}
}

// MapProductToResponse converts a domain product to its API representation.
func MapProductToResponse(p *domain.Product) ProductResponse {
	return ProductResponse{
		ID:        p.ID.String(),
		Name:      p.Name,
		Price:     p.Price,
		Stock:     p.Stock,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}
