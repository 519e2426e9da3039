package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	validation "github.com/jellydator/validation"

	"github.com/allisson/ordersaga/internal/inventory/domain"
	appValidation "github.com/allisson/ordersaga/internal/validation"
)

// productUseCase handles product management.
type productUseCase struct {
	repo ProductRepository
}

// NewProductUseCase creates a ProductUseCase.
func NewProductUseCase(repo ProductRepository) ProductUseCase {
	return &productUseCase{repo: repo}
}

func validateCreateProductInput(input CreateProductInput) error {
	err := validation.ValidateStruct(&input,
		validation.Field(&input.Name,
			validation.Required.Error("name is required"),
			appValidation.NotBlank,
			validation.Length(1, 255).Error("name must be between 1 and 255 characters"),
		),
		validation.Field(&input.Price,
			validation.Required.Error("price is required"),
			validation.Min(int64(1)).Error("price must be positive"),
		),
		validation.Field(&input.Stock,
			validation.Min(0).Error("stock must not be negative"),
		),
	)
	return appValidation.WrapValidationError(err)
}

// Create validates and persists a new product.
func (uc *productUseCase) Create(ctx context.Context, input CreateProductInput) (*domain.Product, error) {
	if err := validateCreateProductInput(input); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	product := &domain.Product{
		ID:        uuid.Must(uuid.NewV7()),
		Name:      strings.TrimSpace(input.Name),
		Price:     input.Price,
		Stock:     input.Stock,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := uc.repo.Create(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

// Get retrieves a product by ID.
func (uc *productUseCase) Get(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	return uc.repo.GetByID(ctx, id)
}
