package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	inventoryUseCase "github.com/allisson/ordersaga/internal/inventory/usecase"
)

// RunCreateProduct creates a product with its initial stock.
func RunCreateProduct(
	ctx context.Context,
	useCase inventoryUseCase.ProductUseCase,
	logger *slog.Logger,
	w io.Writer,
	name string,
	price int64,
	stock int,
	format string,
) error {
	product, err := useCase.Create(ctx, inventoryUseCase.CreateProductInput{
		Name:  name,
		Price: price,
		Stock: stock,
	})
	if err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}

	logger.Info("product created",
		slog.String("product_id", product.ID.String()),
		slog.Int("stock", product.Stock),
	)

	return writeOutput(w, format,
		fmt.Sprintf("Created product %s with %d in stock", product.ID, product.Stock),
		map[string]any{
			"id":    product.ID.String(),
			"name":  product.Name,
			"price": product.Price,
			"stock": product.Stock,
		},
	)
}
