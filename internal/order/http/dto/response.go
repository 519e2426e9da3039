package dto

import (
	"time"

	"github.com/allisson/ordersaga/internal/order/domain"
)

// OrderItemResponse represents an order line in API responses.
type OrderItemResponse struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	UnitPrice   int64  `json:"unit_price"`
	Subtotal    int64  `json:"subtotal"`
}

// OrderResponse represents an order in API responses.
type OrderResponse struct {
	ID             string              `json:"id"`
	UserID         string              `json:"user_id"`
	Status         string              `json:"status"`
	Items          []OrderItemResponse `json:"items"`
	TotalAmount    int64               `json:"total_amount"`
	DiscountAmount int64               `json:"discount_amount"`
	FinalAmount    int64               `json:"final_amount"`
	UserCouponID   *string             `json:"user_coupon_id,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
}

// OrderListResponse is a page of orders.
type OrderListResponse struct {
	Data []OrderResponse `json:"data"`
}

// MapOrderToResponse converts a domain order to its API representation.
func MapOrderToResponse(order *domain.Order) OrderResponse {
	items := make([]OrderItemResponse, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, OrderItemResponse{
			ProductID:   item.ProductID.String(),
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Subtotal:    item.Subtotal(),
		})
	}

	resp := OrderResponse{
		ID:             order.ID.String(),
		UserID:         order.UserID.String(),
		Status:         string(order.Status),
		Items:          items,
		TotalAmount:    order.TotalAmount,
		DiscountAmount: order.DiscountAmount,
		FinalAmount:    order.FinalAmount,
		CreatedAt:      order.CreatedAt,
	}
	if order.UserCouponID != nil {
		id := order.UserCouponID.String()
		resp.UserCouponID = &id
	}
	return resp
}

// MapOrdersToListResponse converts a page of orders.
func MapOrdersToListResponse(orders []*domain.Order) OrderListResponse {
	data := make([]OrderResponse, 0, len(orders))
	for _, order := range orders {
		data = append(data, MapOrderToResponse(order))
	}
	return OrderListResponse{Data: data}
}
