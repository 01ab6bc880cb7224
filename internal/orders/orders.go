// Package orders places orders through the backend's place-order function
// and reads a user's order history.
package orders

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/shopfront-dev/storefront/internal/cart"
)

// PlaceOrderFunction is the backend function that creates orders.
const PlaceOrderFunction = "place-order"

// StatusPending is the status of a freshly placed order.
const StatusPending = "pending"

// ErrInvalidOrder is returned when a placement request fails validation.
var ErrInvalidOrder = errors.New("orders: invalid order")

// Item is one order line.
type Item struct {
	ProductID    string  `json:"productId"`
	ProductName  string  `json:"productName"`
	ProductImage string  `json:"productImage"`
	Quantity     int     `json:"quantity"`
	Price        float64 `json:"price"`
}

// Shipping is the delivery contact.
type Shipping struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

// Order is a placed order.
type Order struct {
	ID           string    `json:"id"`
	UserID       *string   `json:"userId"`
	Items        []Item    `json:"items"`
	Shipping     Shipping  `json:"shipping"`
	ShippingZone string    `json:"shippingZone"`
	Subtotal     float64   `json:"subtotal"`
	ShippingCost float64   `json:"shippingCost"`
	Total        float64   `json:"total"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"createdAt"`
}

// PlaceRequest describes an order to place.
type PlaceRequest struct {
	UserID       *string
	Items        []Item
	Shipping     Shipping
	ShippingZone string
}

// ItemsFromCart converts cart lines into order lines priced at their unit price.
func ItemsFromCart(entries []cart.Entry) []Item {
	items := make([]Item, 0, len(entries))
	for _, e := range entries {
		items = append(items, Item{
			ProductID:    e.Product.ID,
			ProductName:  e.Product.Name,
			ProductImage: e.Product.PrimaryImage(),
			Quantity:     e.Quantity,
			Price:        e.UnitPrice(),
		})
	}
	return items
}

// Backend is the remote API the service depends on.
type Backend interface {
	Invoke(ctx context.Context, function string, body, out any) error
	Select(ctx context.Context, table string, query url.Values, out any) error
}

// Service places and lists orders. Remote errors are returned unchanged in
// kind; nothing is retried.
type Service struct {
	backend Backend
	now     func() time.Time
}

// NewService creates a Service.
func NewService(b Backend) *Service {
	return &Service{backend: b, now: time.Now}
}

type placeBody struct {
	UserID       *string  `json:"userId"`
	Items        []Item   `json:"items"`
	Shipping     Shipping `json:"shipping"`
	ShippingZone string   `json:"shippingZone"`
}

// Place submits req and returns the resulting pending order.
func (s *Service) Place(ctx context.Context, req PlaceRequest) (*Order, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	var raw any
	err := s.backend.Invoke(ctx, PlaceOrderFunction, placeBody{
		UserID:       req.UserID,
		Items:        req.Items,
		Shipping:     req.Shipping,
		ShippingZone: req.ShippingZone,
	}, &raw)
	if err != nil {
		return nil, fmt.Errorf("placing order: %w", err)
	}

	res, err := parsePlaceResponse(raw)
	if err != nil {
		return nil, err
	}

	return &Order{
		ID:           res.OrderID,
		UserID:       req.UserID,
		Items:        append([]Item(nil), req.Items...),
		Shipping:     req.Shipping,
		ShippingZone: req.ShippingZone,
		Subtotal:     res.Subtotal,
		ShippingCost: res.ShippingCost,
		Total:        res.Total,
		Status:       StatusPending,
		CreatedAt:    s.now().UTC(),
	}, nil
}

// ListByUser returns userID's orders, newest first.
func (s *Service) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidOrder)
	}
	q := url.Values{}
	q.Set("select", "*,order_items(*)")
	q.Set("user_id", "eq."+userID)
	q.Set("order", "created_at.desc")

	var raw any
	if err := s.backend.Select(ctx, "orders", q, &raw); err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	return parseOrderRows(raw)
}

func validate(req PlaceRequest) error {
	var missing []string
	if strings.TrimSpace(req.Shipping.Name) == "" {
		missing = append(missing, "shipping name")
	}
	if strings.TrimSpace(req.Shipping.Phone) == "" {
		missing = append(missing, "shipping phone")
	}
	if strings.TrimSpace(req.Shipping.Address) == "" {
		missing = append(missing, "shipping address")
	}
	if len(req.Items) == 0 {
		missing = append(missing, "items")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidOrder, strings.Join(missing, ", "))
	}
	for _, it := range req.Items {
		if it.ProductID == "" || it.Quantity < 1 {
			return fmt.Errorf("%w: bad item %q", ErrInvalidOrder, it.ProductID)
		}
	}
	return nil
}
