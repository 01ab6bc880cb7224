package orders

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"
)

// ErrMalformedResponse matches every *MalformedResponseError.
var ErrMalformedResponse = errors.New("orders: malformed backend response")

// MalformedResponseError reports a backend payload that does not fit the
// expected shape.
type MalformedResponseError struct {
	Field  string
	Reason string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("orders: malformed backend response: %s %s", e.Field, e.Reason)
}

// Is makes errors.Is(err, ErrMalformedResponse) true.
func (e *MalformedResponseError) Is(target error) bool {
	return target == ErrMalformedResponse
}

func malformed(field, reason string) error {
	return &MalformedResponseError{Field: field, Reason: reason}
}

type placeResponse struct {
	OrderID      string
	Total        float64
	Subtotal     float64
	ShippingCost float64
}

func parsePlaceResponse(raw any) (placeResponse, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return placeResponse{}, malformed("response", "is not an object")
	}
	var res placeResponse
	var err error
	if res.OrderID, err = idField(obj, "orderId"); err != nil {
		return placeResponse{}, err
	}
	if res.Total, err = numberField(obj, "total"); err != nil {
		return placeResponse{}, err
	}
	if res.Subtotal, err = numberField(obj, "subtotal"); err != nil {
		return placeResponse{}, err
	}
	if res.ShippingCost, err = numberField(obj, "shippingCost"); err != nil {
		return placeResponse{}, err
	}
	return res, nil
}

func parseOrderRows(raw any) ([]Order, error) {
	rows, ok := raw.([]any)
	if !ok {
		return nil, malformed("orders", "is not a list")
	}
	out := make([]Order, 0, len(rows))
	for i, r := range rows {
		row, ok := r.(map[string]any)
		if !ok {
			return nil, malformed(fmt.Sprintf("orders[%d]", i), "is not an object")
		}
		o, err := parseOrderRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}

func parseOrderRow(row map[string]any) (Order, error) {
	var o Order
	var err error
	if o.ID, err = idField(row, "id"); err != nil {
		return Order{}, err
	}
	if o.Status, err = stringField(row, "status"); err != nil {
		return Order{}, err
	}
	if o.Total, err = numberField(row, "total"); err != nil {
		return Order{}, err
	}
	o.Subtotal = optionalNumber(row, "subtotal")
	o.ShippingCost = optionalNumber(row, "shipping_cost")

	created, err := stringField(row, "created_at")
	if err != nil {
		return Order{}, err
	}
	if o.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return Order{}, malformed("created_at", "is not a timestamp")
	}

	if uid, ok := row["user_id"].(string); ok && uid != "" {
		o.UserID = &uid
	}
	o.Shipping = Shipping{
		Name:    optionalString(row, "shipping_name"),
		Phone:   optionalString(row, "shipping_phone"),
		Address: optionalString(row, "shipping_address"),
	}
	o.ShippingZone = optionalString(row, "shipping_zone")

	o.Items = []Item{}
	rawItems, present := row["order_items"]
	if !present || rawItems == nil {
		return o, nil
	}
	items, ok := rawItems.([]any)
	if !ok {
		return Order{}, malformed("order_items", "is not a list")
	}
	for i, ri := range items {
		m, ok := ri.(map[string]any)
		if !ok {
			return Order{}, malformed(fmt.Sprintf("order_items[%d]", i), "is not an object")
		}
		it, err := parseItem(m)
		if err != nil {
			return Order{}, err
		}
		o.Items = append(o.Items, it)
	}
	return o, nil
}

func parseItem(m map[string]any) (Item, error) {
	var it Item
	var err error
	if it.ProductID, err = idField(m, "product_id"); err != nil {
		return Item{}, err
	}
	qty, err := numberField(m, "quantity")
	if err != nil {
		return Item{}, err
	}
	if qty != math.Trunc(qty) || qty < 1 {
		return Item{}, malformed("quantity", "is not a positive integer")
	}
	it.Quantity = int(qty)
	if it.Price, err = numberField(m, "price"); err != nil {
		return Item{}, err
	}
	it.ProductName = optionalString(m, "product_name")
	it.ProductImage = optionalString(m, "product_image")
	return it, nil
}

// idField accepts string ids and integral numeric ids.
func idField(obj map[string]any, key string) (string, error) {
	switch v := obj[key].(type) {
	case string:
		if v == "" {
			return "", malformed(key, "is empty")
		}
		return v, nil
	case float64:
		if v != math.Trunc(v) {
			return "", malformed(key, "is not an integer")
		}
		return strconv.FormatInt(int64(v), 10), nil
	case nil:
		return "", malformed(key, "is missing")
	default:
		return "", malformed(key, "has unexpected type")
	}
}

func stringField(obj map[string]any, key string) (string, error) {
	switch v := obj[key].(type) {
	case string:
		return v, nil
	case nil:
		return "", malformed(key, "is missing")
	default:
		return "", malformed(key, "is not a string")
	}
}

// numberField accepts JSON numbers and numeric strings (Postgres numeric
// columns are sometimes serialized as strings).
func numberField(obj map[string]any, key string) (float64, error) {
	switch v := obj[key].(type) {
	case float64:
		return v, nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, malformed(key, "is not numeric")
		}
		return f, nil
	case nil:
		return 0, malformed(key, "is missing")
	default:
		return 0, malformed(key, "is not a number")
	}
}

func optionalNumber(obj map[string]any, key string) float64 {
	f, err := numberField(obj, key)
	if err != nil {
		return 0
	}
	return f
}

func optionalString(obj map[string]any, key string) string {
	s, _ := obj[key].(string)
	return s
}
