package orderitem

import (
	"time"

	"github.com/weftwear/oms/internal/service/models/currency"
)

// OrderItem is a line within an order. Name, SKU and size are snapshots
// taken at order creation; the row is immutable afterwards.
type OrderItem struct {
	ID             int64             `json:"id"`
	OrderID        int64             `json:"orderId"`
	ProductID      int64             `json:"productId"`
	SizeVariantID  int64             `json:"sizeVariantId"`
	SKU            string            `json:"sku"`
	ProductName    string            `json:"productName"`
	SizeLabel      string            `json:"sizeLabel"`
	Quantity       int               `json:"quantity"`
	UnitPriceCents int64             `json:"unitPriceCents"`
	LineTotalCents int64             `json:"lineTotalCents"`
	PriceCurrency  currency.Currency `json:"priceCurrency"`
	CreatedAt      time.Time         `json:"createdAt"`
}
