package dto

import "time"

// OrderResponse represents an order with its derived totals. Amounts are
// decimal strings with two fraction digits.
type OrderResponse struct {
	ID              int64     `json:"id"`
	Date            time.Time `json:"date"`
	ClientID        int64     `json:"client_id"`
	Finalized       bool      `json:"finalized"`
	DiscountPercent int       `json:"discount_percent"`
	TaxPercent      int       `json:"tax_percent"`
	GrossTotal      string    `json:"gross_total"`
	Base            string    `json:"base"`
	TaxAmount       string    `json:"tax_amount"`
	Total           string    `json:"total"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// LineResponse is the public view of an order line.
type LineResponse struct {
	ID         int64  `json:"id"`
	OrderID    int64  `json:"order_id"`
	ProductID  int64  `json:"product_id"`
	Quantity   int    `json:"quantity"`
	Price      string `json:"price"`
	Subtotal   string `json:"subtotal"`
	GroupTag   *int   `json:"group,omitempty"`
	FinalStock *int   `json:"final_stock,omitempty"`
}

// YearTotalResponse is the gross amount ordered in one year.
type YearTotalResponse struct {
	Year  int    `json:"year"`
	Total string `json:"total"`
}

// SummaryResponse is a seller's order activity.
type SummaryResponse struct {
	OpenOrders      int                 `json:"open_orders"`
	FinalizedOrders int                 `json:"finalized_orders"`
	Years           []YearTotalResponse `json:"years"`
}
