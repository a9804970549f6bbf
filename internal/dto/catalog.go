package dto

// CategoryResponse is the public view of a category.
type CategoryResponse struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

// ProductResponse is the public view of a product.
type ProductResponse struct {
	ID           int64  `json:"id"`
	Description  string `json:"description"`
	Price        string `json:"price"`
	CategoryID   int64  `json:"category_id"`
	CategoryName string `json:"category_name,omitempty"`
	Active       bool   `json:"active"`
}
