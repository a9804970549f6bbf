package dto

// ParamsResponse exposes the effective global parameters.
type ParamsResponse struct {
	TaxPercent      int `json:"tax_percent"`
	DiscountPercent int `json:"discount_percent"`
	MaxGroup        int `json:"max_group"`
}

// ImportResponse reports a completed dataset replace.
type ImportResponse struct {
	Kind    string `json:"kind"`
	Records int    `json:"records"`
}
