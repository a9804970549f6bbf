package dto

// ClientResponse is the public view of a client.
type ClientResponse struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	CIF      string `json:"cif"`
	SellerID int64  `json:"seller_id"`
}
