package domain

import "github.com/shopspring/decimal"

// CartLine is one product in the cart. Quantity is always at least 1.
type CartLine struct {
	ProductID int64           `json:"product_id"`
	Title     string          `json:"title"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	Thumbnail string          `json:"thumbnail"`
}

func (l CartLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// NewCartLine builds a single-quantity line from catalog details.
func NewCartLine(e CatalogEntry) CartLine {
	return CartLine{
		ProductID: e.ID,
		Title:     e.Title,
		UnitPrice: decimal.NewFromFloat(e.Price),
		Quantity:  1,
		Thumbnail: e.DisplayImage(),
	}
}
