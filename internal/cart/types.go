package cart

import (
	"strconv"

	"github.com/angelmondragon/foodrescue/pkg/types"
)

// Product is the catalog snapshot a caller adds to the cart.
type Product struct {
	ID           int64          `json:"id"`
	Name         string         `json:"name"`
	Price        types.Price    `json:"price"`
	Image        string         `json:"image,omitempty"`
	PickupTime   string         `json:"pickupTime"`
	Location     types.Location `json:"location"`
	PortionsLeft int            `json:"portionsLeft"`
}

// Key is the cart line identifier for the product.
func (p Product) Key() string {
	return strconv.FormatInt(p.ID, 10)
}

// MaxAvailable is the quantity cap for the product. A product that reports no
// portions still allows one.
func (p Product) MaxAvailable() int {
	if p.PortionsLeft <= 0 {
		return 1
	}
	return p.PortionsLeft
}

// Line is one product in the cart with the price, pickup window and location
// captured when it was first added.
type Line struct {
	ProductID    string         `json:"id"`
	Name         string         `json:"name"`
	UnitPrice    types.Price    `json:"price"`
	Image        string         `json:"image,omitempty"`
	Quantity     int            `json:"quantity"`
	PickupWindow string         `json:"pickupTime"`
	Location     types.Location `json:"location"`
	MaxQuantity  *int           `json:"maxQuantity,omitempty"`
}

// Subtotal is unit price times quantity.
func (l Line) Subtotal() types.Price {
	return types.NewPrice(l.UnitPrice.Times(l.Quantity))
}

func (l Line) clone() Line {
	out := l
	if l.MaxQuantity != nil {
		limit := *l.MaxQuantity
		out.MaxQuantity = &limit
	}
	return out
}

func newLine(p Product, quantity, limit int) Line {
	return Line{
		ProductID:    p.Key(),
		Name:         p.Name,
		UnitPrice:    p.Price,
		Image:        p.Image,
		Quantity:     quantity,
		PickupWindow: p.PickupTime,
		Location:     p.Location,
		MaxQuantity:  &limit,
	}
}
