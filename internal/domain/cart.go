package domain

type CartLine struct {
	SkuID    string
	SpuID    string
	Name     string
	Price    int64
	Quantity int
	Money    int64
}

// Cart is a point-in-time snapshot of a user's cart with computed totals.
type Cart struct {
	Lines         []CartLine
	TotalQuantity int
	TotalAmount   int64
}

func NewCart(lines []CartLine) Cart {
	cart := Cart{Lines: lines}
	for _, l := range lines {
		cart.TotalQuantity += l.Quantity
		cart.TotalAmount += l.Money
	}
	return cart
}

func (c Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}
