package checkout

import (
	"context"
	"fmt"

	"storefront-svc/models"

	"github.com/shopspring/decimal"
)

type Catalog interface {
	ProductsByIDs(ctx context.Context, ids []int) (map[int]models.Product, error)
}

// Quote prices a cart from the catalog. Client prices are ignored; every line gets the
// catalog unit price and the total is recomputed.
func Quote(ctx context.Context, catalog Catalog, cart []models.CartItem) (models.OrderItems, decimal.Decimal, error) {
	if len(cart) == 0 {
		return nil, decimal.Zero, badRequest("Your cart is empty")
	}

	lines := mergeLines(cart)
	ids := make([]int, len(lines))
	for i, line := range lines {
		if line.ID <= 0 || line.Quantity <= 0 {
			return nil, decimal.Zero, badRequest("Invalid cart item")
		}
		ids[i] = line.ID
	}

	products, err := catalog.ProductsByIDs(ctx, ids)
	if err != nil {
		return nil, decimal.Zero, internal("Failed to validate cart", err)
	}

	items := make(models.OrderItems, 0, len(lines))
	total := decimal.Zero
	for _, line := range lines {
		p, ok := products[line.ID]
		if !ok {
			return nil, decimal.Zero, badRequest(fmt.Sprintf("Invalid product in cart: %d", line.ID))
		}
		if p.Stock < line.Quantity {
			return nil, decimal.Zero, badRequest(fmt.Sprintf("Insufficient stock for %s. Only %d left.", p.Name, p.Stock))
		}

		price := p.UnitPrice()
		items = append(items, models.OrderItem{
			ID:       p.ID,
			Name:     p.Name,
			Quantity: line.Quantity,
			Price:    price,
		})
		total = total.Add(price.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}

	return items, total, nil
}

// ToPaise converts rupees to the gateway's smallest unit.
func ToPaise(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
