package store

import (
	"context"
	"fmt"

	"storefront-svc/models"

	"github.com/lib/pq"
)

const productColumns = "id, name, price, discount_price, stock, created_at, updated_at"

// ProductsByIDs reads the authoritative catalog rows for the given ids. Missing ids are
// simply absent from the result.
func (s *Store) ProductsByIDs(ctx context.Context, ids []int) (map[int]models.Product, error) {
	keys := make([]int64, len(ids))
	for i, id := range ids {
		keys[i] = int64(id)
	}

	var products []models.Product
	err := s.db.SelectContext(ctx, &products,
		"SELECT "+productColumns+" FROM products WHERE id = ANY($1)",
		pq.Array(keys),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch products: %w", err)
	}

	out := make(map[int]models.Product, len(products))
	for _, p := range products {
		out[p.ID] = p
	}
	return out, nil
}
