package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/seetuai/seetu/internal/domain"
)

// ProductRepositoryPG implements domain.ProductRepository.
type ProductRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewProductRepository creates a product repository backed by PostgreSQL.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepositoryPG {
	return &ProductRepositoryPG{pool: pool}
}

// ListOwned returns, among productIDs, the products owned by userID through
// one of their brands. Callers compare the result against the requested ids
// to detect foreign or missing products.
func (r *ProductRepositoryPG) ListOwned(ctx context.Context, userID string, productIDs []string) ([]domain.Product, error) {
	if len(productIDs) == 0 {
		return nil, nil
	}
	query := `
SELECT p.id, p.brand_id, p.name, p.thumbnail_url, p.source_url, p.created_at
FROM products p
JOIN brands b ON b.id = p.brand_id
WHERE b.user_id = $1 AND p.id = ANY($2);
`
	rows, err := r.pool.Query(ctx, query, userID, productIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, len(productIDs))
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.BrandID, &p.Name, &p.ThumbnailURL, &p.SourceURL, &p.CreatedAt); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// DefaultBrand returns the user's default brand.
func (r *ProductRepositoryPG) DefaultBrand(ctx context.Context, userID string) (*domain.Brand, error) {
	query := `
SELECT id, user_id, name, voice, is_default, created_at
FROM brands
WHERE user_id = $1 AND is_default = TRUE
LIMIT 1;
`
	var b domain.Brand
	err := r.pool.QueryRow(ctx, query, userID).Scan(&b.ID, &b.UserID, &b.Name, &b.Voice, &b.IsDefault, &b.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}
