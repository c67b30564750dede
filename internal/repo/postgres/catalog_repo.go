package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/ivankudzin/smmshop/internal/domain/enums"
	"github.com/ivankudzin/smmshop/internal/domain/model"
)

type CatalogRepo struct {
	pool *pgxpool.Pool
}

type CatalogItem struct {
	Slug        string
	Name        string
	Platform    enums.Platform
	Price       decimal.Decimal
	Description string
}

func NewCatalogRepo(pool *pgxpool.Pool) *CatalogRepo {
	return &CatalogRepo{pool: pool}
}

// List returns services ordered by platform then name. An empty platform
// means every platform.
func (r *CatalogRepo) List(ctx context.Context, platform enums.Platform) ([]model.Service, error) {
	if r.pool == nil {
		return nil, ErrNoPool
	}

	rows, err := r.pool.Query(ctx, `
SELECT id, slug, name, platform, price::text, description, created_at
FROM services
WHERE ($1 = '' OR platform = $1)
ORDER BY platform ASC, name ASC, id ASC
`, string(platform))
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	defer rows.Close()

	out := make([]model.Service, 0)
	for rows.Next() {
		svc, err := scanServiceRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan service: %w", err)
		}
		out = append(out, svc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate services: %w", err)
	}
	return out, nil
}

func (r *CatalogRepo) Get(ctx context.Context, id int64) (model.Service, error) {
	if r.pool == nil {
		return model.Service{}, ErrNoPool
	}

	svc, err := scanServiceRow(r.pool.QueryRow(ctx, `
SELECT id, slug, name, platform, price::text, description, created_at
FROM services
WHERE id = $1
`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Service{}, ErrServiceNotFound
		}
		return model.Service{}, fmt.Errorf("get service: %w", err)
	}
	return svc, nil
}

// Upsert inserts or updates catalog entries keyed by slug in one transaction.
func (r *CatalogRepo) Upsert(ctx context.Context, items []CatalogItem) (int, error) {
	if r.pool == nil {
		return 0, ErrNoPool
	}

	written := 0
	err := WithTx(ctx, r.pool, func(txCtx context.Context, tx pgx.Tx) error {
		for _, item := range items {
			slug := strings.TrimSpace(item.Slug)
			if slug == "" {
				return fmt.Errorf("catalog item %q has empty slug", item.Name)
			}
			if _, err := tx.Exec(txCtx, `
INSERT INTO services (slug, name, platform, price, description, created_at)
VALUES ($1, $2, $3, $4::numeric, $5, NOW())
ON CONFLICT (slug) DO UPDATE
SET name = EXCLUDED.name,
	platform = EXCLUDED.platform,
	price = EXCLUDED.price,
	description = EXCLUDED.description
`, slug, strings.TrimSpace(item.Name), string(item.Platform), item.Price.StringFixed(2), strings.TrimSpace(item.Description)); err != nil {
				return fmt.Errorf("upsert service %s: %w", slug, err)
			}
			written++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return written, nil
}

func scanServiceRow(row pgx.Row) (model.Service, error) {
	var (
		svc      model.Service
		platform string
		priceRaw string
	)
	if err := row.Scan(
		&svc.ID,
		&svc.Slug,
		&svc.Name,
		&platform,
		&priceRaw,
		&svc.Description,
		&svc.CreatedAt,
	); err != nil {
		return model.Service{}, err
	}
	price, err := parseNumeric(priceRaw)
	if err != nil {
		return model.Service{}, err
	}
	svc.Platform = enums.Platform(platform)
	svc.Price = price
	return svc, nil
}
