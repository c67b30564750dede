package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ivankudzin/smmshop/internal/domain/enums"
	"github.com/ivankudzin/smmshop/internal/domain/model"
)

type OrderRepo struct {
	pool *pgxpool.Pool
}

func NewOrderRepo(pool *pgxpool.Pool) *OrderRepo {
	return &OrderRepo{pool: pool}
}

// ListByUser returns the user's orders joined with their service, newest
// first. Empty statuses means all statuses.
func (r *OrderRepo) ListByUser(ctx context.Context, userID uuid.UUID, statuses []enums.OrderStatus) ([]model.OrderWithService, error) {
	if r.pool == nil {
		return nil, ErrNoPool
	}

	rows, err := r.pool.Query(ctx, `
SELECT
	o.id,
	o.user_id,
	o.service_id,
	o.link,
	o.quantity,
	o.status,
	o.created_at,
	s.name,
	s.platform,
	s.price::text
FROM orders o
JOIN services s ON s.id = o.service_id
WHERE o.user_id = $1
  AND (cardinality($2::text[]) = 0 OR o.status = ANY($2::text[]))
ORDER BY o.created_at DESC, o.id DESC
`, userID, statusStrings(statuses))
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	out := make([]model.OrderWithService, 0)
	for rows.Next() {
		var (
			item     model.OrderWithService
			status   string
			platform string
			priceRaw string
		)
		if err := rows.Scan(
			&item.ID,
			&item.UserID,
			&item.ServiceID,
			&item.Link,
			&item.Quantity,
			&status,
			&item.CreatedAt,
			&item.Service.Name,
			&platform,
			&priceRaw,
		); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		price, err := parseNumeric(priceRaw)
		if err != nil {
			return nil, fmt.Errorf("parse service price: %w", err)
		}
		item.Status = enums.OrderStatus(status)
		item.Service.Platform = enums.Platform(platform)
		item.Service.Price = price
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}
	return out, nil
}

// CountByUser is an exact count. Empty statuses means all statuses.
func (r *OrderRepo) CountByUser(ctx context.Context, userID uuid.UUID, statuses []enums.OrderStatus) (int64, error) {
	if r.pool == nil {
		return 0, ErrNoPool
	}

	var count int64
	if err := r.pool.QueryRow(ctx, `
SELECT COUNT(*)
FROM orders
WHERE user_id = $1
  AND (cardinality($2::text[]) = 0 OR status = ANY($2::text[]))
`, userID, statusStrings(statuses)).Scan(&count); err != nil {
		return 0, fmt.Errorf("count orders: %w", err)
	}
	return count, nil
}

func (r *OrderRepo) UpdateStatus(ctx context.Context, orderID int64, status enums.OrderStatus) (model.Order, error) {
	if r.pool == nil {
		return model.Order{}, ErrNoPool
	}

	order, err := scanOrderRow(r.pool.QueryRow(ctx, `
UPDATE orders
SET status = $2
WHERE id = $1
RETURNING id, user_id, service_id, link, quantity, status, created_at
`, orderID, string(status)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Order{}, ErrOrderNotFound
		}
		return model.Order{}, fmt.Errorf("update order status: %w", err)
	}
	return order, nil
}

func scanOrderRow(row pgx.Row) (model.Order, error) {
	var (
		o      model.Order
		status string
	)
	if err := row.Scan(&o.ID, &o.UserID, &o.ServiceID, &o.Link, &o.Quantity, &status, &o.CreatedAt); err != nil {
		return model.Order{}, err
	}
	o.Status = enums.OrderStatus(status)
	return o, nil
}

func statusStrings(statuses []enums.OrderStatus) []string {
	out := make([]string, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, string(s))
	}
	return out
}
