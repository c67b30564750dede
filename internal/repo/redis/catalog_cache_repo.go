package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/ivankudzin/smmshop/internal/domain/enums"
	"github.com/ivankudzin/smmshop/internal/domain/model"
)

const (
	catalogPrefix   = "catalog:services:"
	catalogAllLabel = "all"
)

// CatalogCacheRepo keeps the service list per platform filter. Prices are
// display-only here; purchases always re-read them from postgres.
type CatalogCacheRepo struct {
	client *goredis.Client
}

func NewCatalogCacheRepo(client *goredis.Client) *CatalogCacheRepo {
	return &CatalogCacheRepo{client: client}
}

func (r *CatalogCacheRepo) GetServices(ctx context.Context, platform enums.Platform) ([]model.Service, bool, error) {
	if r.client == nil {
		return nil, false, errNilClient
	}

	raw, err := r.client.Get(ctx, catalogKey(platform)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get catalog cache: %w", err)
	}

	var items []model.Service
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, false, nil
	}
	return items, true, nil
}

func (r *CatalogCacheRepo) SetServices(ctx context.Context, platform enums.Platform, items []model.Service, ttl time.Duration) error {
	if r.client == nil {
		return errNilClient
	}
	if items == nil {
		items = []model.Service{}
	}

	payload, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("marshal catalog cache: %w", err)
	}
	if err := r.client.Set(ctx, catalogKey(platform), payload, ttl).Err(); err != nil {
		return fmt.Errorf("set catalog cache: %w", err)
	}
	return nil
}

func (r *CatalogCacheRepo) Invalidate(ctx context.Context) error {
	if r.client == nil {
		return errNilClient
	}

	keys := make([]string, 0, len(enums.Platforms)+1)
	keys = append(keys, catalogKey(""))
	for _, platform := range enums.Platforms {
		keys = append(keys, catalogKey(platform))
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("invalidate catalog cache: %w", err)
	}
	return nil
}

func catalogKey(platform enums.Platform) string {
	if platform == "" {
		return catalogPrefix + catalogAllLabel
	}
	return catalogPrefix + string(platform)
}
