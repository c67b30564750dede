package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ivankudzin/smmshop/internal/domain/enums"
	"github.com/ivankudzin/smmshop/internal/domain/model"
	pgrepo "github.com/ivankudzin/smmshop/internal/repo/postgres"
)

const defaultCacheTTL = 5 * time.Minute

var (
	ErrValidation      = errors.New("validation error")
	ErrUnknownPlatform = errors.New("unknown platform")
	ErrNotFound        = errors.New("service not found")
)

type Store interface {
	List(ctx context.Context, platform enums.Platform) ([]model.Service, error)
	Get(ctx context.Context, id int64) (model.Service, error)
	Upsert(ctx context.Context, items []pgrepo.CatalogItem) (int, error)
}

type Cache interface {
	GetServices(ctx context.Context, platform enums.Platform) ([]model.Service, bool, error)
	SetServices(ctx context.Context, platform enums.Platform, items []model.Service, ttl time.Duration) error
	Invalidate(ctx context.Context) error
}

type Dependencies struct {
	Store  Store
	Cache  Cache
	Logger *zap.Logger
}

type Config struct {
	CacheTTL time.Duration
}

type Service struct {
	store    Store
	cache    Cache
	logger   *zap.Logger
	cacheTTL time.Duration
}

// ImportItem is one catalog entry as written in the seed file.
type ImportItem struct {
	Slug        string `yaml:"slug"`
	Name        string `yaml:"name"`
	Platform    string `yaml:"platform"`
	Price       string `yaml:"price"`
	Description string `yaml:"description"`
}

func NewService(deps Dependencies, cfg Config) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &Service{
		store:    deps.Store,
		cache:    deps.Cache,
		logger:   logger,
		cacheTTL: ttl,
	}
}

// List returns the catalog, optionally narrowed to one platform. The raw
// filter is parsed here so an unknown platform is a client error.
func (s *Service) List(ctx context.Context, rawPlatform string) ([]model.Service, error) {
	var platform enums.Platform
	if strings.TrimSpace(rawPlatform) != "" && !strings.EqualFold(strings.TrimSpace(rawPlatform), "all") {
		parsed, ok := enums.ParsePlatform(rawPlatform)
		if !ok {
			return nil, ErrUnknownPlatform
		}
		platform = parsed
	}

	if s.cache != nil {
		items, ok, err := s.cache.GetServices(ctx, platform)
		if err != nil {
			s.logger.Warn("catalog cache read failed", zap.Error(err))
		} else if ok {
			return items, nil
		}
	}

	items, err := s.store.List(ctx, platform)
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.SetServices(ctx, platform, items, s.cacheTTL); err != nil {
			s.logger.Warn("catalog cache write failed", zap.Error(err))
		}
	}
	return items, nil
}

func (s *Service) Get(ctx context.Context, id int64) (model.Service, error) {
	if id <= 0 {
		return model.Service{}, ErrValidation
	}
	item, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, pgrepo.ErrServiceNotFound) {
			return model.Service{}, ErrNotFound
		}
		return model.Service{}, fmt.Errorf("get service: %w", err)
	}
	return item, nil
}

// Import validates and upserts catalog entries by slug. Entries without a
// slug get one derived from platform and name.
func (s *Service) Import(ctx context.Context, items []ImportItem) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}

	rows := make([]pgrepo.CatalogItem, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for i, item := range items {
		row, err := normalizeImportItem(item)
		if err != nil {
			return 0, fmt.Errorf("item %d: %w", i, err)
		}
		if _, dup := seen[row.Slug]; dup {
			return 0, fmt.Errorf("item %d: duplicate slug %q: %w", i, row.Slug, ErrValidation)
		}
		seen[row.Slug] = struct{}{}
		rows = append(rows, row)
	}

	n, err := s.store.Upsert(ctx, rows)
	if err != nil {
		return 0, fmt.Errorf("upsert catalog: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			s.logger.Warn("catalog cache invalidate failed", zap.Error(err))
		}
	}
	return n, nil
}

func normalizeImportItem(item ImportItem) (pgrepo.CatalogItem, error) {
	name := strings.TrimSpace(item.Name)
	if name == "" {
		return pgrepo.CatalogItem{}, fmt.Errorf("name is required: %w", ErrValidation)
	}
	platform, ok := enums.ParsePlatform(item.Platform)
	if !ok {
		return pgrepo.CatalogItem{}, fmt.Errorf("platform %q: %w", item.Platform, ErrUnknownPlatform)
	}
	price, err := decimal.NewFromString(strings.TrimSpace(item.Price))
	if err != nil || !price.IsPositive() {
		return pgrepo.CatalogItem{}, fmt.Errorf("price %q must be positive: %w", item.Price, ErrValidation)
	}

	itemSlug := slug.Make(strings.TrimSpace(item.Slug))
	if itemSlug == "" {
		itemSlug = slug.Make(string(platform) + " " + name)
	}

	return pgrepo.CatalogItem{
		Slug:        itemSlug,
		Name:        name,
		Platform:    platform,
		Price:       price.Round(2),
		Description: strings.TrimSpace(item.Description),
	}, nil
}
