package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/ivankudzin/smmshop/internal/config"
	"github.com/ivankudzin/smmshop/internal/infra/logger"
	pgrepo "github.com/ivankudzin/smmshop/internal/repo/postgres"
	redrepo "github.com/ivankudzin/smmshop/internal/repo/redis"
	catalogsvc "github.com/ivankudzin/smmshop/internal/services/catalog"
)

type catalogFile struct {
	Services []catalogsvc.ImportItem `yaml:"services"`
}

func main() {
	catalogPath := flag.String("catalog", "configs/catalog.yaml", "path to the catalog seed file")
	flag.Parse()

	cfgPath := os.Getenv("APP_CONFIG")
	if cfgPath == "" {
		cfgPath = "configs/config.yaml"
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.Log.Level, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer func() {
		_ = log.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	items, err := readCatalog(*catalogPath)
	if err != nil {
		log.Fatal("read catalog", zap.Error(err))
	}

	pool, err := pgrepo.NewPool(ctx, cfg.Postgres.DSN)
	if err != nil {
		log.Fatal("init postgres", zap.Error(err))
	}
	defer pool.Close()

	if cfg.Postgres.Migrate {
		if err := pgrepo.Migrate(cfg.Postgres.DSN); err != nil {
			log.Fatal("migrate postgres", zap.Error(err))
		}
	}

	redisClient := redrepo.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	defer func() {
		_ = redisClient.Close()
	}()

	service := catalogsvc.NewService(catalogsvc.Dependencies{
		Store:  pgrepo.NewCatalogRepo(pool),
		Cache:  redrepo.NewCatalogCacheRepo(redisClient),
		Logger: log,
	}, catalogsvc.Config{})

	n, err := service.Import(ctx, items)
	if err != nil {
		log.Fatal("import catalog", zap.Error(err))
	}
	log.Info("catalog seeded", zap.Int("services", n), zap.String("file", *catalogPath))
}

func readCatalog(path string) ([]catalogsvc.ImportItem, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var file catalogFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(file.Services) == 0 {
		return nil, fmt.Errorf("%s lists no services", path)
	}
	return file.Services, nil
}
