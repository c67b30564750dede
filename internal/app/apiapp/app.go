package apiapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ivankudzin/smmshop/internal/config"
	"github.com/ivankudzin/smmshop/internal/domain/rules"
	"github.com/ivankudzin/smmshop/internal/infra/mailer"
	"github.com/ivankudzin/smmshop/internal/infra/metrics"
	s3infra "github.com/ivankudzin/smmshop/internal/infra/s3"
	"github.com/ivankudzin/smmshop/internal/infra/telegram"
	pgrepo "github.com/ivankudzin/smmshop/internal/repo/postgres"
	redrepo "github.com/ivankudzin/smmshop/internal/repo/redis"
	accountsvc "github.com/ivankudzin/smmshop/internal/services/accounts"
	authsvc "github.com/ivankudzin/smmshop/internal/services/auth"
	catalogsvc "github.com/ivankudzin/smmshop/internal/services/catalog"
	dashboardsvc "github.com/ivankudzin/smmshop/internal/services/dashboard"
	ordersvc "github.com/ivankudzin/smmshop/internal/services/orders"
	profilesvc "github.com/ivankudzin/smmshop/internal/services/profiles"
	purchasesvc "github.com/ivankudzin/smmshop/internal/services/purchases"
	ratesvc "github.com/ivankudzin/smmshop/internal/services/rate"
	walletsvc "github.com/ivankudzin/smmshop/internal/services/wallet"
	"github.com/ivankudzin/smmshop/internal/web"
)

type App struct {
	cfg        config.Config
	logger     *zap.Logger
	server     *http.Server
	postgres   *pgxpool.Pool
	redis      *goredis.Client
	httpRouter http.Handler
}

// New wires the API. Without a reachable Postgres it still starts in
// degraded mode: health, config and pages answer, data routes return
// NOT_CONFIGURED.
func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	m := metrics.New()
	r := chi.NewRouter()
	ApplyMiddlewares(r, log, cfg.HTTP.AllowedOrigins, m)

	var pool *pgxpool.Pool
	if p, err := pgrepo.NewPool(ctx, cfg.Postgres.DSN); err != nil {
		log.Warn("postgres init failed, continuing in degraded mode", zap.Error(err))
	} else {
		pool = p
	}
	if pool != nil && cfg.Postgres.Migrate {
		if err := pgrepo.Migrate(cfg.Postgres.DSN); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrate postgres: %w", err)
		}
	}

	redisClient := redrepo.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	sessionRepo := redrepo.NewSessionRepo(redisClient)
	rateRepo := redrepo.NewRateRepo(redisClient)
	authEvents := redrepo.NewAuthEventRepo(redisClient)
	catalogCache := redrepo.NewCatalogCacheRepo(redisClient)

	deps := Dependencies{
		AuthEvents: authEvents,
		Metrics:    m,
		Configured: func() bool { return pool != nil },
		RedisCheck: redrepo.Ping(redisClient),
		Logger:     log,
		Config:     cfg,
	}
	if pool != nil {
		deps.PostgresCheck = pool.Ping
	}

	var authService *authsvc.Service
	if pool != nil {
		userRepo := pgrepo.NewUserRepo(pool)
		profileRepo := pgrepo.NewProfileRepo(pool)
		walletRepo := pgrepo.NewWalletRepo(pool)
		transactionRepo := pgrepo.NewTransactionRepo(pool)
		orderRepo := pgrepo.NewOrderRepo(pool)
		depositRepo := pgrepo.NewDepositRepo(pool)

		authService = authsvc.NewService(authsvc.Dependencies{
			JWT:      authsvc.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTAccessTTL),
			Sessions: sessionRepo,
			Users:    userRepo,
			Limiter:  ratesvc.NewLimiter(rateRepo, cfg.Rate.SignInPerMinute, cfg.Rate.SignInPer10Sec),
			Events:   authEvents,
			Logger:   log,
		}, authsvc.Config{RefreshTTL: cfg.Auth.RefreshTTL})

		receipts := newReceiptBucket(cfg, log)
		var receiptStore walletsvc.ReceiptStorage
		var receiptDeleter accountsvc.ObjectDeleter
		if receipts != nil {
			receiptStore = receipts
			receiptDeleter = receipts
		}

		deps.AuthService = authService
		deps.CatalogService = catalogsvc.NewService(catalogsvc.Dependencies{
			Store:  pgrepo.NewCatalogRepo(pool),
			Cache:  catalogCache,
			Logger: log,
		}, catalogsvc.Config{})
		deps.PurchaseService = purchasesvc.NewService(purchasesvc.Dependencies{
			Store:    pgrepo.NewPurchaseRepo(pool),
			Metrics:  m,
			Notifier: authService,
			Logger:   log,
		}, purchasesvc.Config{Pricing: rules.Pricing{
			UnitScale:    cfg.Pricing.UnitScale,
			MinQuantity:  cfg.Pricing.MinQuantity,
			QuantityStep: cfg.Pricing.QuantityStep,
		}})
		deps.OrderService = ordersvc.NewService(orderRepo, authService, log)
		deps.DashboardService = dashboardsvc.NewService(walletRepo, orderRepo, transactionRepo)
		deps.ProfileService = profilesvc.NewService(profileRepo, authService)
		deps.WalletService = walletsvc.NewService(walletsvc.Dependencies{
			Wallets:      walletRepo,
			Transactions: transactionRepo,
			Deposits:     depositRepo,
			Profiles:     profileRepo,
			Receipts:     receiptStore,
			Operators:    newOperatorAlerts(cfg, log),
			Mailer:       mailer.New(cfg.Mail.ResendAPIKey, cfg.Mail.From),
			Metrics:      m,
			Notifier:     authService,
			Logger:       log,
		}, WalletConfig(cfg))
		deps.AccountService = accountsvc.NewService(accountsvc.Dependencies{
			Passwords: authService,
			Accounts:  pgrepo.NewAccountRepo(pool),
			Sessions:  authService,
			Receipts:  receiptDeleter,
			Logger:    log,
		})
	}

	deps.Site = web.NewSite(
		web.NewGuard(pageSessionResolver(authService, cfg.Auth.CookieName), cfg.Auth.GuardTimeout, log),
		web.Config{},
		log,
	)

	RegisterRoutes(r, deps)

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	return &App{
		cfg:        cfg,
		logger:     log,
		server:     server,
		postgres:   pool,
		redis:      redisClient,
		httpRouter: r,
	}, nil
}

// WalletConfig maps the deposit settings shared by the API and the bot.
func WalletConfig(cfg config.Config) walletsvc.Config {
	amounts := make([]int64, 0, len(cfg.Deposits.PredefinedAmounts))
	for _, a := range cfg.Deposits.PredefinedAmounts {
		amounts = append(amounts, int64(a))
	}
	return walletsvc.Config{
		BankDetails: walletsvc.BankDetails{
			Bank:          cfg.Deposits.Bank,
			AccountName:   cfg.Deposits.AccountName,
			AccountNumber: cfg.Deposits.AccountNumber,
		},
		PredefinedAmounts: amounts,
	}
}

func newReceiptBucket(cfg config.Config, log *zap.Logger) *s3infra.Bucket {
	client, err := s3infra.NewClient(s3infra.Config{
		Endpoint:  cfg.S3.Endpoint,
		AccessKey: cfg.S3.AccessKey,
		SecretKey: cfg.S3.SecretKey,
		UseSSL:    cfg.S3.UseSSL,
	})
	if err != nil {
		log.Warn("s3 init failed, receipt uploads disabled", zap.Error(err))
		return nil
	}
	return s3infra.NewBucket(client, cfg.S3.Bucket)
}

// newOperatorAlerts returns nil when no bot is configured; the wallet service
// then skips operator alerts.
func newOperatorAlerts(cfg config.Config, log *zap.Logger) walletsvc.OperatorAlerts {
	if cfg.Bot.Token == "" || len(cfg.Bot.OperatorChatIDs) == 0 {
		return nil
	}
	bot, err := telegram.NewBot(cfg.Bot.Token)
	if err != nil {
		log.Warn("telegram init failed, operator alerts disabled", zap.Error(err))
		return nil
	}
	return telegram.NewOperatorNotifier(bot, cfg.Bot.OperatorChatIDs)
}

func pageSessionResolver(authService *authsvc.Service, cookieName string) web.SessionResolver {
	return func(ctx context.Context, r *http.Request) (bool, error) {
		if authService == nil {
			return false, nil
		}
		token, ok := accessTokenFromRequest(r, cookieName)
		if !ok {
			return false, nil
		}
		if _, err := authService.ValidateAccessToken(ctx, token); err != nil {
			if errors.Is(err, authsvc.ErrUnauthorized) {
				return false, nil
			}
			return false, err
		}
		return true, nil
	}
}

func (a *App) Run() error {
	a.logger.Info("api server started",
		zap.String("addr", a.cfg.HTTP.Addr),
		zap.Bool("configured", a.postgres != nil),
	)
	err := a.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error

	if err := a.server.Shutdown(ctx); err != nil {
		shutdownErr = err
	}
	if a.postgres != nil {
		a.postgres.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil && shutdownErr == nil {
			shutdownErr = err
		}
	}

	return shutdownErr
}

func (a *App) Handler() http.Handler {
	return a.httpRouter
}

// Configured reports whether the app has a database behind it.
func (a *App) Configured() bool {
	return a.postgres != nil
}
