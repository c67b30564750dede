package botapp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ivankudzin/smmshop/internal/app/apiapp"
	"github.com/ivankudzin/smmshop/internal/config"
	"github.com/ivankudzin/smmshop/internal/domain/enums"
	"github.com/ivankudzin/smmshop/internal/infra/mailer"
	s3infra "github.com/ivankudzin/smmshop/internal/infra/s3"
	tginfra "github.com/ivankudzin/smmshop/internal/infra/telegram"
	"github.com/ivankudzin/smmshop/internal/jobs/cleanup"
	pgrepo "github.com/ivankudzin/smmshop/internal/repo/postgres"
	redrepo "github.com/ivankudzin/smmshop/internal/repo/redis"
	authsvc "github.com/ivankudzin/smmshop/internal/services/auth"
	ordersvc "github.com/ivankudzin/smmshop/internal/services/orders"
	walletsvc "github.com/ivankudzin/smmshop/internal/services/wallet"
)

// App is the operator process: it answers the operator chats and expires
// stale deposit requests on a schedule.
type App struct {
	cfg        config.Config
	logger     *zap.Logger
	postgres   *pgxpool.Pool
	redis      *goredis.Client
	bot        *tginfra.Bot
	console    *Console
	cleanupJob *cleanup.Job
}

func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	pool, err := pgrepo.NewPool(ctx, cfg.Postgres.DSN)
	if err != nil {
		return nil, fmt.Errorf("init postgres for bot app: %w", err)
	}

	redisClient := redrepo.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	notifier := &eventNotifier{events: redrepo.NewAuthEventRepo(redisClient), logger: logger}

	depositRepo := pgrepo.NewDepositRepo(pool)
	profileRepo := pgrepo.NewProfileRepo(pool)

	var receipts walletsvc.ReceiptStorage
	s3Client, err := s3infra.NewClient(s3infra.Config{
		Endpoint:  cfg.S3.Endpoint,
		AccessKey: cfg.S3.AccessKey,
		SecretKey: cfg.S3.SecretKey,
		UseSSL:    cfg.S3.UseSSL,
	})
	if err != nil {
		logger.Warn("s3 init failed, receipt links disabled", zap.Error(err))
	} else {
		receipts = s3infra.NewBucket(s3Client, cfg.S3.Bucket)
	}

	walletService := walletsvc.NewService(walletsvc.Dependencies{
		Wallets:      pgrepo.NewWalletRepo(pool),
		Transactions: pgrepo.NewTransactionRepo(pool),
		Deposits:     depositRepo,
		Profiles:     profileRepo,
		Receipts:     receipts,
		Mailer:       mailer.New(cfg.Mail.ResendAPIKey, cfg.Mail.From),
		Notifier:     notifier,
		Logger:       logger,
	}, apiapp.WalletConfig(cfg))
	orderService := ordersvc.NewService(pgrepo.NewOrderRepo(pool), notifier, logger)

	app := &App{
		cfg:        cfg,
		logger:     logger,
		postgres:   pool,
		redis:      redisClient,
		cleanupJob: cleanup.NewDepositExpiryJob(depositRepo, cfg.Deposits.PendingTTL, logger),
	}

	if strings.TrimSpace(cfg.Bot.Token) == "" {
		logger.Warn("BOT_TOKEN is empty, operator console disabled")
		return app, nil
	}
	if len(cfg.Bot.OperatorChatIDs) == 0 {
		logger.Warn("no operator chats configured, every command will be ignored")
	}

	bot, err := tginfra.NewBot(cfg.Bot.Token)
	if err != nil {
		pool.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("init telegram bot: %w", err)
	}
	app.bot = bot
	app.console = NewConsole(walletService, orderService, bot, cfg.Bot.OperatorChatIDs, logger)
	return app, nil
}

func (a *App) Run(ctx context.Context) error {
	a.logger.Info("bot app started")

	scheduler, err := cleanup.Schedule(ctx, a.cleanupJob, a.cfg.Deposits.CleanupInterval, a.logger)
	if err != nil {
		return fmt.Errorf("schedule deposit expiry: %w", err)
	}
	defer shutdownScheduler(scheduler, a.logger)

	if a.bot == nil {
		<-ctx.Done()
		a.logger.Info("bot app stopped")
		return nil
	}

	err = a.bot.Listen(ctx, tginfra.Handlers{
		OnCommand:  a.console.HandleCommand,
		OnCallback: a.console.HandleCallback,
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	a.logger.Info("bot app stopped")
	return nil
}

func shutdownScheduler(s gocron.Scheduler, logger *zap.Logger) {
	if err := s.Shutdown(); err != nil {
		logger.Warn("scheduler shutdown failed", zap.Error(err))
	}
}

func (a *App) Close() {
	if a.postgres != nil {
		a.postgres.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
}

// eventNotifier pushes wallet and order changes to the user's open tabs
// through the same channel the API's auth events use.
type eventNotifier struct {
	events *redrepo.AuthEventRepo
	logger *zap.Logger
}

func (n *eventNotifier) Notify(ctx context.Context, userID uuid.UUID, event enums.AuthEvent) {
	if n.events == nil || userID == uuid.Nil {
		return
	}
	if err := n.events.Publish(ctx, authsvc.Event{Type: event, UserID: userID, At: time.Now().UTC()}); err != nil {
		n.logger.Warn("publish user event failed", zap.Error(err), zap.String("event", string(event)))
	}
}
