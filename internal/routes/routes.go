package routes

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/coinvault/coinvault/internal/auth"
	"github.com/coinvault/coinvault/internal/config"
	"github.com/coinvault/coinvault/internal/funding"
	"github.com/coinvault/coinvault/internal/identity"
	"github.com/coinvault/coinvault/internal/ledger"
	"github.com/coinvault/coinvault/internal/lock"
	"github.com/coinvault/coinvault/internal/middleware"
	"github.com/coinvault/coinvault/internal/notification"
	"github.com/coinvault/coinvault/internal/payments"
	"github.com/coinvault/coinvault/internal/wallet"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Mongo  *mongo.Database
	Cache  *redis.Client
	NATS   *nats.Conn
	Logger *slog.Logger

	// Store overrides the backend selected by Cfg.StoreBackend.
	Store ledger.Store
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	store := d.Store
	if store == nil {
		var err error
		if store, err = openStore(context.Background(), d); err != nil {
			return err
		}
	}

	var locker lock.Locker = lock.NewLocal()
	if d.Cache != nil {
		locker = lock.NewRedis(d.Cache, d.Cfg.LockTTL)
	}
	guard := ledger.NewGuard(store, locker, d.Cfg.StoreTimeout)
	hasher := auth.NewPINHasher(d.Cfg.PINHashCost)

	notifiers := notification.Fanout{notification.NewLoggerNotifier(d.Logger)}
	if d.NATS != nil {
		notifiers = append(notifiers, notification.NewNATSNotifier(d.NATS, d.Cfg.NATSSubjectPrefix))
	}

	walletSvc := wallet.NewService(guard, hasher, wallet.Options{
		Symbols:          wallet.NewSymbolPolicy(d.Cfg.SupportedAssets),
		StartingBalances: d.Cfg.StartingBalances,
	})
	identitySvc := identity.NewService(guard, hasher)
	paymentSvc := payments.NewService(guard, notifiers, d.Logger)
	fundingSvc := funding.NewService(guard, notifiers, d.Logger, funding.Options{
		AllowNegative: d.Cfg.AllowNegativeAdjustments,
	})

	// Middlewares
	app.Use(recover.New())
	app.Use(cors.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))
	app.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))

	RegisterHealthRoutes(app, d)

	walletHandler := wallet.NewHandler(walletSvc, d.Logger)
	identityHandler := identity.NewHandler(identitySvc, d.Logger)

	api := app.Group("/api")
	RegisterUserRoutes(api, userHandlers{
		wallet:   walletHandler,
		identity: identityHandler,
		payments: payments.NewHandler(paymentSvc, d.Logger),
	}, middleware.LoginRateLimit(d.Cache, d.Cfg.LoginAttemptsPerMinute, d.Logger))

	admin := api.Group("/admin", middleware.AdminAuth(auth.NewAdminSecret(d.Cfg.AdminPIN), d.Logger))
	RegisterAdminRoutes(admin, adminHandlers{
		wallet:   walletHandler,
		identity: identityHandler,
		funding:  funding.NewHandler(fundingSvc, d.Logger),
	})

	d.Logger.Info("routes ready",
		slog.String("store", d.Cfg.StoreBackend),
		slog.Bool("redis", d.Cache != nil),
		slog.Bool("nats", d.NATS != nil),
	)
	return nil
}

func openStore(ctx context.Context, d Deps) (ledger.Store, error) {
	switch d.Cfg.StoreBackend {
	case config.BackendMemory:
		return ledger.NewInMemory(), nil
	case config.BackendFile, "":
		return ledger.NewFileStore(d.Cfg.DataFile)
	case config.BackendPostgres:
		if d.DB == nil {
			return nil, fmt.Errorf("store backend %q requires a database connection", d.Cfg.StoreBackend)
		}
		return ledger.NewPostgresStore(d.DB), nil
	case config.BackendMongo:
		if d.Mongo == nil {
			return nil, fmt.Errorf("store backend %q requires a mongo connection", d.Cfg.StoreBackend)
		}
		store, err := ledger.NewMongoStore(ctx, d.Mongo)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", d.Cfg.StoreBackend)
	}
}
