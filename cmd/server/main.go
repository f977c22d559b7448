package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/finledger/ledger/internal/adapter/auth"
	"github.com/finledger/ledger/internal/adapter/cache"
	"github.com/finledger/ledger/internal/adapter/events"
	httpadapter "github.com/finledger/ledger/internal/adapter/http"
	"github.com/finledger/ledger/internal/adapter/memory"
	"github.com/finledger/ledger/internal/adapter/persistence"
	"github.com/finledger/ledger/internal/adapter/ratelimit"
	"github.com/finledger/ledger/internal/config"
	"github.com/finledger/ledger/internal/domain"
	"github.com/finledger/ledger/internal/logger"
	"github.com/finledger/ledger/internal/ports"
	"github.com/finledger/ledger/internal/usecase"
)

// ledgerStore groups the ports one storage backend provides
type ledgerStore struct {
	uow        ports.UnitOfWork
	reader     ports.TransactionReader
	categories ports.CategoryOracle
	audit      ports.AuditReader
	close      func() error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger := logger.New(logger.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		ServiceName: "ledger",
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appLogger.Info(ctx, "Application starting", map[string]interface{}{
		"env":          cfg.Server.Environment,
		"store_driver": cfg.Ledger.StoreDriver,
		"timezone":     cfg.Ledger.Timezone,
	})

	if err := run(ctx, cfg, appLogger); err != nil {
		appLogger.Error(ctx, "Application stopped with error", err, nil)
		os.Exit(1)
	}
	appLogger.Info(context.Background(), "Application stopped", nil)
}

func run(ctx context.Context, cfg *config.Config, appLogger logger.Logger) error {
	location, err := cfg.Location()
	if err != nil {
		return err
	}

	store, err := openStore(ctx, cfg, appLogger)
	if err != nil {
		return err
	}
	defer store.close()

	categories := store.categories
	var limiter httpadapter.RateLimiter
	if cfg.Redis.URL != "" {
		client, err := cache.NewRedisClient(ctx, cfg.Redis.URL, cfg.Redis.Timeout)
		if err != nil {
			appLogger.Warn(ctx, "Category cache and rate limiting disabled", map[string]interface{}{"error": err.Error()})
		} else {
			defer client.Close()
			categories = cache.NewCategoryCache(categories, client, cfg.Redis.CategoryTTL, appLogger)
			appLogger.Info(ctx, "Category cache enabled", map[string]interface{}{"ttl": cfg.Redis.CategoryTTL.String()})

			if cfg.Redis.WriteLimit > 0 {
				limiter = ratelimit.NewRedisLimiter(client, ratelimit.Config{
					Limit:  cfg.Redis.WriteLimit,
					Window: cfg.Redis.WriteWindow,
				})
				appLogger.Info(ctx, "Write rate limiting enabled", map[string]interface{}{
					"limit":  cfg.Redis.WriteLimit,
					"window": cfg.Redis.WriteWindow.String(),
				})
			}
		}
	}

	var publisher ports.EventPublisher = events.NewNoopPublisher()
	if cfg.AMQP.URL != "" {
		p, err := events.NewAMQPPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange, appLogger)
		if err != nil {
			appLogger.Warn(ctx, "Ledger event publishing disabled", map[string]interface{}{"error": err.Error()})
		} else {
			publisher = p
			appLogger.Info(ctx, "Ledger event publishing enabled", map[string]interface{}{"exchange": cfg.AMQP.Exchange})
		}
	}
	defer publisher.Close()

	verifier, err := auth.NewJWTService(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	if err != nil {
		return err
	}

	ledgerUseCase := usecase.NewLedgerUseCase(
		store.uow,
		store.reader,
		categories,
		publisher,
		appLogger,
		usecase.WithLocation(location),
	)
	auditUseCase := usecase.NewAuditUseCase(store.audit)

	router := httpadapter.NewRouter(httpadapter.RouterConfig{
		Transactions: ledgerUseCase,
		Audit:        auditUseCase,
		Verifier:     verifier,
		Limiter:      limiter,
		CORSOrigins:  cfg.Server.CORSOrigins,
		Logger:       appLogger,
	})
	server := httpadapter.NewServer(httpadapter.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}, router, appLogger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(server.Start)
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func openStore(ctx context.Context, cfg *config.Config, appLogger logger.Logger) (*ledgerStore, error) {
	if cfg.Ledger.StoreDriver == config.StoreDriverMemory {
		st := memory.New()
		for _, c := range domain.StarterCategories(cfg.Ledger.DemoUserID) {
			st.AddCategory(c)
		}
		appLogger.Warn(ctx, "Using in-memory store; data is lost on restart", map[string]interface{}{
			"demo_user_id": cfg.Ledger.DemoUserID,
		})
		return &ledgerStore{
			uow:        st,
			reader:     st,
			categories: st,
			audit:      st.AuditLog(),
			close:      func() error { return nil },
		}, nil
	}

	databaseURL := cfg.DatabaseURL()
	if cfg.Database.AutoMigrate {
		if err := persistence.RunMigrations(databaseURL); err != nil {
			return nil, err
		}
		appLogger.Info(ctx, "Database migrations applied", nil)
	}

	db, err := persistence.Open(ctx, databaseURL, persistence.PoolConfig{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
	})
	if err != nil {
		return nil, err
	}
	appLogger.Info(ctx, "Database connection established", map[string]interface{}{
		"host":     cfg.Database.Host,
		"database": cfg.Database.DBName,
	})

	return postgresStore(db, appLogger), nil
}

func postgresStore(db *sql.DB, appLogger logger.Logger) *ledgerStore {
	return &ledgerStore{
		uow:        persistence.NewPostgresUnitOfWork(db, appLogger),
		reader:     persistence.NewPostgresTransactionRepository(db),
		categories: persistence.NewPostgresCategoryOracle(db),
		audit:      persistence.NewPostgresAuditRepository(db),
		close:      db.Close,
	}
}
