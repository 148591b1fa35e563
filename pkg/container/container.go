package container

import (
	"context"
	"fmt"
	"time"

	"promotracker-backend/internal/config"
	infracache "promotracker-backend/internal/infrastructure/cache"
	"promotracker-backend/internal/infrastructure/database"
	"promotracker-backend/pkg/cache"
	"promotracker-backend/pkg/logger"

	accounthandler "promotracker-backend/internal/domains/account/handler"
	accountrepo "promotracker-backend/internal/domains/account/repository"
	accountservice "promotracker-backend/internal/domains/account/service"
	deposithandler "promotracker-backend/internal/domains/deposit/handler"
	depositrepo "promotracker-backend/internal/domains/deposit/repository"
	depositservice "promotracker-backend/internal/domains/deposit/service"
	promotionhandler "promotracker-backend/internal/domains/promotion/handler"
	promotionrepo "promotracker-backend/internal/domains/promotion/repository"
	promotionservice "promotracker-backend/internal/domains/promotion/service"
)

// Container is the root of the dependency graph. Initialization order is
// config, infrastructure, repositories, services, handlers.
type Container struct {
	Config *config.Config
	DB     *database.PostgresDB
	Cache  cache.Cache

	TxManager     promotionrepo.TransactionManager
	PromotionRepo promotionrepo.PromotionRepository
	AccountRepo   accountrepo.AccountRepository
	DepositRepo   depositrepo.DepositRepository

	PromotionService     promotionservice.PromotionService
	QualificationService promotionservice.QualificationService
	AccountService       accountservice.AccountService
	DepositService       depositservice.DepositService

	PromotionHandler     *promotionhandler.PromotionHandler
	QualificationHandler *promotionhandler.QualificationHandler
	AccountHandler       *accounthandler.AccountHandler
	DepositHandler       *deposithandler.DepositHandler
}

// NewContainer builds and wires the whole application.
func NewContainer() (*Container, error) {
	c := &Container{}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	c.Config = cfg
	logger.Init(cfg.App.Environment)

	dbConfig, err := config.LoadDatabaseConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load database config: %w", err)
	}
	db := database.NewPostgresDB(dbConfig)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := db.Connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.HealthCheck(context.Background()); err != nil {
		return nil, fmt.Errorf("database health check failed: %w", err)
	}
	c.DB = db

	redisCache := infracache.NewRedisCache(cfg.Redis.Host, cfg.Redis.Password, cfg.Redis.DB)
	if err := redisCache.Connect(context.Background()); err != nil {
		// A cold cache degrades reads, it does not block startup.
		logger.Warn("redis connection failed", map[string]interface{}{"error": err.Error()})
	}
	c.Cache = redisCache

	c.initRepositories()
	c.initServices()
	c.initHandlers()

	logger.Info("container initialized", map[string]interface{}{
		"environment": cfg.App.Environment,
	})
	return c, nil
}

func (c *Container) initRepositories() {
	pool := c.DB.Pool
	c.TxManager = promotionrepo.NewPostgresTransactionManager(pool)
	c.PromotionRepo = promotionrepo.NewPostgresPromotionRepository(pool)
	c.AccountRepo = accountrepo.NewPostgresAccountRepository(pool)
	c.DepositRepo = depositrepo.NewPostgresDepositRepository(pool)
}

func (c *Container) initServices() {
	cacheTTL := time.Duration(c.Config.Cache.PromotionTTLSeconds) * time.Second

	c.PromotionService = promotionservice.NewPromotionService(c.PromotionRepo, c.Cache, cacheTTL)
	c.QualificationService = promotionservice.NewQualificationService(
		c.TxManager, c.PromotionRepo, c.AccountRepo, c.DepositRepo, c.Cache,
	)
	c.AccountService = accountservice.NewAccountService(c.AccountRepo)
	c.DepositService = depositservice.NewDepositService(c.DepositRepo)
}

func (c *Container) initHandlers() {
	c.PromotionHandler = promotionhandler.NewPromotionHandler(c.PromotionService)
	c.QualificationHandler = promotionhandler.NewQualificationHandler(c.QualificationService)
	c.AccountHandler = accounthandler.NewAccountHandler(c.AccountService)
	c.DepositHandler = deposithandler.NewDepositHandler(c.DepositService, c.QualificationService)
}

// Close releases infrastructure connections.
func (c *Container) Close() {
	if c.DB != nil {
		c.DB.Close()
	}
	if rc, ok := c.Cache.(*infracache.RedisCache); ok {
		if err := rc.Close(); err != nil {
			logger.Warn("failed to close redis", map[string]interface{}{"error": err.Error()})
		}
	}
}
