package di

import (
	"github.com/prohmpiriya/hotel-booking-engine/internal/domain"
	"github.com/prohmpiriya/hotel-booking-engine/internal/gateway"
	"github.com/prohmpiriya/hotel-booking-engine/internal/handler"
	"github.com/prohmpiriya/hotel-booking-engine/internal/repository"
	"github.com/prohmpiriya/hotel-booking-engine/internal/service"
	"github.com/prohmpiriya/hotel-booking-engine/internal/worker"
	"github.com/prohmpiriya/hotel-booking-engine/pkg/config"
	"github.com/prohmpiriya/hotel-booking-engine/pkg/database"
	"github.com/prohmpiriya/hotel-booking-engine/pkg/logger"
	pkgredis "github.com/prohmpiriya/hotel-booking-engine/pkg/redis"
	"go.uber.org/zap"
)

// Container holds all dependencies for the booking engine
type Container struct {
	// Infrastructure
	DB             *database.PostgresDB
	Redis          *pkgredis.Client
	EventPublisher service.EventPublisher

	// Repositories
	InventoryRepo repository.InventoryRepository
	BookingRepo   repository.BookingRepository
	CouponRepo    repository.CouponRepository
	PricingRepo   repository.PricingRepository
	PaymentRepo   repository.PaymentRepository

	// Services
	AvailabilityService service.AvailabilityService
	OccupancyService    service.OccupancyService
	PricingService      service.PricingService
	CouponService       service.CouponService
	BookingService      service.BookingService
	PaymentService      service.PaymentService

	// Workers
	SessionSweeper *worker.SessionSweeper

	// Handlers
	HealthHandler *handler.HealthHandler
	Handlers      *handler.Handlers
}

// ContainerConfig contains configuration for building the container
type ContainerConfig struct {
	DB             *database.PostgresDB
	Redis          *pkgredis.Client
	EventPublisher service.EventPublisher
	Verifier       gateway.TransactionVerifier
	Engine         *service.EngineConfig
	Sweeper        *worker.SessionSweeperConfig
}

// NewContainer creates a new dependency injection container. Without a
// database the repositories are in-memory.
func NewContainer(cfg *ContainerConfig) *Container {
	c := &Container{
		DB:             cfg.DB,
		Redis:          cfg.Redis,
		EventPublisher: cfg.EventPublisher,
	}
	if c.EventPublisher == nil {
		c.EventPublisher = service.NewNoOpEventPublisher()
	}

	// Initialize repositories
	if c.DB != nil {
		pool := c.DB.Pool()
		c.InventoryRepo = repository.NewPostgresInventoryRepository(pool)
		c.BookingRepo = repository.NewPostgresBookingRepository(pool)
		c.CouponRepo = repository.NewPostgresCouponRepository(pool)
		c.PricingRepo = repository.NewPostgresPricingRepository(pool)
		c.PaymentRepo = repository.NewPostgresPaymentRepository(pool)
	} else {
		store := repository.NewMemoryStore()
		c.InventoryRepo = store.Inventory
		c.BookingRepo = store.Bookings
		c.CouponRepo = store.Coupons
		c.PricingRepo = store.Pricing
		c.PaymentRepo = store.Payments
		logger.Get().Warn("Using in-memory repositories (data will not persist)")
	}

	// Initialize services
	c.AvailabilityService = service.NewAvailabilityService(c.InventoryRepo, c.BookingRepo)
	c.OccupancyService = service.NewOccupancyService(c.InventoryRepo, c.BookingRepo)
	c.PricingService = service.NewPricingService(c.InventoryRepo, c.PricingRepo, c.OccupancyService, cfg.Engine)
	c.CouponService = service.NewCouponService(c.CouponRepo, c.InventoryRepo, cfg.Engine)
	c.BookingService = service.NewBookingService(
		c.BookingRepo,
		c.InventoryRepo,
		c.AvailabilityService,
		c.PricingService,
		c.CouponService,
		c.EventPublisher,
		cfg.Engine,
	)
	c.PaymentService = service.NewPaymentService(c.PaymentRepo, c.BookingRepo, cfg.Verifier, c.EventPublisher, cfg.Engine)

	// Initialize workers
	var locker worker.Locker
	if c.Redis != nil {
		locker = worker.NewRedisLocker(c.Redis)
	}
	c.SessionSweeper = worker.NewSessionSweeper(c.PaymentService, locker, cfg.Sweeper)

	// Initialize handlers
	components := map[string]handler.HealthChecker{
		"database": nil,
		"redis":    nil,
		"kafka":    nil,
	}
	if c.DB != nil {
		components["database"] = c.DB
	}
	if c.Redis != nil {
		components["redis"] = c.Redis
	}
	if checker, ok := c.EventPublisher.(handler.HealthChecker); ok {
		components["kafka"] = checker
	}
	c.HealthHandler = handler.NewHealthHandler(components)

	c.Handlers = &handler.Handlers{
		Pricing: handler.NewPricingHandler(c.PricingService, c.CouponService, c.AvailabilityService),
		Booking: handler.NewBookingHandler(c.BookingService),
		Payment: handler.NewPaymentHandler(c.PaymentService, c.BookingService),
		Admin:   handler.NewAdminHandler(c.PricingService, c.CouponService, c.BookingService, c.OccupancyService),
	}

	return c
}

// EngineConfigFrom maps loaded settings onto the engine configuration
func EngineConfigFrom(cfg *config.Config) *service.EngineConfig {
	return &service.EngineConfig{
		GSTRate:              cfg.Engine.GSTRate,
		PaymentSessionWindow: cfg.Engine.PaymentSessionWindow,
		Merchant: domain.Merchant{
			ID:   cfg.Engine.MerchantID,
			Name: cfg.Engine.MerchantName,
		},
		Currency:               cfg.Engine.Currency,
		CouponSingleUsePerUser: cfg.Engine.CouponSingleUsePerUser,
		SweepBatchSize:         cfg.Sweeper.BatchSize,
	}
}

// SweeperConfigFrom maps loaded settings onto the sweeper configuration
func SweeperConfigFrom(cfg *config.Config) *worker.SessionSweeperConfig {
	out := worker.DefaultSessionSweeperConfig()
	if cfg.Sweeper.Interval > 0 {
		out.Interval = cfg.Sweeper.Interval
	}
	if cfg.Sweeper.LockTTL > 0 {
		out.LockTTL = cfg.Sweeper.LockTTL
	}
	return out
}

// NewVerifier routes card payments to Stripe when a key is configured and
// everything else to staff attestation
func NewVerifier(cfg *config.Config) gateway.TransactionVerifier {
	registry := gateway.NewRegistry(gateway.NewManualVerifier())
	if cfg.Stripe.SecretKey == "" {
		return registry
	}

	stripeVerifier, err := gateway.NewStripeVerifier(&gateway.StripeVerifierConfig{SecretKey: cfg.Stripe.SecretKey})
	if err != nil {
		logger.Get().Warn("Stripe verifier unavailable, card payments fall back to attestation", zap.Error(err))
		return registry
	}
	registry.Register(domain.PaymentMethodCard, stripeVerifier)
	logger.Get().Info("Card payments verified against Stripe")
	return registry
}
