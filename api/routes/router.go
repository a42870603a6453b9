// api/routes/router.go
package routes

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"reservely/internal/bookings"
	"reservely/internal/cancellation"
	"reservely/internal/notifications"
	"reservely/internal/seats"
	"reservely/internal/settings"
	"reservely/internal/shared/config"
	"reservely/internal/shared/database"
	"reservely/internal/verification"
	"reservely/pkg/cache"
	"reservely/pkg/logger"
)

// Router holds all route dependencies
type Router struct {
	config *config.Config
	db     *database.DB
	mailer notifications.Mailer
	logger *logger.Logger

	// Shared services for cross-module injection
	settingsService settings.Service
	seatService     seats.Service
	bookingRepo     bookings.Repository
	tokens          *bookings.TokenManager
}

// NewRouter creates a new router instance
func NewRouter(cfg *config.Config, db *database.DB, mailer notifications.Mailer, appLogger *logger.Logger) *Router {
	if appLogger == nil {
		appLogger = logger.GetDefault()
	}
	return &Router{
		config: cfg,
		db:     db,
		mailer: mailer,
		logger: appLogger,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	// Health check and basic info endpoints
	r.setupHealthRoutes(engine)

	// API routes
	api := engine.Group(r.config.GetAPIBasePath())
	{
		// Settings first: the seat and booking modules depend on it
		r.setupSettingsRoutes(api)
		r.setupSeatRoutes(api)
		r.setupBookingRoutes(api)
		r.setupCancellationRoutes(api)
	}
}

// setupHealthRoutes sets up health check and system status routes
func (r *Router) setupHealthRoutes(engine *gin.Engine) {
	engine.GET("/health", func(c *gin.Context) {
		if err := r.db.HealthCheck(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "unhealthy",
				"error":     err.Error(),
				"timestamp": time.Now(),
				"service":   "reservely-backend",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
			"service":   "reservely-backend",
		})
	})

	engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
			"version": r.config.APIVersion,
		})
	})

	engine.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":      "operational",
			"api_version": r.config.APIVersion,
			"timestamp":   time.Now(),
		})
	})
}

// setupSettingsRoutes configures event settings routes
func (r *Router) setupSettingsRoutes(rg *gin.RouterGroup) {
	settingsRepo := settings.NewRepository(r.db.GetPostgreSQL())
	cacheService := cache.NewService(r.db.GetRedis())
	r.settingsService = settings.NewService(settingsRepo, cacheService, r.config.Redis.SettingsCacheTTL)
	settingsController := settings.NewController(r.settingsService)

	settings.SetupSettingsRoutes(rg, settingsController)
}

// setupSeatRoutes configures seat inventory routes
func (r *Router) setupSeatRoutes(rg *gin.RouterGroup) {
	seatRepo := seats.NewRepository(r.db.GetPostgreSQL())
	locker := seats.NewSeatLocker(r.db.GetRedis())
	cacheService := cache.NewService(r.db.GetRedis())
	r.seatService = seats.NewService(seatRepo, locker, r.settingsService, cacheService, r.config.Redis.SeatsCacheTTL)
	seatController := seats.NewController(r.seatService)

	seats.SetupSeatRoutes(rg, seatController)
}

// setupBookingRoutes configures the reservation flow routes
func (r *Router) setupBookingRoutes(rg *gin.RouterGroup) {
	r.bookingRepo = bookings.NewRepository(r.db.GetPostgreSQL())
	r.tokens = bookings.NewTokenManager(r.config.Reservation.TokenSecret)

	pendingStore := bookings.NewRedisPendingStore(r.db.GetRedis())
	verifier := verification.NewService(
		verification.NewRedisStore(r.db.GetRedis()),
		r.config.Reservation.OTPTTL,
		r.config.Reservation.ResendCooldown,
	)

	bookingService := bookings.NewService(
		r.bookingRepo,
		pendingStore,
		r.seatService,
		r.settingsService,
		verifier,
		r.mailer,
		r.tokens,
		r.config.Reservation,
		r.logger,
	)
	bookingController := bookings.NewController(bookingService)

	bookings.SetupBookingRoutes(rg, bookingController)
}

// setupCancellationRoutes configures cancellation routes
func (r *Router) setupCancellationRoutes(rg *gin.RouterGroup) {
	cancellationService := cancellation.NewService(
		r.bookingRepo,
		r.seatService,
		r.mailer,
		r.tokens,
		r.logger,
	)
	cancellationController := cancellation.NewController(cancellationService)

	cancellation.SetupCancellationRoutes(rg, cancellationController)
}
