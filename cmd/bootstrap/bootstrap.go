package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"itp-scheduler/config"
	deliveryHttp "itp-scheduler/internal/delivery/http"
	"itp-scheduler/internal/delivery/http/handler"
	"itp-scheduler/internal/delivery/http/middleware"
	"itp-scheduler/internal/infrastructure/cache"
	"itp-scheduler/internal/infrastructure/database"
	"itp-scheduler/internal/infrastructure/messaging"
	"itp-scheduler/internal/metrics"
	"itp-scheduler/internal/repository"
	"itp-scheduler/internal/service"
	"itp-scheduler/internal/usecase"
	"itp-scheduler/pkg/jwt"
	"itp-scheduler/pkg/validator"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// App holds all dependencies for the application
type App struct {
	Config      *config.Config
	DB          *gorm.DB
	RedisClient *redis.Client
	Publisher   *messaging.Publisher
	Server      *http.Server

	dispatcher   *service.Dispatcher
	locker       *service.BookingLocker
	calendar     usecase.CalendarUsecase
	certificates usecase.CertificateUsecase
	location     *time.Location

	stopSweep context.CancelFunc
	sweepDone sync.WaitGroup
}

// New creates a new App instance with all dependencies initialized
func New() (*App, error) {
	app := &App{}

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	app.Config = cfg

	// Setup logger
	setupLogger(cfg.LogLevel)
	logrus.Info("Configuration loaded successfully")

	loc, err := time.LoadLocation(cfg.App.Timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %q: %w", cfg.App.Timezone, err)
	}
	app.location = loc

	// Initialize database
	db, err := database.NewPostgresConnection(cfg.DB, cfg.App)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	app.DB = db
	if err := database.Migrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	logrus.Info("Database connected successfully")

	// Initialize Redis
	redisClient, err := cache.NewRedisClient(cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	app.RedisClient = redisClient
	if redisClient != nil {
		logrus.Info("Redis connected successfully")
	} else {
		logrus.Info("Redis disabled, using in-process locks and no calendar cache")
	}

	// Initialize RabbitMQ
	publisher, err := messaging.NewPublisher(cfg.RabbitMQ)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	app.Publisher = publisher
	if publisher != nil {
		logrus.Info("RabbitMQ connected successfully")
	} else {
		logrus.Info("RabbitMQ disabled, notifications are logged only")
	}

	// Initialize all layers
	app.Server = app.initializeServer(cfg, db, redisClient, publisher)

	return app, nil
}

// setupLogger configures the logrus logger
func setupLogger(level string) {
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetOutput(os.Stdout)

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logrus.SetLevel(lvl)
}

// initializeServer creates and configures the HTTP server
func (app *App) initializeServer(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, publisher *messaging.Publisher) *http.Server {
	log := logrus.StandardLogger()

	// Initialize JWT service
	jwtService := jwt.NewJWTService(cfg.JWT)

	// Initialize validator
	customValidator := validator.NewValidator()

	// Initialize metrics
	m := metrics.New()

	// Initialize repositories
	appointmentRepo := repository.NewAppointmentRepository()
	bookingDayRepo := repository.NewBookingDayRepository()
	clientRepo := repository.NewClientRepository()
	vehicleRepo := repository.NewVehicleRepository()
	workingHoursRepo := repository.NewWorkingHoursRepository()
	holidayRepo := repository.NewHolidayRepository()
	documentRepo := repository.NewDocumentRepository()
	auditLogRepo := repository.NewAuditLogRepository()

	// Initialize services
	var notifier service.Notifier
	if publisher != nil {
		notifier = service.NewQueueNotifier(publisher, cfg.Notification, cfg.App.PublicBaseURL)
	} else {
		notifier = service.NewLogNotifier(log, cfg.Notification, cfg.App.PublicBaseURL)
	}
	app.dispatcher = service.NewDispatcher(notifier, log, m, cfg.Notification.SendTimeout)
	app.locker = service.NewBookingLocker(redisClient, log, cfg.Scheduling.LockTTL)
	calendarCache := service.NewCalendarCache(redisClient, log)
	auditService := service.NewAuditService(log, auditLogRepo)

	// Initialize usecases
	resolver := usecase.NewClientResolver(log, clientRepo, vehicleRepo)
	appointmentUsecase := usecase.NewAppointmentUsecase(db, log, appointmentRepo, bookingDayRepo, clientRepo,
		workingHoursRepo, holidayRepo, calendarCache, app.locker, auditService, app.dispatcher, m, cfg.Scheduling, app.location)
	lifecycleUsecase := usecase.NewLifecycleUsecase(db, log, appointmentRepo, documentRepo, resolver,
		auditService, app.dispatcher, m, cfg.Scheduling, app.location)
	approvalUsecase := usecase.NewApprovalUsecase(db, log, appointmentRepo, lifecycleUsecase)
	app.calendar = usecase.NewCalendarUsecase(db, log, workingHoursRepo, holidayRepo, appointmentRepo,
		calendarCache, auditService, app.location)
	app.certificates = usecase.NewCertificateUsecase(db, log, appointmentRepo, vehicleRepo, documentRepo,
		app.dispatcher, m, cfg.Scheduling, app.location)

	// Initialize handlers
	appointmentHandler := handler.NewAppointmentHandler(appointmentUsecase, customValidator)
	lifecycleHandler := handler.NewLifecycleHandler(lifecycleUsecase, customValidator)
	calendarHandler := handler.NewCalendarHandler(app.calendar, customValidator)
	approvalHandler := handler.NewApprovalHandler(approvalUsecase, log)
	certificateHandler := handler.NewCertificateHandler(app.certificates)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(jwtService, redisClient, log)
	corsMiddleware := middleware.NewCORSMiddleware(cfg.App.CORSOrigin)

	// Initialize router
	router := deliveryHttp.NewRouter(appointmentHandler, lifecycleHandler, calendarHandler, approvalHandler,
		certificateHandler, authMiddleware, corsMiddleware, m.Handler())
	httpRouter := router.Setup()

	// Create server
	serverAddr := fmt.Sprintf(":%s", cfg.App.Port)
	return &http.Server{
		Addr:              serverAddr,
		Handler:           httpRouter,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// seed fills in default working hours and the public holidays of the
// current and next year. Both steps are idempotent.
func (app *App) seed(ctx context.Context) {
	if created, err := app.calendar.SeedWorkingHours(ctx); err != nil {
		logrus.Errorf("Failed to seed working hours: %v", err)
	} else if created > 0 {
		logrus.Infof("Seeded %d working hours rows", created)
	}

	year := time.Now().In(app.location).Year()
	for _, y := range []int{year, year + 1} {
		created, err := app.calendar.SeedHolidays(ctx, y)
		if err != nil {
			logrus.Errorf("Failed to seed holidays for %d: %v", y, err)
			continue
		}
		if created.Total > 0 {
			logrus.Infof("Seeded %d holidays for %d", created.Total, y)
		}
	}
}

// startSweep runs the certificate status sweep once at startup and then on
// every SweepInterval tick until stopped.
func (app *App) startSweep() {
	ctx, cancel := context.WithCancel(context.Background())
	app.stopSweep = cancel

	interval := app.Config.Scheduling.SweepInterval
	app.sweepDone.Add(1)
	go func() {
		defer app.sweepDone.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			summary, err := app.certificates.RefreshStatuses(ctx)
			if err != nil {
				logrus.Errorf("Certificate sweep failed: %v", err)
			} else {
				logrus.WithFields(logrus.Fields{
					"checked":       summary.Checked,
					"changed":       summary.Changed,
					"expiring_soon": summary.ExpiringSoon,
					"expired":       summary.Expired,
				}).Info("Certificate sweep finished")
			}

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
}

// Run starts the HTTP server and handles graceful shutdown
func (app *App) Run() {
	app.seed(context.Background())
	app.startSweep()

	// Start server in goroutine
	go func() {
		logrus.Infof("Server starting on port %s", app.Config.App.Port)
		logrus.Infof("Environment: %s", app.Config.App.Env)
		if err := app.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	app.waitForShutdown()
}

// waitForShutdown blocks until an interrupt signal is received
func (app *App) waitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")

	// Create shutdown context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Shutdown HTTP server gracefully
	if err := app.Server.Shutdown(ctx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	// Close connections
	app.Close()

	logrus.Info("Server shutdown complete")
}

// Close stops background work and closes all connections.
func (app *App) Close() {
	if app.stopSweep != nil {
		app.stopSweep()
		app.sweepDone.Wait()
	}

	// Pending notifications are flushed before the broker goes away.
	if app.dispatcher != nil {
		app.dispatcher.Stop()
	}
	if app.locker != nil {
		app.locker.Stop()
	}

	if app.Publisher != nil {
		if err := app.Publisher.Close(); err != nil {
			logrus.Warnf("Failed to close RabbitMQ publisher: %v", err)
		}
	}

	// Close database connection
	if app.DB != nil {
		sqlDB, err := app.DB.DB()
		if err == nil {
			sqlDB.Close()
		}
	}

	// Close Redis connection
	if app.RedisClient != nil {
		app.RedisClient.Close()
	}
}
