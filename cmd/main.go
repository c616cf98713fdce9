package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	cancelBookingHandler "github.com/m04kA/SMC-ParkingService/internal/api/handlers/cancel_booking"
	checkinBookingHandler "github.com/m04kA/SMC-ParkingService/internal/api/handlers/checkin_booking"
	checkoutBookingHandler "github.com/m04kA/SMC-ParkingService/internal/api/handlers/checkout_booking"
	createBookingHandler "github.com/m04kA/SMC-ParkingService/internal/api/handlers/create_booking"
	getBookingHandler "github.com/m04kA/SMC-ParkingService/internal/api/handlers/get_booking"
	getOrgStatusHandler "github.com/m04kA/SMC-ParkingService/internal/api/handlers/get_org_status"
	getUserBookingsHandler "github.com/m04kA/SMC-ParkingService/internal/api/handlers/get_user_bookings"
	reconcileAllHandler "github.com/m04kA/SMC-ParkingService/internal/api/handlers/reconcile_all"
	reconcileOrganizationHandler "github.com/m04kA/SMC-ParkingService/internal/api/handlers/reconcile_organization"
	"github.com/m04kA/SMC-ParkingService/internal/api/middleware"
	"github.com/m04kA/SMC-ParkingService/internal/config"
	"github.com/m04kA/SMC-ParkingService/internal/infra/cache/orgstatus"
	bookingRepo "github.com/m04kA/SMC-ParkingService/internal/infra/storage/booking"
	organizationRepo "github.com/m04kA/SMC-ParkingService/internal/infra/storage/organization"
	reconciliationRepo "github.com/m04kA/SMC-ParkingService/internal/infra/storage/reconciliation"
	bookingsService "github.com/m04kA/SMC-ParkingService/internal/service/bookings"
	statusService "github.com/m04kA/SMC-ParkingService/internal/service/status"
	createBookingUC "github.com/m04kA/SMC-ParkingService/internal/usecase/create_booking"
	reconcileUC "github.com/m04kA/SMC-ParkingService/internal/usecase/reconcile"
	"github.com/m04kA/SMC-ParkingService/pkg/dbmetrics"
	"github.com/m04kA/SMC-ParkingService/pkg/logger"
	"github.com/m04kA/SMC-ParkingService/pkg/metrics"
	"github.com/m04kA/SMC-ParkingService/pkg/simpletxmanager"
	"github.com/m04kA/SMC-ParkingService/pkg/txmanager"
)

func main() {
	// Загружаем конфигурацию
	cfg, err := config.Load("config.toml")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Инициализируем логгер
	log, err := logger.New(cfg.Logs.File, cfg.Logs.Level)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()

	log.Info("Starting SMC-ParkingService...")
	log.Info("Configuration loaded from config.toml")

	// Инициализируем метрики (если включены)
	var metricsCollector *metrics.Metrics
	stopMetricsCh := make(chan struct{})

	if cfg.Metrics.Enabled {
		metricsCollector = metrics.New(cfg.Metrics.ServiceName)
		log.Info("Metrics enabled at %s", cfg.Metrics.Path)
	}

	// Подключаемся к базе данных
	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Fatal("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Настраиваем connection pool
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.Database.ConnMaxLifetime) * time.Second)

	// Проверяем соединение
	if err := db.Ping(); err != nil {
		log.Fatal("Failed to ping database: %v", err)
	}
	log.Info("Successfully connected to database (host=%s, port=%d, db=%s)",
		cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName)

	// Подключаемся к Redis (кэш витрины занятости)
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatal("Failed to ping redis: %v", err)
	}
	log.Info("Successfully connected to redis (addr=%s, status_ttl=%s)",
		cfg.Redis.Addr, cfg.Redis.StatusTTL())

	statusCache := orgstatus.New(redisClient, cfg.Redis.StatusTTL(), log)

	// Инициализируем репозитории (с метриками или без)
	var (
		bookingRepository        *bookingRepo.Repository
		organizationRepository   *organizationRepo.Repository
		reconciliationRepository *reconciliationRepo.Repository
	)

	type TxManager interface {
		DoSerializable(ctx context.Context, fn func(ctx context.Context) error) error
	}
	var txMgr TxManager

	if cfg.Metrics.Enabled {
		wrappedDB := dbmetrics.WrapWithDefault(db, metricsCollector, cfg.Metrics.ServiceName, stopMetricsCh)
		log.Info("Database metrics collection started")

		bookingRepository = bookingRepo.NewRepository(wrappedDB)
		organizationRepository = organizationRepo.NewRepository(wrappedDB)
		reconciliationRepository = reconciliationRepo.NewRepository(wrappedDB)
		txMgr = txmanager.NewTransactionManager(wrappedDB)
	} else {
		bookingRepository = bookingRepo.NewRepository(db)
		organizationRepository = organizationRepo.NewRepository(db)
		reconciliationRepository = reconciliationRepo.NewRepository(db)
		txMgr = simpletxmanager.NewTransactionManager(db)
	}

	// Типизированный nil-указатель не должен попасть в интерфейс коллектора
	var reconcileMetrics reconcileUC.MetricsCollector
	if cfg.Metrics.Enabled {
		reconcileMetrics = metricsCollector
	}

	// Инициализируем сервисы
	bookingSvc := bookingsService.NewService(
		bookingRepository,
		organizationRepository,
		statusCache,
		txMgr,
		log,
	)
	statusSvc := statusService.NewService(
		bookingRepository,
		organizationRepository,
		statusCache,
		log,
	)

	// Инициализируем use cases
	createBookingUseCase := createBookingUC.NewUseCase(
		bookingRepository,
		organizationRepository,
		statusCache,
		txMgr,
		cfg.Lifecycle.HourlyRate,
		log,
	)

	reconcileUseCase := reconcileUC.NewUseCase(
		bookingRepository,
		organizationRepository,
		reconciliationRepository,
		statusCache,
		txMgr,
		reconcileMetrics,
		time.Duration(cfg.Lifecycle.NoShowGraceMinutes)*time.Minute,
		time.Duration(cfg.Lifecycle.OverstayGraceMinutes)*time.Minute,
		log,
	)

	// Инициализируем handlers
	createBooking := createBookingHandler.NewHandler(createBookingUseCase, log)
	getBooking := getBookingHandler.NewHandler(bookingSvc, log)
	checkinBooking := checkinBookingHandler.NewHandler(bookingSvc, log)
	checkoutBooking := checkoutBookingHandler.NewHandler(bookingSvc, log)
	cancelBooking := cancelBookingHandler.NewHandler(bookingSvc, log)
	getUserBookings := getUserBookingsHandler.NewHandler(bookingSvc, log)
	getOrgStatus := getOrgStatusHandler.NewHandler(statusSvc, log)
	reconcileAll := reconcileAllHandler.NewHandler(reconcileUseCase, log)
	reconcileOrganization := reconcileOrganizationHandler.NewHandler(reconcileUseCase, log)

	// Настраиваем роутер
	r := mux.NewRouter()

	// Добавляем metrics middleware (если метрики включены)
	if cfg.Metrics.Enabled {
		r.Use(middleware.MetricsMiddleware(metricsCollector, cfg.Metrics.ServiceName))
		log.Info("HTTP metrics middleware enabled")

		r.Handle(cfg.Metrics.Path, promhttp.Handler()).Methods(http.MethodGet)
		log.Info("Prometheus metrics endpoint exposed at %s", cfg.Metrics.Path)
	}

	// API prefix
	api := r.PathPrefix("/api/v1").Subrouter()

	// ============================================================
	// PUBLIC ROUTES (без аутентификации)
	// ============================================================

	// Витрина занятости организации
	api.HandleFunc("/organizations/{orgId}/status", getOrgStatus.Handle).Methods(http.MethodGet)

	// ============================================================
	// PROTECTED ROUTES (требуют X-User-ID header)
	// ============================================================

	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.Auth)

	// --- Бронирования ---
	// Аллокация слота и создание бронирования
	protected.HandleFunc("/bookings", createBooking.Handle).Methods(http.MethodPost)

	// Получение бронирования по ID
	protected.HandleFunc("/bookings/{bookingId}", getBooking.Handle).Methods(http.MethodGet)

	// Въезд: активация подтвержденного бронирования
	protected.HandleFunc("/bookings/{bookingId}/checkin", checkinBooking.Handle).Methods(http.MethodPatch)

	// Выезд: завершение бронирования и освобождение слота
	protected.HandleFunc("/bookings/{bookingId}/checkout", checkoutBooking.Handle).Methods(http.MethodPatch)

	// Отмена бронирования
	protected.HandleFunc("/bookings/{bookingId}/cancel", cancelBooking.Handle).Methods(http.MethodPatch)

	// История бронирований пользователя
	protected.HandleFunc("/users/{userId}/bookings", getUserBookings.Handle).Methods(http.MethodGet)

	// --- Администрирование ---
	// Реконсиляция всех организаций
	protected.HandleFunc("/admin/reconcile", reconcileAll.Handle).Methods(http.MethodPost)

	// Реконсиляция одной организации
	protected.HandleFunc("/admin/organizations/{orgId}/reconcile",
		reconcileOrganization.Handle).Methods(http.MethodPost)

	// Запускаем фоновую реконсиляцию
	workerCtx, stopWorker := context.WithCancel(context.Background())
	go reconcileUseCase.RunPeriodic(workerCtx, cfg.Lifecycle.ReconcileInterval())

	// Создаем HTTP сервер
	addr := fmt.Sprintf(":%d", cfg.Server.HTTPPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info("Starting server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed to start: %v", err)
		}
	}()

	// Ожидаем сигнал завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	// Останавливаем фоновую реконсиляцию
	stopWorker()

	// Останавливаем сбор метрик connection pool
	if cfg.Metrics.Enabled {
		close(stopMetricsCh)
		log.Info("Metrics collection stopped")
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown: %v", err)
	}

	log.Info("Server stopped gracefully")
}
