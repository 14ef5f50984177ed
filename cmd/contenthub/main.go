// Точка входа ContentHub — backend админ-панели управления контентом.
// Загружает конфигурацию, подключается к PostgreSQL, применяет миграции,
// создаёт клиент record store, сервисный слой и API handlers,
// запускает фоновые задачи (уборка preview-токенов, topologymetrics),
// HTTP-сервер с JWT middleware и graceful shutdown.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/stdlib"

	"github.com/devalphasystem/contenthub/internal/api/handlers"
	"github.com/devalphasystem/contenthub/internal/api/middleware"
	"github.com/devalphasystem/contenthub/internal/config"
	"github.com/devalphasystem/contenthub/internal/database"
	"github.com/devalphasystem/contenthub/internal/recordstore"
	"github.com/devalphasystem/contenthub/internal/repository"
	"github.com/devalphasystem/contenthub/internal/server"
	"github.com/devalphasystem/contenthub/internal/service"
	"github.com/devalphasystem/contenthub/internal/session"
)

func main() {
	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("ContentHub запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
	)

	// Предупреждения о дефолтных значениях topologymetrics
	if os.Getenv("CH_DEPHEALTH_GROUP") == "" {
		logger.Warn("CH_DEPHEALTH_GROUP не задана, используется значение по умолчанию",
			slog.String("default", cfg.DephealthGroup),
		)
	}

	// 3. Применение миграций БД
	logger.Info("Применение миграций БД...")
	if err := database.Migrate(cfg, logger); err != nil {
		logger.Error("Ошибка миграций БД", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Подключение к PostgreSQL (pgxpool)
	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка подключения к PostgreSQL", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	// 4.1 Адаптер pgxpool → *sql.DB для topologymetrics (connection pool mode).
	// Проверка здоровья PostgreSQL будет идти через существующий пул соединений,
	// что позволяет обнаружить его исчерпание.
	pgDB := stdlib.OpenDBFromPool(pool)
	defer pgDB.Close()

	// 5. Клиент record store (кэширует админ-токен, ForceRefresh при 401)
	storeClient := recordstore.New(
		cfg.RecordStoreURL,
		cfg.RecordStoreIdentity,
		cfg.RecordStorePassword,
		cfg.RecordStoreTokenTTL,
		logger,
	)
	logger.Info("Клиент record store создан",
		slog.String("url", cfg.RecordStoreURL),
	)

	// 6. Repositories (локальные журналы просмотров)
	viewLogRepo := repository.NewViewLogRepository(pool)
	durationRepo := repository.NewViewDurationRepository(pool)

	// 7. Session Manager — шифрование cookie-сессий предпросмотра (AES-256-GCM)
	sessionMgr, err := session.NewManager(cfg.SessionSecret, cfg.SecureCookie())
	if err != nil {
		logger.Error("Ошибка создания Session Manager", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if cfg.SessionSecret == "" {
		logger.Warn("CH_SESSION_SECRET не задан, сессии предпросмотра не сохраняются между рестартами")
	}

	// 8. Services
	auditSvc := service.NewAuditRecorder(storeClient, cfg.AuditEnabled, logger)
	entriesSvc := service.NewEntriesService(storeClient, auditSvc, viewLogRepo, durationRepo, logger)
	previewSvc := service.NewPreviewService(
		storeClient, auditSvc,
		cfg.BaseURL, cfg.PreviewExpiry, cfg.SecretSalt,
		logger,
	)
	viewsSvc := service.NewViewsService(
		storeClient, viewLogRepo, durationRepo,
		cfg.SecretSalt, cfg.ViewTimeframe, cfg.BotUserAgents,
		logger,
	)
	versionSvc := service.NewVersionService(config.Version, cfg.VersionCheckURL, cfg.VersionCacheTTL, logger)

	// 9. Фоновая уборка preview-токенов и журнала просмотров
	sweepSvc := service.NewSweepService(
		storeClient, viewLogRepo,
		cfg.SweepPageSize, cfg.SweepInterval, cfg.ViewLogRetention,
		logger,
	)

	// 10. Readiness checkers (PostgreSQL + record store + IdP)
	pgChecker := database.NewReadinessChecker(pool)
	idpChecker, err := middleware.NewIdPReadinessChecker(cfg.JWTJWKSURL, cfg.CACertPath, 5*time.Second)
	if err != nil {
		logger.Error("Ошибка создания IdP readiness checker", slog.String("error", err.Error()))
		os.Exit(1)
	}
	healthHandler := handlers.NewHealthHandler(pgChecker, storeClient, idpChecker)

	// 11. API handler
	apiHandler := handlers.NewAPIHandler(
		healthHandler,
		entriesSvc,
		previewSvc,
		viewsSvc,
		auditSvc,
		versionSvc,
		sessionMgr,
		logger,
	)

	// 12. JWT middleware
	jwtAuth, err := middleware.NewJWTAuth(
		cfg.JWTJWKSURL,
		cfg.CACertPath,
		cfg.JWTIssuer,
		cfg.RoleAdminGroups,
		cfg.RoleReadonlyGroups,
		logger,
	)
	if err != nil {
		logger.Error("Ошибка создания JWT middleware", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer jwtAuth.Close()
	logger.Info("JWT middleware инициализирован",
		slog.String("jwks_url", cfg.JWTJWKSURL),
		slog.String("issuer", cfg.JWTIssuer),
	)

	// 13. Запуск фоновых задач
	sweepSvc.Start(ctx)

	// 13.1 topologymetrics — мониторинг зависимостей
	// (PostgreSQL + record store + IdP)
	dephealthSvc, dephealthErr := service.NewDephealthService(
		"contenthub",
		cfg.DephealthGroup,
		pgDB,
		cfg.DatabaseURL(),
		storeClient.HealthURL(),
		cfg.JWTJWKSURL,
		cfg.DephealthCheckInterval,
		logger,
	)
	if dephealthErr != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", dephealthErr.Error()),
		)
	} else {
		if startErr := dephealthSvc.Start(ctx); startErr != nil {
			logger.Warn("Ошибка запуска topologymetrics",
				slog.String("error", startErr.Error()),
			)
		} else {
			logger.Info("topologymetrics запущен",
				slog.String("group", cfg.DephealthGroup),
				slog.String("check_interval", cfg.DephealthCheckInterval.String()),
			)
		}
	}

	// 14. Создание и запуск HTTP-сервера
	srv := server.New(cfg, logger, apiHandler, jwtAuth)
	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 15. Graceful shutdown фоновых задач
	logger.Info("Останавливаем фоновые задачи...")

	if dephealthSvc != nil {
		dephealthSvc.Stop()
	}
	sweepSvc.Stop()

	logger.Info("ContentHub остановлен")
}
