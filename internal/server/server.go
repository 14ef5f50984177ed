// Пакет server — HTTP-сервер ContentHub с graceful shutdown.
// Без TLS — HTTP внутри кластера, TLS termination на API Gateway.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/devalphasystem/contenthub/internal/api/handlers"
	"github.com/devalphasystem/contenthub/internal/api/middleware"
	"github.com/devalphasystem/contenthub/internal/config"
	"github.com/devalphasystem/contenthub/internal/domain/rbac"
)

// Server — HTTP-сервер ContentHub.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	cfg        *config.Config
}

// New создаёт HTTP-сервер с настроенными маршрутами и middleware.
// jwtAuth может быть nil — тогда админ-API работает без аутентификации
// (только для тестирования).
func New(cfg *config.Config, logger *slog.Logger, handler *handlers.APIHandler, jwtAuth *middleware.JWTAuth) *Server {
	router := NewRouter(handler, jwtAuth, logger)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
		cfg:        cfg,
	}
}

// NewRouter собирает chi-роутер ContentHub.
// Вынесен отдельно для httptest-тестов обработчиков.
func NewRouter(handler *handlers.APIHandler, jwtAuth *middleware.JWTAuth, logger *slog.Logger) *chi.Mux {
	router := chi.NewRouter()

	// Глобальные middleware (применяются ко ВСЕМ маршрутам)
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.RequestLogger(logger))

	// Публичные endpoints: probes, метрики, предпросмотр, учёт просмотров.
	// Health и metrics проверяются Kubernetes напрямую, без API Gateway.
	router.Get("/health/live", handler.HealthLive)
	router.Get("/health/ready", handler.HealthReady)
	router.Get("/metrics", handler.GetMetrics)

	router.Get("/preview/{token}", handler.ResolvePreview)
	router.Post("/preview/{token}/password", handler.VerifyPreviewPassword)

	// Учёт просмотров: токен опционален — аутентифицированные просмотры
	// из админки не засчитываются.
	router.Route("/public/entries/{id}", func(r chi.Router) {
		if jwtAuth != nil {
			r.Use(jwtAuth.OptionalMiddleware())
		}
		r.Post("/view", handler.RecordView)
		r.Post("/duration", handler.RecordDuration)
		r.Post("/feedback", handler.RecordFeedback)
	})

	// Админ-API: JWT обязателен. Чтение — readonly и admin,
	// мутации — только admin.
	router.Route("/api/v1", func(r chi.Router) {
		if jwtAuth != nil {
			r.Use(jwtAuth.Middleware())
		}

		readAny := middleware.RequireRole(rbac.RoleReadonly, rbac.RoleAdmin)
		adminOnly := middleware.RequireRole(rbac.RoleAdmin)

		r.Group(func(r chi.Router) {
			r.Use(readAny)
			r.Get("/entries", handler.ListEntries)
			r.Get("/entries/{id}", handler.GetEntry)
			r.Get("/archive", handler.ListArchive)
			r.Get("/archive/{id}", handler.GetArchivedEntry)
			r.Get("/system/version", handler.GetVersion)
			r.Get("/audit-logs/status", handler.AuditStatus)
		})

		r.Group(func(r chi.Router) {
			r.Use(adminOnly)
			r.Post("/entries", handler.CreateEntry)
			r.Put("/entries/{id}", handler.UpdateEntry)
			r.Delete("/entries/{id}", handler.DeleteEntry)
			r.Post("/entries/{id}/publish-staged", handler.PublishStaged)
			r.Post("/entries/{id}/archive", handler.ArchiveEntry)
			r.Post("/entries/{id}/preview", handler.IssuePreview)
			r.Delete("/entries/{id}/view-logs", handler.ClearEntryViewLogs)
			r.Post("/entries/bulk", handler.BulkAction)

			r.Post("/archive/{id}/unarchive", handler.UnarchiveEntry)
			r.Delete("/archive/{id}", handler.DeleteArchivedEntry)

			r.Get("/audit-logs", handler.ListAuditLogs)
			r.Delete("/audit-logs", handler.ClearAuditLogs)
		})
	})

	return router
}

// Run запускает сервер и ожидает сигнала завершения (SIGINT, SIGTERM).
// При получении сигнала выполняется graceful shutdown.
func (s *Server) Run() error {
	// Канал для ошибок сервера
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP-сервер запущен",
			slog.String("addr", s.httpServer.Addr),
		)

		err := s.httpServer.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		s.logger.Info("Получен сигнал завершения", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ошибка HTTP-сервера: %w", err)
		}
	}

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Выполняется graceful shutdown...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("ошибка при graceful shutdown: %w", err)
	}

	s.logger.Info("HTTP-сервер остановлен")
	return nil
}
