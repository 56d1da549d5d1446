// Точка входа Medledger — реестра контроля доступа к записям пациентов.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bigkaa/medledger/internal/api/handlers"
	"github.com/bigkaa/medledger/internal/api/middleware"
	"github.com/bigkaa/medledger/internal/audit"
	"github.com/bigkaa/medledger/internal/clock"
	"github.com/bigkaa/medledger/internal/config"
	"github.com/bigkaa/medledger/internal/ledger"
	"github.com/bigkaa/medledger/internal/server"
	"github.com/bigkaa/medledger/internal/service"
)

func main() {
	// Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка конфигурации: %v\n", err)
		os.Exit(1)
	}

	// Настройка логгера
	logger := config.SetupLogger(cfg)
	logger.Info("Medledger запускается",
		slog.String("service_id", cfg.ServiceID),
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
		slog.String("bootstrap_custodian", cfg.BootstrapCustodian),
	)

	// --- Инициализация компонентов ---

	// 1. Журнал аудита (append-only)
	sink, err := audit.NewFileSink(cfg.AuditLogPath, logger)
	if err != nil {
		logger.Error("Ошибка инициализации журнала аудита", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer sink.Close()

	// 2. Хранилища ядра: кастодианы, записи, запросы на доступ
	registry := ledger.NewCustodianRegistry(cfg.BootstrapCustodian, logger)
	records := ledger.NewRecordStore(logger)
	grants := ledger.NewGrantLedger(logger)
	authorizer := ledger.NewAccessAuthorizer(records, grants)

	// 3. Сервис реестра
	ledgerSvc := service.NewLedgerService(
		registry,
		records,
		grants,
		authorizer,
		clock.System{},
		sink,
		logger,
	)

	// 4. topologymetrics — мониторинг JWKS endpoint
	ctx := context.Background()

	dephealthSvc, dephealthErr := service.NewDephealthService(
		cfg.ServiceID,
		cfg.DephealthGroup,
		cfg.DephealthDepName,
		cfg.JWKSUrl,
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
				slog.String("jwks_url", cfg.JWKSUrl),
				slog.String("check_interval", cfg.DephealthCheckInterval.String()),
			)
		}
	}

	// 5. Handlers
	apiHandler := handlers.NewAPIHandler(
		handlers.NewRecordsHandler(ledgerSvc),
		handlers.NewAccessHandler(ledgerSvc),
		handlers.NewCustodiansHandler(ledgerSvc),
		handlers.NewHealthHandler(cfg.AuditLogPath, ledgerSvc),
		promhttp.Handler(),
	)

	// 6. JWT middleware
	var authMW func(http.Handler) http.Handler
	jwtAuth, err := middleware.NewJWTAuth(middleware.JWTAuthConfig{
		JWKSURL:         cfg.JWKSUrl,
		CACertPath:      cfg.JWKSCACert,
		ClientTimeout:   cfg.JWKSClientTimeout,
		RefreshInterval: cfg.JWKSRefreshInterval,
		JWTLeeway:       cfg.JWTLeeway,
	}, logger)
	if err != nil {
		// JWT недоступен — запускаем с debug-заголовком (для разработки)
		logger.Warn("JWT JWKS недоступен, идентификация через X-Debug-Subject",
			slog.String("jwks_url", cfg.JWKSUrl),
			slog.String("error", err.Error()),
		)
		authMW = middleware.DebugIdentity()
	} else {
		authMW = jwtAuth.Middleware()
		logger.Info("JWT аутентификация настроена",
			slog.String("jwks_url", cfg.JWKSUrl),
		)
	}

	// 7. Создание и запуск HTTP-сервера
	srv := server.New(cfg, logger, apiHandler, authMW)

	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// --- Остановка фоновых процессов ---
	if dephealthSvc != nil && dephealthErr == nil {
		dephealthSvc.Stop()
	}

	logger.Info("Medledger остановлен")
}
