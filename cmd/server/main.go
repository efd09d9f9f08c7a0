// @title                       identity-service API
// @version                     1.0
// @description                 Registration, login and bearer-token authorization.
// @BasePath                    /api
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/identity-service/internal/api"
	"github.com/99minutos/identity-service/internal/core/domain"
	"github.com/99minutos/identity-service/internal/core/ports"
	"github.com/99minutos/identity-service/internal/core/service"
	"github.com/99minutos/identity-service/internal/infrastructure/config"
	apphttp "github.com/99minutos/identity-service/internal/infrastructure/http"
	"github.com/99minutos/identity-service/internal/infrastructure/password"
	"github.com/99minutos/identity-service/internal/infrastructure/queue"
	"github.com/99minutos/identity-service/internal/infrastructure/token"
	"github.com/99minutos/identity-service/pkg/logger"
)

const (
	serviceName     = "identity-service"
	shutdownTimeout = 10 * time.Second
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		boot := logger.Init(logger.Options{Service: serviceName})
		var cfgErr *domain.ConfigurationError
		if errors.As(err, &cfgErr) {
			boot.Fatal().Str("key", cfgErr.Key).Err(err).Msg("invalid configuration")
		}
		boot.Fatal().Err(err).Msg("load configuration")
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: serviceName,
	})

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("identity-service stopped")
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	hasher, err := password.New(cfg.Auth.HashAlgorithm, cfg.Auth.WorkFactor)
	if err != nil {
		return err
	}
	issuer, err := token.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.JWTExpiresIn.Duration())
	if err != nil {
		return err
	}

	st, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.close()

	sinks := append([]ports.AuditSink{queue.NewLogSink(log)}, st.auditSinks...)
	audit := queue.NewDispatcher(cfg.Audit.Workers, cfg.Audit.QueueSize, log, sinks...)
	audit.Start()
	defer func() {
		drainCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := audit.Shutdown(drainCtx); err != nil {
			log.Warn().Err(err).Msg("audit queue not fully drained")
		}
	}()

	authService := service.NewAuthService(st.users, hasher, issuer, audit, log)
	authorizer := service.NewAuthorizer(st.users, issuer, audit, log)
	userService := service.NewUserService(st.users)

	router := api.NewRouter(api.Dependencies{
		AuthService:    authService,
		Authorizer:     authorizer,
		UserService:    userService,
		HealthChecks:   st.checks,
		AllowedOrigins: cfg.AllowedOrigins,
		Logger:         log,
	})

	start := log.Info().
		Str("store", cfg.StoreDriver).
		Str("hash", cfg.Auth.HashAlgorithm).
		Dur("token_ttl", issuer.TTL())
	if bc, ok := hasher.(*password.BcryptHasher); ok {
		start = start.Int("bcrypt_cost", bc.Cost())
	}
	start.Msg("identity-service starting")

	return apphttp.NewServer(router, cfg.Port, log).Run(ctx, shutdownTimeout)
}
