package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/iliyamo/account-auth/internal/config"
	"github.com/iliyamo/account-auth/internal/database"
	"github.com/iliyamo/account-auth/internal/handler"
	"github.com/iliyamo/account-auth/internal/logging"
	"github.com/iliyamo/account-auth/internal/middleware"
	"github.com/iliyamo/account-auth/internal/queue"
	"github.com/iliyamo/account-auth/internal/repository"
	"github.com/iliyamo/account-auth/internal/router"
	"github.com/iliyamo/account-auth/internal/service"
	"github.com/iliyamo/account-auth/internal/token"
	"github.com/iliyamo/account-auth/internal/utils"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}
	cfg := config.Load()
	logger := logging.New(os.Stdout, cfg.Env, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		log.Fatalf("database: %v", err)
	}

	// Redis is optional: without it there is no response cache and no
	// cross-replica sweep lock.
	rdb := config.NewRedisClient()
	if rdb != nil {
		defer rdb.Close()
	}

	publisher := queue.NewPublisher(cfg.BrokerURL, cfg.QueueName, logger)
	defer publisher.Close()

	policies := token.DefaultPolicies()
	issuer := token.NewIssuer(cfg.JWTSecret, cfg.JWTIssuer, policies)
	verifier := token.NewVerifier(cfg.JWTSecret, policies)

	users := repository.NewUserRepo(db)
	recovery := repository.NewRecoveryTokenRepo(db)
	deletion := repository.NewDeletionCodeRepo(db)

	auth := service.NewAuthService(service.AuthDeps{
		Users:       users,
		Recovery:    recovery,
		Deletion:    deletion,
		Hasher:      utils.NewBcryptHasher(cfg.BcryptCost),
		Tokens:      issuer,
		Events:      publisher,
		Log:         logger,
		RecoveryTTL: cfg.RecoveryTokenTTL,
		DeletionTTL: cfg.DeletionCodeTTL,
	})

	sweeperCfg := service.SweeperConfig{
		Recovery:    recovery,
		Deletion:    deletion,
		RecoveryTTL: cfg.RecoveryTokenTTL,
		DeletionTTL: cfg.DeletionCodeTTL,
		Interval:    cfg.SweepInterval,
		Log:         logger,
	}
	if rdb != nil {
		sweeperCfg.Lock = service.NewRedisLocker(rdb)
	}
	go service.NewSweeper(sweeperCfg).Run(ctx)

	cookies := handler.CookieConfig{
		Session: cfg.AuthCookieName,
		Storage: cfg.StorageAuthCookieName,
		Secure:  cfg.IsProduction(),
	}
	e := router.New(router.Deps{
		Prefix:    cfg.Prefix,
		ClientURL: cfg.ClientURL,
		Auth:      handler.NewAuthHandler(auth, cookies),
		Storage:   handler.NewStorageHandler(service.NewStorageService(issuer), cookies),
		Users:     handler.NewUsersHandler(service.NewUserDirectory(users)),
		Verifier:  verifier,
		Session: middleware.SessionConfig{
			CookieName: cfg.AuthCookieName,
			Issuer:     cfg.JWTIssuer,
			Log:        logger,
		},
		Cache: middleware.NewRedisCache(config.LoadCacheConfig(), rdb, logger),
		DB:    db,
		Log:   logger,
	})

	addr := ":" + cfg.Port
	go func() {
		logger.Info(ctx, "listening", "addr", addr, "env", cfg.Env)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(ctx, "server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error(shutdownCtx, "shutdown", "error", err)
	}
	logger.Info(shutdownCtx, "server stopped")
}
