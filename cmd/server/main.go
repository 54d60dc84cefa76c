package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/ghostpost/capsule-server/internal/api"
	"github.com/ghostpost/capsule-server/internal/config"
	"github.com/ghostpost/capsule-server/internal/envelope"
	"github.com/ghostpost/capsule-server/internal/logger"
	"github.com/ghostpost/capsule-server/internal/model"
	"github.com/ghostpost/capsule-server/internal/notify"
	"github.com/ghostpost/capsule-server/internal/repository/postgres"
	"github.com/ghostpost/capsule-server/internal/scheduler"
	"github.com/ghostpost/capsule-server/internal/server"
	"github.com/ghostpost/capsule-server/internal/service"
	storage "github.com/ghostpost/capsule-server/internal/storage/minio"
	"github.com/ghostpost/capsule-server/internal/token"
)

var (
	buildVersion = "N/A" // set by ldflags
	buildDate    = "N/A" // set by ldflags
	buildCommit  = "N/A" // set by ldflags
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, os.Interrupt)
	defer stop()

	_ = godotenv.Load()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	logger := logger.New(cfg.LogLevel)

	db, err := postgres.NewConnection(ctx, cfg.Database.DSN)
	if err != nil {
		logger.Fatal("failed to initialize storage", "error", err)
	}
	defer db.Close()

	capsuleRepo := postgres.NewCapsuleRepository(db)
	userRepo := postgres.NewUserRepository(db)
	tokenManager := token.NewJWT(cfg.JWT.Secret)

	cipher, err := envelope.New(cfg.Encryption.KeyHex, logger)
	if err != nil {
		logger.Fatal("failed to initialize field encryption", "error", err)
	}

	minioClient, err := minio.New(cfg.Storage.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.Storage.AccessKey, cfg.Storage.SecretKey, ""),
		Secure: cfg.Storage.UseSSL,
	})
	if err != nil {
		logger.Fatal("failed to create minio client", "error", err)
	}
	blobStore, err := storage.NewClient(ctx, minioClient, cfg.Storage.Bucket)
	if err != nil {
		logger.Fatal("failed to initialize blob storage", "error", err)
	}

	mailer, err := notify.NewMailer(notify.MailerConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	}, logger)
	if err != nil {
		logger.Fatal("failed to create mailer", "error", err)
	}

	capsuleService := service.NewCapsule(capsuleRepo, userRepo, cipher, blobStore, logger)
	accountService := service.NewAccount(userRepo, capsuleRepo, logger)
	deliveryService := service.NewDelivery(capsuleRepo, userRepo, cipher, blobStore, mailer, logger.WithComponent("delivery"), cfg.SMTP.SendTimeout)

	mux := api.New(api.Dependencies{
		Capsules:   capsuleService,
		Accounts:   accountService,
		Delivery:   deliveryService,
		Tokens:     tokenManager,
		DB:         db,
		CronSecret: cfg.Sweep.CronSecret,
	}, logger)

	httpServer := server.NewHTTPServer(mux, fmt.Sprintf(":%s", cfg.HTTP.Port))

	var sl model.SecurityLayer
	if cfg.HTTP.EnableHTTPS {
		sl = server.NewTLSListener(cfg.HTTP.CertFileName, cfg.HTTP.PrivateKeyFileName)
	} else {
		sl = server.NewPlainListener()
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func(s model.Server) {
		defer wg.Done()
		logger.Info("Starting server on", "address", s.Address())
		if err := s.Start(sl); err != nil {
			logger.Error("failed to start server", "error", err)
		}
	}(httpServer)

	runner := scheduler.NewRunner(deliveryService, cfg.Sweep.Interval, logger.WithComponent("scheduler"))
	wg.Add(1)
	go func() {
		defer wg.Done()
		runner.Run(ctx)
	}()

	logAppVersion()

	<-ctx.Done()
	logger.Info("received interruption signal, shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Stop(shutdownCtx); err != nil {
		logger.Error("error during server shutdown", "error", err, "address", httpServer.Address())
	}

	wg.Wait()
	logger.Info("shutdown complete")
}

func logAppVersion() {
	tmpl := `
Build version: %s
Build date: %s
Build commit: %s
`

	fmt.Printf(tmpl, buildVersion, buildDate, buildCommit)
}
