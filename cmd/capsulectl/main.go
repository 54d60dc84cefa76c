// capsulectl is the operator tool: key generation, token minting and
// one-shot delivery sweeps without waiting for the in-process scheduler.
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/spf13/cobra"

	"github.com/ghostpost/capsule-server/internal/config"
	"github.com/ghostpost/capsule-server/internal/envelope"
	"github.com/ghostpost/capsule-server/internal/logger"
	"github.com/ghostpost/capsule-server/internal/model"
	"github.com/ghostpost/capsule-server/internal/notify"
	"github.com/ghostpost/capsule-server/internal/repository/postgres"
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
	root := &cobra.Command{
		Use:           "capsulectl",
		Short:         "GhostPost capsule server operator tool",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(keygenCmd(), tokenCmd(), sweepCmd(), versionCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func keygenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Generate a hex-encoded 256-bit field encryption key",
		RunE: func(cmd *cobra.Command, _ []string) error {
			key := make([]byte, 32)
			if _, err := rand.Read(key); err != nil {
				return fmt.Errorf("failed to generate key: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(key))
			return nil
		},
	}
}

func tokenCmd() *cobra.Command {
	var (
		userID string
		email  string
		name   string
		secret string
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for a user identity",
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := uuid.Parse(userID)
			if err != nil {
				return fmt.Errorf("invalid user id: %w", err)
			}

			signed, err := token.NewJWT(secret).Generate(model.Identity{
				UserID: id,
				Email:  email,
				Name:   name,
			})
			if err != nil {
				return fmt.Errorf("failed to generate token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), signed)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user-id", "", "user UUID")
	cmd.Flags().StringVar(&email, "email", "", "user email")
	cmd.Flags().StringVar(&name, "name", "", "user display name")
	cmd.Flags().StringVar(&secret, "secret", "", "token signing secret")
	cmd.MarkFlagRequired("user-id")
	cmd.MarkFlagRequired("email")
	cmd.MarkFlagRequired("secret")

	return cmd
}

func sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Run one delivery sweep over due capsules",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			_ = godotenv.Load()

			cfg, err := config.NewConfig()
			if err != nil {
				return fmt.Errorf("failed to parse config: %w", err)
			}
			log := logger.New(cfg.LogLevel)

			db, err := postgres.NewConnection(ctx, cfg.Database.DSN)
			if err != nil {
				return fmt.Errorf("failed to initialize storage: %w", err)
			}
			defer db.Close()

			cipher, err := envelope.New(cfg.Encryption.KeyHex, log)
			if err != nil {
				return fmt.Errorf("failed to initialize field encryption: %w", err)
			}

			minioClient, err := minio.New(cfg.Storage.Endpoint, &minio.Options{
				Creds:  credentials.NewStaticV4(cfg.Storage.AccessKey, cfg.Storage.SecretKey, ""),
				Secure: cfg.Storage.UseSSL,
			})
			if err != nil {
				return fmt.Errorf("failed to create minio client: %w", err)
			}
			blobStore, err := storage.NewClient(ctx, minioClient, cfg.Storage.Bucket)
			if err != nil {
				return fmt.Errorf("failed to initialize blob storage: %w", err)
			}

			mailer, err := notify.NewMailer(notify.MailerConfig{
				Host:     cfg.SMTP.Host,
				Port:     cfg.SMTP.Port,
				Username: cfg.SMTP.Username,
				Password: cfg.SMTP.Password,
				From:     cfg.SMTP.From,
			}, log)
			if err != nil {
				return fmt.Errorf("failed to create mailer: %w", err)
			}

			delivery := service.NewDelivery(
				postgres.NewCapsuleRepository(db),
				postgres.NewUserRepository(db),
				cipher,
				blobStore,
				mailer,
				log,
				cfg.SMTP.SendTimeout,
			)

			report, err := delivery.RunSweep(ctx)
			if err != nil {
				return fmt.Errorf("sweep failed: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "found=%d sent=%d skipped=%d\n", report.Found, report.Sent, report.Skipped)
			return nil
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "Build version: %s\nBuild date: %s\nBuild commit: %s\n", buildVersion, buildDate, buildCommit)
		},
	}
}
