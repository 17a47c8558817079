package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"vet-clinic-records/internal/adapters/auth/jwtlocal"
	"vet-clinic-records/internal/adapters/auth/odin"
	"vet-clinic-records/internal/adapters/storage/disk"
	pg "vet-clinic-records/internal/adapters/storage/postgres"
	"vet-clinic-records/internal/config"
	"vet-clinic-records/internal/domain/identifiers"
	"vet-clinic-records/internal/platform/logger"
	"vet-clinic-records/internal/router"

	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:           "vet-clinic-api",
		Short:         "Vet clinic records API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(serveCmd())
	root.AddCommand(migrateCmd())
	root.AddCommand(uidCmd())
	root.AddCommand(tokenCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			return runServer(cmd.Context(), cfg)
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema (idempotent)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.DBDSN == "" {
				return errors.New("DB_DSN is required for migrate")
			}
			db, err := pg.Open(cfg.DBDSN, cfg.DBMaxConns)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			defer db.Close()

			if err := pg.Migrate(cmd.Context(), db); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema applied")
			return nil
		},
	}
}

// uidCmd: codec offline para recepción y soporte.
func uidCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "uid",
		Short: "Identifier utilities",
	}

	var strict bool
	check := &cobra.Command{
		Use:   "check <candidate>",
		Short: "Validate a typed or scanned identifier",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := identifiers.NewService(nil, nil, identifiers.WithAcceptLegacyBase(!strict))
			id, err := svc.Parse(args[0])
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			if id.Full == "" {
				fmt.Fprintf(cmd.OutOrStdout(), "valid legacy base %s\n", id.Base)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "valid %s (base %s)\n", id.Full, id.Base)
			return nil
		},
	}
	check.Flags().BoolVar(&strict, "strict", false, "reject base-only identifiers")

	digit := &cobra.Command{
		Use:   "digit <base>",
		Short: "Print the canonical identifier for a 6-digit base",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			base := identifiers.Normalize(args[0])
			if len(base) != identifiers.BaseLength {
				return fmt.Errorf("%s: %w", args[0], identifiers.ErrWrongLength)
			}
			full, err := identifiers.WithCheckDigit(base)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), full)
			return nil
		},
	}

	cmd.AddCommand(check, digit)
	return cmd
}

// tokenCmd emite un token de staff firmado con JWT_SIGNING_KEY (instalaciones sin Odin).
func tokenCmd() *cobra.Command {
	var (
		subject string
		role    string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a locally signed staff token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			v, err := jwtlocal.NewVerifier(cfg.JWTSigningKey, cfg.JWTIssuer)
			if err != nil {
				return err
			}
			if strings.TrimSpace(subject) == "" {
				return errors.New("--sub is required")
			}

			now := time.Now()
			tok, err := v.Sign(jwtlocal.Claims{
				RegisteredClaims: jwt.RegisteredClaims{
					Subject:   subject,
					IssuedAt:  jwt.NewNumericDate(now),
					ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
				},
				Role: role,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "sub", "", "staff user id")
	cmd.Flags().StringVar(&role, "role", "reception", "reception, vet or admin")
	cmd.Flags().DurationVar(&ttl, "ttl", 12*time.Hour, "token lifetime")
	return cmd
}

func runServer(ctx context.Context, cfg *config.Config) error {
	log := logger.New(logger.Options{
		Level:  logger.ParseLevel(cfg.LogLevel),
		Format: logger.ParseFormat(cfg.LogFormat),
		App:    cfg.AppName,
	})

	opts := router.Options{
		Logger:           log,
		LockTimeout:      cfg.LockTimeout,
		Location:         cfg.Location(),
		RejectLegacyBase: !cfg.AcceptLegacyBase,
		MaxUploadBytes:   cfg.MaxUploadBytes,
	}

	if cfg.DBDSN != "" {
		db, err := pg.Open(cfg.DBDSN, cfg.DBMaxConns)
		if err != nil {
			return fmt.Errorf("open db: %w", err)
		}
		defer db.Close()
		opts.DB = db
		log.Info("using postgres", nil)
	} else {
		log.Warn("DB_DSN not set, using in-memory store", nil)
	}

	if cfg.RedisURL != "" {
		ro, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("REDIS_URL: %w", err)
		}
		rdb := redis.NewClient(ro)
		defer rdb.Close()
		opts.Redis = rdb
	}

	if cfg.StorageDir != "" {
		blobs, err := disk.NewBlobStore(cfg.StorageDir)
		if err != nil {
			return err
		}
		opts.Blobs = blobs
	}

	if cfg.OdinBaseURL != "" {
		client, err := odin.NewClient(odin.Config{BaseURL: cfg.OdinBaseURL, APIKey: cfg.OdinAPIKey})
		if err != nil {
			return err
		}
		opts.AuthVerifier = odin.NewVerifier(client)
	} else if cfg.JWTSigningKey != "" {
		v, err := jwtlocal.NewVerifier(cfg.JWTSigningKey, cfg.JWTIssuer)
		if err != nil {
			return err
		}
		opts.AuthVerifier = v
	} else if !cfg.IsDev() {
		return errors.New("ODIN_BASE_URL or JWT_SIGNING_KEY is required outside development")
	} else {
		log.Warn("no token verifier: X-Debug-User-ID headers are trusted", nil)
	}

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router.NewRouter(opts),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", map[string]any{"addr": srv.Addr, "tz": cfg.Location().String()})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
