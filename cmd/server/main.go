package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	contactRelay "astres/internal/adapters/contact"
	emailPkg "astres/internal/adapters/email"
	web "astres/internal/adapters/http"
	"astres/internal/adapters/http/perf"
	"astres/internal/adapters/i18n"
	"astres/internal/adapters/notify"
	"astres/internal/adapters/storage"
	accountStore "astres/internal/adapters/storage/account"
	eventStore "astres/internal/adapters/storage/event"
	outboxStore "astres/internal/adapters/storage/outbox"
	registrationStore "astres/internal/adapters/storage/registration"
	"astres/internal/application/orchestrators"
	"astres/internal/config"
	"astres/internal/domain/outbox"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	app := &cli.App{
		Name:    "astres",
		Usage:   "Son et Astres events site",
		Version: version,
		Action:  serve,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the web server (default)",
				Action: serve,
			},
			{
				Name:   "migrate",
				Usage:  "Apply pending database migrations and exit",
				Action: migrateCommand,
			},
			{
				Name:  "create-admin",
				Usage: "Create an admin account",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", Required: true, Usage: "login email"},
					&cli.StringFlag{Name: "password", Required: true, Usage: "password, at least 12 characters"},
				},
				Action: createAdminCommand,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("astres_failed", "error", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel})))
	return cfg, nil
}

// backend is the storage chosen by ASTRES_DB_DRIVER. Stores is nil when the
// driver is "none".
type backend struct {
	Stores *web.Stores
	close  func()
}

func (b *backend) Close() {
	if b.close != nil {
		b.close()
	}
}

// openBackend connects and migrates the configured database.
func openBackend(ctx context.Context, cfg *config.Config, collector *perf.Collector) (*backend, error) {
	switch cfg.DBDriver {
	case config.DriverSQLite:
		db, err := storage.OpenSQLite(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := storage.MigrateDB(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate sqlite: %w", err)
		}
		timed := storage.NewTimedDB(db, collector)
		return &backend{
			Stores: &web.Stores{
				EventStore:        eventStore.NewSQLiteStore(timed),
				RegistrationStore: registrationStore.NewSQLiteStore(timed),
				AccountStore:      accountStore.NewSQLiteStore(timed),
				OutboxStore:       outboxStore.NewSQLiteStore(timed),
			},
			close: func() { db.Close() },
		}, nil

	case config.DriverPostgres:
		if err := storage.MigratePostgres(cfg.DatabaseURL); err != nil {
			return nil, fmt.Errorf("migrate postgres: %w", err)
		}
		pool, err := storage.OpenPostgres(ctx, cfg.DatabaseURL, collector)
		if err != nil {
			return nil, err
		}
		return &backend{
			Stores: &web.Stores{
				EventStore:        eventStore.NewPostgresStore(pool),
				RegistrationStore: registrationStore.NewPostgresStore(pool),
				AccountStore:      accountStore.NewPostgresStore(pool),
				OutboxStore:       outboxStore.NewPostgresStore(pool),
			},
			close: pool.Close,
		}, nil
	}
	slog.Warn("storage_disabled", "driver", cfg.DBDriver)
	return &backend{}, nil
}

func accountDeps(stores *web.Stores) orchestrators.CreateAccountDeps {
	return orchestrators.CreateAccountDeps{
		AccountStore: stores.AccountStore,
		GenerateID:   uuid.NewString,
		Now:          time.Now,
	}
}

func migrateCommand(c *cli.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.DBDriver == config.DriverNone {
		return errors.New("nothing to migrate: ASTRES_DB_DRIVER=none")
	}
	b, err := openBackend(c.Context, cfg, nil)
	if err != nil {
		return err
	}
	defer b.Close()
	slog.Info("migrations_applied", "driver", cfg.DBDriver, "schema", storage.LatestSchemaVersion())
	return nil
}

func createAdminCommand(c *cli.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	b, err := openBackend(c.Context, cfg, nil)
	if err != nil {
		return err
	}
	defer b.Close()
	if b.Stores == nil {
		return errors.New("cannot create an account: ASTRES_DB_DRIVER=none")
	}
	id, err := orchestrators.ExecuteCreateAccount(c.Context, orchestrators.CreateAccountInput{
		Email:    c.String("email"),
		Password: c.String("password"),
	}, accountDeps(b.Stores))
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "admin account %s created\n", id)
	return nil
}

func serve(c *cli.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.CSRFKeyGenerated {
		slog.Warn("csrf_key_generated", "hint", "set ASTRES_CSRF_KEY so sessions survive a restart")
	}

	// Performance instrumentation: request timing and query timing share one collector.
	collector := perf.NewCollector(perf.DefaultRingSize)
	b, err := openBackend(ctx, cfg, collector)
	if err != nil {
		return err
	}
	defer b.Close()

	messages, err := i18n.NewTranslator("fr")
	if err != nil {
		return err
	}

	if b.Stores != nil && cfg.AdminEmail != "" {
		if err := orchestrators.ExecuteSeedAdmin(ctx, accountDeps(b.Stores), cfg.AdminEmail, cfg.AdminPassword); err != nil {
			return fmt.Errorf("seed admin: %w", err)
		}
	}

	var sender emailPkg.Sender = emailPkg.NewNoopSender()
	if cfg.ResendKey != "" {
		sender = emailPkg.NewResendSender(cfg.ResendKey, cfg.EmailFrom)
		slog.Info("email_sender_configured", "provider", "resend")
	} else if cfg.Production() {
		slog.Warn("email_sender_disabled", "hint", "ASTRES_RESEND_KEY is not set")
	}

	var notifier notify.Notifier = notify.NoopNotifier{}
	if cfg.DiscordWebhookURL != "" {
		d, err := notify.NewDiscordNotifier(cfg.DiscordWebhookURL)
		if err != nil {
			return err
		}
		notifier = d
	}

	deps := web.Deps{
		Stores:    b.Stores,
		Messages:  messages,
		Sender:    sender,
		Collector: collector,
	}
	if cfg.ContactRelayURL != "" {
		relay, err := contactRelay.NewFormRelay(cfg.ContactRelayURL, nil)
		if err != nil {
			return err
		}
		deps.Relay = relay
	}

	// Outbox worker delivers confirmation emails and operator notices.
	if b.Stores != nil {
		processor := orchestrators.NewOutboxProcessor(b.Stores.OutboxStore, map[string]orchestrators.ActionExecutor{
			outbox.ActionTypeRegistrationEmail: &orchestrators.RegistrationEmailExecutor{Sender: sender, Messages: messages},
			outbox.ActionTypeOperatorNotice:    &orchestrators.OperatorNoticeExecutor{Notifier: notifier, Messages: messages},
		}, time.Now)
		outboxStopCh := make(chan struct{})
		orchestrators.StartBackgroundWorker(processor, 1*time.Minute, outboxStopCh)
		defer close(outboxStopCh)
		deps.Outbox = processor
	}

	srv, err := web.NewServer(web.Config{
		CSRFKey:            cfg.CSRFKey,
		SecureCookies:      cfg.Production(),
		TrustedOrigins:     cfg.TrustedOrigins,
		SiteEmail:          cfg.SiteEmail,
		Location:           cfg.Location,
		RateLimitPerSecond: cfg.RateLimitPerSecond,
	}, deps)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Handler(ctx),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server_starting", "version", version, "addr", cfg.Addr, "env", cfg.Env, "driver", cfg.DBDriver, "schema", storage.LatestSchemaVersion())
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("server_stopping")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
