package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/evcraddock/shopdesk/internal/config"
	"github.com/evcraddock/shopdesk/internal/db"
	"github.com/evcraddock/shopdesk/internal/email"
	"github.com/evcraddock/shopdesk/internal/events"
	"github.com/evcraddock/shopdesk/internal/logging"
	"github.com/evcraddock/shopdesk/internal/realtime"
	"github.com/evcraddock/shopdesk/internal/visit"
	"github.com/evcraddock/shopdesk/internal/web"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	var (
		port    int
		persist bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the dashboard API server",
		Long: `Start the HTTP server for the visit dashboard.

Settings come from SHOPDESK_* environment variables or a .env file in the
working directory. Visits are kept in memory unless SHOPDESK_DB is set or
--persist is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Port = port
				if err := cfg.Validate(); err != nil {
					return err
				}
			}
			if persist && cfg.DBPath == "" {
				if cfg.DBPath, err = db.DefaultPath(); err != nil {
					return err
				}
			}
			return runServe(cfg)
		},
	}

	cmd.Flags().IntVar(&port, "port", 8080, "port to listen on (overrides SHOPDESK_PORT)")
	cmd.Flags().BoolVar(&persist, "persist", false, "save visits to the default database (~/.config/shopdesk/shopdesk.db)")

	return cmd
}

func runServe(cfg config.Config) error {
	logging.Setup(cfg.DevMode)

	opts := []visit.Option{visit.WithWarnWindow(cfg.WarnWindow)}

	if cfg.DBPath != "" {
		database, err := db.Open(cfg.DBPath)
		if err != nil {
			return err
		}
		defer closeDB(database)

		repo := visit.NewRepository(database)
		existing, err := repo.List()
		if err != nil {
			return fmt.Errorf("loading visits: %w", err)
		}
		slog.Info("loaded visits", "path", cfg.DBPath, "count", len(existing))
		opts = append(opts, visit.WithVisits(existing), visit.WithSaver(repo))
	}

	// The hub reads the store lazily, so it can be built first and
	// registered as a notifier.
	var store *visit.Store
	hub := realtime.NewHub(func() visit.Snapshot { return store.Snapshot() }, cfg.WSOrigins...)
	notifiers := visit.Fanout{hub}

	if cfg.NATSURL != "" {
		pub, err := events.NewNATSPublisher(cfg.NATSURL, cfg.NATSSubject)
		if err != nil {
			return err
		}
		defer func() {
			if err := pub.Close(); err != nil {
				slog.Warn("closing nats connection", "error", err)
			}
		}()
		slog.Info("publishing visit events", "url", cfg.NATSURL, "subject", cfg.NATSSubject)
		notifiers = append(notifiers, pub)
	}

	var emailer *email.OverdueNotifier
	if len(cfg.AlertEmails) > 0 {
		slog.Info("emailing overdue visits", "to", strings.Join(cfg.AlertEmails, ","))
		emailer = email.NewOverdueNotifier(cfg.SMTP, cfg.AlertEmails)
		notifiers = append(notifiers, emailer)
	}

	store = visit.NewStore(append(opts, visit.WithNotifier(notifiers))...)
	srv := web.NewServer(store, hub).HTTPServer(cfg.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	heartbeat := visit.NewHeartbeat(cfg.HeartbeatInterval, func() { store.Tick() })
	if err := heartbeat.Start(ctx); err != nil {
		return err
	}
	defer heartbeat.Stop()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting",
			"addr", srv.Addr,
			"heartbeat", cfg.HeartbeatInterval,
			"warn_window", cfg.WarnWindow,
			"dev_mode", cfg.DevMode,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	heartbeat.Stop()
	hub.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	if emailer != nil {
		// Each send is bounded by its SMTP deadline.
		emailer.Wait()
	}
	return nil
}
