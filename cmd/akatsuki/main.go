package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/kyohei-t/akatsuki/internal/config"
	"github.com/kyohei-t/akatsuki/internal/engine"
	"github.com/kyohei-t/akatsuki/internal/executor"
	"github.com/kyohei-t/akatsuki/internal/funding"
	"github.com/kyohei-t/akatsuki/internal/ledger"
	"github.com/kyohei-t/akatsuki/internal/notify"
	"github.com/kyohei-t/akatsuki/internal/objstore"
	"github.com/kyohei-t/akatsuki/internal/terminal"
	"github.com/kyohei-t/akatsuki/internal/ticket"
	"github.com/kyohei-t/akatsuki/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/akatsuki.local.yaml", "path to config file")
	ticketPath := flag.String("tickets", "", "path to ticket CSV file")
	schedulePath := flag.String("schedule", "", "path to amount schedule YAML (optional)")
	date := flag.String("date", "", "target date YYYYMMDD (default: today in JST)")
	dryRun := flag.Bool("dry-run", false, "reconcile and report without purchasing")
	flag.Parse()

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	logger.Info("starting akatsuki",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
		"dry_run", *dryRun,
	)

	if *ticketPath == "" {
		logger.Error("missing required -tickets flag")
		os.Exit(1)
	}

	// Local development keeps credentials in a .env file
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Warn("could not load .env file", "error", err)
	}

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	creds, err := config.LoadCredentials()
	if err != nil {
		logger.Error("failed to load credentials", "error", err)
		os.Exit(1)
	}

	targetDate := *date
	if targetDate == "" {
		targetDate = time.Now().In(time.FixedZone("JST", 9*60*60)).Format("20060102")
	}

	// Load and price the ticket list
	tickets, err := ticket.LoadFile(*ticketPath)
	if err != nil {
		logger.Error("failed to load tickets", "error", err)
		os.Exit(1)
	}
	if *schedulePath != "" {
		schedule, err := ticket.LoadSchedule(*schedulePath)
		if err != nil {
			logger.Error("failed to load amount schedule", "error", err)
			os.Exit(1)
		}
		if err := schedule.Apply(tickets, targetDate); err != nil {
			logger.Error("failed to apply amount schedule", "error", err)
			os.Exit(1)
		}
	}
	logger.Info("tickets loaded", "count", len(tickets), "date", targetDate)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Open the ledger object store
	var objects objstore.Store
	var closeStore func()
	switch cfg.Ledger.Backend {
	case "postgres":
		logger.Info("connecting to database",
			"host", cfg.Ledger.Postgres.Host,
			"port", cfg.Ledger.Postgres.Port,
			"database", cfg.Ledger.Postgres.Name,
		)
		pool, err := objstore.Connect(ctx, cfg.Ledger.Postgres)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		pg := objstore.NewPostgres(pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			logger.Error("failed to prepare database schema", "error", err)
			os.Exit(1)
		}
		objects = pg
		closeStore = pg.Close
	default:
		fs, err := objstore.NewFS(cfg.Ledger.Root)
		if err != nil {
			logger.Error("failed to open ledger directory", "error", err)
			os.Exit(1)
		}
		objects = fs
		closeStore = func() {}
	}
	defer closeStore()

	ledgerStore := ledger.NewStore(objects, cfg.Ledger.CacheTTL, ledger.WithLogger(logger))

	// Create terminal client and log in
	client := terminal.NewClient(
		cfg.Terminal.BaseURL,
		terminal.Credentials{
			INETID:       creds.INETID,
			SubscriberID: creds.SubscriberID,
			PIN:          creds.PIN,
			PARS:         creds.PARS,
		},
		terminal.WithLogger(logger),
		terminal.WithTimeout(cfg.Terminal.Timeout),
		terminal.WithRetries(cfg.Terminal.MaxRetries, cfg.Terminal.RetryBackoff),
	)

	if err := client.Login(ctx); err != nil {
		logger.Error("terminal login failed", "error", err)
		os.Exit(1)
	}
	logger.Info("terminal session established")

	// Wire notifications
	var notifier notify.Notifier = notify.Nop{}
	if creds.SlackToken != "" {
		notifier = notify.NewSlack(creds.SlackToken,
			cfg.Notify.BetsChannel, cfg.Notify.AlertsChannel,
			notify.WithLogger(logger))
	} else {
		logger.Info("no slack token configured, notifications disabled")
	}

	funder := funding.New(client,
		funding.WithVerification(cfg.Funding.VerifyMaxAttempts, cfg.Funding.VerifyDelay),
		funding.WithLogger(logger),
	)
	runner := executor.New(client, client, ledgerStore, notifier,
		executor.WithPaceInterval(cfg.Executor.PaceInterval),
		executor.WithLogger(logger),
	)
	eng := engine.New(client, funder, runner, ledgerStore, objects, notifier,
		engine.WithDryRun(*dryRun),
		engine.WithLogger(logger),
	)

	// Run the purchase alongside the health endpoint
	healthServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Health.Port),
		Handler: createHealthHandler(cfg.Health.Path, targetDate, ledgerStore),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting health server", "port", cfg.Health.Port)
		if err := healthServer.ListenAndServe(); err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			healthServer.Shutdown(shutdownCtx)
		}()

		summary, err := eng.Run(gctx, targetDate, tickets)
		if err != nil {
			return err
		}
		logger.Info("run complete",
			"run_id", summary.RunID,
			"already_purchased", summary.AlreadyPurchased,
			"purchased", summary.Stats.Purchased,
			"failed", summary.Stats.Failed,
			"unverified", summary.Stats.Unverified,
			"skipped", summary.Stats.Skipped,
		)
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("run failed", "error", err)
		os.Exit(1)
	}

	logger.Info("akatsuki stopped")
}

// createHealthHandler serves liveness plus a ledger summary for the
// target date.
func createHealthHandler(path, date string, ledgerStore *ledger.Store) http.Handler {
	if path == "" {
		path = "/health"
	}
	mux := http.NewServeMux()

	mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		health := struct {
			Status string        `json:"status"`
			Date   string        `json:"date"`
			Ledger ledger.Counts `json:"ledger"`
		}{
			Status: "healthy",
			Date:   date,
		}

		counts, err := ledgerStore.Summary(ctx, date)
		if err != nil {
			health.Status = "degraded"
		} else {
			health.Ledger = counts
		}

		w.Header().Set("Content-Type", "application/json")
		if health.Status != "healthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(health)
	})

	return mux
}
