package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/youthcamp/registration-api/internal/auth"
	"github.com/youthcamp/registration-api/internal/catalog"
	"github.com/youthcamp/registration-api/internal/config"
	"github.com/youthcamp/registration-api/internal/database"
	"github.com/youthcamp/registration-api/internal/export"
	"github.com/youthcamp/registration-api/internal/handlers"
	"github.com/youthcamp/registration-api/internal/logging"
	"github.com/youthcamp/registration-api/internal/metrics"
	"github.com/youthcamp/registration-api/internal/notifier"
	"github.com/youthcamp/registration-api/internal/registration"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const shutdownTimeout = 15 * time.Second

var (
	seedFile   string
	exportFile string
)

var rootCmd = &cobra.Command{
	Use:           "camp",
	Short:         "Youth camp registration API",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load youth groups, accommodations, activities and allergies from YAML",
	RunE:  runSeed,
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write all registrations as CSV",
	RunE:  runExport,
}

func init() {
	seedCmd.Flags().StringVarP(&seedFile, "file", "f", "seed.yaml", "seed file")
	exportCmd.Flags().StringVarP(&exportFile, "out", "o", "", "output file (default: stdout)")

	rootCmd.AddCommand(serveCmd, seedCmd, exportCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("command failed")
	}
}

// bootstrap loads configuration, sets up logging and opens the database.
func bootstrap() (*config.Config, *gorm.DB, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	if err := logging.Setup(cfg.LogLevel, cfg.LogFormat); err != nil {
		return nil, nil, err
	}
	for _, w := range cfg.Warnings() {
		log.Warn().Msg(w)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect database: %w", err)
	}
	return cfg, db, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, db, err := bootstrap()
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	dispatcher := notifier.NewDispatcher(cfg.NotifyWorkers, cfg.NotifyQueueSize, cfg.NotifyTimeout, m, notifiers(cfg)...)

	guard := auth.NewAccessGuard(cfg)
	authHandler := auth.NewAuthHandler(cfg, db)
	service := registration.NewService(guard, registration.NewValidator(cfg), registration.NewRepository(db), dispatcher, m)

	r := chi.NewRouter()
	handlers.RegisterRoutes(r, cfg, handlers.Handlers{
		Auth:         authHandler,
		Registration: handlers.NewRegistrationHandler(service, guard),
		Catalog:      handlers.NewCatalogHandler(catalog.New(db, catalog.DefaultExpiration), registration.NewCapacityChecker(db)),
		Admin:        handlers.NewAdminHandler(service, guard, authHandler),
		APIKeys:      handlers.NewAPIKeyHandler(db, authHandler),
		Gatherer:     reg,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The dispatcher outlives the server so registrations committed by
	// in-flight requests during shutdown are still delivered.
	dispatchCtx, stopDispatch := context.WithCancel(context.WithoutCancel(ctx))
	defer stopDispatch()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return dispatcher.Run(dispatchCtx)
	})
	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		stopDispatch()
		return err
	})
	return g.Wait()
}

// notifiers picks the channels that are configured. Registration works
// without any of them.
func notifiers(cfg *config.Config) []notifier.Notifier {
	var ns []notifier.Notifier
	if cfg.SMTPHost != "" {
		ns = append(ns, notifier.NewEmailNotifier(cfg))
	}
	if cfg.DiscordBotToken != "" && cfg.DiscordNotificationsChannelID != "" {
		d, err := notifier.NewDiscordNotifier(cfg.DiscordBotToken, cfg.DiscordNotificationsChannelID)
		if err != nil {
			log.Warn().Err(err).Msg("Discord notifier not initialized")
		} else {
			ns = append(ns, d)
		}
	}
	if len(ns) == 0 {
		log.Warn().Msg("no notifiers configured")
		ns = append(ns, notifier.Noop{})
	}
	return ns
}

func runSeed(cmd *cobra.Command, _ []string) error {
	_, db, err := bootstrap()
	if err != nil {
		return err
	}
	return database.SeedFile(cmd.Context(), db, seedFile)
}

func runExport(cmd *cobra.Command, _ []string) error {
	_, db, err := bootstrap()
	if err != nil {
		return err
	}

	rows, err := registration.NewRepository(db).Export(cmd.Context())
	if err != nil {
		return err
	}

	var w io.Writer = os.Stdout
	if exportFile != "" {
		f, err := os.Create(exportFile)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	if err := export.WriteCSV(w, rows); err != nil {
		return err
	}
	log.Info().Int("rows", len(rows)).Msg("export written")
	return nil
}
