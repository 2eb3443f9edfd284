package commands

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/appforge-ai/appforge/internal/actor"
	"github.com/appforge-ai/appforge/internal/config"
	"github.com/appforge-ai/appforge/internal/event"
	"github.com/appforge-ai/appforge/internal/inference"
	"github.com/appforge-ai/appforge/internal/logging"
	"github.com/appforge-ai/appforge/internal/modelconfig"
	"github.com/appforge-ai/appforge/internal/project"
	"github.com/appforge-ai/appforge/internal/quota"
	"github.com/appforge-ai/appforge/internal/server"
	"github.com/appforge-ai/appforge/internal/session"
	"github.com/appforge-ai/appforge/internal/storage"
	"github.com/appforge-ai/appforge/internal/template"
	"github.com/appforge-ai/appforge/internal/tool"
)

var (
	servePort int
	serveHost string
	serveDir  string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the AppForge orchestration server",
	Long: `Start the HTTP server that bootstraps generation sessions, streams
progress events, and handles conversational turns against running agents.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to listen on (overrides config)")
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host to listen on (overrides config)")
	serveCmd.Flags().StringVar(&serveDir, "directory", "", "Config directory")
}

func runServe(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()

	dir := serveDir
	if dir == "" {
		dir, _ = os.Getwd()
	}

	appConfig, err := config.Load(dir)
	if err != nil {
		return err
	}
	if servePort != 0 {
		appConfig.Port = servePort
	}
	if serveHost != "" {
		appConfig.Host = serveHost
	}
	if logLevel != "" {
		appConfig.LogLevel = logLevel
	}

	logging.Init(logging.Config{Level: appConfig.LogLevel, Pretty: true})
	logger := logging.Component("serve")
	logger.Info().Str("version", Version).Str("dataDir", appConfig.DataDir).Msg("starting appforge")

	store := storage.New(appConfig.DataDir)
	bus := event.NewBus()

	ctx := context.Background()
	providerReg, err := inference.InitializeProviders(ctx, appConfig)
	if err != nil {
		return err
	}

	projects := project.NewService(store)

	processor := session.NewProcessor(
		inference.NewAdapter(providerReg),
		tool.DefaultRegistry(),
		projects,
	)

	serverConfig := server.DefaultConfig()
	serverConfig.Host = appConfig.Host
	serverConfig.Port = appConfig.Port
	serverConfig.PublicURL = appConfig.PublicURL
	serverConfig.PreviewDomain = appConfig.PreviewDomain
	serverConfig.EnableCORS = appConfig.EnableCORS

	srv := server.New(serverConfig, appConfig, server.Dependencies{
		Sessions:   session.NewService(store, bus),
		Processor:  processor,
		ModelStore: modelconfig.NewFileStore(store),
		Templates:  template.NewCatalogResolver(),
		Quota:      quota.NewMemoryGate(),
		Dialer:     actor.NewLocalDialer(bus),
		Bus:        bus,
		Projects:   projects,
	})

	go func() {
		logger.Info().Str("host", appConfig.Host).Int("port", appConfig.Port).Msg("server listening")
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown error")
	}
	bus.Close()

	logger.Info().Msg("server stopped")
	return nil
}
