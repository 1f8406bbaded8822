package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"voicekit/core"
	"voicekit/enhance"
	"voicekit/enhance/acoustics"
	"voicekit/factories"
	transporthandler "voicekit/handlers/transport"
	wstransport "voicekit/transports/websocket"

	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func main() {
	var addr string
	var settingsPath string
	flag.StringVar(&addr, "addr", ":8080", "HTTP listen address")
	flag.StringVar(&settingsPath, "settings", "settings.json", "path to settings file")
	flag.Parse()

	logger := core.GetLogger()

	if err := godotenv.Load(".env.local"); err != nil {
		logger.With(map[string]any{"error": err}).Warn("no .env.local file found or failed to load")
	}

	settings, err := factories.SettingsConfigFromFile(settingsPath)
	if err != nil {
		logger.With(map[string]any{"error": err}).Fatal("failed to load settings")
	}
	apiKeys := factories.APIKeysFromEnv()
	apiKeys.Apply(&settings)

	// One registry per process: sessions with the same audio shape share an
	// enhancement engine.
	registry := enhance.NewRegistry(acoustics.NewEngineFactory(apiKeys.Acoustics))

	pipeline := factories.NewPipeline(
		func(svc transporthandler.TransportService, ctx context.Context) ([]core.IHandler, error) {
			return factories.BuildSessionHandlers(settings, registry, svc, logger)
		},
		factories.PipelineConfig{Timeout: 30 * time.Minute},
		logger,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.With(map[string]any{"error": err}).Warn("websocket upgrade failed")
			return
		}
		sessionLogger := logger.With(map[string]any{"remote": r.RemoteAddr})
		sessionLogger.Info("session connected")

		svc := wstransport.NewWebSocketService(conn, sessionLogger)
		if err := pipeline.Run(svc, ctx); err != nil {
			sessionLogger.With(map[string]any{"error": err}).Warn("session ended with error")
		}
		sessionLogger.Info("session finished")
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	server := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logger.With(map[string]any{"addr": addr}).Info("listening for sessions")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.With(map[string]any{"error": err}).Fatal("http server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = server.Shutdown(shutdownCtx)
}
