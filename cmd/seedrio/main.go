package main

import (
	"fmt"
	"net/http"
	"time"

	"seedrio/pkg/api"
	"seedrio/pkg/auth"
	"seedrio/pkg/config"
	"seedrio/pkg/env"
	"seedrio/pkg/logger"
	"seedrio/pkg/metadata"
	"seedrio/pkg/paths"
	"seedrio/pkg/persistence"
	"seedrio/pkg/resolver"
	"seedrio/pkg/seedr"
	"seedrio/pkg/stremio"

	"github.com/joho/godotenv"
)

const version = "0.1.0"

func main() {
	// Load environment variables for logger and bootstrap
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, using environment variables")
	}

	// Initialize Logger early so config loading can use it
	logger.Init(env.LogLevel())
	defer logger.Close()

	logger.Info("Starting Seedrio", "version", version)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", "err", err)
	}
	logger.SetLevel(cfg.LogLevel)

	// Persisted state keeps the device-flow token across restarts
	state, err := persistence.GetManager(paths.GetDataDir())
	if err != nil {
		logger.Fatal("Failed to open state store", "err", err)
	}

	// Device authorization manager doubles as the credential source
	sessionTTL := time.Duration(cfg.SessionTTLSeconds) * time.Second
	deviceManager := auth.NewManager(cfg.SeedrOAuthURL, cfg.SeedrClientID, sessionTTL, state)
	switch {
	case cfg.PastedToken != "":
		deviceManager.UseStaticToken(cfg.PastedToken)
		logger.Info("Using pasted token credential")
	case cfg.SessionCookie != "":
		deviceManager.UseCookie(cfg.SessionCookie)
		logger.Info("Using session cookie credential")
	default:
		logger.Info("Using device authorization flow", "authorize_url", cfg.AddonBaseURL+"/get-device-code")
	}

	storageClient := seedr.NewClient(cfg.SeedrAPIURL, deviceManager)
	metaClient := metadata.NewClient(cfg.CinemetaURL)
	contentResolver := resolver.New(storageClient, metaClient)

	// Stremio addon server
	stremioServer := stremio.NewServer(contentResolver, deviceManager, version)
	if err := stremioServer.CheckPort(cfg.AddonPort); err != nil {
		logger.Fatal("Port check failed", "err", err)
	}

	// Operational API server (status + websocket log streaming)
	apiServer := api.NewServer(cfg, deviceManager, version)
	stremioServer.SetAPIHandler(apiServer.Handler())

	// Setup HTTP routes; /api/ mounts before the catch-all "/"
	mux := http.NewServeMux()
	stremioServer.SetupRoutes(mux)
	mux.Handle("/api/", apiServer.Handler())

	addr := fmt.Sprintf(":%d", cfg.AddonPort)

	logger.Info("Stremio manifest URL", "url", cfg.AddonBaseURL+"/manifest.json")

	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Fatal("Server failed", "err", err)
	}
}
