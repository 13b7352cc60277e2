package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/matthewgall/epicdeals/internal/config"
	"github.com/matthewgall/epicdeals/internal/http/server"
)

var (
	configFile        = flag.String("config", "config.yaml", "Path to configuration file")
	envFile           = flag.String("env-file", ".env", "Path to dotenv file")
	version           = flag.Bool("version", false, "Show version information")
	serverAddress     = flag.String("address", "", "Server address (host:port)")
	serverHost        = flag.String("host", "", "Server host")
	serverPort        = flag.Int("port", 0, "Server port")
	ebayClientID      = flag.String("ebay-client-id", "", "eBay application client id")
	ebayClientSecret  = flag.String("ebay-client-secret", "", "eBay application client secret")
	ebayMarketplace   = flag.String("ebay-marketplace", "", "Default eBay marketplace id")
	searchAPIKey      = flag.String("search-api-key", "", "Brave search API key")
	completionAPIKey  = flag.String("completion-api-key", "", "OpenAI API key")
	completionBaseURL = flag.String("completion-base-url", "", "OpenAI compatible base URL")
	completionModel   = flag.String("completion-model", "", "Completion model")
	cacheProvider     = flag.String("cache", "", "Cache provider (none, sqlite, redis)")
	cacheDir          = flag.String("cache-dir", "", "Cache directory")
	cacheRedisURL     = flag.String("cache-redis-url", "", "Cache redis URL")
	cacheSearchTTL    = flag.Duration("cache-ttl-search", 0, "Cache TTL for web search results")
	cacheDealsTTL     = flag.Duration("cache-ttl-deals", 0, "Cache TTL for deals pages")
	clearCache        = flag.Bool("clear-cache", false, "Empty the response cache on startup")
	ebayTimeout       = flag.Duration("ebay-timeout", 0, "Timeout for eBay Browse API calls")
	searchTimeout     = flag.Duration("search-timeout", 0, "Timeout for web search calls")
	completionTimeout = flag.Duration("completion-timeout", 0, "Timeout for completion calls")
	archiveMethod     = flag.String("archive", "", "Comparison archive (none, local, s3)")
	archiveDir        = flag.String("archive-dir", "", "Comparison archive directory")
	authTokenSecret   = flag.String("auth-token-secret", "", "Secret for compare bearer tokens")
	minDiscount       = flag.Int("deals-min-discount", -1, "Minimum deal discount percent")
)

const (
	appName    = "Epic.Deals"
	appVersion = "1.0.0"
)

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("%s v%s\n", appName, appVersion)
		os.Exit(0)
	}

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Warning: failed to load %s: %v", *envFile, err)
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	overrides := config.Overrides{}
	if *serverAddress != "" {
		overrides.ServerAddress = serverAddress
	} else if *serverHost != "" || *serverPort != 0 {
		host, port := splitAddress(cfg.Server.Address)
		if *serverHost != "" {
			host = *serverHost
		}
		if *serverPort != 0 {
			port = fmt.Sprintf("%d", *serverPort)
		}
		if host == "" {
			host = "0.0.0.0"
		}
		if port == "" {
			port = "8080"
		}
		address := net.JoinHostPort(host, port)
		overrides.ServerAddress = &address
	}
	if *ebayClientID != "" {
		overrides.EBayClientID = ebayClientID
	}
	if *ebayClientSecret != "" {
		overrides.EBayClientSecret = ebayClientSecret
	}
	if *ebayMarketplace != "" {
		overrides.EBayMarketplace = ebayMarketplace
	}
	if *searchAPIKey != "" {
		overrides.SearchAPIKey = searchAPIKey
	}
	if *completionAPIKey != "" {
		overrides.CompletionAPIKey = completionAPIKey
	}
	if *completionBaseURL != "" {
		overrides.CompletionBaseURL = completionBaseURL
	}
	if *completionModel != "" {
		overrides.CompletionModel = completionModel
	}
	if *cacheProvider != "" {
		overrides.CacheProvider = cacheProvider
	}
	if *cacheDir != "" {
		overrides.CacheDirectory = cacheDir
	}
	if *cacheRedisURL != "" {
		overrides.CacheRedisURL = cacheRedisURL
	}
	if *cacheSearchTTL != 0 {
		overrides.CacheTTLSearch = cacheSearchTTL
	}
	if *cacheDealsTTL != 0 {
		overrides.CacheTTLDeals = cacheDealsTTL
	}
	if *clearCache {
		overrides.CacheClearOnStart = clearCache
	}
	if *ebayTimeout > 0 {
		overrides.MarketplaceTimeout = ebayTimeout
	}
	if *searchTimeout > 0 {
		overrides.SearchTimeout = searchTimeout
	}
	if *completionTimeout > 0 {
		overrides.CompletionTimeout = completionTimeout
	}
	if *archiveMethod != "" {
		overrides.ArchiveMethod = archiveMethod
	}
	if *archiveDir != "" {
		overrides.ArchiveLocalDir = archiveDir
	}
	if *authTokenSecret != "" {
		overrides.AuthTokenSecret = authTokenSecret
	}
	if *minDiscount >= 0 {
		overrides.DealsMinDiscount = minDiscount
	}

	if err := cfg.ApplyOverrides(overrides); err != nil {
		log.Fatalf("Failed to apply overrides: %v", err)
	}

	srv, err := server.New(cfg)
	if err != nil {
		log.Fatalf("Failed to initialise server: %v", err)
	}
	defer srv.Close()

	if err := srv.StartJobs(); err != nil {
		log.Fatalf("Failed to schedule background jobs: %v", err)
	}

	httpServer := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      srv,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Printf("Starting %s server on %s", appName, cfg.Server.Address)
		if !cfg.CompareConfigured() {
			log.Printf("Warning: BRAVE_API_KEY or OPENAI_API_KEY missing, /compare will fail")
		}
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

func splitAddress(address string) (string, string) {
	if address == "" {
		return "", ""
	}
	host, port, err := net.SplitHostPort(address)
	if err != nil {
		return "", ""
	}
	return host, port
}
