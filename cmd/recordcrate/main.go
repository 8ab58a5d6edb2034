// Command recordcrate runs the RecordCrate API server.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/viper"

	"github.com/recordcrate/recordcrate/internal/auth"
	"github.com/recordcrate/recordcrate/internal/charts"
	"github.com/recordcrate/recordcrate/internal/config"
	"github.com/recordcrate/recordcrate/internal/db"
	"github.com/recordcrate/recordcrate/internal/spotify"
	"github.com/recordcrate/recordcrate/internal/suggest"
	"github.com/recordcrate/recordcrate/internal/web"
)

func main() {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "recordcrate",
	})

	if err := run(logger); err != nil {
		logger.Fatal("exiting", "err", err)
	}
}

func run(logger *log.Logger) error {
	if err := config.Load(); err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	ctx := context.Background()

	database, err := db.New(ctx, viper.GetString("database.url"))
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer database.Close()

	if err := database.Initialize(ctx); err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}

	clientID := viper.GetString("spotify.client_id")
	clientSecret := viper.GetString("spotify.client_secret")

	appTokens := spotify.NewAppTokenSource(clientID, clientSecret)
	catalog := spotify.New(ctx, appTokens)

	oauthConfig := auth.SpotifyConfig(clientID, clientSecret, viper.GetString("spotify.redirect_url"))
	tokens := auth.NewTokenStore(database.Users(), oauthConfig, logger)

	fetcher := charts.NewFetcher(logger)
	enricher := charts.NewEnricher(catalog, logger)
	chartCache := charts.NewCache(fetcher, enricher, viper.GetDuration("charts.cache_ttl"))

	var generator suggest.Generator
	if apiKey := viper.GetString("gemini.api_key"); apiKey != "" {
		generator = suggest.NewClient(apiKey)
	} else {
		logger.Info("gemini.api_key not set, search suggestions use the keyword fallback")
	}
	suggestions := suggest.NewService(generator, logger)

	handlers := web.NewHandlers(database.Reviews(), database.Users(), tokens, chartCache, catalog, suggestions, logger)

	addr := fmt.Sprintf("%s:%s", viper.GetString("server.host"), viper.GetString("server.port"))
	server := web.NewServer(web.ServerConfig{Addr: addr}, handlers, logger)
	return server.Run()
}
