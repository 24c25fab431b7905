package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"audience-sync/pkg/api"
	syncapi "audience-sync/pkg/api/sync"
	"audience-sync/pkg/database"
	"audience-sync/pkg/platform"
	"audience-sync/pkg/queue"
	"audience-sync/pkg/syncengine"
	"audience-sync/pkg/utils"
)

func main() {
	config := utils.LoadConfig()

	utils.InitLogger(config.Environment, config.LogLevel)

	if err := database.Initialize(config.DatabaseURL); err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database")
	}

	mode := syncengine.ParseMode(config.SyncMode)
	limits := syncengine.NewRateLimitTracker()

	// Platforms without credentials are simply not registered: the engine
	// degrades to default snapshots for them instead of failing.
	var adapters []syncengine.Adapter
	if config.InstagramAccessToken != "" {
		adapters = append(adapters, platform.NewInstagram(config.InstagramAccessToken, limits))
	}
	if config.TikTokAPIKey != "" {
		adapters = append(adapters, platform.NewTikTok(config.TikTokAPIKey, limits))
	}
	if config.YouTubeAPIKey != "" {
		adapters = append(adapters, platform.NewYouTube(config.YouTubeAPIKey, limits))
	}
	if config.TwitterBearerToken != "" {
		adapters = append(adapters, platform.NewTwitter(config.TwitterBearerToken, limits))
	}
	registry := platform.NewRegistry(adapters...)
	log.Info().Strs("platforms", registry.Platforms()).Str("mode", string(mode)).Msg("sync engine configured")

	store := database.NewStore()
	engine := syncengine.NewOrchestrator(mode.Config(), store, registry, limits)
	collector := syncengine.NewCollector(mode, store, registry, limits)

	pool := queue.NewWorkerPool(queue.Options{NumWorkers: config.MaxConcurrency})
	pool.Start()

	handler := syncapi.NewHandler(engine, collector, store, pool)

	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.InitRouter(handler)

	server := &http.Server{
		Addr:           fmt.Sprintf(":%s", config.ServerPort),
		Handler:        router,
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   30 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20, // 1MB
	}
	server.SetKeepAlivesEnabled(true)

	log.Info().Msgf("Starting audience-sync on port %s", config.ServerPort)

	if err := server.ListenAndServe(); err != nil {
		log.Fatal().Err(err).Msg("failed to start server")
	}
}
