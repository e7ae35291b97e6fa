package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"hls-player/internal/engine"
	"hls-player/internal/media"
	"hls-player/internal/platform/config"
	"hls-player/internal/platform/logger"
	"hls-player/internal/platform/metrics"
	"hls-player/internal/player"
	"hls-player/internal/session"
	"hls-player/internal/surface"
	"hls-player/internal/thumbs"
)

const shutdownTimeout = 10 * time.Second

func main() {
	_ = config.Load()

	port := config.GetEnv("PORT", "8080")
	logLevel := config.GetEnv("LOG_LEVEL", "info")
	logFormat := config.GetEnv("LOG_FORMAT", "json")
	sourceURL := config.GetEnv("SOURCE_URL", "")
	assetID := config.GetEnv("ASSET_ID", "")
	posterURL := config.GetEnv("POSTER_URL", "")
	redisAddr := config.GetEnv("REDIS_ADDR", "")
	sessionTTL := config.GetEnvDuration("SESSION_TTL", 0)
	autoplay := config.GetEnvBool("AUTOPLAY", true)
	initialMuted := config.GetEnvBool("INITIAL_MUTED", false)
	viewportWidth := config.GetEnvFloat("VIEWPORT_WIDTH", 1280)

	simNativeHLS := config.GetEnvBool("SIM_NATIVE_HLS", false)
	simClipDuration := config.GetEnvFloat("SIM_CLIP_DURATION", 600)
	simBlockAutoplay := config.GetEnvBool("SIM_BLOCK_UNMUTED_AUTOPLAY", true)

	log := logger.New(logLevel, logFormat)

	if sourceURL == "" {
		log.Error("SOURCE_URL is required")
		os.Exit(1)
	}
	if assetID == "" {
		assetID = sourceURL
	}
	if posterURL == "" {
		posterURL = thumbs.PosterFromManifest(sourceURL)
	}

	met := metrics.New()
	ctx := context.Background()

	var store session.Store
	if redisAddr != "" {
		client, err := session.DialRedis(ctx, redisAddr)
		if err != nil {
			log.Error("redis connection failed", "error", err)
			os.Exit(1)
		}
		defer client.Close()
		store = session.NewRedisStore(client, sessionTTL)
		log.Info("session store: redis", "addr", redisAddr)
	} else {
		store = session.NewMemoryStore()
		log.Info("session store: in-memory")
	}

	cont := session.NewContinuity(store, "", log, met)
	rec, restored := cont.Seed(ctx, assetID)

	// Stored session preference wins over the configured default; a fresh
	// record falls back to the option.
	muted := initialMuted
	if restored {
		muted = rec.Muted()
	}

	el := media.NewSimElement(media.SimOptions{
		NativeHLS:        simNativeHLS,
		ClipDuration:     simClipDuration,
		BlockUnmutedPlay: simBlockAutoplay,
	})
	defer el.Close()
	if rec.HasInteracted {
		el.AllowUnmutedPlay()
	}

	ctrl := player.NewController(el, player.Options{
		InitialMuted:  muted,
		InitialTime:   rec.PositionSeconds,
		HasInteracted: rec.HasInteracted,
		Autoplay:      autoplay,
		OnTimeUpdate:  func(pos float64) { cont.OnTimeUpdate(ctx, pos) },
		OnMuteChange:  func(m bool) { cont.SetMuted(ctx, m) },
	}, log)

	h := surface.NewHandler(ctrl, cont, log, met, el.AllowUnmutedPlay)
	h.SetPosterURL(posterURL)
	hub := surface.NewHub(log)
	unsubscribe := ctrl.Subscribe(func(player.Snapshot) { hub.Broadcast(h.StateView()) })
	defer unsubscribe()

	engCfg := engine.DefaultConfig()
	engCfg.FetchTimeout = config.GetEnvDuration("MANIFEST_FETCH_TIMEOUT", engCfg.FetchTimeout)
	engCfg.MaxBufferSeconds = config.GetEnvFloat("MAX_BUFFER_SECONDS", engCfg.MaxBufferSeconds)

	var loader *engine.Loader
	loader, err := engine.NewLoader(el, sourceURL, engCfg, log, met,
		func() {
			ctrl.HandleReady(ctx)
			// Cue sheets resolve only after the manifest is ready, never in
			// parallel with the initial load.
			go loadThumbnails(ctx, loader, sourceURL, viewportWidth, h, log)
		},
		ctrl.HandleLoadError,
	)
	if err != nil {
		log.Error("engine selection failed", "error", err)
		os.Exit(1)
	}

	ctrl.Bind()
	loader.Load(ctx)

	r := chi.NewRouter()
	r.Use(logger.RequestLogger(log))
	r.Use(metrics.RequestMiddleware(met))
	r.Handle("/metrics", met.Handler(func() { met.SetActiveSessions(1) }))
	r.Mount("/player", h.Routes())
	r.Get("/player/events", hub.Handle)

	addr := ":" + port
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	log.Info("player service starting",
		"port", port,
		"source", sourceURL,
		"asset_id", assetID,
		"autoplay", autoplay,
		"resume_position", rec.PositionSeconds,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info("shutdown signal received, draining")

	cont.Flush(ctx, ctrl.Snapshot().CurrentTime)
	loader.Close()
	ctrl.Unbind()
	hub.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	log.Info("player service stopped")
}

// loadThumbnails locates, fetches, and indexes the scrub preview cue sheet.
// A missing or empty sheet leaves previews disabled and is not an error.
func loadThumbnails(ctx context.Context, loader *engine.Loader, sourceURL string, viewportWidth float64, h *surface.Handler, log *slog.Logger) {
	sheetURL := thumbs.Locate(loader.Tracks(), sourceURL)
	cues, err := thumbs.Fetch(ctx, nil, sheetURL)
	if err != nil {
		log.Warn("cue sheet fetch failed", "url", sheetURL, "error", err)
		return
	}

	index := thumbs.NewIndex(cues)
	if !index.Loaded() {
		log.Info("no preview thumbnails", "url", sheetURL)
		return
	}

	resolver := thumbs.NewResolver(index, viewportWidth, func(url string) {
		go warmSprite(url)
	})
	h.SetThumbnails(resolver, true)
	log.Info("preview thumbnails loaded", "url", sheetURL, "cues", len(cues))
}

// warmSprite fetches a sprite image once so the first hover shows instantly.
func warmSprite(url string) {
	resp, err := http.Get(url)
	if err != nil {
		return
	}
	_ = resp.Body.Close()
}
