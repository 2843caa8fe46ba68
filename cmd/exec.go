package cmd

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"karaoke-live/config"
	"karaoke-live/handlers"
	"karaoke-live/internal/services/deck"
	"karaoke-live/models"
	"karaoke-live/monitoring"
	"karaoke-live/security"
	"karaoke-live/services"
	"karaoke-live/utils"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/plugins/migratecmd"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	pubnub "github.com/pubnub/go/v7"
	"github.com/redis/go-redis/v9"
)

func Start() error {
	app := pocketbase.New()

	// Load configuration
	cfg := config.LoadConfig()

	// Initialize Redis
	redisClient := utils.NewRedisClient(cfg.RedisURL, cfg.RedisPassword, cfg.RedisDB)
	defer redisClient.Close()

	// Initialize PubNub. Without keys the platform still runs, just without
	// real-time push; clients fall back to polling the HTTP views.
	var pn *pubnub.PubNub
	if cfg.PubNubPublishKey != "" && cfg.PubNubSubscribeKey != "" {
		pnConfig := pubnub.NewConfigWithUserId(pubnub.UserId(cfg.PubNubUUID))
		pnConfig.PublishKey = cfg.PubNubPublishKey
		pnConfig.SubscribeKey = cfg.PubNubSubscribeKey
		pnConfig.SecretKey = cfg.PubNubSecretKey
		pn = pubnub.NewPubNub(pnConfig)
	} else {
		log.Println("PubNub keys not set, real-time push disabled")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize services
	monitor := monitoring.NewMonitor(redisClient)
	store := services.NewQueueStore(redisClient)
	feed := services.NewChangeFeed(pn)
	feed.StartRemoteListener(ctx)
	archive := services.NewPerformanceArchive(app)
	limiter := security.NewRateLimiter(redisClient, cfg)
	queueService := services.NewQueueService(store, redisClient, feed, archive, limiter, monitor)
	confirmTimer := services.NewConfirmTimer(store, queueService, redisClient, monitor, cfg)
	broadcaster := services.NewPubNubBroadcaster(pn)
	bridges := services.NewBridgeManager(store, queueService, feed, broadcaster, monitor, deck.NewFactory(), cfg)

	// Initialize handlers
	queueHandler := handlers.NewQueueHandler(queueService, confirmTimer)
	operatorHandler := handlers.NewOperatorHandler(app, queueService, bridges)
	deckHandler := handlers.NewDeckHandler(bridges, operatorHandler, cfg)
	displayHandler := handlers.NewDisplayHandler(queueService, bridges)

	// Enable migrations
	migratecmd.MustRegister(app, app.RootCmd, migratecmd.Config{
		Automigrate: true,
	})

	// Start background tasks
	confirmTimer.Start()

	// Setup graceful shutdown
	go handleShutdown(cancel, confirmTimer, bridges)

	if cfg.EnableMetrics {
		go startMetricsServer(cfg.MetricsPort)
	}

	app.OnServe().BindFunc(func(e *core.ServeEvent) error {
		syncActiveVenuesToRedis(app, redisClient)

		handlers.RegisterRoutes(e, queueHandler, operatorHandler, deckHandler, displayHandler, limiter, redisClient)
		log.Println("Server routes registered")

		setupVenueHooks(app, redisClient)

		return e.Next()
	})

	// Start server
	if err := app.Start(); err != nil {
		log.Fatal(err)
	}
	return nil
}

// syncActiveVenuesToRedis rebuilds the active venue set on startup so the
// confirmation timer and metrics collector see venues created while the
// server was down.
func syncActiveVenuesToRedis(app *pocketbase.PocketBase, redisClient *redis.Client) {
	ctx := context.Background()

	var records []dbx.NullStringMap
	if err := app.DB().NewQuery(
		"SELECT id FROM venues WHERE status = 'active'",
	).All(&records); err != nil {
		log.Printf("Error fetching active venues: %v", err)
		return
	}

	redisClient.Del(ctx, "active_venues")

	if len(records) > 0 {
		var venueIDs []interface{}
		for _, record := range records {
			if id := record["id"].String; id != "" {
				venueIDs = append(venueIDs, id)
			}
		}

		if len(venueIDs) > 0 {
			redisClient.SAdd(ctx, "active_venues", venueIDs...)
			log.Printf("Synced %d active venues to Redis", len(venueIDs))
		}
	}
}

// setupVenueHooks keeps the Redis active venue set in step with venue
// record changes. Redis failures are logged, never surfaced to the admin
// request; the startup sync repairs any drift.
func setupVenueHooks(app *pocketbase.PocketBase, redisClient *redis.Client) {
	app.OnRecordCreateRequest("venues").BindFunc(func(e *core.RecordRequestEvent) error {
		if err := e.Next(); err != nil {
			return err
		}

		ctx := e.Request.Context()
		if e.Record.GetString("status") == models.VenueStatusActive {
			if err := redisClient.SAdd(ctx, "active_venues", e.Record.Id).Err(); err != nil {
				slog.Error("Failed to add new active venue to Redis", "venueID", e.Record.Id, "error", err)
				return nil
			}
			slog.Info("Added new active venue to Redis", "venueID", e.Record.Id)
		}
		return nil
	})

	app.OnRecordUpdateRequest("venues").BindFunc(func(e *core.RecordRequestEvent) error {
		if err := e.Next(); err != nil {
			return err
		}

		ctx := e.Request.Context()
		venueID := e.Record.Id

		if e.Record.GetString("status") == models.VenueStatusActive {
			if err := redisClient.SAdd(ctx, "active_venues", venueID).Err(); err != nil {
				slog.Error("Failed to add updated active venue to Redis", "venueID", venueID, "error", err)
				return nil
			}
			slog.Info("Ensured venue is active in Redis", "venueID", venueID)
		} else {
			if err := redisClient.SRem(ctx, "active_venues", venueID).Err(); err != nil {
				slog.Error("Failed to remove inactive venue from Redis", "venueID", venueID, "error", err)
				return nil
			}
			slog.Info("Removed inactive venue from Redis", "venueID", venueID)
		}
		return nil
	})

	app.OnRecordDeleteRequest("venues").BindFunc(func(e *core.RecordRequestEvent) error {
		if err := e.Next(); err != nil {
			return err
		}

		ctx := e.Request.Context()
		if err := redisClient.SRem(ctx, "active_venues", e.Record.Id).Err(); err != nil {
			slog.Error("Failed to remove deleted venue from Redis", "venueID", e.Record.Id, "error", err)
			return nil
		}
		slog.Info("Removed deleted venue from Redis", "venueID", e.Record.Id)
		return nil
	})
}

func startMetricsServer(port string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	log.Printf("Metrics server listening on :%s", port)
	if err := http.ListenAndServe(":"+port, mux); err != nil {
		log.Printf("Metrics server stopped: %v", err)
	}
}

// handleShutdown handles graceful shutdown
func handleShutdown(cancel context.CancelFunc, confirmTimer *services.ConfirmTimer, bridges *services.BridgeManager) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	log.Println("Shutdown signal received, cleaning up...")

	confirmTimer.Shutdown()
	bridges.Shutdown(context.Background())
	cancel()
}
