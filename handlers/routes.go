package handlers

import (
	"net/http"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"github.com/redis/go-redis/v9"

	"karaoke-live/security"
	"karaoke-live/utils"
)

// RegisterRoutes binds the whole HTTP surface onto the PocketBase router.
func RegisterRoutes(
	se *core.ServeEvent,
	queueHandler *QueueHandler,
	operatorHandler *OperatorHandler,
	deckHandler *DeckHandler,
	displayHandler *DisplayHandler,
	limiter *security.RateLimiter,
	redisClient *redis.Client,
) {
	// Singer endpoints.
	queue := se.Router.Group("/api/v1/queue")
	queue.Bind(apis.RequireAuth())
	if limiter != nil {
		queue.BindFunc(limiter.AntiBotMiddleware())
	}
	queue.POST("/submit", queueHandler.Submit)
	queue.POST("/confirm", queueHandler.Confirm)
	queue.POST("/cancel", queueHandler.Cancel)
	queue.POST("/complete", queueHandler.Complete)
	queue.GET("/view", queueHandler.View)
	queue.GET("/mine", queueHandler.Mine)

	// Venue display, no auth. Screens cannot log in.
	se.Router.GET("/api/v1/venues/{venueId}/display", displayHandler.Display)

	// Operator console.
	operator := se.Router.Group("/api/v1/operator")
	operator.Bind(apis.RequireAuth())
	operator.POST("/advance", operatorHandler.Advance)
	operator.POST("/complete", operatorHandler.Complete)
	operator.POST("/skip", operatorHandler.Skip)
	operator.POST("/pause", operatorHandler.Pause)
	operator.POST("/resume", operatorHandler.Resume)
	operator.GET("/dashboard", operatorHandler.Dashboard)

	// Deck controller bridge.
	deckGroup := se.Router.Group("/api/v1/deck")
	deckGroup.Bind(apis.RequireAuth())
	deckGroup.POST("/connect", deckHandler.Connect)
	deckGroup.POST("/disconnect", deckHandler.Disconnect)
	deckGroup.POST("/skip", deckHandler.Skip)
	deckGroup.POST("/vocals", deckHandler.Vocals)
	deckGroup.GET("/status", deckHandler.Status)

	se.Router.GET("/health", func(e *core.RequestEvent) error {
		if err := utils.RedisHealthCheck(redisClient); err != nil {
			return e.JSON(http.StatusServiceUnavailable, map[string]string{
				"status": "unhealthy",
				"error":  err.Error(),
			})
		}
		return e.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
}
