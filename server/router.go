package server

import (
	"time"

	httpHandler "instagram-feed/interfaces/http"
	"instagram-feed/interfaces/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RouterConfig carries the settings the router needs from configuration.
type RouterConfig struct {
	SecretKey      string
	AllowedOrigins []string
}

func InitiateRouter(
	cfg RouterConfig,
	feedHandler httpHandler.IFeedHandler,
	authHandler httpHandler.IInstagramAuthHandler,
	healthHandler httpHandler.IHealthHandler,
	stream gin.HandlerFunc,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(corsConfig(cfg.AllowedOrigins)))

	router.GET("/healthz", healthHandler.Healthz)

	// Public read surface used by the site.
	router.GET("/instagram/feed", feedHandler.GetFeed)
	if stream != nil {
		router.GET("/instagram/feed/stream", stream)
	}
	router.GET("/auth/instagram/callback", authHandler.Callback)

	api := router.Group("api")
	api.Use(middleware.Auth(cfg.SecretKey))
	instagram := api.Group("/instagram")
	{
		instagram.GET("/auth-url", authHandler.GetAuthURL)
		instagram.GET("/credential", authHandler.Status)
		instagram.POST("/credential/renew", authHandler.Renew)
		instagram.DELETE("/credential", authHandler.Invalidate)
		instagram.POST("/feed/refresh", feedHandler.RefreshFeed)
	}
	return router
}

func corsConfig(origins []string) cors.Config {
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}
	return cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		AllowOriginFunc: func(origin string) bool {
			_, ok := allowed[origin]
			return ok
		},
		MaxAge: 12 * time.Hour,
	}
}
