package http

import (
	"net/http"
	"slices"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/immxrtalbeast/axenix_relay/internal/config"
)

func SetupRouter(cfg config.HTTPConfig, signalController *SignalController, roomController *RoomController, metricsHandler http.Handler) *gin.Engine {
	router := gin.Default()

	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowOrigins) == 0 || slices.Contains(cfg.AllowOrigins, "*") {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = cfg.AllowOrigins
		corsConfig.AllowCredentials = true
	}
	corsConfig.AllowHeaders = []string{
		"Authorization",
		"Content-Type",
		"Origin",
		"Accept",
	}
	corsConfig.AllowMethods = []string{"GET", "HEAD", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	router.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if metricsHandler != nil {
		router.GET("/metrics", gin.WrapH(metricsHandler))
	}

	if signalController != nil {
		wsPath := cfg.WSPath
		if wsPath == "" {
			wsPath = "/"
		}
		router.GET(wsPath, signalController.Connect)
		if wsPath != "/ws" {
			router.GET("/ws", signalController.Connect)
		}
	}

	if roomController != nil {
		api := router.Group("/api")
		api.GET("/ice-servers", roomController.ICEServers)

		rooms := api.Group("/rooms")
		rooms.GET("", roomController.ListRooms)
		rooms.GET("/:roomID", roomController.GetRoom)
	}

	return router
}
