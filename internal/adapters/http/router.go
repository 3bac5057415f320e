package http

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/trycode2018/chathub/internal/adapters/chat"
	"github.com/trycode2018/chathub/internal/app"
	"github.com/trycode2018/chathub/internal/config"
)

func SetupRouter(ctx context.Context, cfg *config.Config, hub *app.Hub) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	api.Use(AuthMiddleware(cfg.Secret))

	api.GET("/users/online", func(c *gin.Context) {
		c.JSON(200, gin.H{"online": hub.Presence.ListOnlineUserNames()})
	})

	ctrl := chat.NewController(hub, cfg)
	api.GET("/ws/chat", func(c *gin.Context) {
		log.Info().Str("module", "adapters.http").Str("user", c.GetString("user_name")).Msg("ws chat endpoint hit")
		ctrl.HandleChat(ctx, c)
	})

	return r
}
