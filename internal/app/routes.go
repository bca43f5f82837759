package app

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/chatspace/core/internal/middleware"
	"github.com/chatspace/core/internal/modules/chat"
	"github.com/chatspace/core/internal/modules/gateway/gateway"
	"github.com/chatspace/core/internal/modules/message"
	"github.com/chatspace/core/internal/modules/user"
	pkgredis "github.com/chatspace/core/internal/pkg/redis"
	"github.com/chatspace/core/internal/pkg/response"
)

func (a *App) registerRoutes(rc *pkgredis.Client, userSvc *user.Service, chatSvc *chat.Service, messageSvc *message.Service) {
	r := a.router
	db := a.db
	authMW := middleware.Auth(db)

	r.NoRoute(func(c *gin.Context) {
		response.NotFound(c, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		response.MethodNotAllowed(c)
	})

	// Rate limiting and idempotence run on every route (requires Redis).
	r.Use(middleware.RateLimit(rc.Raw()))
	r.Use(middleware.Idempotence(rc.Raw()))

	api := r.Group("/api")

	api.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"data": "pong"})
	})
	api.GET("/uptime", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"timestamp": time.Since(processStart).Milliseconds(),
		})
	})

	user.NewHandler(userSvc).RegisterRoutes(api, authMW)
	chat.NewHandler(chatSvc).RegisterRoutes(api, authMW)
	message.NewHandler(messageSvc).RegisterRoutes(api, authMW)
	gateway.RegisterRoutes(api, a.hub)
}
