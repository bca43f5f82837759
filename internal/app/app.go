package app

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/chatspace/core/internal/config"
	"github.com/chatspace/core/internal/database"
	"github.com/chatspace/core/internal/middleware"
	"github.com/chatspace/core/internal/modules/chat"
	"github.com/chatspace/core/internal/modules/gateway/gateway"
	"github.com/chatspace/core/internal/modules/message"
	"github.com/chatspace/core/internal/modules/user"
	pkgcron "github.com/chatspace/core/internal/pkg/cron"
	jwtpkg "github.com/chatspace/core/internal/pkg/jwt"
	pkgredis "github.com/chatspace/core/internal/pkg/redis"
	"github.com/chatspace/core/internal/pkg/session"
)

// App holds all application dependencies.
type App struct {
	cfg    *config.AppConfig
	router *gin.Engine
	db     *gorm.DB
	hub    *gateway.Hub
	logger *zap.Logger
	cancel context.CancelFunc
	sched  *pkgcron.Scheduler
}

// New initializes the application: config, database, Redis, gateway, routes.
func New(logger *zap.Logger, configPath string) (*App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if secret := strings.TrimSpace(cfg.JWTSecret); secret != "" {
		jwtpkg.SetSecret(secret)
	} else {
		logger.Warn("jwt_secret is empty, using built-in default secret")
	}

	db, err := database.Connect(cfg, true)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}

	rc, err := pkgredis.Connect(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}

	if cfg.IsDev() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(logger))
	router.Use(cors.New(buildCORSConfig(cfg)))

	userSvc := user.NewService(db)
	chatSvc := chat.NewService(db)
	messageSvc := message.NewService(db, chatSvc)

	store := &gatewayStore{users: userSvc, chats: chatSvc, messages: messageSvc}
	hub := gateway.NewHub(store, func(token string) (string, error) {
		return middleware.ValidateToken(db, token)
	}, rc, logger.Named("gateway"))

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	sched := pkgcron.New()
	registerCronJobs(sched, db, logger.Named("cron"))
	go sched.Start(ctx)

	app := &App{cfg: cfg, router: router, db: db, hub: hub, logger: logger, cancel: cancel, sched: sched}
	app.registerRoutes(rc, userSvc, chatSvc, messageSvc)

	return app, nil
}

// registerCronJobs registers background maintenance jobs.
func registerCronJobs(sched *pkgcron.Scheduler, db *gorm.DB, logger *zap.Logger) {
	sched.Register(pkgcron.Job{
		Name:        "purge_expired_sessions",
		Description: "delete auth sessions past their expiry",
		Interval:    time.Hour,
		Fn: func(ctx context.Context) error {
			n, err := session.PurgeExpired(db, time.Now())
			if err != nil {
				logger.Warn("session purge failed", zap.Error(err))
				return err
			}
			if n > 0 {
				logger.Info(fmt.Sprintf("purged %d expired sessions", n))
			}
			return nil
		},
	})
}

// Addr returns the listen address.
func (a *App) Addr() string { return fmt.Sprintf(":%d", a.cfg.Port) }

// Router returns the HTTP handler.
func (a *App) Router() http.Handler { return a.router }

// Shutdown cleans up background goroutines.
func (a *App) Shutdown() { a.cancel() }

var processStart = time.Now()
