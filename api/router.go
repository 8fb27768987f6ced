package api

import (
	"github.com/gin-gonic/gin"

	"github.com/yourusername/pulldown-go/api/handlers"
	"github.com/yourusername/pulldown-go/api/middleware"
	"github.com/yourusername/pulldown-go/internal/app"
	"go.uber.org/zap"
)

// RouterConfig contains the dependencies of the local API
type RouterConfig struct {
	Session     *app.Session
	LogsDir     string
	RecentLimit int
	Logger      *zap.Logger
}

// SetupRouter sets up the HTTP router. The returned func releases the
// view feed subscription.
func SetupRouter(config RouterConfig) (*gin.Engine, func()) {
	log := config.Logger
	if log == nil {
		log = zap.NewNop()
	}

	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	router.Use(middleware.Logger(log))
	router.Use(middleware.Recovery(log, config.Session.ID()))
	router.Use(middleware.CORS())

	healthHandler := handlers.NewHealthHandler(config.Session)
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	viewFeed := handlers.NewViewWebSocketHandler(config.Session.View(), log)

	v1 := router.Group("/api/v1")
	{
		taskHandler := handlers.NewTaskHandler(config.Session, log)
		tasks := v1.Group("/tasks")
		{
			tasks.POST("", taskHandler.AddTask)
			tasks.GET("", taskHandler.ListTasks)
			tasks.GET("/stats", taskHandler.GetStats)
			tasks.GET("/lookup", taskHandler.LookupTask)
			tasks.POST("/pause", taskHandler.PauseTask)
			tasks.POST("/resume", taskHandler.ResumeTask)
			tasks.POST("/pause-all", taskHandler.PauseAll)
			tasks.POST("/resume-all", taskHandler.ResumeAll)
			tasks.POST("/stop-all", taskHandler.StopAll)
		}

		v1.GET("/view", taskHandler.GetView)
		v1.PUT("/view", taskHandler.SetView)
		v1.GET("/ws", viewFeed.HandleWebSocket)

		v1.GET("/notices", taskHandler.ListNotices)
		v1.DELETE("/notices", taskHandler.ClearNotices)
		v1.DELETE("/notices/:id", taskHandler.DismissNotice)

		diagnosticsHandler := handlers.NewDiagnosticsHandler(config.Session.Diagnostics(), config.RecentLimit, log)
		v1.GET("/diagnostics", diagnosticsHandler.GetDiagnostics)

		logHandler := handlers.NewLogHandler(config.LogsDir)
		logs := v1.Group("/logs")
		{
			logs.GET("/categories", logHandler.GetCategories)
			logs.GET("/:category", logHandler.GetLogs)
			logs.GET("/:category/search", logHandler.SearchLogs)
			logs.GET("/:category/export", logHandler.ExportLogs)
		}
	}

	return router, viewFeed.Close
}
