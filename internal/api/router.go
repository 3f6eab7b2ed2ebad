package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/snapbooth/boothd/internal/alert"
	"github.com/snapbooth/boothd/internal/api/handlers"
	"github.com/snapbooth/boothd/internal/api/middleware"
	"github.com/snapbooth/boothd/internal/archive"
	"github.com/snapbooth/boothd/internal/core"
	"github.com/snapbooth/boothd/internal/share"
)

// Deps carries the wired components the HTTP surface exposes.
type Deps struct {
	Queue    *core.PrintQueue
	Share    *share.Dispatcher
	Alerts   *alert.Dispatcher
	Printers handlers.PrinterService
	Archiver *archive.Archiver
	Settings *handlers.SettingsHandler
	Logger   *slog.Logger
	Debug    bool
}

func NewRouter(d Deps) *gin.Engine {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if !d.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.Recovery(d.Logger))
	r.Use(middleware.RequestLogger(d.Logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api/v1")

	handlers.NewJobHandler(d.Queue).RegisterRoutes(v1)
	handlers.NewShareHandler(d.Share).RegisterRoutes(v1)
	handlers.NewAlertHandler(d.Alerts).RegisterRoutes(v1)
	handlers.NewPrinterHandler(d.Printers).RegisterRoutes(v1)
	handlers.NewArchiveHandler(d.Archiver).RegisterRoutes(v1)
	d.Settings.RegisterRoutes(v1)

	return r
}
