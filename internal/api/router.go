package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/dfs-showdown/internal/api/handlers"
	"github.com/stitts-dev/dfs-showdown/internal/api/middleware"
	"github.com/stitts-dev/dfs-showdown/internal/services"
	"github.com/stitts-dev/dfs-showdown/internal/websocket"
	"github.com/stitts-dev/dfs-showdown/pkg/database"
)

// Dependencies are the services the HTTP layer exposes. Cache, Hub and
// Gatherer are optional.
type Dependencies struct {
	DB          *database.DB
	Cache       *services.CacheService
	Lineups     *services.LineupService
	Roster      *services.RosterService
	OverUnder   *services.OverUnderService
	Hub         *websocket.Hub
	Gatherer    prometheus.Gatherer
	JWTSecret   string
	CorsOrigins []string
	// OptimizeRateLimit is requests per minute per client; zero disables it.
	OptimizeRateLimit int
	Logger            *logrus.Entry
}

func NewRouter(deps Dependencies) *gin.Engine {
	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.RequestLogger(deps.Logger),
		middleware.CORS(deps.CorsOrigins),
	)

	var cache handlers.Pinger
	if deps.Cache != nil {
		cache = deps.Cache
	}
	health := handlers.NewHealthHandler(deps.DB, cache)
	router.GET("/health", health.GetHealth)
	router.GET("/ready", health.GetReady)
	if deps.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}
	if deps.Hub != nil {
		router.GET("/ws", deps.Hub.HandleWebSocket)
	}

	opt := handlers.NewOptimizerHandler(deps.Lineups, deps.Roster, deps.Logger)
	roster := handlers.NewRosterHandler(deps.Roster, deps.Logger)
	ou := handlers.NewOverUnderHandler(deps.OverUnder, deps.Logger)
	auth := middleware.AuthRequired(deps.JWTSecret)
	limit := middleware.RateLimit(deps.OptimizeRateLimit)

	v1 := router.Group("/api/v1")
	{
		v1.POST("/optimize", limit, opt.Optimize)
		v1.POST("/optimize/sweep", limit, opt.Sweep)
		v1.GET("/optimize/runs", opt.ListRuns)
		v1.GET("/optimize/runs/:id", opt.GetRun)
		v1.GET("/optimize/runs/:id/compare", opt.CompareRun)

		v1.GET("/rosters/:date", roster.GetRoster)
		v1.POST("/rosters/import", auth, roster.ImportCSV)
		v1.POST("/results", auth, roster.RecordResults)

		v1.POST("/over-under/predict", ou.Predict)
		v1.GET("/over-under/games/:date", ou.GetGames)
		v1.POST("/over-under/train", auth, ou.Train)
	}

	return router
}
