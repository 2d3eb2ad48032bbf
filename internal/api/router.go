package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fantaasta/auction/internal/api/handler"
	"github.com/fantaasta/auction/internal/api/middleware"
	"github.com/fantaasta/auction/internal/config"
	"github.com/fantaasta/auction/internal/metrics"
	"github.com/fantaasta/auction/internal/service"
	"github.com/fantaasta/auction/internal/ws"
)

// RouterDeps bundles every dependency needed to build the router.
// Populated once in main() and passed to SetupRouter.
type RouterDeps struct {
	AuctionSvc *service.AuctionService
	Hub        *ws.Hub              // optional
	Metrics    *metrics.Metrics     // optional
	Throttle   *middleware.Throttle // optional; built from Cfg when nil
	Cfg        *config.Config
}

// SetupRouter creates and configures the main Gin engine with all routes,
// middleware, CORS, and per-team throttling.
func SetupRouter(deps RouterDeps) *gin.Engine {
	if deps.Cfg.IsProd() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(gin.LoggerWithFormatter(accessLog))
	r.Use(gin.Recovery())

	// ── CORS ─────────────────────────────────────────────────────────────────
	r.Use(corsMiddleware(deps.Cfg))

	// ── Health check & metrics ───────────────────────────────────────────────
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	// ── Handlers ─────────────────────────────────────────────────────────────
	auctionH := handler.NewAuctionHandler(deps.AuctionSvc)

	// ── Per-team throttle ────────────────────────────────────────────────────
	throttle := deps.Throttle
	if throttle == nil {
		throttle = middleware.NewThrottle(deps.Cfg.Auction.BidRateLimit)
	}
	writeRL := throttle.Handler()

	api := r.Group("/api")
	{
		// ── Live lot ─────────────────────────────────────────────────────────
		auction := api.Group("/auction")
		{
			auction.GET("/status", auctionH.Status)
			auction.POST("/start", writeRL, auctionH.Start)
			auction.POST("/bid", writeRL, auctionH.Bid)
			auction.POST("/confirm", writeRL, auctionH.Confirm)
			auction.POST("/cancel", writeRL, auctionH.Cancel)
		}

		// ── History ──────────────────────────────────────────────────────────
		api.GET("/history", auctionH.History)
		api.POST("/history/delete", writeRL, auctionH.DeleteHistory)

		// ── Roster views ─────────────────────────────────────────────────────
		api.GET("/players", auctionH.Players)
		api.GET("/teams", auctionH.Teams)
	}

	// ── WebSocket ─────────────────────────────────────────────────────────────
	if deps.Hub != nil {
		r.GET("/ws", func(c *gin.Context) {
			deps.Hub.ServeWs(c.Writer, c.Request)
		})
	}

	// ── Static UI / 404 ───────────────────────────────────────────────────────
	r.NoRoute(noRoute(deps.Cfg.Server.StaticDir))

	return r
}

// noRoute serves the optional static UI for unmatched GETs and answers
// everything else with a 404 envelope.
func noRoute(staticDir string) gin.HandlerFunc {
	var files http.Handler
	if staticDir != "" {
		files = http.FileServer(http.Dir(staticDir))
	}
	return func(c *gin.Context) {
		method := c.Request.Method
		if files != nil && (method == http.MethodGet || method == http.MethodHead) {
			files.ServeHTTP(c.Writer, c.Request)
			return
		}
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   "route not found",
			"code":    "ERR_NOT_FOUND",
		})
	}
}

// accessLog is gin's default line plus the request id.
func accessLog(p gin.LogFormatterParams) string {
	return fmt.Sprintf("[GIN] %v | %3d | %13v | %15s | %-7s %#v | %v\n%s",
		p.TimeStamp.Format(time.RFC3339),
		p.StatusCode,
		p.Latency,
		p.ClientIP,
		p.Method,
		p.Path,
		p.Keys[middleware.CtxKeyRequestID],
		p.ErrorMessage,
	)
}

// ── CORS helper ───────────────────────────────────────────────────────────────

// corsMiddleware returns a gin middleware that sets appropriate CORS headers.
// Outside production all origins are allowed; in production only the
// configured origins are echoed back.
func corsMiddleware(cfg *config.Config) gin.HandlerFunc {
	allowed := make(map[string]bool, len(cfg.Server.AllowedOrigins))
	for _, o := range cfg.Server.AllowedOrigins {
		allowed[o] = true
	}

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		if !cfg.IsProd() {
			// Development: allow any origin
			c.Header("Access-Control-Allow-Origin", "*")
		} else if origin != "" && allowed[origin] {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Vary", "Origin")
		}

		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
