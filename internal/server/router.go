package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/Fleezyflo/moh-time-os-sub004/internal/handlers"
	"github.com/Fleezyflo/moh-time-os-sub004/internal/middleware"
	"github.com/Fleezyflo/moh-time-os-sub004/internal/platform/logger"
)

type RouterConfig struct {
	Log             *logger.Logger
	ServiceName     string
	AllowOrigins    []string
	AuthMiddleware  *middleware.AuthMiddleware
	ArtifactHandler *handlers.ArtifactHandler
	IdentityHandler *handlers.IdentityHandler
	LinkHandler     *handlers.LinkHandler
	SignalHandler   *handlers.SignalHandler
	ProposalHandler *handlers.ProposalHandler
	IssueHandler    *handlers.IssueHandler
	BriefHandler    *handlers.BriefHandler
	AdminHandler    *handlers.AdminHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(cfg.ServiceName))
	router.Use(middleware.RequestLogger(cfg.Log))

	origins := cfg.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", handlers.HealthCheck)

	api := router.Group("/api")
	api.Use(cfg.AuthMiddleware.RequireAuth())
	auth := cfg.AuthMiddleware

	// Artifact store
	api.POST("/artifacts", auth.RequireAccess("write", "artifact"), cfg.ArtifactHandler.Create)
	api.GET("/artifacts", auth.RequireAccess("read", "artifact"), cfg.ArtifactHandler.Find)
	api.GET("/artifacts/:id", auth.RequireAccess("read", "artifact"), cfg.ArtifactHandler.Get)
	api.POST("/artifacts/:id/excerpts", auth.RequireAccess("write", "artifact"), cfg.ArtifactHandler.CreateExcerpt)
	api.GET("/artifacts/:id/links", auth.RequireAccess("read", "link"), cfg.LinkHandler.ListForArtifact)

	// Identity resolver
	api.POST("/identity/resolve", auth.RequireAccess("write", "identity"), cfg.IdentityHandler.Resolve)
	api.POST("/identity/merge", auth.RequireAccess("write", "identity"), cfg.IdentityHandler.Merge)
	api.GET("/identity/profiles/:id", auth.RequireAccess("read", "identity"), cfg.IdentityHandler.GetProfile)
	api.POST("/identity/profiles/:id/claims", auth.RequireAccess("write", "identity"), cfg.IdentityHandler.AddClaim)

	// Entity linker and fix-data queue
	api.POST("/links", auth.RequireAccess("write", "link"), cfg.LinkHandler.Create)
	api.POST("/links/:id/confirm", auth.RequireAccess("write", "link"), cfg.LinkHandler.Confirm)
	api.POST("/links/:id/reject", auth.RequireAccess("write", "link"), cfg.LinkHandler.Reject)
	api.GET("/fix-data", auth.RequireAccess("read", "link"), cfg.LinkHandler.ListFixData)
	api.POST("/fix-data/:id/resolve", auth.RequireAccess("write", "link"), cfg.LinkHandler.ResolveFixData)

	// Signals
	api.GET("/signals", auth.RequireAccess("read", "signal"), cfg.SignalHandler.ListActive)
	api.POST("/signals/:id/dismiss", auth.RequireAccess("write", "signal"), cfg.SignalHandler.Dismiss)

	// Proposals
	api.GET("/proposals", auth.RequireAccess("read", "proposal"), cfg.ProposalHandler.List)
	api.GET("/proposals/:id", auth.RequireAccess("read", "proposal"), cfg.ProposalHandler.Get)
	api.POST("/proposals/:id/accept", auth.RequireAccess("write", "proposal"), cfg.ProposalHandler.Accept)
	api.POST("/proposals/:id/snooze", auth.RequireAccess("write", "proposal"), cfg.ProposalHandler.Snooze)
	api.POST("/proposals/:id/dismiss", auth.RequireAccess("write", "proposal"), cfg.ProposalHandler.Dismiss)
	api.POST("/proposals/:id/tag", auth.RequireAccess("write", "issue"), cfg.ProposalHandler.Tag)

	// Issues
	api.GET("/issues", auth.RequireAccess("read", "issue"), cfg.IssueHandler.List)
	api.GET("/issues/:id", auth.RequireAccess("read", "issue"), cfg.IssueHandler.Get)
	api.POST("/issues/:id/state", auth.RequireAccess("write", "issue"), cfg.IssueHandler.UpdateState)
	api.GET("/issues/:id/decisions", auth.RequireAccess("read", "issue"), cfg.IssueHandler.Decisions)
	api.GET("/issues/:id/watchers", auth.RequireAccess("read", "issue"), cfg.IssueHandler.Watchers)
	api.POST("/issues/:id/handoffs", auth.RequireAccess("write", "issue"), cfg.IssueHandler.CreateHandoff)
	api.POST("/handoffs/:handoff_id/state", auth.RequireAccess("write", "issue"), cfg.IssueHandler.UpdateHandoffState)

	// Briefs and couplings
	api.GET("/brief", auth.RequireAccess("read", "proposal"), cfg.BriefHandler.Executive)
	api.GET("/couplings", auth.RequireAccess("read", "coupling"), cfg.BriefHandler.ListCouplings)
	api.GET("/couplings/:type/:id", auth.RequireAccess("read", "coupling"), cfg.BriefHandler.CouplingsForEntity)

	// Operations
	api.POST("/admin/cycle", auth.RequireAccess("write", "signal"), cfg.AdminHandler.RunCycle)
	api.POST("/admin/purge", auth.RequireAccess("purge", "artifact"), cfg.AdminHandler.Purge)
	api.POST("/admin/excerpts/:id/redact", auth.RequireAccess("redact", "excerpt"), cfg.AdminHandler.Redact)
	api.GET("/admin/stats", auth.RequireAccess("read", "artifact"), cfg.AdminHandler.Stats)

	return router
}
