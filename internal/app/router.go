package app

import (
	"github.com/gin-gonic/gin"

	"github.com/Fleezyflo/moh-time-os-sub004/internal/platform/logger"
	"github.com/Fleezyflo/moh-time-os-sub004/internal/server"
)

func wireRouter(log *logger.Logger, cfg Config, h Handlers, mw Middleware) *gin.Engine {
	return server.NewRouter(server.RouterConfig{
		Log:             log,
		ServiceName:     "time-os-pipeline",
		AllowOrigins:    cfg.AllowOrigins,
		AuthMiddleware:  mw.Auth,
		ArtifactHandler: h.Artifact,
		IdentityHandler: h.Identity,
		LinkHandler:     h.Link,
		SignalHandler:   h.Signal,
		ProposalHandler: h.Proposal,
		IssueHandler:    h.Issue,
		BriefHandler:    h.Brief,
		AdminHandler:    h.Admin,
	})
}
