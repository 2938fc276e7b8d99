package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Fleezyflo/moh-time-os-sub004/internal/middleware"
	"github.com/Fleezyflo/moh-time-os-sub004/internal/platform/logger"
	"github.com/Fleezyflo/moh-time-os-sub004/internal/services"
)

// AdminHandler exposes the operational surface: full cycles, retention purge,
// redaction, and aggregate stats.
type AdminHandler struct {
	log       *logger.Logger
	pipeline  services.PipelineService
	policy    services.PolicyService
	artifacts services.ArtifactService
	identity  services.IdentityService
	links     services.LinkService
	signals   services.SignalService
	proposals services.ProposalService
	issues    services.IssueService
}

func NewAdminHandler(log *logger.Logger, pipeline services.PipelineService, policy services.PolicyService, artifacts services.ArtifactService, identity services.IdentityService, links services.LinkService, signals services.SignalService, proposals services.ProposalService, issues services.IssueService) *AdminHandler {
	return &AdminHandler{
		log:       log.With("Handler", "AdminHandler"),
		pipeline:  pipeline,
		policy:    policy,
		artifacts: artifacts,
		identity:  identity,
		links:     links,
		signals:   signals,
		proposals: proposals,
		issues:    issues,
	}
}

func (h *AdminHandler) RunCycle(c *gin.Context) {
	lookbackDays, _ := strconv.Atoi(c.DefaultQuery("lookback_days", "30"))
	report, err := h.pipeline.RunFullCycle(c.Request.Context(), time.Duration(lookbackDays)*24*time.Hour)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "cycle_failed", err)
		return
	}
	RespondOK(c, report)
}

// Purge applies retention rules. Destruction requires dry_run=false
// explicitly; the default reports only.
func (h *AdminHandler) Purge(c *gin.Context) {
	dryRun := c.DefaultQuery("dry_run", "true") != "false"
	report, err := h.policy.PurgeExpiredArtifacts(c.Request.Context(), dryRun)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "purge_failed", err)
		return
	}
	RespondOK(c, report)
}

func (h *AdminHandler) Redact(c *gin.Context) {
	excerptID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	var body struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&body)
	actor := c.GetString(middleware.ContextActorKey)
	if err := h.policy.RedactExcerpt(c.Request.Context(), excerptID, actor, body.Reason); err != nil {
		RespondError(c, http.StatusUnprocessableEntity, "redact_failed", err)
		return
	}
	RespondOK(c, gin.H{"redacted": true})
}

func (h *AdminHandler) Stats(c *gin.Context) {
	ctx := c.Request.Context()
	artifactStats, err := h.artifacts.GetStats(ctx)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "stats_failed", err)
		return
	}
	profileStats, err := h.identity.GetStats(ctx)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "stats_failed", err)
		return
	}
	linkStats, err := h.links.GetStats(ctx)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "stats_failed", err)
		return
	}
	signalStats, err := h.signals.GetStats(ctx)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "stats_failed", err)
		return
	}
	proposalStats, err := h.proposals.GetStats(ctx)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "stats_failed", err)
		return
	}
	issueStats, err := h.issues.GetStats(ctx)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "stats_failed", err)
		return
	}
	RespondOK(c, gin.H{
		"artifacts": artifactStats,
		"profiles":  profileStats,
		"links":     linkStats,
		"signals":   signalStats,
		"proposals": proposalStats,
		"issues":    issueStats,
	})
}
