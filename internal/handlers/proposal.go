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

type ProposalHandler struct {
	log       *logger.Logger
	proposals services.ProposalService
	issues    services.IssueService
}

func NewProposalHandler(log *logger.Logger, proposals services.ProposalService, issues services.IssueService) *ProposalHandler {
	return &ProposalHandler{
		log:       log.With("Handler", "ProposalHandler"),
		proposals: proposals,
		issues:    issues,
	}
}

func (h *ProposalHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	rows, err := h.proposals.GetSurfaceable(c.Request.Context(), limit)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "lookup_failed", err)
		return
	}
	RespondOK(c, gin.H{"proposals": rows, "count": len(rows)})
}

func (h *ProposalHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	row, err := h.proposals.GetProposal(c.Request.Context(), id)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "lookup_failed", err)
		return
	}
	if row == nil {
		RespondError(c, http.StatusNotFound, "not_found", nil)
		return
	}
	RespondOK(c, row)
}

func (h *ProposalHandler) Accept(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	if err := h.proposals.Accept(c.Request.Context(), id); err != nil {
		RespondError(c, http.StatusUnprocessableEntity, "accept_failed", err)
		return
	}
	RespondOK(c, gin.H{"accepted": true})
}

func (h *ProposalHandler) Snooze(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	var body struct {
		Until time.Time `json:"until"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	if err := h.proposals.Snooze(c.Request.Context(), id, body.Until); err != nil {
		RespondError(c, http.StatusUnprocessableEntity, "snooze_failed", err)
		return
	}
	RespondOK(c, gin.H{"snoozed_until": body.Until})
}

func (h *ProposalHandler) Dismiss(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	var body struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&body)
	if err := h.proposals.Dismiss(c.Request.Context(), id, body.Reason); err != nil {
		RespondError(c, http.StatusUnprocessableEntity, "dismiss_failed", err)
		return
	}
	RespondOK(c, gin.H{"dismissed": true})
}

// Tag promotes an open proposal into an issue.
func (h *ProposalHandler) Tag(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	actor := c.GetString(middleware.ContextActorKey)
	issue, err := h.issues.TagProposal(c.Request.Context(), id, actor)
	if err != nil {
		RespondError(c, http.StatusUnprocessableEntity, "tag_failed", err)
		return
	}
	c.JSON(http.StatusCreated, issue)
}
