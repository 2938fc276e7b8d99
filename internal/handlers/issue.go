package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Fleezyflo/moh-time-os-sub004/internal/middleware"
	"github.com/Fleezyflo/moh-time-os-sub004/internal/platform/logger"
	"github.com/Fleezyflo/moh-time-os-sub004/internal/services"
)

type IssueHandler struct {
	log      *logger.Logger
	issues   services.IssueService
	watchers services.WatcherService
}

func NewIssueHandler(log *logger.Logger, issues services.IssueService, watchers services.WatcherService) *IssueHandler {
	return &IssueHandler{
		log:      log.With("Handler", "IssueHandler"),
		issues:   issues,
		watchers: watchers,
	}
}

func (h *IssueHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	rows, err := h.issues.GetOpenIssues(c.Request.Context(), limit)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "lookup_failed", err)
		return
	}
	RespondOK(c, gin.H{"issues": rows, "count": len(rows)})
}

func (h *IssueHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	issue, err := h.issues.GetIssue(c.Request.Context(), id)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "lookup_failed", err)
		return
	}
	if issue == nil {
		RespondError(c, http.StatusNotFound, "not_found", nil)
		return
	}
	RespondOK(c, issue)
}

func (h *IssueHandler) UpdateState(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	var body struct {
		State string `json:"state"`
		Note  string `json:"note"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	actor := c.GetString(middleware.ContextActorKey)
	issue, err := h.issues.UpdateState(c.Request.Context(), id, body.State, actor, body.Note)
	if err != nil {
		RespondError(c, http.StatusUnprocessableEntity, "transition_failed", err)
		return
	}
	RespondOK(c, issue)
}

func (h *IssueHandler) Decisions(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	rows, err := h.issues.GetDecisions(c.Request.Context(), id)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "lookup_failed", err)
		return
	}
	RespondOK(c, gin.H{"decisions": rows, "count": len(rows)})
}

func (h *IssueHandler) Watchers(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	rows, err := h.watchers.GetWatchersForIssue(c.Request.Context(), id)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "lookup_failed", err)
		return
	}
	RespondOK(c, gin.H{"watchers": rows, "count": len(rows)})
}

func (h *IssueHandler) CreateHandoff(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	var input services.CreateHandoffInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	input.IssueID = id
	actor := c.GetString(middleware.ContextActorKey)
	handoff, err := h.issues.CreateHandoff(c.Request.Context(), input, actor)
	if err != nil {
		RespondError(c, http.StatusUnprocessableEntity, "handoff_failed", err)
		return
	}
	c.JSON(http.StatusCreated, handoff)
}

func (h *IssueHandler) UpdateHandoffState(c *gin.Context) {
	id, err := uuid.Parse(c.Param("handoff_id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	var body struct {
		State string `json:"state"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	actor := c.GetString(middleware.ContextActorKey)
	handoff, err := h.issues.UpdateHandoffState(c.Request.Context(), id, body.State, actor)
	if err != nil {
		RespondError(c, http.StatusUnprocessableEntity, "transition_failed", err)
		return
	}
	RespondOK(c, handoff)
}
