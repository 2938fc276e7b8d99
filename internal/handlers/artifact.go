package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Fleezyflo/moh-time-os-sub004/internal/platform/logger"
	"github.com/Fleezyflo/moh-time-os-sub004/internal/repos"
	"github.com/Fleezyflo/moh-time-os-sub004/internal/services"
)

type ArtifactHandler struct {
	log       *logger.Logger
	artifacts services.ArtifactService
}

func NewArtifactHandler(log *logger.Logger, artifacts services.ArtifactService) *ArtifactHandler {
	return &ArtifactHandler{log: log.With("Handler", "ArtifactHandler"), artifacts: artifacts}
}

func (h *ArtifactHandler) Create(c *gin.Context) {
	var input services.CreateArtifactInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	result, err := h.artifacts.Create(c.Request.Context(), nil, input)
	if err != nil {
		RespondError(c, http.StatusUnprocessableEntity, "create_failed", err)
		return
	}
	status := http.StatusOK
	if result.Outcome == services.ArtifactCreated {
		status = http.StatusCreated
	}
	c.JSON(status, result)
}

func (h *ArtifactHandler) CreateExcerpt(c *gin.Context) {
	artifactID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	var input services.ExcerptInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	input.ArtifactID = artifactID
	excerpt, err := h.artifacts.CreateExcerpt(c.Request.Context(), nil, input)
	if err != nil {
		RespondError(c, http.StatusUnprocessableEntity, "create_failed", err)
		return
	}
	c.JSON(http.StatusCreated, excerpt)
}

func (h *ArtifactHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	artifact, err := h.artifacts.GetArtifact(c.Request.Context(), id)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "lookup_failed", err)
		return
	}
	if artifact == nil {
		RespondError(c, http.StatusNotFound, "not_found", nil)
		return
	}
	RespondOK(c, artifact)
}

func (h *ArtifactHandler) Find(c *gin.Context) {
	filters := repos.ArtifactFilters{
		Source:   c.Query("source"),
		Type:     c.Query("type"),
		ActorRef: c.Query("actor_ref"),
	}
	if raw := c.Query("since"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "invalid_since", err)
			return
		}
		filters.Since = &t
	}
	if raw := c.Query("until"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "invalid_until", err)
			return
		}
		filters.Until = &t
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	rows, err := h.artifacts.FindArtifacts(c.Request.Context(), filters, limit)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "lookup_failed", err)
		return
	}
	RespondOK(c, gin.H{"artifacts": rows, "count": len(rows)})
}
