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

type LinkHandler struct {
	log   *logger.Logger
	links services.LinkService
}

func NewLinkHandler(log *logger.Logger, links services.LinkService) *LinkHandler {
	return &LinkHandler{log: log.With("Handler", "LinkHandler"), links: links}
}

func (h *LinkHandler) Create(c *gin.Context) {
	var input services.CreateLinkInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	result, err := h.links.CreateLink(c.Request.Context(), nil, input)
	if err != nil {
		RespondError(c, http.StatusUnprocessableEntity, "create_failed", err)
		return
	}
	status := http.StatusOK
	if result.Outcome == services.LinkCreated {
		status = http.StatusCreated
	}
	c.JSON(status, result)
}

func (h *LinkHandler) Confirm(c *gin.Context) {
	h.setStatus(c, true)
}

func (h *LinkHandler) Reject(c *gin.Context) {
	h.setStatus(c, false)
}

func (h *LinkHandler) setStatus(c *gin.Context, confirm bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	actor := c.GetString(middleware.ContextActorKey)
	var link any
	if confirm {
		link, err = h.links.ConfirmLink(c.Request.Context(), id, actor)
	} else {
		link, err = h.links.RejectLink(c.Request.Context(), id, actor)
	}
	if err != nil {
		RespondError(c, http.StatusUnprocessableEntity, "update_failed", err)
		return
	}
	RespondOK(c, link)
}

func (h *LinkHandler) ListForArtifact(c *gin.Context) {
	artifactID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	rows, err := h.links.GetLinksForArtifact(c.Request.Context(), artifactID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "lookup_failed", err)
		return
	}
	RespondOK(c, gin.H{"links": rows, "count": len(rows)})
}

func (h *LinkHandler) ListFixData(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	rows, err := h.links.GetOpenFixData(c.Request.Context(), limit)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "lookup_failed", err)
		return
	}
	RespondOK(c, gin.H{"items": rows, "count": len(rows)})
}

func (h *LinkHandler) ResolveFixData(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	var body struct {
		Notes string `json:"notes"`
	}
	_ = c.ShouldBindJSON(&body)
	actor := c.GetString(middleware.ContextActorKey)
	if err := h.links.ResolveFixData(c.Request.Context(), id, actor, body.Notes); err != nil {
		RespondError(c, http.StatusUnprocessableEntity, "resolve_failed", err)
		return
	}
	RespondOK(c, gin.H{"resolved": true})
}
