package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Fleezyflo/moh-time-os-sub004/internal/platform/logger"
	"github.com/Fleezyflo/moh-time-os-sub004/internal/services"
)

type BriefHandler struct {
	log       *logger.Logger
	brief     services.BriefService
	couplings services.CouplingService
}

func NewBriefHandler(log *logger.Logger, brief services.BriefService, couplings services.CouplingService) *BriefHandler {
	return &BriefHandler{
		log:       log.With("Handler", "BriefHandler"),
		brief:     brief,
		couplings: couplings,
	}
}

func (h *BriefHandler) Executive(c *gin.Context) {
	brief, err := h.brief.ExecutiveBrief(c.Request.Context())
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "brief_failed", err)
		return
	}
	RespondOK(c, brief)
}

func (h *BriefHandler) ListCouplings(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	rows, err := h.couplings.GetAll(c.Request.Context(), limit)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "lookup_failed", err)
		return
	}
	RespondOK(c, gin.H{"couplings": rows, "count": len(rows)})
}

func (h *BriefHandler) CouplingsForEntity(c *gin.Context) {
	entityID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	rows, err := h.couplings.GetForEntity(c.Request.Context(), c.Param("type"), entityID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "lookup_failed", err)
		return
	}
	RespondOK(c, gin.H{"couplings": rows, "count": len(rows)})
}
