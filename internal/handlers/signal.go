package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Fleezyflo/moh-time-os-sub004/internal/middleware"
	"github.com/Fleezyflo/moh-time-os-sub004/internal/platform/logger"
	"github.com/Fleezyflo/moh-time-os-sub004/internal/services"
)

type SignalHandler struct {
	log     *logger.Logger
	signals services.SignalService
}

func NewSignalHandler(log *logger.Logger, signals services.SignalService) *SignalHandler {
	return &SignalHandler{log: log.With("Handler", "SignalHandler"), signals: signals}
}

func (h *SignalHandler) ListActive(c *gin.Context) {
	rows, err := h.signals.GetActiveSignals(c.Request.Context())
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "lookup_failed", err)
		return
	}
	RespondOK(c, gin.H{"signals": rows, "count": len(rows)})
}

func (h *SignalHandler) Dismiss(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	var body struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&body)
	actor := c.GetString(middleware.ContextActorKey)
	if err := h.signals.DismissSignal(c.Request.Context(), id, actor, body.Reason); err != nil {
		RespondError(c, http.StatusUnprocessableEntity, "dismiss_failed", err)
		return
	}
	RespondOK(c, gin.H{"dismissed": true})
}
