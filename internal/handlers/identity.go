package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Fleezyflo/moh-time-os-sub004/internal/middleware"
	"github.com/Fleezyflo/moh-time-os-sub004/internal/platform/logger"
	"github.com/Fleezyflo/moh-time-os-sub004/internal/services"
)

type IdentityHandler struct {
	log      *logger.Logger
	identity services.IdentityService
}

func NewIdentityHandler(log *logger.Logger, identity services.IdentityService) *IdentityHandler {
	return &IdentityHandler{log: log.With("Handler", "IdentityHandler"), identity: identity}
}

func (h *IdentityHandler) Resolve(c *gin.Context) {
	var body struct {
		ClaimType       string `json:"claim_type"`
		Value           string `json:"value"`
		CreateIfMissing bool   `json:"create_if_missing"`
		Source          string `json:"source"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	result, err := h.identity.Resolve(c.Request.Context(), body.ClaimType, body.Value, body.CreateIfMissing, body.Source)
	if err != nil {
		RespondError(c, http.StatusUnprocessableEntity, "resolve_failed", err)
		return
	}
	if result.Profile == nil {
		RespondError(c, http.StatusNotFound, "no_profile", nil)
		return
	}
	RespondOK(c, result)
}

func (h *IdentityHandler) AddClaim(c *gin.Context) {
	profileID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	var body struct {
		ClaimType  string  `json:"claim_type"`
		Value      string  `json:"value"`
		Source     string  `json:"source"`
		Confidence float64 `json:"confidence"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	result, err := h.identity.AddClaim(c.Request.Context(), nil, profileID, body.ClaimType, body.Value, body.Source, body.Confidence)
	if err != nil {
		RespondError(c, http.StatusUnprocessableEntity, "add_claim_failed", err)
		return
	}
	// A conflict is a valid outcome surfaced for a human merge decision.
	RespondOK(c, result)
}

func (h *IdentityHandler) Merge(c *gin.Context) {
	var body struct {
		FromProfileIDs []uuid.UUID `json:"from_profile_ids"`
		ToProfileID    uuid.UUID   `json:"to_profile_id"`
		Reason         string      `json:"reason"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	actor := c.GetString(middleware.ContextActorKey)
	result, err := h.identity.MergeProfiles(c.Request.Context(), body.FromProfileIDs, body.ToProfileID, actor, body.Reason)
	if err != nil {
		RespondError(c, http.StatusUnprocessableEntity, "merge_failed", err)
		return
	}
	RespondOK(c, result)
}

func (h *IdentityHandler) GetProfile(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	profile, err := h.identity.GetProfile(c.Request.Context(), id)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "lookup_failed", err)
		return
	}
	if profile == nil {
		RespondError(c, http.StatusNotFound, "not_found", nil)
		return
	}
	RespondOK(c, profile)
}
