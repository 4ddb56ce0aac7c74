// Package http provides HTTP handlers for the unlock audit trail.
package http

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pacharanero/checktick/internal/audit/http/dto"
	auditUseCase "github.com/pacharanero/checktick/internal/audit/usecase"
	"github.com/pacharanero/checktick/internal/httputil"
)

// UnlockEventHandler handles HTTP requests for the unlock audit trail.
type UnlockEventHandler struct {
	auditUseCase auditUseCase.UnlockAuditUseCase
	logger       *slog.Logger
}

// NewUnlockEventHandler creates a new unlock event handler with required dependencies.
func NewUnlockEventHandler(useCase auditUseCase.UnlockAuditUseCase, logger *slog.Logger) *UnlockEventHandler {
	return &UnlockEventHandler{
		auditUseCase: useCase,
		logger:       logger,
	}
}

// ListHandler returns the unlock attempts recorded for a survey, newest first.
// GET /v1/surveys/:id/unlock-events?offset=0&limit=50
// Returns 200 OK with a paginated event list. Events carry outcomes and
// identities only; they never contain key material.
func (h *UnlockEventHandler) ListHandler(c *gin.Context) {
	surveyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.HandleValidationErrorGin(c, fmt.Errorf("invalid survey id: must be a UUID"), h.logger)
		return
	}

	// Parse offset and limit query parameters
	offset, limit, err := httputil.ParsePagination(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	events, err := h.auditUseCase.List(c.Request.Context(), surveyID, offset, limit)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapUnlockEventsToListResponse(events))
}
