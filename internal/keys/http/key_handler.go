package http

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apperrors "github.com/pacharanero/checktick/internal/errors"
	"github.com/pacharanero/checktick/internal/httputil"
	keysDomain "github.com/pacharanero/checktick/internal/keys/domain"
	"github.com/pacharanero/checktick/internal/keys/http/dto"
	keysUseCase "github.com/pacharanero/checktick/internal/keys/usecase"
	customValidation "github.com/pacharanero/checktick/internal/validation"
)

// KeyHandler handles HTTP requests for survey key lifecycle operations.
type KeyHandler struct {
	keyUseCase keysUseCase.KeyUseCase
	logger     *slog.Logger
}

// NewKeyHandler creates a new key handler with required dependencies.
func NewKeyHandler(keyUseCase keysUseCase.KeyUseCase, logger *slog.Logger) *KeyHandler {
	return &KeyHandler{
		keyUseCase: keyUseCase,
		logger:     logger,
	}
}

// surveyIDParam extracts and parses the survey ID from the URL parameter.
func surveyIDParam(c *gin.Context) (uuid.UUID, error) {
	surveyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid survey id: must be a UUID")
	}
	return surveyID, nil
}

// ProvisionHandler creates the key record for a survey.
// POST /v1/surveys/:id/keys
// Returns 201 Created with the one-time recovery phrase and raw DEK.
func (h *KeyHandler) ProvisionHandler(c *gin.Context) {
	surveyID, err := surveyIDParam(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	var req dto.ProvisionKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	out, err := h.keyUseCase.Provision(c.Request.Context(), surveyID, req.Passphrase)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.MapProvisionOutputToResponse(out))
}

// UnlockHandler verifies a secret and opens an unlock session for the caller.
// POST /v1/surveys/:id/unlock - rate limited per (user, survey).
// Returns 204 No Content on success. A wrong secret returns the same
// response regardless of which part was wrong.
func (h *KeyHandler) UnlockHandler(c *gin.Context) {
	userID, ok := GetUserID(c.Request.Context())
	if !ok {
		httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, h.logger)
		return
	}

	surveyID, err := surveyIDParam(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	var req dto.UnlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	path, err := keysDomain.ParseUnlockPath(req.Path)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	if err := h.keyUseCase.Unlock(c.Request.Context(), userID, surveyID, path, req.Secret); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Data(http.StatusNoContent, "application/json", nil)
}

// LockHandler discards the caller's unlock session for a survey.
// POST /v1/surveys/:id/lock
// Returns 204 No Content. Locking an already-locked survey is a no-op.
func (h *KeyHandler) LockHandler(c *gin.Context) {
	userID, ok := GetUserID(c.Request.Context())
	if !ok {
		httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, h.logger)
		return
	}

	surveyID, err := surveyIDParam(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	if err := h.keyUseCase.Lock(c.Request.Context(), userID, surveyID); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Data(http.StatusNoContent, "application/json", nil)
}

// RewrapHandler replaces one wrap path after verifying a current secret.
// PUT /v1/surveys/:id/keys/:path
// Returns 200 OK. A recovery-path rewrap returns the fresh phrase exactly once.
func (h *KeyHandler) RewrapHandler(c *gin.Context) {
	userID, ok := GetUserID(c.Request.Context())
	if !ok {
		httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, h.logger)
		return
	}

	surveyID, err := surveyIDParam(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	targetPath, err := keysDomain.ParseUnlockPath(c.Param("path"))
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	var req dto.RewrapKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	if err := req.Validate(string(targetPath)); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	currentPath, err := keysDomain.ParseUnlockPath(req.CurrentPath)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	out, err := h.keyUseCase.Rewrap(
		c.Request.Context(),
		userID,
		surveyID,
		targetPath,
		currentPath,
		req.CurrentSecret,
		req.NewSecret,
	)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapRewrapOutputToResponse(out))
}

// MigrateHandler upgrades a legacy raw-key record to the dual-wrap format.
// POST /v1/surveys/:id/keys/migrate
// Returns 200 OK with the new one-time recovery phrase.
func (h *KeyHandler) MigrateHandler(c *gin.Context) {
	surveyID, err := surveyIDParam(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	var req dto.MigrateKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	out, err := h.keyUseCase.MigrateLegacy(c.Request.Context(), surveyID, req.RawKey, req.NewPassphrase)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapProvisionOutputToMigrateResponse(out))
}

// GetHintHandler returns the stored recovery phrase hint.
// GET /v1/surveys/:id/keys/hint
// Returns 200 OK. The hint is non-secret and safe to show before unlock.
func (h *KeyHandler) GetHintHandler(c *gin.Context) {
	surveyID, err := surveyIDParam(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	hint, err := h.keyUseCase.GetHint(c.Request.Context(), surveyID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.HintResponse{RecoveryHint: hint})
}
