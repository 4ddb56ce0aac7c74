// Package http provides HTTP handlers for encrypted survey response fields.
// Field values are encrypted before storage and only decrypt while the caller
// holds an unlock session for the owning survey.
package http

import (
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apperrors "github.com/pacharanero/checktick/internal/errors"
	"github.com/pacharanero/checktick/internal/httputil"
	keysDomain "github.com/pacharanero/checktick/internal/keys/domain"
	keysHTTP "github.com/pacharanero/checktick/internal/keys/http"
	"github.com/pacharanero/checktick/internal/responses/http/dto"
	responsesUseCase "github.com/pacharanero/checktick/internal/responses/usecase"
	customValidation "github.com/pacharanero/checktick/internal/validation"
)

// ResponseHandler handles HTTP requests for encrypted response field operations.
type ResponseHandler struct {
	responseUseCase responsesUseCase.ResponseUseCase
	logger          *slog.Logger
}

// NewResponseHandler creates a new response handler with required dependencies.
func NewResponseHandler(responseUseCase responsesUseCase.ResponseUseCase, logger *slog.Logger) *ResponseHandler {
	return &ResponseHandler{
		responseUseCase: responseUseCase,
		logger:          logger,
	}
}

// uuidParam extracts and parses a UUID URL parameter.
func uuidParam(c *gin.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s: must be a UUID", name)
	}
	return id, nil
}

// WriteFieldHandler encrypts and stores one answer.
// POST /v1/surveys/:id/responses/:responseId/fields
// Returns 201 Created with the stored value ID, or 401 if the survey is locked.
func (h *ResponseHandler) WriteFieldHandler(c *gin.Context) {
	userID, ok := keysHTTP.GetUserID(c.Request.Context())
	if !ok {
		httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, h.logger)
		return
	}

	surveyID, err := uuidParam(c, "id")
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	responseID, err := uuidParam(c, "responseId")
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	var req dto.WriteFieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	plaintext, err := base64.StdEncoding.DecodeString(req.Value)
	if err != nil {
		httputil.HandleValidationErrorGin(c, fmt.Errorf("invalid base64 value: %w", err), h.logger)
		return
	}
	defer keysDomain.Zero(plaintext)

	id, err := h.responseUseCase.WriteField(c.Request.Context(), userID, surveyID, responseID, req.FieldID, plaintext)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.MapFieldValueIDToResponse(id))
}

// ReadFieldHandler decrypts one stored answer.
// GET /v1/field-values/:id
// Returns 200 OK with the base64 plaintext. The plaintext is zeroed after the
// response is written.
func (h *ResponseHandler) ReadFieldHandler(c *gin.Context) {
	userID, ok := keysHTTP.GetUserID(c.Request.Context())
	if !ok {
		httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, h.logger)
		return
	}

	fieldValueID, err := uuidParam(c, "id")
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	plaintext, err := h.responseUseCase.ReadField(c.Request.Context(), userID, fieldValueID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	defer keysDomain.Zero(plaintext)

	c.JSON(http.StatusOK, dto.MapPlaintextToResponse(plaintext))
}

// ReadResponseHandler decrypts every field of one response.
// GET /v1/surveys/:id/responses/:responseId
// Returns 200 OK with fields keyed by field ID.
func (h *ResponseHandler) ReadResponseHandler(c *gin.Context) {
	userID, ok := keysHTTP.GetUserID(c.Request.Context())
	if !ok {
		httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, h.logger)
		return
	}

	surveyID, err := uuidParam(c, "id")
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	responseID, err := uuidParam(c, "responseId")
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	fields, err := h.responseUseCase.ReadResponse(c.Request.Context(), userID, surveyID, responseID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	defer func() {
		for _, plaintext := range fields {
			keysDomain.Zero(plaintext)
		}
	}()

	c.JSON(http.StatusOK, dto.MapFieldsToResponse(fields))
}

// DeleteResponseHandler removes every encrypted field of one response.
// DELETE /v1/responses/:responseId
// Returns 200 OK with the number of values removed. No unlock session is
// required since deletion never reveals plaintext.
func (h *ResponseHandler) DeleteResponseHandler(c *gin.Context) {
	responseID, err := uuidParam(c, "responseId")
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	deleted, err := h.responseUseCase.DeleteResponse(c.Request.Context(), responseID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.DeleteResponseResponse{Deleted: deleted})
}
