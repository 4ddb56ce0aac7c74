package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/pacharanero/checktick/internal/metrics"
)

// responseUseCaseWithMetrics decorates ResponseUseCase with metrics instrumentation.
type responseUseCaseWithMetrics struct {
	next    ResponseUseCase
	metrics metrics.BusinessMetrics
}

// NewResponseUseCaseWithMetrics wraps a ResponseUseCase with metrics recording.
func NewResponseUseCaseWithMetrics(useCase ResponseUseCase, m metrics.BusinessMetrics) ResponseUseCase {
	return &responseUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (r *responseUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	r.metrics.RecordOperation(ctx, "responses", operation, status)
	r.metrics.RecordDuration(ctx, "responses", operation, time.Since(start), status)
}

// WriteField records metrics for field write operations.
func (r *responseUseCaseWithMetrics) WriteField(
	ctx context.Context,
	userID, surveyID, responseID uuid.UUID,
	fieldID string,
	plaintext []byte,
) (uuid.UUID, error) {
	start := time.Now()
	id, err := r.next.WriteField(ctx, userID, surveyID, responseID, fieldID, plaintext)
	r.record(ctx, "field_write", start, err)
	return id, err
}

// ReadField records metrics for field read operations.
func (r *responseUseCaseWithMetrics) ReadField(
	ctx context.Context,
	userID uuid.UUID,
	fieldValueID uuid.UUID,
) ([]byte, error) {
	start := time.Now()
	plaintext, err := r.next.ReadField(ctx, userID, fieldValueID)
	r.record(ctx, "field_read", start, err)
	return plaintext, err
}

// ReadResponse records metrics for full response reads.
func (r *responseUseCaseWithMetrics) ReadResponse(
	ctx context.Context,
	userID, surveyID, responseID uuid.UUID,
) (map[string][]byte, error) {
	start := time.Now()
	fields, err := r.next.ReadResponse(ctx, userID, surveyID, responseID)
	r.record(ctx, "response_read", start, err)
	return fields, err
}

// DeleteResponse records metrics for response deletions.
func (r *responseUseCaseWithMetrics) DeleteResponse(ctx context.Context, responseID uuid.UUID) (int64, error) {
	start := time.Now()
	deleted, err := r.next.DeleteResponse(ctx, responseID)
	r.record(ctx, "response_delete", start, err)
	return deleted, err
}
