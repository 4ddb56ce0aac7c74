// Package dto provides data transfer objects for unlock audit responses.
package dto

import (
	"time"

	auditDomain "github.com/pacharanero/checktick/internal/audit/domain"
)

// UnlockEventResponse represents one unlock attempt in API responses.
type UnlockEventResponse struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	SurveyID  string    `json:"survey_id"`
	Path      string    `json:"path"`
	Success   bool      `json:"success"`
	CreatedAt time.Time `json:"created_at"`
}

// ListUnlockEventsResponse represents a paginated list of unlock events.
type ListUnlockEventsResponse struct {
	UnlockEvents []UnlockEventResponse `json:"unlock_events"`
}

// MapUnlockEventToResponse converts an UnlockEvent to its HTTP response.
func MapUnlockEventToResponse(event *auditDomain.UnlockEvent) UnlockEventResponse {
	return UnlockEventResponse{
		ID:        event.ID.String(),
		UserID:    event.UserID.String(),
		SurveyID:  event.SurveyID.String(),
		Path:      event.Path,
		Success:   event.Success,
		CreatedAt: event.CreatedAt,
	}
}

// MapUnlockEventsToListResponse converts a slice of UnlockEvents to a list response.
func MapUnlockEventsToListResponse(events []*auditDomain.UnlockEvent) ListUnlockEventsResponse {
	responses := make([]UnlockEventResponse, 0, len(events))
	for _, event := range events {
		responses = append(responses, MapUnlockEventToResponse(event))
	}
	return ListUnlockEventsResponse{UnlockEvents: responses}
}
