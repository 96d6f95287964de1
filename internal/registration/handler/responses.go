package handler

import (
	"checkpoint/internal/registration/models"
	"checkpoint/internal/registration/service"
)

// RegisterResponse is the body of POST /api/registrations.
type RegisterResponse struct {
	Success      bool                 `json:"success"`
	Registration *models.Registration `json:"registration,omitempty"`
	Error        string               `json:"error,omitempty"`
	Saved        bool                 `json:"saved"`
	Published    bool                 `json:"published"`
}

// FromResult converts a service result to its HTTP body.
func FromResult(result *service.Result) *RegisterResponse {
	return &RegisterResponse{
		Success:      result.Outcome.Success,
		Registration: result.Outcome.Registration,
		Error:        result.Outcome.Error,
		Saved:        result.Saved,
		Published:    result.Published,
	}
}

// ListResponse wraps a collection of registrations.
type ListResponse struct {
	Registrations []*models.Registration `json:"registrations"`
	Count         int                    `json:"count"`
}

func newListResponse(rs []*models.Registration) *ListResponse {
	if rs == nil {
		rs = []*models.Registration{}
	}
	return &ListResponse{Registrations: rs, Count: len(rs)}
}

// DeleteResponse confirms a deletion.
type DeleteResponse struct {
	RegistrationID string `json:"registrationId"`
	Deleted        bool   `json:"deleted"`
}
