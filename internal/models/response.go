// internal/models/response.go
package models

type ErrorResponse struct {
	Error   string `json:"error"`
	Type    string `json:"type,omitempty"`
	Details string `json:"details,omitempty"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	Store     string `json:"store"`
	AIEnabled bool   `json:"aiEnabled"`
}

type CleanupResponse struct {
	Message      string `json:"message"`
	DeletedCount int64  `json:"deletedCount"`
}
