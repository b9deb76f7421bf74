package server

import "github.com/raysh454/vigil/internal/model"

// CreateGroupRequest is the payload for registering a monitoring group. Every
// listed domain gets an initial dump and a periodic check schedule.
type CreateGroupRequest struct {
	Name    string               `json:"name"`
	Domains []model.DomainConfig `json:"domains"`
}

// IngestRequest optionally names an explicit feed file to ingest. When Path
// is empty the newest dump under the configured feed directory is used.
type IngestRequest struct {
	Path string `json:"path"`
}

// HealthResponse reports service liveness.
type HealthResponse struct {
	Status string `json:"status"`
}

// ErrorResponse is a uniform error payload returned by the API.
type ErrorResponse struct {
	Error string `json:"error"`
}
