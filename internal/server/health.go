package server

import (
	"net/http"
	"time"
)

// HealthStatus represents the overall health of the service
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// ComponentStatus represents the health of an individual component
type ComponentStatus string

const (
	ComponentStatusUp   ComponentStatus = "up"
	ComponentStatusDown ComponentStatus = "down"
)

// Health is the GET /healthz response body.
type Health struct {
	Status     HealthStatus               `json:"status"`
	Timestamp  time.Time                  `json:"timestamp"`
	Components map[string]ComponentHealth `json:"components"`
}

// ComponentHealth represents the health of a single component
type ComponentHealth struct {
	Status  ComponentStatus `json:"status"`
	Message string          `json:"message,omitempty"`
	Details *StorageDetails `json:"details,omitempty"`
}

// StorageDetails summarizes the upload directory.
type StorageDetails struct {
	Files int   `json:"files"`
	Bytes int64 `json:"bytes"`
}

// handleHealth reports whether the upload directory can be created and
// read. It answers 503 when it cannot.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	storageHealth := s.checkStorageHealth(r)

	health := Health{
		Status:     HealthStatusHealthy,
		Timestamp:  time.Now().UTC(),
		Components: map[string]ComponentHealth{"storage": storageHealth},
	}
	statusCode := http.StatusOK
	if storageHealth.Status != ComponentStatusUp {
		health.Status = HealthStatusUnhealthy
		statusCode = http.StatusServiceUnavailable
	}

	_ = writeJSON(w, r, statusCode, health)
}

func (s *Server) checkStorageHealth(r *http.Request) ComponentHealth {
	files, err := s.store.List(r.Context())
	if err != nil {
		return ComponentHealth{
			Status:  ComponentStatusDown,
			Message: "upload directory unavailable: " + err.Error(),
		}
	}

	details := &StorageDetails{Files: len(files)}
	for _, f := range files {
		details.Bytes += f.Size
	}
	return ComponentHealth{
		Status:  ComponentStatusUp,
		Message: "upload directory readable",
		Details: details,
	}
}
