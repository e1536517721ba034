package handlers

import (
	"net/http"
	"time"

	"kbgraph/pkg/api"
)

type HealthHandler struct {
	environment string
	backend     string
	now         func() time.Time
}

func NewHealthHandler(environment, backend string) *HealthHandler {
	return &HealthHandler{environment: environment, backend: backend, now: time.Now}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, _ *http.Request) {
	api.Success(w, http.StatusOK, api.HealthResponse{
		Status:      "healthy",
		Environment: h.environment,
		Backend:     h.backend,
		Time:        h.now().UTC().Format(time.RFC3339),
	})
}
