package handler

import "net/http"

// Healthcheck godoc
// @Summary Show service status
// @Description This endpoint reports that the service is available
// @Tags health
// @Produce json
// @Success 200
// @Router /v1/healthcheck [get]
func (h *Handler) healthcheckHandler(w http.ResponseWriter, r *http.Request) {
	health := envelope{
		"status": "available",
		"system_info": map[string]string{
			"environment": h.config.Server.Env,
			"version":     "1.0.0",
		},
	}
	err := h.encodeJSON(w, http.StatusOK, health, nil)
	if err != nil {
		h.serverErrorResponse(w, r, err)
	}
}
