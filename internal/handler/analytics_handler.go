package handler

import (
	"net/http"

	"procureflow/internal/middleware"
	"procureflow/internal/model"
	"procureflow/internal/service"
	"procureflow/pkg/response"

	"github.com/gin-gonic/gin"
)

type AnalyticsHandler struct {
	analyticsService service.AnalyticsService
}

func NewAnalyticsHandler(analyticsService service.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analyticsService: analyticsService}
}

func (h *AnalyticsHandler) RegisterRoutes(router *gin.RouterGroup) {
	anyRole := middleware.RequireRole(model.RoleEmployee, model.RoleESS, model.RoleAdmin)
	router.GET("/api/analytics", anyRole, h.GetAnalytics)
}

// GetAnalytics returns spend and workflow aggregates for the dashboard
func (h *AnalyticsHandler) GetAnalytics(c *gin.Context) {
	stats, err := h.analyticsService.GetAnalytics(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to compute analytics"))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, stats))
}
