package handler

import (
	"net/http"

	"procureflow/internal/middleware"
	"procureflow/internal/model"
	"procureflow/internal/service"
	"procureflow/internal/workflow"
	"procureflow/pkg/response"

	"github.com/gin-gonic/gin"
)

type ApprovalHandler struct {
	requestService service.RequestService
}

func NewApprovalHandler(requestService service.RequestService) *ApprovalHandler {
	return &ApprovalHandler{requestService: requestService}
}

func (h *ApprovalHandler) RegisterRoutes(router *gin.RouterGroup) {
	ess := middleware.RequireRole(model.RoleESS)

	requests := router.Group("/api/requests")
	{
		requests.PUT("/:id/order", ess, h.action(workflow.ActionOrder, false))
		requests.PUT("/:id/receive", ess, h.action(workflow.ActionReceived, false))
		requests.PUT("/:id/reject", ess, h.action(workflow.ActionReject, true))
		requests.PUT("/:id/request-info", ess, h.action(workflow.ActionRequestInfo, true))
	}
}

type approvalNote struct {
	Note string `json:"note"`
}

type requiredApprovalNote struct {
	Note string `json:"note" binding:"required"`
}

// action builds a handler applying one reviewer action. Reject and
// Request Info must carry a note for the requester; Order and Received may.
func (h *ApprovalHandler) action(action workflow.Action, noteRequired bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")

		var note string
		if noteRequired {
			var body requiredApprovalNote
			if err := c.ShouldBindJSON(&body); err != nil {
				c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "A note is required for this action"))
				return
			}
			note = body.Note
		} else {
			var body approvalNote
			if err := c.ShouldBindJSON(&body); err == nil {
				note = body.Note
			}
		}

		result, err := h.requestService.ProcessApproval(c.Request.Context(), id, action, note, actorFromContext(c))
		if err != nil {
			c.JSON(statusFromError(err), response.Error(statusFromError(err), err.Error()))
			return
		}

		c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
	}
}
