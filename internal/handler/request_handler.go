package handler

import (
	"net/http"

	"procureflow/internal/middleware"
	"procureflow/internal/model"
	"procureflow/internal/service"
	"procureflow/pkg/pagination"
	"procureflow/pkg/response"

	"github.com/gin-gonic/gin"
)

type RequestHandler struct {
	requestService service.RequestService
}

func NewRequestHandler(requestService service.RequestService) *RequestHandler {
	return &RequestHandler{requestService: requestService}
}

func (h *RequestHandler) RegisterRoutes(router *gin.RouterGroup) {
	anyRole := middleware.RequireRole(model.RoleEmployee, model.RoleESS, model.RoleAdmin)

	requests := router.Group("/api/requests")
	{
		requests.GET("", anyRole, h.ListRequests)
		requests.GET("/:id", anyRole, h.GetRequest)
		requests.POST("", middleware.RequireRole(model.RoleEmployee), h.CreateRequest)
		requests.PUT("/:id", middleware.RequireRole(model.RoleEmployee), h.UpdateRequest)
		requests.DELETE("/:id", middleware.RequireRole(model.RoleEmployee, model.RoleAdmin), h.DeleteRequest)
		requests.POST("/:id/messages", anyRole, h.AddMessage)
	}
}

// ListRequests handles GET /api/requests
// @Summary      List purchase requests
// @Description  Retrieves purchase requests newest-first, optionally filtered by status, project code or requester
// @Tags         requests
// @Produce      json
// @Security     BearerAuth
// @Param        status        query     string  false  "Filter by status"
// @Param        project_code  query     string  false  "Filter by project code"
// @Param        requester     query     string  false  "Filter by requester display name"
// @Param        page          query     int     false  "Page number (default 1)"
// @Param        limit         query     int     false  "Number of items per page (default 20)"
// @Success      200           {object}  response.Response{data=response.Paginated}
// @Failure      500           {object}  response.Response
// @Router       /api/requests [get]
func (h *RequestHandler) ListRequests(c *gin.Context) {
	params := pagination.Parse(c)

	filter := service.RequestFilter{
		Status:      c.Query("status"),
		ProjectCode: c.Query("project_code"),
		Requester:   c.Query("requester"),
		Page:        params.Page,
		Limit:       params.Limit,
	}

	requests, total, err := h.requestService.List(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to fetch requests"))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, response.Paginated{
		Items: requests,
		Total: total,
		Page:  params.Page,
		Limit: params.Limit,
	}))
}

// GetRequest handles GET /api/requests/:id
// @Summary      Get purchase request
// @Description  Fetch a single purchase request with items, messages and approval timeline
// @Tags         requests
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Request ID (REQ-NNNN)"
// @Success      200  {object}  response.Response{data=service.RequestResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/requests/{id} [get]
func (h *RequestHandler) GetRequest(c *gin.Context) {
	id := c.Param("id")

	req, err := h.requestService.GetByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(statusFromError(err), response.Error(statusFromError(err), err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, req))
}

// CreateRequest handles POST /api/requests
// @Summary      Submit a purchase request
// @Description  Creates a new purchase request as Pending with a seeded Submitted timeline event; the total is computed server-side
// @Tags         requests
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.SaveRequestInput  true  "Purchase Request"
// @Success      201      {object}  response.Response{data=service.RequestResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/requests [post]
func (h *RequestHandler) CreateRequest(c *gin.Context) {
	var input service.SaveRequestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	input.ID = "" // the server assigns request codes

	saved, err := h.requestService.Save(c.Request.Context(), input, actorFromContext(c))
	if err != nil {
		c.JSON(statusFromError(err), response.Error(statusFromError(err), err.Error()))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, saved))
}

// UpdateRequest handles PUT /api/requests/:id
// @Summary      Edit a purchase request
// @Description  Edits a request in Pending, Needs Info or Rejected status; Rejected and Needs Info requests re-enter the queue as Pending
// @Tags         requests
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                    true  "Request ID"
// @Param        payload  body      service.SaveRequestInput  true  "Purchase Request"
// @Success      200      {object}  response.Response{data=service.RequestResponse}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Router       /api/requests/{id} [put]
func (h *RequestHandler) UpdateRequest(c *gin.Context) {
	var input service.SaveRequestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	input.ID = c.Param("id")

	saved, err := h.requestService.Save(c.Request.Context(), input, actorFromContext(c))
	if err != nil {
		c.JSON(statusFromError(err), response.Error(statusFromError(err), err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, saved))
}

// DeleteRequest handles DELETE /api/requests/:id
// @Summary      Delete a purchase request
// @Description  Removes a request; allowed to the requester while Pending, or an Admin unconditionally. Unknown ids are a no-op.
// @Tags         requests
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Request ID"
// @Success      200  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Router       /api/requests/{id} [delete]
func (h *RequestHandler) DeleteRequest(c *gin.Context) {
	id := c.Param("id")

	if err := h.requestService.Delete(c.Request.Context(), id, actorFromContext(c)); err != nil {
		c.JSON(statusFromError(err), response.Error(statusFromError(err), err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Request deleted"))
}

// AddMessage handles POST /api/requests/:id/messages
// @Summary      Add a message
// @Description  Appends a chat message with optional inline attachments; stamps updated_at but never touches status or the timeline
// @Tags         requests
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                   true  "Request ID"
// @Param        payload  body      service.AddMessageInput  true  "Message"
// @Success      200      {object}  response.Response{data=service.RequestResponse}
// @Failure      404      {object}  response.Response
// @Router       /api/requests/{id}/messages [post]
func (h *RequestHandler) AddMessage(c *gin.Context) {
	id := c.Param("id")

	var input service.AddMessageInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	updated, err := h.requestService.AddMessage(c.Request.Context(), id, input, actorFromContext(c))
	if err != nil {
		c.JSON(statusFromError(err), response.Error(statusFromError(err), err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, updated))
}
