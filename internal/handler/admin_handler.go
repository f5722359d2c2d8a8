package handler

import (
	"net/http"

	"investorportal/internal/middleware"
	"investorportal/internal/repository"
	"investorportal/internal/service"
	"investorportal/pkg/pagination"
	"investorportal/pkg/response"

	"github.com/gin-gonic/gin"
)

type AdminHandler struct {
	submissionService service.SubmissionService
	auditService      service.AuditService
}

func NewAdminHandler(submissionService service.SubmissionService, auditService service.AuditService) *AdminHandler {
	return &AdminHandler{submissionService: submissionService, auditService: auditService}
}

func (h *AdminHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/admin")
	group.Use(middleware.RequireAuth(), middleware.RequireRole("admin"))
	{
		group.GET("/submissions", h.ListSubmissions)
		group.PATCH("/submissions/:id/status", h.ReviewSubmission)
		group.GET("/audit-logs", h.GetAuditLogs)
	}
}

// toFilter converts query parameters into the repository filter.
func toFilter(params pagination.Params, status string) repository.SubmissionFilter {
	return repository.SubmissionFilter{
		Status: status,
		Search: params.Search,
		Page:   params.Page,
		Limit:  params.Limit,
	}
}

// ListSubmissions handles GET /admin/submissions across all investors
// @Summary      List all submissions
// @Description  Retrieves submissions from every investor, filtered by status and free-text search
// @Tags         admin
// @Security     BearerAuth
// @Produce      json
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Number of items per page (default 20)"
// @Param        status  query     string  false  "Filter by status (draft, pending, verified, rejected, discrepancy)"
// @Param        search  query     string  false  "Free-text search term"
// @Success      200     {object}  response.Response{data=object}
// @Router       /admin/submissions [get]
func (h *AdminHandler) ListSubmissions(c *gin.Context) {
	params := pagination.Parse(c)
	subs, total, err := h.submissionService.ListAllSubmissions(c.Request.Context(), toFilter(params, c.Query("status")))
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to fetch submissions"))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"submissions": subs,
		"total":       total,
		"page":        params.Page,
		"limit":       params.Limit,
	}))
}

// ReviewSubmission handles PATCH /admin/submissions/:id/status
// @Summary      Review a submission
// @Description  Moves a pending submission to verified, rejected or discrepancy with an optional note
// @Tags         admin
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string         true  "Submission ID"
// @Param        payload  body      ReviewRequest  true  "Target status and review note"
// @Success      200      {object}  response.Response{data=service.SubmissionResponse}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /admin/submissions/{id}/status [patch]
func (h *AdminHandler) ReviewSubmission(c *gin.Context) {
	reviewerID, ok := middleware.InvestorID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Reviewer ID not found in context"))
		return
	}

	var req ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	sub, err := h.submissionService.ReviewSubmission(c.Request.Context(), reviewerID, c.Param("id"), req.Status, req.Note)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, sub))
}

// GetAuditLogs retrieves strictly paginated records with actors pre-loaded
// @Summary      Get audit logs
// @Description  Retrieves the audit trail of submission and document actions
// @Tags         admin
// @Security     BearerAuth
// @Produce      json
// @Param        page   query     int  false  "Page number (default 1)"
// @Param        limit  query     int  false  "Number of items per page (default 20)"
// @Success      200    {object}  response.Response{data=object}
// @Router       /admin/audit-logs [get]
func (h *AdminHandler) GetAuditLogs(c *gin.Context) {
	params := pagination.Parse(c)

	logs, total, err := h.auditService.GetAuditLogs(c.Request.Context(), params.Page, params.Limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to retrieve audit logs: "+err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"logs":  logs,
		"total": total,
		"page":  params.Page,
		"limit": params.Limit,
	}))
}
