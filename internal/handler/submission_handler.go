package handler

import (
	"errors"
	"io"
	"net/http"

	"investorportal/internal/form"
	"investorportal/internal/middleware"
	"investorportal/internal/render"
	"investorportal/internal/service"
	"investorportal/pkg/pagination"
	"investorportal/pkg/response"

	"github.com/gin-gonic/gin"
)

type SubmissionHandler struct {
	submissionService service.SubmissionService
	documentService   service.DocumentService
	renderer          render.Renderer
}

// NewSubmissionHandler sets up the routing dependencies for submission endpoints
func NewSubmissionHandler(
	submissionService service.SubmissionService,
	documentService service.DocumentService,
	renderer render.Renderer,
) *SubmissionHandler {
	return &SubmissionHandler{
		submissionService: submissionService,
		documentService:   documentService,
		renderer:          renderer,
	}
}

// RegisterRoutes binds the endpoints to the gin Engine or RouterGroup
func (h *SubmissionHandler) RegisterRoutes(router *gin.RouterGroup) {
	subs := router.Group("/submissions", middleware.RequireAuth())
	{
		subs.POST("", h.StartOrResumeDraft)
		subs.GET("", h.ListSubmissions)
		subs.POST("/validate-section", h.ValidateSection)
		subs.GET("/:id", h.GetSubmission)
		subs.PUT("/:id/draft", h.PersistDraft)
		subs.POST("/:id/submit", h.FinalizeSubmission)
		subs.DELETE("/:id", h.DeleteSubmission)
		subs.POST("/:id/documents/:slot", h.UploadDocument)
		subs.POST("/:id/consent", h.AttachConsent)
		subs.GET("/:id/consent", h.ListConsent)
		subs.GET("/:id/certificate", h.GetCertificate)
	}
}

// writeServiceError maps service failures onto the API envelope. Field-level
// validation errors are returned for the caller to resolve; they never reach
// the generic branch.
func writeServiceError(c *gin.Context, err error) {
	var fieldErrs form.FieldErrors
	switch {
	case errors.As(err, &fieldErrs):
		c.JSON(http.StatusUnprocessableEntity, response.FieldErrors(http.StatusUnprocessableEntity, fieldErrs))
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, err.Error()))
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, response.Error(http.StatusForbidden, err.Error()))
	case errors.Is(err, service.ErrUploadRejected):
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
	default:
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Something went wrong. Please try again."))
	}
}

type StartDraftRequest struct {
	ID string `json:"id"` // empty for a fresh draft
}

type ValidateSectionRequest struct {
	Section int                  `json:"section" binding:"required,min=1,max=7"`
	Draft   service.DraftRequest `json:"draft"`
}

type ReviewRequest struct {
	Status string `json:"status" binding:"required,oneof=verified rejected discrepancy"`
	Note   string `json:"note"`
}

// StartOrResumeDraft handles POST /submissions
// @Summary      Start or resume a draft
// @Description  Creates a fresh blank draft, or loads an existing editable submission by id
// @Tags         submissions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      StartDraftRequest  true  "Existing draft id, or empty"
// @Success      201      {object}  response.Response{data=service.SubmissionResponse}
// @Failure      404      {object}  response.Response
// @Router       /submissions [post]
func (h *SubmissionHandler) StartOrResumeDraft(c *gin.Context) {
	investorID, ok := middleware.InvestorID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Investor ID not found in context"))
		return
	}

	var req StartDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil && err != io.EOF {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload"))
		return
	}

	sub, err := h.submissionService.StartOrResumeDraft(c.Request.Context(), investorID, req.ID)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	status := http.StatusCreated
	if req.ID != "" {
		status = http.StatusOK
	}
	c.JSON(status, response.Success(status, sub))
}

// ListSubmissions handles GET /submissions with pagination and text search
// @Summary      List own submissions
// @Description  Retrieves the caller's submissions, paginated, with optional search over name, email, phone, agreement and reference numbers
// @Tags         submissions
// @Produce      json
// @Security     BearerAuth
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Number of items per page (default 20)"
// @Param        search  query     string  false  "Free-text search term"
// @Success      200     {object}  response.Response{data=object}
// @Failure      500     {object}  response.Response
// @Router       /submissions [get]
func (h *SubmissionHandler) ListSubmissions(c *gin.Context) {
	investorID, ok := middleware.InvestorID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Investor ID not found in context"))
		return
	}

	params := pagination.Parse(c)
	subs, total, err := h.submissionService.ListSubmissions(c.Request.Context(), investorID, toFilter(params, c.Query("status")))
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

// ValidateSection handles POST /submissions/validate-section, the navigation gate
// @Summary      Validate a form section
// @Description  Validates one section of the in-memory draft and returns the next section index, or field errors
// @Tags         submissions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      ValidateSectionRequest  true  "Section index and draft state"
// @Success      200      {object}  response.Response{data=object}
// @Failure      422      {object}  response.Response
// @Router       /submissions/validate-section [post]
func (h *SubmissionHandler) ValidateSection(c *gin.Context) {
	var req ValidateSectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	next, fieldErrs, err := h.submissionService.AdvanceSection(req.Draft, req.Section)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}
	if len(fieldErrs) > 0 {
		c.JSON(http.StatusUnprocessableEntity, response.FieldErrors(http.StatusUnprocessableEntity, fieldErrs))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"next_section": next,
	}))
}

// GetSubmission handles GET /submissions/:id
// @Summary      Get submission by ID
// @Description  Fetch one of the caller's submissions with full section content
// @Tags         submissions
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Submission ID"
// @Success      200  {object}  response.Response{data=service.SubmissionResponse}
// @Failure      404  {object}  response.Response
// @Router       /submissions/{id} [get]
func (h *SubmissionHandler) GetSubmission(c *gin.Context) {
	investorID, ok := middleware.InvestorID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Investor ID not found in context"))
		return
	}

	sub, err := h.submissionService.GetSubmission(c.Request.Context(), investorID, c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, sub))
}

// PersistDraft handles PUT /submissions/:id/draft
// @Summary      Persist draft
// @Description  Saves the full draft state without requiring section validation. Idempotent; the last write wins.
// @Tags         submissions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                true  "Submission ID"
// @Param        payload  body      service.DraftRequest  true  "Full draft state"
// @Success      200      {object}  response.Response{data=service.SubmissionResponse}
// @Failure      403      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /submissions/{id}/draft [put]
func (h *SubmissionHandler) PersistDraft(c *gin.Context) {
	investorID, ok := middleware.InvestorID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Investor ID not found in context"))
		return
	}

	var req service.DraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	req.ID = c.Param("id")

	sub, err := h.submissionService.PersistDraft(c.Request.Context(), investorID, req)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, sub))
}

// FinalizeSubmission handles POST /submissions/:id/submit
// @Summary      Finalize submission
// @Description  Validates all seven sections and transitions the draft to pending. Returns the union of field errors when any section fails.
// @Tags         submissions
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Submission ID"
// @Success      200  {object}  response.Response{data=service.SubmissionResponse}
// @Failure      403  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Failure      422  {object}  response.Response
// @Router       /submissions/{id}/submit [post]
func (h *SubmissionHandler) FinalizeSubmission(c *gin.Context) {
	investorID, ok := middleware.InvestorID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Investor ID not found in context"))
		return
	}

	sub, err := h.submissionService.FinalizeSubmission(c.Request.Context(), investorID, c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, sub))
}

// DeleteSubmission handles DELETE /submissions/:id
// @Summary      Delete submission
// @Description  Deletes a submission. Verified submissions are archival and cannot be deleted.
// @Tags         submissions
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Submission ID"
// @Success      200  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /submissions/{id} [delete]
func (h *SubmissionHandler) DeleteSubmission(c *gin.Context) {
	investorID, ok := middleware.InvestorID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Investor ID not found in context"))
		return
	}

	if err := h.submissionService.DeleteSubmission(c.Request.Context(), investorID, c.Param("id")); err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Submission deleted successfully"))
}

// UploadDocument handles POST /submissions/:id/documents/:slot
// @Summary      Upload a document
// @Description  Attaches a file to one of the four document slots (agreementCopy, paymentProof, dividendReceipts, otherDocuments). Max 10 MiB; pdf, jpg, jpeg, png, doc, docx.
// @Tags         submissions
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string  true  "Submission ID"
// @Param        slot  path      string  true  "Document slot"
// @Param        file  formData  file    true  "Document file"
// @Success      200   {object}  response.Response{data=service.SubmissionResponse}
// @Failure      400   {object}  response.Response
// @Failure      403   {object}  response.Response
// @Router       /submissions/{id}/documents/{slot} [post]
func (h *SubmissionHandler) UploadDocument(c *gin.Context) {
	investorID, ok := middleware.InvestorID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Investor ID not found in context"))
		return
	}

	fileName, data, err := readUpload(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	sub, err := h.documentService.UploadDocument(c.Request.Context(), investorID, c.Param("id"), c.Param("slot"), fileName, data)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, sub))
}

// AttachConsent handles POST /submissions/:id/consent
// @Summary      Attach consent document
// @Description  Attaches a consent document to a verified submission, the only mutation verified records accept
// @Tags         submissions
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string  true  "Submission ID"
// @Param        file  formData  file    true  "Consent document file"
// @Success      201   {object}  response.Response{data=service.ConsentResponse}
// @Failure      400   {object}  response.Response
// @Failure      403   {object}  response.Response
// @Router       /submissions/{id}/consent [post]
func (h *SubmissionHandler) AttachConsent(c *gin.Context) {
	investorID, ok := middleware.InvestorID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Investor ID not found in context"))
		return
	}

	fileName, data, err := readUpload(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	doc, err := h.documentService.AttachConsent(c.Request.Context(), investorID, c.Param("id"), fileName, data)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, doc))
}

// ListConsent handles GET /submissions/:id/consent
func (h *SubmissionHandler) ListConsent(c *gin.Context) {
	investorID, ok := middleware.InvestorID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Investor ID not found in context"))
		return
	}

	docs, err := h.documentService.ListConsent(c.Request.Context(), investorID, c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, docs))
}

// GetCertificate handles GET /submissions/:id/certificate
// @Summary      Get closure certificate
// @Description  Renders the closure certificate for a verified submission
// @Tags         submissions
// @Produce      html
// @Security     BearerAuth
// @Param        id   path  string  true  "Submission ID"
// @Success      200  {string}  string  "Rendered certificate"
// @Failure      403  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /submissions/{id}/certificate [get]
func (h *SubmissionHandler) GetCertificate(c *gin.Context) {
	investorID, ok := middleware.InvestorID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Investor ID not found in context"))
		return
	}

	sub, err := h.submissionService.GetVerifiedSubmission(c.Request.Context(), investorID, c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}

	doc, err := h.renderer.RenderCertificate(c.Request.Context(), sub)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to render certificate"))
		return
	}

	c.Data(http.StatusOK, "text/html; charset=utf-8", doc)
}

// readUpload pulls the multipart file, rejecting oversized bodies before
// buffering the content.
func readUpload(c *gin.Context) (string, []byte, error) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return "", nil, errors.New("missing file field")
	}
	if fileHeader.Size > service.MaxUploadSize {
		return "", nil, errors.New("file exceeds 10 MiB limit")
	}

	f, err := fileHeader.Open()
	if err != nil {
		return "", nil, errors.New("failed to read uploaded file")
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, service.MaxUploadSize+1))
	if err != nil {
		return "", nil, errors.New("failed to read uploaded file")
	}
	if len(data) > service.MaxUploadSize {
		return "", nil, errors.New("file exceeds 10 MiB limit")
	}
	return fileHeader.Filename, data, nil
}
