package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	billingapp "github.com/facturado/backend/internal/application/billing"
	"github.com/facturado/backend/internal/interfaces/http/middleware"
)

// CreditNoteHandler handles credit note API endpoints
type CreditNoteHandler struct {
	BaseHandler
	noteService *billingapp.CreditNoteService
}

// NewCreditNoteHandler creates a new CreditNoteHandler
func NewCreditNoteHandler(noteService *billingapp.CreditNoteService) *CreditNoteHandler {
	return &CreditNoteHandler{noteService: noteService}
}

// Create handles POST /billing/credit-notes
func (h *CreditNoteHandler) Create(c *gin.Context) {
	companyID, err := getCompanyID(c)
	if err != nil {
		h.BadRequest(c, "Invalid company ID")
		return
	}

	var req billingapp.CreateCreditNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	note, err := h.noteService.Create(c.Request.Context(), companyID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, note)
}

// GetByID handles GET /billing/credit-notes/:id
func (h *CreditNoteHandler) GetByID(c *gin.Context) {
	companyID, err := getCompanyID(c)
	if err != nil {
		h.BadRequest(c, "Invalid company ID")
		return
	}

	noteID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid credit note ID format")
		return
	}

	note, err := h.noteService.GetByID(c.Request.Context(), companyID, noteID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, note)
}

// List handles GET /billing/credit-notes
func (h *CreditNoteHandler) List(c *gin.Context) {
	companyID, err := getCompanyID(c)
	if err != nil {
		h.BadRequest(c, "Invalid company ID")
		return
	}

	var filter billingapp.CreditNoteListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	page, err := h.noteService.List(c.Request.Context(), companyID, filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// Authorize handles POST /billing/credit-notes/:id/authorize
func (h *CreditNoteHandler) Authorize(c *gin.Context) {
	companyID, err := getCompanyID(c)
	if err != nil {
		h.BadRequest(c, "Invalid company ID")
		return
	}

	noteID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid credit note ID format")
		return
	}

	note, err := h.noteService.Authorize(c.Request.Context(), companyID, noteID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, note)
}

// Cancel handles POST /billing/credit-notes/:id/cancel
func (h *CreditNoteHandler) Cancel(c *gin.Context) {
	companyID, err := getCompanyID(c)
	if err != nil {
		h.BadRequest(c, "Invalid company ID")
		return
	}

	noteID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid credit note ID format")
		return
	}

	note, err := h.noteService.Cancel(c.Request.Context(), companyID, noteID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, note)
}

// Delete handles DELETE /billing/credit-notes/:id
func (h *CreditNoteHandler) Delete(c *gin.Context) {
	companyID, err := getCompanyID(c)
	if err != nil {
		h.BadRequest(c, "Invalid company ID")
		return
	}

	noteID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid credit note ID format")
		return
	}

	if err := h.noteService.Delete(c.Request.Context(), companyID, noteID); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.NoContent(c)
}
