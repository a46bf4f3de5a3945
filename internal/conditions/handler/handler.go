package handler

import (
	"net/http"

	"loan_pipeline_backend/internal/conditions/service"
	"loan_pipeline_backend/internal/conditions/transport"
	"loan_pipeline_backend/platform/httpkit"
	"loan_pipeline_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Handler struct {
	svc         *service.Service
	val         *validator.Validator
	maxFileSize int64
}

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgFileRequired     = "file is required"
	msgFileTooLarge     = "file exceeds the maximum upload size"
)

func New(svc *service.Service, val *validator.Validator, maxFileSize int64) *Handler {
	return &Handler{svc: svc, val: val, maxFileSize: maxFileSize}
}

// RegisterLeadRoutes mounts the lead-scoped routes on /leads.
func (h *Handler) RegisterLeadRoutes(rg *gin.RouterGroup) {
	rg.GET("/:id/conditions", h.List)
	rg.POST("/:id/conditions", h.Create)
	rg.POST("/:id/conditions/import", h.Import)
}

// RegisterRoutes mounts the condition routes on /conditions.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.PATCH("/:id", h.Update)
	rg.PATCH("/:id/status", h.SetStatus)
	rg.PUT("/:id/document", h.AttachDocument)
	rg.POST("/:id/document", h.UploadDocument)
	rg.DELETE("/:id", h.Delete)
	rg.GET("/:id/history", h.History)
}

func (h *Handler) List(c *gin.Context) {
	leadID, ok := parseID(c)
	if !ok {
		return
	}

	resp, err := h.svc.List(c.Request.Context(), leadID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, resp)
}

func (h *Handler) Create(c *gin.Context) {
	leadID, ok := parseID(c)
	if !ok {
		return
	}

	var req transport.CreateConditionRequest
	if !h.bind(c, &req) {
		return
	}

	resp, err := h.svc.Create(c.Request.Context(), leadID, req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.JSON(c, http.StatusCreated, resp)
}

func (h *Handler) Import(c *gin.Context) {
	leadID, ok := parseID(c)
	if !ok {
		return
	}

	var req transport.ImportConditionsRequest
	if !h.bind(c, &req) {
		return
	}

	resp, err := h.svc.Import(c.Request.Context(), leadID, req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.JSON(c, http.StatusCreated, resp)
}

func (h *Handler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req transport.UpdateConditionRequest
	if !h.bind(c, &req) {
		return
	}

	resp, err := h.svc.Update(c.Request.Context(), id, req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, resp)
}

func (h *Handler) SetStatus(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req transport.SetConditionStatusRequest
	if !h.bind(c, &req) {
		return
	}

	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	resp, err := h.svc.SetStatus(c.Request.Context(), id, identity.UserID(), req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, resp)
}

func (h *Handler) AttachDocument(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req transport.AttachDocumentRequest
	if !h.bind(c, &req) {
		return
	}

	resp, err := h.svc.AttachDocument(c.Request.Context(), id, req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, resp)
}

func (h *Handler) UploadDocument(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgFileRequired, nil)
		return
	}
	if h.maxFileSize > 0 && fileHeader.Size > h.maxFileSize {
		httpkit.Error(c, http.StatusRequestEntityTooLarge, msgFileTooLarge, nil)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	defer file.Close()

	contentType := fileHeader.Header.Get("Content-Type")
	resp, err := h.svc.UploadDocument(c.Request.Context(), id, fileHeader.Filename, contentType, file, fileHeader.Size)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, resp)
}

func (h *Handler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if httpkit.HandleError(c, h.svc.Delete(c.Request.Context(), id)) {
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) History(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	resp, err := h.svc.History(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, resp)
}

func (h *Handler) bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return false
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.FieldErrors(err))
		return false
	}
	return true
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return uuid.UUID{}, false
	}
	return id, true
}
