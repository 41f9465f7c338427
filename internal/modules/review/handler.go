package review

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/firstword/responder/internal/modules/processing/ai"
	"github.com/firstword/responder/internal/modules/processing/docx"
	"github.com/firstword/responder/internal/pkg/response"
	"github.com/gin-gonic/gin"
)

const (
	uploadField  = "document"
	docxMIMEType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

type Handler struct {
	svc         *Service
	maxUploadMB int
}

func NewHandler(svc *Service, maxUploadMB int) *Handler {
	return &Handler{svc: svc, maxUploadMB: maxUploadMB}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/documents", h.upload)

	s := rg.Group("/sessions/:id")
	s.GET("", h.get)
	s.DELETE("", h.reset)
	s.POST("/generate", h.generateMissing)
	s.PATCH("/comments/:commentId", h.updateResponse)
	s.POST("/comments/:commentId/generate", h.generateOne)
	s.GET("/export", h.export)
}

func (h *Handler) maxUploadBytes() int64 {
	return int64(h.maxUploadMB) * 1024 * 1024
}

func (h *Handler) tooLarge(c *gin.Context) {
	response.PayloadTooLarge(c, fmt.Sprintf("Maximum file size is %dMB", h.maxUploadMB))
}

func (h *Handler) upload(c *gin.Context) {
	fh, err := c.FormFile(uploadField)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.tooLarge(c)
			return
		}
		response.BadRequest(c, "Please select a .docx file to upload")
		return
	}
	if !strings.EqualFold(filepath.Ext(fh.Filename), ".docx") {
		response.UnsupportedMediaType(c, "Please upload a .docx file")
		return
	}
	if fh.Size > h.maxUploadBytes() {
		h.tooLarge(c)
		return
	}

	f, err := fh.Open()
	if err != nil {
		response.InternalError(c, err)
		return
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, h.maxUploadBytes()+1))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if int64(len(data)) > h.maxUploadBytes() {
		h.tooLarge(c)
		return
	}

	sess, err := h.svc.Upload(c.Request.Context(), filepath.Base(fh.Filename), data)
	if err != nil {
		if errors.Is(err, docx.ErrExtractionFailed) {
			response.UnprocessableEntity(c, "Could not read comments from this document. Is it a valid .docx file?")
			return
		}
		response.InternalError(c, err)
		return
	}
	response.Created(c, sess)
}

func (h *Handler) get(c *gin.Context) {
	sess, err := h.svc.Get(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, sess)
}

func (h *Handler) reset(c *gin.Context) {
	if err := h.svc.Reset(c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	response.NoContent(c)
}

func (h *Handler) generateMissing(c *gin.Context) {
	sess, err := h.svc.GenerateMissing(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, sess)
}

type updateResponseDTO struct {
	Response *string `json:"response"`
}

func (h *Handler) updateResponse(c *gin.Context) {
	var dto updateResponseDTO
	if err := c.ShouldBindJSON(&dto); err != nil || dto.Response == nil {
		response.BadRequest(c, "response is required")
		return
	}
	comment, err := h.svc.UpdateResponse(c.Param("id"), c.Param("commentId"), *dto.Response)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, comment)
}

func (h *Handler) generateOne(c *gin.Context) {
	comment, err := h.svc.GenerateOne(c.Request.Context(), c.Param("id"), c.Param("commentId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, comment)
}

func (h *Handler) export(c *gin.Context) {
	res, err := h.svc.Export(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	mode := "primary"
	if res.Fallback {
		mode = "fallback"
	}
	c.Header("X-Export-Mode", mode)
	if len(res.Warnings) > 0 {
		c.Header("X-Export-Warnings", strconv.Itoa(len(res.Warnings)))
	}
	response.Attachment(c, res.Filename, docxMIMEType, res.Data)
}

// fail maps service errors onto HTTP responses.
func (h *Handler) fail(c *gin.Context, err error) {
	var genErr *ai.GenerationError
	switch {
	case errors.Is(err, ErrSessionNotFound):
		response.NotFoundMsg(c, "Session not found")
	case errors.Is(err, ErrCommentNotFound):
		response.NotFoundMsg(c, "Comment not found")
	case errors.Is(err, ErrSentinelComment):
		response.BadRequest(c, err.Error())
	case errors.Is(err, ai.ErrMissingCredential):
		response.PreconditionRequired(c, "Please set your OpenAI API key in settings", gin.H{"needs_api_key": true})
	case errors.As(err, &genErr):
		response.BadGateway(c, "Error generating response: "+genErr.Error())
	default:
		response.InternalError(c, err)
	}
}
